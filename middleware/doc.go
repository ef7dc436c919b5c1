// Package middleware adapts gate decisions to HTTP for hosts that render the
// portal shell server-side.
//
// [Guard] wraps a handler with a role requirement. Each request is checked
// against the session store through gate.Check:
//
//   - allow: the wrapped handler runs, with the gate result in the context.
//   - pending: 503 with Retry-After; session restoration is still resolving
//     and a redirect now would bounce a user who is about to be signed in.
//   - deny (not authenticated): redirect to the login route.
//   - deny (insufficient role): redirect to the role's baseline route. The
//     session stays intact.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into gate calls. All decisions are
// delegated to gate.Check.
//
// # What this package must NOT do
//
//   - Expire or mutate the session.
//   - Inspect tokens. Routing runs on session state, not on credentials.
package middleware
