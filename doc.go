// Package portalauth manages the client-side session and authorization
// lifecycle of the supplier-invoice portal: login, registration, periodic
// token refresh, route gating, and authorized backend requests.
//
// The package is designed for a long-lived client process: Manager methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// portalauth is the public surface. It exposes [Manager], [Builder],
// [Config], and value types (Session, MetricsSnapshot, AuditEvent). The
// moving parts live in subpackages — identity/ talks to the identity
// service, session/ holds state, refresh/ owns the renewal loop, gate/
// answers route checks, apiclient/ performs authorized requests, mirror/
// persists the credential pair across restarts.
//
// # What this package must NOT do
//
//   - Verify token signatures. The client treats the token as opaque; the
//     backend is the verifier.
//   - Enforce authorization. Gate decisions are routing hints; every request
//     is re-checked server-side.
//   - Log out on refresh or network failure. Only an explicit backend 401
//     ends a session early.
package portalauth
