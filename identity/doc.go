// Package identity is the seam over the external identity service. It
// issues and renews bearer tokens, derives the role claim from the token,
// and is the only push source of truth for whether any identity exists.
//
// # Architecture boundaries
//
// This package owns credential exchange with the identity service and claim
// decoding. It never touches the session store, the persisted mirror, or the
// business backend; the root package coordinates those.
//
// # What this package must NOT do
//
//   - Verify token signatures. The business backend is the verifier; the
//     client only decodes claims it already trusts the issuer for.
//   - Persist anything.
//   - Retry failed credential exchanges.
package identity
