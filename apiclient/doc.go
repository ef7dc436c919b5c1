// Package apiclient authorizes and performs portal backend requests.
//
// Every call attaches the current session token as a bearer header. Calls
// without an authenticated session fail locally with ErrNotAuthenticated and
// never reach the network.
//
// # The 401 cascade
//
// A 401 from the backend is authoritative: the token the backend just
// rejected is unusable no matter what the client believes. The first caller
// to observe it wins the expiry transition and runs the side effects exactly
// once (mirror clear, expiry hook, audit); every caller gets
// ErrSessionExpired. Concurrent rejections of the same dead token therefore
// produce one logout, not a storm.
//
// # Architecture boundaries
//
// This package owns transport, the bearer header, and the 401 cascade.
// It never refreshes tokens (refresh/) and never decides routing (gate/).
//
// # What this package must NOT do
//
//   - Retry a 401. The session is gone; retrying with the same token only
//     hammers the backend.
//   - Expire the session on a network error. Offline is not logged out.
package apiclient
