// Package gate answers "may the current session reach this route" from
// in-memory session state alone.
//
// A gate decision is advisory client-side routing, not enforcement. The
// backend re-checks the role on every request; a stale Allow here costs one
// rejected request, never an unauthorized action.
//
// # Architecture boundaries
//
// The gate reads the session store and nothing else. It never performs I/O,
// never refreshes tokens, and never mutates the session.
//
// # What this package must NOT do
//
//   - Treat an insufficient role like a missing session. A signed-in supplier
//     hitting an admin route keeps their session; they are redirected, not
//     logged out.
//   - Block. Decisions come from the current snapshot, synchronously.
package gate
