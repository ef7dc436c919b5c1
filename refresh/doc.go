// Package refresh keeps the session token from going stale without client
// action, and prevents refresh storms.
//
// # Concurrency contract
//
// A Scheduler allows at most one token fetch in flight. Any caller — the
// periodic timer or an explicit manual refresh — that requests a refresh
// while one is running attaches to the running operation and observes the
// same outcome. Completions are written through the session store's
// generation check, so a fetch that was superseded while in flight (for
// example by a logout) is dropped instead of overwriting newer state.
//
// # Architecture boundaries
//
// This package owns timing, deduplication, and write-back. Token issuance
// belongs to identity/, state to session/, persistence to mirror/.
//
// # What this package must NOT do
//
//   - Force a logout on refresh failure. The existing token may still be
//     valid; only an explicit backend rejection expires the session, and
//     that path is owned by the request authorizer.
//   - Fire against a session that is not authenticated.
package refresh
