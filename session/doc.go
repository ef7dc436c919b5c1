// Package session provides the client-side Session model and the Store —
// the single source of truth for "who is logged in, with what capability".
//
// # Design
//
// The Store holds exactly one Session snapshot per running client instance,
// tagged with a monotonically increasing generation counter. Every write
// bumps the generation; conditional writes (CompareAndSet) are rejected when
// the generation has already advanced, which is what makes out-of-order
// completion of concurrent refresh operations safe.
//
// # Architecture boundaries
//
// This package owns session state, transitions, and subscriber notification.
// It performs no I/O: token acquisition lives in identity/, persistence in
// mirror/, and scheduling in refresh/.
//
// # What this package must NOT do
//
//   - Perform network or storage I/O.
//   - Import any sibling package.
//   - Expose mutable access to the current snapshot.
package session
