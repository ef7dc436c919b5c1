// Package audit provides the session lifecycle audit event model, sinks, and
// the asynchronous dispatcher.
//
// # Architecture boundaries
//
// This package owns event buffering and delivery. What gets emitted, and
// when, is decided by the root package.
//
// # What this package must NOT do
//
//   - Block the session lifecycle on a slow sink (buffering or dropping is
//     mandatory).
//   - Import the root package or any sibling package.
package audit
