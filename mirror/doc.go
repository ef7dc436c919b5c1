// Package mirror persists the session's two-key credential cache: the
// bearer token under "idToken" and the decoded role under "userRole".
//
// The mirror is a cache, not the source of truth. On process start it seeds
// the in-memory session optimistically; the identity-change subscription is
// authoritative and overwrites it. Both keys are always written together or
// cleared together, never partially.
//
// # What this package must NOT do
//
//   - Interpret the token or the role.
//   - Fail startup when the keys are absent; absence simply means anonymous.
package mirror
