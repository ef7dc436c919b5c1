package session

import (
	"errors"
	"sync"
)

// ErrStaleWrite is returned by CompareAndSet when the store's generation has
// advanced past the one the caller observed.
var ErrStaleWrite = errors.New("session store generation advanced")

// Snapshot is an immutable view of the Session plus the generation it was
// produced at.
type Snapshot struct {
	Session
	Generation uint64
}

// Store holds the process-wide Session.
//
// Concurrency model:
//   - A single mutex guards the snapshot, the generation counter, and the
//     subscriber set. Writes and subscriber notification happen under the
//     same lock, so every handler observes snapshots in strictly increasing
//     generation order and no handler ever sees an older snapshot after a
//     newer one.
//   - Handlers run synchronously on the writer's goroutine and must not call
//     back into the Store; they should record the snapshot and return.
type Store struct {
	mu      sync.Mutex
	current Snapshot
	subs    map[uint64]func(Snapshot)
	nextSub uint64
}

// NewStore creates a Store in the anonymous state at generation zero.
func NewStore() *Store {
	return &Store{
		current: Snapshot{Session: Session{Status: StatusAnonymous}},
		subs:    make(map[uint64]func(Snapshot)),
	}
}

// Get returns the current snapshot. Always available, never blocks on I/O.
func (st *Store) Get() Snapshot {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.current
}

// Set unconditionally replaces the Session, bumps the generation, and
// notifies subscribers in order. The written session is normalized so the
// token-presence invariant can never be violated by a caller.
func (st *Store) Set(next Session) Snapshot {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.apply(next)
}

// CompareAndSet replaces the Session only if the generation still equals
// observed. It returns ErrStaleWrite otherwise, which callers use to drop
// completions that were superseded while their producing operation was in
// flight.
func (st *Store) CompareAndSet(observed uint64, next Session) (Snapshot, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.current.Generation != observed {
		return st.current, ErrStaleWrite
	}
	return st.apply(next), nil
}

// Expire transitions an authenticated session to expired, clearing the
// credential. It reports whether this call performed the transition, so a
// cascade triggered by several concurrent rejections runs its side effects
// exactly once: only the winner sees true.
func (st *Store) Expire() (Snapshot, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.current.Status != StatusAuthenticated {
		return st.current, false
	}
	return st.apply(Session{Status: StatusExpired}), true
}

// Subscribe registers a handler invoked on every transition, and returns its
// unsubscribe function. The handler is not invoked for the current snapshot;
// callers that need it should Get first.
func (st *Store) Subscribe(handler func(Snapshot)) func() {
	st.mu.Lock()
	id := st.nextSub
	st.nextSub++
	st.subs[id] = handler
	st.mu.Unlock()

	return func() {
		st.mu.Lock()
		delete(st.subs, id)
		st.mu.Unlock()
	}
}

// apply must be called with st.mu held.
func (st *Store) apply(next Session) Snapshot {
	st.current = Snapshot{
		Session:    normalize(next),
		Generation: st.current.Generation + 1,
	}
	for _, handler := range st.subs {
		handler(st.current)
	}
	return st.current
}
