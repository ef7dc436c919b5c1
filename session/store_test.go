package session

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func authenticated(identity, token, role string) Session {
	now := time.Now()
	return Session{
		Identity:      identity,
		Token:         token,
		Role:          role,
		TokenIssuedAt: now,
		TokenExpiry:   now.Add(time.Hour),
		Status:        StatusAuthenticated,
	}
}

func TestStoreStartsAnonymous(t *testing.T) {
	st := NewStore()

	snap := st.Get()
	if snap.Status != StatusAnonymous {
		t.Fatalf("expected anonymous start, got %v", snap.Status)
	}
	if snap.Generation != 0 {
		t.Fatalf("expected generation 0, got %d", snap.Generation)
	}
	if snap.Token != "" {
		t.Fatalf("anonymous session must not carry a token")
	}
}

func TestTokenPresentIffAuthenticated(t *testing.T) {
	st := NewStore()

	transitions := []Session{
		{Status: StatusAuthenticating},
		authenticated("uid-1", "tok-1", "proveedor"),
		{Status: StatusExpired, Token: "stale-must-be-cleared", Role: "admin"},
		authenticated("uid-1", "tok-2", "proveedor"),
		{Status: StatusAnonymous, Token: "also-cleared"},
	}

	for _, next := range transitions {
		snap := st.Set(next)
		hasToken := snap.Token != ""
		isAuth := snap.Status == StatusAuthenticated
		if hasToken != isAuth {
			t.Fatalf("invariant violated: status=%v token=%q", snap.Status, snap.Token)
		}
		if !isAuth && snap.Role != "" {
			t.Fatalf("role must be cleared with the token, got %q", snap.Role)
		}
	}
}

func TestSetBumpsGeneration(t *testing.T) {
	st := NewStore()

	first := st.Set(Session{Status: StatusAuthenticating})
	second := st.Set(authenticated("uid-1", "tok", "proveedor"))

	if first.Generation != 1 || second.Generation != 2 {
		t.Fatalf("expected generations 1 and 2, got %d and %d", first.Generation, second.Generation)
	}
}

func TestCompareAndSetDropsStaleCompletion(t *testing.T) {
	st := NewStore()
	st.Set(authenticated("uid-1", "tok-old", "admin"))

	// Refresh A observes the current generation, then refresh B completes
	// first and advances it.
	observedByA := st.Get().Generation
	if _, err := st.CompareAndSet(observedByA, authenticated("uid-1", "tok-b", "proveedor")); err != nil {
		t.Fatalf("refresh B write failed: %v", err)
	}

	// A's late completion must be dropped.
	_, err := st.CompareAndSet(observedByA, authenticated("uid-1", "tok-a", "admin"))
	if !errors.Is(err, ErrStaleWrite) {
		t.Fatalf("expected ErrStaleWrite, got %v", err)
	}

	final := st.Get()
	if final.Token != "tok-b" || final.Role != "proveedor" {
		t.Fatalf("store must reflect B's result, got token=%q role=%q", final.Token, final.Role)
	}
}

func TestExpireIsIdempotent(t *testing.T) {
	st := NewStore()
	st.Set(authenticated("uid-1", "tok", "proveedor"))

	snap, did := st.Expire()
	if !did {
		t.Fatalf("first expire must perform the transition")
	}
	if snap.Status != StatusExpired || snap.Token != "" {
		t.Fatalf("expired session must clear the token, got %+v", snap.Session)
	}

	if _, did := st.Expire(); did {
		t.Fatalf("second expire must be a no-op")
	}
}

func TestConcurrentExpireHasSingleWinner(t *testing.T) {
	st := NewStore()
	st.Set(authenticated("uid-1", "tok", "proveedor"))

	const n = 16
	var wg sync.WaitGroup
	wg.Add(n)

	wins := make(chan bool, n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, did := st.Expire()
			wins <- did
		}()
	}
	wg.Wait()
	close(wins)

	winners := 0
	for did := range wins {
		if did {
			winners++
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one expire winner, got %d", winners)
	}
}

func TestSubscribersObserveMonotonicGenerations(t *testing.T) {
	st := NewStore()

	var seen []uint64
	unsub := st.Subscribe(func(snap Snapshot) {
		seen = append(seen, snap.Generation)
	})
	defer unsub()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st.Set(authenticated("uid-1", "tok", "proveedor"))
		}()
	}
	wg.Wait()

	if len(seen) != 8 {
		t.Fatalf("expected 8 notifications, got %d", len(seen))
	}
	for i := 1; i < len(seen); i++ {
		if seen[i] <= seen[i-1] {
			t.Fatalf("generation order violated: %v", seen)
		}
	}
}

func TestUnsubscribeStopsNotifications(t *testing.T) {
	st := NewStore()

	calls := 0
	unsub := st.Subscribe(func(Snapshot) { calls++ })

	st.Set(Session{Status: StatusAuthenticating})
	unsub()
	st.Set(Session{Status: StatusAnonymous})

	if calls != 1 {
		t.Fatalf("expected 1 notification after unsubscribe, got %d", calls)
	}
}
