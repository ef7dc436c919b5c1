package refresh

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MatSV27/neo-portal-proveedores/identity"
	"github.com/MatSV27/neo-portal-proveedores/mirror"
	"github.com/MatSV27/neo-portal-proveedores/session"
)

func authenticatedStore(t *testing.T, role string) *session.Store {
	t.Helper()

	st := session.NewStore()
	now := time.Now()
	st.Set(session.Session{
		Identity:      "uid-1",
		Token:         "tok-initial",
		Role:          role,
		TokenIssuedAt: now,
		TokenExpiry:   now.Add(time.Hour),
		Status:        session.StatusAuthenticated,
	})
	return st
}

func tokenResult(token, role string) identity.TokenResult {
	now := time.Now()
	return identity.TokenResult{
		Identity:  identity.Info{UID: "uid-1"},
		Token:     token,
		Role:      role,
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}
}

func TestRefreshWritesTokenAndRole(t *testing.T) {
	st := authenticatedStore(t, "admin")

	fetch := func(context.Context) (identity.TokenResult, error) {
		return tokenResult("tok-new", "admin"), nil
	}
	s, err := New(st, fetch, nil, Config{}, nil, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	res, err := s.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if res.Token != "tok-new" {
		t.Fatalf("unexpected token %q", res.Token)
	}

	snap := st.Get()
	if snap.Token != "tok-new" || snap.Status != session.StatusAuthenticated {
		t.Fatalf("store not updated: %+v", snap.Session)
	}
}

func TestRefreshWithoutSessionFails(t *testing.T) {
	st := session.NewStore()

	s, err := New(st, func(context.Context) (identity.TokenResult, error) {
		t.Fatalf("fetch must not be called without a session")
		return identity.TokenResult{}, nil
	}, nil, Config{}, nil, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, err := s.Refresh(context.Background()); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession, got %v", err)
	}
}

func TestConcurrentRefreshesShareOneFetch(t *testing.T) {
	st := authenticatedStore(t, "proveedor")

	var fetches atomic.Int64
	release := make(chan struct{})
	fetch := func(context.Context) (identity.TokenResult, error) {
		fetches.Add(1)
		<-release
		return tokenResult("tok-shared", "proveedor"), nil
	}

	s, err := New(st, fetch, nil, Config{}, nil, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	const n = 8
	var wg sync.WaitGroup
	wg.Add(n)
	tokens := make(chan string, n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			res, err := s.Refresh(context.Background())
			if err != nil {
				t.Errorf("refresh failed: %v", err)
				return
			}
			tokens <- res.Token
		}()
	}

	// Let every goroutine reach the scheduler before releasing the fetch.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(tokens)

	if got := fetches.Load(); got != 1 {
		t.Fatalf("expected exactly one underlying fetch, got %d", got)
	}
	for tok := range tokens {
		if tok != "tok-shared" {
			t.Fatalf("caller observed different token %q", tok)
		}
	}
}

func TestSupersededRefreshIsDropped(t *testing.T) {
	st := authenticatedStore(t, "proveedor")

	started := make(chan struct{})
	release := make(chan struct{})
	fetch := func(context.Context) (identity.TokenResult, error) {
		close(started)
		<-release
		return tokenResult("tok-late", "proveedor"), nil
	}

	s, err := New(st, fetch, nil, Config{}, nil, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.Refresh(context.Background())
		done <- err
	}()

	<-started
	// The user logs out while the fetch is in flight.
	st.Set(session.Session{Status: session.StatusAnonymous})
	close(release)

	if err := <-done; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got %v", err)
	}
	if snap := st.Get(); snap.Status != session.StatusAnonymous || snap.Token != "" {
		t.Fatalf("stale completion overwrote newer state: %+v", snap.Session)
	}
}

func TestFailedRefreshKeepsSession(t *testing.T) {
	st := authenticatedStore(t, "proveedor")
	before := st.Get()

	fetch := func(context.Context) (identity.TokenResult, error) {
		return identity.TokenResult{}, errors.New("identity service down")
	}
	s, err := New(st, fetch, nil, Config{}, nil, func(string, ...any) {})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, err := s.Refresh(context.Background()); err == nil {
		t.Fatalf("expected refresh error")
	}

	after := st.Get()
	if after.Generation != before.Generation || after.Token != before.Token {
		t.Fatalf("failed refresh must not touch the session: %+v", after.Session)
	}
}

func TestRoleIsRederivedEveryRefresh(t *testing.T) {
	st := authenticatedStore(t, "admin")

	// The identity service revoked admin between ticks.
	fetch := func(context.Context) (identity.TokenResult, error) {
		return tokenResult("tok-demoted", "proveedor"), nil
	}
	s, err := New(st, fetch, nil, Config{}, nil, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if snap := st.Get(); snap.Role != "proveedor" {
		t.Fatalf("role must follow the token's claims, got %q", snap.Role)
	}
}

func TestPeriodicTimerRefreshesAndStops(t *testing.T) {
	st := authenticatedStore(t, "proveedor")

	var fetches atomic.Int64
	fetch := func(context.Context) (identity.TokenResult, error) {
		fetches.Add(1)
		return tokenResult("tok-tick", "proveedor"), nil
	}

	s, err := New(st, fetch, nil, Config{Interval: 10 * time.Millisecond}, nil, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	s.Start()
	if !s.Running() {
		t.Fatalf("scheduler should report running")
	}

	deadline := time.After(2 * time.Second)
	for fetches.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("timer never fired enough, fetches=%d", fetches.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}

	s.Stop()
	if s.Running() {
		t.Fatalf("scheduler should report stopped")
	}
	settled := fetches.Load()
	time.Sleep(50 * time.Millisecond)
	if fetches.Load() > settled+1 {
		t.Fatalf("timer kept firing after Stop")
	}

	// Restartable.
	s.Start()
	s.Stop()
}

func TestRefreshPersistsMirror(t *testing.T) {
	st := authenticatedStore(t, "proveedor")
	mem := &memoryMirror{}

	fetch := func(context.Context) (identity.TokenResult, error) {
		return tokenResult("tok-persisted", "proveedor"), nil
	}
	s, err := New(st, fetch, mem, Config{}, nil, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	state, _ := mem.Load(context.Background())
	if state.Token != "tok-persisted" || state.Role != "proveedor" {
		t.Fatalf("mirror not updated: %+v", state)
	}
}

type memoryMirror struct {
	mu    sync.Mutex
	state mirror.State
}

func (m *memoryMirror) Load(context.Context) (mirror.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, nil
}

func (m *memoryMirror) Save(_ context.Context, state mirror.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
	return nil
}

func (m *memoryMirror) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = mirror.State{}
	return nil
}
