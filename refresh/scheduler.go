package refresh

import (
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"sync"
	"time"

	"github.com/MatSV27/neo-portal-proveedores/identity"
	"github.com/MatSV27/neo-portal-proveedores/internal/metrics"
	"github.com/MatSV27/neo-portal-proveedores/mirror"
	"github.com/MatSV27/neo-portal-proveedores/session"
)

// ErrNoActiveSession is returned when a refresh is requested while the
// session is not authenticated.
var ErrNoActiveSession = errors.New("no active session to refresh")

// ErrSuperseded is returned when a refresh completed but the session had
// already moved on (logout, expiry, or a newer write); its result was
// discarded.
var ErrSuperseded = errors.New("refresh result superseded")

// DefaultInterval matches the portal's auto-refresh cadence.
const DefaultInterval = 5 * time.Minute

const defaultTickTimeout = 30 * time.Second

// Config controls scheduling behavior.
type Config struct {
	// Interval between scheduled refreshes. Defaults to DefaultInterval.
	Interval time.Duration
	// JitterRange, when positive, spreads each tick uniformly within
	// ±JitterRange. Zero disables jitter.
	JitterRange time.Duration
	// TickTimeout bounds each timer-triggered refresh. Defaults to 30s.
	TickTimeout time.Duration
}

// Fetch obtains a fresh token from the identity service. It is always
// called with forceRefresh semantics; returning a cached token defeats the
// role re-derivation guarantee.
type Fetch func(ctx context.Context) (identity.TokenResult, error)

type flight struct {
	done   chan struct{}
	result identity.TokenResult
	err    error
}

// Scheduler periodically and on demand renews the session token,
// deduplicating concurrent refresh requests into one in-flight fetch.
type Scheduler struct {
	store   *session.Store
	fetch   Fetch
	mirror  mirror.Mirror
	cfg     Config
	metrics *metrics.Metrics
	warn    func(string, ...any)

	mu       sync.Mutex
	inflight *flight
	running  bool
	stopCh   chan struct{}
}

// New creates a Scheduler. store and fetch are required; mirror, metrics,
// and warn may be nil.
func New(store *session.Store, fetch Fetch, m mirror.Mirror, cfg Config, met *metrics.Metrics, warn func(string, ...any)) (*Scheduler, error) {
	if store == nil {
		return nil, errors.New("refresh: session store required")
	}
	if fetch == nil {
		return nil, errors.New("refresh: fetch required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.TickTimeout <= 0 {
		cfg.TickTimeout = defaultTickTimeout
	}
	if m == nil {
		m = mirror.NoOp{}
	}
	if warn == nil {
		warn = log.Printf
	}
	return &Scheduler{
		store:   store,
		fetch:   fetch,
		mirror:  m,
		cfg:     cfg,
		metrics: met,
		warn:    warn,
	}, nil
}

// Start launches the periodic timer. Idempotent; safe to call from a store
// subscriber.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	stop := make(chan struct{})
	s.stopCh = stop
	s.mu.Unlock()

	go s.loop(stop)
}

// Stop cancels the periodic timer. An in-flight refresh is not interrupted;
// its completion is dropped by the generation check if the session has
// already moved on. Idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.stopCh = nil
	s.mu.Unlock()
}

// Running reports whether the periodic timer is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Refresh renews the token now. If a refresh is already in flight the caller
// attaches to it and observes the same outcome; otherwise this caller
// performs the fetch and writes the result through the store's generation
// check, persisting the mirror on success.
func (s *Scheduler) Refresh(ctx context.Context) (identity.TokenResult, error) {
	s.mu.Lock()
	if f := s.inflight; f != nil {
		s.mu.Unlock()
		s.metrics.Inc(metrics.MetricRefreshDedupAttach)
		select {
		case <-f.done:
			return f.result, f.err
		case <-ctx.Done():
			return identity.TokenResult{}, ctx.Err()
		}
	}
	f := &flight{done: make(chan struct{})}
	s.inflight = f
	s.mu.Unlock()

	snap := s.store.Get()
	if !snap.Authenticated() {
		s.finish(f, identity.TokenResult{}, ErrNoActiveSession)
		return identity.TokenResult{}, ErrNoActiveSession
	}
	observed := snap.Generation

	result, err := s.fetch(ctx)
	if err != nil {
		s.metrics.Inc(metrics.MetricRefreshFailure)
		err = fmt.Errorf("token fetch: %w", err)
		s.finish(f, identity.TokenResult{}, err)
		return identity.TokenResult{}, err
	}

	next := session.Session{
		Identity:      result.Identity.UID,
		Token:         result.Token,
		Role:          result.Role,
		TokenIssuedAt: result.IssuedAt,
		TokenExpiry:   result.ExpiresAt,
		Status:        session.StatusAuthenticated,
	}
	if _, casErr := s.store.CompareAndSet(observed, next); casErr != nil {
		s.metrics.Inc(metrics.MetricRefreshStaleDropped)
		s.finish(f, identity.TokenResult{}, ErrSuperseded)
		return identity.TokenResult{}, ErrSuperseded
	}

	if mErr := s.mirror.Save(ctx, mirror.State{Token: result.Token, Role: result.Role}); mErr != nil {
		// The in-memory session is already current; a stale mirror only
		// affects the next cold start.
		s.warn("portalauth: mirror save after refresh failed: %v", mErr)
	}
	s.metrics.Inc(metrics.MetricRefreshSuccess)

	s.finish(f, result, nil)
	return result, nil
}

func (s *Scheduler) finish(f *flight, result identity.TokenResult, err error) {
	s.mu.Lock()
	f.result = result
	f.err = err
	s.inflight = nil
	s.mu.Unlock()
	close(f.done)
}

func (s *Scheduler) loop(stop <-chan struct{}) {
	for {
		timer := time.NewTimer(s.nextInterval())
		select {
		case <-stop:
			timer.Stop()
			return
		case <-timer.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.cfg.TickTimeout)
			_, err := s.Refresh(ctx)
			cancel()
			if err != nil && !errors.Is(err, ErrNoActiveSession) && !errors.Is(err, ErrSuperseded) {
				s.warn("portalauth: scheduled refresh failed, retrying next tick: %v", err)
			}
		}
	}
}

// nextInterval applies optional uniform jitter around the base interval.
func (s *Scheduler) nextInterval() time.Duration {
	d := s.cfg.Interval
	if s.cfg.JitterRange > 0 {
		n, err := crand.Int(crand.Reader, big.NewInt(int64(2*s.cfg.JitterRange)))
		if err == nil {
			d += time.Duration(n.Int64()) - s.cfg.JitterRange
		}
	}
	if d <= 0 {
		d = time.Second
	}
	return d
}
