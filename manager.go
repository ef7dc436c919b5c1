package portalauth

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/MatSV27/neo-portal-proveedores/apiclient"
	"github.com/MatSV27/neo-portal-proveedores/gate"
	"github.com/MatSV27/neo-portal-proveedores/identity"
	internalaudit "github.com/MatSV27/neo-portal-proveedores/internal/audit"
	internalmetrics "github.com/MatSV27/neo-portal-proveedores/internal/metrics"
	"github.com/MatSV27/neo-portal-proveedores/mirror"
	"github.com/MatSV27/neo-portal-proveedores/refresh"
	"github.com/MatSV27/neo-portal-proveedores/session"
)

func defaultWarn(format string, args ...any) { log.Printf(format, args...) }

const sideEffectTimeout = 5 * time.Second

// Manager owns the session lifecycle: login and registration, startup
// restoration, the refresh loop, route gating, and authorized backend
// access. Build one through [Builder.Build], then call [Manager.Start].
type Manager struct {
	cfg       Config
	provider  identity.Provider
	store     *session.Store
	mirror    mirror.Mirror
	scheduler *refresh.Scheduler
	api       *apiclient.Client
	gate      *gate.Gate
	metrics   *internalmetrics.Metrics
	audit     *internalaudit.Dispatcher
	warn      func(string, ...any)

	mu            sync.Mutex
	started       bool
	closed        bool
	unsubStore    func()
	unsubIdentity func()
}

// Start restores any persisted session and begins tracking identity events.
//
// A persisted credential pair puts the session into the authenticating state
// so hosts render a restoring view instead of a login flash; the pair is not
// trusted as a live credential. The identity provider's first change event,
// which fires synchronously during Start, settles the session either way.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return errors.New("manager closed")
	}
	if m.started {
		m.mu.Unlock()
		return errors.New("manager already started")
	}
	m.started = true
	m.mu.Unlock()

	// The store drives the refresh timer: authenticated runs it, any other
	// state stops it.
	unsubStore := m.store.Subscribe(func(snap session.Snapshot) {
		if snap.Authenticated() {
			m.scheduler.Start()
		} else {
			m.scheduler.Stop()
		}
	})

	state, err := m.mirror.Load(ctx)
	if err != nil {
		m.warn("portalauth: mirror load failed, starting anonymous: %v", err)
	}
	if state.Token != "" && state.Role != "" {
		m.store.Set(session.Session{Status: session.StatusAuthenticating})
	}

	unsubIdentity := m.provider.Changes(m.onIdentityEvent)

	m.mu.Lock()
	m.unsubStore = unsubStore
	m.unsubIdentity = unsubIdentity
	m.mu.Unlock()
	return nil
}

// onIdentityEvent is the sole writer of sign-in state. Login and Register
// trigger it through the provider's change stream, the same path a restored
// identity takes.
func (m *Manager) onIdentityEvent(ev identity.Event) {
	if ev.Identity == nil {
		snap := m.store.Get()
		if snap.Status == session.StatusAnonymous {
			return
		}
		// A definitive no-identity verdict ends any restoration and
		// invalidates whatever the mirror still holds.
		if snap.Status == session.StatusAuthenticating || snap.Authenticated() {
			m.store.Set(session.Session{Status: session.StatusAnonymous})
			m.clearMirror()
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.identityTimeout())
	defer cancel()
	res, err := m.provider.Token(ctx, false)
	if err != nil {
		m.warn("portalauth: token fetch after identity change failed: %v", err)
		m.store.Set(session.Session{Status: session.StatusAnonymous})
		return
	}
	m.applyToken(res)
}

func (m *Manager) identityTimeout() time.Duration {
	if m.cfg.Identity.Timeout > 0 {
		return m.cfg.Identity.Timeout
	}
	return 15 * time.Second
}

func (m *Manager) applyToken(res identity.TokenResult) {
	m.store.Set(session.Session{
		Identity:      res.Identity.UID,
		Token:         res.Token,
		Role:          res.Role,
		TokenIssuedAt: res.IssuedAt,
		TokenExpiry:   res.ExpiresAt,
		Status:        session.StatusAuthenticated,
	})

	ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
	defer cancel()
	if err := m.mirror.Save(ctx, mirror.State{Token: res.Token, Role: res.Role}); err != nil {
		m.warn("portalauth: mirror save failed: %v", err)
	}
}

func (m *Manager) clearMirror() {
	ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
	defer cancel()
	if err := m.mirror.Clear(ctx); err != nil {
		m.warn("portalauth: mirror clear failed: %v", err)
	}
}

// Login exchanges credentials for a session. On success the session is
// authenticated before Login returns; on failure it is anonymous and the
// typed sentinel ([ErrInvalidCredentials], [ErrIdentityUnavailable]) says
// why.
func (m *Manager) Login(ctx context.Context, creds Credentials) (Session, error) {
	m.store.Set(session.Session{Status: session.StatusAuthenticating})

	res, err := m.provider.Login(ctx, creds)
	if err != nil {
		m.store.Set(session.Session{Status: session.StatusAnonymous})
		m.metrics.Inc(internalmetrics.MetricLoginFailure)
		m.emitAudit(ctx, "login", "", "", false, err)
		return Session{}, err
	}

	// The provider's sign-in event normally applies the session before Login
	// returns; cover providers that notify asynchronously.
	if !m.store.Get().Authenticated() {
		m.applyToken(res)
	}
	m.metrics.Inc(internalmetrics.MetricLoginSuccess)
	m.emitAudit(ctx, "login", res.Identity.UID, res.Role, true, nil)
	return m.store.Get().Session, nil
}

// Register creates an account and signs it in, mirroring the identity
// service's auto-login behavior.
func (m *Manager) Register(ctx context.Context, creds Credentials) (Session, error) {
	m.store.Set(session.Session{Status: session.StatusAuthenticating})

	res, err := m.provider.Register(ctx, creds)
	if err != nil {
		m.store.Set(session.Session{Status: session.StatusAnonymous})
		m.metrics.Inc(internalmetrics.MetricRegisterFailure)
		m.emitAudit(ctx, "register", "", "", false, err)
		return Session{}, err
	}

	if !m.store.Get().Authenticated() {
		m.applyToken(res)
	}
	m.metrics.Inc(internalmetrics.MetricRegisterSuccess)
	m.emitAudit(ctx, "register", res.Identity.UID, res.Role, true, nil)
	return m.store.Get().Session, nil
}

// Logout ends the session. Local state and the mirror are cleared
// unconditionally; the identity-service revoke is best effort and its
// failure never keeps the user signed in.
func (m *Manager) Logout(ctx context.Context) error {
	snap := m.store.Get()
	m.store.Set(session.Session{Status: session.StatusAnonymous})
	m.clearMirror()
	m.metrics.Inc(internalmetrics.MetricLogout)

	err := m.provider.Logout(ctx)
	if err != nil {
		m.warn("portalauth: identity service logout failed: %v", err)
	}
	m.emitAudit(ctx, "logout", snap.Identity, snap.Role, err == nil, err)
	return nil
}

// RefreshNow renews the token immediately, sharing any in-flight refresh.
func (m *Manager) RefreshNow(ctx context.Context) (Session, error) {
	if _, err := m.scheduler.Refresh(ctx); err != nil {
		if errors.Is(err, refresh.ErrNoActiveSession) {
			return Session{}, ErrNotAuthenticated
		}
		return Session{}, err
	}
	return m.store.Get().Session, nil
}

// Session returns the current session snapshot. Never blocks on I/O.
func (m *Manager) Session() Snapshot {
	return m.store.Get()
}

// SubscribeSession registers a handler for session transitions and returns
// its unsubscribe function. Handlers observe strictly increasing generations
// and must not call back into the Manager.
func (m *Manager) SubscribeSession(handler func(Snapshot)) func() {
	return m.store.Subscribe(handler)
}

// Check evaluates route access for the current session.
func (m *Manager) Check(required ...string) gate.Result {
	return m.gate.Check(required...)
}

// Gate returns the route gate, for middleware wiring.
func (m *Manager) Gate() *gate.Gate {
	return m.gate
}

// API returns the authorized backend client.
func (m *Manager) API() *apiclient.Client {
	return m.api
}

// MetricsSnapshot returns a point-in-time copy of all collected metrics.
func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	return m.metrics.Snapshot()
}

// AuditDropped reports audit events dropped under backpressure.
func (m *Manager) AuditDropped() uint64 {
	return m.audit.Dropped()
}

// Close stops the refresh loop, cancels subscriptions, and drains the audit
// dispatcher. The session state itself is left as is.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	unsubStore, unsubIdentity := m.unsubStore, m.unsubIdentity
	m.unsubStore, m.unsubIdentity = nil, nil
	m.mu.Unlock()

	if unsubIdentity != nil {
		unsubIdentity()
	}
	if unsubStore != nil {
		unsubStore()
	}
	m.scheduler.Stop()
	m.audit.Close()
}

func (m *Manager) emitAudit(ctx context.Context, eventType, uid, role string, success bool, opErr error) {
	event := internalaudit.Event{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Identity:  uid,
		Role:      role,
		Status:    m.store.Get().Status.String(),
		Success:   success,
	}
	if opErr != nil {
		event.Error = opErr.Error()
	}
	m.audit.Emit(ctx, event)
}
