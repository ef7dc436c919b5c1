package portalauth

import (
	"context"
	"errors"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/MatSV27/neo-portal-proveedores/apiclient"
	"github.com/MatSV27/neo-portal-proveedores/gate"
	"github.com/MatSV27/neo-portal-proveedores/identity"
	internalaudit "github.com/MatSV27/neo-portal-proveedores/internal/audit"
	internalmetrics "github.com/MatSV27/neo-portal-proveedores/internal/metrics"
	"github.com/MatSV27/neo-portal-proveedores/mirror"
	"github.com/MatSV27/neo-portal-proveedores/refresh"
	"github.com/MatSV27/neo-portal-proveedores/session"
)

// Builder assembles a [Manager]. Builders are single-use.
type Builder struct {
	config Config
	redis  *redis.Client

	provider   identity.Provider
	httpClient *http.Client
	auditSink  AuditSink
	onExpired  func()
	warn       func(string, ...any)

	built bool
}

// New creates a Builder with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client backing the credential mirror. Without it
// the session does not survive restarts.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithIdentityProvider replaces the default HTTP identity provider.
func (b *Builder) WithIdentityProvider(p identity.Provider) *Builder {
	b.provider = p
	return b
}

// WithHTTPClient sets the http.Client used by the identity provider and the
// backend client. Mostly for tests and custom transports.
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

// WithAuditSink enables audit dispatch into sink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = true
	return b
}

// WithExpiryHandler registers a callback that runs exactly once per expiry
// cascade, after the session has transitioned and the mirror is cleared.
// Hosts hook navigation to the login route here.
func (b *Builder) WithExpiryHandler(handler func()) *Builder {
	b.onExpired = handler
	return b
}

// WithMetricsEnabled toggles metric collection.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles request latency histograms.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithWarnLogger replaces the log.Printf fallback used for non-fatal
// operational warnings.
func (b *Builder) WithWarnLogger(warn func(string, ...any)) *Builder {
	b.warn = warn
	return b
}

// Build validates the configuration and wires the Manager. Construction is
// allocation-only; nothing touches the network until [Manager.Start].
func (b *Builder) Build() (*Manager, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	b.built = true

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	provider := b.provider
	if provider == nil {
		if cfg.Identity.BaseURL == "" {
			return nil, errors.New("identity base URL or a custom identity provider required")
		}
		var err error
		provider, err = identity.NewHTTPProvider(identity.HTTPConfig{
			BaseURL:     cfg.Identity.BaseURL,
			APIKey:      cfg.Identity.APIKey,
			Timeout:     cfg.Identity.Timeout,
			DefaultRole: cfg.Identity.DefaultRole,
			HTTPClient:  b.httpClient,
		})
		if err != nil {
			return nil, err
		}
	}

	if cfg.API.BaseURL == "" {
		return nil, errors.New("api base URL required")
	}

	var m mirror.Mirror = mirror.NoOp{}
	if b.redis != nil {
		rm, err := mirror.NewRedisMirror(b.redis, cfg.Mirror.RedisPrefix)
		if err != nil {
			return nil, err
		}
		m = rm
	}

	met := internalmetrics.New(internalmetrics.Config{
		Enabled:       cfg.Metrics.Enabled,
		EnableLatency: cfg.Metrics.EnableLatencyHistograms,
	})

	dispatcher := internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	store := session.NewStore()

	jitter := cfg.Refresh.JitterRange
	if !cfg.Refresh.JitterEnabled {
		jitter = 0
	}
	scheduler, err := refresh.New(store,
		func(ctx context.Context) (identity.TokenResult, error) {
			return provider.Token(ctx, true)
		},
		m,
		refresh.Config{
			Interval:    cfg.Refresh.Interval,
			JitterRange: jitter,
			TickTimeout: cfg.Refresh.TickTimeout,
		},
		met,
		b.warn,
	)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		cfg:       cfg,
		provider:  provider,
		store:     store,
		mirror:    m,
		scheduler: scheduler,
		metrics:   met,
		audit:     dispatcher,
		gate:      gate.New(store, met),
		warn:      b.warn,
	}
	if manager.warn == nil {
		manager.warn = defaultWarn
	}

	api, err := apiclient.New(store, apiclient.Config{
		BaseURL:    cfg.API.BaseURL,
		HTTPClient: b.httpClient,
		Timeout:    cfg.API.Timeout,
		Mirror:     m,
		Metrics:    met,
		Audit:      dispatcher,
		OnExpired: b.onExpired,
		Warn:      manager.warn,
	})
	if err != nil {
		return nil, err
	}
	manager.api = api

	return manager, nil
}
