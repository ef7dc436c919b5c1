package portalauth

import (
	"errors"
	"time"

	"github.com/MatSV27/neo-portal-proveedores/refresh"
)

// Config defines the Manager's behavior. Configure it during initialization
// and treat it as immutable afterwards.
type Config struct {
	Identity IdentityConfig
	Refresh  RefreshConfig
	Mirror   MirrorConfig
	API      APIConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
IDENTITY CONFIG
====================================
*/

// IdentityConfig configures the default HTTP identity provider. Ignored when
// a custom provider is supplied through [Builder.WithIdentityProvider].
type IdentityConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// DefaultRole is assigned when a token carries no role claim.
	// Defaults to [RoleSupplier].
	DefaultRole string
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig controls the periodic token renewal loop.
type RefreshConfig struct {
	// Interval between scheduled refreshes. Defaults to 5 minutes.
	Interval time.Duration
	// JitterEnabled spreads each tick uniformly within ±JitterRange.
	JitterEnabled bool
	JitterRange   time.Duration
	// TickTimeout bounds each timer-triggered refresh. Defaults to 30s.
	TickTimeout time.Duration
}

/*
====================================
MIRROR CONFIG
====================================
*/

// MirrorConfig configures credential persistence across restarts.
type MirrorConfig struct {
	// RedisPrefix namespaces the mirror keys. Defaults to "portal".
	RedisPrefix string
}

/*
====================================
API CONFIG
====================================
*/

// APIConfig configures the authorized backend client.
type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls asynchronous audit event dispatch.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops events instead of blocking when the buffer is full.
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig controls metric collection.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the configuration [New] starts from.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Identity: IdentityConfig{
			Timeout:     15 * time.Second,
			DefaultRole: RoleSupplier,
		},
		Refresh: RefreshConfig{
			Interval:    refresh.DefaultInterval,
			TickTimeout: 30 * time.Second,
		},
		Mirror: MirrorConfig{
			RedisPrefix: "portal",
		},
		API: APIConfig{
			Timeout: 30 * time.Second,
		},
		Audit: AuditConfig{
			BufferSize: 256,
			DropIfFull: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	// All fields are values; a shallow copy is a full copy.
	return cfg
}

// Validate checks internal consistency. Dependency presence (Redis,
// provider) is checked by [Builder.Build].
func (c Config) Validate() error {
	if c.Refresh.Interval < 0 {
		return errors.New("refresh interval must not be negative")
	}
	if c.Refresh.JitterEnabled {
		if c.Refresh.JitterRange <= 0 {
			return errors.New("jitter enabled but jitter range not positive")
		}
		interval := c.Refresh.Interval
		if interval == 0 {
			interval = refresh.DefaultInterval
		}
		if c.Refresh.JitterRange >= interval {
			return errors.New("jitter range must be smaller than the refresh interval")
		}
	}
	if c.Refresh.TickTimeout < 0 {
		return errors.New("refresh tick timeout must not be negative")
	}
	if c.Identity.Timeout < 0 || c.API.Timeout < 0 {
		return errors.New("timeouts must not be negative")
	}
	if c.Audit.Enabled && c.Audit.BufferSize < 0 {
		return errors.New("audit buffer size must not be negative")
	}
	return nil
}
