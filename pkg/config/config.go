package config

import "time"

// App holds process-level settings.
type App struct {
	Env     string `mapstructure:"APP_ENV"`
	Debug   bool   `mapstructure:"APP_DEBUG"`
	LogFile string `mapstructure:"LOG_FILE"`
}

func (a App) IsDebugOn() bool {
	return a.Debug
}

// Auth describes where the GitHub credential comes from. Exactly one of
// Token or TokenFile must be set; the token is read once at startup and
// treated as opaque afterwards.
type Auth struct {
	Token     string `mapstructure:"GITHUB_TOKEN"`
	TokenFile string `mapstructure:"GITHUB_TOKEN_FILE"`
}

// Transport configures the outbound GitHub HTTP client.
type Transport struct {
	BaseURL string `mapstructure:"GITHUB_API_URL"`
	// RequestTimeout is a hard per-request deadline. Exceeding it is
	// reported as a network failure.
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	// MaxAttempts bounds retries on transient network failures.
	MaxAttempts int           `mapstructure:"MAX_ATTEMPTS"`
	BackoffBase time.Duration `mapstructure:"BACKOFF_BASE"`
	// PaceRPS caps outbound requests per second (token bucket).
	// Zero disables pacing.
	PaceRPS int `mapstructure:"PACE_RPS"`
}

// Cache configures the response cache and its storage.
type Cache struct {
	// FreshFor is the default freshness window. A cached entry younger
	// than this is served without any network call; Cache-Control
	// max-age on the stored response overrides it per entry.
	FreshFor time.Duration `mapstructure:"CACHE_FRESH_FOR"`
	// MaxEntries bounds the number of cached responses; LRU entries
	// are evicted once it is exceeded.
	MaxEntries int64 `mapstructure:"CACHE_MAX_ENTRIES"`
	// MemoryLimit bounds resident cache memory in bytes.
	MemoryLimit int64 `mapstructure:"CACHE_MEMORY_LIMIT"`
	// MemoryFillThreshold is the fraction of MemoryLimit at which the
	// evictor starts working (must be in (0, 1]).
	MemoryFillThreshold       float64 `mapstructure:"CACHE_MEMORY_FILL_THRESHOLD"`
	InitStorageLengthPerShard int     `mapstructure:"INIT_STORAGE_LEN_PER_SHARD"`
	// Dir is the on-disk persistence path. Empty disables persistence
	// and the cache runs in-memory only.
	Dir string `mapstructure:"CACHE_DIR"`
}

// DebugServer configures the localhost metrics/introspection endpoint.
type DebugServer struct {
	Enabled bool   `mapstructure:"DEBUG_SERVER_ENABLED"`
	Addr    string `mapstructure:"DEBUG_SERVER_ADDR"`
}

// UI configures view fetch behaviour.
type UI struct {
	// PerPage is the page size requested from list endpoints.
	PerPage int `mapstructure:"UI_PER_PAGE"`
}

// Config is the full application configuration, loaded from environment
// variables (with .env overrides) in cmd/hubview.
type Config struct {
	App         `mapstructure:",squash"`
	Auth        `mapstructure:",squash"`
	Transport   `mapstructure:",squash"`
	Cache       `mapstructure:",squash"`
	DebugServer `mapstructure:",squash"`
	UI          `mapstructure:",squash"`
}

// Defaults fills zero values with working settings so the binary runs
// with nothing but a token configured.
func (c *Config) Defaults() {
	if c.Transport.BaseURL == "" {
		c.Transport.BaseURL = "https://api.github.com"
	}
	if c.Transport.RequestTimeout <= 0 {
		c.Transport.RequestTimeout = 10 * time.Second
	}
	if c.Transport.MaxAttempts <= 0 {
		c.Transport.MaxAttempts = 3
	}
	if c.Transport.BackoffBase <= 0 {
		c.Transport.BackoffBase = 500 * time.Millisecond
	}
	if c.Cache.FreshFor <= 0 {
		c.Cache.FreshFor = time.Minute
	}
	if c.Cache.MaxEntries <= 0 {
		c.Cache.MaxEntries = 4096
	}
	if c.Cache.MemoryLimit <= 0 {
		c.Cache.MemoryLimit = 128 << 20
	}
	if c.Cache.MemoryFillThreshold <= 0 || c.Cache.MemoryFillThreshold > 1 {
		c.Cache.MemoryFillThreshold = 0.95
	}
	if c.Cache.InitStorageLengthPerShard <= 0 {
		c.Cache.InitStorageLengthPerShard = 8
	}
	if c.DebugServer.Addr == "" {
		c.DebugServer.Addr = "127.0.0.1:8806"
	}
	if c.UI.PerPage <= 0 {
		c.UI.PerPage = 50
	}
}
