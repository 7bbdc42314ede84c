package domain

import "time"

// Config represents the complete application configuration
type Config struct {
	Logging    LoggingConfig    `mapstructure:"logging"`
	FAERS      FAERSConfig      `mapstructure:"faers"`
	Cache      CacheConfig      `mapstructure:"cache"`
	MonteCarlo MonteCarloConfig `mapstructure:"monte_carlo"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// FAERSConfig configures the openFDA report-count collaborator.
type FAERSConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	APIKey    string        `mapstructure:"api_key"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit int           `mapstructure:"rate_limit"` // requests per second
	Burst     int           `mapstructure:"burst"`
}

// CacheConfig configures the collaborator response caches. LocalSize and
// LocalTTL bound the in-process LRU; the Redis layer uses DefaultTTL.
type CacheConfig struct {
	RedisURL    string        `mapstructure:"redis_url"`
	DefaultTTL  time.Duration `mapstructure:"default_ttl"`
	LocalSize   int           `mapstructure:"local_size"`
	LocalTTL    time.Duration `mapstructure:"local_ttl"`
	PoolSize    int           `mapstructure:"pool_size"`
	PoolTimeout time.Duration `mapstructure:"pool_timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`
}

// MonteCarloConfig holds default simulation parameters. The seed is always
// caller-supplied per run; this default only seeds the CLI when a request
// omits one.
type MonteCarloConfig struct {
	Samples int    `mapstructure:"samples"`
	Seed    uint64 `mapstructure:"seed"`
}
