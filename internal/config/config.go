package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/ae-risk-core/internal/domain"
)

// Manager loads and validates application configuration using Viper
type Manager struct {
	config *domain.Config
}

// NewManager creates a new configuration manager
func NewManager() (*Manager, error) {
	m := &Manager{}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from file, environment and defaults
func (m *Manager) loadConfig() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/ae-risk-core/")

	viper.SetEnvPrefix("AE_RISK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	m.setDefaults()

	// Config file is optional; defaults and environment variables suffice.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := viper.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values
func (m *Manager) setDefaults() {
	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")

	// FAERS collaborator defaults
	viper.SetDefault("faers.base_url", "https://api.fda.gov")
	viper.SetDefault("faers.timeout", "30s")
	viper.SetDefault("faers.rate_limit", 4)
	viper.SetDefault("faers.burst", 4)

	// Cache defaults
	viper.SetDefault("cache.redis_url", "redis://localhost:6379")
	viper.SetDefault("cache.default_ttl", "24h")
	viper.SetDefault("cache.local_size", 512)
	viper.SetDefault("cache.local_ttl", "15m")
	viper.SetDefault("cache.pool_size", 10)
	viper.SetDefault("cache.pool_timeout", "4s")
	viper.SetDefault("cache.max_retries", 3)

	// Monte Carlo defaults
	viper.SetDefault("monte_carlo.samples", 10000)
	viper.SetDefault("monte_carlo.seed", 1)
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetFAERSConfig returns the report-count collaborator configuration
func (m *Manager) GetFAERSConfig() *domain.FAERSConfig {
	return &m.config.FAERS
}

// GetCacheConfig returns the cache configuration
func (m *Manager) GetCacheConfig() *domain.CacheConfig {
	return &m.config.Cache
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	if config.FAERS.BaseURL == "" {
		return fmt.Errorf("FAERS base URL is required")
	}
	if config.FAERS.RateLimit <= 0 {
		return fmt.Errorf("invalid FAERS rate limit: %d", config.FAERS.RateLimit)
	}

	if config.Cache.RedisURL == "" {
		return fmt.Errorf("Redis URL is required")
	}
	if config.Cache.LocalSize <= 0 {
		return fmt.Errorf("invalid local cache size: %d", config.Cache.LocalSize)
	}

	if config.MonteCarlo.Samples <= 0 {
		return fmt.Errorf("invalid Monte Carlo sample count: %d", config.MonteCarlo.Samples)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}
