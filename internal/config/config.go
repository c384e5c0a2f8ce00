// Package config loads searchd's configuration via viper, with
// environment variable overrides and sane defaults so the service runs
// with zero configuration in development.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config is the complete searchd configuration.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Backends      BackendsConfig      `mapstructure:"backends"`
	HealthCache   HealthCacheConfig   `mapstructure:"healthCache"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuitBreaker"`
	HybridSearch  HybridSearchConfig  `mapstructure:"hybridSearch"`
	Merge         MergeConfig         `mapstructure:"merge"`
	Governance    GovernanceConfig    `mapstructure:"governance"`
	Cache         CacheWriteConfig    `mapstructure:"cache"`
	SlowQuery     SlowQueryConfig     `mapstructure:"slowQuery"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	ListenAddr string `mapstructure:"listenAddr"`
}

// BackendsConfig configures the reference database and cache backends.
type BackendsConfig struct {
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheBackendConfig `mapstructure:"cache"`
}

// DatabaseConfig configures the SQLite-backed reference Database backend.
type DatabaseConfig struct {
	DSN         string `mapstructure:"dsn"`
	MinConns    int    `mapstructure:"minConns"`
	MaxConns    int    `mapstructure:"maxConns"`
}

// CacheBackendConfig configures the Redis-backed reference Cache backend.
// Enabled=false means no cache backend is registered at all, which per
// the strategy selector's rules means the system never selects cache
// or hybrid as primary or fallback.
type CacheBackendConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// HealthCacheConfig configures the per-backend health memoization TTL.
type HealthCacheConfig struct {
	TTLSeconds int `mapstructure:"ttlSeconds"`
}

// CircuitBreakerConfig configures the breaker's thresholds.
type CircuitBreakerConfig struct {
	FailureThreshold    int `mapstructure:"failureThreshold"`
	SuccessThreshold    int `mapstructure:"successThreshold"`
	RecoveryTimeoutSecs int `mapstructure:"recoveryTimeoutSeconds"`
}

// HybridSearchConfig configures the hybrid fan-out path.
type HybridSearchConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// MergeConfig configures the default merge algorithm and weights.
type MergeConfig struct {
	Algorithm   string  `mapstructure:"algorithm"` // union | intersection | weighted
	CacheWeight float64 `mapstructure:"cacheWeight"`
	DBWeight    float64 `mapstructure:"dbWeight"`
}

// GovernanceConfig configures the policy-driven governance layer.
type GovernanceConfig struct {
	PolicyDir       string `mapstructure:"policyDir"`
	RegoFallback    bool   `mapstructure:"regoFallback"`
	RegoModule      string `mapstructure:"regoModule"`
	TokenizerSize   int    `mapstructure:"tokenizerSize"`
	AuditBufferSize int    `mapstructure:"auditBufferSize"`
}

// CacheWriteConfig configures write-through caching of successful
// database results.
type CacheWriteConfig struct {
	DefaultTTLSeconds int `mapstructure:"defaultTtlSeconds"`
}

// SlowQueryConfig configures slow-query logging.
type SlowQueryConfig struct {
	ThresholdMs int  `mapstructure:"thresholdMs"`
	LogQueries  bool `mapstructure:"logQueries"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Format string `mapstructure:"format"` // json | human
	Level  string `mapstructure:"level"`  // debug | info | warn | error
}

// LoadResult carries the loaded Config plus metadata about how it was
// loaded, mirroring the shape operators expect from `searchd status`.
type LoadResult struct {
	Config       *Config
	ConfigPath   string
	UsedDefaults bool
}

// Default returns the configuration used when no config file or
// environment overrides are present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{ListenAddr: ":8080"},
		Backends: BackendsConfig{
			Database: DatabaseConfig{DSN: "file:searchd.db?cache=shared", MinConns: 20, MaxConns: 30},
			Cache:    CacheBackendConfig{Enabled: true, Addr: "localhost:6379"},
		},
		HealthCache:    HealthCacheConfig{TTLSeconds: 30},
		CircuitBreaker: CircuitBreakerConfig{FailureThreshold: 5, SuccessThreshold: 3, RecoveryTimeoutSecs: 60},
		HybridSearch:   HybridSearchConfig{Enabled: false},
		Merge:          MergeConfig{Algorithm: "weighted", CacheWeight: 0.7, DBWeight: 0.3},
		Governance:     GovernanceConfig{PolicyDir: "./policies", RegoFallback: false, TokenizerSize: 100000, AuditBufferSize: 10000},
		Cache:          CacheWriteConfig{DefaultTTLSeconds: 300},
		SlowQuery:      SlowQueryConfig{ThresholdMs: 1000, LogQueries: false},
		Logging:        LoggingConfig{Format: "human", Level: "info"},
	}
}

// Load reads configuration from configPath (YAML or TOML, by
// extension) if non-empty, falling back to ./searchd.yaml, then layers
// SEARCHD_*-prefixed environment variables on top (e.g.
// SEARCHD_SERVER_LISTENADDR, SEARCHD_CIRCUITBREAKER_FAILURETHRESHOLD).
//
// A .toml path is routed through LoadTOML instead of viper: it decodes
// the file onto Default() with BurntSushi/toml, and applyEnvOverrides
// then layers the SEARCHD_* environment variables on top.
func Load(configPath string) (*LoadResult, error) {
	if strings.HasSuffix(configPath, ".toml") {
		result, err := LoadTOML(configPath)
		if err != nil {
			return nil, err
		}
		applyEnvOverrides(result.Config)
		return result, nil
	}

	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix("SEARCHD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	result := &LoadResult{}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("searchd")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			result.UsedDefaults = true
		} else if os.IsNotExist(err) {
			result.UsedDefaults = true
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else {
		result.ConfigPath = v.ConfigFileUsed()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	result.Config = &cfg
	return result, nil
}

// applyEnvOverrides layers SEARCHD_*-prefixed environment variables on
// top of a TOML-loaded cfg, using cfg's own values as the viper
// defaults so only variables actually set in the environment change
// anything.
func applyEnvOverrides(cfg *Config) {
	v := viper.New()
	setDefaults(v, cfg)

	v.SetEnvPrefix("SEARCHD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.Unmarshal(cfg)
}

// setDefaults registers every field of defaults with viper so that a
// partial config file or partial env override set still produces a
// fully populated Config after Unmarshal.
func setDefaults(v *viper.Viper, defaults *Config) {
	v.SetDefault("server.listenAddr", defaults.Server.ListenAddr)
	v.SetDefault("backends.database.dsn", defaults.Backends.Database.DSN)
	v.SetDefault("backends.database.minConns", defaults.Backends.Database.MinConns)
	v.SetDefault("backends.database.maxConns", defaults.Backends.Database.MaxConns)
	v.SetDefault("backends.cache.enabled", defaults.Backends.Cache.Enabled)
	v.SetDefault("backends.cache.addr", defaults.Backends.Cache.Addr)
	v.SetDefault("healthCache.ttlSeconds", defaults.HealthCache.TTLSeconds)
	v.SetDefault("circuitBreaker.failureThreshold", defaults.CircuitBreaker.FailureThreshold)
	v.SetDefault("circuitBreaker.successThreshold", defaults.CircuitBreaker.SuccessThreshold)
	v.SetDefault("circuitBreaker.recoveryTimeoutSeconds", defaults.CircuitBreaker.RecoveryTimeoutSecs)
	v.SetDefault("hybridSearch.enabled", defaults.HybridSearch.Enabled)
	v.SetDefault("merge.algorithm", defaults.Merge.Algorithm)
	v.SetDefault("merge.cacheWeight", defaults.Merge.CacheWeight)
	v.SetDefault("merge.dbWeight", defaults.Merge.DBWeight)
	v.SetDefault("governance.policyDir", defaults.Governance.PolicyDir)
	v.SetDefault("governance.regoFallback", defaults.Governance.RegoFallback)
	v.SetDefault("governance.regoModule", defaults.Governance.RegoModule)
	v.SetDefault("governance.tokenizerSize", defaults.Governance.TokenizerSize)
	v.SetDefault("governance.auditBufferSize", defaults.Governance.AuditBufferSize)
	v.SetDefault("cache.defaultTtlSeconds", defaults.Cache.DefaultTTLSeconds)
	v.SetDefault("slowQuery.thresholdMs", defaults.SlowQuery.ThresholdMs)
	v.SetDefault("slowQuery.logQueries", defaults.SlowQuery.LogQueries)
	v.SetDefault("logging.format", defaults.Logging.Format)
	v.SetDefault("logging.level", defaults.Logging.Level)
}

// Validate checks the config for obviously invalid values.
func (c *Config) Validate() error {
	if c.Backends.Database.MinConns > c.Backends.Database.MaxConns {
		return fmt.Errorf("backends.database.minConns (%d) exceeds maxConns (%d)", c.Backends.Database.MinConns, c.Backends.Database.MaxConns)
	}
	if c.CircuitBreaker.FailureThreshold <= 0 {
		return fmt.Errorf("circuitBreaker.failureThreshold must be positive")
	}
	if c.CircuitBreaker.SuccessThreshold <= 0 {
		return fmt.Errorf("circuitBreaker.successThreshold must be positive")
	}
	switch c.Merge.Algorithm {
	case "union", "intersection", "weighted":
	default:
		return fmt.Errorf("merge.algorithm must be one of union|intersection|weighted, got %q", c.Merge.Algorithm)
	}
	return nil
}
