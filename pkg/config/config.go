package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const (
	// DefaultTestPrefix is the key prefix used for benchmark objects.
	DefaultTestPrefix = "benchmark-test"

	// DefaultWorkers is the default number of parallel workers.
	DefaultWorkers = 10

	// DefaultRunsPerTest is the default number of repeats per test cell.
	DefaultRunsPerTest = 3

	// DefaultMaxRetries is the default retry budget per object operation.
	DefaultMaxRetries = 5

	// DefaultTimeoutSeconds is the default per-operation timeout.
	DefaultTimeoutSeconds = 300

	// DefaultDatabasePath is the default SQLite database file.
	DefaultDatabasePath = "storebenchoor.db"

	// DefaultAPIListen is the default listen address of the results API.
	DefaultAPIListen = ":8080"
)

// Provider kinds.
const (
	ProviderS3    = "s3"
	ProviderLocal = "local"
)

// Config is the root configuration for storebenchoor.
type Config struct {
	Benchmark BenchmarkConfig  `toml:"benchmark"`
	Database  DatabaseConfig   `toml:"database"`
	API       APIConfig        `toml:"api"`
	Providers []ProviderConfig `toml:"providers"`
}

// BenchmarkConfig contains benchmark execution settings.
type BenchmarkConfig struct {
	TestPrefix     string  `toml:"test_prefix"`
	DefaultWorkers int     `toml:"default_workers"`
	CleanupAfter   *bool   `toml:"cleanup_after"`
	RunsPerTest    int     `toml:"runs_per_test"`
	MaxRetries     int     `toml:"max_retries"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	RateLimit      float64 `toml:"rate_limit"`
}

// CleanupEnabled reports whether benchmark objects are deleted after each
// provider completes. Enabled unless explicitly disabled.
func (b *BenchmarkConfig) CleanupEnabled() bool {
	return b.CleanupAfter == nil || *b.CleanupAfter
}

// APIConfig contains the results API server settings.
type APIConfig struct {
	Listen      string   `toml:"listen"`
	CORSOrigins []string `toml:"cors_origins"`
}

// DatabaseConfig selects the persistence driver.
type DatabaseConfig struct {
	Driver   string         `toml:"driver"`
	SQLite   SQLiteConfig   `toml:"sqlite"`
	Postgres PostgresConfig `toml:"postgres"`
}

// SQLiteConfig contains SQLite-specific settings.
type SQLiteConfig struct {
	Path string `toml:"path"`
}

// PostgresConfig contains PostgreSQL-specific settings.
type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"ssl_mode"`
}

// ProviderConfig defines a single storage provider to benchmark.
type ProviderConfig struct {
	Name    string `toml:"name"`
	Type    string `toml:"type"`
	Enabled *bool  `toml:"enabled"`

	// S3-specific fields.
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Bucket    string `toml:"bucket"`
	Region    string `toml:"region"`

	// Local-specific fields.
	BasePath string `toml:"base_path"`
}

// IsEnabled reports whether the provider participates in benchmark runs.
// Providers are enabled unless explicitly disabled.
func (p *ProviderConfig) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// Load reads and parses a configuration file from the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults sets default values for unspecified configuration options.
func (c *Config) applyDefaults() {
	if c.Benchmark.TestPrefix == "" {
		c.Benchmark.TestPrefix = DefaultTestPrefix
	}

	if c.Benchmark.DefaultWorkers == 0 {
		c.Benchmark.DefaultWorkers = DefaultWorkers
	}

	if c.Benchmark.RunsPerTest == 0 {
		c.Benchmark.RunsPerTest = DefaultRunsPerTest
	}

	if c.Benchmark.MaxRetries == 0 {
		c.Benchmark.MaxRetries = DefaultMaxRetries
	}

	if c.Benchmark.TimeoutSeconds == 0 {
		c.Benchmark.TimeoutSeconds = DefaultTimeoutSeconds
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}

	if c.Database.SQLite.Path == "" {
		c.Database.SQLite.Path = DefaultDatabasePath
	}

	if c.Database.Postgres.SSLMode == "" {
		c.Database.Postgres.SSLMode = "disable"
	}

	if c.API.Listen == "" {
		c.API.Listen = DefaultAPIListen
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if len(c.Providers) == 0 {
		return fmt.Errorf("at least one provider must be configured")
	}

	seenNames := make(map[string]struct{}, len(c.Providers))

	for i := range c.Providers {
		p := &c.Providers[i]

		if p.Name == "" {
			return fmt.Errorf("provider %d: name is required", i)
		}

		if _, exists := seenNames[p.Name]; exists {
			return fmt.Errorf("provider %d: duplicate name %q", i, p.Name)
		}

		seenNames[p.Name] = struct{}{}

		if !p.IsEnabled() {
			continue
		}

		switch p.Type {
		case ProviderS3:
			if p.Endpoint == "" || p.AccessKey == "" || p.SecretKey == "" || p.Bucket == "" {
				return fmt.Errorf(
					"s3 provider %q missing required fields: endpoint, access_key, secret_key, bucket",
					p.Name,
				)
			}
		case ProviderLocal:
			if p.BasePath == "" {
				return fmt.Errorf("local provider %q missing required field: base_path", p.Name)
			}
		default:
			return fmt.Errorf("provider %q: unknown type %q", p.Name, p.Type)
		}
	}

	if c.Database.Driver == "sqlite" && c.Database.SQLite.Path != "" {
		dir := filepath.Dir(c.Database.SQLite.Path)
		if dir != "." && dir != ".." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("database directory %q does not exist", dir)
			}
		}
	}

	return nil
}

// EnabledProviders returns the providers that participate in benchmark runs,
// in configuration order.
func (c *Config) EnabledProviders() []ProviderConfig {
	enabled := make([]ProviderConfig, 0, len(c.Providers))

	for _, p := range c.Providers {
		if p.IsEnabled() {
			enabled = append(enabled, p)
		}
	}

	return enabled
}

// GetProvider returns the provider with the given name, or nil.
func (c *Config) GetProvider(name string) *ProviderConfig {
	for i := range c.Providers {
		if c.Providers[i].Name == name {
			return &c.Providers[i]
		}
	}

	return nil
}
