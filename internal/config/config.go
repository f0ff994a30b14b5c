// Package config loads the service configuration from per-environment YAML files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config holds the newsrec configuration.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Database    DatabaseConfig    `yaml:"database"`
	Cache       CacheConfig       `yaml:"cache"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Recommender RecommenderConfig `yaml:"recommender"`
	Articles    ArticlesConfig    `yaml:"articles"`
	Seed        SeedConfig        `yaml:"seed"`
	Auth        AuthConfig        `yaml:"auth"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds the article database settings.
type DatabaseConfig struct {
	Driver             string `yaml:"driver"` // postgres, sqlite (default: sqlite)
	DSN                string `yaml:"dsn"`
	MaxOpenConns       int    `yaml:"max_open_conns"`
	MaxIdleConns       int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeSec int    `yaml:"conn_max_lifetime_sec"`
	ReadinessTimeout   int    `yaml:"readiness_timeout_sec"`
}

// CacheConfig holds the embedding cache settings.
type CacheConfig struct {
	Driver           string   `yaml:"driver"` // redis, valkey, none (default: none)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	TTLSec           int      `yaml:"ttl_sec"` // 0 = no expiry
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// Enabled reports whether a cache backend is configured.
func (c CacheConfig) Enabled() bool {
	return c.Driver != "" && c.Driver != "none"
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider            string `yaml:"provider"` // openai, hashing (default: hashing)
	APIKey              string `yaml:"api_key"`
	BaseURL             string `yaml:"base_url"`
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"`
	User                string `yaml:"user"`
	DocumentInstruction string `yaml:"document_instruction"`
	QueryInstruction    string `yaml:"query_instruction"`
}

// RecommenderConfig holds index build and search settings.
type RecommenderConfig struct {
	MaxContentChars    int    `yaml:"max_content_chars"`
	MinBoundary        int    `yaml:"min_boundary"`
	Workers            int    `yaml:"workers"`
	BatchSize          int    `yaml:"batch_size"`
	DefaultSearchLimit int    `yaml:"default_search_limit"`
	MaxSearchLimit     int    `yaml:"max_search_limit"`
	RefreshSchedule    string `yaml:"refresh_schedule"` // cron spec, empty = no periodic refresh
}

// ArticlesConfig holds catalog listing settings.
type ArticlesConfig struct {
	DefaultPageSize int `yaml:"default_page_size"`
	MaxPageSize     int `yaml:"max_page_size"`
}

// SeedConfig holds initial catalog import settings.
type SeedConfig struct {
	Enabled bool   `yaml:"enabled"`
	CSVPath string `yaml:"csv_path"`
	Limit   int    `yaml:"limit"`
}

// Provider names.
const (
	ProviderOpenAI  = "openai"
	ProviderHashing = "hashing"
)

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse expands environment variables in data, decodes it, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.DSN == "" && c.Database.Driver == "sqlite" {
		c.Database.DSN = "file:newsrec.db?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}

	if c.Cache.Driver == "" {
		c.Cache.Driver = "none"
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 5
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = ProviderHashing
	}
	if c.Embedding.Provider == ProviderOpenAI && c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.Provider == ProviderHashing && c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 384
	}

	if c.Recommender.MaxContentChars <= 0 {
		c.Recommender.MaxContentChars = 600
	}
	if c.Recommender.MinBoundary <= 0 {
		c.Recommender.MinBoundary = 300
	}
	if c.Recommender.Workers <= 0 {
		c.Recommender.Workers = 4
	}
	if c.Recommender.BatchSize <= 0 {
		c.Recommender.BatchSize = 64
	}
	if c.Recommender.DefaultSearchLimit <= 0 {
		c.Recommender.DefaultSearchLimit = 10
	}
	if c.Recommender.MaxSearchLimit <= 0 {
		c.Recommender.MaxSearchLimit = 50
	}

	if c.Articles.DefaultPageSize <= 0 {
		c.Articles.DefaultPageSize = 20
	}
	if c.Articles.MaxPageSize <= 0 {
		c.Articles.MaxPageSize = 500
	}

	if c.Seed.CSVPath == "" {
		c.Seed.CSVPath = "data/articles.csv"
	}
	if c.Seed.Limit <= 0 {
		c.Seed.Limit = 500
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	var errs []error

	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port))
	}

	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("database.driver must be \"postgres\" or \"sqlite\", got %q", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}

	switch c.Cache.Driver {
	case "none":
	case "redis", "valkey":
		if len(c.Cache.Addrs) == 0 {
			errs = append(errs, errors.New("cache.addrs is required when cache is enabled"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.driver must be \"redis\", \"valkey\" or \"none\", got %q", c.Cache.Driver))
	}

	switch c.Embedding.Provider {
	case ProviderOpenAI:
		if c.Embedding.APIKey == "" {
			errs = append(errs, errors.New("embedding.api_key is required for the openai provider"))
		}
	case ProviderHashing:
	default:
		errs = append(errs, fmt.Errorf(
			"embedding.provider must be \"openai\" or \"hashing\", got %q", c.Embedding.Provider))
	}
	if c.Embedding.Dimensions < 0 {
		errs = append(errs, fmt.Errorf("embedding.dimensions must not be negative, got %d", c.Embedding.Dimensions))
	}

	if c.Recommender.MinBoundary >= c.Recommender.MaxContentChars {
		errs = append(errs, fmt.Errorf("recommender.min_boundary (%d) must be below max_content_chars (%d)",
			c.Recommender.MinBoundary, c.Recommender.MaxContentChars))
	}
	if c.Recommender.RefreshSchedule != "" {
		if _, err := cron.ParseStandard(c.Recommender.RefreshSchedule); err != nil {
			errs = append(errs, fmt.Errorf("recommender.refresh_schedule: %w", err))
		}
	}
	if c.Recommender.DefaultSearchLimit > c.Recommender.MaxSearchLimit {
		errs = append(errs, fmt.Errorf("recommender.default_search_limit (%d) exceeds max_search_limit (%d)",
			c.Recommender.DefaultSearchLimit, c.Recommender.MaxSearchLimit))
	}
	if c.Articles.DefaultPageSize > c.Articles.MaxPageSize {
		errs = append(errs, fmt.Errorf("articles.default_page_size (%d) exceeds max_page_size (%d)",
			c.Articles.DefaultPageSize, c.Articles.MaxPageSize))
	}

	return errors.Join(errs...)
}

// ReadinessTimeoutDuration returns the database readiness wait as a duration.
func (c DatabaseConfig) ReadinessTimeoutDuration() time.Duration {
	return time.Duration(c.ReadinessTimeout) * time.Second
}

// TTL returns the cache entry lifetime, zero for no expiry.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSec) * time.Second
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
