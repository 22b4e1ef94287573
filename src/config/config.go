package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"stock-watch/src/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment overrides applied after the YAML file.
const (
	EnvSecretKey = "STOCKWATCH_SECRET_KEY"
	EnvPort      = "STOCKWATCH_PORT"
	EnvLogLevel  = "STOCKWATCH_LOG_LEVEL"
)

// Defaults for optional settings.
const (
	DefaultWatchlistMax    = 10
	DefaultSearchResults   = 5
	DefaultScreenerWorkers = 10
	DefaultChartPoints     = 100
	DefaultNewsLimit       = 5
	DefaultSessionLifetime = 86400
	DefaultRetentionDays   = 7
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. .env is optional; it only feeds the environment overrides below
	_ = godotenv.Load()

	return Parse(data)
}

// -----------------------------------------------------------------------------

// Parse builds a validated Config from raw YAML plus environment overrides.
func Parse(data []byte) (*Config, error) {
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvSecretKey); v != "" {
		c.SecretKey = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvPort, v, err)
		}
		c.Port = port
	}
	return nil
}

// -----------------------------------------------------------------------------

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	if c.Storage.DBType == "" {
		c.Storage.DBType = "memory"
	}
	if c.Storage.RetentionDays <= 0 {
		c.Storage.RetentionDays = DefaultRetentionDays
	}
	if c.Auth.SessionLifetimeSeconds <= 0 {
		c.Auth.SessionLifetimeSeconds = DefaultSessionLifetime
	}
	if c.Watchlist.MaxItems <= 0 {
		c.Watchlist.MaxItems = DefaultWatchlistMax
	}
	if c.Search.MaxResults <= 0 {
		c.Search.MaxResults = DefaultSearchResults
	}
	if c.Screener.Workers <= 0 {
		c.Screener.Workers = DefaultScreenerWorkers
	}
	if c.DataSource.ChartPoints <= 0 {
		c.DataSource.ChartPoints = DefaultChartPoints
	}
	if c.DataSource.NewsLimit <= 0 {
		c.DataSource.NewsLimit = DefaultNewsLimit
	}
	if c.Network.ConcurrentRequests <= 0 {
		c.Network.ConcurrentRequests = c.Screener.Workers
	}

	// Symbols are matched upper-case everywhere
	for i, s := range c.DataSource.DefaultSymbols {
		c.DataSource.DefaultSymbols[i] = strings.ToUpper(strings.TrimSpace(s))
	}
	for _, table := range []map[string][]string{c.Screener.Sectors, c.Screener.Industries} {
		for name, members := range table {
			for i, s := range members {
				members[i] = strings.ToUpper(strings.TrimSpace(s))
			}
			table[name] = members
		}
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}
	if c.SecretKey == "" {
		return fmt.Errorf("secret key cannot be empty (set secret_key or %s)", EnvSecretKey)
	}

	// Validate Server configuration
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}

	// Validate Storage configuration
	switch c.Storage.DBType {
	case "memory":
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return fmt.Errorf("connection string cannot be empty for postgres")
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.Storage.DBType)
	}

	// Validate Network configuration
	if c.Network.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}
	if c.Network.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.Network.RequestsPerSecond < 0 {
		return fmt.Errorf("requests per second cannot be negative")
	}

	// Validate DataSource configuration
	if c.DataSource.UpdateIntervalSeconds <= 0 {
		return fmt.Errorf("update interval must be greater than 0")
	}
	if len(c.DataSource.DefaultSymbols) == 0 {
		return fmt.Errorf("at least one default symbol must be configured")
	}
	for i, s := range c.DataSource.DefaultSymbols {
		if s == "" {
			return fmt.Errorf("default symbol %d cannot be empty", i)
		}
	}

	// Validate screener tables
	for name, members := range c.Screener.Sectors {
		if len(members) == 0 {
			return fmt.Errorf("sector '%s' must have at least one symbol", name)
		}
	}
	for name, members := range c.Screener.Industries {
		if len(members) == 0 {
			return fmt.Errorf("industry '%s' must have at least one symbol", name)
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0600: the file carries the session secret)
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
