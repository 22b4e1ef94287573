package models

// MConfig Structure
type MConfig struct {
	Name       string            `yaml:"name"`
	Host       string            `yaml:"host"`
	Port       int               `yaml:"port"`
	LogLevel   string            `yaml:"log_level"`
	SecretKey  string            `yaml:"secret_key"`
	GrpcHost   string            `yaml:"grpc_host"`
	GrpcPort   int               `yaml:"grpc_port"`
	Auth       MAuthConfig       `yaml:"auth"`
	Storage    MStorageConfig    `yaml:"storage"`
	Network    MNetworkConfig    `yaml:"network"`
	DataSource MDataSourceConfig `yaml:"data_source"`
	Watchlist  MWatchlistConfig  `yaml:"watchlist"`
	Search     MSearchConfig     `yaml:"search"`
	Screener   MScreenerConfig   `yaml:"screener"`
}

type MAuthConfig struct {
	Enabled                bool `yaml:"enabled"`
	SessionLifetimeSeconds int  `yaml:"session_lifetime_seconds"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"` // memory, sqlite or postgres
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
	RetentionDays      int    `yaml:"retention_days"`
	RedisAddr          string `yaml:"redis_addr"` // Optional snapshot mirror
	RedisPassword      string `yaml:"redis_password"`
	RedisDB            int    `yaml:"redis_db"`
}

type MNetworkConfig struct {
	Enabled            bool     `yaml:"enabled"`
	Proxies            []string `yaml:"proxies"`
	RequestTimeout     int      `yaml:"timeout"`
	MaxRetries         int      `yaml:"retries"`
	RequestsPerSecond  float64  `yaml:"requests_per_second"`
	ConcurrentRequests int      `yaml:"concurrent_requests"`
	UserAgent          string   `yaml:"user_agent"`
}

type MDataSourceConfig struct {
	UpdateIntervalSeconds int      `yaml:"update_interval_seconds"`
	DefaultSymbols        []string `yaml:"default_symbols"`
	ChartPoints           int      `yaml:"chart_points"`
	IncludeMarketCap      bool     `yaml:"include_market_cap"`
	NewsLimit             int      `yaml:"news_limit"`
}

type MWatchlistConfig struct {
	MaxItems int `yaml:"max_items"`
}

type MSearchConfig struct {
	MaxResults int `yaml:"max_results"`
}

// MScreenerConfig holds the static sector/industry tables (name -> members).
type MScreenerConfig struct {
	Workers    int                 `yaml:"workers"`
	Sectors    map[string][]string `yaml:"sectors"`
	Industries map[string][]string `yaml:"industries"`
}
