// Package config defines the top-level configuration for the token scanner
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by SCOUT_* environment variables.
type Config struct {
	Wallet    WalletConfig    `toml:"wallet"`
	Providers ProvidersConfig `toml:"providers"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	Analysis  AnalysisConfig  `toml:"analysis"`
	Trading   TradingConfig   `toml:"trading"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Redis     RedisConfig     `toml:"redis"`
	S3        S3Config        `toml:"s3"`
	Pipeline  PipelineConfig  `toml:"pipeline"`
	Server    ServerConfig    `toml:"server"`
	Notify    NotifyConfig    `toml:"notify"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// WalletConfig holds Ethereum wallet credentials.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// ProvidersConfig holds the external data-provider endpoints and credentials.
type ProvidersConfig struct {
	Honeypot      HoneypotConfig     `toml:"honeypot"`
	Dexscreener   DexscreenerConfig  `toml:"dexscreener"`
	Explorers     []ExplorerEndpoint `toml:"explorers"`
	CoinCap       MarketDataConfig   `toml:"coincap"`
	CoinMarketCap MarketDataConfig   `toml:"coinmarketcap"`
	Social        SocialConfig       `toml:"social"`
	AuditRegs     []AuditRegistry    `toml:"audit_registries"`
}

// HoneypotConfig holds the honeypot simulator endpoint.
type HoneypotConfig struct {
	BaseURL string `toml:"base_url"`
}

// DexscreenerConfig holds the DEX pair-listing endpoint.
type DexscreenerConfig struct {
	BaseURL string `toml:"base_url"`
}

// ExplorerEndpoint holds one Etherscan-compatible explorer endpoint.
type ExplorerEndpoint struct {
	Chain   string `toml:"chain"`
	BaseURL string `toml:"base_url"`
	ApiKey  string `toml:"api_key"`
}

// MarketDataConfig holds a market-data provider endpoint and key.
type MarketDataConfig struct {
	Enabled bool   `toml:"enabled"`
	BaseURL string `toml:"base_url"`
	ApiKey  string `toml:"api_key"`
}

// SocialConfig holds social-metrics API endpoints and credentials.
type SocialConfig struct {
	TwitterBaseURL   string `toml:"twitter_base_url"`
	TwitterBearer    string `toml:"twitter_bearer"`
	TelegramBaseURL  string `toml:"telegram_base_url"`
	TelegramBotToken string `toml:"telegram_bot_token"`
	DiscordBaseURL   string `toml:"discord_base_url"`
}

// AuditRegistry names one audit-provider endpoint.
type AuditRegistry struct {
	Name    string `toml:"name"`
	BaseURL string `toml:"base_url"`
}

// RateLimitConfig holds the shared provider token-bucket parameters.
type RateLimitConfig struct {
	MaxTokens    int     `toml:"max_tokens"`
	RefillPerSec float64 `toml:"refill_per_sec"`
}

// AnalysisConfig holds the scoring thresholds.
type AnalysisConfig struct {
	MinLiquidityUSD     float64 `toml:"min_liquidity_usd"`
	MinHolders          int     `toml:"min_holders"`
	MaxOwnershipPercent float64 `toml:"max_ownership_percent"`
	BatchConcurrency    int     `toml:"batch_concurrency"`
}

// TradingConfig holds the execution gate and position-sizing parameters.
type TradingConfig struct {
	Enabled              bool    `toml:"enabled"`
	SecurityThreshold    int     `toml:"security_threshold"`
	MaxAnomalyRisk       float64 `toml:"max_anomaly_risk"`
	PositionSizeUSD      float64 `toml:"position_size_usd"`
	InitialInvestmentUSD float64 `toml:"initial_investment_usd"`
	ProfitTargetPct      float64 `toml:"profit_target_pct"`
	StopLossPct          float64 `toml:"stop_loss_pct"`
	MaxEntriesPerScan    int     `toml:"max_entries_per_scan"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// PipelineConfig holds the scan and monitor loop parameters.
type PipelineConfig struct {
	ScanInterval         duration `toml:"scan_interval"`
	MonitorInterval      duration `toml:"monitor_interval"`
	AlertScore           float64  `toml:"alert_score"`
	ListingsCacheTTL     duration `toml:"listings_cache_ttl"`
	ArchiveRetentionDays int      `toml:"archive_retention_days"`
	ArchiveCron          string   `toml:"archive_cron"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	ApiKey      string   `toml:"api_key"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Providers: ProvidersConfig{
			Honeypot: HoneypotConfig{
				BaseURL: "https://api.honeypot.is",
			},
			Dexscreener: DexscreenerConfig{
				BaseURL: "https://api.dexscreener.com",
			},
			CoinCap: MarketDataConfig{
				Enabled: true,
				BaseURL: "https://rest.coincap.io/v3",
			},
			CoinMarketCap: MarketDataConfig{
				Enabled: false,
				BaseURL: "https://pro-api.coinmarketcap.com",
			},
		},
		RateLimit: RateLimitConfig{
			MaxTokens:    10,
			RefillPerSec: 1,
		},
		Analysis: AnalysisConfig{
			MinLiquidityUSD:     50_000,
			MinHolders:          100,
			MaxOwnershipPercent: 5,
			BatchConcurrency:    8,
		},
		Trading: TradingConfig{
			Enabled:              false,
			SecurityThreshold:    80,
			MaxAnomalyRisk:       70,
			PositionSizeUSD:      20,
			InitialInvestmentUSD: 10,
			ProfitTargetPct:      50,
			StopLossPct:          25,
			MaxEntriesPerScan:    3,
		},
		Postgres: PostgresConfig{
			DSN:           "",
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "tokenscout-data",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Pipeline: PipelineConfig{
			ScanInterval:         duration{time.Minute},
			MonitorInterval:      duration{30 * time.Second},
			AlertScore:           70,
			ListingsCacheTTL:     duration{time.Minute},
			ArchiveRetentionDays: 90,
			ArchiveCron:          "0 3 * * *",
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Notify: NotifyConfig{
			Events: []string{"opportunity_found", "position_closed", "error"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"scan":    true,
	"monitor": true,
	"server":  true,
	"full":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: scan, monitor, server, full)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Wallet credentials are required only when live trading starts enabled.
	if c.Trading.Enabled {
		if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
			errs = append(errs, "wallet: either private_key or encrypted_key_path must be set when trading.enabled is true")
		}
	}
	if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
		errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
	}

	// Providers
	if c.Providers.Honeypot.BaseURL == "" {
		errs = append(errs, "providers: honeypot.base_url must not be empty")
	}
	if c.Providers.Dexscreener.BaseURL == "" {
		errs = append(errs, "providers: dexscreener.base_url must not be empty")
	}
	if !c.Providers.CoinCap.Enabled && !c.Providers.CoinMarketCap.Enabled {
		errs = append(errs, "providers: at least one of coincap or coinmarketcap must be enabled")
	}
	if c.Providers.CoinCap.Enabled && c.Providers.CoinCap.BaseURL == "" {
		errs = append(errs, "providers: coincap.base_url must not be empty when enabled")
	}
	if c.Providers.CoinMarketCap.Enabled && c.Providers.CoinMarketCap.BaseURL == "" {
		errs = append(errs, "providers: coinmarketcap.base_url must not be empty when enabled")
	}
	for i, ep := range c.Providers.Explorers {
		if ep.Chain == "" || ep.BaseURL == "" {
			errs = append(errs, fmt.Sprintf("providers: explorers[%d] needs both chain and base_url", i))
		}
	}

	// Rate limit
	if c.RateLimit.MaxTokens < 1 {
		errs = append(errs, "rate_limit: max_tokens must be >= 1")
	}
	if c.RateLimit.RefillPerSec <= 0 {
		errs = append(errs, "rate_limit: refill_per_sec must be > 0")
	}

	// Analysis
	if c.Analysis.MinLiquidityUSD <= 0 {
		errs = append(errs, "analysis: min_liquidity_usd must be > 0")
	}
	if c.Analysis.MinHolders < 1 {
		errs = append(errs, "analysis: min_holders must be >= 1")
	}
	if c.Analysis.MaxOwnershipPercent <= 0 || c.Analysis.MaxOwnershipPercent > 100 {
		errs = append(errs, "analysis: max_ownership_percent must be in (0, 100]")
	}

	// Trading
	if c.Trading.SecurityThreshold < 0 || c.Trading.SecurityThreshold > 100 {
		errs = append(errs, fmt.Sprintf("trading: security_threshold must be 0-100, got %d", c.Trading.SecurityThreshold))
	}
	if c.Trading.PositionSizeUSD <= 0 {
		errs = append(errs, "trading: position_size_usd must be > 0")
	}
	if c.Trading.InitialInvestmentUSD <= 0 {
		errs = append(errs, "trading: initial_investment_usd must be > 0")
	}
	if c.Trading.ProfitTargetPct <= 0 {
		errs = append(errs, "trading: profit_target_pct must be > 0")
	}
	if c.Trading.StopLossPct <= 0 {
		errs = append(errs, "trading: stop_loss_pct must be > 0")
	}
	if c.Trading.MaxEntriesPerScan < 1 {
		errs = append(errs, "trading: max_entries_per_scan must be >= 1")
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3
	if c.S3.Endpoint == "" {
		errs = append(errs, "s3: endpoint must not be empty")
	}
	if c.S3.Bucket == "" {
		errs = append(errs, "s3: bucket must not be empty")
	}

	// Pipeline
	if c.Pipeline.ScanInterval.Duration <= 0 {
		errs = append(errs, "pipeline: scan_interval must be > 0")
	}
	if c.Pipeline.MonitorInterval.Duration <= 0 {
		errs = append(errs, "pipeline: monitor_interval must be > 0")
	}
	if c.Pipeline.ArchiveRetentionDays < 1 {
		errs = append(errs, "pipeline: archive_retention_days must be >= 1")
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
