package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies SCOUT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SCOUT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "SCOUT_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "SCOUT_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "SCOUT_WALLET_KEY_PASSWORD")

	// ── Providers ──
	setStr(&cfg.Providers.Honeypot.BaseURL, "SCOUT_PROVIDERS_HONEYPOT_BASE_URL")
	setStr(&cfg.Providers.Dexscreener.BaseURL, "SCOUT_PROVIDERS_DEXSCREENER_BASE_URL")
	setBool(&cfg.Providers.CoinCap.Enabled, "SCOUT_PROVIDERS_COINCAP_ENABLED")
	setStr(&cfg.Providers.CoinCap.BaseURL, "SCOUT_PROVIDERS_COINCAP_BASE_URL")
	setStr(&cfg.Providers.CoinCap.ApiKey, "SCOUT_PROVIDERS_COINCAP_API_KEY")
	setBool(&cfg.Providers.CoinMarketCap.Enabled, "SCOUT_PROVIDERS_COINMARKETCAP_ENABLED")
	setStr(&cfg.Providers.CoinMarketCap.BaseURL, "SCOUT_PROVIDERS_COINMARKETCAP_BASE_URL")
	setStr(&cfg.Providers.CoinMarketCap.ApiKey, "SCOUT_PROVIDERS_COINMARKETCAP_API_KEY")
	setStr(&cfg.Providers.Social.TwitterBearer, "SCOUT_PROVIDERS_SOCIAL_TWITTER_BEARER")
	setStr(&cfg.Providers.Social.TelegramBotToken, "SCOUT_PROVIDERS_SOCIAL_TELEGRAM_BOT_TOKEN")

	// ── Rate limit ──
	setInt(&cfg.RateLimit.MaxTokens, "SCOUT_RATE_LIMIT_MAX_TOKENS")
	setFloat64(&cfg.RateLimit.RefillPerSec, "SCOUT_RATE_LIMIT_REFILL_PER_SEC")

	// ── Analysis ──
	setFloat64(&cfg.Analysis.MinLiquidityUSD, "SCOUT_ANALYSIS_MIN_LIQUIDITY_USD")
	setInt(&cfg.Analysis.MinHolders, "SCOUT_ANALYSIS_MIN_HOLDERS")
	setFloat64(&cfg.Analysis.MaxOwnershipPercent, "SCOUT_ANALYSIS_MAX_OWNERSHIP_PERCENT")
	setInt(&cfg.Analysis.BatchConcurrency, "SCOUT_ANALYSIS_BATCH_CONCURRENCY")

	// ── Trading ──
	setBool(&cfg.Trading.Enabled, "SCOUT_TRADING_ENABLED")
	setInt(&cfg.Trading.SecurityThreshold, "SCOUT_TRADING_SECURITY_THRESHOLD")
	setFloat64(&cfg.Trading.MaxAnomalyRisk, "SCOUT_TRADING_MAX_ANOMALY_RISK")
	setFloat64(&cfg.Trading.PositionSizeUSD, "SCOUT_TRADING_POSITION_SIZE_USD")
	setFloat64(&cfg.Trading.InitialInvestmentUSD, "SCOUT_TRADING_INITIAL_INVESTMENT_USD")
	setFloat64(&cfg.Trading.ProfitTargetPct, "SCOUT_TRADING_PROFIT_TARGET_PCT")
	setFloat64(&cfg.Trading.StopLossPct, "SCOUT_TRADING_STOP_LOSS_PCT")
	setInt(&cfg.Trading.MaxEntriesPerScan, "SCOUT_TRADING_MAX_ENTRIES_PER_SCAN")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "SCOUT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "SCOUT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "SCOUT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "SCOUT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "SCOUT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "SCOUT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "SCOUT_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "SCOUT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "SCOUT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "SCOUT_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "SCOUT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SCOUT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SCOUT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SCOUT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SCOUT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SCOUT_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "SCOUT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "SCOUT_S3_REGION")
	setStr(&cfg.S3.Bucket, "SCOUT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "SCOUT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "SCOUT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "SCOUT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "SCOUT_S3_FORCE_PATH_STYLE")

	// ── Pipeline ──
	setDuration(&cfg.Pipeline.ScanInterval, "SCOUT_PIPELINE_SCAN_INTERVAL")
	setDuration(&cfg.Pipeline.MonitorInterval, "SCOUT_PIPELINE_MONITOR_INTERVAL")
	setFloat64(&cfg.Pipeline.AlertScore, "SCOUT_PIPELINE_ALERT_SCORE")
	setDuration(&cfg.Pipeline.ListingsCacheTTL, "SCOUT_PIPELINE_LISTINGS_CACHE_TTL")
	setInt(&cfg.Pipeline.ArchiveRetentionDays, "SCOUT_PIPELINE_ARCHIVE_RETENTION_DAYS")
	setStr(&cfg.Pipeline.ArchiveCron, "SCOUT_PIPELINE_ARCHIVE_CRON")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "SCOUT_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "SCOUT_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "SCOUT_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.ApiKey, "SCOUT_SERVER_API_KEY")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "SCOUT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SCOUT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "SCOUT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "SCOUT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "SCOUT_MODE")
	setStr(&cfg.LogLevel, "SCOUT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
