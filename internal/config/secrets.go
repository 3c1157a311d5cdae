package config

// RedactedConfig returns a shallow copy of cfg with sensitive fields replaced
// by the redaction placeholder "***". Use this when logging or printing the
// active configuration so secrets are never accidentally exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg // shallow copy of the top-level struct

	// Wallet
	out.Wallet = cfg.Wallet
	redact(&out.Wallet.PrivateKey)
	redact(&out.Wallet.KeyPassword)

	// Providers
	out.Providers = cfg.Providers
	redact(&out.Providers.CoinCap.ApiKey)
	redact(&out.Providers.CoinMarketCap.ApiKey)
	redact(&out.Providers.Social.TwitterBearer)
	redact(&out.Providers.Social.TelegramBotToken)
	if cfg.Providers.Explorers != nil {
		out.Providers.Explorers = make([]ExplorerEndpoint, len(cfg.Providers.Explorers))
		copy(out.Providers.Explorers, cfg.Providers.Explorers)
		for i := range out.Providers.Explorers {
			redact(&out.Providers.Explorers[i].ApiKey)
		}
	}
	if cfg.Providers.AuditRegs != nil {
		out.Providers.AuditRegs = make([]AuditRegistry, len(cfg.Providers.AuditRegs))
		copy(out.Providers.AuditRegs, cfg.Providers.AuditRegs)
	}

	// Postgres
	out.Postgres = cfg.Postgres
	redact(&out.Postgres.DSN)
	redact(&out.Postgres.Password)

	// Redis
	out.Redis = cfg.Redis
	redact(&out.Redis.Password)

	// S3
	out.S3 = cfg.S3
	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)

	// Server
	out.Server = cfg.Server
	redact(&out.Server.ApiKey)

	// Notify
	out.Notify = cfg.Notify
	redact(&out.Notify.TelegramToken)
	redact(&out.Notify.DiscordWebhookURL)

	// Copy slices so callers cannot mutate the original through the redacted
	// copy.
	if cfg.Notify.Events != nil {
		out.Notify.Events = make([]string, len(cfg.Notify.Events))
		copy(out.Notify.Events, cfg.Notify.Events)
	}
	if cfg.Server.CORSOrigins != nil {
		out.Server.CORSOrigins = make([]string, len(cfg.Server.CORSOrigins))
		copy(out.Server.CORSOrigins, cfg.Server.CORSOrigins)
	}

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}
