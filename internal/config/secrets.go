package config

// RedactedConfig returns a shallow copy of cfg with sensitive fields replaced
// by the redaction placeholder "***". Use this when logging or printing the
// active configuration so secrets are never accidentally exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg

	redact(&out.ExchangeA.KalshiAPIKey)
	redact(&out.ExchangeB.APIKey)

	redact(&out.Postgres.DSN)
	redact(&out.Postgres.Password)

	redact(&out.Redis.Password)

	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)

	redact(&out.Server.APIKey)

	redact(&out.Notify.TelegramToken)
	redact(&out.Notify.DiscordWebhookURL)

	// Copy slices so callers cannot mutate the original through the redacted
	// copy.
	out.ExchangeB.Sports = cloneStrings(cfg.ExchangeB.Sports)
	out.ExchangeB.MarketSuffixes = cloneStrings(cfg.ExchangeB.MarketSuffixes)
	out.Matcher.Categories = cloneStrings(cfg.Matcher.Categories)
	out.Matcher.Qualifiers = cloneStrings(cfg.Matcher.Qualifiers)
	out.Matcher.StripPrefixes = cloneStrings(cfg.Matcher.StripPrefixes)
	out.Server.CORSOrigins = cloneStrings(cfg.Server.CORSOrigins)
	out.Notify.Events = cloneStrings(cfg.Notify.Events)

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
