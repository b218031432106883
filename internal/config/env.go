package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// applyEnvOverrides applies environment variable overrides to the config.
// Environment variables take precedence over YAML configuration. The gate's
// own keys (CHALLENGE_SECRET, AGENTPAYMENTS_*) match what the hosted SDKs
// recognise so one deployment recipe works everywhere; binary-only knobs
// use the AGENTGATE_ prefix.
func (c *Config) applyEnvOverrides() {
	// Server config
	setIfEnv(&c.Server.Address, "AGENTGATE_ADDRESS")
	setIfEnv(&c.Server.AdminAddress, "AGENTGATE_ADMIN_ADDRESS")
	setIfEnv(&c.Server.Upstream, "AGENTGATE_UPSTREAM")
	setDurationIfEnv(&c.Server.ReadTimeout, "AGENTGATE_READ_TIMEOUT")
	setDurationIfEnv(&c.Server.WriteTimeout, "AGENTGATE_WRITE_TIMEOUT")
	setDurationIfEnv(&c.Server.ShutdownTimeout, "AGENTGATE_SHUTDOWN_TIMEOUT")
	setIfEnv(&c.Server.AdminMetricsKey, "ADMIN_METRICS_API_KEY")

	// Logging config
	setIfEnv(&c.Logging.Level, "AGENTGATE_LOG_LEVEL")
	setIfEnv(&c.Logging.Format, "AGENTGATE_LOG_FORMAT")
	setIfEnv(&c.Logging.Environment, "AGENTGATE_ENVIRONMENT")

	// Outer rate limiter
	setBoolIfEnv(&c.RateLimit.GlobalEnabled, "AGENTGATE_RATE_LIMIT_ENABLED")
	setIntIfEnv(&c.RateLimit.GlobalLimit, "AGENTGATE_RATE_LIMIT")
	setDurationIfEnv(&c.RateLimit.GlobalWindow, "AGENTGATE_RATE_LIMIT_WINDOW")

	// Gate config
	setIfEnv(&c.Gate.ChallengeSecret, "CHALLENGE_SECRET")
	setBoolIfEnv(&c.Gate.Debug, "DEBUG")
	setBoolIfEnv(&c.Gate.InsecureCookies, "AGENTGATE_INSECURE_COOKIES")
	setIfEnv(&c.Gate.MinPayment, "AGENTGATE_MIN_PAYMENT")
	if v := os.Getenv("AGENTGATE_PUBLIC_PATHS"); v != "" {
		c.Gate.PublicPaths = splitList(v)
	}

	// Verify-service mode
	setIfEnv(&c.Gate.Verify.URL, "AGENTPAYMENTS_VERIFY_URL")
	setIfEnv(&c.Gate.Verify.APIKey, "AGENTPAYMENTS_API_KEY")
	setDurationIfEnv(&c.Gate.Verify.Timeout, "AGENTPAYMENTS_VERIFY_TIMEOUT")
	setDurationIfEnv(&c.Gate.Verify.ConfigTTL, "AGENTPAYMENTS_CONFIG_TTL")

	// Wallet mode
	setIfEnv(&c.Gate.Wallet.Address, "HOME_WALLET_ADDRESS")
	setIfEnv(&c.Gate.Wallet.Network, "USDC_NETWORK")
	setIfEnv(&c.Gate.Wallet.RPCURL, "SOLANA_RPC_URL")
	setIfEnv(&c.Gate.Wallet.USDCMint, "USDC_MINT")
}

// setIfEnv sets a string pointer to the environment variable value if it exists.
func setIfEnv(target *string, key string) {
	if val := os.Getenv(key); val != "" {
		*target = val
	}
}

// setBoolIfEnv sets a boolean pointer from an environment variable.
// Accepts "1", "true", "TRUE", "True" as true values.
func setBoolIfEnv(target *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v == "1" || strings.EqualFold(v, "true")
	}
}

// setIntIfEnv sets an int pointer from an environment variable.
func setIntIfEnv(target *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
		}
	}
}

// setDurationIfEnv sets a Duration pointer from an environment variable.
// Uses time.ParseDuration to parse values like "5m", "120s", "1h30m".
func setDurationIfEnv(target *Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if dur, err := time.ParseDuration(v); err == nil {
			*target = Duration{Duration: dur}
		}
	}
}

// splitList splits a comma-separated env value, trimming whitespace and
// dropping empty entries.
func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
