package config

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration to support string based YAML decoding.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses duration values expressed as Go-style strings or numbers interpreted as seconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		raw := strings.TrimSpace(value.Value)
		if raw == "" {
			d.Duration = 0
			return nil
		}
		parsed, err := time.ParseDuration(raw)
		if err == nil {
			d.Duration = parsed
			return nil
		}
		secs, convErr := time.ParseDuration(fmt.Sprintf("%ss", raw))
		if convErr == nil {
			d.Duration = secs
			return nil
		}
		return fmt.Errorf("invalid duration value %q: %w", raw, err)
	default:
		return fmt.Errorf("unsupported duration node kind: %v", value.Kind)
	}
}

// MarshalYAML renders the duration as a string to keep config edits human-friendly.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Config holds application level configuration aggregated from file and environment variables.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	CORS      CORSConfig      `yaml:"cors"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Gate      GateConfig      `yaml:"gate"`
}

// ServerConfig holds HTTP server configuration for the standalone binary.
type ServerConfig struct {
	Address         string   `yaml:"address"`
	AdminAddress    string   `yaml:"admin_address"`
	Upstream        string   `yaml:"upstream"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	IdleTimeout     Duration `yaml:"idle_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`

	// AdminMetricsKey, when set, requires "Authorization: Bearer <key>"
	// on the admin /metrics endpoint.
	AdminMetricsKey string `yaml:"admin_metrics_key"`
}

// LoggingConfig holds logger configuration.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"` // json | console
	Environment string `yaml:"environment"`
}

// CORSConfig holds the optional CORS layer applied by the standalone binary.
type CORSConfig struct {
	Enabled        bool     `yaml:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// RateLimitConfig holds the outer per-IP limiter applied in front of the
// gate by the standalone binary. The gate's own challenge limiter is fixed
// and not configured here.
type RateLimitConfig struct {
	GlobalEnabled bool     `yaml:"global_enabled"`
	GlobalLimit   int      `yaml:"global_limit"`
	GlobalWindow  Duration `yaml:"global_window"`
}

// GateConfig holds the gate's own behavior.
type GateConfig struct {
	// ChallengeSecret signs agent keys, memos, cookies and nonces.
	// Rotating it invalidates all outstanding credentials at once.
	ChallengeSecret string `yaml:"challenge_secret"`

	// Debug permits the placeholder secret and defaults the wallet-mode
	// network to devnet. Never enable in production.
	Debug bool `yaml:"debug"`

	// InsecureCookies drops the Secure attribute from the verification
	// cookie for plain-HTTP development setups.
	InsecureCookies bool `yaml:"insecure_cookies"`

	// PublicPaths are extra exact-match paths that bypass the gate, in
	// addition to the built-in /robots.txt and /.well-known/ rules.
	PublicPaths []string `yaml:"public_paths"`

	// MinPayment is the USDC amount quoted in 402 responses, as a decimal
	// string.
	MinPayment string `yaml:"min_payment"`

	Verify VerifyConfig `yaml:"verify"`
	Wallet WalletConfig `yaml:"wallet"`
}

// VerifyConfig points the gate at an external verify service.
type VerifyConfig struct {
	URL       string   `yaml:"url"`
	APIKey    string   `yaml:"api_key"`
	Timeout   Duration `yaml:"timeout"`
	ConfigTTL Duration `yaml:"config_ttl"` // 0 caches merchant config forever
}

// WalletConfig enables wallet mode: the gate scans the chain itself
// instead of asking a verify service.
type WalletConfig struct {
	Address  string `yaml:"address"`
	Network  string `yaml:"network"` // devnet | mainnet-beta
	RPCURL   string `yaml:"rpc_url"`
	USDCMint string `yaml:"usdc_mint"`
}

// Mode selects how the gate verifies payments.
type Mode string

const (
	// ModeVerifyService asks the external verify service per memo.
	ModeVerifyService Mode = "verify-service"
	// ModeWallet scans the configured wallet on-chain directly.
	ModeWallet Mode = "wallet"
	// ModeUnconfigured has no verification backend; agent requests
	// without a cached key answer 500.
	ModeUnconfigured Mode = "unconfigured"
)

// Mode reports the verification mode implied by the configuration. The
// verify service wins when both are configured.
func (c *Config) Mode() Mode {
	if c.Gate.Verify.URL != "" && c.Gate.Verify.APIKey != "" {
		return ModeVerifyService
	}
	if c.Gate.Wallet.Address != "" {
		return ModeWallet
	}
	return ModeUnconfigured
}
