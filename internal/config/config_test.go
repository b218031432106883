package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mattnewell-cam/AgentPayments/internal/chainscan"
	"github.com/mattnewell-cam/AgentPayments/internal/hmacutil"
)

const testWallet = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"

// clearGateEnv blanks every environment variable the loader reads, so
// tests see only what they set themselves. t.Setenv restores the
// originals on cleanup.
func clearGateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"AGENTGATE_ADDRESS", "AGENTGATE_ADMIN_ADDRESS", "AGENTGATE_UPSTREAM",
		"AGENTGATE_READ_TIMEOUT", "AGENTGATE_WRITE_TIMEOUT", "AGENTGATE_SHUTDOWN_TIMEOUT",
		"ADMIN_METRICS_API_KEY",
		"AGENTGATE_LOG_LEVEL", "AGENTGATE_LOG_FORMAT", "AGENTGATE_ENVIRONMENT",
		"AGENTGATE_RATE_LIMIT_ENABLED", "AGENTGATE_RATE_LIMIT", "AGENTGATE_RATE_LIMIT_WINDOW",
		"CHALLENGE_SECRET", "DEBUG", "AGENTGATE_INSECURE_COOKIES",
		"AGENTGATE_MIN_PAYMENT", "AGENTGATE_PUBLIC_PATHS",
		"AGENTPAYMENTS_VERIFY_URL", "AGENTPAYMENTS_API_KEY",
		"AGENTPAYMENTS_VERIFY_TIMEOUT", "AGENTPAYMENTS_CONFIG_TTL",
		"HOME_WALLET_ADDRESS", "USDC_NETWORK", "SOLANA_RPC_URL", "USDC_MINT",
	} {
		t.Setenv(key, "")
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gate.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearGateEnv(t)
	t.Setenv("CHALLENGE_SECRET", "test-secret")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Address != ":8080" {
		t.Errorf("Expected address :8080, got %q", cfg.Server.Address)
	}
	if cfg.Server.AdminAddress != ":9090" {
		t.Errorf("Expected admin address :9090, got %q", cfg.Server.AdminAddress)
	}
	if cfg.Server.ReadTimeout.Duration != 15*time.Second {
		t.Errorf("Expected 15s read timeout, got %v", cfg.Server.ReadTimeout.Duration)
	}
	if cfg.Server.IdleTimeout.Duration != 60*time.Second {
		t.Errorf("Expected 60s idle timeout, got %v", cfg.Server.IdleTimeout.Duration)
	}
	if cfg.Server.ShutdownTimeout.Duration != 10*time.Second {
		t.Errorf("Expected 10s shutdown timeout, got %v", cfg.Server.ShutdownTimeout.Duration)
	}
	if cfg.RateLimit.GlobalEnabled {
		t.Error("Expected the outer limiter to default off")
	}
	if cfg.RateLimit.GlobalLimit != 600 || cfg.RateLimit.GlobalWindow.Duration != time.Minute {
		t.Errorf("Expected 600/min default limit, got %d/%v", cfg.RateLimit.GlobalLimit, cfg.RateLimit.GlobalWindow.Duration)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" || cfg.Logging.Environment != "production" {
		t.Errorf("Unexpected logging defaults: %+v", cfg.Logging)
	}
	if cfg.Gate.MinPayment != "0.01" {
		t.Errorf("Expected default min payment 0.01, got %q", cfg.Gate.MinPayment)
	}
	if cfg.Gate.Verify.Timeout.Duration != 10*time.Second {
		t.Errorf("Expected 10s verify timeout, got %v", cfg.Gate.Verify.Timeout.Duration)
	}
	if cfg.Mode() != ModeUnconfigured {
		t.Errorf("Expected unconfigured mode, got %q", cfg.Mode())
	}
}

func TestLoadRejectsPlaceholderSecret(t *testing.T) {
	clearGateEnv(t)

	_, err := Load("")
	if err == nil {
		t.Fatal("Expected an error for the placeholder secret")
	}
	if !strings.Contains(err.Error(), "placeholder") {
		t.Errorf("Expected a placeholder-secret error, got %v", err)
	}
}

func TestLoadAllowsPlaceholderInDebug(t *testing.T) {
	clearGateEnv(t)
	t.Setenv("DEBUG", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !hmacutil.IsSentinel(cfg.Gate.ChallengeSecret) {
		t.Errorf("Expected the placeholder secret to survive in debug, got %q", cfg.Gate.ChallengeSecret)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	clearGateEnv(t)
	path := writeConfigFile(t, `
server:
  address: ":3000"
  upstream: "http://127.0.0.1:8000"
  read_timeout: 90s
  shutdown_timeout: 45
logging:
  level: debug
  format: console
gate:
  challenge_secret: "yaml-secret"
  min_payment: "0.25"
  public_paths:
    - /docs
    - /pricing
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Address != ":3000" {
		t.Errorf("Expected address :3000, got %q", cfg.Server.Address)
	}
	if cfg.Server.Upstream != "http://127.0.0.1:8000" {
		t.Errorf("Unexpected upstream %q", cfg.Server.Upstream)
	}
	if cfg.Server.ReadTimeout.Duration != 90*time.Second {
		t.Errorf("Expected 90s read timeout, got %v", cfg.Server.ReadTimeout.Duration)
	}
	// Bare numbers are seconds.
	if cfg.Server.ShutdownTimeout.Duration != 45*time.Second {
		t.Errorf("Expected 45s shutdown timeout, got %v", cfg.Server.ShutdownTimeout.Duration)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "console" {
		t.Errorf("Unexpected logging config: %+v", cfg.Logging)
	}
	if cfg.Gate.ChallengeSecret != "yaml-secret" {
		t.Errorf("Expected the YAML secret, got %q", cfg.Gate.ChallengeSecret)
	}
	if cfg.Gate.MinPayment != "0.25" {
		t.Errorf("Expected min payment 0.25, got %q", cfg.Gate.MinPayment)
	}
	if len(cfg.Gate.PublicPaths) != 2 || cfg.Gate.PublicPaths[0] != "/docs" {
		t.Errorf("Unexpected public paths: %v", cfg.Gate.PublicPaths)
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearGateEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil || !strings.Contains(err.Error(), "open config file") {
		t.Fatalf("Expected an open error, got %v", err)
	}
}

func TestLoadBadYAML(t *testing.T) {
	clearGateEnv(t)
	path := writeConfigFile(t, "server: [unclosed")

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "parse config yaml") {
		t.Fatalf("Expected a parse error, got %v", err)
	}
}

func TestFinalizeNormalizesVerifyURL(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"https://pay.example.com", "https://pay.example.com/verify"},
		{"https://pay.example.com/", "https://pay.example.com/verify"},
		{"https://pay.example.com/verify", "https://pay.example.com/verify"},
		{"", ""},
	}

	for _, tc := range cases {
		cfg := &Config{Gate: GateConfig{
			ChallengeSecret: "test-secret",
			MinPayment:      "0.01",
			Verify:          VerifyConfig{URL: tc.in},
		}}
		if err := cfg.finalize(); err != nil {
			t.Fatalf("finalize(%q) failed: %v", tc.in, err)
		}
		if cfg.Gate.Verify.URL != tc.want {
			t.Errorf("URL %q: expected %q, got %q", tc.in, tc.want, cfg.Gate.Verify.URL)
		}
	}
}

func TestFinalizeWalletNetwork(t *testing.T) {
	cases := []struct {
		name    string
		network string
		debug   bool
		want    string
		wantErr bool
	}{
		{"empty defaults to mainnet", "", false, chainscan.NetworkMainnet, false},
		{"empty defaults to devnet in debug", "", true, chainscan.NetworkDevnet, false},
		{"mainnet alias", "mainnet", false, chainscan.NetworkMainnet, false},
		{"mainnet-beta", "mainnet-beta", false, chainscan.NetworkMainnet, false},
		{"uppercase", "DEVNET", false, chainscan.NetworkDevnet, false},
		{"unknown network", "testnet", false, "", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{Gate: GateConfig{
				ChallengeSecret: "test-secret",
				MinPayment:      "0.01",
				Debug:           tc.debug,
				Wallet:          WalletConfig{Address: testWallet, Network: tc.network},
			}}
			err := cfg.finalize()
			if tc.wantErr {
				if err == nil {
					t.Fatal("Expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("finalize failed: %v", err)
			}
			if cfg.Gate.Wallet.Network != tc.want {
				t.Errorf("Expected network %q, got %q", tc.want, cfg.Gate.Wallet.Network)
			}
			if cfg.Gate.Wallet.RPCURL != chainscan.DefaultRPCURL(tc.want) {
				t.Errorf("Expected the default RPC URL for %s, got %q", tc.want, cfg.Gate.Wallet.RPCURL)
			}
			if cfg.Gate.Wallet.USDCMint != chainscan.DefaultUSDCMint(tc.want) {
				t.Errorf("Expected the default USDC mint for %s, got %q", tc.want, cfg.Gate.Wallet.USDCMint)
			}
		})
	}
}

func TestFinalizeKeepsCustomRPC(t *testing.T) {
	cfg := &Config{Gate: GateConfig{
		ChallengeSecret: "test-secret",
		MinPayment:      "0.01",
		Wallet: WalletConfig{
			Address: testWallet,
			Network: "devnet",
			RPCURL:  "https://rpc.internal:8899",
		},
	}}
	if err := cfg.finalize(); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	if cfg.Gate.Wallet.RPCURL != "https://rpc.internal:8899" {
		t.Errorf("Expected the custom RPC URL to survive, got %q", cfg.Gate.Wallet.RPCURL)
	}
}

func TestValidateErrors(t *testing.T) {
	cases := []struct {
		name     string
		mutate   func(*Config)
		fragment string
	}{
		{
			"non-numeric min payment",
			func(c *Config) { c.Gate.MinPayment = "abc" },
			"min_payment",
		},
		{
			"zero min payment",
			func(c *Config) { c.Gate.MinPayment = "0" },
			"min_payment",
		},
		{
			"negative min payment",
			func(c *Config) { c.Gate.MinPayment = "-1" },
			"min_payment",
		},
		{
			"bad wallet address",
			func(c *Config) { c.Gate.Wallet.Address = "not!!an address" },
			"base58",
		},
		{
			"public path without slash",
			func(c *Config) { c.Gate.PublicPaths = []string{"docs"} },
			"must start with /",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{Gate: GateConfig{
				ChallengeSecret: "test-secret",
				MinPayment:      "0.01",
			}}
			tc.mutate(cfg)
			err := cfg.finalize()
			if err == nil {
				t.Fatal("Expected a validation error")
			}
			if !strings.Contains(err.Error(), tc.fragment) {
				t.Errorf("Expected error to mention %q, got %v", tc.fragment, err)
			}
		})
	}
}

func TestHalfConfiguredVerifyIsNotAnError(t *testing.T) {
	cfg := &Config{Gate: GateConfig{
		ChallengeSecret: "test-secret",
		MinPayment:      "0.01",
		Verify:          VerifyConfig{URL: "https://pay.example.com"},
	}}
	if err := cfg.finalize(); err != nil {
		t.Fatalf("Expected a URL without a key to pass validation, got %v", err)
	}
	if cfg.Mode() != ModeUnconfigured {
		t.Errorf("Expected unconfigured mode, got %q", cfg.Mode())
	}
}

func TestMode(t *testing.T) {
	cases := []struct {
		name string
		gate GateConfig
		want Mode
	}{
		{
			"verify service",
			GateConfig{Verify: VerifyConfig{URL: "https://pay.example.com/verify", APIKey: "pk"}},
			ModeVerifyService,
		},
		{
			"wallet",
			GateConfig{Wallet: WalletConfig{Address: testWallet}},
			ModeWallet,
		},
		{
			"service wins over wallet",
			GateConfig{
				Verify: VerifyConfig{URL: "https://pay.example.com/verify", APIKey: "pk"},
				Wallet: WalletConfig{Address: testWallet},
			},
			ModeVerifyService,
		},
		{
			"nothing configured",
			GateConfig{},
			ModeUnconfigured,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{Gate: tc.gate}
			if got := cfg.Mode(); got != tc.want {
				t.Errorf("Expected mode %q, got %q", tc.want, got)
			}
		})
	}
}

func TestDurationYAML(t *testing.T) {
	clearGateEnv(t)
	path := writeConfigFile(t, `
server:
  read_timeout: 1m30s
  write_timeout: "20s"
  idle_timeout: 120
gate:
  challenge_secret: "test-secret"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.ReadTimeout.Duration != 90*time.Second {
		t.Errorf("Expected 1m30s, got %v", cfg.Server.ReadTimeout.Duration)
	}
	if cfg.Server.WriteTimeout.Duration != 20*time.Second {
		t.Errorf("Expected 20s, got %v", cfg.Server.WriteTimeout.Duration)
	}
	if cfg.Server.IdleTimeout.Duration != 120*time.Second {
		t.Errorf("Expected 120s, got %v", cfg.Server.IdleTimeout.Duration)
	}
}

func TestDurationBadYAML(t *testing.T) {
	clearGateEnv(t)
	path := writeConfigFile(t, `
server:
  read_timeout: soonish
gate:
  challenge_secret: "test-secret"
`)

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "invalid duration") {
		t.Fatalf("Expected an invalid-duration error, got %v", err)
	}
}
