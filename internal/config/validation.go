package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mattnewell-cam/AgentPayments/internal/chainscan"
	"github.com/mattnewell-cam/AgentPayments/internal/hmacutil"
)

// sentinelWarnOnce gates the debug-mode placeholder warning to once per
// process.
var sentinelWarnOnce sync.Once

// finalize applies defaults and validates the configuration.
func (c *Config) finalize() error {
	// Apply defaults
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Environment == "" {
		c.Logging.Environment = "production"
	}
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Gate.MinPayment == "" {
		c.Gate.MinPayment = "0.01"
	}

	// An empty secret falls back to the placeholder so the Debug check
	// below owns the decision; operators get one error path, not two.
	if c.Gate.ChallengeSecret == "" {
		c.Gate.ChallengeSecret = hmacutil.SentinelSecret
	}

	// Normalise the verify URL the way the hosted SDKs do: the configured
	// value may be the service base or the verify endpoint itself.
	if c.Gate.Verify.URL != "" && !strings.HasSuffix(c.Gate.Verify.URL, "/verify") {
		c.Gate.Verify.URL = strings.TrimRight(c.Gate.Verify.URL, "/") + "/verify"
	}
	if c.Gate.Verify.Timeout.Duration <= 0 {
		c.Gate.Verify.Timeout = Duration{Duration: 10 * time.Second}
	}

	// Wallet-mode defaults follow the network; debug deployments verify
	// against devnet unless told otherwise.
	if c.Gate.Wallet.Address != "" {
		switch strings.ToLower(c.Gate.Wallet.Network) {
		case "":
			if c.Gate.Debug {
				c.Gate.Wallet.Network = chainscan.NetworkDevnet
			} else {
				c.Gate.Wallet.Network = chainscan.NetworkMainnet
			}
		case "devnet":
			c.Gate.Wallet.Network = chainscan.NetworkDevnet
		case "mainnet", "mainnet-beta":
			c.Gate.Wallet.Network = chainscan.NetworkMainnet
		default:
			return fmt.Errorf("unsupported wallet network %q (want devnet or mainnet-beta)", c.Gate.Wallet.Network)
		}
		if c.Gate.Wallet.RPCURL == "" {
			c.Gate.Wallet.RPCURL = chainscan.DefaultRPCURL(c.Gate.Wallet.Network)
		}
		if c.Gate.Wallet.USDCMint == "" {
			c.Gate.Wallet.USDCMint = chainscan.DefaultUSDCMint(c.Gate.Wallet.Network)
		}
	}

	return c.validate()
}

// validate checks that required configuration fields are set correctly.
func (c *Config) validate() error {
	var errs []string

	if hmacutil.IsSentinel(c.Gate.ChallengeSecret) {
		if !c.Gate.Debug {
			errs = append(errs, "gate.challenge_secret is the placeholder value; set CHALLENGE_SECRET before serving traffic")
		} else {
			sentinelWarnOnce.Do(func() {
				fmt.Println("WARNING: running with the placeholder challenge secret; every gate using it accepts each other's keys. Debug only.")
			})
		}
	}

	if amount, err := strconv.ParseFloat(c.Gate.MinPayment, 64); err != nil || amount <= 0 {
		errs = append(errs, fmt.Sprintf("gate.min_payment %q must be a positive decimal", c.Gate.MinPayment))
	}

	if c.Gate.Wallet.Address != "" && !chainscan.ValidWalletAddress(c.Gate.Wallet.Address) {
		errs = append(errs, fmt.Sprintf("gate.wallet.address %q is not a base58 Solana address", c.Gate.Wallet.Address))
	}

	// A half-configured verify service (URL without key or vice versa) is
	// deliberately not an init error: the gate runs unconfigured and
	// answers 500 on agent requests, matching the hosted SDKs.

	for _, p := range c.Gate.PublicPaths {
		if !strings.HasPrefix(p, "/") {
			errs = append(errs, fmt.Sprintf("gate.public_paths entry %q must start with /", p))
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}
