// Package config loads service configuration from an optional YAML file
// with environment overrides. A .env file is honored for local
// development.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds everything the API server and sweep daemon need.
type Config struct {
	Port     string        `yaml:"port"`
	RelayURL string        `yaml:"relayUrl"`
	PolicyID string        `yaml:"policyId"`
	// SignerKey is the master signer's hex private key. Env only, never
	// read from the YAML file.
	SignerKey       string        `yaml:"-"`
	TreasuryAddress string        `yaml:"treasuryAddress"`
	DatabaseURL     string        `yaml:"-"`
	RPCEndpoints    []string      `yaml:"rpcEndpoints"`
	SweepInterval   time.Duration `yaml:"-"`
	Env             string        `yaml:"env"`

	// RawSweepInterval is the YAML-facing duration string ("30m", "1h").
	RawSweepInterval string `yaml:"sweepInterval"`
}

// Load reads config.yaml (or the path in YIELDPAY_CONFIG), then applies
// environment overrides. Missing files are fine; the environment alone is
// a complete configuration source.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, relying on system env variables")
	}

	cfg := &Config{
		Port:          "3000",
		SweepInterval: time.Hour,
		Env:           "development",
	}

	candidates := []string{"configs/config.yaml", "config.yaml"}
	if path := os.Getenv("YIELDPAY_CONFIG"); path != "" {
		candidates = []string{path}
	}
	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		break
	}

	if cfg.RawSweepInterval != "" {
		d, err := time.ParseDuration(cfg.RawSweepInterval)
		if err != nil {
			return nil, fmt.Errorf("invalid sweepInterval %q: %w", cfg.RawSweepInterval, err)
		}
		cfg.SweepInterval = d
	}

	applyEnvOverrides(cfg)

	if cfg.RelayURL == "" {
		return nil, fmt.Errorf("relay URL is not configured (set RELAY_URL)")
	}
	if cfg.SignerKey == "" {
		return nil, fmt.Errorf("signer key is not configured (set MASTER_WALLET_PRIVATE_KEY)")
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("RELAY_URL"); v != "" {
		cfg.RelayURL = v
	}
	if v := os.Getenv("RELAY_POLICY_ID"); v != "" {
		cfg.PolicyID = v
	}
	if v := os.Getenv("MASTER_WALLET_PRIVATE_KEY"); v != "" {
		cfg.SignerKey = v
	}
	if v := os.Getenv("TREASURY_ADDRESS"); v != "" {
		cfg.TreasuryAddress = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("RPC_ENDPOINTS"); v != "" {
		cfg.RPCEndpoints = splitAndTrim(v)
	}
	if v := os.Getenv("SWEEP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.SweepInterval = d
		}
	}
	if v := os.Getenv("ENV"); v != "" {
		cfg.Env = v
	}
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
