// Package config loads the engine's TOML configuration: watched networks,
// staleness windows, calibration bounds, and the daemon's listen addresses.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Network describes one configured ledger endpoint.
type Network struct {
	Name           string  `toml:"Name"`
	RPCURL         string  `toml:"RPCURL"`
	ReadsPerSecond float64 `toml:"ReadsPerSecond,omitempty"`
}

// Staleness holds the post-mutation reconciliation windows, in milliseconds.
type Staleness struct {
	DedupWindowMs  int64 `toml:"DedupWindowMs"`
	PollIntervalMs int64 `toml:"PollIntervalMs"`
	PollWindowMs   int64 `toml:"PollWindowMs"`
}

// Blocktime holds the calibrator's sample window bounds.
type Blocktime struct {
	MinSamples int `toml:"MinSamples"`
	MaxSamples int `toml:"MaxSamples"`
}

// Config is the full daemon configuration.
type Config struct {
	Environment    string    `toml:"Environment"`
	MetricsAddress string    `toml:"MetricsAddress"`
	Staleness      Staleness `toml:"Staleness"`
	Blocktime      Blocktime `toml:"Blocktime"`
	Networks       []Network `toml:"Networks"`
}

// Default returns the configuration used when a field is left unset.
func Default() *Config {
	return &Config{
		MetricsAddress: ":9464",
		Staleness: Staleness{
			DedupWindowMs:  1000,
			PollIntervalMs: 5000,
			PollWindowMs:   120000,
		},
		Blocktime: Blocktime{
			MinSamples: 3,
			MaxSamples: 12,
		},
	}
}

// Load reads the configuration from path, applying defaults for unset
// fields and validating the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks invariants the engine depends on.
func (c *Config) Validate() error {
	if c.Staleness.DedupWindowMs <= 0 {
		return fmt.Errorf("Staleness.DedupWindowMs must be positive")
	}
	if c.Staleness.PollIntervalMs <= 0 {
		return fmt.Errorf("Staleness.PollIntervalMs must be positive")
	}
	if c.Staleness.PollWindowMs <= c.Staleness.PollIntervalMs {
		return fmt.Errorf("Staleness.PollWindowMs must exceed the poll interval")
	}
	if c.Blocktime.MinSamples < 2 {
		return fmt.Errorf("Blocktime.MinSamples must be at least 2")
	}
	if c.Blocktime.MaxSamples < c.Blocktime.MinSamples {
		return fmt.Errorf("Blocktime.MaxSamples must be >= MinSamples")
	}
	seen := make(map[string]struct{}, len(c.Networks))
	for i, network := range c.Networks {
		name := strings.TrimSpace(network.Name)
		if name == "" {
			return fmt.Errorf("Networks[%d]: Name is required", i)
		}
		if strings.TrimSpace(network.RPCURL) == "" {
			return fmt.Errorf("network %s: RPCURL is required", name)
		}
		if _, dup := seen[strings.ToLower(name)]; dup {
			return fmt.Errorf("network %s: duplicate name", name)
		}
		seen[strings.ToLower(name)] = struct{}{}
	}
	return nil
}

// DedupWindow returns the staleness dedup window as a duration.
func (c *Config) DedupWindow() time.Duration {
	return time.Duration(c.Staleness.DedupWindowMs) * time.Millisecond
}

// PollInterval returns the fixed post-mutation poll interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Staleness.PollIntervalMs) * time.Millisecond
}

// PollWindow returns the staleness safety ceiling.
func (c *Config) PollWindow() time.Duration {
	return time.Duration(c.Staleness.PollWindowMs) * time.Millisecond
}
