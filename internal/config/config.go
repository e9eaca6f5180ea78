package config

import (
	"embed"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sandwichfarm/outbox/internal/relayopts"
)

//go:embed example.yaml
var exampleConfig embed.FS

// Config is the complete configuration for the routing core and its
// CLI surface.
type Config struct {
	Identity Identity `yaml:"identity"`
	Relays   Relays   `yaml:"relays"`
	Gossip   Gossip   `yaml:"gossip"`
	Sync     Sync     `yaml:"sync"`
	Logging  Logging  `yaml:"logging"`
}

// Identity contains the operator's Nostr identity.
type Identity struct {
	Npub string `yaml:"npub"`
}

// Relays contains seed relay and connection policy settings.
type Relays struct {
	Seeds  []string    `yaml:"seeds"`
	Policy RelayPolicy `yaml:"policy"`
}

// RelayPolicy contains relay connection policies, mirroring the
// fields relayopts.RelayOptions exposes as a builder.
type RelayPolicy struct {
	ConnectTimeoutMs    int   `yaml:"connect_timeout_ms"`
	MaxConcurrentSubs   int   `yaml:"max_concurrent_subs"`
	RetryIntervalMs     int   `yaml:"retry_interval_ms"`
	AdjustRetryInterval bool  `yaml:"adjust_retry_interval"`
	Reconnect           bool  `yaml:"reconnect"`
	MaxAvgLatencyMs     int   `yaml:"max_avg_latency_ms"` // 0 = no cap
	BackoffMs           []int `yaml:"backoff_ms"`
}

// ToRelayOptions builds a relayopts.RelayOptions from the configured
// policy. Out-of-range values (e.g. a retry interval below the
// documented minimum) are silently rejected by the builder itself,
// which keeps the prior value.
func (p RelayPolicy) ToRelayOptions() relayopts.RelayOptions {
	o := relayopts.NewRelayOptions().
		WithReconnect(p.Reconnect).
		WithAdjustRetryInterval(p.AdjustRetryInterval)

	if p.RetryIntervalMs > 0 {
		o = o.WithRetryInterval(time.Duration(p.RetryIntervalMs) * time.Millisecond)
	}
	if p.MaxAvgLatencyMs > 0 {
		max := time.Duration(p.MaxAvgLatencyMs) * time.Millisecond
		o = o.WithMaxAvgLatency(&max)
	}

	return o
}

// Gossip tunes the relay-list graph's implementation-defined
// constants (spec's MAX_RELAYS_LIST / PUBKEY_METADATA_OUTDATED_AFTER /
// CHECK_OUTDATED_INTERVAL).
type Gossip struct {
	MaxRelaysList                 int `yaml:"max_relays_list"`
	PubkeyMetadataOutdatedAfterMs int `yaml:"pubkey_metadata_outdated_after_ms"`
	CheckOutdatedIntervalMs       int `yaml:"check_outdated_interval_ms"`
}

// Sync configures the default negentropy set-reconciliation session
// shape; ToSyncOptions turns it into a relayopts.SyncOptions.
type Sync struct {
	Direction        string `yaml:"direction"` // up|down|both
	DryRun           bool   `yaml:"dry_run"`
	InitialTimeoutMs int    `yaml:"initial_timeout_ms"`
}

// ToSyncOptions builds a relayopts.SyncOptions from the configured
// defaults.
func (s Sync) ToSyncOptions() relayopts.SyncOptions {
	o := relayopts.NewSyncOptions()

	switch strings.ToLower(s.Direction) {
	case "up":
		o = o.WithDirection(relayopts.SyncUp)
	case "both":
		o = o.WithDirection(relayopts.SyncBoth)
	case "down", "":
		o = o.WithDirection(relayopts.SyncDown)
	}

	if s.DryRun {
		o = o.WithDryRun()
	}
	if s.InitialTimeoutMs > 0 {
		o = o.WithInitialTimeout(time.Duration(s.InitialTimeoutMs) * time.Millisecond)
	}

	return o
}

// Logging contains structured-logging settings.
type Logging struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // text|json
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validSyncDirections = map[string]bool{
	"up":   true,
	"down": true,
	"both": true,
	"":     true,
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Identity: Identity{Npub: ""},
		Relays: Relays{
			Seeds: []string{
				"wss://relay.damus.io",
				"wss://relay.nostr.band",
				"wss://nos.lol",
			},
			Policy: RelayPolicy{
				ConnectTimeoutMs:    5000,
				MaxConcurrentSubs:   8,
				RetryIntervalMs:     int(relayopts.DefaultRetryInterval / time.Millisecond),
				AdjustRetryInterval: true,
				Reconnect:           true,
				BackoffMs:           []int{500, 1500, 5000},
			},
		},
		Gossip: Gossip{
			MaxRelaysList:                 8,
			PubkeyMetadataOutdatedAfterMs: int(time.Hour / time.Millisecond),
			CheckOutdatedIntervalMs:       int(time.Hour / time.Millisecond),
		},
		Sync: Sync{
			Direction:        "down",
			DryRun:           false,
			InitialTimeoutMs: 10000,
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
}

// applyDefaults fills in any zero-valued field with Default()'s value.
func applyDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Relays.Policy.ConnectTimeoutMs == 0 {
		cfg.Relays.Policy.ConnectTimeoutMs = defaults.Relays.Policy.ConnectTimeoutMs
	}
	if cfg.Relays.Policy.MaxConcurrentSubs == 0 {
		cfg.Relays.Policy.MaxConcurrentSubs = defaults.Relays.Policy.MaxConcurrentSubs
	}
	if cfg.Relays.Policy.RetryIntervalMs == 0 {
		cfg.Relays.Policy.RetryIntervalMs = defaults.Relays.Policy.RetryIntervalMs
	}
	if cfg.Gossip.MaxRelaysList == 0 {
		cfg.Gossip.MaxRelaysList = defaults.Gossip.MaxRelaysList
	}
	if cfg.Gossip.PubkeyMetadataOutdatedAfterMs == 0 {
		cfg.Gossip.PubkeyMetadataOutdatedAfterMs = defaults.Gossip.PubkeyMetadataOutdatedAfterMs
	}
	if cfg.Gossip.CheckOutdatedIntervalMs == 0 {
		cfg.Gossip.CheckOutdatedIntervalMs = defaults.Gossip.CheckOutdatedIntervalMs
	}
	if cfg.Sync.InitialTimeoutMs == 0 {
		cfg.Sync.InitialTimeoutMs = defaults.Sync.InitialTimeoutMs
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaults.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = defaults.Logging.Format
	}
}

// Load reads and parses a configuration file, applying defaults,
// environment overrides, and validation in that order.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) error {
	if npub := os.Getenv("OUTBOX_NPUB"); npub != "" {
		cfg.Identity.Npub = npub
	}
	if level := os.Getenv("OUTBOX_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	return nil
}

// GetExampleConfig returns the embedded example configuration.
func GetExampleConfig() ([]byte, error) {
	return exampleConfig.ReadFile("example.yaml")
}

// Validate checks if a configuration is valid.
func Validate(cfg *Config) error {
	if cfg.Identity.Npub == "" {
		return fmt.Errorf("identity.npub is required")
	}
	if !strings.HasPrefix(cfg.Identity.Npub, "npub1") {
		return fmt.Errorf("identity.npub must start with 'npub1'")
	}

	if len(cfg.Relays.Seeds) == 0 {
		return fmt.Errorf("at least one relay seed is required")
	}
	for _, seed := range cfg.Relays.Seeds {
		if !strings.HasPrefix(seed, "wss://") && !strings.HasPrefix(seed, "ws://") {
			return fmt.Errorf("relay seed must start with ws:// or wss://: %s", seed)
		}
	}

	if cfg.Gossip.MaxRelaysList <= 0 {
		return fmt.Errorf("gossip.max_relays_list must be positive")
	}

	if !validSyncDirections[strings.ToLower(cfg.Sync.Direction)] {
		return fmt.Errorf("invalid sync direction: %s (must be one of: up, down, both)", cfg.Sync.Direction)
	}

	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", cfg.Logging.Level)
	}

	return nil
}
