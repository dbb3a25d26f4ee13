// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/artpar/fedshell/domain/ledger"
	"github.com/artpar/fedshell/domain/remote"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Remotes  []RemoteConfig `yaml:"remotes"`
	Slots    []SlotConfig   `yaml:"slots"`
	Loader   LoaderConfig   `yaml:"loader"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Transfer TransferConfig `yaml:"transfer"`
	Bridge   BridgeConfig   `yaml:"bridge"`
	Remote   ServeConfig    `yaml:"remote_server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig configures the host HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// RemoteConfig declares one remote the host may load.
type RemoteConfig struct {
	Name          string `yaml:"name"`
	ManifestURL   string `yaml:"manifest_url"`
	ExposedModule string `yaml:"exposed_module"`
}

// SlotConfig binds a page slot to a remote.
type SlotConfig struct {
	Slot   string `yaml:"slot"`
	Remote string `yaml:"remote"`
}

// LoaderConfig configures remote loading.
type LoaderConfig struct {
	StageTimeout   time.Duration `yaml:"stage_timeout"`
	FallbackNotice string        `yaml:"fallback_notice,omitempty"`
	FetchTimeout   time.Duration `yaml:"fetch_timeout"` // HTTP client timeout for manifests and fragments
}

// LedgerConfig configures the host balance.
type LedgerConfig struct {
	InitialBalance string `yaml:"initial_balance"` // decimal string
	Locale         string `yaml:"locale"`
	Currency       string `yaml:"currency"`
	Symbol         string `yaml:"symbol"`
	FractionDigits int    `yaml:"fraction_digits"`
	Overdraft      string `yaml:"overdraft"` // "allow", "reject" or "clamp"
}

// TransferConfig configures the transfer operation and its mock backend.
type TransferConfig struct {
	Retries     int           `yaml:"retries"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
	Latency     time.Duration `yaml:"latency"`
	FailureRate float64       `yaml:"failure_rate"`
}

// BridgeConfig configures the cross-process event bridge.
type BridgeConfig struct {
	Secret  string `yaml:"secret,omitempty"`   // Enables body signatures when set
	HostURL string `yaml:"host_url,omitempty"` // Host base URL, used by remotes
}

// ServeConfig configures the transfers remote server.
type ServeConfig struct {
	Name      string `yaml:"name"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	PublicURL string `yaml:"public_url"`
	Register  bool   `yaml:"register"` // Register an accessor with the host on startup
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // Enable /metrics endpoint
	Path    string `yaml:"path"`    // Custom path (default: /metrics)
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse builds configuration from YAML bytes.
func Parse(data []byte) (*Config, error) {
	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	cfg := Config{
		Transfer: TransferConfig{FailureRate: 0.1},
		Metrics:  MetricsConfig{Enabled: true},
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Default returns the built-in configuration: one transfers remote on
// localhost:4201 mounted into the "main" slot.
func Default() *Config {
	cfg := Config{
		Remotes: []RemoteConfig{{
			Name:          "mfe-transfers",
			ManifestURL:   "http://localhost:4201/remoteEntry.json",
			ExposedModule: "./TransferComponent",
		}},
		Slots:    []SlotConfig{{Slot: "main", Remote: "mfe-transfers"}},
		Transfer: TransferConfig{FailureRate: 0.1},
		Metrics:  MetricsConfig{Enabled: true},
	}
	applyEnvOverrides(&cfg)
	setDefaults(&cfg)
	return &cfg
}

// LoadWithFallback loads path when it exists, otherwise the built-in defaults.
//
// Environment variables override either source:
//
//	FEDSHELL_SERVER_HOST       - Host server bind address (default: 0.0.0.0)
//	FEDSHELL_SERVER_PORT       - Host server port (default: 4200)
//	FEDSHELL_LOG_LEVEL         - Log level: debug, info, warn, error (default: info)
//	FEDSHELL_LOG_FORMAT        - Log format: json or console (default: json)
//	FEDSHELL_METRICS_ENABLED   - Enable /metrics endpoint (default: true)
//	FEDSHELL_BRIDGE_SECRET     - Event bridge signing secret
//	FEDSHELL_BRIDGE_HOST_URL   - Host URL used by remotes
//	FEDSHELL_LEDGER_INITIAL    - Initial balance (default: 50000)
//	FEDSHELL_LEDGER_OVERDRAFT  - allow, reject or clamp (default: allow)
//	FEDSHELL_REMOTE_PORT       - Transfers remote port (default: 4201)
//	FEDSHELL_REMOTE_PUBLIC_URL - Transfers remote public URL
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	cfg := Default()
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies FEDSHELL_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	// Server configuration
	if v := os.Getenv("FEDSHELL_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("FEDSHELL_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	// Loader configuration
	if v := os.Getenv("FEDSHELL_LOADER_STAGE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Loader.StageTimeout = d
		}
	}

	// Ledger configuration
	if v := os.Getenv("FEDSHELL_LEDGER_INITIAL"); v != "" {
		cfg.Ledger.InitialBalance = v
	}
	if v := os.Getenv("FEDSHELL_LEDGER_OVERDRAFT"); v != "" {
		cfg.Ledger.Overdraft = v
	}

	// Bridge configuration
	if v := os.Getenv("FEDSHELL_BRIDGE_SECRET"); v != "" {
		cfg.Bridge.Secret = v
	}
	if v := os.Getenv("FEDSHELL_BRIDGE_HOST_URL"); v != "" {
		cfg.Bridge.HostURL = v
	}

	// Remote server configuration
	if v := os.Getenv("FEDSHELL_REMOTE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Remote.Port = port
		}
	}
	if v := os.Getenv("FEDSHELL_REMOTE_PUBLIC_URL"); v != "" {
		cfg.Remote.PublicURL = v
	}

	// Logging configuration
	if v := os.Getenv("FEDSHELL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("FEDSHELL_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Metrics configuration
	if v := os.Getenv("FEDSHELL_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 4200
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}

	if cfg.Loader.StageTimeout == 0 {
		cfg.Loader.StageTimeout = 5 * time.Second
	}
	if cfg.Loader.FetchTimeout == 0 {
		cfg.Loader.FetchTimeout = 10 * time.Second
	}

	if cfg.Ledger.InitialBalance == "" {
		cfg.Ledger.InitialBalance = "50000"
	}
	if cfg.Ledger.Locale == "" {
		cfg.Ledger.Locale = "es-CO"
	}
	if cfg.Ledger.Currency == "" {
		cfg.Ledger.Currency = "COP"
	}
	if cfg.Ledger.Symbol == "" {
		cfg.Ledger.Symbol = "$"
	}
	if cfg.Ledger.FractionDigits == 0 {
		cfg.Ledger.FractionDigits = 2
	}
	if cfg.Ledger.Overdraft == "" {
		cfg.Ledger.Overdraft = string(ledger.OverdraftAllow)
	}

	if cfg.Transfer.Retries == 0 {
		cfg.Transfer.Retries = 3
	}
	if cfg.Transfer.RetryDelay == 0 {
		cfg.Transfer.RetryDelay = time.Second
	}
	if cfg.Transfer.Latency == 0 {
		cfg.Transfer.Latency = 1500 * time.Millisecond
	}

	if cfg.Bridge.HostURL == "" {
		cfg.Bridge.HostURL = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	}

	if cfg.Remote.Name == "" {
		cfg.Remote.Name = "mfe-transfers"
	}
	if cfg.Remote.Host == "" {
		cfg.Remote.Host = "0.0.0.0"
	}
	if cfg.Remote.Port == 0 {
		cfg.Remote.Port = 4201
	}
	if cfg.Remote.PublicURL == "" {
		cfg.Remote.PublicURL = fmt.Sprintf("http://localhost:%d", cfg.Remote.Port)
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func validate(cfg *Config) error {
	if _, err := cfg.Registry(); err != nil {
		return err
	}

	seen := make(map[string]bool, len(cfg.Slots))
	for i, s := range cfg.Slots {
		if s.Slot == "" {
			return fmt.Errorf("slots[%d].slot is required", i)
		}
		if s.Remote == "" {
			return fmt.Errorf("slots[%d].remote is required", i)
		}
		if seen[s.Slot] {
			return fmt.Errorf("slots[%d]: duplicate slot %q", i, s.Slot)
		}
		seen[s.Slot] = true
	}

	if _, err := cfg.InitialBalance(); err != nil {
		return err
	}
	if _, err := ledger.ParseOverdraftPolicy(cfg.Ledger.Overdraft); err != nil {
		return fmt.Errorf("ledger.overdraft: %w", err)
	}
	if _, err := cfg.Formatter(); err != nil {
		return err
	}

	if cfg.Transfer.Retries < 0 {
		return fmt.Errorf("transfer.retries must not be negative")
	}
	if cfg.Transfer.FailureRate < 0 || cfg.Transfer.FailureRate > 1 {
		return fmt.Errorf("transfer.failure_rate must be within [0, 1], got %v", cfg.Transfer.FailureRate)
	}

	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	return nil
}

// Registry builds the remote descriptor registry.
func (c *Config) Registry() (*remote.Registry, error) {
	descs := make([]remote.Descriptor, 0, len(c.Remotes))
	for _, r := range c.Remotes {
		descs = append(descs, remote.Descriptor{
			Name:          r.Name,
			ManifestURL:   r.ManifestURL,
			ExposedModule: r.ExposedModule,
		})
	}
	reg, err := remote.NewRegistry(descs...)
	if err != nil {
		return nil, fmt.Errorf("remotes: %w", err)
	}
	return reg, nil
}

// InitialBalance parses ledger.initial_balance.
func (c *Config) InitialBalance() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(c.Ledger.InitialBalance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ledger.initial_balance: %w", err)
	}
	return d, nil
}

// Formatter builds the balance display formatter.
func (c *Config) Formatter() (*ledger.Formatter, error) {
	f, err := ledger.NewFormatter(c.Ledger.Locale, c.Ledger.Currency, c.Ledger.Symbol, c.Ledger.FractionDigits)
	if err != nil {
		return nil, fmt.Errorf("ledger: %w", err)
	}
	return f, nil
}

// UnboundSlots lists slots whose remote is not declared. Mounting them fails,
// which is allowed but usually a mistake.
func (c *Config) UnboundSlots() []SlotConfig {
	declared := make(map[string]bool, len(c.Remotes))
	for _, r := range c.Remotes {
		declared[r.Name] = true
	}
	var out []SlotConfig
	for _, s := range c.Slots {
		if !declared[s.Remote] {
			out = append(out, s)
		}
	}
	return out
}
