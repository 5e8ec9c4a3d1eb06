package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"owlrules/internal/mangle"
	"owlrules/internal/term"
)

// Config holds all owlrules configuration.
type Config struct {
	Bridge   BridgeConfig  `yaml:"bridge"`
	Mangle   mangle.Config `yaml:"mangle"`
	Prefixes PrefixConfig  `yaml:"prefixes"`
	Logging  LoggingConfig `yaml:"logging"`
}

// BridgeConfig configures the inference loop.
type BridgeConfig struct {
	MaxPasses int    `yaml:"max_passes"`
	Engine    string `yaml:"engine"` // native, mangle
	// RL enables the structural reasoner between passes.
	RL bool `yaml:"rl"`
}

// PrefixConfig configures name expansion for rules and documents.
type PrefixConfig struct {
	// Default is the namespace for unprefixed names. Empty means none.
	Default   string            `yaml:"default"`
	Map       map[string]string `yaml:"map,omitempty"`
	Libraries []string          `yaml:"libraries,omitempty"`
}

// ValidEngines lists the engine names accepted by Validate.
var ValidEngines = []string{"native", "mangle"}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Bridge: BridgeConfig{
			MaxPasses: 32,
			Engine:    "native",
			RL:        true,
		},
		Mangle: mangle.DefaultConfig(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies OWLRULES_* environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("OWLRULES_MAX_PASSES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("OWLRULES_MAX_PASSES: %w", err)
		}
		c.Bridge.MaxPasses = n
	}
	if v := os.Getenv("OWLRULES_ENGINE"); v != "" {
		c.Bridge.Engine = v
	}
	if v := os.Getenv("OWLRULES_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("OWLRULES_DEFAULT_PREFIX"); v != "" {
		c.Prefixes.Default = v
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Bridge.MaxPasses < 1 {
		return fmt.Errorf("bridge.max_passes must be at least 1, got %d", c.Bridge.MaxPasses)
	}

	validEngine := false
	for _, e := range ValidEngines {
		if c.Bridge.Engine == e {
			validEngine = true
			break
		}
	}
	if !validEngine {
		return fmt.Errorf("invalid engine: %s (valid: %v)", c.Bridge.Engine, ValidEngines)
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("invalid logging.format: %s", c.Logging.Format)
	}

	for prefix, ns := range c.Prefixes.Map {
		if prefix == "" || ns == "" {
			return fmt.Errorf("prefixes.map: empty prefix or namespace (%q: %q)", prefix, ns)
		}
	}
	return nil
}

// NewPrefixes builds the prefix table for this configuration on top of
// the standard prefixes.
func (c *Config) NewPrefixes() *term.Prefixes {
	p := term.NewPrefixes()
	for prefix, ns := range c.Prefixes.Map {
		p.Set(prefix, ns)
	}
	for _, lib := range c.Prefixes.Libraries {
		p.MarkLibrary(lib)
	}
	if c.Prefixes.Default != "" {
		p.SetDefault(c.Prefixes.Default)
	}
	return p
}
