// Package config loads hostpin configuration. The resulting value is built
// once at startup and passed to every component; nothing here is global.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/hostpin/internal/model"
)

// EnvConfigPath overrides the default config file location.
const EnvConfigPath = "HOSTPIN_CONFIG"

// Config holds all configurable parameters.
type Config struct {
	// BaseDirCandidates are probed in order; the first existing directory wins.
	BaseDirCandidates []string `yaml:"base_dir_candidates"`
	// FallbackDir is used when no candidate exists.
	FallbackDir string `yaml:"fallback_dir"`
	// ActiveVariant selects rap_<id>.json as the active reference.
	// Empty selects the pinned slot rap.json.
	ActiveVariant string `yaml:"active_variant"`
	// ProvisionOnRun rewrites the variants before validating in a full run.
	ProvisionOnRun  bool          `yaml:"provision_on_run"`
	SerialTimeout   time.Duration `yaml:"serial_timeout"`
	LookupTimeout   time.Duration `yaml:"lookup_timeout"`
	AdvisoryMessage string        `yaml:"advisory_message"`
	// Variants maps a variant id to field overrides applied on top of
	// the live attributes when provisioning.
	Variants map[string]map[string]string `yaml:"variants"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseDirCandidates: []string{
			"C:/Users/Microsoft/CIN/CINLogs",
			"C:/Users/Ghost/CIN/CINLogs",
		},
		FallbackDir:     "~/CIN/CINLogs",
		SerialTimeout:   5 * time.Second,
		LookupTimeout:   3 * time.Second,
		AdvisoryMessage: "Shower occurred before earlier outing. Reminder acknowledged.",
		Variants: map[string]map[string]string{
			"standard":         {model.KeySerialNumber: "SURFACE-STANDARD"},
			"SURFACEPRO3X-MXC": {model.KeySerialNumber: "SURFACEPRO3X-MXC"},
		},
	}
}

// DefaultPath returns $HOSTPIN_CONFIG or ~/.hostpin/config.yaml.
func DefaultPath() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".hostpin", "config.yaml"), nil
}

// Load reads configuration from a YAML file.
// Empty path falls back to DefaultPath. Missing file returns defaults.
// Invalid YAML or invalid values return an error.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return DefaultConfig(), nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	// Start with defaults, YAML overwrites only specified fields.
	// A variants section replaces the default variants rather than
	// merging into them.
	cfg := DefaultConfig()
	defaults := cfg.Variants
	cfg.Variants = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Variants == nil {
		cfg.Variants = defaults
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.SerialTimeout <= 0 {
		return fmt.Errorf("serial_timeout must be positive, got %s", c.SerialTimeout)
	}
	if c.LookupTimeout <= 0 {
		return fmt.Errorf("lookup_timeout must be positive, got %s", c.LookupTimeout)
	}
	if c.ActiveVariant != "" && !model.ValidVariantID(c.ActiveVariant) {
		return fmt.Errorf("active_variant: invalid variant id %q", c.ActiveVariant)
	}
	for _, id := range c.VariantIDs() {
		if !model.ValidVariantID(id) {
			return fmt.Errorf("variants: invalid variant id %q", id)
		}
		for field := range c.Variants[id] {
			if !model.IsKey(field) {
				return fmt.Errorf("variants[%s]: unknown field %q", id, field)
			}
		}
	}
	return nil
}

// VariantIDs returns the configured variant ids, sorted.
func (c *Config) VariantIDs() []string {
	ids := make([]string, 0, len(c.Variants))
	for id := range c.Variants {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ResolveBaseDir returns the first existing candidate directory, or the
// fallback directory when none exists.
func (c *Config) ResolveBaseDir() (string, error) {
	for _, candidate := range c.BaseDirCandidates {
		path, err := ExpandPath(candidate)
		if err != nil || path == "" {
			continue
		}
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			return path, nil
		}
	}

	fallback := c.FallbackDir
	if fallback == "" {
		fallback = "~/.hostpin"
	}
	return ExpandPath(fallback)
}

// ExpandPath expands a leading ~ and environment variables.
func ExpandPath(p string) (string, error) {
	if p == "~" || strings.HasPrefix(p, "~/") || strings.HasPrefix(p, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		p = filepath.Join(home, p[1:])
	}
	return filepath.Clean(os.ExpandEnv(p)), nil
}

// DefaultConfigYAML returns a commented default configuration file.
func DefaultConfigYAML() string {
	return `# hostpin configuration
# Generated by: hostpin init

# Directories probed in order for the reference and log files.
# The first one that exists is used; otherwise fallback_dir is created.
base_dir_candidates:
  - C:/Users/Microsoft/CIN/CINLogs
  - C:/Users/Ghost/CIN/CINLogs
fallback_dir: ~/CIN/CINLogs

# Reference compared against the live host.
# Empty: the pinned slot rap.json (written by 'hostpin pin <variant>').
# A variant id: rap_<id>.json as written by 'hostpin provision'.
active_variant: ""

# Rewrite every variant from the live host before validating in a full run.
# Validation against a variant provisioned in the same run always matches
# the fields that variant does not override.
provision_on_run: false

# Upper bounds for platform queries. A query that times out degrades its
# attribute to "Unknown".
serial_timeout: 5s
lookup_timeout: 3s

# Appended once per run to reminder_log.txt.
advisory_message: "Shower occurred before earlier outing. Reminder acknowledged."

# Variants built from the live host with these field overrides.
# Fields: system_name, os_family, os_version, architecture, hostname,
#         ip_address, mac_address, serial_number
variants:
  standard:
    serial_number: SURFACE-STANDARD
  SURFACEPRO3X-MXC:
    serial_number: SURFACEPRO3X-MXC
`
}
