package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/hostpin/internal/model"
)

func TestDefaultConfigValues(t *testing.T) {
	cfg := DefaultConfig()

	if len(cfg.BaseDirCandidates) != 2 {
		t.Errorf("expected 2 base dir candidates, got %d", len(cfg.BaseDirCandidates))
	}
	if cfg.SerialTimeout != 5*time.Second {
		t.Errorf("expected serial_timeout=5s, got %s", cfg.SerialTimeout)
	}
	if cfg.LookupTimeout != 3*time.Second {
		t.Errorf("expected lookup_timeout=3s, got %s", cfg.LookupTimeout)
	}
	if cfg.ProvisionOnRun {
		t.Error("expected provision_on_run=false")
	}
	if cfg.ActiveVariant != "" {
		t.Errorf("expected empty active_variant, got %q", cfg.ActiveVariant)
	}
	if got := cfg.Variants["SURFACEPRO3X-MXC"][model.KeySerialNumber]; got != "SURFACEPRO3X-MXC" {
		t.Errorf("unexpected SURFACEPRO3X-MXC serial override: %q", got)
	}
	if got := cfg.Variants["standard"][model.KeySerialNumber]; got != "SURFACE-STANDARD" {
		t.Errorf("unexpected standard serial override: %q", got)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	if cfg.SerialTimeout != 5*time.Second {
		t.Errorf("expected defaults, got serial_timeout=%s", cfg.SerialTimeout)
	}
}

func TestLoadEmptyPathUsesEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("active_variant: standard\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvConfigPath, path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ActiveVariant != "standard" {
		t.Errorf("expected active_variant from env path, got %q", cfg.ActiveVariant)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "serial_timeout: 2s\nprovision_on_run: true\n"
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SerialTimeout != 2*time.Second {
		t.Errorf("expected serial_timeout=2s, got %s", cfg.SerialTimeout)
	}
	if !cfg.ProvisionOnRun {
		t.Error("expected provision_on_run=true")
	}
	if cfg.LookupTimeout != 3*time.Second {
		t.Errorf("unspecified field lost its default: %s", cfg.LookupTimeout)
	}
	if len(cfg.Variants) != 2 {
		t.Errorf("expected default variants, got %v", cfg.VariantIDs())
	}
}

func TestLoadVariantsReplaceDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "variants:\n  lab:\n    serial_number: LAB-1\n"
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	ids := cfg.VariantIDs()
	if len(ids) != 1 || ids[0] != "lab" {
		t.Errorf("expected only the lab variant, got %v", ids)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("serial_timeout: [oops"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"zero serial timeout":  func(c *Config) { c.SerialTimeout = 0 },
		"negative lookup":      func(c *Config) { c.LookupTimeout = -time.Second },
		"bad active variant":   func(c *Config) { c.ActiveVariant = "../rap" },
		"bad variant id":       func(c *Config) { c.Variants["a/b"] = map[string]string{} },
		"unknown override key": func(c *Config) { c.Variants["standard"]["cpu"] = "x" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestResolveBaseDirFirstExisting(t *testing.T) {
	tmp := t.TempDir()
	second := filepath.Join(tmp, "second")
	third := filepath.Join(tmp, "third")
	for _, d := range []string{second, third} {
		if err := os.MkdirAll(d, 0750); err != nil {
			t.Fatal(err)
		}
	}

	cfg := DefaultConfig()
	cfg.BaseDirCandidates = []string{filepath.Join(tmp, "absent"), second, third}

	got, err := cfg.ResolveBaseDir()
	if err != nil {
		t.Fatalf("ResolveBaseDir: %v", err)
	}
	if got != second {
		t.Errorf("expected %s, got %s", second, got)
	}
}

func TestResolveBaseDirFallback(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := DefaultConfig()
	cfg.BaseDirCandidates = []string{filepath.Join(home, "absent")}

	got, err := cfg.ResolveBaseDir()
	if err != nil {
		t.Fatalf("ResolveBaseDir: %v", err)
	}
	want := filepath.Join(home, "CIN", "CINLogs")
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestExpandPathEnv(t *testing.T) {
	t.Setenv("HOSTPIN_TEST_ROOT", "/opt/pin")
	got, err := ExpandPath("$HOSTPIN_TEST_ROOT/logs")
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Clean("/opt/pin/logs") {
		t.Errorf("unexpected expansion: %s", got)
	}
}

func TestDefaultConfigYAMLParses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(DefaultConfigYAML()), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}
	def := DefaultConfig()
	if cfg.SerialTimeout != def.SerialTimeout || cfg.LookupTimeout != def.LookupTimeout {
		t.Error("generated config timeouts differ from defaults")
	}
	if cfg.AdvisoryMessage != def.AdvisoryMessage {
		t.Errorf("advisory message differs: %q", cfg.AdvisoryMessage)
	}
	if len(cfg.Variants) != len(def.Variants) {
		t.Errorf("variants differ: %v", cfg.VariantIDs())
	}
}
