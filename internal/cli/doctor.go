package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/ppiankov/hostpin/internal/authz"
	"github.com/ppiankov/hostpin/internal/clierror"
	"github.com/ppiankov/hostpin/internal/config"
	"github.com/ppiankov/hostpin/internal/identity"
	"github.com/ppiankov/hostpin/internal/model"
	"github.com/ppiankov/hostpin/internal/profile"
	"github.com/ppiankov/hostpin/internal/systemd"
)

func init() {
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check host readiness and diagnose configuration issues",
	Args:  cobra.NoArgs,
	// Loads the config itself so a broken file is reported, not fatal.
	PersistentPreRunE: setupColor,
	RunE:              runDoctor,
}

type checkResult struct {
	label    string
	ok       bool
	optional bool
	detail   string
	fix      string
}

// serialReporter is implemented by collectors that expose their serial strategy.
type serialReporter interface {
	SerialQuery() identity.SerialQuery
}

func runDoctor(cmd *cobra.Command, args []string) error {
	var checks []checkResult

	// 1. Binary location and version.
	execPath, _ := os.Executable()
	if execPath != "" {
		checks = append(checks, checkResult{
			label:  "hostpin binary",
			ok:     true,
			detail: fmt.Sprintf("%s (v%s)", execPath, version),
		})
	} else {
		checks = append(checks, checkResult{
			label:  "hostpin binary",
			ok:     false,
			detail: "cannot determine executable path",
		})
	}

	// 2. Config file.
	path, pathErr := initConfigPath()
	cfg, cfgErr := config.Load(path)
	switch {
	case pathErr != nil:
		checks = append(checks, checkResult{label: "config", ok: false, detail: pathErr.Error()})
	case cfgErr != nil:
		checks = append(checks, checkResult{
			label:  "config",
			ok:     false,
			detail: cfgErr.Error(),
			fix:    "hostpin init --force",
		})
	default:
		detail := path
		if _, err := os.Stat(path); err != nil {
			detail = "not found, using defaults"
		}
		checks = append(checks, checkResult{label: "config", ok: true, detail: detail})
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	// 3. Base directory.
	dir := baseDir
	var dirErr error
	if dir != "" {
		dir, dirErr = config.ExpandPath(dir)
	} else {
		dir, dirErr = cfg.ResolveBaseDir()
	}
	if dirErr == nil {
		dirErr = writable(dir)
	}
	if dirErr != nil {
		checks = append(checks, checkResult{
			label:  "base directory",
			ok:     false,
			detail: dirErr.Error(),
			fix:    "hostpin init --base-dir <dir>",
		})
	} else {
		checks = append(checks, checkResult{label: "base directory", ok: true, detail: dir})
	}

	// 4. Live attributes.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	collector := newCollector(cfg, logger)
	res := collector.Collect(cmd.Context())
	if sr, ok := collector.(serialReporter); ok {
		q := sr.SerialQuery()
		f := res.Failed(model.KeySerialNumber)
		checks = append(checks, checkResult{
			label:  "serial query",
			ok:     f == nil,
			detail: serialDetail(q.Name(), res.Attributes[model.KeySerialNumber], f),
		})
	}
	if degraded := degradedFields(res); len(degraded) > 0 {
		checks = append(checks, checkResult{
			label:  "attributes",
			ok:     false,
			detail: fmt.Sprintf("degraded: %v", degraded),
			fix:    "hostpin fingerprint --verbose",
		})
	} else {
		checks = append(checks, checkResult{label: "attributes", ok: true, detail: "all collected"})
	}

	store := profile.NewStore(dir, cfg.ActiveVariant)

	// 5. Provisioned variants and bundle.
	ids, listErr := store.List()
	switch {
	case listErr != nil:
		checks = append(checks, checkResult{label: "variants", ok: false, detail: listErr.Error()})
	case len(ids) == 0:
		checks = append(checks, checkResult{
			label:  "variants",
			ok:     false,
			detail: "none provisioned",
			fix:    "hostpin provision",
		})
	default:
		checks = append(checks, checkResult{label: "variants", ok: true, detail: fmt.Sprintf("%d provisioned %v", len(ids), ids)})
		if err := store.VerifyBundle(); err != nil {
			checks = append(checks, checkResult{
				label:  profile.BundleFile,
				ok:     false,
				detail: err.Error(),
				fix:    "hostpin provision",
			})
		} else {
			checks = append(checks, checkResult{label: profile.BundleFile, ok: true, detail: "matches variant files"})
		}
	}

	// 6. Active reference.
	ref, refErr := store.LoadActive()
	if refErr != nil {
		fix := "hostpin pin <variant>"
		if cfg.ActiveVariant != "" {
			fix = "hostpin provision"
		}
		checks = append(checks, checkResult{
			label:  "active reference",
			ok:     false,
			detail: fmt.Sprintf("%s unusable", store.ActivePath()),
			fix:    fix,
		})
	} else {
		checks = append(checks, checkResult{label: "active reference", ok: true, detail: store.ActivePath()})

		// 7. Would this host be authorized right now?
		status, reason, field := authz.Compare(res.Attributes, ref)
		c := checkResult{label: "authorization", ok: status == model.Authorized, detail: string(status)}
		if !c.ok {
			c.detail = fmt.Sprintf("%s (%s %s)", status, reason, field)
		}
		checks = append(checks, c)
	}

	// 8. systemd timer (Linux only).
	if runtime.GOOS == "linux" {
		if _, err := os.Stat(systemd.TimerPath); err == nil {
			checks = append(checks, checkResult{label: "hostpin.timer", ok: true, detail: "installed"})
		} else {
			checks = append(checks, checkResult{
				label:    "hostpin.timer",
				optional: true,
				detail:   "not installed",
				fix:      "sudo hostpin init --install-systemd",
			})
		}
	}

	// Print results.
	w := cmd.OutOrStdout()
	failed := 0
	for _, c := range checks {
		mark := okFmt("✓")
		switch {
		case c.ok:
		case c.optional:
			mark = dimFmt("-")
		default:
			mark = failFmt("✗")
			failed++
		}
		line := fmt.Sprintf("%s %-20s %s", mark, c.label+":", c.detail)
		if !c.ok && c.fix != "" {
			line += fmt.Sprintf("  ->  %s", c.fix)
		}
		fmt.Fprintln(w, line)
	}

	if failed > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Some checks failed. Run the suggested commands to fix.")
		return clierror.ChecksFailed(failed, len(checks))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "All checks passed.")
	return nil
}

func serialDetail(name, value string, f *identity.FieldError) string {
	if f != nil {
		return fmt.Sprintf("%s -> %s (%v)", name, value, f.Err)
	}
	return fmt.Sprintf("%s -> %s", name, value)
}

// writable creates dir when missing and probes it with a temp file.
func writable(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".hostpin-probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(filepath.Clean(name))
}
