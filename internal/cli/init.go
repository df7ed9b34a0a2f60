package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/hostpin/internal/config"
	"github.com/ppiankov/hostpin/internal/systemd"
)

var (
	initForce          bool
	initInstallSystemd bool
	initInterval       time.Duration
)

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
	initCmd.Flags().BoolVar(&initInstallSystemd, "install-systemd", false, "Install a systemd service and timer that run hostpin (requires root)")
	initCmd.Flags().DurationVar(&initInterval, "interval", systemd.DefaultInterval, "Run interval for the systemd timer")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	Long: `Writes a commented default config to ~/.hostpin/config.yaml (or the
path given by --config / $HOSTPIN_CONFIG) and creates the base directory
when --base-dir is given.

An existing config is kept unless --force is set.

With --install-systemd: installs hostpin.service and hostpin.timer so a
run happens at boot and then every --interval:
  systemctl enable --now hostpin.timer`,
	Args: cobra.NoArgs,
	// Runs without loading the config, so a broken file can be regenerated.
	PersistentPreRunE: setupColor,
	RunE:              runInit,
}

func setupColor(cmd *cobra.Command, args []string) error {
	if noColor {
		disableColor()
	}
	return nil
}

func runInit(cmd *cobra.Command, args []string) error {
	path, err := initConfigPath()
	if err != nil {
		return err
	}

	var created []string
	if wrote, err := writeIfMissing(path, config.DefaultConfigYAML()); err != nil {
		return err
	} else if wrote {
		created = append(created, path)
	}

	if baseDir != "" {
		dir, err := config.ExpandPath(baseDir)
		if err != nil {
			return err
		}
		if _, statErr := os.Stat(dir); os.IsNotExist(statErr) {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return fmt.Errorf("create base directory: %w", err)
			}
			created = append(created, dir)
		}
	}

	// Install systemd units if requested.
	if initInstallSystemd {
		units, err := installSystemd(cmd, path)
		if err != nil {
			return err
		}
		created = append(created, units...)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "hostpin init complete.")
	fmt.Fprintln(w)
	if len(created) > 0 {
		fmt.Fprintln(w, "Created:")
		for _, p := range created {
			fmt.Fprintf(w, "  %s\n", p)
		}
		fmt.Fprintln(w)
	} else {
		fmt.Fprintln(w, "Config already exists (use --force to overwrite).")
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "Next:")
	fmt.Fprintln(w, "  hostpin provision")
	fmt.Fprintln(w, "  hostpin pin SURFACEPRO3X-MXC")
	fmt.Fprintln(w, "  hostpin doctor")

	if initInstallSystemd {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Enable the timer:")
		fmt.Fprintln(w, "  sudo systemctl enable --now hostpin.timer")
	}
	return nil
}

func installSystemd(cmd *cobra.Command, cfgPath string) ([]string, error) {
	if runtime.GOOS != "linux" {
		return nil, fmt.Errorf("--install-systemd is only supported on Linux")
	}
	if os.Geteuid() != 0 {
		return nil, fmt.Errorf("--install-systemd requires root; run with sudo")
	}

	binary, err := os.Executable()
	if err != nil {
		binary = systemd.DefaultBinary
	}
	units := map[string]string{
		systemd.ServicePath: systemd.ServiceUnit(binary, cfgPath),
		systemd.TimerPath:   systemd.TimerUnit(initInterval),
	}
	var written []string
	for _, p := range []string{systemd.ServicePath, systemd.TimerPath} {
		if err := os.WriteFile(p, []byte(units[p]), 0o644); err != nil {
			return written, fmt.Errorf("write systemd unit: %w", err)
		}
		written = append(written, p)
	}

	// Reload systemd.
	if err := exec.CommandContext(cmd.Context(), "systemctl", "daemon-reload").Run(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: systemctl daemon-reload failed: %v\n", err)
	}
	return written, nil
}

// initConfigPath returns --config or the default config location.
func initConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.DefaultPath()
}

// writeIfMissing writes content to path if it doesn't exist or --force is set.
// Returns true if the file was written.
func writeIfMissing(path, content string) (bool, error) {
	if !initForce {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return false, fmt.Errorf("create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}
