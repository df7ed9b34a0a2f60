package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ppiankov/hostpin/internal/clierror"
	"github.com/ppiankov/hostpin/internal/config"
	"github.com/ppiankov/hostpin/internal/identity"
	"github.com/ppiankov/hostpin/internal/model"
	"github.com/ppiankov/hostpin/internal/profile"
	"github.com/ppiankov/hostpin/internal/run"
	"github.com/ppiankov/hostpin/internal/runlog"
)

var (
	configPath string
	baseDir    string
	verbose    bool
	jsonOutput bool
	noColor    bool
)

// newCollector builds the attribute collector. Tests replace it.
var newCollector = func(cfg *config.Config, logger *slog.Logger) run.Collector {
	return identity.NewCollector(identity.Options{
		SerialTimeout: cfg.SerialTimeout,
		LookupTimeout: cfg.LookupTimeout,
		Logger:        logger,
	})
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: ~/.hostpin/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&baseDir, "base-dir", "", "Directory for reference and log files (overrides base_dir_candidates)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
}

var rootCmd = &cobra.Command{
	Use:   "hostpin",
	Short: "Decide whether this host is the machine a device is pinned to",
	Long: `Collects host attributes, fingerprints them and compares them to the
active reference profile. Without a subcommand, performs one full run:
advisory note, collection, optional provisioning, validation and the
last-run record.

Exit code 0 when AUTHORIZED, 3 when UNAUTHORIZED.`,
	Args:              cobra.NoArgs,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	RunE:              runRoot,
}

// Execute runs the root command and exits with the CLI error's exit code.
func Execute() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

func execute(args []string, stdout, stderr io.Writer) int {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		cliErr := clierror.From(err)
		clierror.PrintError(stderr, cliErr, outputFormat())
		return cliErr.ExitCode
	}
	return clierror.ExitSuccess
}

func outputFormat() string {
	if jsonOutput {
		return "json"
	}
	return "text"
}

// app is the per-invocation configuration, built once in setup.
type app struct {
	cfg     *config.Config
	baseDir string
	logger  *slog.Logger
}

type appKey struct{}

func setup(cmd *cobra.Command, args []string) error {
	if noColor {
		disableColor()
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load(configPath)
	if err != nil {
		return clierror.ConfigInvalid(configPath, err)
	}

	dir := baseDir
	if dir != "" {
		dir, err = config.ExpandPath(dir)
	} else {
		dir, err = cfg.ResolveBaseDir()
	}
	if err != nil {
		return clierror.ConfigInvalid(configPath, err)
	}
	logger.Debug("configuration loaded", "base_dir", dir, "active_variant", cfg.ActiveVariant)

	cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, &app{cfg: cfg, baseDir: dir, logger: logger}))
	return nil
}

func disableColor() {
	color.NoColor = true
}

func appFrom(cmd *cobra.Command) *app {
	a, _ := cmd.Context().Value(appKey{}).(*app)
	return a
}

func (a *app) store() *profile.Store {
	return profile.NewStore(a.baseDir, a.cfg.ActiveVariant)
}

func (a *app) runner(w io.Writer, provisionOnRun bool) *run.Runner {
	var progress func(string)
	if !jsonOutput {
		progress = func(step string) { fmt.Fprintf(w, "%s %s\n", dimFmt("->"), step) }
	}
	return run.New(run.Options{
		Collector:      newCollector(a.cfg, a.logger),
		Store:          a.store(),
		Recorder:       runlog.New(a.baseDir, a.cfg.AdvisoryMessage),
		Variants:       a.cfg.Variants,
		ProvisionOnRun: provisionOnRun,
		Logger:         a.logger,
		Progress:       progress,
	})
}

func runRoot(cmd *cobra.Command, args []string) error {
	a := appFrom(cmd)
	out := a.runner(cmd.OutOrStdout(), a.cfg.ProvisionOnRun).Run(cmd.Context())
	return reportOutcome(cmd.OutOrStdout(), a, out)
}

// decisionError maps an UNAUTHORIZED decision to its CLI error.
func decisionError(a *app, out run.Outcome) error {
	if out.Decision.Authorized() {
		return nil
	}
	if out.Decision.Reason == model.ReasonNoReference {
		_, err := a.store().LoadActive()
		if err == nil {
			err = profile.ErrNotFound
		}
		return clierror.ReferenceNotFound(a.store().ActivePath(), err)
	}
	return clierror.NotAuthorized(string(out.Decision.Reason), out.Decision.Field)
}
