package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/hostpin/internal/clierror"
	"github.com/ppiankov/hostpin/internal/watch"
)

var watchDebounce time.Duration

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "Quiet period after a change before re-validating")
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-validate whenever the reference profiles change",
	Long: `Validates once, then watches the base directory and validates again
after every settled change to rap.json or a rap_<variant>.json file.
Each validation is an independent 'hostpin check'. Stops on SIGINT/SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	a := appFrom(cmd)
	if err := os.MkdirAll(a.baseDir, 0o750); err != nil {
		return clierror.PersistenceFailed(err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := cmd.OutOrStdout()
	check := func() {
		out := a.runner(w, false).Check(ctx)
		// An UNAUTHORIZED decision is reported, not fatal, while watching.
		if err := reportOutcome(w, a, out); err != nil {
			a.logger.Info("validation failed", "error", err)
		}
		fmt.Fprintln(w)
	}

	watcher, err := watch.New(a.baseDir, check, watch.Options{Debounce: watchDebounce, Logger: a.logger})
	if err != nil {
		return clierror.InternalError(err)
	}

	check()
	fmt.Fprintf(cmd.ErrOrStderr(), "watching %s (Ctrl-C to stop)\n", watcher.Dir())
	return watcher.Run(ctx)
}
