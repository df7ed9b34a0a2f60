package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the live host against the active reference",
	Long: "Collects live attributes and compares them to the active reference\n" +
		"without provisioning. Like a full run, it appends the advisory note\n" +
		"and records the decision in lastrun_log.txt.\n\n" +
		"Exit code 0 if AUTHORIZED, 3 if UNAUTHORIZED.",
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	a := appFrom(cmd)
	out := a.runner(cmd.OutOrStdout(), false).Check(cmd.Context())
	return reportOutcome(cmd.OutOrStdout(), a, out)
}
