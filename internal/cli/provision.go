package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/hostpin/internal/clierror"
)

func init() {
	rootCmd.AddCommand(provisionCmd)
}

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Write every configured variant from the live host attributes",
	Long: `Collects the live host attributes, applies each configured variant's
overrides and writes rap_<variant>.json plus the profiles.zip bundle.
Existing variant files are replaced, never merged.

Provisioning does not change the pinned slot; use 'hostpin pin <variant>'.`,
	Args: cobra.NoArgs,
	RunE: runProvision,
}

func runProvision(cmd *cobra.Command, args []string) error {
	a := appFrom(cmd)
	res, ids, err := a.runner(cmd.OutOrStdout(), false).Provision(cmd.Context())
	if err != nil {
		return clierror.PersistenceFailed(err)
	}

	w := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(w, map[string]any{
			"dir":         a.baseDir,
			"provisioned": ids,
			"bundle":      a.store().BundlePath(),
			"degraded":    degradedFields(res),
		})
	}

	store := a.store()
	fmt.Fprintf(w, "Provisioned %d variant(s) in %s\n", len(ids), a.baseDir)
	for _, id := range ids {
		fmt.Fprintf(w, "  %-20s %s\n", id, store.VariantPath(id))
	}
	fmt.Fprintf(w, "  %-20s %s\n", "(bundle)", store.BundlePath())
	if degraded := degradedFields(res); len(degraded) > 0 {
		fmt.Fprintf(w, "%s fields recorded as sentinels: %v\n", warnFmt("warning:"), degraded)
	}
	return nil
}
