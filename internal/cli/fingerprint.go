package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/hostpin/internal/fingerprint"
	"github.com/ppiankov/hostpin/internal/model"
)

func init() {
	rootCmd.AddCommand(fingerprintCmd)
}

var fingerprintCmd = &cobra.Command{
	Use:   "fingerprint",
	Short: "Print the live host attributes and their fingerprint",
	Args:  cobra.NoArgs,
	RunE:  runFingerprint,
}

func runFingerprint(cmd *cobra.Command, args []string) error {
	a := appFrom(cmd)
	res := newCollector(a.cfg, a.logger).Collect(cmd.Context())
	hash := fingerprint.Generate(res.Attributes)

	w := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(w, map[string]any{
			"attributes":  res.Attributes,
			"fingerprint": hash,
			"degraded":    degradedFields(res),
		})
	}

	for _, key := range model.Keys {
		value := res.Attributes[key]
		if res.Failed(key) != nil {
			value = warnFmt(value)
		}
		fmt.Fprintf(w, "%-14s %s\n", key+":", value)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Fingerprint:   %s\n", hash)
	return nil
}
