package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/hostpin/internal/clierror"
	"github.com/ppiankov/hostpin/internal/fingerprint"
)

func init() {
	rootCmd.AddCommand(profilesCmd)
}

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List provisioned variants and the active reference",
	Args:  cobra.NoArgs,
	RunE:  runProfiles,
}

type profileView struct {
	ID          string `json:"id"`
	Path        string `json:"path"`
	Fingerprint string `json:"fingerprint"`
	Active      bool   `json:"active"`
}

func runProfiles(cmd *cobra.Command, args []string) error {
	a := appFrom(cmd)
	store := a.store()

	ids, err := store.List()
	if err != nil {
		return clierror.PersistenceFailed(err)
	}

	var views []profileView
	for _, id := range ids {
		v := profileView{ID: id, Path: store.VariantPath(id), Active: id == a.cfg.ActiveVariant}
		if attrs, err := store.Load(id); err == nil {
			v.Fingerprint = fingerprint.Generate(attrs)
		}
		views = append(views, v)
	}

	_, activeErr := store.LoadActive()
	_, statErr := os.Stat(store.ActivePath())

	w := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(w, map[string]any{
			"dir":      a.baseDir,
			"variants": views,
			"active":   store.ActivePath(),
			"usable":   activeErr == nil,
		})
	}

	if len(views) == 0 {
		fmt.Fprintf(w, "No variants provisioned in %s\n", a.baseDir)
	}
	for _, v := range views {
		mark := " "
		if v.Active {
			mark = "*"
		}
		hash := v.Fingerprint
		if hash == "" {
			hash = failFmt("unreadable")
		}
		fmt.Fprintf(w, "%s %-20s %s\n", mark, v.ID, hash)
	}

	state := okFmt("usable")
	switch {
	case statErr != nil:
		state = failFmt("missing")
	case activeErr != nil:
		state = failFmt("malformed")
	}
	fmt.Fprintf(w, "\nActive reference: %s (%s)\n", store.ActivePath(), state)
	return nil
}
