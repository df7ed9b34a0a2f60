package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/hostpin/internal/clierror"
	"github.com/ppiankov/hostpin/internal/model"
	"github.com/ppiankov/hostpin/internal/profile"
)

func init() {
	rootCmd.AddCommand(pinCmd)
}

var pinCmd = &cobra.Command{
	Use:   "pin <variant>",
	Short: "Make a provisioned variant the pinned reference (rap.json)",
	Args:  cobra.ExactArgs(1),
	RunE:  runPin,
}

func runPin(cmd *cobra.Command, args []string) error {
	a := appFrom(cmd)
	id := args[0]
	if !model.ValidVariantID(id) {
		return clierror.ConfigInvalid("", fmt.Errorf("invalid variant id %q", id))
	}

	store := profile.NewStore(a.baseDir, "")
	if err := store.Pin(id); err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return clierror.ReferenceNotFound(store.VariantPath(id), err)
		}
		return clierror.PersistenceFailed(err)
	}
	a.logger.Debug("variant pinned", "variant", id, "path", store.ActivePath())

	w := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(w, map[string]string{"pinned": id, "path": store.ActivePath()})
	}
	fmt.Fprintf(w, "Pinned %s -> %s\n", id, store.ActivePath())
	if a.cfg.ActiveVariant != "" {
		fmt.Fprintf(w, "%s active_variant is %q; validation reads %s, not the pinned slot\n",
			warnFmt("note:"), a.cfg.ActiveVariant, a.store().ActivePath())
	}
	return nil
}
