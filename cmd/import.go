package cmd

import (
	"fmt"

	"github.com/matheuskafuri/highlights/internal/importer"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import [FILE...]",
	Short: "Import visits from RSS or Atom exports",
	Long: `Import every item of the given RSS or Atom files as a visit. Items without an
http(s) link are skipped. With no files, the paths under import.paths in the
config are used.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup(cmd, nil)
		if err != nil {
			return err
		}
		defer rt.Close()

		paths := args
		if len(paths) == 0 {
			paths = rt.cfg.Import.Paths
		}
		if len(paths) == 0 {
			return fmt.Errorf("no files given and import.paths is empty")
		}

		out := cmd.OutOrStdout()
		result := importer.ParseFiles(cmd.Context(), paths)
		for _, e := range result.Errors {
			fmt.Fprintf(cmd.ErrOrStderr(), "  [warn] %v\n", e)
			rt.log.Warn("import file failed", "err", e)
		}
		if len(result.Errors) == len(paths) {
			return fmt.Errorf("no file could be imported")
		}

		n, err := rt.manager.Import(cmd.Context(), result.Visits)
		if err != nil {
			return fmt.Errorf("saving visits: %w", err)
		}

		fmt.Fprintf(out, "Imported %d visit(s)", n)
		if result.Skipped > 0 {
			fmt.Fprintf(out, ", skipped %d item(s) without a web link", result.Skipped)
		}
		fmt.Fprintln(out, ".")
		return nil
	},
}
