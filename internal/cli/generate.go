package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGenerateCommand() *cobra.Command {
	var allowErrors bool
	cmd := &cobra.Command{
		Use:     "generate",
		Aliases: []string{"gen"},
		Short:   "Generate the adapter packages of the schema",
		Long: `Compile the declarations of the schema directory and write one Go package
per database into the target directory. Entities that fail to resolve are
reported and left out; the remaining entities are generated.`,
		Example: `  schemagen generate
  schemagen generate --schema ./schema --target ./internal/db --feature sql/rowid-alias`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, log := GetConfig(ctx), GetLogger(ctx)
			g, err := compile(cfg, log)
			if err != nil {
				return err
			}
			diagErr := writeDiagnostics(cmd.ErrOrStderr(), g)
			if err := generate(ctx, g); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "generated %d entities in %d databases into %s\n",
				len(g.Entities), len(g.Databases), cfg.Target)
			if allowErrors {
				return nil
			}
			return diagErr
		},
	}
	cmd.Flags().BoolVar(&allowErrors, "allow-errors", false, "Exit with success when some entities were abandoned")
	return cmd
}
