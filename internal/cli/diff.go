package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	gensql "github.com/syssam/schemagen/compiler/gen/sql"
	"github.com/syssam/schemagen/compiler/load"
)

func newDiffCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <snapshot>",
		Short: "Print the migration from a snapshot to the current schema",
		Long: `Compile the declarations stored in a snapshot and those of the schema
directory, diff the tables of every database and print the SQLite statements
migrating the tables of the snapshot to the current ones.`,
		Example: `  schemagen snapshot --out schema.msgpack
  schemagen diff schema.msgpack`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, log := GetConfig(ctx), GetLogger(ctx)
			old, err := load.LoadFile(args[0])
			if err != nil {
				return err
			}
			from, err := compileSet(cfg, log, args[0], old)
			if err != nil {
				return err
			}
			if err := from.Err(); err != nil {
				return fmt.Errorf("snapshot %s: %w", args[0], err)
			}
			to, err := compile(cfg, log)
			if err != nil {
				return err
			}
			if err := writeDiagnostics(cmd.ErrOrStderr(), to); err != nil {
				return err
			}
			plans, err := gensql.MigrationPlans(ctx, from, to)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(plans) == 0 {
				_, _ = fmt.Fprintln(w, "no changes")
				return nil
			}
			for _, p := range plans {
				_, _ = fmt.Fprintf(w, "-- database %s\n", p.Name)
				for _, c := range p.Changes {
					if c.Comment != "" {
						_, _ = fmt.Fprintf(w, "-- %s\n", c.Comment)
					}
					_, _ = fmt.Fprintf(w, "%s;\n", c.Cmd)
				}
			}
			return nil
		},
	}
}
