package cli

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/syssam/schemagen/compiler/gen"
)

func newFeaturesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "features",
		Short: "List the codegen features and whether they are enabled",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := gen.NewConfig(GetConfig(cmd.Context()).Options(nil)...)
			if err != nil {
				return err
			}
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Feature", "Stage", "Default", "Enabled", "Description"})
			for _, f := range gen.AllFeatures {
				t.AppendRow(table.Row{f.Name, f.Stage, f.Default, cfg.FeatureOn(f), f.Description})
			}
			t.Render()
			return nil
		},
	}
}
