package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/syssam/schemagen/compiler/load"
)

func newSnapshotCommand() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Store the declarations of the schema directory as a msgpack snapshot",
		Long: `Merge the declaration files of the schema directory and store them in one
msgpack snapshot. A snapshot placed in a schema directory is loaded like any
other declaration file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := GetConfig(cmd.Context())
			set, err := load.LoadDir(cfg.Schema)
			if err != nil {
				return err
			}
			buf, err := load.MarshalSnapshot(set)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(out, buf, 0o644); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "stored %d entities in %s\n", len(set.Names()), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "schema.msgpack", "Path of the snapshot file")
	cmd.AddCommand(newSnapshotShowCommand())
	return cmd
}

func newSnapshotShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <file>",
		Short: "Print a snapshot as a YAML declaration document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			buf, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			set, err := load.UnmarshalSnapshot(buf)
			if err != nil {
				return err
			}
			doc, err := load.MarshalYAML(set)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(doc)
			return err
		},
	}
}
