// Package cli provides the command-line interface of schemagen.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/syssam/schemagen/compiler/gen"
	"github.com/syssam/schemagen/internal/logger"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

type (
	configKey struct{}
	loggerKey struct{}
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string
	rootCmd := &cobra.Command{
		Use:   "schemagen",
		Short: "schemagen - SQLite schema compiler",
		Long: `schemagen compiles declarative entity schemas into SQLite DDL and
Go adapter packages that bind models to statements and load them back
from query rows.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "version" {
				return nil
			}
			cfg, err := LoadConfig(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			log, err := newLogger(cmd, cfg)
			if err != nil {
				return err
			}
			ctx := context.WithValue(cmd.Context(), configKey{}, cfg)
			ctx = context.WithValue(ctx, loggerKey{}, log)
			cmd.SetContext(ctx)
			if cfg.File != "" {
				log.Debug("using config file", zap.String("path", cfg.File))
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			_ = GetLogger(cmd.Context()).Sync()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./schemagen.yaml)")
	flags.StringP("schema", "s", "", "Directory holding the declaration files")
	flags.StringP("target", "o", "", "Output directory of the generated code")
	flags.String("package", "", "Import path of the generated code")
	flags.String("header", "", "Header written at the top of every generated Go file")
	flags.StringSlice("feature", nil, "Enable a codegen feature (repeatable)")
	flags.String("database", "", "Database group of entities that do not name one")
	flags.Int("max-rounds", 0, "Maximum number of resolution rounds")
	flags.Int("workers", 0, "Number of parallel file generators (0 uses GOMAXPROCS)")
	flags.String("log-level", "", "Log level (debug|info|warn|error)")
	flags.String("log-format", "", "Log format (console|json)")
	flags.String("log-output", "", "Log output (stderr|stdout|<file>)")

	_ = rootCmd.RegisterFlagCompletionFunc("log-level", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(newVersionCommand())
	rootCmd.AddCommand(newGenerateCommand())
	rootCmd.AddCommand(newCheckCommand())
	rootCmd.AddCommand(newInspectCommand())
	rootCmd.AddCommand(newWatchCommand())
	rootCmd.AddCommand(newSnapshotCommand())
	rootCmd.AddCommand(newDiffCommand())
	rootCmd.AddCommand(newFeaturesCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// GetConfig retrieves the config from the command context.
func GetConfig(ctx context.Context) *Config {
	if c, ok := ctx.Value(configKey{}).(*Config); ok {
		return c
	}
	return &Config{
		Schema:    DefaultSchemaDir,
		Target:    DefaultTarget,
		Database:  gen.DefaultDatabase,
		MaxRounds: gen.DefaultMaxRounds,
		Log:       *logger.DefaultConfig(),
	}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// newLogger writes to the error stream of the command unless a file or
// stdout is configured, so tests can capture the logs.
func newLogger(cmd *cobra.Command, cfg *Config) (*zap.Logger, error) {
	switch cfg.Log.Output {
	case "", "stderr":
		return logger.NewWithWriter(&cfg.Log, cmd.ErrOrStderr())
	default:
		return logger.New(&cfg.Log)
	}
}
