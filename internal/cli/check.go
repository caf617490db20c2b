package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/syssam/schemagen/adapter"
	"github.com/syssam/schemagen/compiler/gen"
	gensql "github.com/syssam/schemagen/compiler/gen/sql"
)

func newCheckCommand() *cobra.Command {
	var slow time.Duration
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Compile the schema and create it in an in-memory SQLite database",
		Long: `Compile the declarations and run the creation queries of every database
against a fresh in-memory SQLite database. Nothing is written to disk.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, log := GetConfig(ctx), GetLogger(ctx)
			g, err := compile(cfg, log)
			if err != nil {
				return err
			}
			diagErr := writeDiagnostics(cmd.ErrOrStderr(), g)
			var errs []error
			for _, db := range g.Databases {
				if err := checkDatabase(ctx, cmd.OutOrStdout(), log, g, db, slow); err != nil {
					errs = append(errs, err)
				}
			}
			return errors.Join(append(errs, diagErr)...)
		},
	}
	cmd.Flags().DurationVar(&slow, "slow", 100*time.Millisecond, "Log creation queries slower than this")
	return cmd
}

func checkDatabase(ctx context.Context, w io.Writer, log *zap.Logger, g *gen.Graph, db *gen.Database, slow time.Duration) error {
	adapters := make([]*adapter.Adapter, 0, len(db.Entities))
	for _, e := range db.Entities {
		a, err := gensql.BuildEntity(g.Config, e)
		if err != nil {
			return gen.NewGenerationError("adapter", gen.FileName(e), e.Name, err)
		}
		adapters = append(adapters, a)
	}

	dsn := fmt.Sprintf("file:%s?mode=memory", db.Name)
	if db.ForeignKeys {
		dsn += "&_pragma=foreign_keys(1)"
	}
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}
	defer conn.Close()
	conn.SetMaxOpenConns(1)

	stats := adapter.NewStatsExecQuerier(conn,
		adapter.WithSlowThreshold(slow),
		adapter.WithSlowQueryLog(log.With(zap.String("database", db.Name))),
	)
	r := adapter.NewRegistry(db.Name, adapter.NewSQLQuerier(stats))
	r.Register(adapters...)
	if err := r.CreateAll(ctx, stats); err != nil {
		return fmt.Errorf("database %s: %w", db.Name, err)
	}
	_, _ = fmt.Fprintf(w, "%s: %d entities ok (%s)\n", db.Name, len(adapters), stats.Stats())
	return nil
}
