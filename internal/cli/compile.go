package cli

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/syssam/schemagen/compiler/gen"
	"github.com/syssam/schemagen/compiler/gen/sql"
	"github.com/syssam/schemagen/compiler/load"
)

// compile loads the declarations of the schema directory and resolves them.
// The graph is returned with the diagnostics of the abandoned entities; the
// error is only set when no graph could be built.
func compile(cfg *Config, log *zap.Logger) (*gen.Graph, error) {
	set, err := load.LoadDir(cfg.Schema)
	if err != nil {
		return nil, err
	}
	return compileSet(cfg, log, cfg.Schema, set)
}

// compileSet resolves the declarations of set, loaded from source.
func compileSet(cfg *Config, log *zap.Logger, source string, set *load.Set) (*gen.Graph, error) {
	genCfg, err := gen.NewConfig(cfg.Options(log)...)
	if err != nil {
		return nil, err
	}
	g, _ := gen.NewGraph(genCfg, set)
	if g == nil {
		return nil, fmt.Errorf("compile %s: no graph", source)
	}
	log.Debug("schema compiled",
		zap.String("schema", source),
		zap.Int("entities", len(g.Entities)),
		zap.Int("failed", len(g.Failed)),
	)
	return g, nil
}

// generate writes the packages of the graph to the configured target.
func generate(ctx context.Context, g *gen.Graph) error {
	jg := gen.NewJenniferGenerator(g, g.Target)
	jg.WithDialect(sql.NewDialect(jg))
	return jg.Generate(ctx)
}

// writeDiagnostics prints one line per diagnostic and returns an error
// when there is any.
func writeDiagnostics(w io.Writer, g *gen.Graph) error {
	for _, err := range g.Errors {
		_, _ = fmt.Fprintf(w, "  %v\n", err)
	}
	if len(g.Errors) == 0 {
		return nil
	}
	return fmt.Errorf("schema has %d errors, %d entities abandoned", len(g.Errors), len(g.Failed))
}
