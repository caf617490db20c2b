package gen

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/dave/jennifer/jen"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/schemagen/compiler/load"
)

// JenniferGenerator writes the generated packages of a graph: one directory
// per database group holding an adapter file per entity, the registry file
// and, with the schema/dump feature, the DDL dump.
type JenniferGenerator struct {
	graph   *Graph
	workers int
	outDir  string
	dialect Dialect
	log     *zap.Logger
}

// NewJenniferGenerator creates a new Jennifer-based generator.
// You must call WithDialect() to set a dialect before calling Generate().
//
// Example:
//
//	import "github.com/syssam/schemagen/compiler/gen/sql"
//
//	gen := gen.NewJenniferGenerator(graph, outDir)
//	gen.WithDialect(sql.NewDialect(gen))
//	gen.Generate(ctx)
func NewJenniferGenerator(g *Graph, outDir string) *JenniferGenerator {
	workers := runtime.GOMAXPROCS(0)
	if g.Config != nil && g.Workers > 0 {
		workers = g.Workers
	}
	log := zap.NewNop()
	if g.Config != nil && g.Logger != nil {
		log = g.Logger.Named("generate")
	}
	return &JenniferGenerator{
		graph:   g,
		workers: workers,
		outDir:  outDir,
		log:     log,
	}
}

// WithWorkers sets the number of parallel workers.
func (g *JenniferGenerator) WithWorkers(n int) *JenniferGenerator {
	if n > 0 {
		g.workers = n
	}
	return g
}

// WithDialect sets the dialect generator.
func (g *JenniferGenerator) WithDialect(d Dialect) *JenniferGenerator {
	g.dialect = d
	return g
}

// Generate writes all files with parallel execution. The content of every
// file depends only on the graph, so the output of repeated runs is
// byte-identical.
func (g *JenniferGenerator) Generate(ctx context.Context) error {
	if g.dialect == nil {
		return NewConfigError("Dialect", nil, "no dialect set: call WithDialect() before Generate()")
	}
	if err := os.MkdirAll(g.outDir, 0o755); err != nil {
		return err
	}
	if g.graph.Config != nil {
		if err := cleanupDisabled(g.graph.Config); err != nil {
			return NewGenerationError("cleanup", g.outDir, "remove disabled feature output", err)
		}
	}

	errg, ctx := errgroup.WithContext(ctx)
	errg.SetLimit(g.workers)

	writer := NewTemplateWriter(g.graph, g.outDir)
	for _, db := range g.graph.Databases {
		dir := PackageName(db)
		for _, e := range db.Entities {
			errg.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				f, err := g.dialect.GenAdapter(db, e)
				if err != nil {
					return NewGenerationError("adapter", filepath.Join(dir, FileName(e)), e.Name, err)
				}
				return g.writeFile(f, dir, FileName(e))
			})
		}
		errg.Go(func() error {
			return writer.GenerateRegistry(db)
		})
		if g.FeatureEnabled(FeatureSchemaDump.Name) {
			errg.Go(func() error {
				ddl, err := g.dialect.GenSchema(db)
				if err != nil {
					return NewGenerationError("schema", filepath.Join(dir, "schema.sql"), db.Name, err)
				}
				return g.writeBytes(ddl, dir, "schema.sql")
			})
		}
	}
	if g.FeatureEnabled(FeatureSnapshot.Name) && g.graph.Declarations != nil {
		errg.Go(func() error {
			buf, err := load.MarshalSnapshot(g.graph.Declarations)
			if err != nil {
				return NewGenerationError("snapshot", "internal/schema.msgpack", "", err)
			}
			return g.writeBytes(buf, "internal", "schema.msgpack")
		})
	}
	if err := errg.Wait(); err != nil {
		return err
	}
	g.log.Info("code generated",
		zap.String("target", g.outDir),
		zap.Int("databases", len(g.graph.Databases)),
		zap.Int("entities", len(g.graph.Entities)),
	)
	return nil
}

// =============================================================================
// GeneratorHelper interface implementation
// These exported methods allow dialect packages to access helper functionality.
// =============================================================================

// NewFile creates a new Jennifer file with the standard header comment.
func (g *JenniferGenerator) NewFile(pkg string) *jen.File {
	return g.newFile(pkg)
}

// Graph returns the schema graph.
func (g *JenniferGenerator) Graph() *Graph {
	return g.graph
}

// FeatureEnabled reports if the given feature name is enabled.
func (g *JenniferGenerator) FeatureEnabled(name string) bool {
	if g.graph.Config == nil {
		return false
	}
	enabled, _ := g.graph.FeatureEnabled(name)
	return enabled
}

// AdapterName returns the name of the adapter variable of an entity.
func (g *JenniferGenerator) AdapterName(e *Entity) string {
	return AdapterName(e)
}

// Verify JenniferGenerator implements GeneratorHelper at compile time.
var _ GeneratorHelper = (*JenniferGenerator)(nil)

// =============================================================================
// Internal helper methods (unexported)
// =============================================================================

// writeFile writes jennifer file directly to disk (no buffering).
func (g *JenniferGenerator) writeFile(f *jen.File, subdir, filename string) error {
	dir := g.outDir
	if subdir != "" {
		dir = filepath.Join(g.outDir, subdir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	path := filepath.Join(dir, filename)
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	// Jennifer renders with correct imports and formatting
	return f.Render(out)
}

// writeBytes writes a non-Go file.
func (g *JenniferGenerator) writeBytes(b []byte, subdir, filename string) error {
	dir := filepath.Join(g.outDir, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, filename), b, 0o644)
}

// newFile creates a new Jennifer file with the header comment.
func (g *JenniferGenerator) newFile(pkg string) *jen.File {
	f := jen.NewFile(pkg)
	header := DefaultHeader
	if g.graph.Config != nil && g.graph.Header != "" {
		header = g.graph.Header
	}
	f.HeaderComment(strings.TrimPrefix(header, "// "))
	return f
}
