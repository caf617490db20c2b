package gen

import "github.com/dave/jennifer/jen"

// Import paths of the runtime packages referenced by generated code.
const (
	AdapterPkg   = "github.com/syssam/schemagen/adapter"
	SQLSchemaPkg = "github.com/syssam/schemagen/dialect/sqlschema"
)

// Dialect generates the database-specific output of a graph.
//
//	┌─────────────────────────────────────────────────────┐
//	│                 JenniferGenerator                   │
//	│  (orchestration: parallel execution, file writing)  │
//	└──────────────────────────┬──────────────────────────┘
//	                           │ uses
//	                           ▼
//	┌─────────────────────────────────────────────────────┐
//	│                      Dialect                        │
//	│  (adapter files and DDL of one database group)      │
//	└─────────────────────────────────────────────────────┘
//
// The sql package provides the SQLite dialect:
//
//	generator := gen.NewJenniferGenerator(graph, outDir)
//	generator.WithDialect(sql.NewDialect(generator))
type Dialect interface {
	// Name returns the dialect name (e.g., "sqlite").
	Name() string
	// GenAdapter generates the adapter file of an entity ({entity}.go).
	// It fails if the entity cannot be emitted completely.
	GenAdapter(db *Database, e *Entity) (*jen.File, error)
	// GenSchema generates the DDL of a database group (schema.sql).
	GenSchema(db *Database) ([]byte, error)
}

// GeneratorHelper provides helper methods for dialect implementations.
// JenniferGenerator implements this interface, allowing dialect packages
// to use helper methods without importing the full generator.
type GeneratorHelper interface {
	// NewFile creates a new Jennifer file with the standard header comment.
	NewFile(pkg string) *jen.File

	// Graph returns the schema graph.
	Graph() *Graph

	// FeatureEnabled reports if the given feature name is enabled.
	FeatureEnabled(name string) bool

	// AdapterName returns the name of the adapter variable of an entity.
	AdapterName(e *Entity) string
}
