// Package gen compiles schema declarations into a resolved schema graph and
// drives the generation of adapter code from it.
//
// # Architecture
//
// The compilation pipeline follows this flow:
//
//	Declarations (*.yaml, *.json, *.msgpack)
//	        ↓
//	   load.Set
//	        ↓
//	   CompilationContext (rounds: declare, classify, resolve, synthesize)
//	        ↓
//	   Graph (valid entities grouped by database)
//	        ↓
//	   Dialect (templates, binders, adapter files)
//	        ↓
//	   Generated code ({target}/{database}/)
//
// # Key Types
//
//   - CompilationContext: the mutable state of one compilation run
//   - Graph: the immutable result, with the diagnostics of the run
//   - Database: the entities of one database group, in creation order
//   - Entity: a table, join table, view or query model
//   - Field: a single column, foreign key, computed field or accessor
//   - Column: a resolved scalar column
//
// # Resolution
//
// Declarations may reference entities declared later or in another file.
// Resolution runs in rounds: an entity whose references point at undeclared
// entities is deferred to the next round. Reference holders are expanded
// recursively and memoized per (holder, prefix). A holder that re-enters
// itself, or an entity other than its own owner, is a cycle.
//
// # Errors
//
// A ValidationError or ResolutionError abandons one entity, and every entity
// depending on it. A ConsistencyError abandons a whole database group. The
// graph collects all of them; Graph.Err joins them.
//
// # Usage
//
//	cfg, err := gen.NewConfig(gen.WithTarget("./db"))
//	if err != nil {
//		return err
//	}
//	set, err := load.LoadDir("./schema")
//	if err != nil {
//		return err
//	}
//	graph, err := gen.NewGraph(cfg, set)
//	if err != nil {
//		return err
//	}
package gen
