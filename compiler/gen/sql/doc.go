// Package sql is the SQLite dialect of the schema compiler. It derives, for
// every resolved entity, the DDL and DML templates and the bind and load
// procedures, and renders them as an adapter.Adapter literal:
//
//	generator := gen.NewJenniferGenerator(graph, outDir)
//	generator.WithDialect(sql.NewDialect(generator))
//	if err := generator.Generate(ctx); err != nil {
//		return err
//	}
//
// Templates and binders are built from the same column lists, so the n-th
// placeholder of a template is always bound by the n-th op of its binder.
package sql
