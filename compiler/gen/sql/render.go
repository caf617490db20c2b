package sql

import (
	"bytes"
	"fmt"

	"github.com/dave/jennifer/jen"

	"github.com/syssam/schemagen/adapter"
	"github.com/syssam/schemagen/compiler/gen"
	"github.com/syssam/schemagen/dialect/sqlschema"
)

// Dialect implements gen.Dialect for SQLite. Every entity becomes one file
// declaring its adapter literal:
//
//	{output}/
//	└── {database}/
//	    ├── registry.go  # Name, Version, Adapters, NewRegistry
//	    ├── schema.sql   # creation and index queries (schema/dump)
//	    └── {entity}.go  # var {Entity}Adapter = &adapter.Adapter{...}
type Dialect struct {
	helper gen.GeneratorHelper
}

// NewDialect creates a new SQLite dialect generator.
// The helper parameter should be a *gen.JenniferGenerator.
func NewDialect(helper gen.GeneratorHelper) *Dialect {
	return &Dialect{helper: helper}
}

// Name returns the dialect name.
func (d *Dialect) Name() string {
	return "sqlite"
}

// GenAdapter generates the adapter file of an entity.
func (d *Dialect) GenAdapter(db *gen.Database, e *gen.Entity) (*jen.File, error) {
	a, err := BuildEntity(d.helper.Graph().Config, e)
	if err != nil {
		return nil, err
	}
	f := d.helper.NewFile(gen.PackageName(db))
	name := d.helper.AdapterName(e)
	f.Commentf("%s describes the %s %s stored in %s.", name, e.Kind, e.Name, e.Table)
	f.Var().Id(name).Op("=").Op("&").Qual(gen.AdapterPkg, "Adapter").Values(adapterDict(a))
	return f, nil
}

// GenSchema generates the DDL of a database group, one statement per line
// group, in creation order.
func (d *Dialect) GenSchema(db *gen.Database) ([]byte, error) {
	var buf bytes.Buffer
	for _, e := range db.Entities {
		a, err := BuildEntity(d.helper.Graph().Config, e)
		if err != nil {
			return nil, err
		}
		if a.CreationQuery != "" {
			fmt.Fprintf(&buf, "%s;\n", a.CreationQuery)
		}
		for _, q := range a.IndexQueries {
			fmt.Fprintf(&buf, "%s;\n", q)
		}
	}
	return buf.Bytes(), nil
}

var _ gen.Dialect = (*Dialect)(nil)

func adapterDict(a *adapter.Adapter) jen.Dict {
	d := jen.Dict{
		jen.Id("Entity"):   jen.Lit(a.Entity),
		jen.Id("Table"):    jen.Lit(a.Table),
		jen.Id("Database"): jen.Lit(a.Database),
		jen.Id("Kind"):     kindCode(a.Kind),
	}
	if a.CreateWithDatabase {
		d[jen.Id("CreateWithDatabase")] = jen.True()
	}
	if a.CacheSize > 0 {
		d[jen.Id("CacheSize")] = jen.Lit(a.CacheSize)
	}
	for key, q := range map[string]string{
		"CreationQuery": a.CreationQuery,
		"SelectQuery":   a.SelectQuery,
		"InsertQuery":   a.InsertQuery,
		"SaveQuery":     a.SaveQuery,
		"UpdateQuery":   a.UpdateQuery,
		"DeleteQuery":   a.DeleteQuery,
	} {
		if q != "" {
			d[jen.Id(key)] = jen.Lit(q)
		}
	}
	if len(a.IndexQueries) > 0 {
		d[jen.Id("IndexQueries")] = stringSlice(a.IndexQueries)
	}
	for key, ops := range map[string][]adapter.BindOp{
		"InsertBinds": a.InsertBinds,
		"SaveBinds":   a.SaveBinds,
		"UpdateBinds": a.UpdateBinds,
		"DeleteBinds": a.DeleteBinds,
		"Primary":     a.Primary,
	} {
		if len(ops) > 0 {
			d[jen.Id(key)] = bindOpsCode(ops)
		}
	}
	if len(a.Loads) > 0 {
		d[jen.Id("Loads")] = loadOpsCode(a.Loads)
	}
	if len(a.AutoIncrement) > 0 {
		d[jen.Id("AutoIncrement")] = stringSlice(a.AutoIncrement)
	}
	return d
}

func bindOpsCode(ops []adapter.BindOp) jen.Code {
	return jen.Index().Qual(gen.AdapterPkg, "BindOp").ValuesFunc(func(g *jen.Group) {
		for _, op := range ops {
			d := jen.Dict{
				jen.Id("Slot"):   jen.Lit(op.Slot),
				jen.Id("Column"): jen.Lit(op.Column),
				jen.Id("Path"):   stringSlice(op.Path),
				jen.Id("Type"):   typeCode(op.Type),
			}
			if op.Converter != "" {
				d[jen.Id("Converter")] = jen.Lit(op.Converter)
			}
			if op.Nullable {
				d[jen.Id("Nullable")] = jen.True()
			}
			g.Line().Values(d)
		}
		g.Line()
	})
}

func loadOpsCode(ops []adapter.LoadOp) jen.Code {
	return jen.Index().Qual(gen.AdapterPkg, "LoadOp").ValuesFunc(func(g *jen.Group) {
		for _, op := range ops {
			g.Line().Values(loadOpDict(op))
		}
		g.Line()
	})
}

func loadOpDict(op adapter.LoadOp) jen.Dict {
	d := jen.Dict{
		jen.Id("Kind"): loadKindCode(op.Kind),
		jen.Id("Path"): stringSlice(op.Path),
	}
	switch op.Kind {
	case adapter.LoadColumn:
		d[jen.Id("Column")] = jen.Lit(op.Column)
		d[jen.Id("Type")] = typeCode(op.Type)
		if op.Converter != "" {
			d[jen.Id("Converter")] = jen.Lit(op.Converter)
		}
		if op.HasDefault {
			d[jen.Id("Default")] = jen.Lit(op.Default)
			d[jen.Id("HasDefault")] = jen.True()
		}
	case adapter.LoadForeignKey, adapter.LoadAccessor:
		d[jen.Id("Target")] = jen.Lit(op.Target)
		d[jen.Id("Query")] = jen.Lit(op.Query)
		d[jen.Id("Filter")] = jen.Index().Qual(gen.AdapterPkg, "Filter").ValuesFunc(func(g *jen.Group) {
			for _, f := range op.Filter {
				fd := jen.Dict{
					jen.Id("Column"):     jen.Lit(f.Column),
					jen.Id("Path"):       stringSlice(f.Path),
					jen.Id("TargetPath"): stringSlice(f.TargetPath),
				}
				if f.Converter != "" {
					fd[jen.Id("Converter")] = jen.Lit(f.Converter)
				}
				g.Values(fd)
			}
		})
		if op.Deferred {
			d[jen.Id("Deferred")] = jen.True()
		}
		if op.Eager {
			d[jen.Id("Eager")] = jen.True()
		}
	case adapter.LoadComputed:
		d[jen.Id("Target")] = jen.Lit(op.Target)
		d[jen.Id("Parts")] = jen.Index().Qual(gen.AdapterPkg, "LoadOp").ValuesFunc(func(g *jen.Group) {
			for _, p := range op.Parts {
				g.Line().Values(loadOpDict(p))
			}
			g.Line()
		})
	default:
		panic(fmt.Sprintf("sql: unexpected load kind %q", op.Kind))
	}
	return d
}

func stringSlice(s []string) jen.Code {
	return jen.Index().String().ValuesFunc(func(g *jen.Group) {
		for _, v := range s {
			g.Lit(v)
		}
	})
}

func typeCode(t sqlschema.ColumnType) jen.Code {
	switch t {
	case sqlschema.Integer:
		return jen.Qual(gen.SQLSchemaPkg, "Integer")
	case sqlschema.Real:
		return jen.Qual(gen.SQLSchemaPkg, "Real")
	case sqlschema.Text:
		return jen.Qual(gen.SQLSchemaPkg, "Text")
	case sqlschema.Blob:
		return jen.Qual(gen.SQLSchemaPkg, "Blob")
	default:
		return jen.Qual(gen.SQLSchemaPkg, "ColumnType").Call(jen.Lit(string(t)))
	}
}

func kindCode(k adapter.Kind) jen.Code {
	switch k {
	case adapter.KindTable:
		return jen.Qual(gen.AdapterPkg, "KindTable")
	case adapter.KindJoinTable:
		return jen.Qual(gen.AdapterPkg, "KindJoinTable")
	case adapter.KindView:
		return jen.Qual(gen.AdapterPkg, "KindView")
	case adapter.KindQueryModel:
		return jen.Qual(gen.AdapterPkg, "KindQueryModel")
	default:
		panic(fmt.Sprintf("sql: unexpected adapter kind %q", k))
	}
}

func loadKindCode(k adapter.LoadKind) jen.Code {
	switch k {
	case adapter.LoadColumn:
		return jen.Qual(gen.AdapterPkg, "LoadColumn")
	case adapter.LoadForeignKey:
		return jen.Qual(gen.AdapterPkg, "LoadForeignKey")
	case adapter.LoadComputed:
		return jen.Qual(gen.AdapterPkg, "LoadComputed")
	case adapter.LoadAccessor:
		return jen.Qual(gen.AdapterPkg, "LoadAccessor")
	default:
		panic(fmt.Sprintf("sql: unexpected load kind %q", k))
	}
}
