package sql

import (
	"fmt"
	"slices"

	"github.com/syssam/schemagen/adapter"
	"github.com/syssam/schemagen/compiler/gen"
)

// Binders holds the ordered bind procedures of one entity. Slot n of a
// procedure binds the n-th placeholder of the matching template.
type Binders struct {
	Insert  []adapter.BindOp
	Save    []adapter.BindOp
	Update  []adapter.BindOp
	Delete  []adapter.BindOp
	Primary []adapter.BindOp
}

// NewBinders derives the bind procedures of a table. Views and query models
// are read-only and get none.
func NewBinders(e *gen.Entity) *Binders {
	if !e.IsTable() {
		return &Binders{}
	}
	b := &Binders{
		Insert:  bindOps(e, insertColumns(e), 1),
		Save:    bindOps(e, saveColumns(e), 1),
		Delete:  bindOps(e, e.PrimaryColumns(), 1),
		Primary: bindOps(e, e.PrimaryColumns(), 1),
	}
	if set := e.WritableColumns(); len(set) > 0 {
		b.Update = append(bindOps(e, set, 1), bindOps(e, e.PrimaryColumns(), len(set)+1)...)
	}
	return b
}

// bindOps binds cols to consecutive slots starting at first. The key of a
// virtual table is bound as its rowid.
func bindOps(e *gen.Entity, cols []*gen.Column, first int) []adapter.BindOp {
	if len(cols) == 0 {
		return nil
	}
	ops := make([]adapter.BindOp, len(cols))
	for i, c := range cols {
		name := c.Name
		if e.Virtual != nil && c.Field.IsAuto() {
			name = adapter.RowID
		}
		ops[i] = adapter.BindOp{
			Slot:      first + i,
			Column:    name,
			Path:      slices.Clone(c.Path),
			Type:      c.Type,
			Converter: c.ConverterName(),
			Nullable:  c.Nullable,
		}
	}
	return ops
}

// LoadOps derives the load procedure of an entity, one op per field in
// declaration order. Accessors come last.
func LoadOps(e *gen.Entity) []adapter.LoadOp {
	ops := make([]adapter.LoadOp, 0, len(e.Fields))
	for _, f := range e.Fields {
		ops = append(ops, loadOp(f))
	}
	return ops
}

func loadOp(f *gen.Field) adapter.LoadOp {
	path := []string{f.Name}
	switch f.Kind {
	case gen.SingleField:
		return columnLoad(f.Column, path)
	case gen.ForeignKeyField:
		target := f.Ref.Entity
		filter := make([]adapter.Filter, len(f.Ref.Columns))
		for i, c := range f.Ref.Columns {
			filter[i] = adapter.Filter{
				Column:     c.Name,
				Path:       slices.Clone(c.Path),
				TargetPath: slices.Clone(c.Path[1:]),
				Converter:  c.ConverterName(),
			}
		}
		return adapter.LoadOp{
			Kind:     adapter.LoadForeignKey,
			Path:     path,
			Target:   target.Name,
			Query:    SelectQuery(target, f.Ref.TargetColumns()),
			Filter:   filter,
			Deferred: f.Ref.Deferred,
		}
	case gen.ComputedField:
		parts := make([]adapter.LoadOp, len(f.Ref.Columns))
		for i, c := range f.Ref.Columns {
			parts[i] = columnLoad(c, c.Path[1:])
		}
		return adapter.LoadOp{
			Kind:   adapter.LoadComputed,
			Path:   path,
			Target: f.Ref.Target,
			Parts:  parts,
		}
	case gen.OneToManyField:
		acc := f.Ref.Accessor
		filter := make([]adapter.Filter, len(acc.Pairs))
		cols := make([]string, len(acc.Pairs))
		for i, p := range acc.Pairs {
			cols[i] = p.Child.Name
			filter[i] = adapter.Filter{
				Column:     p.Parent.Name,
				Path:       slices.Clone(p.Parent.Path),
				TargetPath: slices.Clone(p.Child.Path),
				Converter:  p.Parent.ConverterName(),
			}
		}
		return adapter.LoadOp{
			Kind:   adapter.LoadAccessor,
			Path:   path,
			Target: acc.Child.Name,
			Query:  SelectQuery(acc.Child, cols),
			Filter: filter,
			Eager:  acc.Eager,
		}
	default:
		panic(fmt.Sprintf("sql: unexpected field kind %v", f.Kind))
	}
}

func columnLoad(c *gen.Column, path []string) adapter.LoadOp {
	return adapter.LoadOp{
		Kind:       adapter.LoadColumn,
		Path:       slices.Clone(path),
		Column:     c.Name,
		Type:       c.Type,
		Converter:  c.ConverterName(),
		Default:    c.Default,
		HasDefault: c.HasDefault(),
	}
}
