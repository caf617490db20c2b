package sql

import (
	"errors"
	"fmt"
	"strings"

	"github.com/syssam/schemagen/adapter"
	"github.com/syssam/schemagen/compiler/gen"
)

// BuildEntity assembles the adapter of a valid entity. It fails, and nothing
// of the entity is emitted, if a template and its binder disagree on the
// number of placeholders.
func BuildEntity(cfg *gen.Config, e *gen.Entity) (*adapter.Adapter, error) {
	if !e.Valid() {
		return nil, fmt.Errorf("sql: entity %s did not resolve", e.Name)
	}
	t := NewTemplates(cfg, e)
	b := NewBinders(e)
	for _, check := range []struct {
		name  string
		query string
		ops   []adapter.BindOp
	}{
		{"insert", t.Insert, b.Insert},
		{"save", t.Save, b.Save},
		{"update", t.Update, b.Update},
		{"delete", t.Delete, b.Delete},
	} {
		if n := strings.Count(check.query, "?"); n != len(check.ops) {
			return nil, fmt.Errorf("sql: %s %s template has %d placeholders and %d binds", e.Name, check.name, n, len(check.ops))
		}
	}
	a := &adapter.Adapter{
		Entity:             e.Name,
		Table:              e.Table,
		Database:           e.Database,
		Kind:               kind(e.Kind),
		CreateWithDatabase: e.CreateWithDatabase,
		CacheSize:          e.CacheSize,
		CreationQuery:      t.Creation,
		IndexQueries:       t.Indexes,
		SelectQuery:        t.Select,
		InsertQuery:        t.Insert,
		SaveQuery:          t.Save,
		UpdateQuery:        t.Update,
		DeleteQuery:        t.Delete,
		InsertBinds:        b.Insert,
		SaveBinds:          b.Save,
		UpdateBinds:        b.Update,
		DeleteBinds:        b.Delete,
		Loads:              LoadOps(e),
		Primary:            b.Primary,
	}
	if e.HasAutoIncrement() {
		a.AutoIncrement = []string{e.AutoIncrement.Name}
	}
	return a, nil
}

// Build assembles the adapters of every valid entity of the graph, in
// database and creation order. Entities that fail to build are skipped and
// their errors are joined into the returned error.
func Build(g *gen.Graph) ([]*adapter.Adapter, error) {
	var (
		adapters []*adapter.Adapter
		errs     []error
	)
	for _, db := range g.Databases {
		for _, e := range db.Entities {
			a, err := BuildEntity(g.Config, e)
			if err != nil {
				errs = append(errs, gen.NewGenerationError("adapter", gen.FileName(e), e.Name, err))
				continue
			}
			adapters = append(adapters, a)
		}
	}
	return adapters, errors.Join(errs...)
}

func kind(k gen.EntityKind) adapter.Kind {
	switch k {
	case gen.KindTable:
		return adapter.KindTable
	case gen.KindJoinTable:
		return adapter.KindJoinTable
	case gen.KindView:
		return adapter.KindView
	case gen.KindQueryModel:
		return adapter.KindQueryModel
	default:
		panic(fmt.Sprintf("sql: unexpected entity kind %v", k))
	}
}
