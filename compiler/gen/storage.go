package gen

import (
	"cmp"
	"slices"

	"github.com/syssam/schemagen/compiler/load"
)

// Database is a database group of the graph. Entities are in creation order:
// tables, then join tables, then views, then query models. Tables are
// ordered after the tables they reference where the references allow it,
// and by name otherwise.
type Database struct {
	Name        string
	Version     int
	ForeignKeys bool
	Entities    []*Entity
}

func newDatabase(name string, decl *load.Database, entities []*Entity) *Database {
	db := &Database{Name: name, Version: 1}
	if decl != nil {
		db.ForeignKeys = decl.ForeignKeys
		if decl.Version > 0 {
			db.Version = decl.Version
		}
	}
	buckets := make([][]*Entity, 4)
	for _, e := range entities {
		buckets[e.Kind] = append(buckets[e.Kind], e)
	}
	for _, b := range buckets {
		slices.SortFunc(b, func(a, b *Entity) int { return cmp.Compare(a.Name, b.Name) })
	}
	db.Entities = append(db.Entities, creationOrder(buckets[KindTable])...)
	for _, k := range []EntityKind{KindJoinTable, KindView, KindQueryModel} {
		db.Entities = append(db.Entities, buckets[k]...)
	}
	return db
}

// creationOrder sorts tables so that referenced tables come first. Ties, and
// tables caught in reference cycles, keep the name order.
func creationOrder(tables []*Entity) []*Entity {
	in := make(map[*Entity]bool, len(tables))
	for _, t := range tables {
		in[t] = true
	}
	var (
		order []*Entity
		done  = make(map[*Entity]bool, len(tables))
	)
	ready := func(t *Entity) bool {
		for _, f := range t.ForeignKeys() {
			if dep := f.Ref.Entity; dep != t && in[dep] && !done[dep] {
				return false
			}
		}
		return true
	}
	for len(order) < len(tables) {
		next := -1
		for i, t := range tables {
			if !done[t] && ready(t) {
				next = i
				break
			}
		}
		if next < 0 {
			// Reference cycle between tables: fall back to the name order.
			next = slices.IndexFunc(tables, func(t *Entity) bool { return !done[t] })
		}
		done[tables[next]] = true
		order = append(order, tables[next])
	}
	return order
}

// Tables returns the entities owning a table.
func (db *Database) Tables() []*Entity {
	var tables []*Entity
	for _, e := range db.Entities {
		if e.IsTable() {
			tables = append(tables, e)
		}
	}
	return tables
}

// Entity returns the entity with the given name.
func (db *Database) Entity(name string) (*Entity, bool) {
	i := slices.IndexFunc(db.Entities, func(e *Entity) bool { return e.Name == name })
	if i < 0 {
		return nil, false
	}
	return db.Entities[i], true
}
