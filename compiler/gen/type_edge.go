package gen

import (
	"github.com/syssam/schemagen/compiler/load"
	"github.com/syssam/schemagen/dialect/sqlschema"
)

// Reference is the target side of a reference holder.
type Reference struct {
	// Target is the declared name of the referenced entity.
	Target string
	// Entity is the referenced entity, set once the target is declared.
	Entity *Entity
	// Explicit holds the declared (local, target) pairs. Empty when the pairs
	// are derived from the target.
	Explicit []*load.Reference
	// Columns is the flattened reference list, set once the holder is resolved.
	Columns  []*Column
	OnUpdate sqlschema.CascadeAction
	OnDelete sqlschema.CascadeAction
	// Deferred loads a key stub instead of running a sub-query.
	Deferred bool
	// Accessor is set on OneToManyField references.
	Accessor *Accessor
}

// TargetColumns returns the names of the mirrored target columns.
func (r *Reference) TargetColumns() []string {
	names := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		names[i] = c.Target
	}
	return names
}

// LocalColumns returns the names of the local columns.
func (r *Reference) LocalColumns() []string {
	names := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		names[i] = c.Name
	}
	return names
}

// Accessor is the synthesized one-to-many relation from a parent entity to
// the child rows referencing it. It owns no storage.
type Accessor struct {
	Name   string
	Parent *Entity
	Child  *Entity
	// Field is the foreign key of Child that points at Parent.
	Field *Field
	// Pairs match the parent primary columns with the child foreign-key columns.
	Pairs []*FilterPair
	Eager bool
	Pos   string
}

// FilterPair is one parent-column = child-column condition.
type FilterPair struct {
	Parent *Column
	Child  *Column
}

// Join describes the many-to-many declaration a join table was synthesized for.
type Join struct {
	Owner     *Entity
	Reference *Entity
	Decl      *load.ManyToMany
}
