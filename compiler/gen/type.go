package gen

import (
	"errors"
	"fmt"
	"go/token"
	"slices"
	"strings"

	"github.com/syssam/schemagen/compiler/load"
	"github.com/syssam/schemagen/dialect/sqlschema"
)

// EntityKind is the kind of a resolved entity.
type EntityKind uint8

const (
	KindTable EntityKind = iota
	KindJoinTable
	KindView
	KindQueryModel
)

// String implements fmt.Stringer.
func (k EntityKind) String() string {
	switch k {
	case KindTable:
		return "table"
	case KindJoinTable:
		return "join_table"
	case KindView:
		return "view"
	case KindQueryModel:
		return "query_model"
	default:
		return fmt.Sprintf("EntityKind(%d)", uint8(k))
	}
}

// entityState tracks an entity through the resolution rounds.
type entityState uint8

const (
	stateDeclared entityState = iota
	stateResolved
	stateFailed
)

type (
	// Entity is a table, join table, view or query model of the schema graph.
	// It is immutable once the graph is finalized.
	Entity struct {
		// Name is the declared name.
		Name string
		// Table is the storage name.
		Table    string
		Database string
		Kind     EntityKind
		// Fields in declaration order. Accessor fields are appended after the
		// declared ones.
		Fields []*Field
		// Primary is the primary-field subset, in declaration order.
		Primary []*Field
		// AutoIncrement is the single auto-increment or rowid field, if any.
		AutoIncrement      *Field
		InsertConflict     sqlschema.ConflictAction
		UpdateConflict     sqlschema.ConflictAction
		PrimaryKeyConflict sqlschema.ConflictAction
		Temporary          bool
		CreateWithDatabase bool
		// CacheSize is zero when caching is disabled.
		CacheSize    int
		Query        string
		Virtual      *Virtual
		UniqueGroups []*UniqueGroup
		IndexGroups  []*IndexGroup
		Join         *Join
		Accessors    []*Accessor
		Pos          string

		decl  *load.Declaration
		state entityState
		// deferredOn names the missing target of the last resolution attempt.
		deferredOn    string
		deferredField string
		errs          []error
		fields        map[string]*Field
	}

	// Virtual describes an FTS virtual table.
	Virtual struct {
		Module string
		// Content is the entity of the external content table, if any.
		Content string
		// ContentTable is the storage name of Content, set on resolution.
		ContentTable string
	}

	// UniqueGroup is a multi-column UNIQUE constraint.
	UniqueGroup struct {
		Number   int
		Conflict sqlschema.ConflictAction
		Columns  []*Column
	}

	// IndexGroup is a named index.
	IndexGroup struct {
		Number  int
		Name    string
		Unique  bool
		Columns []*Column
	}
)

// Valid reports if the entity resolved without errors.
func (e *Entity) Valid() bool { return e.state == stateResolved }

// Errors returns the diagnostics recorded against the entity.
func (e *Entity) Errors() []error { return slices.Clone(e.errs) }

// IsTable reports if the entity owns a table.
func (e *Entity) IsTable() bool { return e.Kind == KindTable || e.Kind == KindJoinTable }

// IsView reports if the entity is a view.
func (e *Entity) IsView() bool { return e.Kind == KindView }

// IsQueryModel reports if the entity is a query model.
func (e *Entity) IsQueryModel() bool { return e.Kind == KindQueryModel }

// HasAutoIncrement reports if the entity uses a single engine-assigned key.
func (e *Entity) HasAutoIncrement() bool { return e.AutoIncrement != nil }

// HasCompositeKey reports if the entity uses a composite primary key.
func (e *Entity) HasCompositeKey() bool { return e.AutoIncrement == nil && len(e.Primary) > 0 }

// Field returns the field with the given name.
func (e *Entity) Field(name string) (*Field, bool) {
	f, ok := e.fields[name]
	return f, ok
}

// Columns returns the stored columns of the entity in field order.
func (e *Entity) Columns() []*Column {
	var cols []*Column
	for _, f := range e.Fields {
		cols = append(cols, f.Columns()...)
	}
	return cols
}

// Column returns the stored column with the given name.
func (e *Entity) Column(name string) (*Column, bool) {
	for _, c := range e.Columns() {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// PrimaryColumns returns the flattened primary columns in declaration order.
func (e *Entity) PrimaryColumns() []*Column {
	var cols []*Column
	for _, f := range e.Primary {
		cols = append(cols, f.Columns()...)
	}
	return cols
}

// WritableColumns returns the stored columns without the engine-assigned key.
func (e *Entity) WritableColumns() []*Column {
	var cols []*Column
	for _, f := range e.Fields {
		if f.IsAuto() {
			continue
		}
		cols = append(cols, f.Columns()...)
	}
	return cols
}

// ForeignKeys returns the foreign-key fields in declaration order.
func (e *Entity) ForeignKeys() []*Field {
	var fks []*Field
	for _, f := range e.Fields {
		if f.Kind == ForeignKeyField {
			fks = append(fks, f)
		}
	}
	return fks
}

// Targets returns the names of the entities the entity depends on, sorted.
func (e *Entity) Targets() []string {
	var names []string
	for _, f := range e.Fields {
		if f.Ref != nil && !slices.Contains(names, f.Ref.Target) {
			names = append(names, f.Ref.Target)
		}
	}
	slices.Sort(names)
	return names
}

// String implements fmt.Stringer.
func (e *Entity) String() string {
	return e.Name
}

// addField registers a field on the entity.
func (e *Entity) addField(f *Field) error {
	if _, ok := e.fields[f.Name]; ok {
		return fmt.Errorf("field %q redeclared", f.Name)
	}
	f.owner = e
	e.fields[f.Name] = f
	e.Fields = append(e.Fields, f)
	return nil
}

// ValidEntityName reports an error if the name cannot name an entity. Entity
// names become Go identifiers and file names in the generated code.
func ValidEntityName(name string) error {
	// Check for empty name.
	if name == "" {
		return errors.New("entity name cannot be empty")
	}
	// Check for path traversal characters to prevent directory escape attacks.
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("entity name %q contains path separator characters", name)
	}
	if strings.Contains(name, "..") {
		return fmt.Errorf("entity name %q contains parent directory reference", name)
	}
	// Validate that the name is a valid Go identifier.
	if !token.IsIdentifier(name) {
		return fmt.Errorf("entity name %q is not a valid Go identifier", name)
	}
	return nil
}
