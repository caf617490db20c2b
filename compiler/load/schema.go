// Package load reads schema declarations into plain, serializable records.
//
// Declarations are immutable once loaded: the compiler in package gen consumes
// them by pointer but never writes to them.
package load

import (
	"fmt"
	"slices"
)

// Kind of a declared entity.
type Kind string

const (
	KindTable      Kind = "table"
	KindView       Kind = "view"
	KindQueryModel Kind = "query_model"
)

// Valid reports if k is a known entity kind. The empty kind is treated as a table.
func (k Kind) Valid() bool {
	switch k {
	case "", KindTable, KindView, KindQueryModel:
		return true
	default:
		return false
	}
}

// Set is the collection of declarations the compiler consumes in one round.
type Set struct {
	Databases  []*Database      `json:"databases,omitempty" yaml:"databases,omitempty"`
	Entities   []*Declaration   `json:"entities,omitempty" yaml:"entities,omitempty"`
	ManyToMany []*ManyToMany    `json:"many_to_many,omitempty" yaml:"many_to_many,omitempty"`
	OneToMany  []*OneToMany     `json:"one_to_many,omitempty" yaml:"one_to_many,omitempty"`
	Converters []*TypeConverter `json:"converters,omitempty" yaml:"converters,omitempty"`
}

// Database declares a database group.
type Database struct {
	Name        string `json:"name" yaml:"name"`
	Version     int    `json:"version,omitempty" yaml:"version,omitempty"`
	ForeignKeys bool   `json:"foreign_keys,omitempty" yaml:"foreign_keys,omitempty"`
	// InsertConflict and UpdateConflict are the defaults for entities of this
	// database that do not declare their own policy.
	InsertConflict string `json:"insert_conflict,omitempty" yaml:"insert_conflict,omitempty"`
	UpdateConflict string `json:"update_conflict,omitempty" yaml:"update_conflict,omitempty"`
	Pos            string `json:"-" yaml:"-"`
}

// Declaration is a table, view or query-model declaration.
type Declaration struct {
	Name               string          `json:"name" yaml:"name"`
	Kind               Kind            `json:"kind,omitempty" yaml:"kind,omitempty"`
	Database           string          `json:"database,omitempty" yaml:"database,omitempty"`
	Table              string          `json:"table,omitempty" yaml:"table,omitempty"`
	Fields             []*Field        `json:"fields,omitempty" yaml:"fields,omitempty"`
	InsertConflict     string          `json:"insert_conflict,omitempty" yaml:"insert_conflict,omitempty"`
	UpdateConflict     string          `json:"update_conflict,omitempty" yaml:"update_conflict,omitempty"`
	PrimaryKeyConflict string          `json:"primary_key_conflict,omitempty" yaml:"primary_key_conflict,omitempty"`
	Temporary          bool            `json:"temporary,omitempty" yaml:"temporary,omitempty"`
	CreateWithDatabase *bool           `json:"create_with_database,omitempty" yaml:"create_with_database,omitempty"`
	Caching            *Caching        `json:"caching,omitempty" yaml:"caching,omitempty"`
	Query              string          `json:"query,omitempty" yaml:"query,omitempty"`
	Virtual            *Virtual        `json:"virtual,omitempty" yaml:"virtual,omitempty"`
	UniqueGroups       []*UniqueGroup  `json:"unique_groups,omitempty" yaml:"unique_groups,omitempty"`
	IndexGroups        []*IndexGroup   `json:"index_groups,omitempty" yaml:"index_groups,omitempty"`
	ManyToMany         []*ManyToMany   `json:"many_to_many,omitempty" yaml:"many_to_many,omitempty"`
	OneToMany          []*OneToMany    `json:"one_to_many,omitempty" yaml:"one_to_many,omitempty"`
	Annotations        map[string]any  `json:"annotations,omitempty" yaml:"annotations,omitempty"`
	Pos                string          `json:"-" yaml:"-"`
}

// Caching enables the model cache of an entity.
type Caching struct {
	Size int `json:"size,omitempty" yaml:"size,omitempty"`
}

// Virtual marks a declaration as an FTS virtual table.
type Virtual struct {
	// Module is FTS3 or FTS4.
	Module string `json:"module,omitempty" yaml:"module,omitempty"`
	// Content names the external content table of an FTS4 table.
	Content string `json:"content,omitempty" yaml:"content,omitempty"`
}

// UniqueGroup declares a multi-column UNIQUE constraint.
type UniqueGroup struct {
	Number   int    `json:"number" yaml:"number"`
	Conflict string `json:"conflict,omitempty" yaml:"conflict,omitempty"`
}

// IndexGroup declares a named index over the fields that reference its number.
type IndexGroup struct {
	Number int    `json:"number" yaml:"number"`
	Name   string `json:"name" yaml:"name"`
	Unique bool   `json:"unique,omitempty" yaml:"unique,omitempty"`
}

// Field declares a column, a foreign key, a computed field or a to-many accessor.
type Field struct {
	Name            string      `json:"name" yaml:"name"`
	Column          *string     `json:"column,omitempty" yaml:"column,omitempty"`
	Type            string      `json:"type,omitempty" yaml:"type,omitempty"`
	NotNull         bool        `json:"not_null,omitempty" yaml:"not_null,omitempty"`
	NotNullConflict string      `json:"not_null_conflict,omitempty" yaml:"not_null_conflict,omitempty"`
	Default         string      `json:"default,omitempty" yaml:"default,omitempty"`
	Length          int         `json:"length,omitempty" yaml:"length,omitempty"`
	Collate         string      `json:"collate,omitempty" yaml:"collate,omitempty"`
	Converter       string      `json:"converter,omitempty" yaml:"converter,omitempty"`
	Unique          bool        `json:"unique,omitempty" yaml:"unique,omitempty"`
	UniqueConflict  string      `json:"unique_conflict,omitempty" yaml:"unique_conflict,omitempty"`
	UniqueGroups    []int       `json:"unique_groups,omitempty" yaml:"unique_groups,omitempty"`
	IndexGroups     []int       `json:"index_groups,omitempty" yaml:"index_groups,omitempty"`
	Enum            []string    `json:"enum,omitempty" yaml:"enum,omitempty"`
	PrimaryKey      *PrimaryKey `json:"primary_key,omitempty" yaml:"primary_key,omitempty"`
	ForeignKey      *ForeignKey `json:"foreign_key,omitempty" yaml:"foreign_key,omitempty"`
	Computed        *Computed   `json:"computed,omitempty" yaml:"computed,omitempty"`
	Comment         string      `json:"comment,omitempty" yaml:"comment,omitempty"`
	Position        int         `json:"-" yaml:"-"`
}

// IsEnum reports if the field holds an enumeration.
func (f *Field) IsEnum() bool {
	return f.Type == "enum" || len(f.Enum) > 0
}

// PrimaryKey marks a field as (part of) the primary key.
type PrimaryKey struct {
	AutoIncrement bool `json:"auto_increment,omitempty" yaml:"auto_increment,omitempty"`
	RowID         bool `json:"rowid,omitempty" yaml:"rowid,omitempty"`
}

// ForeignKey marks a field as a reference to another table.
type ForeignKey struct {
	Table      string       `json:"table" yaml:"table"`
	References []*Reference `json:"references,omitempty" yaml:"references,omitempty"`
	OnUpdate   string       `json:"on_update,omitempty" yaml:"on_update,omitempty"`
	OnDelete   string       `json:"on_delete,omitempty" yaml:"on_delete,omitempty"`
	// Deferred loads a stub holding only the referenced key values instead
	// of running a sub-query.
	Deferred bool `json:"deferred,omitempty" yaml:"deferred,omitempty"`
}

// Computed marks a field whose value is assembled from the stored columns of
// another entity's projection.
type Computed struct {
	Target     string       `json:"target" yaml:"target"`
	References []*Reference `json:"references,omitempty" yaml:"references,omitempty"`
}

// Reference is an explicit (local column, target column) pair.
type Reference struct {
	Column  string `json:"column" yaml:"column"`
	Foreign string `json:"foreign" yaml:"foreign"`
	NotNull bool   `json:"not_null,omitempty" yaml:"not_null,omitempty"`
}

// ManyToMany declares an implicit join table between two tables.
type ManyToMany struct {
	Owner     string `json:"owner,omitempty" yaml:"owner,omitempty"`
	Reference string `json:"reference" yaml:"reference"`
	// Name overrides the join-table name.
	Name                  string `json:"name,omitempty" yaml:"name,omitempty"`
	GenerateAutoIncrement *bool  `json:"generate_auto_increment,omitempty" yaml:"generate_auto_increment,omitempty"`
	OwnerColumn           string `json:"owner_column,omitempty" yaml:"owner_column,omitempty"`
	ReferenceColumn       string `json:"reference_column,omitempty" yaml:"reference_column,omitempty"`
	Pos                   string `json:"-" yaml:"-"`
}

// AutoIncrement reports if the join table gets a surrogate key.
func (m *ManyToMany) AutoIncrement() bool {
	return m.GenerateAutoIncrement == nil || *m.GenerateAutoIncrement
}

// OneToMany declares a to-many accessor on Parent listing the Child rows that
// reference it.
type OneToMany struct {
	Parent string `json:"parent,omitempty" yaml:"parent,omitempty"`
	Name   string `json:"name" yaml:"name"`
	Child  string `json:"child" yaml:"child"`
	// Reference names the foreign-key field on Child. When empty the single
	// foreign key of Child targeting Parent is used.
	Reference string `json:"reference,omitempty" yaml:"reference,omitempty"`
	Eager     bool   `json:"eager,omitempty" yaml:"eager,omitempty"`
	Pos       string `json:"-" yaml:"-"`
}

// TypeConverter registers a converter for a model type.
type TypeConverter struct {
	Name       string `json:"name" yaml:"name"`
	ModelType  string `json:"model_type" yaml:"model_type"`
	StoredType string `json:"stored_type" yaml:"stored_type"`
	// NonNull reports that the stored value is never NULL, whatever the
	// nullability of the model value.
	NonNull bool   `json:"non_null,omitempty" yaml:"non_null,omitempty"`
	Pos     string `json:"-" yaml:"-"`
}

// Normalize moves inline many-to-many and one-to-many declarations into the
// standalone lists and fills in positions. It is idempotent.
func (s *Set) Normalize(source string) {
	for i, d := range s.Entities {
		if d.Pos == "" {
			d.Pos = fmt.Sprintf("%s:entities[%d]", source, i)
		}
		for j, f := range d.Fields {
			f.Position = j
		}
		for _, m := range d.ManyToMany {
			if m.Owner == "" {
				m.Owner = d.Name
			}
			if m.Pos == "" {
				m.Pos = d.Pos
			}
			s.ManyToMany = append(s.ManyToMany, m)
		}
		d.ManyToMany = nil
		for _, o := range d.OneToMany {
			if o.Parent == "" {
				o.Parent = d.Name
			}
			if o.Pos == "" {
				o.Pos = d.Pos
			}
			s.OneToMany = append(s.OneToMany, o)
		}
		d.OneToMany = nil
	}
	for i, m := range s.ManyToMany {
		if m.Pos == "" {
			m.Pos = fmt.Sprintf("%s:many_to_many[%d]", source, i)
		}
	}
	for i, o := range s.OneToMany {
		if o.Pos == "" {
			o.Pos = fmt.Sprintf("%s:one_to_many[%d]", source, i)
		}
	}
	for i, c := range s.Converters {
		if c.Pos == "" {
			c.Pos = fmt.Sprintf("%s:converters[%d]", source, i)
		}
	}
	for i, db := range s.Databases {
		if db.Pos == "" {
			db.Pos = fmt.Sprintf("%s:databases[%d]", source, i)
		}
	}
}

// Merge appends the declarations of o to s.
func (s *Set) Merge(o *Set) {
	if o == nil {
		return
	}
	s.Databases = append(s.Databases, o.Databases...)
	s.Entities = append(s.Entities, o.Entities...)
	s.ManyToMany = append(s.ManyToMany, o.ManyToMany...)
	s.OneToMany = append(s.OneToMany, o.OneToMany...)
	s.Converters = append(s.Converters, o.Converters...)
}

// Names returns the sorted entity names of the set.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.Entities))
	for _, d := range s.Entities {
		names = append(names, d.Name)
	}
	slices.Sort(names)
	return names
}
