package gen

import (
	"fmt"

	"github.com/syssam/schemagen/compiler/load"
	"github.com/syssam/schemagen/dialect/sqlschema"
)

// FieldKind is the closed set of field shapes. Every switch over a FieldKind
// handles all four values.
type FieldKind uint8

const (
	// SingleField is stored in exactly one column.
	SingleField FieldKind = iota
	// ForeignKeyField expands to the primary columns of a table.
	ForeignKeyField
	// ComputedField expands to the projection columns of another entity.
	ComputedField
	// OneToManyField lists the child rows that reference the owner. It has no storage.
	OneToManyField
)

// String implements fmt.Stringer.
func (k FieldKind) String() string {
	switch k {
	case SingleField:
		return "single"
	case ForeignKeyField:
		return "foreign_key"
	case ComputedField:
		return "computed"
	case OneToManyField:
		return "one_to_many"
	default:
		return fmt.Sprintf("FieldKind(%d)", uint8(k))
	}
}

// Class is the classifier verdict of a field.
type Class uint8

const (
	ClassSimple Class = iota
	ClassPrimaryKey
	ClassForeignKey
	ClassComputed
	ClassOneToManyAccessor
)

// String implements fmt.Stringer.
func (c Class) String() string {
	switch c {
	case ClassSimple:
		return "Simple"
	case ClassPrimaryKey:
		return "PrimaryKey"
	case ClassForeignKey:
		return "ForeignKey"
	case ClassComputed:
		return "Computed"
	case ClassOneToManyAccessor:
		return "OneToManyAccessor"
	default:
		return fmt.Sprintf("Class(%d)", uint8(c))
	}
}

// PrimaryMode tells how a field takes part in the primary key.
type PrimaryMode uint8

const (
	PrimaryNone PrimaryMode = iota
	PrimaryAutoIncrement
	PrimaryRowID
	PrimaryComposite
)

// String implements fmt.Stringer.
func (m PrimaryMode) String() string {
	switch m {
	case PrimaryNone:
		return "none"
	case PrimaryAutoIncrement:
		return "autoincrement"
	case PrimaryRowID:
		return "rowid"
	case PrimaryComposite:
		return "composite"
	default:
		return fmt.Sprintf("PrimaryMode(%d)", uint8(m))
	}
}

// Field of an entity.
type Field struct {
	// Name of the field in the model.
	Name string
	// Kind of the field.
	Kind FieldKind
	// Primary is the role of the field in the primary key.
	Primary PrimaryMode
	// Position in the declaration.
	Position int
	// Comment of the declaration, if any.
	Comment string

	// Column is the stored column of a SingleField.
	Column *Column
	// Ref is the reference of a ForeignKeyField, ComputedField or OneToManyField.
	Ref *Reference

	Enum            []string
	Unique          bool
	UniqueConflict  sqlschema.ConflictAction
	NotNullConflict sqlschema.ConflictAction
	UniqueGroups    []int
	IndexGroups     []int

	// prefix names the auto-derived columns of a holder.
	prefix    string
	converter string
	decl      *load.Field
	owner     *Entity
}

// Class returns the classifier verdict of the field.
func (f *Field) Class() Class {
	switch f.Kind {
	case SingleField:
		if f.Primary != PrimaryNone {
			return ClassPrimaryKey
		}
		return ClassSimple
	case ForeignKeyField:
		return ClassForeignKey
	case ComputedField:
		return ClassComputed
	case OneToManyField:
		return ClassOneToManyAccessor
	default:
		panic(fmt.Sprintf("gen: unexpected field kind %v", f.Kind))
	}
}

// IsHolder reports if the field expands to other columns.
func (f *Field) IsHolder() bool {
	switch f.Kind {
	case SingleField:
		return false
	case ForeignKeyField, ComputedField, OneToManyField:
		return true
	default:
		panic(fmt.Sprintf("gen: unexpected field kind %v", f.Kind))
	}
}

// IsAuto reports if the engine assigns the value of the field.
func (f *Field) IsAuto() bool {
	return f.Primary == PrimaryAutoIncrement || f.Primary == PrimaryRowID
}

// IsPrimary reports if the field is part of the primary key.
func (f *Field) IsPrimary() bool {
	return f.Primary != PrimaryNone
}

// IsEnum reports if the field holds an enumeration.
func (f *Field) IsEnum() bool {
	return len(f.Enum) > 0 || (f.decl != nil && f.decl.IsEnum())
}

// Owner returns the entity the field belongs to.
func (f *Field) Owner() *Entity { return f.owner }

// Prefix returns the name prefix of auto-derived holder columns.
func (f *Field) Prefix() string { return f.prefix }

// Columns returns the stored columns of the field, in order.
func (f *Field) Columns() []*Column {
	switch f.Kind {
	case SingleField:
		return []*Column{f.Column}
	case ForeignKeyField, ComputedField:
		return f.Ref.Columns
	case OneToManyField:
		return nil
	default:
		panic(fmt.Sprintf("gen: unexpected field kind %v", f.Kind))
	}
}

// Column is a resolved scalar column.
type Column struct {
	// Name of the column.
	Name string
	// Target is the mirrored column of the referenced entity. Empty for own columns.
	Target    string
	ModelType string
	Type      sqlschema.ColumnType
	NotNull   bool
	Nullable  bool
	Default   string
	Length    int
	Collate   string
	Unique    bool
	Converter *ConverterBinding
	// Path locates the value in the model of the owning entity.
	Path []string
	// Field is the top-level field that introduced the column.
	Field *Field
}

// HasDefault reports if the column declares a default literal.
func (c *Column) HasDefault() bool { return c.Default != "" }

// ConverterName returns the converter name, or an empty string.
func (c *Column) ConverterName() string {
	if c.Converter == nil {
		return ""
	}
	return c.Converter.Name
}

// clone returns a copy of the column, with its own path slice.
func (c *Column) clone() *Column {
	cp := *c
	cp.Path = append([]string(nil), c.Path...)
	return &cp
}
