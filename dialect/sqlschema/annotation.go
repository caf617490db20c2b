// Package sqlschema holds the SQLite vocabulary shared by the schema compiler and
// the generated adapters: conflict-resolution clauses, foreign-key actions and
// storage classes.
//
// Declarations refer to these values by their SQL spelling:
//
//	insert_conflict: REPLACE
//	foreign_key:
//	  table: Author
//	  on_delete: CASCADE
//
// # Cascade Actions
//
// Available constants for OnDelete and OnUpdate:
//
//	sqlschema.Cascade    - Delete/update related rows
//	sqlschema.SetNull    - Set foreign key to NULL
//	sqlschema.Restrict   - Prevent delete/update if related rows exist
//	sqlschema.SetDefault - Set foreign key to default value
//	sqlschema.NoAction   - No action (database default)
package sqlschema

import (
	"fmt"
	"strings"
)

// CascadeAction defines cascade behavior for foreign key constraints.
type CascadeAction string

const (
	Cascade    CascadeAction = "CASCADE"
	SetNull    CascadeAction = "SET NULL"
	Restrict   CascadeAction = "RESTRICT"
	SetDefault CascadeAction = "SET DEFAULT"
	NoAction   CascadeAction = "NO ACTION"
)

// Valid reports if the action is one of the known SQLite actions.
func (a CascadeAction) Valid() bool {
	switch a {
	case Cascade, SetNull, Restrict, SetDefault, NoAction:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer.
func (a CascadeAction) String() string { return string(a) }

// ParseCascadeAction parses a declared foreign-key action. An empty string
// defaults to NO ACTION.
func ParseCascadeAction(s string) (CascadeAction, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return NoAction, nil
	}
	s = strings.ReplaceAll(s, "_", " ")
	if a := CascadeAction(s); a.Valid() {
		return a, nil
	}
	return "", fmt.Errorf("sqlschema: unknown foreign key action %q", s)
}

// ConflictAction is the SQLite conflict-resolution algorithm used by
// ON CONFLICT and INSERT OR / UPDATE OR clauses. The zero value means
// no clause is emitted.
type ConflictAction string

const (
	ConflictNone     ConflictAction = ""
	ConflictRollback ConflictAction = "ROLLBACK"
	ConflictAbort    ConflictAction = "ABORT"
	ConflictFail     ConflictAction = "FAIL"
	ConflictIgnore   ConflictAction = "IGNORE"
	ConflictReplace  ConflictAction = "REPLACE"
)

// Valid reports if the action is one of the known SQLite algorithms.
func (a ConflictAction) Valid() bool {
	switch a {
	case ConflictNone, ConflictRollback, ConflictAbort, ConflictFail, ConflictIgnore, ConflictReplace:
		return true
	default:
		return false
	}
}

// OnConflict returns the column or table constraint suffix, for example
// " ON CONFLICT REPLACE", or an empty string for ConflictNone.
func (a ConflictAction) OnConflict() string {
	if a == ConflictNone {
		return ""
	}
	return " ON CONFLICT " + string(a)
}

// Or returns the statement prefix used by INSERT and UPDATE, for example
// "OR IGNORE ", or an empty string for ConflictNone.
func (a ConflictAction) Or() string {
	if a == ConflictNone {
		return ""
	}
	return "OR " + string(a) + " "
}

// ParseConflictAction parses a declared conflict policy. "NONE" and the empty
// string both yield ConflictNone.
func ParseConflictAction(s string) (ConflictAction, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "NONE" {
		s = ""
	}
	if a := ConflictAction(s); a.Valid() {
		return a, nil
	}
	return "", fmt.Errorf("sqlschema: unknown conflict action %q", s)
}

// ColumnType is a SQLite storage class.
type ColumnType string

const (
	Integer ColumnType = "INTEGER"
	Real    ColumnType = "REAL"
	Text    ColumnType = "TEXT"
	Blob    ColumnType = "BLOB"
)

// Valid reports if the type is a known storage class.
func (t ColumnType) Valid() bool {
	switch t {
	case Integer, Real, Text, Blob:
		return true
	default:
		return false
	}
}

// ParseColumnType parses a storage class name case-insensitively.
func ParseColumnType(s string) (ColumnType, error) {
	t := ColumnType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("sqlschema: unknown column type %q", s)
	}
	return t, nil
}

// Quote wraps an identifier in backquotes.
func Quote(name string) string {
	return "`" + name + "`"
}

// QuoteAll quotes every identifier and joins them with commas.
func QuoteAll(names []string) string {
	var b strings.Builder
	for i, n := range names {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(Quote(n))
	}
	return b.String()
}
