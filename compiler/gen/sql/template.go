package sql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/syssam/schemagen/adapter"
	"github.com/syssam/schemagen/compiler/gen"
	"github.com/syssam/schemagen/dialect/sqlschema"
)

// Templates holds the SQL text of one entity.
type Templates struct {
	Creation string
	Indexes  []string
	Select   string
	Insert   string
	Save     string
	Update   string
	Delete   string
}

// NewTemplates derives the SQL text of an entity. Every statement lists its
// columns in the same order the binders of the entity bind them.
func NewTemplates(cfg *gen.Config, e *gen.Entity) *Templates {
	t := &Templates{Creation: CreationQuery(cfg, e)}
	if !e.IsQueryModel() {
		t.Select = SelectFrom(e)
	}
	if !e.IsTable() {
		return t
	}
	t.Indexes = IndexQueries(e)
	t.Insert = InsertQuery(e)
	t.Save = SaveQuery(e)
	t.Update = UpdateQuery(e)
	t.Delete = DeleteQuery(e)
	return t
}

// CreationQuery returns the CREATE statement of an entity. Query models have
// no creation statement.
func CreationQuery(cfg *gen.Config, e *gen.Entity) string {
	switch e.Kind {
	case gen.KindTable, gen.KindJoinTable:
		if e.Virtual != nil {
			return virtualTable(e)
		}
		return createTable(cfg, e)
	case gen.KindView:
		return "CREATE VIEW IF NOT EXISTS " + e.Table + " AS " + e.Query
	case gen.KindQueryModel:
		return ""
	default:
		panic(fmt.Sprintf("sql: unexpected entity kind %v", e.Kind))
	}
}

// createTable renders:
//
//	CREATE [TEMP] TABLE IF NOT EXISTS <name>(<col defs>[, UNIQUE(..)]*
//	  [, PRIMARY KEY(..)][, FOREIGN KEY(..) REFERENCES ..]*)
//
// A single auto-increment or rowid key gets no PRIMARY KEY clause.
func createTable(cfg *gen.Config, e *gen.Entity) string {
	var b strings.Builder
	b.WriteString("CREATE ")
	if e.Temporary {
		b.WriteString("TEMP ")
	}
	b.WriteString("TABLE IF NOT EXISTS ")
	b.WriteString(e.Table)
	b.WriteByte('(')
	alias := cfg != nil && cfg.FeatureOn(gen.FeatureRowIDAlias)
	for i, c := range e.Columns() {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(columnDef(e, c, alias))
	}
	for _, g := range e.UniqueGroups {
		b.WriteString(", UNIQUE(")
		b.WriteString(quoteColumns(e, g.Columns))
		b.WriteByte(')')
		b.WriteString(g.Conflict.OnConflict())
	}
	if e.HasCompositeKey() {
		b.WriteString(", PRIMARY KEY(")
		b.WriteString(quoteColumns(e, e.PrimaryColumns()))
		b.WriteByte(')')
		b.WriteString(e.PrimaryKeyConflict.OnConflict())
	}
	for _, f := range e.ForeignKeys() {
		fmt.Fprintf(&b, ", FOREIGN KEY(%s) REFERENCES %s(%s) ON UPDATE %s ON DELETE %s",
			sqlschema.QuoteAll(f.Ref.LocalColumns()),
			f.Ref.Entity.Table,
			sqlschema.QuoteAll(f.Ref.TargetColumns()),
			f.Ref.OnUpdate,
			f.Ref.OnDelete,
		)
	}
	b.WriteByte(')')
	return b.String()
}

// columnDef renders `name` TYPE[(len)][ NOT NULL][ UNIQUE][ DEFAULT x][ COLLATE c].
func columnDef(e *gen.Entity, c *gen.Column, alias bool) string {
	var b strings.Builder
	b.WriteString(sqlschema.Quote(c.Name))
	b.WriteByte(' ')
	b.WriteString(string(c.Type))
	if c.Length > 0 {
		b.WriteString("(" + strconv.Itoa(c.Length) + ")")
	}
	f := c.Field
	if alias && f.IsAuto() {
		b.WriteString(" PRIMARY KEY")
		b.WriteString(e.PrimaryKeyConflict.OnConflict())
		if f.Primary == gen.PrimaryAutoIncrement {
			b.WriteString(" AUTOINCREMENT")
		}
	}
	if c.NotNull {
		b.WriteString(" NOT NULL")
		b.WriteString(f.NotNullConflict.OnConflict())
	}
	if c.Unique {
		b.WriteString(" UNIQUE")
		b.WriteString(f.UniqueConflict.OnConflict())
	}
	if c.HasDefault() {
		b.WriteString(" DEFAULT ")
		b.WriteString(c.Default)
	}
	if c.Collate != "" {
		b.WriteString(" COLLATE ")
		b.WriteString(c.Collate)
	}
	return b.String()
}

// virtualTable renders an FTS table. The rowid key is implicit.
func virtualTable(e *gen.Entity) string {
	var names []string
	for _, c := range e.Columns() {
		if !c.Field.IsAuto() {
			names = append(names, sqlschema.Quote(c.Name))
		}
	}
	if e.Virtual.ContentTable != "" {
		names = append(names, "content="+sqlschema.Quote(e.Virtual.ContentTable))
	}
	return fmt.Sprintf("CREATE VIRTUAL TABLE IF NOT EXISTS %s USING %s(%s)", e.Table, e.Virtual.Module, strings.Join(names, ", "))
}

// IndexQueries returns the CREATE INDEX statements of the index groups.
func IndexQueries(e *gen.Entity) []string {
	queries := make([]string, 0, len(e.IndexGroups))
	for _, g := range e.IndexGroups {
		unique := ""
		if g.Unique {
			unique = "UNIQUE "
		}
		queries = append(queries, fmt.Sprintf("CREATE %sINDEX IF NOT EXISTS %s ON %s(%s)", unique, g.Name, e.Table, quoteColumns(e, g.Columns)))
	}
	return queries
}

// InsertQuery returns the INSERT template. The engine-assigned key is not
// listed; a table holding nothing but that key inserts a literal NULL.
func InsertQuery(e *gen.Entity) string {
	return insert(e.InsertConflict, e, insertColumns(e))
}

// SaveQuery returns the INSERT OR REPLACE template. It lists every column,
// the engine-assigned key included, so that saving a model with a key
// replaces its row and saving one without a key binds NULL to the key slot.
// A table holding nothing but its key inserts a literal NULL.
func SaveQuery(e *gen.Entity) string {
	return insert(sqlschema.ConflictReplace, e, saveColumns(e))
}

func insert(conflict sqlschema.ConflictAction, e *gen.Entity, cols []*gen.Column) string {
	prefix := "INSERT " + conflict.Or() + "INTO " + e.Table
	if autoOnly(e) {
		return prefix + "(" + columnRef(e, e.AutoIncrement.Column) + ") VALUES (NULL)"
	}
	return prefix + "(" + quoteColumns(e, cols) + ") VALUES (" + placeholders(len(cols)) + ")"
}

// UpdateQuery returns the UPDATE template: every non-auto column is set and
// the primary columns form the WHERE clause. A table without settable
// columns cannot be updated and gets an empty template.
func UpdateQuery(e *gen.Entity) string {
	cols := e.WritableColumns()
	if len(cols) == 0 {
		return ""
	}
	set := make([]string, len(cols))
	for i, c := range cols {
		set[i] = sqlschema.Quote(c.Name) + "=?"
	}
	return "UPDATE " + e.UpdateConflict.Or() + e.Table + " SET " + strings.Join(set, ",") + " WHERE " + where(e, e.PrimaryColumns())
}

// DeleteQuery returns the DELETE template.
func DeleteQuery(e *gen.Entity) string {
	return "DELETE FROM " + e.Table + " WHERE " + where(e, e.PrimaryColumns())
}

// SelectQuery returns the sub-query selecting the rows of e whose columns
// match one placeholder each.
func SelectQuery(e *gen.Entity, cols []string) string {
	conds := make([]string, len(cols))
	for i, name := range cols {
		ref := sqlschema.Quote(name)
		if c, ok := e.Column(name); ok {
			ref = columnRef(e, c)
		}
		conds[i] = ref + "=?"
	}
	return SelectFrom(e) + " WHERE " + strings.Join(conds, " AND ")
}

// SelectFrom returns the SELECT of every column of e. The result set of a
// virtual table has no key column, so its rowid is selected under the key's
// name.
func SelectFrom(e *gen.Entity) string {
	if e.Virtual != nil && e.HasAutoIncrement() {
		return "SELECT " + adapter.RowID + " AS " + sqlschema.Quote(e.AutoIncrement.Column.Name) + ", * FROM " + e.Table
	}
	return "SELECT * FROM " + e.Table
}

// columnRef returns how the statements of e refer to c. The key of a virtual
// table is its rowid.
func columnRef(e *gen.Entity, c *gen.Column) string {
	if e.Virtual != nil && c.Field.IsAuto() {
		return adapter.RowID
	}
	return sqlschema.Quote(c.Name)
}

// autoOnly reports if the only column of the table is its engine-assigned key.
func autoOnly(e *gen.Entity) bool {
	return e.HasAutoIncrement() && len(e.WritableColumns()) == 0
}

// insertColumns returns the columns bound by the INSERT template.
func insertColumns(e *gen.Entity) []*gen.Column {
	if autoOnly(e) {
		return nil
	}
	return e.WritableColumns()
}

// saveColumns returns the columns bound by the SAVE template.
func saveColumns(e *gen.Entity) []*gen.Column {
	if autoOnly(e) {
		return nil
	}
	return e.Columns()
}

func where(e *gen.Entity, cols []*gen.Column) string {
	conds := make([]string, len(cols))
	for i, c := range cols {
		conds[i] = columnRef(e, c) + "=?"
	}
	return strings.Join(conds, " AND ")
}

func quoteColumns(e *gen.Entity, cols []*gen.Column) string {
	refs := make([]string, len(cols))
	for i, c := range cols {
		refs[i] = columnRef(e, c)
	}
	return strings.Join(refs, ",")
}

func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}
