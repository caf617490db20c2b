// Package adapter is the runtime side of the generated code. An Adapter holds
// the SQL templates of one entity together with the ordered procedures that bind
// a model to the template placeholders and load a model back from a row.
//
// Generated packages declare one Adapter literal per entity and a registry
// constructor:
//
//	reg := blog.NewRegistry(adapter.NewSQLQuerier(db))
//	post, _ := reg.Adapter("Post")
//	st := &adapter.SQLStatement{}
//	if err := post.BindToInsertStatement(st, model); err != nil {
//		return err
//	}
//	_, err := db.ExecContext(ctx, post.InsertQuery, st.Args()...)
package adapter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/syssam/schemagen/dialect/sqlschema"
)

// Sentinel errors returned by adapters.
var (
	// ErrNotRegistered is returned when an adapter that needs a registry is used standalone.
	ErrNotRegistered = errors.New("adapter: not registered")
	// ErrUnknownConverter is returned when a procedure names a converter missing from the registry.
	ErrUnknownConverter = errors.New("adapter: unknown converter")
	// ErrUnknownEntity is returned when a sub-query targets an entity missing from the registry.
	ErrUnknownEntity = errors.New("adapter: unknown entity")
	// ErrReadOnly is returned when a write procedure is used on a view or query model.
	ErrReadOnly = errors.New("adapter: entity is read-only")
)

// MaxLoadDepth bounds the nesting of eager sub-queries. Foreign keys below it
// load as key stubs and eager accessors are left for LoadAccessor.
const MaxLoadDepth = 16

// RowID names the engine key of a virtual table, which declares no column
// for it.
const RowID = "rowid"

// Kind of the entity an adapter serves.
type Kind string

const (
	KindTable      Kind = "table"
	KindJoinTable  Kind = "join_table"
	KindView       Kind = "view"
	KindQueryModel Kind = "query_model"
)

// Writable reports if the entity owns a table.
func (k Kind) Writable() bool {
	return k == KindTable || k == KindJoinTable
}

// BindOp binds one model value to one statement placeholder.
type BindOp struct {
	// Slot is the 1-based placeholder index.
	Slot   int
	Column string
	// Path locates the value in the model. A missing or nil value anywhere
	// along the path binds NULL.
	Path      []string
	Type      sqlschema.ColumnType
	Converter string
	Nullable  bool
}

// LoadKind tells how a LoadOp produces its value.
type LoadKind string

const (
	LoadColumn     LoadKind = "column"
	LoadForeignKey LoadKind = "foreign_key"
	LoadComputed   LoadKind = "computed"
	LoadAccessor   LoadKind = "accessor"
)

// LoadOp reads one field of a model from a row.
type LoadOp struct {
	Kind LoadKind
	// Path is where the value is stored, relative to the record being built.
	Path []string

	// Column, Type, Converter and Default describe a LoadColumn read.
	Column     string
	Type       sqlschema.ColumnType
	Converter  string
	Default    string
	HasDefault bool

	// Target, Query and Filter describe the sub-query of foreign keys and
	// accessors. Query holds one placeholder per filter, in order.
	Target   string
	Query    string
	Filter   []Filter
	Deferred bool
	Eager    bool

	// Parts are the column reads a computed field is assembled from.
	Parts []LoadOp
}

// Filter pairs a column of the row being loaded with the value it matches.
type Filter struct {
	// Column is read from the row being loaded.
	Column string
	// Path locates the same value in the owning model.
	Path []string
	// TargetPath locates the matched value in the target model.
	TargetPath []string
	Converter  string
}

// Condition is one column=value pair of a primary-key condition.
type Condition struct {
	Column string
	Value  any
}

// Adapter is the generated description of one entity. SelectQuery selects
// every column of the entity without a condition; sub-queries and Find append
// their WHERE clause to it.
type Adapter struct {
	Entity             string
	Table              string
	Database           string
	Kind               Kind
	CreateWithDatabase bool
	// CacheSize is the model cache size, zero when caching is disabled.
	CacheSize int

	CreationQuery string
	IndexQueries  []string
	SelectQuery   string
	InsertQuery   string
	SaveQuery     string
	UpdateQuery   string
	DeleteQuery   string
	InsertBinds   []BindOp
	SaveBinds     []BindOp
	UpdateBinds   []BindOp
	DeleteBinds   []BindOp
	Loads         []LoadOp
	// Primary lists the primary columns in WHERE order.
	Primary []BindOp
	// AutoIncrement is the path of the engine-assigned key, if any.
	AutoIncrement []string

	registry *Registry
}

// Registry returns the registry the adapter was registered with.
func (a *Adapter) Registry() *Registry { return a.registry }

// BindToInsertStatement binds the model to the placeholders of InsertQuery.
func (a *Adapter) BindToInsertStatement(st Statement, m Record) error {
	return a.bind(st, a.InsertBinds, m)
}

// BindToSaveStatement binds the model to the placeholders of SaveQuery.
func (a *Adapter) BindToSaveStatement(st Statement, m Record) error {
	return a.bind(st, a.SaveBinds, m)
}

// BindToUpdateStatement binds the model to the placeholders of UpdateQuery.
func (a *Adapter) BindToUpdateStatement(st Statement, m Record) error {
	return a.bind(st, a.UpdateBinds, m)
}

// BindToDeleteStatement binds the model to the placeholders of DeleteQuery.
func (a *Adapter) BindToDeleteStatement(st Statement, m Record) error {
	return a.bind(st, a.DeleteBinds, m)
}

func (a *Adapter) bind(st Statement, ops []BindOp, m Record) error {
	if !a.Kind.Writable() {
		return fmt.Errorf("%w: %s", ErrReadOnly, a.Entity)
	}
	for _, op := range ops {
		v, err := a.stored(op.Converter, op.Path, m)
		if err != nil {
			return fmt.Errorf("adapter: bind %s.%s: %w", a.Entity, op.Column, err)
		}
		if v == nil {
			st.BindNull(op.Slot)
			continue
		}
		st.Bind(op.Slot, v)
	}
	return nil
}

// stored reads the value at path and converts it to its stored form.
func (a *Adapter) stored(conv string, path []string, m Record) (any, error) {
	v, ok := m.Lookup(path)
	if !ok || v == nil {
		return nil, nil
	}
	if conv == "" {
		return v, nil
	}
	c, err := a.converter(conv)
	if err != nil {
		return nil, err
	}
	return c.ToStored(v)
}

// PrimaryConditionClause returns the primary-key condition of the model, with
// values in their stored form.
func (a *Adapter) PrimaryConditionClause(m Record) ([]Condition, error) {
	conds := make([]Condition, 0, len(a.Primary))
	for _, op := range a.Primary {
		v, err := a.stored(op.Converter, op.Path, m)
		if err != nil {
			return nil, fmt.Errorf("adapter: primary condition %s.%s: %w", a.Entity, op.Column, err)
		}
		conds = append(conds, Condition{Column: op.Column, Value: v})
	}
	return conds, nil
}

// Where renders conditions as a WHERE expression and its arguments.
func Where(conds []Condition) (string, []any) {
	var (
		b    strings.Builder
		args = make([]any, 0, len(conds))
	)
	for i, c := range conds {
		if i > 0 {
			b.WriteString(" AND ")
		}
		if c.Column == RowID {
			b.WriteString(RowID)
		} else {
			b.WriteString(sqlschema.Quote(c.Column))
		}
		b.WriteString("=?")
		args = append(args, c.Value)
	}
	return b.String(), args
}

// LoadFromCursor builds a model from the current row of the cursor. Foreign
// keys and eager accessors run their sub-queries through the registry querier.
func (a *Adapter) LoadFromCursor(ctx context.Context, c Cursor) (Record, error) {
	return a.load(ctx, c, 0)
}

func (a *Adapter) load(ctx context.Context, c Cursor, depth int) (Record, error) {
	m := make(Record, len(a.Loads))
	for _, op := range a.Loads {
		var err error
		switch op.Kind {
		case LoadColumn:
			err = a.loadColumn(m, op, c)
		case LoadComputed:
			sub := make(Record, len(op.Parts))
			for _, part := range op.Parts {
				if err = a.loadColumn(sub, part, c); err != nil {
					break
				}
			}
			m.Set(op.Path, sub)
		case LoadForeignKey:
			err = a.loadForeignKey(ctx, m, op, c, depth)
		case LoadAccessor:
			if !op.Eager || depth >= MaxLoadDepth {
				continue
			}
			err = a.loadAccessor(ctx, m, op, cursorArgs(op.Filter, c), depth)
		default:
			panic(fmt.Sprintf("adapter: unexpected load kind %q", op.Kind))
		}
		if err != nil {
			return nil, fmt.Errorf("adapter: load %s.%s: %w", a.Entity, strings.Join(op.Path, "."), err)
		}
	}
	return m, nil
}

func (a *Adapter) loadColumn(m Record, op LoadOp, c Cursor) error {
	v, ok := c.Value(op.Column)
	if !ok {
		if !op.HasDefault {
			return nil
		}
		lit, err := ParseLiteral(op.Type, op.Default)
		if err != nil {
			return err
		}
		v = lit
	}
	v, err := a.model(op.Converter, v)
	if err != nil {
		return err
	}
	m.Set(op.Path, v)
	return nil
}

// model converts a stored value to its model form.
func (a *Adapter) model(conv string, v any) (any, error) {
	if v == nil || conv == "" {
		return v, nil
	}
	c, err := a.converter(conv)
	if err != nil {
		return nil, err
	}
	return c.FromStored(v)
}

func (a *Adapter) loadForeignKey(ctx context.Context, m Record, op LoadOp, c Cursor, depth int) error {
	args := cursorArgs(op.Filter, c)
	if allNil(args) {
		m.Set(op.Path, nil)
		return nil
	}
	if op.Deferred || depth >= MaxLoadDepth {
		stub := make(Record, len(op.Filter))
		for i, f := range op.Filter {
			v, err := a.model(f.Converter, args[i])
			if err != nil {
				return err
			}
			stub.Set(f.TargetPath, v)
		}
		m.Set(op.Path, stub)
		return nil
	}
	target, q, err := a.subquery(op.Target)
	if err != nil {
		return err
	}
	rows, err := q.Query(ctx, op.Query, args...)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		m.Set(op.Path, nil)
		return nil
	}
	rec, err := target.load(ctx, rows[0], depth+1)
	if err != nil {
		return err
	}
	m.Set(op.Path, rec)
	return nil
}

// LoadAccessor runs the filtered select of the named one-to-many accessor
// and stores the children into the model.
func (a *Adapter) LoadAccessor(ctx context.Context, m Record, name string) error {
	for _, op := range a.Loads {
		if op.Kind != LoadAccessor || strings.Join(op.Path, ".") != name {
			continue
		}
		args := make([]any, len(op.Filter))
		for i, f := range op.Filter {
			v, err := a.stored(f.Converter, f.Path, m)
			if err != nil {
				return err
			}
			args[i] = v
		}
		return a.loadAccessor(ctx, m, op, args, 0)
	}
	return fmt.Errorf("adapter: %s has no accessor %q", a.Entity, name)
}

func (a *Adapter) loadAccessor(ctx context.Context, m Record, op LoadOp, args []any, depth int) error {
	if allNil(args) {
		m.Set(op.Path, []Record{})
		return nil
	}
	child, q, err := a.subquery(op.Target)
	if err != nil {
		return err
	}
	rows, err := q.Query(ctx, op.Query, args...)
	if err != nil {
		return err
	}
	children := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec, err := child.load(ctx, row, depth+1)
		if err != nil {
			return err
		}
		children = append(children, rec)
	}
	m.Set(op.Path, children)
	return nil
}

func (a *Adapter) subquery(entity string) (*Adapter, Querier, error) {
	if a.registry == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotRegistered, a.Entity)
	}
	target, ok := a.registry.Adapter(entity)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}
	if a.registry.Querier == nil {
		return nil, nil, fmt.Errorf("adapter: registry %s has no querier", a.registry.Database)
	}
	return target, a.registry.Querier, nil
}

func (a *Adapter) converter(name string) (Converter, error) {
	if a.registry == nil {
		return nil, fmt.Errorf("%w: %s needs converter %q", ErrNotRegistered, a.Entity, name)
	}
	c, ok := a.registry.Converter(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownConverter, name)
	}
	return c, nil
}

func cursorArgs(filter []Filter, c Cursor) []any {
	args := make([]any, len(filter))
	for i, f := range filter {
		args[i], _ = c.Value(f.Column)
	}
	return args
}

func allNil(args []any) bool {
	for _, v := range args {
		if v != nil {
			return false
		}
	}
	return true
}
