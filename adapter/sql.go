package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// SQLStatement collects bound values as positional database/sql arguments.
type SQLStatement struct {
	args []any
}

// Bind implements Statement.
func (s *SQLStatement) Bind(slot int, v any) {
	s.grow(slot)
	s.args[slot-1] = v
}

// BindNull implements Statement.
func (s *SQLStatement) BindNull(slot int) {
	s.grow(slot)
	s.args[slot-1] = nil
}

// Args returns the bound values in placeholder order.
func (s *SQLStatement) Args() []any { return s.args }

// Reset clears the bound values.
func (s *SQLStatement) Reset() { s.args = s.args[:0] }

func (s *SQLStatement) grow(slot int) {
	for len(s.args) < slot {
		s.args = append(s.args, nil)
	}
}

// MapCursor is a row materialized as a column map.
type MapCursor map[string]any

// Value implements Cursor.
func (c MapCursor) Value(column string) (any, bool) {
	v, ok := c[column]
	return v, ok
}

// ExecQuerier is the subset of *sql.DB, *sql.Conn and *sql.Tx the bridge uses.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// SQLQuerier runs sub-queries on a database/sql handle.
type SQLQuerier struct {
	DB ExecQuerier
}

// NewSQLQuerier wraps a database/sql handle.
func NewSQLQuerier(db ExecQuerier) *SQLQuerier {
	return &SQLQuerier{DB: db}
}

// Query implements Querier.
func (q *SQLQuerier) Query(ctx context.Context, query string, args ...any) ([]Cursor, error) {
	rows, err := q.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return ScanRows(rows)
}

// ScanRows materializes all rows into cursors.
func ScanRows(rows *sql.Rows) ([]Cursor, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var cursors []Cursor
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		c := make(MapCursor, len(columns))
		for i, name := range columns {
			if b, ok := values[i].([]byte); ok {
				values[i] = append([]byte(nil), b...)
			}
			c[name] = values[i]
		}
		cursors = append(cursors, c)
	}
	return cursors, rows.Err()
}

// Insert binds and executes InsertQuery. When the entity has an engine-assigned
// key, the new row id is stored into the model.
func (a *Adapter) Insert(ctx context.Context, db ExecQuerier, m Record) (int64, error) {
	id, err := a.exec(ctx, db, a.InsertQuery, a.InsertBinds, m, true)
	if err == nil && len(a.AutoIncrement) > 0 {
		m.Set(a.AutoIncrement, id)
	}
	return id, err
}

// Save binds and executes SaveQuery.
func (a *Adapter) Save(ctx context.Context, db ExecQuerier, m Record) (int64, error) {
	id, err := a.exec(ctx, db, a.SaveQuery, a.SaveBinds, m, true)
	if err == nil && len(a.AutoIncrement) > 0 {
		m.Set(a.AutoIncrement, id)
	}
	return id, err
}

// Update binds and executes UpdateQuery and returns the affected rows.
func (a *Adapter) Update(ctx context.Context, db ExecQuerier, m Record) (int64, error) {
	return a.exec(ctx, db, a.UpdateQuery, a.UpdateBinds, m, false)
}

// Delete binds and executes DeleteQuery and returns the affected rows.
func (a *Adapter) Delete(ctx context.Context, db ExecQuerier, m Record) (int64, error) {
	return a.exec(ctx, db, a.DeleteQuery, a.DeleteBinds, m, false)
}

func (a *Adapter) exec(ctx context.Context, db ExecQuerier, query string, ops []BindOp, m Record, insert bool) (int64, error) {
	if query == "" {
		return 0, fmt.Errorf("%w: %s", ErrReadOnly, a.Entity)
	}
	st := &SQLStatement{}
	if err := a.bind(st, ops, m); err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx, query, st.Args()...)
	if err != nil {
		return 0, fmt.Errorf("adapter: exec %s: %w", a.Entity, err)
	}
	if insert {
		return res.LastInsertId()
	}
	return res.RowsAffected()
}

// Find loads the row matching the primary-key condition of the model. It
// returns nil when no row matches.
func (a *Adapter) Find(ctx context.Context, m Record) (Record, error) {
	if len(a.Primary) == 0 {
		return nil, fmt.Errorf("adapter: %s has no primary key", a.Entity)
	}
	conds, err := a.PrimaryConditionClause(m)
	if err != nil {
		return nil, err
	}
	if a.registry == nil || a.registry.Querier == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, a.Entity)
	}
	where, args := Where(conds)
	rows, err := a.registry.Querier.Query(ctx, a.selectQuery()+" WHERE "+where, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return a.LoadFromCursor(ctx, rows[0])
}

func (a *Adapter) selectQuery() string {
	if a.SelectQuery != "" {
		return a.SelectQuery
	}
	return "SELECT * FROM " + a.Table
}

// CreateAll executes the creation queries of the registry in order.
func (r *Registry) CreateAll(ctx context.Context, db ExecQuerier) error {
	for _, q := range r.CreationQueries() {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("adapter: create %s: %w", firstLine(q), err)
		}
	}
	return nil
}

func firstLine(q string) string {
	if i := strings.IndexByte(q, '('); i > 0 {
		q = q[:i]
	}
	return strings.TrimSpace(q)
}
