package adapter

import (
	"context"
	"fmt"
	"sync"
)

// Statement receives positional values. Slots are 1-based.
type Statement interface {
	Bind(slot int, v any)
	BindNull(slot int)
}

// Cursor is the current row of a result set. Value reports false when the
// column is not part of the row.
type Cursor interface {
	Value(column string) (any, bool)
}

// Querier runs sub-queries on behalf of LoadFromCursor.
type Querier interface {
	Query(ctx context.Context, query string, args ...any) ([]Cursor, error)
}

// Registry holds the adapters and converters of one database.
type Registry struct {
	Database string
	Querier  Querier

	mu         sync.RWMutex
	adapters   map[string]*Adapter
	order      []*Adapter
	converters map[string]Converter
}

// NewRegistry returns a registry for the database with the built-in
// converters registered.
func NewRegistry(database string, q Querier) *Registry {
	r := &Registry{
		Database:   database,
		Querier:    q,
		adapters:   make(map[string]*Adapter),
		converters: make(map[string]Converter),
	}
	for name, c := range Builtins() {
		r.converters[name] = c
	}
	return r
}

// Register adds copies of the adapters bound to this registry. Registering an
// entity twice replaces the previous adapter but keeps its position.
func (r *Registry) Register(adapters ...*Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range adapters {
		cp := *a
		cp.registry = r
		if _, ok := r.adapters[a.Entity]; ok {
			for i, o := range r.order {
				if o.Entity == a.Entity {
					r.order[i] = &cp
				}
			}
		} else {
			r.order = append(r.order, &cp)
		}
		r.adapters[a.Entity] = &cp
	}
}

// Adapter returns the adapter registered for the entity.
func (r *Registry) Adapter(entity string) (*Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[entity]
	return a, ok
}

// MustAdapter is like Adapter but panics if the entity is unknown.
func (r *Registry) MustAdapter(entity string) *Adapter {
	a, ok := r.Adapter(entity)
	if !ok {
		panic(fmt.Sprintf("adapter: entity %q is not registered in %s", entity, r.Database))
	}
	return a
}

// Adapters returns the adapters in registration order.
func (r *Registry) Adapters() []*Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Adapter(nil), r.order...)
}

// RegisterConverter adds or replaces a named converter.
func (r *Registry) RegisterConverter(name string, c Converter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.converters[name] = c
}

// Converter returns the named converter.
func (r *Registry) Converter(name string) (Converter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.converters[name]
	return c, ok
}

// CreationQueries returns the statements that create the schema of the
// adapters flagged CreateWithDatabase, in registration order.
func (r *Registry) CreationQueries() []string {
	var qs []string
	for _, a := range r.Adapters() {
		if !a.CreateWithDatabase || a.CreationQuery == "" {
			continue
		}
		qs = append(qs, a.CreationQuery)
		qs = append(qs, a.IndexQueries...)
	}
	return qs
}
