package gen

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

type (
	// expansionKey identifies one expansion of a holder.
	expansionKey struct {
		holder *Field
		prefix string
	}

	// expansion is the memoized result of expanding a holder under a prefix.
	expansion struct {
		// columns are the local columns of the holder, in order.
		columns []*Column
		// edges are the holder-to-target hops walked by the expansion,
		// the direct hop first.
		edges []edge
		// holders are the nested holders walked by the expansion, including
		// the expanded holder itself.
		holders []*Field
	}

	// edge is one hop from the owner of a holder to its target.
	edge struct {
		holder *Field
		target *Entity
	}

	// chain is the recursion path of an expansion.
	chain struct {
		entities []*Entity
		holders  []*Field
	}
)

// path renders the chain and a closing hop for diagnostics.
func (ch *chain) path(h *Field, t *Entity) string {
	var b strings.Builder
	for _, f := range ch.holders {
		fmt.Fprintf(&b, "%s.%s -> ", f.owner.Name, f.Name)
	}
	fmt.Fprintf(&b, "%s.%s -> %s", h.owner.Name, h.Name, t.Name)
	return b.String()
}

// enters reports if walking from h to t re-enters the chain. A holder that
// targets its own entity is a self reference and never a cycle by itself.
func (ch *chain) enters(h *Field, t *Entity) bool {
	return t != h.owner && slices.Contains(ch.entities, t)
}

// deferredError records the undeclared target that postponed a resolution.
type deferredError struct {
	field  string
	target string
}

func (e *deferredError) Error() string {
	return fmt.Sprintf("field %s waits for %s", e.field, e.target)
}

func (e *deferredError) Is(target error) bool { return target == errDeferred }

// Expand returns the flattened local columns of the holder h named under
// prefix. Expansions are memoized per (holder, prefix) for the lifetime of
// the context, so repeated calls return identical columns.
func (c *CompilationContext) Expand(h *Field, prefix string) ([]*Column, error) {
	x, err := c.expand(h, prefix, &chain{entities: []*Entity{h.owner}})
	if err != nil {
		return nil, err
	}
	return x.columns, nil
}

func (c *CompilationContext) expand(h *Field, prefix string, ch *chain) (*expansion, error) {
	if !h.IsHolder() || h.Kind == OneToManyField {
		return nil, fmt.Errorf("gen: field %s.%s is not a reference holder", h.owner.Name, h.Name)
	}
	key := expansionKey{holder: h, prefix: prefix}
	if x, ok := c.expansions[key]; ok {
		if err := c.admit(x, ch); err != nil {
			return nil, err
		}
		return x, nil
	}
	t, ok := c.entities[h.Ref.Target]
	if !ok {
		return nil, &deferredError{field: h.Name, target: h.Ref.Target}
	}
	resolution := func(format string, args ...any) error {
		return NewResolutionError(h.owner.Name, h.Name, t.Name, fmt.Sprintf(format, args...), nil)
	}
	if slices.Contains(ch.holders, h) || ch.enters(h, t) {
		return nil, resolution("reference cycle %s", ch.path(h, t))
	}
	if t.state == stateFailed {
		return nil, resolution("target entity is invalid")
	}
	var projected []*Field
	switch h.Kind {
	case ForeignKeyField:
		if !t.IsTable() {
			return nil, resolution("foreign key target must be a table, not a %s", t.Kind)
		}
		if t.Database != h.owner.Database {
			return nil, NewValidationError(h.owner.Name, h.Name, t.Name,
				fmt.Sprintf("foreign key target %s is in database %s, not %s", t.Name, t.Database, h.owner.Database))
		}
		projected = t.Primary
	case ComputedField:
		for _, f := range t.Fields {
			if f.Kind != OneToManyField {
				projected = append(projected, f)
			}
		}
	default:
		panic(fmt.Sprintf("gen: unexpected holder kind %v", h.Kind))
	}
	if len(projected) == 0 {
		return nil, resolution("target has no columns to reference")
	}
	x := &expansion{
		edges:   []edge{{holder: h, target: t}},
		holders: []*Field{h},
	}
	inner := &chain{
		entities: append(slices.Clone(ch.entities), t),
		holders:  append(slices.Clone(ch.holders), h),
	}
	var targets []*Column
	for _, pf := range projected {
		switch pf.Kind {
		case SingleField:
			targets = append(targets, pf.Column)
		case ForeignKeyField, ComputedField:
			nested, err := c.expand(pf, pf.prefix, inner)
			if err != nil {
				return nil, err
			}
			targets = append(targets, nested.columns...)
			x.edges = append(x.edges, nested.edges...)
			x.holders = append(x.holders, nested.holders...)
		case OneToManyField:
		default:
			panic(fmt.Sprintf("gen: unexpected field kind %v", pf.Kind))
		}
	}
	cols, err := c.localColumns(h, prefix, t, targets)
	if err != nil {
		return nil, err
	}
	x.columns = cols
	c.expansions[key] = x
	return x, nil
}

// admit checks a memoized expansion against the current recursion chain.
func (c *CompilationContext) admit(x *expansion, ch *chain) error {
	for _, h := range x.holders {
		if slices.Contains(ch.holders, h) {
			return NewResolutionError(h.owner.Name, h.Name, h.Ref.Target,
				fmt.Sprintf("reference cycle %s", ch.path(h, c.entities[h.Ref.Target])), nil)
		}
	}
	for _, e := range x.edges {
		if ch.enters(e.holder, e.target) {
			return NewResolutionError(e.holder.owner.Name, e.holder.Name, e.target.Name,
				fmt.Sprintf("reference cycle %s", ch.path(e.holder, e.target)), nil)
		}
	}
	return nil
}

// localColumns builds the local columns of h from the target columns. With
// explicit pairs the declared local names are used verbatim, otherwise one
// column named <prefix>_<target column> is derived per target column.
func (c *CompilationContext) localColumns(h *Field, prefix string, t *Entity, targets []*Column) ([]*Column, error) {
	type pair struct {
		local   string
		target  *Column
		notNull bool
	}
	var pairs []pair
	if len(h.Ref.Explicit) > 0 {
		seen := make(map[string]bool)
		for _, r := range h.Ref.Explicit {
			if r.Column == "" {
				return nil, NewValidationError(h.owner.Name, h.Name, r.Foreign, "column name cannot be empty")
			}
			if seen[r.Column] {
				return nil, NewValidationError(h.owner.Name, h.Name, r.Column, "reference column declared twice")
			}
			seen[r.Column] = true
			i := slices.IndexFunc(targets, func(tc *Column) bool { return tc.Name == r.Foreign })
			if i < 0 {
				return nil, NewResolutionError(h.owner.Name, h.Name, t.Name,
					fmt.Sprintf("unknown target column %q", r.Foreign), nil)
			}
			pairs = append(pairs, pair{local: r.Column, target: targets[i], notNull: r.NotNull})
		}
		if h.Kind == ForeignKeyField && len(pairs) != len(targets) {
			return nil, NewValidationError(h.owner.Name, h.Name, len(pairs),
				fmt.Sprintf("foreign key to %s expects %d reference pairs", t.Name, len(targets)))
		}
	} else {
		for _, tc := range targets {
			pairs = append(pairs, pair{local: prefix + "_" + tc.Name, target: tc})
		}
	}
	if h.Unique && len(pairs) > 1 {
		return nil, NewValidationError(h.owner.Name, h.Name, len(pairs), "unique reference spans several columns, use a unique group")
	}
	notNull := h.decl != nil && h.decl.NotNull
	cols := make([]*Column, len(pairs))
	for i, p := range pairs {
		col := p.target.clone()
		col.Name = p.local
		col.Target = p.target.Name
		col.Path = append([]string{h.Name}, p.target.Path...)
		col.Field = h
		switch h.Kind {
		case ForeignKeyField:
			col.NotNull = notNull || p.notNull
			col.Default = ""
			col.Unique = h.Unique
		case ComputedField:
			col.NotNull = col.NotNull || p.notNull
			col.Unique = false
		default:
			panic(fmt.Sprintf("gen: unexpected holder kind %v", h.Kind))
		}
		col.Nullable = nullable(col.NotNull, col.Converter)
		cols[i] = col
	}
	return cols, nil
}

// resolveEntity expands the holders of a declared entity and finalizes its
// groups. It returns an error wrapping errDeferred when a target is not
// declared yet, leaving the entity declared for a later round.
func (c *CompilationContext) resolveEntity(e *Entity) error {
	var errs []error
	for _, f := range e.Fields {
		switch f.Kind {
		case SingleField, OneToManyField:
			continue
		case ForeignKeyField, ComputedField:
		default:
			panic(fmt.Sprintf("gen: unexpected field kind %v", f.Kind))
		}
		cols, err := c.Expand(f, f.prefix)
		switch {
		case errors.Is(err, errDeferred):
			return err
		case err != nil:
			errs = append(errs, err)
			continue
		}
		f.Ref.Entity = c.entities[f.Ref.Target]
		f.Ref.Columns = cols
	}
	if v := e.Virtual; v != nil && v.Content != "" {
		t, ok := c.entities[v.Content]
		switch {
		case !ok:
			return &deferredError{field: "virtual content", target: v.Content}
		case !t.IsTable() || t.Virtual != nil:
			errs = append(errs, NewResolutionError(e.Name, "", v.Content, "virtual content must be a table", nil))
		default:
			v.ContentTable = t.Table
		}
	}
	if len(errs) == 0 {
		errs = append(errs, c.checkColumns(e)...)
	}
	if len(errs) == 0 {
		errs = append(errs, c.finalizeGroups(e)...)
	}
	for _, err := range errs {
		c.fail(e, err)
	}
	if len(errs) == 0 {
		e.state = stateResolved
	}
	return nil
}

// checkColumns enforces that every holder has at least one column and that
// column names are unique within the entity.
func (c *CompilationContext) checkColumns(e *Entity) []error {
	var errs []error
	owners := make(map[string]*Field)
	for _, f := range e.Fields {
		cols := f.Columns()
		if f.Kind == ForeignKeyField || f.Kind == ComputedField {
			if len(cols) == 0 {
				errs = append(errs, NewValidationError(e.Name, f.Name, nil, "reference resolves to no columns"))
			}
		}
		for _, col := range cols {
			key := strings.ToLower(col.Name)
			if prev, ok := owners[key]; ok {
				errs = append(errs, NewValidationError(e.Name, f.Name, col.Name,
					fmt.Sprintf("column %q collides with field %s", col.Name, prev.Name)))
				continue
			}
			owners[key] = f
		}
	}
	return errs
}

// finalizeGroups fills the unique and index groups with the columns of the
// fields that reference them. Every referenced group must be declared, and
// every declared group must be referenced.
func (c *CompilationContext) finalizeGroups(e *Entity) []error {
	var errs []error
	for _, f := range e.Fields {
		for _, n := range f.UniqueGroups {
			i := slices.IndexFunc(e.UniqueGroups, func(g *UniqueGroup) bool { return g.Number == n })
			if i < 0 {
				errs = append(errs, NewValidationError(e.Name, f.Name, n, "unknown unique group"))
				continue
			}
			e.UniqueGroups[i].Columns = append(e.UniqueGroups[i].Columns, f.Columns()...)
		}
		for _, n := range f.IndexGroups {
			i := slices.IndexFunc(e.IndexGroups, func(g *IndexGroup) bool { return g.Number == n })
			if i < 0 {
				errs = append(errs, NewValidationError(e.Name, f.Name, n, "unknown index group"))
				continue
			}
			e.IndexGroups[i].Columns = append(e.IndexGroups[i].Columns, f.Columns()...)
		}
	}
	for _, g := range e.UniqueGroups {
		if len(g.Columns) == 0 {
			errs = append(errs, NewValidationError(e.Name, "", g.Number, "unique group has no fields"))
		}
	}
	for _, g := range e.IndexGroups {
		if len(g.Columns) == 0 {
			errs = append(errs, NewValidationError(e.Name, "", g.Number, "index group has no fields"))
		}
	}
	return errs
}
