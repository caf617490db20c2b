package gen

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/syssam/schemagen/compiler/load"
)

// CompilationContext holds the state of one compilation run. Declarations can
// be added over several rounds; entities whose targets are not declared yet
// are deferred to a later round. A context is not safe for concurrent use.
type CompilationContext struct {
	cfg        *Config
	log        *zap.Logger
	converters *converters
	databases  map[string]*load.Database
	entities   map[string]*Entity
	expansions map[expansionKey]*expansion
	// pending declarations, join tables and accessors.
	pending   []*load.Declaration
	joins     []*load.ManyToMany
	accessors []*load.OneToMany
	decls     *load.Set
	errs      []error
	rounds    int
	final     *Graph
}

// NewContext returns an empty compilation context for the config.
func NewContext(cfg *Config) (*CompilationContext, error) {
	if cfg == nil {
		return nil, NewConfigError("Config", nil, "config cannot be nil")
	}
	cfg.defaults()
	c := &CompilationContext{
		cfg:        cfg,
		log:        cfg.Logger.Named("gen"),
		converters: newConverters(!cfg.NoBuiltinConverters),
		databases:  make(map[string]*load.Database),
		entities:   make(map[string]*Entity),
		expansions: make(map[expansionKey]*expansion),
		decls:      &load.Set{},
	}
	for _, tc := range cfg.Converters {
		if err := c.converters.add(tc); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Add queues the declarations of the set for the next round. Converters and
// databases are registered immediately.
func (c *CompilationContext) Add(s *load.Set) {
	if s == nil {
		return
	}
	c.decls.Merge(s)
	for _, tc := range s.Converters {
		if err := c.converters.add(tc); err != nil {
			c.report(err)
		}
	}
	for _, db := range s.Databases {
		switch {
		case db.Name == "":
			c.report(NewValidationError("", "", db.Pos, "database name cannot be empty"))
		case c.databases[db.Name] != nil:
			c.report(NewValidationError("", "", db.Name, "database redeclared"))
		default:
			c.databases[db.Name] = db
		}
	}
	c.pending = append(c.pending, s.Entities...)
	c.joins = append(c.joins, s.ManyToMany...)
	c.accessors = append(c.accessors, s.OneToMany...)
}

// Resolve runs one round: it declares the pending entities, resolves the
// declared ones, and synthesizes the join tables and accessors whose
// endpoints are resolved. It reports if another round could make progress.
// Resolving an already resolved entity is a no-op.
func (c *CompilationContext) Resolve() (moreWork bool) {
	c.rounds++
	progress := false
	for _, d := range c.pending {
		progress = true
		kind, ok := entityKind(d.Kind)
		if !ok {
			c.report(NewValidationError(d.Name, "", d.Kind, "unknown entity kind"))
			continue
		}
		if prev, ok := c.entities[d.Name]; ok {
			c.report(NewValidationError(d.Name, "", d.Pos, "entity redeclared, first declared at "+prev.Pos))
			continue
		}
		c.entities[d.Name] = c.declare(d, kind)
	}
	c.pending = nil
	for _, name := range sortedKeys(c.entities) {
		e := c.entities[name]
		if e.state != stateDeclared {
			continue
		}
		if err := c.resolveEntity(e); err != nil {
			var d *deferredError
			if errors.As(err, &d) {
				e.deferredOn, e.deferredField = d.target, d.field
			}
			continue
		}
		progress = true
	}
	if c.synthesizeJoins() {
		progress = true
	}
	if c.synthesizeAccessors() {
		progress = true
	}
	c.log.Debug("resolution round",
		zap.Int("round", c.rounds),
		zap.Bool("progress", progress),
		zap.Int("deferred", c.deferred()),
	)
	return progress && c.hasWork()
}

// Run repeats Resolve until no more work can be done or the round budget is
// exhausted.
func (c *CompilationContext) Run() {
	for i := 0; i < c.cfg.MaxRounds; i++ {
		if !c.Resolve() {
			return
		}
	}
	if c.hasWork() {
		c.log.Warn("round budget exhausted", zap.Int("rounds", c.rounds), zap.Int("deferred", c.deferred()))
	}
}

// Finalize reports what is still unresolved, enforces the per-database
// consistency rules and assembles the graph. It may be called once.
func (c *CompilationContext) Finalize() *Graph {
	if c.final != nil {
		return c.final
	}
	for _, m := range c.joins {
		missing := m.Reference
		if _, ok := c.entities[m.Owner]; !ok {
			missing = m.Owner
		}
		err := NewValidationError(m.Owner, "", m.Pos, fmt.Sprintf("many-to-many %s lacks counterpart %s", joinName(m), missing))
		c.failNamed(m.Owner, err)
	}
	c.joins = nil
	for _, o := range c.accessors {
		missing := o.Child
		if _, ok := c.entities[o.Parent]; !ok {
			missing = o.Parent
		}
		c.failNamed(o.Parent, NewResolutionError(o.Parent, o.Name, missing, "unknown target", nil))
	}
	c.accessors = nil
	for _, name := range sortedKeys(c.entities) {
		e := c.entities[name]
		if e.state == stateDeclared {
			c.fail(e, NewResolutionError(e.Name, e.deferredField, e.deferredOn, "unknown target", nil))
		}
	}
	c.checkConsistency()
	c.propagateFailures()
	c.final = c.graph()
	return c.final
}

// checkConsistency fails every entity of a database group that declares the
// same table name twice or whose generated adapter or file names collide.
// Groups mapping to the same Go package fail together.
func (c *CompilationContext) checkConsistency() {
	groups := make(map[string][]*Entity)
	for _, name := range sortedKeys(c.entities) {
		e := c.entities[name]
		if e.Valid() {
			groups[e.Database] = append(groups[e.Database], e)
		}
	}
	errs := make(map[string][]error, len(groups))
	packages := make(map[string][]string)
	for _, db := range sortedKeys(groups) {
		errs[db] = collisions(db, groups[db])
		pkg := packageName(db)
		packages[pkg] = append(packages[pkg], db)
	}
	for _, pkg := range sortedKeys(packages) {
		dbs := packages[pkg]
		if len(dbs) < 2 {
			continue
		}
		for _, db := range dbs {
			errs[db] = append(errs[db], NewConsistencyError(db, "", dbs, "databases share package "+pkg))
		}
	}
	for _, db := range sortedKeys(groups) {
		if len(errs[db]) == 0 {
			continue
		}
		for _, err := range errs[db] {
			c.report(err)
		}
		for _, e := range groups[db] {
			e.state = stateFailed
			e.errs = append(e.errs, errs[db]...)
			c.log.Warn("entity abandoned", zap.String("entity", e.Name), zap.String("database", db))
		}
	}
}

// collisions reports the entities of one group sharing a table name, an
// adapter name or a file name. Table and file names compare case-insensitively.
func collisions(db string, entities []*Entity) []error {
	var errs []error
	for _, key := range []struct {
		table bool
		what  string
		name  func(*Entity) string
	}{
		{table: true, what: "duplicate table name", name: func(e *Entity) string { return strings.ToLower(e.Table) }},
		{what: "adapter", name: AdapterName},
		{what: "file", name: func(e *Entity) string { return strings.ToLower(FileName(e)) }},
	} {
		seen := make(map[string][]string)
		for _, e := range entities {
			k := key.name(e)
			seen[k] = append(seen[k], e.Name)
		}
		for _, k := range sortedKeys(seen) {
			names := seen[k]
			switch {
			case len(names) < 2:
			case key.table:
				errs = append(errs, NewConsistencyError(db, k, names, key.what))
			default:
				errs = append(errs, NewConsistencyError(db, "", names, fmt.Sprintf("generated %s %s collides", key.what, k)))
			}
		}
	}
	return errs
}

// propagateFailures fails the entities that depend on an invalid entity,
// until a fixed point is reached.
func (c *CompilationContext) propagateFailures() {
	for changed := true; changed; {
		changed = false
		for _, name := range sortedKeys(c.entities) {
			e := c.entities[name]
			if !e.Valid() {
				continue
			}
			for _, dep := range e.dependencies() {
				if !dep.Valid() {
					c.fail(e, NewResolutionError(e.Name, "", dep.Name, "depends on an invalid entity", nil))
					changed = true
					break
				}
			}
		}
	}
}

// dependencies returns the entities e cannot be emitted without.
func (e *Entity) dependencies() []*Entity {
	var deps []*Entity
	for _, f := range e.Fields {
		if f.Ref != nil && f.Ref.Entity != nil && f.Ref.Entity != e {
			deps = append(deps, f.Ref.Entity)
		}
	}
	if e.Join != nil {
		deps = append(deps, e.Join.Owner, e.Join.Reference)
	}
	return deps
}

// synthesizeJoins builds the join tables whose endpoints are resolved.
func (c *CompilationContext) synthesizeJoins() bool {
	progress := false
	var waiting []*load.ManyToMany
	for _, m := range c.joins {
		owner, ok1 := c.entities[m.Owner]
		ref, ok2 := c.entities[m.Reference]
		if !ok1 || !ok2 || owner.state == stateDeclared || ref.state == stateDeclared {
			waiting = append(waiting, m)
			continue
		}
		progress = true
		if err := c.join(m, owner, ref); err != nil {
			c.failNamed(m.Owner, err)
		}
	}
	c.joins = waiting
	return progress
}

// join synthesizes the join table of a many-to-many declaration.
func (c *CompilationContext) join(m *load.ManyToMany, owner, ref *Entity) error {
	name := joinName(m)
	invalid := func(format string, args ...any) error {
		return NewValidationError(owner.Name, "", name, fmt.Sprintf(format, args...))
	}
	switch {
	case !owner.Valid() || !ref.Valid():
		return NewResolutionError(owner.Name, "", name, "many-to-many endpoint is invalid", nil)
	case owner.Kind != KindTable || ref.Kind != KindTable:
		return invalid("many-to-many endpoints must be tables")
	case owner.Database != ref.Database:
		return invalid("many-to-many endpoints are in databases %s and %s", owner.Database, ref.Database)
	case c.entities[name] != nil:
		return invalid("join table name collides with entity %s", name)
	}
	ownerCol, refCol := m.OwnerColumn, m.ReferenceColumn
	if ownerCol == "" {
		ownerCol = strings.ToLower(owner.Name)
	}
	if refCol == "" {
		refCol = strings.ToLower(ref.Name)
	}
	if owner == ref && m.OwnerColumn == "" && m.ReferenceColumn == "" {
		ownerCol, refCol = ownerCol+"_1", refCol+"_2"
	}
	if ownerCol == refCol {
		return invalid("join columns share the name %q", ownerCol)
	}
	d := &load.Declaration{
		Name:     name,
		Database: owner.Database,
		Pos:      m.Pos,
	}
	var key *load.PrimaryKey
	if m.AutoIncrement() {
		d.Fields = append(d.Fields, &load.Field{
			Name:       "_id",
			Type:       "int64",
			PrimaryKey: &load.PrimaryKey{AutoIncrement: true},
		})
	} else {
		key = &load.PrimaryKey{}
	}
	for _, fk := range []struct {
		name   string
		target *Entity
	}{{ownerCol, owner}, {refCol, ref}} {
		d.Fields = append(d.Fields, &load.Field{
			Name:       fk.name,
			NotNull:    true,
			PrimaryKey: key,
			ForeignKey: &load.ForeignKey{Table: fk.target.Name, OnDelete: "CASCADE"},
		})
	}
	for i, f := range d.Fields {
		f.Position = i
	}
	e := c.declare(d, KindJoinTable)
	e.Join = &Join{Owner: owner, Reference: ref, Decl: m}
	c.entities[name] = e
	if e.state == stateDeclared {
		if err := c.resolveEntity(e); err != nil {
			c.fail(e, NewResolutionError(name, "", "", "join table", err))
		}
	}
	c.log.Debug("join table synthesized", zap.String("entity", name), zap.Bool("valid", e.Valid()))
	return nil
}

// joinName returns the join table name of a many-to-many declaration.
func joinName(m *load.ManyToMany) string {
	if m.Name != "" {
		return m.Name
	}
	return m.Owner + "_" + m.Reference
}

// synthesizeAccessors attaches the one-to-many accessors whose parent and
// child are resolved.
func (c *CompilationContext) synthesizeAccessors() bool {
	progress := false
	var waiting []*load.OneToMany
	for _, o := range c.accessors {
		parent, ok1 := c.entities[o.Parent]
		child, ok2 := c.entities[o.Child]
		if !ok1 || !ok2 || parent.state == stateDeclared || child.state == stateDeclared {
			waiting = append(waiting, o)
			continue
		}
		progress = true
		if !parent.Valid() {
			continue
		}
		if err := c.accessor(o, parent, child); err != nil {
			c.fail(parent, err)
		}
	}
	c.accessors = waiting
	return progress
}

// accessor attaches a one-to-many accessor to its parent.
func (c *CompilationContext) accessor(o *load.OneToMany, parent, child *Entity) error {
	name := o.Name
	if name == "" {
		name = plural(child.Name)
	}
	invalid := func(format string, args ...any) error {
		return NewValidationError(parent.Name, name, o.Pos, fmt.Sprintf(format, args...))
	}
	if !child.Valid() {
		return NewResolutionError(parent.Name, name, child.Name, "accessor child is invalid", nil)
	}
	if _, ok := parent.Field(name); ok {
		return invalid("accessor collides with an existing field")
	}
	if len(parent.Primary) == 0 {
		return invalid("accessor parent has no primary key")
	}
	var fk *Field
	if o.Reference != "" {
		f, ok := child.Field(o.Reference)
		switch {
		case !ok:
			return invalid("unknown child field %q", o.Reference)
		case f.Kind != ForeignKeyField || f.Ref.Target != parent.Name:
			return invalid("child field %q is not a foreign key to %s", o.Reference, parent.Name)
		}
		fk = f
	} else {
		var candidates []*Field
		for _, f := range child.ForeignKeys() {
			if f.Ref.Target == parent.Name {
				candidates = append(candidates, f)
			}
		}
		switch len(candidates) {
		case 0:
			return invalid("%s has no foreign key to %s", child.Name, parent.Name)
		case 1:
			fk = candidates[0]
		default:
			return invalid("%s has several foreign keys to %s (%s), set the reference", child.Name, parent.Name, fieldNames(candidates))
		}
	}
	acc := &Accessor{
		Name:   name,
		Parent: parent,
		Child:  child,
		Field:  fk,
		Eager:  o.Eager,
		Pos:    o.Pos,
	}
	primary := parent.PrimaryColumns()
	for _, cc := range fk.Ref.Columns {
		i := slices.IndexFunc(primary, func(pc *Column) bool { return pc.Name == cc.Target })
		if i < 0 {
			return invalid("no parent column matches %s.%s", child.Name, cc.Name)
		}
		acc.Pairs = append(acc.Pairs, &FilterPair{Parent: primary[i], Child: cc})
	}
	f := &Field{
		Name:     name,
		Kind:     OneToManyField,
		Position: len(parent.Fields),
		Ref:      &Reference{Target: child.Name, Entity: child, Accessor: acc},
	}
	if err := parent.addField(f); err != nil {
		return invalid("%v", err)
	}
	parent.Accessors = append(parent.Accessors, acc)
	return nil
}

// fail marks the entity as failed and records the error.
func (c *CompilationContext) fail(e *Entity, err error) {
	if e.state != stateFailed {
		c.log.Warn("entity abandoned", zap.String("entity", e.Name), zap.Error(err))
	}
	e.state = stateFailed
	e.errs = append(e.errs, err)
	c.report(err)
}

// failNamed fails the named entity if it exists, and reports the error
// otherwise.
func (c *CompilationContext) failNamed(name string, err error) {
	if e, ok := c.entities[name]; ok {
		c.fail(e, err)
		return
	}
	c.report(err)
}

// report records a diagnostic of the run.
func (c *CompilationContext) report(err error) {
	c.errs = append(c.errs, err)
}

// deferred returns the number of entities waiting for a target.
func (c *CompilationContext) deferred() int {
	n := 0
	for _, e := range c.entities {
		if e.state == stateDeclared {
			n++
		}
	}
	return n
}

// hasWork reports if anything is still pending.
func (c *CompilationContext) hasWork() bool {
	return len(c.pending) > 0 || len(c.joins) > 0 || len(c.accessors) > 0 || c.deferred() > 0
}

// Entity returns the entity with the given name, valid or not.
func (c *CompilationContext) Entity(name string) (*Entity, bool) {
	e, ok := c.entities[name]
	return e, ok
}

// Errors returns the diagnostics recorded so far.
func (c *CompilationContext) Errors() []error {
	return slices.Clone(c.errs)
}

// Rounds returns the number of rounds run so far.
func (c *CompilationContext) Rounds() int { return c.rounds }

// Graph is the resolved schema graph of one run. Only valid entities are
// part of the graph; Errors holds the diagnostics of the abandoned ones.
type Graph struct {
	*Config
	// Databases are the database groups, sorted by name.
	Databases []*Database
	// Entities are the valid entities, sorted by name.
	Entities []*Entity
	// Failed are the abandoned entities, sorted by name.
	Failed []*Entity
	// Errors holds every diagnostic of the run, in report order.
	Errors []error
	// Declarations is the merged input of the run.
	Declarations *load.Set
}

func (c *CompilationContext) graph() *Graph {
	g := &Graph{
		Config:       c.cfg,
		Errors:       slices.Clone(c.errs),
		Declarations: c.decls,
	}
	groups := make(map[string][]*Entity)
	for _, name := range sortedKeys(c.entities) {
		e := c.entities[name]
		if !e.Valid() {
			g.Failed = append(g.Failed, e)
			continue
		}
		g.Entities = append(g.Entities, e)
		groups[e.Database] = append(groups[e.Database], e)
	}
	for _, name := range sortedKeys(groups) {
		g.Databases = append(g.Databases, newDatabase(name, c.databases[name], groups[name]))
	}
	return g
}

// NewGraph compiles the declaration sets into a graph. The graph is returned
// even when some entities were abandoned; the error then joins their
// diagnostics.
func NewGraph(cfg *Config, sets ...*load.Set) (*Graph, error) {
	c, err := NewContext(cfg)
	if err != nil {
		return nil, err
	}
	for _, s := range sets {
		c.Add(s)
	}
	c.Run()
	g := c.Finalize()
	return g, g.Err()
}

// Err joins the diagnostics of the graph.
func (g *Graph) Err() error {
	return errors.Join(g.Errors...)
}

// Entity returns the valid entity with the given name.
func (g *Graph) Entity(name string) (*Entity, bool) {
	i := slices.IndexFunc(g.Entities, func(e *Entity) bool { return e.Name == name })
	if i < 0 {
		return nil, false
	}
	return g.Entities[i], true
}

// Database returns the database group with the given name.
func (g *Graph) Database(name string) (*Database, bool) {
	i := slices.IndexFunc(g.Databases, func(db *Database) bool { return db.Name == name })
	if i < 0 {
		return nil, false
	}
	return g.Databases[i], true
}
