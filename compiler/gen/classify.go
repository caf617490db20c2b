package gen

import (
	"fmt"
	"strings"

	"github.com/syssam/schemagen/compiler/load"
	"github.com/syssam/schemagen/dialect/sqlschema"
)

// entityKind maps a declared kind to the entity kind.
func entityKind(k load.Kind) (EntityKind, bool) {
	switch k {
	case "", load.KindTable:
		return KindTable, true
	case load.KindView:
		return KindView, true
	case load.KindQueryModel:
		return KindQueryModel, true
	default:
		return 0, false
	}
}

// declare builds the entity of a declaration and classifies its fields.
// Classification problems are recorded on the entity, which is then marked
// as failed. Fields are classified even after the first problem, so that all
// of them are reported in one run.
func (c *CompilationContext) declare(d *load.Declaration, kind EntityKind) *Entity {
	e := &Entity{
		Name:               d.Name,
		Table:              d.Table,
		Database:           d.Database,
		Kind:               kind,
		Temporary:          d.Temporary,
		CreateWithDatabase: d.CreateWithDatabase == nil || *d.CreateWithDatabase,
		Query:              strings.TrimSpace(d.Query),
		Pos:                d.Pos,
		decl:               d,
		fields:             make(map[string]*Field, len(d.Fields)),
	}
	var errs []error
	report := func(field string, value any, format string, args ...any) {
		errs = append(errs, NewValidationError(d.Name, field, value, fmt.Sprintf(format, args...)))
	}
	if err := ValidEntityName(d.Name); err != nil {
		errs = append(errs, &ValidationError{Entity: d.Name, Value: d.Pos, Message: "invalid name", Cause: err})
	}
	if e.Table == "" {
		e.Table = d.Name
	}
	if strings.ContainsAny(e.Table, "`\"'") {
		report("", e.Table, "table name %q contains quotes", e.Table)
	}
	if e.Database == "" {
		e.Database = c.cfg.DefaultDatabase
	}
	db := c.databases[e.Database]
	conflict := func(name, value, fallback string) sqlschema.ConflictAction {
		if value == "" {
			value = fallback
		}
		a, err := sqlschema.ParseConflictAction(value)
		if err != nil {
			errs = append(errs, &ValidationError{Entity: d.Name, Value: value, Message: name, Cause: err})
		}
		return a
	}
	var dbInsert, dbUpdate string
	if db != nil {
		dbInsert, dbUpdate = db.InsertConflict, db.UpdateConflict
	}
	e.InsertConflict = conflict("insert conflict", d.InsertConflict, dbInsert)
	e.UpdateConflict = conflict("update conflict", d.UpdateConflict, dbUpdate)
	e.PrimaryKeyConflict = conflict("primary key conflict", d.PrimaryKeyConflict, "")
	if d.Caching != nil {
		switch size := d.Caching.Size; {
		case size < 0:
			report("", size, "negative cache size")
		case size == 0:
			e.CacheSize = DefaultCacheSize
		default:
			e.CacheSize = size
		}
	}
	switch kind {
	case KindView:
		if e.Query == "" {
			report("", nil, "view requires a query")
		}
	case KindTable, KindJoinTable:
		if e.Query != "" {
			report("", e.Query, "query is only valid on views and query models")
		}
	case KindQueryModel:
	default:
		panic(fmt.Sprintf("gen: unexpected entity kind %v", kind))
	}
	if !e.IsTable() && (d.Temporary || d.Virtual != nil) {
		report("", kind.String(), "temporary and virtual flags are only valid on tables")
	}
	for _, lf := range d.Fields {
		f, err := c.classifyField(e, lf)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := e.addField(f); err != nil {
			report(lf.Name, nil, "%v", err)
		}
	}
	errs = append(errs, c.checkPrimary(e, len(errs) > 0)...)
	errs = append(errs, c.declareGroups(e, d)...)
	if d.Virtual != nil {
		errs = append(errs, c.checkVirtual(e, d.Virtual)...)
	}
	for _, err := range errs {
		c.fail(e, err)
	}
	return e
}

// classifyField builds the field of a declaration and gives it its kind.
func (c *CompilationContext) classifyField(e *Entity, lf *load.Field) (*Field, error) {
	invalid := func(format string, args ...any) error {
		return NewValidationError(e.Name, lf.Name, nil, fmt.Sprintf(format, args...))
	}
	if lf.Name == "" {
		return nil, invalid("field name cannot be empty")
	}
	if lf.Column != nil && *lf.Column == "" {
		return nil, invalid("column name cannot be empty")
	}
	if lf.ForeignKey != nil && lf.Computed != nil {
		return nil, invalid("field cannot be both a foreign key and computed")
	}
	f := &Field{
		Name:         lf.Name,
		Position:     lf.Position,
		Comment:      lf.Comment,
		Unique:       lf.Unique,
		Enum:         lf.Enum,
		UniqueGroups: lf.UniqueGroups,
		IndexGroups:  lf.IndexGroups,
		converter:    lf.Converter,
		decl:         lf,
		prefix:       lf.Name,
	}
	if lf.Column != nil {
		f.prefix = *lf.Column
	}
	var err error
	if f.UniqueConflict, err = sqlschema.ParseConflictAction(lf.UniqueConflict); err != nil {
		return nil, &ValidationError{Entity: e.Name, Field: lf.Name, Message: "unique conflict", Cause: err}
	}
	if f.NotNullConflict, err = sqlschema.ParseConflictAction(lf.NotNullConflict); err != nil {
		return nil, &ValidationError{Entity: e.Name, Field: lf.Name, Message: "not null conflict", Cause: err}
	}
	switch {
	case lf.ForeignKey != nil:
		fk := lf.ForeignKey
		switch pk := lf.PrimaryKey; {
		case lf.IsEnum():
			return nil, invalid("enum field cannot be a foreign key")
		case fk.Table == "":
			return nil, invalid("foreign key requires a target table")
		case pk != nil && (pk.AutoIncrement || pk.RowID):
			return nil, invalid("foreign key cannot be an auto-increment or rowid key")
		case pk != nil:
			f.Primary = PrimaryComposite
		}
		f.Kind = ForeignKeyField
		f.Ref = &Reference{Target: fk.Table, Explicit: fk.References, Deferred: fk.Deferred}
		if f.Ref.OnUpdate, err = sqlschema.ParseCascadeAction(fk.OnUpdate); err != nil {
			return nil, &ValidationError{Entity: e.Name, Field: lf.Name, Message: "on update", Cause: err}
		}
		if f.Ref.OnDelete, err = sqlschema.ParseCascadeAction(fk.OnDelete); err != nil {
			return nil, &ValidationError{Entity: e.Name, Field: lf.Name, Message: "on delete", Cause: err}
		}
	case lf.Computed != nil:
		switch {
		case lf.PrimaryKey != nil:
			return nil, invalid("computed field cannot be a primary key")
		case lf.IsEnum():
			return nil, invalid("computed field cannot be an enum")
		case lf.Computed.Target == "":
			return nil, invalid("computed field requires a target")
		}
		f.Kind = ComputedField
		f.Ref = &Reference{Target: lf.Computed.Target, Explicit: lf.Computed.References}
	default:
		f.Kind = SingleField
		if err := c.classifySingle(e, f, lf); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// classifySingle sets the primary mode and the resolved column of a scalar field.
func (c *CompilationContext) classifySingle(e *Entity, f *Field, lf *load.Field) error {
	invalid := func(format string, args ...any) error {
		return NewValidationError(e.Name, lf.Name, lf.Type, fmt.Sprintf(format, args...))
	}
	if pk := lf.PrimaryKey; pk != nil {
		switch {
		case lf.IsEnum():
			return invalid("enum field cannot be a primary key")
		case pk.AutoIncrement && pk.RowID:
			return invalid("field cannot be both auto-increment and rowid")
		case (pk.AutoIncrement || pk.RowID) && !integralTypes[lf.Type]:
			return invalid("auto-increment and rowid keys require an integer type")
		case pk.AutoIncrement:
			f.Primary = PrimaryAutoIncrement
		case pk.RowID:
			f.Primary = PrimaryRowID
		default:
			f.Primary = PrimaryComposite
		}
	}
	if lf.Type == "" && lf.Converter == "" && !lf.IsEnum() {
		return invalid("missing model type")
	}
	if lf.Length < 0 {
		return invalid("negative length %d", lf.Length)
	}
	typ, conv, err := c.converters.resolve(e.Name, lf)
	if err != nil {
		return err
	}
	if f.Primary == PrimaryAutoIncrement || f.Primary == PrimaryRowID {
		if conv != nil {
			return invalid("auto-increment and rowid keys cannot use a converter")
		}
	}
	col := &Column{
		Name:      f.prefix,
		ModelType: modelType(lf, conv),
		Type:      typ,
		NotNull:   lf.NotNull,
		Nullable:  nullable(lf.NotNull || f.IsAuto(), conv),
		Default:   lf.Default,
		Length:    lf.Length,
		Collate:   lf.Collate,
		Unique:    lf.Unique,
		Converter: conv,
		Path:      []string{lf.Name},
		Field:     f,
	}
	if col.Type != sqlschema.Text && col.Collate != "" {
		return invalid("collation is only valid on TEXT columns")
	}
	if len(lf.Enum) > 0 && lf.Default != "" && !validEnumDefault(lf.Enum, lf.Default) {
		return invalid("default %s is not one of the enum values", lf.Default)
	}
	f.Column = col
	return nil
}

// validEnumDefault reports if a default literal names one of the values.
func validEnumDefault(values []string, lit string) bool {
	v := strings.TrimSuffix(strings.TrimPrefix(lit, "'"), "'")
	for i := range values {
		if values[i] == v {
			return true
		}
	}
	return false
}

// checkPrimary enforces the primary-key invariant: a table has exactly one of
// a single auto-increment/rowid key or a non-empty composite key. Views and
// query models may have no key, but never both forms. A partial entity, with
// fields dropped by classification errors, is not reported as keyless.
func (c *CompilationContext) checkPrimary(e *Entity, partial bool) []error {
	var autos, composite []*Field
	for _, f := range e.Fields {
		switch f.Primary {
		case PrimaryAutoIncrement, PrimaryRowID:
			autos = append(autos, f)
		case PrimaryComposite:
			composite = append(composite, f)
		case PrimaryNone:
		default:
			panic(fmt.Sprintf("gen: unexpected primary mode %v", f.Primary))
		}
	}
	invalid := func(format string, args ...any) []error {
		return []error{NewValidationError(e.Name, "", nil, fmt.Sprintf(format, args...))}
	}
	switch {
	case e.IsTable() && len(e.decl.Fields) == 0:
		return invalid("table has no fields")
	case len(autos) > 1:
		return invalid("several auto-increment or rowid keys: %s", fieldNames(autos))
	case len(autos) == 1 && len(composite) > 0:
		return invalid("auto-increment key %s mixed with composite key %s", autos[0].Name, fieldNames(composite))
	case len(autos) == 1:
		e.AutoIncrement = autos[0]
		e.Primary = autos
	case len(composite) > 0:
		e.Primary = composite
	case e.IsTable() && !partial:
		return invalid("table has no primary key")
	}
	return nil
}

// declareGroups registers the unique and index groups of the declaration. The
// group columns are filled once the fields are resolved.
func (c *CompilationContext) declareGroups(e *Entity, d *load.Declaration) []error {
	var errs []error
	seen := make(map[int]bool)
	for _, g := range d.UniqueGroups {
		if seen[g.Number] {
			errs = append(errs, NewValidationError(e.Name, "", g.Number, "unique group redeclared"))
			continue
		}
		seen[g.Number] = true
		a, err := sqlschema.ParseConflictAction(g.Conflict)
		if err != nil {
			errs = append(errs, &ValidationError{Entity: e.Name, Value: g.Number, Message: "unique group conflict", Cause: err})
			continue
		}
		e.UniqueGroups = append(e.UniqueGroups, &UniqueGroup{Number: g.Number, Conflict: a})
	}
	clear(seen)
	names := make(map[string]bool)
	for _, g := range d.IndexGroups {
		name := g.Name
		if name == "" {
			name = fmt.Sprintf("%s_index_%d", e.Table, g.Number)
		}
		switch {
		case seen[g.Number]:
			errs = append(errs, NewValidationError(e.Name, "", g.Number, "index group redeclared"))
			continue
		case names[name]:
			errs = append(errs, NewValidationError(e.Name, "", name, "index name redeclared"))
			continue
		}
		seen[g.Number], names[name] = true, true
		e.IndexGroups = append(e.IndexGroups, &IndexGroup{Number: g.Number, Name: name, Unique: g.Unique})
	}
	if len(e.IndexGroups) > 0 && !e.IsTable() {
		errs = append(errs, NewValidationError(e.Name, "", nil, "index groups are only valid on tables"))
	}
	return errs
}

// checkVirtual validates an FTS table: scalar fields only, and a rowid key.
func (c *CompilationContext) checkVirtual(e *Entity, v *load.Virtual) []error {
	module := strings.ToUpper(v.Module)
	if module == "" {
		module = "FTS4"
	}
	e.Virtual = &Virtual{Module: module, Content: v.Content}
	var errs []error
	invalid := func(field, format string, args ...any) {
		errs = append(errs, NewValidationError(e.Name, field, nil, fmt.Sprintf(format, args...)))
	}
	if module != "FTS3" && module != "FTS4" {
		invalid("", "unsupported virtual table module %q", v.Module)
	}
	if module == "FTS3" && v.Content != "" {
		invalid("", "external content requires FTS4")
	}
	if e.Temporary {
		invalid("", "virtual table cannot be temporary")
	}
	for _, f := range e.Fields {
		if f.Kind != SingleField {
			invalid(f.Name, "virtual table fields must be scalar")
		}
	}
	if e.AutoIncrement != nil && e.AutoIncrement.Primary != PrimaryRowID {
		invalid(e.AutoIncrement.Name, "virtual table key must be a rowid field")
	}
	if e.HasCompositeKey() {
		invalid("", "virtual table cannot have a composite key")
	}
	return errs
}

func fieldNames(fs []*Field) string {
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = f.Name
	}
	return strings.Join(names, ", ")
}
