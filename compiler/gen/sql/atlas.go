package sql

import (
	"context"
	"fmt"
	"strings"

	"ariga.io/atlas/sql/migrate"
	"ariga.io/atlas/sql/schema"
	"ariga.io/atlas/sql/sqlite"

	"github.com/syssam/schemagen/compiler/gen"
	"github.com/syssam/schemagen/dialect/sqlschema"
)

// AtlasSchemas converts the tables of every database group to an atlas
// schema, for use with atlas migration tooling. Views, query models and
// virtual tables are not part of the export.
func AtlasSchemas(g *gen.Graph) []*schema.Schema {
	schemas := make([]*schema.Schema, 0, len(g.Databases))
	for _, db := range g.Databases {
		schemas = append(schemas, AtlasSchema(db))
	}
	return schemas
}

// MigrationPlans diffs the tables of every database group of from against
// those of to and plans the SQLite statements migrating one to the other.
// Groups without changes get no plan. Groups missing from to are not
// dropped.
func MigrationPlans(ctx context.Context, from, to *gen.Graph) ([]*migrate.Plan, error) {
	current := make(map[string]*schema.Schema)
	for _, s := range AtlasSchemas(from) {
		current[s.Name] = s
	}
	var plans []*migrate.Plan
	for _, desired := range AtlasSchemas(to) {
		s, ok := current[desired.Name]
		if !ok {
			s = schema.New(desired.Name)
		}
		changes, err := sqlite.DefaultDiff.SchemaDiff(s, desired)
		if err != nil {
			return nil, fmt.Errorf("sql: diff %s: %w", desired.Name, err)
		}
		if len(changes) == 0 {
			continue
		}
		plan, err := sqlite.DefaultPlan.PlanChanges(ctx, desired.Name, changes)
		if err != nil {
			return nil, fmt.Errorf("sql: plan %s: %w", desired.Name, err)
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

// AtlasSchema converts the tables of one database group.
func AtlasSchema(db *gen.Database) *schema.Schema {
	s := schema.New(db.Name)
	tables := make(map[*gen.Entity]*schema.Table)
	for _, e := range db.Tables() {
		if e.Virtual != nil {
			continue
		}
		t := atlasTable(e)
		tables[e] = t
		s.AddTables(t)
	}
	// Foreign keys are added once every table exists, so that references
	// to tables created later resolve.
	for _, e := range db.Tables() {
		t, ok := tables[e]
		if !ok {
			continue
		}
		for _, f := range e.ForeignKeys() {
			ref, ok := tables[f.Ref.Entity]
			if !ok {
				continue
			}
			fk := &schema.ForeignKey{
				Symbol:   fmt.Sprintf("%s_%s", e.Table, f.Name),
				Table:    t,
				RefTable: ref,
				OnUpdate: referenceOption(f.Ref.OnUpdate),
				OnDelete: referenceOption(f.Ref.OnDelete),
			}
			for _, c := range f.Ref.Columns {
				local, _ := t.Column(c.Name)
				target, _ := ref.Column(c.Target)
				fk.Columns = append(fk.Columns, local)
				fk.RefColumns = append(fk.RefColumns, target)
			}
			t.ForeignKeys = append(t.ForeignKeys, fk)
		}
	}
	return s
}

func atlasTable(e *gen.Entity) *schema.Table {
	t := &schema.Table{Name: e.Table}
	for _, c := range e.Columns() {
		col := &schema.Column{
			Name: c.Name,
			Type: &schema.ColumnType{
				Type: atlasType(c),
				Raw:  string(c.Type),
				Null: !c.NotNull,
			},
		}
		if c.HasDefault() {
			col.Default = &schema.RawExpr{X: c.Default}
		}
		if c.Collate != "" {
			col.Attrs = append(col.Attrs, &schema.Collation{V: c.Collate})
		}
		t.Columns = append(t.Columns, col)
	}
	if cols := e.PrimaryColumns(); len(cols) > 0 {
		t.PrimaryKey = atlasIndex(t, "", false, cols)
	}
	for _, c := range e.Columns() {
		if c.Unique {
			t.Indexes = append(t.Indexes, atlasIndex(t, fmt.Sprintf("%s_%s_unique", e.Table, c.Name), true, []*gen.Column{c}))
		}
	}
	for _, g := range e.UniqueGroups {
		t.Indexes = append(t.Indexes, atlasIndex(t, fmt.Sprintf("%s_unique_%d", e.Table, g.Number), true, g.Columns))
	}
	for _, g := range e.IndexGroups {
		t.Indexes = append(t.Indexes, atlasIndex(t, g.Name, g.Unique, g.Columns))
	}
	return t
}

func atlasIndex(t *schema.Table, name string, unique bool, cols []*gen.Column) *schema.Index {
	idx := &schema.Index{Name: name, Unique: unique, Table: t}
	for i, c := range cols {
		col, _ := t.Column(c.Name)
		idx.Parts = append(idx.Parts, &schema.IndexPart{SeqNo: i, C: col})
	}
	return idx
}

func atlasType(c *gen.Column) schema.Type {
	t := strings.ToLower(string(c.Type))
	switch c.Type {
	case sqlschema.Integer:
		return &schema.IntegerType{T: t}
	case sqlschema.Real:
		return &schema.FloatType{T: t}
	case sqlschema.Text:
		return &schema.StringType{T: t, Size: c.Length}
	case sqlschema.Blob:
		return &schema.BinaryType{T: t}
	default:
		return &schema.UnsupportedType{T: t}
	}
}

func referenceOption(a sqlschema.CascadeAction) schema.ReferenceOption {
	switch a {
	case sqlschema.Cascade:
		return schema.Cascade
	case sqlschema.SetNull:
		return schema.SetNull
	case sqlschema.Restrict:
		return schema.Restrict
	case sqlschema.SetDefault:
		return schema.SetDefault
	default:
		return schema.NoAction
	}
}
