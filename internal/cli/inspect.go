package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/syssam/schemagen/compiler/gen"
	gensql "github.com/syssam/schemagen/compiler/gen/sql"
)

func newInspectCommand() *cobra.Command {
	var showSQL bool
	cmd := &cobra.Command{
		Use:   "inspect [entity]",
		Short: "Show the resolved schema graph",
		Long: `Without arguments, list the entities of every database with their kind,
table and key. With an entity name, show its resolved columns and, with
--sql, its statement templates.`,
		Example: `  schemagen inspect
  schemagen inspect Post --sql`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			g, err := compile(GetConfig(ctx), GetLogger(ctx))
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(args) == 0 {
				renderGraph(w, g)
				return writeDiagnostics(cmd.ErrOrStderr(), g)
			}
			e, ok := g.Entity(args[0])
			if !ok {
				for _, f := range g.Failed {
					if f.Name == args[0] {
						for _, err := range f.Errors() {
							_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "  %v\n", err)
						}
						return fmt.Errorf("entity %s did not resolve", f.Name)
					}
				}
				return fmt.Errorf("unknown entity %q", args[0])
			}
			renderEntity(w, e)
			if showSQL {
				renderTemplates(w, gensql.NewTemplates(g.Config, e))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showSQL, "sql", false, "Show the statement templates of the entity")
	return cmd
}

func renderGraph(w io.Writer, g *gen.Graph) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Database", "Entity", "Kind", "Table", "Key", "Columns"})
	for _, db := range g.Databases {
		for _, e := range db.Entities {
			t.AppendRow(table.Row{db.Name, e.Name, e.Kind, e.Table, keyOf(e), len(e.Columns())})
		}
	}
	for _, e := range g.Failed {
		t.AppendRow(table.Row{e.Database, e.Name, e.Kind, e.Table, "-", "failed"})
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d entities, %d failed)\n", len(g.Entities), len(g.Failed))
}

func renderEntity(w io.Writer, e *gen.Entity) {
	_, _ = fmt.Fprintf(w, "%s %s: %s.%s\n", e.Kind, e.Name, e.Database, e.Table)
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Column", "Type", "Model type", "Nullable", "Converter", "Field", "Target"})
	for _, c := range e.Columns() {
		field := ""
		if c.Field != nil {
			field = c.Field.Name
		}
		t.AppendRow(table.Row{c.Name, c.Type, c.ModelType, c.Nullable, c.ConverterName(), field, c.Target})
	}
	t.Render()
	for _, acc := range e.Accessors {
		_, _ = fmt.Fprintf(w, "accessor %s -> %s\n", acc.Name, acc.Child.Name)
	}
}

func renderTemplates(w io.Writer, tmpl *gensql.Templates) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Statement", "SQL"})
	for _, row := range []struct{ name, query string }{
		{"create", tmpl.Creation},
		{"insert", tmpl.Insert},
		{"save", tmpl.Save},
		{"update", tmpl.Update},
		{"delete", tmpl.Delete},
	} {
		if row.query != "" {
			t.AppendRow(table.Row{row.name, row.query})
		}
	}
	for _, q := range tmpl.Indexes {
		t.AppendRow(table.Row{"index", q})
	}
	t.Render()
}

func keyOf(e *gen.Entity) string {
	if e.AutoIncrement != nil {
		return e.AutoIncrement.Name + " (" + e.AutoIncrement.Primary.String() + ")"
	}
	cols := e.PrimaryColumns()
	if len(cols) == 0 {
		return "-"
	}
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return strings.Join(names, ", ")
}
