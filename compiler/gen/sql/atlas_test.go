package sql

import (
	"strings"
	"testing"

	"ariga.io/atlas/sql/migrate"
	"ariga.io/atlas/sql/schema"
	"github.com/stretchr/testify/require"
)

func TestAtlasSchemas(t *testing.T) {
	require := require.New(t)
	schemas := AtlasSchemas(compile(t, blogSchema))
	require.Len(schemas, 1)
	s := schemas[0]
	require.Equal("blog", s.Name)

	names := make([]string, len(s.Tables))
	for i, tbl := range s.Tables {
		names[i] = tbl.Name
	}
	require.Equal([]string{"Author", "Post", "Tag", "Post_Tag"}, names)

	t.Run("Columns and keys", func(t *testing.T) {
		author, ok := s.Table("Author")
		require.True(ok)
		require.Len(author.Columns, 3)
		name, ok := author.Column("name")
		require.True(ok)
		require.False(name.Type.Null)
		require.IsType(&schema.StringType{}, name.Type.Type)
		require.Len(author.PrimaryKey.Parts, 1)
		require.Equal("id", author.PrimaryKey.Parts[0].C.Name)
		require.Len(author.Indexes, 1)
		require.True(author.Indexes[0].Unique)
	})

	t.Run("Foreign keys map reference actions", func(t *testing.T) {
		post, ok := s.Table("Post")
		require.True(ok)
		require.Len(post.ForeignKeys, 1)
		fk := post.ForeignKeys[0]
		require.Equal("Author", fk.RefTable.Name)
		require.Equal(schema.Cascade, fk.OnDelete)
		require.Equal(schema.NoAction, fk.OnUpdate)
		require.Equal("author_id", fk.Columns[0].Name)
		require.Equal("id", fk.RefColumns[0].Name)
		require.Len(post.Indexes, 1)
		require.Equal("post_title", post.Indexes[0].Name)
	})
}

func TestMigrationPlans(t *testing.T) {
	from := compile(t, blogSchema)

	t.Run("Unchanged schema has no plan", func(t *testing.T) {
		plans, err := MigrationPlans(t.Context(), from, compile(t, blogSchema))
		require.NoError(t, err)
		require.Empty(t, plans)
	})

	t.Run("Added column and table", func(t *testing.T) {
		require := require.New(t)
		to := compile(t, strings.Replace(blogSchema, `      - name: joined
        type: time.Time
`, `      - name: joined
        type: time.Time
      - name: bio
        type: string
`, 1)+`
  - name: Comment
    database: blog
    fields:
      - name: id
        type: int64
        primary_key:
          auto_increment: true
      - name: body
        type: string
`)
		plans, err := MigrationPlans(t.Context(), from, to)
		require.NoError(err)
		require.Len(plans, 1)
		require.Equal("blog", plans[0].Name)
		all := planCommands(plans[0])
		require.Contains(all, "CREATE TABLE `Comment`")
		require.Contains(all, "`bio` text NULL")
	})

	t.Run("New database creates every table", func(t *testing.T) {
		plans, err := MigrationPlans(t.Context(), compile(t, "entities: []\n"), from)
		require.NoError(t, err)
		require.Len(t, plans, 1)
		all := planCommands(plans[0])
		for _, table := range []string{"Author", "Post", "Tag", "Post_Tag"} {
			require.Contains(t, all, "CREATE TABLE `"+table+"`")
		}
		require.NotContains(t, all, "PostTitle")
	})
}

func planCommands(p *migrate.Plan) string {
	cmds := make([]string, len(p.Changes))
	for i, c := range p.Changes {
		cmds[i] = c.Cmd
	}
	return strings.Join(cmds, "\n")
}
