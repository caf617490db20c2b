package sql

import (
	"testing"

	"github.com/dave/jennifer/jen"
	"github.com/stretchr/testify/require"

	"github.com/syssam/schemagen/compiler/gen"
	"github.com/syssam/schemagen/compiler/load"
)

// blogSchema declares an author with posts, tags and a view over posts.
const blogSchema = `
databases:
  - name: blog
    foreign_keys: true
entities:
  - name: Author
    database: blog
    fields:
      - name: id
        type: int64
        primary_key:
          auto_increment: true
      - name: name
        type: string
        not_null: true
        unique: true
        unique_conflict: IGNORE
      - name: joined
        type: time.Time
    one_to_many:
      - name: posts
        child: Post
  - name: Post
    database: blog
    insert_conflict: REPLACE
    fields:
      - name: id
        type: int64
        primary_key:
          auto_increment: true
      - name: title
        type: string
        default: "'untitled'"
        collate: NOCASE
        index_groups: [1]
      - name: author
        foreign_key:
          table: Author
          on_delete: CASCADE
    index_groups:
      - number: 1
        name: post_title
    many_to_many:
      - reference: Tag
  - name: Tag
    database: blog
    fields:
      - name: name
        type: string
        primary_key: {}
  - name: PostTitle
    database: blog
    kind: view
    query: SELECT id, title FROM Post
    fields:
      - name: id
        type: int64
      - name: title
        type: string
`

// compile parses a YAML declaration document and compiles it, failing the
// test on any diagnostic.
func compile(t *testing.T, doc string, opts ...gen.Option) *gen.Graph {
	t.Helper()
	s, err := load.ParseYAML([]byte(doc))
	require.NoError(t, err)
	s.Normalize("test.yaml")
	cfg, err := gen.NewConfig(opts...)
	require.NoError(t, err)
	g, err := gen.NewGraph(cfg, s)
	require.NoError(t, err)
	return g
}

// entity returns the named entity of the graph.
func entity(t *testing.T, g *gen.Graph, name string) *gen.Entity {
	t.Helper()
	e, ok := g.Entity(name)
	require.True(t, ok, "missing entity %s", name)
	return e
}

// mockHelper implements gen.GeneratorHelper over a graph.
type mockHelper struct {
	graph *gen.Graph
}

func (m *mockHelper) NewFile(pkg string) *jen.File {
	return jen.NewFile(pkg)
}

func (m *mockHelper) Graph() *gen.Graph {
	return m.graph
}

func (m *mockHelper) AdapterName(e *gen.Entity) string {
	return gen.AdapterName(e)
}

func (m *mockHelper) FeatureEnabled(name string) bool {
	ok, _ := m.graph.FeatureEnabled(name)
	return ok
}

var _ gen.GeneratorHelper = (*mockHelper)(nil)
