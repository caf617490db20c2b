package gen

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const authorDoc = `
entities:
  - name: Author
    fields:
      - name: id
        type: int64
        primary_key:
          auto_increment: true
      - name: name
        type: string
        not_null: true
`

const postDoc = `
entities:
  - name: Post
    fields:
      - name: id
        type: int64
        primary_key:
          auto_increment: true
      - name: author
        not_null: true
        foreign_key:
          table: Author
          on_delete: CASCADE
`

func TestResolve_ForeignKey(t *testing.T) {
	g := mustCompile(t, authorDoc, postDoc)
	post := valid(t, g, "Post")
	f, ok := post.Field("author")
	require.True(t, ok)

	require := require.New(t)
	require.Equal(ForeignKeyField, f.Kind)
	require.Same(valid(t, g, "Author"), f.Ref.Entity)
	require.Len(f.Ref.Columns, 1)
	col := f.Ref.Columns[0]
	require.Equal("author_id", col.Name)
	require.Equal("id", col.Target)
	require.Equal([]string{"author", "id"}, col.Path)
	require.Equal("int64", col.ModelType)
	require.True(col.NotNull)
	require.False(col.Nullable)
	require.Same(f, col.Field)
	require.Equal([]string{"author_id"}, f.Ref.LocalColumns())
	require.Equal([]string{"id"}, f.Ref.TargetColumns())
	require.Equal([]string{"Author"}, post.Targets())
}

func TestResolve_Nested(t *testing.T) {
	g := mustCompile(t, authorDoc, `
entities:
  - name: Post
    fields:
      - name: author
        foreign_key:
          table: Author
        primary_key: {}
      - name: slug
        type: string
        primary_key: {}
  - name: Comment
    fields:
      - name: id
        type: int64
        primary_key:
          auto_increment: true
      - name: post
        foreign_key:
          table: Post
`)
	comment := valid(t, g, "Comment")
	f, _ := comment.Field("post")

	assert.Equal(t, []string{"post_author_id", "post_slug"}, f.Ref.LocalColumns())
	assert.Equal(t, []string{"author_id", "slug"}, f.Ref.TargetColumns())
	assert.Equal(t, []string{"post", "author", "id"}, f.Ref.Columns[0].Path)
	assert.Equal(t, []string{"post", "slug"}, f.Ref.Columns[1].Path)
	assert.True(t, valid(t, g, "Post").HasCompositeKey())
	assert.Equal(t, []string{"author_id", "slug"}, columnNamesOf(valid(t, g, "Post").PrimaryColumns()))
}

func TestResolve_SelfReference(t *testing.T) {
	g := mustCompile(t, `
entities:
  - name: Employee
    fields:
      - name: id
        type: int64
        primary_key:
          auto_increment: true
      - name: manager
        foreign_key:
          table: Employee
          on_delete: SET NULL
`)
	e := valid(t, g, "Employee")
	f, _ := e.Field("manager")
	assert.Equal(t, []string{"manager_id"}, f.Ref.LocalColumns())
	assert.Same(t, e, f.Ref.Entity)
	assert.Empty(t, e.dependencies())
}

func TestResolve_Cycles(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "Primary keys referencing each other",
			doc: `
entities:
  - name: A
    fields:
      - name: b
        foreign_key:
          table: B
        primary_key: {}
  - name: B
    fields:
      - name: a
        foreign_key:
          table: A
        primary_key: {}
`,
		},
		{
			name: "Computed fields projecting each other",
			doc: `
entities:
  - name: A
    kind: query_model
    fields:
      - name: b
        computed:
          target: B
  - name: B
    kind: query_model
    fields:
      - name: a
        computed:
          target: A
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := compile(t, tt.doc)
			a, b := failed(t, g, "A"), failed(t, g, "B")
			aErr := errors.Join(a.Errors()...)
			assert.True(t, errors.Is(aErr, ErrResolutionFailed))
			assert.Contains(t, aErr.Error(), "reference cycle A.b -> B.a -> A")
			assert.True(t, IsResolutionError(errors.Join(b.Errors()...)))
			assert.Empty(t, g.Entities)
		})
	}

	t.Run("Non-key foreign keys between tables are not a cycle", func(t *testing.T) {
		g := mustCompile(t, `
entities:
  - name: A
    fields:
      - name: id
        type: int64
        primary_key:
          auto_increment: true
      - name: b
        foreign_key:
          table: B
  - name: B
    fields:
      - name: id
        type: int64
        primary_key:
          auto_increment: true
      - name: a
        foreign_key:
          table: A
`)
		assert.Len(t, g.Entities, 2)
	})
}

func TestResolve_Expand(t *testing.T) {
	c := newTestContext(t)
	c.Add(parse(t, authorDoc))
	c.Add(parse(t, postDoc))
	c.Run()
	post, ok := c.Entity("Post")
	require.True(t, ok)
	require.True(t, post.Valid())
	f, _ := post.Field("author")

	t.Run("Memoized per holder and prefix", func(t *testing.T) {
		first, err := c.Expand(f, f.Prefix())
		require.NoError(t, err)
		second, err := c.Expand(f, f.Prefix())
		require.NoError(t, err)
		require.Len(t, second, 1)
		assert.Same(t, first[0], second[0])
		assert.Same(t, f.Ref.Columns[0], first[0])
	})

	t.Run("Another prefix names other columns", func(t *testing.T) {
		cols, err := c.Expand(f, "writer")
		require.NoError(t, err)
		assert.Equal(t, []string{"writer_id"}, columnNamesOf(cols))
		assert.Equal(t, []string{"author_id"}, f.Ref.LocalColumns())
	})

	t.Run("Scalar fields do not expand", func(t *testing.T) {
		id, _ := post.Field("id")
		_, err := c.Expand(id, "id")
		assert.Error(t, err)
	})

	t.Run("Resolving again is a no-op", func(t *testing.T) {
		assert.False(t, c.Resolve())
		assert.True(t, post.Valid())
		assert.Equal(t, []string{"author_id"}, f.Ref.LocalColumns())
	})
}

func TestResolve_ExplicitReferences(t *testing.T) {
	t.Run("Declared names are used verbatim", func(t *testing.T) {
		g := mustCompile(t, authorDoc, `
entities:
  - name: Post
    fields:
      - name: id
        type: int64
        primary_key:
          auto_increment: true
      - name: writer
        foreign_key:
          table: Author
          references:
            - column: written_by
              foreign: id
              not_null: true
`)
		f, _ := valid(t, g, "Post").Field("writer")
		require.Len(t, f.Ref.Columns, 1)
		assert.Equal(t, "written_by", f.Ref.Columns[0].Name)
		assert.True(t, f.Ref.Columns[0].NotNull)
	})

	t.Run("Computed subset", func(t *testing.T) {
		g := mustCompile(t, authorDoc, `
entities:
  - name: Card
    kind: query_model
    fields:
      - name: author
        computed:
          target: Author
          references:
            - column: author_name
              foreign: name
`)
		f, _ := valid(t, g, "Card").Field("author")
		assert.Equal(t, []string{"author_name"}, f.Ref.LocalColumns())
		assert.True(t, f.Ref.Columns[0].NotNull)
	})

	for _, tt := range []struct {
		name, refs, message string
	}{
		{
			name:    "Unknown target column",
			refs:    "            - column: a\n              foreign: missing\n",
			message: `unknown target column "missing"`,
		},
		{
			name:    "Missing pair",
			refs:    "            - column: a\n              foreign: id\n",
			message: "expects 2 reference pairs",
		},
		{
			name:    "Duplicate local column",
			refs:    "            - column: a\n              foreign: id\n            - column: a\n              foreign: code\n",
			message: "reference column declared twice",
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			g := compile(t, `
entities:
  - name: Pair
    fields:
      - name: id
        type: int64
        primary_key: {}
      - name: code
        type: string
        primary_key: {}
  - name: Thing
    fields:
      - name: id
        type: int64
        primary_key:
          auto_increment: true
      - name: pair
        foreign_key:
          table: Pair
          references:
`+tt.refs)
			valid(t, g, "Pair")
			e := failed(t, g, "Thing")
			assert.Contains(t, errors.Join(e.Errors()...).Error(), tt.message)
		})
	}
}

func TestResolve_Deferred(t *testing.T) {
	c := newTestContext(t)
	c.Add(parse(t, postDoc))
	c.Run()

	post, ok := c.Entity("Post")
	require.True(t, ok)
	assert.False(t, post.Valid())
	assert.Empty(t, post.Errors(), "a deferred entity is not a failure")
	rounds := c.Rounds()

	c.Add(parse(t, authorDoc))
	c.Run()
	assert.Greater(t, c.Rounds(), rounds)
	assert.True(t, post.Valid())

	g := c.Finalize()
	require.NoError(t, g.Err())
	assert.Same(t, g, c.Finalize())
}

func TestResolve_UnknownTarget(t *testing.T) {
	g := compile(t, postDoc)
	e := failed(t, g, "Post")
	var resErr *ResolutionError
	require.ErrorAs(t, g.Err(), &resErr)
	assert.Equal(t, "Post", resErr.Entity)
	assert.Equal(t, "author", resErr.Field)
	assert.Equal(t, "Author", resErr.Target)
	assert.Len(t, e.Errors(), 1)
}

func TestResolve_InvalidTarget(t *testing.T) {
	t.Run("Foreign key to an invalid table", func(t *testing.T) {
		g := compile(t, postDoc, `
entities:
  - name: Author
    fields:
      - name: id
        type: string
        primary_key:
          auto_increment: true
`)
		failed(t, g, "Author")
		e := failed(t, g, "Post")
		assert.True(t, IsResolutionError(errors.Join(e.Errors()...)))
	})

	t.Run("Foreign key to a view", func(t *testing.T) {
		g := compile(t, postDoc, `
entities:
  - name: Author
    kind: view
    query: SELECT 1 AS id
    fields:
      - name: id
        type: int64
`)
		e := failed(t, g, "Post")
		assert.Contains(t, errors.Join(e.Errors()...).Error(), "must be a table")
	})

	t.Run("Failures propagate to dependents", func(t *testing.T) {
		g := compile(t, `
entities:
  - name: Author
    database: blog
    fields:
      - name: id
        type: int64
        primary_key:
          auto_increment: true
  - name: Writer
    database: blog
    table: author
    fields:
      - name: id
        type: int64
        primary_key:
          auto_increment: true
  - name: Byline
    database: news
    kind: query_model
    fields:
      - name: author
        computed:
          target: Author
`)
		failed(t, g, "Author")
		failed(t, g, "Writer")
		e := failed(t, g, "Byline")
		err := errors.Join(e.Errors()...)
		assert.True(t, IsResolutionError(err))
		assert.Contains(t, err.Error(), "depends on an invalid entity")
		assert.True(t, IsConsistencyError(g.Err()))
		assert.Empty(t, g.Databases)
	})
}

func TestResolve_CrossDatabase(t *testing.T) {
	t.Run("Foreign key", func(t *testing.T) {
		g := compile(t, `
entities:
  - name: Author
    database: people
    fields:
      - name: id
        type: int64
        primary_key:
          auto_increment: true
  - name: Post
    database: blog
    fields:
      - name: id
        type: int64
        primary_key:
          auto_increment: true
      - name: author
        foreign_key:
          table: Author
`)
		valid(t, g, "Author")
		e := failed(t, g, "Post")
		err := errors.Join(e.Errors()...)
		assert.True(t, IsValidationError(err), "%v", err)
		assert.Contains(t, err.Error(), "foreign key target Author is in database people, not blog")
	})

	t.Run("Many-to-many endpoints", func(t *testing.T) {
		g := compile(t, `
entities:
  - name: Post
    database: blog
    fields:
      - name: id
        type: int64
        primary_key:
          auto_increment: true
  - name: Tag
    database: labels
    fields:
      - name: name
        type: string
        primary_key: {}
many_to_many:
  - owner: Post
    reference: Tag
`)
		e := failed(t, g, "Post")
		err := errors.Join(e.Errors()...)
		assert.True(t, IsValidationError(err), "%v", err)
		assert.Contains(t, err.Error(), "many-to-many endpoints are in databases blog and labels")
		valid(t, g, "Tag")
		_, ok := g.Entity("Post_Tag")
		assert.False(t, ok)
	})

	t.Run("Computed projection", func(t *testing.T) {
		g := mustCompile(t, authorDoc, `
entities:
  - name: Card
    database: reports
    kind: query_model
    fields:
      - name: author
        computed:
          target: Author
`)
		assert.Equal(t, "reports", valid(t, g, "Card").Database)
	})
}
