package gen

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dave/jennifer/jen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/schemagen/compiler/load"
)

const generateSchema = `
databases:
  - name: blog
    version: 2
    foreign_keys: true
entities:
  - name: Author
    database: blog
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
  - name: Setting
    fields:
      - name: key
        type: string
        primary_key: {}
`

// stubDialect renders one variable per entity and a comment per database.
type stubDialect struct {
	helper GeneratorHelper
	fail   string
}

func (d *stubDialect) Name() string { return "stub" }

func (d *stubDialect) GenAdapter(db *Database, e *Entity) (*jen.File, error) {
	if e.Name == d.fail {
		return nil, errors.New("boom")
	}
	f := d.helper.NewFile(PackageName(db))
	f.Var().Id(d.helper.AdapterName(e)).Op("=").Lit(e.Table)
	return f, nil
}

func (d *stubDialect) GenSchema(db *Database) ([]byte, error) {
	var b strings.Builder
	for _, e := range db.Entities {
		b.WriteString("-- " + e.Table + "\n")
	}
	return []byte(b.String()), nil
}

func generate(t *testing.T, g *Graph, target string, fail string) error {
	t.Helper()
	gen := NewJenniferGenerator(g, target)
	gen.WithDialect(&stubDialect{helper: gen, fail: fail})
	return gen.Generate(context.Background())
}

func TestJenniferGenerator(t *testing.T) {
	t.Run("creates generator with graph", func(t *testing.T) {
		g := mustCompile(t, generateSchema)
		gen := NewJenniferGenerator(g, t.TempDir())
		require.NotNil(t, gen)
		assert.Equal(t, g, gen.Graph())
		assert.Same(t, gen, gen.WithWorkers(2))
	})

	t.Run("requires a dialect", func(t *testing.T) {
		g := mustCompile(t, generateSchema)
		err := NewJenniferGenerator(g, t.TempDir()).Generate(context.Background())
		require.Error(t, err)
		assert.True(t, IsConfigError(err))
	})
}

func TestGeneratorHelper(t *testing.T) {
	g := mustCompile(t, generateSchema)
	gen := NewJenniferGenerator(g, t.TempDir())

	t.Run("FeatureEnabled", func(t *testing.T) {
		assert.True(t, gen.FeatureEnabled(FeatureSchemaDump.Name))
		assert.False(t, gen.FeatureEnabled(FeatureSnapshot.Name))
		assert.False(t, gen.FeatureEnabled("unknown"))
	})

	t.Run("AdapterName", func(t *testing.T) {
		assert.Equal(t, "PostAdapter", gen.AdapterName(valid(t, g, "Post")))
	})

	t.Run("NewFile carries the header", func(t *testing.T) {
		f := gen.NewFile("blog")
		f.Var().Id("X").Op("=").Lit(1)
		assert.True(t, strings.HasPrefix(f.GoString(), DefaultHeader))
	})
}

func TestGenerate(t *testing.T) {
	g := mustCompile(t, generateSchema)
	target := t.TempDir()
	require.NoError(t, generate(t, g, target, ""))

	t.Run("One package per database", func(t *testing.T) {
		for _, path := range []string{
			"blog/author.go", "blog/post.go", "blog/registry.go", "blog/schema.sql",
			"app/setting.go", "app/registry.go", "app/schema.sql",
		} {
			assert.FileExists(t, filepath.Join(target, path))
		}
		assert.NoDirExists(t, filepath.Join(target, "internal"))
	})

	t.Run("Registry lists the adapters in creation order", func(t *testing.T) {
		buf, err := os.ReadFile(filepath.Join(target, "blog", "registry.go"))
		require.NoError(t, err)
		content := string(buf)
		assert.True(t, strings.HasPrefix(content, DefaultHeader))
		assert.Contains(t, content, "package blog")
		assert.Contains(t, content, `Name = "blog"`)
		assert.Contains(t, content, "Version = 2")
		assert.Contains(t, content, "ForeignKeys = true")
		assert.Less(t, strings.Index(content, "AuthorAdapter,"), strings.Index(content, "PostAdapter,"))
	})

	t.Run("Schema dump", func(t *testing.T) {
		buf, err := os.ReadFile(filepath.Join(target, "blog", "schema.sql"))
		require.NoError(t, err)
		assert.Equal(t, "-- Author\n-- Post\n", string(buf))
	})

	t.Run("Output is byte-identical across runs", func(t *testing.T) {
		first, err := os.ReadFile(filepath.Join(target, "blog", "post.go"))
		require.NoError(t, err)
		require.NoError(t, generate(t, mustCompile(t, generateSchema), target, ""))
		second, err := os.ReadFile(filepath.Join(target, "blog", "post.go"))
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}

func TestGenerateWithFeatures(t *testing.T) {
	t.Run("Snapshot stores the declarations", func(t *testing.T) {
		require := require.New(t)
		c := newTestContext(t, WithFeatures(FeatureSnapshot))
		c.Add(parse(t, generateSchema))
		c.Run()
		g := c.Finalize()
		require.NoError(g.Err())

		target := t.TempDir()
		require.NoError(generate(t, g, target, ""))
		buf, err := os.ReadFile(filepath.Join(target, "internal", "schema.msgpack"))
		require.NoError(err)
		s, err := load.UnmarshalSnapshot(buf)
		require.NoError(err)
		require.Equal([]string{"Author", "Post", "Setting"}, s.Names())
	})

	t.Run("Disabled features remove their output", func(t *testing.T) {
		require := require.New(t)
		target := t.TempDir()
		require.NoError(writeTestFile(target, "blog/schema.sql", "stale"))
		c := newTestContext(t, WithTarget(target))
		c.Add(parse(t, generateSchema))
		c.Run()
		g := c.Finalize()
		g.Features = nil

		require.NoError(generate(t, g, target, ""))
		require.NoFileExists(filepath.Join(target, "blog", "schema.sql"))
		require.FileExists(filepath.Join(target, "blog", "registry.go"))
	})
}

func TestGenerateFailure(t *testing.T) {
	err := generate(t, mustCompile(t, generateSchema), t.TempDir(), "Post")
	require.Error(t, err)
	assert.True(t, IsGenerationError(err))
	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "adapter", genErr.Phase)
	assert.Equal(t, filepath.Join("blog", "post.go"), genErr.File)
}

func TestNames(t *testing.T) {
	g := mustCompile(t, `
entities:
  - name: PostTag
    fields:
      - name: id
        type: int64
        primary_key: {}
  - name: AuthorProfile
    fields:
      - name: id
        type: int64
        primary_key: {}
`)
	for _, tt := range []struct {
		entity, adapter, file string
	}{
		{"PostTag", "PostTagAdapter", "post_tag.go"},
		{"AuthorProfile", "AuthorProfileAdapter", "author_profile.go"},
	} {
		t.Run(tt.entity, func(t *testing.T) {
			e := valid(t, g, tt.entity)
			assert.Equal(t, tt.adapter, AdapterName(e))
			assert.Equal(t, tt.file, FileName(e))
		})
	}

	t.Run("PackageName", func(t *testing.T) {
		for in, want := range map[string]string{
			"blog":  "blog",
			"My-DB": "mydb",
			"2fa":   "db2fa",
			"type":  "typedb",
			"":      "db",
		} {
			assert.Equal(t, want, PackageName(&Database{Name: in}), in)
		}
	})
}
