package load

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDir(t *testing.T) {
	require := require.New(t)
	s, err := LoadDir("testdata/blog")
	require.NoError(err)
	require.Equal([]string{"Author", "Post", "Tag"}, s.Names())
	require.Len(s.Databases, 1)
	require.Equal("blog", s.Databases[0].Name)
	require.True(s.Databases[0].ForeignKeys)
	require.Len(s.Converters, 1)
	require.Equal("Color", s.Converters[0].ModelType)

	t.Run("Inline relations are normalized", func(t *testing.T) {
		require.Len(s.ManyToMany, 1)
		require.Equal("Post", s.ManyToMany[0].Owner)
		require.Equal("Tag", s.ManyToMany[0].Reference)
		require.True(s.ManyToMany[0].AutoIncrement())
		require.Len(s.OneToMany, 1)
		require.Equal("Author", s.OneToMany[0].Parent)
		require.Equal("Post", s.OneToMany[0].Child)
		for _, d := range s.Entities {
			require.Nil(d.ManyToMany)
			require.Nil(d.OneToMany)
		}
	})

	t.Run("Fields keep their declaration order", func(t *testing.T) {
		post := s.Entities[1]
		require.Equal("Post", post.Name)
		require.Equal("REPLACE", post.InsertConflict)
		for i, f := range post.Fields {
			require.Equal(i, f.Position)
		}
		require.NotNil(post.Fields[2].ForeignKey)
		require.Equal("CASCADE", post.Fields[2].ForeignKey.OnDelete)
	})

	t.Run("Empty primary key marker is kept", func(t *testing.T) {
		tag := s.Entities[2]
		require.NotNil(tag.Fields[0].PrimaryKey)
		require.False(tag.Fields[0].PrimaryKey.AutoIncrement)
		require.Equal("1.0", tag.Fields[1].Default)
		require.Contains(tag.Pos, "tags.json")
	})
}

func TestLoadFile(t *testing.T) {
	t.Run("Unknown keys are rejected", func(t *testing.T) {
		_, err := LoadFile("testdata/failure/unknown.yaml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown.yaml")
	})

	t.Run("Unsupported extension", func(t *testing.T) {
		_, err := LoadFile("testdata/blog/README.txt")
		require.Error(t, err)
	})

	t.Run("Missing file", func(t *testing.T) {
		_, err := LoadFile("testdata/none.yaml")
		require.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestParseYAML(t *testing.T) {
	t.Run("Empty document", func(t *testing.T) {
		s, err := ParseYAML(nil)
		require.NoError(t, err)
		require.Empty(t, s.Entities)
	})

	t.Run("Column override distinguishes empty from missing", func(t *testing.T) {
		s, err := ParseYAML([]byte(`
entities:
  - name: User
    fields:
      - name: a
        column: ""
      - name: b
`))
		require.NoError(t, err)
		fields := s.Entities[0].Fields
		require.NotNil(t, fields[0].Column)
		require.Empty(t, *fields[0].Column)
		require.Nil(t, fields[1].Column)
	})

	t.Run("Enum fields", func(t *testing.T) {
		s, err := ParseYAML([]byte(`
entities:
  - name: User
    fields:
      - name: status
        enum: [active, blocked]
      - name: role
        type: enum
      - name: name
        type: string
`))
		require.NoError(t, err)
		fields := s.Entities[0].Fields
		assert.True(t, fields[0].IsEnum())
		assert.True(t, fields[1].IsEnum())
		assert.False(t, fields[2].IsEnum())
	})
}

func TestSnapshot(t *testing.T) {
	require := require.New(t)
	s, err := LoadDir("testdata/blog")
	require.NoError(err)

	buf, err := MarshalSnapshot(s)
	require.NoError(err)

	path := filepath.Join(t.TempDir(), "schema.msgpack")
	require.NoError(os.WriteFile(path, buf, 0o644))
	got, err := LoadFile(path)
	require.NoError(err)
	require.Equal(s.Names(), got.Names())
	require.Len(got.ManyToMany, 1)
	require.Equal("Tag", got.ManyToMany[0].Reference)
	require.Equal(s.Entities[1].Fields[2].ForeignKey, got.Entities[1].Fields[2].ForeignKey)

	t.Run("Corrupted snapshot", func(t *testing.T) {
		_, err := UnmarshalSnapshot([]byte{0xc1})
		require.Error(err)
	})
}

func TestMarshalYAML(t *testing.T) {
	s := &Set{Entities: []*Declaration{{Name: "User", Fields: []*Field{{Name: "id", Type: "int"}}}}}
	buf, err := MarshalYAML(s)
	require.NoError(t, err)
	got, err := ParseYAML(buf)
	require.NoError(t, err)
	require.Equal(t, "User", got.Entities[0].Name)
	require.Equal(t, "int", got.Entities[0].Fields[0].Type)
}
