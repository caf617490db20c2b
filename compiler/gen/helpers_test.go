package gen

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/syssam/schemagen/compiler/load"
)

// parse decodes a YAML declaration document.
func parse(t *testing.T, doc string) *load.Set {
	t.Helper()
	s, err := load.ParseYAML([]byte(doc))
	require.NoError(t, err)
	s.Normalize(t.Name() + ".yaml")
	return s
}

// newTestContext returns a context logging to the test.
func newTestContext(t *testing.T, opts ...Option) *CompilationContext {
	t.Helper()
	cfg, err := NewConfig(append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)...)
	require.NoError(t, err)
	c, err := NewContext(cfg)
	require.NoError(t, err)
	return c
}

// compile runs a full compilation of the documents. Diagnostics are
// returned in the graph, not as a test failure.
func compile(t *testing.T, docs ...string) *Graph {
	t.Helper()
	c := newTestContext(t)
	for _, doc := range docs {
		c.Add(parse(t, doc))
	}
	c.Run()
	return c.Finalize()
}

// mustCompile is compile for documents expected to be valid.
func mustCompile(t *testing.T, docs ...string) *Graph {
	t.Helper()
	g := compile(t, docs...)
	require.NoError(t, g.Err())
	return g
}

// failed returns the abandoned entity with the given name.
func failed(t *testing.T, g *Graph, name string) *Entity {
	t.Helper()
	for _, e := range g.Failed {
		if e.Name == name {
			return e
		}
	}
	require.Failf(t, "entity not abandoned", "%s is not part of the failed entities", name)
	return nil
}

// valid returns the valid entity with the given name.
func valid(t *testing.T, g *Graph, name string) *Entity {
	t.Helper()
	e, ok := g.Entity(name)
	require.True(t, ok, "%s is not valid: %v", name, g.Err())
	return e
}

func columnNamesOf(cols []*Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

// writeTestFile writes content to the slash-separated path under dir.
func writeTestFile(dir, path, content string) error {
	p := filepath.Join(dir, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p, []byte(content), 0o644)
}
