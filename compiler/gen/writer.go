package gen

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/template"

	"golang.org/x/tools/imports"
)

// registryTemplate renders the registry file of a database group.
var registryTemplate = template.Must(template.New("registry").Funcs(template.FuncMap{
	"adapterName": AdapterName,
	"title":       titleCase,
}).Parse(`{{ .Header }}

package {{ .Package }}

import "{{ .AdapterPkg }}"

const (
	// Name of the {{ title .Database.Name }} database.
	Name = {{ printf "%q" .Database.Name }}
	// Version of the {{ title .Database.Name }} database schema.
	Version = {{ .Database.Version }}
	// ForeignKeys reports if the database enforces foreign keys.
	ForeignKeys = {{ .Database.ForeignKeys }}
)

// Adapters returns the adapters of the database, in creation order.
func Adapters() []*adapter.Adapter {
	return []*adapter.Adapter{
	{{- range .Database.Entities }}
		{{ adapterName . }},
	{{- end }}
	}
}

// NewRegistry returns a registry holding the adapters of the database. The
// querier runs the sub-queries of foreign keys and accessors.
func NewRegistry(q adapter.Querier) *adapter.Registry {
	r := adapter.NewRegistry(Name, q)
	r.Register(Adapters()...)
	return r
}
`))

// TemplateWriter renders the template-based files of a graph and formats
// them with goimports.
type TemplateWriter struct {
	graph  *Graph
	outDir string

	// Metrics for performance monitoring
	mu      sync.Mutex
	metrics *WriterMetrics
}

// WriterMetrics tracks generation output.
type WriterMetrics struct {
	FilesGenerated int
	TotalBytes     int64
}

// NewTemplateWriter creates a new template-based writer.
func NewTemplateWriter(g *Graph, outDir string) *TemplateWriter {
	return &TemplateWriter{
		graph:   g,
		outDir:  outDir,
		metrics: &WriterMetrics{},
	}
}

// Metrics returns the generation metrics.
func (w *TemplateWriter) Metrics() WriterMetrics {
	w.mu.Lock()
	defer w.mu.Unlock()
	return *w.metrics
}

// GenerateRegistry writes the registry.go file of a database group.
func (w *TemplateWriter) GenerateRegistry(db *Database) error {
	header := DefaultHeader
	if w.graph.Config != nil && w.graph.Header != "" {
		header = w.graph.Header
	}
	if !strings.HasPrefix(header, "//") {
		header = "// " + header
	}
	return w.generateFile(fileTask{
		name:     filepath.Join(PackageName(db), "registry.go"),
		template: registryTemplate,
		data: struct {
			Header     string
			Package    string
			AdapterPkg string
			Database   *Database
		}{header, PackageName(db), AdapterPkg, db},
	})
}

// fileTask represents a single file generation task.
type fileTask struct {
	name     string             // output file path (relative to outDir)
	template *template.Template // template to execute
	data     any                // data to pass to template
}

// generateFile generates a single file.
func (w *TemplateWriter) generateFile(f fileTask) error {
	// 1. Execute template
	var buf bytes.Buffer
	if err := f.template.Execute(&buf, f.data); err != nil {
		return fmt.Errorf("execute template %q for %s: %w", f.template.Name(), f.name, err)
	}

	// 2. Format using goimports (removes unused imports and adds missing ones)
	fullPath := filepath.Join(w.outDir, f.name)
	formatted, err := imports.Process(fullPath, buf.Bytes(), nil)
	if err != nil {
		// Write unformatted file for debugging (errors intentionally ignored as we're already in error state)
		debugPath := fullPath + ".error"
		_ = os.MkdirAll(filepath.Dir(debugPath), 0o755)
		_ = os.WriteFile(debugPath, buf.Bytes(), 0o644)
		return NewGenerationError("registry", f.name, "format (unformatted written to "+debugPath+")", err)
	}

	// 3. Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", f.name, err)
	}

	// 4. Write file
	if err := os.WriteFile(fullPath, formatted, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", f.name, err)
	}

	// Update metrics
	w.mu.Lock()
	w.metrics.FilesGenerated++
	w.metrics.TotalBytes += int64(len(formatted))
	w.mu.Unlock()

	return nil
}
