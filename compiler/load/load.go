package load

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Extensions lists the file extensions LoadDir picks up.
var Extensions = []string{".yaml", ".yml", ".json", ".msgpack"}

// LoadDir loads every declaration file found directly under dir, in lexical
// order, and merges them into one set.
func LoadDir(dir string) (*Set, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("load: read schema directory: %w", err)
	}
	set := &Set{}
	for _, e := range entries {
		if e.IsDir() || !Supported(e.Name()) {
			continue
		}
		s, err := LoadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		set.Merge(s)
	}
	return set, nil
}

// Supported reports if the file name has a declaration extension.
func Supported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// LoadFile loads a single declaration file. The format is chosen by extension.
func LoadFile(path string) (*Set, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	var s *Set
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		s, err = ParseYAML(buf)
	case ".json":
		s, err = ParseJSON(buf)
	case ".msgpack":
		s, err = UnmarshalSnapshot(buf)
	default:
		return nil, fmt.Errorf("load: unsupported declaration file %q", path)
	}
	if err != nil {
		return nil, fmt.Errorf("load: %s: %w", path, err)
	}
	s.Normalize(filepath.Base(path))
	return s, nil
}

// ParseYAML decodes a YAML declaration document. Unknown keys are rejected.
func ParseYAML(buf []byte) (*Set, error) {
	s := &Set{}
	dec := yaml.NewDecoder(bytes.NewReader(buf))
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return s, nil
}

// ParseJSON decodes a JSON declaration document. Unknown keys are rejected.
func ParseJSON(buf []byte) (*Set, error) {
	s := &Set{}
	dec := json.NewDecoder(bytes.NewReader(buf))
	dec.DisallowUnknownFields()
	if err := dec.Decode(s); err != nil {
		return nil, err
	}
	return s, nil
}

// MarshalYAML encodes the set as a YAML declaration document.
func MarshalYAML(s *Set) ([]byte, error) {
	var b bytes.Buffer
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}
