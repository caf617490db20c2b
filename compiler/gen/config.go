package gen

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/syssam/schemagen/compiler/load"
)

// Default configuration values.
const (
	DefaultDatabase  = "app"
	DefaultMaxRounds = 8
	DefaultCacheSize = 25
	DefaultHeader    = "// Code generated by schemagen. DO NOT EDIT."
)

// Config holds the global configuration of one compilation run.
type Config struct {
	// Target is the output directory of the generated code.
	Target string
	// Package is the import path of the generated code, for example
	// "github.com/org/project/db".
	Package string
	// Header is written at the top of every generated Go file.
	Header string
	// Features enables optional generation behavior.
	Features []Feature
	// Converters are registered before the converters of the declarations.
	Converters []*load.TypeConverter
	// NoBuiltinConverters disables the time, uuid, decimal and bigint converters.
	NoBuiltinConverters bool
	// DefaultDatabase is the group of entities that do not name one.
	DefaultDatabase string
	// MaxRounds bounds the number of resolution rounds.
	MaxRounds int
	// Workers bounds the parallelism of file generation.
	Workers int
	// Logger receives progress and diagnostics. Never nil after NewConfig.
	Logger *zap.Logger
}

// OutputConfig groups the output settings.
type OutputConfig struct {
	Target  string
	Package string
	Header  string
}

// Output returns the output settings.
func (c *Config) Output() OutputConfig {
	return OutputConfig{
		Target:  c.Target,
		Package: c.Package,
		Header:  c.Header,
	}
}

// FeatureEnabled reports if the given feature name is enabled.
// It's exported to be used by the template engine as follows:
//
//	{{ with $.FeatureEnabled "sql/rowid-alias" }}
//		...
//	{{ end }}
func (c *Config) FeatureEnabled(name string) (bool, error) {
	for _, f := range AllFeatures {
		if name == f.Name {
			for i := range c.Features {
				if c.Features[i].Name == name {
					return true, nil
				}
			}
			return false, nil
		}
	}
	return false, fmt.Errorf("unexpected feature name %q", name)
}

// FeatureOn reports if a known feature is enabled. A nil config has none.
func (c *Config) FeatureOn(f Feature) bool {
	return c != nil && c.featureOn(f)
}

// featureOn is FeatureEnabled for known features.
func (c *Config) featureOn(f Feature) bool {
	for i := range c.Features {
		if c.Features[i].Name == f.Name {
			return true
		}
	}
	return false
}

// defaults fills unset values.
func (c *Config) defaults() {
	if c.Header == "" {
		c.Header = DefaultHeader
	}
	if c.DefaultDatabase == "" {
		c.DefaultDatabase = DefaultDatabase
	}
	if c.MaxRounds <= 0 {
		c.MaxRounds = DefaultMaxRounds
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	for _, f := range AllFeatures {
		if f.Default && !c.featureOn(f) {
			c.Features = append(c.Features, f)
		}
	}
}
