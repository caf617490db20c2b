package gen

import (
	"errors"

	"go.uber.org/zap"

	"github.com/syssam/schemagen/compiler/load"
)

// Option configures code generation.
type Option func(*Config) error

// WithHeader sets the file header comment.
// The header is added at the top of each generated file.
func WithHeader(header string) Option {
	return func(c *Config) error {
		c.Header = header
		return nil
	}
}

// WithPackage sets the output package import path.
// For example: "github.com/org/project/db".
func WithPackage(pkg string) Option {
	return func(c *Config) error {
		if pkg == "" {
			return NewConfigError("Package", nil, "package cannot be empty")
		}
		c.Package = pkg
		return nil
	}
}

// WithTarget sets the output directory.
// The directory where generated code will be written.
func WithTarget(dir string) Option {
	return func(c *Config) error {
		if dir == "" {
			return NewConfigError("Target", nil, "target directory cannot be empty")
		}
		c.Target = dir
		return nil
	}
}

// WithFeatures enables specific features.
// Features control optional code generation capabilities.
func WithFeatures(features ...Feature) Option {
	return func(c *Config) error {
		c.Features = append(c.Features, features...)
		return nil
	}
}

// WithFeatureNames enables features by name.
func WithFeatureNames(names ...string) Option {
	return func(c *Config) error {
	Names:
		for _, name := range names {
			for _, f := range AllFeatures {
				if f.Name == name {
					c.Features = append(c.Features, f)
					continue Names
				}
			}
			return NewConfigError("Features", name, "unknown feature")
		}
		return nil
	}
}

// WithConverters registers global type converters ahead of the declared ones.
func WithConverters(converters ...*load.TypeConverter) Option {
	return func(c *Config) error {
		for _, tc := range converters {
			if tc == nil {
				return NewConfigError("Converters", nil, "converter cannot be nil")
			}
		}
		c.Converters = append(c.Converters, converters...)
		return nil
	}
}

// WithoutBuiltinConverters disables the built-in converters.
func WithoutBuiltinConverters() Option {
	return func(c *Config) error {
		c.NoBuiltinConverters = true
		return nil
	}
}

// WithDefaultDatabase sets the database group of entities that do not name one.
func WithDefaultDatabase(name string) Option {
	return func(c *Config) error {
		if name == "" {
			return NewConfigError("DefaultDatabase", nil, "database name cannot be empty")
		}
		c.DefaultDatabase = name
		return nil
	}
}

// WithMaxRounds bounds the number of resolution rounds.
func WithMaxRounds(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return NewConfigError("MaxRounds", n, "must be positive")
		}
		c.MaxRounds = n
		return nil
	}
}

// WithWorkers bounds the parallelism of file generation.
func WithWorkers(n int) Option {
	return func(c *Config) error {
		if n < 0 {
			return NewConfigError("Workers", n, "cannot be negative")
		}
		c.Workers = n
		return nil
	}
}

// WithLogger sets the logger of the compiler.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) error {
		if l == nil {
			return NewConfigError("Logger", nil, "logger cannot be nil")
		}
		c.Logger = l
		return nil
	}
}

// Apply applies options to the config.
// It returns the first error encountered.
func (c *Config) Apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return err
		}
	}
	return nil
}

// ApplyAll applies options and collects all errors.
// Returns a joined error if any options failed.
func (c *Config) ApplyAll(opts ...Option) error {
	var errs []error
	for _, opt := range opts {
		if err := opt(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewConfig creates a new Config with the given options.
func NewConfig(opts ...Option) (*Config, error) {
	c := &Config{}
	if err := c.Apply(opts...); err != nil {
		return nil, err
	}
	c.defaults()
	return c, nil
}

// MustNewConfig creates a new Config with the given options.
// It panics if any option fails.
func MustNewConfig(opts ...Option) *Config {
	c, err := NewConfig(opts...)
	if err != nil {
		panic(err)
	}
	return c
}
