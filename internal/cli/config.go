package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/syssam/schemagen/compiler/gen"
	"github.com/syssam/schemagen/internal/logger"
)

// EnvPrefix prefixes the environment variables read by LoadConfig.
const EnvPrefix = "SCHEMAGEN_"

// Default values of the configuration keys.
const (
	DefaultSchemaDir = "schema"
	DefaultTarget    = "db"
)

// ConfigFiles are the file names searched for in the working directory
// when no --config flag is given.
var ConfigFiles = []string{"schemagen.yaml", "schemagen.yml"}

// Config is the configuration of the schemagen command.
type Config struct {
	// Schema is the directory holding the declaration files.
	Schema string `koanf:"schema"`
	// Target is the output directory of the generated code.
	Target   string   `koanf:"target"`
	Package  string   `koanf:"package"`
	Header   string   `koanf:"header"`
	Features []string `koanf:"features"`
	// Database is the group of entities that do not name one.
	Database  string        `koanf:"database"`
	MaxRounds int           `koanf:"max_rounds"`
	Workers   int           `koanf:"workers"`
	Log       logger.Config `koanf:"log"`

	// File is the configuration file that was loaded, if any.
	File string `koanf:"-"`
}

// flagKeys maps the flags whose name differs from their configuration key.
var flagKeys = map[string]string{
	"feature":    "features",
	"log-level":  "log.level",
	"log-format": "log.format",
	"log-output": "log.output",
}

// LoadConfig loads the configuration in increasing priority from the
// defaults, the configuration file, the SCHEMAGEN_ environment variables
// and the flags that were set on the command line. Relative paths of the
// configuration file are resolved against its directory.
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")
	logDefaults := logger.DefaultConfig()
	if err := k.Load(confmap.Provider(map[string]any{
		"schema":          DefaultSchemaDir,
		"target":          DefaultTarget,
		"header":          gen.DefaultHeader,
		"database":        gen.DefaultDatabase,
		"max_rounds":      gen.DefaultMaxRounds,
		"workers":         0,
		"log.level":       logDefaults.Level,
		"log.format":      logDefaults.Format,
		"log.output":      logDefaults.Output,
		"log.time_format": logDefaults.TimeFormat,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	path := findConfigFile(cfgFile)
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	// SCHEMAGEN_MAX_ROUNDS -> max_rounds, SCHEMAGEN_LOG_LEVEL -> log.level
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, any) {
		key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
		if rest, ok := strings.CutPrefix(key, "log_"); ok {
			key = "log." + rest
		}
		if key == "features" {
			return key, splitList(value)
		}
		return key, value
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				key = strings.ReplaceAll(f.Name, "-", "_")
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = path
	if path != "" {
		dir := filepath.Dir(path)
		if !changed(flags, "schema") {
			cfg.Schema = resolvePath(dir, cfg.Schema)
		}
		if !changed(flags, "target") {
			cfg.Target = resolvePath(dir, cfg.Target)
		}
	}
	return &cfg, nil
}

// Options returns the compiler options of the configuration.
func (c *Config) Options(log *zap.Logger) []gen.Option {
	opts := []gen.Option{
		gen.WithTarget(c.Target),
		gen.WithDefaultDatabase(c.Database),
		gen.WithMaxRounds(c.MaxRounds),
		gen.WithWorkers(c.Workers),
		gen.WithFeatureNames(c.Features...),
	}
	if c.Package != "" {
		opts = append(opts, gen.WithPackage(c.Package))
	}
	if c.Header != "" {
		opts = append(opts, gen.WithHeader(c.Header))
	}
	if log != nil {
		opts = append(opts, gen.WithLogger(log))
	}
	return opts
}

// findConfigFile returns the explicit path, or the first configuration
// file found in the working directory.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range ConfigFiles {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

func resolvePath(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

func changed(flags *pflag.FlagSet, name string) bool {
	if flags == nil {
		return false
	}
	f := flags.Lookup(name)
	return f != nil && f.Changed
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
