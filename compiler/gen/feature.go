package gen

import (
	"os"
	"path/filepath"
)

var (
	// FeatureRowIDAlias declares the single auto-increment or rowid key inline as
	// INTEGER PRIMARY KEY [AUTOINCREMENT], making it an alias of the SQLite rowid.
	// Without it the key column is declared as a plain INTEGER column.
	FeatureRowIDAlias = Feature{
		Name:        "sql/rowid-alias",
		Stage:       Beta,
		Default:     false,
		Description: "Declares auto-increment and rowid keys inline as INTEGER PRIMARY KEY",
	}

	// FeatureSchemaDump writes the DDL of every database group to schema.sql.
	FeatureSchemaDump = Feature{
		Name:        "schema/dump",
		Stage:       Stable,
		Default:     true,
		Description: "Writes the creation queries of each database to <database>/schema.sql",
		cleanup: func(c *Config) error {
			return removeAll(c.Target, "schema.sql")
		},
	}

	// FeatureSnapshot stores a msgpack snapshot of the declarations next to the
	// generated code, so later runs can compile without the declaration files.
	FeatureSnapshot = Feature{
		Name:        "schema/snapshot",
		Stage:       Experimental,
		Default:     false,
		Description: "Stores a snapshot of the declarations in internal/schema.msgpack",
		cleanup: func(c *Config) error {
			return remove(filepath.Join(c.Target, "internal"), "schema.msgpack")
		},
	}

	// AllFeatures holds a list of all feature-flags.
	AllFeatures = []Feature{
		FeatureRowIDAlias,
		FeatureSchemaDump,
		FeatureSnapshot,
	}
)

// FeatureStage describes the stage of the codegen feature.
type FeatureStage int

const (
	_ FeatureStage = iota

	// Experimental features are in development, and actively being tested.
	Experimental

	// Alpha features are features whose initial development was finished, but
	// we expect breaking-changes to their output.
	Alpha

	// Beta features are Alpha features that were documented, and no
	// breaking-changes are expected for them.
	Beta

	// Stable features are Beta features that were running for a while.
	Stable
)

func (s FeatureStage) String() string {
	switch s {
	case Experimental:
		return "experimental"
	case Alpha:
		return "alpha"
	case Beta:
		return "beta"
	case Stable:
		return "stable"
	default:
		return "unknown"
	}
}

// A Feature of the schemagen codegen.
type Feature struct {
	// Name of the feature.
	Name string

	// Stage of the feature.
	Stage FeatureStage

	// Default values indicates if this feature is enabled by default.
	Default bool

	// A Description of this feature.
	Description string

	// cleanup used to cleanup all changes when a feature-flag is removed.
	// e.g. delete files from previous codegen runs.
	cleanup func(*Config) error
}

// cleanupDisabled runs the cleanup of every feature that is not enabled.
func cleanupDisabled(c *Config) error {
	if c.Target == "" {
		return nil
	}
	for _, f := range AllFeatures {
		if f.cleanup == nil || c.featureOn(f) {
			continue
		}
		if err := f.cleanup(c); err != nil {
			return err
		}
	}
	return nil
}

// remove a file and its parent directory if it becomes empty.
func remove(dir, file string) error {
	if err := os.Remove(filepath.Join(dir, file)); err != nil && !os.IsNotExist(err) {
		return err
	}
	infos, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if len(infos) == 0 {
		return os.Remove(dir)
	}
	return nil
}

// removeAll removes file from every direct sub-directory of dir.
func removeAll(dir, file string) error {
	infos, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, info := range infos {
		if !info.IsDir() {
			continue
		}
		p := filepath.Join(dir, info.Name(), file)
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
