package gen

import (
	"go/token"
	"slices"
	"strings"
	"unicode"

	"github.com/go-openapi/inflect"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// =============================================================================
// Naming helpers
// =============================================================================

var (
	titler = cases.Title(language.English, cases.NoLower)
	rules  = ruleset()
)

func ruleset() *inflect.Ruleset {
	rules := inflect.NewDefaultRuleset()
	// Add common initialisms from golint and more.
	for _, w := range []string{
		"ACL", "API", "ASCII", "AWS", "CPU", "CSS", "DNS", "EOF", "GUID",
		"HTML", "HTTP", "HTTPS", "ID", "IP", "JSON", "RPC", "SQL", "SSH",
		"TCP", "TLS", "TTL", "UDP", "UI", "UID", "URI", "URL", "UTF8",
		"UUID", "XML",
	} {
		rules.AddAcronym(w)
	}
	return rules
}

// titleCase capitalizes the first letter of every word of s.
func titleCase(s string) string {
	return titler.String(s)
}

// pascal returns the exported Go identifier for a declared name.
// For example, "Post_Tag" and "post_tag" both become "PostTag".
func pascal(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || r == '-' || r == '.' || unicode.IsSpace(r)
	})
	for i, w := range words {
		words[i] = titleCase(w)
	}
	return rules.Camelize(strings.Join(words, ""))
}

// snake returns the file-name form of a declared name.
func snake(s string) string {
	return strings.Trim(rules.Underscore(s), "_")
}

// plural returns the lower-cased plural of a declared name. It names
// accessors declared without a name.
func plural(s string) string {
	return strings.ToLower(rules.Pluralize(snake(s)))
}

// packageName returns a valid Go package name for a database group.
func packageName(db string) string {
	name := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, db)
	if name == "" || !unicode.IsLetter(rune(name[0])) {
		name = "db" + name
	}
	if token.Lookup(name).IsKeyword() {
		name += "db"
	}
	return name
}

// AdapterName returns the name of the generated adapter variable of an entity.
func AdapterName(e *Entity) string {
	return pascal(e.Name) + "Adapter"
}

// FileName returns the name of the generated Go file of an entity.
func FileName(e *Entity) string {
	return snake(e.Name) + ".go"
}

// PackageName returns the Go package name of a database group.
func PackageName(db *Database) string {
	return packageName(db.Name)
}

// columnNames returns the names of the given columns.
func columnNames(cols []*Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

// sortedKeys returns the sorted keys of the map.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
