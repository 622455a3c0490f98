package antenna

import (
	"maps"
	"os"
	"slices"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/carte/internal/normalize"
)

// Table maps canonical department keys to antenna names. A Table is never
// mutated after construction.
type Table struct {
	byKey map[string]string
}

// DefaultTable returns the built-in ownership table.
func DefaultTable() *Table {
	return &Table{byKey: defaultTable}
}

// NewTable builds a table from an arbitrary key -> antenna map. Keys are used
// as given; run Orphans to detect keys that would never match.
func NewTable(entries map[string]string) *Table {
	return &Table{byKey: maps.Clone(entries)}
}

// Lookup returns the antenna owning the department with the given canonical
// key, or "" when the department is unowned.
func (t *Table) Lookup(key string) string {
	if t == nil {
		return ""
	}
	return t.byKey[key]
}

// Len returns the number of departments in the table.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.byKey)
}

// Keys returns the table keys in sorted order.
func (t *Table) Keys() []string {
	if t == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(t.byKey))
}

// Orphans returns keys that are not in canonical form, plus keys whose
// antenna has no color. Such entries can never be matched or drawn.
func (t *Table) Orphans() []string {
	var out []string
	for _, k := range t.Keys() {
		if normalize.Key(k) != k {
			out = append(out, k)
			continue
		}
		if _, ok := colors[t.byKey[k]]; !ok {
			out = append(out, k)
		}
	}
	return out
}

// tableFile is the on-disk YAML layout: antenna name -> department names.
type tableFile struct {
	Antennas map[string][]string `yaml:"antennas"`
}

// LoadTable reads an ownership table override from a YAML file. Department
// names are normalized on load so the file may use display spelling.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "antenna: read table %s", path)
	}

	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "antenna: parse table")
	}
	if len(f.Antennas) == 0 {
		return nil, eris.Errorf("antenna: table %s has no antennas", path)
	}

	entries := make(map[string]string)
	for name, depts := range f.Antennas {
		if _, ok := colors[name]; !ok {
			return nil, eris.Errorf("antenna: unknown antenna %q", name)
		}
		for _, d := range depts {
			key := normalize.Key(d)
			if key == "" {
				continue
			}
			if prev, dup := entries[key]; dup && prev != name {
				return nil, eris.Errorf("antenna: department %q assigned to both %q and %q", d, prev, name)
			}
			entries[key] = name
		}
	}

	return &Table{byKey: entries}, nil
}
