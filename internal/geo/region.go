// Package geo loads department boundaries and builds the name/code/antenna
// index the viewer resolves projects against.
package geo

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/carte/internal/antenna"
	"github.com/sells-group/carte/internal/normalize"
)

// Property keys probed for the department code and name, in precedence
// order. The first non-empty value wins.
var (
	CodeKeys = []string{"code", "CODE", "dep", "DEP", "insee", "INSEE", "code_dept", "CODE_DEPT", "INSEE_DEP", "insee_dep"}
	NameKeys = []string{"nom", "NOM", "name", "NAME", "libelle", "LIBELLE", "NOM_DEP", "nom_dep"}
)

// Feature is one boundary feature as loaded from a source, before indexing.
type Feature struct {
	Geometry   geom.T
	Properties map[string]any
}

// Region is an indexed department. Code and Key are empty when the source
// feature carried no usable code or name; such regions are still drawn.
type Region struct {
	Code     string
	Name     string
	Key      string
	Antenna  string
	Geometry geom.T
	Bounds   *geom.Bounds
}

// Index holds the regions of one load plus the lookup maps derived from them.
type Index struct {
	Regions    []Region
	NameToCode map[string]string
	CodeToUnit map[string]string
}

// probe returns the first non-empty property among keys, stringified.
func probe(props map[string]any, keys []string) string {
	for _, k := range keys {
		v, ok := props[k]
		if !ok || v == nil {
			continue
		}
		if s := strings.TrimSpace(stringify(v)); s != "" {
			return s
		}
	}
	return ""
}

func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

// BuildIndex joins features against the ownership table. It is a pure
// function of its inputs.
func BuildIndex(features []Feature, table *antenna.Table) *Index {
	idx := &Index{
		Regions:    make([]Region, 0, len(features)),
		NameToCode: make(map[string]string),
		CodeToUnit: make(map[string]string),
	}
	log := zap.L().With(zap.String("component", "geo.index"))

	seen := make(map[string]string)
	for _, f := range features {
		name := probe(f.Properties, NameKeys)
		r := Region{
			Code:     normalize.DeptCode(probe(f.Properties, CodeKeys)),
			Name:     name,
			Key:      normalize.Key(name),
			Geometry: f.Geometry,
		}
		if f.Geometry != nil {
			r.Bounds = f.Geometry.Bounds()
		}

		if r.Code != "" && r.Key != "" {
			if prev, dup := seen[r.Code]; dup {
				log.Warn("geo: duplicate department code",
					zap.String("code", r.Code),
					zap.String("previous", prev),
					zap.String("name", r.Name),
				)
			}
			seen[r.Code] = r.Name

			idx.NameToCode[r.Key] = r.Code
			r.Antenna = table.Lookup(r.Key)
			if r.Antenna != "" {
				idx.CodeToUnit[r.Code] = r.Antenna
			}
		}

		idx.Regions = append(idx.Regions, r)
	}

	return idx
}

// Len returns the number of regions, indexed or not.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.Regions)
}

// CodeForName returns the code of the department with the given canonical
// key, or "".
func (idx *Index) CodeForName(key string) string {
	if idx == nil {
		return ""
	}
	return idx.NameToCode[key]
}

// Antenna returns the antenna owning the department code, or "".
func (idx *Index) Antenna(code string) string {
	if idx == nil {
		return ""
	}
	return idx.CodeToUnit[code]
}

// Region returns the last indexed region carrying code, matching the
// last-wins rule of the lookup maps.
func (idx *Index) Region(code string) (Region, bool) {
	if idx == nil || code == "" {
		return Region{}, false
	}
	for i := len(idx.Regions) - 1; i >= 0; i-- {
		if idx.Regions[i].Code == code {
			return idx.Regions[i], true
		}
	}
	return Region{}, false
}

// Unmatched returns the canonical names of indexed regions that the
// ownership table does not cover.
func (idx *Index) Unmatched() []string {
	if idx == nil {
		return nil
	}
	var out []string
	for _, r := range idx.Regions {
		if r.Code != "" && r.Key != "" && r.Antenna == "" {
			out = append(out, r.Key)
		}
	}
	return out
}
