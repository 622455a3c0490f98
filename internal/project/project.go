// Package project models the project records of the map export and decodes
// them from JSON or spreadsheet rows.
package project

import (
	"bytes"
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Field keys, tried in order by the accessors below. The export uses the
// spreadsheet headers; older exports use the short lowercase names.
var (
	keysCategory  = []string{"Type de projet", "type"}
	keysRegion    = []string{"Département", "departement"}
	keysLatitude  = []string{"latitude", "lat"}
	keysLongitude = []string{"longitude", "lon"}
	keysName      = []string{"Nom de projet", "nom"}
)

// Field is one key/value pair of a project record. Null marks a JSON null,
// which accessors skip and the search text renders as empty.
type Field struct {
	Key   string
	Value string
	Null  bool
}

// Project is a single record of the export. Fields keep document order.
type Project struct {
	Fields []Field
}

// New builds a project from alternating key/value strings.
func New(kv ...string) Project {
	p := Project{Fields: make([]Field, 0, len(kv)/2)}
	for i := 0; i+1 < len(kv); i += 2 {
		p.Fields = append(p.Fields, Field{Key: kv[i], Value: kv[i+1]})
	}
	return p
}

// Lookup returns the value of the first key present with a non-null value.
func (p Project) Lookup(keys ...string) (string, bool) {
	for _, k := range keys {
		for _, f := range p.Fields {
			if f.Key == k && !f.Null {
				return f.Value, true
			}
		}
	}
	return "", false
}

// Get is Lookup without the presence flag.
func (p Project) Get(keys ...string) string {
	v, _ := p.Lookup(keys...)
	return v
}

// Category returns the raw project type text.
func (p Project) Category() string {
	return p.Get(keysCategory...)
}

// Region returns the raw department field, trimmed.
func (p Project) Region() string {
	return strings.TrimSpace(p.Get(keysRegion...))
}

// Name returns the project name, or "Projet" when the record has none.
func (p Project) Name() string {
	if v, ok := p.Lookup(keysName...); ok {
		return v
	}
	return "Projet"
}

// SearchText returns every field value joined with a space, lower-cased.
// A query matching across a field boundary is accepted as a match.
func (p Project) SearchText() string {
	parts := make([]string, len(p.Fields))
	for i, f := range p.Fields {
		if !f.Null {
			parts[i] = f.Value
		}
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// Location is a WGS84 coordinate pair in decimal degrees.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Location returns the project coordinates. ok is false when either value is
// missing or does not parse to a finite number.
func (p Project) Location() (Location, bool) {
	lat, okLat := parseCoord(p.Get(keysLatitude...))
	lon, okLon := parseCoord(p.Get(keysLongitude...))
	if !okLat || !okLon {
		return Location{}, false
	}
	return Location{Lat: lat, Lon: lon}, true
}

var leadingFloat = regexp.MustCompile(`^[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?`)

// parseCoord accepts a decimal comma and ignores trailing garbage after the
// numeric prefix ("45,9°N" -> 45.9).
func parseCoord(s string) (float64, bool) {
	s = strings.Replace(strings.TrimSpace(s), ",", ".", 1)
	m := leadingFloat.FindString(s)
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// MarshalJSON encodes the record as an object in field order.
func (p Project) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range p.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		if f.Null {
			buf.WriteString("null")
			continue
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
