package project

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// CollectionKey is the object key holding the project array when the export
// is wrapped in an object.
const CollectionKey = "projets"

var utf8BOM = []byte("\xef\xbb\xbf")

// StripBOM removes a leading UTF-8 byte-order mark.
func StripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, utf8BOM)
}

// Decode parses a project export: either a bare array of objects or an
// object whose "projets" member is that array. Any other well-formed
// document yields an empty collection.
func Decode(data []byte) ([]Project, error) {
	data = bytes.TrimSpace(StripBOM(data))
	if !json.Valid(data) {
		return nil, eris.New("project: malformed JSON document")
	}

	switch {
	case len(data) > 0 && data[0] == '[':
		return decodeArray(data)
	case len(data) > 0 && data[0] == '{':
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, eris.Wrap(err, "project: decode wrapper object")
		}
		inner := bytes.TrimSpace(wrapper[CollectionKey])
		if len(inner) == 0 || inner[0] != '[' {
			return []Project{}, nil
		}
		return decodeArray(inner)
	default:
		return []Project{}, nil
	}
}

func decodeArray(data []byte) ([]Project, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil, eris.Wrap(err, "project: decode array")
	}

	out := make([]Project, 0, len(elems))
	for i, raw := range elems {
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || raw[0] != '{' {
			zap.L().Debug("project: skipping non-object element", zap.Int("index", i))
			continue
		}
		p, err := decodeObject(raw)
		if err != nil {
			return nil, eris.Wrapf(err, "project: decode element %d", i)
		}
		out = append(out, p)
	}
	return out, nil
}

// decodeObject walks the object tokens so that field order survives.
func decodeObject(raw []byte) (Project, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	if _, err := dec.Token(); err != nil {
		return Project{}, eris.Wrap(err, "read object start")
	}

	var p Project
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Project{}, eris.Wrap(err, "read key")
		}
		key, ok := tok.(string)
		if !ok {
			return Project{}, eris.Errorf("unexpected key token %v", tok)
		}

		var val json.RawMessage
		if err := dec.Decode(&val); err != nil {
			return Project{}, eris.Wrapf(err, "read value of %q", key)
		}
		p.Fields = append(p.Fields, fieldOf(key, val))
	}
	return p, nil
}

func fieldOf(key string, raw json.RawMessage) Field {
	raw = bytes.TrimSpace(raw)
	switch {
	case len(raw) == 0 || string(raw) == "null":
		return Field{Key: key, Null: true}
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return Field{Key: key, Value: s}
		}
	case raw[0] == '-' || (raw[0] >= '0' && raw[0] <= '9'):
		if f, err := strconv.ParseFloat(string(raw), 64); err == nil {
			return Field{Key: key, Value: strconv.FormatFloat(f, 'f', -1, 64)}
		}
	case string(raw) == "true" || string(raw) == "false":
		return Field{Key: key, Value: string(raw)}
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return Field{Key: key, Value: string(raw)}
	}
	return Field{Key: key, Value: compact.String()}
}

// FromRows builds projects from spreadsheet rows whose first row is the
// header. Blank header cells and fully blank rows are dropped.
func FromRows(rows [][]string) []Project {
	if len(rows) == 0 {
		return []Project{}
	}
	header := rows[0]
	out := make([]Project, 0, len(rows)-1)
	for _, row := range rows[1:] {
		var p Project
		blank := true
		for i, key := range header {
			if key == "" {
				continue
			}
			var v string
			if i < len(row) {
				v = row[i]
			}
			if v != "" {
				blank = false
			}
			p.Fields = append(p.Fields, Field{Key: key, Value: v})
		}
		if !blank {
			out = append(out, p)
		}
	}
	return out
}
