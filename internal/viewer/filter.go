// Package viewer holds the map viewer logic: the filter predicate, region
// styling, the detail panel and per-client sessions that tie them together.
package viewer

import (
	"regexp"
	"strings"

	"github.com/sells-group/carte/internal/geo"
	"github.com/sells-group/carte/internal/normalize"
	"github.com/sells-group/carte/internal/project"
)

// DefaultCategories are the category checkboxes, in display order.
var DefaultCategories = []string{"AMO", "MOM", "EXP"}

// FilterState is everything the user can change that affects what is drawn.
type FilterState struct {
	Query          string   `json:"query"`
	Categories     []string `json:"categories"`
	SelectedCode   string   `json:"selected_code,omitempty"`
	RegionFilter   bool     `json:"region_filter"`
	FocusedAntenna string   `json:"focused_antenna,omitempty"`
	ShowOffices    bool     `json:"show_offices"`
}

// Clone returns a deep copy.
func (s FilterState) Clone() FilterState {
	s.Categories = append([]string(nil), s.Categories...)
	return s
}

// activeTypes lower-cases and trims the checked categories, dropping blanks.
func activeTypes(categories []string) []string {
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			out = append(out, c)
		}
	}
	return out
}

var codeShape = regexp.MustCompile(`^(\d{2}|\d{3}|2A|2B)$`)

// ResolveRegion returns the department code of a raw region field: the field
// itself when it already is a code, else the code of the department of that
// name. "" means the project cannot be attributed to a department.
func ResolveRegion(raw string, idx *geo.Index) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if code := normalize.DeptCode(raw); codeShape.MatchString(code) {
		return code
	}
	return idx.CodeForName(normalize.Key(raw))
}

// Matches reports whether p is part of the visible set under state.
func Matches(p project.Project, state FilterState, idx *geo.Index) bool {
	return newMatcher(state, idx).match(p)
}

// matcher precomputes the state-derived parts of the predicate so a full
// pass does not redo them per record.
type matcher struct {
	types    []string
	query    string
	selected string
	idx      *geo.Index
}

func newMatcher(state FilterState, idx *geo.Index) matcher {
	m := matcher{
		types: activeTypes(state.Categories),
		query: strings.ToLower(strings.TrimSpace(state.Query)),
		idx:   idx,
	}
	if state.RegionFilter {
		m.selected = state.SelectedCode
	}
	return m
}

func (m matcher) match(p project.Project) bool {
	if len(m.types) > 0 {
		t := strings.ToLower(strings.TrimSpace(p.Category()))
		hit := false
		for _, x := range m.types {
			if strings.Contains(t, x) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}

	if m.query != "" && !strings.Contains(p.SearchText(), m.query) {
		return false
	}

	if m.selected != "" && ResolveRegion(p.Region(), m.idx) != m.selected {
		return false
	}
	return true
}

// Filter returns the indexes of the projects matching state, in collection
// order.
func Filter(projects []project.Project, state FilterState, idx *geo.Index) []int {
	m := newMatcher(state, idx)
	out := make([]int, 0, len(projects))
	for i, p := range projects {
		if m.match(p) {
			out = append(out, i)
		}
	}
	return out
}

// CountByRegion counts the given projects per resolved department code.
// Unattributable projects are not counted.
func CountByRegion(projects []project.Project, indexes []int, idx *geo.Index) map[string]int {
	counts := make(map[string]int)
	for _, i := range indexes {
		if code := ResolveRegion(projects[i].Region(), idx); code != "" {
			counts[code]++
		}
	}
	return counts
}
