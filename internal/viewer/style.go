package viewer

import (
	"fmt"
	"strings"

	"github.com/sells-group/carte/internal/antenna"
	"github.com/sells-group/carte/internal/geo"
)

// Style is the path style of one department polygon.
type Style struct {
	Weight      int     `json:"weight"`
	Color       string  `json:"color"`
	FillColor   string  `json:"fillColor"`
	FillOpacity float64 `json:"fillOpacity"`
}

// Outline colors and opacities.
const (
	outlineStrong = "#111"
	outlineNormal = "#666"

	opacitySelected = 0.85
	opacityFocused  = 0.78
	opacityOwned    = 0.55
	opacityUnowned  = 0.08
)

// HoverStyle is applied on top of a region style while the pointer is over it.
var HoverStyle = Style{Weight: 2, Color: outlineStrong, FillOpacity: 0.75}

// StyleRegion computes the style of the department with the given code.
func StyleRegion(code string, state FilterState, idx *geo.Index) Style {
	unit := idx.Antenna(code)

	selected := state.RegionFilter && state.SelectedCode != "" && code == state.SelectedCode
	focused := state.FocusedAntenna != "" && unit != "" && unit == state.FocusedAntenna

	s := Style{
		Weight:    1,
		Color:     outlineNormal,
		FillColor: antenna.Color(unit),
	}
	if selected || focused {
		s.Weight = 2
		s.Color = outlineStrong
	}

	switch {
	case selected:
		s.FillOpacity = opacitySelected
	case focused:
		s.FillOpacity = opacityFocused
	case unit != "":
		s.FillOpacity = opacityOwned
	default:
		s.FillOpacity = opacityUnowned
	}
	return s
}

// Tooltip returns the hover text of a department with its filtered project
// count. Code and unit are left out when empty.
func Tooltip(r geo.Region, unit string, count int) string {
	var b strings.Builder
	b.WriteString(r.Name)
	if r.Code != "" {
		fmt.Fprintf(&b, " (%s)", r.Code)
	}
	if unit != "" {
		fmt.Fprintf(&b, " — %s", unit)
	}
	fmt.Fprintf(&b, " — %d projet(s)", count)
	return b.String()
}

// RegionStat is the status line fragment naming the selected department.
func RegionStat(state FilterState) string {
	if state.RegionFilter && state.SelectedCode != "" {
		return "— département: " + state.SelectedCode
	}
	return ""
}
