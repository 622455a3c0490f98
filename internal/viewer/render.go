package viewer

import (
	"github.com/twpayne/go-geom"

	"github.com/sells-group/carte/internal/antenna"
	"github.com/sells-group/carte/internal/catalog"
	"github.com/sells-group/carte/internal/geo"
	"github.com/sells-group/carte/internal/project"
)

// ProjectMarker is a plotted project.
type ProjectMarker struct {
	Index    int            `json:"index"`
	Lat      float64        `json:"lat"`
	Lon      float64        `json:"lon"`
	Bucket   project.Bucket `json:"bucket"`
	Color    string         `json:"color"`
	Title    string         `json:"title"`
	Selected bool           `json:"selected,omitempty"`
}

// OfficeMarker is a plotted office.
type OfficeMarker struct {
	Index        int     `json:"index"`
	Name         string  `json:"name"`
	Antenna      string  `json:"antenna"`
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	Headquarters bool    `json:"headquarters"`
	Selected     bool    `json:"selected,omitempty"`
}

// RegionView is a department as drawn: its style, tooltip and filtered count.
type RegionView struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Antenna string `json:"antenna,omitempty"`
	Count   int    `json:"count"`
	Style   Style  `json:"style"`
	Tooltip string `json:"tooltip"`
}

// Bounds is a lat/lon bounding box.
type Bounds struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// BoundsOf converts go-geom XY bounds. It returns nil for empty bounds.
func BoundsOf(b *geom.Bounds) *Bounds {
	if b == nil || b.IsEmpty() {
		return nil
	}
	return &Bounds{South: b.Min(1), West: b.Min(0), North: b.Max(1), East: b.Max(0)}
}

// FlyTo is the camera target after a project click.
type FlyTo struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Zoom float64 `json:"zoom"`
}

// Result is the output of one full render pass.
type Result struct {
	Generation int64           `json:"generation"`
	Visible    int             `json:"visible"`
	Markers    []ProjectMarker `json:"markers"`
	Counts     map[string]int  `json:"counts"`
	// Indexes lists every matching project, plotted or not.
	Indexes []int `json:"-"`
}

// Render filters the catalog and plots every matching project that has a
// location. The visible count includes matches without one.
func Render(data *catalog.Data, state FilterState) Result {
	indexes := Filter(data.Projects, state, data.Index)

	markers := make([]ProjectMarker, 0, len(indexes))
	for _, i := range indexes {
		p := data.Projects[i]
		loc, ok := p.Location()
		if !ok {
			continue
		}
		b := p.Bucket()
		markers = append(markers, ProjectMarker{
			Index:  i,
			Lat:    loc.Lat,
			Lon:    loc.Lon,
			Bucket: b,
			Color:  b.Color(),
			Title:  p.Name(),
		})
	}

	return Result{
		Generation: data.Generation,
		Visible:    len(indexes),
		Markers:    markers,
		Counts:     CountByRegion(data.Projects, indexes, data.Index),
		Indexes:    indexes,
	}
}

// RegionViews styles every region of idx under state.
func RegionViews(idx *geo.Index, state FilterState, counts map[string]int) []RegionView {
	if idx == nil {
		return []RegionView{}
	}
	out := make([]RegionView, len(idx.Regions))
	for i, r := range idx.Regions {
		unit := idx.Antenna(r.Code)
		n := counts[r.Code]
		out[i] = RegionView{
			Code:    r.Code,
			Name:    r.Name,
			Antenna: unit,
			Count:   n,
			Style:   StyleRegion(r.Code, state, idx),
			Tooltip: Tooltip(r, unit, n),
		}
	}
	return out
}

// OfficeMarkers returns the office markers, or none when offices are hidden.
func OfficeMarkers(state FilterState) []OfficeMarker {
	if !state.ShowOffices {
		return []OfficeMarker{}
	}
	offices := antenna.Offices()
	out := make([]OfficeMarker, len(offices))
	for i, o := range offices {
		out[i] = OfficeMarker{
			Index:        i,
			Name:         o.Name,
			Antenna:      o.Antenna,
			Lat:          o.Latitude,
			Lon:          o.Longitude,
			Headquarters: o.IsHeadquarters(),
		}
	}
	return out
}
