package httpapi

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/carte/internal/antenna"
	"github.com/sells-group/carte/internal/catalog"
	"github.com/sells-group/carte/internal/export"
	"github.com/sells-group/carte/internal/geo"
	"github.com/sells-group/carte/internal/normalize"
	"github.com/sells-group/carte/internal/project"
	"github.com/sells-group/carte/internal/viewer"
)

type configResponse struct {
	DataVersion    string                `json:"data_version"`
	ClusterRadius  int                   `json:"cluster_radius"`
	DebounceMillis int64                 `json:"debounce_ms"`
	ProjectMinZoom float64               `json:"project_min_zoom"`
	Categories     []string              `json:"categories"`
	Legend         []antenna.LegendEntry `json:"legend"`
	Offices        []antenna.Office      `json:"offices"`
	HoverStyle     viewer.Style          `json:"hover_style"`
}

func (h *Handler) handleConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, configResponse{
		DataVersion:    h.opts.DataVersion,
		ClusterRadius:  h.opts.ClusterRadius,
		DebounceMillis: h.opts.Debounce.Milliseconds(),
		ProjectMinZoom: h.opts.ProjectMinZoom,
		Categories:     h.opts.Categories,
		Legend:         antenna.Legend(),
		Offices:        antenna.Offices(),
		HoverStyle:     viewer.HoverStyle,
	})
}

type statusResponse struct {
	*catalog.Data
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

func (h *Handler) status(d *catalog.Data) statusResponse {
	return statusResponse{Data: d, Status: d.Status(), Sessions: h.sessions.Len()}
}

func (h *Handler) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.status(h.catalog.Current()))
}

func (h *Handler) handleReload(w http.ResponseWriter, r *http.Request) {
	d := h.catalog.Reload(r.Context())
	h.metrics.SetCatalog(d.Generation, len(d.Projects), d.Index.Len())
	zap.L().Info("catalog reloaded",
		zap.Int64("generation", d.Generation),
		zap.String("status", d.Status()),
	)
	writeJSON(w, http.StatusOK, h.status(d))
}

// stateFromQuery reads a filter state from URL parameters:
// q, type (repeatable or comma separated, absent = every category),
// dept, dept_filter (defaults to true when dept is set) and focus.
func (h *Handler) stateFromQuery(v url.Values) (viewer.FilterState, error) {
	st := viewer.FilterState{
		Query:          v.Get("q"),
		Categories:     h.opts.Categories,
		FocusedAntenna: v.Get("focus"),
	}
	if types, ok := v["type"]; ok {
		st.Categories = nil
		for _, t := range types {
			for _, part := range strings.Split(t, ",") {
				if part = strings.TrimSpace(part); part != "" {
					st.Categories = append(st.Categories, part)
				}
			}
		}
	}
	if dept := strings.TrimSpace(v.Get("dept")); dept != "" {
		st.SelectedCode = normalize.DeptCode(dept)
		st.RegionFilter = true
	}
	if raw := v.Get("dept_filter"); raw != "" {
		on, err := strconv.ParseBool(raw)
		if err != nil {
			return st, err
		}
		st.RegionFilter = on
	}
	return st, nil
}

type projectItem struct {
	Index   int             `json:"index"`
	Code    string          `json:"code"`
	Bucket  project.Bucket  `json:"bucket"`
	Project project.Project `json:"project"`
}

type projectsResponse struct {
	Generation int64                  `json:"generation"`
	Visible    int                    `json:"visible"`
	Markers    []viewer.ProjectMarker `json:"markers"`
	Counts     map[string]int         `json:"counts"`
	Projects   []projectItem          `json:"projects"`
	Status     string                 `json:"status"`
}

func (h *Handler) handleProjects(w http.ResponseWriter, r *http.Request) {
	st, err := h.stateFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_query", "dept_filter must be a boolean")
		return
	}
	d := h.catalog.Current()
	res := viewer.Render(d, st)

	items := make([]projectItem, len(res.Indexes))
	for n, i := range res.Indexes {
		p := d.Projects[i]
		items[n] = projectItem{
			Index:   i,
			Code:    viewer.ResolveRegion(p.Region(), d.Index),
			Bucket:  p.Bucket(),
			Project: p,
		}
	}

	writeJSON(w, http.StatusOK, projectsResponse{
		Generation: res.Generation,
		Visible:    res.Visible,
		Markers:    res.Markers,
		Counts:     res.Counts,
		Projects:   items,
		Status:     d.Status(),
	})
}

// writeRegions encodes the regions as a styled GeoJSON FeatureCollection.
func writeRegions(w http.ResponseWriter, idx *geo.Index, views []viewer.RegionView) {
	geoms := make([]geom.T, len(views))
	props := make([]map[string]any, len(views))
	for i, v := range views {
		geoms[i] = idx.Regions[i].Geometry
		props[i] = map[string]any{
			"code":        v.Code,
			"name":        v.Name,
			"antenna":     v.Antenna,
			"count":       v.Count,
			"tooltip":     v.Tooltip,
			"weight":      v.Style.Weight,
			"color":       v.Style.Color,
			"fillColor":   v.Style.FillColor,
			"fillOpacity": v.Style.FillOpacity,
		}
	}
	body, err := geo.EncodeFeatureCollection(geoms, props)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encode_failed", err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *Handler) handleRegions(w http.ResponseWriter, r *http.Request) {
	st, err := h.stateFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_query", "dept_filter must be a boolean")
		return
	}
	d := h.catalog.Current()
	res := viewer.Render(d, st)
	writeRegions(w, d.Index, viewer.RegionViews(d.Index, st, res.Counts))
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	st, err := h.stateFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_query", "dept_filter must be a boolean")
		return
	}
	d := h.catalog.Current()
	indexes := viewer.Filter(d.Projects, st, d.Index)

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="projets.xlsx"`)
	if err := export.WriteXLSX(w, d, indexes); err != nil {
		zap.L().Error("export failed", zap.Error(err))
	}
}
