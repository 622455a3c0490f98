package viewer

import (
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/carte/internal/antenna"
	"github.com/sells-group/carte/internal/catalog"
	"github.com/sells-group/carte/internal/geo"
)

// Errors returned by session operations.
var (
	ErrUnknownCategory = eris.New("viewer: unknown category")
	ErrNoMarker        = eris.New("viewer: no such marker")
)

// Source provides the current catalog generation.
type Source interface {
	Current() *catalog.Data
}

// Options configures new sessions.
type Options struct {
	Categories  []string
	Debounce    time.Duration
	ShowOffices bool
	MinZoom     float64
}

func (o Options) withDefaults() Options {
	if len(o.Categories) == 0 {
		o.Categories = DefaultCategories
	}
	if o.Debounce < 0 {
		o.Debounce = 0
	}
	if o.MinZoom == 0 {
		o.MinZoom = 14
	}
	return o
}

// Snapshot is what a client draws.
type Snapshot struct {
	State      FilterState     `json:"state"`
	Generation int64           `json:"generation"`
	Visible    int             `json:"visible"`
	Markers    []ProjectMarker `json:"markers"`
	Offices    []OfficeMarker  `json:"offices"`
	Regions    []RegionView    `json:"regions"`
	RegionStat string          `json:"region_stat"`
	Status     string          `json:"status"`
	Panel      *Panel          `json:"panel"`
	Selected   *MarkerRef      `json:"selected"`
	// Pending is true while a debounced query has not been applied yet.
	Pending bool `json:"pending"`
}

// Session is one client's viewer. Every operation runs under the session
// lock, so operations see each other's effects in call order.
type Session struct {
	mu       sync.Mutex
	opts     Options
	source   Source
	state    FilterState
	data     *catalog.Data
	result   Result
	panel    *Panel
	selected *MarkerRef
	pending  bool
	debounce *debouncer
}

// NewSession creates a session with every category checked and renders it
// against the current catalog.
func NewSession(source Source, opts Options) *Session {
	opts = opts.withDefaults()
	s := &Session{
		opts:   opts,
		source: source,
		state: FilterState{
			Categories:  append([]string(nil), opts.Categories...),
			ShowOffices: opts.ShowOffices,
		},
	}
	s.debounce = newDebouncer(opts.Debounce)
	s.mu.Lock()
	s.render()
	s.mu.Unlock()
	return s
}

// render recomputes the marker set from scratch. The selected marker is
// dropped because it belonged to the previous batch. The panel stays open.
func (s *Session) render() {
	s.data = s.source.Current()
	s.result = Render(s.data, s.state)
	s.selected = nil
	s.pending = false
}

// closePanel closes the panel and drops the selection and antenna focus.
func (s *Session) closePanel() {
	s.panel = nil
	s.selected = nil
	s.state.FocusedAntenna = ""
}

// Snapshot returns the current view. A newly loaded catalog generation is
// rendered first.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh()
	return s.snapshot()
}

// RegionLayer returns the region index the session renders against with the
// styled views of its regions, in index order.
func (s *Session) RegionLayer() (*geo.Index, []RegionView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh()
	return s.data.Index, RegionViews(s.data.Index, s.state, s.result.Counts)
}

// refresh renders when a new catalog generation has been published.
func (s *Session) refresh() {
	if cur := s.source.Current(); s.data == nil || cur.Generation != s.data.Generation {
		s.render()
	}
}

func (s *Session) snapshot() Snapshot {
	state := s.state.Clone()

	markers := make([]ProjectMarker, len(s.result.Markers))
	copy(markers, s.result.Markers)
	offices := OfficeMarkers(state)
	if s.selected != nil {
		switch s.selected.Kind {
		case KindProject:
			for i := range markers {
				if markers[i].Index == s.selected.Index {
					markers[i].Selected = true
				}
			}
		case KindOffice:
			if s.selected.Index < len(offices) {
				offices[s.selected.Index].Selected = true
			}
		}
	}

	var sel *MarkerRef
	if s.selected != nil {
		ref := *s.selected
		sel = &ref
	}

	return Snapshot{
		State:      state,
		Generation: s.result.Generation,
		Visible:    s.result.Visible,
		Markers:    markers,
		Offices:    offices,
		Regions:    RegionViews(s.data.Index, state, s.result.Counts),
		RegionStat: RegionStat(state),
		Status:     s.data.Status(),
		Panel:      s.panel,
		Selected:   sel,
		Pending:    s.pending,
	}
}

// TypeQuery sets the search text. The marker set is recomputed once typing
// pauses for the debounce delay; each call restarts the delay.
func (s *Session) TypeQuery(q string) {
	s.mu.Lock()
	s.state.Query = q
	s.pending = true
	s.mu.Unlock()

	s.debounce.Trigger(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.render()
	})
}

// SetCategory checks or unchecks a category and renders.
func (s *Session) SetCategory(value string, checked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	canonical := ""
	for _, c := range s.opts.Categories {
		if strings.EqualFold(c, strings.TrimSpace(value)) {
			canonical = c
			break
		}
	}
	if canonical == "" {
		return eris.Wrapf(ErrUnknownCategory, "%q", value)
	}

	isChecked := make(map[string]bool, len(s.state.Categories))
	for _, c := range s.state.Categories {
		isChecked[c] = true
	}
	isChecked[canonical] = checked

	next := make([]string, 0, len(s.opts.Categories))
	for _, c := range s.opts.Categories {
		if isChecked[c] {
			next = append(next, c)
		}
	}
	s.state.Categories = next
	s.render()
	return nil
}

// SetRegionFilter turns click-to-filter on or off. Turning it off forgets
// the selected department.
func (s *Session) SetRegionFilter(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.RegionFilter = on
	if !on {
		s.state.SelectedCode = ""
	}
	s.render()
}

// ClickRegion handles a click on a department and returns the bounds to fit.
// With click-to-filter on, the click toggles the department selection.
func (s *Session) ClickRegion(code string) *Bounds {
	s.mu.Lock()
	defer s.mu.Unlock()

	var bounds *Bounds
	if r, ok := s.data.Index.Region(code); ok {
		bounds = BoundsOf(r.Bounds)
	}

	if s.state.RegionFilter && code != "" {
		if s.state.SelectedCode == code {
			s.state.SelectedCode = ""
		} else {
			s.state.SelectedCode = code
		}
		s.closePanel()
		s.render()
	}
	return bounds
}

// ClickProject selects a plotted project, opens its panel and returns the
// camera target. zoom is the client's current zoom level.
func (s *Session) ClickProject(index int, zoom float64) (FlyTo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var marker *ProjectMarker
	for i := range s.result.Markers {
		if s.result.Markers[i].Index == index {
			marker = &s.result.Markers[i]
			break
		}
	}
	if marker == nil || index >= len(s.data.Projects) {
		return FlyTo{}, eris.Wrapf(ErrNoMarker, "project %d", index)
	}

	s.selected = &MarkerRef{Kind: KindProject, Index: index}
	s.state.FocusedAntenna = ""
	s.panel = ProjectPanel(index, s.data.Projects[index])

	return FlyTo{Lat: marker.Lat, Lon: marker.Lon, Zoom: math.Max(zoom, s.opts.MinZoom)}, nil
}

// ClickOffice selects an office and opens its panel. An antenna office
// focuses its antenna's departments; the head office clears the focus.
func (s *Session) ClickOffice(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	offices := antenna.Offices()
	if !s.state.ShowOffices || index < 0 || index >= len(offices) {
		return eris.Wrapf(ErrNoMarker, "office %d", index)
	}
	o := offices[index]

	s.selected = &MarkerRef{Kind: KindOffice, Index: index}
	if o.Kind == antenna.KindAntenna && o.Antenna != "" {
		s.state.FocusedAntenna = o.Antenna
	} else {
		s.state.FocusedAntenna = ""
	}
	s.panel = OfficePanel(index, o)
	return nil
}

// ClickMap handles a click on the map background.
func (s *Session) ClickMap() {
	s.ClosePanel()
}

// ClosePanel closes the detail panel.
func (s *Session) ClosePanel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closePanel()
}

// SetOffices shows or hides the office markers.
func (s *Session) SetOffices(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ShowOffices = on
	if !on && s.selected != nil && s.selected.Kind == KindOffice {
		s.selected = nil
	}
}

// Clear resets every filter, closes the panel and renders.
func (s *Session) Clear() {
	s.debounce.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Query = ""
	s.state.Categories = append([]string(nil), s.opts.Categories...)
	s.state.SelectedCode = ""
	s.state.RegionFilter = false
	s.closePanel()
	s.render()
}

// Close stops any pending debounced render.
func (s *Session) Close() {
	s.debounce.Stop()
}

// debouncer runs the last triggered function once no new trigger has arrived
// for wait. A superseded timer is stopped.
type debouncer struct {
	mu    sync.Mutex
	wait  time.Duration
	timer *time.Timer
}

func newDebouncer(wait time.Duration) *debouncer {
	return &debouncer{wait: wait}
}

func (d *debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.wait, fn)
}

func (d *debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
