// Package catalog loads the two read-only data sources, regions first, and
// publishes the result as an immutable Data value.
package catalog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/carte/internal/antenna"
	"github.com/sells-group/carte/internal/fetcher"
	"github.com/sells-group/carte/internal/geo"
	"github.com/sells-group/carte/internal/project"
)

// Source names, used in status and metrics.
const (
	SourceRegions  = "regions"
	SourceProjects = "projects"
)

// SourceState describes the last load attempt of one source.
type SourceState struct {
	Location string    `json:"location"`
	Loaded   bool      `json:"loaded"`
	Count    int       `json:"count"`
	ETag     string    `json:"-"`
	Error    string    `json:"error,omitempty"`
	LoadedAt time.Time `json:"loaded_at,omitzero"`
}

// Data is one loaded generation of the catalog. It is never mutated after
// publication.
type Data struct {
	Generation int64             `json:"generation"`
	Index      *geo.Index        `json:"-"`
	Projects   []project.Project `json:"-"`
	Regions    SourceState       `json:"regions"`
	ProjectSrc SourceState       `json:"projects"`
}

// Status returns the user-facing error banner text, or "" when both sources
// loaded.
func (d *Data) Status() string {
	if d == nil {
		return ""
	}
	var msgs []string
	for _, s := range []SourceState{d.Regions, d.ProjectSrc} {
		if s.Error != "" {
			msgs = append(msgs, s.Error)
		}
	}
	return strings.Join(msgs, " ; ")
}

// Observer receives fetch outcomes. A nil Observer is allowed.
type Observer interface {
	ObserveFetch(source string, ok bool, elapsed time.Duration)
}

// Options configures a Loader.
type Options struct {
	RegionsURL  string
	ProjectsURL string
	// Timeout bounds each fetch separately.
	Timeout  time.Duration
	Table    *antenna.Table
	Observer Observer
}

// Fetcher is the subset of fetcher.Router the loader needs.
type Fetcher interface {
	FetchIfChanged(ctx context.Context, location, etag string) (*fetcher.Document, bool, error)
}

// Loader fetches and publishes catalog data.
type Loader struct {
	fetch   Fetcher
	opts    Options
	current atomic.Pointer[Data]
	group   singleflight.Group
	// loadMu orders publications: each load derives from the one before.
	loadMu sync.Mutex
}

// NewLoader creates a Loader. Nothing is fetched until Load.
func NewLoader(f Fetcher, opts Options) *Loader {
	if opts.Timeout == 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Table == nil {
		opts.Table = antenna.DefaultTable()
	}
	return &Loader{fetch: f, opts: opts}
}

// Current returns the latest published data, or an empty generation before
// the first load.
func (l *Loader) Current() *Data {
	if d := l.current.Load(); d != nil {
		return d
	}
	return &Data{
		Index:      geo.BuildIndex(nil, l.opts.Table),
		Regions:    SourceState{Location: l.opts.RegionsURL},
		ProjectSrc: SourceState{Location: l.opts.ProjectsURL},
	}
}

// Load fetches both sources unconditionally. See Reload.
func (l *Loader) Load(ctx context.Context) *Data {
	return l.run(ctx, false)
}

// Reload refetches sources whose content changed since the last load.
// Concurrent callers share a single reload.
func (l *Loader) Reload(ctx context.Context) *Data {
	return l.run(ctx, true)
}

func (l *Loader) run(ctx context.Context, conditional bool) *Data {
	key := "load"
	if conditional {
		key = "reload"
	}
	v, _, _ := l.group.Do(key, func() (any, error) {
		l.loadMu.Lock()
		defer l.loadMu.Unlock()
		return l.load(ctx, conditional), nil
	})
	return v.(*Data)
}

// load runs the region fetch to completion before the project fetch starts:
// projects are attributed to departments through the region index, so the
// index must exist first. A failure on one source never stops the other.
func (l *Loader) load(ctx context.Context, conditional bool) *Data {
	log := zap.L().With(zap.String("component", "catalog"))
	prev := l.Current()

	next := &Data{
		Generation: prev.Generation + 1,
		Index:      prev.Index,
		Projects:   prev.Projects,
		Regions:    prev.Regions,
		ProjectSrc: prev.ProjectSrc,
	}

	regionsETag, projectsETag := "", ""
	if conditional {
		regionsETag, projectsETag = prev.Regions.ETag, prev.ProjectSrc.ETag
	}

	regions, rstate, changed := l.loadRegions(ctx, regionsETag)
	if changed {
		next.Regions = rstate
		if rstate.Error != "" {
			log.Error("region load failed", zap.String("location", rstate.Location), zap.String("error", rstate.Error))
			if !prev.Regions.Loaded {
				next.Index = geo.BuildIndex(nil, l.opts.Table)
			}
		} else {
			next.Index = geo.BuildIndex(regions, l.opts.Table)
			next.Regions.Count = next.Index.Len()
			log.Info("regions loaded",
				zap.Int("regions", next.Index.Len()),
				zap.Int("indexed", len(next.Index.NameToCode)),
				zap.Int("owned", len(next.Index.CodeToUnit)),
			)
			if unmatched := next.Index.Unmatched(); len(unmatched) > 0 {
				log.Debug("departments without antenna", zap.Strings("keys", unmatched))
			}
		}
	}

	projects, pstate, pchanged := l.loadProjects(ctx, projectsETag)
	// Nothing refetched: keep the generation.
	if conditional && !changed && !pchanged {
		return prev
	}
	if pchanged {
		next.ProjectSrc = pstate
		if pstate.Error != "" {
			log.Error("project load failed", zap.String("location", pstate.Location), zap.String("error", pstate.Error))
		} else {
			next.Projects = projects
			next.ProjectSrc.Count = len(projects)
			log.Info("projects loaded", zap.Int("projects", len(projects)))
		}
	}

	if next.Index == nil {
		next.Index = geo.BuildIndex(nil, l.opts.Table)
	}
	if next.Projects == nil {
		next.Projects = []project.Project{}
	}

	l.current.Store(next)
	return next
}

func (l *Loader) observe(source string, ok bool, start time.Time) {
	if l.opts.Observer != nil {
		l.opts.Observer.ObserveFetch(source, ok, time.Since(start))
	}
}

// fetchDoc fetches one document under its own timeout.
func (l *Loader) fetchDoc(ctx context.Context, source, location, etag string) (*fetcher.Document, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, l.opts.Timeout)
	defer cancel()

	start := time.Now()
	doc, changed, err := l.fetch.FetchIfChanged(ctx, location, etag)
	l.observe(source, err == nil, start)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, true, eris.Wrapf(err, "timeout after %s", l.opts.Timeout)
		}
		return nil, true, err
	}
	return doc, changed, nil
}

func (l *Loader) loadRegions(ctx context.Context, etag string) ([]geo.Feature, SourceState, bool) {
	loc := l.opts.RegionsURL
	state := SourceState{Location: loc}

	doc, changed, err := l.fetchDoc(ctx, SourceRegions, loc, etag)
	if err != nil {
		state.Error = eris.Wrap(err, "catalog: fetch regions").Error()
		return nil, state, true
	}
	if !changed {
		return nil, state, false
	}

	features, err := decodeRegions(loc, doc.Body)
	if err != nil {
		state.Error = eris.Wrap(err, "catalog: decode regions").Error()
		return nil, state, true
	}

	state.Loaded = true
	state.ETag = doc.ETag
	state.LoadedAt = time.Now()
	return features, state, true
}

func (l *Loader) loadProjects(ctx context.Context, etag string) ([]project.Project, SourceState, bool) {
	loc := l.opts.ProjectsURL
	state := SourceState{Location: loc}

	doc, changed, err := l.fetchDoc(ctx, SourceProjects, loc, etag)
	if err != nil {
		state.Error = eris.Wrap(err, "catalog: fetch projects").Error()
		return nil, state, true
	}
	if !changed {
		return nil, state, false
	}

	projects, err := decodeProjects(ctx, loc, doc.Body)
	if err != nil {
		state.Error = eris.Wrap(err, "catalog: decode projects").Error()
		return nil, state, true
	}

	state.Loaded = true
	state.ETag = doc.ETag
	state.LoadedAt = time.Now()
	return projects, state, true
}

func extOf(location string) string {
	loc := location
	if i := strings.IndexAny(loc, "?#"); i >= 0 {
		loc = loc[:i]
	}
	return strings.ToLower(filepath.Ext(loc))
}

func decodeRegions(location string, body []byte) ([]geo.Feature, error) {
	switch extOf(location) {
	case ".shp":
		if s := fetcher.Scheme(location); s != "" && s != "file" {
			return nil, eris.New("remote .shp needs its .dbf: publish a .zip bundle instead")
		}
		return geo.LoadShapefile(fetcher.FilePath(location))
	case ".zip":
		tmp, err := os.CreateTemp("", "carte-regions-*.zip")
		if err != nil {
			return nil, eris.Wrap(err, "create temp bundle")
		}
		defer os.Remove(tmp.Name()) //nolint:errcheck
		if _, err := tmp.Write(body); err != nil {
			_ = tmp.Close()
			return nil, eris.Wrap(err, "write temp bundle")
		}
		if err := tmp.Close(); err != nil {
			return nil, eris.Wrap(err, "close temp bundle")
		}
		return geo.LoadShapefile(tmp.Name())
	default:
		return geo.DecodeGeoJSON(body)
	}
}

func decodeProjects(ctx context.Context, location string, body []byte) ([]project.Project, error) {
	switch extOf(location) {
	case ".xlsx":
		rows, err := fetcher.ReadXLSX(body, fetcher.XLSXOptions{})
		if err != nil {
			return nil, err
		}
		return project.FromRows(rows), nil
	case ".csv":
		rows, err := fetcher.ReadCSV(ctx, body, fetcher.CSVOptions{LazyQuotes: true})
		if err != nil {
			return nil, err
		}
		return project.FromRows(rows), nil
	default:
		return project.Decode(body)
	}
}
