package catalog

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/carte/internal/fetcher"
)

const regionsDoc = `{"type":"FeatureCollection","features":[
 {"type":"Feature","properties":{"code":"74","nom":"Haute-Savoie"},
  "geometry":{"type":"Polygon","coordinates":[[[6,46],[7,46],[7,47],[6,46]]]}},
 {"type":"Feature","properties":{"code":"2A","nom":"Corse-du-Sud"},
  "geometry":{"type":"Polygon","coordinates":[[[8,41],[9,41],[9,42],[8,41]]]}}
]}`

const projectsDoc = `{"projets":[
 {"Nom de projet":"Station","Type de projet":"AMO","Département":"Haute-Savoie","Latitude":"45,9","Longitude":"6.1"},
 {"Nom de projet":"Port","Type de projet":"EXP","Département":"2A"}
]}`

type call struct {
	location string
	etag     string
}

type fakeFetcher struct {
	mu    sync.Mutex
	docs  map[string]string
	errs  map[string]error
	etags map[string]string
	calls []call
	delay time.Duration
}

func (f *fakeFetcher) FetchIfChanged(ctx context.Context, location, etag string) (*fetcher.Document, bool, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{location, etag})
	body, ok := f.docs[location]
	err := f.errs[location]
	tag := f.etags[location]
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, eris.Errorf("HTTP 404 on %s", location)
	}
	if etag != "" && etag == tag {
		return nil, false, nil
	}
	return &fetcher.Document{Location: location, Body: []byte(body), ETag: tag}, true, nil
}

func (f *fakeFetcher) locations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.location
	}
	return out
}

type recordingObserver struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (o *recordingObserver) ObserveFetch(source string, ok bool, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.seen == nil {
		o.seen = map[string]bool{}
	}
	o.seen[source] = ok
}

func newFake() *fakeFetcher {
	return &fakeFetcher{
		docs: map[string]string{
			"departements.geojson":    regionsDoc,
			"export_projets_web.json": projectsDoc,
		},
		errs:  map[string]error{},
		etags: map[string]string{"departements.geojson": "r1", "export_projets_web.json": "p1"},
	}
}

func newLoader(f Fetcher) *Loader {
	return NewLoader(f, Options{
		RegionsURL:  "departements.geojson",
		ProjectsURL: "export_projets_web.json",
		Timeout:     time.Second,
	})
}

func TestLoad_RegionsBeforeProjects(t *testing.T) {
	f := newFake()
	obs := &recordingObserver{}
	l := NewLoader(f, Options{
		RegionsURL:  "departements.geojson",
		ProjectsURL: "export_projets_web.json",
		Observer:    obs,
	})

	data := l.Load(context.Background())
	assert.Equal(t, []string{"departements.geojson", "export_projets_web.json"}, f.locations())

	assert.Equal(t, int64(1), data.Generation)
	assert.Equal(t, 2, data.Index.Len())
	assert.Equal(t, "74", data.Index.CodeForName("haute savoie"))
	assert.Equal(t, "Alpes Centre-Est", data.Index.Antenna("74"))
	require.Len(t, data.Projects, 2)
	assert.Equal(t, "Station", data.Projects[0].Name())

	assert.True(t, data.Regions.Loaded)
	assert.Equal(t, 2, data.Regions.Count)
	assert.True(t, data.ProjectSrc.Loaded)
	assert.Equal(t, 2, data.ProjectSrc.Count)
	assert.Empty(t, data.Status())
	assert.Same(t, data, l.Current())
	assert.Equal(t, map[string]bool{SourceRegions: true, SourceProjects: true}, obs.seen)
}

func TestLoad_RegionFailureKeepsProjects(t *testing.T) {
	f := newFake()
	f.errs["departements.geojson"] = eris.New("HTTP 500 on departements.geojson")
	l := newLoader(f)

	data := l.Load(context.Background())
	assert.Equal(t, 0, data.Index.Len())
	assert.False(t, data.Regions.Loaded)
	assert.Contains(t, data.Regions.Error, "HTTP 500")
	require.Len(t, data.Projects, 2)
	assert.Contains(t, data.Status(), "HTTP 500")
}

func TestLoad_ProjectFailureKeepsRegions(t *testing.T) {
	f := newFake()
	f.docs["export_projets_web.json"] = `{not json`
	l := newLoader(f)

	data := l.Load(context.Background())
	assert.Equal(t, 2, data.Index.Len())
	assert.Empty(t, data.Projects)
	assert.NotNil(t, data.Projects)
	assert.Contains(t, data.ProjectSrc.Error, "decode projects")
}

func TestLoad_Timeout(t *testing.T) {
	f := newFake()
	f.delay = 200 * time.Millisecond
	l := NewLoader(f, Options{
		RegionsURL:  "departements.geojson",
		ProjectsURL: "export_projets_web.json",
		Timeout:     10 * time.Millisecond,
	})

	data := l.Load(context.Background())
	assert.Contains(t, data.Regions.Error, "timeout")
	assert.Contains(t, data.ProjectSrc.Error, "timeout")
	assert.Equal(t, 0, data.Index.Len())
}

func TestReload_Unchanged(t *testing.T) {
	f := newFake()
	l := newLoader(f)

	first := l.Load(context.Background())
	second := l.Reload(context.Background())

	assert.Same(t, first, second)
	assert.Same(t, first, l.Current())
	assert.Equal(t, "r1", second.Regions.ETag)

	f.mu.Lock()
	last := f.calls[len(f.calls)-1]
	f.mu.Unlock()
	assert.Equal(t, "p1", last.etag)
}

func TestReload_ProjectsChanged(t *testing.T) {
	f := newFake()
	l := newLoader(f)
	first := l.Load(context.Background())

	f.mu.Lock()
	f.docs["export_projets_web.json"] = `[{"Nom de projet":"Seul"}]`
	f.etags["export_projets_web.json"] = "p2"
	f.mu.Unlock()

	data := l.Reload(context.Background())
	assert.Same(t, first.Index, data.Index)
	require.Len(t, data.Projects, 1)
	assert.Equal(t, "Seul", data.Projects[0].Name())
	assert.Equal(t, "p2", data.ProjectSrc.ETag)
}

func TestReload_FailureKeepsPreviousData(t *testing.T) {
	f := newFake()
	l := newLoader(f)
	first := l.Load(context.Background())

	f.mu.Lock()
	f.errs["export_projets_web.json"] = eris.New("connection refused")
	f.mu.Unlock()

	data := l.Reload(context.Background())
	assert.Len(t, data.Projects, len(first.Projects))
	assert.Contains(t, data.Status(), "connection refused")
}

func TestCurrent_BeforeLoad(t *testing.T) {
	l := newLoader(newFake())
	data := l.Current()
	assert.Equal(t, int64(0), data.Generation)
	assert.Equal(t, 0, data.Index.Len())
	assert.Empty(t, data.Projects)
	assert.Empty(t, data.Status())
}

func TestLoad_XLSXProjects(t *testing.T) {
	dir := t.TempDir()
	regions := filepath.Join(dir, "departements.geojson")
	require.NoError(t, os.WriteFile(regions, []byte(regionsDoc), 0o644))

	f := fetcher.NewRouter(fetcher.HTTPOptions{}, fetcher.FTPOptions{})
	l := NewLoader(f, Options{
		RegionsURL:  regions,
		ProjectsURL: filepath.Join(dir, "missing.xlsx"),
	})
	data := l.Load(context.Background())
	assert.Equal(t, 2, data.Index.Len())
	assert.Contains(t, data.ProjectSrc.Error, "fetch projects")
}

func TestExtOf(t *testing.T) {
	assert.Equal(t, ".geojson", extOf("https://x.org/departements.geojson?v=2026"))
	assert.Equal(t, ".zip", extOf("/data/DEPARTEMENT.ZIP"))
	assert.Equal(t, ".xlsx", extOf("ftp://host/exports/projets.xlsx#sheet"))
	assert.Equal(t, "", extOf("data"))
}

func TestDecodeRegions_RemoteShapefileRejected(t *testing.T) {
	_, err := decodeRegions("https://x.org/departements.shp", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".zip")
}

func TestLoad_CSVProjects(t *testing.T) {
	f := newFake()
	f.docs["projets.csv"] = "Nom de projet;Type de projet;Département\nStation;AMO;74\n;;\n"
	l := NewLoader(f, Options{RegionsURL: "departements.geojson", ProjectsURL: "projets.csv"})

	data := l.Load(context.Background())
	require.Len(t, data.Projects, 1)
	assert.Equal(t, "Station", data.Projects[0].Name())
	assert.Equal(t, "74", data.Projects[0].Region())
}

func TestLoadAndReload_OverlappingNeverShareGeneration(t *testing.T) {
	f := newFake()
	l := newLoader(f)
	first := l.Load(context.Background())
	require.Equal(t, int64(1), first.Generation)

	f.mu.Lock()
	f.docs["export_projets_web.json"] = `[{"Nom de projet":"Seul"}]`
	f.etags["export_projets_web.json"] = "p2"
	f.delay = 30 * time.Millisecond
	f.mu.Unlock()

	var wg sync.WaitGroup
	results := make([]*Data, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		results[0] = l.Load(context.Background())
	}()
	go func() {
		defer wg.Done()
		results[1] = l.Reload(context.Background())
	}()
	wg.Wait()

	// Either the two runs published in turn, or the reload came second,
	// found nothing new and returned the load's data.
	if results[0].Generation == results[1].Generation {
		assert.Same(t, results[0], results[1])
	}
	latest := max(results[0].Generation, results[1].Generation)
	assert.Equal(t, latest, l.Current().Generation)
	assert.Len(t, l.Current().Projects, 1)
}
