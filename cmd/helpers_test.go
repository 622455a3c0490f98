package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/carte/internal/config"
)

const fixtureRegions = `{"type":"FeatureCollection","features":[
{"type":"Feature","properties":{"code":"74","nom":"Haute-Savoie"},
 "geometry":{"type":"Polygon","coordinates":[[[6,45],[7,45],[7,46],[6,46],[6,45]]]}},
{"type":"Feature","properties":{"code":"69","nom":"Rhône"},
 "geometry":{"type":"Polygon","coordinates":[[[4,45],[5,45],[5,46],[4,46],[4,45]]]}}
]}`

const fixtureProjects = `[
{"Nom de projet":"Station","Type de projet":"AMO","Département":"Haute-Savoie","latitude":"45.9","longitude":"6.1"},
{"Nom de projet":"Halle","Type de projet":"MOM","Département":"69","latitude":"45.7","longitude":"4.8"},
{"Nom de projet":"Ailleurs","Type de projet":"EXP","Département":"Atlantis"}
]`

// useFixtures points cfg at two local source files and restores it after
// the test.
func useFixtures(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	regions := filepath.Join(dir, "departements.geojson")
	projects := filepath.Join(dir, "projets.json")
	require.NoError(t, os.WriteFile(regions, []byte(fixtureRegions), 0o600))
	require.NoError(t, os.WriteFile(projects, []byte(fixtureProjects), 0o600))

	prev := cfg
	cfg = &config.Config{
		Sources: config.SourcesConfig{
			RegionsURL:  regions,
			ProjectsURL: projects,
			DataVersion: "test",
			TimeoutSecs: 5,
		},
		Viewer: config.ViewerConfig{
			Categories:     []string{"AMO", "MOM", "EXP"},
			ClusterRadius:  10,
			SessionTTLMins: 5,
			ProjectMinZoom: 14,
			ShowOffices:    true,
		},
		Server: config.ServerConfig{Port: 8080},
	}
	t.Cleanup(func() { cfg = prev })
	return dir
}

// resetFilter clears the package-level filter flags after the test.
func resetFilter(t *testing.T, f *filterFlags) {
	t.Helper()
	t.Cleanup(func() { *f = filterFlags{} })
}

func withContext(t *testing.T, cmds ...interface{ SetContext(context.Context) }) {
	t.Helper()
	for _, c := range cmds {
		c.SetContext(context.Background())
	}
}
