package viewer

import (
	"sync"

	"github.com/twpayne/go-geom"

	"github.com/sells-group/carte/internal/antenna"
	"github.com/sells-group/carte/internal/catalog"
	"github.com/sells-group/carte/internal/geo"
	"github.com/sells-group/carte/internal/project"
)

func square(x, y float64) geom.T {
	return geom.NewPolygonFlat(geom.XY, []float64{x, y, x + 1, y, x + 1, y + 1, x, y + 1, x, y}, []int{10})
}

func testIndex() *geo.Index {
	return geo.BuildIndex([]geo.Feature{
		{Geometry: square(6, 45), Properties: map[string]any{"code": "74", "nom": "Haute-Savoie"}},
		{Geometry: square(8, 41), Properties: map[string]any{"code": "2A", "nom": "Corse-du-Sud"}},
		{Geometry: square(4, 45), Properties: map[string]any{"code": "69", "nom": "Rhône"}},
		{Geometry: square(0, 0), Properties: map[string]any{"nom": "Sans code"}},
	}, antenna.DefaultTable())
}

func testProjects() []project.Project {
	return []project.Project{
		project.New("Nom de projet", "Station", "Type de projet", "AMO", "Département", "Haute-Savoie",
			"Client", "Commune d'Annecy", "latitude", "45,9", "longitude", "6.1"),
		project.New("Nom de projet", "Port", "Type de projet", "EXP", "Département", "2A",
			"latitude", "41.9", "longitude", "8.7"),
		project.New("Nom de projet", "Sans coordonnées", "Type de projet", "MOM", "Département", "74",
			"latitude", "abc", "longitude", "6"),
		project.New("Nom de projet", "Ailleurs", "Type de projet", "AMO / MOM", "Département", "Atlantis",
			"latitude", "47", "longitude", "2"),
		project.New("Nom de projet", "Halle", "Type de projet", "MOM", "Département", "rhone",
			"latitude", "45.7", "longitude", "4.8", "Montant", "1500"),
	}
}

func testData() *catalog.Data {
	return &catalog.Data{Generation: 1, Index: testIndex(), Projects: testProjects()}
}

type staticSource struct {
	mu   sync.Mutex
	data *catalog.Data
}

func newSource() *staticSource {
	return &staticSource{data: testData()}
}

func (s *staticSource) Current() *catalog.Data {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

func (s *staticSource) set(d *catalog.Data) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = d
}

func allChecked() FilterState {
	return FilterState{Categories: []string{"AMO", "MOM", "EXP"}}
}
