package geo

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/carte/internal/antenna"
)

func square(x, y float64) geom.T {
	return geom.NewPolygonFlat(geom.XY, []float64{x, y, x + 1, y, x + 1, y + 1, x, y + 1, x, y}, []int{10})
}

func TestProbe_Precedence(t *testing.T) {
	props := map[string]any{"CODE": "74", "code": "", "dep": "73", "nom": nil, "NAME": "Haute-Savoie"}
	assert.Equal(t, "74", probe(props, CodeKeys), "first non-empty wins, empty values are skipped")
	assert.Equal(t, "Haute-Savoie", probe(props, NameKeys))
	assert.Equal(t, "", probe(map[string]any{"other": "x"}, CodeKeys))
	assert.Equal(t, "1", probe(map[string]any{"code": json.Number("1")}, CodeKeys))
	assert.Equal(t, "971", probe(map[string]any{"insee": float64(971)}, CodeKeys))
}

func TestBuildIndex(t *testing.T) {
	features := []Feature{
		{Geometry: square(6, 45), Properties: map[string]any{"code": "74", "nom": "Haute-Savoie"}},
		{Geometry: square(8, 41), Properties: map[string]any{"CODE_DEPT": "2a", "NOM": "Corse-du-Sud"}},
		{Geometry: square(-61, 16), Properties: map[string]any{"code": "971", "nom": "Guadeloupe"}},
		{Geometry: square(4, 46), Properties: map[string]any{"code": "1", "libelle": "Ain"}},
		{Geometry: square(0, 0), Properties: map[string]any{"nom": "Sans code"}},
		{Geometry: nil, Properties: map[string]any{}},
	}

	idx := BuildIndex(features, antenna.DefaultTable())
	require.Equal(t, 6, idx.Len())

	assert.Equal(t, "74", idx.CodeForName("haute savoie"))
	assert.Equal(t, "2A", idx.CodeForName("corse du sud"))
	assert.Equal(t, "971", idx.CodeForName("guadeloupe"))
	assert.Equal(t, "01", idx.CodeForName("ain"))
	assert.Equal(t, "", idx.CodeForName("sans code"), "features without a code are not indexed")

	assert.Equal(t, antenna.AlpesCentreEst, idx.Antenna("74"))
	assert.Equal(t, antenna.MediterraneeGrandSud, idx.Antenna("2A"))
	assert.Equal(t, antenna.AlpesCentreEst, idx.Antenna("01"))
	assert.Equal(t, "", idx.Antenna("971"), "unowned department")
	assert.Len(t, idx.NameToCode, 4)
	assert.Len(t, idx.CodeToUnit, 3)

	assert.Equal(t, []string{"guadeloupe"}, idx.Unmatched())

	r, ok := idx.Region("74")
	require.True(t, ok)
	assert.Equal(t, "Haute-Savoie", r.Name)
	require.NotNil(t, r.Bounds)
	assert.InDelta(t, 6.0, r.Bounds.Min(0), 1e-9)
	assert.InDelta(t, 46.0, r.Bounds.Max(1), 1e-9)

	assert.Nil(t, idx.Regions[5].Bounds)
	_, ok = idx.Region("")
	assert.False(t, ok)
}

func TestBuildIndex_Idempotent(t *testing.T) {
	features := []Feature{
		{Properties: map[string]any{"code": "74", "nom": "Haute-Savoie"}},
		{Properties: map[string]any{"code": "13", "nom": "Bouches-du-Rhône"}},
	}
	a := BuildIndex(features, antenna.DefaultTable())
	b := BuildIndex(features, antenna.DefaultTable())
	assert.Equal(t, a.NameToCode, b.NameToCode)
	assert.Equal(t, a.CodeToUnit, b.CodeToUnit)
}

func TestBuildIndex_DuplicateCodeLastWins(t *testing.T) {
	features := []Feature{
		{Properties: map[string]any{"code": "74", "nom": "Haute-Savoie"}},
		{Properties: map[string]any{"code": "74", "nom": "Savoie"}},
	}
	idx := BuildIndex(features, antenna.DefaultTable())
	r, ok := idx.Region("74")
	require.True(t, ok)
	assert.Equal(t, "Savoie", r.Name)
	assert.Equal(t, "74", idx.CodeForName("haute savoie"))
	assert.Equal(t, "74", idx.CodeForName("savoie"))
}

func TestIndex_Nil(t *testing.T) {
	var idx *Index
	assert.Zero(t, idx.Len())
	assert.Equal(t, "", idx.CodeForName("ain"))
	assert.Equal(t, "", idx.Antenna("01"))
	assert.Nil(t, idx.Unmatched())
	_, ok := idx.Region("01")
	assert.False(t, ok)
}
