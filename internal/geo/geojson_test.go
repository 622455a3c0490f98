package geo

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

const sampleGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"code": "74", "nom": "Haute-Savoie"},
     "geometry": {"type": "Polygon", "coordinates": [[[6,45],[7,45],[7,46],[6,46],[6,45]]]}},
    {"type": "Feature", "properties": {"code": 1, "nom": "Ain"},
     "geometry": {"type": "MultiPolygon", "coordinates": [[[[4,45],[5,45],[5,46],[4,46],[4,45]]]]}},
    {"type": "Feature", "properties": null, "geometry": null}
  ]
}`

func TestDecodeGeoJSON(t *testing.T) {
	features, err := DecodeGeoJSON([]byte(sampleGeoJSON))
	require.NoError(t, err)
	require.Len(t, features, 3)

	assert.Equal(t, "74", features[0].Properties["code"])
	require.NotNil(t, features[0].Geometry)
	_, isPoly := features[0].Geometry.(*geom.Polygon)
	assert.True(t, isPoly)

	assert.Equal(t, json.Number("1"), features[1].Properties["code"])
	_, isMulti := features[1].Geometry.(*geom.MultiPolygon)
	assert.True(t, isMulti)

	assert.Nil(t, features[2].Geometry)
	assert.NotNil(t, features[2].Properties)
}

func TestDecodeGeoJSON_BOM(t *testing.T) {
	features, err := DecodeGeoJSON(append([]byte("\xef\xbb\xbf"), sampleGeoJSON...))
	require.NoError(t, err)
	assert.Len(t, features, 3)
}

func TestDecodeGeoJSON_Errors(t *testing.T) {
	_, err := DecodeGeoJSON([]byte(`{"features": [`))
	require.Error(t, err)

	features, err := DecodeGeoJSON([]byte(`{"type":"FeatureCollection"}`))
	require.NoError(t, err)
	assert.Empty(t, features)
}

func TestEncodeFeatureCollection(t *testing.T) {
	data, err := EncodeFeatureCollection(
		[]geom.T{Point(45.9, 6.1), nil},
		[]map[string]any{{"code": "74"}, {"code": "skip"}},
	)
	require.NoError(t, err)

	var out struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type        string    `json:"type"`
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "FeatureCollection", out.Type)
	require.Len(t, out.Features, 1)
	assert.Equal(t, "Point", out.Features[0].Geometry.Type)
	assert.Equal(t, []float64{6.1, 45.9}, out.Features[0].Geometry.Coordinates)
	assert.Equal(t, "74", out.Features[0].Properties["code"])

	_, err = EncodeFeatureCollection([]geom.T{nil}, nil)
	require.Error(t, err)
}

func TestDecodeGeoJSON_FeedsIndex(t *testing.T) {
	features, err := DecodeGeoJSON([]byte(sampleGeoJSON))
	require.NoError(t, err)
	idx := BuildIndex(features, nil)
	assert.Equal(t, "01", idx.CodeForName("ain"))
	assert.Empty(t, idx.CodeToUnit, "a nil table owns nothing")
}
