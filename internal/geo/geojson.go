package geo

import (
	"bytes"
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
)

var utf8BOM = []byte("\xef\xbb\xbf")

// rawFeature decodes the envelope only. Properties keep json.Number so that
// numeric codes ("1", not "1.0") survive.
type rawFeature struct {
	Geometry   json.RawMessage `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

// DecodeGeoJSON parses a FeatureCollection. Features with a missing or
// undecodable geometry are kept with a nil geometry; a document without a
// features array yields no features.
func DecodeGeoJSON(data []byte) ([]Feature, error) {
	data = bytes.TrimPrefix(bytes.TrimSpace(data), utf8BOM)

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc struct {
		Features []json.RawMessage `json:"features"`
	}
	if err := dec.Decode(&doc); err != nil {
		return nil, eris.Wrap(err, "geo: decode geojson")
	}

	log := zap.L().With(zap.String("component", "geo.geojson"))
	out := make([]Feature, 0, len(doc.Features))
	for i, raw := range doc.Features {
		var rf rawFeature
		fdec := json.NewDecoder(bytes.NewReader(raw))
		fdec.UseNumber()
		if err := fdec.Decode(&rf); err != nil {
			log.Debug("geo: skipping malformed feature", zap.Int("index", i), zap.Error(err))
			continue
		}

		f := Feature{Properties: rf.Properties}
		if f.Properties == nil {
			f.Properties = map[string]any{}
		}
		if g := bytes.TrimSpace(rf.Geometry); len(g) > 0 && !bytes.Equal(g, []byte("null")) {
			var t geom.T
			if err := geojson.Unmarshal(g, &t); err != nil {
				log.Debug("geo: undecodable geometry", zap.Int("index", i), zap.Error(err))
			} else {
				f.Geometry = t
			}
		}
		out = append(out, f)
	}

	return out, nil
}

// EncodeFeatureCollection renders geometries with their properties as a
// GeoJSON FeatureCollection. Entries without geometry are omitted.
func EncodeFeatureCollection(geoms []geom.T, props []map[string]any) ([]byte, error) {
	if len(geoms) != len(props) {
		return nil, eris.Errorf("geo: %d geometries but %d property sets", len(geoms), len(props))
	}
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(geoms))}
	for i, g := range geoms {
		if g == nil {
			continue
		}
		fc.Features = append(fc.Features, &geojson.Feature{Geometry: g, Properties: props[i]})
	}
	data, err := json.Marshal(fc)
	if err != nil {
		return nil, eris.Wrap(err, "geo: encode feature collection")
	}
	return data, nil
}

// Point returns a lon/lat point geometry.
func Point(lat, lon float64) geom.T {
	return geom.NewPointFlat(geom.XY, []float64{lon, lat})
}
