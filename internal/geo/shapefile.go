package geo

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
)

// LoadShapefile reads department boundaries from an ESRI shapefile, either a
// bare .shp (with its .dbf alongside) or a .zip bundle. Every DBF attribute
// becomes a feature property under its column name.
func LoadShapefile(path string) ([]Feature, error) {
	log := zap.L().With(zap.String("component", "geo.shapefile"))

	shpPath := path
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		dir, err := os.MkdirTemp("", "carte-shp-*")
		if err != nil {
			return nil, eris.Wrap(err, "geo: create extract dir")
		}
		defer os.RemoveAll(dir) //nolint:errcheck

		if err := extractZIP(path, dir); err != nil {
			return nil, eris.Wrap(err, "geo: extract shapefile bundle")
		}
		shpPath, err = findFileByExt(dir, ".shp")
		if err != nil {
			return nil, eris.Wrap(err, "geo: find .shp file")
		}
	}

	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrap(err, "geo: open shapefile")
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.TrimRight(f.String(), "\x00")
	}

	var out []Feature
	for reader.Next() {
		n, shape := reader.Shape()
		props := make(map[string]any, len(names))
		for i, name := range names {
			props[name] = decodeAttribute(reader.Attribute(i))
		}

		var g geom.T
		if p, ok := shape.(*shp.Polygon); ok {
			g = polygonToMultiPolygon(p)
		}
		if g == nil {
			log.Debug("geo: shape without polygon geometry", zap.Int("record", n))
		}
		out = append(out, Feature{Geometry: g, Properties: props})
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrap(err, "geo: read shapefile")
	}

	log.Info("shapefile loaded", zap.String("path", path), zap.Int("features", len(out)))
	return out, nil
}

// decodeAttribute trims DBF padding. Department exports are often
// Windows-1252 encoded; bytes that are not valid UTF-8 are decoded as such.
func decodeAttribute(s string) string {
	s = strings.TrimSpace(strings.TrimRight(s, "\x00"))
	if utf8.ValidString(s) {
		return s
	}
	decoded, err := charmap.Windows1252.NewDecoder().String(s)
	if err != nil {
		return s
	}
	return decoded
}

// polygonToMultiPolygon converts a shapefile polygon to a geom.MultiPolygon.
// Clockwise parts are outer rings. Counter-clockwise parts are holes and go to
// the outer ring that contains them; a hole inside no outer ring is kept as
// an outer ring of its own.
func polygonToMultiPolygon(p *shp.Polygon) geom.T {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	var outers [][][]float64
	var holes [][]float64
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if start < 0 || end > int32(len(p.Points)) || end-start < 4 {
			zap.L().Debug("geo: skipping malformed ring", zap.Int32("part", i))
			continue
		}

		flat := make([]float64, 0, 2*(end-start))
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}
		if xy.SignedArea(geom.XY, flat) < 0 {
			holes = append(holes, flat)
			continue
		}
		outers = append(outers, [][]float64{flat})
	}

	for _, h := range holes {
		owner := -1
		for k := len(outers) - 1; k >= 0; k-- {
			if xy.IsPointInRing(geom.XY, geom.Coord(h[0:2]), outers[k][0]) {
				owner = k
				break
			}
		}
		if owner < 0 {
			outers = append(outers, [][]float64{h})
			continue
		}
		outers[owner] = append(outers[owner], h)
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)
	for k, rings := range outers {
		poly := geom.NewPolygon(geom.XY)
		for _, r := range rings {
			if err := poly.Push(geom.NewLinearRingFlat(geom.XY, r)); err != nil {
				zap.L().Debug("geo: skipping malformed ring", zap.Int("polygon", k), zap.Error(err))
			}
		}
		if poly.NumLinearRings() == 0 {
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("geo: skipping malformed part", zap.Int("polygon", k), zap.Error(err))
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

// extractZIP extracts the regular files of a ZIP archive into destDir,
// flattening directories.
func extractZIP(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return eris.Wrap(err, "open zip")
	}
	defer r.Close() //nolint:errcheck

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		destPath := filepath.Join(destDir, filepath.Base(f.Name))

		rc, err := f.Open()
		if err != nil {
			return eris.Wrapf(err, "open zip entry %s", f.Name)
		}

		outFile, err := os.Create(destPath)
		if err != nil {
			_ = rc.Close()
			return eris.Wrapf(err, "create %s", destPath)
		}

		if _, err := io.Copy(outFile, rc); err != nil {
			_ = outFile.Close()
			_ = rc.Close()
			return eris.Wrapf(err, "extract %s", f.Name)
		}
		_ = outFile.Close()
		_ = rc.Close()
	}

	return nil
}

// findFileByExt finds the first file with the given extension in a directory.
func findFileByExt(dir, ext string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", eris.Wrap(err, "read directory")
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ext) {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", eris.Errorf("no %s file found in %s", ext, dir)
}
