// Package shapefile imports ESRI shapefiles into the same feature stream the
// DXF path produces, so downstream reprojection and indexing are shared.
package shapefile

import (
	"fmt"
	"math"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/geo-loader/internal/diag"
)

// maxParts bounds NumParts/NumPoints on complex shapes. Values beyond this are
// treated as corruption rather than data.
const maxParts = 1_000_000

// Result carries the imported features plus skip accounting.
type Result struct {
	Features []*geojson.Feature
	Imported int
	Skipped  int
}

// Read opens a shapefile and converts every record to a GeoJSON feature. DBF
// attributes become feature properties. Records with corrupt or unsupported
// geometry are skipped and reported, not fatal.
func Read(shpPath string, reporter *diag.Reporter) (*Result, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "shapefile: open %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	if err := validateBBox(reader.BBox()); err != nil {
		return nil, err
	}

	// Build field name list once; go-shp pads names with NULs.
	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.TrimRight(f.String(), "\x00")
	}

	res := &Result{}
	record := 0
	for reader.Next() {
		record++
		_, shape := reader.Shape()

		g, skipReason := convertShape(shape)
		if g == nil {
			res.Skipped++
			reporter.Report(diag.Record{
				Severity: diag.SeverityWarning,
				Code:     diag.CodeInvalidGeometry,
				Message:  "skipped shapefile record",
				Context:  map[string]any{"record": record, "reason": skipReason},
			})
			continue
		}

		props := map[string]any{"type": shapeTypeName(shape)}
		for i, name := range names {
			val := strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
			if val != "" {
				props[strings.ToLower(name)] = val
			}
		}

		res.Features = append(res.Features, &geojson.Feature{
			ID:         fmt.Sprintf("shp-%d", record),
			Geometry:   g,
			Properties: props,
		})
		res.Imported++
	}

	if res.Skipped > 0 {
		zap.L().Debug("shapefile: skipped records",
			zap.String("path", shpPath),
			zap.Int("skipped", res.Skipped),
		)
	}
	return res, nil
}

func validateBBox(box shp.Box) error {
	for _, v := range []float64{box.MinX, box.MinY, box.MaxX, box.MaxY} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return eris.New("shapefile: invalid bounding box coordinates")
		}
	}
	return nil
}

// convertShape maps a go-shp shape to a go-geom geometry. Returns nil plus a
// reason string when the record cannot be used.
func convertShape(shape shp.Shape) (geom.T, string) {
	switch s := shape.(type) {
	case *shp.Point:
		if !finite(s.X, s.Y) {
			return nil, "non-finite point coordinates"
		}
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y}), ""

	case *shp.PolyLine:
		parts, reason := splitParts(s.NumParts, s.Parts, s.Points)
		if reason != "" {
			return nil, reason
		}
		mls := geom.NewMultiLineString(geom.XY)
		for _, flat := range parts {
			if err := mls.Push(geom.NewLineStringFlat(geom.XY, flat)); err != nil {
				return nil, "malformed linestring part"
			}
		}
		return mls, ""

	case *shp.Polygon:
		parts, reason := splitParts(s.NumParts, s.Parts, s.Points)
		if reason != "" {
			return nil, reason
		}
		mp := geom.NewMultiPolygon(geom.XY)
		for _, flat := range parts {
			flat = closeRing(flat)
			poly := geom.NewPolygon(geom.XY)
			if err := poly.Push(geom.NewLinearRingFlat(geom.XY, flat)); err != nil {
				return nil, "malformed polygon ring"
			}
			if err := mp.Push(poly); err != nil {
				return nil, "malformed polygon part"
			}
		}
		return mp, ""

	case nil:
		return nil, "nil shape"

	default:
		return nil, "unsupported shape type"
	}
}

// splitParts slices the point array by the part index table, validating the
// counts and ranges the way a defensive reader must for untrusted files.
func splitParts(numParts int32, partIdx []int32, points []shp.Point) ([][]float64, string) {
	if numParts <= 0 || numParts > maxParts || len(points) == 0 || len(points) > maxParts {
		return nil, "unreasonable part or point count"
	}
	if int(numParts) != len(partIdx) {
		return nil, "part table length mismatch"
	}

	var parts [][]float64
	for i := int32(0); i < numParts; i++ {
		start := partIdx[i]
		end := int32(len(points))
		if i+1 < numParts {
			end = partIdx[i+1]
		}
		if start < 0 || start >= int32(len(points)) || start >= end || end > int32(len(points)) {
			return nil, "part index out of bounds"
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			if !finite(points[j].X, points[j].Y) {
				return nil, "non-finite coordinates in part"
			}
			flat = append(flat, points[j].X, points[j].Y)
		}
		parts = append(parts, flat)
	}
	return parts, ""
}

// closeRing appends the first vertex when the ring is not already closed.
func closeRing(flat []float64) []float64 {
	n := len(flat)
	if n < 4 {
		return flat
	}
	if flat[0] == flat[n-2] && flat[1] == flat[n-1] {
		return flat
	}
	return append(flat, flat[0], flat[1])
}

func shapeTypeName(shape shp.Shape) string {
	switch shape.(type) {
	case *shp.Point:
		return "point"
	case *shp.PolyLine:
		return "polyline"
	case *shp.Polygon:
		return "polygon"
	default:
		return "unknown"
	}
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
