// Package geometry converts flattened DXF entities into GeoJSON features
// backed by go-geom geometries.
package geometry

import (
	"math"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/geo-loader/internal/diag"
	"github.com/sells-group/geo-loader/internal/dxf"
)

// arcSegments is the fixed tessellation resolution for circles, arcs and
// ellipses: 32 segments, 33 points inclusive.
const arcSegments = 32

// Convert maps one decoded, block-expanded entity to a GeoJSON feature.
// Returns nil with a CONVERSION_ERROR diagnostic when any computed coordinate
// is non-finite; coordinates are never clamped.
func Convert(e dxf.Entity, rep *diag.Reporter) *geojson.Feature {
	g := convertGeometry(e)
	if g == nil {
		rep.Error(diag.CodeConversionError, "%s %s could not be converted", e.Kind(), e.Common().Handle)
		return nil
	}
	if !finiteCoords(g.FlatCoords()) {
		rep.Error(diag.CodeConversionError, "%s %s produced non-finite coordinates", e.Kind(), e.Common().Handle)
		return nil
	}
	return &geojson.Feature{
		ID:         e.Common().Handle,
		Geometry:   g,
		Properties: properties(e),
	}
}

func convertGeometry(e dxf.Entity) geom.T {
	switch v := e.(type) {
	case *dxf.PointEntity:
		return point(v.Position)

	case *dxf.Text:
		return point(v.Position)

	case *dxf.Insert:
		// Unexpanded references degrade to a marker at the insertion point.
		return point(v.Position)

	case *dxf.Dimension:
		return point(v.Position)

	case *dxf.Line:
		return lineString([]dxf.Point{v.Start, v.End})

	case *dxf.Polyline:
		if v.Closed {
			return polygon(v.Vertices)
		}
		return lineString(v.Vertices)

	case *dxf.Spline:
		if v.Closed {
			return polygon(v.ControlPoints)
		}
		return lineString(v.ControlPoints)

	case *dxf.Leader:
		return lineString(v.Vertices)

	case *dxf.Ray:
		// Construction lines have no finite extent; render a unit segment
		// along the direction.
		return lineString([]dxf.Point{v.Base, {
			X: v.Base.X + v.Direction.X,
			Y: v.Base.Y + v.Direction.Y,
			Z: v.Base.Z + v.Direction.Z,
		}})

	case *dxf.Circle:
		return polygon(tessellateArc(v.Center, v.Radius, 0, 360, arcSegments, false))

	case *dxf.Arc:
		return lineString(tessellateArc(v.Center, v.Radius, v.StartAngle, v.EndAngle, arcSegments, true))

	case *dxf.Ellipse:
		pts, closed := tessellateEllipse(v)
		if closed {
			return polygon(pts)
		}
		return lineString(pts)

	case *dxf.Face:
		return polygon(v.Vertices)

	case *dxf.Hatch:
		if len(v.Rings) == 1 {
			return polygon(v.Rings[0])
		}
		return multiPolygon(v.Rings)

	default:
		return nil
	}
}

func point(p dxf.Point) geom.T {
	return geom.NewPointFlat(geom.XY, []float64{p.X, p.Y})
}

func lineString(pts []dxf.Point) geom.T {
	if len(pts) < 2 {
		return nil
	}
	return geom.NewLineStringFlat(geom.XY, flatten(pts))
}

// polygon builds a single-ring polygon, explicitly closing the ring when the
// first and last coordinates differ.
func polygon(pts []dxf.Point) geom.T {
	if len(pts) < 3 {
		return nil
	}
	flat := flatten(closeRing(pts))
	return geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)})
}

func multiPolygon(rings [][]dxf.Point) geom.T {
	mp := geom.NewMultiPolygon(geom.XY)
	for _, ring := range rings {
		p := polygon(ring)
		if p == nil {
			continue
		}
		if err := mp.Push(p.(*geom.Polygon)); err != nil {
			return nil
		}
	}
	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

func closeRing(pts []dxf.Point) []dxf.Point {
	first, last := pts[0], pts[len(pts)-1]
	if first.X == last.X && first.Y == last.Y {
		return pts
	}
	out := make([]dxf.Point, len(pts)+1)
	copy(out, pts)
	out[len(pts)] = first
	return out
}

func flatten(pts []dxf.Point) []float64 {
	flat := make([]float64, 0, len(pts)*2)
	for _, p := range pts {
		flat = append(flat, p.X, p.Y)
	}
	return flat
}

// tessellateArc samples a circular arc at a fixed segment count. Angles are
// in degrees; a sweep with end <= start gains a full turn. When inclusive is
// false the final point is the exact first point, so a full circle closes
// bit-identically.
func tessellateArc(center dxf.Point, radius, start, end float64, segments int, inclusive bool) []dxf.Point {
	if end <= start {
		end += 360
	}
	sweep := end - start

	n := segments
	if inclusive {
		n = segments + 1
	}
	pts := make([]dxf.Point, 0, segments+1)
	for i := 0; i < n; i++ {
		angle := (start + sweep*float64(i)/float64(segments)) * math.Pi / 180
		pts = append(pts, dxf.Point{
			X: center.X + radius*math.Cos(angle),
			Y: center.Y + radius*math.Sin(angle),
		})
	}
	if !inclusive {
		pts = append(pts, pts[0])
	}
	return pts
}

// tessellateEllipse samples an ellipse through its parametric range. Returns
// the sampled points and whether the span covers the full ellipse.
func tessellateEllipse(e *dxf.Ellipse) ([]dxf.Point, bool) {
	start, end := e.StartAngle, e.EndAngle
	if end <= start {
		end += 2 * math.Pi
	}
	span := end - start
	closed := span >= 2*math.Pi-1e-9

	// Minor axis is the major axis rotated a quarter turn, scaled by the
	// axis ratio.
	majX, majY := e.MajorAxis.X, e.MajorAxis.Y
	minX, minY := -majY*e.AxisRatio, majX*e.AxisRatio

	n := arcSegments
	if !closed {
		n = arcSegments + 1
	}
	pts := make([]dxf.Point, 0, arcSegments+1)
	for i := 0; i < n; i++ {
		t := start + span*float64(i)/float64(arcSegments)
		cos, sin := math.Cos(t), math.Sin(t)
		pts = append(pts, dxf.Point{
			X: e.Center.X + cos*majX + sin*minX,
			Y: e.Center.Y + cos*majY + sin*minY,
		})
	}
	if closed {
		pts = append(pts, pts[0])
	}
	return pts, closed
}

func finiteCoords(flat []float64) bool {
	for _, f := range flat {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
