package dxf

import (
	"slices"
	"strings"

	"github.com/sells-group/geo-loader/internal/diag"
	"github.com/sells-group/geo-loader/internal/transform"
)

// Expand flattens a document's block references into absolutely positioned
// entities. Non-INSERT entities pass through under the active transform;
// INSERT entities are resolved against the block registry and expanded
// recursively. Unresolved blocks skip just that branch; a block name
// reappearing on the active expansion path is reported as a circular
// reference and pruned, which guarantees termination for cycles of any
// length.
func Expand(doc *Document, rep *diag.Reporter) []Entity {
	return expandList(doc.Entities, doc, transform.Identity(), nil, rep)
}

func expandList(entities []Entity, doc *Document, m transform.Matrix, path []string, rep *diag.Reporter) []Entity {
	var out []Entity
	for _, e := range entities {
		ins, isInsert := e.(*Insert)
		if !isInsert {
			if t := applyTransform(e, m, rep); t != nil {
				out = append(out, t)
			}
			continue
		}

		block, ok := doc.Blocks[ins.BlockName]
		if !ok {
			rep.Warn(diag.CodeUnresolvedBlock, "block %q referenced by INSERT %s not found", ins.BlockName, ins.Handle)
			continue
		}

		if slices.Contains(path, ins.BlockName) {
			rep.Report(diag.Record{
				Severity: diag.SeverityWarning,
				Code:     diag.CodeCircularReference,
				Message:  "circular block reference detected",
				Context: map[string]any{
					"path": strings.Join(append(slices.Clone(path), ins.BlockName), " -> "),
				},
			})
			continue
		}

		insertT := transform.Translate(ins.Position.X, ins.Position.Y, ins.Position.Z).
			Mul(transform.RotateZ(ins.Rotation)).
			Mul(transform.Scale(ins.Scale.X, ins.Scale.Y, ins.Scale.Z)).
			Mul(transform.Translate(-block.BasePoint.X, -block.BasePoint.Y, -block.BasePoint.Z))

		branch := append(slices.Clone(path), ins.BlockName)

		for row := 0; row < ins.RowCount; row++ {
			for col := 0; col < ins.ColumnCount; col++ {
				cell := insertT
				if row != 0 || col != 0 {
					// Array spacing is measured in block coordinates, so the
					// cell offset composes inside the insert transform.
					cell = insertT.Mul(transform.Translate(
						float64(col)*ins.ColumnSpacing,
						float64(row)*ins.RowSpacing,
						0,
					))
				}
				out = append(out, expandList(block.Entities, doc, m.Mul(cell), branch, rep)...)
			}
		}
	}
	return out
}

// applyTransform returns a transformed copy of the entity, or nil (with a
// diagnostic) when any of its points transforms to a non-finite result.
func applyTransform(e Entity, m transform.Matrix, rep *diag.Reporter) Entity {
	if m == transform.Identity() {
		return e
	}

	drop := func() Entity {
		rep.Error(diag.CodeInvalidGeometry, "%s %s dropped: transform produced non-finite coordinates", e.Kind(), e.Common().Handle)
		return nil
	}

	switch v := e.(type) {
	case *PointEntity:
		c := *v
		p, ok := applyPoint(m, v.Position)
		if !ok {
			return drop()
		}
		c.Position = p
		return &c

	case *Line:
		c := *v
		var ok1, ok2 bool
		c.Start, ok1 = applyPoint(m, v.Start)
		c.End, ok2 = applyPoint(m, v.End)
		if !ok1 || !ok2 {
			return drop()
		}
		return &c

	case *Polyline:
		c := *v
		pts, ok := applyPoints(m, v.Vertices)
		if !ok {
			return drop()
		}
		c.Vertices = pts
		return &c

	case *Circle:
		c := *v
		ctr, ok := applyPoint(m, v.Center)
		if !ok {
			return drop()
		}
		c.Center = ctr
		c.Radius = v.Radius * m.ScaleFactor()
		return &c

	case *Arc:
		c := *v
		ctr, ok := applyPoint(m, v.Center)
		if !ok {
			return drop()
		}
		c.Center = ctr
		c.Radius = v.Radius * m.ScaleFactor()
		c.StartAngle = m.RotateAngle(v.StartAngle)
		c.EndAngle = m.RotateAngle(v.EndAngle)
		return &c

	case *Ellipse:
		c := *v
		ctr, ok := applyPoint(m, v.Center)
		if !ok {
			return drop()
		}
		axis, ok := applyVector(m, v.MajorAxis)
		if !ok {
			return drop()
		}
		c.Center = ctr
		c.MajorAxis = axis
		return &c

	case *Spline:
		c := *v
		pts, ok := applyPoints(m, v.ControlPoints)
		if !ok {
			return drop()
		}
		c.ControlPoints = pts
		return &c

	case *Text:
		c := *v
		p, ok := applyPoint(m, v.Position)
		if !ok {
			return drop()
		}
		c.Position = p
		c.Rotation = m.RotateAngle(v.Rotation)
		c.Height = v.Height * m.ScaleFactor()
		return &c

	case *Hatch:
		c := *v
		rings := make([][]Point, 0, len(v.Rings))
		for _, ring := range v.Rings {
			pts, ok := applyPoints(m, ring)
			if !ok {
				return drop()
			}
			rings = append(rings, pts)
		}
		c.Rings = rings
		return &c

	case *Face:
		c := *v
		pts, ok := applyPoints(m, v.Vertices)
		if !ok {
			return drop()
		}
		c.Vertices = pts
		return &c

	case *Dimension:
		c := *v
		p, ok := applyPoint(m, v.Position)
		if !ok {
			return drop()
		}
		c.Position = p
		return &c

	case *Leader:
		c := *v
		pts, ok := applyPoints(m, v.Vertices)
		if !ok {
			return drop()
		}
		c.Vertices = pts
		return &c

	case *Ray:
		c := *v
		base, ok1 := applyPoint(m, v.Base)
		dir, ok2 := applyVector(m, v.Direction)
		if !ok1 || !ok2 {
			return drop()
		}
		c.Base, c.Direction = base, dir
		return &c

	default:
		return e
	}
}

func applyPoint(m transform.Matrix, p Point) (Point, bool) {
	x, y, z, ok := m.Apply(p.X, p.Y, p.Z)
	return Point{X: x, Y: y, Z: z}, ok
}

// applyVector transforms a direction vector, ignoring the translation part.
func applyVector(m transform.Matrix, v Point) (Point, bool) {
	ox, oy, oz, ok1 := m.Apply(0, 0, 0)
	px, py, pz, ok2 := m.Apply(v.X, v.Y, v.Z)
	if !ok1 || !ok2 {
		return Point{}, false
	}
	return Point{X: px - ox, Y: py - oy, Z: pz - oz}, true
}

func applyPoints(m transform.Matrix, pts []Point) ([]Point, bool) {
	out := make([]Point, len(pts))
	for i, p := range pts {
		tp, ok := applyPoint(m, p)
		if !ok {
			return nil, false
		}
		out[i] = tp
	}
	return out, true
}
