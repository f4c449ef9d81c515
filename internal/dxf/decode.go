package dxf

import (
	"strconv"
	"strings"

	"github.com/sells-group/geo-loader/internal/diag"
)

// decodeAll splits an entity tag run into per-entity chunks and decodes each.
// One bad entity never aborts the run: failed decodes are reported and
// dropped.
func decodeAll(tags []Tag, rep *diag.Reporter) []Entity {
	chunks := splitChunks(tags)
	entities := make([]Entity, 0, len(chunks))

	for i := 0; i < len(chunks); i++ {
		chunk := chunks[i]
		typeName := chunk[0].Value

		// Legacy POLYLINE carries its vertices as trailing VERTEX
		// entities terminated by SEQEND.
		if typeName == "POLYLINE" {
			var vertexChunks [][]Tag
			for i+1 < len(chunks) {
				next := chunks[i+1][0].Value
				if next == "VERTEX" {
					vertexChunks = append(vertexChunks, chunks[i+1])
					i++
					continue
				}
				if next == "SEQEND" {
					i++
				}
				break
			}
			if e := decodePolyline(chunk, vertexChunks, rep); e != nil {
				entities = append(entities, e)
			}
			continue
		}

		if e := decodeEntity(chunk, rep); e != nil {
			entities = append(entities, e)
		}
	}
	return entities
}

// splitChunks groups tags into runs starting at each (0, TYPE) marker.
func splitChunks(tags []Tag) [][]Tag {
	var chunks [][]Tag
	start := -1
	for i, t := range tags {
		if t.Code == 0 {
			if start >= 0 {
				chunks = append(chunks, tags[start:i])
			}
			start = i
		}
	}
	if start >= 0 {
		chunks = append(chunks, tags[start:])
	}
	return chunks
}

// decodeEntity decodes one entity chunk. Returns nil (with a diagnostic)
// when the type is unsupported or a required field is missing or invalid.
func decodeEntity(chunk []Tag, rep *diag.Reporter) Entity {
	switch chunk[0].Value {
	case "POINT":
		return decodePoint(chunk, rep)
	case "LINE":
		return decodeLine(chunk, rep)
	case "LWPOLYLINE":
		return decodeLwpolyline(chunk, rep)
	case "CIRCLE":
		return decodeCircle(chunk, rep)
	case "ARC":
		return decodeArc(chunk, rep)
	case "ELLIPSE":
		return decodeEllipse(chunk, rep)
	case "SPLINE":
		return decodeSpline(chunk, rep)
	case "INSERT":
		return decodeInsert(chunk, rep)
	case "TEXT", "MTEXT":
		return decodeText(chunk, rep)
	case "HATCH":
		return decodeHatch(chunk, rep)
	case "3DFACE", "SOLID":
		return decodeFace(chunk, rep)
	case "DIMENSION":
		return decodeDimension(chunk, rep)
	case "LEADER", "MLEADER", "MULTILEADER":
		return decodeLeader(chunk, rep)
	case "RAY", "XLINE":
		return decodeRay(chunk, rep)
	default:
		rep.Warn(diag.CodeUnsupportedEntity, "unsupported entity type %s", chunk[0].Value)
		return nil
	}
}

// parseCommon extracts the attributes shared by all entity types.
func parseCommon(chunk []Tag) Attributes {
	attrs := Attributes{
		Layer:     "0",
		Color:     256, // by layer
		Visible:   true,
		Extrusion: Point{Z: 1},
	}
	for _, t := range chunk {
		switch t.Code {
		case 5:
			attrs.Handle = t.Value
		case 8:
			if t.Value != "" {
				attrs.Layer = t.Value
			}
		case 62:
			attrs.Color, _ = strconv.Atoi(t.Value)
		case 6:
			attrs.LineType = t.Value
		case 370:
			attrs.LineWeight, _ = strconv.Atoi(t.Value)
		case 38:
			attrs.Elevation = number(t.Value)
		case 39:
			attrs.Thickness = number(t.Value)
		case 60:
			attrs.Visible = t.Value != "1"
		case 210:
			attrs.Extrusion.X = number(t.Value)
		case 220:
			attrs.Extrusion.Y = number(t.Value)
		case 230:
			attrs.Extrusion.Z = number(t.Value)
		}
	}
	return attrs
}

func number(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

// point10 collects the first 10/20/30 triple in a chunk.
func point10(chunk []Tag) (Point, bool) {
	var p Point
	var haveX, haveY bool
	for _, t := range chunk {
		switch t.Code {
		case 10:
			if !haveX {
				p.X, haveX = number(t.Value), true
			}
		case 20:
			if !haveY {
				p.Y, haveY = number(t.Value), true
			}
		case 30:
			p.Z = number(t.Value)
		}
	}
	return p, haveX && haveY
}

// pointSeries collects repeated triples for the given X/Y/Z codes, pairing
// them in order of appearance.
func pointSeries(chunk []Tag, xCode, yCode, zCode int) []Point {
	var pts []Point
	var cur *Point
	for _, t := range chunk {
		switch t.Code {
		case xCode:
			pts = append(pts, Point{X: number(t.Value)})
			cur = &pts[len(pts)-1]
		case yCode:
			if cur != nil {
				cur.Y = number(t.Value)
			}
		case zCode:
			if cur != nil {
				cur.Z = number(t.Value)
			}
		}
	}
	return pts
}

func decodePoint(chunk []Tag, rep *diag.Reporter) Entity {
	pos, ok := point10(chunk)
	if !ok || !pos.Finite() {
		rep.Error(diag.CodeInvalidPosition, "POINT has no valid position")
		return nil
	}
	return &PointEntity{Attributes: parseCommon(chunk), Position: pos}
}

func decodeLine(chunk []Tag, rep *diag.Reporter) Entity {
	start, okS := point10(chunk)
	ends := pointSeries(chunk, 11, 21, 31)
	if !okS || len(ends) == 0 || !start.Finite() || !ends[0].Finite() {
		rep.Error(diag.CodeInvalidPosition, "LINE is missing a finite start or end point")
		return nil
	}
	return &Line{Attributes: parseCommon(chunk), Start: start, End: ends[0]}
}

func decodeLwpolyline(chunk []Tag, rep *diag.Reporter) Entity {
	vertices := pointSeries(chunk, 10, 20, 30)
	vertices = finiteOnly(vertices)
	if len(vertices) < 2 {
		rep.Error(diag.CodeInvalidGeometry, "LWPOLYLINE has fewer than 2 valid vertices")
		return nil
	}
	return &Polyline{
		Attributes: parseCommon(chunk),
		Vertices:   vertices,
		Closed:     flagSet(chunk, 70, 1),
	}
}

func decodePolyline(header []Tag, vertexChunks [][]Tag, rep *diag.Reporter) Entity {
	var vertices []Point
	for _, vc := range vertexChunks {
		if p, ok := point10(vc); ok && p.Finite() {
			vertices = append(vertices, p)
		}
	}
	// Tolerate writers that inline vertex triples on the POLYLINE itself.
	if len(vertices) == 0 {
		vertices = finiteOnly(pointSeries(header, 10, 20, 30))
	}
	if len(vertices) < 2 {
		rep.Error(diag.CodeInvalidGeometry, "POLYLINE has fewer than 2 valid vertices")
		return nil
	}
	return &Polyline{
		Attributes: parseCommon(header),
		Vertices:   vertices,
		Closed:     flagSet(header, 70, 1),
	}
}

func decodeCircle(chunk []Tag, rep *diag.Reporter) Entity {
	center, ok := point10(chunk)
	radius := value(chunk, 40)
	if !ok || !center.Finite() {
		rep.Error(diag.CodeInvalidPosition, "CIRCLE has no valid center")
		return nil
	}
	if !(radius > 0) || !isFinite(radius) {
		rep.Error(diag.CodeInvalidGeometry, "CIRCLE radius %v is not positive", radius)
		return nil
	}
	return &Circle{Attributes: parseCommon(chunk), Center: center, Radius: radius}
}

func decodeArc(chunk []Tag, rep *diag.Reporter) Entity {
	center, ok := point10(chunk)
	radius := value(chunk, 40)
	if !ok || !center.Finite() {
		rep.Error(diag.CodeInvalidPosition, "ARC has no valid center")
		return nil
	}
	if !(radius > 0) || !isFinite(radius) {
		rep.Error(diag.CodeInvalidGeometry, "ARC radius %v is not positive", radius)
		return nil
	}
	return &Arc{
		Attributes: parseCommon(chunk),
		Center:     center,
		Radius:     radius,
		StartAngle: value(chunk, 50),
		EndAngle:   value(chunk, 51),
	}
}

func decodeEllipse(chunk []Tag, rep *diag.Reporter) Entity {
	center, okC := point10(chunk)
	major := pointSeries(chunk, 11, 21, 31)
	ratio := value(chunk, 40)
	if !okC || !center.Finite() || len(major) == 0 || !major[0].Finite() {
		rep.Error(diag.CodeInvalidPosition, "ELLIPSE has no valid center or major axis")
		return nil
	}
	if !(ratio > 0) || !isFinite(ratio) {
		rep.Error(diag.CodeInvalidGeometry, "ELLIPSE axis ratio %v is not positive", ratio)
		return nil
	}
	start, end := value(chunk, 41), value(chunk, 42)
	if start == 0 && end == 0 {
		end = 2 * 3.141592653589793
	}
	return &Ellipse{
		Attributes: parseCommon(chunk),
		Center:     center,
		MajorAxis:  major[0],
		AxisRatio:  ratio,
		StartAngle: start,
		EndAngle:   end,
	}
}

func decodeSpline(chunk []Tag, rep *diag.Reporter) Entity {
	control := finiteOnly(pointSeries(chunk, 10, 20, 30))
	if len(control) < 2 {
		rep.Error(diag.CodeInvalidGeometry, "SPLINE has fewer than 2 control points")
		return nil
	}
	degree := intValue(chunk, 71)
	if degree <= 0 {
		degree = 3
	}
	return &Spline{
		Attributes:    parseCommon(chunk),
		ControlPoints: control,
		Degree:        degree,
		Closed:        flagSet(chunk, 70, 1),
	}
}

func decodeInsert(chunk []Tag, rep *diag.Reporter) Entity {
	pos, ok := point10(chunk)
	name := stringValue(chunk, 2)
	if !ok || !pos.Finite() {
		rep.Error(diag.CodeInvalidPosition, "INSERT %q has no valid position", name)
		return nil
	}
	if name == "" {
		rep.Error(diag.CodeInvalidGeometry, "INSERT has no block name")
		return nil
	}

	scale := Point{X: 1, Y: 1, Z: 1}
	if v := value(chunk, 41); v != 0 {
		scale.X = v
	}
	if v := value(chunk, 42); v != 0 {
		scale.Y = v
	}
	if v := value(chunk, 43); v != 0 {
		scale.Z = v
	}

	cols, rows := intValue(chunk, 70), intValue(chunk, 71)
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}

	return &Insert{
		Attributes:    parseCommon(chunk),
		BlockName:     name,
		Position:      pos,
		Scale:         scale,
		Rotation:      value(chunk, 50),
		ColumnCount:   cols,
		RowCount:      rows,
		ColumnSpacing: value(chunk, 44),
		RowSpacing:    value(chunk, 45),
	}
}

func decodeText(chunk []Tag, rep *diag.Reporter) Entity {
	mtext := chunk[0].Value == "MTEXT"
	pos, ok := point10(chunk)
	if !ok || !pos.Finite() {
		rep.Error(diag.CodeInvalidPosition, "%s has no valid position", chunk[0].Value)
		return nil
	}

	// MTEXT splits long strings across 3-coded chunks followed by a final
	// 1-coded tail.
	var sb strings.Builder
	for _, t := range chunk {
		if t.Code == 3 {
			sb.WriteString(t.Value)
		}
	}
	sb.WriteString(stringValue(chunk, 1))
	text := sb.String()
	if text == "" {
		rep.Error(diag.CodeInvalidGeometry, "%s has no text value", chunk[0].Value)
		return nil
	}

	return &Text{
		Attributes: parseCommon(chunk),
		Position:   pos,
		Value:      text,
		Height:     value(chunk, 40),
		Rotation:   value(chunk, 50),
		Width:      value(chunk, 41),
		Style:      stringValue(chunk, 7),
		MText:      mtext,
	}
}

// decodeHatch reads boundary rings from a HATCH. Loop starts are marked by
// 92-coded loop type flags; each loop's 10/20 pairs form one ring. Rings with
// fewer than 3 points are dropped.
func decodeHatch(chunk []Tag, rep *diag.Reporter) Entity {
	pattern := stringValue(chunk, 2)
	if pattern == "" {
		rep.Error(diag.CodeInvalidGeometry, "HATCH has no pattern name")
		return nil
	}

	var rings [][]Point
	var cur []Point
	var inLoop bool
	var curX float64
	var haveX bool

	flush := func() {
		if len(cur) >= 3 {
			rings = append(rings, cur)
		}
		cur = nil
		haveX = false
	}

	for _, t := range chunk {
		switch t.Code {
		case 92: // loop type flag opens a new boundary loop
			flush()
			inLoop = true
		case 75: // hatch style ends the boundary data
			flush()
			inLoop = false
		case 10:
			if inLoop {
				curX, haveX = number(t.Value), true
			}
		case 20:
			if inLoop && haveX {
				p := Point{X: curX, Y: number(t.Value)}
				if p.Finite() {
					cur = append(cur, p)
				}
				haveX = false
			}
		}
	}
	flush()

	if len(rings) == 0 {
		rep.Error(diag.CodeInvalidGeometry, "HATCH %q has no boundary ring with 3 or more points", pattern)
		return nil
	}

	return &Hatch{
		Attributes: parseCommon(chunk),
		Pattern:    pattern,
		Rings:      rings,
		Solid:      flagSet(chunk, 70, 1),
	}
}

func decodeFace(chunk []Tag, rep *diag.Reporter) Entity {
	kind := KindFace
	if chunk[0].Value == "SOLID" {
		kind = KindSolid
	}

	var vertices []Point
	for _, codes := range [][3]int{{10, 20, 30}, {11, 21, 31}, {12, 22, 32}, {13, 23, 33}} {
		pts := pointSeries(chunk, codes[0], codes[1], codes[2])
		if len(pts) > 0 && pts[0].Finite() {
			vertices = append(vertices, pts[0])
		}
	}

	// The fourth corner may repeat the third for triangles.
	if len(vertices) == 4 && vertices[3] == vertices[2] {
		vertices = vertices[:3]
	}
	if len(vertices) < 3 {
		rep.Error(diag.CodeInvalidGeometry, "%s has fewer than 3 valid vertices", chunk[0].Value)
		return nil
	}

	return &Face{Attributes: parseCommon(chunk), FaceKind: kind, Vertices: vertices}
}

func decodeDimension(chunk []Tag, rep *diag.Reporter) Entity {
	pos, ok := point10(chunk)
	if !ok || !pos.Finite() {
		rep.Error(diag.CodeInvalidPosition, "DIMENSION has no valid definition point")
		return nil
	}
	return &Dimension{
		Attributes: parseCommon(chunk),
		Position:   pos,
		Text:       stringValue(chunk, 1),
	}
}

func decodeLeader(chunk []Tag, rep *diag.Reporter) Entity {
	vertices := finiteOnly(pointSeries(chunk, 10, 20, 30))
	if len(vertices) < 2 {
		rep.Error(diag.CodeInvalidGeometry, "%s has fewer than 2 leader vertices", chunk[0].Value)
		return nil
	}
	return &Leader{Attributes: parseCommon(chunk), Vertices: vertices}
}

func decodeRay(chunk []Tag, rep *diag.Reporter) Entity {
	kind := KindRay
	if chunk[0].Value == "XLINE" {
		kind = KindXLine
	}
	base, okB := point10(chunk)
	dirs := pointSeries(chunk, 11, 21, 31)
	if !okB || !base.Finite() || len(dirs) == 0 || !dirs[0].Finite() {
		rep.Error(diag.CodeInvalidPosition, "%s has no valid base point or direction", chunk[0].Value)
		return nil
	}
	return &Ray{Attributes: parseCommon(chunk), RayKind: kind, Base: base, Direction: dirs[0]}
}

func finiteOnly(pts []Point) []Point {
	out := pts[:0]
	for _, p := range pts {
		if p.Finite() {
			out = append(out, p)
		}
	}
	return out
}

func value(chunk []Tag, code int) float64 {
	for _, t := range chunk {
		if t.Code == code {
			return number(t.Value)
		}
	}
	return 0
}

func intValue(chunk []Tag, code int) int {
	for _, t := range chunk {
		if t.Code == code {
			n, _ := strconv.Atoi(t.Value)
			return n
		}
	}
	return 0
}

func stringValue(chunk []Tag, code int) string {
	for _, t := range chunk {
		if t.Code == code {
			return t.Value
		}
	}
	return ""
}

func flagSet(chunk []Tag, code, bit int) bool {
	return intValue(chunk, code)&bit != 0
}
