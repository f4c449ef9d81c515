// Package dxf parses ASCII DXF content into a typed document model: group
// code scanning, section extraction, entity decoding and block reference
// expansion. Binary DXF is not supported.
package dxf

import "math"

// Point is a 3D coordinate. Z defaults to 0 for 2D entities.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Finite reports whether the X and Y components are finite numbers.
func (p Point) Finite() bool {
	return isFinite(p.X) && isFinite(p.Y)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Kind identifies an entity variant.
type Kind string

const (
	KindPoint     Kind = "POINT"
	KindLine      Kind = "LINE"
	KindPolyline  Kind = "POLYLINE"
	KindCircle    Kind = "CIRCLE"
	KindArc       Kind = "ARC"
	KindEllipse   Kind = "ELLIPSE"
	KindSpline    Kind = "SPLINE"
	KindInsert    Kind = "INSERT"
	KindText      Kind = "TEXT"
	KindHatch     Kind = "HATCH"
	KindFace      Kind = "3DFACE"
	KindSolid     Kind = "SOLID"
	KindDimension Kind = "DIMENSION"
	KindLeader    Kind = "LEADER"
	KindRay       Kind = "RAY"
	KindXLine     Kind = "XLINE"
)

// Attributes are shared by all entity variants. Handle is an opaque
// identifier and not guaranteed unique across files.
type Attributes struct {
	Layer      string
	Handle     string
	Color      int
	LineType   string
	LineWeight int
	Elevation  float64
	Thickness  float64
	Visible    bool
	Extrusion  Point
}

// Entity is the closed tagged union over DXF entity variants. Only types in
// this package implement it.
type Entity interface {
	Kind() Kind
	Common() *Attributes
}

// PointEntity is a single POINT.
type PointEntity struct {
	Attributes
	Position Point
}

// Line is a LINE segment.
type Line struct {
	Attributes
	Start Point
	End   Point
}

// Polyline covers POLYLINE and LWPOLYLINE.
type Polyline struct {
	Attributes
	Vertices []Point
	Closed   bool
}

// Circle is a full CIRCLE.
type Circle struct {
	Attributes
	Center Point
	Radius float64
}

// Arc is a circular ARC. Angles are in degrees, counterclockwise from east.
type Arc struct {
	Attributes
	Center     Point
	Radius     float64
	StartAngle float64
	EndAngle   float64
}

// Ellipse is an ELLIPSE. MajorAxis is the endpoint of the major axis relative
// to the center; angles are parameters in radians.
type Ellipse struct {
	Attributes
	Center     Point
	MajorAxis  Point
	AxisRatio  float64
	StartAngle float64
	EndAngle   float64
}

// Spline is a SPLINE linearized through its control points. True B-spline
// evaluation is out of scope.
type Spline struct {
	Attributes
	ControlPoints []Point
	Degree        int
	Closed        bool
}

// Insert is a block reference, optionally repeated in a row/column array.
type Insert struct {
	Attributes
	BlockName     string
	Position      Point
	Scale         Point
	Rotation      float64
	ColumnCount   int
	RowCount      int
	ColumnSpacing float64
	RowSpacing    float64
}

// Text covers TEXT and MTEXT.
type Text struct {
	Attributes
	Position Point
	Value    string
	Height   float64
	Rotation float64
	Width    float64
	Style    string
	MText    bool
}

// Hatch is a HATCH with one or more boundary rings.
type Hatch struct {
	Attributes
	Pattern string
	Rings   [][]Point
	Solid   bool
}

// Face covers 3DFACE and SOLID: 3 or 4 vertices.
type Face struct {
	Attributes
	FaceKind Kind
	Vertices []Point
}

// Dimension is reduced to its definition point plus measurement text.
type Dimension struct {
	Attributes
	Position Point
	Text     string
}

// Leader covers LEADER and MLEADER via their leader-line vertices.
type Leader struct {
	Attributes
	Vertices []Point
}

// Ray covers RAY and XLINE: a base point and a unit direction.
type Ray struct {
	Attributes
	RayKind   Kind
	Base      Point
	Direction Point
}

func (e *PointEntity) Kind() Kind { return KindPoint }
func (e *Line) Kind() Kind        { return KindLine }
func (e *Polyline) Kind() Kind    { return KindPolyline }
func (e *Circle) Kind() Kind      { return KindCircle }
func (e *Arc) Kind() Kind         { return KindArc }
func (e *Ellipse) Kind() Kind     { return KindEllipse }
func (e *Spline) Kind() Kind      { return KindSpline }
func (e *Insert) Kind() Kind      { return KindInsert }
func (e *Text) Kind() Kind        { return KindText }
func (e *Hatch) Kind() Kind       { return KindHatch }
func (e *Face) Kind() Kind        { return e.FaceKind }
func (e *Dimension) Kind() Kind   { return KindDimension }
func (e *Leader) Kind() Kind      { return KindLeader }
func (e *Ray) Kind() Kind         { return e.RayKind }

func (a *Attributes) Common() *Attributes { return a }

// Block is a named group of entities instanced by INSERT references.
// Immutable once parsed.
type Block struct {
	Name      string
	BasePoint Point
	Layer     string
	Entities  []Entity
}

// Layer is an entry from the LAYER table.
type Layer struct {
	Name       string
	Color      int
	LineType   string
	LineWeight int
	Frozen     bool
	Locked     bool
	Off        bool
}

// Header carries the recognized HEADER section variables.
type Header struct {
	ExtMin   *Point
	ExtMax   *Point
	InsUnits int
	CodePage string
}

// Document aggregates the parsed DXF structure.
type Document struct {
	Header   Header
	Layers   map[string]*Layer
	Blocks   map[string]*Block
	Entities []Entity
}
