package dxf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/geo-loader/internal/diag"
)

func docWithBlock(name string, blockEntities []Entity, top ...Entity) *Document {
	return &Document{
		Layers: map[string]*Layer{"0": {Name: "0"}},
		Blocks: map[string]*Block{
			name: {Name: name, Entities: blockEntities},
		},
		Entities: top,
	}
}

func insertOf(block string, x, y float64) *Insert {
	return &Insert{
		Attributes:  Attributes{Layer: "0"},
		BlockName:   block,
		Position:    Point{X: x, Y: y},
		Scale:       Point{X: 1, Y: 1, Z: 1},
		ColumnCount: 1,
		RowCount:    1,
	}
}

func TestExpand_PassthroughWithoutInserts(t *testing.T) {
	doc := &Document{
		Layers:   map[string]*Layer{"0": {Name: "0"}},
		Blocks:   map[string]*Block{},
		Entities: []Entity{&PointEntity{Position: Point{X: 1, Y: 2}}},
	}
	out := Expand(doc, diag.NewReporter())
	require.Len(t, out, 1)
	assert.Equal(t, Point{1, 2, 0}, out[0].(*PointEntity).Position)
}

func TestExpand_TranslatesBlockEntities(t *testing.T) {
	doc := docWithBlock("B",
		[]Entity{&PointEntity{Position: Point{X: 1, Y: 1}}},
		insertOf("B", 10, 20),
	)
	out := Expand(doc, diag.NewReporter())
	require.Len(t, out, 1)
	assert.Equal(t, Point{11, 21, 0}, out[0].(*PointEntity).Position)
}

func TestExpand_ScaleRotateTranslateOrder(t *testing.T) {
	ins := insertOf("B", 10, 0)
	ins.Rotation = 90
	ins.Scale = Point{X: 2, Y: 2, Z: 2}
	doc := docWithBlock("B",
		[]Entity{&PointEntity{Position: Point{X: 1, Y: 0}}},
		ins,
	)
	out := Expand(doc, diag.NewReporter())
	require.Len(t, out, 1)
	// scale (2,0) -> rotate (0,2) -> translate (10,2)
	p := out[0].(*PointEntity).Position
	assert.InDelta(t, 10, p.X, 1e-9)
	assert.InDelta(t, 2, p.Y, 1e-9)
}

func TestExpand_BasePointSubtracted(t *testing.T) {
	doc := docWithBlock("B",
		[]Entity{&PointEntity{Position: Point{X: 5, Y: 5}}},
		insertOf("B", 100, 100),
	)
	doc.Blocks["B"].BasePoint = Point{X: 5, Y: 5}
	out := Expand(doc, diag.NewReporter())
	require.Len(t, out, 1)
	assert.Equal(t, Point{100, 100, 0}, out[0].(*PointEntity).Position)
}

func TestExpand_ArrayRepeats(t *testing.T) {
	ins := insertOf("B", 0, 0)
	ins.ColumnCount = 3
	ins.RowCount = 2
	ins.ColumnSpacing = 10
	ins.RowSpacing = 5
	doc := docWithBlock("B",
		[]Entity{&PointEntity{Position: Point{}}},
		ins,
	)
	out := Expand(doc, diag.NewReporter())
	require.Len(t, out, 6)

	var xs, ys []float64
	for _, e := range out {
		p := e.(*PointEntity).Position
		xs = append(xs, p.X)
		ys = append(ys, p.Y)
	}
	assert.Contains(t, xs, 20.0)
	assert.Contains(t, ys, 5.0)
}

func TestExpand_MissingBlockSkipsBranch(t *testing.T) {
	rep := diag.NewReporter()
	doc := docWithBlock("B",
		[]Entity{&PointEntity{Position: Point{}}},
		insertOf("NOPE", 0, 0),
		&PointEntity{Position: Point{X: 7, Y: 7}},
	)
	out := Expand(doc, rep)
	require.Len(t, out, 1)
	assert.Equal(t, 1, rep.CountCode(diag.CodeUnresolvedBlock))
}

func TestExpand_SelfReferenceTerminates(t *testing.T) {
	rep := diag.NewReporter()
	doc := docWithBlock("A",
		[]Entity{
			&PointEntity{Position: Point{X: 1, Y: 1}},
			insertOf("A", 5, 5),
		},
		insertOf("A", 0, 0),
	)
	out := Expand(doc, rep)
	require.Len(t, out, 1)
	assert.GreaterOrEqual(t, rep.CountCode(diag.CodeCircularReference), 1)
}

func TestExpand_MutualCycleTerminates(t *testing.T) {
	rep := diag.NewReporter()
	doc := &Document{
		Layers: map[string]*Layer{"0": {Name: "0"}},
		Blocks: map[string]*Block{
			"A": {Name: "A", Entities: []Entity{
				&PointEntity{Position: Point{X: 1, Y: 0}},
				insertOf("B", 0, 0),
			}},
			"B": {Name: "B", Entities: []Entity{
				insertOf("A", 0, 0),
			}},
		},
		Entities: []Entity{insertOf("A", 0, 0)},
	}

	out := Expand(doc, rep)
	// A yields its point, B recurses back into A which is pruned.
	require.Len(t, out, 1)
	assert.GreaterOrEqual(t, rep.CountCode(diag.CodeCircularReference), 1)

	recs := rep.Records()
	var found bool
	for _, r := range recs {
		if r.Code == diag.CodeCircularReference {
			assert.Contains(t, r.Context["path"], "A -> B -> A")
			found = true
		}
	}
	assert.True(t, found)
}

func TestExpand_LongerCycleTerminates(t *testing.T) {
	rep := diag.NewReporter()
	blocks := map[string]*Block{
		"A": {Name: "A", Entities: []Entity{insertOf("B", 0, 0)}},
		"B": {Name: "B", Entities: []Entity{insertOf("C", 0, 0)}},
		"C": {Name: "C", Entities: []Entity{
			&PointEntity{Position: Point{X: 3, Y: 3}},
			insertOf("A", 0, 0),
		}},
	}
	doc := &Document{Layers: map[string]*Layer{}, Blocks: blocks, Entities: []Entity{insertOf("A", 0, 0)}}

	out := Expand(doc, rep)
	require.Len(t, out, 1)
	assert.GreaterOrEqual(t, rep.CountCode(diag.CodeCircularReference), 1)
}

func TestExpand_ScalesDerivedRadii(t *testing.T) {
	ins := insertOf("B", 0, 0)
	ins.Scale = Point{X: 3, Y: 3, Z: 3}
	doc := docWithBlock("B",
		[]Entity{&Circle{Center: Point{X: 1, Y: 0}, Radius: 2}},
		ins,
	)
	out := Expand(doc, diag.NewReporter())
	require.Len(t, out, 1)
	c := out[0].(*Circle)
	assert.InDelta(t, 6, c.Radius, 1e-9)
	assert.InDelta(t, 3, c.Center.X, 1e-9)
}

func TestExpand_RotatesArcAngles(t *testing.T) {
	ins := insertOf("B", 0, 0)
	ins.Rotation = 90
	doc := docWithBlock("B",
		[]Entity{&Arc{Center: Point{}, Radius: 1, StartAngle: 0, EndAngle: 90}},
		ins,
	)
	out := Expand(doc, diag.NewReporter())
	require.Len(t, out, 1)
	a := out[0].(*Arc)
	assert.InDelta(t, 90, a.StartAngle, 1e-9)
	assert.InDelta(t, 180, a.EndAngle, 1e-9)
}
