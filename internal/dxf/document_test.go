package dxf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/geo-loader/internal/diag"
)

const sampleDXF = `0
SECTION
2
HEADER
9
$EXTMIN
10
0.0
20
0.0
9
$EXTMAX
10
100.0
20
50.0
9
$INSUNITS
70
6
0
ENDSEC
0
SECTION
2
TABLES
0
TABLE
2
LAYER
0
LAYER
2
walls
62
-3
6
DASHED
70
5
0
ENDTAB
0
ENDSEC
0
SECTION
2
BLOCKS
0
BLOCK
2
DOOR
8
0
10
0
20
0
0
LINE
10
0
20
0
11
1
21
0
0
ENDBLK
0
ENDSEC
0
SECTION
2
ENTITIES
0
POINT
8
walls
10
1
20
2
0
INSERT
2
DOOR
10
10
20
10
0
ENDSEC
0
EOF
`

func TestParse_Document(t *testing.T) {
	rep := diag.NewReporter()
	doc, err := Parse(sampleDXF, rep)
	require.NoError(t, err)

	// Header.
	require.NotNil(t, doc.Header.ExtMin)
	assert.Equal(t, 100.0, doc.Header.ExtMax.X)
	assert.Equal(t, 6, doc.Header.InsUnits)

	ext, err := doc.Extents()
	require.NoError(t, err)
	assert.Equal(t, Bounds{0, 0, 100, 50}, ext)

	// Layer table: "walls" parsed, negative color means off, flags decoded.
	walls := doc.Layers["walls"]
	require.NotNil(t, walls)
	assert.True(t, walls.Off)
	assert.Equal(t, 3, walls.Color)
	assert.Equal(t, "DASHED", walls.LineType)
	assert.True(t, walls.Frozen)
	assert.True(t, walls.Locked)

	// Layer 0 synthesized.
	require.NotNil(t, doc.Layers["0"])

	// Block registry.
	door := doc.Blocks["DOOR"]
	require.NotNil(t, door)
	assert.Len(t, door.Entities, 1)
	assert.Equal(t, KindLine, door.Entities[0].Kind())

	// Top-level entities.
	require.Len(t, doc.Entities, 2)
	assert.Equal(t, KindPoint, doc.Entities[0].Kind())
	assert.Equal(t, KindInsert, doc.Entities[1].Kind())
}

func TestParse_EmptyFatal(t *testing.T) {
	_, err := Parse("", diag.NewReporter())
	require.Error(t, err)
}

func TestParse_NoSectionsFatal(t *testing.T) {
	_, err := Parse("10\n1.0\n20\n2.0\n", diag.NewReporter())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no section markers")
}

func TestParse_NotADXF(t *testing.T) {
	_, err := Parse("not a dxf", diag.NewReporter())
	require.Error(t, err)
}

func TestExtents_Missing(t *testing.T) {
	doc := &Document{}
	_, err := doc.Extents()
	require.Error(t, err)
}
