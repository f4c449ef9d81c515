package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/geo-loader/internal/diag"
	"github.com/sells-group/geo-loader/internal/dxf"
	"github.com/sells-group/geo-loader/internal/geometry"
)

func testFeatures(t *testing.T) []*geojson.Feature {
	t.Helper()
	rep := diag.NewReporter()
	features := []*geojson.Feature{
		geometry.Convert(&dxf.PointEntity{Attributes: dxf.Attributes{Handle: "p1"}, Position: dxf.Point{X: 1, Y: 1}}, rep),
		geometry.Convert(&dxf.PointEntity{Attributes: dxf.Attributes{Handle: "p2"}, Position: dxf.Point{X: 100, Y: 100}}, rep),
		geometry.Convert(&dxf.Line{Attributes: dxf.Attributes{Handle: "l1"}, Start: dxf.Point{X: 0, Y: 0}, End: dxf.Point{X: 10, Y: 10}}, rep),
	}
	for _, f := range features {
		require.NotNil(t, f)
	}
	return features
}

func TestIndex_SearchBBox(t *testing.T) {
	ix := NewIndex(testFeatures(t))
	require.Equal(t, 3, ix.Len())

	hits := ix.Search(geometry.Bounds{MinX: 0, MinY: 0, MaxX: 5, MaxY: 5})
	ids := make(map[string]bool)
	for _, f := range hits {
		ids[f.ID] = true
	}
	assert.True(t, ids["p1"])
	assert.True(t, ids["l1"])
	assert.False(t, ids["p2"])
}

func TestIndex_SearchMiss(t *testing.T) {
	ix := NewIndex(testFeatures(t))
	hits := ix.Search(geometry.Bounds{MinX: 500, MinY: 500, MaxX: 600, MaxY: 600})
	assert.Empty(t, hits)
}

func TestIndex_SkipsNilFeatures(t *testing.T) {
	features := append(testFeatures(t), nil)
	ix := NewIndex(features)
	assert.Equal(t, 3, ix.Len())
}

func TestIndex_All(t *testing.T) {
	features := testFeatures(t)
	ix := NewIndex(features)
	all := ix.All()
	require.Len(t, all, 3)
	assert.Equal(t, features[0].ID, all[0].ID)
	assert.Equal(t, features[2].ID, all[2].ID)
}

func TestIndex_PointOnlyQuery(t *testing.T) {
	ix := NewIndex(testFeatures(t))
	// Degenerate query box around a single point still matches.
	hits := ix.Search(geometry.Bounds{MinX: 100, MinY: 100, MaxX: 100, MaxY: 100})
	require.Len(t, hits, 1)
	assert.Equal(t, "p2", hits[0].ID)
}
