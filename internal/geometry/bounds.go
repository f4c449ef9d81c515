package geometry

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// Bounds is the min/max envelope over a feature set.
type Bounds struct {
	MinX float64 `json:"minX" yaml:"minX"`
	MinY float64 `json:"minY" yaml:"minY"`
	MaxX float64 `json:"maxX" yaml:"maxX"`
	MaxY float64 `json:"maxY" yaml:"maxY"`
}

// Extend grows the bounds to include the coordinate.
func (b *Bounds) Extend(x, y float64) {
	b.MinX = math.Min(b.MinX, x)
	b.MinY = math.Min(b.MinY, y)
	b.MaxX = math.Max(b.MaxX, x)
	b.MaxY = math.Max(b.MaxY, y)
}

// Contains reports whether the point lies inside the bounds, edges included.
func (b Bounds) Contains(x, y float64) bool {
	return x >= b.MinX && x <= b.MaxX && y >= b.MinY && y <= b.MaxY
}

// FeatureBounds computes the envelope of all feature coordinates. Errors when
// the set is empty or contains no coordinates.
func FeatureBounds(features []*geojson.Feature) (Bounds, error) {
	b := Bounds{
		MinX: math.Inf(1), MinY: math.Inf(1),
		MaxX: math.Inf(-1), MaxY: math.Inf(-1),
	}
	var seen bool
	for _, f := range features {
		if f == nil || f.Geometry == nil {
			continue
		}
		flat := f.Geometry.FlatCoords()
		stride := f.Geometry.Stride()
		for i := 0; i+1 < len(flat); i += stride {
			b.Extend(flat[i], flat[i+1])
			seen = true
		}
	}
	if !seen {
		return Bounds{}, eris.New("geometry: no coordinates to bound")
	}
	return b, nil
}
