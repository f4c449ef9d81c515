// Package spatial provides an r-tree index over converted features for
// viewport and bounding-box queries.
package spatial

import (
	"github.com/dhconnelly/rtreego"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/geo-loader/internal/geometry"
)

// minExtent pads degenerate (point or axis-aligned) boxes so the r-tree
// accepts them.
const minExtent = 1e-9

// entry pairs a feature with its precomputed bounding rectangle.
type entry struct {
	feature *geojson.Feature
	rect    rtreego.Rect
}

func (e *entry) Bounds() rtreego.Rect { return e.rect }

// Index is an immutable-after-build r-tree over feature envelopes. Not safe
// for concurrent mutation; build first, then query freely.
type Index struct {
	tree     *rtreego.Rtree
	features []*geojson.Feature
}

// NewIndex builds an index over the given features. Features without
// computable bounds are skipped.
func NewIndex(features []*geojson.Feature) *Index {
	ix := &Index{tree: rtreego.NewTree(2, 25, 50)}
	for _, f := range features {
		if f == nil || f.Geometry == nil {
			continue
		}
		b, err := geometry.FeatureBounds([]*geojson.Feature{f})
		if err != nil {
			continue
		}
		rect, err := boundsRect(b)
		if err != nil {
			continue
		}
		ix.tree.Insert(&entry{feature: f, rect: rect})
		ix.features = append(ix.features, f)
	}
	return ix
}

// Search returns all features whose envelope intersects the query bounds.
func (ix *Index) Search(b geometry.Bounds) []*geojson.Feature {
	rect, err := boundsRect(b)
	if err != nil {
		return nil
	}
	hits := ix.tree.SearchIntersect(rect)
	out := make([]*geojson.Feature, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.(*entry).feature)
	}
	return out
}

// All returns every indexed feature in insertion order.
func (ix *Index) All() []*geojson.Feature {
	out := make([]*geojson.Feature, len(ix.features))
	copy(out, ix.features)
	return out
}

// Len returns the number of indexed features.
func (ix *Index) Len() int {
	return ix.tree.Size()
}

func boundsRect(b geometry.Bounds) (rtreego.Rect, error) {
	w := b.MaxX - b.MinX
	h := b.MaxY - b.MinY
	if w < minExtent {
		w = minExtent
	}
	if h < minExtent {
		h = minExtent
	}
	rect, err := rtreego.NewRect(rtreego.Point{b.MinX, b.MinY}, []float64{w, h})
	if err != nil {
		return rtreego.Rect{}, eris.Wrap(err, "spatial: build rect")
	}
	return rect, nil
}
