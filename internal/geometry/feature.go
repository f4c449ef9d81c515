package geometry

import (
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/geo-loader/internal/dxf"
)

// properties builds the feature property map: id, type and layer always
// present, style attributes and type-specific extras when set.
func properties(e dxf.Entity) map[string]any {
	attrs := e.Common()

	layer := attrs.Layer
	if layer == "" {
		layer = "0"
	}

	props := map[string]any{
		"id":    attrs.Handle,
		"type":  string(e.Kind()),
		"layer": layer,
	}

	if attrs.Color != 0 && attrs.Color != 256 {
		props["color"] = attrs.Color
	}
	if attrs.LineType != "" {
		props["lineType"] = attrs.LineType
	}
	if attrs.LineWeight != 0 {
		props["lineWeight"] = attrs.LineWeight
	}
	if attrs.Elevation != 0 {
		props["elevation"] = attrs.Elevation
	}
	if attrs.Thickness != 0 {
		props["thickness"] = attrs.Thickness
	}

	switch v := e.(type) {
	case *dxf.Text:
		props["text"] = v.Value
		if v.Height != 0 {
			props["height"] = v.Height
		}
		if v.Rotation != 0 {
			props["rotation"] = v.Rotation
		}
		if v.Style != "" {
			props["style"] = v.Style
		}
		if v.MText {
			props["type"] = "MTEXT"
		}
	case *dxf.Circle:
		props["radius"] = v.Radius
	case *dxf.Arc:
		props["radius"] = v.Radius
		props["startAngle"] = v.StartAngle
		props["endAngle"] = v.EndAngle
	case *dxf.Insert:
		props["blockName"] = v.BlockName
	case *dxf.Hatch:
		props["pattern"] = v.Pattern
	case *dxf.Dimension:
		if v.Text != "" {
			props["text"] = v.Text
		}
	case *dxf.Spline:
		props["degree"] = v.Degree
	}

	return props
}

// Collection wraps features into a GeoJSON FeatureCollection.
func Collection(features []*geojson.Feature) *geojson.FeatureCollection {
	return &geojson.FeatureCollection{Features: features}
}
