package crs

import "github.com/sells-group/geo-loader/internal/geometry"

// Envelopes used to guess the source CRS of a drawing from its coordinate
// magnitudes. Swiss frames are tried first since their ranges cannot overlap
// longitude/latitude values.
var (
	lv95Envelope  = geometry.Bounds{MinX: 2450000, MinY: 1050000, MaxX: 2850000, MaxY: 1350000}
	lv03Envelope  = geometry.Bounds{MinX: 450000, MinY: 50000, MaxX: 850000, MaxY: 350000}
	wgs84Envelope = geometry.Bounds{MinX: -180, MinY: -90, MaxX: 180, MaxY: 90}
)

// Detect guesses the CRS of a drawing from its coordinate bounds. Returns
// the EPSG code and true on a confident match, or "" and false when the
// bounds fit no known envelope.
func Detect(b geometry.Bounds) (string, bool) {
	within := func(env geometry.Bounds) bool {
		return env.Contains(b.MinX, b.MinY) && env.Contains(b.MaxX, b.MaxY)
	}

	switch {
	case within(lv95Envelope):
		return CodeLV95, true
	case within(lv03Envelope):
		return CodeLV03, true
	case within(wgs84Envelope):
		return CodeWGS84, true
	default:
		return "", false
	}
}
