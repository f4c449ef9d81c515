package crs

// Swiss projection math after the official swisstopo approximation formulas
// ("Approximate formulas for the transformation between Swiss projection
// coordinates and WGS84"). Accuracy is around a meter, which is well inside
// the needs of CAD drawing georeferencing.

// LV95/LV03 false origins. LV95 coordinates are LV03 plus this offset.
const (
	lv95FalseEasting  = 2600000.0
	lv95FalseNorthing = 1200000.0
	lv03FalseEasting  = 600000.0
	lv03FalseNorthing = 200000.0
)

// lv95ToWGS84 converts LV95 (E, N) to WGS84 (lon, lat) in degrees.
func lv95ToWGS84(e, n float64) (lon, lat float64) {
	// Auxiliary values: civil coordinates in 1000 km units, origin Bern.
	y := (e - lv95FalseEasting) / 1e6
	x := (n - lv95FalseNorthing) / 1e6

	lonP := 2.6779094 +
		4.728982*y +
		0.791484*y*x +
		0.1306*y*x*x -
		0.0436*y*y*y

	latP := 16.9023892 +
		3.238272*x -
		0.270978*y*y -
		0.002528*x*x -
		0.0447*y*y*x -
		0.0140*x*x*x

	// Unit conversion from 10000" to degrees.
	return lonP * 100 / 36, latP * 100 / 36
}

// wgs84ToLV95 converts WGS84 (lon, lat) in degrees to LV95 (E, N).
func wgs84ToLV95(lon, lat float64) (e, n float64) {
	// Auxiliary values: differences from Bern in 10000" units.
	latP := (lat*3600 - 169028.66) / 10000
	lonP := (lon*3600 - 26782.5) / 10000

	e = 2600072.37 +
		211455.93*lonP -
		10938.51*lonP*latP -
		0.36*lonP*latP*latP -
		44.54*lonP*lonP*lonP

	n = 1200147.07 +
		308807.95*latP +
		3745.25*lonP*lonP +
		76.63*latP*latP -
		194.56*lonP*lonP*latP +
		119.79*latP*latP*latP

	return e, n
}

// lv03ToWGS84 converts LV03 (y, x) to WGS84 (lon, lat) in degrees.
func lv03ToWGS84(y, x float64) (lon, lat float64) {
	return lv95ToWGS84(y-lv03FalseEasting+lv95FalseEasting, x-lv03FalseNorthing+lv95FalseNorthing)
}

// wgs84ToLV03 converts WGS84 (lon, lat) in degrees to LV03 (y, x).
func wgs84ToLV03(lon, lat float64) (y, x float64) {
	e, n := wgs84ToLV95(lon, lat)
	return e - lv95FalseEasting + lv03FalseEasting, n - lv95FalseNorthing + lv03FalseNorthing
}

// lv95ToLV03 shifts between the two Swiss frames by their false origin
// offset, the standard approximation for this accuracy class.
func lv95ToLV03(e, n float64) (y, x float64) {
	return e - lv95FalseEasting + lv03FalseEasting, n - lv95FalseNorthing + lv03FalseNorthing
}

func lv03ToLV95(y, x float64) (e, n float64) {
	return y - lv03FalseEasting + lv95FalseEasting, x - lv03FalseNorthing + lv95FalseNorthing
}
