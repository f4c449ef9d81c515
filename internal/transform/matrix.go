// Package transform implements the 4x4 affine transform engine used for block
// reference expansion. Matrices are composed right-to-left: Translate * Rotate
// * Scale applies the scale first.
package transform

import "math"

// Matrix is a row-major 4x4 affine transform. Every matrix built by this
// package keeps [0 0 0 1] as its last row.
type Matrix [4][4]float64

// Identity returns the identity transform.
func Identity() Matrix {
	return Matrix{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
}

// Translate returns a translation by (x, y, z).
func Translate(x, y, z float64) Matrix {
	m := Identity()
	m[0][3] = x
	m[1][3] = y
	m[2][3] = z
	return m
}

// RotateZ returns a rotation about the Z axis by the given angle in degrees.
func RotateZ(degrees float64) Matrix {
	rad := degrees * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	m := Identity()
	m[0][0] = cos
	m[0][1] = -sin
	m[1][0] = sin
	m[1][1] = cos
	return m
}

// Scale returns a per-axis scale.
func Scale(x, y, z float64) Matrix {
	m := Identity()
	m[0][0] = x
	m[1][1] = y
	m[2][2] = z
	return m
}

// Mul returns a * b, so that (a.Mul(b)).Apply(p) == a.Apply(b.Apply(p)).
func (a Matrix) Mul(b Matrix) Matrix {
	var out Matrix
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var sum float64
			for k := 0; k < 4; k++ {
				sum += a[i][k] * b[k][j]
			}
			out[i][j] = sum
		}
	}
	return out
}

// Apply transforms a point through the matrix with a homogeneous divide.
// ok is false when the result is non-finite (degenerate transform), so the
// caller can drop just that point.
func (m Matrix) Apply(x, y, z float64) (tx, ty, tz float64, ok bool) {
	w := m[3][0]*x + m[3][1]*y + m[3][2]*z + m[3][3]
	if w == 0 || !isFinite(w) {
		return 0, 0, 0, false
	}
	tx = (m[0][0]*x + m[0][1]*y + m[0][2]*z + m[0][3]) / w
	ty = (m[1][0]*x + m[1][1]*y + m[1][2]*z + m[1][3]) / w
	tz = (m[2][0]*x + m[2][1]*y + m[2][2]*z + m[2][3]) / w
	if !isFinite(tx) || !isFinite(ty) || !isFinite(tz) {
		return 0, 0, 0, false
	}
	return tx, ty, tz, true
}

// ScaleFactor approximates the uniform scale of the transform as the mean
// length of the transformed local X and Y basis vectors. Exact only for
// similarity transforms; anisotropic scales distort derived radii.
func (m Matrix) ScaleFactor() float64 {
	sx := math.Hypot(m[0][0], m[1][0])
	sy := math.Hypot(m[0][1], m[1][1])
	return (sx + sy) / 2
}

// RotateAngle adds the matrix's net Z rotation to an angle in degrees.
// Assumes a Z-only rotation without shear.
func (m Matrix) RotateAngle(degrees float64) float64 {
	return degrees + math.Atan2(m[1][0], m[0][0])*180/math.Pi
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
