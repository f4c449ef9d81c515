package transform

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentity_LeavesPointUnchanged(t *testing.T) {
	x, y, z, ok := Identity().Apply(3.5, -2, 7)
	require.True(t, ok)
	assert.Equal(t, 3.5, x)
	assert.Equal(t, -2.0, y)
	assert.Equal(t, 7.0, z)
}

func TestTranslate(t *testing.T) {
	x, y, z, ok := Translate(10, 20, 30).Apply(1, 2, 3)
	require.True(t, ok)
	assert.Equal(t, 11.0, x)
	assert.Equal(t, 22.0, y)
	assert.Equal(t, 33.0, z)
}

func TestRotateZ_Quarter(t *testing.T) {
	x, y, _, ok := RotateZ(90).Apply(1, 0, 0)
	require.True(t, ok)
	assert.InDelta(t, 0, x, 1e-12)
	assert.InDelta(t, 1, y, 1e-12)
}

func TestScale(t *testing.T) {
	x, y, z, ok := Scale(2, 3, 4).Apply(1, 1, 1)
	require.True(t, ok)
	assert.Equal(t, 2.0, x)
	assert.Equal(t, 3.0, y)
	assert.Equal(t, 4.0, z)
}

// Composition is right-to-left: translate(10,0) * rotateZ(90) * scale(2) maps
// (1,0) -> scale (2,0) -> rotate (0,2) -> translate (10,2).
func TestMul_RightToLeftOrder(t *testing.T) {
	m := Translate(10, 0, 0).Mul(RotateZ(90)).Mul(Scale(2, 2, 2))
	x, y, _, ok := m.Apply(1, 0, 0)
	require.True(t, ok)
	assert.InDelta(t, 10, x, 1e-12)
	assert.InDelta(t, 2, y, 1e-12)
}

func TestLastRowInvariant(t *testing.T) {
	m := Translate(5, 6, 7).Mul(RotateZ(33)).Mul(Scale(2, 3, 4))
	assert.Equal(t, [4]float64{0, 0, 0, 1}, m[3])
}

func TestApply_NonFiniteRejected(t *testing.T) {
	m := Scale(math.Inf(1), 1, 1)
	_, _, _, ok := m.Apply(1, 1, 1)
	assert.False(t, ok)

	_, _, _, ok = Identity().Apply(math.NaN(), 0, 0)
	assert.False(t, ok)
}

func TestScaleFactor(t *testing.T) {
	assert.InDelta(t, 2, Scale(2, 2, 2).ScaleFactor(), 1e-12)
	// Rotation does not change scale.
	assert.InDelta(t, 1, RotateZ(45).ScaleFactor(), 1e-12)
	// Anisotropic scale averages (documented approximation).
	assert.InDelta(t, 3, Scale(2, 4, 1).ScaleFactor(), 1e-12)
}

func TestRotateAngle(t *testing.T) {
	m := RotateZ(30)
	assert.InDelta(t, 45, m.RotateAngle(15), 1e-9)

	// Scale must not affect the extracted rotation.
	m = RotateZ(90).Mul(Scale(3, 3, 1))
	assert.InDelta(t, 90, m.RotateAngle(0), 1e-9)
}
