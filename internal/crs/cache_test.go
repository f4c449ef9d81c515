package crs

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformCache_GetPut(t *testing.T) {
	c := newTransformCache(10)

	_, ok := c.get(CodeLV95, CodeWGS84, 1, 2)
	assert.False(t, ok)

	c.put(CodeLV95, CodeWGS84, 1, 2, 7.4, 46.9)
	v, ok := c.get(CodeLV95, CodeWGS84, 1, 2)
	require.True(t, ok)
	assert.Equal(t, [2]float64{7.4, 46.9}, v)

	// Direction is part of the key.
	_, ok = c.get(CodeWGS84, CodeLV95, 1, 2)
	assert.False(t, ok)
}

func TestTransformCache_BulkEviction(t *testing.T) {
	c := newTransformCache(10)
	for i := 0; i < 10; i++ {
		c.put(CodeLV95, CodeWGS84, float64(i), 0, float64(i), 0)
	}
	require.Equal(t, 10, c.len())

	// The 11th insert evicts the oldest half.
	c.put(CodeLV95, CodeWGS84, 10, 0, 10, 0)
	assert.Equal(t, 6, c.len())

	// Oldest entries are gone, newest survive.
	_, ok := c.get(CodeLV95, CodeWGS84, 0, 0)
	assert.False(t, ok)
	_, ok = c.get(CodeLV95, CodeWGS84, 9, 0)
	assert.True(t, ok)
	_, ok = c.get(CodeLV95, CodeWGS84, 10, 0)
	assert.True(t, ok)
}

func TestTransformCache_UpdateInPlace(t *testing.T) {
	c := newTransformCache(5)
	c.put(CodeLV95, CodeWGS84, 1, 1, 2, 2)
	c.put(CodeLV95, CodeWGS84, 1, 1, 3, 3)
	assert.Equal(t, 1, c.len())

	v, _ := c.get(CodeLV95, CodeWGS84, 1, 1)
	assert.Equal(t, [2]float64{3, 3}, v)
}

func TestTransformCache_Clear(t *testing.T) {
	c := newTransformCache(5)
	c.put(CodeLV95, CodeWGS84, 1, 1, 2, 2)
	c.clear()
	assert.Equal(t, 0, c.len())
}

func TestCacheKey_Distinct(t *testing.T) {
	keys := map[string]bool{}
	for i := 0; i < 100; i++ {
		keys[cacheKey(CodeLV95, CodeWGS84, float64(i)*1.5, float64(i)*-0.25)] = true
	}
	assert.Len(t, keys, 100, fmt.Sprintf("keys collided: %d", len(keys)))
}
