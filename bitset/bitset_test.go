package bitset

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetContainsClear(t *testing.T) {
	b := New()
	b.Set(5)
	assert.True(t, b.Contains(5))
	b.Clear(5)
	assert.False(t, b.Contains(5))
}

func TestIntersectShortCircuitsOnEmpty(t *testing.T) {
	a := Of(1, 2, 3)
	empty := New()
	c := Of(1, 2, 3, 4, 5, 6, 7)

	got := Intersect(a, empty, c)
	assert.True(t, got.IsEmpty())
}

func TestIntersectCommonMembers(t *testing.T) {
	a := Of(1, 2, 3, 4)
	b := Of(2, 3, 4, 5)
	c := Of(3, 4, 5, 6)

	got := Intersect(a, b, c)
	assert.Equal(t, []uint32{3, 4}, got.ToSlice())
}

func TestUnion(t *testing.T) {
	got := Union(Of(1, 2), Of(2, 3))
	assert.Equal(t, []uint32{1, 2, 3}, got.ToSlice())
}

func TestMonotonicBitsNeverLost(t *testing.T) {
	b := New()
	b.Set(1)
	b.Set(2)
	before := b.Clone()
	b.Set(3)
	before.Iterate(func(x uint32) bool {
		assert.True(t, b.Contains(x))
		return true
	})
}

func TestBitmapSerializationRoundTrip(t *testing.T) {
	b := Of(1, 5, 100, 1<<20)
	var buf bytes.Buffer
	require.NoError(t, b.WriteTo(&buf))

	got, err := ReadBitmap(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, b.ToSlice(), got.ToSlice())
}

func TestMinMax(t *testing.T) {
	b := Of(7, 3, 9)
	assert.Equal(t, uint32(3), b.Min())
	assert.Equal(t, uint32(9), b.Max())
}
