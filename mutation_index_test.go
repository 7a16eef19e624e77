package loom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexWriteSpecializedInt56InPlace(t *testing.T) {
	alloc := NewAllocator()
	buf, err := Alloc[int64](alloc, 3)
	require.NoError(t, err)
	buf.Data = []int64{1, 2, 3}
	c := NewSpecializedInt(KindSpecInt56, buf, true)

	require.NoError(t, IndexWrite(alloc, c, 1, Int32Cell(42), Span{}))
	assert.Equal(t, KindSpecInt56, c.Kind, "writing another int56-fitting value never converts the container")

	v, err := SpecializedReadWithFallback(c, 1, Span{})
	require.NoError(t, err)
	assert.Equal(t, int64(42), v.i64)
}

func TestIndexWriteConvertsSpecializedIntToGenericOnStringWrite(t *testing.T) {
	alloc := NewAllocator()
	buf, err := Alloc[int64](alloc, 2)
	require.NoError(t, err)
	buf.Data = []int64{10, 20}
	c := NewSpecializedInt(KindSpecInt56, buf, true)

	require.NoError(t, IndexWrite(alloc, c, 0, StringCell("oops"), Span{}))
	assert.Equal(t, KindGenericArray, c.Kind)

	v0, err := SpecializedReadWithFallback(c, 0, Span{})
	require.NoError(t, err)
	assert.Equal(t, "oops", v0.str)

	v1, err := SpecializedReadWithFallback(c, 1, Span{})
	require.NoError(t, err)
	assert.Equal(t, int64(20), v1.i64, "pre-existing slots must be preserved (boxed) across the conversion")
}

func TestIndexWriteConvertsSpecializedFloatOnNonNumericWrite(t *testing.T) {
	alloc := NewAllocator()
	buf, err := Alloc[float64](alloc, 2)
	require.NoError(t, err)
	buf.Data = []float64{1.5, 2.5}
	c := NewSpecializedFloat(buf, true)

	require.NoError(t, IndexWrite(alloc, c, 0, BoolCell(true), Span{}))
	assert.Equal(t, KindGenericArray, c.Kind)

	v1, err := SpecializedReadWithFallback(c, 1, Span{})
	require.NoError(t, err)
	assert.Equal(t, 2.5, v1.f64)
}

func TestIndexWriteOutOfBounds(t *testing.T) {
	alloc := NewAllocator()
	buf, err := Alloc[Cell](alloc, 2)
	require.NoError(t, err)
	c := NewGenericArray(KindGenericArray, buf, true)

	err = IndexWrite(alloc, c, 5, Int32Cell(1), Span{})
	require.Error(t, err)
	var oob *IndexOutOfBoundsError
	require.ErrorAs(t, err, &oob)
}

func TestIndexWriteGenericReleasesDisplacedContainer(t *testing.T) {
	alloc := NewAllocator()
	innerBuf, err := Alloc[Cell](alloc, 1)
	require.NoError(t, err)
	inner := NewGenericArray(KindGenericArray, innerBuf, true)

	outerBuf, err := Alloc[Cell](alloc, 1)
	require.NoError(t, err)
	outerBuf.Data[0] = ContainerCell(inner)
	outer := NewGenericArray(KindGenericArray, outerBuf, true)
	assert.Equal(t, 2, inner.refcount)

	require.NoError(t, IndexWrite(alloc, outer, 0, Int32Cell(7), Span{}))
	assert.Equal(t, 1, inner.refcount, "displacing a container-valued slot must release its old reference")
}

func TestIndexWriteInt56OverflowConvertsToGenericKind(t *testing.T) {
	alloc := NewAllocator()
	buf, err := Alloc[int64](alloc, 1)
	require.NoError(t, err)
	buf.Data[0] = 1
	c := NewSpecializedInt(KindSpecInt56, buf, true)

	huge := int64(1) << 60
	require.NoError(t, IndexWrite(alloc, c, 0, Int64Cell(huge), Span{}))
	assert.Equal(t, KindGenericArray, c.Kind, "a value that doesn't fit int56 converts the container to the generic kind rather than a wider specialized one (no int56->int64 specialized promotion path)")

	v, err := SpecializedReadWithFallback(c, 0, Span{})
	require.NoError(t, err)
	assert.Equal(t, huge, v.i64)
}

func TestFitsInt56(t *testing.T) {
	assert.True(t, fitsInt56(0))
	assert.True(t, fitsInt56((1<<55)-1))
	assert.False(t, fitsInt56(1<<55))
	assert.False(t, fitsInt56(-(1 << 55) - 1))
}
