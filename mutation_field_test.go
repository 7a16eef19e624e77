package loom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildMapContainer(t *testing.T, alloc *Allocator, shapes *ShapePool, fields []FieldEntry, values []Cell) *Container {
	t.Helper()
	shape := shapes.Intern(fields, "", "")
	buf, err := Alloc[Cell](alloc, len(values))
	require.NoError(t, err)
	copy(buf.Data, values)
	return NewMap(shape, buf, true)
}

func TestFieldWriteExactTypeInPlace(t *testing.T) {
	alloc := NewAllocator()
	shapes := NewShapePool()
	cfg := NewConfig()
	c := buildMapContainer(t, alloc, shapes, []FieldEntry{{Name: "age", Type: typeInt32, Offset: 0, Size: 1}}, []Cell{Int32Cell(30)})

	require.NoError(t, FieldWrite(alloc, shapes, cfg, c, "age", Int32Cell(31), Span{}))
	v, err := FieldRead(c, "age", Span{})
	require.NoError(t, err)
	assert.Equal(t, int32(31), v.i32)
}

func TestFieldWriteUnknownField(t *testing.T) {
	alloc := NewAllocator()
	shapes := NewShapePool()
	cfg := NewConfig()
	c := buildMapContainer(t, alloc, shapes, []FieldEntry{{Name: "age", Type: typeInt32, Offset: 0, Size: 1}}, []Cell{Int32Cell(30)})

	err := FieldWrite(alloc, shapes, cfg, c, "nope", Int32Cell(1), Span{})
	require.Error(t, err)
	var unknown *UnknownFieldError
	require.ErrorAs(t, err, &unknown)
}

func TestFieldWriteIntWidensToFloatFieldInPlace(t *testing.T) {
	alloc := NewAllocator()
	shapes := NewShapePool()
	cfg := NewConfig()
	c := buildMapContainer(t, alloc, shapes, []FieldEntry{{Name: "price", Type: typeFloat64, Offset: 0, Size: 1}}, []Cell{Float64Cell(1.5)})
	origShape := c.Shape

	require.NoError(t, FieldWrite(alloc, shapes, cfg, c, "price", Int32Cell(3), Span{}))
	assert.Same(t, origShape, c.Shape, "a float field accepting an int value coerces in place, no rebuild")

	v, err := FieldRead(c, "price", Span{})
	require.NoError(t, err)
	assert.Equal(t, float64(3), v.f64)
}

func TestFieldWriteInt32ToFloatFieldRebuilds(t *testing.T) {
	alloc := NewAllocator()
	shapes := NewShapePool()
	cfg := NewConfig()
	c := buildMapContainer(t, alloc, shapes, []FieldEntry{{Name: "age", Type: typeInt32, Offset: 0, Size: 1}}, []Cell{Int32Cell(30)})
	origShape := c.Shape

	require.NoError(t, FieldWrite(alloc, shapes, cfg, c, "age", Float64Cell(30.5), Span{}))
	assert.NotSame(t, origShape, c.Shape, "an int32 field assigned a float rebuilds the shape (Open Question #1 decision: rebuild, don't widen in place)")

	v, err := FieldRead(c, "age", Span{})
	require.NoError(t, err)
	assert.Equal(t, 30.5, v.f64)
	entry, ok := c.Shape.field("age")
	require.True(t, ok)
	assert.Equal(t, TypeFloat64, entry.Type.Kind)
}

func TestFieldWriteRebuildPreservesOtherFields(t *testing.T) {
	alloc := NewAllocator()
	shapes := NewShapePool()
	cfg := NewConfig()
	c := buildMapContainer(t, alloc, shapes,
		[]FieldEntry{
			{Name: "age", Type: typeInt32, Offset: 0, Size: 1},
			{Name: "name", Type: typeString, Offset: 1, Size: 1},
		},
		[]Cell{Int32Cell(30), StringCell("ann")})

	require.NoError(t, FieldWrite(alloc, shapes, cfg, c, "age", Float64Cell(30.5), Span{}))

	name, err := FieldRead(c, "name", Span{})
	require.NoError(t, err)
	assert.Equal(t, "ann", name.str)
}

func TestFieldWriteContainerToNullRebuildsShape(t *testing.T) {
	alloc := NewAllocator()
	shapes := NewShapePool()
	cfg := NewConfig()

	innerBuf, err := Alloc[Cell](alloc, 1)
	require.NoError(t, err)
	inner := NewGenericArray(KindGenericArray, innerBuf, true)

	listType := &TypeDescriptor{Kind: TypeArray, Elem: typeAny}
	c := buildMapContainer(t, alloc, shapes, []FieldEntry{{Name: "items", Type: listType, Offset: 0, Size: 1}}, []Cell{ContainerCell(inner)})
	origShape := c.Shape
	assert.Equal(t, 2, inner.refcount)

	require.NoError(t, FieldWrite(alloc, shapes, cfg, c, "items", NullCell, Span{}))
	assert.NotSame(t, origShape, c.Shape, "container -> null rebuilds the shape per Open Question #2's decision")
	assert.Equal(t, 1, inner.refcount, "the displaced container reference must be released")

	v, err := FieldRead(c, "items", Span{})
	require.NoError(t, err)
	assert.Equal(t, CellNull, v.Tag)
}

func TestFieldWriteInt32ToInt64FieldCoercesInPlace(t *testing.T) {
	alloc := NewAllocator()
	shapes := NewShapePool()
	cfg := NewConfig()
	c := buildMapContainer(t, alloc, shapes, []FieldEntry{{Name: "big", Type: typeInt64, Offset: 0, Size: 1}}, []Cell{Int64Cell(100)})
	origShape := c.Shape

	require.NoError(t, FieldWrite(alloc, shapes, cfg, c, "big", Int32Cell(7), Span{}))
	assert.Same(t, origShape, c.Shape)

	v, err := FieldRead(c, "big", Span{})
	require.NoError(t, err)
	assert.Equal(t, int64(7), v.i64)
}
