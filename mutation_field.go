package loom

// FieldWrite implements spec.md §4.3: field_write(container, key,
// value) for maps and elements, preserving shape/data consistency via
// the same-type fast path or the shape-rebuild slow path.
func FieldWrite(alloc *Allocator, shapes *ShapePool, cfg *Config, c *Container, key string, value Cell, span Span) error {
	entry, ok := c.Shape.field(key)
	if !ok {
		return &UnknownFieldError{Field: key, Span: span}
	}

	valType := typeOf(value)

	if valType.Equal(entry.Type) {
		return writeFieldInPlace(c, entry, value)
	}

	if coerced, ok := coerceFieldValue(cfg, entry, value); ok {
		return writeFieldInPlace(c, entry, coerced)
	}

	if !fieldRequiresRebuild(cfg, entry, valType) {
		// Reached when the value is null and
		// mutation.field.rebuild_on_container_null is false: the null is
		// written into the existing slot and the shape is kept.
		return writeFieldInPlace(c, entry, value)
	}

	return rebuildShapeAndWrite(alloc, shapes, c, entry, key, value, span)
}

func writeFieldInPlace(c *Container, entry FieldEntry, value Cell) error {
	old := c.cells.Data[entry.Offset]
	if old.Tag == CellContainer {
		old.ref.Release()
	}
	if value.Tag == CellContainer {
		value.ref.Retain()
	}
	c.cells.Data[entry.Offset] = value
	return nil
}

// coerceFieldValue implements the "permitted same-path coercions
// without shape rebuild" list of spec.md §4.3: float field + int
// value widens; int64 field + int32 value sign-extends. int32 field +
// int32 value is already handled by the exact-match fast path above.
func coerceFieldValue(cfg *Config, entry FieldEntry, value Cell) (Cell, bool) {
	switch entry.Type.Kind {
	case TypeFloat64:
		if f, ok := unboxFloat64(value); ok && value.Tag != CellFloat64 {
			return Float64Cell(f), true
		}
	case TypeInt64:
		if value.Tag == CellInt32 {
			return Int64Cell(int64(value.i32)), true
		}
	}
	return Cell{}, false
}

// fieldRequiresRebuild decides, for a value type incompatible with the
// shape's declared type and not covered by coerceFieldValue, whether a
// shape rebuild is needed. Per SPEC_FULL.md's Open Question decisions:
// int32→float always rebuilds (coerceFieldValue already handles the
// opposite direction, float-field-gets-int, in place) and a null value
// rebuilds the shape rather than leaving a pointer-typed slot, unless
// mutation.field.rebuild_on_container_null is false.
func fieldRequiresRebuild(cfg *Config, entry FieldEntry, valType *TypeDescriptor) bool {
	if valType.Kind == TypeNull && !cfg.GetBool("mutation.field.rebuild_on_container_null") {
		return false
	}
	return true
}

// rebuildShapeAndWrite implements the shape-rebuild slow path of
// spec.md §4.3: clone the shape with the target field retyped, copy
// every other field into a freshly allocated buffer sized for the new
// shape, store the new value, and release the old buffer per the
// two-allocator discipline.
func rebuildShapeAndWrite(alloc *Allocator, shapes *ShapePool, c *Container, oldEntry FieldEntry, key string, value Cell, span Span) error {
	newShape := shapes.Rebuild(c.Shape, key, typeOf(value))

	newBuf, err := Alloc[Cell](alloc, newShape.TotalSize)
	if err != nil {
		return &AllocationFailureError{Pool: ScriptPool.String(), Size: newShape.TotalSize, Span: span}
	}

	for _, f := range newShape.Fields {
		if f.Name == key {
			continue
		}
		oldF, ok := c.Shape.field(f.Name)
		if !ok {
			continue
		}
		newBuf.Data[f.Offset] = c.cells.Data[oldF.Offset]
	}

	target, _ := newShape.field(key)
	old := Cell{}
	if oldEntry.Offset < len(c.cells.Data) {
		old = c.cells.Data[oldEntry.Offset]
	}
	if old.Tag == CellContainer {
		old.ref.Release()
	}
	if value.Tag == CellContainer {
		value.ref.Retain()
	}
	newBuf.Data[target.Offset] = value

	releaseOldBuffer(alloc, c, c.cells)

	c.Shape = newShape
	c.cells = newBuf
	c.Length = len(newBuf.Data)
	c.Capacity = len(newBuf.Data)
	return nil
}

// FieldRead returns a field's current value via the container's shape,
// used by the interpreter and by round-trip tests
// (write(C,k,v); read(C,k) == v, spec.md §8).
func FieldRead(c *Container, key string, span Span) (Cell, error) {
	entry, ok := c.Shape.field(key)
	if !ok {
		return Cell{}, &UnknownFieldError{Field: key, Span: span}
	}
	return c.cells.Data[entry.Offset], nil
}
