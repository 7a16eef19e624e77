package loom

// fitsInt56 reports whether v fits the packed 56-bit signed range the
// KindSpecInt56 variant stores children in.
func fitsInt56(v int64) bool {
	const (
		min = -(1 << 55)
		max = (1 << 55) - 1
	)
	return v >= min && v <= max
}

// IndexWrite implements spec.md §4.2: index_write(container, index,
// value). It preserves the container's identity (pointer) and its
// structural consistency, dispatching on the container's kind tag in a
// flat switch the way the teacher's vm.go dispatches on VM opcode.
func IndexWrite(alloc *Allocator, c *Container, index int, value Cell, span Span) error {
	if index < 0 || index >= c.Length {
		return &IndexOutOfBoundsError{Index: int64(index), Length: int64(c.Length), Span: span}
	}

	switch c.Kind {
	case KindGenericArray, KindList, KindElement:
		return genericIndexWrite(c, index, value)

	case KindSpecInt56:
		if v, ok := unboxInt64(value); ok && fitsInt56(v) {
			c.rawInt.Data[index] = v
			return nil
		}
		if err := convertSpecializedToGeneric(alloc, c, span); err != nil {
			return err
		}
		return genericIndexWrite(c, index, value)

	case KindSpecInt64:
		if v, ok := unboxInt64(value); ok {
			c.rawInt.Data[index] = v
			return nil
		}
		if err := convertSpecializedToGeneric(alloc, c, span); err != nil {
			return err
		}
		return genericIndexWrite(c, index, value)

	case KindSpecFloat64:
		if v, ok := unboxFloat64(value); ok {
			c.rawFloat.Data[index] = v
			return nil
		}
		if err := convertSpecializedToGeneric(alloc, c, span); err != nil {
			return err
		}
		return genericIndexWrite(c, index, value)

	default:
		return genericIndexWrite(c, index, value)
	}
}

func genericIndexWrite(c *Container, index int, value Cell) error {
	old := c.cells.Data[index]
	if old.Tag == CellContainer {
		old.ref.Release()
	}
	c.cells.Data[index] = value
	return nil
}

// convertSpecializedToGeneric implements the central algorithm of
// spec.md §4.2: box every existing raw slot into a tagged cell,
// release the old specialized buffer per the two-allocator discipline,
// and reassign the container's kind tag in place so every outstanding
// reference observes the new kind on its next read.
func convertSpecializedToGeneric(alloc *Allocator, c *Container, span Span) error {
	newBuf, err := Alloc[Cell](alloc, c.Length)
	if err != nil {
		return &AllocationFailureError{Pool: ScriptPool.String(), Size: c.Length, Span: span}
	}

	switch c.Kind {
	case KindSpecInt56, KindSpecInt64:
		for i, v := range c.rawInt.Data {
			newBuf.Data[i] = Int64Cell(v)
		}
		releaseOldBuffer(alloc, c, c.rawInt)
		c.rawInt = nil
	case KindSpecFloat64:
		for i, v := range c.rawFloat.Data {
			newBuf.Data[i] = Float64Cell(v)
		}
		releaseOldBuffer(alloc, c, c.rawFloat)
		c.rawFloat = nil
	default:
		return nil // already generic; nothing to convert
	}

	c.Kind = KindGenericArray
	c.cells = newBuf
	return nil
}

// SpecializedReadWithFallback implements spec.md §6's
// specialized_read_with_fallback: reads check the kind tag first and
// delegate to the generic read if the container has since been
// converted, so a read compiled against the specialized layout before
// a conversion still observes the post-conversion value.
func SpecializedReadWithFallback(c *Container, index int, span Span) (Cell, error) {
	if index < 0 || index >= c.Length {
		return Cell{}, &IndexOutOfBoundsError{Index: int64(index), Length: int64(c.Length), Span: span}
	}
	switch c.Kind {
	case KindSpecInt56, KindSpecInt64:
		return Int64Cell(c.rawInt.Data[index]), nil
	case KindSpecFloat64:
		return Float64Cell(c.rawFloat.Data[index]), nil
	default:
		// Converted since the read site was compiled: fall back to the
		// generic read.
		return c.cells.Data[index], nil
	}
}
