package loom

import "fmt"

// CellTag is the discriminant of a Cell, playing the role spec.md's
// tagged-cell "tag bits" play in the real 64-bit representation: Loom
// keeps cells as a small Go struct rather than packing bits into a
// machine word, but every operation in this file treats Cell the way
// the spec treats the abstract tagged cell — box/unbox/typeOf only.
type CellTag uint8

const (
	CellNull CellTag = iota
	CellBool
	CellInt32
	CellInt64
	CellFloat64
	CellString
	CellContainer
	CellFunc
)

// Cell is the 64-bit tagged value cell of spec.md §3: either a small
// immediate (bool, int32, null) or a pointer-plus-tag referencing a
// heap payload (string, boxed int64/float64, container, function).
type Cell struct {
	Tag  CellTag
	i32  int32
	i64  int64
	f64  float64
	str  string
	ref  *Container
	fn   *Closure
}

var NullCell = Cell{Tag: CellNull}

func BoolCell(v bool) Cell {
	var i int32
	if v {
		i = 1
	}
	return Cell{Tag: CellBool, i32: i}
}

func Int32Cell(v int32) Cell   { return Cell{Tag: CellInt32, i32: v} }
func Int64Cell(v int64) Cell   { return Cell{Tag: CellInt64, i64: v} }
func Float64Cell(v float64) Cell { return Cell{Tag: CellFloat64, f64: v} }
func StringCell(v string) Cell { return Cell{Tag: CellString, str: v} }
func FuncCell(c *Closure) Cell { return Cell{Tag: CellFunc, fn: c} }

// ContainerCell boxes a container reference, incrementing its refcount:
// every displacement in a mutation path pairs one increment on the
// incoming value with one decrement on the displaced one (spec.md §9).
func ContainerCell(c *Container) Cell {
	if c != nil {
		c.Retain()
	}
	return Cell{Tag: CellContainer, ref: c}
}

// typeOf returns the static TypeDescriptor a tagged cell presents to
// the analyzer/runtime, used when reconciling a fresh value's type
// against a binding's or a shape field's declared type.
func typeOf(c Cell) *TypeDescriptor {
	switch c.Tag {
	case CellNull:
		return typeNull
	case CellBool:
		return typeBool
	case CellInt32:
		return typeInt32
	case CellInt64:
		return typeInt64
	case CellFloat64:
		return typeFloat64
	case CellString:
		return typeString
	case CellFunc:
		return typeFunc
	case CellContainer:
		if c.ref == nil {
			return typeNull
		}
		return c.ref.typeDescriptor()
	default:
		return typeAny
	}
}

// unboxInt64 extracts a raw 56/64-bit integer from a cell that is
// known (by the caller's dispatch) to carry one, widening int32 as
// needed. Used by index_write when writing into a specialized-int
// container slot.
func unboxInt64(c Cell) (int64, bool) {
	switch c.Tag {
	case CellInt32:
		return int64(c.i32), true
	case CellInt64:
		return c.i64, true
	default:
		return 0, false
	}
}

// unboxFloat64 extracts a raw double from a cell that is int or float,
// widening integers to double, for specialized-float64 array writes.
func unboxFloat64(c Cell) (float64, bool) {
	switch c.Tag {
	case CellFloat64:
		return c.f64, true
	case CellInt32:
		return float64(c.i32), true
	case CellInt64:
		return float64(c.i64), true
	default:
		return 0, false
	}
}

// coerceNumeric implements spec.md §4.1's "widening or rounding
// coercion" for an assignment to an annotated numeric binding whose
// declared type differs from the right-hand side's: narrowing
// (float64->int32/int64) truncates, widening (int32/int64->float64,
// int32->int64) converts exactly. Used only once both sides are
// already known to be in the numeric family; a value already matching
// bindType is returned unchanged.
func coerceNumeric(bindType *TypeDescriptor, value Cell) Cell {
	switch bindType.Kind {
	case TypeInt32:
		switch value.Tag {
		case CellFloat64:
			return Int32Cell(int32(value.f64))
		case CellInt64:
			return Int32Cell(int32(value.i64))
		}
	case TypeInt64:
		switch value.Tag {
		case CellFloat64:
			return Int64Cell(int64(value.f64))
		case CellInt32:
			return Int64Cell(int64(value.i32))
		}
	case TypeFloat64:
		if f, ok := unboxFloat64(value); ok {
			return Float64Cell(f)
		}
	}
	return value
}

func (c Cell) String() string {
	switch c.Tag {
	case CellNull:
		return "null"
	case CellBool:
		return fmt.Sprintf("%t", c.i32 != 0)
	case CellInt32:
		return fmt.Sprintf("%d", c.i32)
	case CellInt64:
		return fmt.Sprintf("%d", c.i64)
	case CellFloat64:
		return fmt.Sprintf("%g", c.f64)
	case CellString:
		return c.str
	case CellFunc:
		return "<func>"
	case CellContainer:
		if c.ref == nil {
			return "null"
		}
		return c.ref.String()
	default:
		return "<cell>"
	}
}

// Closure is the runtime value produced by constructing a function
// literal: the compiled body plus its own env record holding the
// mutable captures (spec.md §3 "Env record").
type Closure struct {
	Def       *FuncLit
	Env       *EnvRecord
	Snapshots map[*Binding]Cell
}
