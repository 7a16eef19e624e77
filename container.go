package loom

// ContainerKind is the "shape axis" of spec.md §3: which of the six
// container variants a Container currently is. The kind tag may be
// reassigned in place (specialized→generic conversion, §4.2) without
// relocating the Container, because every variant below shares exactly
// the same Go struct — there is no per-kind type to switch between, so
// the "layout-identical header" invariant holds by construction the
// way the teacher's `tree.go` node struct holds it by reusing one flat
// struct across `NodeType_String/Sequence/Node/Error`.
type ContainerKind uint8

const (
	KindGenericArray ContainerKind = iota
	KindSpecInt56
	KindSpecInt64
	KindSpecFloat64
	KindList
	KindMap
	KindElement
)

func (k ContainerKind) String() string {
	switch k {
	case KindGenericArray:
		return "array"
	case KindSpecInt56:
		return "array<int56>"
	case KindSpecInt64:
		return "array<int64>"
	case KindSpecFloat64:
		return "array<float64>"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindElement:
		return "element"
	default:
		return "container"
	}
}

func (k ContainerKind) isSpecialized() bool {
	return k == KindSpecInt56 || k == KindSpecInt64 || k == KindSpecFloat64
}

// Container is the shared six-variant header of spec.md §3: kind tag,
// origin flags, refcount, length/capacity, and the (mutually
// exclusive, by Kind) data buffers. Exactly one of cells/rawInt/
// rawFloat is populated at a time; which one is determined by Kind,
// never guessed from which pointer is non-nil.
type Container struct {
	Kind ContainerKind

	// Origin axis (spec.md §3). isHeap is set at construction and never
	// changes. isDataMigrated transitions false→true exactly once, on
	// the first mutation of a parser-origin container.
	isHeap         bool
	isDataMigrated bool

	refcount int

	Length   int
	Capacity int

	cells    *Buffer[Cell]
	rawInt   *Buffer[int64]
	rawFloat *Buffer[float64]

	// Shape describes the field layout backing `cells` for KindMap and
	// the attribute half of KindElement. nil for array/list/specialized
	// kinds.
	Shape *ShapeDescriptor

	// elementChildren holds KindElement's ordered child list, since an
	// element extends both map (named attributes, via cells+Shape) and
	// list (ordered children, spec.md §3).
	elementChildren *Buffer[Cell]
}

func (c *Container) typeDescriptor() *TypeDescriptor {
	switch c.Kind {
	case KindList:
		return &TypeDescriptor{Kind: TypeList, Elem: typeAny}
	case KindMap:
		return scalarType(TypeMap)
	case KindElement:
		return scalarType(TypeElement)
	default:
		return &TypeDescriptor{Kind: TypeArray, Elem: c.elemType()}
	}
}

func (c *Container) elemType() *TypeDescriptor {
	switch c.Kind {
	case KindSpecInt56, KindSpecInt64:
		return typeInt64
	case KindSpecFloat64:
		return typeFloat64
	default:
		return typeAny
	}
}

func (c *Container) String() string {
	return c.Kind.String()
}

// Retain increments the container's reference count; paired with
// Release around every displacement the mutation runtime performs
// (spec.md §9).
func (c *Container) Retain() {
	if c != nil {
		c.refcount++
	}
}

// Release decrements the container's reference count and, once it
// reaches zero, releases every contained Cell's own container
// reference in turn. Freeing the container's own backing data buffer
// back to an allocator is left to the mutation routines that replace
// it (index-write/field-write rebuild paths), since those are the
// sites that already hold the right Allocator and origin information;
// full destructor-driven deallocation is out of scope (no tracing GC,
// spec.md §1 Non-goals).
func (c *Container) Release() {
	if c == nil {
		return
	}
	c.refcount--
	if c.refcount > 0 {
		return
	}
	if c.cells != nil {
		for _, cell := range c.cells.Data {
			if cell.Tag == CellContainer {
				cell.ref.Release()
			}
		}
	}
	if c.elementChildren != nil {
		for _, cell := range c.elementChildren.Data {
			if cell.Tag == CellContainer {
				cell.ref.Release()
			}
		}
	}
}

// NewGenericArray builds a generic array/list backed by cells.
func NewGenericArray(kind ContainerKind, cells *Buffer[Cell], isHeap bool) *Container {
	return &Container{
		Kind:     kind,
		isHeap:   isHeap,
		refcount: 1,
		Length:   len(cells.Data),
		Capacity: len(cells.Data),
		cells:    cells,
	}
}

// NewSpecializedInt builds a specialized int56/int64 array.
func NewSpecializedInt(kind ContainerKind, raw *Buffer[int64], isHeap bool) *Container {
	return &Container{
		Kind:     kind,
		isHeap:   isHeap,
		refcount: 1,
		Length:   len(raw.Data),
		Capacity: len(raw.Data),
		rawInt:   raw,
	}
}

// NewSpecializedFloat builds a specialized float64 array.
func NewSpecializedFloat(raw *Buffer[float64], isHeap bool) *Container {
	return &Container{
		Kind:     KindSpecFloat64,
		isHeap:   isHeap,
		refcount: 1,
		Length:   len(raw.Data),
		Capacity: len(raw.Data),
		rawFloat: raw,
	}
}

// NewMap builds a map container over an interned shape.
func NewMap(shape *ShapeDescriptor, cells *Buffer[Cell], isHeap bool) *Container {
	return &Container{
		Kind:     KindMap,
		isHeap:   isHeap,
		refcount: 1,
		Length:   len(cells.Data),
		Capacity: len(cells.Data),
		cells:    cells,
		Shape:    shape,
	}
}

// releaseOldBuffer implements the two-allocator discipline table of
// spec.md §4.3 for a buffer being displaced during a rebuild or a
// specialized→generic conversion: script-origin containers always
// free the displaced buffer back to script_pool; a parser-origin
// container's *first* mutation must not free it (it belongs to
// parser_pool, whose free-list this runtime never touches) but instead
// flips isDataMigrated so every later mutation frees normally.
func releaseOldBuffer[T any](alloc *Allocator, c *Container, old *Buffer[T]) {
	if c.isHeap {
		Free(alloc, old)
		return
	}
	if !c.isDataMigrated {
		c.isDataMigrated = true
		return
	}
	Free(alloc, old)
}

// NewElement builds an element container: a map's named attributes
// (shape + cells) plus an ordered child list.
func NewElement(shape *ShapeDescriptor, attrs, children *Buffer[Cell], isHeap bool) *Container {
	return &Container{
		Kind:            KindElement,
		isHeap:          isHeap,
		refcount:        1,
		Length:          len(children.Data),
		Capacity:        len(children.Data),
		cells:           attrs,
		Shape:           shape,
		elementChildren: children,
	}
}
