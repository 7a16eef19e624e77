package loom

import "strings"

// FieldEntry is one named slot in a ShapeDescriptor: its static type
// and its position in the container's data buffer. Loom represents a
// container's data buffer as a []Cell rather than raw bytes — Go has
// no idiomatic manual byte-packing story the way the source language's
// runtime does — so Offset is a slot index and Size is always 1 cell;
// what the spec's byte-offset invariant actually protects (the shape
// always describing the true layout of the data buffer, recomputed on
// every rebuild rather than patched) is preserved exactly.
type FieldEntry struct {
	Name   string
	Type   *TypeDescriptor
	Offset int
	Size   int
}

// ShapeDescriptor is an interned, immutable field layout shared by
// every map/element container whose fields have the same ordered
// sequence of (name, type) pairs (spec.md §3). A field-type change
// never edits a ShapeDescriptor in place; it produces (or reuses) a
// different one via the ShapePool.
type ShapeDescriptor struct {
	Fields    []FieldEntry
	TotalSize int // cell count of the data buffer this shape describes

	// ElementTag/ElementNamespace carry element-specific metadata that
	// survives a shape rebuild (spec.md §4.3, "For element containers,
	// the new shape carries across the element-specific metadata").
	ElementTag       string
	ElementNamespace string
}

func (s *ShapeDescriptor) indexOf(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

func (s *ShapeDescriptor) field(name string) (FieldEntry, bool) {
	i := s.indexOf(name)
	if i < 0 {
		return FieldEntry{}, false
	}
	return s.Fields[i], true
}

// withFieldType returns the ordered (name, type) pairs of s with name's
// type replaced by typ, used to compute the key of the rebuilt shape
// before interning it.
func (s *ShapeDescriptor) withFieldType(name string, typ *TypeDescriptor) []FieldEntry {
	out := make([]FieldEntry, len(s.Fields))
	offset := 0
	for i, f := range s.Fields {
		nf := f
		if f.Name == name {
			nf.Type = typ
		}
		nf.Offset = offset
		out[i] = nf
		offset += nf.Size
	}
	return out
}

// ShapePool interns ShapeDescriptors so two maps/elements with the
// same ordered (name, type) sequence share one pointer — grounded on
// the teacher's `grammar_compiler.go` string-interning table
// (`stringsMap`), generalized from string dedup to field-shape dedup.
type ShapePool struct {
	shapes map[string]*ShapeDescriptor
}

func NewShapePool() *ShapePool {
	return &ShapePool{shapes: make(map[string]*ShapeDescriptor)}
}

func shapeKey(fields []FieldEntry, elementTag, elementNS string) string {
	var b strings.Builder
	b.WriteString(elementTag)
	b.WriteByte(0)
	b.WriteString(elementNS)
	for _, f := range fields {
		b.WriteByte(0)
		b.WriteString(f.Name)
		b.WriteByte(0)
		b.WriteString(f.Type.String())
	}
	return b.String()
}

// Intern returns the canonical ShapeDescriptor for the given ordered
// fields, allocating and caching a new one only if this exact sequence
// hasn't been seen before. Shapes are always interned from script_pool
// bookkeeping (spec.md §4.3: "Shape descriptors are always allocated
// from script_pool... lifetime-bound to the execution").
func (p *ShapePool) Intern(fields []FieldEntry, elementTag, elementNS string) *ShapeDescriptor {
	key := shapeKey(fields, elementTag, elementNS)
	if s, ok := p.shapes[key]; ok {
		return s
	}
	total := 0
	for _, f := range fields {
		total += f.Size
	}
	s := &ShapeDescriptor{
		Fields:           fields,
		TotalSize:        total,
		ElementTag:       elementTag,
		ElementNamespace: elementNS,
	}
	p.shapes[key] = s
	return s
}

// Rebuild computes the interned shape for s with name's field retyped
// to typ, implementing the "construct a new shape descriptor by
// cloning the old shape, replacing the target field's type" step of
// spec.md §4.3.
func (p *ShapePool) Rebuild(s *ShapeDescriptor, name string, typ *TypeDescriptor) *ShapeDescriptor {
	fields := s.withFieldType(name, typ)
	return p.Intern(fields, s.ElementTag, s.ElementNamespace)
}
