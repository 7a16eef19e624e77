package loom

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// ParseJSONMap decodes a flat JSON object into a parser-origin map
// container: its backing buffer carries Origin: ParserPool and the
// container's isHeap is false, so every field written into it
// afterward goes through the two-allocator discipline's
// first-mutation-doesn't-free rule (container.go's releaseOldBuffer)
// exactly the way spec.md §4.3 describes for "a container built by an
// input parser" — grounded on the teacher's own use of encoding/json
// for its LSP wire protocol (lsp/engine.go's json.Unmarshal/
// json.RawMessage traffic), the pack's only precedent for decoding an
// external format into this module's own value representation.
//
// Only JSON's scalar types (number, string, bool, null) are supported
// per field; a nested object or array is out of scope (SPEC_FULL.md's
// Container Mutation Runtime module only names flat map/element field
// writes, never a recursive literal format).
func ParseJSONMap(shapes *ShapePool, data []byte) (*Container, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("loom: parsing JSON map: %w", err)
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]FieldEntry, len(names))
	cells := make([]Cell, len(names))
	for i, name := range names {
		cell, typ := cellFromJSON(raw[name])
		cells[i] = cell
		fields[i] = FieldEntry{Name: name, Type: typ, Offset: i, Size: 1}
	}

	shape := shapes.Intern(fields, "", "")
	buf := &Buffer[Cell]{Origin: ParserPool, Data: cells}
	return NewMap(shape, buf, false), nil
}

// cellFromJSON converts one decoded JSON value (json.Number, string,
// bool, or nil) into a Cell and the TypeDescriptor a shape field
// should declare for it. json.Number is split into int32/int64/float64
// the same way coerceNumeric's callers already distinguish those
// kinds, rather than collapsing every JSON number into float64.
func cellFromJSON(v any) (Cell, *TypeDescriptor) {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			if i >= math.MinInt32 && i <= math.MaxInt32 {
				return Int32Cell(int32(i)), typeInt32
			}
			return Int64Cell(i), typeInt64
		}
		f, _ := val.Float64()
		return Float64Cell(f), typeFloat64
	case string:
		return StringCell(val), typeString
	case bool:
		return BoolCell(val), typeBool
	default:
		return NullCell, typeNull
	}
}
