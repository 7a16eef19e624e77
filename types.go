package loom

// TypeKind enumerates the static types the analyzer and mutation runtime
// reason about: primitives, the universal tagged-any representation used
// once a binding widens, and the container shapes.
type TypeKind uint8

const (
	TypeUnknown TypeKind = iota
	TypeNull
	TypeBool
	TypeInt32
	TypeInt64
	TypeFloat64
	TypeString
	TypeAny // universal tagged-cell representation
	TypeArray
	TypeList
	TypeMap
	TypeElement
	TypeFunc
)

func (k TypeKind) String() string {
	switch k {
	case TypeNull:
		return "null"
	case TypeBool:
		return "bool"
	case TypeInt32:
		return "int32"
	case TypeInt64:
		return "int64"
	case TypeFloat64:
		return "float64"
	case TypeString:
		return "string"
	case TypeAny:
		return "any"
	case TypeArray:
		return "array"
	case TypeList:
		return "list"
	case TypeMap:
		return "map"
	case TypeElement:
		return "element"
	case TypeFunc:
		return "func"
	default:
		return "unknown"
	}
}

// isNumeric reports whether k belongs to the numeric family the analyzer
// permits widening/rounding coercions within (spec §4.1).
func (k TypeKind) isNumeric() bool {
	switch k {
	case TypeInt32, TypeInt64, TypeFloat64:
		return true
	default:
		return false
	}
}

// TypeDescriptor is the static type attached to a Binding and to every
// expression the analyzer visits. Container descriptors additionally
// carry the element/shape type where relevant; scalar descriptors need
// only Kind.
type TypeDescriptor struct {
	Kind TypeKind
	// Elem is the element type for TypeArray/TypeList; nil for scalars
	// and for maps/elements, whose layout lives in a ShapeDescriptor
	// instead.
	Elem *TypeDescriptor
}

func scalarType(k TypeKind) *TypeDescriptor { return &TypeDescriptor{Kind: k} }

var (
	typeNull    = scalarType(TypeNull)
	typeBool    = scalarType(TypeBool)
	typeInt32   = scalarType(TypeInt32)
	typeInt64   = scalarType(TypeInt64)
	typeFloat64 = scalarType(TypeFloat64)
	typeString  = scalarType(TypeString)
	typeAny     = scalarType(TypeAny)
	typeFunc    = scalarType(TypeFunc)
)

func (t *TypeDescriptor) String() string {
	if t == nil {
		return "unknown"
	}
	return t.Kind.String()
}

func (t *TypeDescriptor) Equal(other *TypeDescriptor) bool {
	if t == nil || other == nil {
		return t == other
	}
	if t.Kind != other.Kind {
		return false
	}
	if t.Kind == TypeArray || t.Kind == TypeList {
		return t.Elem.Equal(other.Elem)
	}
	return true
}

// IsNumeric reports whether t is in the numeric family used by the
// annotated-coercion and specialized-array-write rules.
func (t *TypeDescriptor) IsNumeric() bool { return t != nil && t.Kind.isNumeric() }
