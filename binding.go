package loom

// Binding is the Name Table's record for one declared name: spec.md
// §3's Binding record. Consumed by the Assignment Analyzer (reads and
// updates TypeWidened) and the Emitter (reads every field).
type Binding struct {
	Name               string
	DeclaredType       *TypeDescriptor
	IsMutable          bool // true for `var`, false for `let`/parameters
	HasTypeAnnotation  bool
	TypeWidened        bool // monotone false→true
	Captured           bool // set by the Closure Capture Promoter
	CaptureMutable     bool // meaningful only when Captured
	DeclSpan           Span
	scope              *Scope
}

// Scope is one function/block's slice of the Name Table: a flat map of
// declared names plus a back-pointer to the enclosing scope, forming
// the scope chain spec.md §3 calls out as the binding's capture-
// detection back-reference.
type Scope struct {
	Parent  *Scope
	names   map[string]*Binding
	isFunc  bool // true for function-body scopes, false for nested blocks
}

func NewScope(parent *Scope, isFunc bool) *Scope {
	return &Scope{Parent: parent, names: make(map[string]*Binding), isFunc: isFunc}
}

// Declare adds a new binding to this scope. Redeclaration within the
// same scope overwrites the previous binding, matching the "unique
// within scope" invariant (spec.md §3) by construction rather than by
// an explicit duplicate check — shadowing across scopes is legal and
// handled by scope-chain lookup order.
func (s *Scope) Declare(b *Binding) {
	b.scope = s
	s.names[b.Name] = b
}

// Resolve looks a name up through the scope chain, innermost first,
// implementing the lookup step of spec.md §4.1's analyze().
func (s *Scope) Resolve(name string) (*Binding, bool) {
	for cur := s; cur != nil; cur = cur.Parent {
		if b, ok := cur.names[name]; ok {
			return b, true
		}
	}
	return nil, false
}

// EnclosingFunc walks up to the nearest function-body scope, used by
// the Closure Capture Promoter to decide whether a resolved name is
// local to the current function or a candidate free-name capture.
func (s *Scope) EnclosingFunc() *Scope {
	for cur := s; cur != nil; cur = cur.Parent {
		if cur.isFunc {
			return cur
		}
	}
	return nil
}
