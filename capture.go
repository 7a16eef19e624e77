package loom

// CaptureRecord is spec.md §3's Capture record: one per free identifier
// an inner function references, built by the Closure Capture Promoter
// and consumed by env.go (build_env) and by the emitter/interpreter to
// decide how reads/writes of the name are compiled.
type CaptureRecord struct {
	Name      string
	Binding   *Binding
	IsMutable bool
	// EnvSlot is this capture's index into the closure's env record.
	// Only meaningful when IsMutable; assigned by build_env.
	EnvSlot int
}

// PromoteCaptures implements spec.md §4.4's two-pass analysis for one
// function literal: free-name collection, then mutation detection.
// Nested function literals are promoted first (recursively), and any
// of their own captures that are themselves free relative to fn are
// folded into fn's capture list too — a closure nested two levels deep
// that writes to a grandparent's variable makes the middle closure a
// mutable capturer of that variable as well.
func PromoteCaptures(fn *FuncLit) []*CaptureRecord {
	c := &captureFinder{fn: fn, found: make(map[string]*CaptureRecord)}
	c.Self = c
	for _, s := range fn.Body {
		WalkStmt(c, s)
	}
	fn.Captures = c.order
	return c.order
}

type captureFinder struct {
	BaseVisitor
	fn    *FuncLit
	found map[string]*CaptureRecord
	order []*CaptureRecord
}

func (c *captureFinder) VisitIdent(n *Ident) {
	c.maybeCapture(n.Binding)
}

func (c *captureFinder) VisitAssign(n *AssignStmt) {
	c.BaseVisitor.VisitAssign(n)
	if n.TargetKind != TargetName {
		return
	}
	// Mutation detection (spec.md §4.4 step 2): this step must be
	// performed on assignment statements specifically; reads alone
	// (handled by VisitIdent above, reached via BaseVisitor's recursion
	// into n.Value) imply read-only.
	if rec := c.maybeCapture(n.Binding); rec != nil {
		rec.IsMutable = true
		rec.Binding.CaptureMutable = true
	}
}

func (c *captureFinder) VisitFuncLit(n *FuncLit) {
	nested := PromoteCaptures(n)
	for _, rec := range nested {
		if outer := c.maybeCapture(rec.Binding); outer != nil && rec.IsMutable {
			outer.IsMutable = true
			outer.Binding.CaptureMutable = true
		}
	}
}

// maybeCapture records b as a capture of c.fn if b is free relative to
// c.fn's own body scope (declared outside the function, not merely in
// a nested block within it), returning the (possibly pre-existing)
// CaptureRecord, or nil if b is local to c.fn. Marks the Binding itself
// Captured, the flag the Emitter Contract's table keys off of.
func (c *captureFinder) maybeCapture(b *Binding) *CaptureRecord {
	if b == nil || isLocalTo(b, c.fn.BodyScope) {
		return nil
	}
	if rec, ok := c.found[b.Name]; ok {
		return rec
	}
	b.Captured = true
	rec := &CaptureRecord{Name: b.Name, Binding: b}
	c.found[b.Name] = rec
	c.order = append(c.order, rec)
	return rec
}

// isLocalTo reports whether b was declared within fnScope or one of
// its nested block scopes, as opposed to an enclosing scope.
func isLocalTo(b *Binding, fnScope *Scope) bool {
	for s := b.scope; s != nil; s = s.Parent {
		if s == fnScope {
			return true
		}
	}
	return false
}
