package loom

// Analyze implements spec.md §4.1's Assignment Analyzer: it visits
// every assignment statement (including those nested inside function
// literals), resolves the target's binding, rejects writes to
// immutable bindings, and reconciles the binding's static type against
// each assignment's right-hand side, widening to the tagged
// representation when required.
//
// Ordering guarantee. Because every reference to a binding shares the
// same *Binding pointer, and the emitter and interpreter only consult
// Binding.TypeWidened after analysis has finished (never while
// walking), one forward pass over source order already gives a
// widening triggered by a later assignment the same effect as if it
// had been visible to earlier references — there is no need for a
// second fix-point pass or for per-reference caching of the binding's
// storage class.
func Analyze(prog *Program, cfg *Config) []error {
	a := &analyzerPass{cfg: cfg}
	a.Self = a
	for _, s := range prog.Stmts {
		WalkStmt(a, s)
	}
	return a.errs
}

type analyzerPass struct {
	BaseVisitor
	cfg  *Config
	errs []error
}

func (a *analyzerPass) VisitAssign(n *AssignStmt) {
	a.BaseVisitor.VisitAssign(n)

	if n.TargetKind != TargetName {
		// spec.md §4.1: the mutability/type-reconciliation checks below
		// apply only to simple-name targets; index/field writes mutate
		// a container's contents, not a variable binding, and are
		// handled entirely by the Container Mutation Runtime.
		return
	}

	b := n.Binding
	if b == nil {
		a.errs = append(a.errs, &UnknownBindingError{Name: n.Name, Span: n.Span})
		return
	}

	if !b.IsMutable {
		a.errs = append(a.errs, &ImmutableAssignmentError{Name: n.Name, Span: n.Span})
		return
	}

	a.reconcile(b, n.Value.StaticType(), n.Span)
}

// reconcile implements the type-reconciliation table of spec.md §4.1.
func (a *analyzerPass) reconcile(b *Binding, valType *TypeDescriptor, span Span) {
	bindType := b.DeclaredType

	if valType.Equal(bindType) {
		return
	}

	if b.HasTypeAnnotation {
		if valType.Kind == TypeAny || valType.Kind == TypeNull {
			return
		}
		if valType.IsNumeric() && bindType.IsNumeric() {
			return
		}
		a.errs = append(a.errs, &AnnotatedTypeMismatchError{
			Name:     b.Name,
			Declared: bindType.String(),
			Got:      valType.String(),
			Span:     span,
		})
		return
	}

	if b.TypeWidened {
		return
	}

	if bindType.Kind == TypeNull || bindType.Kind == TypeAny {
		return
	}

	if a.cfg != nil && !a.cfg.GetBool("analyzer.widen_unannotated") {
		return
	}

	b.TypeWidened = true
}
