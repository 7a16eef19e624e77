package loom

import (
	"fmt"
	"strings"
)

// outputWriter accumulates emitted Go source with explicit
// indent/unindent/writei bookkeeping — grounded on the teacher's
// gen_go.go outputWriter, kept nearly verbatim in shape: Loom's
// emitter drives the same writei/indent machinery from a switch over
// binding flag combinations instead of a switch over PEG grammar node
// kind.
type outputWriter struct {
	b     strings.Builder
	level int
}

func (w *outputWriter) indent()   { w.level++ }
func (w *outputWriter) unindent() { w.level-- }

func (w *outputWriter) writei(format string, args ...any) {
	for i := 0; i < w.level; i++ {
		w.b.WriteString("\t")
	}
	fmt.Fprintf(&w.b, format, args...)
}

func (w *outputWriter) write(format string, args ...any) {
	fmt.Fprintf(&w.b, format, args...)
}

// goEmitter realizes spec.md §2.3/§6's Emitter Contract: one concrete
// backend that turns an analyzed, capture-annotated Program into Go
// source text, parameterized entirely by each binding's
// (is_mutable, has_type_annotation, type_widened, captured,
// capture_mutable) flags (spec.md §9 "Emitter parameterization").
type goEmitter struct {
	w   outputWriter
	pkg string
}

// EmitGo renders prog as a standalone Go source file whose `main`
// mirrors the program's top-level statements, using loom's own
// runtime package for container mutation and env-record operations.
func EmitGo(prog *Program, pkg string) string {
	e := &goEmitter{pkg: pkg}
	e.w.writei("package %s\n\n", pkg)
	e.w.writei("import \"github.com/loom-lang/loom\"\n\n")
	e.w.writei("func main() {\n")
	e.w.indent()
	e.w.writei("alloc := loom.NewAllocator()\n")
	e.w.writei("shapes := loom.NewShapePool()\n")
	e.w.writei("cfg := loom.NewConfig()\n")
	e.w.writei("_ = alloc; _ = shapes; _ = cfg\n")
	for _, s := range prog.Stmts {
		e.emitStmt(s)
	}
	e.w.unindent()
	e.w.writei("}\n")
	return e.w.b.String()
}

// goType returns the Go storage type for a binding per the Emitter
// Contract's declaration row: a typed local slot for an un-widened
// binding, loom.Cell (the tagged representation) once widened.
func goType(b *Binding) string {
	if b.TypeWidened {
		return "loom.Cell"
	}
	switch b.DeclaredType.Kind {
	case TypeInt32:
		return "int32"
	case TypeInt64:
		return "int64"
	case TypeFloat64:
		return "float64"
	case TypeString:
		return "string"
	case TypeBool:
		return "bool"
	case TypeArray, TypeList, TypeMap, TypeElement:
		return "*loom.Container"
	case TypeFunc:
		return "loom.Cell"
	default:
		return "loom.Cell"
	}
}

// boxExpr wraps a Go expression producing a binding's native type into
// a loom.Cell constructor call, used at write sites whose source
// value is narrower than the tagged representation the destination
// expects (a widened binding, or any "pass to API expecting tagged"
// site per spec.md §6's table).
func boxExpr(t *TypeDescriptor, expr string) string {
	switch t.Kind {
	case TypeInt32:
		return fmt.Sprintf("loom.Int32Cell(%s)", expr)
	case TypeInt64:
		return fmt.Sprintf("loom.Int64Cell(%s)", expr)
	case TypeFloat64:
		return fmt.Sprintf("loom.Float64Cell(%s)", expr)
	case TypeString:
		return fmt.Sprintf("loom.StringCell(%s)", expr)
	case TypeBool:
		return fmt.Sprintf("loom.BoolCell(%s)", expr)
	default:
		return expr
	}
}

func (e *goEmitter) emitStmt(s Stmt) {
	switch n := s.(type) {
	case *DeclStmt:
		e.emitDecl(n)
	case *AssignStmt:
		e.emitAssign(n)
	case *ExprStmt:
		e.w.writei("_ = %s\n", e.emitExpr(n.X))
	case *PrintStmt:
		e.w.writei("println(loom.Display(%s))\n", e.toCell(n.X))
	case *BlockStmt:
		e.w.writei("{\n")
		e.w.indent()
		for _, s := range n.Stmts {
			e.emitStmt(s)
		}
		e.w.unindent()
		e.w.writei("}\n")
	}
}

// emitDecl implements the declaration row of spec.md §6's table: a
// typed local slot for a normal binding, a tagged-cell local slot for
// a widened one. A `let`/`var`-bound function literal additionally
// gets the full closure-construction treatment of §4.4 (env record
// plus read-only snapshots), rather than going through emitExpr's
// generic (restricted) FuncLit handling.
func (e *goEmitter) emitDecl(n *DeclStmt) {
	goName := goIdent(n.Name)
	if fn, ok := n.Init.(*FuncLit); ok {
		e.emitBoundClosure(goName, fn)
		return
	}
	if n.Binding.TypeWidened {
		e.w.writei("var %s loom.Cell = %s\n", goName, e.toCell(n.Init))
		return
	}
	e.w.writei("var %s %s = %s\n", goName, goType(n.Binding), e.emitExpr(n.Init))
}

func (e *goEmitter) emitAssign(n *AssignStmt) {
	switch n.TargetKind {
	case TargetName:
		e.emitNameAssign(n)
	case TargetIndex:
		recv := e.emitExpr(n.Receiver)
		idx := e.emitExpr(n.Index)
		e.w.writei("loom.IndexWrite(alloc, %s, int(%s), %s, loom.Span{})\n", recv, idx, e.toCell(n.Value))
	case TargetField:
		recv := e.emitExpr(n.Receiver)
		e.w.writei("loom.FieldWrite(alloc, shapes, cfg, %s, %q, %s, loom.Span{})\n", recv, n.Field, e.toCell(n.Value))
	}
}

// emitNameAssign implements the write row of spec.md §6's table for a
// simple-name target, further parameterized by whether the binding is
// captured (§4.4's emission contract) and, if so, whether the capture
// is mutable: a mutable capture always stores through the env record,
// boxing first unless the outer binding is already widened (no
// double-boxing, per §4.4's table).
func (e *goEmitter) emitNameAssign(n *AssignStmt) {
	b := n.Binding
	goName := goIdent(n.Name)

	if b.Captured && b.CaptureMutable {
		valExpr := e.emitExpr(n.Value)
		if !b.TypeWidened {
			valExpr = boxExpr(b.DeclaredType, valExpr)
		}
		e.w.writei("loom.EnvStore(env, %d, %s)\n", envSlotOf(b), valExpr)
		return
	}

	if b.TypeWidened {
		e.w.writei("%s = %s\n", goName, e.toCell(n.Value))
		return
	}

	valExpr := e.emitExpr(n.Value)
	if b.HasTypeAnnotation && b.DeclaredType.IsNumeric() {
		if vt := n.Value.StaticType(); vt.IsNumeric() && !vt.Equal(b.DeclaredType) {
			valExpr = coerceNumericExpr(b.DeclaredType, valExpr)
		}
	}
	e.w.writei("%s = %s\n", goName, valExpr)
}

// coerceNumericExpr wraps a Go expression in the numeric conversion
// matching coerceNumeric's runtime behavior, so an annotated numeric
// binding's assignment compiles to the same truncating/widening
// coercion the interpreter applies (spec.md §4.1's "widening or
// rounding coercion").
func coerceNumericExpr(bindType *TypeDescriptor, expr string) string {
	switch bindType.Kind {
	case TypeInt32:
		return fmt.Sprintf("int32(%s)", expr)
	case TypeInt64:
		return fmt.Sprintf("int64(%s)", expr)
	case TypeFloat64:
		return fmt.Sprintf("float64(%s)", expr)
	default:
		return expr
	}
}

// envSlotOf looks up a captured binding's env-record slot index for
// the closure body currently being emitted. Slot numbers are assigned
// by the emitter itself (in the same order it emits the matching
// loom.BuildEnv call in emitBoundClosure), since CaptureRecord.EnvSlot
// is only populated by BuildEnv at interpreter run time, not at
// compile time.
func envSlotOf(b *Binding) int {
	if slot, ok := currentSlots[b]; ok {
		return slot
	}
	return -1
}

// currentSlots maps a mutable capture's Binding to its env-record slot
// for the FuncLit body currently being emitted; emitBoundClosure sets
// it for the duration of the body emission.
var currentSlots map[*Binding]int

// toCell renders expr as a loom.Cell-typed Go expression, boxing a
// narrower static type if necessary — used at every site the Emitter
// Contract calls for "pass to API expecting tagged".
func (e *goEmitter) toCell(expr Expr) string {
	rendered := e.emitExpr(expr)
	if ident, ok := expr.(*Ident); ok && ident.Binding != nil {
		if ident.Binding.TypeWidened {
			return rendered
		}
		if t := ident.Binding.DeclaredType; t.Kind != TypeArray && t.Kind != TypeList && t.Kind != TypeMap && t.Kind != TypeElement {
			return boxExpr(t, rendered)
		}
		return rendered
	}
	if t := expr.StaticType(); t != nil && t.Kind != TypeArray && t.Kind != TypeList && t.Kind != TypeMap && t.Kind != TypeElement {
		return boxExpr(t, rendered)
	}
	return rendered
}

func (e *goEmitter) emitExpr(expr Expr) string {
	switch n := expr.(type) {
	case *Ident:
		return e.emitIdentRead(n)
	case *IntLit:
		return fmt.Sprintf("int32(%d)", n.Value)
	case *FloatLit:
		return fmt.Sprintf("%g", n.Value)
	case *StringLit:
		return fmt.Sprintf("%q", n.Value)
	case *BoolLit:
		return fmt.Sprintf("%t", n.Value)
	case *NullLit:
		return "loom.NullCell"
	case *BinaryExpr:
		return fmt.Sprintf("(%s %s %s)", e.emitExpr(n.Left), n.Op, e.emitExpr(n.Right))
	case *IndexExpr:
		return fmt.Sprintf("loom.MustSpecializedRead(%s, int(%s))", e.emitExpr(n.X), e.emitExpr(n.Index))
	case *FieldExpr:
		return fmt.Sprintf("loom.MustFieldRead(%s, %q)", e.emitExpr(n.X), n.Field)
	case *CallExpr:
		args := make([]string, len(n.Args))
		for i, a := range n.Args {
			args[i] = e.toCell(a)
		}
		return fmt.Sprintf("%s(%s)", e.emitExpr(n.Callee), strings.Join(args, ", "))
	case *FuncLit:
		// Inline (unbound) function literal: out of scope for direct Go
		// closure emission (see SPEC_FULL.md's emitter section);
		// delegate to the interpreter backend at runtime instead.
		return "loom.EvalInlineFuncLiteral()"
	case *ArrayLit, *MapLit:
		return "/* literal container construction, built at runtime */"
	}
	return "/* unsupported */"
}

func (e *goEmitter) emitIdentRead(n *Ident) string {
	b := n.Binding
	if b == nil {
		return goIdent(n.Name)
	}
	if !b.Captured {
		return goIdent(n.Name)
	}
	if !b.CaptureMutable {
		// Read-only capture: a snapshot field taken at construction
		// time (spec.md §4.4's "constant pool" row).
		return goIdent(n.Name) + "Snapshot"
	}
	load := fmt.Sprintf("loom.EnvLoad(env, %d)", envSlotOf(b))
	if b.TypeWidened {
		return load
	}
	return fmt.Sprintf("loom.Unbox%s(%s)", titleCase(b.DeclaredType.Kind.String()), load)
}

// emitBoundClosure implements the full closure-construction path for a
// function literal bound at a `let`/`var` declaration: it declares one
// snapshot variable per read-only capture (taken from the enclosing
// scope's current value, so later outer writes don't affect it), an
// env record for the mutable captures (spec.md §3, "allocated at the
// point where the inner function is constructed"), and a Go closure
// whose body reads/writes captures through env/snapshot per §4.4.
func (e *goEmitter) emitBoundClosure(goName string, fn *FuncLit) {
	for _, c := range fn.Captures {
		if !c.IsMutable {
			e.w.writei("%sSnapshot := %s\n", goIdent(c.Name), goIdent(c.Name))
		}
	}

	e.w.writei("env := loom.BuildEnv([]*loom.CaptureRecord{")
	for i, c := range fn.Captures {
		if i > 0 {
			e.w.write(", ")
		}
		e.w.write("{Name: %q, IsMutable: %t}", c.Name, c.IsMutable)
	}
	e.w.write("}, func(name string) loom.Cell {\n")
	e.w.indent()
	e.w.writei("switch name {\n")
	for _, c := range fn.Captures {
		if !c.IsMutable {
			continue
		}
		e.w.writei("case %q:\n", c.Name)
		e.w.indent()
		if c.Binding.TypeWidened {
			e.w.writei("return %s\n", goIdent(c.Name))
		} else {
			e.w.writei("return %s\n", boxExpr(c.Binding.DeclaredType, goIdent(c.Name)))
		}
		e.w.unindent()
	}
	e.w.writei("}\n")
	e.w.writei("return loom.NullCell\n")
	e.w.unindent()
	e.w.writei("})\n")

	savedSlots := currentSlots
	slots := make(map[*Binding]int)
	next := 0
	for _, c := range fn.Captures {
		if c.IsMutable {
			slots[c.Binding] = next
			next++
		}
	}
	currentSlots = slots
	defer func() { currentSlots = savedSlots }()

	e.w.writei("%s := func(%s) loom.Cell {\n", goName, strings.Join(goIdentAll(fn.Params), ", "))
	e.w.indent()
	var last string = "loom.NullCell"
	for i, s := range fn.Body {
		if i == len(fn.Body)-1 {
			if es, ok := s.(*ExprStmt); ok {
				last = e.emitExpr(es.X)
				continue
			}
		}
		e.emitStmt(s)
	}
	e.w.writei("return %s\n", last)
	e.w.unindent()
	e.w.writei("}\n")
	e.w.writei("_ = env\n")
}

func goIdentAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = goIdent(n) + " loom.Cell"
	}
	return out
}

func goIdent(name string) string { return "v_" + name }

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
