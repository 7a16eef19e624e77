package loom

import (
	"fmt"
	"io"
	"strings"
)

// Interp is a tree-walking evaluator: the second Emitter Contract
// backend SPEC_FULL.md adds alongside the Go-source emitter, so the
// module has something that actually executes spec.md §8's end-to-end
// scenarios rather than only ever emitting unexecuted source text. It
// consumes the same analyzed, capture-annotated AST and calls directly
// into the Container Mutation Runtime for index-writes/field-writes.
type Interp struct {
	alloc  *Allocator
	shapes *ShapePool
	cfg    *Config
	out    io.Writer

	// external overrides a top-level var/let's own initializer with a
	// host-supplied value, keyed by declared name. BindExternal is the
	// only way a parser-origin container (ParseJSONMap) ever reaches a
	// running program: the script's own literals and allocations are
	// always script_pool (isHeap true), by construction.
	external map[string]Cell
}

func NewInterp(cfg *Config, out io.Writer) *Interp {
	return &Interp{alloc: NewAllocator(), shapes: NewShapePool(), cfg: cfg, out: out}
}

// BindExternal installs v as the value a top-level `var`/`let` named
// name takes on Run, in place of evaluating its own initializer
// expression — the entry point a host embedding Loom uses to hand over
// data it parsed itself (e.g. ParseJSONMap's result) before the script
// runs, matching the teacher's ParserPool concept of an arena the
// running program never allocates into but can still observe.
func (in *Interp) BindExternal(name string, v Cell) {
	if in.external == nil {
		in.external = make(map[string]Cell)
	}
	in.external[name] = v
}

// frame is one function invocation's runtime storage: locally declared
// bindings (including parameters), plus the captured-variable maps
// installed when the closure was constructed.
type frame struct {
	vars            map[*Binding]Cell
	env             *EnvRecord
	captureSlot     map[*Binding]int
	captureSnapshot map[*Binding]Cell
}

func newFrame() *frame {
	return &frame{
		vars:            make(map[*Binding]Cell),
		captureSlot:     make(map[*Binding]int),
		captureSnapshot: make(map[*Binding]Cell),
	}
}

func (in *Interp) readBinding(fr *frame, b *Binding) Cell {
	if slot, ok := fr.captureSlot[b]; ok {
		return EnvLoad(fr.env, slot)
	}
	if v, ok := fr.captureSnapshot[b]; ok {
		return v
	}
	return fr.vars[b]
}

func (in *Interp) writeBinding(fr *frame, b *Binding, v Cell) {
	if slot, ok := fr.captureSlot[b]; ok {
		EnvStore(fr.env, slot, v)
		return
	}
	fr.vars[b] = v
}

// Run executes a whole program's top-level statements in one implicit
// global frame.
func (in *Interp) Run(prog *Program) error {
	fr := newFrame()
	for _, s := range prog.Stmts {
		if err := in.execStmt(fr, s); err != nil {
			return err
		}
	}
	return nil
}

func (in *Interp) execStmt(fr *frame, s Stmt) error {
	switch n := s.(type) {
	case *DeclStmt:
		if v, ok := in.external[n.Binding.Name]; ok {
			fr.vars[n.Binding] = v
			return nil
		}
		v, err := in.evalExpr(fr, n.Init)
		if err != nil {
			return err
		}
		fr.vars[n.Binding] = v
		return nil

	case *AssignStmt:
		return in.execAssign(fr, n)

	case *ExprStmt:
		_, err := in.evalExpr(fr, n.X)
		return err

	case *PrintStmt:
		v, err := in.evalExpr(fr, n.X)
		if err != nil {
			return err
		}
		fmt.Fprintln(in.out, Display(v))
		return nil

	case *BlockStmt:
		for _, s := range n.Stmts {
			if err := in.execStmt(fr, s); err != nil {
				return err
			}
		}
		return nil
	}
	return nil
}

func (in *Interp) execAssign(fr *frame, n *AssignStmt) error {
	value, err := in.evalExpr(fr, n.Value)
	if err != nil {
		return err
	}

	switch n.TargetKind {
	case TargetName:
		b := n.Binding
		if b.HasTypeAnnotation && !b.TypeWidened && b.DeclaredType.IsNumeric() && typeOf(value).IsNumeric() {
			value = coerceNumeric(b.DeclaredType, value)
		}
		in.writeBinding(fr, b, value)
		return nil

	case TargetIndex:
		recv, err := in.evalExpr(fr, n.Receiver)
		if err != nil {
			return err
		}
		if recv.Tag != CellContainer || recv.ref == nil {
			return &RuntimeError{Message: "index assignment target is not a container", Span: n.Span}
		}
		idxCell, err := in.evalExpr(fr, n.Index)
		if err != nil {
			return err
		}
		idx, ok := unboxInt64(idxCell)
		if !ok {
			return &RuntimeError{Message: "index must be an integer", Span: n.Span}
		}
		return IndexWrite(in.alloc, recv.ref, int(idx), value, n.Span)

	case TargetField:
		recv, err := in.evalExpr(fr, n.Receiver)
		if err != nil {
			return err
		}
		if recv.Tag != CellContainer || recv.ref == nil {
			return &RuntimeError{Message: "field assignment target is not a container", Span: n.Span}
		}
		return FieldWrite(in.alloc, in.shapes, in.cfg, recv.ref, n.Field, value, n.Span)
	}
	return nil
}

func (in *Interp) evalExpr(fr *frame, e Expr) (Cell, error) {
	switch n := e.(type) {
	case *Ident:
		return in.readBinding(fr, n.Binding), nil
	case *IntLit:
		return Int32Cell(int32(n.Value)), nil
	case *FloatLit:
		return Float64Cell(n.Value), nil
	case *StringLit:
		return StringCell(n.Value), nil
	case *BoolLit:
		return BoolCell(n.Value), nil
	case *NullLit:
		return NullCell, nil

	case *ArrayLit:
		return in.evalArrayLit(fr, n)
	case *MapLit:
		return in.evalMapLit(fr, n)

	case *IndexExpr:
		return in.evalIndex(fr, n)
	case *FieldExpr:
		return in.evalField(fr, n)
	case *BinaryExpr:
		return in.evalBinary(fr, n)
	case *CallExpr:
		return in.evalCall(fr, n)
	case *FuncLit:
		return in.evalFuncLit(fr, n)
	}
	return NullCell, &RuntimeError{Message: "unsupported expression", Span: e.Position()}
}

func (in *Interp) evalArrayLit(fr *frame, n *ArrayLit) (Cell, error) {
	vals := make([]Cell, len(n.Elems))
	allInt, allFloat := true, true
	for i, el := range n.Elems {
		v, err := in.evalExpr(fr, el)
		if err != nil {
			return Cell{}, err
		}
		vals[i] = v
		if v.Tag != CellInt32 && v.Tag != CellInt64 {
			allInt = false
		}
		if v.Tag != CellFloat64 {
			allFloat = false
		}
	}

	if allFloat && len(vals) > 0 {
		buf, err := Alloc[float64](in.alloc, len(vals))
		if err != nil {
			return Cell{}, err
		}
		for i, v := range vals {
			buf.Data[i], _ = unboxFloat64(v)
		}
		return ContainerCell(NewSpecializedFloat(buf, true)), nil
	}

	if allInt && len(vals) > 0 && in.cfg.GetBool("mutation.array.enable_int56") {
		buf, err := Alloc[int64](in.alloc, len(vals))
		if err != nil {
			return Cell{}, err
		}
		fits56 := true
		for i, v := range vals {
			raw, _ := unboxInt64(v)
			buf.Data[i] = raw
			if !fitsInt56(raw) {
				fits56 = false
			}
		}
		kind := KindSpecInt56
		if !fits56 {
			kind = KindSpecInt64
		}
		return ContainerCell(NewSpecializedInt(kind, buf, true)), nil
	}

	buf, err := Alloc[Cell](in.alloc, len(vals))
	if err != nil {
		return Cell{}, err
	}
	copy(buf.Data, vals)
	for _, v := range vals {
		if v.Tag == CellContainer {
			v.ref.Retain()
		}
	}
	return ContainerCell(NewGenericArray(KindGenericArray, buf, true)), nil
}

func (in *Interp) evalMapLit(fr *frame, n *MapLit) (Cell, error) {
	vals := make([]Cell, len(n.Entries))
	fields := make([]FieldEntry, len(n.Entries))
	for i, entry := range n.Entries {
		v, err := in.evalExpr(fr, entry.Value)
		if err != nil {
			return Cell{}, err
		}
		vals[i] = v
		fields[i] = FieldEntry{Name: entry.Key, Type: typeOf(v), Offset: i, Size: 1}
	}
	shape := in.shapes.Intern(fields, "", "")
	buf, err := Alloc[Cell](in.alloc, len(vals))
	if err != nil {
		return Cell{}, err
	}
	copy(buf.Data, vals)
	for _, v := range vals {
		if v.Tag == CellContainer {
			v.ref.Retain()
		}
	}
	return ContainerCell(NewMap(shape, buf, true)), nil
}

func (in *Interp) evalIndex(fr *frame, n *IndexExpr) (Cell, error) {
	recv, err := in.evalExpr(fr, n.X)
	if err != nil {
		return Cell{}, err
	}
	if recv.Tag != CellContainer || recv.ref == nil {
		return Cell{}, &RuntimeError{Message: "indexing target is not a container", Span: n.Span}
	}
	idxCell, err := in.evalExpr(fr, n.Index)
	if err != nil {
		return Cell{}, err
	}
	idx, ok := unboxInt64(idxCell)
	if !ok {
		return Cell{}, &RuntimeError{Message: "index must be an integer", Span: n.Span}
	}
	return SpecializedReadWithFallback(recv.ref, int(idx), n.Span)
}

func (in *Interp) evalField(fr *frame, n *FieldExpr) (Cell, error) {
	recv, err := in.evalExpr(fr, n.X)
	if err != nil {
		return Cell{}, err
	}
	if recv.Tag != CellContainer || recv.ref == nil {
		return Cell{}, &RuntimeError{Message: "field access target is not a container", Span: n.Span}
	}
	return FieldRead(recv.ref, n.Field, n.Span)
}

func (in *Interp) evalBinary(fr *frame, n *BinaryExpr) (Cell, error) {
	l, err := in.evalExpr(fr, n.Left)
	if err != nil {
		return Cell{}, err
	}
	r, err := in.evalExpr(fr, n.Right)
	if err != nil {
		return Cell{}, err
	}

	if n.Op == "+" && (l.Tag == CellString || r.Tag == CellString) {
		return StringCell(Display(l) + Display(r)), nil
	}

	lf, lok := unboxFloat64(l)
	rf, rok := unboxFloat64(r)
	if !lok || !rok {
		return Cell{}, &RuntimeError{Message: "operand is not numeric", Span: n.Span}
	}

	switch n.Op {
	case "+", "-", "*", "/":
		var res float64
		switch n.Op {
		case "+":
			res = lf + rf
		case "-":
			res = lf - rf
		case "*":
			res = lf * rf
		case "/":
			res = lf / rf
		}
		if l.Tag == CellFloat64 || r.Tag == CellFloat64 {
			return Float64Cell(res), nil
		}
		return Int64Cell(int64(res)), nil
	case "==":
		return BoolCell(lf == rf), nil
	case "!=":
		return BoolCell(lf != rf), nil
	case "<":
		return BoolCell(lf < rf), nil
	case ">":
		return BoolCell(lf > rf), nil
	case "<=":
		return BoolCell(lf <= rf), nil
	case ">=":
		return BoolCell(lf >= rf), nil
	}
	return Cell{}, &RuntimeError{Message: "unknown operator " + n.Op, Span: n.Span}
}

func (in *Interp) evalCall(fr *frame, n *CallExpr) (Cell, error) {
	callee, err := in.evalExpr(fr, n.Callee)
	if err != nil {
		return Cell{}, err
	}
	if callee.Tag != CellFunc || callee.fn == nil {
		return Cell{}, &RuntimeError{Message: "call target is not a function", Span: n.Span}
	}
	args := make([]Cell, len(n.Args))
	for i, a := range n.Args {
		v, err := in.evalExpr(fr, a)
		if err != nil {
			return Cell{}, err
		}
		args[i] = v
	}
	return in.callClosure(callee.fn, args)
}

func (in *Interp) evalFuncLit(fr *frame, n *FuncLit) (Cell, error) {
	lookup := func(name string) Cell {
		for _, c := range n.Captures {
			if c.Name == name {
				return in.readBinding(fr, c.Binding)
			}
		}
		return NullCell
	}
	env := BuildEnv(n.Captures, lookup)
	snapshots := make(map[*Binding]Cell)
	for _, c := range n.Captures {
		if !c.IsMutable {
			snapshots[c.Binding] = lookup(c.Name)
		}
	}
	return FuncCell(&Closure{Def: n, Env: env, Snapshots: snapshots}), nil
}

func (in *Interp) callClosure(cl *Closure, args []Cell) (Cell, error) {
	fn := cl.Def
	callFr := newFrame()
	callFr.env = cl.Env
	for _, c := range fn.Captures {
		if c.IsMutable {
			callFr.captureSlot[c.Binding] = c.EnvSlot
		} else {
			callFr.captureSnapshot[c.Binding] = cl.Snapshots[c.Binding]
		}
	}
	for i, p := range fn.ParamBindings {
		if i < len(args) {
			callFr.vars[p] = args[i]
		}
	}

	var last Cell
	for _, s := range fn.Body {
		if es, ok := s.(*ExprStmt); ok {
			v, err := in.evalExpr(callFr, es.X)
			if err != nil {
				return Cell{}, err
			}
			last = v
			continue
		}
		if err := in.execStmt(callFr, s); err != nil {
			return Cell{}, err
		}
	}
	return last, nil
}

// Display renders a Cell the way `print` does, recursing into
// containers so arrays/maps read back the way spec.md §8's scenarios
// expect (e.g. `[1, 3.14, 3]`).
func Display(c Cell) string {
	if c.Tag != CellContainer || c.ref == nil {
		return c.String()
	}
	ct := c.ref
	switch ct.Kind {
	case KindGenericArray, KindList, KindElement:
		parts := make([]string, len(ct.cells.Data))
		for i, cell := range ct.cells.Data {
			parts[i] = Display(cell)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindSpecInt56, KindSpecInt64:
		parts := make([]string, len(ct.rawInt.Data))
		for i, v := range ct.rawInt.Data {
			parts[i] = fmt.Sprintf("%d", v)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindSpecFloat64:
		parts := make([]string, len(ct.rawFloat.Data))
		for i, v := range ct.rawFloat.Data {
			parts[i] = fmt.Sprintf("%g", v)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMap:
		parts := make([]string, len(ct.Shape.Fields))
		for i, f := range ct.Shape.Fields {
			parts[i] = fmt.Sprintf("%s: %s", f.Name, Display(ct.cells.Data[f.Offset]))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return ct.String()
	}
}
