package loom

// Visitor is implemented by any pass that walks the AST: the
// analyzer, the capture promoter, the emitter, and the interpreter
// each implement a subset relevant to them by embedding
// BaseVisitor and overriding the methods they care about — grounded on
// the teacher's `tree.go` Visit/Accept double-dispatch idiom.
type Visitor interface {
	VisitDecl(*DeclStmt)
	VisitAssign(*AssignStmt)
	VisitExprStmt(*ExprStmt)
	VisitPrint(*PrintStmt)
	VisitBlock(*BlockStmt)
	VisitFuncLit(*FuncLit)
	VisitIdent(*Ident)
	VisitIntLit(*IntLit)
	VisitFloatLit(*FloatLit)
	VisitStringLit(*StringLit)
	VisitBoolLit(*BoolLit)
	VisitNullLit(*NullLit)
	VisitArrayLit(*ArrayLit)
	VisitMapLit(*MapLit)
	VisitIndex(*IndexExpr)
	VisitField(*FieldExpr)
	VisitBinary(*BinaryExpr)
	VisitCall(*CallExpr)
}

// WalkStmt dispatches a single statement node to the matching Visitor
// method.
func WalkStmt(v Visitor, s Stmt) {
	switch n := s.(type) {
	case *DeclStmt:
		v.VisitDecl(n)
	case *AssignStmt:
		v.VisitAssign(n)
	case *ExprStmt:
		v.VisitExprStmt(n)
	case *PrintStmt:
		v.VisitPrint(n)
	case *BlockStmt:
		v.VisitBlock(n)
	}
}

// WalkExpr dispatches a single expression node to the matching Visitor
// method.
func WalkExpr(v Visitor, e Expr) {
	switch n := e.(type) {
	case *FuncLit:
		v.VisitFuncLit(n)
	case *Ident:
		v.VisitIdent(n)
	case *IntLit:
		v.VisitIntLit(n)
	case *FloatLit:
		v.VisitFloatLit(n)
	case *StringLit:
		v.VisitStringLit(n)
	case *BoolLit:
		v.VisitBoolLit(n)
	case *NullLit:
		v.VisitNullLit(n)
	case *ArrayLit:
		v.VisitArrayLit(n)
	case *MapLit:
		v.VisitMapLit(n)
	case *IndexExpr:
		v.VisitIndex(n)
	case *FieldExpr:
		v.VisitField(n)
	case *BinaryExpr:
		v.VisitBinary(n)
	case *CallExpr:
		v.VisitCall(n)
	}
}

// BaseVisitor implements every Visitor method as a recursive no-op
// descent, so a pass that only cares about a handful of node kinds can
// embed it and override just those.
type BaseVisitor struct{ Self Visitor }

func (b *BaseVisitor) self() Visitor {
	if b.Self != nil {
		return b.Self
	}
	return b
}

func (b *BaseVisitor) VisitDecl(n *DeclStmt) {
	if n.Init != nil {
		WalkExpr(b.self(), n.Init)
	}
}

func (b *BaseVisitor) VisitAssign(n *AssignStmt) {
	if n.Receiver != nil {
		WalkExpr(b.self(), n.Receiver)
	}
	if n.Index != nil {
		WalkExpr(b.self(), n.Index)
	}
	WalkExpr(b.self(), n.Value)
}

func (b *BaseVisitor) VisitExprStmt(n *ExprStmt) { WalkExpr(b.self(), n.X) }
func (b *BaseVisitor) VisitPrint(n *PrintStmt)    { WalkExpr(b.self(), n.X) }

func (b *BaseVisitor) VisitBlock(n *BlockStmt) {
	for _, s := range n.Stmts {
		WalkStmt(b.self(), s)
	}
}

func (b *BaseVisitor) VisitFuncLit(n *FuncLit) {
	for _, s := range n.Body {
		WalkStmt(b.self(), s)
	}
}

func (b *BaseVisitor) VisitIdent(n *Ident)         {}
func (b *BaseVisitor) VisitIntLit(n *IntLit)       {}
func (b *BaseVisitor) VisitFloatLit(n *FloatLit)   {}
func (b *BaseVisitor) VisitStringLit(n *StringLit) {}
func (b *BaseVisitor) VisitBoolLit(n *BoolLit)     {}
func (b *BaseVisitor) VisitNullLit(n *NullLit)     {}

func (b *BaseVisitor) VisitArrayLit(n *ArrayLit) {
	for _, e := range n.Elems {
		WalkExpr(b.self(), e)
	}
}

func (b *BaseVisitor) VisitMapLit(n *MapLit) {
	for _, e := range n.Entries {
		WalkExpr(b.self(), e.Value)
	}
}

func (b *BaseVisitor) VisitIndex(n *IndexExpr) {
	WalkExpr(b.self(), n.X)
	WalkExpr(b.self(), n.Index)
}

func (b *BaseVisitor) VisitField(n *FieldExpr) { WalkExpr(b.self(), n.X) }

func (b *BaseVisitor) VisitBinary(n *BinaryExpr) {
	WalkExpr(b.self(), n.Left)
	WalkExpr(b.self(), n.Right)
}

func (b *BaseVisitor) VisitCall(n *CallExpr) {
	WalkExpr(b.self(), n.Callee)
	for _, a := range n.Args {
		WalkExpr(b.self(), a)
	}
}
