package loom

import (
	"fmt"
	"strings"
)

// PrettyProgram renders a Program as an indented s-expression tree,
// grounded on the teacher's tree.go Pretty/prettyPrinter — useful for
// `-ast` CLI output and for eyeballing analyzer/capture decisions in
// tests.
func PrettyProgram(p *Program) string {
	var b strings.Builder
	for _, s := range p.Stmts {
		prettyStmt(&b, s, 0)
	}
	return b.String()
}

func indent(b *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		b.WriteString("  ")
	}
}

func prettyStmt(b *strings.Builder, s Stmt, depth int) {
	indent(b, depth)
	switch n := s.(type) {
	case *DeclStmt:
		form := "let"
		if n.IsMutable {
			form = "var"
		}
		fmt.Fprintf(b, "(%s %s", form, n.Name)
		if n.Binding != nil && n.Binding.TypeWidened {
			b.WriteString(" widened")
		}
		b.WriteString("\n")
		if n.Init != nil {
			prettyExpr(b, n.Init, depth+1)
		}
		indent(b, depth)
		b.WriteString(")\n")
	case *AssignStmt:
		fmt.Fprintf(b, "(assign %s\n", assignTargetString(n))
		prettyExpr(b, n.Value, depth+1)
		indent(b, depth)
		b.WriteString(")\n")
	case *ExprStmt:
		prettyExpr(b, n.X, depth)
	case *PrintStmt:
		b.WriteString("(print\n")
		prettyExpr(b, n.X, depth+1)
		indent(b, depth)
		b.WriteString(")\n")
	case *BlockStmt:
		b.WriteString("(block\n")
		for _, s := range n.Stmts {
			prettyStmt(b, s, depth+1)
		}
		indent(b, depth)
		b.WriteString(")\n")
	}
}

func assignTargetString(n *AssignStmt) string {
	switch n.TargetKind {
	case TargetIndex:
		return n.Name + "[...]"
	case TargetField:
		return n.Name + "." + n.Field
	default:
		return n.Name
	}
}

func prettyExpr(b *strings.Builder, e Expr, depth int) {
	indent(b, depth)
	switch n := e.(type) {
	case *Ident:
		fmt.Fprintf(b, "%s\n", n.Name)
	case *IntLit:
		fmt.Fprintf(b, "%d\n", n.Value)
	case *FloatLit:
		fmt.Fprintf(b, "%g\n", n.Value)
	case *StringLit:
		fmt.Fprintf(b, "%q\n", n.Value)
	case *BoolLit:
		fmt.Fprintf(b, "%t\n", n.Value)
	case *NullLit:
		b.WriteString("null\n")
	case *ArrayLit:
		b.WriteString("(array\n")
		for _, el := range n.Elems {
			prettyExpr(b, el, depth+1)
		}
		indent(b, depth)
		b.WriteString(")\n")
	case *MapLit:
		b.WriteString("(map\n")
		for _, entry := range n.Entries {
			indent(b, depth+1)
			fmt.Fprintf(b, "%s:\n", entry.Key)
			prettyExpr(b, entry.Value, depth+2)
		}
		indent(b, depth)
		b.WriteString(")\n")
	case *IndexExpr:
		b.WriteString("(index\n")
		prettyExpr(b, n.X, depth+1)
		prettyExpr(b, n.Index, depth+1)
		indent(b, depth)
		b.WriteString(")\n")
	case *FieldExpr:
		fmt.Fprintf(b, "(field .%s\n", n.Field)
		prettyExpr(b, n.X, depth+1)
		indent(b, depth)
		b.WriteString(")\n")
	case *BinaryExpr:
		fmt.Fprintf(b, "(%s\n", n.Op)
		prettyExpr(b, n.Left, depth+1)
		prettyExpr(b, n.Right, depth+1)
		indent(b, depth)
		b.WriteString(")\n")
	case *CallExpr:
		b.WriteString("(call\n")
		prettyExpr(b, n.Callee, depth+1)
		for _, a := range n.Args {
			prettyExpr(b, a, depth+1)
		}
		indent(b, depth)
		b.WriteString(")\n")
	case *FuncLit:
		fmt.Fprintf(b, "(fn (%s)\n", strings.Join(n.Params, " "))
		for _, s := range n.Body {
			prettyStmt(b, s, depth+1)
		}
		indent(b, depth)
		b.WriteString(")\n")
	}
}
