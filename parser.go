package loom

import "fmt"

// Parser is a hand-written recursive-descent parser, one parseX method
// per grammar production — grounded on the teacher's grammar_parser.go
// (ParseGrammar/ParseImport/ParseDefinition), adapted from a PEG
// grammar-definition grammar to Loom's surface language: declarations,
// assignment, function literals, and the expression forms spec.md §8's
// scenarios exercise.
type Parser struct {
	lex   *Lexer
	lines *LineIndex
	cur   Token
	next  Token
	scope *Scope
}

func NewParser(source []byte) *Parser {
	p := &Parser{lex: NewLexer(source), lines: NewLineIndex(source)}
	p.cur = p.lex.Next()
	p.next = p.lex.Next()
	return p
}

func (p *Parser) advance() Token {
	t := p.cur
	p.cur = p.next
	p.next = p.lex.Next()
	return t
}

func (p *Parser) span(r Range) Span { return p.lines.Span(r) }

func (p *Parser) expect(k TokenKind, what string) (Token, error) {
	if p.cur.Kind != k {
		return Token{}, &AnalysisError{
			Message: fmt.Sprintf("expected %s, got %q", what, p.cur.Lit),
			Span:    p.span(p.cur.Range),
		}
	}
	return p.advance(), nil
}

// ParseProgram parses a complete source unit into a Program, declaring
// every top-level binding into a fresh root Scope as it goes.
func ParseProgram(source []byte) (*Program, *Scope, error) {
	p := NewParser(source)
	p.scope = NewScope(nil, true)

	start := p.cur.Range
	var stmts []Stmt
	for p.cur.Kind != TokEOF {
		s, err := p.parseStmt()
		if err != nil {
			return nil, nil, err
		}
		stmts = append(stmts, s)
	}
	return &Program{
		base:  base{Span: p.span(NewRange(start.Start, p.cur.Range.End))},
		Stmts: stmts,
	}, p.scope, nil
}

func (p *Parser) parseStmt() (Stmt, error) {
	switch p.cur.Kind {
	case TokLet, TokVar:
		return p.parseDecl()
	case TokPrint:
		return p.parsePrint()
	case TokLBrace:
		return p.parseBlock()
	default:
		return p.parseAssignOrExprStmt()
	}
}

func (p *Parser) parseDecl() (Stmt, error) {
	start := p.cur.Range
	isMutable := p.cur.Kind == TokVar
	p.advance()

	name, err := p.expect(TokIdent, "identifier")
	if err != nil {
		return nil, err
	}

	var annotated *TypeDescriptor
	if p.cur.Kind == TokColon {
		p.advance()
		tname, err := p.expect(TokIdent, "type name")
		if err != nil {
			return nil, err
		}
		annotated, err = parseTypeName(tname.Lit, p.span(tname.Range))
		if err != nil {
			return nil, err
		}
	}

	if _, err := p.expect(TokAssign, "'='"); err != nil {
		return nil, err
	}

	init, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.cur.Kind == TokSemi {
		p.advance()
	}

	declType := annotated
	if declType == nil {
		declType = init.StaticType()
	}

	binding := &Binding{
		Name:              name.Lit,
		DeclaredType:      declType,
		IsMutable:         isMutable,
		HasTypeAnnotation: annotated != nil,
		DeclSpan:          p.span(name.Range),
	}
	p.scope.Declare(binding)

	return &DeclStmt{
		base:          base{Span: p.span(NewRange(start.Start, p.cur.Range.Start))},
		Name:          name.Lit,
		IsMutable:     isMutable,
		AnnotatedType: annotated,
		Init:          init,
		Binding:       binding,
	}, nil
}

func parseTypeName(name string, span Span) (*TypeDescriptor, error) {
	switch name {
	case "int", "int32":
		return typeInt32, nil
	case "int64":
		return typeInt64, nil
	case "float", "float64":
		return typeFloat64, nil
	case "string":
		return typeString, nil
	case "bool":
		return typeBool, nil
	case "any":
		return typeAny, nil
	default:
		return nil, &AnalysisError{Message: fmt.Sprintf("unknown type name %q", name), Span: span}
	}
}

func (p *Parser) parsePrint() (Stmt, error) {
	start := p.cur.Range
	p.advance()
	x, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.cur.Kind == TokSemi {
		p.advance()
	}
	return &PrintStmt{base: base{Span: p.span(NewRange(start.Start, p.cur.Range.Start))}, X: x}, nil
}

func (p *Parser) parseBlock() (Stmt, error) {
	start := p.cur.Range
	p.advance() // '{'
	parent := p.scope
	p.scope = NewScope(parent, false)
	var stmts []Stmt
	for p.cur.Kind != TokRBrace && p.cur.Kind != TokEOF {
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	if _, err := p.expect(TokRBrace, "'}'"); err != nil {
		return nil, err
	}
	p.scope = parent
	return &BlockStmt{base: base{Span: p.span(NewRange(start.Start, p.cur.Range.Start))}, Stmts: stmts}, nil
}

func (p *Parser) parseAssignOrExprStmt() (Stmt, error) {
	start := p.cur.Range
	x, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	if p.cur.Kind == TokAssign {
		p.advance()
		rhs, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.cur.Kind == TokSemi {
			p.advance()
		}
		assign, err := assignFromTarget(x, rhs, p.span(NewRange(start.Start, p.cur.Range.Start)))
		if err != nil {
			return nil, err
		}
		if assign.TargetKind == TargetName {
			if b, ok := p.scope.Resolve(assign.Name); ok {
				assign.Binding = b
			} else {
				return nil, &UnknownBindingError{Name: assign.Name, Span: assign.Span}
			}
		}
		return assign, nil
	}

	if p.cur.Kind == TokSemi {
		p.advance()
	}
	return &ExprStmt{base: base{Span: p.span(NewRange(start.Start, p.cur.Range.Start))}, X: x}, nil
}

func assignFromTarget(target Expr, value Expr, span Span) (*AssignStmt, error) {
	switch n := target.(type) {
	case *Ident:
		return &AssignStmt{base: base{Span: span}, TargetKind: TargetName, Name: n.Name, Value: value}, nil
	case *IndexExpr:
		root := rootName(n.X)
		return &AssignStmt{base: base{Span: span}, TargetKind: TargetIndex, Name: root, Receiver: n.X, Index: n.Index, Value: value}, nil
	case *FieldExpr:
		root := rootName(n.X)
		return &AssignStmt{base: base{Span: span}, TargetKind: TargetField, Name: root, Receiver: n.X, Field: n.Field, Value: value}, nil
	default:
		return nil, &AnalysisError{Message: "invalid assignment target", Span: span}
	}
}

func rootName(e Expr) string {
	switch n := e.(type) {
	case *Ident:
		return n.Name
	case *IndexExpr:
		return rootName(n.X)
	case *FieldExpr:
		return rootName(n.X)
	default:
		return ""
	}
}

// --- expressions, precedence-climbing ---

func (p *Parser) parseExpr() (Expr, error) { return p.parseComparison() }

func (p *Parser) parseComparison() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.cur.Kind == TokEq || p.cur.Kind == TokNeq || p.cur.Kind == TokLt ||
		p.cur.Kind == TokGt || p.cur.Kind == TokLe || p.cur.Kind == TokGe {
		op := p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{base: base{Span: p.span(op.Range), Typ: typeBool}, Op: op.Lit, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.cur.Kind == TokPlus || p.cur.Kind == TokMinus {
		op := p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{base: base{Span: p.span(op.Range), Typ: arithResultType(left, right)}, Op: op.Lit, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (Expr, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.cur.Kind == TokStar || p.cur.Kind == TokSlash {
		op := p.advance()
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{base: base{Span: p.span(op.Range), Typ: arithResultType(left, right)}, Op: op.Lit, Left: left, Right: right}
	}
	return left, nil
}

// arithResultType implements the numeric-family widening an arithmetic
// operator's result type undergoes: float if either operand is float,
// int64 if either is int64, else int32.
func arithResultType(l, r Expr) *TypeDescriptor {
	lt, rt := l.StaticType(), r.StaticType()
	if lt == nil || rt == nil {
		return typeAny
	}
	if lt.Kind == TypeFloat64 || rt.Kind == TypeFloat64 {
		return typeFloat64
	}
	if lt.Kind == TypeInt64 || rt.Kind == TypeInt64 {
		return typeInt64
	}
	if lt.Kind == TypeInt32 && rt.Kind == TypeInt32 {
		return typeInt32
	}
	return typeAny
}

func (p *Parser) parsePrimary() (Expr, error) {
	tok := p.cur
	var x Expr
	var err error

	switch tok.Kind {
	case TokInt:
		p.advance()
		var v int64
		fmt.Sscanf(tok.Lit, "%d", &v)
		x = &IntLit{base: base{Span: p.span(tok.Range), Typ: typeInt32}, Value: v}
	case TokFloat:
		p.advance()
		var v float64
		fmt.Sscanf(tok.Lit, "%g", &v)
		x = &FloatLit{base: base{Span: p.span(tok.Range), Typ: typeFloat64}, Value: v}
	case TokString:
		p.advance()
		x = &StringLit{base: base{Span: p.span(tok.Range), Typ: typeString}, Value: tok.Lit}
	case TokTrue, TokFalse:
		p.advance()
		x = &BoolLit{base: base{Span: p.span(tok.Range), Typ: typeBool}, Value: tok.Kind == TokTrue}
	case TokNull:
		p.advance()
		x = &NullLit{base: base{Span: p.span(tok.Range), Typ: typeNull}}
	case TokIdent:
		p.advance()
		binding, ok := p.scope.Resolve(tok.Lit)
		var typ *TypeDescriptor
		var b *Binding
		if ok {
			typ = binding.DeclaredType
			b = binding
		}
		x = &Ident{base: base{Span: p.span(tok.Range), Typ: typ}, Name: tok.Lit, Binding: b}
	case TokLParen:
		p.advance()
		x, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokRParen, "')'"); err != nil {
			return nil, err
		}
	case TokLBracket:
		x, err = p.parseArrayLit()
		if err != nil {
			return nil, err
		}
	case TokLBrace:
		x, err = p.parseMapLit()
		if err != nil {
			return nil, err
		}
	case TokFn:
		x, err = p.parseFuncLit()
		if err != nil {
			return nil, err
		}
	default:
		return nil, &AnalysisError{Message: fmt.Sprintf("unexpected token %q", tok.Lit), Span: p.span(tok.Range)}
	}

	return p.parsePostfix(x)
}

func (p *Parser) parsePostfix(x Expr) (Expr, error) {
	for {
		switch p.cur.Kind {
		case TokLBracket:
			start := p.cur.Range
			p.advance()
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TokRBracket, "']'"); err != nil {
				return nil, err
			}
			x = &IndexExpr{base: base{Span: p.span(NewRange(start.Start, p.cur.Range.Start)), Typ: typeAny}, X: x, Index: idx}
		case TokDot:
			p.advance()
			name, err := p.expect(TokIdent, "field name")
			if err != nil {
				return nil, err
			}
			x = &FieldExpr{base: base{Span: p.span(name.Range), Typ: typeAny}, X: x, Field: name.Lit}
		case TokLParen:
			start := p.cur.Range
			p.advance()
			var args []Expr
			for p.cur.Kind != TokRParen {
				a, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				args = append(args, a)
				if p.cur.Kind == TokComma {
					p.advance()
				}
			}
			if _, err := p.expect(TokRParen, "')'"); err != nil {
				return nil, err
			}
			x = &CallExpr{base: base{Span: p.span(NewRange(start.Start, p.cur.Range.Start)), Typ: typeAny}, Callee: x, Args: args}
		default:
			return x, nil
		}
	}
}

func (p *Parser) parseArrayLit() (Expr, error) {
	start := p.cur.Range
	p.advance() // '['
	var elems []Expr
	for p.cur.Kind != TokRBracket {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
		if p.cur.Kind == TokComma {
			p.advance()
		}
	}
	if _, err := p.expect(TokRBracket, "']'"); err != nil {
		return nil, err
	}
	return &ArrayLit{base: base{Span: p.span(NewRange(start.Start, p.cur.Range.Start)), Typ: &TypeDescriptor{Kind: TypeArray, Elem: typeAny}}, Elems: elems}, nil
}

func (p *Parser) parseMapLit() (Expr, error) {
	start := p.cur.Range
	p.advance() // '{'
	var entries []MapEntry
	for p.cur.Kind != TokRBrace {
		key, err := p.expect(TokIdent, "field name")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokColon, "':'"); err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		entries = append(entries, MapEntry{Key: key.Lit, Value: val})
		if p.cur.Kind == TokComma {
			p.advance()
		}
	}
	if _, err := p.expect(TokRBrace, "'}'"); err != nil {
		return nil, err
	}
	return &MapLit{base: base{Span: p.span(NewRange(start.Start, p.cur.Range.Start)), Typ: scalarType(TypeMap)}, Entries: entries}, nil
}

func (p *Parser) parseFuncLit() (Expr, error) {
	start := p.cur.Range
	p.advance() // 'fn'
	if _, err := p.expect(TokLParen, "'('"); err != nil {
		return nil, err
	}

	outer := p.scope
	fnScope := NewScope(outer, true)
	p.scope = fnScope

	var params []string
	var paramBindings []*Binding
	for p.cur.Kind != TokRParen {
		name, err := p.expect(TokIdent, "parameter name")
		if err != nil {
			return nil, err
		}
		b := &Binding{Name: name.Lit, DeclaredType: typeAny, IsMutable: false, DeclSpan: p.span(name.Range)}
		fnScope.Declare(b)
		params = append(params, name.Lit)
		paramBindings = append(paramBindings, b)
		if p.cur.Kind == TokComma {
			p.advance()
		}
	}
	if _, err := p.expect(TokRParen, "')'"); err != nil {
		return nil, err
	}

	if _, err := p.expect(TokLBrace, "'{'"); err != nil {
		return nil, err
	}
	var body []Stmt
	for p.cur.Kind != TokRBrace && p.cur.Kind != TokEOF {
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		body = append(body, s)
	}
	if _, err := p.expect(TokRBrace, "'}'"); err != nil {
		return nil, err
	}

	p.scope = outer

	return &FuncLit{
		base:          base{Span: p.span(NewRange(start.Start, p.cur.Range.Start)), Typ: typeFunc},
		Params:        params,
		ParamBindings: paramBindings,
		Body:          body,
		BodyScope:     fnScope,
	}, nil
}
