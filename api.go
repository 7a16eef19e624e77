package loom

import (
	"bytes"
	"fmt"
	"io"
)

// CompileResult bundles everything a caller of Compile might want: the
// parsed (and analyzed) program, the diagnostics produced along the
// way, and — if analysis produced no errors — the two backends ready
// to use.
type CompileResult struct {
	Program     *Program
	Diagnostics []Diagnostic
	Config      *Config

	db  *Database
	key ProgramKey
}

// Compile runs the full front end and static analysis pipeline over
// source: parse, resolve/widen/immutability-check every assignment
// (the Assignment Analyzer), and promote every function literal's free
// names into capture records (the Closure Capture Promoter) — the
// sequence every one of spec.md §8's scenarios assumes has already run
// before either backend executes or emits a program. Diagnostics
// themselves are computed through the incremental query engine
// (query.go): the program is registered as DiagnosticsQuery's leaf
// input and the result is read back with Get, the same
// register-then-query shape the teacher's own Compile entry point
// uses to chain ParseGrammar -> analysis queries -> codegen.
func Compile(source []byte, cfg *Config) (*CompileResult, error) {
	if cfg == nil {
		cfg = NewConfig()
	}

	prog, _, err := ParseProgram(source)
	if err != nil {
		return nil, err
	}

	promoteAllCaptures(prog)

	db := NewDatabase(cfg)
	key := ProgramKey{Name: "main"}
	RegisterProgram(db, key, prog, cfg)

	diags, err := Get(db, DiagnosticsQuery, key)
	if err != nil {
		return nil, err
	}

	return &CompileResult{Program: prog, Diagnostics: diags, Config: cfg, db: db, key: key}, nil
}

// Database returns the incremental query database backing r's
// diagnostics, so a long-lived host (a language server, say) can
// register further programs against the same cache or inspect
// db.Stats() without paying to rebuild it per compile.
func (r *CompileResult) Database() *Database { return r.db }

// Recompute re-registers r.Program with the query database and
// re-reads DiagnosticsQuery, refreshing r.Diagnostics in place. Use it
// after mutating r.Program (e.g. applying an edit the way a language
// server would) instead of calling Compile again: RegisterProgram's
// SetInput invalidates exactly the cached query results that depended
// on the old program, so unrelated cached queries in a larger Database
// survive.
func (r *CompileResult) Recompute() ([]Diagnostic, error) {
	RegisterProgram(r.db, r.key, r.Program, r.Config)
	diags, err := Get(r.db, DiagnosticsQuery, r.key)
	if err != nil {
		return nil, err
	}
	r.Diagnostics = diags
	return diags, nil
}

// HasErrors reports whether any diagnostic in r is severity Error
// (warnings alone don't block running or emitting a program).
func (r *CompileResult) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Run interprets r.Program to completion using the tree-walking
// interpreter backend, writing `print` output to out.
func (r *CompileResult) Run(out io.Writer) error {
	return r.RunWithExternal(out, nil)
}

// RunWithExternal behaves like Run but first binds each name in
// externals as a top-level var/let's runtime value (Interp.
// BindExternal), in place of evaluating that declaration's own
// initializer — the entry point a host uses to hand the script a
// container it parsed itself, such as ParseJSONMap's result, rather
// than one the script allocated.
func (r *CompileResult) RunWithExternal(out io.Writer, externals map[string]Cell) error {
	if r.HasErrors() {
		return fmt.Errorf("refusing to run a program with analysis errors")
	}
	interp := NewInterp(r.Config, out)
	for name, v := range externals {
		interp.BindExternal(name, v)
	}
	return interp.Run(r.Program)
}

// EmitGoSource renders r.Program as standalone Go source using the
// Go-source emitter backend, under the given package name.
func (r *CompileResult) EmitGoSource(pkg string) (string, error) {
	if r.HasErrors() {
		return "", fmt.Errorf("refusing to emit a program with analysis errors")
	}
	return EmitGo(r.Program, pkg), nil
}

// RunSource is a convenience wrapper combining Compile and Run,
// returning the program's printed output as a string.
func RunSource(source []byte, cfg *Config) (string, []Diagnostic, error) {
	res, err := Compile(source, cfg)
	if err != nil {
		return "", nil, err
	}
	if res.HasErrors() {
		return "", res.Diagnostics, nil
	}
	var buf bytes.Buffer
	if err := res.Run(&buf); err != nil {
		return "", res.Diagnostics, err
	}
	return buf.String(), res.Diagnostics, nil
}

// promoteAllCaptures runs the Closure Capture Promoter over every
// top-level function literal in prog. A literal nested inside another
// is promoted as a side effect of promoting its enclosing literal (see
// capture.go's VisitFuncLit), so this only needs to find the outermost
// literal of each nesting chain.
func promoteAllCaptures(prog *Program) {
	f := &topLevelFuncLitFinder{}
	f.Self = f
	for _, s := range prog.Stmts {
		WalkStmt(f, s)
	}
	for _, fn := range f.lits {
		PromoteCaptures(fn)
	}
}

// topLevelFuncLitFinder collects each FuncLit reachable from a
// program's top level without recursing into a literal's own body —
// PromoteCaptures itself performs that recursion for nested literals.
type topLevelFuncLitFinder struct {
	BaseVisitor
	lits []*FuncLit
}

func (f *topLevelFuncLitFinder) VisitFuncLit(n *FuncLit) {
	f.lits = append(f.lits, n)
}
