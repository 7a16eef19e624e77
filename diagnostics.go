package loom

import "fmt"

// Severity classifies a Diagnostic the way the teacher's LSP
// diagnostics layer ranks a ParsingError against a lint-style warning.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Diagnostic is one reportable finding about a compiled program,
// carrying enough to format an editor-style message: severity, human
// text, and source span.
type Diagnostic struct {
	Severity Severity
	Message  string
	Span     Span
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s @ %s", d.Severity, d.Message, d.Span)
}

// analyzedProgram is the input to DiagnosticsQuery: a parsed program
// plus the configuration that governs analysis, captured together
// since the query key (ProgramKey) alone doesn't carry the source.
type analyzedProgram struct {
	Program *Program
	Config  *Config
}

// programInputs backs the leaf query a caller seeds with SetInput
// before asking for diagnostics, mirroring the teacher's pattern of a
// raw-source leaf query beneath ParsedGrammar.
var programInputs = &Query[ProgramKey, analyzedProgram]{
	Name: "ProgramInput",
	Compute: func(db *Database, key ProgramKey) (analyzedProgram, error) {
		return analyzedProgram{}, fmt.Errorf("no program registered for key %v", key)
	},
}

// DiagnosticsQuery computes the full diagnostic set for a program:
// every Assignment Analyzer error, plus capture-analysis warnings for
// a mutable capture that a closure's body never actually reads back —
// grounded on the teacher's query_analysis.go computeDiagnostics,
// which collects import/grammar errors and UnusedRulesQuery's
// "defined but never used" warnings into one slice the same way.
var DiagnosticsQuery = &Query[ProgramKey, []Diagnostic]{
	Name: "Diagnostics",
	Compute: func(db *Database, key ProgramKey) ([]Diagnostic, error) {
		input, err := Get(db, programInputs, key)
		if err != nil {
			return nil, err
		}

		var diags []Diagnostic
		for _, err := range Analyze(input.Program, input.Config) {
			diags = append(diags, Diagnostic{
				Severity: SeverityError,
				Message:  err.Error(),
				Span:     spanOf(err),
			})
		}

		for _, d := range unusedMutableCaptureWarnings(input.Program) {
			diags = append(diags, d)
		}

		return diags, nil
	},
}

// RegisterProgram seeds db with prog under key so DiagnosticsQuery (and
// anything built on it) can compute against it, and invalidates any
// stale cached diagnostics from a previous registration under the same
// key — the counterpart of the teacher's SetInput-per-file-change flow.
func RegisterProgram(db *Database, key ProgramKey, prog *Program, cfg *Config) {
	SetInput(db, programInputs, key, analyzedProgram{Program: prog, Config: cfg})
}

// spanOf extracts the Span carried by one of this module's own error
// types, falling back to the zero Span for anything else.
func spanOf(err error) Span {
	switch e := err.(type) {
	case *ImmutableAssignmentError:
		return e.Span
	case *AnnotatedTypeMismatchError:
		return e.Span
	case *UnknownBindingError:
		return e.Span
	case *AnalysisError:
		return e.Span
	default:
		return Span{}
	}
}

// unusedMutableCaptureWarnings walks every function literal in prog
// and warns about a mutable capture whose closure body writes it but
// never reads it back — a promotion the Closure Capture Promoter
// performed correctly per spec.md §4.4, but one a programmer likely
// didn't intend, mirroring the teacher's UnusedRulesQuery shape
// ("defined but never used") applied to captures instead of rules.
func unusedMutableCaptureWarnings(prog *Program) []Diagnostic {
	var diags []Diagnostic
	finder := &funcLitFinder{}
	finder.Self = finder
	for _, s := range prog.Stmts {
		WalkStmt(finder, s)
	}
	for _, fn := range finder.lits {
		read := make(map[string]bool)
		rv := &identReadVisitor{onRead: func(name string) { read[name] = true }}
		rv.Self = rv
		for _, s := range fn.Body {
			WalkStmt(rv, s)
		}
		for _, c := range fn.Captures {
			if c.IsMutable && !read[c.Name] {
				diags = append(diags, Diagnostic{
					Severity: SeverityWarning,
					Message:  fmt.Sprintf("captured variable `%s` is written but never read inside this closure", c.Name),
					Span:     fn.Position(),
				})
			}
		}
	}
	return diags
}

// funcLitFinder collects every function literal appearing anywhere in
// a program, including nested ones.
type funcLitFinder struct {
	BaseVisitor
	lits []*FuncLit
}

func (f *funcLitFinder) VisitFuncLit(n *FuncLit) {
	f.lits = append(f.lits, n)
	f.BaseVisitor.VisitFuncLit(n)
}

// identReadVisitor reports every identifier read in an expression
// position (VisitIdent only fires for reads; VisitAssign's own target
// name is not itself revisited as a read by BaseVisitor's recursion).
type identReadVisitor struct {
	BaseVisitor
	onRead func(name string)
}

func (v *identReadVisitor) VisitIdent(n *Ident) {
	v.onRead(n.Name)
}
