package loom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeImmutableAssignment(t *testing.T) {
	prog, _, err := ParseProgram([]byte(`
		let x = 1
		x = 2
	`))
	require.NoError(t, err)

	errs := Analyze(prog, NewConfig())
	require.Len(t, errs, 1)

	var immErr *ImmutableAssignmentError
	require.ErrorAs(t, errs[0], &immErr)
	assert.Equal(t, "x", immErr.Name)
}

func TestAnalyzeMutableAssignmentOk(t *testing.T) {
	prog, _, err := ParseProgram([]byte(`
		var x = 1
		x = 2
	`))
	require.NoError(t, err)
	assert.Empty(t, Analyze(prog, NewConfig()))
}

func TestAnalyzeWidensUnannotatedOnHeterogeneousAssignment(t *testing.T) {
	prog, _, err := ParseProgram([]byte(`
		var x = 1
		x = "hello"
	`))
	require.NoError(t, err)

	cfg := NewConfig()
	errs := Analyze(prog, cfg)
	assert.Empty(t, errs, "an unannotated var may widen rather than error")

	decl := prog.Stmts[0].(*DeclStmt)
	assert.True(t, decl.Binding.TypeWidened)
}

func TestAnalyzeAnnotatedTypeMismatch(t *testing.T) {
	prog, _, err := ParseProgram([]byte(`
		var x: int = 1
		x = "hello"
	`))
	require.NoError(t, err)

	errs := Analyze(prog, NewConfig())
	require.Len(t, errs, 1)

	var mismatch *AnnotatedTypeMismatchError
	require.ErrorAs(t, errs[0], &mismatch)
	assert.Equal(t, "x", mismatch.Name)
}

func TestAnalyzeAnnotatedNumericWideningAllowed(t *testing.T) {
	prog, _, err := ParseProgram([]byte(`
		var x: float = 1.5
		x = 2
	`))
	require.NoError(t, err)
	assert.Empty(t, Analyze(prog, NewConfig()), "int assigned to a float-annotated var is within the numeric family")
}

func TestAnalyzeAnnotatedAcceptsNullAndAny(t *testing.T) {
	prog, _, err := ParseProgram([]byte(`
		var x: int = 1
		let a = [1]
		x = null
		x = a[0]
	`))
	require.NoError(t, err)
	assert.Empty(t, Analyze(prog, NewConfig()))
}

func TestAnalyzeUnannotatedNullBindingNeverWidens(t *testing.T) {
	prog, _, err := ParseProgram([]byte(`
		var x = null
		x = 5
	`))
	require.NoError(t, err)

	errs := Analyze(prog, NewConfig())
	assert.Empty(t, errs)

	decl := prog.Stmts[0].(*DeclStmt)
	assert.False(t, decl.Binding.TypeWidened, "a null/any-declared binding never needs widening")
}

func TestAnalyzeWideningDisabledByConfig(t *testing.T) {
	prog, _, err := ParseProgram([]byte(`
		var x = 1
		x = "hello"
	`))
	require.NoError(t, err)

	cfg := NewConfig()
	cfg.SetBool("analyzer.widen_unannotated", false)
	Analyze(prog, cfg)

	decl := prog.Stmts[0].(*DeclStmt)
	assert.False(t, decl.Binding.TypeWidened, "widening is an escape hatch gated by analyzer.widen_unannotated")
}

func TestAnalyzeIndexAndFieldTargetsAreNotBindingWrites(t *testing.T) {
	prog, _, err := ParseProgram([]byte(`
		let a = [1, 2, 3]
		a[0] = 9
		let m = { k: 1 }
		m.k = "one"
	`))
	require.NoError(t, err)
	assert.Empty(t, Analyze(prog, NewConfig()), "an index write on an immutable binding's container is legal; only reassigning the binding itself is restricted")
}
