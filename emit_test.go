package loom

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compileForEmit(t *testing.T, src string) *Program {
	t.Helper()
	prog, _, err := ParseProgram([]byte(src))
	require.NoError(t, err)
	for _, s := range prog.Stmts {
		if decl, ok := s.(*DeclStmt); ok {
			if fn, ok := decl.Init.(*FuncLit); ok {
				PromoteCaptures(fn)
			}
		}
	}
	errs := Analyze(prog, NewConfig())
	require.Empty(t, errs)
	return prog
}

func TestEmitGoPlainDeclarationAndAssignment(t *testing.T) {
	prog := compileForEmit(t, `
		var x = 1
		x = 2
		print x
	`)
	out := EmitGo(prog, "main")

	assert.Contains(t, out, "package main")
	assert.Contains(t, out, "var v_x int32 = int32(1)")
	assert.Contains(t, out, "v_x = int32(2)")
	assert.Contains(t, out, "println(loom.Display(loom.Int32Cell(v_x)))")
}

func TestEmitGoWidenedBindingUsesCell(t *testing.T) {
	prog := compileForEmit(t, `
		var x = 1
		x = "hello"
	`)
	out := EmitGo(prog, "main")

	assert.Contains(t, out, "var v_x loom.Cell = loom.Int32Cell(int32(1))")
	assert.Contains(t, out, "v_x = loom.StringCell(\"hello\")")
}

func TestEmitGoIndexAndFieldAssignment(t *testing.T) {
	prog := compileForEmit(t, `
		let a = [1, 2, 3]
		a[0] = 9
	`)
	out := EmitGo(prog, "main")
	assert.Contains(t, out, "loom.IndexWrite(alloc, v_a, int(int32(0)), loom.Int32Cell(int32(9)), loom.Span{})")
}

func TestEmitGoBoundClosureWithMutableCapture(t *testing.T) {
	prog := compileForEmit(t, `
		var count = 0
		let inc = fn() {
			count = count + 1
		}
	`)
	out := EmitGo(prog, "main")

	assert.Contains(t, out, `loom.BuildEnv([]*loom.CaptureRecord{{Name: "count", IsMutable: true}}`)
	assert.Contains(t, out, `case "count":`)
	assert.Contains(t, out, "v_inc := func() loom.Cell {")
	assert.Contains(t, out, "loom.EnvStore(env, 0,")
	assert.NotContains(t, out, "countSnapshot", "a mutable capture must never get a read-only snapshot variable")
}

func TestEmitGoBoundClosureWithReadOnlyCapture(t *testing.T) {
	prog := compileForEmit(t, `
		let limit = 10
		let checker = fn() {
			print limit
		}
	`)
	out := EmitGo(prog, "main")

	assert.Contains(t, out, "v_limitSnapshot := v_limit")
	assert.True(t, strings.Contains(out, "v_limitSnapshot"), "a read-only capture must be read through its snapshot, not the env record")
}

func TestEmitGoAnnotatedIntAssignedFloatTruncates(t *testing.T) {
	prog := compileForEmit(t, `
		var z: int = 42
		z = 3.7
	`)
	out := EmitGo(prog, "main")
	assert.Contains(t, out, "v_z = int32(3.7)", "an int-annotated var assigned a float must truncate via an explicit Go conversion, matching the interpreter's coerceNumeric")
}

func TestEmitGoInlineFuncLiteralDelegatesToInterpreter(t *testing.T) {
	prog := compileForEmit(t, `
		let apply = fn(g) {
			print 1
		}
		apply(fn() {
			print 2
		})
	`)
	out := EmitGo(prog, "main")
	assert.Contains(t, out, "loom.EvalInlineFuncLiteral()", "a func literal passed as a sub-expression (not the direct init of a let/var) is out of scope for direct closure codegen")
}
