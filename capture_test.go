package loom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func firstFuncLit(t *testing.T, prog *Program) *FuncLit {
	t.Helper()
	for _, s := range prog.Stmts {
		if decl, ok := s.(*DeclStmt); ok {
			if fn, ok := decl.Init.(*FuncLit); ok {
				return fn
			}
		}
	}
	t.Fatal("no top-level func literal found")
	return nil
}

func TestPromoteCapturesReadOnly(t *testing.T) {
	prog, _, err := ParseProgram([]byte(`
		let x = 1
		let f = fn() {
			print x
		}
	`))
	require.NoError(t, err)

	fn := firstFuncLit(t, prog)
	recs := PromoteCaptures(fn)
	require.Len(t, recs, 1)
	assert.Equal(t, "x", recs[0].Name)
	assert.False(t, recs[0].IsMutable)
	assert.True(t, recs[0].Binding.Captured)
	assert.False(t, recs[0].Binding.CaptureMutable)
}

func TestPromoteCapturesMutable(t *testing.T) {
	prog, _, err := ParseProgram([]byte(`
		var count = 0
		let inc = fn() {
			count = count + 1
		}
	`))
	require.NoError(t, err)

	fn := firstFuncLit(t, prog)
	recs := PromoteCaptures(fn)
	require.Len(t, recs, 1)
	assert.Equal(t, "count", recs[0].Name)
	assert.True(t, recs[0].IsMutable)
	assert.True(t, recs[0].Binding.Captured)
	assert.True(t, recs[0].Binding.CaptureMutable)
}

func TestPromoteCapturesIgnoresLocals(t *testing.T) {
	prog, _, err := ParseProgram([]byte(`
		let f = fn() {
			var local = 1
			local = local + 1
			print local
		}
	`))
	require.NoError(t, err)

	fn := firstFuncLit(t, prog)
	recs := PromoteCaptures(fn)
	assert.Empty(t, recs, "a variable declared inside the function body is never a capture")
}

func TestPromoteCapturesTransitivePropagationThroughNestedClosure(t *testing.T) {
	prog, _, err := ParseProgram([]byte(`
		var total = 0
		let outer = fn() {
			let inner = fn() {
				total = total + 1
			}
		}
	`))
	require.NoError(t, err)

	outer := firstFuncLit(t, prog)
	recs := PromoteCaptures(outer)
	require.Len(t, recs, 1, "outer must itself capture total, transitively, because inner (nested within it) mutates it")
	assert.Equal(t, "total", recs[0].Name)
	assert.True(t, recs[0].IsMutable)
	assert.True(t, recs[0].Binding.CaptureMutable)
}

func TestPromoteCapturesParamsNeverCaptured(t *testing.T) {
	prog, _, err := ParseProgram([]byte(`
		let f = fn(a, b) {
			print a
			print b
		}
	`))
	require.NoError(t, err)

	fn := firstFuncLit(t, prog)
	recs := PromoteCaptures(fn)
	assert.Empty(t, recs, "reading a function's own parameters is never a capture")
}
