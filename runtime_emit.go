package loom

import "fmt"

// This file supplies the small set of entry points generated Go source
// (emit.go's output) calls that the source-level runtime (interp.go,
// mutation_index.go, mutation_field.go) exposes only in error-returning
// form. Emitted code runs after static analysis has already proven the
// operation well-typed, so a failure here means the emitted program
// doesn't match what the analyzer checked — an internal invariant
// violation, not a recoverable runtime condition, so these panic
// instead of threading an error return through every generated call
// site (mirroring the teacher's own vm.go, which panics on a VM opcode
// operating on a malformed operand stack rather than propagating an
// error from inside the dispatch loop).

// MustSpecializedRead wraps SpecializedReadWithFallback for emitted
// code, which has no span to report (generated source carries no
// surrounding diagnostic context) and no caller prepared to handle an
// error return from an index read already proven in-bounds by analysis.
func MustSpecializedRead(c *Container, index int) Cell {
	v, err := SpecializedReadWithFallback(c, index, Span{})
	if err != nil {
		panic(fmt.Sprintf("loom: %v", err))
	}
	return v
}

// MustFieldRead wraps FieldRead for emitted code, analogous to
// MustSpecializedRead.
func MustFieldRead(c *Container, key string) Cell {
	v, err := FieldRead(c, key, Span{})
	if err != nil {
		panic(fmt.Sprintf("loom: %v", err))
	}
	return v
}

// EvalInlineFuncLiteral is the labeled runtime-delegation fallback the
// Go-source emitter calls for a function literal used inline as a
// sub-expression (see SPEC_FULL.md's Emitter Contract section): the
// emitter's direct closure-construction support is scoped to literals
// bound at a let/var declaration site, so an inline literal reaching
// codegen signals a source program outside that scope.
func EvalInlineFuncLiteral() Cell {
	panic("loom: inline function literals are only supported by the interpreter backend")
}

// UnboxInt32, UnboxInt64, UnboxFloat64, UnboxString and UnboxBool give
// emitted code a typed read of a captured variable's env slot when the
// binding's declared type is narrower than the tagged Cell the env
// record stores it as (spec.md §4.4's "capture read" row).
func UnboxInt32(c Cell) int32 { return c.i32 }

func UnboxInt64(c Cell) int64 {
	v, _ := unboxInt64(c)
	return v
}

func UnboxFloat64(c Cell) float64 {
	v, _ := unboxFloat64(c)
	return v
}

func UnboxString(c Cell) string { return c.str }

func UnboxBool(c Cell) bool { return c.i32 != 0 }
