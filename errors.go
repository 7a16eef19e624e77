package loom

import (
	"errors"
	"fmt"
)

// AnalysisError is raised by the Assignment Analyzer (spec §4.1) when a
// program violates a static binding rule: reassigning an immutable name,
// or writing a value whose type disagrees with an explicit annotation.
type AnalysisError struct {
	Message string
	Span    Span
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("%s @ %s", e.Message, e.Span)
}

// ImmutableAssignmentError fires when `analyze` resolves an assignment
// target to a `let`-bound name.
type ImmutableAssignmentError struct {
	Name string
	Span Span
}

func (e *ImmutableAssignmentError) Error() string {
	return fmt.Sprintf("cannot assign to immutable binding `%s` @ %s", e.Name, e.Span)
}

// AnnotatedTypeMismatchError fires when a `var x: T` binding is assigned a
// value whose type isn't T and isn't in T's widening family.
type AnnotatedTypeMismatchError struct {
	Name     string
	Declared string
	Got      string
	Span     Span
}

func (e *AnnotatedTypeMismatchError) Error() string {
	return fmt.Sprintf("cannot assign %s to `%s` declared as %s @ %s", e.Got, e.Name, e.Declared, e.Span)
}

// UnknownBindingError fires when an assignment's target name has no
// entry in any enclosing Scope. Reads of an unresolved name do not
// raise it.
type UnknownBindingError struct {
	Name string
	Span Span
}

func (e *UnknownBindingError) Error() string {
	return fmt.Sprintf("undefined name `%s` @ %s", e.Name, e.Span)
}

// RuntimeError is the base of every error the Container Mutation Runtime
// raises while executing index-write/field-write.
type RuntimeError struct {
	Message string
	Span    Span
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s @ %s", e.Message, e.Span)
}

// UnknownFieldError fires when field_write targets a field name absent
// from the container's current ShapeDescriptor and shape growth is
// disallowed (spec §4.3, field insertion is a Non-goal).
type UnknownFieldError struct {
	Field string
	Span  Span
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown field `%s` @ %s", e.Field, e.Span)
}

// IndexOutOfBoundsError fires when index_write targets an index outside
// [0, length) of the target container (list growth is a Non-goal).
type IndexOutOfBoundsError struct {
	Index  int64
	Length int64
	Span   Span
}

func (e *IndexOutOfBoundsError) Error() string {
	return fmt.Sprintf("index %d out of bounds for length %d @ %s", e.Index, e.Length, e.Span)
}

// AllocationFailureError wraps a failure from either pool in the
// two-allocator discipline (spec §4.3) during specialized-to-generic
// conversion or shape rebuild.
type AllocationFailureError struct {
	Pool string
	Size int
	Span Span
}

func (e *AllocationFailureError) Error() string {
	return fmt.Sprintf("allocation of %d elements from %s failed @ %s", e.Size, e.Pool, e.Span)
}

// isAnalysisError reports whether err is (or wraps) an *AnalysisError,
// the way the teacher's isthrown distinguished a thrown ParsingError from
// a plain backtracking miss.
func isAnalysisError(err error) bool {
	var ae *AnalysisError
	return errors.As(err, &ae)
}
