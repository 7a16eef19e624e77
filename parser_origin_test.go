package loom

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSONMapBuildsParserOriginContainer(t *testing.T) {
	shapes := NewShapePool()
	c, err := ParseJSONMap(shapes, []byte(`{"f": 10, "name": "ok", "active": true}`))
	require.NoError(t, err)

	assert.False(t, c.isHeap, "a container built by ParseJSONMap is parser-origin, never script-origin")
	assert.False(t, c.isDataMigrated, "isDataMigrated is false until the container's first mutation")

	v, err := FieldRead(c, "f", Span{})
	require.NoError(t, err)
	assert.Equal(t, int32(10), v.i32)
}

// TestScenarioParserOriginMutation is spec.md §8 scenario 6: parse a
// JSON map with integer field f, then assign a string to f. The first
// mutation must not touch the parser's own buffer — only flip
// isDataMigrated — and only the second mutation frees a buffer back to
// the script allocator.
func TestScenarioParserOriginMutation(t *testing.T) {
	shapes := NewShapePool()
	c, err := ParseJSONMap(shapes, []byte(`{"f": 10}`))
	require.NoError(t, err)
	require.False(t, c.isHeap)
	require.False(t, c.isDataMigrated)

	alloc := NewAllocator()
	cfg := NewConfig()

	require.NoError(t, FieldWrite(alloc, shapes, cfg, c, "f", StringCell("thirty"), Span{}))
	assert.True(t, c.isDataMigrated, "first mutation flips the flag instead of freeing the parser's buffer")
	assert.Equal(t, 1, alloc.LiveScriptBuffers(), "the rebuild allocated exactly one script_pool buffer, and nothing was freed yet")

	v, err := FieldRead(c, "f", Span{})
	require.NoError(t, err)
	assert.Equal(t, "thirty", v.str)

	require.NoError(t, FieldWrite(alloc, shapes, cfg, c, "f", Int32Cell(99), Span{}))
	assert.Equal(t, 1, alloc.LiveScriptBuffers(), "second rebuild allocates one buffer and frees the first rebuild's")

	v, err = FieldRead(c, "f", Span{})
	require.NoError(t, err)
	assert.Equal(t, int32(99), v.i32)
}

// TestScenarioParserOriginMutationThroughInterp runs the same scenario
// end to end through the interpreter backend: a host parses a JSON
// document, binds it as a script variable via BindExternal, and the
// script itself performs the mutating assignment.
func TestScenarioParserOriginMutationThroughInterp(t *testing.T) {
	source := []byte(`
		var record = { f: 0 }
		record.f = "thirty"
		print record.f
	`)

	res, err := Compile(source, NewConfig())
	require.NoError(t, err)
	require.False(t, res.HasErrors())

	shapes := NewShapePool()
	external, err := ParseJSONMap(shapes, []byte(`{"f": 10}`))
	require.NoError(t, err)
	require.False(t, external.isHeap)

	var buf bytes.Buffer
	err = res.RunWithExternal(&buf, map[string]Cell{"record": ContainerCell(external)})
	require.NoError(t, err)
	assert.Equal(t, "thirty\n", buf.String())
	assert.True(t, external.isDataMigrated, "the script's field write migrated the parser-origin container")
}
