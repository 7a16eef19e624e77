package loom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryBasicPipeline(t *testing.T) {
	prog, _, err := ParseProgram([]byte(`
		let x = 5
		x = 10
	`))
	require.NoError(t, err)
	promoteAllCaptures(prog)

	cfg := NewConfig()
	db := NewDatabase(cfg)
	key := ProgramKey{Name: "main"}
	RegisterProgram(db, key, prog, cfg)

	diags, err := Get(db, DiagnosticsQuery, key)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, SeverityError, diags[0].Severity)
}

func TestQueryCaching(t *testing.T) {
	prog, _, err := ParseProgram([]byte(`var x = 1`))
	require.NoError(t, err)

	cfg := NewConfig()
	db := NewDatabase(cfg)
	key := ProgramKey{Name: "main"}
	RegisterProgram(db, key, prog, cfg)

	diags1, err := Get(db, DiagnosticsQuery, key)
	require.NoError(t, err)
	diags2, err := Get(db, DiagnosticsQuery, key)
	require.NoError(t, err)

	// A second Get for the same key must hit the cache rather than
	// recompute: Analyze runs over prog only once, so both results
	// share the same (possibly nil) backing array.
	assert.Equal(t, diags1, diags2)

	stats := db.Stats()
	assert.Equal(t, 1, stats.CachedCount, "DiagnosticsQuery is the only query Get has been asked for")
}

func TestQueryDependencyTracking(t *testing.T) {
	prog, _, err := ParseProgram([]byte(`var x = 1`))
	require.NoError(t, err)

	cfg := NewConfig()
	db := NewDatabase(cfg)
	key := ProgramKey{Name: "main"}
	RegisterProgram(db, key, prog, cfg)

	_, err = Get(db, DiagnosticsQuery, key)
	require.NoError(t, err)

	stats := db.Stats()
	// DiagnosticsQuery depends on programInputs, so both end up cached.
	assert.Equal(t, 2, stats.CachedCount)
	assert.Greater(t, stats.DepsCount, 0)
}

func TestQueryInvalidationOnReregister(t *testing.T) {
	prog, _, err := ParseProgram([]byte(`
		let x = 5
		x = 10
	`))
	require.NoError(t, err)

	cfg := NewConfig()
	db := NewDatabase(cfg)
	key := ProgramKey{Name: "main"}
	RegisterProgram(db, key, prog, cfg)

	diags1, err := Get(db, DiagnosticsQuery, key)
	require.NoError(t, err)
	require.Len(t, diags1, 1, "x is let-bound and reassigned")

	fixed, _, err := ParseProgram([]byte(`
		var x = 5
		x = 10
	`))
	require.NoError(t, err)

	// Re-registering the same key with a corrected program must
	// invalidate the stale cached diagnostics (SetInput's
	// invalidateDependents), not silently return the old error.
	RegisterProgram(db, key, fixed, cfg)
	diags2, err := Get(db, DiagnosticsQuery, key)
	require.NoError(t, err)
	assert.Empty(t, diags2)
}

func TestQueryExplicitInvalidate(t *testing.T) {
	prog, _, err := ParseProgram([]byte(`var x = 1`))
	require.NoError(t, err)

	cfg := NewConfig()
	db := NewDatabase(cfg)
	key := ProgramKey{Name: "main"}
	RegisterProgram(db, key, prog, cfg)

	_, err = Get(db, DiagnosticsQuery, key)
	require.NoError(t, err)
	require.Equal(t, 2, db.Stats().CachedCount)

	Invalidate(db, DiagnosticsQuery, key)
	// Invalidating DiagnosticsQuery drops it and cascades to nothing
	// above it (programInputs has no dependents other than it), but
	// does not touch programInputs itself.
	assert.Equal(t, 1, db.Stats().CachedCount)

	_, err = Get(db, DiagnosticsQuery, key)
	require.NoError(t, err)
	assert.Equal(t, 2, db.Stats().CachedCount, "recomputing repopulates the cache")
}

func TestQueryInvalidateAll(t *testing.T) {
	prog, _, err := ParseProgram([]byte(`var x = 1`))
	require.NoError(t, err)

	cfg := NewConfig()
	db := NewDatabase(cfg)
	key := ProgramKey{Name: "main"}
	RegisterProgram(db, key, prog, cfg)

	_, err = Get(db, DiagnosticsQuery, key)
	require.NoError(t, err)
	require.Greater(t, db.Stats().CachedCount, 0)

	revisionBefore := db.Revision()
	db.InvalidateAll()
	assert.Equal(t, 0, db.Stats().CachedCount)
	assert.Greater(t, db.Revision(), revisionBefore)
}

func TestCompileResultRecomputeRefreshesDiagnostics(t *testing.T) {
	res, err := Compile([]byte(`
		let x = 5
		x = 10
	`), NewConfig())
	require.NoError(t, err)
	require.True(t, res.HasErrors())

	fixed, _, err := ParseProgram([]byte(`
		var x = 5
		x = 10
	`))
	require.NoError(t, err)
	res.Program = fixed

	diags, err := res.Recompute()
	require.NoError(t, err)
	assert.Empty(t, diags)
	assert.False(t, res.HasErrors())
}
