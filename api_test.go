package loom

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileReportsImmutabilityDiagnostic(t *testing.T) {
	res, err := Compile([]byte(`
		let x = 5
		x = 10
	`), NewConfig())
	require.NoError(t, err)
	assert.True(t, res.HasErrors())
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, SeverityError, res.Diagnostics[0].Severity)
}

func TestCompileRunRefusesOnErrors(t *testing.T) {
	res, err := Compile([]byte(`
		let x = 5
		x = 10
	`), NewConfig())
	require.NoError(t, err)

	var buf bytes.Buffer
	err = res.Run(&buf)
	require.Error(t, err)
}

func TestCompileRunSucceeds(t *testing.T) {
	res, err := Compile([]byte(`
		var x = 1
		x = 2
		print x
	`), NewConfig())
	require.NoError(t, err)
	require.False(t, res.HasErrors())

	var buf bytes.Buffer
	require.NoError(t, res.Run(&buf))
	assert.Equal(t, "2\n", buf.String())
}

func TestCompileEmitGoSourceRefusesOnErrors(t *testing.T) {
	res, err := Compile([]byte(`
		let x = 5
		x = 10
	`), NewConfig())
	require.NoError(t, err)

	_, err = res.EmitGoSource("main")
	require.Error(t, err)
}

func TestCompileEmitGoSourceSucceeds(t *testing.T) {
	res, err := Compile([]byte(`
		var x = 1
		print x
	`), NewConfig())
	require.NoError(t, err)
	require.False(t, res.HasErrors())

	src, err := res.EmitGoSource("main")
	require.NoError(t, err)
	assert.Contains(t, src, "package main")
}

func TestRunSourceConvenienceWrapper(t *testing.T) {
	out, diags, err := RunSource([]byte(`
		var y = 42
		y = "hi"
		print y
	`), NewConfig())
	require.NoError(t, err)
	require.Empty(t, diags)
	assert.Equal(t, "hi\n", out)
}

func TestCompileWarnsOnUnusedMutableCapture(t *testing.T) {
	res, err := Compile([]byte(`
		var count = 0
		let f = fn() {
			count = 5
		}
	`), NewConfig())
	require.NoError(t, err)
	require.False(t, res.HasErrors())
	require.NotEmpty(t, res.Diagnostics, "count is written inside f but never read inside f's own body")

	var warn *Diagnostic
	for i := range res.Diagnostics {
		if res.Diagnostics[i].Severity == SeverityWarning {
			warn = &res.Diagnostics[i]
		}
	}
	require.NotNil(t, warn)
}
