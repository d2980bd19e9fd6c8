package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elematic/zena-sub002/internal/errors"
	"github.com/elematic/zena-sub002/internal/module"
)

// memHost builds a FileHost with every prelude module registered as an empty
// file, so tests only have to supply the source under test.
func memHost() *module.FileHost {
	h := module.NewFileHost(nil, module.TargetHost)
	for _, name := range module.Prelude {
		h.RegisterVirtualFile(name, "")
	}
	return h
}

func codes(diags []*errors.Diagnostic) []string {
	out := make([]string, len(diags))
	for i, d := range diags {
		out[i] = d.Code
	}
	return out
}

func TestCheckReturnsNoDiagnosticsForValidProgram(t *testing.T) {
	h := memHost()
	h.RegisterVirtualFile("main.zena", `export let x = 1 + 2;`)

	diags, err := Check(h, "main.zena")
	require.NoError(t, err)
	assert.Empty(t, diags)
}

func TestCheckSurfacesParserDiagnostics(t *testing.T) {
	h := memHost()
	h.RegisterVirtualFile("main.zena", `let x = ;`)

	diags, err := Check(h, "main.zena")
	require.NoError(t, err)
	assert.Contains(t, codes(diags), errors.PAR001)
}

func TestCheckSurfacesTypeCheckDiagnostics(t *testing.T) {
	h := memHost()
	h.RegisterVirtualFile("main.zena", `let x: string = 1;`)

	diags, err := Check(h, "main.zena")
	require.NoError(t, err)
	assert.Contains(t, codes(diags), errors.TC001)
}

func TestBuildEmitsBytesForValidProgram(t *testing.T) {
	h := memHost()
	h.RegisterVirtualFile("main.zena", `
main() -> void {
    let x = 1 + 2;
}
`)

	result, err := Build(h, "main.zena", DefaultOptions())
	require.NoError(t, err)
	assert.False(t, result.HasErrors())
	assert.NotEmpty(t, result.Bytes)
	assert.Contains(t, result.PhaseTimings, "load")
	assert.Contains(t, result.PhaseTimings, "typecheck")
	assert.Contains(t, result.PhaseTimings, "codegen")
}

func TestBuildStopsBeforeCodegenOnTypeError(t *testing.T) {
	h := memHost()
	h.RegisterVirtualFile("main.zena", `let x: string = 1;`)

	result, err := Build(h, "main.zena", DefaultOptions())
	require.NoError(t, err)
	assert.True(t, result.HasErrors())
	assert.Nil(t, result.Bytes)
	assert.NotContains(t, result.PhaseTimings, "codegen")
}

func TestBuildStopsBeforeTypecheckOnParseError(t *testing.T) {
	h := memHost()
	h.RegisterVirtualFile("main.zena", `let x = ;`)

	result, err := Build(h, "main.zena", DefaultOptions())
	require.NoError(t, err)
	assert.True(t, result.HasErrors())
	assert.NotContains(t, result.PhaseTimings, "typecheck")
}

func TestCompileReturnsBytesForValidSource(t *testing.T) {
	bytes, err := Compile(`
main() -> void {
    let x = 1 + 2;
}
`)
	require.NoError(t, err)
	assert.NotEmpty(t, bytes)
}

func TestCompileReturnsErrorForInvalidSource(t *testing.T) {
	_, err := Compile(`let x: string = 1;`)
	require.Error(t, err)
}

func TestDefaultOptionsEnablesDCE(t *testing.T) {
	opts := DefaultOptions()
	assert.True(t, opts.DCE)
	assert.Equal(t, module.TargetHost, opts.Target)
}
