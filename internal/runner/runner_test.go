package runner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elematic/zena-sub002/internal/module"
	"github.com/elematic/zena-sub002/internal/pipeline"
	"github.com/elematic/zena-sub002/internal/stdlib"
)

func buildWasi(t *testing.T, source string) []byte {
	t.Helper()
	h := module.NewFileHost(nil, module.TargetWASI)
	stdlib.Register(h)
	h.RegisterVirtualFile("main.zena", source)

	result, err := pipeline.Build(h, "main.zena", pipeline.Options{Target: module.TargetWASI, DCE: true})
	require.NoError(t, err)
	require.False(t, result.HasErrors(), "%v", result.Diagnostics)
	require.NotEmpty(t, result.Bytes)
	return result.Bytes
}

func TestRunRejectsHostTarget(t *testing.T) {
	code := buildWasi(t, `
main() -> void {
    let x = 1 + 2;
}
`)

	_, err := Run(context.Background(), code, module.TargetHost)
	assert.Error(t, err)
}

func TestRunCallsExportedMain(t *testing.T) {
	code := buildWasi(t, `
main() -> void {
    let x = 1 + 2;
}
`)

	result, err := Run(context.Background(), code, module.TargetWASI)
	require.NoError(t, err)
	assert.True(t, result.RanMain)
}

func TestRunReportsNoMainWithoutExportingFalseSuccess(t *testing.T) {
	code := buildWasi(t, `export let x = 1 + 2;`)

	result, err := Run(context.Background(), code, module.TargetWASI)
	require.NoError(t, err)
	assert.False(t, result.RanMain)
}
