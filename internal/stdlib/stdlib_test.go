package stdlib

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elematic/zena-sub002/internal/module"
	"github.com/elematic/zena-sub002/internal/pipeline"
)

func TestRegisterInjectsEveryPreludeModule(t *testing.T) {
	h := module.NewFileHost(nil, module.TargetHost)
	Register(h)

	for _, specifier := range module.Prelude {
		src, err := h.Load(specifier)
		require.NoError(t, err)
		assert.NotEmpty(t, src)
	}
}

func TestEmbeddedPreludeTypeChecksClean(t *testing.T) {
	h := module.NewFileHost(nil, module.TargetHost)
	Register(h)
	h.RegisterVirtualFile("main.zena", `let x = 1;`)

	diags, err := pipeline.Check(h, "main.zena")
	require.NoError(t, err)
	assert.Empty(t, diags)
}
