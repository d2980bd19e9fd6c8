package module

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memHost is a Host backed entirely by RegisterVirtualFile, so module graph
// tests don't touch the filesystem or need the stdlib prelude on disk.
func memHost() *FileHost {
	return NewFileHost(nil, TargetHost)
}

func TestLoadSingleModuleNoImports(t *testing.T) {
	h := memHost()
	h.RegisterVirtualFile("zena:string", "")
	h.RegisterVirtualFile("zena:array", "")
	h.RegisterVirtualFile("zena:error", "")
	h.RegisterVirtualFile("zena:option", "")
	h.RegisterVirtualFile("zena:sequence", "")
	h.RegisterVirtualFile("zena:iterator", "")
	h.RegisterVirtualFile("zena:range", "")
	h.RegisterVirtualFile("zena:console", "")
	h.RegisterVirtualFile("zena:box", "")
	h.RegisterVirtualFile("zena:map", "")
	h.RegisterVirtualFile("main.zena", "let x = 1;")

	g := NewGraph(h)
	mod, err := g.Load("main.zena")
	require.NoError(t, err)
	assert.Equal(t, "main.zena", mod.Path)
	assert.Empty(t, mod.Diagnostics)
	assert.Contains(t, g.Order, "main.zena")
}

func TestCyclicImportsAreTolerated(t *testing.T) {
	h := memHost()
	for _, name := range Prelude {
		h.RegisterVirtualFile(name, "")
	}
	h.RegisterVirtualFile("a.zena", `import { b } from "./b";
export let a = 1;`)
	h.RegisterVirtualFile("b.zena", `import { a } from "./a";
export let b = 2;`)

	g := NewGraph(h)
	mod, err := g.Load("a.zena")
	require.NoError(t, err)
	assert.NotNil(t, mod)
	assert.False(t, mod.Pending)
	assert.False(t, g.Module("b.zena").Pending)
}

func TestExportStarReExportsAndDetectsCollisions(t *testing.T) {
	h := memHost()
	for _, name := range Prelude {
		h.RegisterVirtualFile(name, "")
	}
	h.RegisterVirtualFile("lib.zena", `export let shared = 1;`)
	h.RegisterVirtualFile("main.zena", `export * from "./lib";
export let shared = 2;`)

	g := NewGraph(h)
	mod, err := g.Load("main.zena")
	require.NoError(t, err)

	found := false
	for _, d := range mod.Diagnostics {
		if d.Code == "MOD004" {
			found = true
		}
	}
	assert.True(t, found, "re-exporting a name already locally exported should be flagged MOD004")
}

func TestMissingModuleProducesDiagnostic(t *testing.T) {
	h := memHost()
	for _, name := range Prelude {
		h.RegisterVirtualFile(name, "")
	}
	h.RegisterVirtualFile("main.zena", `import { x } from "nonexistent";`)

	g := NewGraph(h)
	mod, err := g.Load("main.zena")
	require.NoError(t, err)
	require.NotEmpty(t, mod.Diagnostics)
	assert.Equal(t, "MOD001", mod.Diagnostics[0].Code)
}
