package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
}

func TestLoadParsesManifestAndFillsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "zena.yaml")
	require.NoError(t, os.WriteFile(path, []byte("entry: src/main.zena\ntarget: wasi\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "src/main.zena", cfg.Entry)
	assert.Equal(t, TargetWASI, cfg.Target)
	assert.True(t, cfg.DCE)
	assert.Equal(t, "out.wasm", cfg.Output)
}

func TestLoadFromDirFallsBackToDefaultWhenMissing(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadFromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestValidateRejectsBadTarget(t *testing.T) {
	cfg := Default()
	cfg.Target = "gpu"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsMissingEntry(t *testing.T) {
	cfg := Default()
	cfg.Entry = ""
	assert.Error(t, cfg.Validate())
}

func TestSaveRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "zena.yaml")
	cfg := Default()
	cfg.Entry = "app.zena"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "app.zena", loaded.Entry)
}
