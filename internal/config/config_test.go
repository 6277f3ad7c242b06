package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	shimerrors "github.com/ygrebnov/shim/errors"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "shim.yaml", cfg.Generate.Manifest)
	assert.Equal(t, ".", cfg.Generate.Dir)
	assert.Equal(t, "shim_gen.go", cfg.Generate.Output)
	assert.Equal(t, "shim_shells_gen.go", cfg.Generate.Shells)
	assert.Equal(t, 4, cfg.Generate.Concurrency)
	assert.Empty(t, cfg.Generate.Tags)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shimgen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`log:
  level: debug
  format: json
generate:
  output: adapters_gen.go
  tags: [integration]
  concurrency: 0
`), 0o600))

	t.Setenv("SHIMGEN_LOG_LEVEL", "warn")
	t.Setenv("SHIMGEN_GENERATE_DIR", "./pkg")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level, "environment overrides the file")
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "./pkg", cfg.Generate.Dir)
	assert.Equal(t, "adapters_gen.go", cfg.Generate.Output)
	assert.Equal(t, "shim.yaml", cfg.Generate.Manifest, "defaults survive a partial file")
	assert.Equal(t, []string{"integration"}, cfg.Generate.Tags)
	assert.Equal(t, 1, cfg.Generate.Concurrency, "concurrency is at least one")
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("log: [\n"), 0o600))

	for name, path := range map[string]string{
		"missing": filepath.Join(dir, "missing.yaml"),
		"broken":  broken,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(path)
			require.Error(t, err)
			assert.True(t, errors.Is(err, shimerrors.ErrInvalidConfig), "got %v", err)
			assert.Contains(t, err.Error(), path)
		})
	}
}
