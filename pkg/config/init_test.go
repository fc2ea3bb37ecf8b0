package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestInitConfig(t *testing.T) {
	dir := isolate(t)

	path, err := InitConfig(false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config", "dittocmis", "config.yaml"), path)
	assert.True(t, ConfigExists())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	text := string(data)
	for _, section := range []string{
		"# DittoCMIS Configuration File",
		"logging:",
		"metadata:",
		"content:",
		"repository:",
		"gc:",
		"metrics:",
		"# memory, badger or sqlite",
	} {
		assert.Contains(t, text, section)
	}

	var tree map[string]any
	require.NoError(t, yaml.Unmarshal(data, &tree))
	assert.Len(t, tree, 6)
}

func TestInitConfigRoundTrips(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, InitConfigToPath(path, false))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), cfg)
}

func TestInitConfigAlreadyExists(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("custom: true\n"), 0644))

	err := InitConfigToPath(path, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "custom: true\n", string(data))
}

func TestInitConfigForceOverwrite(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, InitConfigToPath(path, false))
	require.NoError(t, os.WriteFile(path, []byte("custom: true\n"), 0644))

	require.NoError(t, InitConfigToPath(path, true))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "repository:")
}

func TestGenerateSampleRendersDurations(t *testing.T) {
	isolate(t)

	data, err := GenerateSample(GetDefaultConfig())
	require.NoError(t, err)
	assert.Contains(t, string(data), "interval: 24h0m0s")
	assert.Contains(t, string(data), "run_timeout: 10m0s")
}
