package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".httpkit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
timeout: 5000
followRedirects: false
headers:
  X-Api-Key: secret
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.Timeout)
	assert.False(t, cfg.GetFollowRedirects())
	assert.Equal(t, "secret", cfg.Headers["X-Api-Key"])
}

func TestLoad_MissingFileIsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestFindAndLoad_NoFileReturnsDefaults(t *testing.T) {
	cfg, err := FindAndLoad(t.TempDir())
	require.NoError(t, err)
	assert.True(t, cfg.GetFollowRedirects())
	assert.False(t, cfg.GetInsecure())
	assert.True(t, cfg.GetHistory())
}

func TestFindAndLoad_FindsDotfile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".httpkit.yaml"), []byte("timeout: 100\n"), 0o644))

	cfg, err := FindAndLoad(dir)
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Timeout)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timeout: [not an int\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestMerge(t *testing.T) {
	base := &Config{
		Timeout: 1000,
		Headers: map[string]string{"A": "1", "B": "2"},
	}
	override := &Config{
		Timeout:         2000,
		FollowRedirects: BoolPtr(false),
		Headers:         map[string]string{"B": "3"},
	}

	merged := base.Merge(override)
	assert.Equal(t, 2000, merged.Timeout)
	assert.False(t, merged.GetFollowRedirects())
	assert.Equal(t, "1", merged.Headers["A"])
	assert.Equal(t, "3", merged.Headers["B"])

	// Base is unchanged.
	assert.Equal(t, 1000, base.Timeout)
	assert.Equal(t, "2", base.Headers["B"])
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := &Config{Timeout: 250, Proxy: "localhost:8080", Insecure: BoolPtr(true)}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 250, loaded.Timeout)
	assert.Equal(t, "localhost:8080", loaded.Proxy)
	assert.True(t, loaded.GetInsecure())
}
