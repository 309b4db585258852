package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindConfigFile(t *testing.T) {
	dir := t.TempDir()
	assert.Empty(t, FindConfigFile(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileNameAlt), []byte("verbose: true\n"), 0o600))
	assert.Equal(t, filepath.Join(dir, ConfigFileNameAlt), FindConfigFile(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("verbose: true\n"), 0o600))
	assert.Equal(t, filepath.Join(dir, ConfigFileName), FindConfigFile(dir))
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFileName), []byte(""), 0o600))

	assert.Equal(t, root, FindProjectRoot(nested, 10))
	assert.Empty(t, FindProjectRoot(nested, 2))
}

func TestDefaults(t *testing.T) {
	d := Defaults()
	assert.Equal(t, DefaultStatePath, d["state_path"])
	assert.Equal(t, DefaultUIPort, d["ui.port"])
	assert.Equal(t, "auto", d["output"])
}
