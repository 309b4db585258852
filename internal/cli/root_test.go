package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/pbilens/internal/cli/config"
	"github.com/leapstack-labs/pbilens/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := NewRootCmd()

	want := []string{
		"version", "init", "upload", "documents", "visuals", "lineage",
		"dax", "sources", "unused", "summary", "export", "serve", "completion",
	}
	for _, name := range want {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}

	for _, flag := range []string{"config", "state", "database-url", "verbose", "output"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestRootCommand_UploadAndUnused(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	reportPath, modelPath, _ := testutil.WriteSamples(t, dir)
	statePath := filepath.Join(dir, "state.db")

	_, _, err := run(t, "--state", statePath, "upload", reportPath, modelPath)
	require.NoError(t, err)

	out, _, err := run(t, "--state", statePath, "-o", "json", "unused")
	require.NoError(t, err)

	var result struct {
		Method   string   `json:"method"`
		Measures []string `json:"measures"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "visual_usage", result.Method)
	assert.Equal(t, testutil.SampleUnusedMeasures, result.Measures)
}

func TestRootCommand_VerboseLogsToStderr(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	_, modelPath, _ := testutil.WriteSamples(t, dir)

	out, errOut, err := run(t, "--state", ":memory:", "-v", "-o", "json", "summary", modelPath)
	require.NoError(t, err)
	assert.Contains(t, out, `"tables"`)
	assert.Contains(t, errOut, "loaded document")
}

func TestRootCommand_InvalidOutput(t *testing.T) {
	t.Chdir(t.TempDir())
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	_, _, err := run(t, "-o", "yaml", "documents")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid output format")
}

func TestCompletionCommand(t *testing.T) {
	out, _, err := run(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "pbilens")

	_, _, err = run(t, "completion", "tcsh")
	assert.Error(t, err)
}
