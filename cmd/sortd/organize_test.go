package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOrganize(t *testing.T, args []string, flags map[string]string) (int, string) {
	t.Helper()
	prefsPath := filepath.Join(t.TempDir(), "prefs.json")
	viper.Set("prefs_path", prefsPath)
	t.Cleanup(func() { viper.Set("prefs_path", "") })

	cmd := newOrganizeCmd()
	for name, value := range flags {
		require.NoError(t, cmd.Flags().Set(name, value))
	}
	require.NoError(t, cmd.Flags().Set("no-llm", "true"))
	require.NoError(t, cmd.Flags().Set("quiet", "true"))
	return runOrganize(context.Background(), cmd, args), prefsPath
}

func seed(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("meeting notes"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.zip"), []byte("PK\x03\x04data"), 0o644))
	return dir
}

func TestOrganizeInvalidPathExitsOne(t *testing.T) {
	code, _ := testOrganize(t, []string{"/no/such/directory"}, map[string]string{"yes": "true"})
	assert.Equal(t, exitInvalid, code)
}

func TestOrganizeEmptyDirectoryExitsTwo(t *testing.T) {
	code, _ := testOrganize(t, []string{t.TempDir()}, map[string]string{"yes": "true"})
	assert.Equal(t, exitNoCandidates, code)
}

func TestOrganizeSuggestsOnlyByDefault(t *testing.T) {
	dir := seed(t)
	code, prefsPath := testOrganize(t, []string{dir}, nil)
	assert.Equal(t, exitOK, code)

	// Suggestions only: nothing moved, nothing learned.
	assert.FileExists(t, filepath.Join(dir, "notes.txt"))
	assert.FileExists(t, filepath.Join(dir, "data.zip"))
	assert.NoFileExists(t, prefsPath)
}

func TestOrganizeDryRunLeavesEverythingAlone(t *testing.T) {
	dir := seed(t)
	code, prefsPath := testOrganize(t, []string{dir}, map[string]string{"yes": "true", "dry-run": "true"})
	assert.Equal(t, exitOK, code)

	assert.FileExists(t, filepath.Join(dir, "notes.txt"))
	assert.FileExists(t, filepath.Join(dir, "data.zip"))
	assert.NoFileExists(t, prefsPath)
}

func TestOrganizeExecuteMovesFiles(t *testing.T) {
	dir := seed(t)
	code, prefsPath := testOrganize(t, []string{dir}, map[string]string{"yes": "true", "execute": "true"})
	assert.Equal(t, exitOK, code)

	assert.FileExists(t, filepath.Join(dir, "Documents", "notes.txt"))
	assert.FileExists(t, filepath.Join(dir, "Other", "data.zip"))
	// A real run persists the decision.
	assert.FileExists(t, prefsPath)
}

func TestOrganizeDryRunFlagOverridesExecute(t *testing.T) {
	dir := seed(t)
	code, prefsPath := testOrganize(t, []string{dir}, map[string]string{
		"yes": "true", "execute": "true", "dry-run": "true",
	})
	assert.Equal(t, exitOK, code)
	assert.FileExists(t, filepath.Join(dir, "notes.txt"))
	assert.NoFileExists(t, prefsPath)
}

func TestOrganizeOutputFlag(t *testing.T) {
	dir := seed(t)
	out := t.TempDir()
	code, _ := testOrganize(t, []string{dir}, map[string]string{
		"yes": "true", "execute": "true", "copy": "true", "output": out,
	})
	assert.Equal(t, exitOK, code)
	assert.FileExists(t, filepath.Join(out, "Documents", "notes.txt"))
	assert.FileExists(t, filepath.Join(dir, "notes.txt"))
}

func TestRootCommandCarriesOrganizeFlags(t *testing.T) {
	dir := seed(t)
	prefsPath := filepath.Join(t.TempDir(), "prefs.json")
	viper.Set("prefs_path", prefsPath)
	t.Cleanup(func() { viper.Set("prefs_path", "") })

	// Bare "sortd -y --execute dir" parses against the root flag set.
	root := newRootCmd()
	require.NoError(t, root.Flags().Set("yes", "true"))
	require.NoError(t, root.Flags().Set("execute", "true"))
	require.NoError(t, root.Flags().Set("no-llm", "true"))
	require.NoError(t, root.Flags().Set("quiet", "true"))

	code := runOrganize(context.Background(), root, []string{dir})
	assert.Equal(t, exitOK, code)
	assert.FileExists(t, filepath.Join(dir, "Documents", "notes.txt"))
}

func TestConfigOverridesFromFlags(t *testing.T) {
	root := newRootCmd()
	require.NoError(t, root.PersistentFlags().Set("model", "mistral:7b"))
	require.NoError(t, root.PersistentFlags().Set("base-url", "http://llm.local:8080/v1"))

	overrides := configOverrides(root)
	require.Contains(t, overrides, "llm")
	llm := overrides["llm"].(map[string]any)
	assert.Equal(t, "mistral:7b", llm["model"])
	assert.Equal(t, "http://llm.local:8080/v1", llm["base_url"])
	vision := overrides["vision"].(map[string]any)
	assert.Equal(t, "http://llm.local:8080/v1", vision["base_url"])
}

func TestConfigOverridesEmptyWithoutFlags(t *testing.T) {
	assert.Empty(t, configOverrides(newOrganizeCmd()))
}
