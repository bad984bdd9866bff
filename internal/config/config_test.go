package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		_ = os.Chdir(old)
		Reset()
	})
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "", cfg.RulesDir)
	assert.Equal(t, filepath.Join(cfg.ProjectRoot, DefaultUndesiredFile), cfg.UndesiredPath)
	assert.Equal(t, DefaultOutput, cfg.Output)
	assert.False(t, cfg.Verbose)
	assert.Empty(t, ConfigFileUsed())
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	content := "rules_dir: rules\noutput: json\nverbose: true\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tagtidy.yaml"), []byte(content), 0o644))
	chdir(t, dir)

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(cfg.ProjectRoot, "rules"), cfg.RulesDir)
	assert.Equal(t, "json", cfg.Output)
	assert.True(t, cfg.Verbose)
	assert.NotEmpty(t, ConfigFileUsed())
}

func TestLoad_ProjectRootFoundUpward(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "tagtidy.yaml"), []byte("output: json\n"), 0o644))
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	chdir(t, nested)

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Output)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tagtidy.yaml"), []byte("output: json\n"), 0o644))
	chdir(t, dir)
	t.Setenv("TAGTIDY_OUTPUT", "table")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "table", cfg.Output)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("TAGTIDY_OUTPUT", "json")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("output", DefaultOutput, "")
	flags.String("rules", "", "")
	require.NoError(t, flags.Parse([]string{"--output", "table", "--rules", "myrules"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, "table", cfg.Output)
	assert.Equal(t, filepath.Join(cfg.ProjectRoot, "myrules"), cfg.RulesDir)
}

func TestLoad_UnchangedFlagsIgnored(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tagtidy.yaml"), []byte("output: json\n"), 0o644))
	chdir(t, dir)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("output", DefaultOutput, "")
	require.NoError(t, flags.Parse(nil))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	// Default-valued flag must not mask the config file.
	assert.Equal(t, "json", cfg.Output)
}

func TestLoad_RejectsBadOutput(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tagtidy.yaml"), []byte("output: csv\n"), 0o644))
	chdir(t, dir)

	_, err := Load("", nil)
	assert.Error(t, err)
}

func TestUndesiredStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "undesired_tags.json")

	s, err := OpenUndesiredStore(path)
	require.NoError(t, err)
	assert.Empty(t, s.Tags())

	changed, err := s.Add("Blurry", "low-quality", "blurry")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []string{"blurry", "low quality"}, s.Tags())
	assert.True(t, s.Contains("BLURRY"))

	reopened, err := OpenUndesiredStore(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"blurry", "low quality"}, reopened.Tags())

	changed, err = reopened.Remove("blurry")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []string{"low quality"}, reopened.Tags())

	changed, err = reopened.Remove("never there")
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestUndesiredStore_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "undesired_tags.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, err := OpenUndesiredStore(path)
	assert.Error(t, err)
}
