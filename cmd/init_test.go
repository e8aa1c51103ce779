package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func chdirTemp(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	originalWD, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { require.NoError(t, os.Chdir(originalWD)) })

	return dir
}

// newInitTestCmd attaches fresh run and render commands so every engine key
// is bound to an unchanged flag.
func newInitTestCmd(args ...string) (*cobra.Command, *bytes.Buffer) {
	cmd, out := newTestRootCmd(newInitCmd())
	cmd.AddCommand(newRunCmd(), newRenderCmd())
	cmd.SetArgs(append([]string{"init"}, args...))

	return cmd, out
}

func readConfigFile(t *testing.T, path string) map[string]any {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var settings map[string]any
	require.NoError(t, yaml.Unmarshal(data, &settings))

	return settings
}

func TestInitCmd_WritesEngineSettings(t *testing.T) {
	dir := chdirTemp(t)

	cmd, out := newInitTestCmd()
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "criteria: branch, statement timeout: 5s")

	settings := readConfigFile(t, filepath.Join(dir, configFileName))

	assert.Equal(t, map[string]any{
		"statement_timeout_ms": 5000,
		"interrupt_grace_ms":   200,
		"stop_on_exception":    false,
		"mock_environment":     true,
		"replace_environment":  true,
	}, settings["engine"])
	assert.Equal(t, map[string]any{"criteria": []any{"branch"}}, settings["coverage"])
	assert.Equal(t, map[string]any{"parallel": 1}, settings["run"])
	assert.Equal(t, defaultReportsDir, settings[outputFlagName])
}

func TestInitCmd_ExistingFile(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{name: "kept without force", wantErr: true},
		{name: "overwritten with force", args: []string{"--force"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := chdirTemp(t)
			targetPath := filepath.Join(dir, configFileName)
			require.NoError(t, os.WriteFile(targetPath, []byte("existing: true\n"), 0o644))

			cmd, _ := newInitTestCmd(tt.args...)
			err := cmd.Execute()

			settings := readConfigFile(t, targetPath)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, map[string]any{"existing": true}, settings)

				return
			}

			require.NoError(t, err)
			assert.Contains(t, settings, "engine")
		})
	}
}

func TestInitCmd_RejectsInvalidEnvironment(t *testing.T) {
	dir := chdirTemp(t)
	t.Setenv("TESTSYNTH_RUN_PARALLEL", "0")

	cmd, _ := newInitTestCmd()
	require.ErrorIs(t, cmd.Execute(), ErrInvalidConfig)

	assert.NoFileExists(t, filepath.Join(dir, configFileName))
}
