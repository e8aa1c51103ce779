package cmd

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gooze.dev/pkg/testsynth/pkg/coverage"
)

func TestConfigConstants(t *testing.T) {
	assert.Equal(t, "testsynth", configBaseName)
	assert.Equal(t, "testsynth.yaml", configFileName)
	assert.Equal(t, ".", configFolderPath)
	assert.Equal(t, "output", outputFlagName)
	assert.Equal(t, "parallel", runParallelFlagName)
	assert.Equal(t, "run.parallel", runParallelConfigKey)
	assert.Equal(t, "coverage.criteria", criteriaConfigKey)
	assert.Equal(t, "target.class", targetClassConfigKey)
	assert.Equal(t, "engine.mock_environment", mockEnvironmentConfigKey)
	assert.Equal(t, "engine.replace_environment", replaceEnvironmentConfigKey)
	assert.Equal(t, "engine.statement_timeout_ms", statementTimeoutConfigKey)
	assert.Equal(t, "engine.interrupt_grace_ms", interruptGraceConfigKey)
	assert.Equal(t, "engine.stop_on_exception", stopOnExceptionConfigKey)
	assert.Equal(t, ".testsynth-reports", defaultReportsDir)
	assert.Equal(t, 1, defaultRunParallel)
	assert.Equal(t, "TESTSYNTH", envPrefix)
}

func TestConfigVersionConstants(t *testing.T) {
	assert.Equal(t, "version", configVersionKey)
	assert.Equal(t, 1, currentConfigVersion)
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, defaultReportsDir, cfg.Reports)
	assert.Equal(t, []string{"branch"}, cfg.Criteria)
	assert.Equal(t, 1, cfg.Parallel)
	assert.Equal(t, 5*time.Second, cfg.StatementTimeout)
	assert.Equal(t, 200*time.Millisecond, cfg.InterruptGrace)
	assert.True(t, cfg.MockEnvironment)
	assert.True(t, cfg.ReplaceEnvironment)
	assert.False(t, cfg.StopOnException)

	opts := cfg.EngineOptions()
	assert.Equal(t, 5*time.Second, opts.StatementTimeout)
	assert.True(t, opts.MockEnvironment)
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("TESTSYNTH_COVERAGE_CRITERIA", "line,Method")
	t.Setenv("TESTSYNTH_ENGINE_STATEMENT_TIMEOUT_MS", "750")
	t.Setenv("TESTSYNTH_ENGINE_MOCK_ENVIRONMENT", "false")

	cfg, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, []string{"line", "method"}, cfg.Criteria)
	assert.Equal(t, 750*time.Millisecond, cfg.StatementTimeout)
	assert.False(t, cfg.MockEnvironment)

	criteria, err := cfg.CoverageCriteria()
	require.NoError(t, err)
	assert.Equal(t, []coverage.Criterion{coverage.Line, coverage.Method}, criteria)
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{
		Reports:          "reports",
		Criteria:         []string{"branch"},
		Parallel:         1,
		StatementTimeout: time.Second,
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "target class", mutate: func(c *Config) { c.TargetClass = "targets.Account" }},
		{name: "empty reports", mutate: func(c *Config) { c.Reports = "" }, wantErr: true},
		{name: "no criteria", mutate: func(c *Config) { c.Criteria = nil }, wantErr: true},
		{name: "unknown criterion", mutate: func(c *Config) { c.Criteria = []string{"branch", "path"} }, wantErr: true},
		{name: "zero workers", mutate: func(c *Config) { c.Parallel = 0 }, wantErr: true},
		{name: "zero timeout", mutate: func(c *Config) { c.StatementTimeout = 0 }, wantErr: true},
		{name: "negative grace", mutate: func(c *Config) { c.InterruptGrace = -time.Second }, wantErr: true},
		{name: "unqualified class", mutate: func(c *Config) { c.TargetClass = "Account" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidConfig)
				return
			}

			require.NoError(t, err)
		})
	}
}

func TestParseSlogLevel(t *testing.T) {
	tests := []struct {
		value string
		want  slog.Level
	}{
		{"", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{" WARN ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"-4", slog.LevelDebug},
		{"loud", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, parseSlogLevel(tt.value, slog.LevelInfo))
		})
	}
}
