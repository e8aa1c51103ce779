package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"gooze.dev/pkg/testsynth/internal/engine"
	"gooze.dev/pkg/testsynth/pkg/coverage"
)

const (
	configVersionKey     = "version"
	currentConfigVersion = 1

	configBaseName   = "testsynth"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."

	outputFlagName             = "output"
	criteriaFlagName           = "criteria"
	targetClassFlagName        = "target-class"
	verboseFlagName            = "verbose"
	runParallelFlagName        = "parallel"
	statementTimeoutFlagName   = "statement-timeout-ms"
	interruptGraceFlagName     = "interrupt-grace-ms"
	stopOnExceptionFlagName    = "stop-on-exception"
	mockEnvironmentFlagName    = "mock-environment"
	replaceEnvironmentFlagName = "replace-environment"
	traceFileFlagName          = "trace-file"
	metricsFileFlagName        = "metrics-file"

	criteriaConfigKey           = "coverage.criteria"
	targetClassConfigKey        = "target.class"
	runParallelConfigKey        = "run.parallel"
	statementTimeoutConfigKey   = "engine.statement_timeout_ms"
	interruptGraceConfigKey     = "engine.interrupt_grace_ms"
	stopOnExceptionConfigKey    = "engine.stop_on_exception"
	mockEnvironmentConfigKey    = "engine.mock_environment"
	replaceEnvironmentConfigKey = "engine.replace_environment"
	traceFileConfigKey          = "telemetry.trace_file"
	metricsFileConfigKey        = "telemetry.metrics_file"

	defaultReportsDir         = ".testsynth-reports"
	defaultRunParallel        = 1
	defaultStatementTimeoutMs = 5000
	defaultInterruptGraceMs   = 200
	defaultStopOnException    = false
	defaultMockEnvironment    = true
	defaultReplaceEnvironment = true

	envPrefix = "TESTSYNTH"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logVerboseKey    = "log.verbose"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogFilename   = ".testsynth.log"
	defaultLogLevel      = int(slog.LevelInfo)
	defaultLogVerbose    = false
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

var defaultCriteria = []string{string(coverage.Branch)}

// ErrInvalidConfig is returned when the merged flags, environment and config
// file fail validation.
var ErrInvalidConfig = errors.New("invalid configuration")

var globalLogger *slog.Logger

var configValidator = validator.New(validator.WithRequiredStructEnabled())

func init() {
	viper.SetConfigName(configBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configFolderPath)
	viper.SetConfigFile(filepath.Join(configFolderPath, configFileName))
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.SetDefault(configVersionKey, currentConfigVersion)
	viper.SetDefault(outputFlagName, defaultReportsDir)
	viper.SetDefault(criteriaConfigKey, defaultCriteria)
	viper.SetDefault(targetClassConfigKey, "")
	viper.SetDefault(runParallelConfigKey, defaultRunParallel)
	viper.SetDefault(statementTimeoutConfigKey, defaultStatementTimeoutMs)
	viper.SetDefault(interruptGraceConfigKey, defaultInterruptGraceMs)
	viper.SetDefault(stopOnExceptionConfigKey, defaultStopOnException)
	viper.SetDefault(mockEnvironmentConfigKey, defaultMockEnvironment)
	viper.SetDefault(replaceEnvironmentConfigKey, defaultReplaceEnvironment)
	viper.SetDefault(traceFileConfigKey, "")
	viper.SetDefault(metricsFileConfigKey, "")

	// Logging defaults (used by config/env and as fallbacks for flags).
	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logVerboseKey, defaultLogVerbose)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return
		}

		return
	}
}

// Config is the merged view of flags, TESTSYNTH_* variables and
// testsynth.yaml used by the commands.
type Config struct {
	Reports            string        `validate:"required"`
	Criteria           []string      `validate:"min=1,dive,oneof=branch line method exception mutation"`
	TargetClass        string        `validate:"omitempty,contains=."`
	Parallel           int           `validate:"min=1,max=1024"`
	StatementTimeout   time.Duration `validate:"gt=0"`
	InterruptGrace     time.Duration `validate:"gte=0"`
	StopOnException    bool
	MockEnvironment    bool
	ReplaceEnvironment bool
	TraceFile          string
	MetricsFile        string
}

// loadConfig reads the current viper state and validates it.
func loadConfig() (Config, error) {
	criteria := make([]string, 0)
	for _, value := range viper.GetStringSlice(criteriaConfigKey) {
		for part := range strings.SplitSeq(value, ",") {
			if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
				criteria = append(criteria, part)
			}
		}
	}

	cfg := Config{
		Reports:            viper.GetString(outputFlagName),
		Criteria:           criteria,
		TargetClass:        viper.GetString(targetClassConfigKey),
		Parallel:           viper.GetInt(runParallelConfigKey),
		StatementTimeout:   time.Duration(viper.GetInt64(statementTimeoutConfigKey)) * time.Millisecond,
		InterruptGrace:     time.Duration(viper.GetInt64(interruptGraceConfigKey)) * time.Millisecond,
		StopOnException:    viper.GetBool(stopOnExceptionConfigKey),
		MockEnvironment:    viper.GetBool(mockEnvironmentConfigKey),
		ReplaceEnvironment: viper.GetBool(replaceEnvironmentConfigKey),
		TraceFile:          viper.GetString(traceFileConfigKey),
		MetricsFile:        viper.GetString(metricsFileConfigKey),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the struct tags of cfg.
func (c Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s=%v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}

			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(fields, ", "))
		}

		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return nil
}

// CoverageCriteria parses the configured criteria.
func (c Config) CoverageCriteria() ([]coverage.Criterion, error) {
	criteria := make([]coverage.Criterion, 0, len(c.Criteria))

	for _, value := range c.Criteria {
		criterion, err := coverage.ParseCriterion(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}

		criteria = append(criteria, criterion)
	}

	return criteria, nil
}

// EngineOptions returns the engine settings of c.
func (c Config) EngineOptions() engine.Options {
	return engine.Options{
		StatementTimeout: c.StatementTimeout,
		InterruptGrace:   c.InterruptGrace,
		MockEnvironment:  c.MockEnvironment,
		StopOnException:  c.StopOnException,
	}
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Allow numeric slog levels as well (e.g. -4 for debug).
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// configureLogger configures the global slog logger.
//
// By default it logs at Info; if verbose is true it logs at Debug.
func configureLogger(logPath string, verbose bool) {
	if strings.TrimSpace(logPath) == "" {
		logPath = viper.GetString(logFilenameKey)
	}

	if strings.TrimSpace(logPath) == "" {
		logPath = defaultLogFilename
	}

	var logLevel slog.Level
	if verbose {
		logLevel = slog.LevelDebug
	} else {
		logLevel = parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
	}

	logWriter := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   viper.GetBool(logCompressKey),
	}

	handler := slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel,
	})

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
}
