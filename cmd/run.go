package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gooze.dev/pkg/testsynth/internal/domain"
	m "gooze.dev/pkg/testsynth/internal/model"
)

var runParallelFlag int
var runShardFlag string
var runStatementTimeoutFlag int
var runInterruptGraceFlag int
var runStopOnExceptionFlag bool
var runMockEnvironmentFlag bool
var runTraceFileFlag string
var runMetricsFileFlag string

// runCmd represents the run command.
var runCmd = newRunCmd()

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [paths...]",
		Short: "Execute and score test suites",
		Long:  runLongDescription,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			criteria, err := cfg.CoverageCriteria()
			if err != nil {
				return err
			}

			shardIndex, totalShards := parseShardFlag(runShardFlag)

			provider, stopTracing, err := startTracing(cfg.TraceFile)
			if err != nil {
				return err
			}

			opts := cfg.EngineOptions()
			opts.TracerProvider = provider

			runErr := workflow.Run(cmd.Context(), domain.RunArgs{
				Paths:           parsePaths(args),
				Reports:         m.Path(cfg.Reports),
				Criteria:        criteria,
				TargetClass:     cfg.TargetClass,
				Workers:         cfg.Parallel,
				ShardIndex:      shardIndex,
				TotalShardCount: totalShards,
				Engine:          opts,
			})

			return errors.Join(
				runErr,
				stopTracing(context.WithoutCancel(cmd.Context())),
				writeMetrics(cfg.MetricsFile, prometheus.DefaultGatherer),
			)
		},
	}

	configureRunFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func configureRunFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&runParallelFlag, runParallelFlagName, "p", viper.GetInt(runParallelConfigKey), "number of parallel workers per suite")
	bindFlagToConfig(cmd.Flags().Lookup(runParallelFlagName), runParallelConfigKey)

	cmd.Flags().IntVar(&runStatementTimeoutFlag, statementTimeoutFlagName, viper.GetInt(statementTimeoutConfigKey), "timeout of a single statement in milliseconds")
	bindFlagToConfig(cmd.Flags().Lookup(statementTimeoutFlagName), statementTimeoutConfigKey)

	cmd.Flags().IntVar(&runInterruptGraceFlag, interruptGraceFlagName, viper.GetInt(interruptGraceConfigKey), "grace period for a timed out statement in milliseconds")
	bindFlagToConfig(cmd.Flags().Lookup(interruptGraceFlagName), interruptGraceConfigKey)

	cmd.Flags().BoolVar(&runStopOnExceptionFlag, stopOnExceptionFlagName, viper.GetBool(stopOnExceptionConfigKey), "skip the statements following the first exception")
	bindFlagToConfig(cmd.Flags().Lookup(stopOnExceptionFlagName), stopOnExceptionConfigKey)

	cmd.Flags().BoolVar(&runMockEnvironmentFlag, mockEnvironmentFlagName, viper.GetBool(mockEnvironmentConfigKey), "substitute clock, files, stdin and dialogs during execution")
	bindFlagToConfig(cmd.Flags().Lookup(mockEnvironmentFlagName), mockEnvironmentConfigKey)

	cmd.Flags().StringVar(&runTraceFileFlag, traceFileFlagName, viper.GetString(traceFileConfigKey), "write engine spans as JSON to this file")
	bindFlagToConfig(cmd.Flags().Lookup(traceFileFlagName), traceFileConfigKey)

	cmd.Flags().StringVar(&runMetricsFileFlag, metricsFileFlagName, viper.GetString(metricsFileConfigKey), "write engine metrics in Prometheus text format to this file")
	bindFlagToConfig(cmd.Flags().Lookup(metricsFileFlagName), metricsFileConfigKey)

	cmd.Flags().StringVarP(&runShardFlag, "shard", "s", "", "shard index and total shard count in the format INDEX/TOTAL (e.g., 0/3)")
}

func parseShardFlag(shard string) (int, int) {
	if shard == "" {
		return 0, 1
	}

	var index, total int

	_, err := fmt.Sscanf(shard, "%d/%d", &index, &total)
	if err != nil || total <= 0 || index < 0 || index >= total {
		return 0, 1
	}

	return index, total
}
