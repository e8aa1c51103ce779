// Package cmd provides the root command and CLI setup for testsynth.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"gooze.dev/pkg/testsynth/internal/adapter"
	"gooze.dev/pkg/testsynth/internal/controller"
	"gooze.dev/pkg/testsynth/internal/domain"
	m "gooze.dev/pkg/testsynth/internal/model"
)

var fs afero.Fs
var suiteStore adapter.SuiteStore
var reportStore adapter.ReportStore
var testAdapter adapter.TestRunnerAdapter
var workflow domain.Workflow
var ui controller.UI

// reportsOutputDirFlag is a root-level flag shared by commands that read/write reports.
var reportsOutputDirFlag string

// criteriaFlag selects the coverage criteria for commands that score goals.
var criteriaFlag []string

// targetClassFlag restricts goal reporting to one class.
var targetClassFlag string

// verboseFlag switches the log file to debug level.
var verboseFlag bool

func init() {
	configureRootFlags(rootCmd)

	// Initialize shared dependencies.
	ui = controller.NewUI(rootCmd, controller.IsTTY(os.Stdout))
	fs = afero.NewOsFs()
	suiteStore = adapter.NewSuiteStore(fs)
	reportStore = adapter.NewReportStore(fs)
	testAdapter = adapter.NewLocalTestRunnerAdapter()
	workflow = domain.NewWorkflow(
		suiteStore,
		reportStore,
		testAdapter,
		ui,
		fs,
		nil,
	)
}

const pathPatternsHelp = `Supports Go-style path patterns:
  - ./...             recursively scan current directory
  - ./suites/...      recursively scan suites directory
  - a.yaml b_test.go  individual suite files`

const rootLongDescription = `testsynth executes unit test cases against instrumented Go types, scores
them with coverage fitness functions and renders them as Go test files.

Suites are YAML statement lists or previously rendered *_test.go files.

` + pathPatternsHelp

const runLongDescription = `Execute suites, score them against the selected coverage criteria and
save one JSON report per suite.

` + pathPatternsHelp

const renderLongDescription = `Render suites as Go test files. YAML suites become <name>_synth_test.go
next to the suite; rendered Go suites are rewritten in place.

` + pathPatternsHelp

const listLongDescription = `List the registered classes, their members and the number of coverage
goals per criterion.`

// rootCmd represents the base command when called without any subcommands.
var rootCmd = baseRootCmd()

func baseRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "testsynth",
		Short: "Unit test execution and rendering for Go types",
		Long:  rootLongDescription,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogger(viper.GetString(logFilenameKey), viper.GetBool(logVerboseKey))
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
}

func newRootCmd() *cobra.Command {
	cmd := baseRootCmd()
	configureRootFlags(cmd)

	return cmd
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().
		StringVarP(
			&reportsOutputDirFlag, outputFlagName, "o",
			viper.GetString(outputFlagName),
			"output directory for run reports",
		)
	bindFlagToConfig(cmd.PersistentFlags().Lookup(outputFlagName), outputFlagName)

	cmd.PersistentFlags().StringSliceVarP(&criteriaFlag, criteriaFlagName, "c", viper.GetStringSlice(criteriaConfigKey), "coverage criteria (branch, line, method, exception, mutation)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(criteriaFlagName), criteriaConfigKey)

	cmd.PersistentFlags().StringVar(&targetClassFlag, targetClassFlagName, viper.GetString(targetClassConfigKey), "only report goals of this class (e.g. targets.Account)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(targetClassFlagName), targetClassConfigKey)

	cmd.PersistentFlags().BoolVarP(&verboseFlag, verboseFlagName, "v", viper.GetBool(logVerboseKey), "write debug logs")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(verboseFlagName), logVerboseKey)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	err := rootCmd.ExecuteContext(ctx)

	stop()

	if err != nil {
		os.Exit(1)
	}
}

func parsePaths(args []string) []m.Path {
	paths := make([]m.Path, 0, len(args))
	for _, arg := range args {
		paths = append(paths, m.Path(arg))
	}

	return paths
}
