package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gooze.dev/pkg/testsynth/internal/domain"
	m "gooze.dev/pkg/testsynth/internal/model"
)

var renderDirFlag string
var renderPackageFlag string
var renderCheckFlag bool
var renderVerifyFlag bool
var renderReplaceEnvironmentFlag bool

// renderCmd represents the render command.
var renderCmd = newRenderCmd()

func newRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render [paths...]",
		Short: "Render suites as Go test files",
		Long:  renderLongDescription,
		RunE: func(cmd *cobra.Command, args []string) error {
			return workflow.Render(cmd.Context(), domain.RenderArgs{
				Paths:              parsePaths(args),
				Output:             m.Path(renderDirFlag),
				Package:            renderPackageFlag,
				ReplaceEnvironment: viper.GetBool(replaceEnvironmentConfigKey),
				Check:              renderCheckFlag,
				Verify:             renderVerifyFlag,
			})
		},
	}

	configureRenderFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(renderCmd)
}

func configureRenderFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&renderDirFlag, "dir", "d", "", "directory for rendered files (default: next to each suite)")
	cmd.Flags().StringVar(&renderPackageFlag, "package", "", "package clause of rendered files (default: the suite's package)")
	cmd.Flags().BoolVar(&renderCheckFlag, "check", false, "fail if rendered files differ instead of writing them")
	cmd.Flags().BoolVar(&renderVerifyFlag, "verify", false, "run the rendered tests with go test")

	cmd.Flags().BoolVar(&renderReplaceEnvironmentFlag, replaceEnvironmentFlagName, viper.GetBool(replaceEnvironmentConfigKey), "emit the mock environment scaffold in rendered tests")
	bindFlagToConfig(cmd.Flags().Lookup(replaceEnvironmentFlagName), replaceEnvironmentConfigKey)
}
