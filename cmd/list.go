package cmd

import (
	"github.com/spf13/cobra"

	"gooze.dev/pkg/testsynth/internal/domain"
)

// listCmd represents the list command.
var listCmd = newListCmd()

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered classes and goal counts",
		Long:  listLongDescription,
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			criteria, err := cfg.CoverageCriteria()
			if err != nil {
				return err
			}

			return workflow.List(cmd.Context(), domain.ListArgs{
				Criteria:    criteria,
				TargetClass: cfg.TargetClass,
			})
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(listCmd)
}
