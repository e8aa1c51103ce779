package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gooze.dev/pkg/testsynth/internal/domain"
	m "gooze.dev/pkg/testsynth/internal/model"
)

var mergeRemoveShardsFlag bool

// mergeCmd represents the merge command.
var mergeCmd = newMergeCmd()

func newMergeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge sharded reports into a single directory",
		Long:  "Merge reports from shard_* subdirectories written by run --shard into the reports directory.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return workflow.Merge(cmd.Context(), domain.MergeArgs{
				Reports:      m.Path(viper.GetString(outputFlagName)),
				RemoveShards: mergeRemoveShardsFlag,
			})
		},
	}

	cmd.Flags().BoolVar(&mergeRemoveShardsFlag, "remove-shards", false, "delete the shard_* directories after merging")

	return cmd
}

func init() {
	rootCmd.AddCommand(mergeCmd)
}
