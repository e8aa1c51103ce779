package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gooze.dev/pkg/testsynth/internal/domain"
	m "gooze.dev/pkg/testsynth/internal/model"
)

var viewShardFlag string

// viewCmd represents the view command.
var viewCmd = newViewCmd()

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "View previously saved run reports",
		Long: `View the run reports saved in a reports directory. With --shard, view the
reports a sharded run wrote for that shard before they were merged.`,
		Args: cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			shardIndex, totalShards := parseShardFlag(viewShardFlag)

			return workflow.View(cmd.Context(), domain.ViewArgs{
				Reports:         m.Path(viper.GetString(outputFlagName)),
				ShardIndex:      shardIndex,
				TotalShardCount: totalShards,
			})
		},
	}

	cmd.Flags().StringVarP(&viewShardFlag, "shard", "s", "", "view one shard of a sharded run, in the format INDEX/TOTAL")

	return cmd
}

func init() {
	rootCmd.AddCommand(viewCmd)
}
