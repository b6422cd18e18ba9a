package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"yqhp/systest/internal/corpus"
	"yqhp/systest/internal/shard"
)

func newListCmd(opts *rootOptions) *cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "列出测试及其所属 worker",
		Long: `按与 run 相同的规则计算分片并列出每个测试所属的 worker，
用于确认相同 worker 数下分片可复现。`,
		Example: `  systest list -j 4
  systest list -j 4 --shard-strategy block -R SANS`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listTests(cmd, opts)
		},
	}
	addSelectionFlags(listCmd.Flags())
	return listCmd
}

func listTests(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := loadConfig(opts, cmd.Flags())
	if err != nil {
		return err
	}
	strategy, err := shard.ByName(cfg.Run.ShardStrategy)
	if err != nil {
		return err
	}
	tests, err := corpus.New(cfg.Corpus.Path, cfg.Corpus.Pattern).Discover(cmd.Context())
	if err != nil {
		return fmt.Errorf("发现测试失败: %w", err)
	}

	filters := cfg.Filters()
	count := cfg.Run.Parallel
	perWorker := make([]int, count)

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "POSITION\tWORKER\tSTATUS\tNAME")
	for i, tc := range tests {
		owner := strategy.Owner(i, len(tests), count)
		status := "run"
		switch {
		case !filters.Selected(tc):
			status = "filtered"
		case filters.PRExcluded(tc):
			status = "skip-pr"
		default:
			perWorker[owner]++
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", tc.Position, owner, status, tc.Name)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if !opts.quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "\n%d tests, %d workers (%s)\n", len(tests), count, strategy.Name())
		for i, n := range perWorker {
			fmt.Fprintf(cmd.OutOrStdout(), "  worker %d: %d to run\n", i, n)
		}
	}
	return nil
}
