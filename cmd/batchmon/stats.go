package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show per-handler timer job activity",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

var (
	statsHandler string
	statsSince   time.Duration
)

func init() {
	statsCmd.Flags().StringVar(&statsHandler, "handler", "", "only this handler type")
	statsCmd.Flags().DurationVar(&statsSince, "since", time.Hour, "how far back to look")
}

func runStats(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	rows, err := a.stats.GetStatsHistory(ctx, statsHandler, time.Now().Add(-statsSince), time.Time{})
	if err != nil {
		return fmt.Errorf("read stats: %w", err)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MINUTE\tHANDLER\tSCHEDULED\tDUE\tEXCEPTIONS\tEXECUTED\tRETRIED\tFAILED\tCOMPLETED\tBATCH FAILED")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\n",
			r.Timestamp.Local().Format("2006-01-02 15:04"), r.HandlerType,
			r.Scheduled, r.Due, r.WithException,
			r.Executed, r.Retried, r.Failed, r.BatchesCompleted, r.BatchesFailed)
	}
	return tw.Flush()
}
