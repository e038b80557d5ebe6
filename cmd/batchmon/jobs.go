package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	batches "github.com/jdziat/simple-durable-batches"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List timer jobs",
	Args:  cobra.NoArgs,
	RunE:  runJobs,
}

var (
	jobsHandler       string
	jobsWithException bool
	jobsLimit         int
)

func init() {
	jobsCmd.Flags().StringVar(&jobsHandler, "handler", "", "only jobs with this handler type")
	jobsCmd.Flags().BoolVar(&jobsWithException, "with-exception", false, "only jobs that recorded an exception")
	jobsCmd.Flags().IntVar(&jobsLimit, "limit", 50, "maximum number of jobs to list")
}

func runJobs(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	q := jobsQuery(jobsHandler, jobsWithException, jobsLimit)
	list, err := a.store.FindTimerJobs(ctx, q)
	if err != nil {
		return fmt.Errorf("find timer jobs: %w", err)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tHANDLER\tCONFIGURATION\tREPEAT\tRETRIES\tDUE\tEXCEPTION")
	for _, j := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			j.ID, j.HandlerType, j.HandlerConfig, j.Repeat, j.Retries, formatDue(j.DueDate), j.ExceptionMessage)
	}
	return tw.Flush()
}

func jobsQuery(handler string, withException bool, limit int) *batches.TimerJobQuery {
	q := batches.NewTimerJobQuery().OrderByDueDate(batches.Asc)
	if handler != "" {
		q.HandlerType(handler)
	}
	if withException {
		q.WithException()
	}
	if limit > 0 {
		q.Limit(limit)
	}
	return q
}

func formatDue(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}
