package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	batches "github.com/jdziat/simple-durable-batches"
	"github.com/jdziat/simple-durable-batches/pkg/stats"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run due timer jobs until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runWorker,
}

func runWorker(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	a.queue.OnJobFailed(func(_ context.Context, job *batches.TimerJob, err error) {
		a.log.Warn("timer job dead-lettered",
			zap.String("job_id", job.ID),
			zap.String("handler_type", job.HandlerType),
			zap.Error(err),
		)
	})

	events := a.queue.Events()
	defer a.queue.Unsubscribe(events)
	go logFinalized(ctx, a.log, events)

	if a.cfg.Stats.Enabled {
		collector := stats.NewCollector(a.queue, a.stats,
			stats.WithInterval(a.cfg.Stats.Interval),
			stats.WithRetention(a.cfg.Stats.Retention),
			stats.WithLogger(a.log),
		)
		go collector.Start(ctx)
	}

	w := a.newWorker()
	a.log.Info("starting worker",
		zap.String("driver", a.cfg.Database.Driver),
		zap.String("worker_id", w.Config().WorkerID),
	)
	if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func logFinalized(ctx context.Context, log *zap.Logger, events <-chan batches.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-events:
			if bf, ok := e.(*batches.BatchFinalized); ok {
				log.Info("batch finalized",
					zap.String("batch_id", bf.BatchID),
					zap.String("status", string(bf.Status)),
					zap.Time("at", bf.Timestamp.Truncate(time.Millisecond)),
				)
			}
		}
	}
}
