package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	batches "github.com/jdziat/simple-durable-batches"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Start a delete batch and simulate its part workers",
	Args:  cobra.NoArgs,
	RunE:  runDemo,
}

var (
	demoInstances int
	demoFailRate  float64
	demoPartDelay time.Duration
)

func init() {
	demoCmd.Flags().IntVar(&demoInstances, "instances", 250, "number of case instances to delete")
	demoCmd.Flags().Float64Var(&demoFailRate, "fail-rate", 0, "fraction of parts that end failed (0..1)")
	demoCmd.Flags().DurationVar(&demoPartDelay, "part-delay", 200*time.Millisecond, "simulated time per part")
}

func runDemo(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	events := a.queue.Events()
	defer a.queue.Unsubscribe(events)

	ids := make([]string, demoInstances)
	for i := range ids {
		ids[i] = fmt.Sprintf("case-%05d", i)
	}

	res, err := batches.StartDeleteBatch(ctx, a.store, a.queue, batches.DeleteRequest{
		InstanceIDs:   ids,
		PartSize:      a.cfg.Monitor.PartSize,
		CheckInterval: a.cfg.Monitor.CheckInterval,
		SearchKey:     "demo",
	})
	if err != nil {
		return err
	}
	log := a.log.With(zap.String("batch_id", res.Batch.ID))
	log.Info("delete batch started",
		zap.Int("instances", len(ids)),
		zap.Int("parts", len(res.Parts)),
		zap.Duration("check_interval", a.cfg.Monitor.CheckInterval),
	)

	w := a.newWorker()
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	go simulateParts(ctx, a, log, res.Parts)

	for {
		select {
		case <-ctx.Done():
			<-done
			return ctx.Err()
		case err := <-done:
			return err
		case e := <-events:
			bf, ok := e.(*batches.BatchFinalized)
			if !ok || bf.BatchID != res.Batch.ID {
				continue
			}
			log.Info("delete batch finished", zap.String("status", string(bf.Status)))
			cancel()
			if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		}
	}
}

// simulateParts plays the part executors: each part sits in a retry once
// before finishing, and ends failed with the configured probability.
func simulateParts(ctx context.Context, a *app, log *zap.Logger, parts []*batches.BatchPart) {
	for _, p := range parts {
		select {
		case <-ctx.Done():
			return
		case <-time.After(demoPartDelay):
		}

		ids, err := batches.PartInstanceIDs(p)
		if err != nil {
			log.Error("bad part document", zap.String("part_id", p.ID), zap.Error(err))
			continue
		}

		if err := a.store.UpdateBatchPartStatus(ctx, p.ID, batches.PartStatusFailed); err != nil {
			log.Error("mark part retrying", zap.String("part_id", p.ID), zap.Error(err))
			continue
		}

		status := batches.PartStatusCompleted
		if rand.Float64() < demoFailRate {
			status = batches.PartStatusFailed
		}
		if err := a.store.CompleteBatchPart(ctx, p.ID, status, nil); err != nil {
			log.Error("complete part", zap.String("part_id", p.ID), zap.Error(err))
			continue
		}
		log.Debug("part done",
			zap.String("part_id", p.ID),
			zap.Int("instances", len(ids)),
			zap.String("status", string(status)),
		)
	}
}
