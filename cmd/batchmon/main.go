// Command batchmon runs the batch completion monitor against a SQL database.
//
// Usage:
//
//	batchmon run                      # work off due timer jobs until interrupted
//	batchmon demo --instances 250     # delete batch walkthrough with simulated part workers
//	batchmon jobs --with-exception    # list timer jobs
//	batchmon stats --since 1h         # per-handler activity
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	batches "github.com/jdziat/simple-durable-batches"
	"github.com/jdziat/simple-durable-batches/pkg/stats"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:           "batchmon",
	Short:         "Batch completion monitor",
	Long:          `Runs recurring monitor jobs that move batches to COMPLETED or FAILED once all of their parts are done.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: ./batchmon.yaml if present)")
	rootCmd.AddCommand(runCmd, demoCmd, jobsCmd, statsCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "batchmon: %v\n", err)
		os.Exit(1)
	}
}

// app holds everything a subcommand needs.
type app struct {
	cfg   *Config
	log   *zap.Logger
	store *batches.GormStorage
	stats stats.Storage
	queue *batches.Queue
}

func setup(ctx context.Context) (*app, error) {
	cfg, err := Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := newLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	store, err := openStorage(ctx, cfg.Database)
	if err != nil {
		_ = log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}

	statsStore := stats.NewGormStorage(store.DB())
	if cfg.Database.AutoMigrate {
		if err := statsStore.MigrateStats(ctx); err != nil {
			_ = log.Sync()
			return nil, fmt.Errorf("migrate stats: %w", err)
		}
	}

	q := batches.New(store)
	if err := q.Register(batches.NewCompletionMonitor()); err != nil {
		return nil, err
	}

	return &app{cfg: cfg, log: log, store: store, stats: statsStore, queue: q}, nil
}

func (a *app) close() {
	if sqlDB, err := a.store.DB().DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.log.Sync()
}

func (a *app) newWorker() *batches.Worker {
	opts := []batches.WorkerOption{
		batches.PollInterval(a.cfg.Worker.PollInterval),
		batches.BatchSize(a.cfg.Worker.BatchSize),
		batches.Concurrency(a.cfg.Worker.Concurrency),
		batches.LockTimeout(a.cfg.Worker.LockTimeout),
		batches.RetryWait(a.cfg.Worker.RetryWait),
		batches.WithLogger(a.log),
	}
	if a.cfg.Worker.ID != "" {
		opts = append(opts, batches.WorkerID(a.cfg.Worker.ID))
	}
	return batches.NewWorker(a.queue, opts...)
}
