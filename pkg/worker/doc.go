// Package worker provides the Worker type that runs due timer jobs.
//
// This package includes:
//   - Worker: acquires due timer jobs and runs them on an ants pool
//   - WorkerOption: configuration options for workers
//   - Retry with backoff for storage bookkeeping
//   - A reaper that releases locks left behind by crashed workers
//
// Most users should import the root package github.com/jdziat/simple-durable-batches
// which provides access to worker configuration through queue.NewWorker().
package worker
