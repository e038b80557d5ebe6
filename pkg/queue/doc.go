// Package queue provides the Queue type for timer job orchestration.
//
// This package includes:
//   - Queue: registers handlers and schedules timer jobs
//   - Option: configuration options for scheduling
//   - Hook registration for job lifecycle events
//   - Event subscription for monitoring
//
// Most users should import the root package github.com/jdziat/simple-durable-batches
// which re-exports Queue and all option functions.
package queue
