// Package core provides the fundamental types and interfaces for the batches package.
//
// This package contains:
//   - Batch, BatchPart and TimerJob data models with GORM annotations
//   - Repeat, the two-state recurrence directive carried by a TimerJob
//   - TimerJobQuery, a builder for filtering and ordering timer jobs
//   - Storage, BatchStore and BatchPartStore interfaces defining the persistence contract
//   - JobHandler, the capability every registered timer job handler implements
//   - Event types for worker monitoring
//   - Error types for job processing
//
// Most users should import the root package github.com/jdziat/simple-durable-batches
// instead of this package directly.
package core
