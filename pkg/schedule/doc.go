// Package schedule provides recurrence schedules for timer jobs.
//
// This package includes:
//   - Every: Fixed interval schedules
//   - Daily: Run once per day at a specific time
//   - Weekly: Run once per week on a specific day and time
//   - Cron: Standard cron expression support
//   - Parse and NextDue: Evaluate the Repeat directive stored on a timer job
//
// Most users should import the root package github.com/jdziat/simple-durable-batches
// which re-exports the schedule constructors.
package schedule
