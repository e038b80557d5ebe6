// Package monitor provides the batch completion monitor, a recurring timer
// job handler that finalizes a batch once all of its parts have completed.
//
// Each tick counts the batch's parts of one type:
//
//	total     all parts of the type
//	completed parts with a completion time
//	failed    completed parts whose status is failed
//
// When every part has completed the batch becomes completed, or failed if
// any part failed, and the job's repeat directive is cleared. A batch with
// no parts of the type completes on its first tick. Otherwise the tick is a
// no-op and the scheduler runs it again later.
//
// The monitor holds no state of its own, so re-running a tick is always safe.
// The batch is finalized before the repeat directive is cleared.
package monitor
