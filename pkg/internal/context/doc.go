// Package context provides internal context helpers for job execution.
//
// This package is internal and should not be imported directly.
// It carries the running timer job and the worker that owns it into
// handler contexts; pkg/jobctx exposes read access to handlers.
package context
