// Package handler provides the internal handler registry.
//
// This package is internal and should not be imported directly.
// It provides:
//   - Registry: handler-type tag to core.JobHandler resolution
//   - Execute: a guarded handler invocation that converts panics to errors
package handler
