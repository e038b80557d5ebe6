// Package security provides validation, sanitization, and limits for the batches package.
//
// This package includes:
//   - Input validation for handler types and job configuration payloads
//   - Exception message sanitization before storage
//   - Clamping functions to enforce safe limits on retries and concurrency
//
// Most users should import the root package github.com/jdziat/simple-durable-batches
// which re-exports the limits.
package security
