// Package security provides validation, sanitization, and limits for the batches package.
package security

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/jdziat/simple-durable-batches/pkg/core"
)

// Security limits and configuration
const (
	// MaxHandlerTypeLength is the maximum length for handler type tags
	MaxHandlerTypeLength = 255

	// MaxConfigurationSize is the maximum size in bytes for a job configuration (64KB)
	MaxConfigurationSize = 64 << 10

	// MaxRetries is the hard limit for retry attempts
	MaxRetries = 100

	// MaxConcurrency is the hard limit for worker concurrency
	MaxConcurrency = 1000

	// MaxErrorMessageLength is the maximum length for stored exception messages
	MaxErrorMessageLength = 4096
)

// validHandlerType is a letter followed by letters, digits, '_', '-' or '.'.
var validHandlerType = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_\-\.]*$`)

// ValidateHandlerType checks a handler type tag before it is registered or scheduled.
func ValidateHandlerType(name string) error {
	switch {
	case len(name) > MaxHandlerTypeLength:
		return core.ErrHandlerTypeTooLong
	case !validHandlerType.MatchString(name):
		return core.ErrInvalidHandlerType
	}
	return nil
}

// ValidateConfiguration enforces the configuration size limit.
func ValidateConfiguration(cfg string) error {
	if len(cfg) > MaxConfigurationSize {
		return core.ErrConfigurationTooLarge
	}
	return nil
}

// SanitizeErrorMessage prepares an error message for the exception column.
// Control characters other than newline, carriage return and tab are dropped,
// and the result is cut to MaxErrorMessageLength runes ending in "...".
func SanitizeErrorMessage(msg string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r == '\n', r == '\r', r == '\t':
			return r
		case r < 32, r == 127:
			return -1
		}
		return r
	}, msg)

	if utf8.RuneCountInString(clean) <= MaxErrorMessageLength {
		return clean
	}
	runes := []rune(clean)
	return string(runes[:MaxErrorMessageLength-3]) + "..."
}

// ClampRetries bounds a retry count to [0, MaxRetries].
func ClampRetries(n int) int {
	return min(max(n, 0), MaxRetries)
}

// ClampConcurrency bounds a worker concurrency to [1, MaxConcurrency].
func ClampConcurrency(n int) int {
	return min(max(n, 1), MaxConcurrency)
}
