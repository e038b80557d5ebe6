// Package handler provides the registry that resolves timer job handlers.
package handler

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jdziat/simple-durable-batches/pkg/core"
	"github.com/jdziat/simple-durable-batches/pkg/security"
)

// Registry maps handler type tags to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]core.JobHandler
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]core.JobHandler)}
}

// Register adds h under h.Type().
func (r *Registry) Register(h core.JobHandler) error {
	if h == nil {
		return fmt.Errorf("handler cannot be nil")
	}
	name := h.Type()
	if err := security.ValidateHandlerType(name); err != nil {
		return fmt.Errorf("handler %q: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("handler %q: %w", name, core.ErrDuplicateHandler)
	}
	r.handlers[name] = h
	return nil
}

// Lookup returns the handler registered for a type tag.
func (r *Registry) Lookup(handlerType string) (core.JobHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[handlerType]
	return h, ok
}

// Types returns the registered type tags in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Execute runs h for job, turning a panic into an error.
func Execute(ctx context.Context, h core.JobHandler, job *core.TimerJob, stores core.Stores) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h.Execute(ctx, job, job.HandlerConfig, stores)
}
