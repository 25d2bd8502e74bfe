// Package bustest provides a bus.Runtime for handler tests.
package bustest

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/systemstart/nya/pkg/bus"
	"github.com/systemstart/nya/pkg/payload"
)

// Runtime keeps context values in a map and records triggered events
// synchronously instead of dispatching them.
type Runtime struct {
	ID string

	mu        sync.Mutex
	values    map[string]any
	triggered []Triggered
}

// Triggered is one recorded Trigger call.
type Triggered struct {
	Event   string
	Payload *payload.Payload
}

var _ bus.Runtime = (*Runtime)(nil)

// NewRuntime returns a Runtime seeded with values.
func NewRuntime(values map[string]any) *Runtime {
	v := make(map[string]any, len(values))
	for key, value := range values {
		v[key] = value
	}
	return &Runtime{ID: "00000000-0000-4000-8000-000000000000", values: v}
}

// RunID returns ID.
func (r *Runtime) RunID() string { return r.ID }

// Get returns the stored value without copying it.
func (r *Runtime) Get(key string) any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.values[key]
}

// Set stores value as is.
func (r *Runtime) Set(key string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = value
}

// Trigger records the call. No handler runs.
func (r *Runtime) Trigger(_ context.Context, event string, p *payload.Payload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.triggered = append(r.triggered, Triggered{Event: event, Payload: p})
}

// Triggered returns every recorded Trigger call in call order.
func (r *Runtime) Triggered() []Triggered {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.triggered)
}

// Logs returns the text of every triggered log event. Non-string payloads are
// rendered as their type name.
func (r *Runtime) Logs() []string {
	var lines []string
	for _, t := range r.Triggered() {
		if t.Event != bus.LogEvent {
			continue
		}
		line, err := payload.Get[string](t.Payload)
		if err != nil {
			line = fmt.Sprintf("<%s>", t.Payload.TypeName())
		}
		lines = append(lines, line)
	}
	return lines
}
