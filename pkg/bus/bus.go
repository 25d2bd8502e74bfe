// Package bus dispatches named events to the handlers bound to them.
//
// The handler table is assembled with a Builder during startup and frozen by
// Build. Emitting an event runs every bound handler concurrently and returns
// an Emission that resolves once all of them have finished.
package bus

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/systemstart/nya/pkg/payload"
)

// LogEvent carries human-readable narration as a string payload.
const LogEvent = "log"

// Runtime is the view of the orchestrator that handlers receive.
type Runtime interface {
	Get(key string) any
	Set(key string, value any)
	Trigger(ctx context.Context, event string, p *payload.Payload)
}

// Handler reacts to one emission of an event.
type Handler func(ctx context.Context, rt Runtime, p *payload.Payload) error

// HandlerError records the failure of a single handler.
type HandlerError struct {
	Event    string
	Owner    string
	Err      error
	Panicked bool
}

func (e *HandlerError) Error() string {
	owner := e.Owner
	if owner == "" {
		owner = "anonymous"
	}
	if e.Panicked {
		return fmt.Sprintf("handler %s for %q panicked: %v", owner, e.Event, e.Err)
	}
	return fmt.Sprintf("handler %s for %q failed: %v", owner, e.Event, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

type entry struct {
	owner   string
	handler Handler
}

// Builder collects bindings before the bus is frozen.
type Builder struct {
	entries map[string][]entry
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{entries: make(map[string][]entry)}
}

// On binds an anonymous handler to event.
func (b *Builder) On(event string, h Handler) *Builder {
	return b.Bind("", event, h)
}

// Bind binds h to event on behalf of owner. Owner is only used in errors.
func (b *Builder) Bind(owner, event string, h Handler) *Builder {
	b.entries[event] = append(b.entries[event], entry{owner: owner, handler: h})
	return b
}

// Option configures a Bus.
type Option func(*Bus)

// WithConcurrency caps how many handlers of one emission run at once.
// Zero or less means no limit.
func WithConcurrency(n int) Option {
	return func(b *Bus) {
		b.concurrency = n
	}
}

// Bus is the frozen event table.
type Bus struct {
	entries     map[string][]entry
	concurrency int
}

// Build freezes the collected bindings. Later changes to the Builder do not
// affect the returned Bus.
func (b *Builder) Build(opts ...Option) *Bus {
	entries := make(map[string][]entry, len(b.entries))
	for event, list := range b.entries {
		entries[event] = append([]entry(nil), list...)
	}
	bus := &Bus{entries: entries}
	for _, opt := range opts {
		opt(bus)
	}
	return bus
}

// Events returns the bound event names, sorted.
func (b *Bus) Events() []string {
	events := make([]string, 0, len(b.entries))
	for event := range b.entries {
		events = append(events, event)
	}
	sort.Strings(events)
	return events
}

// Handlers returns the number of handlers bound to event.
func (b *Bus) Handlers(event string) int {
	return len(b.entries[event])
}

// Emit schedules every handler bound to event and returns immediately.
// Handlers have no relative ordering.
func (b *Bus) Emit(ctx context.Context, rt Runtime, event string, p *payload.Payload) *Emission {
	e := &Emission{event: event, done: make(chan struct{})}

	list := b.entries[event]
	if len(list) == 0 {
		close(e.done)
		return e
	}

	go func() {
		defer close(e.done)

		var g errgroup.Group
		if b.concurrency > 0 {
			g.SetLimit(b.concurrency)
		}
		for _, en := range list {
			g.Go(func() error {
				if err := invoke(ctx, rt, event, en, p); err != nil {
					e.record(err)
				}
				return nil
			})
		}
		_ = g.Wait()
	}()

	return e
}

func invoke(ctx context.Context, rt Runtime, event string, en entry, p *payload.Payload) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &HandlerError{
				Event:    event,
				Owner:    en.owner,
				Err:      fmt.Errorf("%v\n%s", r, debug.Stack()),
				Panicked: true,
			}
		}
	}()

	if hErr := en.handler(ctx, rt, p); hErr != nil {
		return &HandlerError{Event: event, Owner: en.owner, Err: hErr}
	}
	return nil
}

// Emission is the aggregate completion handle of one Emit call.
type Emission struct {
	event string
	done  chan struct{}

	mu   sync.Mutex
	errs []error
}

// Event returns the emitted event name.
func (e *Emission) Event() string { return e.event }

// Done is closed once every handler has returned.
func (e *Emission) Done() <-chan struct{} { return e.done }

// Wait blocks until every handler has returned and joins their errors.
func (e *Emission) Wait() error {
	<-e.done
	return e.Err()
}

// Err returns the joined handler errors recorded so far.
func (e *Emission) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return errors.Join(e.errs...)
}

// Failures returns the individual handler errors recorded so far.
func (e *Emission) Failures() []*HandlerError {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*HandlerError, 0, len(e.errs))
	for _, err := range e.errs {
		var hErr *HandlerError
		if errors.As(err, &hErr) {
			out = append(out, hErr)
		}
	}
	return out
}

func (e *Emission) record(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errs = append(e.errs, err)
}
