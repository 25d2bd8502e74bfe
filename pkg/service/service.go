// Package service defines pluggable bundles of event handlers.
package service

import "github.com/systemstart/nya/pkg/bus"

// Binding attaches a handler to an event name.
type Binding struct {
	Event   string
	Handler bus.Handler
}

// Service is a named set of bindings registered into the bus at startup.
type Service interface {
	Name() string
	Bindings() []Binding
}

type funcService struct {
	name     string
	bindings []Binding
}

// Func builds a Service from a name and a fixed list of bindings.
func Func(name string, bindings ...Binding) Service {
	return &funcService{name: name, bindings: bindings}
}

func (s *funcService) Name() string        { return s.name }
func (s *funcService) Bindings() []Binding { return s.bindings }

// Bind is shorthand for constructing a Binding.
func Bind(event string, h bus.Handler) Binding {
	return Binding{Event: event, Handler: h}
}

// Register binds every service's handlers into b, owned by the service name.
func Register(b *bus.Builder, svcs ...Service) *bus.Builder {
	for _, svc := range svcs {
		for _, binding := range svc.Bindings() {
			b.Bind(svc.Name(), binding.Event, binding.Handler)
		}
	}
	return b
}
