// Package nyacore renders the log event on the process logger.
package nyacore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/systemstart/nya/pkg/bus"
	"github.com/systemstart/nya/pkg/payload"
	"github.com/systemstart/nya/pkg/service"
)

// Name identifies the service in handler errors.
const Name = "nya-core"

// Service writes log events to a slog logger.
type Service struct {
	logger *slog.Logger
}

// New creates the core service. A nil logger uses slog.Default.
func New(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// Name returns Name.
func (s *Service) Name() string { return Name }

// Bindings binds the log event.
func (s *Service) Bindings() []service.Binding {
	return []service.Binding{service.Bind(bus.LogEvent, s.log)}
}

// log prints text payloads. Anything else is reported and skipped so a bad
// log call never fails a step.
func (s *Service) log(ctx context.Context, _ bus.Runtime, p *payload.Payload) error {
	msg, err := Text(p)
	if err != nil {
		s.logger.WarnContext(ctx, "unprintable log payload", "type", p.TypeName(), "error", err)
		return nil
	}
	s.logger.InfoContext(ctx, msg)
	return nil
}

// Text narrows p to a string or a fmt.Stringer.
func Text(p *payload.Payload) (string, error) {
	if msg, err := payload.Get[string](p); err == nil {
		return msg, nil
	}
	stringer, err := payload.Get[fmt.Stringer](p)
	if err != nil {
		return "", err
	}
	return stringer.String(), nil
}
