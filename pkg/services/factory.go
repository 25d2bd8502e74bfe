// Package services constructs the built-in services by name.
package services

import (
	"fmt"
	"log/slog"

	"github.com/systemstart/nya/pkg/service"
	"github.com/systemstart/nya/pkg/services/nyabase"
	"github.com/systemstart/nya/pkg/services/nyacore"
	"github.com/systemstart/nya/pkg/services/preflight"
	"github.com/systemstart/nya/pkg/steps"
)

// Deps are the collaborators shared by the built-in services.
type Deps struct {
	Logger   *slog.Logger
	Executor *steps.Executor
	// Checker overrides the preflight SSH check.
	Checker preflight.Checker
}

// Names lists the built-in services in registration order.
var Names = []string{nyacore.Name, nyabase.Name, preflight.Name}

// New creates a built-in service from its name.
func New(name string, deps Deps) (service.Service, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch name {
	case nyacore.Name:
		return nyacore.New(logger), nil
	case nyabase.Name:
		executor := deps.Executor
		if executor == nil {
			executor = steps.NewExecutor(steps.WithLogger(logger))
		}
		return nyabase.New(executor), nil
	case preflight.Name:
		return preflight.New(deps.Checker, logger), nil
	default:
		return nil, fmt.Errorf("unknown service: %s", name)
	}
}

// Core returns every built-in service.
func Core(deps Deps) ([]service.Service, error) {
	svcs := make([]service.Service, 0, len(Names))
	for _, name := range Names {
		svc, err := New(name, deps)
		if err != nil {
			return nil, err
		}
		svcs = append(svcs, svc)
	}
	return svcs, nil
}
