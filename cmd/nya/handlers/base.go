package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/systemstart/nya/pkg/payload"
	"github.com/systemstart/nya/pkg/processing"
	"github.com/systemstart/nya/pkg/scaffold"
	"github.com/systemstart/nya/pkg/services"
	"github.com/systemstart/nya/pkg/steps"
)

// BaseOptions are the inputs of base build and base destroy.
type BaseOptions struct {
	ConfigPath      string
	FailFast        bool
	StepTimeout     time.Duration
	SchemasDir      string
	MetricsTextfile string
	AnsiblePlaybook string
}

// Base runs command against the config at opts.ConfigPath with an empty
// initial payload. Under the default policy failed steps are logged and the
// run still succeeds; with FailFast the first failed step is returned.
func Base(ctx context.Context, command string, opts BaseOptions) error {
	logger := slog.Default()

	configPath, err := scaffold.ResolvePath(opts.ConfigPath)
	if err != nil {
		return err
	}

	schemas, err := loadSchemas(opts.SchemasDir)
	if err != nil {
		return err
	}

	binary := opts.AnsiblePlaybook
	if binary == "" {
		binary = steps.DefaultBinary
	}
	executor := steps.NewExecutor(steps.WithBinary(binary), steps.WithLogger(logger))

	svcs, err := services.Core(services.Deps{Logger: logger, Executor: executor})
	if err != nil {
		return err
	}

	policy := processing.ContinueOnFailure
	if opts.FailFast {
		policy = processing.FailFast
	}

	registry := prometheus.NewRegistry()
	rt, err := processing.Build(processing.Options{
		Command:     command,
		ConfigPath:  configPath,
		Services:    svcs,
		Schemas:     schemas,
		Policy:      policy,
		StepTimeout: opts.StepTimeout,
		Registerer:  registry,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := executor.Cleanup(rt.RunID()); err != nil {
			logger.Warn("failed to remove ssh control directory", "error", err)
		}
	}()

	_, runErr := rt.Run(ctx, payload.Empty())

	if opts.MetricsTextfile != "" {
		if err := prometheus.WriteToTextfile(opts.MetricsTextfile, registry); err != nil {
			logger.Warn("failed to write metrics", "filename", opts.MetricsTextfile, "error", err)
		}
	}

	if runErr != nil {
		return fmt.Errorf("%s: %w", command, runErr)
	}
	return nil
}
