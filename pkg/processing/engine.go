package processing

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/systemstart/nya/pkg/api"
	"github.com/systemstart/nya/pkg/assets"
	"github.com/systemstart/nya/pkg/bus"
	"github.com/systemstart/nya/pkg/payload"
	"github.com/systemstart/nya/pkg/service"
)

// Policy decides what happens after a step reports handler failures.
type Policy int

const (
	// ContinueOnFailure records the failure and proceeds with the next step.
	ContinueOnFailure Policy = iota
	// FailFast stops the run after the first failed step.
	FailFast
)

func (p Policy) String() string {
	if p == FailFast {
		return "fail-fast"
	}
	return "continue"
}

// Options configures Build.
type Options struct {
	Command    string
	ConfigPath string
	Services   []service.Service

	// Schemas defaults to the built-in definitions.
	Schemas api.Schemas

	Policy Policy
	// StepTimeout bounds each step when positive.
	StepTimeout time.Duration
	// Concurrency caps concurrently running handlers per step when positive.
	Concurrency int

	Registerer prometheus.Registerer
	Logger     *slog.Logger
}

// StepError is returned by Run when a step fails under FailFast.
type StepError struct {
	Index int
	Step  string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s) failed: %v", e.Index+1, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// StepReport describes one executed step.
type StepReport struct {
	Index    int
	Step     string
	Handlers int
	Duration time.Duration
	Failures []*bus.HandlerError
}

// Failed reports whether any handler of the step failed.
func (s StepReport) Failed() bool { return len(s.Failures) > 0 }

// Report summarises a run.
type Report struct {
	RunID   string
	Command string
	Steps   []StepReport
}

// Failed reports whether any executed step failed.
func (r *Report) Failed() bool {
	for _, s := range r.Steps {
		if s.Failed() {
			return true
		}
	}
	return false
}

// FailedSteps returns the names of failed steps in execution order.
func (r *Report) FailedSteps() []string {
	var out []string
	for _, s := range r.Steps {
		if s.Failed() {
			out = append(out, s.Step)
		}
	}
	return out
}

// Runtime executes one schema against one Context and one Bus.
type Runtime struct {
	runID   string
	command string
	schema  api.Schema
	context *Context
	bus     *bus.Bus
	policy  Policy
	timeout time.Duration
	metrics *metrics
	logger  *slog.Logger

	pending sync.WaitGroup

	triggerMu   sync.Mutex
	lastTrigger chan struct{}
}

// BuiltinSchemas loads the schema definitions compiled into the binary.
func BuiltinSchemas() (api.Schemas, error) {
	schemas, err := api.LoadSchemas(assets.FS(), assets.SchemaPattern)
	if err != nil {
		return nil, fmt.Errorf("loading built-in schemas: %w", err)
	}
	return schemas, nil
}

// Build resolves the schema for opts.Command, loads the context file and
// binds every service into a frozen bus. An unknown command fails before the
// context file is read.
func Build(opts Options) (*Runtime, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	schemas := opts.Schemas
	if schemas == nil {
		var err error
		if schemas, err = BuiltinSchemas(); err != nil {
			return nil, err
		}
	}

	schema, err := schemas.Lookup(opts.Command)
	if err != nil {
		return nil, err
	}

	ctx, err := LoadContextFile(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("loading context %s: %w", opts.ConfigPath, err)
	}
	ctx.logger = logger

	b := service.Register(bus.NewBuilder(), opts.Services...).Build(bus.WithConcurrency(opts.Concurrency))

	return &Runtime{
		runID:   uuid.NewString(),
		command: opts.Command,
		schema:  schema,
		context: ctx,
		bus:     b,
		policy:  opts.Policy,
		timeout: opts.StepTimeout,
		metrics: newMetrics(opts.Registerer),
		logger:  logger.With("command", opts.Command),
	}, nil
}

// RunID identifies this runtime instance; handlers use it to name temporary
// resources.
func (r *Runtime) RunID() string { return r.runID }

// Context exposes the underlying store.
func (r *Runtime) Context() *Context { return r.context }

// Get returns a copy of the context value under key, or nil.
func (r *Runtime) Get(key string) any { return r.context.Get(key) }

// Set stores value under key in the context.
func (r *Runtime) Set(key string, value any) { r.context.Set(key, value) }

// Trigger emits event without blocking the caller. Triggered emissions are
// delivered one after another in call order, so log lines from one stream
// keep their order. Run waits for them before it returns.
func (r *Runtime) Trigger(ctx context.Context, event string, p *payload.Payload) {
	ctx = context.WithoutCancel(ctx)
	done := make(chan struct{})

	r.triggerMu.Lock()
	prev := r.lastTrigger
	r.lastTrigger = done
	r.pending.Add(1)
	r.triggerMu.Unlock()

	go func() {
		defer r.pending.Done()
		defer close(done)
		if prev != nil {
			<-prev
		}
		if err := r.bus.Emit(ctx, r, event, p).Wait(); err != nil {
			r.logger.Warn("triggered event failed", "event", event, "error", err)
		}
	}()
}

// Run executes the schema steps in order. Every handler of step i has
// returned before step i+1 is emitted.
func (r *Runtime) Run(ctx context.Context, initial *payload.Payload) (*Report, error) {
	report := &Report{RunID: r.runID, Command: r.command}
	defer r.pending.Wait()

	total := len(r.schema.Steps)
	r.logger.Info("run started", "runID", r.runID, "steps", total, "policy", r.policy)

	for i, step := range r.schema.Steps {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("run interrupted before step %d (%s): %w", i+1, step, err)
		}

		r.logger.Info("step started", "step", step, "index", i+1, "of", total, "handlers", r.bus.Handlers(step))
		sr, err := r.runStep(ctx, i, step, initial)
		report.Steps = append(report.Steps, sr)

		if err == nil {
			r.logger.Info("step completed", "step", step, "index", i+1, "duration", sr.Duration.Round(time.Millisecond))
			continue
		}

		r.logger.Error("step failed", "step", step, "index", i+1, "error", err)
		if r.policy == FailFast {
			return report, &StepError{Index: i, Step: step, Err: err}
		}
	}

	if report.Failed() {
		r.logger.Warn("run completed with failures", "failedSteps", report.FailedSteps())
	} else {
		r.logger.Info("run completed")
	}
	return report, nil
}

func (r *Runtime) runStep(ctx context.Context, index int, step string, p *payload.Payload) (StepReport, error) {
	stepCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	e := r.bus.Emit(stepCtx, r, step, p)
	err := e.Wait()
	duration := time.Since(start)

	sr := StepReport{
		Index:    index,
		Step:     step,
		Handlers: r.bus.Handlers(step),
		Duration: duration,
		Failures: e.Failures(),
	}

	r.metrics.stepDuration.WithLabelValues(step).Observe(duration.Seconds())
	for _, f := range sr.Failures {
		r.metrics.handlerFailures.WithLabelValues(step, f.Owner).Inc()
	}

	if err != nil {
		r.metrics.stepsTotal.WithLabelValues(step, resultFailed).Inc()
		return sr, err
	}
	r.metrics.stepsTotal.WithLabelValues(step, resultSucceeded).Inc()
	return sr, nil
}
