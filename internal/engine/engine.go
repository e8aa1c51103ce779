// Package engine executes test cases against an instrumenting loader, one
// statement at a time under a time budget, with the environment substituted.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"gooze.dev/pkg/testsynth/internal/testcase"
	"gooze.dev/pkg/testsynth/pkg/classpath"
	"gooze.dev/pkg/testsynth/pkg/coverage"
	"gooze.dev/pkg/testsynth/pkg/env"
	"gooze.dev/pkg/testsynth/pkg/env/mock"
)

const tracerName = "gooze.dev/pkg/testsynth/engine"

// Defaults applied to zero Options fields.
const (
	DefaultStatementTimeout = 5 * time.Second
	DefaultInterruptGrace   = 200 * time.Millisecond
)

// Options configure an Engine.
type Options struct {
	// StatementTimeout is the budget of each statement.
	StatementTimeout time.Duration
	// InterruptGrace is how long a timed out statement may take to honor
	// the cancellation of its context before its worker is abandoned.
	InterruptGrace time.Duration
	// MockEnvironment installs substitutes for the environment APIs for
	// the duration of each run.
	MockEnvironment bool
	// StopOnException skips every statement after the first one that
	// threw or timed out.
	StopOnException bool
	// Registry builds the substitutes of one run. Defaults to
	// mock.NewRegistry.
	Registry func() env.Registry
	// Stdout also receives the output of the code under test.
	Stdout io.Writer
	// TracerProvider receives the spans of runs and statements. Defaults
	// to the global provider.
	TracerProvider trace.TracerProvider
}

func (o Options) withDefaults() Options {
	if o.StatementTimeout <= 0 {
		o.StatementTimeout = DefaultStatementTimeout
	}

	if o.InterruptGrace <= 0 {
		o.InterruptGrace = DefaultInterruptGrace
	}

	if o.Registry == nil {
		o.Registry = func() env.Registry { return mock.NewRegistry() }
	}

	if o.TracerProvider == nil {
		o.TracerProvider = otel.GetTracerProvider()
	}

	return o
}

// Engine executes test cases.
type Engine interface {
	// Execute runs tc against loader. Failures of the code under test are
	// captured per statement; only loader and substitution failures abort
	// the run. The exceptions thrown and the covered goals are recorded on
	// tc.
	Execute(ctx context.Context, tc *testcase.TestCase, loader classpath.Loader) (*Result, error)
}

type engine struct {
	opts   Options
	tracer trace.Tracer
}

// New returns an Engine.
func New(opts Options) Engine {
	opts = opts.withDefaults()

	return &engine{opts: opts, tracer: opts.TracerProvider.Tracer(tracerName)}
}

func (e *engine) Execute(ctx context.Context, tc *testcase.TestCase, loader classpath.Loader) (result *Result, err error) {
	if tc == nil || loader == nil {
		return nil, errors.New("execute: test case and loader are required")
	}

	runID := uuid.NewString()
	start := time.Now()

	ctx, span := e.tracer.Start(ctx, "engine.Execute",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("loader.id", loader.ID()),
			attribute.Int("testcase.size", tc.Size()),
			attribute.Bool("engine.mock_environment", e.opts.MockEnvironment),
		),
	)
	defer span.End()

	run := tc.Clone()
	if err := run.Rebind(loader); err != nil {
		slog.Error("Failed to bind test case to loader", "run", runID, "loader", loader.ID(), "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "rebind failed")

		return nil, fmt.Errorf("bind test case to loader %s: %w", loader.ID(), err)
	}

	if e.opts.MockEnvironment {
		lease, installErr := env.Default().Install(ctx, runID, e.opts.Registry())
		gateOperations.WithLabelValues("install", gateResult(installErr)).Inc()

		if installErr != nil {
			slog.Error("Failed to install environment substitutes", "run", runID, "error", installErr)
			span.RecordError(installErr)
			span.SetStatus(codes.Error, "gate install failed")

			return nil, fmt.Errorf("install substitution gate: %w", installErr)
		}

		defer func() {
			restoreErr := lease.Restore()
			gateOperations.WithLabelValues("restore", gateResult(restoreErr)).Inc()

			if restoreErr != nil {
				slog.Error("Failed to restore environment", "run", runID, "error", restoreErr)
				span.RecordError(restoreErr)
				span.SetStatus(codes.Error, "gate restore failed")
				err = errors.Join(err, fmt.Errorf("restore substitution gate: %w", restoreErr))
			}
		}()
	}

	loader.Tracker().Reset()

	output := &syncBuffer{}

	var out io.Writer = output
	if e.opts.Stdout != nil {
		out = io.MultiWriter(output, e.opts.Stdout)
	}

	x := &execution{
		opts:   e.opts,
		tracer: e.tracer,
		scope:  testcase.NewScope(),
		out:    out,
		worker: startWorker(),
	}
	defer func() { x.worker.stop() }()

	outcomes := x.run(ctx, run)

	for i, s := range run.All() {
		tc.Get(i).SetExceptionThrown(s.ExceptionThrown())
	}

	result = &Result{
		RunID:      runID,
		LoaderID:   loader.ID(),
		Outcomes:   outcomes,
		Trace:      loader.Tracker().Snapshot(),
		Exceptions: exceptionGoals(run, outcomes),
		Output:     output.String(),
		Duration:   time.Since(start),
	}

	tc.SetCoveredGoals(result.CoveredGoals())
	executionDuration.Observe(result.Duration.Seconds())

	// An abandoned statement may still mutate statics and record coverage.
	if result.HardTimeout() {
		loader.Reload()
		loaderReloads.Inc()
		slog.Warn("reloaded classes after abandoned statement", "run", runID, "loader", loader.ID())
	}

	span.SetAttributes(
		attribute.Int("outcome.threw", result.Count(Threw)),
		attribute.Int("outcome.timeout", result.Count(Timeout)+result.Count(HardTimeout)),
		attribute.Int("outcome.skipped", result.Count(Skipped)),
		attribute.Int("coverage.goals", len(result.CoveredGoals())),
	)

	slog.Debug("executed test case",
		"run", runID,
		"loader", loader.ID(),
		"statements", run.Size(),
		"threw", result.Count(Threw),
		"skipped", result.Count(Skipped),
		"duration", result.Duration,
	)

	if ctx.Err() != nil {
		return result, fmt.Errorf("execution interrupted: %w", ctx.Err())
	}

	return result, nil
}

// execution is the state of one run.
type execution struct {
	opts   Options
	tracer trace.Tracer
	scope  *testcase.Scope
	out    io.Writer
	worker *worker
}

func (x *execution) run(ctx context.Context, tc *testcase.TestCase) []Outcome {
	outcomes := make([]Outcome, 0, tc.Size())
	stopped := false

	for i, s := range tc.All() {
		var outcome Outcome

		switch {
		case ctx.Err() != nil:
			outcome = Outcome{Position: i, Status: Skipped, Err: ctx.Err()}
		case stopped:
			outcome = Outcome{Position: i, Status: Skipped, Err: ErrStopped}
		default:
			if dependency := x.unresolved(i, s); dependency != nil {
				outcome = Outcome{Position: i, Status: Skipped, Err: dependency}
			} else {
				outcome = x.step(ctx, i, s)
			}
		}

		s.SetExceptionThrown(outcome.Err)

		if outcome.Status == Threw {
			x.scope.SetException(i, outcome.Err)
		}

		if outcome.Status == Success || outcome.Status == Threw {
			for _, a := range s.Assertions() {
				if !a.Evaluate(x.scope) {
					outcome.FailedAssertions++
				}
			}
		}

		if outcome.Status != Success && outcome.Status != Skipped && x.opts.StopOnException {
			stopped = true
		}

		statementsTotal.WithLabelValues(outcome.Status.String()).Inc()
		outcomes = append(outcomes, outcome)
	}

	return outcomes
}

// unresolved returns the error of a statement reading a value that was never
// produced.
func (x *execution) unresolved(position int, s testcase.Statement) error {
	for _, ref := range s.Inputs() {
		if !x.scope.Bound(ref) {
			return &testcase.UnresolvedDependencyError{Position: position, Dependency: ref.Position()}
		}
	}

	return nil
}

// step runs one statement on the worker and waits for it within the
// statement timeout. A statement that outlives the timeout is interrupted by
// cancelling its context; if it still does not return within the grace
// period, its worker is abandoned and replaced.
func (x *execution) step(ctx context.Context, position int, s testcase.Statement) Outcome {
	ctx, span := x.tracer.Start(ctx, "engine.Statement",
		trace.WithAttributes(attribute.Int("statement.position", position)),
	)
	defer span.End()

	stmtCtx, interrupt := context.WithCancel(ctx)
	defer interrupt()

	start := time.Now()
	done := make(chan error, 1)
	x.worker.jobs <- job{ctx: stmtCtx, statement: s, scope: x.scope, out: x.out, done: done}

	timer := time.NewTimer(x.opts.StatementTimeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return x.finished(span, position, err, time.Since(start))
	case <-timer.C:
	case <-ctx.Done():
	}

	interrupt()

	grace := time.NewTimer(x.opts.InterruptGrace)
	defer grace.Stop()

	select {
	case <-done:
		timeout := &TimeoutError{Position: position, Timeout: x.opts.StatementTimeout}
		x.scope.Seal(position, timeout)
		span.SetStatus(codes.Error, "timeout")
		slog.Debug("statement timed out", "position", position, "timeout", x.opts.StatementTimeout)

		return Outcome{Position: position, Status: Timeout, Err: timeout, Duration: time.Since(start)}
	case <-grace.C:
	}

	timeout := &TimeoutError{Position: position, Timeout: x.opts.StatementTimeout, Hard: true}
	x.scope.Seal(position, timeout)
	x.worker.stop()
	x.worker = startWorker()
	abandonedWorkers.Inc()
	span.SetStatus(codes.Error, "hard timeout")
	slog.Warn("statement ignored interruption, abandoning worker", "position", position, "grace", x.opts.InterruptGrace)

	return Outcome{Position: position, Status: HardTimeout, Err: timeout, Duration: time.Since(start)}
}

func (x *execution) finished(span trace.Span, position int, err error, d time.Duration) Outcome {
	switch {
	case err == nil:
		return Outcome{Position: position, Status: Success, Duration: d}
	case errors.Is(err, testcase.ErrUnresolvedDependency):
		return Outcome{Position: position, Status: Skipped, Err: err, Duration: d}
	}

	span.RecordError(err)
	slog.Debug("statement threw", "position", position, "kind", classpath.ExceptionKind(err), "error", err)

	return Outcome{Position: position, Status: Threw, Err: err, Duration: d}
}

// exceptionGoals returns the exception goals of statements that threw.
func exceptionGoals(tc *testcase.TestCase, outcomes []Outcome) []coverage.Goal {
	var goals []coverage.Goal

	seen := map[coverage.GoalID]bool{}

	for _, o := range outcomes {
		if o.Status != Threw {
			continue
		}

		class, member, ok := memberOf(tc.Get(o.Position))
		if !ok {
			continue
		}

		goal := coverage.ExceptionGoal(class, member, classpath.ExceptionKind(o.Err))
		if !seen[goal.ID] {
			seen[goal.ID] = true
			goals = append(goals, goal)
		}
	}

	return goals
}

func memberOf(s testcase.Statement) (class, member string, ok bool) {
	switch st := s.(type) {
	case *testcase.ConstructorStatement:
		return st.Constructor().Class().Name(), st.Constructor().Name(), true
	case *testcase.MethodStatement:
		return st.Method().Class().Name(), st.Method().Name(), true
	case *testcase.FieldReadStatement:
		return st.Field().Class().Name(), st.Field().Name(), true
	case *testcase.FieldWriteStatement:
		return st.Field().Class().Name(), st.Field().Name(), true
	}

	return "", "", false
}
