package harness

import (
	"context"
	"fmt"
	"time"

	"rltest/internal/assertion"
	"rltest/internal/config"
	"rltest/internal/env"
	"rltest/pkg/logging"
)

// Runner executes cases sequentially over one env.Manager.
type Runner struct {
	manager  *env.Manager
	defaults config.Defaults
	reporter Reporter
	// FailFast stops the run after the first failed or errored case
	FailFast bool
}

// NewRunner creates a runner. Case options are resolved against defaults.
func NewRunner(m *env.Manager, defaults config.Defaults, reporter Reporter) *Runner {
	return &Runner{
		manager:  m,
		defaults: defaults,
		reporter: reporter,
	}
}

// Run executes cases in order and stops the last environment when done.
func (r *Runner) Run(ctx context.Context, cases []Case) Summary {
	summary := Summary{
		StartTime: time.Now(),
		Total:     len(cases),
		Cases:     make([]CaseResult, 0, len(cases)),
	}
	r.reporter.ReportStart(len(cases))

	for _, c := range cases {
		if err := ctx.Err(); err != nil {
			logging.Warn("Harness", "Run cancelled before %s: %v", c.Name, err)
			break
		}

		r.reporter.ReportCaseStart(c)
		result := r.runCase(ctx, c)
		summary.add(result)
		r.reporter.ReportCaseResult(result)

		if r.FailFast && (result.Result == ResultFailed || result.Result == ResultError) {
			logging.Info("Harness", "Stopping after %s (fail fast)", c.Name)
			break
		}
	}

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := r.manager.Stop(stopCtx); err != nil {
		logging.Error("Harness", err, "Failed to stop environment")
	}

	summary.Duration = time.Since(summary.StartTime)
	r.reporter.ReportSummary(summary)
	return summary
}

func (r *Runner) runCase(ctx context.Context, c Case) CaseResult {
	result := CaseResult{
		Name:      c.Name,
		StartTime: time.Now(),
	}
	defer func() { result.Duration = time.Since(result.StartTime) }()

	desc, err := env.Resolve(c.Options, r.defaults)
	if err != nil {
		result.Result = ResultError
		result.Error = fmt.Sprintf("invalid environment: %v", err)
		return result
	}
	result.Env = desc.String()

	ec, err := r.manager.Obtain(ctx, desc)
	if err != nil {
		result.Result = ResultError
		result.Error = err.Error()
		return result
	}
	result.Reused = ec.Reused

	e := env.New(ctx, c.Name, ec, r.manager.Settings())
	result.Result, result.Error = execute(e, c.Fn)

	if ec.Runner != nil && !ec.Runner.IsUp() {
		ec.AddFailure(fmt.Sprintf("environment %s is down after %s", ec.ID, c.Name))
		if err := r.manager.Stop(ctx); err != nil {
			logging.Warn("Harness", "Failed to clean up environment %s: %v", ec.ID, err)
		}
	}

	result.Failures = ec.Failures()
	if result.Result == ResultPassed && len(result.Failures) > 0 {
		result.Result = ResultFailed
	}
	return result
}

// execute runs fn and classifies how it ended. A halted assertion is a
// failure, a Skip is a skip and any other panic is an error.
func execute(e *env.Env, fn func(*env.Env)) (result Result, msg string) {
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		if halt, ok := assertion.AsHalt(rec); ok {
			result, msg = ResultFailed, halt.Error()
			return
		}
		if skip, ok := env.AsSkip(rec); ok {
			result, msg = ResultSkipped, skip.Reason
			return
		}
		logging.Debug("Harness", "Case %s panicked: %v", e.Name(), rec)
		result, msg = ResultError, fmt.Sprintf("panic: %v", rec)
	}()

	fn(e)
	return ResultPassed, ""
}
