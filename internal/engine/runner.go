package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/glasshouse-qa/vizguard-agent/internal/schema"
)

// Runner executes one suite with full failure isolation: an error, a panic,
// or a nil result all become a failed SuiteResult instead of taking the run
// down with them.
type Runner struct {
	timeout time.Duration
	log     *zap.Logger
}

// NewRunner builds a runner; timeout bounds each suite, zero means unbounded
func NewRunner(timeout time.Duration, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{timeout: timeout, log: log}
}

// Run invokes the suite against target and normalizes whatever happens into
// exactly one SuiteResult. DurationMs is wall clock and is recorded for
// failures too.
func (r *Runner) Run(ctx context.Context, suite schema.Suite, target string) schema.SuiteResult {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	r.log.Info("running suite", zap.String("suite", suite.Name()), zap.String("target", target))
	start := time.Now()
	res, err := r.invoke(ctx, suite, target)
	elapsed := time.Since(start).Milliseconds()

	if err == nil && res == nil {
		err = fmt.Errorf("suite %s returned no result", suite.Name())
	}
	if err != nil {
		r.log.Warn("suite failed",
			zap.String("suite", suite.Name()),
			zap.Int64("durationMs", elapsed),
			zap.Error(err))
		return schema.SuiteResult{
			SuiteName:  suite.Name(),
			Successful: false,
			DurationMs: elapsed,
			Error:      err.Error(),
		}
	}

	out := *res
	out.SuiteName = suite.Name()
	out.Successful = true
	out.DurationMs = elapsed
	r.log.Info("suite finished",
		zap.String("suite", suite.Name()),
		zap.Int64("durationMs", elapsed),
		zap.Int("issues", len(out.Issues)))
	return out
}

// invoke shields the caller from panicking suites
func (r *Runner) invoke(ctx context.Context, suite schema.Suite, target string) (res *schema.SuiteResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			res = nil
			err = fmt.Errorf("suite panicked: %v", rec)
		}
	}()
	return suite.Run(ctx, target)
}
