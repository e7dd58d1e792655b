package engine

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/glasshouse-qa/vizguard-agent/internal/baseline"
	"github.com/glasshouse-qa/vizguard-agent/internal/config"
	"github.com/glasshouse-qa/vizguard-agent/internal/schema"
)

// Phase is where the orchestrator currently is; transitions only move forward
type Phase string

const (
	PhaseInit               Phase = "init"
	PhaseRunningSuites      Phase = "running-suites"
	PhaseComparingBaselines Phase = "comparing-baselines"
	PhaseCorrelating        Phase = "correlating"
	PhaseScoring            Phase = "scoring"
	PhaseDone               Phase = "done"
)

// BaselineStore is the slice of baseline storage the orchestrator touches
type BaselineStore interface {
	Has(key string) (bool, error)
	Read(key string) ([]byte, error)
	Write(key string, img []byte) error
}

// VerdictComparator classifies a fresh capture against its stored baseline
type VerdictComparator interface {
	Compare(key string, baselineImg, currentImg []byte) (schema.RegressionVerdict, error)
}

// Orchestrator drives a full run: every enabled suite in plan order, then
// baseline comparison, correlation, and scoring. It either returns a complete
// Report or a fatal plan error; cancellation aborts with no partial report.
type Orchestrator struct {
	cfg      *config.Config
	suites   []schema.Suite
	store    BaselineStore
	comp     VerdictComparator
	runner   *Runner
	analyzer *Analyzer
	log      *zap.Logger
	phase    Phase
}

func NewOrchestrator(cfg *config.Config, suites []schema.Suite, store BaselineStore, comp VerdictComparator, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	if comp == nil {
		comp = baseline.NewComparator(cfg.Bands, nil)
	}
	return &Orchestrator{
		cfg:      cfg,
		suites:   suites,
		store:    store,
		comp:     comp,
		runner:   NewRunner(cfg.SuiteTimeout(), log),
		analyzer: NewAnalyzer(log),
		log:      log,
		phase:    PhaseInit,
	}
}

// Phase reports the orchestrator's current stage
func (o *Orchestrator) Phase() Phase { return o.phase }

func (o *Orchestrator) setPhase(p Phase) {
	o.log.Debug("phase transition", zap.String("from", string(o.phase)), zap.String("to", string(p)))
	o.phase = p
}

// RunAll executes the whole pipeline. The plan is validated before any suite
// runs; a bad plan is the one fatal error class.
func (o *Orchestrator) RunAll(ctx context.Context) (*schema.Report, error) {
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}
	if o.cfg.Target == "" {
		return nil, &config.ValidationError{Problems: []string{"target URL required"}}
	}

	start := time.Now()
	o.log.Info("run starting",
		zap.String("target", o.cfg.Target),
		zap.Int("suites", len(o.cfg.EnabledSuites())))

	o.setPhase(PhaseRunningSuites)
	results, err := o.runSuites(ctx)
	if err != nil {
		return nil, err
	}

	o.setPhase(PhaseComparingBaselines)
	comparisons, created := o.compareBaselines(results)

	o.setPhase(PhaseCorrelating)
	descriptors := o.cfg.EnabledSuites()
	normalized := schema.NormalizeIssues(results)
	signals, areaRisks := o.analyzer.Correlate(descriptors, results, normalized, comparisons)

	o.setPhase(PhaseScoring)
	successful := 0
	for _, res := range results {
		if res.Successful {
			successful++
		}
	}
	completionRate := 0.0
	if len(results) > 0 {
		completionRate = float64(successful) / float64(len(results))
	}
	overall := overallScore(descriptors, results)

	rep := &schema.Report{
		RunID:              uuid.NewString(),
		Target:             o.cfg.Target,
		Timestamp:          start.UTC(),
		DurationMs:         time.Since(start).Milliseconds(),
		SuiteResults:       results,
		NormalizedIssues:   normalized,
		AreaRisks:          areaRisks,
		Signals:            signals,
		RegressionVerdicts: verdictsOf(comparisons),
		BaselinesCreated:   created,
		OverallScore:       overall,
		VisualPerfection:   visualPerfection(signals.CommonIssues, comparisons),
		Confidence:         confidence(completionRate, overall),
		CompletionRate:     completionRate,
		CriticalIssues:     criticalIssues(results, signals, areaRisks, comparisons),
		Recommendations:    recommendations(signals, areaRisks, comparisons),
	}

	o.setPhase(PhaseDone)
	o.log.Info("run complete",
		zap.String("runId", rep.RunID),
		zap.Float64("overallScore", rep.OverallScore),
		zap.String("confidence", string(rep.Confidence)),
		zap.Int64("durationMs", rep.DurationMs))
	return rep, nil
}

// runSuites executes enabled suites sequentially in plan order. A cancelled
// context aborts the run; everything else is isolated per suite.
func (o *Orchestrator) runSuites(ctx context.Context) ([]schema.SuiteResult, error) {
	byName := make(map[string]schema.Suite, len(o.suites))
	for _, s := range o.suites {
		byName[s.Name()] = s
	}

	descriptors := o.cfg.EnabledSuites()
	results := make([]schema.SuiteResult, 0, len(descriptors))
	for _, d := range descriptors {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run cancelled: %w", err)
		}
		suite, ok := byName[d.Name]
		if !ok {
			results = append(results, schema.SuiteResult{
				SuiteName:  d.Name,
				Successful: false,
				Error:      "no implementation registered for suite",
			})
			continue
		}
		results = append(results, o.runner.Run(ctx, suite, o.cfg.Target))
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("run cancelled: %w", err)
	}
	return results, nil
}

// compareBaselines walks every capture the suites produced. Absent baseline
// means create-and-skip, or just skip when creation is disabled; an
// unavailable store or unreadable image becomes an audit verdict, never a
// silent pass and never a fabricated regression.
func (o *Orchestrator) compareBaselines(results []schema.SuiteResult) ([]Comparison, []string) {
	var comparisons []Comparison
	var created []string

	for _, res := range results {
		for _, shot := range res.Captures {
			key := shot.BaselineKey()

			img, err := os.ReadFile(shot.Path)
			if err != nil {
				comparisons = append(comparisons, Comparison{
					Capture: shot,
					Verdict: baseline.FailureVerdict(key, fmt.Errorf("read capture: %w", err)),
				})
				continue
			}

			has, err := o.store.Has(key)
			if err != nil {
				o.log.Warn("baseline store unavailable", zap.String("key", key), zap.Error(err))
				comparisons = append(comparisons, Comparison{
					Capture: shot,
					Verdict: baseline.FailureVerdict(key, err),
				})
				continue
			}

			if !has {
				if o.cfg.SkipBaselineCreation {
					o.log.Info("baseline absent, creation disabled", zap.String("key", key))
					continue
				}
				if err := o.store.Write(key, img); err != nil {
					comparisons = append(comparisons, Comparison{
						Capture: shot,
						Verdict: baseline.FailureVerdict(key, fmt.Errorf("create baseline: %w", err)),
					})
					continue
				}
				o.log.Info("baseline created", zap.String("key", key))
				created = append(created, key)
				continue
			}

			base, err := o.store.Read(key)
			if err != nil {
				comparisons = append(comparisons, Comparison{
					Capture: shot,
					Verdict: baseline.FailureVerdict(key, err),
				})
				continue
			}

			verdict, err := o.comp.Compare(key, base, img)
			if err != nil {
				verdict = baseline.FailureVerdict(key, err)
			}
			comparisons = append(comparisons, Comparison{Capture: shot, Verdict: verdict})
		}
	}
	return comparisons, created
}

func verdictsOf(comparisons []Comparison) []schema.RegressionVerdict {
	if len(comparisons) == 0 {
		return nil
	}
	out := make([]schema.RegressionVerdict, 0, len(comparisons))
	for _, cmp := range comparisons {
		out = append(out, cmp.Verdict)
	}
	return out
}
