package suites

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/glasshouse-qa/vizguard-agent/internal/schema"
)

// Web-vitals style thresholds: full marks at or under good, zero at or over
// poor, linear in between
const (
	clsGood = 0.1
	clsPoor = 0.25

	fcpGoodMs = 1800.0
	fcpPoorMs = 3000.0

	taskGoodSec = 2.0
	taskPoorSec = 4.0

	completenessFloor = 85.0
)

// PerfVisualSuite measures how the page arrives rather than how it ends up:
// layout shift, paint timing, main-thread saturation, and the fraction of
// imagery that actually rendered. It reports an explicit composite score
// instead of leaning on check ratios.
type PerfVisualSuite struct {
	name    string
	browser Browser
	log     *zap.Logger
}

func NewPerfVisualSuite(name string, browser Browser, log *zap.Logger) *PerfVisualSuite {
	if log == nil {
		log = zap.NewNop()
	}
	return &PerfVisualSuite{name: name, browser: browser, log: log}
}

func (s *PerfVisualSuite) Name() string { return s.name }

func (s *PerfVisualSuite) Run(ctx context.Context, target string) (*schema.SuiteResult, error) {
	sess, err := s.browser.NewSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	defer sess.Close()

	if err := sess.Navigate(ctx, target, ""); err != nil {
		return nil, fmt.Errorf("load target: %w", err)
	}

	res := &schema.SuiteResult{SuiteName: s.name}
	res.Summary.TotalChecks = 4

	var parts []float64
	if sc, known := s.checkLayoutShift(ctx, sess, res); known {
		parts = append(parts, sc)
	}
	if sc, known := s.checkPaintTiming(ctx, sess, res); known {
		parts = append(parts, sc)
	}
	if sc, known := s.checkMainThread(ctx, sess, res); known {
		parts = append(parts, sc)
	}
	if sc, known := s.checkCompleteness(ctx, sess, res); known {
		parts = append(parts, sc)
	}

	score := 0.0
	if len(parts) > 0 {
		for _, p := range parts {
			score += p
		}
		score /= float64(len(parts))
	}
	res.Summary.Score = &score
	res.Summary.FailedChecks = res.Summary.TotalChecks - res.Summary.PassedChecks
	return res, nil
}

// checkLayoutShift sums buffered layout-shift entries, skipping shifts caused
// by recent input the way CLS is defined
func (s *PerfVisualSuite) checkLayoutShift(ctx context.Context, sess Session, res *schema.SuiteResult) (float64, bool) {
	expr := `(() => {
		let cls = 0;
		try {
			const po = new PerformanceObserver(() => {});
			po.observe({type: 'layout-shift', buffered: true});
			for (const e of po.takeRecords()) {
				if (!e.hadRecentInput) cls += e.value;
			}
			po.disconnect();
		} catch (e) {}
		return cls;
	})()`

	var cls float64
	if err := sess.Evaluate(ctx, expr, &cls); err != nil {
		s.fail(res, schema.IssueKindLayoutShift, schema.SeverityMedium,
			fmt.Sprintf("could not measure layout shift: %v", err))
		return 0, false
	}

	if cls > clsGood {
		sev := schema.SeverityMedium
		if cls > clsPoor {
			sev = schema.SeverityHigh
		}
		s.fail(res, schema.IssueKindLayoutShift, sev,
			fmt.Sprintf("cumulative layout shift %.3f exceeds %.2f", cls, clsGood))
	} else {
		res.Summary.PassedChecks++
	}
	return bandScore(cls, clsGood, clsPoor), true
}

// checkPaintTiming reads first-contentful-paint from the paint timeline,
// falling back to the CDP FirstMeaningfulPaint counter when the entry is
// absent
func (s *PerfVisualSuite) checkPaintTiming(ctx context.Context, sess Session, res *schema.SuiteResult) (float64, bool) {
	expr := `(() => {
		const e = performance.getEntriesByType('paint')
			.find(p => p.name === 'first-contentful-paint');
		return e ? e.startTime : 0;
	})()`

	var fcp float64
	if err := sess.Evaluate(ctx, expr, &fcp); err != nil {
		s.fail(res, schema.IssueKindPaintTiming, schema.SeverityMedium,
			fmt.Sprintf("could not measure paint timing: %v", err))
		return 0, false
	}

	if fcp <= 0 {
		if metrics, err := sess.PerfMetrics(ctx); err == nil {
			fmp, nav := metrics["FirstMeaningfulPaint"], metrics["NavigationStart"]
			if fmp > 0 && nav > 0 && fmp > nav {
				fcp = (fmp - nav) * 1000
			}
		}
	}
	if fcp <= 0 {
		// nothing painted yet or the browser exposed no timing; neither is
		// proof of slowness
		res.Summary.PassedChecks++
		return 0, false
	}

	if fcp > fcpGoodMs {
		sev := schema.SeverityMedium
		if fcp > fcpPoorMs {
			sev = schema.SeverityHigh
		}
		s.fail(res, schema.IssueKindPaintTiming, sev,
			fmt.Sprintf("first contentful paint %.0fms exceeds %.0fms", fcp, fcpGoodMs))
	} else {
		res.Summary.PassedChecks++
	}
	return bandScore(fcp, fcpGoodMs, fcpPoorMs), true
}

func (s *PerfVisualSuite) checkMainThread(ctx context.Context, sess Session, res *schema.SuiteResult) (float64, bool) {
	metrics, err := sess.PerfMetrics(ctx)
	if err != nil {
		s.fail(res, "main-thread", schema.SeverityMedium,
			fmt.Sprintf("could not read performance counters: %v", err))
		return 0, false
	}

	taskSec := metrics["TaskDuration"]
	if taskSec > taskGoodSec {
		s.fail(res, "main-thread", schema.SeverityMedium,
			fmt.Sprintf("main thread busy for %.1fs during load", taskSec))
	} else {
		res.Summary.PassedChecks++
	}
	return bandScore(taskSec, taskGoodSec, taskPoorSec), true
}

// checkCompleteness reports the fraction of images that actually decoded,
// the closest observable proxy for "the page looks finished"
func (s *PerfVisualSuite) checkCompleteness(ctx context.Context, sess Session, res *schema.SuiteResult) (float64, bool) {
	expr := `(() => {
		const imgs = Array.from(document.images);
		if (imgs.length === 0) return 100;
		const loaded = imgs.filter(i => i.complete && i.naturalWidth > 0).length;
		return (loaded / imgs.length) * 100;
	})()`

	var vc float64
	if err := sess.Evaluate(ctx, expr, &vc); err != nil {
		s.fail(res, "visual-completeness", schema.SeverityMedium,
			fmt.Sprintf("could not measure visual completeness: %v", err))
		return 0, false
	}

	res.Summary.VisualCompleteness = &vc
	if vc < completenessFloor {
		s.fail(res, "visual-completeness", schema.SeverityMedium,
			fmt.Sprintf("only %.0f%% of imagery rendered", vc))
	} else {
		res.Summary.PassedChecks++
	}
	if vc < 0 {
		vc = 0
	} else if vc > 100 {
		vc = 100
	}
	return vc, true
}

func (s *PerfVisualSuite) fail(res *schema.SuiteResult, kind string, sev schema.Severity, msg string) {
	res.Issues = append(res.Issues, schema.RawIssue{
		SourceSuite: s.name,
		Kind:        kind,
		Severity:    sev,
		Message:     msg,
	})
}

// ---------- Helpers ----------

// bandScore maps a metric onto 0..100: full marks at or under good, zero at
// or over poor, linear in between
func bandScore(v, good, poor float64) float64 {
	switch {
	case v <= good:
		return 100
	case v >= poor:
		return 0
	default:
		return 100 * (poor - v) / (poor - good)
	}
}

