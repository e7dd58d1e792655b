package engine

import (
	"sort"

	"go.uber.org/zap"

	"github.com/glasshouse-qa/vizguard-agent/internal/schema"
)

const (
	// deviceSpreadFlagMargin is how far apart the failure rates of two
	// viewport-oriented suites may drift before device consistency is flagged
	deviceSpreadFlagMargin = 0.30

	// browserFlagScore marks a browser as problematic; below
	// browserCriticalScore it joins the critical issue list
	browserFlagScore     = 75.0
	browserCriticalScore = 50.0

	// lowVisualCompleteness is the reading under which a paint or layout
	// anomaly counts as a performance-visual conflict
	lowVisualCompleteness = 85.0
)

// Comparison pairs one capture with the verdict its baseline comparison
// produced, so downstream consumers know the scenario and area without
// parsing keys.
type Comparison struct {
	Capture schema.Capture
	Verdict schema.RegressionVerdict
}

// Analyzer derives the cross-suite signals no single suite can see on its own
type Analyzer struct {
	log *zap.Logger
}

func NewAnalyzer(log *zap.Logger) *Analyzer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Analyzer{log: log}
}

// Correlate computes every signal from the run's outputs. Inputs are read
// only; ordering of returned slices is deterministic.
func (a *Analyzer) Correlate(
	descriptors []schema.SuiteDescriptor,
	results []schema.SuiteResult,
	issues []schema.NormalizedIssue,
	comparisons []Comparison,
) (schema.CorrelationSignals, []schema.CriticalAreaRiskSummary) {

	kinds := make(map[string]schema.SuiteKind, len(descriptors))
	for _, d := range descriptors {
		kinds[d.Name] = d.Kind
	}

	signals := schema.CorrelationSignals{
		CommonIssues: commonIssues(issues),
	}
	signals.DeviceConsistencyScore, signals.DeviceConsistencyFlagged = deviceConsistency(kinds, results)
	signals.BrowserScores, signals.FlaggedBrowsers = browserCompatibility(kinds, results)
	signals.UXScore, signals.UXScoreKnown = uxScore(kinds, results)
	signals.PerfVisualConflict = perfVisualConflict(kinds, results)

	areaRisks := areaRiskSummaries(comparisons)
	signals.RegressionRisk = overallRegressionRisk(areaRisks, comparisons)

	a.log.Debug("correlation complete",
		zap.Int("commonIssues", len(signals.CommonIssues)),
		zap.Float64("deviceConsistency", signals.DeviceConsistencyScore),
		zap.Bool("perfVisualConflict", signals.PerfVisualConflict),
		zap.String("regressionRisk", string(signals.RegressionRisk)))
	return signals, areaRisks
}

// commonIssues keeps groups that span suites or repeat: seen by more than one
// suite, or seen more than once anywhere
func commonIssues(issues []schema.NormalizedIssue) []schema.NormalizedIssue {
	var out []schema.NormalizedIssue
	for _, is := range issues {
		if len(is.AffectedSuites) > 1 || is.OccurrenceCount > 1 {
			out = append(out, is)
		}
	}
	return out
}

// deviceConsistency compares failure rates across viewport-oriented suites.
// Fewer than two such suites means nothing to compare: fully consistent.
func deviceConsistency(kinds map[string]schema.SuiteKind, results []schema.SuiteResult) (float64, bool) {
	var rates []float64
	for _, res := range results {
		if !res.Successful || !kinds[res.SuiteName].ViewportOriented() {
			continue
		}
		rates = append(rates, res.Summary.FailureRate())
	}
	if len(rates) < 2 {
		return 100, false
	}

	lo, hi := rates[0], rates[0]
	for _, r := range rates[1:] {
		if r < lo {
			lo = r
		}
		if r > hi {
			hi = r
		}
	}
	spread := hi - lo
	return 100 * (1 - spread), spread > deviceSpreadFlagMargin
}

// browserCompatibility scores each browser from the browser-oriented suites'
// own pass ratios and flags the ones under the flag threshold
func browserCompatibility(kinds map[string]schema.SuiteKind, results []schema.SuiteResult) ([]schema.BrowserScore, []string) {
	var scores []schema.BrowserScore
	var flagged []string
	for _, res := range results {
		if !res.Successful || kinds[res.SuiteName] != schema.KindCrossBrowser {
			continue
		}
		for _, b := range res.Summary.PerBrowser {
			if b.TotalChecks == 0 {
				continue
			}
			score := float64(b.PassedChecks) * 100 / float64(b.TotalChecks)
			scores = append(scores, schema.BrowserScore{Browser: b.Browser, Score: score})
			if score < browserFlagScore {
				flagged = append(flagged, b.Browser)
			}
		}
	}
	return scores, flagged
}

// uxScore averages the journey success fraction with the interactive success
// fraction, scaled to 0-100. With neither kind of suite in the run the score
// carries no meaning and is marked unknown.
func uxScore(kinds map[string]schema.SuiteKind, results []schema.SuiteResult) (float64, bool) {
	fraction := func(kind schema.SuiteKind) (float64, bool) {
		total, passed := 0, 0
		for _, res := range results {
			if !res.Successful || kinds[res.SuiteName] != kind {
				continue
			}
			total += res.Summary.TotalChecks
			passed += res.Summary.PassedChecks
		}
		if total == 0 {
			return 0, false
		}
		return float64(passed) / float64(total), true
	}

	var parts []float64
	if f, ok := fraction(schema.KindJourney); ok {
		parts = append(parts, f)
	}
	if f, ok := fraction(schema.KindInteractive); ok {
		parts = append(parts, f)
	}
	if len(parts) == 0 {
		return 0, false
	}

	sum := 0.0
	for _, p := range parts {
		sum += p
	}
	return 100 * sum / float64(len(parts)), true
}

// perfVisualConflict is raised when a performance suite saw a layout-shift or
// paint-timing anomaly while its visual-completeness reading was low
func perfVisualConflict(kinds map[string]schema.SuiteKind, results []schema.SuiteResult) bool {
	for _, res := range results {
		if !res.Successful || kinds[res.SuiteName] != schema.KindPerformance {
			continue
		}
		anomaly := false
		for _, is := range res.Issues {
			if is.Kind == schema.IssueKindLayoutShift || is.Kind == schema.IssueKindPaintTiming {
				anomaly = true
				break
			}
		}
		vc := res.Summary.VisualCompleteness
		if anomaly && vc != nil && *vc < lowVisualCompleteness {
			return true
		}
	}
	return false
}

// areaRiskSummaries rolls regressions up per critical area. Risk escalates
// with the number of distinct scenarios regressing in that area: none is low,
// one medium, two high, three or more critical.
func areaRiskSummaries(comparisons []Comparison) []schema.CriticalAreaRiskSummary {
	type bucket struct {
		regressions int
		scenarios   map[string]struct{}
	}
	buckets := make(map[string]*bucket)
	for _, cmp := range comparisons {
		if cmp.Capture.Area == "" {
			continue
		}
		b, ok := buckets[cmp.Capture.Area]
		if !ok {
			b = &bucket{scenarios: make(map[string]struct{})}
			buckets[cmp.Capture.Area] = b
		}
		if cmp.Verdict.IsRegression {
			b.regressions++
			b.scenarios[cmp.Capture.Scenario] = struct{}{}
		}
	}

	out := make([]schema.CriticalAreaRiskSummary, 0, len(buckets))
	for area, b := range buckets {
		scenarios := make([]string, 0, len(b.scenarios))
		for s := range b.scenarios {
			scenarios = append(scenarios, s)
		}
		sort.Strings(scenarios)
		out = append(out, schema.CriticalAreaRiskSummary{
			AreaName:          area,
			RegressionCount:   b.regressions,
			AffectedScenarios: scenarios,
			OverallRisk:       riskForScenarioCount(len(scenarios)),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AreaName < out[j].AreaName })
	return out
}

func riskForScenarioCount(n int) schema.RiskLevel {
	switch {
	case n >= 3:
		return schema.RiskCritical
	case n == 2:
		return schema.RiskHigh
	case n == 1:
		return schema.RiskMedium
	default:
		return schema.RiskLow
	}
}

// overallRegressionRisk is the worst area risk, floored at medium when any
// full-page regression exists without an area summary to carry it
func overallRegressionRisk(areaRisks []schema.CriticalAreaRiskSummary, comparisons []Comparison) schema.RiskLevel {
	risk := schema.RiskLow
	for _, s := range areaRisks {
		if s.OverallRisk.Rank() > risk.Rank() {
			risk = s.OverallRisk
		}
	}
	if risk == schema.RiskLow {
		for _, cmp := range comparisons {
			if cmp.Verdict.IsRegression {
				return schema.RiskMedium
			}
		}
	}
	return risk
}
