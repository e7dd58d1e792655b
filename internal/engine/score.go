package engine

import (
	"fmt"
	"sort"

	"github.com/glasshouse-qa/vizguard-agent/internal/schema"
)

const (
	// fallbackSuiteScore stands in when a successful suite reported neither a
	// domain score nor any checks
	fallbackSuiteScore = 50.0

	criticalCommonPenalty = 15.0
	regressionPenalty     = 10.0

	confidenceHighCompletion   = 0.9
	confidenceHighScore        = 80.0
	confidenceMediumCompletion = 0.7
	confidenceMediumScore      = 60.0

	uxRecommendBelow     = 70.0
	uxUrgentBelow        = 50.0
	deviceRecommendBelow = 80.0
)

// suiteScore extracts a 0-100 score from one suite: its own domain score when
// it computed one, else its pass ratio, else the neutral fallback
func suiteScore(res schema.SuiteResult) float64 {
	if res.Summary.Score != nil {
		return clamp(*res.Summary.Score, 0, 100)
	}
	if res.Summary.TotalChecks > 0 {
		return float64(res.Summary.PassedChecks) * 100 / float64(res.Summary.TotalChecks)
	}
	return fallbackSuiteScore
}

// overallScore is the weight-normalized average over suites that succeeded,
// with weights re-normalized to the successful subset. No successful weighted
// suite means 0.
func overallScore(descriptors []schema.SuiteDescriptor, results []schema.SuiteResult) float64 {
	weights := make(map[string]float64, len(descriptors))
	for _, d := range descriptors {
		weights[d.Name] = d.Weight
	}

	num, den := 0.0, 0.0
	for _, res := range results {
		if !res.Successful {
			continue
		}
		w := weights[res.SuiteName]
		if w <= 0 {
			continue
		}
		num += w * suiteScore(res)
		den += w
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// visualPerfection starts at 100 and pays for every critical common issue and
// every regression; it never goes below zero
func visualPerfection(common []schema.NormalizedIssue, comparisons []Comparison) float64 {
	score := 100.0
	score -= criticalCommonPenalty * float64(countCriticalCommon(common))
	score -= regressionPenalty * float64(countRegressions(comparisons))
	if score < 0 {
		return 0
	}
	return score
}

func countCriticalCommon(common []schema.NormalizedIssue) int {
	n := 0
	for _, is := range common {
		if is.Severity == schema.SeverityCritical {
			n++
		}
	}
	return n
}

func countRegressions(comparisons []Comparison) int {
	n := 0
	for _, cmp := range comparisons {
		if cmp.Verdict.IsRegression {
			n++
		}
	}
	return n
}

// confidence grades how much the overall score can be trusted
func confidence(completionRate, overall float64) schema.ConfidenceLevel {
	switch {
	case completionRate >= confidenceHighCompletion && overall >= confidenceHighScore:
		return schema.ConfidenceHigh
	case completionRate >= confidenceMediumCompletion && overall >= confidenceMediumScore:
		return schema.ConfidenceMedium
	default:
		return schema.ConfidenceLow
	}
}

// criticalIssues assembles the ordered headline list: total suite breakdowns
// first, then critically incompatible browsers, widespread issues, critical
// areas, and severe individual regressions
func criticalIssues(
	results []schema.SuiteResult,
	signals schema.CorrelationSignals,
	areaRisks []schema.CriticalAreaRiskSummary,
	comparisons []Comparison,
) []string {
	var out []string

	for _, res := range results {
		if !res.Successful {
			out = append(out, fmt.Sprintf("suite %s failed: %s", res.SuiteName, res.Error))
		}
	}
	for _, b := range signals.BrowserScores {
		if b.Score < browserCriticalScore {
			out = append(out, fmt.Sprintf("browser %s compatibility critically low (%.0f/100)", b.Browser, b.Score))
		}
	}
	for _, is := range signals.CommonIssues {
		if is.Severity == schema.SeverityCritical {
			out = append(out, fmt.Sprintf("widespread issue: %s (%d occurrences across %d suites)",
				issueLabel(is), is.OccurrenceCount, len(is.AffectedSuites)))
		}
	}
	for _, s := range areaRisks {
		if s.OverallRisk == schema.RiskCritical {
			out = append(out, fmt.Sprintf("critical area %q regressing in %d scenarios", s.AreaName, len(s.AffectedScenarios)))
		}
	}
	for _, cmp := range comparisons {
		if cmp.Verdict.Severity == schema.SeverityCritical {
			out = append(out, fmt.Sprintf("severe visual regression: %s (%.2f%% of pixels differ)",
				cmp.Verdict.Key, cmp.Verdict.PixelDiffPercent))
		}
	}
	return out
}

func issueLabel(is schema.NormalizedIssue) string {
	if len(is.SampleMessages) > 0 {
		return is.SampleMessages[0]
	}
	return is.CanonicalKey
}

// recommendations emits at most one entry per triggered condition, sorted
// critical, then high, then medium; insertion order breaks ties
func recommendations(
	signals schema.CorrelationSignals,
	areaRisks []schema.CriticalAreaRiskSummary,
	comparisons []Comparison,
) []schema.Recommendation {
	var recs []schema.Recommendation

	if n := countCriticalCommon(signals.CommonIssues); n > 0 {
		rec := schema.Recommendation{
			Priority: schema.PriorityCritical,
			Title:    "Fix issues reproducing across suites",
		}
		added := 0
		for _, is := range signals.CommonIssues {
			if is.Severity != schema.SeverityCritical || added >= 3 {
				continue
			}
			rec.Actions = append(rec.Actions, "Investigate: "+issueLabel(is))
			added++
		}
		rec.Actions = append(rec.Actions, "Address the shared root cause before re-running")
		recs = append(recs, rec)
	}

	if len(signals.FlaggedBrowsers) > 0 {
		prio := schema.PriorityHigh
		for _, b := range signals.BrowserScores {
			if b.Score < browserCriticalScore {
				prio = schema.PriorityCritical
				break
			}
		}
		rec := schema.Recommendation{Priority: prio, Title: "Restore cross-browser compatibility"}
		for _, b := range signals.FlaggedBrowsers {
			rec.Actions = append(rec.Actions, "Debug rendering differences in "+b)
		}
		recs = append(recs, rec)
	}

	if regs := regressionVerdicts(comparisons); len(regs) > 0 {
		prio := schema.PriorityHigh
		for _, v := range regs {
			if v.Severity == schema.SeverityCritical {
				prio = schema.PriorityCritical
				break
			}
		}
		rec := schema.Recommendation{Priority: prio, Title: "Review visual regressions against baselines"}
		for i, v := range regs {
			if i >= 3 {
				break
			}
			rec.Actions = append(rec.Actions, fmt.Sprintf("Inspect diff for %s (%.2f%%)", v.Key, v.PixelDiffPercent))
		}
		rec.Actions = append(rec.Actions, "Regenerate baselines only for intended changes")
		recs = append(recs, rec)
	}

	if signals.PerfVisualConflict {
		recs = append(recs, schema.Recommendation{
			Priority: schema.PriorityHigh,
			Title:    "Stabilize rendering performance",
			Actions: []string{
				"Reduce layout shift during initial load",
				"Defer non-critical work until after first paint",
			},
		})
	}

	if signals.UXScoreKnown && signals.UXScore < uxRecommendBelow {
		prio := schema.PriorityMedium
		if signals.UXScore < uxUrgentBelow {
			prio = schema.PriorityHigh
		}
		recs = append(recs, schema.Recommendation{
			Priority: prio,
			Title:    "Repair degraded user flows",
			Actions: []string{
				"Walk the failing journeys manually",
				"Fix broken interactive component states",
			},
		})
	}

	if signals.DeviceConsistencyScore < deviceRecommendBelow {
		recs = append(recs, schema.Recommendation{
			Priority: schema.PriorityMedium,
			Title:    "Align behavior across viewports",
			Actions: []string{
				"Compare failing checks between viewport-oriented suites",
				"Check responsive breakpoints around the drifting viewport",
			},
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Priority.Rank() > recs[j].Priority.Rank()
	})
	return recs
}

func regressionVerdicts(comparisons []Comparison) []schema.RegressionVerdict {
	var out []schema.RegressionVerdict
	for _, cmp := range comparisons {
		if cmp.Verdict.IsRegression {
			out = append(out, cmp.Verdict)
		}
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
