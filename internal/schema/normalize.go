package schema

import (
	"regexp"
	"sort"
	"strings"
)

const (
	// digitPlaceholder stands in for runs of digits so "button 3 missing" and
	// "button 7 missing" fold into one canonical group
	digitPlaceholder = "#"

	maxSampleMessages = 3
)

var (
	digitRuns  = regexp.MustCompile(`[0-9]+`)
	quoteChars = strings.NewReplacer(`"`, "", "'", "", "`", "")
)

// CanonicalKey reduces an issue message to its deduplication key: lower-cased,
// digit runs collapsed to a single placeholder, quote characters stripped,
// surrounding whitespace trimmed.
func CanonicalKey(message string) string {
	key := strings.ToLower(message)
	key = digitRuns.ReplaceAllString(key, digitPlaceholder)
	key = quoteChars.Replace(key)
	return strings.TrimSpace(key)
}

// NormalizeIssues folds every suite's raw issues into canonical groups.
// Groups come back in first-seen order; each group's suite set is sorted.
// Severity is derived purely from how widespread the group is, not from the
// raw severities the suites assigned.
func NormalizeIssues(results []SuiteResult) []NormalizedIssue {
	type group struct {
		issue  *NormalizedIssue
		suites map[string]struct{}
	}

	groups := make(map[string]*group)
	var order []string

	for _, res := range results {
		for _, raw := range res.Issues {
			key := CanonicalKey(raw.Message)
			g, ok := groups[key]
			if !ok {
				g = &group{
					issue:  &NormalizedIssue{CanonicalKey: key},
					suites: make(map[string]struct{}),
				}
				groups[key] = g
				order = append(order, key)
			}
			g.issue.OccurrenceCount++
			g.suites[raw.SourceSuite] = struct{}{}
			if len(g.issue.SampleMessages) < maxSampleMessages {
				g.issue.SampleMessages = append(g.issue.SampleMessages, raw.Message)
			}
		}
	}

	out := make([]NormalizedIssue, 0, len(order))
	for _, key := range order {
		g := groups[key]
		for suite := range g.suites {
			g.issue.AffectedSuites = append(g.issue.AffectedSuites, suite)
		}
		sort.Strings(g.issue.AffectedSuites)
		g.issue.Severity = deriveIssueSeverity(g.issue.OccurrenceCount, len(g.issue.AffectedSuites))
		out = append(out, *g.issue)
	}
	return out
}

// deriveIssueSeverity grades a normalized group by spread: crossing three
// suites is always critical, then raw occurrence volume takes over. Monotonic
// in both inputs.
func deriveIssueSeverity(occurrences, suiteCount int) Severity {
	switch {
	case suiteCount >= 3:
		return SeverityCritical
	case occurrences >= 5:
		return SeverityHigh
	case occurrences >= 3:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
