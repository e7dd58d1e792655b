package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalKey(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{
			name:    "lowercases and trims",
			message: "  Header Overlaps Footer  ",
			want:    "header overlaps footer",
		},
		{
			name:    "digit run collapses to placeholder",
			message: "Timeout after 3000ms waiting for selector",
			want:    "timeout after #ms waiting for selector",
		},
		{
			name:    "multiple digit runs each collapse",
			message: "Expected 24 items, got 17",
			want:    "expected # items, got #",
		},
		{
			name:    "quotes stripped",
			message: `Element ".hero-banner" not visible`,
			want:    "element .hero-banner not visible",
		},
		{
			name:    "backticks stripped",
			message: "Selector `nav a` matched nothing",
			want:    "selector nav a matched nothing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanonicalKey(tt.message))
		})
	}
}

func TestCanonicalKeyFoldsNumberedVariants(t *testing.T) {
	a := CanonicalKey("Button 3 not found")
	b := CanonicalKey("Button 7 not found")

	assert.Equal(t, a, b)
	assert.Contains(t, a, digitPlaceholder)
}

func TestNormalizeIssuesFoldsAcrossSuites(t *testing.T) {
	results := []SuiteResult{
		{
			SuiteName: "screenshot",
			Issues: []RawIssue{
				{SourceSuite: "screenshot", Message: "Button 3 not found", Severity: SeverityHigh},
				{SourceSuite: "screenshot", Message: "Button 7 not found", Severity: SeverityHigh},
			},
		},
		{
			SuiteName: "interactive",
			Issues: []RawIssue{
				{SourceSuite: "interactive", Message: "Button 12 not found", Severity: SeverityMedium},
				{SourceSuite: "interactive", Message: "Layout shifted during load", Severity: SeverityLow},
			},
		},
	}

	norm := NormalizeIssues(results)
	require.Len(t, norm, 2)

	buttons := norm[0]
	assert.Equal(t, 3, buttons.OccurrenceCount)
	assert.Equal(t, []string{"interactive", "screenshot"}, buttons.AffectedSuites)
	assert.Equal(t, []string{"Button 3 not found", "Button 7 not found", "Button 12 not found"}, buttons.SampleMessages)

	layout := norm[1]
	assert.Equal(t, 1, layout.OccurrenceCount)
	assert.Equal(t, []string{"interactive"}, layout.AffectedSuites)
}

func TestNormalizeIssuesCapsSampleMessages(t *testing.T) {
	var issues []RawIssue
	for _, msg := range []string{"step 1 slow", "step 2 slow", "step 3 slow", "step 4 slow", "step 5 slow"} {
		issues = append(issues, RawIssue{SourceSuite: "journey", Message: msg})
	}

	norm := NormalizeIssues([]SuiteResult{{SuiteName: "journey", Issues: issues}})
	require.Len(t, norm, 1)
	assert.Equal(t, 5, norm[0].OccurrenceCount)
	assert.Len(t, norm[0].SampleMessages, 3)
	assert.Equal(t, "step 1 slow", norm[0].SampleMessages[0])
}

func TestDeriveIssueSeverity(t *testing.T) {
	tests := []struct {
		name        string
		occurrences int
		suites      int
		want        Severity
	}{
		{"three suites is always critical", 3, 3, SeverityCritical},
		{"four suites still critical", 9, 4, SeverityCritical},
		{"five occurrences in one suite", 5, 1, SeverityHigh},
		{"three occurrences in two suites", 3, 2, SeverityMedium},
		{"two occurrences", 2, 2, SeverityLow},
		{"single occurrence", 1, 1, SeverityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, deriveIssueSeverity(tt.occurrences, tt.suites))
		})
	}
}

func TestNormalizeIssuesSeverityMonotonic(t *testing.T) {
	// Growing either dimension must never lower the derived severity.
	prev := -1
	for occ := 1; occ <= 6; occ++ {
		sev := deriveIssueSeverity(occ, 1)
		require.GreaterOrEqual(t, sev.Rank(), prev, "occurrences=%d", occ)
		prev = sev.Rank()
	}
	prev = -1
	for suites := 1; suites <= 4; suites++ {
		sev := deriveIssueSeverity(2, suites)
		require.GreaterOrEqual(t, sev.Rank(), prev, "suites=%d", suites)
		prev = sev.Rank()
	}
}
