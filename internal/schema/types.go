package schema

import "context"

// Severity classifies an issue or regression verdict
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityNone     Severity = "none"
)

var severityRank = map[Severity]int{
	SeverityCritical: 4,
	SeverityHigh:     3,
	SeverityMedium:   2,
	SeverityLow:      1,
	SeverityNone:     0,
}

// Rank orders severities for sorting; higher is worse. Unknown values rank
// below "none" so malformed input never outranks a real severity.
func (s Severity) Rank() int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return -1
}

// SuiteKind tells the correlation analyzer what a suite measures, so signals
// select suites structurally instead of matching on names.
type SuiteKind string

const (
	KindVisual       SuiteKind = "visual"
	KindCrossBrowser SuiteKind = "crossbrowser"
	KindInteractive  SuiteKind = "interactive"
	KindJourney      SuiteKind = "journey"
	KindPerformance  SuiteKind = "performance"
	KindExternal     SuiteKind = "external"
)

// ViewportOriented reports whether results of this kind are broken down by
// viewport, making the suite eligible for the device-consistency signal
func (k SuiteKind) ViewportOriented() bool {
	return k == KindVisual || k == KindInteractive
}

// SuiteDescriptor is one entry in the orchestration plan
type SuiteDescriptor struct {
	Name    string    `json:"name" yaml:"name"`
	Kind    SuiteKind `json:"kind" yaml:"kind"`
	Weight  float64   `json:"weight" yaml:"weight"`
	Enabled bool      `json:"enabled" yaml:"enabled"`
}

// Suite is one pluggable test suite. Run returns the suite's outcome for the
// target URL; an error (or a panic) marks this suite failed without touching
// any other suite.
type Suite interface {
	Name() string
	Run(ctx context.Context, target string) (*SuiteResult, error)
}

// BrowserChecks carries one browser's pass ratio out of a browser-oriented suite
type BrowserChecks struct {
	Browser      string `json:"browser"`
	TotalChecks  int    `json:"totalChecks"`
	PassedChecks int    `json:"passedChecks"`
}

// SuiteSummary aggregates a suite's checks. Score is the suite's own domain
// score on a 0-100 scale when it computes one; nil means "derive from counts".
type SuiteSummary struct {
	TotalChecks        int             `json:"totalChecks"`
	PassedChecks       int             `json:"passedChecks"`
	FailedChecks       int             `json:"failedChecks"`
	Score              *float64        `json:"score,omitempty"`
	PerBrowser         []BrowserChecks `json:"perBrowser,omitempty"`
	VisualCompleteness *float64        `json:"visualCompleteness,omitempty"`
}

// IssueContext localizes an issue; every field is optional
type IssueContext struct {
	ViewportName string `json:"viewportName,omitempty"`
	BrowserName  string `json:"browserName,omitempty"`
	ScenarioName string `json:"scenarioName,omitempty"`
}

// RawIssue is a single problem exactly as a suite reported it
type RawIssue struct {
	SourceSuite string       `json:"sourceSuite"`
	Kind        string       `json:"kind"`
	Message     string       `json:"message"`
	Severity    Severity     `json:"severity"`
	Context     IssueContext `json:"context,omitempty"`
}

// Issue kinds with engine-level meaning. Suites may emit any kind string;
// these two feed the performance-visual conflict signal.
const (
	IssueKindLayoutShift = "layout-shift"
	IssueKindPaintTiming = "paint-timing"
)

// Capture is one screenshot a suite took for baseline comparison. Area names
// a critical page area; empty means the full page.
type Capture struct {
	Scenario string `json:"scenario"`
	Area     string `json:"area,omitempty"`
	Path     string `json:"path"`
}

// BaselineKey is the stable store key for this capture
func (c Capture) BaselineKey() string {
	if c.Area == "" {
		return c.Scenario
	}
	return c.Scenario + "__" + c.Area
}

// SuiteResult is the normalized outcome of one suite invocation. Exactly one
// is produced per invocation whether the suite succeeded, failed, or panicked.
type SuiteResult struct {
	SuiteName  string       `json:"suiteName"`
	Successful bool         `json:"successful"`
	DurationMs int64        `json:"durationMs"`
	Summary    SuiteSummary `json:"summary"`
	Issues     []RawIssue   `json:"issues,omitempty"`
	Error      string       `json:"error,omitempty"`
	Captures   []Capture    `json:"captures,omitempty"`
}

// FailureRate is failed/total checks, 0 when the suite ran no checks
func (s SuiteSummary) FailureRate() float64 {
	if s.TotalChecks == 0 {
		return 0
	}
	return float64(s.FailedChecks) / float64(s.TotalChecks)
}
