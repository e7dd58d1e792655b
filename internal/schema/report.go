package schema

import "time"

// ConfidenceLevel says how much the overall score can be trusted, based on
// how many suites completed and how they scored
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// RiskLevel grades a critical page area's regression exposure
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

var riskRank = map[RiskLevel]int{
	RiskLow:      0,
	RiskMedium:   1,
	RiskHigh:     2,
	RiskCritical: 3,
}

func (r RiskLevel) Rank() int { return riskRank[r] }

// Priority orders recommendations; only three grades exist
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
)

var priorityRank = map[Priority]int{
	PriorityCritical: 2,
	PriorityHigh:     1,
	PriorityMedium:   0,
}

func (p Priority) Rank() int { return priorityRank[p] }

// NormalizedIssue is a deduplicated group of RawIssues sharing a canonical key.
// AffectedSuites is kept sorted; SampleMessages holds at most three messages in
// first-seen order.
type NormalizedIssue struct {
	CanonicalKey    string   `json:"canonicalKey"`
	OccurrenceCount int      `json:"occurrenceCount"`
	AffectedSuites  []string `json:"affectedSuites"`
	Severity        Severity `json:"severity"`
	SampleMessages  []string `json:"sampleMessages"`
}

// RegressionVerdict is the outcome of comparing one capture against its
// baseline. A verdict with severity "none" and a non-empty message records a
// comparison that could not be carried out, kept for audit.
type RegressionVerdict struct {
	Key              string   `json:"key"`
	HasChanges       bool     `json:"hasChanges"`
	IsRegression     bool     `json:"isRegression"`
	PixelDiffPercent float64  `json:"pixelDifferencePercent"`
	Severity         Severity `json:"severity"`
	Message          string   `json:"message,omitempty"`
}

// CriticalAreaRiskSummary rolls up regressions touching one critical area
type CriticalAreaRiskSummary struct {
	AreaName          string    `json:"areaName"`
	RegressionCount   int       `json:"regressionCount"`
	AffectedScenarios []string  `json:"affectedScenarios"`
	OverallRisk       RiskLevel `json:"overallRisk"`
}

// BrowserScore is one browser's 0-100 compatibility score
type BrowserScore struct {
	Browser string  `json:"browser"`
	Score   float64 `json:"score"`
}

// CorrelationSignals are the cross-suite findings no single suite can see.
// UXScoreKnown is false when neither a journey nor an interactive suite ran,
// in which case UXScore carries no meaning.
type CorrelationSignals struct {
	CommonIssues             []NormalizedIssue `json:"commonIssues,omitempty"`
	DeviceConsistencyScore   float64           `json:"deviceConsistencyScore"`
	DeviceConsistencyFlagged bool              `json:"deviceConsistencyFlagged"`
	BrowserScores            []BrowserScore    `json:"browserScores,omitempty"`
	FlaggedBrowsers          []string          `json:"flaggedBrowsers,omitempty"`
	UXScore                  float64           `json:"uxScore"`
	UXScoreKnown             bool              `json:"uxScoreKnown"`
	PerfVisualConflict       bool              `json:"perfVisualConflict"`
	RegressionRisk           RiskLevel         `json:"regressionRisk"`
}

// Recommendation is one prioritized remediation with concrete next actions
type Recommendation struct {
	Priority Priority `json:"priority"`
	Title    string   `json:"title"`
	Actions  []string `json:"actions,omitempty"`
}

// Report is the single artifact of a full run. SuiteResults preserves the
// configured suite order.
type Report struct {
	RunID              string                    `json:"runId"`
	Target             string                    `json:"target"`
	Timestamp          time.Time                 `json:"timestamp"`
	DurationMs         int64                     `json:"durationMs"`
	SuiteResults       []SuiteResult             `json:"suiteResults"`
	NormalizedIssues   []NormalizedIssue         `json:"normalizedIssues,omitempty"`
	AreaRisks          []CriticalAreaRiskSummary `json:"criticalAreaRisks,omitempty"`
	Signals            CorrelationSignals        `json:"correlationSignals"`
	RegressionVerdicts []RegressionVerdict       `json:"regressionVerdicts,omitempty"`
	BaselinesCreated   []string                  `json:"baselinesCreated,omitempty"`
	OverallScore       float64                   `json:"overallScore"`
	VisualPerfection   float64                   `json:"visualPerfectionScore"`
	Confidence         ConfidenceLevel           `json:"confidenceLevel"`
	CompletionRate     float64                   `json:"completionRate"`
	CriticalIssues     []string                  `json:"criticalIssues,omitempty"`
	Recommendations    []Recommendation          `json:"recommendations,omitempty"`
}
