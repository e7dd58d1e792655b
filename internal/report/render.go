package report

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/glasshouse-qa/vizguard-agent/internal/schema"
)

//go:embed template.html
var reportHTMLTemplate string

// ---------- Public API ----------

// LoadRun reads the report.json a previous run saved into fromDir
func LoadRun(fromDir string) (*schema.Report, error) {
	data, err := os.ReadFile(filepath.Join(fromDir, "report.json"))
	if err != nil {
		return nil, fmt.Errorf("read report.json: %w", err)
	}
	var rep schema.Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("parse report.json: %w", err)
	}
	return &rep, nil
}

// GenerateHTML renders the report into outDir/report.html
func GenerateHTML(rep *schema.Report, outDir string) (string, error) {
	vm := buildViewModel(rep)

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", fmt.Errorf("create out dir: %w", err)
	}

	tmpl, err := template.New("report").Parse(reportHTMLTemplate)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vm); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}

	htmlPath := filepath.Join(outDir, "report.html")
	if err := os.WriteFile(htmlPath, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("write report.html: %w", err)
	}

	return htmlPath, nil
}

// RenderText builds the console summary of a run
func RenderText(rep *schema.Report) string {
	vm := buildViewModel(rep)
	var b strings.Builder

	fmt.Fprintf(&b, "Visual test report for %s\n", vm.Target)
	fmt.Fprintf(&b, "Run %s at %s (%dms)\n\n", vm.RunID, vm.RunTime, vm.DurationMs)
	fmt.Fprintf(&b, "  Overall score:    %d/100 (%s)\n", vm.Score, vm.Grade)
	fmt.Fprintf(&b, "  Visual perfection: %d/100\n", vm.VisualPerfection)
	fmt.Fprintf(&b, "  Confidence:        %s (%d%% of suites completed)\n\n", vm.Confidence, vm.CompletionPct)

	b.WriteString("Suites:\n")
	for _, row := range vm.Suites {
		mark := "✅"
		if !row.Successful {
			mark = "❌"
		}
		fmt.Fprintf(&b, "  %s %-14s %5dms  %s\n", mark, row.Name, row.DurationMs, row.Detail)
	}

	if len(vm.Verdicts) > 0 {
		b.WriteString("\nBaseline comparisons:\n")
		for _, row := range vm.Verdicts {
			fmt.Fprintf(&b, "  [%s] %s — %s\n", row.Severity, row.Key, row.Message)
		}
	}
	if len(vm.BaselinesCreated) > 0 {
		fmt.Fprintf(&b, "\nBaselines created: %s\n", strings.Join(vm.BaselinesCreated, ", "))
	}

	if len(vm.CriticalIssues) > 0 {
		b.WriteString("\n🚨 Critical issues:\n")
		for _, ci := range vm.CriticalIssues {
			fmt.Fprintf(&b, "  - %s\n", ci)
		}
	}

	if len(vm.Recommendations) > 0 {
		b.WriteString("\nRecommendations:\n")
		for _, rec := range vm.Recommendations {
			fmt.Fprintf(&b, "  [%s] %s\n", rec.Priority, rec.Title)
			for _, a := range rec.Actions {
				fmt.Fprintf(&b, "      • %s\n", a)
			}
		}
	}
	return b.String()
}

// ---------- View Model & helpers ----------

type viewModel struct {
	Target           string
	RunID            string
	RunTime          string
	DurationMs       int64
	Score            int
	Grade            string
	VisualPerfection int
	Confidence       string
	CompletionPct    int
	Suites           []suiteRow
	Issues           []issueRow
	Verdicts         []verdictRow
	AreaRisks        []areaRow
	BrowserScores    []browserRow
	DeviceScore      int
	UXScore          int
	UXKnown          bool
	PerfConflict     bool
	RegressionRisk   string
	BaselinesCreated []string
	CriticalIssues   []string
	Recommendations  []recRow
	Generator        string
	GeneratedAt      string
	Year             int
}

type suiteRow struct {
	Name       string
	Successful bool
	Status     string
	DurationMs int64
	Detail     string
}

type issueRow struct {
	Severity string
	Count    int
	Suites   string
	Sample   string
}

type verdictRow struct {
	Key      string
	Severity string
	DiffPct  string
	Message  string
}

type areaRow struct {
	Area      string
	Risk      string
	Count     int
	Scenarios string
}

type browserRow struct {
	Browser string
	Score   int
	Flagged bool
}

type recRow struct {
	Priority string
	Title    string
	Actions  []string
}

func buildViewModel(rep *schema.Report) viewModel {
	now := time.Now().UTC()

	vm := viewModel{
		Target:           rep.Target,
		RunID:            rep.RunID,
		RunTime:          rep.Timestamp.UTC().Format(time.RFC3339),
		DurationMs:       rep.DurationMs,
		Score:            int(rep.OverallScore + 0.5),
		Grade:            scoreToGrade(int(rep.OverallScore + 0.5)),
		VisualPerfection: int(rep.VisualPerfection + 0.5),
		Confidence:       strings.ToUpper(string(rep.Confidence)),
		CompletionPct:    int(rep.CompletionRate*100 + 0.5),
		DeviceScore:      int(rep.Signals.DeviceConsistencyScore + 0.5),
		UXScore:          int(rep.Signals.UXScore + 0.5),
		UXKnown:          rep.Signals.UXScoreKnown,
		PerfConflict:     rep.Signals.PerfVisualConflict,
		RegressionRisk:   strings.ToUpper(string(rep.Signals.RegressionRisk)),
		BaselinesCreated: rep.BaselinesCreated,
		CriticalIssues:   rep.CriticalIssues,
		Generator:        "vizguard-agent",
		GeneratedAt:      now.Format(time.RFC3339),
		Year:             now.Year(),
	}

	for _, res := range rep.SuiteResults {
		row := suiteRow{
			Name:       res.SuiteName,
			Successful: res.Successful,
			Status:     "PASS",
			DurationMs: res.DurationMs,
		}
		switch {
		case !res.Successful:
			row.Status = "FAIL"
			row.Detail = emptyFallback(res.Error, "suite failed")
		case res.Summary.Score != nil:
			row.Detail = fmt.Sprintf("score %.0f/100, %d/%d checks", *res.Summary.Score,
				res.Summary.PassedChecks, res.Summary.TotalChecks)
		default:
			row.Detail = fmt.Sprintf("%d/%d checks", res.Summary.PassedChecks, res.Summary.TotalChecks)
		}
		vm.Suites = append(vm.Suites, row)
	}

	for _, is := range rep.NormalizedIssues {
		vm.Issues = append(vm.Issues, issueRow{
			Severity: strings.ToUpper(string(is.Severity)),
			Count:    is.OccurrenceCount,
			Suites:   strings.Join(is.AffectedSuites, ", "),
			Sample:   sampleOf(is),
		})
	}
	// severity first, then spread
	sort.SliceStable(vm.Issues, func(i, j int) bool {
		a := schema.Severity(strings.ToLower(vm.Issues[i].Severity))
		b := schema.Severity(strings.ToLower(vm.Issues[j].Severity))
		if a.Rank() != b.Rank() {
			return a.Rank() > b.Rank()
		}
		return vm.Issues[i].Count > vm.Issues[j].Count
	})

	for _, v := range rep.RegressionVerdicts {
		vm.Verdicts = append(vm.Verdicts, verdictRow{
			Key:      v.Key,
			Severity: strings.ToUpper(string(v.Severity)),
			DiffPct:  fmt.Sprintf("%.2f%%", v.PixelDiffPercent),
			Message:  v.Message,
		})
	}
	sort.SliceStable(vm.Verdicts, func(i, j int) bool {
		a := schema.Severity(strings.ToLower(vm.Verdicts[i].Severity))
		b := schema.Severity(strings.ToLower(vm.Verdicts[j].Severity))
		if a.Rank() != b.Rank() {
			return a.Rank() > b.Rank()
		}
		return vm.Verdicts[i].Key < vm.Verdicts[j].Key
	})

	for _, s := range rep.AreaRisks {
		vm.AreaRisks = append(vm.AreaRisks, areaRow{
			Area:      s.AreaName,
			Risk:      strings.ToUpper(string(s.OverallRisk)),
			Count:     s.RegressionCount,
			Scenarios: strings.Join(s.AffectedScenarios, ", "),
		})
	}

	flagged := make(map[string]bool, len(rep.Signals.FlaggedBrowsers))
	for _, b := range rep.Signals.FlaggedBrowsers {
		flagged[b] = true
	}
	for _, b := range rep.Signals.BrowserScores {
		vm.BrowserScores = append(vm.BrowserScores, browserRow{
			Browser: b.Browser,
			Score:   int(b.Score + 0.5),
			Flagged: flagged[b.Browser],
		})
	}

	for _, rec := range rep.Recommendations {
		vm.Recommendations = append(vm.Recommendations, recRow{
			Priority: strings.ToUpper(string(rec.Priority)),
			Title:    rec.Title,
			Actions:  rec.Actions,
		})
	}

	return vm
}

func sampleOf(is schema.NormalizedIssue) string {
	if len(is.SampleMessages) > 0 {
		return trimTo(is.SampleMessages[0], 200)
	}
	return is.CanonicalKey
}

func scoreToGrade(score int) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

func trimTo(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

func emptyFallback(s, fb string) string {
	if strings.TrimSpace(s) == "" {
		return fb
	}
	return s
}
