package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glasshouse-qa/vizguard-agent/internal/schema"
)

// maxHistoryEntries caps the index so years of runs never balloon it
const maxHistoryEntries = 200

// HistoryEntry is one run in the score history index
type HistoryEntry struct {
	TimestampUTC     string  `json:"timestampUtc"`
	RunID            string  `json:"runId"`
	Target           string  `json:"target"`
	OverallScore     float64 `json:"overallScore"`
	VisualPerfection float64 `json:"visualPerfectionScore"`
	Confidence       string  `json:"confidenceLevel"`
	Regressions      int     `json:"regressions"`
	ReportDir        string  `json:"reportDir"`
}

type historyIndex struct {
	Entries []HistoryEntry `json:"entries"`
}

// Trend compares this run's overall score with the previous recorded one.
// Label is one of IMPROVING, DECLINING, SAME, FIRST_RUN.
type Trend struct {
	Previous float64
	Current  float64
	Delta    float64
	Label    string
}

// RecordHistory appends the run to <outDir>/history/index.json and reports the
// score trend against the run before it
func RecordHistory(outDir string, rep *schema.Report, runDir string) (Trend, error) {
	historyDir := filepath.Join(outDir, "history")
	if err := os.MkdirAll(historyDir, 0755); err != nil {
		return Trend{}, fmt.Errorf("create history dir: %w", err)
	}

	indexPath := filepath.Join(historyDir, "index.json")
	var idx historyIndex
	if raw, err := os.ReadFile(indexPath); err == nil && len(raw) > 0 {
		// a corrupt index starts history over rather than blocking the run
		_ = json.Unmarshal(raw, &idx)
	}

	prev := -1.0
	if len(idx.Entries) > 0 {
		prev = idx.Entries[len(idx.Entries)-1].OverallScore
	}

	regressions := 0
	for _, v := range rep.RegressionVerdicts {
		if v.IsRegression {
			regressions++
		}
	}

	idx.Entries = append(idx.Entries, HistoryEntry{
		TimestampUTC:     time.Now().UTC().Format(time.RFC3339),
		RunID:            rep.RunID,
		Target:           rep.Target,
		OverallScore:     rep.OverallScore,
		VisualPerfection: rep.VisualPerfection,
		Confidence:       string(rep.Confidence),
		Regressions:      regressions,
		ReportDir:        filepath.ToSlash(runDir),
	})
	if len(idx.Entries) > maxHistoryEntries {
		idx.Entries = idx.Entries[len(idx.Entries)-maxHistoryEntries:]
	}

	raw, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return Trend{}, fmt.Errorf("encode history: %w", err)
	}
	if err := os.WriteFile(indexPath, raw, 0644); err != nil {
		return Trend{}, fmt.Errorf("write history: %w", err)
	}

	tr := Trend{Previous: prev, Current: rep.OverallScore, Label: "FIRST_RUN"}
	if prev >= 0 {
		tr.Delta = tr.Current - tr.Previous
		switch {
		case tr.Delta > 0:
			tr.Label = "IMPROVING"
		case tr.Delta < 0:
			tr.Label = "DECLINING"
		default:
			tr.Label = "SAME"
		}
	}
	return tr, nil
}

// LoadHistory returns all recorded entries, oldest first
func LoadHistory(outDir string) ([]HistoryEntry, error) {
	raw, err := os.ReadFile(filepath.Join(outDir, "history", "index.json"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	var idx historyIndex
	if err := json.Unmarshal(raw, &idx); err != nil {
		return nil, fmt.Errorf("parse history: %w", err)
	}
	return idx.Entries, nil
}
