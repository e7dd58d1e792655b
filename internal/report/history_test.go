package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glasshouse-qa/vizguard-agent/internal/schema"
)

func reportScoring(score float64) *schema.Report {
	return &schema.Report{
		RunID:        "run-x",
		Target:       "https://site.test",
		OverallScore: score,
		Confidence:   schema.ConfidenceHigh,
		RegressionVerdicts: []schema.RegressionVerdict{
			{Key: "homepage", IsRegression: true, Severity: schema.SeverityMedium},
			{Key: "pricing", Severity: schema.SeverityNone},
		},
	}
}

func TestRecordHistoryFirstRun(t *testing.T) {
	dir := t.TempDir()

	tr, err := RecordHistory(dir, reportScoring(80), filepath.Join(dir, "run1"))
	require.NoError(t, err)
	assert.Equal(t, "FIRST_RUN", tr.Label)
	assert.Equal(t, 80.0, tr.Current)

	entries, err := LoadHistory(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 80.0, entries[0].OverallScore)
	assert.Equal(t, 1, entries[0].Regressions, "only regression verdicts count")
}

func TestRecordHistoryTrendLabels(t *testing.T) {
	dir := t.TempDir()
	_, err := RecordHistory(dir, reportScoring(80), "run1")
	require.NoError(t, err)

	tr, err := RecordHistory(dir, reportScoring(85), "run2")
	require.NoError(t, err)
	if diff := cmp.Diff(Trend{Previous: 80, Current: 85, Delta: 5, Label: "IMPROVING"}, tr); diff != "" {
		t.Errorf("trend mismatch (-want +got):\n%s", diff)
	}

	tr, err = RecordHistory(dir, reportScoring(70), "run3")
	require.NoError(t, err)
	if diff := cmp.Diff(Trend{Previous: 85, Current: 70, Delta: -15, Label: "DECLINING"}, tr); diff != "" {
		t.Errorf("trend mismatch (-want +got):\n%s", diff)
	}

	tr, err = RecordHistory(dir, reportScoring(70), "run4")
	require.NoError(t, err)
	assert.Equal(t, "SAME", tr.Label)

	entries, err := LoadHistory(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}

func TestRecordHistorySurvivesCorruptIndex(t *testing.T) {
	dir := t.TempDir()
	historyDir := filepath.Join(dir, "history")
	require.NoError(t, os.MkdirAll(historyDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(historyDir, "index.json"), []byte("{not json"), 0644))

	tr, err := RecordHistory(dir, reportScoring(60), "run1")
	require.NoError(t, err)
	assert.Equal(t, "FIRST_RUN", tr.Label, "corrupt index restarts history")

	entries, err := LoadHistory(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLoadHistoryEmpty(t *testing.T) {
	entries, err := LoadHistory(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, entries)
}
