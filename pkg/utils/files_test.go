package utils

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glasshouse-qa/vizguard-agent/internal/schema"
)

func TestSafeName(t *testing.T) {
	assert.Equal(t, "https___staging.example.com", SafeName("https://staging.example.com"))
	assert.Equal(t, "checkout_summary", SafeName("checkout/summary"))
	assert.Equal(t, "plain-name_1", SafeName("plain-name_1"))
}

func TestRunDir(t *testing.T) {
	ts := time.Date(2026, 8, 25, 13, 17, 22, 0, time.UTC)
	dir := RunDir("./reports", "https://example.com", ts)
	assert.Equal(t, filepath.Join("./reports", "https___example.com_20260825_131722"), dir)
}

func TestSaveReport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	rep := &schema.Report{
		RunID:        "run-1",
		Target:       "https://example.com",
		Timestamp:    time.Now().UTC(),
		OverallScore: 87.6,
		Confidence:   schema.ConfidenceMedium,
	}

	file, err := SaveReport(rep, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "report.json"), file)

	data, err := os.ReadFile(file)
	require.NoError(t, err)

	var back schema.Report
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, rep.RunID, back.RunID)
	assert.Equal(t, rep.OverallScore, back.OverallScore)
	assert.Equal(t, rep.Confidence, back.Confidence)
}
