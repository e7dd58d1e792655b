package baseline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glasshouse-qa/vizguard-agent/internal/config"
	"github.com/glasshouse-qa/vizguard-agent/internal/schema"
)

func TestClassifyBands(t *testing.T) {
	c := NewComparator(config.DefaultBands(), nil)

	tests := []struct {
		name         string
		diff         float64
		severity     schema.Severity
		hasChanges   bool
		isRegression bool
	}{
		{"identical", 0, schema.SeverityNone, false, false},
		{"under tolerance", 0.05, schema.SeverityLow, true, false},
		{"at tolerance boundary", 0.1, schema.SeverityLow, true, false},
		{"just over tolerance", 0.11, schema.SeverityMedium, true, true},
		{"at medium boundary", 1.0, schema.SeverityMedium, true, true},
		{"between medium and high", 2.5, schema.SeverityHigh, true, true},
		{"at high boundary", 5.0, schema.SeverityHigh, true, true},
		{"over high boundary", 6.0, schema.SeverityCritical, true, true},
		{"total drift", 100, schema.SeverityCritical, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := c.Classify("homepage", tt.diff)
			assert.Equal(t, tt.severity, v.Severity)
			assert.Equal(t, tt.hasChanges, v.HasChanges)
			assert.Equal(t, tt.isRegression, v.IsRegression)
			assert.Equal(t, tt.diff, v.PixelDiffPercent)
			assert.Equal(t, "homepage", v.Key)
			assert.NotEmpty(t, v.Message)
		})
	}
}

func TestRegressionSeverityInvariant(t *testing.T) {
	// isRegression must hold exactly when severity is medium or worse
	c := NewComparator(config.DefaultBands(), nil)
	for diff := 0.0; diff <= 10.0; diff += 0.01 {
		v := c.Classify("k", diff)
		regression := v.Severity == schema.SeverityMedium ||
			v.Severity == schema.SeverityHigh ||
			v.Severity == schema.SeverityCritical
		require.Equal(t, regression, v.IsRegression, "diff=%.2f severity=%s", diff, v.Severity)
	}
}

func TestClassifyRespectsRetunedBands(t *testing.T) {
	c := NewComparator(config.Bands{TolerancePct: 0.5, MediumMaxPct: 2.0, HighMaxPct: 10.0}, nil)

	assert.Equal(t, schema.SeverityLow, c.Classify("k", 0.4).Severity)
	assert.Equal(t, schema.SeverityMedium, c.Classify("k", 1.5).Severity)
	assert.Equal(t, schema.SeverityHigh, c.Classify("k", 8.0).Severity)
	assert.Equal(t, schema.SeverityCritical, c.Classify("k", 10.5).Severity)
}

func TestCompareClassifiesRealImages(t *testing.T) {
	c := NewComparator(config.DefaultBands(), nil)

	img := solid(t, 10, 10, colorWhite)
	v, err := c.Compare("homepage", img, img)
	require.NoError(t, err)
	assert.Equal(t, schema.SeverityNone, v.Severity)
	assert.False(t, v.HasChanges)

	v, err = c.Compare("homepage", img, solid(t, 10, 10, colorBlack))
	require.NoError(t, err)
	assert.Equal(t, schema.SeverityCritical, v.Severity)
	assert.True(t, v.IsRegression)
	assert.Equal(t, 100.0, v.PixelDiffPercent)
}

func TestCompareSurfacesDifferErrors(t *testing.T) {
	c := NewComparator(config.DefaultBands(), nil)
	_, err := c.Compare("homepage", []byte("junk"), solid(t, 4, 4, colorWhite))
	require.Error(t, err)
}

func TestFailureVerdict(t *testing.T) {
	v := FailureVerdict("homepage__hero", errors.New("baseline store unavailable: disk gone"))

	assert.Equal(t, "homepage__hero", v.Key)
	assert.Equal(t, schema.SeverityNone, v.Severity)
	assert.False(t, v.HasChanges)
	assert.False(t, v.IsRegression)
	assert.Contains(t, v.Message, "comparison failed")
	assert.Contains(t, v.Message, "disk gone")
}
