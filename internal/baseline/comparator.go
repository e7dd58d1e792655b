package baseline

import (
	"fmt"

	"github.com/glasshouse-qa/vizguard-agent/internal/config"
	"github.com/glasshouse-qa/vizguard-agent/internal/schema"
)

// Comparator turns a pixel-difference percentage into a regression verdict
// using the configured bands. The policy: drift above the high bound is
// critical, above the medium bound high, above tolerance medium; drift at or
// under tolerance is noted but is not a regression. Only medium and worse
// count as regressions.
type Comparator struct {
	bands  config.Bands
	differ Differ
}

// NewComparator builds a comparator; a nil differ gets the stock pixel differ
func NewComparator(bands config.Bands, differ Differ) *Comparator {
	if differ == nil {
		differ = NewDiffer()
	}
	return &Comparator{bands: bands, differ: differ}
}

// Compare diffs a fresh capture against its baseline and classifies the
// result. An error means the comparison itself could not run (undecodable
// image); callers record it via FailureVerdict rather than dropping it.
func (c *Comparator) Compare(key string, baselineImg, currentImg []byte) (schema.RegressionVerdict, error) {
	diff, err := c.differ.Diff(baselineImg, currentImg)
	if err != nil {
		return schema.RegressionVerdict{}, err
	}
	return c.Classify(key, diff), nil
}

// Classify maps a difference percentage onto the band policy
func (c *Comparator) Classify(key string, diffPct float64) schema.RegressionVerdict {
	v := schema.RegressionVerdict{Key: key, PixelDiffPercent: diffPct}

	switch {
	case diffPct <= 0:
		v.Severity = schema.SeverityNone
		v.Message = "no visual change"
	case diffPct <= c.bands.TolerancePct:
		v.Severity = schema.SeverityLow
		v.HasChanges = true
		v.Message = fmt.Sprintf("%.2f%% drift, within %.2f%% tolerance", diffPct, c.bands.TolerancePct)
	case diffPct <= c.bands.MediumMaxPct:
		v.Severity = schema.SeverityMedium
		v.HasChanges = true
		v.IsRegression = true
		v.Message = fmt.Sprintf("visual regression: %.2f%% of pixels differ", diffPct)
	case diffPct <= c.bands.HighMaxPct:
		v.Severity = schema.SeverityHigh
		v.HasChanges = true
		v.IsRegression = true
		v.Message = fmt.Sprintf("visual regression: %.2f%% of pixels differ", diffPct)
	default:
		v.Severity = schema.SeverityCritical
		v.HasChanges = true
		v.IsRegression = true
		v.Message = fmt.Sprintf("severe visual regression: %.2f%% of pixels differ", diffPct)
	}
	return v
}

// FailureVerdict records a comparison that could not be carried out, so a
// broken store or capture never masquerades as a clean pass.
func FailureVerdict(key string, reason error) schema.RegressionVerdict {
	return schema.RegressionVerdict{
		Key:      key,
		Severity: schema.SeverityNone,
		Message:  "comparison failed: " + reason.Error(),
	}
}
