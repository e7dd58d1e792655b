package suites

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glasshouse-qa/vizguard-agent/internal/config"
	"github.com/glasshouse-qa/vizguard-agent/internal/schema"
)

func screenshotConfig() *config.Config {
	return &config.Config{
		Viewports: []config.Viewport{
			{Name: "desktop", Width: 1920, Height: 1080},
			{Name: "mobile", Width: 375, Height: 812, Mobile: true},
		},
		Scenarios: []config.Scenario{
			{Name: "homepage", Path: "/", WaitFor: "body"},
		},
		CriticalAreas: []config.CriticalArea{
			{Name: "hero", Selector: ".hero"},
		},
	}
}

func TestScreenshotSuiteCapturesEverything(t *testing.T) {
	browser := &fakeBrowser{}
	suite := NewScreenshotSuite("screenshot", browser, screenshotConfig(), t.TempDir(), nil)

	res, err := suite.Run(context.Background(), "https://site.test")
	require.NoError(t, err)

	assert.Equal(t, 4, res.Summary.TotalChecks)
	assert.Equal(t, 4, res.Summary.PassedChecks)
	assert.Equal(t, 0, res.Summary.FailedChecks)
	assert.Empty(t, res.Issues)

	keys := make([]string, 0, len(res.Captures))
	for _, c := range res.Captures {
		keys = append(keys, c.BaselineKey())
	}
	assert.Equal(t, []string{
		"homepage@desktop",
		"homepage@desktop__hero",
		"homepage@mobile",
		"homepage@mobile__hero",
	}, keys)

	for _, c := range res.Captures {
		if _, err := os.Stat(c.Path); err != nil {
			t.Errorf("capture %s not on disk: %v", c.BaselineKey(), err)
		}
	}
	assert.True(t, browser.allClosed(), "sessions must be closed")
}

func TestScreenshotSuiteSizesViewportBeforeNavigating(t *testing.T) {
	browser := &fakeBrowser{}
	cfg := screenshotConfig()
	cfg.Viewports = cfg.Viewports[:1]
	suite := NewScreenshotSuite("screenshot", browser, cfg, t.TempDir(), nil)

	_, err := suite.Run(context.Background(), "https://site.test")
	require.NoError(t, err)

	require.Len(t, browser.sessions, 1)
	calls := browser.sessions[0].recorded()
	require.GreaterOrEqual(t, len(calls), 2)
	assert.Equal(t, "viewport 1920x1080", calls[0])
	assert.Equal(t, "navigate https://site.test", calls[1])
}

func TestScreenshotSuiteRecordsAreaCaptureFailures(t *testing.T) {
	browser := &fakeBrowser{
		spawn: func() (*fakeSession, error) {
			return &fakeSession{
				onShotEl: func(string) ([]byte, error) {
					return nil, errors.New("node not visible")
				},
			}, nil
		},
	}
	suite := NewScreenshotSuite("screenshot", browser, screenshotConfig(), t.TempDir(), nil)

	res, err := suite.Run(context.Background(), "https://site.test")
	require.NoError(t, err)

	assert.Equal(t, 4, res.Summary.TotalChecks)
	assert.Equal(t, 2, res.Summary.PassedChecks)
	assert.Len(t, res.Captures, 2, "full-page captures still land")
	require.Len(t, res.Issues, 2)

	viewports := map[string]bool{}
	for _, is := range res.Issues {
		assert.Equal(t, "screenshot", is.SourceSuite)
		assert.Equal(t, schema.SeverityMedium, is.Severity)
		assert.Equal(t, "homepage", is.Context.ScenarioName)
		assert.Contains(t, is.Message, `critical area "hero"`)
		viewports[is.Context.ViewportName] = true
	}
	assert.True(t, viewports["desktop"] && viewports["mobile"])
}

func TestScreenshotSuiteNavigateFailureFailsScenario(t *testing.T) {
	browser := &fakeBrowser{
		spawn: func() (*fakeSession, error) {
			return &fakeSession{
				onNavigate: func(string, string) error {
					return errors.New("net::ERR_CONNECTION_REFUSED")
				},
			}, nil
		},
	}
	suite := NewScreenshotSuite("screenshot", browser, screenshotConfig(), t.TempDir(), nil)

	res, err := suite.Run(context.Background(), "https://site.test")
	require.NoError(t, err)

	assert.Equal(t, 4, res.Summary.TotalChecks)
	assert.Equal(t, 0, res.Summary.PassedChecks)
	assert.Empty(t, res.Captures)
	require.Len(t, res.Issues, 2)
	for _, is := range res.Issues {
		assert.Equal(t, schema.SeverityHigh, is.Severity)
	}
}

func TestScreenshotSuiteFailsWhenNoSessionOpens(t *testing.T) {
	browser := &fakeBrowser{
		spawn: func() (*fakeSession, error) {
			return nil, errors.New("browser crashed")
		},
	}
	suite := NewScreenshotSuite("screenshot", browser, screenshotConfig(), t.TempDir(), nil)

	res, err := suite.Run(context.Background(), "https://site.test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no session could be opened")
	assert.Nil(t, res)
}
