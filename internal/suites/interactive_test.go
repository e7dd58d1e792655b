package suites

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glasshouse-qa/vizguard-agent/internal/config"
	"github.com/glasshouse-qa/vizguard-agent/internal/schema"
)

func interactiveConfig(states ...string) *config.Config {
	return &config.Config{
		Viewports: []config.Viewport{{Name: "desktop", Width: 1920, Height: 1080}},
		Components: []config.Component{
			{Name: "nav-menu", Selector: ".nav-menu", States: states},
		},
	}
}

func TestInteractiveAllStatesPass(t *testing.T) {
	browser := &fakeBrowser{}
	suite := NewInteractiveSuite("interactive", browser,
		interactiveConfig("hover", "focus", "active"), nil)

	res, err := suite.Run(context.Background(), "https://site.test")
	require.NoError(t, err)

	assert.Equal(t, 3, res.Summary.TotalChecks)
	assert.Equal(t, 3, res.Summary.PassedChecks)
	assert.Empty(t, res.Issues)
	assert.True(t, browser.allClosed())
}

func TestInteractiveBrokenHover(t *testing.T) {
	browser := &fakeBrowser{
		spawn: func() (*fakeSession, error) {
			return &fakeSession{
				onHover: func(string) error {
					return errors.New("selector matched nothing")
				},
			}, nil
		},
	}
	suite := NewInteractiveSuite("interactive", browser,
		interactiveConfig("hover", "focus"), nil)

	res, err := suite.Run(context.Background(), "https://site.test")
	require.NoError(t, err)

	assert.Equal(t, 2, res.Summary.TotalChecks)
	assert.Equal(t, 1, res.Summary.PassedChecks)
	assert.InDelta(t, 0.5, res.Summary.FailureRate(), 1e-9)

	require.Len(t, res.Issues, 1)
	is := res.Issues[0]
	assert.Equal(t, schema.SeverityMedium, is.Severity)
	assert.Equal(t, "interaction", is.Kind)
	assert.Equal(t, "desktop", is.Context.ViewportName)
	assert.Contains(t, is.Message, `component "nav-menu" broke under hover`)
}

func TestInteractiveComponentCollapsesUnderState(t *testing.T) {
	browser := &fakeBrowser{
		spawn: func() (*fakeSession, error) {
			return &fakeSession{
				onEvaluate: func(expr string, out any) error {
					// the visibility probe sees a zero-size box
					b := out.(*bool)
					*b = false
					return nil
				},
			}, nil
		},
	}
	suite := NewInteractiveSuite("interactive", browser, interactiveConfig("focus"), nil)

	res, err := suite.Run(context.Background(), "https://site.test")
	require.NoError(t, err)

	assert.Equal(t, 0, res.Summary.PassedChecks)
	require.Len(t, res.Issues, 1)
	assert.Contains(t, res.Issues[0].Message, "lost its visible box")
}

func TestInteractiveUnknownState(t *testing.T) {
	browser := &fakeBrowser{}
	suite := NewInteractiveSuite("interactive", browser,
		interactiveConfig("hover", "sparkle"), nil)

	res, err := suite.Run(context.Background(), "https://site.test")
	require.NoError(t, err)

	assert.Equal(t, 2, res.Summary.TotalChecks)
	assert.Equal(t, 1, res.Summary.PassedChecks)
	require.Len(t, res.Issues, 1)
	assert.Contains(t, res.Issues[0].Message, `unknown interaction state "sparkle"`)
}

func TestInteractiveChecksEveryViewport(t *testing.T) {
	browser := &fakeBrowser{}
	cfg := interactiveConfig("hover")
	cfg.Viewports = append(cfg.Viewports, config.Viewport{Name: "mobile", Width: 375, Height: 812, Mobile: true})
	suite := NewInteractiveSuite("interactive", browser, cfg, nil)

	res, err := suite.Run(context.Background(), "https://site.test")
	require.NoError(t, err)

	assert.Equal(t, 2, res.Summary.TotalChecks)
	assert.Equal(t, 2, res.Summary.PassedChecks)
	assert.Len(t, browser.sessions, 2, "one session per viewport")
	assert.True(t, browser.allClosed())
}

func TestInteractiveNoComponents(t *testing.T) {
	suite := NewInteractiveSuite("interactive", &fakeBrowser{}, &config.Config{
		Viewports: []config.Viewport{{Name: "desktop", Width: 1920, Height: 1080}},
	}, nil)

	_, err := suite.Run(context.Background(), "https://site.test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no components")
}
