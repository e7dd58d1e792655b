package suites

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glasshouse-qa/vizguard-agent/internal/config"
	"github.com/glasshouse-qa/vizguard-agent/internal/schema"
)

func TestBuildAllKindsInPlanOrder(t *testing.T) {
	cfg := &config.Config{
		Suites: []schema.SuiteDescriptor{
			{Name: "screenshot", Kind: schema.KindVisual, Enabled: true},
			{Name: "crossbrowser", Kind: schema.KindCrossBrowser, Enabled: true},
			{Name: "interactive", Kind: schema.KindInteractive, Enabled: true},
			{Name: "journey", Kind: schema.KindJourney, Enabled: true},
			{Name: "perfvisual", Kind: schema.KindPerformance, Enabled: true},
			{Name: "axe", Kind: schema.KindExternal, Enabled: true},
		},
		External: []config.ExternalSuite{
			{Name: "axe", Command: "axe-runner"},
		},
	}
	launch := func(context.Context, config.BrowserProfile) (Browser, error) {
		return &fakeBrowser{}, nil
	}

	built, err := Build(cfg, &fakeBrowser{}, launch, t.TempDir(), nil)
	require.NoError(t, err)
	require.Len(t, built, 6)

	var names []string
	for _, s := range built {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"screenshot", "crossbrowser", "interactive", "journey", "perfvisual", "axe"}, names)

	assert.IsType(t, &ScreenshotSuite{}, built[0])
	assert.IsType(t, &CrossBrowserSuite{}, built[1])
	assert.IsType(t, &InteractiveSuite{}, built[2])
	assert.IsType(t, &JourneySuite{}, built[3])
	assert.IsType(t, &PerfVisualSuite{}, built[4])
	assert.IsType(t, &ExternalSuite{}, built[5])
}

func TestBuildSkipsDisabled(t *testing.T) {
	cfg := &config.Config{
		Suites: []schema.SuiteDescriptor{
			{Name: "screenshot", Kind: schema.KindVisual, Enabled: true},
			{Name: "perfvisual", Kind: schema.KindPerformance, Enabled: false},
			{Name: "interactive", Kind: schema.KindInteractive, Enabled: true},
		},
	}

	built, err := Build(cfg, &fakeBrowser{}, nil, t.TempDir(), nil)
	require.NoError(t, err)
	require.Len(t, built, 2)
	assert.Equal(t, "screenshot", built[0].Name())
	assert.Equal(t, "interactive", built[1].Name())
}

func TestBuildExternalWithoutCommand(t *testing.T) {
	cfg := &config.Config{
		Suites: []schema.SuiteDescriptor{
			{Name: "lighthouse", Kind: schema.KindExternal, Enabled: true},
		},
	}

	_, err := Build(cfg, &fakeBrowser{}, nil, t.TempDir(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no command is configured")
}

func TestBuildUnknownKind(t *testing.T) {
	cfg := &config.Config{
		Suites: []schema.SuiteDescriptor{
			{Name: "mystery", Kind: "telepathy", Enabled: true},
		},
	}

	_, err := Build(cfg, &fakeBrowser{}, nil, t.TempDir(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown kind")
}
