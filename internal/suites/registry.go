package suites

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/glasshouse-qa/vizguard-agent/internal/config"
	"github.com/glasshouse-qa/vizguard-agent/internal/driver"
	"github.com/glasshouse-qa/vizguard-agent/internal/schema"
)

// Wrap adapts a launched chromedp browser to the Browser interface
func Wrap(c *driver.Chrome) Browser { return chromeBrowser{c} }

type chromeBrowser struct{ chrome *driver.Chrome }

func (b chromeBrowser) NewSession(ctx context.Context) (Session, error) {
	return b.chrome.NewSession(ctx)
}

func (b chromeBrowser) Close() { b.chrome.Close() }

// ChromeLauncher builds per-profile browsers on top of the shared driver
// settings; a profile's own binary wins over the default one
func ChromeLauncher(base config.Driver, log *zap.Logger) Launcher {
	return func(ctx context.Context, profile config.BrowserProfile) (Browser, error) {
		execPath := profile.ExecPath
		if execPath == "" {
			execPath = base.ExecPath
		}
		c, err := driver.Launch(ctx, driver.Options{
			ExecPath:   execPath,
			Headful:    base.Headful,
			UserAgent:  profile.UserAgent,
			NavTimeout: base.NavTimeout(),
		}, log)
		if err != nil {
			return nil, fmt.Errorf("launch %s: %w", profile.Name, err)
		}
		return chromeBrowser{c}, nil
	}
}

// Build instantiates every enabled suite in the plan, in plan order
func Build(cfg *config.Config, browser Browser, launch Launcher, shotsDir string, log *zap.Logger) ([]schema.Suite, error) {
	var out []schema.Suite
	for _, d := range cfg.EnabledSuites() {
		switch d.Kind {
		case schema.KindVisual:
			out = append(out, NewScreenshotSuite(d.Name, browser, cfg, shotsDir, log))
		case schema.KindCrossBrowser:
			out = append(out, NewCrossBrowserSuite(d.Name, launch, cfg, log))
		case schema.KindInteractive:
			out = append(out, NewInteractiveSuite(d.Name, browser, cfg, log))
		case schema.KindJourney:
			out = append(out, NewJourneySuite(d.Name, browser, cfg, log))
		case schema.KindPerformance:
			out = append(out, NewPerfVisualSuite(d.Name, browser, log))
		case schema.KindExternal:
			spec, ok := findExternal(cfg.External, d.Name)
			if !ok {
				return nil, fmt.Errorf("suite %q is external but no command is configured for it", d.Name)
			}
			out = append(out, NewExternalSuite(spec, log))
		default:
			return nil, fmt.Errorf("suite %q has unknown kind %q", d.Name, d.Kind)
		}
	}
	return out, nil
}

func findExternal(specs []config.ExternalSuite, name string) (config.ExternalSuite, bool) {
	for _, s := range specs {
		if s.Name == name {
			return s, true
		}
	}
	return config.ExternalSuite{}, false
}
