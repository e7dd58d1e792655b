package suites

import (
	"context"
	"net/url"
	"strings"

	"github.com/glasshouse-qa/vizguard-agent/internal/config"
)

// Session is one isolated browser tab. Implementations must tolerate being
// driven from a single goroutine; suites never share a session across
// goroutines.
type Session interface {
	Navigate(ctx context.Context, url, waitFor string) error
	SetViewport(ctx context.Context, width, height int64, mobile bool) error
	Screenshot(ctx context.Context) ([]byte, error)
	ScreenshotElement(ctx context.Context, selector string) ([]byte, error)
	Click(ctx context.Context, selector string) error
	TypeText(ctx context.Context, selector, text string) error
	WaitVisible(ctx context.Context, selector string) error
	Hover(ctx context.Context, selector string) error
	Focus(ctx context.Context, selector string) error
	Evaluate(ctx context.Context, expr string, out any) error
	PerfMetrics(ctx context.Context) (map[string]float64, error)
	Close()
}

// Browser hands out sessions; the cross-browser suite launches one per
// profile, everything else shares a single default browser
type Browser interface {
	NewSession(ctx context.Context) (Session, error)
	Close()
}

// Launcher starts a browser for a specific profile, used by the
// cross-browser suite to run the same checks against different binaries
type Launcher func(ctx context.Context, profile config.BrowserProfile) (Browser, error)

// ---------- Helpers ----------

// resolveURL joins a scenario path onto the target, tolerating targets with
// trailing slashes and paths without leading ones
func resolveURL(target, path string) string {
	if path == "" || path == "/" {
		return target
	}
	base, err := url.Parse(target)
	if err != nil {
		return strings.TrimSuffix(target, "/") + "/" + strings.TrimPrefix(path, "/")
	}
	ref, err := url.Parse(path)
	if err != nil {
		return strings.TrimSuffix(target, "/") + "/" + strings.TrimPrefix(path, "/")
	}
	return base.ResolveReference(ref).String()
}
