package suites

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/glasshouse-qa/vizguard-agent/internal/config"
	"github.com/glasshouse-qa/vizguard-agent/internal/schema"
	"github.com/glasshouse-qa/vizguard-agent/pkg/utils"
)

// captureParallelism bounds concurrent tabs; full-page captures are
// memory-hungry and Chrome degrades past a couple of them
const captureParallelism = 2

// ScreenshotSuite walks every scenario at every viewport, capturing the full
// page plus each critical area. Captures feed the baseline comparison stage;
// the suite itself only reports whether capturing succeeded.
type ScreenshotSuite struct {
	name      string
	browser   Browser
	viewports []config.Viewport
	scenarios []config.Scenario
	areas     []config.CriticalArea
	shotsDir  string
	log       *zap.Logger
}

func NewScreenshotSuite(name string, browser Browser, cfg *config.Config, shotsDir string, log *zap.Logger) *ScreenshotSuite {
	if log == nil {
		log = zap.NewNop()
	}
	return &ScreenshotSuite{
		name:      name,
		browser:   browser,
		viewports: cfg.Viewports,
		scenarios: cfg.Scenarios,
		areas:     cfg.CriticalAreas,
		shotsDir:  shotsDir,
		log:       log,
	}
}

func (s *ScreenshotSuite) Name() string { return s.name }

// viewportShots is one viewport's share of the run, kept separate so results
// assemble in configuration order regardless of goroutine scheduling
type viewportShots struct {
	captures   []schema.Capture
	issues     []schema.RawIssue
	total      int
	passed     int
	sessionErr error
}

func (s *ScreenshotSuite) Run(ctx context.Context, target string) (*schema.SuiteResult, error) {
	if err := os.MkdirAll(s.shotsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create capture dir: %w", err)
	}

	buckets := make([]viewportShots, len(s.viewports))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(captureParallelism)
	for i, vp := range s.viewports {
		g.Go(func() error {
			buckets[i] = s.captureViewport(gctx, target, vp)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &schema.SuiteResult{SuiteName: s.name}
	sessionFailures := 0
	var firstSessionErr error
	for _, b := range buckets {
		res.Captures = append(res.Captures, b.captures...)
		res.Issues = append(res.Issues, b.issues...)
		res.Summary.TotalChecks += b.total
		res.Summary.PassedChecks += b.passed
		if b.sessionErr != nil {
			sessionFailures++
			if firstSessionErr == nil {
				firstSessionErr = b.sessionErr
			}
		}
	}
	res.Summary.FailedChecks = res.Summary.TotalChecks - res.Summary.PassedChecks

	// no viewport could even open a tab: the browser is gone, not the page
	if len(s.viewports) > 0 && sessionFailures == len(s.viewports) {
		return nil, fmt.Errorf("no session could be opened: %w", firstSessionErr)
	}
	return res, nil
}

// captureViewport runs all scenarios in one tab sized to vp
func (s *ScreenshotSuite) captureViewport(ctx context.Context, target string, vp config.Viewport) viewportShots {
	out := viewportShots{total: len(s.scenarios) * (1 + len(s.areas))}

	sess, err := s.browser.NewSession(ctx)
	if err != nil {
		out.sessionErr = err
		out.issues = append(out.issues, schema.RawIssue{
			SourceSuite: s.name,
			Kind:        "capture-failure",
			Severity:    schema.SeverityHigh,
			Message:     fmt.Sprintf("failed to open session for viewport %s: %v", vp.Name, err),
			Context:     schema.IssueContext{ViewportName: vp.Name},
		})
		return out
	}
	defer sess.Close()

	if err := sess.SetViewport(ctx, vp.Width, vp.Height, vp.Mobile); err != nil {
		out.sessionErr = err
		out.issues = append(out.issues, schema.RawIssue{
			SourceSuite: s.name,
			Kind:        "capture-failure",
			Severity:    schema.SeverityHigh,
			Message:     fmt.Sprintf("failed to size viewport %s: %v", vp.Name, err),
			Context:     schema.IssueContext{ViewportName: vp.Name},
		})
		return out
	}

	for _, sc := range s.scenarios {
		out.merge(s.captureScenario(ctx, sess, target, vp, sc))
	}
	return out
}

func (s *ScreenshotSuite) captureScenario(ctx context.Context, sess Session, target string, vp config.Viewport, sc config.Scenario) viewportShots {
	var out viewportShots
	scenarioID := sc.Name + "@" + vp.Name

	if err := sess.Navigate(ctx, resolveURL(target, sc.Path), sc.WaitFor); err != nil {
		out.issues = append(out.issues, schema.RawIssue{
			SourceSuite: s.name,
			Kind:        "capture-failure",
			Severity:    schema.SeverityHigh,
			Message:     fmt.Sprintf("failed to load %s at %s: %v", sc.Name, vp.Name, err),
			Context:     schema.IssueContext{ViewportName: vp.Name, ScenarioName: sc.Name},
		})
		return out
	}

	if buf, err := sess.Screenshot(ctx); err != nil {
		out.issues = append(out.issues, schema.RawIssue{
			SourceSuite: s.name,
			Kind:        "capture-failure",
			Severity:    schema.SeverityMedium,
			Message:     fmt.Sprintf("failed to capture %s at %s: %v", sc.Name, vp.Name, err),
			Context:     schema.IssueContext{ViewportName: vp.Name, ScenarioName: sc.Name},
		})
	} else if cp, err := s.saveCapture(scenarioID, "", buf); err != nil {
		out.issues = append(out.issues, schema.RawIssue{
			SourceSuite: s.name,
			Kind:        "capture-failure",
			Severity:    schema.SeverityMedium,
			Message:     fmt.Sprintf("failed to save capture for %s at %s: %v", sc.Name, vp.Name, err),
			Context:     schema.IssueContext{ViewportName: vp.Name, ScenarioName: sc.Name},
		})
	} else {
		out.captures = append(out.captures, cp)
		out.passed++
	}

	for _, area := range s.areas {
		if buf, err := sess.ScreenshotElement(ctx, area.Selector); err != nil {
			out.issues = append(out.issues, schema.RawIssue{
				SourceSuite: s.name,
				Kind:        "capture-failure",
				Severity:    schema.SeverityMedium,
				Message:     fmt.Sprintf("critical area %q not captured on %s at %s: %v", area.Name, sc.Name, vp.Name, err),
				Context:     schema.IssueContext{ViewportName: vp.Name, ScenarioName: sc.Name},
			})
		} else if cp, err := s.saveCapture(scenarioID, area.Name, buf); err != nil {
			out.issues = append(out.issues, schema.RawIssue{
				SourceSuite: s.name,
				Kind:        "capture-failure",
				Severity:    schema.SeverityMedium,
				Message:     fmt.Sprintf("failed to save capture of area %q for %s at %s: %v", area.Name, sc.Name, vp.Name, err),
				Context:     schema.IssueContext{ViewportName: vp.Name, ScenarioName: sc.Name},
			})
		} else {
			out.captures = append(out.captures, cp)
			out.passed++
		}
	}
	return out
}

func (s *ScreenshotSuite) saveCapture(scenarioID, area string, buf []byte) (schema.Capture, error) {
	cp := schema.Capture{Scenario: scenarioID, Area: area}
	cp.Path = filepath.Join(s.shotsDir, utils.SafeName(cp.BaselineKey())+".png")
	if err := os.WriteFile(cp.Path, buf, 0o644); err != nil {
		return schema.Capture{}, err
	}
	s.log.Debug("capture saved", zap.String("key", cp.BaselineKey()), zap.String("path", cp.Path))
	return cp, nil
}

func (v *viewportShots) merge(other viewportShots) {
	v.captures = append(v.captures, other.captures...)
	v.issues = append(v.issues, other.issues...)
	v.passed += other.passed
}
