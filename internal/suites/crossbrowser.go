package suites

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/glasshouse-qa/vizguard-agent/internal/config"
	"github.com/glasshouse-qa/vizguard-agent/internal/schema"
)

// checksPerScenario: load, render, content
const checksPerScenario = 3

// CrossBrowserSuite runs the same load/render checklist against every
// configured browser profile, launching a dedicated browser per profile so
// binaries and user agents never bleed into each other
type CrossBrowserSuite struct {
	name      string
	launch    Launcher
	profiles  []config.BrowserProfile
	scenarios []config.Scenario
	log       *zap.Logger
}

func NewCrossBrowserSuite(name string, launch Launcher, cfg *config.Config, log *zap.Logger) *CrossBrowserSuite {
	if log == nil {
		log = zap.NewNop()
	}
	return &CrossBrowserSuite{
		name:      name,
		launch:    launch,
		profiles:  cfg.Browsers,
		scenarios: cfg.Scenarios,
		log:       log,
	}
}

func (s *CrossBrowserSuite) Name() string { return s.name }

func (s *CrossBrowserSuite) Run(ctx context.Context, target string) (*schema.SuiteResult, error) {
	if len(s.profiles) == 0 {
		return nil, fmt.Errorf("no browser profiles configured")
	}

	res := &schema.SuiteResult{SuiteName: s.name}
	for _, profile := range s.profiles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		checks := s.checkProfile(ctx, target, profile, &res.Issues)
		res.Summary.PerBrowser = append(res.Summary.PerBrowser, checks)
		res.Summary.TotalChecks += checks.TotalChecks
		res.Summary.PassedChecks += checks.PassedChecks
	}
	res.Summary.FailedChecks = res.Summary.TotalChecks - res.Summary.PassedChecks
	return res, nil
}

func (s *CrossBrowserSuite) checkProfile(ctx context.Context, target string, profile config.BrowserProfile, issues *[]schema.RawIssue) schema.BrowserChecks {
	checks := schema.BrowserChecks{
		Browser:     profile.Name,
		TotalChecks: len(s.scenarios) * checksPerScenario,
	}

	browser, err := s.launch(ctx, profile)
	if err != nil {
		*issues = append(*issues, schema.RawIssue{
			SourceSuite: s.name,
			Kind:        "browser-compat",
			Severity:    schema.SeverityHigh,
			Message:     fmt.Sprintf("browser %s failed to launch: %v", profile.Name, err),
			Context:     schema.IssueContext{BrowserName: profile.Name},
		})
		return checks
	}
	defer browser.Close()

	sess, err := browser.NewSession(ctx)
	if err != nil {
		*issues = append(*issues, schema.RawIssue{
			SourceSuite: s.name,
			Kind:        "browser-compat",
			Severity:    schema.SeverityHigh,
			Message:     fmt.Sprintf("browser %s refused a session: %v", profile.Name, err),
			Context:     schema.IssueContext{BrowserName: profile.Name},
		})
		return checks
	}
	defer sess.Close()

	for _, sc := range s.scenarios {
		checks.PassedChecks += s.checkScenario(ctx, sess, target, profile, sc, issues)
	}
	return checks
}

// checkScenario returns how many of the per-scenario checks passed
func (s *CrossBrowserSuite) checkScenario(ctx context.Context, sess Session, target string, profile config.BrowserProfile, sc config.Scenario, issues *[]schema.RawIssue) int {
	issueCtx := schema.IssueContext{BrowserName: profile.Name, ScenarioName: sc.Name}

	// load
	if err := sess.Navigate(ctx, resolveURL(target, sc.Path), sc.WaitFor); err != nil {
		*issues = append(*issues, schema.RawIssue{
			SourceSuite: s.name,
			Kind:        "browser-compat",
			Severity:    schema.SeverityHigh,
			Message:     fmt.Sprintf("%s failed to load %s: %v", profile.Name, sc.Name, err),
			Context:     issueCtx,
		})
		return 0
	}
	passed := 1

	// render: the document must have settled
	var ready bool
	if err := sess.Evaluate(ctx, `document.readyState === "complete"`, &ready); err == nil && ready {
		passed++
	} else {
		*issues = append(*issues, schema.RawIssue{
			SourceSuite: s.name,
			Kind:        "browser-compat",
			Severity:    schema.SeverityMedium,
			Message:     fmt.Sprintf("%s never finished rendering %s", profile.Name, sc.Name),
			Context:     issueCtx,
		})
	}

	// content: an empty body means the page rendered nothing visible
	var hasContent bool
	if err := sess.Evaluate(ctx, `document.body !== null && document.body.children.length > 0`, &hasContent); err == nil && hasContent {
		passed++
	} else {
		*issues = append(*issues, schema.RawIssue{
			SourceSuite: s.name,
			Kind:        "browser-compat",
			Severity:    schema.SeverityMedium,
			Message:     fmt.Sprintf("%s rendered an empty body for %s", profile.Name, sc.Name),
			Context:     issueCtx,
		})
	}
	return passed
}
