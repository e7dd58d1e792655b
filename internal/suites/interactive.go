package suites

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/glasshouse-qa/vizguard-agent/internal/config"
	"github.com/glasshouse-qa/vizguard-agent/internal/schema"
)

// Interaction states components are exercised in
const (
	stateHover  = "hover"
	stateFocus  = "focus"
	stateActive = "active"
)

// InteractiveSuite puts each configured component through its interaction
// states at every viewport and verifies the element survives with a visible
// box. A component that collapses or detaches under hover is exactly the kind
// of regression a static screenshot misses.
type InteractiveSuite struct {
	name       string
	browser    Browser
	viewports  []config.Viewport
	components []config.Component
	log        *zap.Logger
}

func NewInteractiveSuite(name string, browser Browser, cfg *config.Config, log *zap.Logger) *InteractiveSuite {
	if log == nil {
		log = zap.NewNop()
	}
	return &InteractiveSuite{
		name:       name,
		browser:    browser,
		viewports:  cfg.Viewports,
		components: cfg.Components,
		log:        log,
	}
}

func (s *InteractiveSuite) Name() string { return s.name }

func (s *InteractiveSuite) Run(ctx context.Context, target string) (*schema.SuiteResult, error) {
	if len(s.components) == 0 {
		return nil, fmt.Errorf("no components configured")
	}

	res := &schema.SuiteResult{SuiteName: s.name}
	for _, comp := range s.components {
		res.Summary.TotalChecks += len(s.viewports) * len(comp.States)
	}

	for _, vp := range s.viewports {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.checkViewport(ctx, target, vp, res)
	}
	res.Summary.FailedChecks = res.Summary.TotalChecks - res.Summary.PassedChecks
	return res, nil
}

func (s *InteractiveSuite) checkViewport(ctx context.Context, target string, vp config.Viewport, res *schema.SuiteResult) {
	sess, err := s.browser.NewSession(ctx)
	if err != nil {
		res.Issues = append(res.Issues, schema.RawIssue{
			SourceSuite: s.name,
			Kind:        "interaction",
			Severity:    schema.SeverityHigh,
			Message:     fmt.Sprintf("failed to open session for viewport %s: %v", vp.Name, err),
			Context:     schema.IssueContext{ViewportName: vp.Name},
		})
		return
	}
	defer sess.Close()

	if err := sess.SetViewport(ctx, vp.Width, vp.Height, vp.Mobile); err != nil {
		res.Issues = append(res.Issues, schema.RawIssue{
			SourceSuite: s.name,
			Kind:        "interaction",
			Severity:    schema.SeverityHigh,
			Message:     fmt.Sprintf("failed to size viewport %s: %v", vp.Name, err),
			Context:     schema.IssueContext{ViewportName: vp.Name},
		})
		return
	}
	if err := sess.Navigate(ctx, target, ""); err != nil {
		res.Issues = append(res.Issues, schema.RawIssue{
			SourceSuite: s.name,
			Kind:        "interaction",
			Severity:    schema.SeverityHigh,
			Message:     fmt.Sprintf("failed to load target at %s: %v", vp.Name, err),
			Context:     schema.IssueContext{ViewportName: vp.Name},
		})
		return
	}

	for _, comp := range s.components {
		for _, state := range comp.States {
			if err := s.checkState(ctx, sess, comp, state); err != nil {
				res.Issues = append(res.Issues, schema.RawIssue{
					SourceSuite: s.name,
					Kind:        "interaction",
					Severity:    schema.SeverityMedium,
					Message:     fmt.Sprintf("component %q broke under %s at %s: %v", comp.Name, state, vp.Name, err),
					Context:     schema.IssueContext{ViewportName: vp.Name},
				})
				continue
			}
			res.Summary.PassedChecks++
		}
	}
}

// checkState applies one interaction state and verifies the component still
// occupies a visible box afterwards
func (s *InteractiveSuite) checkState(ctx context.Context, sess Session, comp config.Component, state string) error {
	switch state {
	case stateHover:
		if err := sess.Hover(ctx, comp.Selector); err != nil {
			return err
		}
	case stateFocus:
		if err := sess.Focus(ctx, comp.Selector); err != nil {
			return err
		}
	case stateActive:
		if err := s.press(ctx, sess, comp.Selector); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown interaction state %q", state)
	}
	return s.assertVisible(ctx, sess, comp.Selector)
}

// press synthesizes mousedown without the matching mouseup, holding the
// element in its active state for the visibility check
func (s *InteractiveSuite) press(ctx context.Context, sess Session, selector string) error {
	expr := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return false;
		el.dispatchEvent(new MouseEvent('mousedown', {bubbles: true}));
		return true;
	})()`, selector)

	var found bool
	if err := sess.Evaluate(ctx, expr, &found); err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("selector matched nothing")
	}
	return nil
}

func (s *InteractiveSuite) assertVisible(ctx context.Context, sess Session, selector string) error {
	expr := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return false;
		const r = el.getBoundingClientRect();
		return r.width > 0 && r.height > 0;
	})()`, selector)

	var visible bool
	if err := sess.Evaluate(ctx, expr, &visible); err != nil {
		return err
	}
	if !visible {
		return fmt.Errorf("element lost its visible box")
	}
	return nil
}
