package suites

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/glasshouse-qa/vizguard-agent/internal/config"
	"github.com/glasshouse-qa/vizguard-agent/internal/schema"
)

// Step actions a journey may use
const (
	actionNavigate      = "navigate"
	actionClick         = "click"
	actionType          = "type"
	actionWaitFor       = "waitFor"
	actionAssertVisible = "assertVisible"
)

// JourneySuite replays multi-step user flows. Each step is a check; a failing
// step aborts its journey since later steps depend on the state it never
// reached, and the untried steps count as failed.
type JourneySuite struct {
	name     string
	browser  Browser
	journeys []config.Journey
	log      *zap.Logger
}

func NewJourneySuite(name string, browser Browser, cfg *config.Config, log *zap.Logger) *JourneySuite {
	if log == nil {
		log = zap.NewNop()
	}
	return &JourneySuite{
		name:     name,
		browser:  browser,
		journeys: cfg.Journeys,
		log:      log,
	}
}

func (s *JourneySuite) Name() string { return s.name }

func (s *JourneySuite) Run(ctx context.Context, target string) (*schema.SuiteResult, error) {
	if len(s.journeys) == 0 {
		return nil, fmt.Errorf("no journeys configured")
	}

	res := &schema.SuiteResult{SuiteName: s.name}
	for _, j := range s.journeys {
		res.Summary.TotalChecks += len(j.Steps)
	}

	for _, j := range s.journeys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.walk(ctx, target, j, res)
	}
	res.Summary.FailedChecks = res.Summary.TotalChecks - res.Summary.PassedChecks
	return res, nil
}

// walk executes one journey in a fresh tab so leftover state from a previous
// flow can never mask or cause a failure
func (s *JourneySuite) walk(ctx context.Context, target string, j config.Journey, res *schema.SuiteResult) {
	sess, err := s.browser.NewSession(ctx)
	if err != nil {
		res.Issues = append(res.Issues, schema.RawIssue{
			SourceSuite: s.name,
			Kind:        "journey-step",
			Severity:    schema.SeverityHigh,
			Message:     fmt.Sprintf("journey %q could not open a session: %v", j.Name, err),
			Context:     schema.IssueContext{ScenarioName: j.Name},
		})
		return
	}
	defer sess.Close()

	for i, step := range j.Steps {
		if err := s.step(ctx, sess, target, step); err != nil {
			res.Issues = append(res.Issues, schema.RawIssue{
				SourceSuite: s.name,
				Kind:        "journey-step",
				Severity:    schema.SeverityHigh,
				Message:     fmt.Sprintf("journey %q failed at step %d (%s): %v", j.Name, i+1, step.Action, err),
				Context:     schema.IssueContext{ScenarioName: j.Name},
			})
			s.log.Debug("journey aborted",
				zap.String("journey", j.Name),
				zap.Int("step", i+1),
				zap.Error(err))
			return
		}
		res.Summary.PassedChecks++
	}
}

func (s *JourneySuite) step(ctx context.Context, sess Session, target string, step config.JourneyStep) error {
	switch step.Action {
	case actionNavigate:
		return sess.Navigate(ctx, resolveURL(target, step.Value), "")
	case actionClick:
		return sess.Click(ctx, step.Selector)
	case actionType:
		return sess.TypeText(ctx, step.Selector, step.Value)
	case actionWaitFor:
		return sess.WaitVisible(ctx, step.Selector)
	case actionAssertVisible:
		return s.assertVisible(ctx, sess, step.Selector)
	default:
		return fmt.Errorf("unknown action %q", step.Action)
	}
}

func (s *JourneySuite) assertVisible(ctx context.Context, sess Session, selector string) error {
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
		return fmt.Errorf("%q is not visible", selector)
	}
	return nil
}
