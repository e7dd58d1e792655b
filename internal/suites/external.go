package suites

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/glasshouse-qa/vizguard-agent/internal/config"
	"github.com/glasshouse-qa/vizguard-agent/internal/schema"
)

// targetToken is substituted into external command arguments; when no
// argument carries it the target is appended as the final argument
const targetToken = "{{target}}"

// ExternalSuite shells out to a third-party tool that prints a suite result
// as JSON on stdout. Many such tools exit nonzero when they find problems, so
// a parseable result wins over the exit code.
type ExternalSuite struct {
	name    string
	command string
	args    []string
	log     *zap.Logger
}

func NewExternalSuite(spec config.ExternalSuite, log *zap.Logger) *ExternalSuite {
	if log == nil {
		log = zap.NewNop()
	}
	return &ExternalSuite{
		name:    spec.Name,
		command: spec.Command,
		args:    spec.Args,
		log:     log,
	}
}

func (s *ExternalSuite) Name() string { return s.name }

func (s *ExternalSuite) Run(ctx context.Context, target string) (*schema.SuiteResult, error) {
	path, err := exec.LookPath(s.command)
	if err != nil {
		return nil, fmt.Errorf("%s not found in PATH: %w", s.command, err)
	}

	cmd := exec.CommandContext(ctx, path, s.buildArgs(target)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	s.log.Debug("running external suite",
		zap.String("command", path),
		zap.Strings("args", cmd.Args[1:]))
	runErr := cmd.Run()

	// Prefer whatever the tool managed to report
	if stdout.Len() > 0 {
		var res schema.SuiteResult
		if jsonErr := json.Unmarshal(stdout.Bytes(), &res); jsonErr == nil {
			s.claimIssues(&res)
			return &res, nil
		}
	}

	if runErr != nil {
		return nil, fmt.Errorf("%s failed: %w (stderr: %s)", s.command, runErr, trimOutput(stderr.String()))
	}
	return nil, fmt.Errorf("%s produced no parseable result", s.command)
}

func (s *ExternalSuite) buildArgs(target string) []string {
	args := make([]string, len(s.args))
	substituted := false
	for i, a := range s.args {
		if strings.Contains(a, targetToken) {
			args[i] = strings.ReplaceAll(a, targetToken, target)
			substituted = true
		} else {
			args[i] = a
		}
	}
	if !substituted {
		args = append(args, target)
	}
	return args
}

// claimIssues stamps this suite's name onto issues the tool left unattributed
// so normalization can still group them
func (s *ExternalSuite) claimIssues(res *schema.SuiteResult) {
	for i := range res.Issues {
		if res.Issues[i].SourceSuite == "" {
			res.Issues[i].SourceSuite = s.name
		}
		if res.Issues[i].Severity == "" {
			res.Issues[i].Severity = schema.SeverityLow
		}
	}
}

func trimOutput(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 300 {
		return s[:300] + "..."
	}
	return s
}
