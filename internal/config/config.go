package config

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/glasshouse-qa/vizguard-agent/internal/schema"
)

const (
	defaultSuiteTimeoutSec = 120
	defaultNavTimeoutSec   = 30

	// weightEpsilon absorbs float noise when suite weights are summed
	weightEpsilon = 1e-6
)

// Viewport is one emulated screen the visual suites capture at
type Viewport struct {
	Name   string `yaml:"name" json:"name"`
	Width  int64  `yaml:"width" json:"width"`
	Height int64  `yaml:"height" json:"height"`
	Mobile bool   `yaml:"mobile,omitempty" json:"mobile,omitempty"`
}

// BrowserProfile is one browser the cross-browser suite drives. ExecPath
// empty means the driver's default binary lookup.
type BrowserProfile struct {
	Name      string `yaml:"name" json:"name"`
	ExecPath  string `yaml:"execPath,omitempty" json:"execPath,omitempty"`
	UserAgent string `yaml:"userAgent,omitempty" json:"userAgent,omitempty"`
}

// Scenario is one page state to capture. Path is resolved against the target
// URL; WaitFor is a CSS selector that must be visible before capture.
type Scenario struct {
	Name    string `yaml:"name" json:"name"`
	Path    string `yaml:"path,omitempty" json:"path,omitempty"`
	WaitFor string `yaml:"waitFor,omitempty" json:"waitFor,omitempty"`
}

// CriticalArea is a page region whose drift is tracked per scenario
type CriticalArea struct {
	Name     string `yaml:"name" json:"name"`
	Selector string `yaml:"selector" json:"selector"`
}

// Component is one interactive element checked across its visual states
type Component struct {
	Name     string   `yaml:"name" json:"name"`
	Selector string   `yaml:"selector" json:"selector"`
	States   []string `yaml:"states,omitempty" json:"states,omitempty"`
}

// JourneyStep is one action in a user journey. Supported actions: navigate,
// click, type, waitFor, assertVisible.
type JourneyStep struct {
	Action   string `yaml:"action" json:"action"`
	Selector string `yaml:"selector,omitempty" json:"selector,omitempty"`
	Value    string `yaml:"value,omitempty" json:"value,omitempty"`
}

// Journey is a named multi-step user flow
type Journey struct {
	Name  string        `yaml:"name" json:"name"`
	Steps []JourneyStep `yaml:"steps" json:"steps"`
}

// Bands are the pixel-difference thresholds (percent) that classify a
// comparison. Below TolerancePct a change is noted but never a regression;
// the remaining bounds split medium from high from critical. Retunable, but
// ordering TolerancePct < MediumMaxPct < HighMaxPct is enforced.
type Bands struct {
	TolerancePct float64 `yaml:"tolerancePct" json:"tolerancePct"`
	MediumMaxPct float64 `yaml:"mediumMaxPct" json:"mediumMaxPct"`
	HighMaxPct   float64 `yaml:"highMaxPct" json:"highMaxPct"`
}

// ExternalSuite declares a command-line suite: the command must print a
// SuiteResult JSON document on stdout. Args may reference the target as
// {{target}}; without the token the target is appended as the last argument.
type ExternalSuite struct {
	Name    string   `yaml:"name" json:"name"`
	Command string   `yaml:"command" json:"command"`
	Args    []string `yaml:"args,omitempty" json:"args,omitempty"`
}

// Driver holds browser-launch options shared by every built-in suite
type Driver struct {
	ExecPath      string `yaml:"execPath,omitempty" json:"execPath,omitempty"`
	Headful       bool   `yaml:"headful,omitempty" json:"headful,omitempty"`
	NavTimeoutSec int    `yaml:"navTimeoutSec,omitempty" json:"navTimeoutSec,omitempty"`
}

// Config is the full orchestration plan, normally loaded from a YAML file.
// SkipBaselineCreation keeps a run from writing baselines for captures that
// have none yet, so CI on a branch cannot grow the pinned baseline set;
// comparisons against existing baselines still happen.
type Config struct {
	Target               string                   `yaml:"target,omitempty" json:"target,omitempty"`
	OutputDir            string                   `yaml:"outputDir,omitempty" json:"outputDir,omitempty"`
	BaselineDir          string                   `yaml:"baselineDir,omitempty" json:"baselineDir,omitempty"`
	SkipBaselineCreation bool                     `yaml:"skipBaselineCreation,omitempty" json:"skipBaselineCreation,omitempty"`
	Suites               []schema.SuiteDescriptor `yaml:"suites" json:"suites"`
	SuiteTimeoutSec      int                      `yaml:"suiteTimeoutSec,omitempty" json:"suiteTimeoutSec,omitempty"`
	Bands                Bands                    `yaml:"bands,omitempty" json:"bands"`
	Viewports            []Viewport               `yaml:"viewports,omitempty" json:"viewports,omitempty"`
	Browsers             []BrowserProfile         `yaml:"browsers,omitempty" json:"browsers,omitempty"`
	Scenarios            []Scenario               `yaml:"scenarios,omitempty" json:"scenarios,omitempty"`
	CriticalAreas        []CriticalArea           `yaml:"criticalAreas,omitempty" json:"criticalAreas,omitempty"`
	Components           []Component              `yaml:"components,omitempty" json:"components,omitempty"`
	Journeys             []Journey                `yaml:"journeys,omitempty" json:"journeys,omitempty"`
	External             []ExternalSuite          `yaml:"externalSuites,omitempty" json:"externalSuites,omitempty"`
	Driver               Driver                   `yaml:"driver,omitempty" json:"driver"`
}

// ValidationError is the single fatal pre-run error class: the plan itself is
// wrong and no suite may run until it is fixed.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid plan: " + strings.Join(e.Problems, "; ")
}

// Default returns a runnable plan for targets with no plan file: full-page
// screenshots plus a performance pass, desktop and mobile viewports.
func Default() *Config {
	return &Config{
		OutputDir:   "./reports",
		BaselineDir: "./baselines",
		Suites: []schema.SuiteDescriptor{
			{Name: "screenshot", Kind: schema.KindVisual, Weight: 0.6, Enabled: true},
			{Name: "perfvisual", Kind: schema.KindPerformance, Weight: 0.4, Enabled: true},
		},
		Bands: DefaultBands(),
		Viewports: []Viewport{
			{Name: "desktop", Width: 1920, Height: 1080},
			{Name: "mobile", Width: 375, Height: 812, Mobile: true},
		},
		Scenarios: []Scenario{
			{Name: "homepage", Path: "/", WaitFor: "body"},
		},
	}
}

// DefaultBands is the stock policy: 0.1% tolerance, 1% medium bound, 5% high bound
func DefaultBands() Bands {
	return Bands{TolerancePct: 0.1, MediumMaxPct: 1.0, HighMaxPct: 5.0}
}

// Load reads and validates a plan file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse plan %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.OutputDir == "" {
		c.OutputDir = "./reports"
	}
	if c.BaselineDir == "" {
		c.BaselineDir = "./baselines"
	}
	if c.Bands == (Bands{}) {
		c.Bands = DefaultBands()
	}
	if len(c.Viewports) == 0 {
		c.Viewports = Default().Viewports
	}
	if len(c.Scenarios) == 0 {
		c.Scenarios = Default().Scenarios
	}
}

// Validate checks everything that must hold before any suite runs. Weights
// are summed over enabled suites only; a disabled suite's weight is inert.
// All problems are collected so one failing run surfaces the whole list.
func (c *Config) Validate() error {
	var problems []string

	seen := make(map[string]bool)
	enabled := 0
	sum := 0.0
	for _, d := range c.Suites {
		if d.Name == "" {
			problems = append(problems, "suite with empty name")
			continue
		}
		if seen[d.Name] {
			problems = append(problems, fmt.Sprintf("duplicate suite %q", d.Name))
		}
		seen[d.Name] = true
		if d.Weight < 0 || d.Weight > 1 {
			problems = append(problems, fmt.Sprintf("suite %q weight %.3f outside [0,1]", d.Name, d.Weight))
		}
		if !validKind(d.Kind) {
			problems = append(problems, fmt.Sprintf("suite %q has unknown kind %q", d.Name, d.Kind))
		}
		if d.Enabled {
			enabled++
			sum += d.Weight
		}
	}

	if enabled == 0 {
		problems = append(problems, "no suites enabled")
	} else if math.Abs(sum-1.0) > weightEpsilon {
		problems = append(problems, fmt.Sprintf("enabled suite weights sum to %.4f, want 1.0", sum))
	}

	if c.Bands.TolerancePct < 0 {
		problems = append(problems, fmt.Sprintf("tolerance %.3f%% is negative", c.Bands.TolerancePct))
	}
	if !(c.Bands.TolerancePct < c.Bands.MediumMaxPct && c.Bands.MediumMaxPct < c.Bands.HighMaxPct) {
		problems = append(problems, fmt.Sprintf(
			"difference bands out of order: tolerance %.3f < medium %.3f < high %.3f must hold",
			c.Bands.TolerancePct, c.Bands.MediumMaxPct, c.Bands.HighMaxPct))
	}

	for _, a := range c.CriticalAreas {
		if a.Name == "" || a.Selector == "" {
			problems = append(problems, "critical area needs both name and selector")
		}
	}
	for _, j := range c.Journeys {
		if len(j.Steps) == 0 {
			problems = append(problems, fmt.Sprintf("journey %q has no steps", j.Name))
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func validKind(k schema.SuiteKind) bool {
	switch k {
	case schema.KindVisual, schema.KindCrossBrowser, schema.KindInteractive,
		schema.KindJourney, schema.KindPerformance, schema.KindExternal:
		return true
	}
	return false
}

// EnabledSuites returns the descriptors that will actually run, in plan order
func (c *Config) EnabledSuites() []schema.SuiteDescriptor {
	var out []schema.SuiteDescriptor
	for _, d := range c.Suites {
		if d.Enabled {
			out = append(out, d)
		}
	}
	return out
}

// SuiteTimeout is the per-suite wall clock budget; zero or negative config
// falls back to the stock two minutes
func (c *Config) SuiteTimeout() time.Duration {
	if c.SuiteTimeoutSec <= 0 {
		return defaultSuiteTimeoutSec * time.Second
	}
	return time.Duration(c.SuiteTimeoutSec) * time.Second
}

// NavTimeout bounds a single navigation inside the driver
func (d Driver) NavTimeout() time.Duration {
	if d.NavTimeoutSec <= 0 {
		return defaultNavTimeoutSec * time.Second
	}
	return time.Duration(d.NavTimeoutSec) * time.Second
}
