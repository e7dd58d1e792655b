package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/glasshouse-qa/vizguard-agent/internal/baseline"
	"github.com/glasshouse-qa/vizguard-agent/internal/config"
	"github.com/glasshouse-qa/vizguard-agent/internal/driver"
	"github.com/glasshouse-qa/vizguard-agent/internal/engine"
	"github.com/glasshouse-qa/vizguard-agent/internal/report"
	"github.com/glasshouse-qa/vizguard-agent/internal/schema"
	"github.com/glasshouse-qa/vizguard-agent/internal/suites"
	"github.com/glasshouse-qa/vizguard-agent/pkg/utils"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run the full visual test pipeline against a target",
		Example: "  vizguard run --target https://staging.example.com --plan vizguard.yaml",
		RunE:    runRun,
	}

	cmd.Flags().String("target", "", "Target URL to test")
	cmd.Flags().String("plan", "", "Orchestration plan YAML (omit for the default plan)")
	cmd.Flags().String("baseline-dir", "", "Baseline image directory (overrides the plan)")
	cmd.Flags().Bool("update-baselines", true, "Create baselines for captures that have none yet")
	_ = viper.BindPFlag("target", cmd.Flags().Lookup("target"))
	_ = viper.BindPFlag("plan", cmd.Flags().Lookup("plan"))
	_ = viper.BindPFlag("baseline-dir", cmd.Flags().Lookup("baseline-dir"))
	_ = viper.BindPFlag("update-baselines", cmd.Flags().Lookup("update-baselines"))

	return cmd
}

func runRun(cmd *cobra.Command, _ []string) error {
	target := viper.GetString("target")
	if target == "" {
		return errors.New("please provide --target")
	}

	cfg, err := loadPlan()
	if err != nil {
		return err
	}
	cfg.Target = target
	if out := viper.GetString("output"); out != "" {
		cfg.OutputDir = out
	}
	if dir := viper.GetString("baseline-dir"); dir != "" {
		cfg.BaselineDir = dir
	}
	if !viper.GetBool("update-baselines") {
		cfg.SkipBaselineCreation = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	started := time.Now()
	runDir := utils.RunDir(cfg.OutputDir, target, started)
	shotsDir := filepath.Join(runDir, "captures")

	// Ctrl-C aborts the whole run; no partial report is written
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	browser, launch, closeBrowser, err := prepareBrowser(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBrowser()

	built, err := suites.Build(cfg, browser, launch, shotsDir, logger)
	if err != nil {
		return err
	}

	store := baseline.NewStore(cfg.BaselineDir, logger)
	orch := engine.NewOrchestrator(cfg, built, store, nil, logger)

	fmt.Printf("🚀 Running %d suites against %s\n", len(cfg.EnabledSuites()), target)
	rep, err := orch.RunAll(ctx)
	if err != nil {
		return err
	}

	file, err := utils.SaveReport(rep, runDir)
	if err != nil {
		return err
	}
	if _, err := report.GenerateHTML(rep, runDir); err != nil {
		fmt.Printf("⚠️  HTML report failed: %v\n", err)
	}

	fmt.Println()
	fmt.Print(report.RenderText(rep))

	trend, err := report.RecordHistory(cfg.OutputDir, rep, runDir)
	if err != nil {
		logger.Warn("history not recorded", zap.Error(err))
	} else if trend.Label != "FIRST_RUN" {
		fmt.Printf("\nTrend: %s (%.1f → %.1f)\n", trend.Label, trend.Previous, trend.Current)
	}

	fmt.Printf("\n✅ Run complete. Report saved to %s\n", file)
	return nil
}

func loadPlan() (*config.Config, error) {
	path := viper.GetString("plan")
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// prepareBrowser launches the shared browser only when a built-in suite will
// use it; a plan of external suites never touches Chrome
func prepareBrowser(ctx context.Context, cfg *config.Config) (suites.Browser, suites.Launcher, func(), error) {
	needed := false
	for _, d := range cfg.EnabledSuites() {
		if d.Kind != schema.KindExternal {
			needed = true
			break
		}
	}
	launch := suites.ChromeLauncher(cfg.Driver, logger)
	if !needed {
		return nil, launch, func() {}, nil
	}

	chrome, err := driver.Launch(ctx, driver.Options{
		ExecPath:   cfg.Driver.ExecPath,
		Headful:    cfg.Driver.Headful,
		NavTimeout: cfg.Driver.NavTimeout(),
	}, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("launch browser: %w", err)
	}
	return suites.Wrap(chrome), launch, chrome.Close, nil
}
