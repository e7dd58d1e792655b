package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	reportpkg "github.com/glasshouse-qa/vizguard-agent/internal/report"
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "report",
		Short:   "Re-render a saved run report",
		Example: "  vizguard report --from ./reports/example.com_20260825_131722 --format text,html",
		RunE:    runReport,
	}

	cmd.Flags().String("from", "", "Run directory (must contain report.json)")
	cmd.Flags().String("format", "text,html", "Output formats: text,html,json (json just points to report.json)")

	_ = viper.BindPFlag("report.from", cmd.Flags().Lookup("from"))
	_ = viper.BindPFlag("report.format", cmd.Flags().Lookup("format"))
	return cmd
}

func runReport(cmd *cobra.Command, _ []string) error {
	from := viper.GetString("report.from")
	if from == "" {
		return errors.New("please provide --from pointing to the run directory (with report.json)")
	}

	formats := strings.Split(viper.GetString("report.format"), ",")
	for i := range formats {
		formats[i] = strings.TrimSpace(strings.ToLower(formats[i]))
	}

	rep, err := reportpkg.LoadRun(from)
	if err != nil {
		return err
	}

	if contains(formats, "text") {
		fmt.Print(reportpkg.RenderText(rep))
	}

	if contains(formats, "html") {
		htmlPath, err := reportpkg.GenerateHTML(rep, from)
		if err != nil {
			return err
		}
		fmt.Printf("📝 HTML report: %s\n", htmlPath)
	}

	if contains(formats, "json") {
		fmt.Printf("📦 JSON already exists at: %s\n", filepath.Join(from, "report.json"))
	}

	return nil
}

func contains(arr []string, v string) bool {
	for _, x := range arr {
		if x == v {
			return true
		}
	}
	return false
}
