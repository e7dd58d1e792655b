package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glasshouse-qa/vizguard-agent/internal/schema"
)

// RunDir builds the per-run artifact directory: <outputDir>/<target_timestamp>/
func RunDir(outputDir, target string, ts time.Time) string {
	return filepath.Join(outputDir, SafeName(target)+"_"+ts.Format("20060102_150405"))
}

// SaveReport writes the run report as indented JSON into dir/report.json
func SaveReport(rep *schema.Report, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}

	file := filepath.Join(dir, "report.json")
	fh, err := os.Create(file)
	if err != nil {
		return "", fmt.Errorf("failed to create report.json: %w", err)
	}
	defer fh.Close()

	enc := json.NewEncoder(fh)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	return file, nil
}

// SafeName replaces characters not safe for file paths
func SafeName(s string) string {
	invalid := []rune{'/', '\\', ':', '*', '?', '"', '<', '>', '|'}
	rs := []rune(s)
	for i, r := range rs {
		for _, bad := range invalid {
			if r == bad {
				rs[i] = '_'
			}
		}
	}
	return string(rs)
}
