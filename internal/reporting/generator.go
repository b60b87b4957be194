package reporting

import (
	"fmt"
	"os"
	"path/filepath"
)

// Generator writes report artifacts into an output directory.
type Generator struct {
	outputDir string
}

// NewGenerator creates a new report generator.
func NewGenerator(outputDir string) *Generator {
	return &Generator{outputDir: outputDir}
}

// OutputDir returns the artifact directory.
func (g *Generator) OutputDir() string {
	return g.outputDir
}

// Generate writes the markdown report and CSV exports.
// Returns the written paths in a fixed order.
func (g *Generator) Generate(r *Report) ([]string, error) {
	if err := os.MkdirAll(g.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	daily, err := RenderDailyCSV(r.Observations)
	if err != nil {
		return nil, fmt.Errorf("render daily table: %w", err)
	}

	artifacts := []struct {
		name    string
		content string
	}{
		{MarkdownFile, RenderMarkdown(r)},
		{DailyCSVFile, daily},
		{PredictionsCSVFile, RenderPredictionsCSV(r.Predictions)},
		{TradesCSVFile, RenderTradesCSV(r.Trades)},
		{VolatilityCSVFile, RenderVolatilityCSV(r.Volatility)},
	}

	files := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		path := filepath.Join(g.outputDir, a.name)
		if err := os.WriteFile(path, []byte(a.content), 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", a.name, err)
		}
		files = append(files, path)
	}
	return files, nil
}
