package reporting

import (
	"fmt"
	"math"
	"strings"
	"time"

	"sleep-futures/internal/domain"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder
	s := r.Summary

	// Header
	sb.WriteString("# Sleep Futures Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Run: `%s`\n\n", s.RunID))

	// Data Summary
	sb.WriteString("## Data Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Date Range | %s .. %s |\n",
		s.FirstDate.Format(domain.DateLayout), s.LastDate.Format(domain.DateLayout)))
	sb.WriteString(fmt.Sprintf("| Calendar Days | %d |\n", s.ObservationDays))
	sb.WriteString(fmt.Sprintf("| Recorded Days | %d |\n", s.RecordedDays))
	sb.WriteString(fmt.Sprintf("| Feature Rows | %d |\n", s.FeatureRows))
	sb.WriteString("\n")

	// Data Quality
	sb.WriteString("## Data Quality\n\n")
	if len(r.DataQuality.SufficiencyChecks) > 0 {
		sb.WriteString("| Check | Threshold | Actual | Status |\n")
		sb.WriteString("|-------|-----------|--------|--------|\n")
		for _, check := range r.DataQuality.SufficiencyChecks {
			status := "FAIL"
			if check.Pass {
				status = "PASS"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
				check.Name, check.Threshold, check.Actual, status))
		}
		sb.WriteString("\n")

		if r.DataQuality.AllChecksPassed {
			sb.WriteString("**All checks passed.**\n\n")
		} else {
			sb.WriteString("**Some checks failed.** Treat model metrics as indicative only.\n\n")
		}
	} else if len(r.DataQuality.IntegrityErrors) == 0 {
		sb.WriteString("No data quality checks performed.\n\n")
	}

	if len(r.DataQuality.IntegrityErrors) > 0 {
		sb.WriteString("### Integrity Errors\n\n")
		for _, err := range r.DataQuality.IntegrityErrors {
			sb.WriteString(fmt.Sprintf("- %s\n", err))
		}
		sb.WriteString("\n")
	}

	// Model
	sb.WriteString("## Direction Model\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Model | %s |\n", s.ModelKind))
	if s.ModelKind == domain.ModelKindBoosted {
		sb.WriteString(fmt.Sprintf("| Best Iteration | %d |\n", s.BestIteration))
	}
	sb.WriteString(fmt.Sprintf("| Train / Validation / Test Rows | %d / %d / %d |\n",
		s.TrainRows, s.ValidationRows, s.TestRows))
	sb.WriteString(fmt.Sprintf("| Evaluation Rows | %d |\n", s.EvalRows))
	sb.WriteString(fmt.Sprintf("| Accuracy | %s |\n", formatFloat(s.Accuracy, 4)))
	sb.WriteString(fmt.Sprintf("| Directional Accuracy | %s |\n", formatFloat(s.DirectionalAccuracy, 4)))
	sb.WriteString("\n")
	if s.ModelKind == domain.ModelKindConstant {
		sb.WriteString("Training labels held a single direction; the model predicts that direction for every day.\n\n")
	}
	if s.EvaluatedOnTrain {
		sb.WriteString("**No held-out rows.** Metrics are computed on the training rows and overstate out-of-sample skill.\n\n")
	}

	// Strategy
	ls := r.Ledger
	sb.WriteString("## Strategy\n\n")
	sb.WriteString(fmt.Sprintf("%s, %s $ per sleep index point\n\n", r.StrategyName, formatFloat(r.Multiplier, 2)))
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Trades | %d |\n", s.TotalTrades))
	sb.WriteString(fmt.Sprintf("| Total PnL | %s |\n", formatFloat(s.TotalPnL, 2)))
	sb.WriteString(fmt.Sprintf("| Sharpe (annualised) | %s |\n", formatFloat(s.Sharpe, 4)))
	sb.WriteString(fmt.Sprintf("| Max Drawdown | %s |\n", formatFloat(s.MaxDrawdown, 2)))
	sb.WriteString(fmt.Sprintf("| Win Rate | %s |\n", formatFloat(ls.WinRate, 4)))
	sb.WriteString(fmt.Sprintf("| Wins / Losses | %d / %d |\n", ls.Wins, ls.Losses))
	sb.WriteString(fmt.Sprintf("| PnL Mean / Median | %s / %s |\n", formatFloat(ls.PnLMean, 2), formatFloat(ls.PnLMedian, 2)))
	sb.WriteString(fmt.Sprintf("| PnL P10 / P90 | %s / %s |\n", formatFloat(ls.PnLP10, 2), formatFloat(ls.PnLP90, 2)))
	sb.WriteString(fmt.Sprintf("| Max Consecutive Losses | %d |\n", ls.MaxConsecutiveLosses))
	sb.WriteString("\n")

	// Ledger
	sb.WriteString("## Ledger\n\n")
	if len(r.Trades) > 0 {
		sb.WriteString("| Date | Predicted | Actual | Sleep Index | Position | PnL | Cum PnL |\n")
		sb.WriteString("|------|-----------|--------|-------------|----------|-----|---------|\n")
		for _, t := range r.Trades {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %.4f | %+d | %.2f | %.2f |\n",
				t.Date.Format(domain.DateLayout), t.YPredCls, t.YTrueCls, t.YTrue, t.Position, t.PnL, t.CumPnL))
		}
	} else {
		sb.WriteString("No trades.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

// formatFloat prints n/a for NaN.
func formatFloat(v float64, prec int) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.*f", prec, v)
}
