package reporting

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"sleep-futures/internal/domain"
	"sleep-futures/internal/features"
	"sleep-futures/internal/normalization"
)

// RenderDailyCSV renders the processed daily table in the cache layout.
func RenderDailyCSV(obs []*domain.DailyObservation) (string, error) {
	var sb strings.Builder
	if err := normalization.WriteProcessed(&sb, obs); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// RenderPredictionsCSV renders realised targets next to predicted directions.
// Undefined values are empty cells.
func RenderPredictionsCSV(rows []domain.PredictionRow) string {
	var sb strings.Builder

	sb.WriteString("date,y_true,y_pred_cls\n")
	for _, r := range rows {
		yTrue, pred := "", ""
		if r.YTrue != nil {
			yTrue = csvFloat(*r.YTrue)
		}
		if r.YPredCls != nil {
			pred = strconv.Itoa(int(*r.YPredCls))
		}
		sb.WriteString(fmt.Sprintf("%s,%s,%s\n", r.Date.Format(domain.DateLayout), yTrue, pred))
	}

	return sb.String()
}

// RenderTradesCSV renders the trade ledger.
func RenderTradesCSV(trades []*domain.TradeRecord) string {
	var sb strings.Builder

	sb.WriteString("trade_id,run_id,date,y_true,y_true_cls,y_pred_cls,position,pnl,cum_pnl\n")
	for _, t := range trades {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%d,%d,%d,%s,%s\n",
			t.TradeID,
			t.RunID,
			t.Date.Format(domain.DateLayout),
			csvFloat(t.YTrue),
			int(t.YTrueCls),
			int(t.YPredCls),
			t.Position,
			csvFloat(t.PnL),
			csvFloat(t.CumPnL),
		))
	}

	return sb.String()
}

// RenderVolatilityCSV renders the rolling sleep index volatility series.
func RenderVolatilityCSV(points []features.VolatilityPoint) string {
	var sb strings.Builder

	sb.WriteString("date,volatility\n")
	for _, p := range points {
		sb.WriteString(fmt.Sprintf("%s,%s\n", p.Date.Format(domain.DateLayout), csvFloat(p.Volatility)))
	}

	return sb.String()
}

func csvFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
