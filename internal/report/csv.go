package report

import (
	"fmt"
	"strings"
)

// RenderCSV renders ranked evaluations as CSV string.
func RenderCSV(r *Report) string {
	var sb strings.Builder
	names := paramNames(r.Evaluations)

	// Header
	sb.WriteString("rank,score,profit_pct,max_drawdown_pct,trades,wins,losses,win_rate_pct")
	for _, name := range names {
		sb.WriteString(",")
		sb.WriteString(name)
	}
	sb.WriteString(",error\n")

	// Rows
	for i, ev := range r.Evaluations {
		if ev.Err != "" || ev.Metrics == nil || ev.Score == nil {
			sb.WriteString(fmt.Sprintf("%d,,,,,,,", i+1))
			for range names {
				sb.WriteString(",")
			}
			sb.WriteString("," + csvEscape(ev.Err) + "\n")
			continue
		}

		m := ev.Metrics
		sb.WriteString(fmt.Sprintf("%d,%.4f,%.4f,%.4f,%d,%d,%d,%.4f",
			i+1, *ev.Score, m.ProfitPct, m.MaxDrawdownPct, m.Trades, m.Wins, m.Losses, m.WinRatePct))
		for _, name := range names {
			sb.WriteString(",")
			sb.WriteString(paramCell(ev, name))
		}
		sb.WriteString(",\n")
	}

	return sb.String()
}

func csvEscape(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return "\"" + strings.ReplaceAll(s, "\"", "\"\"") + "\""
	}
	return s
}
