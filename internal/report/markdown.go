package report

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders the ranked batch as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Tuning Evaluation Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Owner: %s | Strategy: %s | Market: %s %s\n\n",
		r.OwnerID, r.StrategyKind, r.Symbol, r.Timeframe))

	if best := r.Best(); best != nil {
		sb.WriteString(fmt.Sprintf("**Best score: %.4f** (profit %.4f%%, drawdown %.4f%%, %d trades)\n\n",
			*best.Score, best.Metrics.ProfitPct, best.Metrics.MaxDrawdownPct, best.Metrics.Trades))
	} else {
		sb.WriteString("**No usable candidate in this batch.**\n\n")
	}

	// Ranking
	sb.WriteString("## Ranking\n\n")
	if len(r.Evaluations) == 0 {
		sb.WriteString("No evaluations available.\n")
		return sb.String()
	}

	names := paramNames(r.Evaluations)
	sb.WriteString("| Rank | Score | Profit% | MaxDD% | Trades | WinRate% |")
	for _, name := range names {
		sb.WriteString(" " + name + " |")
	}
	sb.WriteString("\n")
	sb.WriteString("|------|-------|---------|--------|--------|----------|")
	for range names {
		sb.WriteString("---|")
	}
	sb.WriteString("\n")

	for i, ev := range r.Evaluations {
		if ev.Err != "" || ev.Metrics == nil || ev.Score == nil {
			sb.WriteString(fmt.Sprintf("| %d | error | | | | |", i+1))
			for range names {
				sb.WriteString(" |")
			}
			sb.WriteString("\n")
			continue
		}
		m := ev.Metrics
		sb.WriteString(fmt.Sprintf("| %d | %.4f | %.4f | %.4f | %d | %.4f |",
			i+1, *ev.Score, m.ProfitPct, m.MaxDrawdownPct, m.Trades, m.WinRatePct))
		for _, name := range names {
			sb.WriteString(" " + paramCell(ev, name) + " |")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	// Failures
	var failed []string
	for _, ev := range r.Evaluations {
		if ev.Err != "" {
			failed = append(failed, ev.Err)
		}
	}
	if len(failed) > 0 {
		sb.WriteString("## Failures\n\n")
		for _, e := range failed {
			sb.WriteString(fmt.Sprintf("- %s\n", e))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
