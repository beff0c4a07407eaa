package notifier

import (
	"fmt"
	"html"
	"strings"

	"RiskSentinel/internal/model"
)

// FormatReport formats the latest cycle: metrics table then suggestions.
func FormatReport(cycle *model.Cycle) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>RiskSentinel</b> | cycle #%d | %s\n\n", cycle.Seq, cycle.At.Format("2006-01-02 15:04:05")))
	b.WriteString(FormatMetrics(cycle.Metrics))
	b.WriteString("\n")
	b.WriteString(FormatSuggestions(cycle.Suggestions))
	return b.String()
}

// FormatMetrics renders one line per instrument.
func FormatMetrics(metrics []model.MetricsSnapshot) string {
	var b strings.Builder
	b.WriteString("<b>Metrics</b>\n")
	if len(metrics) == 0 {
		b.WriteString("  (no instruments)\n")
		return b.String()
	}
	for _, m := range metrics {
		b.WriteString(fmt.Sprintf("  %-6s %10.2f  vol %6.2f%%  VaR $%7.2f  chg %+.2f%%\n",
			html.EscapeString(m.Symbol), m.LastPrice, m.VolatilityAnn, m.VaR1d, m.LossPct))
	}
	return b.String()
}

// FormatSuggestions renders suggestions, risk alerts first as produced.
func FormatSuggestions(sugs []model.Suggestion) string {
	var b strings.Builder
	b.WriteString("<b>Suggestions</b>\n")
	if len(sugs) == 0 {
		b.WriteString("  none\n")
		return b.String()
	}
	for _, s := range sugs {
		icon := "🟢"
		if s.Risky() {
			icon = "⚠️"
		}
		b.WriteString(fmt.Sprintf("%s %s: %s -> %s", icon,
			html.EscapeString(s.Symbol), html.EscapeString(s.Reason), html.EscapeString(s.Text)))
		if len(s.Alternatives) > 0 {
			b.WriteString(fmt.Sprintf(" (alt: %s)", html.EscapeString(strings.Join(s.Alternatives, ", "))))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// FormatActivity renders activity events newest first.
func FormatActivity(events []model.ActivityEvent) string {
	var b strings.Builder
	b.WriteString("<b>Activity</b>\n")
	if len(events) == 0 {
		b.WriteString("  none\n")
		return b.String()
	}
	for _, e := range events {
		b.WriteString(fmt.Sprintf("  %s %s\n", e.Timestamp.Format("15:04:05"), html.EscapeString(e.Text)))
	}
	return b.String()
}
