// Package report renders analysis and simulation runs as plain text.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"IBSentinel/internal/analysis"
	"IBSentinel/internal/model"
	"IBSentinel/internal/scheduler"
	"IBSentinel/internal/simulator"
)

var printer = message.NewPrinter(language.English)

// FormatMinutes renders a time-to-return as "Xh Ym", or "-" when there was no return.
func FormatMinutes(m *int) string {
	if m == nil {
		return "-"
	}
	h, rem := *m/60, *m%60
	if rem < 0 {
		h, rem = h-1, rem+60
	}
	return fmt.Sprintf("%dh %dm", h, rem)
}

// FormatMoney renders an amount with thousands separators and two decimals.
func FormatMoney(d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	return printer.Sprintf("%.2f", f)
}

// FormatRun formats a complete run.
func FormatRun(run *scheduler.Run) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("IB Sentinel run %s | %s\n\n", run.Analysis.RunID, run.Started.Format("2006-01-02 15:04")))
	b.WriteString(FormatDataset(run.Analysis))
	b.WriteString("\n")
	b.WriteString(FormatSummary(run.Summary))
	if run.SimSummary != nil {
		b.WriteString("\n")
		b.WriteString(FormatSimulation(*run.SimSummary))
	}
	return b.String()
}

// FormatDataset describes the input coverage of an analysis.
func FormatDataset(res *analysis.Result) string {
	var b strings.Builder
	st := res.Stats
	b.WriteString(printer.Sprintf("Rows: %d (dropped %d)\n", st.Normalize.Rows, st.Normalize.Dropped()))
	if first, last, ok := analysis.DateBounds(res.Bars); ok {
		b.WriteString(fmt.Sprintf("Range: %s .. %s\n", first, last))
	}
	b.WriteString(fmt.Sprintf("Sessions: %d analyzed of %d\n", len(res.Sessions), st.Groups))
	if len(st.Discarded) > 0 {
		reasons := make([]string, 0, len(st.Discarded))
		for r := range st.Discarded {
			reasons = append(reasons, r)
		}
		sort.Strings(reasons)
		for _, r := range reasons {
			b.WriteString(fmt.Sprintf("  discarded %s: %d\n", r, st.Discarded[r]))
		}
	}
	return b.String()
}

// FormatSummary formats per-target return statistics.
func FormatSummary(sum analysis.Summary) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Breakouts: %d (UP %d | DOWN %d)\n", sum.Sessions, sum.Up, sum.Down))
	for _, ts := range sum.Targets {
		b.WriteString(fmt.Sprintf("[%s] hit %d/%d (%.1f%%)  dist %.2f pts / %.1f%% (median %.2f / %.1f%%)  streak hit %d miss %d\n",
			ts.Target, ts.Hits, ts.Sessions, ts.HitRate,
			ts.MeanDistancePts, ts.MeanDistancePct, ts.MedianDistancePts, ts.MedianDistancePct,
			ts.MaxHitStreak, ts.MaxMissStreak))
		if len(ts.ReturnBuckets) > 0 {
			parts := make([]string, 0, len(ts.ReturnBuckets))
			for _, hb := range ts.ReturnBuckets {
				parts = append(parts, fmt.Sprintf("%dh:%d", hb.Hour, hb.Count))
			}
			b.WriteString("    returns by hour " + strings.Join(parts, " ") + "\n")
		}
	}
	return b.String()
}

// FormatSessions renders one line per session result.
func FormatSessions(results []model.SessionResult) string {
	var b strings.Builder
	for _, r := range results {
		b.WriteString(fmt.Sprintf("%s %-4s IB %.2f-%.2f (%.2f) break %s UTC",
			r.Date, r.Direction, r.IBLow, r.IBHigh, r.IBRange, r.BreakoutTime.UTC().Format("15:04")))
		for _, k := range model.AllTargets {
			ret := r.Return(k)
			b.WriteString(fmt.Sprintf("  %s %s", k, FormatMinutes(ret.MinutesToReturn)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// FormatSimulation formats trade statistics and the equity result.
func FormatSimulation(sum simulator.Summary) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Trades: %d realized of %d\n", sum.Realized, sum.Trades))
	for _, o := range model.AllOutcomes {
		if n := sum.Counts[o]; n > 0 {
			b.WriteString(fmt.Sprintf("  %s: %d\n", o, n))
		}
	}
	b.WriteString(fmt.Sprintf("Win rate: %.1f%% (W %d | L %d)  streaks W %d L %d\n",
		sum.WinRate, sum.Wins, sum.Losses, sum.MaxWinStreak, sum.MaxLossStreak))
	b.WriteString(fmt.Sprintf("R: total %+.2f avg %+.2f\n", sum.TotalR, sum.AvgR))
	b.WriteString(fmt.Sprintf("PnL: %s  final balance %s\n", FormatMoney(sum.TotalPnL), FormatMoney(sum.Final)))
	b.WriteString(fmt.Sprintf("Max drawdown: %s (%.2f%%)\n", FormatMoney(sum.MaxDrawdown), sum.MaxDrawdownPct))
	return b.String()
}
