package cli

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Veraticus/tally/internal/engine"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/pattern"
	"github.com/Veraticus/tally/internal/usage"
	"github.com/charmbracelet/lipgloss"
)

// RenderCandidates formats ranked suggestions as a table.
func RenderCandidates(description string, candidates model.Candidates) string {
	if len(candidates) == 0 {
		return FormatWarning(fmt.Sprintf("No suggestions for %q", description))
	}

	rows := [][]string{{"#", "ACCOUNT", "CONFIDENCE", "SOURCE", "DETAIL"}}
	for i, c := range candidates {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			c.Target,
			confidenceStyle(c.Confidence).Render(percent(c.Confidence)),
			sourceLabel(c),
			candidateDetail(c),
		})
	}
	return FormatTitle("Suggestions for "+description) + "\n" + renderTable(rows)
}

func sourceLabel(c model.MatchCandidate) string {
	label := string(c.Type)
	if c.Type == model.MatchAI {
		label = RobotIcon + " " + label
	}
	return label
}

func candidateDetail(c model.MatchCandidate) string {
	var parts []string
	switch {
	case c.Historical != nil:
		h := c.Historical
		parts = append(parts, fmt.Sprintf("seen %dx", h.Frequency))
		if c.Type == model.MatchFuzzy {
			parts = append(parts, "text "+percent(h.TextSimilarity))
		}
		if h.Profile != nil && h.Profile.Recurrence.IsRecurring {
			parts = append(parts, h.Profile.Recurrence.SuggestedFrequency)
		}
	case c.Rule != nil:
		if c.Rule.Pattern != "" {
			parts = append(parts, "/"+c.Rule.Pattern+"/")
		} else {
			parts = append(parts, strings.Join(c.Rule.Keywords, ", "))
		}
	case c.AI != nil:
		if c.AI.Boosted {
			parts = append(parts, "boosted")
		}
		if c.AI.Reasoning != "" {
			parts = append(parts, truncate(c.AI.Reasoning, 50))
		}
	}
	if c.HasReliability {
		parts = append(parts, "reliability "+percent(c.Reliability))
	}
	if c.Usage != nil {
		parts = append(parts, "used "+c.Usage.Frequency)
	}
	return SubtleStyle.Render(strings.Join(parts, " · "))
}

// RenderExplanation formats a suggested explanation.
func RenderExplanation(s engine.ExplanationSuggestion) string {
	var b strings.Builder
	b.WriteString(BoldStyle.Render(s.Text))
	b.WriteString("\n")
	fmt.Fprintf(&b, "source: %s  confidence: %s", s.Source, confidenceStyle(s.Confidence).Render(percent(s.Confidence)))
	if s.Basis != nil {
		fmt.Fprintf(&b, "\nfrom: %s %q %s", s.Basis.Date.Format(time.DateOnly), s.Basis.Description, s.Basis.Amount.StringFixed(2))
	}
	return RenderBox("Suggested explanation", b.String())
}

// RenderUsageReport formats an account usage report.
func RenderUsageReport(r usage.Report) string {
	if r.Status != usage.StatusOK {
		return FormatWarning(fmt.Sprintf("Account %s: not enough transactions to analyze (%d, need %d)",
			r.AccountID, r.TransactionCount, usage.MinDataPoints))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Period:        %s to %s (%d days)\n",
		r.DateRange.Start.Format(time.DateOnly), r.DateRange.End.Format(time.DateOnly), r.DateRange.Days)
	fmt.Fprintf(&b, "Transactions:  %d\n", r.TransactionCount)
	fmt.Fprintf(&b, "Frequency:     %s (%.3f/day, active %d of %d days)\n",
		r.Frequency.Type, r.Frequency.TransactionsPerDay, r.Frequency.ActivityDays, r.Frequency.TotalDays)
	fmt.Fprintf(&b, "Amounts:       mean %.2f  median %.2f  std %.2f  range %.2f to %.2f\n",
		r.Basic.Mean, r.Basic.Median, r.Basic.StdDev, r.Basic.Min, r.Basic.Max)

	t := r.Temporal
	if t.Interval.Detected {
		fmt.Fprintf(&b, "Interval:      every %.1f days (%s)\n", t.Interval.CommonInterval, percent(t.Interval.PatternStrength))
	}
	for _, peak := range []struct {
		name string
		p    usage.PeakPattern
	}{{"Time of day", t.Daily}, {"Weekday", t.Weekly}, {"Day of month", t.Monthly}} {
		if peak.p.Detected {
			fmt.Fprintf(&b, "%-14s %s (%s)\n", peak.name+":", peak.p.Label, percent(peak.p.PatternStrength))
		}
	}
	fmt.Fprintf(&b, "Regularity:    %s\n", percent(t.Regularity))
	if r.Amounts.PatternDetected {
		fmt.Fprintf(&b, "Common amount: %.2f (%s of transactions)\n", r.Amounts.CommonAmount, percent(r.Amounts.PatternStrength))
	}
	fmt.Fprintf(&b, "Confidence:    %s", confidenceStyle(r.Confidence).Render(percent(r.Confidence)))

	return RenderBox(ChartIcon+" Account "+r.AccountID, b.String())
}

// RenderProfiles formats recurring description profiles, most frequent
// first.
func RenderProfiles(profiles map[string]model.PatternProfile) string {
	if len(profiles) == 0 {
		return FormatInfo("No repeated descriptions in history")
	}

	list := make([]model.PatternProfile, 0, len(profiles))
	for _, p := range profiles {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Frequency != list[j].Frequency {
			return list[i].Frequency > list[j].Frequency
		}
		return list[i].Description < list[j].Description
	})

	rows := [][]string{{"DESCRIPTION", "COUNT", "RECURRENCE", "AVG DAYS", "CV", "TREND", "RELIABILITY"}}
	for _, p := range list {
		recurrence := "-"
		if p.Recurrence.IsRecurring {
			recurrence = p.Recurrence.SuggestedFrequency
		}
		rows = append(rows, []string{
			truncate(p.Description, 32),
			fmt.Sprintf("%d", p.Frequency),
			recurrence,
			fmt.Sprintf("%.1f", p.Recurrence.AverageInterval),
			formatRatio(p.Recurrence.CoefficientOfVariation),
			p.Stability.Trend,
			percent(p.Metrics.Reliability),
		})
	}
	return FormatTitle("Description patterns") + "\n" + renderTable(rows)
}

// RenderFrequencyPatterns formats per-description frequency statistics.
func RenderFrequencyPatterns(patterns map[string]pattern.FrequencyPattern) string {
	keys := make([]string, 0, len(patterns))
	for k := range patterns {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := [][]string{{"DESCRIPTION", "COUNT", "MIN", "AVG", "MAX", "CONFIDENCE"}}
	for _, k := range keys {
		p := patterns[k]
		rows = append(rows, []string{
			truncate(k, 32),
			fmt.Sprintf("%d", p.Count),
			fmt.Sprintf("%.2f", p.MinAmount),
			fmt.Sprintf("%.2f", p.AvgAmount),
			fmt.Sprintf("%.2f", p.MaxAmount),
			percent(p.Confidence),
		})
	}
	return renderTable(rows)
}

// RenderHistoricalConfidence formats how trustworthy a group of similar
// transactions is.
func RenderHistoricalConfidence(h pattern.HistoricalConfidence) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Transactions:  %d", h.Count)
	if !h.FirstDate.IsZero() {
		fmt.Fprintf(&b, " (%s to %s, %d days)", h.FirstDate.Format(time.DateOnly), h.LastDate.Format(time.DateOnly), h.RangeDays)
	}
	if h.Intervals != nil && h.Intervals.IntervalType != "" {
		fmt.Fprintf(&b, "\nInterval:      %s, avg %.1f days (match %s, regularity %s)",
			h.Intervals.IntervalType, h.Intervals.AverageInterval, percent(h.Intervals.TypeConfidence), percent(h.Intervals.Regularity))
	}
	if h.Amounts != nil {
		fmt.Fprintf(&b, "\nCommon amount: %.2f (%s, %d variations)", h.Amounts.CommonAmount, percent(h.Amounts.Consistency), h.Amounts.Variations)
	}
	fmt.Fprintf(&b, "\nStability:     %s", percent(h.AmountStability))
	fmt.Fprintf(&b, "\nConfidence:    %s", confidenceStyle(h.Confidence).Render(percent(h.Confidence)))
	return RenderBox(ChartIcon+" History", b.String())
}

// RenderAmountPattern formats where an amount falls among similar
// transactions.
func RenderAmountPattern(amount float64, p pattern.AmountPattern) string {
	if p.SampleSize == 0 {
		return FormatInfo("No similar transactions to compare the amount with")
	}
	return fmt.Sprintf("Amount %.2f vs mean %.2f (std %.2f, z %.2f, n=%d): %s",
		amount, p.Mean, p.StdDev, p.ZScore, p.SampleSize, confidenceStyle(p.Confidence).Render(percent(p.Confidence)))
}

// RenderRules formats keyword rules.
func RenderRules(rules []model.KeywordRule) string {
	if len(rules) == 0 {
		return FormatInfo("No keyword rules")
	}

	rows := [][]string{{"ID", "PATTERN", "CATEGORY", "PRIORITY", "KIND", "ACTIVE"}}
	for _, r := range rules {
		kind := "keyword"
		text := r.Pattern
		if r.IsRegex {
			kind = "regex"
			text = "/" + text + "/"
		}
		active := SuccessStyle.Render(SuccessIcon)
		if !r.IsActive {
			active = SubtleStyle.Render(ErrorIcon)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", r.ID), text, r.Category, fmt.Sprintf("%d", r.Priority), kind, active,
		})
	}
	return renderTable(rows)
}

// RenderRuleStats formats rule statistics.
func RenderRuleStats(s model.RuleStats) string {
	cache := "empty"
	if s.Cached {
		cache = fmt.Sprintf("%d rules, %s old", s.CachedRules, s.CacheAge.Round(time.Second))
	}
	content := fmt.Sprintf("Total:    %d\nActive:   %d\nKeyword:  %d\nRegex:    %d\nCache:    %s",
		s.Total, s.Active, s.Keyword, s.Regex, cache)
	return RenderBox(ChartIcon+" Keyword rules", content)
}

// RenderAccounts formats the chart of accounts.
func RenderAccounts(accounts model.Accounts) string {
	if len(accounts) == 0 {
		return FormatInfo("No accounts. Add one with: tally accounts add <code> <name> <category>")
	}
	rows := [][]string{{"CODE", "NAME", "CATEGORY", "DESCRIPTION"}}
	for _, a := range accounts {
		rows = append(rows, []string{a.Code, a.Name, a.Category, truncate(a.Description, 40)})
	}
	return renderTable(rows)
}

// RenderBatchSummary formats the outcome of a batch run.
func RenderBatchSummary(s engine.BatchSummary, applied int) string {
	content := fmt.Sprintf("Processed:        %d\nWith suggestion:  %d\nModel-backed:     %d %s\nApplied:          %d\nTime taken:       %s",
		s.Total, s.WithSuggestion, s.AIBacked, RobotIcon, applied, s.ProcessingTime.Round(time.Millisecond))
	return RenderBox("Batch complete", content)
}

// renderTable lays out rows in padded columns; the first row is the header.
func renderTable(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}

	lines := make([]string, 0, len(rows))
	for r, row := range rows {
		cells := make([]string, 0, len(row))
		for i, cell := range row {
			style := TableCellStyle.Width(widths[i] + 2)
			if r == 0 {
				style = style.Bold(true)
			}
			cells = append(cells, style.Render(cell))
		}
		lines = append(lines, strings.TrimRight(lipgloss.JoinHorizontal(lipgloss.Top, cells...), " "))
	}
	return strings.Join(lines, "\n")
}

func percent(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}

// formatRatio renders a ratio that may be infinite.
func formatRatio(v float64) string {
	if math.IsInf(v, 1) {
		return "∞"
	}
	return fmt.Sprintf("%.2f", v)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
