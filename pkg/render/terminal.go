package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/dkoosis/gradefetch/pkg/pattern"
)

const (
	maxNameWidth = 40
	barWidth     = 20
)

var blocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Terminal renders patterns as styled terminal output via lipgloss.
type Terminal struct {
	theme Theme
	width int
}

// NewTerminal creates a terminal renderer with the given theme.
func NewTerminal(theme Theme, width int) *Terminal {
	if width <= 0 {
		width = 80
	}
	return &Terminal{theme: theme, width: width}
}

// Render formats all patterns for terminal display.
func (t *Terminal) Render(patterns []pattern.Pattern) string {
	var sections []string
	for _, p := range patterns {
		if s := t.renderOne(p); s != "" {
			sections = append(sections, s)
		}
	}
	return strings.Join(sections, "\n")
}

func (t *Terminal) renderOne(p pattern.Pattern) string {
	switch v := p.(type) {
	case *pattern.Summary:
		return t.renderSummary(v)
	case *pattern.TestTable:
		return t.renderTestTable(v)
	case *pattern.Leaderboard:
		return t.renderLeaderboard(v)
	case *pattern.Sparkline:
		return t.renderSparkline(v)
	case *pattern.Comparison:
		return t.renderComparison(v)
	case *pattern.Warnings:
		return t.renderWarnings(v)
	default:
		return ""
	}
}

func (t *Terminal) renderSummary(s *pattern.Summary) string {
	var sb strings.Builder
	sb.WriteString(t.theme.Bold.Render(s.Label))
	if s.Scope != "" {
		sb.WriteString(t.theme.Muted.Render("  " + s.Scope))
	}
	sb.WriteString("\n")

	labelWidth := 0
	for _, m := range s.Metrics {
		labelWidth = max(labelWidth, runewidth.StringWidth(m.Label))
	}
	for _, m := range s.Metrics {
		icon, style := t.kindStyle(m.Kind)
		sb.WriteString("  ")
		sb.WriteString(style.Render(icon))
		sb.WriteString(" " + padRight(m.Label, labelWidth) + "  ")
		sb.WriteString(style.Render(m.Value))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (t *Terminal) renderTestTable(tt *pattern.TestTable) string {
	if len(tt.Results) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(t.theme.Bold.Render(tt.Label))
	sb.WriteString("\n")

	nameWidth := 0
	for _, r := range tt.Results {
		nameWidth = max(nameWidth, runewidth.StringWidth(r.Name))
	}
	nameWidth = min(nameWidth, maxNameWidth)

	for _, r := range tt.Results {
		icon, style := t.statusStyle(r.Status)
		sb.WriteString("  ")
		sb.WriteString(style.Render(icon))
		sb.WriteString(" " + padRight(runewidth.Truncate(r.Name, nameWidth, "..."), nameWidth) + "  ")
		sb.WriteString(style.Render(bar(r.PassRate, barWidth)))
		sb.WriteString(fmt.Sprintf(" %6.2f%%", r.PassRate))
		sb.WriteString(t.theme.Muted.Render(fmt.Sprintf("  %d/%d  %s pts", r.Passed, r.Graded, r.Points)))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (t *Terminal) renderLeaderboard(l *pattern.Leaderboard) string {
	if len(l.Items) == 0 {
		return ""
	}
	var sb strings.Builder
	header := l.Label
	if l.TotalCount > len(l.Items) {
		header += fmt.Sprintf(" (%s %d of %d)", l.Direction, len(l.Items), l.TotalCount)
	}
	sb.WriteString(t.theme.Bold.Render(header))
	sb.WriteString("\n")

	nameWidth, metricWidth := 0, 0
	for _, item := range l.Items {
		nameWidth = max(nameWidth, runewidth.StringWidth(item.Name))
		metricWidth = max(metricWidth, runewidth.StringWidth(item.Metric))
	}
	nameWidth = min(nameWidth, maxNameWidth)

	for _, item := range l.Items {
		sb.WriteString("  ")
		if l.ShowRank {
			sb.WriteString(t.theme.Muted.Render(fmt.Sprintf("%2d. ", item.Rank)))
		}
		sb.WriteString(t.theme.Primary.Render(padRight(runewidth.Truncate(item.Name, nameWidth, "..."), nameWidth)))
		sb.WriteString("  ")
		sb.WriteString(t.theme.Warning.Render(padLeft(item.Metric, metricWidth)))
		if item.Context != "" {
			sb.WriteString(t.theme.Muted.Render("  " + item.Context))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (t *Terminal) renderSparkline(s *pattern.Sparkline) string {
	if len(s.Values) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(t.theme.Primary.Render(s.Label + ": "))
	sb.WriteString(t.theme.Success.Render(Spark(s.Values)))
	if s.Legend != "" {
		sb.WriteString(t.theme.Muted.Render("  " + s.Legend))
	}
	sb.WriteString("\n")
	return sb.String()
}

func (t *Terminal) renderComparison(c *pattern.Comparison) string {
	if len(c.Changes) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(t.theme.Bold.Render(c.Label))
	sb.WriteString("\n")
	for _, item := range c.Changes {
		sb.WriteString("  " + item.Label + ": ")
		sb.WriteString(t.theme.Muted.Render(item.Before + " → " + item.After))
		sb.WriteString(" ")

		// Higher scores are good news here.
		var (
			arrow string
			style lipgloss.Style
		)
		switch {
		case item.Change > 0:
			arrow, style = "↑", t.theme.Success
		case item.Change < 0:
			arrow, style = "↓", t.theme.Error
		default:
			arrow, style = "=", t.theme.Muted
		}
		abs := item.Change
		if abs < 0 {
			abs = -abs
		}
		sb.WriteString(style.Render(fmt.Sprintf("%s %.2f%s", arrow, abs, item.Unit)))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (t *Terminal) renderWarnings(w *pattern.Warnings) string {
	if len(w.Items) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(t.theme.Bold.Render(fmt.Sprintf("%s (%d)", w.Label, len(w.Items))))
	sb.WriteString("\n")

	nameWidth := 0
	for _, item := range w.Items {
		nameWidth = max(nameWidth, runewidth.StringWidth(item.Name))
	}
	nameWidth = min(nameWidth, maxNameWidth)

	for _, item := range w.Items {
		sb.WriteString("  ")
		sb.WriteString(t.theme.Error.Render(t.theme.Icons.Fail))
		sb.WriteString(" " + padRight(runewidth.Truncate(item.Name, nameWidth, "..."), nameWidth) + "  ")
		sb.WriteString(t.theme.Muted.Render(item.Message))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (t *Terminal) kindStyle(kind string) (string, lipgloss.Style) {
	switch kind {
	case pattern.KindSuccess:
		return t.theme.Icons.Pass, t.theme.Success
	case pattern.KindError:
		return t.theme.Icons.Fail, t.theme.Error
	case pattern.KindWarning:
		return t.theme.Icons.Mixed, t.theme.Warning
	default:
		return t.theme.Icons.Info, t.theme.Primary
	}
}

func (t *Terminal) statusStyle(status string) (string, lipgloss.Style) {
	switch status {
	case pattern.StatusPass:
		return t.theme.Icons.Pass, t.theme.Success
	case pattern.StatusFail:
		return t.theme.Icons.Fail, t.theme.Error
	case pattern.StatusMixed:
		return t.theme.Icons.Mixed, t.theme.Warning
	default:
		return t.theme.Icons.Info, t.theme.Muted
	}
}

// Spark draws values scaled between their min and max.
func Spark(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo, hi = min(lo, v), max(hi, v)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}
	var sb strings.Builder
	for _, v := range values {
		idx := int((v - lo) / span * float64(len(blocks)-1))
		sb.WriteRune(blocks[max(0, min(idx, len(blocks)-1))])
	}
	return sb.String()
}

// bar draws a fixed-width fill proportional to pct.
func bar(pct float64, width int) string {
	filled := int(pct / 100 * float64(width))
	filled = max(0, min(filled, width))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func padRight(s string, width int) string {
	return runewidth.FillRight(s, width)
}

func padLeft(s string, width int) string {
	return runewidth.FillLeft(s, width)
}
