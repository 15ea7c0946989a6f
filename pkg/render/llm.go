package render

import (
	"fmt"
	"strings"

	"github.com/dkoosis/gradefetch/pkg/pattern"
)

// LLM renders patterns as terse plain text for pasting into chat tools or
// grading notes. No ANSI codes; one fact per line.
type LLM struct{}

// NewLLM creates an LLM renderer.
func NewLLM() *LLM {
	return &LLM{}
}

// Render formats all patterns as plain text.
func (l *LLM) Render(patterns []pattern.Pattern) string {
	var sb strings.Builder
	for _, p := range patterns {
		switch v := p.(type) {
		case *pattern.Summary:
			sb.WriteString("SCOPE: " + v.Label)
			if v.Scope != "" {
				sb.WriteString(" (" + v.Scope + ")")
			}
			sb.WriteString("\n")
			for _, m := range v.Metrics {
				sb.WriteString("  " + m.Label + ": " + m.Value + "\n")
			}
		case *pattern.TestTable:
			sb.WriteString("\n" + v.Label + "\n")
			for _, r := range v.Results {
				sb.WriteString(fmt.Sprintf("  %s %s %.2f%% (%d/%d, %s pts)\n",
					strings.ToUpper(r.Status), r.Name, r.PassRate, r.Passed, r.Graded, r.Points))
			}
		case *pattern.Leaderboard:
			if len(v.Items) == 0 {
				continue
			}
			sb.WriteString("\n" + v.Label + "\n")
			for _, item := range v.Items {
				line := fmt.Sprintf("  %d. %s %s", item.Rank, item.Name, item.Metric)
				if item.Context != "" {
					line += " [" + item.Context + "]"
				}
				sb.WriteString(line + "\n")
			}
		case *pattern.Sparkline:
			vals := make([]string, len(v.Values))
			for i, x := range v.Values {
				vals[i] = fmt.Sprintf("%g", x)
			}
			sb.WriteString("\n" + v.Label + ": " + strings.Join(vals, " "))
			if v.Legend != "" {
				sb.WriteString(" (" + v.Legend + ")")
			}
			sb.WriteString("\n")
		case *pattern.Comparison:
			sb.WriteString("\n" + v.Label + "\n")
			for _, c := range v.Changes {
				sb.WriteString(fmt.Sprintf("  %s: %s -> %s (%+.2f%s)\n", c.Label, c.Before, c.After, c.Change, c.Unit))
			}
		case *pattern.Warnings:
			if len(v.Items) == 0 {
				continue
			}
			sb.WriteString(fmt.Sprintf("\n%s (%d)\n", v.Label, len(v.Items)))
			for _, item := range v.Items {
				sb.WriteString("  WARN " + item.Name + ": " + item.Message + "\n")
			}
		}
	}
	return sb.String()
}
