package render

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoosis/gradefetch/pkg/pattern"
)

func samplePatterns() []pattern.Pattern {
	return []pattern.Pattern{
		&pattern.Summary{
			Label: "hw-1",
			Scope: "latest run, 3 students",
			Metrics: []pattern.SummaryItem{
				{Label: "Average", Value: "70.00%", Kind: pattern.KindInfo},
				{Label: "Errors", Value: "1", Kind: pattern.KindError},
			},
		},
		&pattern.TestTable{
			Label: "Tests",
			Results: []pattern.TestTableItem{
				{Name: "Test 1", Status: pattern.StatusPass, Passed: 2, Graded: 2, PassRate: 100, Points: "4"},
				{Name: "Test 2", Status: pattern.StatusMixed, Passed: 1, Graded: 2, PassRate: 50, Points: "6"},
			},
		},
		&pattern.Leaderboard{
			Label:      "Lowest scores",
			Direction:  "lowest",
			ShowRank:   true,
			TotalCount: 2,
			Items:      []pattern.LeaderboardItem{{Name: "cy", Metric: "40.00%", Value: 40, Rank: 1, Context: "2 days ago"}},
		},
		&pattern.Sparkline{Label: "Distribution", Values: []float64{0, 0, 0, 0, 1, 0, 0, 0, 0, 1}, Legend: "0% .. 100%"},
		&pattern.Comparison{
			Label:   "Late grading",
			Changes: []pattern.ComparisonItem{{Label: "Mean", Before: "60.00%", After: "68.00%", Change: 8, Unit: "%"}},
		},
		&pattern.Warnings{
			Label: "Warnings",
			Items: []pattern.WarningItem{{Name: "bob", Kind: "no completed run", Message: "no completed run"}},
		},
	}
}

func TestTerminal_RendersEverySection_When_MonoTheme(t *testing.T) {
	t.Parallel()

	out := NewTerminal(MonoTheme(), 80).Render(samplePatterns())
	for _, want := range []string{"hw-1", "Average", "70.00%", "+ Test 1", "~ Test 2", "1/2", " 1. cy", "2 days ago", "Distribution: ▁▁▁▁█▁▁▁▁█", "60.00% → 68.00%", "↑ 8.00%", "Warnings (1)", "x bob  no completed run"} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "\x1b[")
}

func TestTerminal_AlignsWideNames(t *testing.T) {
	t.Parallel()

	out := NewTerminal(MonoTheme(), 80).Render([]pattern.Pattern{&pattern.Leaderboard{
		Label: "Lowest scores",
		Items: []pattern.LeaderboardItem{{Name: "山田", Metric: "1%", Rank: 1}, {Name: "abcd", Metric: "10%", Rank: 2}},
	}})
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, runewidth.StringWidth(lines[1]), runewidth.StringWidth(lines[2]))
}

func TestLLM_RendersPlainLines(t *testing.T) {
	t.Parallel()

	out := NewLLM().Render(samplePatterns())
	assert.True(t, strings.HasPrefix(out, "SCOPE: hw-1 (latest run, 3 students)\n"))
	assert.Contains(t, out, "  MIXED Test 2 50.00% (1/2, 6 pts)\n")
	assert.Contains(t, out, "  1. cy 40.00% [2 days ago]\n")
	assert.Contains(t, out, "Distribution: 0 0 0 0 1 0 0 0 0 1 (0% .. 100%)\n")
	assert.Contains(t, out, "  Mean: 60.00% -> 68.00% (+8.00%)\n")
	assert.Contains(t, out, "\nWarnings (1)\n  WARN bob: no completed run\n")
	assert.NotContains(t, out, "\x1b[")
}

func TestJSON_WrapsPatternsWithType(t *testing.T) {
	t.Parallel()

	var decoded struct {
		Version  string `json:"version"`
		Patterns []struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		} `json:"patterns"`
	}
	require.NoError(t, json.Unmarshal([]byte(NewJSON().Render(samplePatterns())), &decoded))
	require.Len(t, decoded.Patterns, 6)
	assert.Equal(t, "summary", decoded.Patterns[0].Type)
	assert.Equal(t, "test-table", decoded.Patterns[1].Type)
	assert.Contains(t, string(decoded.Patterns[1].Data), `"pass_rate": 50`)
	assert.Equal(t, "warnings", decoded.Patterns[5].Type)
	assert.Contains(t, string(decoded.Patterns[5].Data), `"name": "bob"`)
}

func TestByName_RejectsUnknownFormat(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"terminal", "llm", "json"} {
		r, err := ByName(name, MonoTheme(), 0)
		require.NoError(t, err)
		assert.NotNil(t, r)
	}
	_, err := ByName("html", MonoTheme(), 0)
	assert.Error(t, err)
}

func TestSpark_ScalesBetweenMinAndMax(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "▁█", Spark([]float64{1, 5}))
	assert.Equal(t, "▁▁▁", Spark([]float64{3, 3, 3}))
	assert.Equal(t, "", Spark(nil))
}
