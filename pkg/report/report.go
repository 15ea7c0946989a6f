// Package report turns grading results into summary patterns.
package report

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/dkoosis/gradefetch/pkg/export"
	"github.com/dkoosis/gradefetch/pkg/grading"
	"github.com/dkoosis/gradefetch/pkg/pattern"
)

// LeaderboardSize is how many low scorers are listed.
const LeaderboardSize = 5

const buckets = 10

// Input is one finished fetch.
type Input struct {
	Title       string
	Policy      grading.DeadlinePolicy
	Definitions []grading.TestDefinition
	Results     []grading.StudentResult
	Stats       grading.Stats
	Now         time.Time
}

// Build returns the summary patterns for in. The comparison pattern is
// included only under late grading, the warnings pattern only when some
// student failed.
func Build(in Input) []pattern.Pattern {
	if in.Now.IsZero() {
		in.Now = time.Now()
	}
	patterns := []pattern.Pattern{
		summary(in),
		testTable(in),
		leaderboard(in),
		distribution(in),
	}
	if in.Policy.Mode == grading.ModeLateGrading {
		patterns = append(patterns, comparison(in))
	}
	if w := warnings(in); len(w.Items) > 0 {
		patterns = append(patterns, w)
	}
	return patterns
}

// ModeLabel describes a policy for humans, e.g. "Late Grading".
func ModeLabel(p grading.DeadlinePolicy) string {
	var s string
	switch p.Mode {
	case grading.ModeAfterDeadline:
		s = "first run after deadline"
	case grading.ModeLateGrading:
		s = "late grading"
	default:
		s = "latest run"
	}
	return cases.Title(language.English).String(s)
}

func summary(in Input) *pattern.Summary {
	st := in.Stats
	errKind := pattern.KindSuccess
	if st.Errors > 0 {
		errKind = pattern.KindError
	}
	var available float64
	for _, d := range in.Definitions {
		available += d.MaxScore
	}

	metrics := []pattern.SummaryItem{
		{Label: "Students", Value: humanize.Comma(int64(st.TotalStudents)), Kind: pattern.KindInfo},
		{Label: "Graded", Value: humanize.Comma(int64(st.StudentsProcessed)), Kind: pattern.KindSuccess},
		{Label: "Errors", Value: errorBreakdown(in.Results, st.Errors), Kind: errKind},
		{Label: "Tests", Value: fmt.Sprintf("%d (%s pts)", st.TotalTests, export.FormatPoints(available)), Kind: pattern.KindInfo},
	}
	if st.StudentsProcessed > 0 {
		metrics = append(metrics,
			pattern.SummaryItem{Label: "Average", Value: percent(st.AverageScore), Kind: scoreKind(st.AverageScore)},
			pattern.SummaryItem{Label: "Median", Value: percent(st.MedianScore), Kind: scoreKind(st.MedianScore)},
		)
	}

	scope := ModeLabel(in.Policy)
	switch in.Policy.Mode {
	case grading.ModeAfterDeadline:
		scope += " " + in.Policy.Deadline.UTC().Format(time.RFC3339)
	case grading.ModeLateGrading:
		scope += fmt.Sprintf(" %s / %s, %s penalty",
			in.Policy.Deadline.UTC().Format(time.RFC3339),
			in.Policy.Late.UTC().Format(time.RFC3339),
			percent(in.Policy.Penalty*100))
	}
	return &pattern.Summary{Label: in.Title, Scope: scope, Metrics: metrics}
}

func errorBreakdown(results []grading.StudentResult, total int) string {
	if total == 0 {
		return "0"
	}
	counts := map[string]int{}
	for _, r := range results {
		if r.Err != nil {
			counts[grading.KindOf(r.Err).String()]++
		}
	}
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = fmt.Sprintf("%d %s", counts[k], k)
	}
	return fmt.Sprintf("%d (%s)", total, strings.Join(parts, ", "))
}

// warnings lists every failed student in roster order.
func warnings(in Input) *pattern.Warnings {
	w := &pattern.Warnings{Label: "Warnings"}
	for _, r := range in.Results {
		if r.Err == nil {
			continue
		}
		w.Items = append(w.Items, pattern.WarningItem{
			Name:    r.Identity.Username,
			Kind:    grading.KindOf(r.Err).String(),
			Message: reason(r.Err),
		})
	}
	return w
}

// reason drops the student prefix that per-student errors carry.
func reason(err error) string {
	var e *grading.Error
	if errors.As(err, &e) && e.Student != "" {
		c := *e
		c.Student = ""
		return c.Error()
	}
	return err.Error()
}

func testTable(in Input) *pattern.TestTable {
	items := make([]pattern.TestTableItem, 0, len(in.Definitions))
	for _, d := range in.Definitions {
		item := pattern.TestTableItem{Name: d.Name, Points: export.FormatPoints(d.MaxScore)}
		if d.MaxScore > 0 {
			for _, r := range in.Results {
				perTest, ok := perTestScores(r)
				if !ok {
					continue
				}
				item.Graded++
				if perTest[d.StepID] >= d.MaxScore {
					item.Passed++
				}
			}
		}
		item.Status = pattern.StatusNone
		if item.Graded > 0 {
			item.PassRate = float64(item.Passed) / float64(item.Graded) * 100
			switch item.Passed {
			case item.Graded:
				item.Status = pattern.StatusPass
			case 0:
				item.Status = pattern.StatusFail
			default:
				item.Status = pattern.StatusMixed
			}
		}
		items = append(items, item)
	}
	return &pattern.TestTable{Label: "Tests", Results: items}
}

func perTestScores(r grading.StudentResult) (map[string]float64, bool) {
	switch {
	case !r.OK():
		return nil, false
	case r.Final != nil:
		return r.Final.PerTest, true
	case r.Regular != nil:
		return r.Regular.PerTest, true
	default:
		return nil, false
	}
}

func leaderboard(in Input) *pattern.Leaderboard {
	type entry struct {
		name string
		pct  float64
		at   time.Time
	}
	var entries []entry
	for _, r := range in.Results {
		pct, ok := r.Percentage()
		if !ok {
			continue
		}
		e := entry{name: r.Identity.Username, pct: pct}
		switch {
		case r.Late != nil:
			e.at = r.Late.RunTimestamp
		case r.Regular != nil:
			e.at = r.Regular.RunTimestamp
		}
		entries = append(entries, e)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].pct != entries[j].pct {
			return entries[i].pct < entries[j].pct
		}
		return entries[i].name < entries[j].name
	})

	lb := &pattern.Leaderboard{
		Label:      "Lowest scores",
		MetricName: "Percentage",
		Direction:  "lowest",
		TotalCount: len(entries),
		ShowRank:   true,
	}
	for i, e := range entries[:min(len(entries), LeaderboardSize)] {
		item := pattern.LeaderboardItem{Name: e.name, Metric: percent(e.pct), Value: e.pct, Rank: i + 1}
		if !e.at.IsZero() {
			item.Context = "run " + humanize.RelTime(e.at, in.Now, "ago", "from now")
		}
		lb.Items = append(lb.Items, item)
	}
	return lb
}

// Histogram counts percentages into ten buckets; 100% lands in the last.
func Histogram(results []grading.StudentResult) []float64 {
	counts := make([]float64, buckets)
	for _, r := range results {
		pct, ok := r.Percentage()
		if !ok {
			continue
		}
		idx := int(pct / (100 / buckets))
		counts[max(0, min(idx, buckets-1))]++
	}
	return counts
}

func distribution(in Input) *pattern.Sparkline {
	return &pattern.Sparkline{Label: "Distribution", Values: Histogram(in.Results), Legend: "0% .. 100% in 10% steps"}
}

func comparison(in Input) *pattern.Comparison {
	var onTime, late, final float64
	n := 0
	for _, r := range in.Results {
		if r.Final == nil || r.OnTime == nil || r.Late == nil {
			continue
		}
		onTime += r.OnTime.Percentage()
		late += r.Late.Percentage()
		final += r.Final.FinalPercentage
		n++
	}
	c := &pattern.Comparison{Label: fmt.Sprintf("Late grading (%d students)", n)}
	if n == 0 {
		return c
	}
	onTime, late, final = onTime/float64(n), late/float64(n), final/float64(n)
	c.Changes = []pattern.ComparisonItem{
		{Label: "Mean without penalty", Before: percent(onTime), After: percent(late), Change: late - onTime, Unit: "%"},
		{Label: "Mean final", Before: percent(onTime), After: percent(final), Change: final - onTime, Unit: "%"},
	}
	return c
}

func percent(v float64) string {
	return export.FormatPercentage(v) + "%"
}

func scoreKind(pct float64) string {
	switch {
	case pct >= 80:
		return pattern.KindSuccess
	case pct >= 50:
		return pattern.KindWarning
	default:
		return pattern.KindError
	}
}
