package report

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoosis/gradefetch/pkg/grading"
	"github.com/dkoosis/gradefetch/pkg/pattern"
)

var now = time.Date(2024, 5, 3, 12, 0, 0, 0, time.UTC)

func defs() []grading.TestDefinition {
	return []grading.TestDefinition{
		{Name: "Test 1", StepID: "t1", MaxScore: 4},
		{Name: "Test 2", StepID: "t2", MaxScore: 6},
		{Name: "Style", StepID: "t3", MaxScore: 0},
	}
}

func scored(name string, t1, t2 float64) grading.StudentResult {
	return grading.StudentResult{
		Identity: grading.StudentIdentity{Username: name},
		Regular: &grading.ExtractedScore{
			PerTest:        map[string]float64{"t1": t1, "t2": t2, "t3": 0},
			TotalAwarded:   t1 + t2,
			TotalAvailable: 10,
			RunTimestamp:   now.Add(-48 * time.Hour),
		},
	}
}

func latestInput() Input {
	results := []grading.StudentResult{
		scored("ann", 4, 6),
		scored("bob", 4, 0),
		{Identity: grading.StudentIdentity{Username: "cy"}, Err: grading.ErrNoCompletedRun.ForStudent("cy")},
		scored("dee", 0, 0),
	}
	return Input{
		Title:       "hw-1",
		Policy:      grading.Latest(),
		Definitions: defs(),
		Results:     results,
		Stats:       grading.ComputeStats(results, 3),
		Now:         now,
	}
}

func TestBuild_OmitsComparison_When_SingleDeadline(t *testing.T) {
	t.Parallel()

	patterns := Build(latestInput())
	require.Len(t, patterns, 5)
	assert.Equal(t, pattern.PatternTypeSummary, patterns[0].Type())
	assert.Equal(t, pattern.PatternTypeTestTable, patterns[1].Type())
	assert.Equal(t, pattern.PatternTypeLeaderboard, patterns[2].Type())
	assert.Equal(t, pattern.PatternTypeSparkline, patterns[3].Type())
	assert.Equal(t, pattern.PatternTypeWarnings, patterns[4].Type())
}

func TestBuild_ListsFailedStudents_When_ResultsHaveErrors(t *testing.T) {
	t.Parallel()

	in := latestInput()
	in.Results = append(in.Results, grading.StudentResult{
		Identity: grading.StudentIdentity{Username: "eve"},
		Err:      grading.NewError(grading.KindFetchFailure, "list runs", errors.New("status 502")).ForStudent("eve"),
	})
	patterns := Build(in)
	w, ok := patterns[len(patterns)-1].(*pattern.Warnings)
	require.True(t, ok)
	assert.Equal(t, []pattern.WarningItem{
		{Name: "cy", Kind: "no completed run", Message: "no completed run"},
		{Name: "eve", Kind: "fetch failure", Message: "fetch failure: list runs: status 502"},
	}, w.Items)
}

func TestBuild_OmitsWarnings_When_EveryStudentSucceeded(t *testing.T) {
	t.Parallel()

	results := []grading.StudentResult{scored("ann", 4, 6)}
	patterns := Build(Input{Title: "hw-1", Policy: grading.Latest(), Definitions: defs(), Results: results, Stats: grading.ComputeStats(results, 3), Now: now})
	for _, p := range patterns {
		assert.NotEqual(t, pattern.PatternTypeWarnings, p.Type())
	}
}

func TestBuild_SummarisesStatsAndErrors(t *testing.T) {
	t.Parallel()

	s := Build(latestInput())[0].(*pattern.Summary)
	assert.Equal(t, "hw-1", s.Label)
	assert.Equal(t, "Latest Run", s.Scope)

	values := map[string]string{}
	for _, m := range s.Metrics {
		values[m.Label] = m.Value
	}
	assert.Equal(t, "4", values["Students"])
	assert.Equal(t, "3", values["Graded"])
	assert.Equal(t, "1 (1 no completed run)", values["Errors"])
	assert.Equal(t, "3 (10 pts)", values["Tests"])
	assert.Equal(t, "46.67%", values["Average"])
	assert.Equal(t, "40.00%", values["Median"])
}

func TestBuild_ComputesPassRatesPerTest(t *testing.T) {
	t.Parallel()

	table := Build(latestInput())[1].(*pattern.TestTable)
	require.Len(t, table.Results, 3)

	t1 := table.Results[0]
	assert.Equal(t, 2, t1.Passed)
	assert.Equal(t, 3, t1.Graded)
	assert.InDelta(t, 66.67, t1.PassRate, 0.01)
	assert.Equal(t, pattern.StatusMixed, t1.Status)

	assert.Equal(t, 1, table.Results[1].Passed)
	assert.Equal(t, pattern.StatusNone, table.Results[2].Status)
}

func TestBuild_RanksLowestScoresFirst(t *testing.T) {
	t.Parallel()

	lb := Build(latestInput())[2].(*pattern.Leaderboard)
	require.Len(t, lb.Items, 3)
	assert.Equal(t, 3, lb.TotalCount)
	assert.Equal(t, "dee", lb.Items[0].Name)
	assert.Equal(t, "0.00%", lb.Items[0].Metric)
	assert.Equal(t, "run 2 days ago", lb.Items[0].Context)
	assert.Equal(t, "bob", lb.Items[1].Name)
	assert.Equal(t, 3, lb.Items[2].Rank)
}

func TestHistogram_PutsPerfectScoresInLastBucket(t *testing.T) {
	t.Parallel()

	got := Histogram(latestInput().Results)
	assert.Equal(t, []float64{1, 0, 0, 0, 1, 0, 0, 0, 0, 1}, got)
}

func TestBuild_ComparesOnTimeLateAndFinal_When_LateGrading(t *testing.T) {
	t.Parallel()

	policy, err := grading.LateGrading(now.Add(-72*time.Hour), now.Add(-24*time.Hour), 0.2)
	require.NoError(t, err)
	onTime := scored("ann", 4, 0).Regular
	late := scored("ann", 4, 6).Regular
	final := grading.Combine(*onTime, *late, 0.2)
	results := []grading.StudentResult{{
		Identity: grading.StudentIdentity{Username: "ann"},
		OnTime:   onTime,
		Late:     late,
		Final:    &final,
	}}

	patterns := Build(Input{
		Title:       "hw-1",
		Policy:      policy,
		Definitions: defs(),
		Results:     results,
		Stats:       grading.ComputeStats(results, 3),
		Now:         now,
	})
	require.Len(t, patterns, 5)
	assert.Contains(t, patterns[0].(*pattern.Summary).Scope, "Late Grading")
	assert.Contains(t, patterns[0].(*pattern.Summary).Scope, "20.00% penalty")

	c := patterns[4].(*pattern.Comparison)
	require.Len(t, c.Changes, 2)
	assert.Equal(t, "40.00%", c.Changes[0].Before)
	assert.Equal(t, "100.00%", c.Changes[0].After)
	assert.Equal(t, "88.00%", c.Changes[1].After)
	assert.InDelta(t, 48, c.Changes[1].Change, 1e-9)
}

func TestModeLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "First Run After Deadline", ModeLabel(grading.AfterDeadline(now)))
}
