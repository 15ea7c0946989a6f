package grading

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(clock string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", "2024-03-01 "+clock)
	if err != nil {
		panic(err)
	}
	return t
}

func sampleDefs() []TestDefinition {
	return []TestDefinition{
		{Name: "test_1", StepID: "test-1", TestName: "test_1", MaxScore: 5},
		{Name: "test_2", StepID: "test-2", TestName: "test_2", MaxScore: 10},
		{Name: "test_3", StepID: "test-3", TestName: "test_3", MaxScore: 2.5},
	}
}

func TestSelect_ReturnsFirstRunStrictlyAfterDeadline_When_RunsStraddleDeadline(t *testing.T) {
	t.Parallel()

	history := []WorkflowRun{
		{ID: 1, Timestamp: at("10:00"), Status: ConclusionSuccess},
		{ID: 2, Timestamp: at("10:05"), Status: ConclusionSuccess},
		{ID: 3, Timestamp: at("10:15"), Status: ConclusionSuccess},
	}

	sel := Select(history, AfterDeadline(at("10:05")))
	require.NoError(t, sel.Err())
	require.NotNil(t, sel.Primary)
	assert.Equal(t, int64(3), sel.Primary.ID)
}

func TestSelect_IgnoresInputOrder_When_HistoryUnsorted(t *testing.T) {
	t.Parallel()

	history := []WorkflowRun{
		{ID: 9, Timestamp: at("12:00"), Status: ConclusionSuccess},
		{ID: 7, Timestamp: at("10:30"), Status: ConclusionFailure},
		{ID: 8, Timestamp: at("11:00"), Status: ConclusionSuccess},
	}

	sel := Select(history, AfterDeadline(at("10:00")))
	require.NotNil(t, sel.Primary)
	assert.Equal(t, int64(7), sel.Primary.ID)

	sel = Select(history, Latest())
	require.NotNil(t, sel.Primary)
	assert.Equal(t, int64(9), sel.Primary.ID)
}

func TestSelect_FailsWithNoRunAfterDeadline_When_AllRunsEarlier(t *testing.T) {
	t.Parallel()

	history := []WorkflowRun{{ID: 1, Timestamp: at("09:00"), Status: ConclusionSuccess}}

	sel := Select(history, AfterDeadline(at("09:00")))
	assert.Nil(t, sel.Primary)
	assert.ErrorIs(t, sel.Err(), ErrNoRunAfterDeadline)
}

func TestSelect_SkipsUnconcludedRuns_When_PolicyIsLatest(t *testing.T) {
	t.Parallel()

	history := []WorkflowRun{
		{ID: 1, Timestamp: at("09:00"), Status: ConclusionFailure},
		{ID: 2, Timestamp: at("11:00"), Status: ConclusionUnknown},
	}

	sel := Select(history, Latest())
	require.NotNil(t, sel.Primary)
	assert.Equal(t, int64(1), sel.Primary.ID)

	sel = Select(history[1:], Latest())
	assert.ErrorIs(t, sel.Err(), ErrNoCompletedRun)
	assert.ErrorIs(t, Select(nil, Latest()).Err(), ErrNoCompletedRun)
}

func TestSelect_FailsBranchesIndependently_When_PolicyIsLateGrading(t *testing.T) {
	t.Parallel()

	policy, err := LateGrading(at("10:00"), at("12:00"), 0.2)
	require.NoError(t, err)

	history := []WorkflowRun{
		{ID: 1, Timestamp: at("10:30"), Status: ConclusionSuccess},
		{ID: 2, Timestamp: at("11:00"), Status: ConclusionSuccess},
	}
	sel := Select(history, policy)
	require.NotNil(t, sel.Primary)
	assert.Equal(t, int64(1), sel.Primary.ID)
	assert.NoError(t, sel.PrimaryErr)
	assert.Nil(t, sel.Late)
	assert.ErrorIs(t, sel.LateErr, ErrNoRunAfterDeadline)

	history = append(history, WorkflowRun{ID: 3, Timestamp: at("12:01"), Status: ConclusionSuccess})
	sel = Select(history, policy)
	require.NoError(t, sel.Err())
	assert.Equal(t, int64(3), sel.Late.ID)
}

func TestExtract_AwardsMaxScoreOnlyForSuccess_When_StepsHaveMixedConclusions(t *testing.T) {
	t.Parallel()

	run := WorkflowRun{
		Timestamp: at("10:00"),
		Steps: []JobStep{
			{StepID: "checkout", Conclusion: ConclusionSuccess},
			{StepID: "test-1", Conclusion: ConclusionSuccess},
			{StepID: "test-2", Conclusion: ConclusionFailure},
			{StepID: "test-3", Conclusion: ConclusionSkipped},
		},
	}

	score := Extract(run, sampleDefs())
	assert.Equal(t, map[string]float64{"test-1": 5, "test-2": 0, "test-3": 0}, score.PerTest)
	assert.InDelta(t, 5, score.TotalAwarded, 1e-9)
	assert.InDelta(t, 17.5, score.TotalAvailable, 1e-9)
	assert.Equal(t, at("10:00"), score.RunTimestamp)
}

func TestExtract_TotalAvailableIsSumOfMaxScores_When_StepsMissing(t *testing.T) {
	t.Parallel()

	runs := []WorkflowRun{
		{},
		{Steps: []JobStep{{StepID: "test-2", Conclusion: ConclusionSuccess}}},
		{Steps: []JobStep{{StepID: "other", Conclusion: ConclusionSuccess}}},
	}
	idx := NewStepIndex(sampleDefs())
	for _, run := range runs {
		score := idx.Extract(run)
		assert.InDelta(t, 17.5, score.TotalAvailable, 1e-9)
		assert.Len(t, score.PerTest, 3)
	}
	assert.InDelta(t, 0, idx.Extract(runs[0]).TotalAwarded, 1e-9)
	assert.InDelta(t, 10, idx.Extract(runs[1]).TotalAwarded, 1e-9)
}

func TestExtract_FirstStepWins_When_StepIDsRepeat(t *testing.T) {
	t.Parallel()

	run := WorkflowRun{Steps: []JobStep{
		{StepID: "test-1", Conclusion: ConclusionFailure},
		{StepID: "test-1", Conclusion: ConclusionSuccess},
	}}
	score := Extract(run, sampleDefs()[:1])
	assert.InDelta(t, 0, score.TotalAwarded, 1e-9)
}

func TestStepIndex_ResolvesDisplayNames(t *testing.T) {
	t.Parallel()

	idx := NewStepIndex(sampleDefs())
	id, ok := idx.StepIDForName("test_2")
	assert.True(t, ok)
	assert.Equal(t, "test-2", id)
	_, ok = idx.StepIDForName("Checkout code")
	assert.False(t, ok)
}

func TestCombine_AppliesPenaltyToImprovement(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		onTime  float64
		late    float64
		penalty float64
		want    float64
	}{
		{name: "improvement", onTime: 70, late: 85, penalty: 0.2, want: 82},
		{name: "regression clamps", onTime: 70, late: 50, penalty: 0.2, want: 70},
		{name: "no penalty", onTime: 40, late: 90, penalty: 0, want: 90},
		{name: "full penalty", onTime: 40, late: 90, penalty: 1, want: 40},
		{name: "unchanged", onTime: 60, late: 60, penalty: 0.5, want: 60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			onTime := ExtractedScore{PerTest: map[string]float64{}, TotalAwarded: tt.onTime, TotalAvailable: 100}
			late := ExtractedScore{PerTest: map[string]float64{}, TotalAwarded: tt.late, TotalAvailable: 100}
			final := Combine(onTime, late, tt.penalty)
			assert.InDelta(t, tt.want, final.FinalPoints, 1e-9)
			assert.InDelta(t, tt.want, final.FinalPercentage, 1e-9)
			assert.GreaterOrEqual(t, final.FinalPoints, tt.onTime)
		})
	}
}

func TestCombine_FinalPointsMonotonicInLatePoints(t *testing.T) {
	t.Parallel()

	onTime := ExtractedScore{PerTest: map[string]float64{}, TotalAwarded: 30, TotalAvailable: 50}
	prev := -1.0
	for late := 0.0; late <= 50; late += 0.5 {
		final := Combine(onTime, ExtractedScore{TotalAwarded: late, TotalAvailable: 50}, 0.35)
		assert.GreaterOrEqual(t, final.FinalPoints, prev)
		if late <= 30 {
			assert.InDelta(t, 30, final.FinalPoints, 1e-9)
		}
		prev = final.FinalPoints
	}
}

func TestCombine_CombinesPerTest(t *testing.T) {
	t.Parallel()

	onTime := ExtractedScore{
		PerTest:        map[string]float64{"a": 5, "b": 0, "c": 10},
		TotalAwarded:   15,
		TotalAvailable: 25,
	}
	late := ExtractedScore{
		PerTest:        map[string]float64{"a": 0, "b": 10, "c": 10},
		TotalAwarded:   20,
		TotalAvailable: 25,
	}
	final := Combine(onTime, late, 0.5)
	assert.Equal(t, map[string]float64{"a": 5, "b": 5, "c": 10}, final.PerTest)
	assert.InDelta(t, 17.5, final.FinalPoints, 1e-9)
	assert.InDelta(t, 70, final.FinalPercentage, 1e-9)
}

func TestCombine_ZeroPercentage_When_NothingAvailable(t *testing.T) {
	t.Parallel()

	final := Combine(ExtractedScore{}, ExtractedScore{}, 0.1)
	assert.Zero(t, final.FinalPercentage)
}

func TestLateGrading_RejectsInvalidArguments(t *testing.T) {
	t.Parallel()

	_, err := LateGrading(at("10:00"), at("12:00"), 1.5)
	assert.Error(t, err)
	_, err = LateGrading(at("12:00"), at("10:00"), 0.1)
	assert.Error(t, err)
}

func TestParseDeadline_AcceptsSecondAndMinutePrecision(t *testing.T) {
	t.Parallel()

	want := time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC)
	for _, in := range []string{"2024-03-01 23:59", "2024-03-01 23:59:00", "2024-03-01T23:59:00Z", "2024-03-01T23:59"} {
		got, err := ParseDeadline(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), in)
	}

	_, err := ParseDeadline("03/01/2024")
	assert.Error(t, err)

	got, err := ParseDeadlineParts("2024-03-01", "23:59:00")
	require.NoError(t, err)
	assert.True(t, want.Equal(got))
	_, err = ParseDeadlineParts("2024-3-1", "23:59")
	assert.Error(t, err)
}

func TestParsePenalty_ConvertsPercentToFraction(t *testing.T) {
	t.Parallel()

	p, err := ParsePenalty("20")
	require.NoError(t, err)
	assert.InDelta(t, 0.2, p, 1e-9)

	p, err = ParsePenalty("12.5%")
	require.NoError(t, err)
	assert.InDelta(t, 0.125, p, 1e-9)

	_, err = ParsePenalty("101")
	assert.Error(t, err)
	_, err = ParsePenalty("-1")
	assert.Error(t, err)
	_, err = ParsePenalty("lots")
	assert.Error(t, err)
}

func TestError_MatchesSentinelByKind(t *testing.T) {
	t.Parallel()

	err := NewError(KindFetchFailure, "list runs", errors.New("boom")).ForStudent("alice")
	assert.ErrorIs(t, err, ErrFetchFailure)
	assert.NotErrorIs(t, err, ErrNoCompletedRun)
	assert.Equal(t, KindFetchFailure, KindOf(err))
	assert.Equal(t, "alice: fetch failure: list runs: boom", err.Error())
	assert.True(t, KindMalformedWorkflow.Fatal())
	assert.False(t, KindFetchFailure.Fatal())
}

func TestComputeStats_ExcludesErroredStudentsFromAverages(t *testing.T) {
	t.Parallel()

	results := []StudentResult{
		{Regular: &ExtractedScore{TotalAwarded: 10, TotalAvailable: 20}},
		{Regular: &ExtractedScore{TotalAwarded: 20, TotalAvailable: 20}},
		{Err: ErrFetchFailure},
		{Final: &FinalScore{FinalPercentage: 80}},
	}
	stats := ComputeStats(results, 3)
	assert.Equal(t, 4, stats.TotalStudents)
	assert.Equal(t, 3, stats.TotalTests)
	assert.Equal(t, 3, stats.StudentsProcessed)
	assert.Equal(t, 1, stats.Errors)
	assert.InDelta(t, (50.0+100+80)/3, stats.AverageScore, 1e-9)
	assert.InDelta(t, 80, stats.MedianScore, 1e-9)

	empty := ComputeStats(nil, 0)
	assert.Zero(t, empty.AverageScore)
	assert.Zero(t, empty.MedianScore)
}

func TestParseConclusion(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ConclusionSuccess, ParseConclusion("success"))
	assert.Equal(t, ConclusionFailure, ParseConclusion("timed_out"))
	assert.Equal(t, ConclusionSkipped, ParseConclusion("skipped"))
	assert.Equal(t, ConclusionCancelled, ParseConclusion("cancelled"))
	assert.Equal(t, ConclusionUnknown, ParseConclusion(""))
	assert.Equal(t, ConclusionUnknown, ParseConclusion("weird"))
}
