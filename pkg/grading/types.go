// Package grading reconciles autograder step outcomes against weighted test
// definitions: run selection under a deadline policy, score extraction and
// late-grading partial credit.
package grading

import (
	"strings"
	"time"
)

// Conclusion is the outcome of a CI step or run.
type Conclusion string

const (
	ConclusionSuccess   Conclusion = "success"
	ConclusionFailure   Conclusion = "failure"
	ConclusionSkipped   Conclusion = "skipped"
	ConclusionCancelled Conclusion = "cancelled"
	ConclusionUnknown   Conclusion = "unknown"
)

// ParseConclusion maps a provider conclusion string onto a Conclusion.
// Anything unrecognised (including "" for a run still in progress) is unknown.
func ParseConclusion(s string) Conclusion {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "success":
		return ConclusionSuccess
	case "failure", "timed_out", "action_required":
		return ConclusionFailure
	case "skipped", "neutral":
		return ConclusionSkipped
	case "cancelled", "stale":
		return ConclusionCancelled
	default:
		return ConclusionUnknown
	}
}

// TestDefinition is one graded test declared in the workflow.
type TestDefinition struct {
	Name     string  // step display name; used as the export column
	StepID   string  // unique step id
	TestName string  // with.test-name
	MaxScore float64 // with.max-score, never negative
}

// JobStep is one step of the grading job in a run.
type JobStep struct {
	StepID     string
	Conclusion Conclusion
}

// WorkflowRun is one CI execution for a student's repository.
// Steps is nil until the run's job steps have been fetched.
type WorkflowRun struct {
	ID        int64
	Timestamp time.Time
	Status    Conclusion
	Steps     []JobStep
}

// StudentIdentity identifies one student submission.
type StudentIdentity struct {
	Username     string
	RepoURL      string
	RepoFullName string // owner/name
}

// ExtractedScore is the per-test scoring of a single run.
type ExtractedScore struct {
	PerTest        map[string]float64 // keyed by step id
	TotalAwarded   float64
	TotalAvailable float64
	RunTimestamp   time.Time
}

// Percentage returns TotalAwarded as a percentage of TotalAvailable.
func (s ExtractedScore) Percentage() float64 {
	return percentage(s.TotalAwarded, s.TotalAvailable)
}

// FinalScore is the late-grading combination of on-time and late scores.
type FinalScore struct {
	PerTest         map[string]float64
	TotalAvailable  float64
	FinalPoints     float64
	FinalPercentage float64
}

// StudentResult is the outcome of processing one student. Regular is set
// under single-deadline policies; OnTime, Late and Final under late grading.
// Err is non-nil when any stage failed; scores computed before the failure
// are kept.
type StudentResult struct {
	Identity StudentIdentity
	Regular  *ExtractedScore
	OnTime   *ExtractedScore
	Late     *ExtractedScore
	Final    *FinalScore
	Err      error
}

// OK reports whether the student was scored without error.
func (r StudentResult) OK() bool { return r.Err == nil }

// Percentage returns the student's headline percentage and whether one exists.
func (r StudentResult) Percentage() (float64, bool) {
	if r.Err != nil {
		return 0, false
	}
	switch {
	case r.Final != nil:
		return r.Final.FinalPercentage, true
	case r.Regular != nil:
		return r.Regular.Percentage(), true
	default:
		return 0, false
	}
}

func percentage(awarded, available float64) float64 {
	if available <= 0 {
		return 0
	}
	return 100 * awarded / available
}
