package grading

import "time"

// Selection is the outcome of run selection for one student. Under single
// deadline policies only Primary/PrimaryErr are set. Under late grading
// Primary is the on-time branch and Late the late branch; each fails
// independently.
type Selection struct {
	Primary    *WorkflowRun
	PrimaryErr error
	Late       *WorkflowRun
	LateErr    error
}

// Err returns the first branch error, if any.
func (s Selection) Err() error {
	if s.PrimaryErr != nil {
		return s.PrimaryErr
	}
	return s.LateErr
}

// Select picks the run(s) the policy grades. history need not be sorted.
func Select(history []WorkflowRun, policy DeadlinePolicy) Selection {
	switch policy.Mode {
	case ModeAfterDeadline:
		run, err := firstAfter(history, policy.Deadline)
		return Selection{Primary: run, PrimaryErr: err}
	case ModeLateGrading:
		onTime, onTimeErr := firstAfter(history, policy.Deadline)
		late, lateErr := firstAfter(history, policy.Late)
		return Selection{Primary: onTime, PrimaryErr: onTimeErr, Late: late, LateErr: lateErr}
	default:
		run, err := latestCompleted(history)
		return Selection{Primary: run, PrimaryErr: err}
	}
}

func latestCompleted(history []WorkflowRun) (*WorkflowRun, error) {
	var best *WorkflowRun
	for i := range history {
		run := &history[i]
		if run.Status == ConclusionUnknown {
			continue
		}
		if best == nil || run.Timestamp.After(best.Timestamp) {
			best = run
		}
	}
	if best == nil {
		return nil, ErrNoCompletedRun
	}
	return best, nil
}

// firstAfter returns the earliest run strictly after d.
func firstAfter(history []WorkflowRun, d time.Time) (*WorkflowRun, error) {
	var best *WorkflowRun
	for i := range history {
		run := &history[i]
		if !run.Timestamp.After(d) {
			continue
		}
		if best == nil || run.Timestamp.Before(best.Timestamp) {
			best = run
		}
	}
	if best == nil {
		return nil, NewError(KindNoRunAfterDeadline, "after "+d.UTC().Format(time.RFC3339), nil)
	}
	return best, nil
}
