package grading

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Mode tags the active deadline policy.
type Mode int

const (
	ModeLatest Mode = iota
	ModeAfterDeadline
	ModeLateGrading
)

func (m Mode) String() string {
	switch m {
	case ModeLatest:
		return "latest"
	case ModeAfterDeadline:
		return "deadline"
	case ModeLateGrading:
		return "late"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode accepts the CLI spellings of a mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "latest":
		return ModeLatest, nil
	case "deadline", "after-deadline":
		return ModeAfterDeadline, nil
	case "late", "late-grading":
		return ModeLateGrading, nil
	default:
		return 0, fmt.Errorf("unknown mode %q (expected latest, deadline, late)", s)
	}
}

// DeadlinePolicy decides which run(s) are graded. Only the fields of the
// active Mode are meaningful. Build one with Latest, AfterDeadline or
// LateGrading.
type DeadlinePolicy struct {
	Mode     Mode
	Deadline time.Time // AfterDeadline; on-time deadline under LateGrading
	Late     time.Time // LateGrading only
	Penalty  float64   // LateGrading only, fraction in [0,1]
}

// Latest grades each student's most recent completed run.
func Latest() DeadlinePolicy {
	return DeadlinePolicy{Mode: ModeLatest}
}

// AfterDeadline grades the first run strictly after d.
func AfterDeadline(d time.Time) DeadlinePolicy {
	return DeadlinePolicy{Mode: ModeAfterDeadline, Deadline: d.UTC()}
}

// LateGrading grades the first runs after onTime and after late, crediting
// improvements in the late run at (1 - penalty).
func LateGrading(onTime, late time.Time, penalty float64) (DeadlinePolicy, error) {
	if penalty < 0 || penalty > 1 {
		return DeadlinePolicy{}, fmt.Errorf("penalty %v out of range [0,1]", penalty)
	}
	if !late.After(onTime) {
		return DeadlinePolicy{}, errors.New("late deadline must be after the on-time deadline")
	}
	return DeadlinePolicy{Mode: ModeLateGrading, Deadline: onTime.UTC(), Late: late.UTC(), Penalty: penalty}, nil
}

// SingleDeadline reports whether the policy produces one score per student.
func (p DeadlinePolicy) SingleDeadline() bool {
	return p.Mode != ModeLateGrading
}

// Since returns the earliest run timestamp the policy can select, or the
// zero time when every run is a candidate. Fetchers use it to narrow queries.
func (p DeadlinePolicy) Since() time.Time {
	if p.Mode == ModeLatest {
		return time.Time{}
	}
	return p.Deadline
}

// deadlineLayouts are tried in order by ParseDeadline.
var deadlineLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// ParseDeadline parses a UTC date-time with second or minute precision.
func ParseDeadline(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range deadlineLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid deadline %q (expected YYYY-MM-DD HH:MM[:SS] in UTC)", s)
}

// ParseDeadlineParts joins a date (YYYY-MM-DD) and a time (HH:MM or HH:MM:SS).
func ParseDeadlineParts(date, clock string) (time.Time, error) {
	date, clock = strings.TrimSpace(date), strings.TrimSpace(clock)
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", date)
	}
	t, err := ParseDeadline(date + " " + clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q (expected HH:MM or HH:MM:SS)", clock)
	}
	return t, nil
}

// ParsePenalty parses a percentage in [0,100] and returns it as a fraction.
func ParsePenalty(s string) (float64, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid penalty %q: %w", s, err)
	}
	if v < 0 || v > 100 {
		return 0, fmt.Errorf("penalty %v%% out of range [0,100]", v)
	}
	return v / 100, nil
}
