// Package export writes graded results as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/dkoosis/gradefetch/pkg/grading"
)

// TimestampLayout renders run timestamps in UTC.
const TimestampLayout = "2006-01-02T15:04:05Z"

// Identity and summary columns of the two schemas.
const (
	ColUsername        = "student_username"
	ColRepoURL         = "student_repo_url"
	ColRunTimestamp    = "workflow_run_timestamp"
	ColTotalAwarded    = "total_points_awarded"
	ColTotalAvailable  = "total_points_available"
	ColPercentage      = "percentage"
	ColOnTimeTimestamp = "on_time_timestamp"
	ColLateTimestamp   = "late_timestamp"
	ColOnTimePoints    = "on_time_points"
	ColLatePoints      = "late_points"
	ColFinalPoints     = "final_points"
	ColFinalPercentage = "final_percentage"
)

// Table renders results for one assignment.
type Table struct {
	defs   []grading.TestDefinition
	policy grading.DeadlinePolicy
}

// NewTable builds the column schema from defs; the policy picks the
// single-deadline or late-grading layout.
func NewTable(defs []grading.TestDefinition, policy grading.DeadlinePolicy) *Table {
	return &Table{defs: defs, policy: policy}
}

// Header returns the column names in order.
func (t *Table) Header() []string {
	var head []string
	if t.policy.SingleDeadline() {
		head = []string{ColUsername, ColRepoURL, ColRunTimestamp}
	} else {
		head = []string{ColUsername, ColRepoURL, ColOnTimeTimestamp, ColLateTimestamp}
	}
	for _, d := range t.defs {
		head = append(head, d.Name)
	}
	if t.policy.SingleDeadline() {
		return append(head, ColTotalAwarded, ColTotalAvailable, ColPercentage)
	}
	return append(head, ColTotalAvailable, ColOnTimePoints, ColLatePoints, ColFinalPoints, ColFinalPercentage)
}

// Row renders one student. Columns without a computed value are empty.
func (t *Table) Row(r grading.StudentResult) []string {
	row := []string{r.Identity.Username, r.Identity.RepoURL}
	if t.policy.SingleDeadline() {
		return t.regularRow(row, r)
	}
	return t.lateRow(row, r)
}

func (t *Table) regularRow(row []string, r grading.StudentResult) []string {
	s := r.Regular
	if s == nil || r.Err != nil {
		row = append(row, "")
		row = append(row, blanks(len(t.defs))...)
		return append(row, "", "", "")
	}
	row = append(row, s.RunTimestamp.UTC().Format(TimestampLayout))
	for _, d := range t.defs {
		row = append(row, FormatPoints(s.PerTest[d.StepID]))
	}
	return append(row,
		FormatPoints(s.TotalAwarded),
		FormatPoints(s.TotalAvailable),
		FormatPercentage(s.Percentage()),
	)
}

func (t *Table) lateRow(row []string, r grading.StudentResult) []string {
	row = append(row, timestamp(r.OnTime), timestamp(r.Late))
	if r.Final == nil || r.Err != nil {
		row = append(row, blanks(len(t.defs))...)
		available := ""
		if r.OnTime != nil {
			available = FormatPoints(r.OnTime.TotalAvailable)
		} else if r.Late != nil {
			available = FormatPoints(r.Late.TotalAvailable)
		}
		return append(row, available, points(r.OnTime), points(r.Late), "", "")
	}
	for _, d := range t.defs {
		row = append(row, FormatPoints(r.Final.PerTest[d.StepID]))
	}
	return append(row,
		FormatPoints(r.Final.TotalAvailable),
		points(r.OnTime),
		points(r.Late),
		FormatPoints(r.Final.FinalPoints),
		FormatPercentage(r.Final.FinalPercentage),
	)
}

// Write writes the header and one row per result, in the given order.
func (t *Table) Write(w io.Writer, results []grading.StudentResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range results {
		if err := cw.Write(t.Row(r)); err != nil {
			return fmt.Errorf("write csv row for %s: %w", r.Identity.Username, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// FormatPoints rounds to two decimals and trims trailing zeros.
func FormatPoints(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}

// FormatPercentage renders a percentage with two decimals.
func FormatPercentage(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func timestamp(s *grading.ExtractedScore) string {
	if s == nil {
		return ""
	}
	return s.RunTimestamp.UTC().Format(TimestampLayout)
}

func points(s *grading.ExtractedScore) string {
	if s == nil {
		return ""
	}
	return FormatPoints(s.TotalAwarded)
}

func blanks(n int) []string {
	return make([]string, n)
}

// Filename returns results_<slug>_<YYYYMMDD_HHMMSS>.csv for now.
func Filename(slug string, now time.Time) string {
	return fmt.Sprintf("results_%s_%s.csv", Slug(slug), now.UTC().Format("20060102_150405"))
}
