package github

import (
	"context"
	"fmt"
	"time"

	"github.com/dkoosis/gradefetch/pkg/grading"
	"github.com/dkoosis/gradefetch/pkg/workflow"
)

// DefaultEvent is the event GitHub Classroom uses to trigger autograding.
const DefaultEvent = "repository_dispatch"

// RunSource adapts Client to fetch.Source.
type RunSource struct {
	client *Client
	index  *grading.StepIndex
	event  string
	job    string
}

// NewRunSource creates a source that translates step display names through
// index. An empty event lists runs for every trigger.
func NewRunSource(client *Client, index *grading.StepIndex, event string) *RunSource {
	return &RunSource{client: client, index: index, event: event, job: workflow.GradingJob}
}

// Runs lists the student's completed runs created at or after since.
func (s *RunSource) Runs(ctx context.Context, student grading.StudentIdentity, since time.Time) ([]grading.WorkflowRun, error) {
	owner, repo, err := SplitRepo(student.RepoFullName)
	if err != nil {
		return nil, err
	}
	runs, err := s.client.ListWorkflowRuns(ctx, owner, repo, RunFilter{
		Event:        s.event,
		Status:       "completed",
		CreatedSince: since,
	})
	if err != nil {
		return nil, err
	}
	out := make([]grading.WorkflowRun, 0, len(runs))
	for _, r := range runs {
		status := grading.ConclusionUnknown
		if r.Status == "completed" {
			status = grading.ParseConclusion(r.Conclusion)
		}
		out = append(out, grading.WorkflowRun{ID: r.ID, Timestamp: r.CreatedAt.UTC(), Status: status})
	}
	return out, nil
}

// Steps returns the grading job's steps keyed by declared step id. Steps
// whose names match no definition are dropped.
func (s *RunSource) Steps(ctx context.Context, student grading.StudentIdentity, run grading.WorkflowRun) ([]grading.JobStep, error) {
	owner, repo, err := SplitRepo(student.RepoFullName)
	if err != nil {
		return nil, err
	}
	jobs, err := s.client.ListJobsForRun(ctx, owner, repo, run.ID)
	if err != nil {
		return nil, err
	}
	job, ok := findJob(jobs, s.job)
	if !ok {
		return nil, fmt.Errorf("run %d has no %q job", run.ID, s.job)
	}
	steps := make([]grading.JobStep, 0, len(job.Steps))
	for _, st := range job.Steps {
		id, ok := s.index.StepIDForName(st.Name)
		if !ok {
			continue
		}
		steps = append(steps, grading.JobStep{StepID: id, Conclusion: grading.ParseConclusion(st.Conclusion)})
	}
	return steps, nil
}

// findJob matches by name; a run with a single job is accepted as-is since
// job display names may be overridden in the workflow.
func findJob(jobs []Job, name string) (Job, bool) {
	for _, j := range jobs {
		if j.Name == name {
			return j, true
		}
	}
	if len(jobs) == 1 {
		return jobs[0], true
	}
	return Job{}, false
}
