// Package app wires the GitHub collaborators to the grading pipeline.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dkoosis/gradefetch/internal/github"
	"github.com/dkoosis/gradefetch/pkg/export"
	"github.com/dkoosis/gradefetch/pkg/fetch"
	"github.com/dkoosis/gradefetch/pkg/grading"
	"github.com/dkoosis/gradefetch/pkg/workflow"
)

// API is the subset of the GitHub client the service needs.
type API interface {
	ListClassrooms(ctx context.Context) ([]github.Classroom, error)
	ListAssignments(ctx context.Context, classroomID int64) ([]github.Assignment, error)
	GetAssignment(ctx context.Context, id int64) (github.Assignment, error)
	ListAcceptedAssignments(ctx context.Context, assignmentID int64) ([]github.AcceptedAssignment, error)
	GetFileContents(ctx context.Context, owner, repo, path string) (string, error)
}

// SourceFactory builds a run source for one invocation's step index.
type SourceFactory func(index *grading.StepIndex) fetch.Source

// Settings are the invocation-wide knobs.
type Settings struct {
	WorkflowPath string
	OutputDir    string
	Concurrency  int
}

// Service runs classroom lookups and grade fetches.
type Service struct {
	api       API
	newSource SourceFactory
	settings  Settings
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a service.
func New(api API, newSource SourceFactory, settings Settings, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if settings.WorkflowPath == "" {
		settings.WorkflowPath = workflow.DefaultPath
	}
	if settings.OutputDir == "" {
		settings.OutputDir = "."
	}
	return &Service{api: api, newSource: newSource, settings: settings, logger: logger, now: time.Now}
}

// NewGitHub wires a service to a live client.
func NewGitHub(client *github.Client, event string, settings Settings, logger *slog.Logger) *Service {
	return New(client, func(index *grading.StepIndex) fetch.Source {
		return github.NewRunSource(client, index, event)
	}, settings, logger)
}

// Classrooms lists classrooms, failing with NoClassroomsFound when empty.
func (s *Service) Classrooms(ctx context.Context) ([]github.Classroom, error) {
	classrooms, err := s.api.ListClassrooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("list classrooms: %w", err)
	}
	if len(classrooms) == 0 {
		return nil, grading.NewError(grading.KindNoClassroomsFound, "the token has no classroom access", nil)
	}
	return classrooms, nil
}

// Assignments lists a classroom's assignments.
func (s *Service) Assignments(ctx context.Context, classroomID int64) ([]github.Assignment, error) {
	assignments, err := s.api.ListAssignments(ctx, classroomID)
	if err != nil {
		return nil, fmt.Errorf("list assignments for classroom %d: %w", classroomID, err)
	}
	return assignments, nil
}

// Assignment fetches one assignment.
func (s *Service) Assignment(ctx context.Context, id int64) (github.Assignment, error) {
	a, err := s.api.GetAssignment(ctx, id)
	if err != nil {
		return a, fmt.Errorf("get assignment %d: %w", id, err)
	}
	return a, nil
}

// LoadDefinitions parses the test definitions from the assignment's starter
// repository workflow.
func (s *Service) LoadDefinitions(ctx context.Context, a github.Assignment) ([]grading.TestDefinition, error) {
	owner, repo, err := github.StarterRepo(a)
	if err != nil {
		return nil, err
	}
	doc, err := s.api.GetFileContents(ctx, owner, repo, s.settings.WorkflowPath)
	if err != nil {
		var apiErr *github.APIError
		if errors.As(err, &apiErr) && apiErr.NotFound() {
			return nil, grading.Malformed("%s/%s has no %s", owner, repo, s.settings.WorkflowPath)
		}
		return nil, grading.NewError(grading.KindFetchFailure, "load "+s.settings.WorkflowPath, err)
	}
	defs, err := workflow.Parse([]byte(doc))
	if err != nil {
		return nil, err
	}
	s.logger.Info("loaded test definitions", "assignment", a.ID, "tests", len(defs))
	return defs, nil
}

// Request describes one grade fetch.
type Request struct {
	Assignment github.Assignment
	Policy     grading.DeadlinePolicy
	// Students is an optional glob over usernames.
	Students string
	Progress fetch.ProgressFunc
}

// Outcome is everything a fetch produced.
type Outcome struct {
	Assignment  github.Assignment
	Policy      grading.DeadlinePolicy
	Definitions []grading.TestDefinition
	Results     []grading.StudentResult
	Stats       grading.Stats
	CSVPath     string
}

// Fetch grades every student of the assignment and writes the CSV export.
// When ctx is cancelled mid-run the partial export is still written and
// the cancellation error is returned with the outcome.
func (s *Service) Fetch(ctx context.Context, req Request) (Outcome, error) {
	out := Outcome{Assignment: req.Assignment, Policy: req.Policy}

	defs, err := s.LoadDefinitions(ctx, req.Assignment)
	if err != nil {
		return out, err
	}
	out.Definitions = defs

	accepted, err := s.api.ListAcceptedAssignments(ctx, req.Assignment.ID)
	if err != nil {
		return out, grading.NewError(grading.KindFetchFailure, "list accepted assignments", err)
	}
	roster, err := github.FilterRoster(github.Roster(accepted), req.Students)
	if err != nil {
		return out, err
	}
	s.logger.Info("fetching results", "assignment", req.Assignment.ID, "students", len(roster), "mode", req.Policy.Mode.String())

	index := grading.NewStepIndex(defs)
	orch := fetch.NewOrchestrator(s.newSource(index),
		fetch.WithConcurrency(s.settings.Concurrency),
		fetch.WithLogger(s.logger),
		fetch.WithProgress(req.Progress),
	)
	results, runErr := orch.Run(ctx, roster, defs, req.Policy)
	out.Results = results
	out.Stats = grading.ComputeStats(results, len(defs))

	table := export.NewTable(defs, req.Policy)
	slug := export.Slug(firstNonEmpty(req.Assignment.Slug, req.Assignment.Title))
	path, err := export.WriteFile(s.settings.OutputDir, slug, s.now(), table, results)
	if err != nil {
		return out, fmt.Errorf("export results: %w", err)
	}
	out.CSVPath = path
	s.logger.Info("wrote results", "path", path, "processed", out.Stats.StudentsProcessed, "errors", out.Stats.Errors)

	return out, runErr
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
