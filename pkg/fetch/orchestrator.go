// Package fetch drives per-student grading concurrently: history fetch,
// run selection, step fetch, extraction and late-grading combination.
package fetch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dkoosis/gradefetch/pkg/grading"
)

// DefaultConcurrency bounds in-flight students to stay within upstream
// rate limits.
const DefaultConcurrency = 8

// Source fetches a student's run history from the CI provider. Retries for
// transient failures belong to the Source; the orchestrator treats any
// error as terminal for that student.
type Source interface {
	// Runs returns the student's runs created at or after since (the zero
	// time means all runs). Steps may be left nil.
	Runs(ctx context.Context, student grading.StudentIdentity, since time.Time) ([]grading.WorkflowRun, error)
	// Steps returns the grading job steps of run, keyed by step id.
	Steps(ctx context.Context, student grading.StudentIdentity, run grading.WorkflowRun) ([]grading.JobStep, error)
}

// Progress reports one completed student unit.
type Progress struct {
	Done     int
	Total    int
	Index    int
	Username string
	Err      error
}

// ProgressFunc receives progress. It is called from worker goroutines, one
// call at a time.
type ProgressFunc func(Progress)

// Orchestrator runs the per-student pipeline on a bounded worker pool.
type Orchestrator struct {
	source      Source
	concurrency int
	logger      *slog.Logger
	onProgress  ProgressFunc
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithConcurrency sets the number of students processed at once.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithProgress registers a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(o *Orchestrator) { o.onProgress = fn }
}

// NewOrchestrator creates an orchestrator reading from source.
func NewOrchestrator(source Source, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		source:      source,
		concurrency: DefaultConcurrency,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run grades every student in roster and returns one result per student in
// roster order. Cancelling ctx stops new students from starting; students
// already in flight finish. Unstarted students carry grading.ErrCancelled,
// are still reported as progress, and Run returns ctx.Err() alongside the
// results.
func (o *Orchestrator) Run(ctx context.Context, roster []grading.StudentIdentity, defs []grading.TestDefinition, policy grading.DeadlinePolicy) ([]grading.StudentResult, error) {
	results := make([]grading.StudentResult, len(roster))
	index := grading.NewStepIndex(defs)

	var (
		mu   sync.Mutex
		done int
	)
	report := func(i int, r grading.StudentResult) {
		if o.onProgress == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		done++
		o.onProgress(Progress{Done: done, Total: len(roster), Index: i, Username: r.Identity.Username, Err: r.Err})
	}

	var g errgroup.Group
	g.SetLimit(o.concurrency)
	for i, student := range roster {
		// Go blocks until a worker slot frees up, so cancellation is
		// observed between units.
		if ctx.Err() != nil {
			for j := i; j < len(roster); j++ {
				results[j] = grading.StudentResult{
					Identity: roster[j],
					Err:      grading.ErrCancelled.ForStudent(roster[j].Username),
				}
				report(j, results[j])
			}
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				results[i] = grading.StudentResult{Identity: student, Err: grading.ErrCancelled.ForStudent(student.Username)}
				report(i, results[i])
				return nil
			}
			results[i] = o.grade(context.WithoutCancel(ctx), student, index, policy)
			report(i, results[i])
			return nil
		})
	}
	_ = g.Wait()

	return results, ctx.Err()
}

// grade runs the full pipeline for one student. Every failure is captured in
// the returned result.
func (o *Orchestrator) grade(ctx context.Context, student grading.StudentIdentity, index *grading.StepIndex, policy grading.DeadlinePolicy) grading.StudentResult {
	log := o.logger.With("student", student.Username, "repo", student.RepoFullName)
	result := grading.StudentResult{Identity: student}
	fail := func(err error) grading.StudentResult {
		result.Err = attribute(err, student.Username)
		log.Warn("student failed", "err", result.Err)
		return result
	}

	history, err := o.source.Runs(ctx, student, policy.Since())
	if err != nil {
		return fail(grading.NewError(grading.KindFetchFailure, "list workflow runs", err))
	}
	log.Debug("fetched run history", "runs", len(history))

	sel := grading.Select(history, policy)

	if policy.SingleDeadline() {
		if sel.PrimaryErr != nil {
			return fail(sel.PrimaryErr)
		}
		score, err := o.score(ctx, student, *sel.Primary, index)
		if err != nil {
			return fail(err)
		}
		result.Regular = &score
		log.Debug("graded", "run", sel.Primary.ID, "awarded", score.TotalAwarded)
		return result
	}

	// Late grading: score whichever branches were selected so a partial row
	// can still be exported, then combine only when both succeed.
	var firstErr error
	if sel.PrimaryErr != nil {
		firstErr = sel.PrimaryErr
	} else if score, err := o.score(ctx, student, *sel.Primary, index); err != nil {
		firstErr = err
	} else {
		result.OnTime = &score
	}
	if sel.LateErr != nil {
		if firstErr == nil {
			firstErr = sel.LateErr
		}
	} else if score, err := o.score(ctx, student, *sel.Late, index); err != nil {
		if firstErr == nil {
			firstErr = err
		}
	} else {
		result.Late = &score
	}
	if firstErr != nil {
		return fail(firstErr)
	}

	final := grading.Combine(*result.OnTime, *result.Late, policy.Penalty)
	result.Final = &final
	log.Debug("graded late", "on_time", result.OnTime.TotalAwarded, "late", result.Late.TotalAwarded, "final", final.FinalPoints)
	return result
}

func (o *Orchestrator) score(ctx context.Context, student grading.StudentIdentity, run grading.WorkflowRun, index *grading.StepIndex) (grading.ExtractedScore, error) {
	if run.Steps == nil {
		steps, err := o.source.Steps(ctx, student, run)
		if err != nil {
			return grading.ExtractedScore{}, grading.NewError(grading.KindFetchFailure, "list job steps", err)
		}
		run.Steps = steps
	}
	return index.Extract(run), nil
}

// attribute tags err with the student, keeping its kind when classified.
func attribute(err error, student string) error {
	if e, ok := err.(*grading.Error); ok {
		return e.ForStudent(student)
	}
	return grading.NewError(grading.KindFetchFailure, "", err).ForStudent(student)
}
