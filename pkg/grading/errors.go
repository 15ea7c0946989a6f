package grading

import (
	"errors"
	"fmt"
)

// Kind classifies reconciliation failures.
type Kind int

const (
	KindUnknown Kind = iota
	// KindMalformedWorkflow is fatal: the column schema cannot be built.
	KindMalformedWorkflow
	KindNoCompletedRun
	KindNoRunAfterDeadline
	KindFetchFailure
	KindNoClassroomsFound
	KindNoStarterRepository
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindMalformedWorkflow:
		return "malformed workflow"
	case KindNoCompletedRun:
		return "no completed run"
	case KindNoRunAfterDeadline:
		return "no run after deadline"
	case KindFetchFailure:
		return "fetch failure"
	case KindNoClassroomsFound:
		return "no classrooms found"
	case KindNoStarterRepository:
		return "no starter repository"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown error"
	}
}

// Fatal reports whether errors of this kind abort the whole invocation.
func (k Kind) Fatal() bool {
	switch k {
	case KindMalformedWorkflow, KindNoClassroomsFound, KindNoStarterRepository:
		return true
	default:
		return false
	}
}

// Sentinels for errors.Is. A *Error matches the sentinel of its Kind.
var (
	ErrMalformedWorkflow   = &Error{Kind: KindMalformedWorkflow}
	ErrNoCompletedRun      = &Error{Kind: KindNoCompletedRun}
	ErrNoRunAfterDeadline  = &Error{Kind: KindNoRunAfterDeadline}
	ErrFetchFailure        = &Error{Kind: KindFetchFailure}
	ErrNoClassroomsFound   = &Error{Kind: KindNoClassroomsFound}
	ErrNoStarterRepository = &Error{Kind: KindNoStarterRepository}
	ErrCancelled           = &Error{Kind: KindCancelled}
)

// Error is a classified reconciliation error.
type Error struct {
	Kind    Kind
	Student string // empty for invocation-level errors
	Detail  string
	Err     error
}

// NewError returns an *Error of the given kind.
func NewError(kind Kind, detail string, err error) *Error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Student != "" {
		msg = e.Student + ": " + msg
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same Kind, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// ForStudent returns a copy of e attributed to student.
func (e *Error) ForStudent(student string) *Error {
	c := *e
	c.Student = student
	return &c
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Malformed builds a KindMalformedWorkflow error.
func Malformed(format string, args ...any) *Error {
	return &Error{Kind: KindMalformedWorkflow, Detail: fmt.Sprintf(format, args...)}
}
