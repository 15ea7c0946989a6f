// Package tui is the interactive classroom browser and grade fetcher.
package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dkoosis/gradefetch/internal/app"
	"github.com/dkoosis/gradefetch/internal/github"
	"github.com/dkoosis/gradefetch/pkg/fetch"
	"github.com/dkoosis/gradefetch/pkg/grading"
)

// MaxStatusLines bounds the scrolling status list while fetching.
const MaxStatusLines = 20

// Service is what the TUI needs from the app layer.
type Service interface {
	Classrooms(ctx context.Context) ([]github.Classroom, error)
	Assignments(ctx context.Context, classroomID int64) ([]github.Assignment, error)
	Fetch(ctx context.Context, req app.Request) (app.Outcome, error)
}

type state int

const (
	stateLoadingClassrooms state = iota
	stateClassrooms
	stateLoadingAssignments
	stateAssignments
	stateOptions
	stateDeadline
	stateFetching
	stateComplete
	stateError
)

// Deadline form fields.
const (
	fieldDate = iota
	fieldTime
	fieldLateDate
	fieldLateTime
	fieldPenalty
	fieldCount
)

var modes = []grading.Mode{grading.ModeLatest, grading.ModeAfterDeadline, grading.ModeLateGrading}

type (
	classroomsMsg struct {
		items []github.Classroom
		err   error
	}
	assignmentsMsg struct {
		items []github.Assignment
		err   error
	}
	progressMsg  fetch.Progress
	fetchDoneMsg struct {
		outcome app.Outcome
		err     error
	}
)

// Model is the bubbletea model.
type Model struct {
	ctx    context.Context
	svc    Service
	styles styles
	now    func() time.Time

	state  state
	cursor int
	width  int

	classrooms  []github.Classroom
	assignments []github.Assignment
	classroom   github.Classroom
	assignment  github.Assignment
	mode        grading.Mode

	inputs  []textinput.Model
	focus   int
	formErr string

	spinner  spinner.Model
	progress progress.Model
	status   []string
	done     int
	total    int
	updates  chan tea.Msg
	cancel   context.CancelFunc

	outcome   app.Outcome
	cancelled bool
	err       error
}

// New returns the initial model.
func New(ctx context.Context, svc Service) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		ctx:      ctx,
		svc:      svc,
		styles:   defaultStyles(),
		now:      time.Now,
		state:    stateLoadingClassrooms,
		spinner:  sp,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		width:    80,
	}
}

// Run starts the program and returns the final model.
func Run(ctx context.Context, svc Service) (Model, error) {
	p := tea.NewProgram(New(ctx, svc), tea.WithContext(ctx), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return Model{}, err
	}
	return final.(Model), nil
}

// Err is the error that ended the session, if any.
func (m Model) Err() error { return m.err }

// Outcome is the last completed fetch.
func (m Model) Outcome() app.Outcome { return m.outcome }

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadClassrooms())
}

func (m Model) loadClassrooms() tea.Cmd {
	return func() tea.Msg {
		items, err := m.svc.Classrooms(m.ctx)
		return classroomsMsg{items: items, err: err}
	}
}

func (m Model) loadAssignments(id int64) tea.Cmd {
	return func() tea.Msg {
		items, err := m.svc.Assignments(m.ctx, id)
		return assignmentsMsg{items: items, err: err}
	}
}

func listen(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = max(10, min(60, msg.Width-20))
		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case classroomsMsg:
		if msg.err != nil {
			return m.fail(msg.err)
		}
		m.classrooms, m.state, m.cursor = msg.items, stateClassrooms, 0
		return m, nil

	case assignmentsMsg:
		if msg.err != nil {
			return m.fail(msg.err)
		}
		m.assignments, m.state, m.cursor = msg.items, stateAssignments, 0
		return m, nil

	case progressMsg:
		m.onProgress(fetch.Progress(msg))
		return m, listen(m.updates)

	case fetchDoneMsg:
		m.cancel = nil
		m.outcome = msg.outcome
		if msg.err != nil {
			if errors.Is(msg.err, context.Canceled) && msg.outcome.CSVPath != "" {
				m.cancelled = true
			} else {
				return m.fail(msg.err)
			}
		}
		m.state = stateComplete
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.state == stateDeadline {
		return m.updateInputs(msg)
	}
	return m, nil
}

func (m Model) busy() bool {
	switch m.state {
	case stateLoadingClassrooms, stateLoadingAssignments, stateFetching:
		return true
	}
	return false
}

func (m Model) fail(err error) (tea.Model, tea.Cmd) {
	m.err = err
	m.state = stateError
	return m, nil
}

func (m *Model) onProgress(p fetch.Progress) {
	m.done, m.total = p.Done, p.Total
	line := "✓ " + p.Username
	if p.Err != nil {
		line = "✗ " + p.Err.Error()
	}
	m.status = append(m.status, line)
	if len(m.status) > MaxStatusLines {
		m.status = m.status[len(m.status)-MaxStatusLines:]
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		if m.state == stateFetching && m.cancel != nil {
			m.cancel()
			m.status = append(m.status, "cancelling: waiting for in-flight students")
			return m, nil
		}
		return m, tea.Quit
	}
	if key == "q" && m.state != stateDeadline && m.state != stateFetching {
		return m, tea.Quit
	}

	switch m.state {
	case stateClassrooms:
		return m.handleList(key, len(m.classrooms), m.chooseClassroom, nil)
	case stateAssignments:
		return m.handleList(key, len(m.assignments), m.chooseAssignment, m.backToClassrooms)
	case stateOptions:
		return m.handleList(key, len(modes), m.chooseMode, m.backToAssignments)
	case stateDeadline:
		return m.handleForm(msg)
	case stateComplete:
		if key == "enter" || key == "esc" {
			return m.backToAssignments()
		}
	case stateError:
		if key == "esc" || key == "enter" {
			m.err = nil
			if len(m.assignments) > 0 {
				return m.backToAssignments()
			}
			if len(m.classrooms) > 0 {
				return m.backToClassrooms()
			}
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m Model) handleList(key string, n int, choose func() (tea.Model, tea.Cmd), back func() (tea.Model, tea.Cmd)) (tea.Model, tea.Cmd) {
	switch key {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < n-1 {
			m.cursor++
		}
	case "enter":
		if n > 0 {
			return choose()
		}
	case "esc":
		if back != nil {
			return back()
		}
	}
	return m, nil
}

func (m Model) chooseClassroom() (tea.Model, tea.Cmd) {
	m.classroom = m.classrooms[m.cursor]
	m.state = stateLoadingAssignments
	return m, tea.Batch(m.spinner.Tick, m.loadAssignments(m.classroom.ID))
}

func (m Model) chooseAssignment() (tea.Model, tea.Cmd) {
	m.assignment = m.assignments[m.cursor]
	m.state, m.cursor = stateOptions, 0
	return m, nil
}

func (m Model) chooseMode() (tea.Model, tea.Cmd) {
	m.mode = modes[m.cursor]
	if m.mode == grading.ModeLatest {
		return m.startFetch(grading.Latest())
	}
	m.state = stateDeadline
	m.inputs = newInputs(m.assignment.Deadline)
	m.focus, m.formErr = 0, ""
	m.inputs[0].Focus()
	return m, textinput.Blink
}

func (m Model) backToClassrooms() (tea.Model, tea.Cmd) {
	m.state, m.cursor = stateClassrooms, 0
	return m, nil
}

func (m Model) backToAssignments() (tea.Model, tea.Cmd) {
	m.state, m.cursor = stateAssignments, 0
	return m, nil
}

func newInputs(deadline *time.Time) []textinput.Model {
	inputs := make([]textinput.Model, fieldCount)
	placeholders := [fieldCount]string{"YYYY-MM-DD", "HH:MM:SS", "YYYY-MM-DD", "HH:MM:SS", "20"}
	for i := range inputs {
		ti := textinput.New()
		ti.Placeholder = placeholders[i]
		ti.CharLimit = 19
		inputs[i] = ti
	}
	if deadline != nil {
		d := deadline.UTC()
		inputs[fieldDate].SetValue(d.Format("2006-01-02"))
		inputs[fieldTime].SetValue(d.Format("15:04:05"))
	}
	return inputs
}

// visibleFields is how many form fields the selected mode uses.
func (m Model) visibleFields() int {
	if m.mode == grading.ModeLateGrading {
		return fieldCount
	}
	return fieldTime + 1
}

func (m Model) handleForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.state, m.cursor = stateOptions, 0
		return m, nil
	case "tab", "down":
		return m.focusField((m.focus + 1) % m.visibleFields())
	case "shift+tab", "up":
		return m.focusField((m.focus + m.visibleFields() - 1) % m.visibleFields())
	case "enter":
		if m.focus < m.visibleFields()-1 {
			return m.focusField(m.focus + 1)
		}
		policy, err := m.policyFromForm()
		if err != nil {
			m.formErr = err.Error()
			return m, nil
		}
		return m.startFetch(policy)
	}
	return m.updateInputs(msg)
}

func (m Model) focusField(i int) (tea.Model, tea.Cmd) {
	m.inputs[m.focus].Blur()
	m.focus = i
	return m, m.inputs[m.focus].Focus()
}

func (m Model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	if len(m.inputs) == 0 {
		return m, nil
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m Model) policyFromForm() (grading.DeadlinePolicy, error) {
	value := func(i int) string { return m.inputs[i].Value() }
	deadline, err := grading.ParseDeadlineParts(value(fieldDate), value(fieldTime))
	if err != nil {
		return grading.DeadlinePolicy{}, fmt.Errorf("deadline: %w", err)
	}
	if m.mode == grading.ModeAfterDeadline {
		return grading.AfterDeadline(deadline), nil
	}
	late, err := grading.ParseDeadlineParts(value(fieldLateDate), value(fieldLateTime))
	if err != nil {
		return grading.DeadlinePolicy{}, fmt.Errorf("late deadline: %w", err)
	}
	penalty, err := grading.ParsePenalty(value(fieldPenalty))
	if err != nil {
		return grading.DeadlinePolicy{}, fmt.Errorf("penalty: %w", err)
	}
	return grading.LateGrading(deadline, late, penalty)
}

func (m Model) startFetch(policy grading.DeadlinePolicy) (tea.Model, tea.Cmd) {
	ctx, cancel := context.WithCancel(m.ctx)
	updates := make(chan tea.Msg, 64)
	m.state = stateFetching
	m.cancel = cancel
	m.updates = updates
	m.status, m.done, m.total, m.cancelled = nil, 0, 0, false

	svc := m.svc
	req := app.Request{
		Assignment: m.assignment,
		Policy:     policy,
		Progress:   func(p fetch.Progress) { updates <- progressMsg(p) },
	}
	go func() {
		defer close(updates)
		defer cancel()
		outcome, err := svc.Fetch(ctx, req)
		updates <- fetchDoneMsg{outcome: outcome, err: err}
	}()
	return m, tea.Batch(m.spinner.Tick, listen(updates))
}
