package tui

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/dkoosis/gradefetch/internal/github"
	"github.com/dkoosis/gradefetch/pkg/grading"
	"github.com/dkoosis/gradefetch/pkg/render"
	"github.com/dkoosis/gradefetch/pkg/report"
)

var fieldLabels = [fieldCount]string{"Deadline date", "Deadline time", "Late date", "Late time", "Penalty %"}

func (m Model) View() string {
	var body, help string
	switch m.state {
	case stateLoadingClassrooms:
		body = m.spinner.View() + " Loading classrooms..."
	case stateClassrooms:
		body = m.viewList("Select a classroom", classroomLabels(m.classrooms))
		help = "↑/↓ navigate • enter select • q quit"
	case stateLoadingAssignments:
		body = m.spinner.View() + " Loading assignments for " + m.classroom.Name + "..."
	case stateAssignments:
		body = m.viewList(m.classroom.Name+": select an assignment", m.assignmentLabels())
		help = "↑/↓ navigate • enter select • esc back • q quit"
	case stateOptions:
		labels := make([]string, len(modes))
		for i, mode := range modes {
			labels[i] = report.ModeLabel(grading.DeadlinePolicy{Mode: mode})
		}
		body = m.viewList(m.assignment.Title+": grading mode", labels)
		help = "↑/↓ navigate • enter select • esc back • q quit"
	case stateDeadline:
		body = m.viewForm()
		help = "tab next field • enter confirm • esc back • ctrl+c quit"
	case stateFetching:
		body = m.viewFetching()
		help = "ctrl+c cancel"
	case stateComplete:
		body = m.viewComplete()
		help = "enter back to assignments • q quit"
	case stateError:
		body = m.styles.Error.Render("Error: ") + errorText(m.err)
		help = "enter back • q quit"
	}
	if help != "" {
		body += "\n" + m.styles.Help.Render(help)
	}
	return body + "\n"
}

func (m Model) viewList(title string, labels []string) string {
	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render(title))
	sb.WriteString("\n")
	if len(labels) == 0 {
		sb.WriteString(m.styles.Muted.Render("  (none)"))
		sb.WriteString("\n")
	}
	for i, label := range labels {
		if i == m.cursor {
			sb.WriteString(m.styles.Selected.Render("▸ " + label))
		} else {
			sb.WriteString(m.styles.Item.Render(label))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func classroomLabels(classrooms []github.Classroom) []string {
	labels := make([]string, len(classrooms))
	for i, c := range classrooms {
		labels[i] = c.Name
		if c.Archived {
			labels[i] += " (archived)"
		}
	}
	return labels
}

func (m Model) assignmentLabels() []string {
	labels := make([]string, len(m.assignments))
	for i, a := range m.assignments {
		label := fmt.Sprintf("%s  %s accepted", a.Title, humanize.Comma(int64(a.Accepted)))
		if a.Deadline != nil {
			label += ", due " + humanize.RelTime(*a.Deadline, m.now(), "ago", "from now")
		}
		labels[i] = label
	}
	return labels
}

func (m Model) viewForm() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render(m.assignment.Title + ": " + report.ModeLabel(grading.DeadlinePolicy{Mode: m.mode})))
	sb.WriteString("\n")
	for i := 0; i < m.visibleFields(); i++ {
		sb.WriteString(m.styles.Label.Render(fieldLabels[i]))
		sb.WriteString(m.inputs[i].View())
		sb.WriteString("\n")
	}
	sb.WriteString(m.styles.Muted.Render("Times are UTC."))
	sb.WriteString("\n")
	if m.formErr != "" {
		sb.WriteString(m.styles.Error.Render(m.formErr))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) viewFetching() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render(m.spinner.View() + " Fetching results for " + m.assignment.Title))
	sb.WriteString("\n")
	pct := 0.0
	if m.total > 0 {
		pct = float64(m.done) / float64(m.total)
	}
	sb.WriteString(m.progress.ViewAs(pct))
	sb.WriteString(fmt.Sprintf("  %d/%d\n\n", m.done, m.total))
	for _, line := range m.status {
		style := m.styles.Success
		if strings.HasPrefix(line, "✗") {
			style = m.styles.Error
		}
		sb.WriteString(style.Render(line))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) viewComplete() string {
	out := m.outcome
	var sb strings.Builder
	title := "Results complete"
	if m.cancelled {
		title = "Cancelled: partial results saved"
	}
	sb.WriteString(m.styles.Title.Render(title))
	sb.WriteString("\n")
	patterns := report.Build(report.Input{
		Title:       out.Assignment.Title,
		Policy:      out.Policy,
		Definitions: out.Definitions,
		Results:     out.Results,
		Stats:       out.Stats,
		Now:         m.now(),
	})
	sb.WriteString(render.NewTerminal(render.DefaultTheme(), m.width).Render(patterns))
	sb.WriteString("\n")
	sb.WriteString(m.styles.Success.Render("CSV: " + out.CSVPath))
	sb.WriteString("\n")
	return sb.String()
}

func errorText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
