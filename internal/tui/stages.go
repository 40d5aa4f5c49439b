package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aaravmody/insta-cricket-bot/internal/pipeline"
)

const (
	stageWidth   = 10
	statusWidth  = 9
	elapsedWidth = 7
	detailWidth  = 52
)

// stageMsg replaces the visible state of one stage row.
type stageMsg struct {
	Stage   pipeline.Stage
	Status  string
	Elapsed string
	Detail  string
}

// runDoneMsg ends the program once the generator returns.
type runDoneMsg struct {
	err error
}

type stageRow struct {
	stage   pipeline.Stage
	status  string
	elapsed string
	detail  string
}

// StageModel renders one row per pipeline stage with a spinner footer.
type StageModel struct {
	title   string
	rows    []stageRow
	index   map[pipeline.Stage]int
	spinner spinner.Model
	done    bool
	err     error

	// interrupt cancels the running generator on ctrl+c.
	interrupt func()
}

// NewStageModel returns a model with every stage pending.
func NewStageModel(title string) StageModel {
	m := StageModel{
		title:   title,
		index:   make(map[pipeline.Stage]int),
		spinner: spinner.New(spinner.WithSpinner(spinner.MiniDot)),
	}
	for i, stage := range pipeline.Stages() {
		m.index[stage] = i
		m.rows = append(m.rows, stageRow{stage: stage, status: "pending"})
	}
	return m
}

// Init satisfies tea.Model.
func (m StageModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update satisfies tea.Model.
func (m StageModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stageMsg:
		if i, ok := m.index[msg.Stage]; ok {
			row := &m.rows[i]
			row.status = msg.Status
			row.detail = msg.Detail
			if msg.Elapsed != "" {
				row.elapsed = msg.Elapsed
			}
		}
		return m, nil
	case runDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			if m.interrupt != nil {
				m.interrupt()
			}
			m.done = true
			return m, tea.Quit
		}
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View satisfies tea.Model.
func (m StageModel) View() string {
	var b strings.Builder
	if m.title != "" {
		b.WriteString(TitleStyle.Render(m.title))
		b.WriteString("\n\n")
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		HeaderStyle.Width(stageWidth+2).Render("STAGE"),
		HeaderStyle.Width(statusWidth+2).Render("STATUS"),
		HeaderStyle.Width(elapsedWidth+2).Render("ELAPSED"),
		HeaderStyle.Render("DETAIL"),
	))
	b.WriteByte('\n')
	for _, row := range m.rows {
		fmt.Fprintf(&b, "%-*s  %s  %-*s  %s\n",
			stageWidth, row.stage,
			StatusStyle(row.status).Render(fmt.Sprintf("%-*s", statusWidth, row.status)),
			elapsedWidth, row.elapsed,
			truncate(row.detail, detailWidth))
	}
	if !m.done {
		finished, total := m.progress()
		fmt.Fprintf(&b, "\n%s %d/%d stages\n", m.spinner.View(), finished, total)
	} else if m.err != nil {
		fmt.Fprintf(&b, "\n%s\n", StatusStyle("error").Render(m.err.Error()))
	}
	return b.String()
}

func (m StageModel) progress() (int, int) {
	finished := 0
	for _, row := range m.rows {
		if isTerminal(row.status) {
			finished++
		}
	}
	return finished, len(m.rows)
}

// Err returns the error the generator finished with.
func (m StageModel) Err() error {
	return m.err
}

func truncate(value string, max int) string {
	value = strings.Join(strings.Fields(value), " ")
	if len(value) <= max {
		return value
	}
	if max <= 3 {
		return value[:max]
	}
	return value[:max-3] + "..."
}

func formatElapsed(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < 10*time.Second:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	default:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
}
