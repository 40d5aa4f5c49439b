package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/aaravmody/insta-cricket-bot/internal/pipeline"
)

// StageReporter turns pipeline stage transitions into stage table messages.
type StageReporter struct {
	send    func(tea.Msg)
	now     func() time.Time
	started map[pipeline.Stage]time.Time
}

var _ pipeline.Reporter = (*StageReporter)(nil)

// NewStageReporter wraps a send callback such as tea.Program.Send.
func NewStageReporter(send func(tea.Msg)) *StageReporter {
	return &StageReporter{
		send:    send,
		now:     time.Now,
		started: make(map[pipeline.Stage]time.Time),
	}
}

// StageStarted implements pipeline.Reporter.
func (r *StageReporter) StageStarted(stage pipeline.Stage, detail string) {
	r.started[stage] = r.now()
	r.send(stageMsg{Stage: stage, Status: "running", Detail: detail})
}

// StageFinished implements pipeline.Reporter.
func (r *StageReporter) StageFinished(stage pipeline.Stage, detail string, err error) {
	msg := stageMsg{Stage: stage, Status: "done", Detail: detail}
	if start, ok := r.started[stage]; ok {
		msg.Elapsed = formatElapsed(r.now().Sub(start))
	}
	switch {
	case err != nil:
		msg.Status = "error"
		msg.Detail = err.Error()
	case detail == "exhausted":
		msg.Status = "exhausted"
	case stage == pipeline.StageCommit:
		msg.Status = "committed"
	}
	r.send(msg)
}
