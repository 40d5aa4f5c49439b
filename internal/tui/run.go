package tui

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/aaravmody/insta-cricket-bot/internal/pipeline"
)

// RunStages draws the stage table on out while work runs in the background.
// ctrl+c cancels the context handed to work; RunStages still waits for work
// to return so the cursor is never left mid-commit.
func RunStages(ctx context.Context, out io.Writer, title string, work func(context.Context, pipeline.Reporter) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := NewStageModel(title)
	model.interrupt = cancel
	p := tea.NewProgram(model, tea.WithOutput(out), tea.WithContext(ctx))

	workErr := make(chan error, 1)
	go func() {
		err := work(ctx, NewStageReporter(p.Send))
		p.Send(runDoneMsg{err: err})
		workErr <- err
	}()

	_, uiErr := p.Run()
	err := <-workErr
	if err != nil {
		return err
	}
	if uiErr != nil && ctx.Err() == nil {
		return uiErr
	}
	return nil
}
