package pipeline

import "fmt"

// Stage names one step of reel generation.
type Stage string

const (
	StageSelect     Stage = "select"
	StageNarrate    Stage = "narrate"
	StageSegment    Stage = "segment"
	StageCaptions   Stage = "captions"
	StageBackground Stage = "background"
	StageCompose    Stage = "compose"
	StageCommit     Stage = "commit"
)

// Stages lists the stages in execution order.
func Stages() []Stage {
	return []Stage{StageSelect, StageNarrate, StageSegment, StageCaptions, StageBackground, StageCompose, StageCommit}
}

// StageError records which stage failed and for which catalog entry.
type StageError struct {
	Stage    Stage
	Sequence int
	Err      error
}

func (e *StageError) Error() string {
	if e.Sequence > 0 {
		return fmt.Sprintf("reel #%d %s: %v", e.Sequence, e.Stage, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
