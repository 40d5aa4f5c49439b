package tui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"

	"github.com/aaravmody/insta-cricket-bot/internal/publish"
)

var publishSpinner = spinner.MiniDot

// PublishStatus keeps a spinner line for one publish run. Each remote state
// change freezes the previous line with its duration and starts a new one.
type PublishStatus struct {
	w        io.Writer
	sequence int
	now      func() time.Time

	mu      sync.Mutex
	phase   string
	started time.Time
	stopped bool
	done    chan struct{}
}

// NewPublishStatus starts the spinner with a waiting message for videoURL.
func NewPublishStatus(w io.Writer, sequence int, videoURL string) *PublishStatus {
	s := &PublishStatus{
		w:        w,
		sequence: sequence,
		now:      time.Now,
		phase:    "waiting for " + videoURL,
		done:     make(chan struct{}),
	}
	s.started = s.now()
	go s.loop()
	return s
}

// Observe is suitable as publish.Publisher.OnState.
func (s *PublishStatus) Observe(state publish.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	fmt.Fprintf(s.w, "\r\033[K%s reel #%d %s (%s)\n",
		StatusStyle("done").Render("✓"), s.sequence, s.phase, formatElapsed(s.now().Sub(s.started)))
	s.phase = "container " + string(state)
	s.started = s.now()
}

// Stop clears the spinner line. It is safe to call more than once.
func (s *PublishStatus) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()
	close(s.done)
	fmt.Fprint(s.w, "\r\033[K")
}

func (s *PublishStatus) loop() {
	ticker := time.NewTicker(publishSpinner.FPS)
	defer ticker.Stop()
	for tick := 0; ; tick++ {
		select {
		case <-s.done:
			return
		case <-ticker.C:
		}
		s.mu.Lock()
		if !s.stopped {
			frame := publishSpinner.Frames[tick%len(publishSpinner.Frames)]
			fmt.Fprintf(s.w, "\r\033[K%s reel #%d %s (%s)", frame, s.sequence, s.phase, formatElapsed(s.now().Sub(s.started)))
		}
		s.mu.Unlock()
	}
}
