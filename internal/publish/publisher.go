// Package publish uploads rendered reels through the Instagram Graph API.
package publish

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aaravmody/insta-cricket-bot/internal/logx"
)

var (
	// ErrRemoteProcessingFailed is returned when the container ends in ERROR.
	ErrRemoteProcessingFailed = errors.New("remote processing failed")
	// ErrRemoteTimeout is returned when the container never finishes.
	ErrRemoteTimeout = errors.New("remote processing timed out")
	// ErrAssetUnavailable is returned when the video URL never becomes reachable.
	ErrAssetUnavailable = errors.New("video asset unavailable")
)

// State is the lifecycle of a remote upload container.
type State string

const (
	StateCreated    State = "CREATED"
	StateProcessing State = "PROCESSING"
	StateFinished   State = "FINISHED"
	StateError      State = "ERROR"
)

// MapStatus converts a Graph status_code into a State.
func MapStatus(code string) State {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "FINISHED", "PUBLISHED":
		return StateFinished
	case "ERROR", "EXPIRED":
		return StateError
	case "IN_PROGRESS":
		return StateProcessing
	default:
		return StateProcessing
	}
}

// API is the subset of the Graph API the publisher drives.
type API interface {
	AssetAvailable(ctx context.Context, videoURL string) (bool, error)
	CreateContainer(ctx context.Context, videoURL, caption string) (string, error)
	ContainerStatus(ctx context.Context, containerID string) (State, string, error)
	PublishContainer(ctx context.Context, containerID string) (string, error)
}

// Options bounds the waits performed while publishing.
type Options struct {
	AssetInterval  time.Duration
	AssetAttempts  int
	PollInterval   time.Duration
	PollAttempts   int
	SkipAssetCheck bool
}

// Request is one reel to publish.
type Request struct {
	Sequence int
	VideoURL string
	Caption  string
}

// Outcome describes a publish attempt.
type Outcome struct {
	ContainerID string
	MediaID     string
	States      []State
	Polls       int
}

// Publisher runs the create, poll, publish sequence. It never touches local
// state.
type Publisher struct {
	API     API
	Options Options
	Logger  logx.Logger
	// Sleep waits between attempts; tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnState is called on every state transition.
	OnState func(State)
}

// New returns a publisher with real sleeping.
func New(api API, opts Options, logger logx.Logger) *Publisher {
	return &Publisher{API: api, Options: opts, Logger: logger, Sleep: sleepContext}
}

// Publish uploads req and waits for the remote side to finish processing.
func (p *Publisher) Publish(ctx context.Context, req Request) (Outcome, error) {
	var out Outcome
	if strings.TrimSpace(req.VideoURL) == "" {
		return out, errors.New("video url is empty")
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	if !p.Options.SkipAssetCheck {
		if err := p.waitForAsset(ctx, req, sleep); err != nil {
			return out, err
		}
	}

	containerID, err := p.API.CreateContainer(ctx, req.VideoURL, req.Caption)
	if err != nil {
		return out, err
	}
	out.ContainerID = containerID
	p.transition(&out, StateCreated)
	p.logf("reel #%d: container %s created for %s", req.Sequence, containerID, req.VideoURL)

	attempts := max(p.Options.PollAttempts, 1)
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := sleep(ctx, p.Options.PollInterval); err != nil {
			return out, err
		}
		state, detail, err := p.API.ContainerStatus(ctx, containerID)
		if err != nil {
			return out, err
		}
		out.Polls = attempt
		p.transition(&out, state)
		p.logf("reel #%d: container %s status %s (%s), poll %d/%d", req.Sequence, containerID, state, detail, attempt, attempts)

		switch state {
		case StateFinished:
			mediaID, err := p.API.PublishContainer(ctx, containerID)
			if err != nil {
				return out, err
			}
			out.MediaID = mediaID
			p.logf("reel #%d: published media %s", req.Sequence, mediaID)
			return out, nil
		case StateError:
			return out, fmt.Errorf("%w: container %s: %s", ErrRemoteProcessingFailed, containerID, detail)
		}
	}
	return out, fmt.Errorf("%w: container %s still processing after %d polls", ErrRemoteTimeout, containerID, attempts)
}

func (p *Publisher) waitForAsset(ctx context.Context, req Request, sleep func(context.Context, time.Duration) error) error {
	attempts := max(p.Options.AssetAttempts, 1)
	for attempt := 1; attempt <= attempts; attempt++ {
		ok, err := p.API.AssetAvailable(ctx, req.VideoURL)
		if err != nil {
			return err
		}
		if ok {
			p.logf("reel #%d: asset available after %d check(s)", req.Sequence, attempt)
			return nil
		}
		if attempt < attempts {
			if err := sleep(ctx, p.Options.AssetInterval); err != nil {
				return err
			}
		}
	}
	return fmt.Errorf("%w: %s not reachable after %d checks", ErrAssetUnavailable, req.VideoURL, attempts)
}

func (p *Publisher) transition(out *Outcome, state State) {
	if n := len(out.States); n > 0 && out.States[n-1] == state {
		return
	}
	out.States = append(out.States, state)
	if p.OnState != nil {
		p.OnState(state)
	}
}

func (p *Publisher) logf(format string, args ...any) {
	if p.Logger != nil {
		p.Logger.Printf(format, args...)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// BuildCaption appends the configured suffix to the entry text.
func BuildCaption(text, suffix string) string {
	text = strings.TrimSpace(text)
	suffix = strings.TrimSpace(suffix)
	switch {
	case suffix == "":
		return text
	case text == "":
		return suffix
	default:
		return text + "\n\n" + suffix
	}
}

// VideoURL joins the public base URL and a rendered file name.
func VideoURL(base, filename string) (string, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		return "", errors.New("public base url is not configured")
	}
	joined, err := url.JoinPath(base, filename)
	if err != nil {
		return "", fmt.Errorf("build video url: %w", err)
	}
	return joined, nil
}
