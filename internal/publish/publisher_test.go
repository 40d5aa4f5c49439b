package publish

import (
	"context"
	"errors"
	"testing"
	"time"
)

type scriptedAPI struct {
	assetChecks []bool
	statuses    []State
	createErr   error
	publishErr  error

	assetCalls  int
	statusCalls int
	created     []string
	published   []string
}

func (a *scriptedAPI) AssetAvailable(ctx context.Context, videoURL string) (bool, error) {
	i := a.assetCalls
	a.assetCalls++
	if i < len(a.assetChecks) {
		return a.assetChecks[i], nil
	}
	return false, nil
}

func (a *scriptedAPI) CreateContainer(ctx context.Context, videoURL, caption string) (string, error) {
	if a.createErr != nil {
		return "", a.createErr
	}
	a.created = append(a.created, caption)
	return "c-1", nil
}

func (a *scriptedAPI) ContainerStatus(ctx context.Context, containerID string) (State, string, error) {
	i := a.statusCalls
	a.statusCalls++
	if i < len(a.statuses) {
		return a.statuses[i], string(a.statuses[i]), nil
	}
	return StateProcessing, "IN_PROGRESS", nil
}

func (a *scriptedAPI) PublishContainer(ctx context.Context, containerID string) (string, error) {
	if a.publishErr != nil {
		return "", a.publishErr
	}
	a.published = append(a.published, containerID)
	return "m-9", nil
}

func newTestPublisher(api API, sleeps *[]time.Duration) *Publisher {
	p := New(api, Options{
		AssetInterval: time.Second,
		AssetAttempts: 3,
		PollInterval:  5 * time.Second,
		PollAttempts:  4,
	}, nil)
	p.Sleep = func(ctx context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return ctx.Err()
	}
	return p
}

func TestPublishHappyPath(t *testing.T) {
	api := &scriptedAPI{
		assetChecks: []bool{false, true},
		statuses:    []State{StateProcessing, StateProcessing, StateFinished},
	}
	var sleeps []time.Duration
	p := newTestPublisher(api, &sleeps)

	var seen []State
	p.OnState = func(s State) { seen = append(seen, s) }

	out, err := p.Publish(context.Background(), Request{Sequence: 2, VideoURL: "https://host/reel_2.mp4", Caption: "Six!\n\n#cricket"})
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if out.ContainerID != "c-1" || out.MediaID != "m-9" || out.Polls != 3 {
		t.Fatalf("unexpected outcome %+v", out)
	}
	want := []State{StateCreated, StateProcessing, StateFinished}
	if len(seen) != len(want) {
		t.Fatalf("states = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("states = %v, want %v", seen, want)
		}
	}
	if api.assetCalls != 2 {
		t.Fatalf("asset checks = %d, want 2", api.assetCalls)
	}
	// One asset wait plus three polls.
	if len(sleeps) != 4 || sleeps[0] != time.Second || sleeps[1] != 5*time.Second {
		t.Fatalf("unexpected sleeps %v", sleeps)
	}
	if len(api.created) != 1 || api.created[0] != "Six!\n\n#cricket" {
		t.Fatalf("unexpected captions %v", api.created)
	}
}

func TestPublishRemoteError(t *testing.T) {
	api := &scriptedAPI{assetChecks: []bool{true}, statuses: []State{StateProcessing, StateError}}
	var sleeps []time.Duration
	_, err := newTestPublisher(api, &sleeps).Publish(context.Background(), Request{VideoURL: "https://host/r.mp4"})
	if !errors.Is(err, ErrRemoteProcessingFailed) {
		t.Fatalf("expected ErrRemoteProcessingFailed, got %v", err)
	}
	if len(api.published) != 0 {
		t.Fatal("must not publish a failed container")
	}
}

func TestPublishTimeout(t *testing.T) {
	api := &scriptedAPI{assetChecks: []bool{true}}
	var sleeps []time.Duration
	out, err := newTestPublisher(api, &sleeps).Publish(context.Background(), Request{VideoURL: "https://host/r.mp4"})
	if !errors.Is(err, ErrRemoteTimeout) {
		t.Fatalf("expected ErrRemoteTimeout, got %v", err)
	}
	if out.Polls != 4 || api.statusCalls != 4 {
		t.Fatalf("expected 4 polls, got %d (%d calls)", out.Polls, api.statusCalls)
	}
}

func TestPublishAssetUnavailable(t *testing.T) {
	api := &scriptedAPI{}
	var sleeps []time.Duration
	_, err := newTestPublisher(api, &sleeps).Publish(context.Background(), Request{VideoURL: "https://host/r.mp4"})
	if !errors.Is(err, ErrAssetUnavailable) {
		t.Fatalf("expected ErrAssetUnavailable, got %v", err)
	}
	if api.assetCalls != 3 || len(sleeps) != 2 {
		t.Fatalf("expected 3 checks with 2 waits, got %d checks %v", api.assetCalls, sleeps)
	}
	if len(api.created) != 0 {
		t.Fatal("container must not be created for an unreachable asset")
	}
}

func TestPublishSkipAssetCheck(t *testing.T) {
	api := &scriptedAPI{statuses: []State{StateFinished}}
	var sleeps []time.Duration
	p := newTestPublisher(api, &sleeps)
	p.Options.SkipAssetCheck = true
	if _, err := p.Publish(context.Background(), Request{VideoURL: "https://host/r.mp4"}); err != nil {
		t.Fatal(err)
	}
	if api.assetCalls != 0 {
		t.Fatal("asset check should be skipped")
	}
}

func TestPublishCancelled(t *testing.T) {
	api := &scriptedAPI{assetChecks: []bool{true}}
	var sleeps []time.Duration
	p := newTestPublisher(api, &sleeps)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Publish(ctx, Request{VideoURL: "https://host/r.mp4"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestMapStatus(t *testing.T) {
	cases := map[string]State{
		"IN_PROGRESS": StateProcessing,
		"FINISHED":    StateFinished,
		"PUBLISHED":   StateFinished,
		"ERROR":       StateError,
		"EXPIRED":     StateError,
		"finished":    StateFinished,
		"":            StateProcessing,
	}
	for code, want := range cases {
		if got := MapStatus(code); got != want {
			t.Errorf("MapStatus(%q) = %s, want %s", code, got, want)
		}
	}
}

func TestBuildCaptionAndURL(t *testing.T) {
	if got := BuildCaption(" What a shot! ", "#cricket"); got != "What a shot!\n\n#cricket" {
		t.Fatalf("BuildCaption = %q", got)
	}
	if got := BuildCaption("Howzat", ""); got != "Howzat" {
		t.Fatalf("BuildCaption without suffix = %q", got)
	}
	u, err := VideoURL("https://user.github.io/reels/", "reel_3.mp4")
	if err != nil || u != "https://user.github.io/reels/reel_3.mp4" {
		t.Fatalf("VideoURL = %q (%v)", u, err)
	}
	if _, err := VideoURL("", "reel_3.mp4"); err == nil {
		t.Fatal("expected error for empty base url")
	}
}
