package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/aaravmody/insta-cricket-bot/internal/config"
	"github.com/aaravmody/insta-cricket-bot/internal/cursor"
	"github.com/aaravmody/insta-cricket-bot/internal/logx"
	"github.com/aaravmody/insta-cricket-bot/internal/paths"
	"github.com/aaravmody/insta-cricket-bot/internal/publish"
	"github.com/aaravmody/insta-cricket-bot/internal/tui"
	"github.com/aaravmody/insta-cricket-bot/pkg/catalog"
)

var (
	publishSequence       int
	publishDryRun         bool
	publishSkipAssetCheck bool
)

func newPublishCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish a rendered reel to Instagram",
		Long: "Publish uploads the reel for the entry at the cursor (the last one generated),\n" +
			"or the entry given with --sequence, using the Instagram Graph API.",
		RunE: runPublish,
	}

	cmd.Flags().IntVar(&publishSequence, "sequence", 0, "Catalog entry to publish (defaults to the cursor)")
	cmd.Flags().BoolVar(&publishDryRun, "dry-run", false, "Print the caption and video URL without calling the API")
	cmd.Flags().BoolVar(&publishSkipAssetCheck, "skip-asset-check", false, "Do not wait for the video URL to become reachable")

	return cmd
}

// publishPlan is everything resolved locally before talking to the API.
type publishPlan struct {
	Sequence  int    `json:"sequence"`
	Caption   string `json:"caption"`
	VideoURL  string `json:"video_url"`
	LocalPath string `json:"local_path"`
}

type publishJSON struct {
	Project     string          `json:"project"`
	Plan        publishPlan     `json:"plan"`
	DryRun      bool            `json:"dry_run,omitempty"`
	ContainerID string          `json:"container_id,omitempty"`
	MediaID     string          `json:"media_id,omitempty"`
	States      []publish.State `json:"states,omitempty"`
	Error       string          `json:"error,omitempty"`
}

func runPublish(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	p, err := loadProject()
	if err != nil {
		return err
	}

	logger, closer, err := openLog(p.Paths, "publish")
	if err != nil {
		return err
	}
	defer closer.Close()

	cat, err := loadCatalog(p, cmd.ErrOrStderr(), logger)
	if err != nil {
		return err
	}

	plan, err := resolvePublishPlan(p, cat, publishSequence)
	if err != nil {
		return err
	}
	logger.Printf("reelbot publish: sequence=%d url=%s dry_run=%v", plan.Sequence, plan.VideoURL, publishDryRun)

	if publishDryRun {
		if outputJSON {
			return writeJSON(cmd, publishJSON{Project: p.Paths.Root, Plan: plan, DryRun: true})
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "entry #%d\n", plan.Sequence)
		fmt.Fprintf(out, "video: %s\n", plan.VideoURL)
		fmt.Fprintf(out, "caption:\n%s\n", plan.Caption)
		return nil
	}

	pub, err := newPublisher(p, logger, publishSkipAssetCheck)
	if err != nil {
		return err
	}

	var status *tui.PublishStatus
	if tui.DetectMode(cmd.ErrOrStderr(), noProgress, outputJSON) == tui.ModeTUI {
		status = tui.NewPublishStatus(cmd.ErrOrStderr(), plan.Sequence, plan.VideoURL)
		pub.OnState = status.Observe
	} else if !outputJSON {
		pub.OnState = stateLine(cmd.ErrOrStderr(), plan.Sequence)
	}

	outcome, pubErr := pub.Publish(ctx, publish.Request{
		Sequence: plan.Sequence,
		VideoURL: plan.VideoURL,
		Caption:  plan.Caption,
	})
	if status != nil {
		status.Stop()
	}
	if pubErr != nil {
		logger.Printf("publish #%d failed: %v", plan.Sequence, pubErr)
	}

	if outputJSON {
		if err := writeJSON(cmd, publishJSON{
			Project:     p.Paths.Root,
			Plan:        plan,
			ContainerID: outcome.ContainerID,
			MediaID:     outcome.MediaID,
			States:      outcome.States,
			Error:       errorString(pubErr),
		}); err != nil {
			return err
		}
		return pubErr
	}
	if pubErr != nil {
		return fmt.Errorf("publish reel #%d: %w", plan.Sequence, pubErr)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "published reel #%d as media %s\n", plan.Sequence, outcome.MediaID)
	return nil
}

// resolvePublishPlan finds the entry to publish and checks its render exists.
// sequence 0 selects the entry at the persisted cursor.
func resolvePublishPlan(p project, cat catalog.Catalog, sequence int) (publishPlan, error) {
	if sequence <= 0 {
		sequence = cursor.NewFileStore(p.Paths.TrackerFile).Load().LastUsedSequence
		if sequence == 0 {
			return publishPlan{}, errors.New("nothing generated yet: cursor is at 0")
		}
	}

	entry, ok := cat.Lookup(sequence)
	if !ok {
		return publishPlan{}, fmt.Errorf("catalog has no entry #%d", sequence)
	}

	localPath := p.Paths.OutputPath(p.Config, sequence)
	exists, err := paths.FileExists(localPath)
	if err != nil {
		return publishPlan{}, fmt.Errorf("stat reel: %w", err)
	}
	if !exists {
		return publishPlan{}, fmt.Errorf("reel #%d has not been rendered (expected %s)", sequence, localPath)
	}

	videoURL, err := publish.VideoURL(p.Config.Publish.PublicBaseURL, p.Config.OutputFilename(sequence))
	if err != nil {
		return publishPlan{}, err
	}

	return publishPlan{
		Sequence:  sequence,
		Caption:   publish.BuildCaption(entry.Text, p.Config.Publish.CaptionSuffix),
		VideoURL:  videoURL,
		LocalPath: localPath,
	}, nil
}

func newPublisher(p project, logger logx.Logger, skipAssetCheck bool) (*publish.Publisher, error) {
	cfg := p.Config.Publish
	token, err := config.Secret(cfg.AccessTokenEnv)
	if err != nil {
		return nil, err
	}
	userID, err := config.Secret(cfg.UserIDEnv)
	if err != nil {
		return nil, err
	}

	client := publish.NewGraphClient(cfg.GraphBaseURL, cfg.APIVersion, token, userID, nil)
	return publish.New(client, publish.Options{
		AssetInterval:  cfg.AssetInterval(),
		AssetAttempts:  cfg.AssetAttempts,
		PollInterval:   cfg.PollInterval(),
		PollAttempts:   cfg.PollAttempts,
		SkipAssetCheck: skipAssetCheck,
	}, logger), nil
}

func stateLine(w io.Writer, sequence int) func(publish.State) {
	return func(s publish.State) {
		fmt.Fprintf(w, "reel #%d container %s\n", sequence, s)
	}
}
