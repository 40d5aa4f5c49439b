package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/aaravmody/insta-cricket-bot/internal/background"
	"github.com/aaravmody/insta-cricket-bot/internal/captions"
	"github.com/aaravmody/insta-cricket-bot/internal/config"
	"github.com/aaravmody/insta-cricket-bot/internal/cursor"
	"github.com/aaravmody/insta-cricket-bot/internal/paths"
	"github.com/aaravmody/insta-cricket-bot/internal/schedule"
	"github.com/aaravmody/insta-cricket-bot/internal/serve"
	"github.com/aaravmody/insta-cricket-bot/internal/tools"
	"github.com/aaravmody/insta-cricket-bot/internal/tui"
	"github.com/aaravmody/insta-cricket-bot/pkg/catalog"
)

const (
	checkOK      = "ok"
	checkWarning = "warning"
	checkError   = "error"
)

var doctorStrict bool

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that the project can generate and publish a reel",
		Args:  cobra.NoArgs,
		RunE:  runDoctor,
	}
	cmd.Flags().BoolVar(&doctorStrict, "strict", false, "Exit non-zero when any check reports an error")
	return cmd
}

type healthCheck struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Summary string `json:"summary"`
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	pp, err := paths.Resolve(projectDir)
	if err != nil {
		return err
	}
	if ok, err := paths.DirExists(pp.Root); err != nil || !ok {
		return fmt.Errorf("project directory does not exist: %s", pp.Root)
	}

	cfg, cfgErr := config.Load(pp.ConfigFile)
	checks := []healthCheck{checkConfig(pp, cfg, cfgErr)}
	if cfgErr == nil {
		pp = paths.ApplyConfig(pp, cfg)
		if err := config.LoadDotEnv(pp.EnvFile); err != nil {
			checks = append(checks, healthCheck{"Env", checkWarning, err.Error()})
		}
		checks = append(checks, checkTools(cmd, cfg))

		cat, catCheck := checkCatalog(pp)
		checks = append(checks, catCheck)
		if catCheck.Status != checkError {
			checks = append(checks, checkCursor(pp, cfg, cat))
		}
		checks = append(checks,
			checkBackgrounds(pp, cfg),
			checkFont(pp, cfg),
			checkSecrets(cfg),
			checkOutputs(pp, cfg),
		)
	}

	if err := writeDoctorResult(cmd, pp.Root, checks); err != nil {
		return err
	}
	if doctorStrict {
		for _, c := range checks {
			if c.Status == checkError {
				return fmt.Errorf("doctor: %s: %s", c.Name, c.Summary)
			}
		}
	}
	return nil
}

func checkConfig(pp paths.ProjectPaths, cfg config.Config, cfgErr error) healthCheck {
	if cfgErr != nil {
		return healthCheck{"Config", checkError, cfgErr.Error()}
	}

	var warnings []string
	for _, v := range cfg.Validate(pp.Root) {
		if v.Level == "error" {
			return healthCheck{"Config", checkError, v.Message}
		}
		warnings = append(warnings, v.Message)
	}

	summary := fmt.Sprintf("engine %s, exhaustion %s", nonEmptyOrDash(cfg.Narration.Engine), nonEmptyOrDash(cfg.Catalog.Exhaustion))
	if len(warnings) > 0 {
		return healthCheck{"Config", checkWarning, fmt.Sprintf("%s; %s", summary, strings.Join(warnings, "; "))}
	}
	return healthCheck{"Config", checkOK, summary}
}

func checkTools(cmd *cobra.Command, cfg config.Config) healthCheck {
	statuses := detectTools(cmd, cfg)
	if failing := tools.Failing(statuses); len(failing) > 0 {
		problems := make([]string, len(failing))
		for i, st := range failing {
			problems[i] = st.Name + ": " + st.Problem
		}
		return healthCheck{"Tools", checkError, strings.Join(problems, "; ")}
	}

	var found []string
	for _, st := range statuses {
		if st.OK && st.Version != nil {
			found = append(found, st.Name+" "+st.Version.String())
		}
	}
	return healthCheck{"Tools", checkOK, strings.Join(found, ", ")}
}

func checkCatalog(pp paths.ProjectPaths) (catalog.Catalog, healthCheck) {
	cat, err := catalog.Load(pp.CatalogFile)
	if err != nil {
		return cat, healthCheck{"Catalog", checkError, err.Error()}
	}
	summary := fmt.Sprintf("%d entries (#%d..#%d)", cat.Len(), cat.Entries[0].Sequence, cat.Entries[cat.Len()-1].Sequence)
	if n := len(cat.Issues); n > 0 {
		return cat, healthCheck{"Catalog", checkWarning, fmt.Sprintf("%s; %d issues, first: %s", summary, n, cat.Issues[0].String())}
	}
	return cat, healthCheck{"Catalog", checkOK, summary}
}

func checkCursor(pp paths.ProjectPaths, cfg config.Config, cat catalog.Catalog) healthCheck {
	policy, err := schedule.ParsePolicy(cfg.Catalog.Exhaustion)
	if err != nil {
		return healthCheck{"Cursor", checkError, err.Error()}
	}
	cur := cursor.NewFileStore(pp.TrackerFile).Load()
	remaining := schedule.Remaining(cat, cur)
	summary := fmt.Sprintf("at %d, %d remaining", cur.LastUsedSequence, remaining)

	switch {
	case remaining > 0:
		return healthCheck{"Cursor", checkOK, summary}
	case policy == schedule.PolicyHalt:
		return healthCheck{"Cursor", checkWarning, summary + "; generate will halt"}
	default:
		return healthCheck{"Cursor", checkOK, summary + "; next run wraps"}
	}
}

func checkBackgrounds(pp paths.ProjectPaths, cfg config.Config) healthCheck {
	pool, err := background.List(pp.BackgroundsDir, cfg.Backgrounds.Extensions)
	if err != nil {
		return healthCheck{"Backgrounds", checkError, err.Error()}
	}
	return healthCheck{"Backgrounds", checkOK, fmt.Sprintf("%d clips in %s", len(pool), pp.BackgroundsDir)}
}

func checkFont(pp paths.ProjectPaths, cfg config.Config) healthCheck {
	renderer := captions.NewRenderer(captions.Style{FontFile: pp.FontFile})
	if reason := renderer.FallbackReason(); reason != nil {
		return healthCheck{"Font", checkWarning, "built-in face: " + reason.Error()}
	}
	return healthCheck{"Font", checkOK, cfg.Captions.FontFile}
}

func checkSecrets(cfg config.Config) healthCheck {
	names := []string{cfg.Publish.AccessTokenEnv, cfg.Publish.UserIDEnv}
	if cfg.Narration.Engine == config.EngineOpenAI {
		names = append(names, cfg.Narration.APIKeyEnv)
	}
	var unset []string
	for _, name := range names {
		if strings.TrimSpace(os.Getenv(name)) == "" {
			unset = append(unset, name)
		}
	}
	if len(unset) > 0 {
		return healthCheck{"Secrets", checkWarning, "unset: " + strings.Join(unset, ", ")}
	}
	return healthCheck{"Secrets", checkOK, strings.Join(names, ", ")}
}

func checkOutputs(pp paths.ProjectPaths, cfg config.Config) healthCheck {
	reels, err := serve.ListReels(pp.OutputDir)
	if err != nil {
		return healthCheck{"Outputs", checkWarning, err.Error()}
	}
	summary := fmt.Sprintf("%d reels in %s", len(reels), pp.OutputDir)
	if strings.TrimSpace(cfg.Publish.PublicBaseURL) == "" {
		return healthCheck{"Outputs", checkWarning, summary + "; publish.public_base_url unset"}
	}
	return healthCheck{"Outputs", checkOK, summary + ", served at " + cfg.Publish.PublicBaseURL}
}

var doctorLabels = map[string]string{checkOK: "OK", checkWarning: "WARN", checkError: "ERROR"}

func writeDoctorResult(cmd *cobra.Command, projectRoot string, checks []healthCheck) error {
	if outputJSON {
		return writeJSON(cmd, struct {
			Project string        `json:"project"`
			Checks  []healthCheck `json:"checks"`
		}{projectRoot, checks})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, tui.TitleStyle.Render("reelbot doctor")+" "+projectRoot)
	nameStyle := lipgloss.NewStyle().Width(13)
	labelStyle := lipgloss.NewStyle().Width(7)
	counts := map[string]int{}
	for _, c := range checks {
		counts[c.Status]++
		label := tui.StatusStyle(c.Status).Render(labelStyle.Render(doctorLabels[c.Status]))
		fmt.Fprintf(out, "  %s %s %s\n", nameStyle.Render(c.Name), label, c.Summary)
	}
	fmt.Fprintf(out, "%d ok, %d warnings, %d errors\n", counts[checkOK], counts[checkWarning], counts[checkError])
	return nil
}
