package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aaravmody/insta-cricket-bot/internal/config"
	"github.com/aaravmody/insta-cricket-bot/internal/paths"
	"github.com/aaravmody/insta-cricket-bot/internal/tools"
)

var toolsStrict bool

func newToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Check ffmpeg, ffprobe and edge-tts",
		RunE:  runTools,
	}

	cmd.Flags().BoolVar(&toolsStrict, "strict", false, "Exit non-zero when a required tool is missing or too old")

	return cmd
}

func detectTools(cmd *cobra.Command, cfg config.Config) []tools.Status {
	return tools.NewDetector(nil, tools.Overrides(cfg.Tools), cfg.Tools.Minimums, cfg.Narration.Engine).Detect(cmd.Context())
}

func runTools(cmd *cobra.Command, _ []string) error {
	pp, err := paths.Resolve(projectDir)
	if err != nil {
		return err
	}
	cfg, err := config.Load(pp.ConfigFile)
	if err != nil {
		return err
	}

	statuses := detectTools(cmd, cfg)
	if outputJSON {
		if err := writeJSON(cmd, statuses); err != nil {
			return err
		}
	} else {
		printToolTable(cmd, statuses)
	}

	if failing := tools.Failing(statuses); toolsStrict && len(failing) > 0 {
		return fmt.Errorf("%d required tool(s) missing or outdated", len(failing))
	}
	return nil
}

func printToolTable(cmd *cobra.Command, statuses []tools.Status) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "TOOL\tVERSION\tMIN\tSTATE\tPATH")
	for _, st := range statuses {
		version := "-"
		if st.Version != nil {
			version = st.Version.String()
		}
		state := "ok"
		switch {
		case st.OK:
		case !st.Required:
			state = "unused"
		default:
			state = "FAIL"
		}
		path := nonEmptyOrDash(st.Path)
		if st.Configured {
			path += " (config)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", st.Name, version, st.Minimum, state, path)
	}
	w.Flush()

	out := cmd.OutOrStdout()
	for _, st := range statuses {
		if st.Problem != "" && st.Required {
			fmt.Fprintf(out, "%s: %s\n", st.Name, st.Problem)
			if st.Hint != "" {
				fmt.Fprintf(out, "  hint: %s\n", st.Hint)
			}
		}
		for _, note := range st.Notes {
			fmt.Fprintf(out, "%s: note: %s\n", st.Name, note)
		}
	}
}
