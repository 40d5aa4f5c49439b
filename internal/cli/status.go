package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aaravmody/insta-cricket-bot/internal/cursor"
	"github.com/aaravmody/insta-cricket-bot/internal/paths"
	"github.com/aaravmody/insta-cricket-bot/internal/schedule"
	"github.com/aaravmody/insta-cricket-bot/pkg/catalog"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show catalog entries and which have been used",
		RunE:  runStatus,
	}
	return cmd
}

type statusJSONRow struct {
	Sequence int    `json:"sequence"`
	Line     int    `json:"line"`
	State    string `json:"state"`
	Rendered bool   `json:"rendered"`
	Text     string `json:"text"`
}

type statusJSON struct {
	Project    string          `json:"project"`
	Catalog    string          `json:"catalog"`
	Cursor     int             `json:"cursor"`
	Exhaustion string          `json:"exhaustion"`
	Remaining  int             `json:"remaining"`
	Rows       []statusJSONRow `json:"rows"`
	Issues     []string        `json:"issues,omitempty"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	p, err := loadProject()
	if err != nil {
		return err
	}

	cat, err := catalog.Load(p.Paths.CatalogFile)
	if err != nil {
		return err
	}
	cur := cursor.NewFileStore(p.Paths.TrackerFile).Load()

	payload := buildStatus(p, cat, cur)
	if outputJSON {
		return writeJSON(cmd, payload)
	}
	writeStatusTable(cmd, payload)
	return nil
}

func buildStatus(p project, cat catalog.Catalog, cur cursor.Cursor) statusJSON {
	payload := statusJSON{
		Project:    p.Paths.Root,
		Catalog:    p.Paths.CatalogFile,
		Cursor:     cur.LastUsedSequence,
		Exhaustion: p.Config.Catalog.Exhaustion,
		Remaining:  schedule.Remaining(cat, cur),
		Rows:       make([]statusJSONRow, 0, cat.Len()),
	}

	next := 0
	if policy, err := schedule.ParsePolicy(p.Config.Catalog.Exhaustion); err == nil {
		if sel, err := schedule.SelectNext(cat, cur, policy); err == nil && sel.IsSelected() {
			next = sel.Entry.Sequence
		}
	}

	for _, entry := range cat.Entries {
		state := "unused"
		switch {
		case entry.Sequence == next:
			state = "next"
		case entry.Sequence <= cur.LastUsedSequence:
			state = "used"
		}
		rendered, _ := paths.FileExists(p.Paths.OutputPath(p.Config, entry.Sequence))
		payload.Rows = append(payload.Rows, statusJSONRow{
			Sequence: entry.Sequence,
			Line:     entry.Line,
			State:    state,
			Rendered: rendered,
			Text:     entry.Text,
		})
	}
	for _, issue := range cat.Issues {
		payload.Issues = append(payload.Issues, issue.String())
	}
	return payload
}

func writeStatusTable(cmd *cobra.Command, payload statusJSON) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Project: %s\n", payload.Project)
	fmt.Fprintf(out, "Cursor: %d (%d remaining, exhaustion %s)\n", payload.Cursor, payload.Remaining, nonEmptyOrDash(payload.Exhaustion))

	w := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "#\tSTATE\tREEL\tTEXT")
	for _, row := range payload.Rows {
		reel := "-"
		if row.Rendered {
			reel = "yes"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", row.Sequence, row.State, reel, excerpt(row.Text, 60))
	}
	w.Flush()

	if len(payload.Issues) > 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "Catalog issues:")
		for _, issue := range payload.Issues {
			fmt.Fprintf(cmd.ErrOrStderr(), "  - %s\n", issue)
		}
	}
}
