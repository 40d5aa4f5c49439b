package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/aaravmody/insta-cricket-bot/internal/cursor"
	"github.com/aaravmody/insta-cricket-bot/internal/schedule"
	"github.com/aaravmody/insta-cricket-bot/pkg/catalog"
)

func newCursorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cursor",
		Short: "Inspect or move the consumption cursor",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the last used entry number",
		Args:  cobra.NoArgs,
		RunE:  runCursorShow,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set N",
		Short: "Mark every entry up to N as used",
		Args:  cobra.ExactArgs(1),
		RunE:  runCursorSet,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Start again from the first entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return setCursor(cmd, 0)
		},
	})
	return cmd
}

type cursorJSON struct {
	Path      string `json:"path"`
	Cursor    int    `json:"last_used_message"`
	Next      int    `json:"next,omitempty"`
	Remaining int    `json:"remaining"`
	Total     int    `json:"total"`
}

func runCursorShow(cmd *cobra.Command, _ []string) error {
	p, err := loadProject()
	if err != nil {
		return err
	}
	cur := cursor.NewFileStore(p.Paths.TrackerFile).Load()
	return writeCursor(cmd, p, cur)
}

func runCursorSet(cmd *cobra.Command, args []string) error {
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 {
		return fmt.Errorf("cursor must be a non-negative integer, got %q", args[0])
	}
	return setCursor(cmd, n)
}

func setCursor(cmd *cobra.Command, n int) error {
	p, err := loadProject()
	if err != nil {
		return err
	}
	store := cursor.NewFileStore(p.Paths.TrackerFile)
	if err := store.Save(cursor.Cursor{LastUsedSequence: n}); err != nil {
		return err
	}
	return writeCursor(cmd, p, store.Load())
}

func writeCursor(cmd *cobra.Command, p project, cur cursor.Cursor) error {
	// The catalog is optional here so the cursor can be fixed even when the
	// catalog is broken.
	cat, catErr := catalog.Load(p.Paths.CatalogFile)

	payload := cursorJSON{Path: p.Paths.TrackerFile, Cursor: cur.LastUsedSequence}
	if catErr == nil {
		payload.Total = cat.Len()
		payload.Remaining = schedule.Remaining(cat, cur)
		for _, entry := range cat.Entries {
			if entry.Sequence > cur.LastUsedSequence {
				payload.Next = entry.Sequence
				break
			}
		}
	}

	if outputJSON {
		return writeJSON(cmd, payload)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "cursor: %d (%s)\n", payload.Cursor, payload.Path)
	if catErr != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", catErr)
		return nil
	}
	if payload.Next > 0 {
		fmt.Fprintf(out, "next entry: #%d, %d of %d remaining\n", payload.Next, payload.Remaining, payload.Total)
	} else {
		fmt.Fprintf(out, "all %d entries used\n", payload.Total)
	}
	return nil
}
