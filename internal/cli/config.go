package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aaravmody/insta-cricket-bot/internal/config"
	"github.com/aaravmody/insta-cricket-bot/internal/paths"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect, check or edit reelbot.yaml",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration, defaults filled in",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Check the configuration against the project on disk",
		Args:  cobra.NoArgs,
		RunE:  runConfigValidate,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "edit",
		Short: "Open reelbot.yaml in $EDITOR and validate the result",
		Args:  cobra.NoArgs,
		RunE:  runConfigEdit,
	})
	return cmd
}

type configJSON struct {
	Path        string                    `json:"path"`
	Config      config.Config             `json:"config"`
	Validations []config.ValidationResult `json:"validations,omitempty"`
}

func loadConfigOnly() (paths.ProjectPaths, config.Config, error) {
	pp, err := paths.Resolve(projectDir)
	if err != nil {
		return pp, config.Config{}, err
	}
	cfg, err := config.Load(pp.ConfigFile)
	return pp, cfg, err
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	pp, cfg, err := loadConfigOnly()
	if err != nil {
		return err
	}
	if outputJSON {
		return writeJSON(cmd, configJSON{Path: pp.ConfigFile, Config: cfg, Validations: cfg.Validate(pp.Root)})
	}

	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", pp.ConfigFile, data)
	return nil
}

func runConfigValidate(cmd *cobra.Command, _ []string) error {
	pp, cfg, err := loadConfigOnly()
	if err != nil {
		return err
	}
	results := cfg.Validate(pp.Root)
	if outputJSON {
		if err := writeJSON(cmd, configJSON{Path: pp.ConfigFile, Config: cfg, Validations: results}); err != nil {
			return err
		}
		return config.FirstError(results)
	}
	printValidations(cmd, pp.ConfigFile, results)
	return config.FirstError(results)
}

func printValidations(cmd *cobra.Command, path string, results []config.ValidationResult) {
	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintf(out, "%s: ok\n", path)
		return
	}
	for _, r := range results {
		fmt.Fprintf(out, "%s: %s: %s\n", path, r.Level, r.Message)
	}
}

func runConfigEdit(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	pp, err := paths.Resolve(projectDir)
	if err != nil {
		return err
	}
	exists, err := paths.FileExists(pp.ConfigFile)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%s does not exist; run `reelbot init --exhaustion halt|wrap` first", pp.ConfigFile)
	}

	argv := editorCommand(os.Getenv("VISUAL"), os.Getenv("EDITOR"))
	editor := exec.CommandContext(ctx, argv[0], append(argv[1:], pp.ConfigFile)...)
	editor.Stdin = cmd.InOrStdin()
	editor.Stdout = cmd.OutOrStdout()
	editor.Stderr = cmd.ErrOrStderr()
	editor.Dir = pp.Root
	if err := editor.Run(); err != nil {
		return fmt.Errorf("editor %s: %w", argv[0], err)
	}

	cfg, err := config.Load(pp.ConfigFile)
	if err != nil {
		return errors.Join(errors.New("edited config no longer parses"), err)
	}
	results := cfg.Validate(pp.Root)
	printValidations(cmd, pp.ConfigFile, results)
	return config.FirstError(results)
}

// editorCommand splits the first non-empty of visual and editor on
// whitespace, falling back to vi.
func editorCommand(visual, editor string) []string {
	for _, value := range []string{visual, editor} {
		if fields := strings.Fields(value); len(fields) > 0 {
			return fields
		}
	}
	return []string{"vi"}
}
