package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aaravmody/insta-cricket-bot/internal/config"
	"github.com/aaravmody/insta-cricket-bot/internal/logx"
	"github.com/aaravmody/insta-cricket-bot/internal/paths"
	"github.com/aaravmody/insta-cricket-bot/internal/schedule"
)

const (
	sampleCatalog = `1. What a delivery! That one nipped back off the seam and crashed into the stumps.
2. He has picked the length early and dispatched it over long on for six.
3. Brilliant catch at slip, the fielder dived full length to his right.
`
	sampleEnv = `# Copy to .env and fill in. Real environment variables take precedence.
IG_ACCESS_TOKEN=
IG_USER_ID=
OPENAI_API_KEY=
`
)

var (
	initExhaustion string
	initEngine     string
	initPublicURL  string
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Scaffold a reelbot project: config, sample catalog and media directories",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runInit,
	}

	cmd.Flags().StringVar(&initExhaustion, "exhaustion", "", "What to do when every entry is used: halt or wrap (required)")
	cmd.Flags().StringVar(&initEngine, "engine", config.EngineEdgeTTS, "Narration engine: edge-tts or openai")
	cmd.Flags().StringVar(&initPublicURL, "public-url", "", "Public base URL the rendered reels are served from")
	_ = cmd.MarkFlagRequired("exhaustion")

	return cmd
}

func resolveInitDir(projectFlag string, args []string) (string, error) {
	if projectFlag != "" {
		return projectFlag, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	if len(args) > 0 {
		if args[0] == "." {
			return cwd, nil
		}
		return filepath.Join(cwd, args[0]), nil
	}

	return nextAvailableDir(cwd)
}

func nextAvailableDir(base string) (string, error) {
	for i := 1; ; i++ {
		candidate := filepath.Join(base, fmt.Sprintf("reelbot-%d", i))
		exists, err := paths.DirExists(candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	policy, err := schedule.ParsePolicy(initExhaustion)
	if err != nil {
		return err
	}
	if initEngine != config.EngineEdgeTTS && initEngine != config.EngineOpenAI {
		return fmt.Errorf("unknown narration engine %q (edge-tts or openai)", initEngine)
	}

	dir, err := resolveInitDir(projectDir, args)
	if err != nil {
		return err
	}
	pp, err := paths.Resolve(dir)
	if err != nil {
		return err
	}
	if err := pp.EnsureRoot(); err != nil {
		return err
	}
	if err := pp.EnsureMetaDirs(); err != nil {
		return err
	}

	logger, closer, err := logx.New(pp, "init")
	if err != nil {
		return err
	}
	defer closer.Close()
	logger.Printf("reelbot init: project=%s exhaustion=%s engine=%s", pp.Root, policy, initEngine)

	sc := &scaffold{root: pp.Root, logger: logger}
	sc.file(pp.CatalogFile, func() ([]byte, error) { return []byte(sampleCatalog), nil })
	sc.file(filepath.Join(pp.Root, ".env.example"), func() ([]byte, error) { return []byte(sampleEnv), nil })
	sc.file(pp.ConfigFile, func() ([]byte, error) {
		cfg := config.Default()
		cfg.Catalog.Exhaustion = string(policy)
		cfg.Narration.Engine = initEngine
		cfg.Publish.PublicBaseURL = initPublicURL
		cfg.ApplyDefaults()
		return cfg.Marshal()
	})
	sc.dir(pp.BackgroundsDir)
	sc.dir(pp.OutputDir)
	if sc.err != nil {
		return sc.err
	}

	out := cmd.OutOrStdout()
	if len(sc.created) == 0 {
		fmt.Fprintf(out, "Project already initialized at %s\n", pp.Root)
		return nil
	}
	fmt.Fprintf(out, "Initialized project at %s (exhaustion %s)\n", pp.Root, policy)
	fprintLines(out, sc.created)
	fmt.Fprintf(out, "Add background clips to %s before running `reelbot generate`.\n", pp.BackgroundsDir)
	return nil
}

// scaffold creates missing project files, never overwriting existing ones.
// The first error stops every later step.
type scaffold struct {
	root    string
	logger  logx.Logger
	created []string
	err     error
}

func (s *scaffold) file(path string, content func() ([]byte, error)) {
	if s.err != nil {
		return
	}
	if exists, err := paths.FileExists(path); err != nil || exists {
		s.err = err
		return
	}
	data, err := content()
	if err != nil {
		s.err = err
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.err = fmt.Errorf("write %s: %w", filepath.Base(path), err)
		return
	}
	s.record(path, "")
}

func (s *scaffold) dir(path string) {
	if s.err != nil {
		return
	}
	if exists, err := paths.DirExists(path); err != nil || exists {
		s.err = err
		return
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		s.err = fmt.Errorf("create %s: %w", path, err)
		return
	}
	s.record(path, string(filepath.Separator))
}

func (s *scaffold) record(path, suffix string) {
	s.logger.Printf("created %s", path)
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		rel = path
	}
	s.created = append(s.created, "  created "+rel+suffix)
}
