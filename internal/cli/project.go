package cli

import (
	"fmt"
	"io"
	"log"

	"github.com/aaravmody/insta-cricket-bot/internal/config"
	"github.com/aaravmody/insta-cricket-bot/internal/logx"
	"github.com/aaravmody/insta-cricket-bot/internal/paths"
)

// keepLogs bounds the number of log files left in .reelbot/logs.
const keepLogs = 50

type project struct {
	Paths  paths.ProjectPaths
	Config config.Config
}

// loadProject resolves the project directory, reads reelbot.yaml and loads
// .env into the environment without overriding existing variables.
func loadProject() (project, error) {
	pp, err := paths.Resolve(projectDir)
	if err != nil {
		return project{}, err
	}
	if err := ensureProjectDirs(pp); err != nil {
		return project{}, err
	}

	cfg, err := config.Load(pp.ConfigFile)
	if err != nil {
		return project{}, err
	}
	pp = paths.ApplyConfig(pp, cfg)

	if err := config.LoadDotEnv(pp.EnvFile); err != nil {
		return project{}, err
	}
	return project{Paths: pp, Config: cfg}, nil
}

func ensureProjectDirs(pp paths.ProjectPaths) error {
	exists, err := paths.DirExists(pp.Root)
	if err != nil {
		return fmt.Errorf("stat project dir: %w", err)
	}
	if !exists {
		return fmt.Errorf("project directory does not exist: %s", pp.Root)
	}

	if err := pp.EnsureMetaDirs(); err != nil {
		return err
	}

	return nil
}

// openLog opens the per-command log file and prunes old ones.
func openLog(pp paths.ProjectPaths, command string) (*log.Logger, io.Closer, error) {
	logger, closer, err := logx.New(pp, command)
	if err != nil {
		return nil, nil, err
	}
	if err := logx.Prune(pp.LogsDir, keepLogs); err != nil {
		logger.Printf("prune logs: %v", err)
	}
	return logger, closer, nil
}

// validateProject reports configuration problems, printing warnings and
// failing on the first error.
func validateProject(p project, warn io.Writer) error {
	results := p.Config.Validate(p.Paths.Root)
	for _, r := range results {
		if r.Level == "warning" && warn != nil {
			fmt.Fprintf(warn, "warning: %s\n", r.Message)
		}
	}
	return config.FirstError(results)
}
