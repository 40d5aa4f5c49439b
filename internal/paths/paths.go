package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aaravmody/insta-cricket-bot/internal/config"
)

// ProjectPaths captures canonical locations for a reelbot project.
type ProjectPaths struct {
	Root           string
	ConfigFile     string
	EnvFile        string
	CatalogFile    string
	TrackerFile    string
	BackgroundsDir string
	FontFile       string
	OutputDir      string
	MetaDir        string
	WorkDir        string
	LogsDir        string
}

// Resolve determines the project root using the optional --project flag or the
// current working directory when the flag is empty.
func Resolve(projectFlag string) (ProjectPaths, error) {
	var (
		root string
		err  error
	)

	if projectFlag != "" {
		root, err = filepath.Abs(projectFlag)
	} else {
		root, err = os.Getwd()
	}
	if err != nil {
		return ProjectPaths{}, fmt.Errorf("resolve project root: %w", err)
	}

	return newProjectPaths(root), nil
}

func newProjectPaths(root string) ProjectPaths {
	metaDir := filepath.Join(root, ".reelbot")
	return ProjectPaths{
		Root:           root,
		ConfigFile:     filepath.Join(root, "reelbot.yaml"),
		EnvFile:        filepath.Join(root, ".env"),
		CatalogFile:    filepath.Join(root, "comments.txt"),
		TrackerFile:    filepath.Join(root, "message_tracker.json"),
		BackgroundsDir: filepath.Join(root, "backgrounds"),
		OutputDir:      filepath.Join(root, "reels"),
		MetaDir:        metaDir,
		WorkDir:        filepath.Join(metaDir, "work"),
		LogsDir:        filepath.Join(metaDir, "logs"),
	}
}

// ApplyConfig points the configurable locations at the values from cfg.
func ApplyConfig(pp ProjectPaths, cfg config.Config) ProjectPaths {
	if v := strings.TrimSpace(cfg.Catalog.File); v != "" {
		pp.CatalogFile = resolveProjectPath(pp.Root, v)
	}
	if v := strings.TrimSpace(cfg.Catalog.TrackerFile); v != "" {
		pp.TrackerFile = resolveProjectPath(pp.Root, v)
	}
	if v := strings.TrimSpace(cfg.Backgrounds.Dir); v != "" {
		pp.BackgroundsDir = resolveProjectPath(pp.Root, v)
	}
	if v := strings.TrimSpace(cfg.Captions.FontFile); v != "" {
		pp.FontFile = resolveProjectPath(pp.Root, v)
	}
	if v := strings.TrimSpace(cfg.Outputs.Directory); v != "" {
		pp.OutputDir = resolveProjectPath(pp.Root, v)
	}
	return pp
}

// OutputPath returns the render destination for a catalog entry.
func (p ProjectPaths) OutputPath(cfg config.Config, sequence int) string {
	return filepath.Join(p.OutputDir, cfg.OutputFilename(sequence))
}

func resolveProjectPath(root, value string) string {
	if filepath.IsAbs(value) {
		return filepath.Clean(value)
	}
	return filepath.Join(root, value)
}

// EnsureRoot makes sure the project root exists on disk.
func (p ProjectPaths) EnsureRoot() error {
	if err := os.MkdirAll(p.Root, 0o755); err != nil {
		return fmt.Errorf("create project root: %w", err)
	}
	return nil
}

// EnsureMetaDirs creates the hidden .reelbot hierarchy.
func (p ProjectPaths) EnsureMetaDirs() error {
	dirs := []string{p.MetaDir, p.WorkDir, p.LogsDir}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// FileExists reports whether a path exists and is a regular file.
func FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// DirExists reports whether a path exists and is a directory.
func DirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}
