package logx

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aaravmody/insta-cricket-bot/internal/paths"
)

// Logger is the logging surface accepted by the pipeline, publisher and
// scheduler. *log.Logger satisfies it.
type Logger interface {
	Printf(format string, args ...any)
}

// Discard is a Logger that drops every line.
var Discard Logger = log.New(io.Discard, "", 0)

// New creates a logger that writes to <command>-<timestamp>.log inside the
// project's logs directory. The returned closer should be closed when logging
// is no longer needed.
func New(p paths.ProjectPaths, command string) (*log.Logger, io.Closer, error) {
	if err := os.MkdirAll(p.LogsDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("ensure logs directory: %w", err)
	}

	name := time.Now().Format("20060102-150405") + ".log"
	if command = strings.TrimSpace(command); command != "" {
		name = command + "-" + name
	}
	file, err := os.OpenFile(filepath.Join(p.LogsDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	logger := log.New(file, "", log.LstdFlags|log.Lmicroseconds)
	return logger, file, nil
}

// Prune deletes all but the newest keep log files in dir.
func Prune(dir string, keep int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read logs directory: %w", err)
	}

	type logFile struct {
		path string
		mod  time.Time
	}
	var files []logFile
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".log" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, logFile{path: filepath.Join(dir, entry.Name()), mod: info.ModTime()})
	}
	if len(files) <= keep {
		return nil
	}

	sort.Slice(files, func(i, j int) bool { return files[i].mod.After(files[j].mod) })
	for _, f := range files[keep:] {
		if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove old log %s: %w", f.path, err)
		}
	}
	return nil
}
