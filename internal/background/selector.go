package background

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrNoBackgroundAvailable is returned when the pool has no usable video.
var ErrNoBackgroundAvailable = errors.New("no background video available")

// DefaultExtensions lists the container types accepted as backgrounds.
var DefaultExtensions = []string{".mp4", ".avi", ".mov"}

// List returns the files in dir whose extension matches one of exts, sorted
// by name. Matching is case-insensitive. Subdirectories are not searched.
func List(dir string, exts []string) ([]string, error) {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	allowed := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = struct{}{}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s does not exist", ErrNoBackgroundAvailable, dir)
		}
		return nil, fmt.Errorf("read backgrounds dir: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if _, ok := allowed[ext]; !ok {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no %s files in %s", ErrNoBackgroundAvailable, strings.Join(exts, "/"), dir)
	}
	sort.Strings(paths)
	return paths, nil
}

// Pick returns one of paths chosen uniformly with rng.
func Pick(paths []string, rng *rand.Rand) (string, error) {
	if len(paths) == 0 {
		return "", ErrNoBackgroundAvailable
	}
	return paths[rng.IntN(len(paths))], nil
}

// NewRand returns a PCG source seeded with seed, or from the clock when seed
// is zero.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
