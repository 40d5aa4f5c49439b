// Package serve exposes rendered reels over HTTP so the Graph API can fetch
// them by URL.
package serve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// ReelPrefix is the URL path under which rendered files are served.
const ReelPrefix = "/reels"

// Reel is a rendered file listed by the server.
type Reel struct {
	Name     string    `json:"name"`
	URL      string    `json:"url"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// NewRouter returns a gin engine serving outputDir under ReelPrefix plus a
// health check and a JSON listing. Access logs go to accessLog when set.
func NewRouter(outputDir string, accessLog io.Writer) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if accessLog != nil {
		router.Use(gin.LoggerWithWriter(accessLog))
	}

	router.GET("/healthz", func(c *gin.Context) {
		reels, err := ListReels(outputDir)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "reels": len(reels)})
	})

	router.GET("/api/reels", func(c *gin.Context) {
		reels, err := ListReels(outputDir)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"reels": reels})
	})

	router.Static(ReelPrefix, outputDir)
	return router
}

// ListReels returns the finished .mp4 files in dir, newest first. Partial
// renders (dot files) are skipped.
func ListReels(dir string) ([]Reel, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read output dir: %w", err)
	}
	var reels []Reel
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.EqualFold(filepath.Ext(name), ".mp4") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		reels = append(reels, Reel{
			Name:     name,
			URL:      ReelPrefix + "/" + name,
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
	}
	sort.Slice(reels, func(i, j int) bool { return reels[i].Modified.After(reels[j].Modified) })
	return reels, nil
}

// Run serves handler on addr until ctx is cancelled, then shuts down
// gracefully.
func Run(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	}
}
