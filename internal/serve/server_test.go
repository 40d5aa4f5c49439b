package serve

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func writeReel(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRouterServesReels(t *testing.T) {
	dir := t.TempDir()
	writeReel(t, dir, "reel_1.mp4", "video-bytes")
	writeReel(t, dir, ".reel_2.partial.mp4", "partial")

	router := NewRouter(dir, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reels/reel_1.mp4", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "video-bytes" {
		t.Fatalf("GET reel: %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/reels/reel_1.mp4", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("HEAD reel: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reels/reel_9.mp4", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing reel: %d", rec.Code)
	}
}

func TestRouterHealthAndListing(t *testing.T) {
	dir := t.TempDir()
	writeReel(t, dir, "reel_1.mp4", "a")
	writeReel(t, dir, "reel_2.mp4", "bb")
	writeReel(t, dir, "notes.txt", "x")

	router := NewRouter(dir, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	var health struct {
		Status string `json:"status"`
		Reels  int    `json:"reels"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.Status != "healthy" || health.Reels != 2 {
		t.Fatalf("unexpected health %+v", health)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reels", nil))
	var listing struct {
		Reels []Reel `json:"reels"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listing); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if len(listing.Reels) != 2 {
		t.Fatalf("expected 2 reels, got %+v", listing.Reels)
	}
}

func TestListReelsMissingDir(t *testing.T) {
	reels, err := ListReels(filepath.Join(t.TempDir(), "missing"))
	if err != nil || len(reels) != 0 {
		t.Fatalf("expected empty listing, got %v %v", reels, err)
	}
}
