package logging_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gazeheat/internal/logging"
)

func touch(t *testing.T, path string, age time.Duration) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	when := time.Now().Add(-age)
	if err := os.Chtimes(path, when, when); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
}

func TestPruneStaleRemovesExpiredMatches(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "upload_old.mp4")
	fresh := filepath.Join(dir, "upload_fresh.mp4")
	other := filepath.Join(dir, "notes.txt")
	touch(t, old, 40*24*time.Hour)
	touch(t, fresh, time.Minute)
	touch(t, other, 40*24*time.Hour)
	if err := os.Mkdir(filepath.Join(dir, "upload_dir"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	cutoff := time.Now().AddDate(0, 0, -30)
	n := logging.PruneStale(logging.NewNop(), cutoff, logging.PruneTarget{Dir: dir, Pattern: "upload_*"})
	if n != 1 {
		t.Fatalf("expected 1 removal, got %d", n)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected %s removed, got %v", old, err)
	}
	for _, path := range []string{fresh, other, filepath.Join(dir, "upload_dir")} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s kept: %v", path, err)
		}
	}
}

func TestPruneStaleEmptyPatternAndMissingDir(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.log"), 48*time.Hour)
	touch(t, filepath.Join(dir, "b.log"), 48*time.Hour)

	cutoff := time.Now().Add(-24 * time.Hour)
	n := logging.PruneStale(nil, cutoff,
		logging.PruneTarget{Dir: dir},
		logging.PruneTarget{Dir: filepath.Join(dir, "missing"), Pattern: "*"},
		logging.PruneTarget{},
	)
	if n != 2 {
		t.Fatalf("expected 2 removals, got %d", n)
	}
}
