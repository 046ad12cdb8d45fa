package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// PruneTarget names files in Dir matching the glob Pattern. An empty
// pattern matches every regular file.
type PruneTarget struct {
	Dir     string
	Pattern string
}

// PruneStale removes files matched by targets that were last modified before
// cutoff and reports how many were removed. Failures are logged and skipped.
func PruneStale(logger *slog.Logger, cutoff time.Time, targets ...PruneTarget) int {
	removed := 0
	for _, target := range targets {
		if target.Dir == "" {
			continue
		}
		pattern := target.Pattern
		if pattern == "" {
			pattern = "*"
		}
		matches, err := filepath.Glob(filepath.Join(target.Dir, pattern))
		if err != nil {
			continue
		}
		for _, path := range matches {
			info, err := os.Lstat(path)
			if err != nil || !info.Mode().IsRegular() || !info.ModTime().Before(cutoff) {
				continue
			}
			if err := os.Remove(path); err != nil {
				WarnWithContext(logger, "stale file remove failed; file remains", "prune_failed",
					String("path", path),
					Error(err),
					String(FieldErrorHint, "check permissions on the work and log directories"),
					String(FieldImpact, "disk space is not reclaimed"),
				)
				continue
			}
			removed++
			if logger != nil {
				logger.Debug("stale file pruned", String("path", path), String(FieldEventType, "file_pruned"))
			}
		}
	}
	return removed
}
