package deps

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// executablePath is swapped in tests.
var executablePath = os.Executable

// ResolveTool picks the binary to run for a tool. An explicitly configured
// path wins. Otherwise a copy shipped next to the gazeheat executable is
// preferred over PATH lookup, which keeps bundled installs self-contained.
func ResolveTool(configured, name string) string {
	configured = strings.TrimSpace(configured)
	if configured != "" && configured != name {
		return configured
	}
	if candidate, ok := sidecarCandidate(name); ok {
		if info, err := os.Stat(candidate); err == nil && isExecutable(info) {
			return candidate
		}
	}
	return name
}

func sidecarCandidate(name string) (string, bool) {
	self, err := executablePath()
	if err != nil || self == "" {
		return "", false
	}
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(filepath.Dir(self), name), true
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
