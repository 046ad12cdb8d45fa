package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"gazeheat/internal/config"
)

// Requirement defines an external dependency gazeheat relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists the tools the configuration needs. sox is only listed
// when recording with audio is enabled and is never required.
func Requirements(cfg *config.Config) []Requirement {
	reqs := []Requirement{
		{
			Name:        "FFmpeg",
			Command:     ResolveTool(cfg.FFmpegBinary(), "ffmpeg"),
			Description: "Required for downscaling, audio merge, and video encoding",
		},
		{
			Name:        "FFprobe",
			Command:     ResolveTool(cfg.FFprobeBinary(), "ffprobe"),
			Description: "Required for media inspection",
		},
	}
	if cfg.Recording.Enabled && cfg.Recording.Audio {
		reqs = append(reqs, Requirement{
			Name:        "SoX",
			Command:     "sox",
			Description: "Captures microphone audio during screen recording",
			Optional:    true,
		})
	}
	return reqs
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// MissingRequired returns the required dependencies that are unavailable.
func MissingRequired(statuses []Status) []Status {
	var missing []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			missing = append(missing, s)
		}
	}
	return missing
}
