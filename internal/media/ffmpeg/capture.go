package ffmpeg

import (
	"strconv"
	"strings"
)

// CaptureOptions describes a screen capture input.
type CaptureOptions struct {
	InputFormat string
	InputDevice string
	FrameRate   int
	Filter      string
}

// CaptureArgs builds the argument list for a live capture into dst.
func CaptureArgs(opts CaptureOptions, dst string) []string {
	args := []string{"-y", "-hide_banner", "-loglevel", "error"}
	if format := strings.TrimSpace(opts.InputFormat); format != "" {
		args = append(args, "-f", format)
	}
	args = append(args, "-i", opts.InputDevice)
	if opts.FrameRate > 0 {
		args = append(args, "-r", strconv.Itoa(opts.FrameRate))
	}
	if filter := strings.TrimSpace(opts.Filter); filter != "" {
		args = append(args, "-vf", filter)
	}
	return append(args,
		"-vcodec", "libx264",
		"-preset", "veryfast",
		"-crf", "25",
		"-pix_fmt", "yuv420p",
		dst,
	)
}
