package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"gazeheat/internal/media/ffprobe"
)

var commandContext = exec.CommandContext

// Option configures the CLI wrapper.
type Option func(*CLI)

// WithBinary overrides the ffmpeg binary.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary = strings.TrimSpace(binary); binary != "" {
			c.binary = binary
		}
	}
}

// WithProber overrides how media files are inspected.
func WithProber(prober ffprobe.Prober) Option {
	return func(c *CLI) {
		if prober != nil {
			c.prober = prober
		}
	}
}

// CLI runs ffmpeg subcommands.
type CLI struct {
	binary string
	prober ffprobe.Prober
}

// NewCLI constructs a CLI using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "ffmpeg", prober: ffprobe.CLI{}}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Binary returns the ffmpeg executable in use.
func (c *CLI) Binary() string {
	return c.binary
}

// Prober returns the inspector used for media probing.
func (c *CLI) Prober() ffprobe.Prober {
	return c.prober
}

func (c *CLI) run(ctx context.Context, args ...string) error {
	full := append([]string{"-y", "-hide_banner", "-loglevel", "error"}, args...)
	cmd := commandContext(ctx, c.binary, full...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// ReduceOptions bounds the working resolution.
type ReduceOptions struct {
	MaxWidth  int
	MaxHeight int
	CRF       int
}

// ReduceResult describes the video the pipeline should read.
type ReduceResult struct {
	Path    string
	Reduced bool
	ScaleX  float64
	ScaleY  float64
	Width   int
	Height  int
}

// minReduction is the scale at or above which downscaling is skipped.
const minReduction = 0.95

// scaleEpsilon absorbs float error on the limiting dimension.
const scaleEpsilon = 1e-9

// PlanReduction picks the downscaled size for a width x height source. It
// reports false when the source is already small enough.
func PlanReduction(width, height int, opts ReduceOptions) (int, int, bool) {
	if width <= 0 || height <= 0 || opts.MaxWidth <= 0 || opts.MaxHeight <= 0 {
		return width, height, false
	}
	scale := min(float64(opts.MaxWidth)/float64(width), float64(opts.MaxHeight)/float64(height), 1.0)
	if scale >= minReduction {
		return width, height, false
	}
	newW := int(float64(width)*scale+scaleEpsilon) &^ 1
	newH := int(float64(height)*scale+scaleEpsilon) &^ 1
	if newW < 2 || newH < 2 {
		return width, height, false
	}
	return newW, newH, true
}

// Reduce writes a downscaled copy of src to dst when src exceeds the
// limits. Audio is re-encoded to AAC when present and dropped otherwise.
func (c *CLI) Reduce(ctx context.Context, src, dst string, opts ReduceOptions) (ReduceResult, error) {
	probe, err := c.prober.Inspect(ctx, src)
	if err != nil {
		return ReduceResult{}, fmt.Errorf("probe source: %w", err)
	}
	stream, ok := probe.VideoStream()
	if !ok {
		return ReduceResult{}, errors.New("probe source: no video stream")
	}

	unchanged := ReduceResult{Path: src, ScaleX: 1, ScaleY: 1, Width: stream.Width, Height: stream.Height}
	newW, newH, reduce := PlanReduction(stream.Width, stream.Height, opts)
	if !reduce {
		return unchanged, nil
	}

	args := []string{
		"-i", src,
		"-vf", fmt.Sprintf("scale=%d:%d", newW, newH),
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-crf", strconv.Itoa(opts.CRF),
	}
	if probe.HasAudio() {
		args = append(args, "-c:a", "aac")
	} else {
		args = append(args, "-an")
	}
	args = append(args, dst)
	if err := c.run(ctx, args...); err != nil {
		return unchanged, fmt.Errorf("reduce %s: %w", src, err)
	}
	return ReduceResult{
		Path:    dst,
		Reduced: true,
		ScaleX:  float64(newW) / float64(stream.Width),
		ScaleY:  float64(newH) / float64(stream.Height),
		Width:   newW,
		Height:  newH,
	}, nil
}

// HasAudio reports whether path carries an audio stream.
func (c *CLI) HasAudio(ctx context.Context, path string) (bool, error) {
	probe, err := c.prober.Inspect(ctx, path)
	if err != nil {
		return false, err
	}
	return probe.HasAudio(), nil
}

// MergeAudio muxes the first audio stream of audioSource under the video of
// rendered, trimmed to the rendered duration.
func (c *CLI) MergeAudio(ctx context.Context, rendered, audioSource, dst string) error {
	probe, err := c.prober.Inspect(ctx, rendered)
	if err != nil {
		return fmt.Errorf("probe rendered video: %w", err)
	}
	args := []string{
		"-i", rendered,
		"-i", audioSource,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "libx264",
		"-c:a", "aac",
	}
	if duration := probe.DurationSeconds(); duration > 0 {
		args = append(args, "-t", strconv.FormatFloat(duration, 'f', -1, 64))
	}
	args = append(args, dst)
	if err := c.run(ctx, args...); err != nil {
		return fmt.Errorf("merge audio: %w", err)
	}
	return nil
}

// MuxRecording combines a captured video with a separately recorded audio
// file, stopping at the shorter of the two.
func (c *CLI) MuxRecording(ctx context.Context, video, audio, dst string) error {
	if err := c.run(ctx,
		"-i", video,
		"-i", audio,
		"-c:v", "copy",
		"-c:a", "aac",
		"-shortest",
		dst,
	); err != nil {
		return fmt.Errorf("mux recording: %w", err)
	}
	return nil
}
