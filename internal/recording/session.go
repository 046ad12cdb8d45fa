package recording

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"gazeheat/internal/config"
	"gazeheat/internal/fileutil"
	"gazeheat/internal/logging"
	"gazeheat/internal/media/ffmpeg"
)

var commandContext = exec.CommandContext

// ErrNotRecording is returned by Stop when no capture is active.
var ErrNotRecording = errors.New("no active recording")

// ErrDisabled is returned by Start when recording is turned off in config.
var ErrDisabled = errors.New("recording is disabled")

const stopTimeout = 15 * time.Second

// Muxer combines captured video and audio.
type Muxer interface {
	MuxRecording(ctx context.Context, video, audio, dst string) error
}

// Options configures a Session.
type Options struct {
	Enabled      bool
	FFmpegBinary string
	SoxBinary    string
	Capture      ffmpeg.CaptureOptions
	Audio        bool
	Dir          string
	StopTimeout  time.Duration
}

// OptionsFromConfig maps the [recording] section.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Enabled:      cfg.Recording.Enabled,
		FFmpegBinary: cfg.FFmpegBinary(),
		SoxBinary:    "sox",
		Capture: ffmpeg.CaptureOptions{
			InputFormat: cfg.Recording.InputFormat,
			InputDevice: cfg.Recording.InputDevice,
			FrameRate:   cfg.Recording.FrameRate,
			Filter:      cfg.Recording.Filter,
		},
		Audio: cfg.Recording.Audio,
		Dir:   cfg.Paths.WorkDir,
	}
}

// Info describes the active capture.
type Info struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Audio     bool      `json:"audio"`
}

type capture struct {
	info      Info
	videoPath string
	audioPath string
	video     *exec.Cmd
	stdin     io.WriteCloser
	audio     *exec.Cmd
	cancel    context.CancelFunc
	done      chan error
}

// Session manages the lifecycle of one screen capture at a time.
type Session struct {
	opts   Options
	muxer  Muxer
	logger *slog.Logger

	mu     sync.Mutex
	active *capture
}

// NewSession constructs an idle session.
func NewSession(opts Options, muxer Muxer, logger *slog.Logger) *Session {
	if opts.FFmpegBinary == "" {
		opts.FFmpegBinary = "ffmpeg"
	}
	if opts.SoxBinary == "" {
		opts.SoxBinary = "sox"
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = stopTimeout
	}
	if opts.Dir == "" {
		opts.Dir = os.TempDir()
	}
	return &Session{opts: opts, muxer: muxer, logger: logging.NewComponentLogger(logger, "recording")}
}

// Active reports the running capture, if any.
func (s *Session) Active() (Info, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return Info{}, false
	}
	return s.active.info, true
}

// Start begins a new capture. A capture already running is stopped and its
// output discarded.
func (s *Session) Start() (Info, error) {
	if !s.opts.Enabled {
		return Info{}, ErrDisabled
	}
	s.mu.Lock()
	previous := s.active
	s.active = nil
	s.mu.Unlock()
	s.discard(previous)

	if err := os.MkdirAll(s.opts.Dir, 0o755); err != nil {
		return Info{}, fmt.Errorf("create recording dir: %w", err)
	}
	id := uuid.NewString()
	c := &capture{
		info:      Info{ID: id, StartedAt: time.Now().UTC(), Audio: s.opts.Audio},
		videoPath: filepath.Join(s.opts.Dir, "recording_"+id+"_video.mp4"),
		done:      make(chan error, 1),
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	if s.opts.Audio {
		c.audioPath = filepath.Join(s.opts.Dir, "recording_"+id+"_audio.wav")
		c.audio = commandContext(ctx, s.opts.SoxBinary, "-q", "-d", c.audioPath) //nolint:gosec
		if err := c.audio.Start(); err != nil {
			s.logger.Warn("audio capture unavailable; recording video only",
				logging.Error(err),
				logging.String(logging.FieldEventType, "audio_capture_failed"),
				logging.String(logging.FieldErrorHint, "install sox or set recording.audio = false"),
				logging.String(logging.FieldImpact, "recording has no audio track"),
			)
			c.audio = nil
			c.audioPath = ""
			c.info.Audio = false
		}
	}

	c.video = commandContext(ctx, s.opts.FFmpegBinary, ffmpeg.CaptureArgs(s.opts.Capture, c.videoPath)...) //nolint:gosec
	stdin, err := c.video.StdinPipe()
	if err != nil {
		cancel()
		s.waitAudio(c)
		return Info{}, fmt.Errorf("capture stdin: %w", err)
	}
	c.stdin = stdin
	if err := c.video.Start(); err != nil {
		cancel()
		s.waitAudio(c)
		removeAll(c.audioPath)
		return Info{}, fmt.Errorf("start screen capture: %w", err)
	}
	go func() { c.done <- c.video.Wait() }()

	s.mu.Lock()
	raced := s.active
	s.active = c
	s.mu.Unlock()
	s.discard(raced)
	s.logger.Info("recording started",
		logging.String("recording_id", id),
		logging.Bool("audio", c.info.Audio),
	)
	return c.info, nil
}

// Stop ends the active capture and returns the path of the finished
// recording. The caller owns the file.
func (s *Session) Stop(ctx context.Context) (string, error) {
	s.mu.Lock()
	c := s.active
	s.active = nil
	s.mu.Unlock()
	if c == nil {
		return "", ErrNotRecording
	}

	s.halt(c)
	logger := s.logger.With(logging.String("recording_id", c.info.ID))
	if !fileutil.Exists(c.videoPath) {
		removeAll(c.audioPath)
		return "", fmt.Errorf("recording file not found: %s", c.videoPath)
	}

	output := filepath.Join(s.opts.Dir, "recording_"+c.info.ID+".mp4")
	if c.audioPath != "" && fileutil.Exists(c.audioPath) && s.muxer != nil {
		err := s.muxer.MuxRecording(ctx, c.videoPath, c.audioPath, output)
		if err == nil {
			removeAll(c.videoPath, c.audioPath)
			logger.Info("recording stopped", logging.String("path", output), logging.Bool("audio", true))
			return output, nil
		}
		logging.WarnWithContext(logger, "audio mux failed; keeping video only", "recording_mux_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the sox output format"),
			logging.String(logging.FieldImpact, "recording has no audio track"),
		)
		_ = fileutil.RemoveIfExists(output)
	}
	removeAll(c.audioPath)
	if err := fileutil.MoveFile(c.videoPath, output); err != nil {
		return "", fmt.Errorf("finalize recording: %w", err)
	}
	logger.Info("recording stopped", logging.String("path", output), logging.Bool("audio", false))
	return output, nil
}

// Close stops any active capture and discards its files.
func (s *Session) Close() {
	s.mu.Lock()
	c := s.active
	s.active = nil
	s.mu.Unlock()
	if c != nil {
		s.halt(c)
		removeAll(c.videoPath, c.audioPath)
	}
}

// discard stops a capture that is being replaced and removes its files.
// Callers must not hold s.mu.
func (s *Session) discard(c *capture) {
	if c == nil {
		return
	}
	s.logger.Warn("replacing active recording",
		logging.String("recording_id", c.info.ID),
		logging.String(logging.FieldEventType, "recording_replaced"),
		logging.String(logging.FieldErrorHint, "call stop_recording before starting a new capture"),
		logging.String(logging.FieldImpact, "previous capture discarded"),
	)
	s.halt(c)
	removeAll(c.videoPath, c.audioPath)
}

// halt asks ffmpeg to finish cleanly by sending "q", then stops sox. Both are
// killed if they outlast the stop timeout.
func (s *Session) halt(c *capture) {
	_, _ = io.WriteString(c.stdin, "q\n")
	_ = c.stdin.Close()
	select {
	case <-c.done:
	case <-time.After(s.opts.StopTimeout):
		s.logger.Warn("screen capture did not exit; killing",
			logging.String("recording_id", c.info.ID),
			logging.String(logging.FieldEventType, "capture_kill"),
			logging.String(logging.FieldErrorHint, "check the capture device"),
			logging.String(logging.FieldImpact, "recording may be truncated"),
		)
		c.cancel()
		<-c.done
	}
	if c.audio != nil && c.audio.Process != nil {
		_ = c.audio.Process.Signal(os.Interrupt)
	}
	s.waitAudio(c)
	c.cancel()
}

func (s *Session) waitAudio(c *capture) {
	if c.audio == nil || c.audio.Process == nil {
		return
	}
	done := make(chan struct{})
	go func() {
		_ = c.audio.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(s.opts.StopTimeout):
		c.cancel()
		<-done
	}
}

func removeAll(paths ...string) {
	for _, path := range paths {
		_ = fileutil.RemoveIfExists(path)
	}
}
