package videoio

import (
	"errors"
	"fmt"
	"io"
	"math"

	vidio "github.com/AlexEidt/Vidio"

	"gazeheat/internal/pipeline"
)

// Opener implements pipeline.Media on top of Vidio.
type Opener struct {
	// Quality is passed to the encoder; 0 leaves Vidio's default.
	Quality float64
	// Codec overrides the output codec; empty leaves Vidio's default.
	Codec string
}

var _ pipeline.Media = Opener{}

// OpenSource opens path for sequential decoding.
func (o Opener) OpenSource(path string) (pipeline.FrameSource, error) {
	video, err := vidio.NewVideo(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	src := &source{path: path, video: video}
	src.info = pipeline.VideoInfo{
		Width:      video.Width(),
		Height:     video.Height(),
		FrameRate:  video.FPS(),
		FrameCount: frameCount(video.Frames(), video.Duration(), video.FPS()),
	}
	return src, nil
}

// CreateSink creates an encoder writing to path.
func (o Opener) CreateSink(path string, info pipeline.VideoInfo) (pipeline.FrameSink, error) {
	opts := &vidio.Options{FPS: info.FrameRate, Quality: o.Quality, Codec: o.Codec}
	writer, err := vidio.NewVideoWriter(path, info.Width, info.Height, opts)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return &sink{writer: writer, info: info, buf: make([]byte, info.Width*info.Height*4)}, nil
}

func frameCount(frames int, duration, fps float64) int {
	if frames > 0 {
		return frames
	}
	if duration <= 0 || fps <= 0 {
		return 0
	}
	return int(math.Round(duration * fps))
}

type source struct {
	path  string
	video *vidio.Video
	info  pipeline.VideoInfo

	pending []byte
	resume  int
	resync  bool
}

func (s *source) Info() pipeline.VideoInfo {
	return s.info
}

func (s *source) Read() ([]byte, error) {
	if s.pending != nil {
		frame := s.pending
		s.pending = nil
		s.resync = true
		return frame, nil
	}
	if s.resync {
		s.resync = false
		if err := s.reopen(); err != nil {
			return nil, err
		}
		for range s.resume {
			if !s.video.Read() {
				return nil, io.EOF
			}
		}
	}
	if !s.video.Read() {
		return nil, io.EOF
	}
	return toRGB(s.video.FrameBuffer(), s.info.Width, s.info.Height)
}

func (s *source) Seek(f int) error {
	if f < 0 {
		return fmt.Errorf("seek %s: negative frame %d", s.path, f)
	}
	s.pending = nil
	s.resync = false
	if f == 0 {
		return s.reopen()
	}
	if err := s.video.ReadFrame(f); err != nil {
		return fmt.Errorf("seek %s to frame %d: %w", s.path, f, err)
	}
	frame, err := toRGB(s.video.FrameBuffer(), s.info.Width, s.info.Height)
	if err != nil {
		return err
	}
	s.pending = frame
	s.resume = f + 1
	return nil
}

func (s *source) reopen() error {
	s.video.Close()
	video, err := vidio.NewVideo(s.path)
	if err != nil {
		return fmt.Errorf("reopen %s: %w", s.path, err)
	}
	s.video = video
	return nil
}

func (s *source) Close() error {
	s.video.Close()
	return nil
}

type sink struct {
	writer *vidio.VideoWriter
	info   pipeline.VideoInfo
	buf    []byte
}

func (s *sink) Write(frame []byte) error {
	if err := toRGBA(s.buf, frame); err != nil {
		return err
	}
	return s.writer.Write(s.buf)
}

func (s *sink) Close() error {
	s.writer.Close()
	return nil
}

var errFrameLayout = errors.New("unexpected frame layout")

// toRGB copies a decoded RGB or RGBA buffer into a fresh RGB24 frame.
func toRGB(buf []byte, width, height int) ([]byte, error) {
	pixels := width * height
	if pixels <= 0 || len(buf)%pixels != 0 {
		return nil, fmt.Errorf("%w: %d bytes for %dx%d", errFrameLayout, len(buf), width, height)
	}
	switch len(buf) / pixels {
	case 3:
		return append([]byte(nil), buf...), nil
	case 4:
		out := make([]byte, pixels*3)
		for i := range pixels {
			copy(out[i*3:i*3+3], buf[i*4:i*4+3])
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %d bytes per pixel", errFrameLayout, len(buf)/pixels)
	}
}

// toRGBA expands an RGB24 frame into dst with opaque alpha.
func toRGBA(dst, rgb []byte) error {
	if len(rgb)*4 != len(dst)*3 {
		return fmt.Errorf("%w: %d rgb bytes for %d rgba bytes", errFrameLayout, len(rgb), len(dst))
	}
	for i := 0; i < len(rgb)/3; i++ {
		copy(dst[i*4:i*4+3], rgb[i*3:i*3+3])
		dst[i*4+3] = 0xff
	}
	return nil
}
