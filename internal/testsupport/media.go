package testsupport

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"gazeheat/internal/pipeline"
)

// MemorySource serves frames from memory. Reads return copies so callers may
// modify them.
type MemorySource struct {
	info   pipeline.VideoInfo
	frames [][]byte
	pos    int
	// FailAt makes the Read for that frame index fail. Negative disables.
	FailAt int
	// SeekErr is returned by Seek when set.
	SeekErr error
	// FailSeekTo makes Seek fail only for that index. Negative disables.
	FailSeekTo int
	Closed     bool
}

// NewMemorySource wraps frames with the provided geometry. FrameCount is the
// number of frames unless info already carries one.
func NewMemorySource(info pipeline.VideoInfo, frames [][]byte) *MemorySource {
	if info.FrameCount == 0 {
		info.FrameCount = len(frames)
	}
	return &MemorySource{info: info, frames: frames, FailAt: -1, FailSeekTo: -1}
}

func (s *MemorySource) Info() pipeline.VideoInfo { return s.info }

func (s *MemorySource) Read() ([]byte, error) {
	if s.FailAt >= 0 && s.pos >= s.FailAt {
		return nil, fmt.Errorf("decode frame %d: corrupt packet", s.pos)
	}
	if s.pos >= len(s.frames) {
		return nil, io.EOF
	}
	frame := append([]byte(nil), s.frames[s.pos]...)
	s.pos++
	return frame, nil
}

func (s *MemorySource) Seek(frame int) error {
	if s.SeekErr != nil {
		return s.SeekErr
	}
	if s.FailSeekTo >= 0 && frame == s.FailSeekTo {
		return fmt.Errorf("seek to %d unsupported", frame)
	}
	if frame < 0 || frame > len(s.frames) {
		return fmt.Errorf("seek %d out of range", frame)
	}
	s.pos = frame
	return nil
}

func (s *MemorySource) Close() error {
	s.Closed = true
	return nil
}

// MemorySink records written frames.
type MemorySink struct {
	Info   pipeline.VideoInfo
	Frames [][]byte
	// FailAt makes the Write of that frame index fail. Negative disables.
	FailAt int
	Closed bool

	path    string
	persist bool
}

func (s *MemorySink) Write(frame []byte) error {
	if s.FailAt >= 0 && len(s.Frames) == s.FailAt {
		return errors.New("encoder rejected frame")
	}
	s.Frames = append(s.Frames, append([]byte(nil), frame...))
	return nil
}

// Close marks the sink closed. Persisting sinks write the frame count to
// their path so file-level steps have something to move.
func (s *MemorySink) Close() error {
	s.Closed = true
	if !s.persist {
		return nil
	}
	return os.WriteFile(s.path, []byte(strconv.Itoa(len(s.Frames))), 0o644)
}

// MemoryMedia maps paths to in-memory sources and records created sinks.
type MemoryMedia struct {
	mu      sync.Mutex
	sources map[string]func() *MemorySource
	globs   []globSource
	sinks   map[string]*MemorySink
	// SinkErr fails CreateSink when set.
	SinkErr error
	// SinkFailAt is copied to every created sink.
	SinkFailAt int
	// PersistSinks makes sinks create their output file on Close.
	PersistSinks bool
}

// NewMemoryMedia returns an empty media backend.
func NewMemoryMedia() *MemoryMedia {
	return &MemoryMedia{
		sources:    make(map[string]func() *MemorySource),
		sinks:      make(map[string]*MemorySink),
		SinkFailAt: -1,
	}
}

// AddSource registers a factory so each open gets a fresh source.
func (m *MemoryMedia) AddSource(path string, factory func() *MemorySource) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources[path] = factory
}

type globSource struct {
	pattern string
	factory func() *MemorySource
}

// AddGlob registers a factory for every path matching pattern, for sources
// whose exact name is only known once a job runs.
func (m *MemoryMedia) AddGlob(pattern string, factory func() *MemorySource) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.globs = append(m.globs, globSource{pattern: pattern, factory: factory})
}

// Sink returns the sink created for path, if any.
func (m *MemoryMedia) Sink(path string) *MemorySink {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sinks[path]
}

func (m *MemoryMedia) OpenSource(path string) (pipeline.FrameSource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if factory, ok := m.sources[path]; ok {
		return factory(), nil
	}
	for _, g := range m.globs {
		if ok, _ := filepath.Match(g.pattern, path); ok {
			return g.factory(), nil
		}
	}
	return nil, fmt.Errorf("open %s: no such file", path)
}

func (m *MemoryMedia) CreateSink(path string, info pipeline.VideoInfo) (pipeline.FrameSink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SinkErr != nil {
		return nil, m.SinkErr
	}
	sink := &MemorySink{Info: info, FailAt: m.SinkFailAt, path: path, persist: m.PersistSinks}
	m.sinks[path] = sink
	return sink, nil
}

// GradientFrames builds n RGB24 frames whose bytes vary by frame, pixel and
// channel so ordering mistakes are visible.
func GradientFrames(n, width, height int) [][]byte {
	frames := make([][]byte, n)
	for f := range frames {
		frame := make([]byte, width*height*3)
		for i := range frame {
			frame[i] = byte((f*7 + i*13) % 251)
		}
		frames[f] = frame
	}
	return frames
}

// SolidFrames builds n RGB24 frames filled with value.
func SolidFrames(n, width, height int, value byte) [][]byte {
	frames := make([][]byte, n)
	for f := range frames {
		frame := make([]byte, width*height*3)
		for i := range frame {
			frame[i] = value
		}
		frames[f] = frame
	}
	return frames
}
