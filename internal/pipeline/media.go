package pipeline

import "gazeheat/internal/heatmap"

// VideoInfo describes the decoded frame grid of a source.
type VideoInfo struct {
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	FrameRate  float64 `json:"frame_rate"`
	FrameCount int     `json:"frame_count"`
}

// FrameSize is the byte length of one RGB24 frame.
func (v VideoInfo) FrameSize() int {
	return v.Width * v.Height * 3
}

// Geometry converts the info to the heatmap frame grid.
func (v VideoInfo) Geometry() heatmap.Geometry {
	return heatmap.Geometry{Width: v.Width, Height: v.Height, FrameRate: v.FrameRate, Frames: v.FrameCount}
}

// FrameSource yields decoded RGB24 frames sequentially.
type FrameSource interface {
	Info() VideoInfo
	// Read returns the next frame. io.EOF marks the end of the stream; the
	// caller owns the returned buffer.
	Read() ([]byte, error)
	// Seek positions the source so the next Read returns frame index f.
	Seek(f int) error
	Close() error
}

// FrameSink accepts RGB24 frames in display order.
type FrameSink interface {
	Write(frame []byte) error
	Close() error
}

// Media opens sources and creates sinks for file paths.
type Media interface {
	OpenSource(path string) (FrameSource, error)
	CreateSink(path string, info VideoInfo) (FrameSink, error)
}
