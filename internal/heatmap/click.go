package heatmap

import "math"

// ClickEvent is one recorded gaze or tap sample. X and Y are fractions of the
// frame size in [0,1]; Timestamp is seconds since the recording started.
type ClickEvent struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Timestamp float64 `json:"timestamp"`
}

// Geometry describes the frame grid a field is built against.
type Geometry struct {
	Width     int
	Height    int
	FrameRate float64
	Frames    int
}

func (g Geometry) pixels() int {
	return g.Width * g.Height
}

// FadeFrames converts a fade duration to frames: round(fps*seconds).
func FadeFrames(frameRate, fadeSeconds float64) int {
	if frameRate <= 0 || fadeSeconds <= 0 {
		return 0
	}
	return int(math.Round(frameRate * fadeSeconds))
}

// PixelOf maps fractional coordinates onto the pixel grid, clamping to the
// frame edges.
func PixelOf(c ClickEvent, width, height int) (int, int) {
	px := clampInt(int(math.Round(c.X*float64(width))), 0, width-1)
	py := clampInt(int(math.Round(c.Y*float64(height))), 0, height-1)
	return px, py
}

// window is the frame span [start,end) one click contributes to.
type window struct {
	order int
	pixel int
	start int
	end   int
}

func planWindows(clicks []ClickEvent, g Geometry, fade int) []window {
	if fade <= 0 || g.Frames <= 0 || g.pixels() == 0 {
		return nil
	}
	plan := make([]window, 0, len(clicks))
	for i, c := range clicks {
		px, py := PixelOf(c, g.Width, g.Height)
		start := max(0, int(math.Round(c.Timestamp*g.FrameRate))-fade)
		end := min(start+2*fade, g.Frames)
		if end <= start {
			continue
		}
		plan = append(plan, window{order: i, pixel: py*g.Width + px, start: start, end: end})
	}
	return plan
}

// weight is the trapezoid value at frame f. The fade-out ramp takes
// precedence when a clipped window puts f in both ramps.
func (w window) weight(f, fade int) float32 {
	if f >= w.end-fade {
		return float32(float64(w.end-f) / float64(fade))
	}
	if f < w.start+fade {
		return float32(float64(f-w.start) / float64(fade))
	}
	return 1
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
