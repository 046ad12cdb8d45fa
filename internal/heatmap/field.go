package heatmap

import "math"

// Field exposes normalized per-frame intensity slices. Implementations are
// read-only after construction and safe for concurrent Slice calls.
type Field interface {
	Geometry() Geometry
	// Slice returns the width*height intensities of frame f. Callers must not
	// modify the returned slice.
	Slice(f int) []float32
	// Peak is the maximum cell value before normalization.
	Peak() float32
}

// DenseField holds every frame of the intensity field in one buffer of
// Frames*Height*Width float32 values.
type DenseField struct {
	geom Geometry
	data []float32
	peak float32
}

// BuildField accumulates every click into a dense field and normalizes it.
func BuildField(clicks []ClickEvent, g Geometry, fadeSeconds float64) *DenseField {
	fade := FadeFrames(g.FrameRate, fadeSeconds)
	frameSize := g.pixels()
	field := &DenseField{geom: g}
	if g.Frames <= 0 || frameSize == 0 {
		return field
	}
	field.data = make([]float32, g.Frames*frameSize)

	for _, w := range planWindows(clicks, g, fade) {
		for f := w.start; f < w.end; f++ {
			field.data[f*frameSize+w.pixel] += w.weight(f, fade)
		}
	}

	field.peak = maxOf(field.data)
	normalize(field.data, field.peak)
	return field
}

// Geometry returns the grid the field was built for.
func (d *DenseField) Geometry() Geometry { return d.geom }

// Peak returns the pre-normalization maximum.
func (d *DenseField) Peak() float32 { return d.peak }

// Slice returns a view of frame f.
func (d *DenseField) Slice(f int) []float32 {
	size := d.geom.pixels()
	if f < 0 || f >= d.geom.Frames || d.data == nil {
		return make([]float32, size)
	}
	return d.data[f*size : (f+1)*size]
}

// Bytes reports the memory held by the field buffer.
func (d *DenseField) Bytes() int64 {
	return int64(len(d.data)) * 4
}

// EstimateFieldBytes reports the size a dense field for g would need.
func EstimateFieldBytes(g Geometry) int64 {
	if g.Frames <= 0 {
		return 0
	}
	return int64(g.Frames) * int64(g.Width) * int64(g.Height) * 4
}

// normalize applies sqrt(cell/peak) when peak exceeds 1. A peak at or
// below 1 leaves the values untouched.
func normalize(values []float32, peak float32) {
	if peak <= 1 {
		return
	}
	for i, v := range values {
		if v == 0 {
			continue
		}
		values[i] = compress(v, peak)
	}
}

func compress(v, peak float32) float32 {
	return float32(math.Sqrt(float64(v / peak)))
}

func maxOf(values []float32) float32 {
	var peak float32
	for _, v := range values {
		if v > peak {
			peak = v
		}
	}
	return peak
}
