package heatmap

import (
	"math"
	"sync"
)

// RenderOptions controls blur sizing. Sigma scales linearly with frame width
// relative to BaseWidth and never drops below MinSigma.
type RenderOptions struct {
	BaseSigma float64
	BaseWidth float64
	MinSigma  float64
	Palette   *Palette
}

// DefaultRenderOptions returns the sizing used for 1080p-calibrated overlays.
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{BaseSigma: 40, BaseWidth: 1920, MinSigma: 5}
}

// Renderer turns an intensity slice into an RGB24 overlay. It is safe for
// concurrent use; kernels are cached per frame width.
type Renderer struct {
	opts    RenderOptions
	palette *Palette

	mu      sync.Mutex
	kernels map[int]kernel
}

// NewRenderer builds a renderer, filling zero options with defaults.
func NewRenderer(opts RenderOptions) *Renderer {
	defaults := DefaultRenderOptions()
	if opts.BaseSigma <= 0 {
		opts.BaseSigma = defaults.BaseSigma
	}
	if opts.BaseWidth <= 0 {
		opts.BaseWidth = defaults.BaseWidth
	}
	if opts.MinSigma <= 0 {
		opts.MinSigma = defaults.MinSigma
	}
	palette := opts.Palette
	if palette == nil {
		palette = &Inferno
	}
	return &Renderer{opts: opts, palette: palette, kernels: make(map[int]kernel)}
}

// Sigma returns the blur sigma used for frames of the given width.
func (r *Renderer) Sigma(width int) float64 {
	return math.Max(r.opts.BaseSigma*float64(width)/r.opts.BaseWidth, r.opts.MinSigma)
}

// Render returns the colored overlay for slice, or nil when the slice holds
// no intensity at all.
func (r *Renderer) Render(slice []float32, width, height int) []byte {
	if width <= 0 || height <= 0 || len(slice) < width*height || isZero(slice) {
		return nil
	}
	blurred := r.kernel(width).blur(slice[:width*height], width, height)

	peak := maxOf(blurred)
	overlay := make([]byte, width*height*3)
	if peak <= 0 {
		// everything blurred away; palette index 0 everywhere
		c := r.palette[0]
		for i := 0; i < width*height; i++ {
			copy(overlay[i*3:i*3+3], c[:])
		}
		return overlay
	}
	for i, v := range blurred {
		idx := uint8(0)
		if v > 0 {
			idx = uint8(min(v/peak*255, 255))
		}
		c := r.palette[idx]
		overlay[i*3] = c[0]
		overlay[i*3+1] = c[1]
		overlay[i*3+2] = c[2]
	}
	return overlay
}

func (r *Renderer) kernel(width int) kernel {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.kernels[width]
	if !ok {
		k = newKernel(r.Sigma(width))
		r.kernels[width] = k
	}
	return k
}

func isZero(values []float32) bool {
	for _, v := range values {
		if v != 0 {
			return false
		}
	}
	return true
}
