package heatmap

import "math"

// Compositor blends overlays onto source frames. The source is darkened to
// DarkenWeight of its value, then the overlay is added at OverlayWeight with
// saturation at 255.
type Compositor struct {
	DarkenWeight  float64
	OverlayWeight float64
}

// DefaultCompositor darkens to half brightness and adds the overlay at 0.8.
func DefaultCompositor() Compositor {
	return Compositor{DarkenWeight: 0.5, OverlayWeight: 0.8}
}

// Darken writes the darkened copy of src into dst (allocating when dst is
// too small) and returns it. src and dst may alias.
func (c Compositor) Darken(dst, src []byte) []byte {
	dst = ensure(dst, len(src))
	for i, v := range src {
		dst[i] = saturate(float64(v) * c.DarkenWeight)
	}
	return dst
}

// Composite writes darken(src) + overlay*OverlayWeight into dst. A nil
// overlay yields the darkened frame. src and dst may alias.
func (c Compositor) Composite(dst, src, overlay []byte) []byte {
	if overlay == nil {
		return c.Darken(dst, src)
	}
	dst = ensure(dst, len(src))
	for i, v := range src {
		dark := saturate(float64(v) * c.DarkenWeight)
		var add float64
		if i < len(overlay) {
			add = float64(overlay[i]) * c.OverlayWeight
		}
		dst[i] = saturate(float64(dark) + add)
	}
	return dst
}

// saturate rounds half to even and clamps to the byte range.
func saturate(v float64) byte {
	r := math.RoundToEven(v)
	if r <= 0 {
		return 0
	}
	if r >= 255 {
		return 255
	}
	return byte(r)
}

func ensure(buf []byte, n int) []byte {
	if cap(buf) < n {
		return make([]byte, n)
	}
	return buf[:n]
}
