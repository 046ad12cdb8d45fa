package heatmap_test

import (
	"bytes"
	"testing"

	"gazeheat/internal/heatmap"
)

func TestRendererReturnsNilForEmptySlice(t *testing.T) {
	r := heatmap.NewRenderer(heatmap.DefaultRenderOptions())
	if overlay := r.Render(make([]float32, 16*9), 16, 9); overlay != nil {
		t.Fatalf("expected nil overlay, got %d bytes", len(overlay))
	}
}

func TestRendererSigmaScalesWithWidth(t *testing.T) {
	r := heatmap.NewRenderer(heatmap.DefaultRenderOptions())
	cases := []struct {
		width int
		want  float64
	}{
		{1920, 40},
		{3840, 80},
		{960, 20},
		{100, 5},
	}
	for _, tc := range cases {
		if got := r.Sigma(tc.width); got != tc.want {
			t.Fatalf("width %d: got %v want %v", tc.width, got, tc.want)
		}
	}
}

func TestRendererHotspotUsesTopOfPalette(t *testing.T) {
	const w, h = 40, 30
	slice := make([]float32, w*h)
	slice[15*w+20] = 1
	r := heatmap.NewRenderer(heatmap.RenderOptions{BaseSigma: 3, BaseWidth: 40, MinSigma: 1})
	overlay := r.Render(slice, w, h)
	if len(overlay) != w*h*3 {
		t.Fatalf("unexpected overlay size %d", len(overlay))
	}
	center := overlay[(15*w+20)*3 : (15*w+20)*3+3]
	if !bytes.Equal(center, heatmap.Inferno[255][:]) {
		t.Fatalf("expected hottest color at click, got %v", center)
	}
	corner := overlay[0:3]
	if corner[0] > 20 || corner[1] > 20 {
		t.Fatalf("expected dark corner, got %v", corner)
	}
}

func TestRendererDeterministic(t *testing.T) {
	const w, h = 32, 18
	slice := make([]float32, w*h)
	slice[3*w+4] = 0.5
	slice[10*w+30] = 1
	r := heatmap.NewRenderer(heatmap.DefaultRenderOptions())
	a := r.Render(slice, w, h)
	b := r.Render(slice, w, h)
	if !bytes.Equal(a, b) {
		t.Fatal("expected identical overlays for identical input")
	}
}

func TestInfernoEndpoints(t *testing.T) {
	low := heatmap.Inferno[0]
	if low[0] > 5 || low[1] > 5 || low[2] > 5 {
		t.Fatalf("expected near-black start, got %v", low)
	}
	high := heatmap.Inferno[255]
	if high[0] < 240 || high[1] < 240 || high[2] > 200 {
		t.Fatalf("expected pale yellow end, got %v", high)
	}
}

func TestDarkenRoundsHalfToEven(t *testing.T) {
	c := heatmap.DefaultCompositor()
	src := []byte{0, 1, 3, 200, 255}
	want := []byte{0, 0, 2, 100, 128}
	got := c.Darken(nil, src)
	if !bytes.Equal(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestCompositeSaturates(t *testing.T) {
	c := heatmap.DefaultCompositor()
	src := []byte{255, 10, 100}
	overlay := []byte{255, 0, 50}
	// 128+204 -> 255, 5+0, 50+40
	want := []byte{255, 5, 90}
	got := c.Composite(nil, src, overlay)
	if !bytes.Equal(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestCompositeNilOverlayIsDarkened(t *testing.T) {
	c := heatmap.DefaultCompositor()
	src := []byte{10, 20, 30, 40, 50, 60}
	got := c.Composite(nil, src, nil)
	if !bytes.Equal(got, c.Darken(nil, src)) {
		t.Fatalf("expected darkened frame, got %v", got)
	}
}

func TestCompositeInPlace(t *testing.T) {
	c := heatmap.DefaultCompositor()
	frame := []byte{200, 100, 50}
	out := c.Composite(frame, frame, []byte{10, 10, 10})
	if &out[0] != &frame[0] {
		t.Fatal("expected compositing into the source buffer")
	}
	if !bytes.Equal(out, []byte{108, 58, 33}) {
		t.Fatalf("unexpected result %v", out)
	}
}
