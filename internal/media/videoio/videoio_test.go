package videoio

import (
	"bytes"
	"errors"
	"testing"
)

func TestToRGBStripsAlpha(t *testing.T) {
	rgba := []byte{1, 2, 3, 255, 4, 5, 6, 128}
	got, err := toRGB(rgba, 2, 1)
	if err != nil {
		t.Fatalf("toRGB returned error: %v", err)
	}
	if !bytes.Equal(got, []byte{1, 2, 3, 4, 5, 6}) {
		t.Fatalf("unexpected frame %v", got)
	}
}

func TestToRGBCopiesPackedFrames(t *testing.T) {
	rgb := []byte{9, 8, 7, 6, 5, 4}
	got, err := toRGB(rgb, 1, 2)
	if err != nil {
		t.Fatalf("toRGB returned error: %v", err)
	}
	rgb[0] = 0
	if got[0] != 9 {
		t.Fatal("expected an independent copy of the decoder buffer")
	}
}

func TestToRGBRejectsOddLayouts(t *testing.T) {
	if _, err := toRGB(make([]byte, 10), 2, 2); !errors.Is(err, errFrameLayout) {
		t.Fatalf("expected layout error, got %v", err)
	}
	if _, err := toRGB(make([]byte, 8), 2, 2); !errors.Is(err, errFrameLayout) {
		t.Fatalf("expected layout error for 2 bytes per pixel, got %v", err)
	}
}

func TestToRGBA(t *testing.T) {
	dst := make([]byte, 8)
	if err := toRGBA(dst, []byte{1, 2, 3, 4, 5, 6}); err != nil {
		t.Fatalf("toRGBA returned error: %v", err)
	}
	if !bytes.Equal(dst, []byte{1, 2, 3, 255, 4, 5, 6, 255}) {
		t.Fatalf("unexpected frame %v", dst)
	}
	if err := toRGBA(dst, []byte{1, 2, 3}); !errors.Is(err, errFrameLayout) {
		t.Fatalf("expected layout error, got %v", err)
	}
}

func TestFrameCountFallsBackToDuration(t *testing.T) {
	cases := []struct {
		frames        int
		duration, fps float64
		want          int
	}{
		{120, 4, 30, 120},
		{0, 4.02, 30, 121},
		{0, 0, 30, 0},
		{0, 3, 0, 0},
	}
	for _, tc := range cases {
		if got := frameCount(tc.frames, tc.duration, tc.fps); got != tc.want {
			t.Fatalf("frameCount(%d, %v, %v) = %d, want %d", tc.frames, tc.duration, tc.fps, got, tc.want)
		}
	}
}
