package heatmap

import (
	"math"
	"testing"
)

func reflect101(p, n int) int {
	if n == 1 {
		return 0
	}
	for p < 0 || p >= n {
		if p < 0 {
			p = -p
		}
		if p >= n {
			p = 2*(n-1) - p
		}
	}
	return p
}

// naiveBlur is the direct gather form of the separable filter.
func naiveBlur(k kernel, src []float32, w, h int) []float32 {
	tmp := make([]float32, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc float32
			for i := -k.radius; i <= k.radius; i++ {
				acc += src[y*w+reflect101(x+i, w)] * k.taps[i+k.radius]
			}
			tmp[y*w+x] = acc
		}
	}
	out := make([]float32, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc float32
			for i := -k.radius; i <= k.radius; i++ {
				acc += tmp[reflect101(y+i, h)*w+x] * k.taps[i+k.radius]
			}
			out[y*w+x] = acc
		}
	}
	return out
}

func TestKernelSizeFollowsSigma(t *testing.T) {
	cases := []struct {
		sigma float64
		size  int
	}{
		{5, 41},
		{40, 321},
		{26.666666666666668, 215},
		{1.2, 11},
	}
	for _, tc := range cases {
		k := newKernel(tc.sigma)
		if len(k.taps) != tc.size {
			t.Fatalf("sigma %v: got %d taps want %d", tc.sigma, len(k.taps), tc.size)
		}
		var sum float64
		for _, v := range k.taps {
			sum += float64(v)
		}
		if math.Abs(sum-1) > 1e-5 {
			t.Fatalf("sigma %v: taps sum to %v", tc.sigma, sum)
		}
	}
}

func TestScatterBlurMatchesGather(t *testing.T) {
	cases := []struct {
		name  string
		w, h  int
		sigma float64
		cells map[int]float32
	}{
		{"interior", 20, 15, 1.5, map[int]float32{7*20 + 9: 1}},
		{"corners", 12, 9, 2, map[int]float32{0: 1, 12*9 - 1: 0.5}},
		{"kernel wider than frame", 6, 5, 5, map[int]float32{1*6 + 4: 1, 3*6 + 0: 0.25}},
		{"single column", 1, 8, 1, map[int]float32{3: 1}},
		{"single row", 9, 1, 1, map[int]float32{8: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src := make([]float32, tc.w*tc.h)
			for i, v := range tc.cells {
				src[i] = v
			}
			k := newKernel(tc.sigma)
			got := k.blur(src, tc.w, tc.h)
			want := naiveBlur(k, src, tc.w, tc.h)
			for i := range want {
				if math.Abs(float64(got[i]-want[i])) > 1e-5 {
					t.Fatalf("cell %d: got %v want %v", i, got[i], want[i])
				}
			}
		})
	}
}

func TestReflectionsCoverAllMirrors(t *testing.T) {
	const n, r = 5, 7
	for pos := 0; pos < n; pos++ {
		mirrors := reflections(pos, n, r, nil)
		seen := map[int]bool{}
		for _, p := range mirrors {
			if reflect101(p, n) != pos {
				t.Fatalf("pos %d: mirror %d reflects to %d", pos, p, reflect101(p, n))
			}
			if seen[p] {
				t.Fatalf("pos %d: duplicate mirror %d", pos, p)
			}
			seen[p] = true
		}
		for p := -r; p <= n-1+r; p++ {
			if reflect101(p, n) == pos && !seen[p] {
				t.Fatalf("pos %d: missing mirror %d", pos, p)
			}
		}
	}
}
