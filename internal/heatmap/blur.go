package heatmap

import "math"

// kernel is a normalized 1D Gaussian with OpenCV's sizing rule for float
// images: ksize = round(8*sigma+1) forced odd.
type kernel struct {
	sigma  float64
	taps   []float32
	radius int
}

func newKernel(sigma float64) kernel {
	size := int(math.Round(sigma*8+1)) | 1
	radius := size / 2
	taps := make([]float64, size)
	scale := -0.5 / (sigma * sigma)
	var sum float64
	for i := range taps {
		x := float64(i - radius)
		taps[i] = math.Exp(scale * x * x)
		sum += taps[i]
	}
	out := make([]float32, size)
	for i, v := range taps {
		out[i] = float32(v / sum)
	}
	return kernel{sigma: sigma, taps: out, radius: radius}
}

// blur applies the separable Gaussian with reflect-101 borders. Work is
// scattered from non-zero samples only, so sparse click fields stay cheap
// even with wide kernels.
func (k kernel) blur(src []float32, width, height int) []float32 {
	tmp := make([]float32, width*height)
	mirrors := make([]int, 0, 8)
	rows := make([]bool, height)

	for y := 0; y < height; y++ {
		row := src[y*width : (y+1)*width]
		for x0, v := range row {
			if v == 0 {
				continue
			}
			rows[y] = true
			mirrors = reflections(x0, width, k.radius, mirrors[:0])
			k.scatter(tmp, y*width, 1, width, v, mirrors)
		}
	}

	out := make([]float32, width*height)
	for y0 := 0; y0 < height; y0++ {
		if !rows[y0] {
			continue
		}
		mirrors = reflections(y0, height, k.radius, mirrors[:0])
		row := tmp[y0*width : (y0+1)*width]
		for x, v := range row {
			if v == 0 {
				continue
			}
			k.scatter(out, x, width, height, v, mirrors)
		}
	}
	return out
}

// scatter adds v's contribution at every mirrored position to the n samples
// of dst starting at offset with the given stride.
func (k kernel) scatter(dst []float32, offset, stride, n int, v float32, mirrors []int) {
	r := k.radius
	for _, m := range mirrors {
		lo := max(0, m-r)
		hi := min(n-1, m+r)
		for i := lo; i <= hi; i++ {
			dst[offset+i*stride] += v * k.taps[m-i+r]
		}
	}
}

// reflections lists every virtual index p in [-r, n-1+r] that reflect-101
// border handling maps back onto pos.
func reflections(pos, n, r int, buf []int) []int {
	if n == 1 {
		for p := -r; p <= r; p++ {
			buf = append(buf, p)
		}
		return buf
	}
	period := 2 * (n - 1)
	bases := [2]int{pos, -pos}
	count := 2
	if pos == 0 || pos == n-1 {
		count = 1
	}
	for _, base := range bases[:count] {
		// smallest p >= -r congruent to base modulo period
		p := base - period*floorDiv(base+r, period)
		for ; p <= n-1+r; p += period {
			buf = append(buf, p)
		}
	}
	return buf
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
