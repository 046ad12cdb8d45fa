package heatmap

// BuildSummary counts every click at its pixel (1.0 per click, no fade) and
// applies the same normalization as the per-frame field.
func BuildSummary(clicks []ClickEvent, width, height int) []float32 {
	if width <= 0 || height <= 0 {
		return nil
	}
	summary := make([]float32, width*height)
	for _, c := range clicks {
		px, py := PixelOf(c, width, height)
		summary[py*width+px]++
	}
	normalize(summary, maxOf(summary))
	return summary
}
