package heatmap

import (
	"slices"
	"sort"
)

// WindowField computes frame slices on demand from the active click set
// instead of materializing Frames*Height*Width values. The global peak is
// found up front with a sweep over frames so slices match DenseField
// exactly, including float32 accumulation order.
type WindowField struct {
	geom  Geometry
	fade  int
	plan  []window // sorted by start
	peak  float32
	width int // longest window span
}

// NewWindowField prepares a streaming field for clicks over g.
func NewWindowField(clicks []ClickEvent, g Geometry, fadeSeconds float64) *WindowField {
	fade := FadeFrames(g.FrameRate, fadeSeconds)
	plan := planWindows(clicks, g, fade)
	sort.SliceStable(plan, func(i, j int) bool { return plan[i].start < plan[j].start })

	field := &WindowField{geom: g, fade: fade, plan: plan, width: 2 * fade}
	field.peak = field.sweepPeak()
	return field
}

// Geometry returns the grid the field was built for.
func (w *WindowField) Geometry() Geometry { return w.geom }

// Peak returns the pre-normalization maximum.
func (w *WindowField) Peak() float32 { return w.peak }

// Slice builds frame f from the clicks whose windows cover it.
func (w *WindowField) Slice(f int) []float32 {
	out := make([]float32, w.geom.pixels())
	active := w.active(f)
	if len(active) == 0 {
		return out
	}
	for _, win := range active {
		out[win.pixel] += win.weight(f, w.fade)
	}
	if w.peak > 1 {
		seen := make(map[int]struct{}, len(active))
		for _, win := range active {
			if _, ok := seen[win.pixel]; ok {
				continue
			}
			seen[win.pixel] = struct{}{}
			if v := out[win.pixel]; v != 0 {
				out[win.pixel] = compress(v, w.peak)
			}
		}
	}
	return out
}

// ActiveClicks reports how many click windows cover frame f.
func (w *WindowField) ActiveClicks(f int) int {
	return len(w.active(f))
}

// active returns the windows covering f in original click order, which is
// the order DenseField accumulates them.
func (w *WindowField) active(f int) []window {
	if len(w.plan) == 0 || f < 0 || f >= w.geom.Frames {
		return nil
	}
	lo := sort.Search(len(w.plan), func(i int) bool { return w.plan[i].start > f-w.width })
	hi := sort.Search(len(w.plan), func(i int) bool { return w.plan[i].start > f })
	var active []window
	for _, win := range w.plan[lo:hi] {
		if f < win.end {
			active = append(active, win)
		}
	}
	slices.SortFunc(active, func(a, b window) int { return a.order - b.order })
	return active
}

func (w *WindowField) sweepPeak() float32 {
	if len(w.plan) == 0 {
		return 0
	}
	var peak float32
	cells := make(map[int]float32)
	first := w.plan[0].start
	last := 0
	for _, win := range w.plan {
		last = max(last, win.end)
	}
	for f := first; f < last; f++ {
		active := w.active(f)
		if len(active) == 0 {
			continue
		}
		clear(cells)
		for _, win := range active {
			cells[win.pixel] += win.weight(f, w.fade)
		}
		for _, v := range cells {
			if v > peak {
				peak = v
			}
		}
	}
	return peak
}
