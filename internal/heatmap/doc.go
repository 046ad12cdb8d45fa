// Package heatmap turns click events into per-frame attention overlays.
//
// The package is pure computation with no I/O:
//   - BuildField / NewWindowField: accumulate trapezoid-weighted click
//     contributions into an intensity field, then apply the global
//     normalization rule (sqrt(cell/max) only when max exceeds 1).
//   - BuildSummary: undamped per-click totals used for the closing hold frame.
//   - Renderer: Gaussian blur, rescale to 8 bits, inferno palette lookup.
//   - Compositor: darken a source frame and add the overlay with saturation.
//
// Frames and overlays are packed RGB24 byte slices (width*height*3), row
// major. Intensity slices are float32 row-major (width*height).
package heatmap
