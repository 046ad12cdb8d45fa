// Package pipeline streams a source video through the heatmap renderer into
// an output video.
//
// Run opens the source, builds the intensity field (dense or streaming), then
// renders frames with a bounded worker pool while a single writer drains
// results in frame order. A closing hold frame shows every click at once.
// Video decoding and encoding sit behind FrameSource/FrameSink so the
// pipeline can be driven by in-memory fakes in tests.
package pipeline
