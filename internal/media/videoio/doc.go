// Package videoio decodes and encodes video through Vidio, presenting
// sources and sinks as RGB24 frame streams for the heatmap pipeline.
package videoio
