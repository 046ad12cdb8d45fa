// Package ffmpeg wraps the ffmpeg command line for the preparation and
// finishing steps around heatmap rendering: downscaling oversized sources,
// muxing the original audio back onto the rendered video, and screen
// capture for the recording endpoints.
package ffmpeg
