// Package recording captures the server's screen while a headset session is
// running.
//
// A Session owns at most one capture at a time: ffmpeg records video and,
// when enabled, sox records the default audio input. Stop ends both
// processes and muxes them into a single file ready for heatmap generation.
package recording
