// Command gazeheat renders click and gaze heatmaps onto video.
//
// Without a subcommand it behaves like the capture server: it starts the
// HTTP API, or processes a participant folder when --folder is given.
// Subcommands cover one-off generation, folder batches, job history, config
// management, and tool checks.
package main
