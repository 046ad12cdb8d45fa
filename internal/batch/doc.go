// Package batch produces an averaged heatmap for a folder of recordings.
//
// A folder holds one stimulus video plus a tracking JSON file per
// participant. ProcessFolder pools every participant's clicks into one job,
// renders it against the first video found, and writes a participant summary
// next to the output. A file lock keeps two runs from processing the same
// folder at once.
package batch
