// Package session parses and persists the tracking payload a headset client
// submits with each recording: participant metadata plus click samples.
//
// Click samples are validated here so the heatmap packages only ever see
// finite, in-range values. Metadata is carried through untouched and only
// used to label output files and batch summaries.
package session
