// Package logging assembles structured slog loggers and formatting helpers used
// across gazeheat commands and the capture API.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so pipeline code tags log lines with job
// IDs, stages, and correlation IDs. A bounded StreamHub keeps recent events in
// memory for the API log endpoint. NewNop serves tests and wiring code that
// cannot fail.
package logging
