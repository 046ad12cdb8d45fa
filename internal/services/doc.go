// Package services defines shared utilities consumed by the generation
// workflow, the HTTP service, and the batch processor.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent job statuses (failed vs rejected).
//
// Only ErrSourceOpen and input validation errors are surfaced to callers as
// hard failures; the other markers classify degraded paths that are logged.
package services
