// Package workflow runs generation jobs end to end.
//
// The Manager records each job in the job history, optionally downsizes the
// source, persists the tracking payload beside the output, renders the
// overlay through the pipeline into a silent temporary file, and restores the
// source audio before moving the result into the output directory. Audio and
// downscale problems degrade to warnings; only source, sink, and validation
// failures fail a job.
package workflow
