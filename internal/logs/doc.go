// Package logs reads gazeheat logs for the CLI.
//
// Two sources are supported: the JSON log file written next to the job
// database, tailed with byte offsets so follow mode only reads new data, and
// a running server's /api/logs endpoint, polled with sequence cursors.
package logs
