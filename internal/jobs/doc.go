// Package jobs persists heatmap generation history in SQLite.
//
// Every generate request (single participant or averaged folder) gets a job
// row that moves pending -> running -> completed|truncated|failed|rejected.
// The API and CLI read the same rows to report status. Migrations live in
// migrations/*.sql and are applied in lexical order on Open.
package jobs
