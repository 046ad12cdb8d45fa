package api

import (
	"encoding/json"

	"gazeheat/internal/jobs"
	"gazeheat/internal/logging"
)

// StatusResponse is the envelope for action endpoints and errors.
type StatusResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	RecordingID string `json:"recording_id,omitempty"`
}

// StopRecordingRequest is the body of POST /stop_recording.
type StopRecordingRequest struct {
	TrackingData json.RawMessage `json:"tracking_data"`
}

// JobListResponse wraps GET /api/jobs.
type JobListResponse struct {
	Jobs  []*jobs.Job         `json:"jobs"`
	Stats map[jobs.Status]int `json:"stats,omitempty"`
}

// JobResponse wraps GET /api/jobs/{id}.
type JobResponse struct {
	Job *jobs.Job `json:"job"`
}

// LogStreamResponse wraps GET /api/logs.
type LogStreamResponse struct {
	Events []logging.LogEvent `json:"events"`
	Next   uint64             `json:"next"`
}

// HealthResponse wraps GET /healthz.
type HealthResponse struct {
	Status    string `json:"status"`
	Recording bool   `json:"recording"`
}
