package jobs

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a generation job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusTruncated Status = "truncated"
	StatusFailed    Status = "failed"
	StatusRejected  Status = "rejected"
)

var allStatuses = []Status{
	StatusPending,
	StatusRunning,
	StatusCompleted,
	StatusTruncated,
	StatusFailed,
	StatusRejected,
}

// AllStatuses returns every known status in lifecycle order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus normalizes a user supplied status name.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// IsTerminal reports whether no further transitions are expected.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusTruncated, StatusFailed, StatusRejected:
		return true
	}
	return false
}

// Kind distinguishes single-participant jobs from averaged folder runs.
type Kind string

const (
	KindSingle   Kind = "single"
	KindAveraged Kind = "averaged"
)

// Job is one persisted generation request.
type Job struct {
	ID            string     `json:"id"`
	Kind          Kind       `json:"kind"`
	Status        Status     `json:"status"`
	UserName      string     `json:"user_name,omitempty"`
	VideoName     string     `json:"video_name,omitempty"`
	TrackingType  string     `json:"tracking_type,omitempty"`
	ClickCount    int        `json:"click_count"`
	SourcePath    string     `json:"source_path,omitempty"`
	DataPath      string     `json:"data_path,omitempty"`
	OutputPath    string     `json:"output_path,omitempty"`
	FramesWritten int        `json:"frames_written"`
	Truncated     bool       `json:"truncated"`
	HoldFrame     bool       `json:"hold_frame"`
	FieldMode     string     `json:"field_mode,omitempty"`
	ScaleX        float64    `json:"scale_x"`
	ScaleY        float64    `json:"scale_y"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// Outcome captures what a successful run produced.
type Outcome struct {
	OutputPath    string
	FramesWritten int
	Truncated     bool
	HoldFrame     bool
	FieldMode     string
}

// ListOptions filters List results. A zero Limit returns every row.
type ListOptions struct {
	Statuses []Status
	Limit    int
}
