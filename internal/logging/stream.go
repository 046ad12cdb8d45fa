package logging

import (
	"context"
	"strings"
	"sync"
	"time"
)

// LogEvent represents a structured log line published to the streaming hub.
type LogEvent struct {
	Sequence      uint64            `json:"seq"`
	Timestamp     time.Time         `json:"ts"`
	Level         string            `json:"level"`
	Message       string            `json:"msg"`
	Component     string            `json:"component,omitempty"`
	Stage         string            `json:"stage,omitempty"`
	JobID         string            `json:"job_id,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Fields        map[string]string `json:"fields,omitempty"`
}

// StreamQuery selects events from a StreamHub.
type StreamQuery struct {
	// Since skips events with a sequence at or below it.
	Since uint64
	Limit int
	// Follow blocks until at least one matching event exists.
	Follow bool
	// Tail returns the newest Limit matches instead of the oldest after Since.
	Tail bool
	// JobID matches exactly; Component matches case-insensitively.
	JobID     string
	Component string
}

func (q StreamQuery) matches(evt LogEvent) bool {
	if q.JobID != "" && evt.JobID != q.JobID {
		return false
	}
	if q.Component != "" && !strings.EqualFold(q.Component, evt.Component) {
		return false
	}
	return true
}

// StreamHub keeps the most recent log events in a ring buffer so the API can
// serve them to pollers. Followers are woken through a channel that is
// replaced on every publish.
type StreamHub struct {
	mu      sync.Mutex
	ring    []LogEvent
	start   int
	count   int
	lastSeq uint64
	changed chan struct{}
}

// NewStreamHub creates a hub holding at most capacity events.
func NewStreamHub(capacity int) *StreamHub {
	if capacity <= 0 {
		capacity = 512
	}
	return &StreamHub{ring: make([]LogEvent, capacity), changed: make(chan struct{})}
}

// Publish stores evt, assigning its sequence and a timestamp when missing.
func (h *StreamHub) Publish(evt LogEvent) {
	if h == nil {
		return
	}
	h.mu.Lock()
	h.lastSeq++
	evt.Sequence = h.lastSeq
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	if h.count < len(h.ring) {
		h.ring[(h.start+h.count)%len(h.ring)] = evt
		h.count++
	} else {
		h.ring[h.start] = evt
		h.start = (h.start + 1) % len(h.ring)
	}
	wake := h.changed
	h.changed = make(chan struct{})
	h.mu.Unlock()
	close(wake)
}

// Query returns events matching q along with the latest sequence number.
// Pass that sequence back as Since to continue where the previous call ended.
func (h *StreamHub) Query(ctx context.Context, q StreamQuery) ([]LogEvent, uint64, error) {
	if h == nil {
		return nil, q.Since, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		h.mu.Lock()
		events := h.collectLocked(q)
		last, wake := h.lastSeq, h.changed
		h.mu.Unlock()

		if len(events) > 0 || !q.Follow {
			return events, last, ctx.Err()
		}
		// nothing matched up to last; only newer events can satisfy a follower
		if last > q.Since {
			q.Since = last
		}
		select {
		case <-ctx.Done():
			return nil, last, ctx.Err()
		case <-wake:
		}
	}
}

// Fetch returns up to limit events after since, optionally blocking for one.
func (h *StreamHub) Fetch(ctx context.Context, since uint64, limit int, wait bool) ([]LogEvent, uint64, error) {
	return h.Query(ctx, StreamQuery{Since: since, Limit: limit, Follow: wait})
}

// Tail returns the newest limit events without blocking.
func (h *StreamHub) Tail(limit int) ([]LogEvent, uint64) {
	events, last, _ := h.Query(context.Background(), StreamQuery{Limit: limit, Tail: true})
	return events, last
}

// FirstSequence reports the oldest sequence still buffered.
func (h *StreamHub) FirstSequence() uint64 {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.count == 0 {
		return h.lastSeq
	}
	return h.ring[h.start].Sequence
}

func (h *StreamHub) collectLocked(q StreamQuery) []LogEvent {
	limit := q.Limit
	if limit <= 0 || limit > len(h.ring) {
		limit = len(h.ring)
	}
	var out []LogEvent
	for i := 0; i < h.count; i++ {
		evt := h.ring[(h.start+i)%len(h.ring)]
		if evt.Sequence <= q.Since || !q.matches(evt) {
			continue
		}
		out = append(out, evt)
		if !q.Tail && len(out) == limit {
			break
		}
	}
	if q.Tail && len(out) > limit {
		out = append([]LogEvent(nil), out[len(out)-limit:]...)
	}
	return out
}
