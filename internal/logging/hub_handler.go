package logging

import (
	"context"
	"log/slog"
	"strings"
)

// hubHandler publishes every record it sees to a StreamHub before passing
// it on. Well-known keys become LogEvent columns; the rest land in Fields.
type hubHandler struct {
	next   slog.Handler
	hub    *StreamHub
	attrs  []slog.Attr
	prefix string
}

func withHub(next slog.Handler, hub *StreamHub) slog.Handler {
	if hub == nil || next == nil {
		return next
	}
	return &hubHandler{next: next, hub: hub}
}

func (h *hubHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *hubHandler) Handle(ctx context.Context, record slog.Record) error {
	h.hub.Publish(h.event(record))
	return h.next.Handle(ctx, record.Clone())
}

func (h *hubHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.next = h.next.WithAttrs(attrs)
	clone.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	clone.attrs = append(clone.attrs, h.attrs...)
	for _, attr := range attrs {
		attr.Key = h.prefix + attr.Key
		clone.attrs = append(clone.attrs, attr)
	}
	return &clone
}

func (h *hubHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.next = h.next.WithGroup(name)
	clone.prefix = h.prefix + name + "."
	return &clone
}

func (h *hubHandler) event(record slog.Record) LogEvent {
	evt := LogEvent{
		Timestamp: record.Time,
		Level:     strings.ToUpper(record.Level.String()),
		Message:   strings.TrimSpace(record.Message),
	}
	var fields []field
	for _, attr := range h.attrs {
		fields = appendFields(fields, "", attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		fields = appendFields(fields, h.prefix, attr)
		return true
	})
	// later fields win, so call-site attrs override logger attrs
	for _, f := range fields {
		value := plainString(f.value)
		switch f.key {
		case FieldJobID:
			evt.JobID = value
		case FieldStage:
			evt.Stage = value
		case FieldCorrelationID:
			evt.CorrelationID = value
		case FieldComponent:
			evt.Component = value
		default:
			if evt.Fields == nil {
				evt.Fields = make(map[string]string)
			}
			evt.Fields[f.key] = value
		}
	}
	return evt
}
