package logs

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"gazeheat/internal/logging"
)

// ParseFileLine decodes one JSON log file line. Lines that are not JSON
// objects report false.
func ParseFileLine(line string) (logging.LogEvent, bool) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return logging.LogEvent{}, false
	}
	evt := logging.LogEvent{}
	for key, value := range raw {
		text := fmt.Sprint(value)
		switch key {
		case "ts":
			evt.Timestamp, _ = time.Parse(time.RFC3339, text)
		case "level":
			evt.Level = strings.ToUpper(text)
		case "msg":
			evt.Message = text
		case logging.FieldComponent:
			evt.Component = text
		case logging.FieldJobID:
			evt.JobID = text
		case logging.FieldStage:
			evt.Stage = text
		case logging.FieldCorrelationID:
			evt.CorrelationID = text
		default:
			if evt.Fields == nil {
				evt.Fields = make(map[string]string)
			}
			evt.Fields[key] = text
		}
	}
	return evt, true
}

// Matches applies the job and component filters. Empty filters match.
func Matches(evt logging.LogEvent, jobID, component string) bool {
	if jobID = strings.TrimSpace(jobID); jobID != "" && !strings.HasPrefix(evt.JobID, jobID) {
		return false
	}
	if component = strings.TrimSpace(component); component != "" && !strings.EqualFold(evt.Component, component) {
		return false
	}
	return true
}

// FormatEvent renders evt as a single console line.
func FormatEvent(evt logging.LogEvent) string {
	var b strings.Builder
	if !evt.Timestamp.IsZero() {
		b.WriteString(evt.Timestamp.Local().Format(time.DateTime))
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "%-5s", evt.Level)
	if evt.Component != "" {
		fmt.Fprintf(&b, " [%s]", evt.Component)
	}
	b.WriteByte(' ')
	b.WriteString(evt.Message)
	if evt.JobID != "" {
		fmt.Fprintf(&b, " job=%s", evt.JobID)
	}
	keys := make([]string, 0, len(evt.Fields))
	for key := range evt.Fields {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		value := evt.Fields[key]
		if strings.ContainsAny(value, " \t\"") {
			value = fmt.Sprintf("%q", value)
		}
		fmt.Fprintf(&b, " %s=%s", key, value)
	}
	return b.String()
}
