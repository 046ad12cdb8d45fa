package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gazeheat/internal/heatmap"
	"gazeheat/internal/services"
	"gazeheat/internal/textutil"
)

// TimestampLayout formats generation timestamps embedded in file names.
const TimestampLayout = "20060102_150405"

// TrackingData is the payload submitted alongside a video.
type TrackingData struct {
	UserName       string               `json:"user_name,omitempty"`
	UserAge        json.RawMessage      `json:"user_age,omitempty"`
	UserGender     json.RawMessage      `json:"user_gender,omitempty"`
	PrecisionScore json.RawMessage      `json:"precision_score,omitempty"`
	VideoName      string               `json:"video_name,omitempty"`
	TrackingType   string               `json:"tracking_type,omitempty"`
	Timestamp      string               `json:"timestamp,omitempty"`
	ClickData      []heatmap.ClickEvent `json:"click_data"`
}

type wireClick struct {
	X         *float64 `json:"x"`
	Y         *float64 `json:"y"`
	Timestamp *float64 `json:"timestamp"`
}

type wireData struct {
	TrackingData
	ClickData []wireClick `json:"click_data"`
}

// Parse decodes and validates a tracking payload.
func Parse(data []byte) (*TrackingData, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, services.Wrap(services.ErrValidation, "session", "parse", "empty tracking data", nil)
	}
	var wire wireData
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, services.Wrap(services.ErrValidation, "session", "parse", "invalid tracking json", err)
	}
	td := wire.TrackingData
	td.ClickData = make([]heatmap.ClickEvent, 0, len(wire.ClickData))
	for i, c := range wire.ClickData {
		if c.X == nil || c.Y == nil || c.Timestamp == nil {
			return nil, services.Wrap(services.ErrValidation, "session", "parse",
				fmt.Sprintf("click %d: x, y and timestamp are required", i), nil)
		}
		td.ClickData = append(td.ClickData, heatmap.ClickEvent{X: *c.X, Y: *c.Y, Timestamp: *c.Timestamp})
	}
	if err := td.Validate(); err != nil {
		return nil, err
	}
	return &td, nil
}

// Decode reads a payload from r.
func Decode(r io.Reader) (*TrackingData, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read tracking data: %w", err)
	}
	return Parse(data)
}

// Load reads a payload from a JSON file.
func Load(path string) (*TrackingData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	td, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return td, nil
}

// Validate range-checks every click.
func (t *TrackingData) Validate() error {
	for i, c := range t.ClickData {
		if !finite(c.X) || !finite(c.Y) || !finite(c.Timestamp) {
			return services.Wrap(services.ErrValidation, "session", "validate",
				fmt.Sprintf("click %d: non-finite value", i), nil)
		}
		if c.X < 0 || c.X > 1 || c.Y < 0 || c.Y > 1 {
			return services.Wrap(services.ErrValidation, "session", "validate",
				fmt.Sprintf("click %d: position (%g, %g) outside [0,1]", i, c.X, c.Y), nil)
		}
		if c.Timestamp < 0 {
			return services.Wrap(services.ErrValidation, "session", "validate",
				fmt.Sprintf("click %d: negative timestamp %g", i, c.Timestamp), nil)
		}
	}
	return nil
}

// Save writes the payload as indented JSON.
func (t *TrackingData) Save(path string) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("encode tracking data: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Clicks returns a copy of the click samples.
func (t *TrackingData) Clicks() []heatmap.ClickEvent {
	out := make([]heatmap.ClickEvent, len(t.ClickData))
	copy(out, t.ClickData)
	return out
}

// HasPrecision reports whether the payload carries a precision score.
func (t *TrackingData) HasPrecision() bool {
	raw := bytes.TrimSpace(t.PrecisionScore)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

// FileBase names output artifacts as user_video_type_timestamp, omitting the
// video segment when no video name was given. now supplies the timestamp
// when the payload has none.
func (t *TrackingData) FileBase(now time.Time) string {
	stamp := strings.TrimSpace(t.Timestamp)
	if stamp == "" {
		stamp = now.Format(TimestampLayout)
	}
	parts := []string{textutil.NameSegment(t.UserName, "unknown_user")}
	if video := strings.TrimSpace(t.VideoName); video != "" {
		video = strings.TrimSuffix(video, filepath.Ext(video))
		parts = append(parts, textutil.NameSegment(video, "video"))
	}
	parts = append(parts,
		textutil.NameSegment(t.TrackingType, "unknown"),
		textutil.NameSegment(stamp, now.Format(TimestampLayout)),
	)
	return strings.Join(parts, "_")
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
