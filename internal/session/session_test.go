package session_test

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gazeheat/internal/heatmap"
	"gazeheat/internal/services"
	"gazeheat/internal/session"
)

const sample = `{
  "user_name": "Zoë Smith",
  "user_age": 31,
  "user_gender": "f",
  "precision_score": 0.92,
  "video_name": "demo clip.mov",
  "tracking_type": "eye",
  "timestamp": "20250102_030405",
  "click_data": [
    {"x": 0.5, "y": 0.25, "timestamp": 1.5},
    {"x": 0, "y": 1, "timestamp": 0}
  ]
}`

func TestParse(t *testing.T) {
	td, err := session.Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	want := []heatmap.ClickEvent{{X: 0.5, Y: 0.25, Timestamp: 1.5}, {X: 0, Y: 1, Timestamp: 0}}
	if len(td.ClickData) != 2 || td.ClickData[0] != want[0] || td.ClickData[1] != want[1] {
		t.Fatalf("unexpected clicks: %+v", td.ClickData)
	}
	if td.UserName != "Zoë Smith" || string(td.UserAge) != "31" || !td.HasPrecision() {
		t.Fatalf("unexpected metadata: %+v", td)
	}
}

func TestParseRejectsInvalidPayloads(t *testing.T) {
	cases := map[string]string{
		"empty":          ``,
		"not json":       `{`,
		"missing x":      `{"click_data":[{"y":0.1,"timestamp":1}]}`,
		"x out of range": `{"click_data":[{"x":1.2,"y":0.1,"timestamp":1}]}`,
		"negative time":  `{"click_data":[{"x":0.2,"y":0.1,"timestamp":-1}]}`,
		"wrong type":     `{"click_data":[{"x":"a","y":0.1,"timestamp":1}]}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := session.Parse([]byte(payload))
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestParseAllowsEmptyClickList(t *testing.T) {
	td, err := session.Parse([]byte(`{"user_name":"a"}`))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(td.Clicks()) != 0 || td.HasPrecision() {
		t.Fatalf("unexpected payload: %+v", td)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	td, err := session.Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	path := filepath.Join(t.TempDir(), "nested", "data.json")
	if err := td.Save(path); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	loaded, err := session.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if loaded.FileBase(time.Time{}) != td.FileBase(time.Time{}) || len(loaded.ClickData) != 2 {
		t.Fatalf("round trip changed payload: %+v", loaded)
	}
	if string(loaded.PrecisionScore) != "0.92" {
		t.Fatalf("expected precision passthrough, got %s", loaded.PrecisionScore)
	}
}

func TestFileBase(t *testing.T) {
	now := time.Date(2025, 6, 7, 8, 9, 10, 0, time.UTC)
	cases := []struct {
		name string
		td   session.TrackingData
		want string
	}{
		{
			name: "full",
			td:   session.TrackingData{UserName: "Zoë Smith", VideoName: "demo clip.mov", TrackingType: "eye", Timestamp: "20250102_030405"},
			want: "Zoe_Smith_demo_clip_eye_20250102_030405",
		},
		{
			name: "no video",
			td:   session.TrackingData{UserName: "ada", TrackingType: "hand"},
			want: "ada_hand_20250607_080910",
		},
		{
			name: "defaults",
			td:   session.TrackingData{},
			want: "unknown_user_unknown_20250607_080910",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.td.FileBase(now); got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestDecodeValidates(t *testing.T) {
	_, err := session.Decode(strings.NewReader(`{"click_data":[{"x":2,"y":0,"timestamp":0}]}`))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
