package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"gazeheat/internal/api"
	"gazeheat/internal/config"
	"gazeheat/internal/jobs"
	"gazeheat/internal/logging"
	"gazeheat/internal/recording"
	"gazeheat/internal/services"
	"gazeheat/internal/testsupport"
	"gazeheat/internal/workflow"
)

const validTracking = `{"user_name":"Ada","video_name":"demo.mp4","tracking_type":"eye","click_data":[{"x":0.5,"y":0.5,"timestamp":0.2}]}`

type fakeGenerator struct {
	mu       sync.Mutex
	dir      string
	err      error
	requests []workflow.Request
	sources  []string
}

func (g *fakeGenerator) Generate(_ context.Context, req workflow.Request) (*workflow.Outcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	data, readErr := os.ReadFile(req.VideoPath)
	if readErr != nil {
		return nil, fmt.Errorf("source missing: %w", readErr)
	}
	g.sources = append(g.sources, string(data))
	if g.err != nil {
		return nil, g.err
	}
	out := filepath.Join(g.dir, "rendered.mp4")
	if err := os.WriteFile(out, []byte("heatmap:"+string(data)), 0o644); err != nil {
		return nil, err
	}
	return &workflow.Outcome{JobID: "job-1", OutputPath: out}, nil
}

type fakeRecorder struct {
	dir      string
	active   bool
	startErr error
	last     string
}

func (r *fakeRecorder) Start() (recording.Info, error) {
	if r.startErr != nil {
		return recording.Info{}, r.startErr
	}
	r.active = true
	return recording.Info{ID: "rec-1", Audio: true}, nil
}

func (r *fakeRecorder) Stop(context.Context) (string, error) {
	if !r.active {
		return "", recording.ErrNotRecording
	}
	r.active = false
	r.last = filepath.Join(r.dir, "recording_rec-1.mp4")
	if err := os.WriteFile(r.last, []byte("screen"), 0o644); err != nil {
		return "", err
	}
	return r.last, nil
}

func (r *fakeRecorder) Active() (recording.Info, bool) {
	if !r.active {
		return recording.Info{}, false
	}
	return recording.Info{ID: "rec-1"}, true
}

func newServer(t *testing.T, cfg *config.Config, gen api.Generator, opts ...api.Option) http.Handler {
	t.Helper()
	return api.New(cfg, gen, logging.NewNop(), opts...).Handler()
}

func uploadRequest(t *testing.T, tracking string, video []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if tracking != "" {
		if err := writer.WriteField("tracking_data", tracking); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if video != nil {
		part, err := writer.CreateFormFile("video", "clip.MOV")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(video); err != nil {
			t.Fatalf("write video: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/generate_heatmap", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func decodeStatus(t *testing.T, rec *httptest.ResponseRecorder) api.StatusResponse {
	t.Helper()
	var resp api.StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestHealthz(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithAPIToken("secret"))
	handler := newServer(t, cfg, &fakeGenerator{dir: t.TempDir()})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 without token, got %d", rec.Code)
	}
	var resp api.HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" || resp.Recording {
		t.Fatalf("unexpected health: %+v", resp)
	}
}

func TestGenerateHeatmapServesRender(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	gen := &fakeGenerator{dir: t.TempDir()}
	handler := newServer(t, cfg, gen)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, uploadRequest(t, validTracking, []byte("frames")))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Body.String(); got != "heatmap:frames" {
		t.Fatalf("unexpected body %q", got)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "video/mp4" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "heatmap.mp4") {
		t.Fatalf("unexpected disposition %q", cd)
	}
	if rec.Header().Get("X-Job-ID") != "job-1" {
		t.Fatalf("expected job id header, got %q", rec.Header().Get("X-Job-ID"))
	}

	if len(gen.requests) != 1 {
		t.Fatalf("expected one generate call, got %d", len(gen.requests))
	}
	req := gen.requests[0]
	if req.Tracking.UserName != "Ada" || len(req.Tracking.ClickData) != 1 {
		t.Fatalf("unexpected tracking: %+v", req.Tracking)
	}
	if filepath.Dir(req.VideoPath) != cfg.Paths.WorkDir || filepath.Ext(req.VideoPath) != ".mov" {
		t.Fatalf("unexpected upload path %s", req.VideoPath)
	}
	if _, err := os.Stat(req.VideoPath); !os.IsNotExist(err) {
		t.Fatalf("expected upload removed, stat err=%v", err)
	}
}

func TestGenerateHeatmapRejectsBadInput(t *testing.T) {
	cases := []struct {
		name     string
		tracking string
		video    []byte
	}{
		{"missing tracking", "", []byte("frames")},
		{"invalid json", "{not json", []byte("frames")},
		{"click out of range", `{"click_data":[{"x":1.5,"y":0.5,"timestamp":0}]}`, []byte("frames")},
		{"missing video", validTracking, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gen := &fakeGenerator{dir: t.TempDir()}
			handler := newServer(t, testsupport.NewConfig(t), gen)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, uploadRequest(t, tc.tracking, tc.video))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			if resp := decodeStatus(t, rec); resp.Status != "error" || resp.Message == "" {
				t.Fatalf("unexpected error body: %+v", resp)
			}
			if len(gen.requests) != 0 {
				t.Fatal("generator should not run for rejected input")
			}
		})
	}
}

func TestGenerateHeatmapMapsErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", services.Wrap(services.ErrValidation, "workflow", "generate", "bad", nil), http.StatusBadRequest},
		{"source", services.Wrap(services.ErrSourceOpen, "pipeline", "open", "", errors.New("corrupt")), http.StatusUnprocessableEntity},
		{"internal", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gen := &fakeGenerator{dir: t.TempDir(), err: tc.err}
			handler := newServer(t, testsupport.NewConfig(t), gen)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, uploadRequest(t, validTracking, []byte("frames")))
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
			if resp := decodeStatus(t, rec); !strings.HasPrefix(resp.Message, "failed to generate heatmap") {
				t.Fatalf("unexpected message %q", resp.Message)
			}
		})
	}
}

func TestUploadSizeLimit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Server.MaxUploadMB = 1
	handler := newServer(t, cfg, &fakeGenerator{dir: t.TempDir()})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, uploadRequest(t, validTracking, bytes.Repeat([]byte("x"), 2<<20)))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
}

func TestBearerToken(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithAPIToken("secret"))
	handler := newServer(t, cfg, &fakeGenerator{dir: t.TempDir()})

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong", "Bearer nope", http.StatusUnauthorized},
		{"wrong scheme", "Basic secret", http.StatusUnauthorized},
		{"valid", "Bearer secret", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := uploadRequest(t, validTracking, []byte("frames"))
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
		})
	}
}

func TestRecordingLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	gen := &fakeGenerator{dir: t.TempDir()}
	recorder := &fakeRecorder{dir: t.TempDir()}
	handler := newServer(t, cfg, gen, api.WithRecorder(recorder))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/stop_recording", strings.NewReader(`{}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 when idle, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/start_recording", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("start: expected 200, got %d", rec.Code)
	}
	if resp := decodeStatus(t, rec); resp.Status != "success" || resp.RecordingID != "rec-1" {
		t.Fatalf("unexpected start response %+v", resp)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	var health api.HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil || !health.Recording {
		t.Fatalf("expected recording health, got %+v (%v)", health, err)
	}

	body := `{"tracking_data":` + validTracking + `}`
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/stop_recording", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("stop: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "heatmap:screen" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
	if _, err := os.Stat(recorder.last); !os.IsNotExist(err) {
		t.Fatalf("expected recording removed, stat err=%v", err)
	}
}

func TestStopRecordingRejectsBadTracking(t *testing.T) {
	recorder := &fakeRecorder{dir: t.TempDir(), active: true}
	handler := newServer(t, testsupport.NewConfig(t), &fakeGenerator{dir: t.TempDir()}, api.WithRecorder(recorder))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/stop_recording", strings.NewReader(`{"tracking_data":{"click_data":[{"x":0.5}]}}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !recorder.active {
		t.Fatal("recording should keep running when tracking is rejected")
	}
}

func TestStartRecordingUnavailable(t *testing.T) {
	cases := []struct {
		name string
		opts []api.Option
	}{
		{"no recorder", nil},
		{"disabled", []api.Option{api.WithRecorder(&fakeRecorder{startErr: recording.ErrDisabled})}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := newServer(t, testsupport.NewConfig(t), &fakeGenerator{dir: t.TempDir()}, tc.opts...)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/start_recording", nil))
			if rec.Code != http.StatusServiceUnavailable {
				t.Fatalf("expected 503, got %d", rec.Code)
			}
		})
	}
}

func TestJobEndpoints(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	first := testsupport.NewJob(t, store, "Ada", "demo.mp4")
	second := testsupport.NewJob(t, store, "Grace", "demo.mp4")
	if err := store.Fail(context.Background(), second.ID, jobs.StatusFailed, "decode error"); err != nil {
		t.Fatalf("fail job: %v", err)
	}
	handler := newServer(t, cfg, &fakeGenerator{dir: t.TempDir()}, api.WithStore(store))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs", nil))
	var list api.JobListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Jobs) != 2 || list.Stats[jobs.StatusPending] != 1 || list.Stats[jobs.StatusFailed] != 1 {
		t.Fatalf("unexpected list: %+v", list)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs?status=failed", nil))
	list = api.JobListResponse{}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode filtered list: %v", err)
	}
	if len(list.Jobs) != 1 || list.Jobs[0].ID != second.ID {
		t.Fatalf("unexpected filtered list: %+v", list.Jobs)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs?status=bogus", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/"+first.ID, nil))
	var one api.JobResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &one); err != nil {
		t.Fatalf("decode job: %v", err)
	}
	if one.Job == nil || one.Job.UserName != "Ada" {
		t.Fatalf("unexpected job: %+v", one.Job)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestLogsEndpointFilters(t *testing.T) {
	hub := logging.NewStreamHub(16)
	hub.Publish(logging.LogEvent{Message: "one", JobID: "a", Component: "workflow"})
	hub.Publish(logging.LogEvent{Message: "two", JobID: "b", Component: "workflow"})
	hub.Publish(logging.LogEvent{Message: "three", JobID: "a", Component: "pipeline"})
	handler := newServer(t, testsupport.NewConfig(t), &fakeGenerator{dir: t.TempDir()}, api.WithLogHub(hub))

	cases := []struct {
		query string
		want  []string
	}{
		{"", []string{"one", "two", "three"}},
		{"?job=a", []string{"one", "three"}},
		{"?component=PIPELINE", []string{"three"}},
		{"?since=2", []string{"three"}},
		{"?tail=1&limit=1", []string{"three"}},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/logs"+tc.query, nil))
			var resp api.LogStreamResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Next != 3 {
				t.Fatalf("expected next=3, got %d", resp.Next)
			}
			got := make([]string, 0, len(resp.Events))
			for _, evt := range resp.Events {
				got = append(got, evt.Message)
			}
			if strings.Join(got, ",") != strings.Join(tc.want, ",") {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestAdvertiseRejectsInvalidInput(t *testing.T) {
	if _, err := api.Advertise("_visionpro._tcp", 0, nil); err == nil {
		t.Fatal("expected error for zero port")
	}
	if _, err := api.Advertise(" ", 8080, nil); err == nil {
		t.Fatal("expected error for empty service type")
	}
	var ad *api.Advertisement
	ad.Shutdown()
	if ad.Name() != "" {
		t.Fatal("nil advertisement should have no name")
	}
}
