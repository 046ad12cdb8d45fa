package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"gazeheat/internal/fileutil"
	"gazeheat/internal/jobs"
	"gazeheat/internal/logging"
	"gazeheat/internal/recording"
	"gazeheat/internal/services"
	"gazeheat/internal/session"
	"gazeheat/internal/textutil"
	"gazeheat/internal/workflow"
)

// multipartMemory bounds the in-memory part of a parsed upload.
const multipartMemory = 32 << 20

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := HealthResponse{Status: "ok"}
	if s.recorder != nil {
		_, resp.Recording = s.recorder.Active()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes())
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			s.writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds the size limit")
			return
		}
		s.writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	tracking, err := session.Parse([]byte(r.FormValue("tracking_data")))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	file, header, err := r.FormFile("video")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "video file is required")
		return
	}
	defer file.Close()

	uploadPath, err := s.saveUpload(file, header.Filename)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer func() { _ = fileutil.RemoveIfExists(uploadPath) }()

	s.generateAndServe(w, r, uploadPath, tracking)
}

func (s *Server) handleStartRecording(w http.ResponseWriter, _ *http.Request) {
	if s.recorder == nil {
		s.writeError(w, http.StatusServiceUnavailable, recording.ErrDisabled.Error())
		return
	}
	info, err := s.recorder.Start()
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, recording.ErrDisabled) {
			status = http.StatusServiceUnavailable
		}
		s.writeError(w, status, err.Error())
		return
	}
	message := "Recording started"
	if info.Audio {
		message = "Recording with audio started"
	}
	s.writeJSON(w, http.StatusOK, StatusResponse{Status: "success", Message: message, RecordingID: info.ID})
}

func (s *Server) handleStopRecording(w http.ResponseWriter, r *http.Request) {
	if s.recorder == nil {
		s.writeError(w, http.StatusBadRequest, recording.ErrNotRecording.Error())
		return
	}
	var body StopRecordingRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, s.cfg.MaxUploadBytes())).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	raw := body.TrackingData
	if len(raw) == 0 || string(raw) == "null" {
		raw = json.RawMessage(`{}`)
	}
	tracking, err := session.Parse(raw)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	path, err := s.recorder.Stop(r.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, recording.ErrNotRecording) {
			status = http.StatusBadRequest
		}
		s.writeError(w, status, err.Error())
		return
	}
	defer func() { _ = fileutil.RemoveIfExists(path) }()

	s.generateAndServe(w, r, path, tracking)
}

// generateAndServe renders videoPath and streams the result back.
func (s *Server) generateAndServe(w http.ResponseWriter, r *http.Request, videoPath string, tracking *session.TrackingData) {
	outcome, err := s.generator.Generate(r.Context(), workflow.Request{VideoPath: videoPath, Tracking: tracking})
	if err != nil {
		s.writeError(w, statusForError(err), "failed to generate heatmap: "+err.Error())
		return
	}
	f, err := os.Open(outcome.OutputPath)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "heatmap output missing")
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "heatmap output unreadable")
		return
	}
	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Disposition", `attachment; filename="heatmap.mp4"`)
	if outcome.JobID != "" {
		w.Header().Set("X-Job-ID", outcome.JobID)
	}
	http.ServeContent(w, r, "heatmap.mp4", info.ModTime(), f)
}

func (s *Server) saveUpload(src io.Reader, name string) (string, error) {
	ext := ".mp4"
	if raw := strings.TrimPrefix(filepath.Ext(name), "."); raw != "" {
		ext = "." + textutil.SanitizeToken(raw)
	}
	if err := os.MkdirAll(s.cfg.Paths.WorkDir, 0o755); err != nil {
		return "", fmt.Errorf("create work dir: %w", err)
	}
	path := filepath.Join(s.cfg.Paths.WorkDir, "upload_"+uuid.NewString()+ext)
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("store upload: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("store upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("store upload: %w", err)
	}
	return path, nil
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeJSON(w, http.StatusOK, JobListResponse{Jobs: []*jobs.Job{}})
		return
	}
	query := r.URL.Query()
	var opts jobs.ListOptions
	for _, value := range query["status"] {
		for _, part := range strings.Split(value, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			status, ok := jobs.ParseStatus(part)
			if !ok {
				s.writeError(w, http.StatusBadRequest, "unknown status "+strconv.Quote(part))
				return
			}
			opts.Statuses = append(opts.Statuses, status)
		}
	}
	if limit, err := strconv.Atoi(query.Get("limit")); err == nil && limit > 0 {
		opts.Limit = limit
	}

	list, err := s.store.List(r.Context(), opts)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if list == nil {
		list = []*jobs.Job{}
	}
	s.writeJSON(w, http.StatusOK, JobListResponse{Jobs: list, Stats: stats})
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	job, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if job == nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, JobResponse{Job: job})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		s.writeJSON(w, http.StatusOK, LogStreamResponse{Events: []logging.LogEvent{}})
		return
	}
	query := r.URL.Query()
	since, _ := strconv.ParseUint(query.Get("since"), 10, 64)
	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 {
		limit = 200
	}
	follow := query.Get("follow") == "1" || strings.EqualFold(query.Get("follow"), "true")
	tail := query.Get("tail") == "1" || strings.EqualFold(query.Get("tail"), "true")

	// a canceled follower simply gets whatever was collected
	events, next, _ := s.hub.Query(r.Context(), logging.StreamQuery{
		Since:     since,
		Limit:     limit,
		Follow:    follow,
		Tail:      tail && since == 0 && !follow,
		JobID:     strings.TrimSpace(query.Get("job")),
		Component: strings.TrimSpace(query.Get("component")),
	})
	if events == nil {
		events = []logging.LogEvent{}
	}
	s.writeJSON(w, http.StatusOK, LogStreamResponse{Events: events, Next: next})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrSourceOpen):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, StatusResponse{Status: "error", Message: message})
}
