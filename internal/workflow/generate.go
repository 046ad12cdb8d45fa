package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"gazeheat/internal/fileutil"
	"gazeheat/internal/jobs"
	"gazeheat/internal/logging"
	"gazeheat/internal/media/ffmpeg"
	"gazeheat/internal/pipeline"
	"gazeheat/internal/services"
)

// Generate renders one heatmap video for req and returns where it landed.
func (m *Manager) Generate(ctx context.Context, req Request) (*Outcome, error) {
	if req.Tracking == nil {
		return nil, services.Wrap(services.ErrValidation, "workflow", "generate", "tracking data is required", nil)
	}
	if strings.TrimSpace(req.VideoPath) == "" {
		return nil, services.Wrap(services.ErrValidation, "workflow", "generate", "video path is required", nil)
	}
	if err := req.Tracking.Validate(); err != nil {
		return nil, err
	}
	if req.Kind == "" {
		req.Kind = jobs.KindSingle
	}
	if err := m.cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "prepare directories", "", err)
	}

	base := req.Tracking.FileBase(m.now())
	outputName, suffix, release := m.claimOutput(func(suffix string) string {
		if name := strings.TrimSpace(req.OutputName); name != "" {
			name = filepath.Base(name)
			ext := filepath.Ext(name)
			return strings.TrimSuffix(name, ext) + suffix + ext
		}
		return base + suffix + "_heatmap.mp4"
	})
	defer release()
	outcome := &Outcome{
		OutputPath: filepath.Join(m.cfg.Paths.OutputDir, outputName),
	}

	jobID, err := m.createJob(ctx, req)
	if err != nil {
		return nil, err
	}
	outcome.JobID = jobID
	workID := jobID
	if jobID != "" {
		ctx = services.WithJobID(ctx, jobID)
	} else {
		workID = uuid.NewString()
	}
	// scratch files carry the job so concurrent jobs with equal names never share them
	workBase := base + "_" + workID
	logger := logging.WithContext(ctx, m.logger)
	logger.Info("generation started",
		logging.String("video", req.VideoPath),
		logging.String("output", outcome.OutputPath),
		logging.Int("clicks", len(req.Tracking.ClickData)),
		logging.String("kind", string(req.Kind)),
	)

	dataPath := filepath.Join(m.cfg.Paths.OutputDir, base+suffix+"_data.json")
	if err := req.Tracking.Save(dataPath); err != nil {
		logging.WarnWithContext(logger, "tracking data not saved", "tracking_data_save_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check output_dir permissions"),
			logging.String(logging.FieldImpact, "heatmap renders without a saved copy of the click data"),
		)
	} else {
		outcome.DataPath = dataPath
	}

	if err := m.markRunning(ctx, jobID); err != nil {
		return nil, err
	}

	source, cleanup := m.prepareSource(services.WithStage(ctx, "preparing"), logger, req.VideoPath, workBase, jobID)
	defer cleanup()

	tempPath := filepath.Join(m.cfg.Paths.WorkDir, workBase+"_temp.mp4")
	result, err := m.pipeline.Run(services.WithStage(ctx, "rendering"), pipeline.Request{
		SourcePath: source,
		OutputPath: tempPath,
		Clicks:     req.Tracking.Clicks(),
		OnProgress: req.OnProgress,
	})
	if err != nil {
		_ = fileutil.RemoveIfExists(tempPath)
		m.failJob(ctx, logger, jobID, err)
		return nil, err
	}
	outcome.Result = result

	merged, err := m.finalize(services.WithStage(ctx, "finalizing"), logger, tempPath, source, outcome.OutputPath)
	if err != nil {
		m.failJob(ctx, logger, jobID, err)
		return nil, err
	}
	outcome.AudioMerged = merged

	m.completeJob(ctx, logger, jobID, outcome)
	logger.Info("generation completed",
		logging.String("output", outcome.OutputPath),
		logging.Int("frames_written", result.FramesWritten),
		logging.Bool("truncated", result.Truncated),
		logging.Bool("audio_merged", merged),
		logging.String(logging.FieldEventType, "generation_complete"),
	)
	return outcome, nil
}

// prepareSource downsizes the source when enabled. The returned cleanup
// removes any intermediate file.
func (m *Manager) prepareSource(ctx context.Context, logger *slog.Logger, videoPath, workBase, jobID string) (string, func()) {
	noop := func() {}
	if !m.cfg.Media.Reduce || m.tools == nil {
		return videoPath, noop
	}
	reducedPath := filepath.Join(m.cfg.Paths.WorkDir, workBase+"_reduced.mp4")
	reduced, err := m.tools.Reduce(ctx, videoPath, reducedPath, ffmpeg.ReduceOptions{
		MaxWidth:  m.cfg.Media.MaxWidth,
		MaxHeight: m.cfg.Media.MaxHeight,
		CRF:       m.cfg.Media.CRF,
	})
	if err != nil {
		logging.WarnWithContext(logger, "downscale failed; rendering original", "reduce_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "verify ffmpeg can encode libx264"),
			logging.String(logging.FieldImpact, "rendering runs at full source resolution"),
		)
		_ = fileutil.RemoveIfExists(reducedPath)
		return videoPath, noop
	}
	if !reduced.Reduced {
		return videoPath, noop
	}
	logger.Info("source downscaled",
		logging.String("path", reduced.Path),
		logging.Float64("scale_x", reduced.ScaleX),
		logging.Float64("scale_y", reduced.ScaleY),
	)
	if m.store != nil && jobID != "" {
		if err := m.store.SetSource(ctx, jobID, reduced.Path, reduced.ScaleX, reduced.ScaleY); err != nil {
			logger.Warn("record downscaled source", logging.Error(err))
		}
	}
	return reduced.Path, func() {
		if reduced.Path != videoPath {
			_ = fileutil.RemoveIfExists(reduced.Path)
		}
	}
}

// finalize restores audio from source onto the rendered video. Audio
// problems fall back to the silent render.
func (m *Manager) finalize(ctx context.Context, logger *slog.Logger, tempPath, source, outputPath string) (bool, error) {
	defer func() { _ = fileutil.RemoveIfExists(tempPath) }()

	hasAudio := false
	if m.tools != nil {
		var err error
		hasAudio, err = m.tools.HasAudio(ctx, source)
		if err != nil {
			logging.WarnWithContext(logger, "audio probe failed; output will be silent", "audio_probe_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "verify ffprobe is installed"),
				logging.String(logging.FieldImpact, "heatmap video has no audio track"),
			)
			hasAudio = false
		}
	}

	if hasAudio {
		err := m.tools.MergeAudio(ctx, tempPath, source, outputPath)
		if err == nil {
			return true, nil
		}
		logging.WarnWithContext(logger, "audio merge failed; keeping silent render", "remux_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check ffmpeg output for the source audio codec"),
			logging.String(logging.FieldImpact, "heatmap video has no audio track"),
		)
		_ = fileutil.RemoveIfExists(outputPath)
	}

	if err := fileutil.MoveFile(tempPath, outputPath); err != nil {
		return false, services.Wrap(services.ErrSinkWrite, "finalizing", "move output", outputPath, err)
	}
	return false, nil
}

func (m *Manager) createJob(ctx context.Context, req Request) (string, error) {
	if m.store == nil {
		return "", nil
	}
	job, err := m.store.Create(ctx, jobs.Job{
		Kind:         req.Kind,
		UserName:     req.Tracking.UserName,
		VideoName:    req.Tracking.VideoName,
		TrackingType: req.Tracking.TrackingType,
		ClickCount:   len(req.Tracking.ClickData),
		SourcePath:   req.VideoPath,
	})
	if err != nil {
		return "", fmt.Errorf("record job: %w", err)
	}
	return job.ID, nil
}

func (m *Manager) markRunning(ctx context.Context, jobID string) error {
	if m.store == nil || jobID == "" {
		return nil
	}
	if err := m.store.MarkRunning(ctx, jobID); err != nil {
		return fmt.Errorf("mark job running: %w", err)
	}
	return nil
}

func (m *Manager) failJob(ctx context.Context, logger *slog.Logger, jobID string, jobErr error) {
	status := services.FailureStatus(jobErr)
	logging.ErrorWithContext(logger, "generation failed", "generation_failed",
		logging.Error(jobErr),
		logging.String("resolved_status", string(status)),
		logging.Alert("generation_failure"),
	)
	if m.store == nil || jobID == "" {
		return
	}
	if err := m.store.Fail(context.WithoutCancel(ctx), jobID, status, jobErr.Error()); err != nil {
		logger.Error("failed to persist job failure", logging.Error(err))
	}
}

func (m *Manager) completeJob(ctx context.Context, logger *slog.Logger, jobID string, outcome *Outcome) {
	if m.store == nil || jobID == "" {
		return
	}
	err := m.store.Complete(context.WithoutCancel(ctx), jobID, jobs.Outcome{
		OutputPath:    outcome.OutputPath,
		FramesWritten: outcome.Result.FramesWritten,
		Truncated:     outcome.Result.Truncated,
		HoldFrame:     outcome.Result.HoldFrame,
		FieldMode:     string(outcome.Result.FieldMode),
	})
	if err != nil {
		logger.Error("failed to persist job completion", logging.Error(err))
	}
}

// claimOutput reserves an output file name for the running job. When another
// in-flight job holds nameFor(""), a numeric suffix is tried instead. Files
// left by finished jobs are overwritten as before.
func (m *Manager) claimOutput(nameFor func(suffix string) string) (string, string, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	suffix := ""
	for n := 2; m.claimed[nameFor(suffix)]; n++ {
		suffix = "_" + strconv.Itoa(n)
	}
	name := nameFor(suffix)
	m.claimed[name] = true
	return name, suffix, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.claimed, name)
	}
}
