package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"gazeheat/internal/config"
	"gazeheat/internal/jobs"
	"gazeheat/internal/logging"
	"gazeheat/internal/media/ffmpeg"
	"gazeheat/internal/pipeline"
	"gazeheat/internal/session"
)

// MediaTools covers the external preparation and finishing steps around a
// render.
type MediaTools interface {
	Reduce(ctx context.Context, src, dst string, opts ffmpeg.ReduceOptions) (ffmpeg.ReduceResult, error)
	HasAudio(ctx context.Context, path string) (bool, error)
	MergeAudio(ctx context.Context, rendered, audioSource, dst string) error
}

// Manager coordinates generation jobs. It is safe for concurrent use.
type Manager struct {
	cfg      *config.Config
	store    *jobs.Store
	pipeline *pipeline.Pipeline
	tools    MediaTools
	logger   *slog.Logger
	now      func() time.Time

	pipelineOpts pipeline.Options

	mu      sync.Mutex
	claimed map[string]bool
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithClock overrides the time source used for file names.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithPipelineOptions replaces the render options derived from config.
func WithPipelineOptions(opts pipeline.Options) ManagerOption {
	return func(m *Manager) {
		m.pipelineOpts = opts
	}
}

// NewManager constructs a manager. store may be nil, in which case no job
// history is kept.
func NewManager(cfg *config.Config, store *jobs.Store, media pipeline.Media, tools MediaTools, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		cfg:          cfg,
		store:        store,
		tools:        tools,
		logger:       logging.NewComponentLogger(logger, "workflow"),
		now:          time.Now,
		pipelineOpts: pipeline.OptionsFromConfig(cfg),
		claimed:      make(map[string]bool),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.pipeline = pipeline.New(media, m.pipelineOpts, logger)
	return m
}

// Request describes one generation job.
type Request struct {
	VideoPath string
	Tracking  *session.TrackingData
	Kind      jobs.Kind
	// OutputName overrides the default <base>_heatmap.mp4 file name.
	OutputName string
	// OnProgress observes render progress.
	OnProgress func(pipeline.Progress)
}

// Outcome reports what a job produced.
type Outcome struct {
	JobID       string          `json:"job_id,omitempty"`
	OutputPath  string          `json:"output_path"`
	DataPath    string          `json:"data_path,omitempty"`
	AudioMerged bool            `json:"audio_merged"`
	Result      pipeline.Result `json:"result"`
}
