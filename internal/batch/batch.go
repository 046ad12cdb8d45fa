package batch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"

	"gazeheat/internal/config"
	"gazeheat/internal/heatmap"
	"gazeheat/internal/jobs"
	"gazeheat/internal/logging"
	"gazeheat/internal/services"
	"gazeheat/internal/session"
	"gazeheat/internal/workflow"
)

// VideoExtensions lists the recognized stimulus formats in lookup order.
var VideoExtensions = []string{".mp4", ".avi", ".mov", ".mkv", ".flv", ".wmv"}

// ErrFolderBusy reports that another run holds the folder lock.
var ErrFolderBusy = errors.New("folder is already being processed")

// Generator renders one job.
type Generator interface {
	Generate(ctx context.Context, req workflow.Request) (*workflow.Outcome, error)
}

// Participant is one contributor listed in the summary.
type Participant struct {
	UserName       string          `json:"user_name"`
	ClickCount     int             `json:"click_count"`
	PrecisionScore json.RawMessage `json:"precision_score"`
}

// Summary is written beside the averaged video.
type Summary struct {
	ParticipantCount    int           `json:"participant_count"`
	VideoName           string        `json:"video_name"`
	Participants        []Participant `json:"participants"`
	GenerationTimestamp string        `json:"generation_timestamp"`
	ProcessingType      string        `json:"processing_type"`
	TotalClicks         int           `json:"total_clicks"`
	SkippedFiles        []string      `json:"skipped_files,omitempty"`
}

// Result describes a finished folder run.
type Result struct {
	VideoPath   string            `json:"video_path"`
	OutputPath  string            `json:"output_path"`
	SummaryPath string            `json:"summary_path"`
	Summary     Summary           `json:"summary"`
	Outcome     *workflow.Outcome `json:"outcome"`
}

// Processor runs folder batches.
type Processor struct {
	cfg    *config.Config
	gen    Generator
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Processor.
type Option func(*Processor)

// WithClock overrides the time source used for output names.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		if now != nil {
			p.now = now
		}
	}
}

// NewProcessor constructs a Processor.
func NewProcessor(cfg *config.Config, gen Generator, logger *slog.Logger, opts ...Option) *Processor {
	p := &Processor{
		cfg:    cfg,
		gen:    gen,
		logger: logging.NewComponentLogger(logger, "batch"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessFolder renders the averaged heatmap for folder.
func (p *Processor) ProcessFolder(ctx context.Context, folder string) (*Result, error) {
	abs, err := filepath.Abs(folder)
	if err != nil {
		return nil, fmt.Errorf("resolve folder: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return nil, services.Wrap(services.ErrNotFound, "batch", "open folder", abs+" is not a directory", err)
	}

	if err := p.cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "batch", "prepare directories", "", err)
	}
	lock := flock.New(lockPath(p.cfg.Paths.WorkDir, abs))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire folder lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFolderBusy, abs)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			p.logger.Warn("failed to release folder lock", logging.Error(err))
		}
	}()

	logger := p.logger.With(logging.String("folder", abs))
	pool, err := p.loadParticipants(logger, abs)
	if err != nil {
		return nil, err
	}
	if len(pool.clicks) == 0 {
		return nil, services.Wrap(services.ErrValidation, "batch", "load tracking data", "no valid click data found in "+abs, nil)
	}

	videoPath, err := FindVideo(abs)
	if err != nil {
		return nil, err
	}

	stamp := p.now().Format(session.TimestampLayout)
	name := "averaged_heatmap_" + stamp
	logger.Info("averaged generation started",
		logging.String("video", videoPath),
		logging.Int("participants", len(pool.participants)),
		logging.Int("clicks", len(pool.clicks)),
	)
	outcome, err := p.gen.Generate(ctx, workflow.Request{
		VideoPath: videoPath,
		Kind:      jobs.KindAveraged,
		Tracking: &session.TrackingData{
			UserName:     "averaged",
			TrackingType: "heatmap",
			Timestamp:    stamp,
			ClickData:    pool.clicks,
		},
		OutputName: name + ".mp4",
	})
	if err != nil {
		return nil, err
	}

	summary := Summary{
		ParticipantCount:    len(pool.participants),
		VideoName:           filepath.Base(videoPath),
		Participants:        pool.participants,
		GenerationTimestamp: stamp,
		ProcessingType:      "averaged_heatmap",
		TotalClicks:         len(pool.clicks),
		SkippedFiles:        pool.skipped,
	}
	summaryPath := filepath.Join(p.cfg.Paths.OutputDir, name+".json")
	if err := writeSummary(summaryPath, summary); err != nil {
		return nil, err
	}
	logger.Info("averaged heatmap generated",
		logging.String("output", outcome.OutputPath),
		logging.String("summary", summaryPath),
		logging.String(logging.FieldEventType, "batch_complete"),
	)
	return &Result{
		VideoPath:   videoPath,
		OutputPath:  outcome.OutputPath,
		SummaryPath: summaryPath,
		Summary:     summary,
		Outcome:     outcome,
	}, nil
}

type participantPool struct {
	clicks       []heatmap.ClickEvent
	participants []Participant
	skipped      []string
}

// loadParticipants reads every *.json in folder. Unreadable files are
// skipped with a warning.
func (p *Processor) loadParticipants(logger *slog.Logger, folder string) (participantPool, error) {
	var pool participantPool
	files, err := filepath.Glob(filepath.Join(folder, "*.json"))
	if err != nil {
		return pool, fmt.Errorf("list tracking files: %w", err)
	}
	sort.Strings(files)
	for _, file := range files {
		td, err := session.Load(file)
		if err != nil {
			logging.WarnWithContext(logger, "skipping tracking file", "tracking_file_skipped",
				logging.String("file", filepath.Base(file)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "fix or remove the file and rerun"),
				logging.String(logging.FieldImpact, "participant excluded from the averaged heatmap"),
			)
			pool.skipped = append(pool.skipped, filepath.Base(file))
			continue
		}
		pool.clicks = append(pool.clicks, td.ClickData...)
		if td.UserName != "" && td.HasPrecision() {
			pool.participants = append(pool.participants, Participant{
				UserName:       td.UserName,
				ClickCount:     len(td.ClickData),
				PrecisionScore: td.PrecisionScore,
			})
		}
	}
	return pool, nil
}

// FindVideo returns the first video in folder, trying extensions in
// VideoExtensions order and names alphabetically within an extension.
func FindVideo(folder string) (string, error) {
	for _, ext := range VideoExtensions {
		matches, err := filepath.Glob(filepath.Join(folder, "*"+ext))
		if err != nil {
			return "", fmt.Errorf("list videos: %w", err)
		}
		sort.Strings(matches)
		for _, match := range matches {
			if info, err := os.Stat(match); err == nil && info.Mode().IsRegular() {
				return match, nil
			}
		}
	}
	return "", services.Wrap(services.ErrNotFound, "batch", "find video", "no video file found in "+folder, nil)
}

func writeSummary(path string, summary Summary) error {
	if summary.Participants == nil {
		summary.Participants = []Participant{}
	}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

func lockPath(workDir, folder string) string {
	sum := sha256.Sum256([]byte(folder))
	return filepath.Join(workDir, "batch-"+hex.EncodeToString(sum[:6])+".lock")
}
