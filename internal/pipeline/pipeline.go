package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"

	"gazeheat/internal/config"
	"gazeheat/internal/heatmap"
	"gazeheat/internal/logging"
	"gazeheat/internal/services"
)

const (
	defaultBatchSize   = 50
	largeBatchSize     = 25
	largeFramePixels   = 1_000_000
	inflightPerWorker  = 4
	progressBucketSize = 1
)

// Options tunes rendering and scheduling.
type Options struct {
	Render      heatmap.RenderOptions
	Compositor  heatmap.Compositor
	FadeSeconds float64
	Workers     int
	// BatchSize is the number of frames between progress reports. Zero picks
	// 50, or 25 for frames of at least one megapixel.
	BatchSize int
	// Streaming forces the on-demand field.
	Streaming bool
	// MaxFieldBytes switches to the on-demand field when the dense field
	// would exceed it. Zero disables the switch.
	MaxFieldBytes int64
	// OnState observes lifecycle transitions.
	OnState func(State)
}

// DefaultOptions returns the stock rendering parameters.
func DefaultOptions() Options {
	return Options{
		Render:      heatmap.DefaultRenderOptions(),
		Compositor:  heatmap.DefaultCompositor(),
		FadeSeconds: 0.3,
		Workers:     runtime.NumCPU(),
	}
}

// OptionsFromConfig maps the [render] and [pipeline] sections.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	if cfg == nil {
		return opts
	}
	opts.Render = heatmap.RenderOptions{
		BaseSigma: cfg.Render.BaseSigma,
		BaseWidth: cfg.Render.BaseWidth,
		MinSigma:  cfg.Render.MinSigma,
	}
	opts.Compositor = heatmap.Compositor{
		DarkenWeight:  cfg.Render.DarkenWeight,
		OverlayWeight: cfg.Render.OverlayWeight,
	}
	opts.FadeSeconds = cfg.Render.FadeSeconds
	opts.Workers = cfg.Pipeline.Workers
	opts.BatchSize = cfg.Pipeline.BatchSize
	opts.Streaming = cfg.Pipeline.Streaming
	opts.MaxFieldBytes = cfg.Pipeline.MaxFieldBytes
	return opts
}

// Request is one render job.
type Request struct {
	SourcePath string
	OutputPath string
	Clicks     []heatmap.ClickEvent
	OnProgress func(Progress)
}

// Pipeline renders heatmap videos. A Pipeline may run several requests
// concurrently.
type Pipeline struct {
	media      Media
	opts       Options
	renderer   *heatmap.Renderer
	compositor heatmap.Compositor
	logger     *slog.Logger
}

// New constructs a pipeline over the given media backend.
func New(media Media, opts Options, logger *slog.Logger) *Pipeline {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Compositor == (heatmap.Compositor{}) {
		opts.Compositor = heatmap.DefaultCompositor()
	}
	return &Pipeline{
		media:      media,
		opts:       opts,
		renderer:   heatmap.NewRenderer(opts.Render),
		compositor: opts.Compositor,
		logger:     logging.NewComponentLogger(logger, "pipeline"),
	}
}

// Run renders req.SourcePath with the click overlay into req.OutputPath.
//
// A source that cannot be opened fails the run. A read failure mid-stream
// stops rendering early and marks the result truncated. Sink failures are
// errors since no usable output can exist.
func (p *Pipeline) Run(ctx context.Context, req Request) (Result, error) {
	logger := logging.WithContext(ctx, p.logger)
	p.transition(logger, StateOpening)

	src, err := p.media.OpenSource(req.SourcePath)
	if err != nil {
		p.transition(logger, StateFailed)
		return Result{}, services.Wrap(services.ErrSourceOpen, "pipeline", "open source", req.SourcePath, err)
	}
	defer src.Close()

	info := src.Info()
	if info.Width <= 0 || info.Height <= 0 || info.FrameRate <= 0 {
		p.transition(logger, StateFailed)
		return Result{}, services.Wrap(services.ErrSourceOpen, "pipeline", "probe source",
			fmt.Sprintf("invalid geometry %dx%d at %.3f fps", info.Width, info.Height, info.FrameRate), nil)
	}
	logger.Info("source opened",
		logging.String("source", req.SourcePath),
		logging.Int("width", info.Width),
		logging.Int("height", info.Height),
		logging.Float64("fps", info.FrameRate),
		logging.Int("frames", info.FrameCount),
		logging.Int("clicks", len(req.Clicks)),
	)

	p.transition(logger, StateBuildingField)
	field, mode := p.buildField(req.Clicks, info.Geometry())
	logger.Info("heatmap field ready",
		logging.String("field_mode", string(mode)),
		logging.Float64("peak", float64(field.Peak())),
		logging.Int64("estimated_bytes", heatmap.EstimateFieldBytes(info.Geometry())),
	)

	result := Result{FrameCount: info.FrameCount, FieldMode: mode, Info: info}
	if err := ctx.Err(); err != nil {
		p.transition(logger, StateFailed)
		return result, err
	}

	sink, err := p.media.CreateSink(req.OutputPath, info)
	if err != nil {
		p.transition(logger, StateFailed)
		return result, services.Wrap(services.ErrSinkWrite, "pipeline", "create sink", req.OutputPath, err)
	}

	p.transition(logger, StateRendering)
	stats, err := p.render(ctx, logger, src, sink, field, info, req.OnProgress)
	result.FramesWritten = stats.written
	if err != nil {
		_ = sink.Close()
		p.transition(logger, StateFailed)
		return result, err
	}
	if stats.readErr != nil {
		result.Truncated = true
		logging.WarnWithContext(logger, "frame read failed; output truncated", "frame_read_failed",
			logging.Int("frames_written", stats.written),
			logging.Int("frames_expected", info.FrameCount),
			logging.Error(stats.readErr),
			logging.String(logging.FieldErrorHint, "check the source file for corruption"),
			logging.String(logging.FieldImpact, "heatmap video is shorter than the source"),
		)
	}

	p.transition(logger, StateFinalFrame)
	hold, how := p.holdFrame(src, info, req.Clicks)
	if hold != nil {
		if err := sink.Write(hold); err != nil {
			_ = sink.Close()
			p.transition(logger, StateFailed)
			return result, services.Wrap(services.ErrSinkWrite, "pipeline", "write hold frame", req.OutputPath, err)
		}
		result.HoldFrame = true
		result.HoldSource = how
		result.FramesWritten++
		if how != HoldSeek {
			logging.WarnWithContext(logger, "final frame seek failed; using fallback background", "hold_frame_fallback",
				logging.String("hold_source", string(how)),
				logging.String(logging.FieldErrorHint, "source may not support random access"),
				logging.String(logging.FieldImpact, "closing frame background may differ from the last source frame"),
			)
		}
	}

	p.transition(logger, StateFinalizing)
	if err := sink.Close(); err != nil {
		p.transition(logger, StateFailed)
		return result, services.Wrap(services.ErrSinkWrite, "pipeline", "close sink", req.OutputPath, err)
	}
	p.transition(logger, StateDone)
	logger.Info("heatmap video written",
		logging.String("output", req.OutputPath),
		logging.Int("frames_written", result.FramesWritten),
		logging.Bool("truncated", result.Truncated),
		logging.Bool("hold_frame", result.HoldFrame),
	)
	return result, nil
}

func (p *Pipeline) buildField(clicks []heatmap.ClickEvent, g heatmap.Geometry) (heatmap.Field, FieldMode) {
	if p.opts.Streaming || (p.opts.MaxFieldBytes > 0 && heatmap.EstimateFieldBytes(g) > p.opts.MaxFieldBytes) {
		return heatmap.NewWindowField(clicks, g, p.opts.FadeSeconds), FieldStreaming
	}
	return heatmap.BuildField(clicks, g, p.opts.FadeSeconds), FieldDense
}

type frameJob struct {
	index int
	frame []byte
}

type renderStats struct {
	written int
	// readErr ended the stream before FrameCount frames.
	readErr error
}

// render reads frames sequentially, fans them out to workers, and writes
// results in index order.
func (p *Pipeline) render(
	ctx context.Context,
	logger *slog.Logger,
	src FrameSource,
	sink FrameSink,
	field heatmap.Field,
	info VideoInfo,
	onProgress func(Progress),
) (renderStats, error) {
	total := info.FrameCount
	if total <= 0 {
		return renderStats{}, nil
	}
	workers := min(p.opts.Workers, total)
	window := workers * inflightPerWorker

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan frameJob, workers)
	results := make(chan frameJob, window)
	slots := make(chan struct{}, window)

	var readErr error
	produced := make(chan struct{})
	go func() {
		defer close(produced)
		defer close(jobs)
		for i := 0; i < total; i++ {
			select {
			case slots <- struct{}{}:
			case <-runCtx.Done():
				return
			}
			frame, err := src.Read()
			if err == nil && len(frame) != info.FrameSize() {
				err = fmt.Errorf("frame %d has %d bytes, want %d", i, len(frame), info.FrameSize())
			}
			if err != nil {
				if errors.Is(err, io.EOF) {
					err = fmt.Errorf("frame %d: %w", i, io.ErrUnexpectedEOF)
				}
				readErr = services.Wrap(services.ErrFrameRead, "pipeline", "read frame", "", err)
				return
			}
			select {
			case jobs <- frameJob{index: i, frame: frame}:
			case <-runCtx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				overlay := p.renderer.Render(field.Slice(job.index), info.Width, info.Height)
				job.frame = p.compositor.Composite(job.frame, job.frame, overlay)
				select {
				case results <- job:
				case <-runCtx.Done():
					return
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	batch := p.batchSize(info)
	sampler := logging.NewProgressSampler(progressBucketSize)
	pending := make(map[int][]byte, window)
	next := 0
	var writeErr error
	for job := range results {
		if writeErr != nil {
			continue
		}
		pending[job.index] = job.frame
		for {
			frame, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			if err := sink.Write(frame); err != nil {
				writeErr = services.Wrap(services.ErrSinkWrite, "pipeline", "write frame", fmt.Sprintf("frame %d", next), err)
				cancel()
				break
			}
			next++
			<-slots
			if next%batch == 0 || next == total {
				p.reportProgress(logger, sampler, next, total, onProgress)
			}
		}
	}

	cancel()
	<-produced

	if writeErr != nil {
		return renderStats{written: next}, writeErr
	}
	if readErr == nil && next < total {
		if err := ctx.Err(); err != nil {
			return renderStats{written: next}, err
		}
		return renderStats{written: next}, context.Canceled
	}
	return renderStats{written: next, readErr: readErr}, nil
}

func (p *Pipeline) reportProgress(logger *slog.Logger, sampler *logging.ProgressSampler, written, total int, onProgress func(Progress)) {
	percent := float64(written) / float64(total) * 100
	if onProgress != nil {
		onProgress(Progress{Written: written, Total: total, Percent: percent})
	}
	if sampler.ShouldLog(percent, string(StateRendering)) {
		logger.Info("render progress",
			logging.Int("frames_written", written),
			logging.Int("frames_total", total),
			logging.Float64("percent", percent),
		)
	}
}

func (p *Pipeline) batchSize(info VideoInfo) int {
	if p.opts.BatchSize > 0 {
		return p.opts.BatchSize
	}
	if info.Width*info.Height >= largeFramePixels {
		return largeBatchSize
	}
	return defaultBatchSize
}

// holdFrame composites the summary of every click over the last source
// frame. It returns nil when no click landed on the frame grid.
func (p *Pipeline) holdFrame(src FrameSource, info VideoInfo, clicks []heatmap.ClickEvent) ([]byte, HoldSource) {
	summary := heatmap.BuildSummary(clicks, info.Width, info.Height)
	overlay := p.renderer.Render(summary, info.Width, info.Height)
	if overlay == nil {
		return nil, HoldNone
	}
	base, how := lastFrame(src, info)
	return p.compositor.Composite(base, base, overlay), how
}

// lastFrame seeks to the final frame. When the source cannot seek it
// rewinds and reads forward, keeping the last frame that decoded. A blank
// frame is the final fallback.
func lastFrame(src FrameSource, info VideoInfo) ([]byte, HoldSource) {
	size := info.FrameSize()
	n := info.FrameCount
	if n > 0 {
		if err := src.Seek(n - 1); err == nil {
			if frame, err := src.Read(); err == nil && len(frame) == size {
				return frame, HoldSeek
			}
		}
		if err := src.Seek(0); err == nil {
			var last []byte
			for i := 0; i < n; i++ {
				frame, err := src.Read()
				if err != nil || len(frame) != size {
					break
				}
				last = frame
			}
			if last != nil {
				return last, HoldRescan
			}
		}
	}
	return make([]byte, size), HoldBlank
}

func (p *Pipeline) transition(logger *slog.Logger, state State) {
	logger.Debug("pipeline state", logging.String(logging.FieldStage, string(state)))
	if p.opts.OnState != nil {
		p.opts.OnState(state)
	}
}
