package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"gazeheat/internal/heatmap"
	"gazeheat/internal/logging"
	"gazeheat/internal/pipeline"
	"gazeheat/internal/services"
	"gazeheat/internal/testsupport"
)

const (
	testWidth  = 32
	testHeight = 18
	testFPS    = 30
	testFrames = 30
)

func testInfo() pipeline.VideoInfo {
	return pipeline.VideoInfo{Width: testWidth, Height: testHeight, FrameRate: testFPS, FrameCount: testFrames}
}

func sampleClicks() []heatmap.ClickEvent {
	return []heatmap.ClickEvent{
		{X: 0.25, Y: 0.5, Timestamp: 0.3},
		{X: 0.25, Y: 0.5, Timestamp: 0.4},
		{X: 0.75, Y: 0.2, Timestamp: 0.6},
	}
}

func newMedia(configure func(*testsupport.MemorySource)) *testsupport.MemoryMedia {
	media := testsupport.NewMemoryMedia()
	frames := testsupport.GradientFrames(testFrames, testWidth, testHeight)
	media.AddSource("in.mp4", func() *testsupport.MemorySource {
		src := testsupport.NewMemorySource(testInfo(), frames)
		if configure != nil {
			configure(src)
		}
		return src
	})
	return media
}

func run(t *testing.T, media *testsupport.MemoryMedia, opts pipeline.Options, clicks []heatmap.ClickEvent) (pipeline.Result, [][]byte) {
	t.Helper()
	p := pipeline.New(media, opts, logging.NewNop())
	result, err := p.Run(context.Background(), pipeline.Request{SourcePath: "in.mp4", OutputPath: "out.mp4", Clicks: clicks})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	sink := media.Sink("out.mp4")
	if sink == nil || !sink.Closed {
		t.Fatal("expected closed sink")
	}
	return result, sink.Frames
}

func TestEmptyClicksYieldDarkenedFrames(t *testing.T) {
	media := newMedia(nil)
	result, frames := run(t, media, pipeline.DefaultOptions(), nil)

	if result.FramesWritten != testFrames || len(frames) != testFrames {
		t.Fatalf("expected %d frames, got result=%d sink=%d", testFrames, result.FramesWritten, len(frames))
	}
	if result.HoldFrame || result.Truncated {
		t.Fatalf("unexpected result flags: %+v", result)
	}
	compositor := heatmap.DefaultCompositor()
	source := testsupport.GradientFrames(testFrames, testWidth, testHeight)
	for i, frame := range frames {
		if !bytes.Equal(frame, compositor.Darken(nil, source[i])) {
			t.Fatalf("frame %d is not the darkened source", i)
		}
	}
}

func TestRunIsDeterministic(t *testing.T) {
	_, first := run(t, newMedia(nil), pipeline.DefaultOptions(), sampleClicks())
	_, second := run(t, newMedia(nil), pipeline.DefaultOptions(), sampleClicks())
	if len(first) != len(second) {
		t.Fatalf("frame counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if !bytes.Equal(first[i], second[i]) {
			t.Fatalf("frame %d differs between runs", i)
		}
	}
}

func TestWorkerCountDoesNotChangeOutput(t *testing.T) {
	single := pipeline.DefaultOptions()
	single.Workers = 1
	many := pipeline.DefaultOptions()
	many.Workers = 8

	_, a := run(t, newMedia(nil), single, sampleClicks())
	_, b := run(t, newMedia(nil), many, sampleClicks())
	for i := range a {
		if !bytes.Equal(a[i], b[i]) {
			t.Fatalf("frame %d differs between 1 and 8 workers", i)
		}
	}
}

func TestStreamingFieldMatchesDense(t *testing.T) {
	dense := pipeline.DefaultOptions()
	streaming := pipeline.DefaultOptions()
	streaming.Streaming = true

	denseResult, a := run(t, newMedia(nil), dense, sampleClicks())
	streamResult, b := run(t, newMedia(nil), streaming, sampleClicks())
	if denseResult.FieldMode != pipeline.FieldDense || streamResult.FieldMode != pipeline.FieldStreaming {
		t.Fatalf("unexpected field modes: %s / %s", denseResult.FieldMode, streamResult.FieldMode)
	}
	for i := range a {
		if !bytes.Equal(a[i], b[i]) {
			t.Fatalf("frame %d differs between dense and streaming fields", i)
		}
	}
}

func TestFieldSizeLimitSwitchesToStreaming(t *testing.T) {
	opts := pipeline.DefaultOptions()
	opts.MaxFieldBytes = 1024
	result, _ := run(t, newMedia(nil), opts, sampleClicks())
	if result.FieldMode != pipeline.FieldStreaming {
		t.Fatalf("expected streaming field above limit, got %s", result.FieldMode)
	}
}

func TestHoldFrameAppendedWhenClicksPresent(t *testing.T) {
	result, frames := run(t, newMedia(nil), pipeline.DefaultOptions(), sampleClicks())
	if !result.HoldFrame || result.HoldSource != pipeline.HoldSeek {
		t.Fatalf("expected seek-sourced hold frame, got %+v", result)
	}
	if len(frames) != testFrames+1 || result.FramesWritten != testFrames+1 {
		t.Fatalf("expected %d frames, got %d", testFrames+1, len(frames))
	}
	source := testsupport.GradientFrames(testFrames, testWidth, testHeight)
	darkLast := heatmap.DefaultCompositor().Darken(nil, source[testFrames-1])
	if bytes.Equal(frames[testFrames], darkLast) {
		t.Fatal("expected hold frame to carry the summary overlay")
	}
}

func TestHoldFrameFallsBackToRescan(t *testing.T) {
	_, want := run(t, newMedia(nil), pipeline.DefaultOptions(), sampleClicks())

	media := newMedia(func(src *testsupport.MemorySource) { src.FailSeekTo = testFrames - 1 })
	result, got := run(t, media, pipeline.DefaultOptions(), sampleClicks())
	if result.HoldSource != pipeline.HoldRescan {
		t.Fatalf("expected rescan hold source, got %q", result.HoldSource)
	}
	if !bytes.Equal(got[testFrames], want[testFrames]) {
		t.Fatal("rescanned hold frame should match the seeked one")
	}
}

func TestHoldFrameFallsBackToBlank(t *testing.T) {
	media := newMedia(func(src *testsupport.MemorySource) { src.SeekErr = errors.New("not seekable") })
	result, frames := run(t, media, pipeline.DefaultOptions(), sampleClicks())
	if result.HoldSource != pipeline.HoldBlank {
		t.Fatalf("expected blank hold source, got %q", result.HoldSource)
	}
	summary := heatmap.BuildSummary(sampleClicks(), testWidth, testHeight)
	overlay := heatmap.NewRenderer(heatmap.DefaultRenderOptions()).Render(summary, testWidth, testHeight)
	blank := make([]byte, testWidth*testHeight*3)
	want := heatmap.DefaultCompositor().Composite(nil, blank, overlay)
	if !bytes.Equal(frames[testFrames], want) {
		t.Fatal("expected hold frame composited over a zero frame")
	}
}

func TestReadFailureTruncatesOutput(t *testing.T) {
	_, full := run(t, newMedia(nil), pipeline.DefaultOptions(), sampleClicks())

	media := newMedia(func(src *testsupport.MemorySource) { src.FailAt = 12 })
	result, frames := run(t, media, pipeline.DefaultOptions(), sampleClicks())
	if !result.Truncated {
		t.Fatal("expected truncated result")
	}
	// 12 rendered frames plus the hold frame
	if result.FramesWritten != 13 || len(frames) != 13 {
		t.Fatalf("expected 13 frames, got result=%d sink=%d", result.FramesWritten, len(frames))
	}
	for i := 0; i < 12; i++ {
		if !bytes.Equal(frames[i], full[i]) {
			t.Fatalf("frame %d differs from untruncated run", i)
		}
	}
	if result.HoldSource != pipeline.HoldRescan {
		t.Fatalf("expected rescan after failed final read, got %q", result.HoldSource)
	}
}

func TestSourceOpenFailure(t *testing.T) {
	p := pipeline.New(testsupport.NewMemoryMedia(), pipeline.DefaultOptions(), logging.NewNop())
	_, err := p.Run(context.Background(), pipeline.Request{SourcePath: "missing.mp4", OutputPath: "out.mp4"})
	if !errors.Is(err, services.ErrSourceOpen) {
		t.Fatalf("expected ErrSourceOpen, got %v", err)
	}
}

func TestInvalidGeometryIsSourceFailure(t *testing.T) {
	media := testsupport.NewMemoryMedia()
	media.AddSource("in.mp4", func() *testsupport.MemorySource {
		return testsupport.NewMemorySource(pipeline.VideoInfo{Width: 4, Height: 4, FrameRate: 0}, nil)
	})
	p := pipeline.New(media, pipeline.DefaultOptions(), logging.NewNop())
	_, err := p.Run(context.Background(), pipeline.Request{SourcePath: "in.mp4", OutputPath: "out.mp4"})
	if !errors.Is(err, services.ErrSourceOpen) {
		t.Fatalf("expected ErrSourceOpen, got %v", err)
	}
}

func TestSinkFailures(t *testing.T) {
	cases := []struct {
		name      string
		configure func(*testsupport.MemoryMedia)
	}{
		{"create", func(m *testsupport.MemoryMedia) { m.SinkErr = errors.New("disk full") }},
		{"write", func(m *testsupport.MemoryMedia) { m.SinkFailAt = 5 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			media := newMedia(nil)
			tc.configure(media)
			p := pipeline.New(media, pipeline.DefaultOptions(), logging.NewNop())
			_, err := p.Run(context.Background(), pipeline.Request{SourcePath: "in.mp4", OutputPath: "out.mp4", Clicks: sampleClicks()})
			if !errors.Is(err, services.ErrSinkWrite) {
				t.Fatalf("expected ErrSinkWrite, got %v", err)
			}
		})
	}
}

func TestCanceledContextStopsRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := pipeline.New(newMedia(nil), pipeline.DefaultOptions(), logging.NewNop())
	if _, err := p.Run(ctx, pipeline.Request{SourcePath: "in.mp4", OutputPath: "out.mp4"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestProgressAndStateReporting(t *testing.T) {
	var (
		mu     sync.Mutex
		states []pipeline.State
	)
	opts := pipeline.DefaultOptions()
	opts.BatchSize = 10
	opts.OnState = func(s pipeline.State) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, s)
	}

	var progress []pipeline.Progress
	p := pipeline.New(newMedia(nil), opts, logging.NewNop())
	_, err := p.Run(context.Background(), pipeline.Request{
		SourcePath: "in.mp4",
		OutputPath: "out.mp4",
		Clicks:     sampleClicks(),
		OnProgress: func(pr pipeline.Progress) { progress = append(progress, pr) },
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	wantStates := []pipeline.State{
		pipeline.StateOpening,
		pipeline.StateBuildingField,
		pipeline.StateRendering,
		pipeline.StateFinalFrame,
		pipeline.StateFinalizing,
		pipeline.StateDone,
	}
	if !slices.Equal(states, wantStates) {
		t.Fatalf("unexpected states: %v", states)
	}
	if len(progress) != 3 {
		t.Fatalf("expected 3 progress reports, got %d", len(progress))
	}
	last := progress[len(progress)-1]
	if last.Written != testFrames || last.Percent != 100 {
		t.Fatalf("unexpected final progress: %+v", last)
	}
}
