package testsupport

import (
	"context"
	"errors"
	"os"
	"sync"

	"gazeheat/internal/media/ffmpeg"
)

// FakeTools stands in for the ffmpeg wrapper. Reduce reports the source
// unchanged unless Downscale is set; MergeAudio writes a marker file at the
// destination.
type FakeTools struct {
	mu sync.Mutex

	// Downscale makes Reduce create dst and report it at half scale.
	Downscale bool
	ReduceErr error
	Audio     bool
	AudioErr  error
	MergeErr  error

	Reduced []string
	Merged  []string
}

func (f *FakeTools) Reduce(_ context.Context, src, dst string, _ ffmpeg.ReduceOptions) (ffmpeg.ReduceResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Reduced = append(f.Reduced, src)
	unchanged := ffmpeg.ReduceResult{Path: src, ScaleX: 1, ScaleY: 1}
	if f.ReduceErr != nil {
		return unchanged, f.ReduceErr
	}
	if !f.Downscale {
		return unchanged, nil
	}
	if err := os.WriteFile(dst, []byte("reduced"), 0o644); err != nil {
		return unchanged, err
	}
	return ffmpeg.ReduceResult{Path: dst, Reduced: true, ScaleX: 0.5, ScaleY: 0.5}, nil
}

func (f *FakeTools) HasAudio(context.Context, string) (bool, error) {
	return f.Audio, f.AudioErr
}

func (f *FakeTools) MergeAudio(_ context.Context, rendered, _ string, dst string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Merged = append(f.Merged, dst)
	if f.MergeErr != nil {
		return f.MergeErr
	}
	if _, err := os.Stat(rendered); err != nil {
		return errors.New("rendered video missing")
	}
	return os.WriteFile(dst, []byte("merged"), 0o644)
}
