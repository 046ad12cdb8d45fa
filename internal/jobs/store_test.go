package jobs_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gazeheat/internal/jobs"
	"gazeheat/internal/testsupport"
)

func TestOpenCreatesDatabase(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	if store.Path() != cfg.JobsDBPath() {
		t.Fatalf("unexpected path %q", store.Path())
	}
	if _, err := os.Stat(cfg.JobsDBPath()); err != nil {
		t.Fatalf("expected database file: %v", err)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.db")
	first, err := jobs.OpenPath(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	first.Close()
	second, err := jobs.OpenPath(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	second.Close()
}

func TestCreateAssignsDefaults(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	job := testsupport.NewJob(t, store, "Ada", "clip.mp4")

	if job.ID == "" || job.Status != jobs.StatusPending {
		t.Fatalf("unexpected job: %+v", job)
	}
	if job.ScaleX != 1 || job.ScaleY != 1 {
		t.Fatalf("expected unit scale, got %v/%v", job.ScaleX, job.ScaleY)
	}
	if job.CreatedAt.IsZero() || job.CompletedAt != nil {
		t.Fatalf("unexpected timestamps: %+v", job)
	}

	if _, err := store.Create(context.Background(), jobs.Job{}); err == nil {
		t.Fatal("expected error for missing kind")
	}
}

func TestGetMissingReturnsNil(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	job, err := store.Get(context.Background(), "nope")
	if err != nil || job != nil {
		t.Fatalf("expected nil, nil; got %+v, %v", job, err)
	}
}

func TestLifecycleTransitions(t *testing.T) {
	ctx := context.Background()
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	job := testsupport.NewJob(t, store, "Ada", "clip.mp4")

	if err := store.MarkRunning(ctx, job.ID); err != nil {
		t.Fatalf("MarkRunning: %v", err)
	}
	if err := store.SetSource(ctx, job.ID, "/work/clip_reduced.mp4", 0.5, 0.5); err != nil {
		t.Fatalf("SetSource: %v", err)
	}
	if err := store.Complete(ctx, job.ID, jobs.Outcome{
		OutputPath:    "/out/clip_heatmap.mp4",
		FramesWritten: 91,
		HoldFrame:     true,
		FieldMode:     "dense",
	}); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	got, err := store.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != jobs.StatusCompleted || got.FramesWritten != 91 || !got.HoldFrame {
		t.Fatalf("unexpected completed job: %+v", got)
	}
	if got.SourcePath != "/work/clip_reduced.mp4" || got.ScaleX != 0.5 {
		t.Fatalf("unexpected source: %+v", got)
	}
	if got.CompletedAt == nil || got.FieldMode != "dense" {
		t.Fatalf("expected completion metadata: %+v", got)
	}
}

func TestCompleteTruncated(t *testing.T) {
	ctx := context.Background()
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	job := testsupport.NewJob(t, store, "Ada", "clip.mp4")

	if err := store.Complete(ctx, job.ID, jobs.Outcome{FramesWritten: 12, Truncated: true}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	got, _ := store.Get(ctx, job.ID)
	if got.Status != jobs.StatusTruncated || !got.Truncated {
		t.Fatalf("expected truncated status, got %+v", got)
	}
}

func TestFailCoercesNonTerminalStatus(t *testing.T) {
	ctx := context.Background()
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	cases := []struct {
		name   string
		status jobs.Status
		want   jobs.Status
	}{
		{"rejected", jobs.StatusRejected, jobs.StatusRejected},
		{"failed", jobs.StatusFailed, jobs.StatusFailed},
		{"running", jobs.StatusRunning, jobs.StatusFailed},
		{"completed", jobs.StatusCompleted, jobs.StatusFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			job := testsupport.NewJob(t, store, "Ada", tc.name+".mp4")
			if err := store.Fail(ctx, job.ID, tc.status, "  boom  "); err != nil {
				t.Fatalf("Fail: %v", err)
			}
			got, _ := store.Get(ctx, job.ID)
			if got.Status != tc.want || got.ErrorMessage != "boom" {
				t.Fatalf("got status %q message %q", got.Status, got.ErrorMessage)
			}
		})
	}
}

func TestTransitionsOnUnknownJob(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	err := store.MarkRunning(context.Background(), "missing")
	if !errors.Is(err, jobs.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestListFiltersAndLimits(t *testing.T) {
	ctx := context.Background()
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	a := testsupport.NewJob(t, store, "a", "a.mp4")
	b := testsupport.NewJob(t, store, "b", "b.mp4")
	testsupport.NewJob(t, store, "c", "c.mp4")
	if err := store.Fail(ctx, a.ID, jobs.StatusFailed, "x"); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if err := store.Complete(ctx, b.ID, jobs.Outcome{}); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	all, err := store.List(ctx, jobs.ListOptions{})
	if err != nil || len(all) != 3 {
		t.Fatalf("expected 3 jobs, got %d (%v)", len(all), err)
	}
	failed, err := store.List(ctx, jobs.ListOptions{Statuses: []jobs.Status{jobs.StatusFailed, jobs.StatusCompleted}})
	if err != nil || len(failed) != 2 {
		t.Fatalf("expected 2 filtered jobs, got %d (%v)", len(failed), err)
	}
	limited, err := store.List(ctx, jobs.ListOptions{Limit: 1})
	if err != nil || len(limited) != 1 {
		t.Fatalf("expected 1 job, got %d (%v)", len(limited), err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[jobs.StatusPending] != 1 || stats[jobs.StatusFailed] != 1 || stats[jobs.StatusCompleted] != 1 {
		t.Fatalf("unexpected stats: %v", stats)
	}
}

func TestFailRunningAndPrune(t *testing.T) {
	ctx := context.Background()
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	stale := testsupport.NewJob(t, store, "a", "a.mp4")
	if err := store.MarkRunning(ctx, stale.ID); err != nil {
		t.Fatalf("MarkRunning: %v", err)
	}
	done := testsupport.NewJob(t, store, "b", "b.mp4")
	if err := store.Complete(ctx, done.ID, jobs.Outcome{}); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	affected, err := store.FailRunning(ctx, "interrupted")
	if err != nil || affected != 1 {
		t.Fatalf("expected 1 interrupted job, got %d (%v)", affected, err)
	}
	got, _ := store.Get(ctx, stale.ID)
	if got.Status != jobs.StatusFailed || got.ErrorMessage != "interrupted" {
		t.Fatalf("unexpected interrupted job: %+v", got)
	}

	pruned, err := store.Prune(ctx, time.Now().Add(time.Hour))
	if err != nil || pruned != 2 {
		t.Fatalf("expected 2 pruned jobs, got %d (%v)", pruned, err)
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := jobs.ParseStatus(" Truncated "); !ok || status != jobs.StatusTruncated {
		t.Fatalf("unexpected parse: %q %v", status, ok)
	}
	if _, ok := jobs.ParseStatus("queued"); ok {
		t.Fatal("expected unknown status to fail")
	}
}
