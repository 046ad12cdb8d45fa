package testsupport

import (
	"context"
	"testing"

	"gazeheat/internal/config"
	"gazeheat/internal/jobs"
)

// MustOpenStore opens a jobs.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *jobs.Store {
	t.Helper()

	store, err := jobs.Open(cfg)
	if err != nil {
		t.Fatalf("jobs.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewJob creates a pending single-participant job for tests.
func NewJob(t testing.TB, store *jobs.Store, user, video string) *jobs.Job {
	t.Helper()

	job, err := store.Create(context.Background(), jobs.Job{Kind: jobs.KindSingle, UserName: user, VideoName: video})
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return job
}
