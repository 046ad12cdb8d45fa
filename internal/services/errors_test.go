package services_test

import (
	"errors"
	"strings"
	"testing"

	"gazeheat/internal/jobs"
	"gazeheat/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrSourceOpen, "building", "open", "cannot decode", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrSourceOpen) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"building", "open", "cannot decode"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestFailureStatusMapping(t *testing.T) {
	validationErr := services.Wrap(services.ErrValidation, "ingest", "clicks", "x out of range", nil)
	if status := services.FailureStatus(validationErr); status != jobs.StatusRejected {
		t.Fatalf("expected rejected for validation error, got %s", status)
	}

	openErr := services.Wrap(services.ErrSourceOpen, "building", "open", "", errors.New("io"))
	if status := services.FailureStatus(openErr); status != jobs.StatusFailed {
		t.Fatalf("expected failed for source open error, got %s", status)
	}

	if status := services.FailureStatus(nil); status != jobs.StatusFailed {
		t.Fatalf("expected failed for nil error, got %s", status)
	}
}
