package drivers_test

import (
	"context"
	"errors"
	"testing"

	"github.com/kntaj/ocrflow/internal/drivers"
	"github.com/kntaj/ocrflow/pkg/models"
)

func TestWithRetry_StopsImmediatelyOnPermanent(t *testing.T) {
	calls := 0
	err := drivers.WithRetry(context.Background(), models.RetryPolicy{MaxRetries: 5, BackoffFactor: 1.0, MaxBackoffSeconds: 1}, func() error {
		calls++
		return models.NewOCRError(models.CategoryPermanent, "azure", errors.New("bad request"))
	})
	if err == nil {
		t.Fatal("WithRetry() error = nil, want non-nil")
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want exactly 1 for a PERMANENT error", calls)
	}
}

func TestWithRetry_RetriesTransientUpToMax(t *testing.T) {
	calls := 0
	err := drivers.WithRetry(context.Background(), models.RetryPolicy{MaxRetries: 2, BackoffFactor: 1.0, MaxBackoffSeconds: 1}, func() error {
		calls++
		return models.NewOCRError(models.CategoryTransient, "azure", errors.New("timeout"))
	})
	if err == nil {
		t.Fatal("WithRetry() error = nil, want non-nil after exhausting retries")
	}
	if calls != 3 {
		t.Errorf("fn called %d times, want 3 (1 initial + 2 retries)", calls)
	}
}

func TestWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := drivers.WithRetry(context.Background(), models.RetryPolicy{MaxRetries: 3, BackoffFactor: 1.0, MaxBackoffSeconds: 1}, func() error {
		calls++
		if calls < 2 {
			return models.NewOCRError(models.CategoryTransient, "azure", errors.New("timeout"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithRetry() error = %v, want nil", err)
	}
	if calls != 2 {
		t.Errorf("fn called %d times, want 2", calls)
	}
}
