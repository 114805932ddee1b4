package drivers

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/kntaj/ocrflow/pkg/models"
)

// Classify maps a driver error to the category the orchestrator needs to
// decide whether to retry. Drivers should already return *models.OCRError
// where they can; this is the fallback for errors that slip through
// unclassified (e.g. a context deadline from the HTTP client itself).
func Classify(err error) models.ErrorCategory {
	if err == nil {
		return ""
	}
	if err == context.Canceled || err == context.DeadlineExceeded {
		return models.CategoryCancelled
	}
	return models.CategoryOf(err)
}

// WithRetry runs fn under an exponential backoff policy derived from p,
// stopping early on a CONFIGURATION, PERMANENT, QUALITY_FAIL, or CANCELLED
// error — only TRANSIENT and BREAKER_OPEN failures are retried.
func WithRetry(ctx context.Context, p models.RetryPolicy, fn func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.Multiplier = p.BackoffFactor
	bo.MaxInterval = time.Duration(p.MaxBackoffSeconds) * time.Second
	bo.MaxElapsedTime = 0 // bounded by MaxRetries below, not wall-clock

	var attempt int
	operation := func() error {
		attempt++
		err := fn()
		if err == nil {
			return nil
		}
		switch Classify(err) {
		case models.CategoryConfiguration, models.CategoryPermanent, models.CategoryQualityFail, models.CategoryCancelled:
			return backoff.Permanent(err)
		}
		if attempt > p.MaxRetries {
			return backoff.Permanent(err)
		}
		return err
	}

	return backoff.Retry(operation, backoff.WithContext(bo, ctx))
}
