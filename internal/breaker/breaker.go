// Package breaker implements the Circuit Breaker (component C7): one
// sony/gobreaker instance per engine, gating driver calls so a persistently
// failing engine stops being tried until its recovery timeout elapses.
package breaker

import (
	"context"
	"sync"
	"time"

	"github.com/kntaj/ocrflow/pkg/models"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// Registry holds one breaker per engine kind, created lazily on first use
// so new engine kinds never need pre-registration.
type Registry struct {
	mu       sync.Mutex
	breakers map[models.OCREngineType]*gobreaker.CircuitBreaker
	enabled  bool
	failureThreshold uint32
	recoveryTimeout  time.Duration
}

// New builds a breaker registry. When enabled is false, Execute runs calls
// directly with no tripping behavior — a process-wide kill switch for
// environments that don't want the breaker in the loop.
func New(enabled bool, failureThreshold uint32, recoveryTimeout time.Duration) *Registry {
	return &Registry{
		breakers:         make(map[models.OCREngineType]*gobreaker.CircuitBreaker),
		enabled:          enabled,
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
	}
}

func (r *Registry) get(kind models.OCREngineType) *gobreaker.CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[kind]; ok {
		return b
	}
	engine := kind
	b := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: string(engine),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= r.failureThreshold
		},
		Timeout: r.recoveryTimeout,
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info().Str("engine", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	})
	r.breakers[kind] = b
	return b
}

// Execute runs fn through the engine's breaker. When the breaker is open,
// fn is not called and the returned error carries BREAKER_OPEN so the
// workflow engine treats it exactly like any other transient failure for
// routing purposes.
func (r *Registry) Execute(ctx context.Context, kind models.OCREngineType, fn func() (*models.OCRResult, error)) (*models.OCRResult, error) {
	if !r.enabled {
		return fn()
	}
	b := r.get(kind)
	result, err := b.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, models.NewOCRError(models.CategoryBreakerOpen, string(kind), err)
		}
		return nil, err
	}
	return result.(*models.OCRResult), nil
}

// State reports the current breaker state for an engine, for health/status
// surfaces. Returns "closed" for an engine with no breaker yet created.
func (r *Registry) State(kind models.OCREngineType) string {
	r.mu.Lock()
	b, ok := r.breakers[kind]
	r.mu.Unlock()
	if !ok {
		return "closed"
	}
	return b.State().String()
}
