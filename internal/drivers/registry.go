// Package drivers implements the OCR Driver Registry (one named Driver per
// engine kind) and the concrete cloud/local engine drivers.
package drivers

import (
	"context"
	"fmt"
	"sync"

	"github.com/kntaj/ocrflow/pkg/contracts"
	"github.com/kntaj/ocrflow/pkg/models"
	"github.com/rs/zerolog/log"
)

// Registry holds named OCR drivers. Thread-safe.
type Registry struct {
	mu      sync.RWMutex
	drivers map[models.OCREngineType]contracts.Driver
}

// NewRegistry creates an empty driver registry.
func NewRegistry() *Registry {
	return &Registry{drivers: make(map[models.OCREngineType]contracts.Driver)}
}

// Register adds a driver under its own Kind(). Overwrites if one is already
// registered for that kind.
func (r *Registry) Register(driver contracts.Driver) {
	r.mu.Lock()
	r.drivers[driver.Kind()] = driver
	r.mu.Unlock()
	log.Info().Str("engine", string(driver.Kind())).Msg("OCR driver registered")
}

// Get returns the driver for the given engine kind, or an error if none is
// registered.
func (r *Registry) Get(kind models.OCREngineType) (contracts.Driver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.drivers[kind]
	if !ok {
		return nil, fmt.Errorf("OCR driver not found: %s", kind)
	}
	return d, nil
}

// List returns all registered engine kinds.
func (r *Registry) List() []models.OCREngineType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]models.OCREngineType, 0, len(r.drivers))
	for k := range r.drivers {
		kinds = append(kinds, k)
	}
	return kinds
}

// HealthCheckAll pings every registered driver and returns errors keyed by
// engine kind. The snapshot is taken under the read lock and the checks run
// outside it so a slow driver doesn't block registry reads.
func (r *Registry) HealthCheckAll(ctx context.Context) map[models.OCREngineType]error {
	r.mu.RLock()
	snapshot := make(map[models.OCREngineType]contracts.Driver, len(r.drivers))
	for k, v := range r.drivers {
		snapshot[k] = v
	}
	r.mu.RUnlock()

	results := make(map[models.OCREngineType]error, len(snapshot))
	for kind, driver := range snapshot {
		results[kind] = driver.HealthCheck(ctx)
	}
	return results
}
