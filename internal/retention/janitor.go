// Package retention implements a supplementary raw-response retention job:
// a background janitor that sweeps raw OCR provider responses out of blob
// storage once they age past a configurable window. This is additive
// bookkeeping, not a core workflow operation — cmd/orchestrator starts it
// unconditionally at startup (hourly, 30-day retention, local archiver), and
// it is never on the hot path of any workflow execution.
//
// Archive failures are fail-safe: nothing is purged unless the archive
// write for it succeeded, mirroring the control plane's own retention
// janitor's invariant for traces and audit events.
package retention

import (
	"context"
	"sync"
	"time"

	"github.com/kntaj/ocrflow/pkg/contracts"
	"github.com/rs/zerolog/log"
)

// DefaultRawResponseRetention is how long a raw response blob is kept
// before the janitor archives and purges it.
const DefaultRawResponseRetention = 30 * 24 * time.Hour

// Janitor periodically archives and purges raw OCR response blobs older
// than its retention window.
type Janitor struct {
	interval  time.Duration
	retention time.Duration

	driverMu       sync.RWMutex
	archiveDrivers map[string]contracts.ArchiveDriver
	defaultBackend string
}

// NewJanitor creates a retention janitor. An interval under one minute is
// replaced with one hour so a misconfigured value can't turn it into a busy
// loop.
func NewJanitor(interval, retention time.Duration) *Janitor {
	if interval < time.Minute {
		interval = time.Hour
	}
	if retention <= 0 {
		retention = DefaultRawResponseRetention
	}
	return &Janitor{interval: interval, retention: retention, archiveDrivers: make(map[string]contracts.ArchiveDriver)}
}

// RegisterArchiver adds an archive driver; the first one registered becomes
// the default backend.
func (j *Janitor) RegisterArchiver(driver contracts.ArchiveDriver) {
	j.driverMu.Lock()
	defer j.driverMu.Unlock()
	kind := driver.Kind()
	if len(j.archiveDrivers) == 0 {
		j.defaultBackend = kind
	}
	j.archiveDrivers[kind] = driver
	log.Info().Str("kind", kind).Msg("raw-response archive driver registered")
}

// Start runs the janitor loop until ctx is cancelled.
func (j *Janitor) Start(ctx context.Context, tenants []string) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.runCycle(ctx, tenants)
		}
	}
}

func (j *Janitor) runCycle(ctx context.Context, tenants []string) {
	j.driverMu.RLock()
	driver, ok := j.archiveDrivers[j.defaultBackend]
	j.driverMu.RUnlock()
	if !ok {
		return
	}

	cutoff := time.Now().Add(-j.retention).Unix()
	for _, tenantID := range tenants {
		archived, err := driver.ArchiveRawResponses(ctx, tenantID, cutoff)
		if err != nil {
			log.Warn().Err(err).Str("tenant_id", tenantID).Msg("raw-response archive cycle failed, nothing purged")
			continue
		}
		log.Info().Str("tenant_id", tenantID).Int("archived", archived).Msg("raw-response retention cycle completed")
	}
}
