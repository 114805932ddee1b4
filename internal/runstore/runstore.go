// Package runstore implements the Run Store (component C5): the six
// operations that create, transition, and persist Run records, writing raw
// provider responses to blob storage and feeding the metrics collector
// without ever letting either of those side effects fail the orchestration.
package runstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kntaj/ocrflow/internal/metrics"
	"github.com/kntaj/ocrflow/pkg/contracts"
	"github.com/kntaj/ocrflow/pkg/models"
	"github.com/rs/zerolog/log"
)

// RunStore wires the metadata store, blob store, and metrics collector
// behind the Run lifecycle operations.
type RunStore struct {
	meta      contracts.MetadataStore
	blobs     contracts.BlobStore
	collector *metrics.Collector
}

// New builds a RunStore. collector may be nil to disable metrics recording
// (e.g. in unit tests that only care about store state).
func New(meta contracts.MetadataStore, blobs contracts.BlobStore, collector *metrics.Collector) *RunStore {
	return &RunStore{meta: meta, blobs: blobs, collector: collector}
}

// CreateRun inserts a new pending Run row for the given engine before any
// driver call is attempted, so a crash mid-attempt still leaves an auditable
// record.
func (rs *RunStore) CreateRun(ctx context.Context, executionID, documentID string, engine models.EngineConfig) (*models.Run, error) {
	run := &models.Run{
		ID:          uuid.NewString(),
		ExecutionID: executionID,
		DocumentID:  documentID,
		EngineType:  engine.EngineType,
		EngineName:  engine.EngineName,
		Status:      models.RunPending,
		StartedAt:   time.Now(),
	}
	if err := rs.meta.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	return run, nil
}

// MarkRunning transitions a Run to running, just before the driver call
// begins.
func (rs *RunStore) MarkRunning(ctx context.Context, run *models.Run) error {
	run.Status = models.RunRunning
	return rs.meta.UpdateRun(ctx, run)
}

// CompleteRun records a successful driver attempt: the blob-write-then-
// row-update ordering invariant means a blob write failure is logged and
// leaves RawResponsePath empty rather than failing the run.
func (rs *RunStore) CompleteRun(ctx context.Context, run *models.Run, result *models.OCRResult, latencyMs int64, costCents *int) error {
	run.Status = models.RunSucceeded
	run.Result = result
	run.LatencyMs = latencyMs
	run.CostCents = costCents
	now := time.Now()
	run.CompletedAt = &now

	if rs.blobs != nil && result.RawResponse != nil {
		data, err := json.Marshal(result.RawResponse)
		if err != nil {
			log.Warn().Err(err).Str("run_id", run.ID).Msg("marshal raw response failed, continuing without blob")
		} else {
			key := fmt.Sprintf("%s/%s/raw_response.json", run.EngineType, run.ID)
			path, err := rs.blobs.Put(ctx, key, data)
			if err != nil {
				log.Warn().Err(err).Str("run_id", run.ID).Msg("blob write failed, continuing without raw response archive")
			} else {
				run.RawResponsePath = path
			}
		}
	}

	if err := rs.meta.UpdateRun(ctx, run); err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	rs.attachMetricsSnapshot(*run)
	return nil
}

// FailRun records a failed driver attempt with its error category.
func (rs *RunStore) FailRun(ctx context.Context, run *models.Run, category models.ErrorCategory, runErr error, latencyMs int64) error {
	run.Status = models.RunFailed
	run.ErrorCategory = category
	run.ErrorMessage = runErr.Error()
	run.LatencyMs = latencyMs
	now := time.Now()
	run.CompletedAt = &now

	if err := rs.meta.UpdateRun(ctx, run); err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	rs.attachMetricsSnapshot(*run)
	return nil
}

// ListRunsForDocument returns every Run ever attempted for a document,
// across all executions.
func (rs *RunStore) ListRunsForDocument(ctx context.Context, documentID string) ([]models.Run, error) {
	return rs.meta.ListRunsForDocument(ctx, documentID)
}

// ListRunsForExecution returns every Run attempted within one
// WorkflowExecution.
func (rs *RunStore) ListRunsForExecution(ctx context.Context, executionID string) ([]models.Run, error) {
	return rs.meta.ListRunsForExecution(ctx, executionID)
}

// attachMetricsSnapshot folds the completed run into the in-process
// collector. Metrics recording never blocks or fails run persistence.
func (rs *RunStore) attachMetricsSnapshot(run models.Run) {
	if rs.collector == nil {
		return
	}
	rs.collector.Record(run)
}
