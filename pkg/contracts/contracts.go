// Package contracts defines the boundary interfaces the orchestrator's
// internal packages depend on, so drivers, stores, and blob backends can be
// swapped or faked without touching call sites.
package contracts

import (
	"context"

	"github.com/kntaj/ocrflow/pkg/models"
)

// ErrNotFound is returned by MetadataStore lookups that find nothing.
type ErrNotFound struct {
	Entity string
	Key    string
}

func (e *ErrNotFound) Error() string {
	return e.Entity + " not found: " + e.Key
}

// Driver is the interface every OCR engine implementation satisfies. It is
// the OCR-domain analog of a model-provider driver: one verb to run the
// engine, one to probe liveness, one to estimate spend before committing.
type Driver interface {
	Kind() models.OCREngineType
	Analyze(ctx context.Context, cfg models.EngineConfig, imageData []byte, contentType string) (*models.OCRResult, error)
	HealthCheck(ctx context.Context) error
	EstimateCost(pageCount int) *int
}

// BlobStore persists large artifacts (raw provider responses) outside the
// metadata store. A write failure here must never fail the orchestration —
// callers log and continue with an empty path.
type BlobStore interface {
	Kind() string
	Put(ctx context.Context, key string, data []byte) (path string, err error)
	Get(ctx context.Context, path string) ([]byte, error)
	HealthCheck(ctx context.Context) error
}

// MetadataStore is the durable record of documents, runs, and executions.
type MetadataStore interface {
	CreateDocument(ctx context.Context, d *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	UpdateDocument(ctx context.Context, d *models.Document) error

	CreateExecution(ctx context.Context, e *models.WorkflowExecution) error
	UpdateExecution(ctx context.Context, e *models.WorkflowExecution) error
	GetExecution(ctx context.Context, id string) (*models.WorkflowExecution, error)

	CreateRun(ctx context.Context, r *models.Run) error
	UpdateRun(ctx context.Context, r *models.Run) error
	GetRun(ctx context.Context, id string) (*models.Run, error)
	ListRunsForDocument(ctx context.Context, documentID string) ([]models.Run, error)
	ListRunsForExecution(ctx context.Context, executionID string) ([]models.Run, error)

	Ping(ctx context.Context) error
	Close() error
}

// ArchiveDriver is satisfied by anything capable of sweeping old raw-response
// blobs out of BlobStore into cold storage (or deleting them outright). The
// retention janitor treats archive failures as fail-safe: nothing is purged
// unless the archive write succeeded.
type ArchiveDriver interface {
	Kind() string
	ArchiveRawResponses(ctx context.Context, tenantID string, olderThan int64) (archived int, err error)
	HealthCheck(ctx context.Context) error
}
