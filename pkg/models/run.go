package models

import "time"

// RunStatus is the lifecycle state of a single engine attempt.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// Run records one driver's attempt at processing a Document within a
// WorkflowExecution: which engine, what happened, and (on success) where the
// raw provider response was archived.
type Run struct {
	ID               string         `json:"id" db:"id"`
	ExecutionID      string         `json:"execution_id" db:"execution_id"`
	DocumentID       string         `json:"document_id" db:"document_id"`
	EngineType       OCREngineType  `json:"engine_type" db:"engine_type"`
	EngineName       string         `json:"engine_name" db:"engine_name"`
	Status           RunStatus      `json:"status" db:"status"`
	Result           *OCRResult     `json:"result,omitempty" db:"-"`
	ErrorCategory    ErrorCategory  `json:"error_category,omitempty" db:"error_category"`
	ErrorMessage     string         `json:"error_message,omitempty" db:"error_message"`
	LatencyMs        int64          `json:"latency_ms" db:"latency_ms"`
	CostCents        *int           `json:"cost_cents,omitempty" db:"cost_cents"`
	RawResponsePath  string         `json:"raw_response_path,omitempty" db:"raw_response_path"`
	StartedAt        time.Time      `json:"started_at" db:"started_at"`
	CompletedAt      *time.Time     `json:"completed_at,omitempty" db:"completed_at"`
}

// ConfidenceScore returns 0 when the run has no result, so callers comparing
// runs don't need a nil check on the hot path.
func (r Run) ConfidenceScore() float64 {
	if r.Result == nil {
		return 0
	}
	return r.Result.ConfidenceScore
}
