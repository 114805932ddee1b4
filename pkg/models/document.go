// Package models holds the shared data types passed between orchestrator
// components: documents, workflow configuration, OCR results, and run
// bookkeeping.
package models

import "time"

// Document is the unit of work the orchestrator processes. Per-attempt OCR
// state lives on the Run records produced while processing it; once a
// workflow execution selects a winning Run, that outcome is copied onto the
// Document itself so callers can read a document's OCR result without
// joining through executions and runs.
type Document struct {
	ID          string    `json:"id" db:"id"`
	TenantID    string    `json:"tenant_id" db:"tenant_id"`
	SourcePath  string    `json:"source_path" db:"source_path"`
	ContentType string    `json:"content_type" db:"content_type"`
	PageCount   int       `json:"page_count" db:"page_count"`

	ExtractedText  string        `json:"extracted_text,omitempty" db:"extracted_text"`
	SelectedEngine OCREngineType `json:"selected_engine,omitempty" db:"selected_engine"`
	SelectedRunID  string        `json:"selected_run_id,omitempty" db:"selected_run_id"`
	LastOCRAt      *time.Time    `json:"last_ocr_at,omitempty" db:"last_ocr_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
