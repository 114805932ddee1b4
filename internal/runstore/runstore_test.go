package runstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/kntaj/ocrflow/internal/runstore"
	"github.com/kntaj/ocrflow/internal/store"
	"github.com/kntaj/ocrflow/pkg/models"
)

type failingBlobStore struct{}

func (failingBlobStore) Kind() string { return "failing" }
func (failingBlobStore) Put(ctx context.Context, key string, data []byte) (string, error) {
	return "", errors.New("disk full")
}
func (failingBlobStore) Get(ctx context.Context, path string) ([]byte, error) {
	return nil, errors.New("not found")
}
func (failingBlobStore) HealthCheck(ctx context.Context) error { return nil }

func newExecutionFixture(t *testing.T, meta *store.MemoryStore) (docID, execID string) {
	t.Helper()
	doc := &models.Document{ID: "doc-1", SourcePath: "/tmp/a.pdf", ContentType: "application/pdf"}
	if err := meta.CreateDocument(context.Background(), doc); err != nil {
		t.Fatalf("CreateDocument() error = %v", err)
	}
	exec := &models.WorkflowExecution{ID: "exec-1", DocumentID: doc.ID, State: models.ExecPending}
	if err := meta.CreateExecution(context.Background(), exec); err != nil {
		t.Fatalf("CreateExecution() error = %v", err)
	}
	return doc.ID, exec.ID
}

func TestCompleteRun_BlobWriteFailureDoesNotFailRun(t *testing.T) {
	meta := store.NewMemoryStore()
	docID, execID := newExecutionFixture(t, meta)
	rs := runstore.New(meta, failingBlobStore{}, nil)

	run, err := rs.CreateRun(context.Background(), execID, docID, models.EngineConfig{EngineType: models.EngineAzure, EngineName: "azure-primary"})
	if err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	result := &models.OCRResult{Text: "hello", ConfidenceScore: 0.9, RawResponse: map[string]any{"ok": true}}
	if err := rs.CompleteRun(context.Background(), run, result, 120, nil); err != nil {
		t.Fatalf("CompleteRun() error = %v, want nil even though the blob write failed", err)
	}
	if run.Status != models.RunSucceeded {
		t.Errorf("run.Status = %v, want RunSucceeded", run.Status)
	}
	if run.RawResponsePath != "" {
		t.Errorf("run.RawResponsePath = %q, want empty when blob write failed", run.RawResponsePath)
	}
}

func TestCreateRun_PersistsPendingRowBeforeAnyAttempt(t *testing.T) {
	meta := store.NewMemoryStore()
	docID, execID := newExecutionFixture(t, meta)
	rs := runstore.New(meta, nil, nil)

	run, err := rs.CreateRun(context.Background(), execID, docID, models.EngineConfig{EngineType: models.EngineGoogle, EngineName: "google-primary"})
	if err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}
	if run.Status != models.RunPending {
		t.Errorf("run.Status = %v, want RunPending", run.Status)
	}

	stored, err := rs.ListRunsForExecution(context.Background(), execID)
	if err != nil {
		t.Fatalf("ListRunsForExecution() error = %v", err)
	}
	if len(stored) != 1 || stored[0].ID != run.ID {
		t.Errorf("ListRunsForExecution() = %v, want the just-created run to be durably recorded", stored)
	}
}

func TestFailRun_RecordsErrorCategoryAndMessage(t *testing.T) {
	meta := store.NewMemoryStore()
	docID, execID := newExecutionFixture(t, meta)
	rs := runstore.New(meta, nil, nil)

	run, err := rs.CreateRun(context.Background(), execID, docID, models.EngineConfig{EngineType: models.EngineMistral, EngineName: "mistral-primary"})
	if err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	if err := rs.FailRun(context.Background(), run, models.CategoryTransient, errors.New("timeout"), 50); err != nil {
		t.Fatalf("FailRun() error = %v", err)
	}
	if run.Status != models.RunFailed {
		t.Errorf("run.Status = %v, want RunFailed", run.Status)
	}
	if run.ErrorCategory != models.CategoryTransient {
		t.Errorf("run.ErrorCategory = %v, want CategoryTransient", run.ErrorCategory)
	}
	if run.ErrorMessage != "timeout" {
		t.Errorf("run.ErrorMessage = %q, want %q", run.ErrorMessage, "timeout")
	}
}
