package store_test

import (
	"context"
	"testing"

	"github.com/kntaj/ocrflow/internal/store"
	"github.com/kntaj/ocrflow/pkg/contracts"
	"github.com/kntaj/ocrflow/pkg/models"
)

func TestMemoryStore_DocumentRoundTrip(t *testing.T) {
	s := store.NewMemoryStore()
	doc := &models.Document{ID: "doc-1", SourcePath: "/tmp/a.pdf", ContentType: "application/pdf"}

	if err := s.CreateDocument(context.Background(), doc); err != nil {
		t.Fatalf("CreateDocument() error = %v", err)
	}

	got, err := s.GetDocument(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("GetDocument() error = %v", err)
	}
	if got.SourcePath != doc.SourcePath {
		t.Errorf("GetDocument().SourcePath = %q, want %q", got.SourcePath, doc.SourcePath)
	}
}

func TestMemoryStore_GetDocument_NotFound(t *testing.T) {
	s := store.NewMemoryStore()
	_, err := s.GetDocument(context.Background(), "missing")
	if err == nil {
		t.Fatal("GetDocument() error = nil, want ErrNotFound")
	}
	if _, ok := err.(*contracts.ErrNotFound); !ok {
		t.Errorf("GetDocument() error type = %T, want *contracts.ErrNotFound", err)
	}
}

func TestMemoryStore_GetDocument_ReturnsDefensiveCopy(t *testing.T) {
	s := store.NewMemoryStore()
	doc := &models.Document{ID: "doc-1", SourcePath: "/tmp/a.pdf"}
	s.CreateDocument(context.Background(), doc)

	got, _ := s.GetDocument(context.Background(), "doc-1")
	got.SourcePath = "/tmp/mutated.pdf"

	got2, _ := s.GetDocument(context.Background(), "doc-1")
	if got2.SourcePath != "/tmp/a.pdf" {
		t.Errorf("mutating a returned Document leaked into the store: got %q", got2.SourcePath)
	}
}

func TestMemoryStore_UpdateRun_NotFoundWhenNeverCreated(t *testing.T) {
	s := store.NewMemoryStore()
	err := s.UpdateRun(context.Background(), &models.Run{ID: "never-created"})
	if err == nil {
		t.Fatal("UpdateRun() error = nil, want ErrNotFound for a run that was never created")
	}
}

func TestMemoryStore_ListRunsForExecution_FiltersByExecution(t *testing.T) {
	s := store.NewMemoryStore()
	s.CreateRun(context.Background(), &models.Run{ID: "r1", ExecutionID: "exec-a"})
	s.CreateRun(context.Background(), &models.Run{ID: "r2", ExecutionID: "exec-a"})
	s.CreateRun(context.Background(), &models.Run{ID: "r3", ExecutionID: "exec-b"})

	runs, err := s.ListRunsForExecution(context.Background(), "exec-a")
	if err != nil {
		t.Fatalf("ListRunsForExecution() error = %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("ListRunsForExecution() returned %d runs, want 2", len(runs))
	}
}
