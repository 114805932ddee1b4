// Package store provides the MetadataStore implementations: an in-memory
// store for tests and development, and a Postgres-backed store for
// production, both satisfying contracts.MetadataStore.
package store

import (
	"context"
	"sync"

	"github.com/kntaj/ocrflow/pkg/contracts"
	"github.com/kntaj/ocrflow/pkg/models"
)

// MemoryStore is a thread-safe, process-local MetadataStore. Nothing is
// persisted across restarts; it exists for tests and single-process
// development, mirroring the control plane's own in-memory store used
// ahead of its Postgres-backed one.
type MemoryStore struct {
	mu         sync.RWMutex
	documents  map[string]*models.Document
	executions map[string]*models.WorkflowExecution
	runs       map[string]*models.Run
}

// NewMemoryStore creates an empty in-memory metadata store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		documents:  make(map[string]*models.Document),
		executions: make(map[string]*models.WorkflowExecution),
		runs:       make(map[string]*models.Run),
	}
}

func (s *MemoryStore) CreateDocument(_ context.Context, d *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *d
	s.documents[d.ID] = &cp
	return nil
}

func (s *MemoryStore) GetDocument(_ context.Context, id string) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.documents[id]
	if !ok {
		return nil, &contracts.ErrNotFound{Entity: "document", Key: id}
	}
	cp := *d
	return &cp, nil
}

func (s *MemoryStore) UpdateDocument(_ context.Context, d *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[d.ID]; !ok {
		return &contracts.ErrNotFound{Entity: "document", Key: d.ID}
	}
	cp := *d
	s.documents[d.ID] = &cp
	return nil
}

func (s *MemoryStore) CreateExecution(_ context.Context, e *models.WorkflowExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.executions[e.ID] = &cp
	return nil
}

func (s *MemoryStore) UpdateExecution(_ context.Context, e *models.WorkflowExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.executions[e.ID]; !ok {
		return &contracts.ErrNotFound{Entity: "execution", Key: e.ID}
	}
	cp := *e
	s.executions[e.ID] = &cp
	return nil
}

func (s *MemoryStore) GetExecution(_ context.Context, id string) (*models.WorkflowExecution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.executions[id]
	if !ok {
		return nil, &contracts.ErrNotFound{Entity: "execution", Key: id}
	}
	cp := *e
	return &cp, nil
}

func (s *MemoryStore) CreateRun(_ context.Context, r *models.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.runs[r.ID] = &cp
	return nil
}

func (s *MemoryStore) UpdateRun(_ context.Context, r *models.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[r.ID]; !ok {
		return &contracts.ErrNotFound{Entity: "run", Key: r.ID}
	}
	cp := *r
	s.runs[r.ID] = &cp
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (*models.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[id]
	if !ok {
		return nil, &contracts.ErrNotFound{Entity: "run", Key: id}
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) ListRunsForDocument(_ context.Context, documentID string) ([]models.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Run
	for _, r := range s.runs {
		if r.DocumentID == documentID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListRunsForExecution(_ context.Context, executionID string) ([]models.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Run
	for _, r := range s.runs {
		if r.ExecutionID == executionID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *MemoryStore) Ping(_ context.Context) error { return nil }
func (s *MemoryStore) Close() error                 { return nil }

var _ contracts.MetadataStore = (*MemoryStore)(nil)
