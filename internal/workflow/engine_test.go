package workflow_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kntaj/ocrflow/internal/breaker"
	"github.com/kntaj/ocrflow/internal/drivers"
	"github.com/kntaj/ocrflow/internal/runstore"
	"github.com/kntaj/ocrflow/internal/store"
	"github.com/kntaj/ocrflow/internal/workflow"
	"github.com/kntaj/ocrflow/pkg/models"
)

type fakeDriver struct {
	kind    models.OCREngineType
	analyze func(ctx context.Context) (*models.OCRResult, error)
	calls   int32
}

func (d *fakeDriver) Kind() models.OCREngineType { return d.kind }
func (d *fakeDriver) Analyze(ctx context.Context, cfg models.EngineConfig, imageData []byte, contentType string) (*models.OCRResult, error) {
	atomic.AddInt32(&d.calls, 1)
	return d.analyze(ctx)
}
func (d *fakeDriver) HealthCheck(ctx context.Context) error { return nil }
func (d *fakeDriver) EstimateCost(pageCount int) *int       { return nil }

func goodResult() *models.OCRResult {
	return &models.OCRResult{
		Text: "hello world", ConfidenceScore: 0.95, WordCount: 150,
		PagesProcessed: 1, ProcessingTimeSeconds: 1,
	}
}

func engineCfg(kind models.OCREngineType, name string) models.EngineConfig {
	return models.EngineConfig{EngineType: kind, EngineName: name, Enabled: true, RetryPolicy: &models.RetryPolicy{MaxRetries: 0, BackoffFactor: 1, MaxBackoffSeconds: 1}}
}

func newTestEngine(t *testing.T, reg *drivers.Registry) (*workflow.Engine, *store.MemoryStore) {
	t.Helper()
	meta := store.NewMemoryStore()
	rs := runstore.New(meta, nil, nil)
	br := breaker.New(false, 100, time.Minute)
	return workflow.NewEngine(meta, rs, reg, br), meta
}

func waitForCompletion(t *testing.T, meta *store.MemoryStore, execID string) *models.WorkflowExecution {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		exec, err := meta.GetExecution(context.Background(), execID)
		if err != nil {
			t.Fatalf("GetExecution() error = %v", err)
		}
		if exec.State == models.ExecCompleted || exec.State == models.ExecFailed {
			return exec
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("workflow execution never reached a terminal state")
	return nil
}

func TestEngine_StopOnSuccessSkipsFallbacks(t *testing.T) {
	primary := &fakeDriver{kind: models.EngineAzure, analyze: func(ctx context.Context) (*models.OCRResult, error) { return goodResult(), nil }}
	fallback := &fakeDriver{kind: models.EngineGoogle, analyze: func(ctx context.Context) (*models.OCRResult, error) { return goodResult(), nil }}
	reg := drivers.NewRegistry()
	reg.Register(primary)
	reg.Register(fallback)

	eng, meta := newTestEngine(t, reg)
	cfg := models.WorkflowConfig{
		PrimaryEngine:           engineCfg(models.EngineAzure, "azure-primary"),
		FallbackEngines:         []models.EngineConfig{engineCfg(models.EngineGoogle, "google-fallback")},
		GlobalQualityThresholds: models.DefaultQualityThresholds(),
		GlobalRetryPolicy:       models.DefaultRetryPolicy(),
		StopOnSuccess:           true,
	}

	doc := models.Document{ID: "doc-1", ContentType: "application/pdf", PageCount: 1}
	if err := meta.CreateDocument(context.Background(), &doc); err != nil {
		t.Fatalf("CreateDocument() error = %v", err)
	}

	execID, err := eng.RunWorkflow(context.Background(), doc, cfg, 10*time.Second, []byte("fake-image"))
	if err != nil {
		t.Fatalf("RunWorkflow() error = %v", err)
	}

	exec := waitForCompletion(t, meta, execID)
	if exec.State != models.ExecCompleted {
		t.Fatalf("exec.State = %v, want ExecCompleted", exec.State)
	}
	if atomic.LoadInt32(&fallback.calls) != 0 {
		t.Errorf("fallback engine was called %d times, want 0 when primary succeeds with stop_on_success", fallback.calls)
	}
	if atomic.LoadInt32(&primary.calls) != 1 {
		t.Errorf("primary engine was called %d times, want 1", primary.calls)
	}
}

func TestEngine_AllEnginesFailLeavesExecutionFailed(t *testing.T) {
	failing := func(ctx context.Context) (*models.OCRResult, error) {
		return nil, models.NewOCRError(models.CategoryPermanent, "mock", errors.New("boom"))
	}
	primary := &fakeDriver{kind: models.EngineAzure, analyze: failing}
	fallback := &fakeDriver{kind: models.EngineGoogle, analyze: failing}
	reg := drivers.NewRegistry()
	reg.Register(primary)
	reg.Register(fallback)

	eng, meta := newTestEngine(t, reg)
	cfg := models.WorkflowConfig{
		PrimaryEngine:           engineCfg(models.EngineAzure, "azure-primary"),
		FallbackEngines:         []models.EngineConfig{engineCfg(models.EngineGoogle, "google-fallback")},
		GlobalQualityThresholds: models.DefaultQualityThresholds(),
		GlobalRetryPolicy:       models.DefaultRetryPolicy(),
		StopOnSuccess:           true,
	}

	execID, err := eng.RunWorkflow(context.Background(), models.Document{ID: "doc-2", ContentType: "application/pdf"}, cfg, 10*time.Second, []byte("fake-image"))
	if err != nil {
		t.Fatalf("RunWorkflow() error = %v", err)
	}

	exec := waitForCompletion(t, meta, execID)
	if exec.State != models.ExecFailed {
		t.Fatalf("exec.State = %v, want ExecFailed when every engine fails", exec.State)
	}
	if exec.SelectedRunID != "" {
		t.Errorf("exec.SelectedRunID = %q, want empty when no run succeeded", exec.SelectedRunID)
	}
}

func TestEngine_FallbackRunsWhenPrimaryFailsQuality(t *testing.T) {
	lowConfidence := &models.OCRResult{Text: "x", ConfidenceScore: 0.1, WordCount: 150, PagesProcessed: 1}
	primary := &fakeDriver{kind: models.EngineAzure, analyze: func(ctx context.Context) (*models.OCRResult, error) { return lowConfidence, nil }}
	fallback := &fakeDriver{kind: models.EngineGoogle, analyze: func(ctx context.Context) (*models.OCRResult, error) { return goodResult(), nil }}
	reg := drivers.NewRegistry()
	reg.Register(primary)
	reg.Register(fallback)

	eng, meta := newTestEngine(t, reg)
	cfg := models.WorkflowConfig{
		PrimaryEngine:           engineCfg(models.EngineAzure, "azure-primary"),
		FallbackEngines:         []models.EngineConfig{engineCfg(models.EngineGoogle, "google-fallback")},
		GlobalQualityThresholds: models.DefaultQualityThresholds(),
		GlobalRetryPolicy:       models.DefaultRetryPolicy(),
		StopOnSuccess:           true,
	}

	doc := models.Document{ID: "doc-3", ContentType: "application/pdf", PageCount: 1}
	if err := meta.CreateDocument(context.Background(), &doc); err != nil {
		t.Fatalf("CreateDocument() error = %v", err)
	}

	execID, err := eng.RunWorkflow(context.Background(), doc, cfg, 10*time.Second, []byte("fake-image"))
	if err != nil {
		t.Fatalf("RunWorkflow() error = %v", err)
	}

	exec := waitForCompletion(t, meta, execID)
	if exec.State != models.ExecCompleted {
		t.Fatalf("exec.State = %v, want ExecCompleted once the fallback succeeds", exec.State)
	}
	if atomic.LoadInt32(&fallback.calls) != 1 {
		t.Errorf("fallback engine was called %d times, want 1 after primary failed quality evaluation", fallback.calls)
	}

	runs, err := meta.ListRunsForExecution(context.Background(), execID)
	if err != nil {
		t.Fatalf("ListRunsForExecution() error = %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("ListRunsForExecution() returned %d runs, want 2 (primary + fallback)", len(runs))
	}
}

func TestEngine_TimeoutExceededFailsExecution(t *testing.T) {
	slow := &fakeDriver{kind: models.EngineAzure, analyze: func(ctx context.Context) (*models.OCRResult, error) {
		select {
		case <-time.After(5 * time.Second):
			return goodResult(), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}}
	reg := drivers.NewRegistry()
	reg.Register(slow)

	eng, meta := newTestEngine(t, reg)
	cfg := models.WorkflowConfig{
		PrimaryEngine:           engineCfg(models.EngineAzure, "azure-primary"),
		GlobalQualityThresholds: models.DefaultQualityThresholds(),
		GlobalRetryPolicy:       models.RetryPolicy{MaxRetries: 0, BackoffFactor: 1, MaxBackoffSeconds: 1},
		StopOnSuccess:           true,
	}

	execID, err := eng.RunWorkflow(context.Background(), models.Document{ID: "doc-4", ContentType: "application/pdf"}, cfg, 200*time.Millisecond, []byte("fake-image"))
	if err != nil {
		t.Fatalf("RunWorkflow() error = %v", err)
	}

	exec := waitForCompletion(t, meta, execID)
	if exec.State != models.ExecFailed {
		t.Fatalf("exec.State = %v, want ExecFailed once the total timeout elapses", exec.State)
	}
}
