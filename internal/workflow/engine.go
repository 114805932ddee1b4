// Package workflow implements the Workflow Engine (component C8): the
// per-document state machine that dispatches a WorkflowConfig's primary and
// fallback engines, evaluates each result against quality thresholds, and
// hands the completed Run set to the Selector.
//
// Execution flow:
//  1. Create a WorkflowExecution row, scoped by a total-timeout context
//  2. Preprocess the document image per the primary engine's config
//  3. Run the primary engine; evaluate its result
//  4. If it passes and stop_on_success, finish immediately
//  5. Otherwise run the fallback chain (sequential, or fanned out when
//     parallel_fallbacks is set, bounded by max_parallel_engines)
//  6. Hand every completed Run to the Selector and persist the winner
package workflow

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kntaj/ocrflow/internal/breaker"
	"github.com/kntaj/ocrflow/internal/drivers"
	"github.com/kntaj/ocrflow/internal/preprocess"
	"github.com/kntaj/ocrflow/internal/quality"
	"github.com/kntaj/ocrflow/internal/runstore"
	"github.com/kntaj/ocrflow/internal/selector"
	"github.com/kntaj/ocrflow/pkg/contracts"
	"github.com/kntaj/ocrflow/pkg/models"
	"github.com/rs/zerolog/log"
)

// Engine executes OCR workflows.
type Engine struct {
	meta     contracts.MetadataStore
	runs     *runstore.RunStore
	registry *drivers.Registry
	breakers *breaker.Registry

	// Running executions: executionID -> cancel func, so an external
	// cancellation request (or the total-timeout context) can tear down an
	// in-flight execution the same way the total-timeout itself does.
	execsMu sync.RWMutex
	execs   map[string]context.CancelFunc
}

// NewEngine builds a workflow engine.
func NewEngine(meta contracts.MetadataStore, rs *runstore.RunStore, registry *drivers.Registry, breakers *breaker.Registry) *Engine {
	return &Engine{
		meta:     meta,
		runs:     rs,
		registry: registry,
		breakers: breakers,
		execs:    make(map[string]context.CancelFunc),
	}
}

// RunWorkflow starts an async workflow execution and returns its execution
// ID immediately; the actual engine dispatch happens in a background
// goroutine so the caller isn't blocked for the full run.
func (e *Engine) RunWorkflow(ctx context.Context, doc models.Document, cfg models.WorkflowConfig, totalTimeout time.Duration, imageData []byte) (string, error) {
	execID := uuid.NewString()
	now := time.Now()

	exec := &models.WorkflowExecution{
		ID:             execID,
		DocumentID:     doc.ID,
		WorkflowID:     cfg.WorkflowID,
		State:          models.ExecPending,
		StartedAt:      now,
		TotalTimeoutAt: now.Add(totalTimeout),
	}
	if err := e.meta.CreateExecution(ctx, exec); err != nil {
		return "", fmt.Errorf("create execution: %w", err)
	}

	execCtx, cancel := context.WithDeadline(context.Background(), exec.TotalTimeoutAt)
	e.execsMu.Lock()
	e.execs[execID] = cancel
	e.execsMu.Unlock()

	log.Info().Str("execution_id", execID).Str("document_id", doc.ID).Str("workflow", cfg.WorkflowName).Msg("workflow execution started")

	go e.run(execCtx, exec, cfg, doc, imageData)

	return execID, nil
}

// CancelExecution cancels an in-flight execution.
func (e *Engine) CancelExecution(executionID string) bool {
	e.execsMu.Lock()
	cancel, ok := e.execs[executionID]
	if ok {
		cancel()
		delete(e.execs, executionID)
	}
	e.execsMu.Unlock()
	return ok
}

func (e *Engine) run(ctx context.Context, exec *models.WorkflowExecution, cfg models.WorkflowConfig, doc models.Document, imageData []byte) {
	defer func() {
		e.execsMu.Lock()
		delete(e.execs, exec.ID)
		e.execsMu.Unlock()
	}()

	e.transition(ctx, exec, models.ExecPreprocessing)

	primaryRun, primaryResult, primaryErr := e.attemptEngine(ctx, exec, doc, cfg.PrimaryEngine, cfg.GlobalQualityThresholds, cfg.GlobalRetryPolicy, imageData, doc.ContentType)

	if primaryErr == nil {
		eval := quality.Evaluate(*primaryResult, cfg.PrimaryEngine.EffectiveQualityThresholds(cfg.GlobalQualityThresholds))
		if !eval.Passed {
			e.markQualityFail(ctx, primaryRun, eval)
		}
		if eval.Passed && cfg.StopOnSuccess {
			e.finish(ctx, exec, doc, []models.Run{*primaryRun})
			return
		}
	}

	e.transition(ctx, exec, models.ExecRunningFallbacks)

	var fallbackRuns []models.Run
	if cfg.ParallelFallbacks {
		fallbackRuns = e.runFallbacksParallel(ctx, exec, doc, cfg, imageData)
	} else {
		fallbackRuns = e.runFallbacksSequential(ctx, exec, doc, cfg, imageData)
	}

	all := fallbackRuns
	if primaryRun != nil {
		all = append([]models.Run{*primaryRun}, all...)
	}
	e.finish(ctx, exec, doc, all)
}

func (e *Engine) runFallbacksSequential(ctx context.Context, exec *models.WorkflowExecution, doc models.Document, cfg models.WorkflowConfig, imageData []byte) []models.Run {
	var out []models.Run
	for _, engineCfg := range cfg.FallbackEngines {
		if ctx.Err() != nil {
			break
		}
		run, result, err := e.attemptEngine(ctx, exec, doc, engineCfg, cfg.GlobalQualityThresholds, cfg.GlobalRetryPolicy, imageData, doc.ContentType)
		if run != nil {
			out = append(out, *run)
		}
		if err == nil {
			eval := quality.Evaluate(*result, engineCfg.EffectiveQualityThresholds(cfg.GlobalQualityThresholds))
			if eval.Passed && cfg.StopOnSuccess {
				break
			}
		}
	}
	return out
}

func (e *Engine) runFallbacksParallel(ctx context.Context, exec *models.WorkflowExecution, doc models.Document, cfg models.WorkflowConfig, imageData []byte) []models.Run {
	maxParallel := cfg.MaxParallelEngines
	if maxParallel <= 0 {
		maxParallel = 3
	}
	sem := make(chan struct{}, maxParallel)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var out []models.Run

	for _, engineCfg := range cfg.FallbackEngines {
		engineCfg := engineCfg
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			run, _, _ := e.attemptEngine(ctx, exec, doc, engineCfg, cfg.GlobalQualityThresholds, cfg.GlobalRetryPolicy, imageData, doc.ContentType)
			if run != nil {
				mu.Lock()
				out = append(out, *run)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return out
}

// attemptEngine runs one engine's full attempt: preprocess, breaker-gated
// driver call with retry, and Run persistence. A driver failure is recorded
// on the Run (marked failed) and also returned as the error, alongside that
// Run; the caller decides what happens next. A disabled engine or a failed
// Run insert returns an error with no Run.
func (e *Engine) attemptEngine(ctx context.Context, exec *models.WorkflowExecution, doc models.Document, engineCfg models.EngineConfig, defaultThresholds models.QualityThresholds, defaultRetry models.RetryPolicy, imageData []byte, contentType string) (*models.Run, *models.OCRResult, error) {
	if !engineCfg.Enabled {
		return nil, nil, fmt.Errorf("engine %s disabled", engineCfg.EngineType)
	}

	run, err := e.runs.CreateRun(ctx, exec.ID, doc.ID, engineCfg)
	if err != nil {
		log.Error().Err(err).Msg("failed to create run record")
		return nil, nil, err
	}
	if err := e.runs.MarkRunning(ctx, run); err != nil {
		log.Error().Err(err).Str("run_id", run.ID).Msg("failed to mark run running")
	}

	driver, err := e.registry.Get(engineCfg.EngineType)
	if err != nil {
		_ = e.runs.FailRun(ctx, run, models.CategoryConfiguration, err, 0)
		return run, nil, err
	}

	input := imageData
	if engineCfg.PreprocessingEnabled {
		if processed, perr := preprocess.Run(imageData, contentType, engineCfg.PreprocessingConfig); perr == nil {
			input = processed
		} else {
			log.Warn().Err(perr).Str("engine", string(engineCfg.EngineType)).Msg("preprocessing failed, using original image")
		}
	}

	retryPolicy := engineCfg.EffectiveRetryPolicy(defaultRetry)
	start := time.Now()
	var result *models.OCRResult
	runErr := drivers.WithRetry(ctx, retryPolicy, func() error {
		r, err := e.breakers.Execute(ctx, engineCfg.EngineType, func() (*models.OCRResult, error) {
			return driver.Analyze(ctx, engineCfg, input, contentType)
		})
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	latencyMs := time.Since(start).Milliseconds()

	if runErr != nil {
		category := drivers.Classify(runErr)
		if ferr := e.runs.FailRun(ctx, run, category, runErr, latencyMs); ferr != nil {
			log.Error().Err(ferr).Str("run_id", run.ID).Msg("failed to persist failed run")
		}
		return run, nil, runErr
	}

	costCents := driver.EstimateCost(result.PagesProcessed)
	if err := e.runs.CompleteRun(ctx, run, result, latencyMs, costCents); err != nil {
		log.Error().Err(err).Str("run_id", run.ID).Msg("failed to persist completed run")
	}
	return run, result, nil
}

func (e *Engine) markQualityFail(ctx context.Context, run *models.Run, eval quality.Evaluation) {
	run.ErrorCategory = models.CategoryQualityFail
	log.Info().Str("run_id", run.ID).Interface("failed_criteria", eval.FailedCriteria()).Msg("run failed quality evaluation")
}

// finish runs the selection phase (§4.8 step 7) and, when a run wins,
// copies its result onto the Document (§4.8 step 8) before persisting the
// execution's terminal state. A Document-update failure never loses the
// selected run: the execution still records SelectedRunID and moves to
// partially_completed rather than completed, carrying the update error.
func (e *Engine) finish(ctx context.Context, exec *models.WorkflowExecution, doc models.Document, runs []models.Run) {
	winner := selector.Select(runs, doc.PageCount)
	now := time.Now()
	exec.CompletedAt = &now

	if winner == nil {
		exec.State = models.ExecFailed
		exec.Error = compositeFailureError(runs)
		if err := e.meta.UpdateExecution(ctx, exec); err != nil {
			log.Error().Err(err).Str("execution_id", exec.ID).Msg("failed to persist final execution state")
		}
		log.Info().Str("execution_id", exec.ID).Str("state", string(exec.State)).Msg("workflow execution finished")
		return
	}

	exec.SelectedRunID = winner.ID

	updated := doc
	updated.ExtractedText = winner.Result.Text
	updated.SelectedEngine = winner.EngineType
	updated.SelectedRunID = winner.ID
	updated.LastOCRAt = &now

	if err := e.meta.UpdateDocument(ctx, &updated); err != nil {
		exec.State = models.ExecPartiallyCompleted
		exec.Error = fmt.Sprintf("document update failed: %v", err)
		log.Error().Err(err).Str("execution_id", exec.ID).Str("document_id", doc.ID).Msg("document update failed after run selection")
	} else {
		exec.State = models.ExecCompleted
	}

	if err := e.meta.UpdateExecution(ctx, exec); err != nil {
		log.Error().Err(err).Str("execution_id", exec.ID).Msg("failed to persist final execution state")
	}
	log.Info().Str("execution_id", exec.ID).Str("state", string(exec.State)).Msg("workflow execution finished")
}

// compositeFailureError names every failed engine and its error category,
// for the execution record when no run survived selection (§4.8 step 7).
func compositeFailureError(runs []models.Run) string {
	var parts []string
	for _, r := range runs {
		if r.Status == models.RunFailed {
			parts = append(parts, fmt.Sprintf("%s[%s]: %s", r.EngineType, r.ErrorCategory, r.ErrorMessage))
		}
	}
	return strings.Join(parts, "; ")
}

func (e *Engine) transition(ctx context.Context, exec *models.WorkflowExecution, state models.ExecutionState) {
	exec.State = state
	if err := e.meta.UpdateExecution(ctx, exec); err != nil {
		log.Error().Err(err).Str("execution_id", exec.ID).Str("state", string(state)).Msg("failed to persist execution state transition")
	}
}
