package drivers

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/kntaj/ocrflow/pkg/models"
	"github.com/rs/zerolog/log"
)

// localEngineDriver shells out to a locally installed OCR binary: stage the
// input in a temp file, build a command on that path, capture stdout and
// stderr, run it to completion under the caller's
// context, and classify a non-zero exit as a permanent failure (the binary
// is either missing input it understands or misconfigured — retrying the
// same bytes won't help).
type localEngineDriver struct {
	kind   models.OCREngineType
	binary string
	args   func(tmpImagePath string) []string
	cost   func(pageCount int) *int
}

func (d *localEngineDriver) Kind() models.OCREngineType { return d.kind }

func (d *localEngineDriver) HealthCheck(ctx context.Context) error {
	if _, err := exec.LookPath(d.binary); err != nil {
		return fmt.Errorf("%s driver: binary %q not found in PATH: %w", d.kind, d.binary, err)
	}
	return nil
}

func (d *localEngineDriver) EstimateCost(pageCount int) *int { return d.cost(pageCount) }

func (d *localEngineDriver) Analyze(ctx context.Context, cfg models.EngineConfig, imageData []byte, contentType string) (*models.OCRResult, error) {
	ctx, cancel := withTimeout(ctx, cfg.TimeoutSeconds)
	defer cancel()

	if _, err := exec.LookPath(d.binary); err != nil {
		return nil, models.NewOCRError(models.CategoryConfiguration, string(d.kind), fmt.Errorf("binary %q not found: %w", d.binary, err))
	}

	tmpFile, err := os.CreateTemp("", string(d.kind)+"-*.img")
	if err != nil {
		return nil, models.NewOCRError(models.CategoryTransient, string(d.kind), fmt.Errorf("stage input: %w", err))
	}
	defer os.Remove(tmpFile.Name())
	if _, err := tmpFile.Write(imageData); err != nil {
		tmpFile.Close()
		return nil, models.NewOCRError(models.CategoryTransient, string(d.kind), fmt.Errorf("write input: %w", err))
	}
	tmpFile.Close()

	cmd := exec.CommandContext(ctx, d.binary, d.args(tmpFile.Name())...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, models.NewOCRError(models.CategoryCancelled, string(d.kind), err)
		}
		log.Warn().Str("engine", string(d.kind)).Str("stderr", stderr.String()).Err(err).Msg("local OCR engine exited non-zero")
		return nil, models.NewOCRError(models.CategoryPermanent, string(d.kind), fmt.Errorf("process exited: %w", err))
	}

	text := stdout.String()
	return &models.OCRResult{
		EngineType:      d.kind,
		Text:            text,
		PagesProcessed:  1,
		ConfidenceScore: estimateLocalConfidence(text),
		WordCount:       countWords(text),
	}, nil
}

// estimateLocalConfidence gives a rough confidence signal for engines whose
// CLI output carries no native per-word confidence score: any output that
// is not empty or all whitespace is treated as moderately confident (0.75),
// empty output as a clear failure signal (0) for the quality evaluator
// downstream.
func estimateLocalConfidence(text string) float64 {
	if len(bytes.TrimSpace([]byte(text))) == 0 {
		return 0
	}
	return 0.75
}
