package config

import (
	"fmt"

	"github.com/kntaj/ocrflow/pkg/models"
)

// Preset builds a named default WorkflowConfig: a fixed primary engine plus
// a sensible fallback chain, using global defaults for quality thresholds
// and retry policy unless overridden per engine.
type Preset func() models.WorkflowConfig

var presets = map[string]Preset{
	"azure_primary":  azurePrimaryPreset,
	"google_primary": googlePrimaryPreset,
	"opensource":     opensourcePreset,
}

// Resolve returns the named preset, or an error if it is unknown — presets
// are a closed set, not an open extension point, so an unknown name is a
// configuration error rather than a silent fallback.
func Resolve(name string) (models.WorkflowConfig, error) {
	p, ok := presets[name]
	if !ok {
		return models.WorkflowConfig{}, fmt.Errorf("unknown workflow preset %q", name)
	}
	return p(), nil
}

func baseEngine(kind models.OCREngineType) models.EngineConfig {
	return models.EngineConfig{
		EngineType:           kind,
		EngineName:           string(kind),
		Enabled:              true,
		TimeoutSeconds:       300,
		ConfigParams:         map[string]string{},
		PreprocessingEnabled: true,
		PreprocessingConfig:  models.DefaultPreprocessingConfig(),
	}
}

func azurePrimaryPreset() models.WorkflowConfig {
	return models.WorkflowConfig{
		WorkflowName:            "azure_primary",
		Version:                 "1.0",
		PrimaryEngine:           baseEngine(models.EngineAzure),
		FallbackEngines:         []models.EngineConfig{baseEngine(models.EngineGoogle), baseEngine(models.EngineTesseract)},
		GlobalQualityThresholds: models.DefaultQualityThresholds(),
		GlobalRetryPolicy:       models.DefaultRetryPolicy(),
		StopOnSuccess:           true,
		ParallelFallbacks:       false,
		MaxParallelEngines:      3,
		ResultSelectionStrategy: models.StrategyHighestConfidence,
	}
}

func googlePrimaryPreset() models.WorkflowConfig {
	return models.WorkflowConfig{
		WorkflowName:            "google_primary",
		Version:                 "1.0",
		PrimaryEngine:           baseEngine(models.EngineGoogle),
		FallbackEngines:         []models.EngineConfig{baseEngine(models.EngineAzure), baseEngine(models.EngineTesseract)},
		GlobalQualityThresholds: models.DefaultQualityThresholds(),
		GlobalRetryPolicy:       models.DefaultRetryPolicy(),
		StopOnSuccess:           true,
		ParallelFallbacks:       false,
		MaxParallelEngines:      3,
		ResultSelectionStrategy: models.StrategyHighestConfidence,
	}
}

func opensourcePreset() models.WorkflowConfig {
	return models.WorkflowConfig{
		WorkflowName:            "opensource",
		Version:                 "1.0",
		PrimaryEngine:           baseEngine(models.EngineTesseract),
		FallbackEngines:         []models.EngineConfig{baseEngine(models.EnginePaddle)},
		GlobalQualityThresholds: models.DefaultQualityThresholds(),
		GlobalRetryPolicy:       models.DefaultRetryPolicy(),
		StopOnSuccess:           true,
		ParallelFallbacks:       true,
		MaxParallelEngines:      2,
		ResultSelectionStrategy: models.StrategyHighestConfidence,
	}
}

// MergeOverride applies a caller-supplied partial override onto a base
// WorkflowConfig exactly once at entry. Zero-valued fields in the override
// are treated as "not specified" and left at the base's value.
func MergeOverride(base models.WorkflowConfig, override *models.WorkflowConfig) models.WorkflowConfig {
	if override == nil {
		return base
	}
	merged := base
	if override.PrimaryEngine.EngineType != "" {
		merged.PrimaryEngine = override.PrimaryEngine
	}
	if override.FallbackEngines != nil {
		merged.FallbackEngines = override.FallbackEngines
	}
	if override.ResultSelectionStrategy != "" {
		merged.ResultSelectionStrategy = override.ResultSelectionStrategy
	}
	if override.MaxParallelEngines != 0 {
		merged.MaxParallelEngines = override.MaxParallelEngines
	}
	merged.StopOnSuccess = override.StopOnSuccess || base.StopOnSuccess
	merged.ParallelFallbacks = override.ParallelFallbacks || base.ParallelFallbacks
	return merged
}
