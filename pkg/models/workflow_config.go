package models

// OCREngineType enumerates the OCR engines the orchestrator can dispatch to.
type OCREngineType string

const (
	EngineAzure    OCREngineType = "azure"
	EngineGoogle   OCREngineType = "google"
	EngineMistral  OCREngineType = "mistral"
	EngineTesseract OCREngineType = "tesseract"
	EnginePaddle   OCREngineType = "paddle"
	EngineTextract OCREngineType = "textract"
)

// ResultSelectionStrategy names how the Selector picks a winning Run out of
// a completed set. All non-default values currently reduce to the same
// highest-confidence-first policy; see DESIGN.md for the Open Question
// decision.
type ResultSelectionStrategy string

const (
	StrategyHighestConfidence ResultSelectionStrategy = "highest_confidence"
	StrategyFastest           ResultSelectionStrategy = "fastest"
	StrategyCheapest          ResultSelectionStrategy = "cheapest"
	StrategyFirstSuccess      ResultSelectionStrategy = "first_success"
)

// RetryPolicy controls the backoff a driver applies to its own transient
// failures before the orchestrator treats the attempt as exhausted.
type RetryPolicy struct {
	MaxRetries         int     `json:"max_retries"`
	BackoffFactor      float64 `json:"backoff_factor"`
	MaxBackoffSeconds  int     `json:"max_backoff_seconds"`
}

// DefaultRetryPolicy is the conservative backoff applied when an engine's
// WorkflowConfig doesn't specify its own retry policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, BackoffFactor: 2.0, MaxBackoffSeconds: 300}
}

// QualityThresholds gate whether a Run's OCRResult is accepted or treated as
// a quality failure (see ErrorCategory QUALITY_FAIL).
type QualityThresholds struct {
	MinConfidenceScore     float64 `json:"min_confidence_score"`
	MinWordRecognitionRate float64 `json:"min_word_recognition_rate"`
	MaxProcessingTimeSeconds int   `json:"max_processing_time_seconds"`
	MinPagesProcessed      int     `json:"min_pages_processed"`
}

// DefaultQualityThresholds is the baseline quality bar applied when a
// WorkflowConfig doesn't override it per engine.
func DefaultQualityThresholds() QualityThresholds {
	return QualityThresholds{
		MinConfidenceScore:       0.7,
		MinWordRecognitionRate:   0.8,
		MaxProcessingTimeSeconds: 300,
		MinPagesProcessed:        1,
	}
}

// PreprocessingConfig toggles stages of the fixed-order image pipeline.
type PreprocessingConfig struct {
	Grayscale       bool `json:"grayscale"`
	AdaptiveThreshold bool `json:"adaptive_threshold"`
	NoiseReduction  bool `json:"noise_reduction"`
	SkewCorrection  bool `json:"skew_correction"`
	DPIOptimization bool `json:"dpi_optimization"`
}

// DefaultPreprocessingConfig enables every stage.
func DefaultPreprocessingConfig() PreprocessingConfig {
	return PreprocessingConfig{
		Grayscale:         true,
		AdaptiveThreshold: true,
		NoiseReduction:    true,
		SkewCorrection:    true,
		DPIOptimization:   true,
	}
}

// EngineConfig is one entry in a WorkflowConfig's primary/fallback chain.
type EngineConfig struct {
	EngineType            OCREngineType        `json:"engine_type"`
	EngineName            string               `json:"engine_name"`
	Enabled               bool                 `json:"enabled"`
	TimeoutSeconds        int                  `json:"timeout_seconds"`
	ConfigParams          map[string]string    `json:"config_params"`
	QualityThresholds     *QualityThresholds   `json:"quality_thresholds,omitempty"`
	RetryPolicy           *RetryPolicy         `json:"retry_policy,omitempty"`
	PreprocessingEnabled  bool                 `json:"preprocessing_enabled"`
	PreprocessingConfig   PreprocessingConfig  `json:"preprocessing_config"`
}

// EffectiveQualityThresholds returns the engine's override if set, else the
// workflow-level default.
func (e EngineConfig) EffectiveQualityThresholds(fallback QualityThresholds) QualityThresholds {
	if e.QualityThresholds != nil {
		return *e.QualityThresholds
	}
	return fallback
}

// EffectiveRetryPolicy returns the engine's override if set, else the
// workflow-level default.
func (e EngineConfig) EffectiveRetryPolicy(fallback RetryPolicy) RetryPolicy {
	if e.RetryPolicy != nil {
		return *e.RetryPolicy
	}
	return fallback
}

// WorkflowConfig describes one end-to-end OCR strategy: a primary engine, an
// ordered fallback chain, and the policy governing how they're combined.
type WorkflowConfig struct {
	WorkflowID              string                   `json:"workflow_id" db:"workflow_id"`
	WorkflowName             string                   `json:"workflow_name" db:"workflow_name"`
	Version                  string                   `json:"version" db:"version"`
	PrimaryEngine             EngineConfig             `json:"primary_engine"`
	FallbackEngines           []EngineConfig           `json:"fallback_engines"`
	GlobalQualityThresholds   QualityThresholds        `json:"global_quality_thresholds"`
	GlobalRetryPolicy         RetryPolicy              `json:"global_retry_policy"`
	StopOnSuccess             bool                     `json:"stop_on_success"`
	ParallelFallbacks         bool                     `json:"parallel_fallbacks"`
	MaxParallelEngines        int                      `json:"max_parallel_engines"`
	ResultSelectionStrategy   ResultSelectionStrategy  `json:"result_selection_strategy"`
}

// AllEngines returns the primary engine followed by the fallback chain, in
// dispatch order.
func (w WorkflowConfig) AllEngines() []EngineConfig {
	out := make([]EngineConfig, 0, 1+len(w.FallbackEngines))
	out = append(out, w.PrimaryEngine)
	out = append(out, w.FallbackEngines...)
	return out
}
