// Package quality implements the Quality Evaluator (component C4): a pure
// function checking an OCRResult against QualityThresholds across five
// independent criteria, collecting every check's result rather than
// short-circuiting on the first failure.
package quality

import "github.com/kntaj/ocrflow/pkg/models"

// Criterion names one of the five checks an Evaluation reports on.
type Criterion string

const (
	CriterionConfidence      Criterion = "confidence_score"
	CriterionWordCount       Criterion = "word_count"
	CriterionPagesProcessed  Criterion = "pages_processed"
	CriterionProcessingTime  Criterion = "processing_time"
	CriterionWordRecognition Criterion = "word_recognition_rate"
)

// CheckResult is one criterion's pass/fail outcome with the values compared.
type CheckResult struct {
	Criterion Criterion
	Passed    bool
	Actual    float64
	Required  float64
}

// Evaluation is the full multi-criterion verdict for one OCRResult.
type Evaluation struct {
	Passed  bool
	Results []CheckResult
}

// FailedCriteria returns the names of every criterion that did not pass.
func (e Evaluation) FailedCriteria() []Criterion {
	var out []Criterion
	for _, r := range e.Results {
		if !r.Passed {
			out = append(out, r.Criterion)
		}
	}
	return out
}

// Score returns the fraction of criteria that passed, in [0,1], for logging
// alongside the pass/fail verdict.
func (e Evaluation) Score() float64 {
	if len(e.Results) == 0 {
		return 0
	}
	var passed int
	for _, r := range e.Results {
		if r.Passed {
			passed++
		}
	}
	return float64(passed) / float64(len(e.Results))
}

// wordRecognitionRate estimates how much of a document's text an engine
// actually recognized when no external expected-word-count is available: it
// saturates at 1 once wordCount reaches 100, and is 0 for empty output,
// without ever dividing by zero.
func wordRecognitionRate(wordCount int) float64 {
	denom := wordCount
	if denom < 100 {
		denom = 100
	}
	if denom == 0 {
		return 0
	}
	rate := float64(wordCount) / float64(denom)
	if rate > 1 {
		return 1
	}
	return rate
}

// Evaluate checks result against thresholds across all five criteria and
// returns a structured verdict. Evaluate never returns an error: an
// OCRResult that fails every criterion is still a valid (failing)
// evaluation, not an exceptional condition.
func Evaluate(result models.OCRResult, thresholds models.QualityThresholds) Evaluation {
	eval := Evaluation{Passed: true}

	wrr := wordRecognitionRate(result.WordCount)

	checks := []CheckResult{
		{Criterion: CriterionConfidence, Actual: result.ConfidenceScore, Required: thresholds.MinConfidenceScore,
			Passed: result.ConfidenceScore >= thresholds.MinConfidenceScore},
		{Criterion: CriterionWordCount, Actual: float64(result.WordCount), Required: 1,
			Passed: result.WordCount > 0},
		{Criterion: CriterionPagesProcessed, Actual: float64(result.PagesProcessed), Required: float64(thresholds.MinPagesProcessed),
			Passed: result.PagesProcessed >= thresholds.MinPagesProcessed},
		{Criterion: CriterionProcessingTime, Actual: result.ProcessingTimeSeconds, Required: float64(thresholds.MaxProcessingTimeSeconds),
			Passed: result.ProcessingTimeSeconds <= float64(thresholds.MaxProcessingTimeSeconds)},
		{Criterion: CriterionWordRecognition, Actual: wrr, Required: thresholds.MinWordRecognitionRate,
			Passed: wrr >= thresholds.MinWordRecognitionRate},
	}

	for _, c := range checks {
		eval.Results = append(eval.Results, c)
		if !c.Passed {
			eval.Passed = false
		}
	}
	return eval
}
