package selector_test

import (
	"testing"

	"github.com/kntaj/ocrflow/internal/selector"
	"github.com/kntaj/ocrflow/pkg/models"
)

func cents(v int) *int { return &v }

func succeeded(id string, result models.OCRResult, latencyMs int64, cost *int) models.Run {
	r := result
	return models.Run{ID: id, Status: models.RunSucceeded, Result: &r, LatencyMs: latencyMs, CostCents: cost}
}

func TestSelect_EmptyInput(t *testing.T) {
	if got := selector.Select(nil, 1); got != nil {
		t.Errorf("Select(nil) = %v, want nil", got)
	}
	if got := selector.Select([]models.Run{}, 1); got != nil {
		t.Errorf("Select(empty) = %v, want nil", got)
	}
}

func TestSelect_AllFailed(t *testing.T) {
	runs := []models.Run{
		{ID: "a", Status: models.RunFailed},
		{ID: "b", Status: models.RunFailed},
	}
	if got := selector.Select(runs, 1); got != nil {
		t.Errorf("Select(all failed) = %v, want nil", got)
	}
}

// Tier 1: high confidence + every page parsed wins outright, even when
// another run parsed more pages with lower confidence.
func TestSelect_Tier1_AllPagesHighConfidenceWins(t *testing.T) {
	runs := []models.Run{
		succeeded("partial-low-conf", models.OCRResult{ConfidenceScore: 0.5, PagesProcessed: 3, WordCount: 500}, 100, nil),
		succeeded("complete-high-conf", models.OCRResult{ConfidenceScore: 0.9, PagesProcessed: 2, WordCount: 50}, 100, nil),
	}
	got := selector.Select(runs, 2)
	if got == nil || got.ID != "complete-high-conf" {
		t.Fatalf("Select() = %v, want %q", got, "complete-high-conf")
	}
}

// Tier 2: below the confidence bar, the run that parsed the most pages with
// actual text wins, regardless of word count or table count.
func TestSelect_Tier2_MostPagesParsedWins(t *testing.T) {
	runs := []models.Run{
		succeeded("few-pages", models.OCRResult{ConfidenceScore: 0.4, PagesProcessed: 1, WordCount: 900, TableCount: 2}, 100, nil),
		succeeded("most-pages", models.OCRResult{ConfidenceScore: 0.3, PagesProcessed: 3, WordCount: 10}, 100, nil),
	}
	got := selector.Select(runs, 5)
	if got == nil || got.ID != "most-pages" {
		t.Fatalf("Select() = %v, want %q (most pages parsed beats tables/word-count)", got, "most-pages")
	}
}

// Tier 3: a tie in pages-parsed falls through to tables + word count.
func TestSelect_Tier3_TableAndWordCountBreaksPagesTie(t *testing.T) {
	runs := []models.Run{
		succeeded("no-table", models.OCRResult{ConfidenceScore: 0.4, PagesProcessed: 2, WordCount: 900}, 100, nil),
		succeeded("has-table", models.OCRResult{ConfidenceScore: 0.4, PagesProcessed: 2, WordCount: 500, TableCount: 1}, 100, nil),
	}
	got := selector.Select(runs, 5)
	if got == nil || got.ID != "has-table" {
		t.Fatalf("Select() = %v, want %q (table detection wins the pages-parsed tie)", got, "has-table")
	}
}

// Tier 4: no run has any table, so the pages-parsed tie is broken by raw
// word count instead.
func TestSelect_Tier4_FallsBackToWordCount(t *testing.T) {
	runs := []models.Run{
		succeeded("fewer-words", models.OCRResult{ConfidenceScore: 0.4, PagesProcessed: 2, WordCount: 100}, 100, nil),
		succeeded("more-words", models.OCRResult{ConfidenceScore: 0.4, PagesProcessed: 2, WordCount: 900}, 100, nil),
	}
	got := selector.Select(runs, 5)
	if got == nil || got.ID != "more-words" {
		t.Fatalf("Select() = %v, want %q", got, "more-words")
	}
}

// Tier 5: nothing produced any recognizable text at all; fall back to
// lowest latency among the completed runs.
func TestSelect_Tier5_FallsBackToLatencyWhenNoTextRecognized(t *testing.T) {
	runs := []models.Run{
		succeeded("slow", models.OCRResult{}, 500, nil),
		succeeded("fast", models.OCRResult{}, 50, nil),
	}
	got := selector.Select(runs, 5)
	if got == nil || got.ID != "fast" {
		t.Fatalf("Select() = %v, want %q", got, "fast")
	}
}

func TestSelect_TieBreaksByLatencyThenCostThenID(t *testing.T) {
	runs := []models.Run{
		succeeded("z-slow-cheap", models.OCRResult{ConfidenceScore: 0.9, PagesProcessed: 1}, 500, cents(1)),
		succeeded("a-fast-expensive", models.OCRResult{ConfidenceScore: 0.9, PagesProcessed: 1}, 100, cents(9)),
	}
	got := selector.Select(runs, 1)
	if got == nil || got.ID != "a-fast-expensive" {
		t.Fatalf("Select() = %v, want the lower-latency run to win the confidence tie", got)
	}
}

func TestSelect_TieBreaksByCostWhenLatencyEqual(t *testing.T) {
	runs := []models.Run{
		succeeded("expensive", models.OCRResult{ConfidenceScore: 0.9, PagesProcessed: 1}, 200, cents(9)),
		succeeded("cheap", models.OCRResult{ConfidenceScore: 0.9, PagesProcessed: 1}, 200, cents(1)),
	}
	got := selector.Select(runs, 1)
	if got == nil || got.ID != "cheap" {
		t.Fatalf("Select() = %v, want the cheaper run to win the latency tie", got)
	}
}

func TestSelect_IsDeterministicAcrossInputOrder(t *testing.T) {
	a := []models.Run{
		succeeded("1", models.OCRResult{ConfidenceScore: 0.6, PagesProcessed: 1}, 100, nil),
		succeeded("2", models.OCRResult{ConfidenceScore: 0.9, PagesProcessed: 1}, 100, nil),
	}
	b := []models.Run{a[1], a[0]}

	got1 := selector.Select(a, 1)
	got2 := selector.Select(b, 1)
	if got1 == nil || got2 == nil || got1.ID != got2.ID {
		t.Fatalf("Select is order-dependent: %v vs %v", got1, got2)
	}
}
