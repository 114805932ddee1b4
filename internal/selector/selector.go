// Package selector implements the Selector (component C6): a pure,
// deterministic function choosing the winning Run out of a completed set.
package selector

import (
	"github.com/kntaj/ocrflow/pkg/models"
)

// highConfidenceThreshold is the confidence bar tier 1 requires, independent
// of whatever QualityThresholds an engine was evaluated against — a run can
// fail quality evaluation on some other criterion and still be the best
// available result for selection purposes.
const highConfidenceThreshold = 0.70

// Select applies the four-tier fallback policy over runs and the document's
// declared page count, returning the winner or nil if every run failed.
// Select is total over any input (including an empty slice) and never
// mutates its argument; running it twice over the same inputs always
// returns the same run.
func Select(runs []models.Run, documentPageCount int) *models.Run {
	succeeded := make([]models.Run, 0, len(runs))
	for _, r := range runs {
		if r.Status == models.RunSucceeded && r.Result != nil {
			succeeded = append(succeeded, r)
		}
	}
	if len(succeeded) == 0 {
		return nil
	}

	// Tier 1: all pages parsed at high confidence, highest confidence wins.
	var tier1 []models.Run
	for _, r := range succeeded {
		if r.Result.ConfidenceScore >= highConfidenceThreshold && r.Result.PagesProcessed == documentPageCount {
			tier1 = append(tier1, r)
		}
	}
	if len(tier1) > 0 {
		return pickBest(tier1, func(r models.Run) float64 { return r.Result.ConfidenceScore })
	}

	// Tier 2: most pages parsed with non-empty text. A unique maximum wins
	// outright; a tie carries forward as the pool for tiers 3 and 4 instead
	// of falling through to the full run set.
	var withText []models.Run
	for _, r := range succeeded {
		if r.Result.PagesProcessed > 0 && r.Result.WordCount > 0 {
			withText = append(withText, r)
		}
	}
	pool := succeeded
	if len(withText) > 0 {
		maxPages := withText[0].Result.PagesProcessed
		for _, r := range withText {
			if r.Result.PagesProcessed > maxPages {
				maxPages = r.Result.PagesProcessed
			}
		}
		var atMax []models.Run
		for _, r := range withText {
			if r.Result.PagesProcessed == maxPages {
				atMax = append(atMax, r)
			}
		}
		if len(atMax) == 1 {
			return &atMax[0]
		}
		pool = atMax
	}

	// Tier 3: among the tie-break pool, highest word count with at least one
	// table detected.
	var withTables []models.Run
	for _, r := range pool {
		if r.Result.WordCount > 0 && r.Result.TableCount >= 1 {
			withTables = append(withTables, r)
		}
	}
	if len(withTables) > 0 {
		return pickBest(withTables, func(r models.Run) float64 { return float64(r.Result.WordCount) })
	}

	// Tier 4: fallback by highest word count, over the tie-break pool if one
	// exists, else every run with any recognized text.
	var byWords []models.Run
	if len(withText) > 0 {
		byWords = pool
	} else {
		for _, r := range succeeded {
			if r.Result.WordCount > 0 {
				byWords = append(byWords, r)
			}
		}
	}
	if len(byWords) > 0 {
		return pickBest(byWords, func(r models.Run) float64 { return float64(r.Result.WordCount) })
	}

	// Tier 5: final fallback, lowest latency among every completed run.
	return pickBest(succeeded, func(models.Run) float64 { return 0 })
}

// pickBest returns the run with the highest score, breaking ties by lowest
// latency, then lowest cost, then lowest run ID — the same total order
// shared across every tier.
func pickBest(runs []models.Run, score func(models.Run) float64) *models.Run {
	best := runs[0]
	bestScore := score(best)
	for _, r := range runs[1:] {
		s := score(r)
		switch {
		case s > bestScore:
			best, bestScore = r, s
		case s == bestScore:
			if isBetterTieBreak(r, best) {
				best, bestScore = r, s
			}
		}
	}
	return &best
}

func isBetterTieBreak(a, b models.Run) bool {
	if a.LatencyMs != b.LatencyMs {
		return a.LatencyMs < b.LatencyMs
	}
	aCost, bCost := costOrMax(a.CostCents), costOrMax(b.CostCents)
	if aCost != bCost {
		return aCost < bCost
	}
	return a.ID < b.ID
}

func costOrMax(c *int) int {
	if c == nil {
		return int(^uint(0) >> 1) // treat unknown cost as worst-case for tie-breaking
	}
	return *c
}
