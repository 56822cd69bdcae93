// internal/splitter/breakpoints.go
package splitter

import (
	"sort"

	"github.com/Corphon/SceneSplitter/internal/models"
)

// NaturalBreaks starts a new segment after each paragraph that carries a
// transition word or an explicit scene-change marker.
func NaturalBreaks(paragraphs []string, lex Lexicon) []int {
	var bounds []int
	for i, p := range paragraphs {
		if lex.IsTransition(p) {
			bounds = append(bounds, i+1)
		}
	}
	return normalizeBoundaries(bounds, len(paragraphs))
}

// DurationBasedSplits places a boundary every ceil(n/targetCount) paragraphs.
func DurationBasedSplits(paragraphs []string, targetCount int) []int {
	n := len(paragraphs)
	if n == 0 || targetCount <= 0 {
		return nil
	}
	step := (n + targetCount - 1) / targetCount
	var bounds []int
	for b := step; b < n; b += step {
		bounds = append(bounds, b)
	}
	return normalizeBoundaries(bounds, n)
}

// ContentBasedSplits opens a segment at every dialogue paragraph and closes one
// after every action paragraph.
func ContentBasedSplits(paragraphs []string, lex Lexicon) []int {
	var bounds []int
	for i, p := range paragraphs {
		switch {
		case lex.IsDialogue(p):
			bounds = append(bounds, i)
		case lex.IsAction(p):
			bounds = append(bounds, i+1)
		}
	}
	return normalizeBoundaries(bounds, len(paragraphs))
}

// HybridSplits is the union of natural and content boundaries.
func HybridSplits(paragraphs []string, lex Lexicon) []int {
	bounds := append(NaturalBreaks(paragraphs, lex), ContentBasedSplits(paragraphs, lex)...)
	return normalizeBoundaries(bounds, len(paragraphs))
}

// FindBreakpoints dispatches on strategy. ai_guided and unknown strategies use
// hybrid on the rule-based path.
func FindBreakpoints(strategy models.SplitStrategy, paragraphs []string, targetCount int, lex Lexicon) []int {
	switch strategy {
	case models.StrategyNaturalBreaks:
		return NaturalBreaks(paragraphs, lex)
	case models.StrategyDurationBased:
		return DurationBasedSplits(paragraphs, targetCount)
	case models.StrategyContentBased:
		return ContentBasedSplits(paragraphs, lex)
	default:
		return HybridSplits(paragraphs, lex)
	}
}

// preserveDialogueRuns drops boundaries that would separate two consecutive
// dialogue paragraphs.
func preserveDialogueRuns(bounds []int, paragraphs []string, lex Lexicon) []int {
	out := bounds[:0:0]
	for _, b := range bounds {
		if b > 0 && b < len(paragraphs) && lex.IsDialogue(paragraphs[b-1]) && lex.IsDialogue(paragraphs[b]) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// normalizeBoundaries sorts, de-duplicates and keeps only indices in (0, n).
func normalizeBoundaries(bounds []int, n int) []int {
	seen := make(map[int]struct{}, len(bounds))
	out := make([]int, 0, len(bounds))
	for _, b := range bounds {
		if b <= 0 || b >= n {
			continue
		}
		if _, ok := seen[b]; ok {
			continue
		}
		seen[b] = struct{}{}
		out = append(out, b)
	}
	sort.Ints(out)
	return out
}

// segmentsOf cuts paragraphs at the given boundaries.
func segmentsOf(paragraphs []string, bounds []int) [][]string {
	if len(paragraphs) == 0 {
		return nil
	}
	segments := make([][]string, 0, len(bounds)+1)
	start := 0
	for _, b := range bounds {
		segments = append(segments, paragraphs[start:b])
		start = b
	}
	return append(segments, paragraphs[start:])
}
