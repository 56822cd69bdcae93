// internal/splitter/analyzer.go
package splitter

import (
	"math"

	"github.com/Corphon/SceneSplitter/internal/models"
)

const (
	minRecommendedScenes = 3
	maxRecommendedScenes = 12
	paragraphsPerScene   = 3
)

// Analyze computes the text statistics used for strategy suggestion and metadata.
func Analyze(text string) models.TextAnalysis {
	text = normalizeText(text)

	sentences := countSentences(text)
	words := countWords(text)
	paragraphs := len(SplitParagraphs(text))

	avg := 0.0
	if sentences > 0 {
		avg = float64(words) / float64(sentences)
	}

	complexity := math.Min(100, (float64(sentences)*2+float64(words)*0.1)/10)

	recommended := int(math.Ceil(float64(paragraphs) / paragraphsPerScene))
	if recommended < minRecommendedScenes {
		recommended = minRecommendedScenes
	}
	if recommended > maxRecommendedScenes {
		recommended = maxRecommendedScenes
	}

	return models.TextAnalysis{
		SentenceCount:           sentences,
		WordCount:               words,
		ParagraphCount:          paragraphs,
		AverageWordsPerSentence: avg,
		ComplexityScore:         complexity,
		RecommendedSceneCount:   recommended,
	}
}

// SuggestStrategy picks a strategy from the analysis. The result is advisory
// and only recorded in metadata.
func SuggestStrategy(a models.TextAnalysis, targetDuration float64) models.SplitStrategy {
	switch {
	case a.ComplexityScore > 70:
		return models.StrategyAIGuided
	case targetDuration > 300:
		return models.StrategyDurationBased
	case a.ParagraphCount > 10:
		return models.StrategyContentBased
	default:
		return models.StrategyNaturalBreaks
	}
}
