package splitter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/unicode/norm"

	"github.com/Corphon/SceneSplitter/internal/models"
)

// TestAnalyzeCounts 测试文本统计
func TestAnalyzeCounts(t *testing.T) {
	a := Analyze("첫 문장입니다. 두번째 문장!\n\n세번째 문장?")

	assert.Equal(t, 3, a.SentenceCount)
	assert.Equal(t, 6, a.WordCount)
	assert.Equal(t, 2, a.ParagraphCount)
	assert.InDelta(t, 2.0, a.AverageWordsPerSentence, 1e-9)
	assert.InDelta(t, 0.66, a.ComplexityScore, 1e-9)
	assert.Equal(t, 3, a.RecommendedSceneCount)
}

// TestAnalyzeEmpty 测试空文本不会出错
func TestAnalyzeEmpty(t *testing.T) {
	a := Analyze("   \n\n ")

	assert.Zero(t, a.SentenceCount)
	assert.Zero(t, a.WordCount)
	assert.Zero(t, a.ParagraphCount)
	assert.Zero(t, a.AverageWordsPerSentence)
	assert.Equal(t, minRecommendedScenes, a.RecommendedSceneCount)
}

// TestAnalyzeBounds 测试复杂度和推荐场景数的上下限
func TestAnalyzeBounds(t *testing.T) {
	paragraphs := make([]string, 40)
	for i := range paragraphs {
		paragraphs[i] = strings.Repeat("word ", 300) + "end."
	}
	a := Analyze(strings.Join(paragraphs, "\n\n"))

	assert.Equal(t, maxRecommendedScenes, a.RecommendedSceneCount)
	assert.LessOrEqual(t, a.ComplexityScore, 100.0)
	assert.Equal(t, 100.0, a.ComplexityScore)
}

// TestSuggestStrategy 测试策略建议规则
func TestSuggestStrategy(t *testing.T) {
	tests := []struct {
		name     string
		analysis models.TextAnalysis
		target   float64
		want     models.SplitStrategy
	}{
		{"complex text", models.TextAnalysis{ComplexityScore: 71, ParagraphCount: 20}, 600, models.StrategyAIGuided},
		{"long target", models.TextAnalysis{ComplexityScore: 10, ParagraphCount: 20}, 301, models.StrategyDurationBased},
		{"many paragraphs", models.TextAnalysis{ComplexityScore: 10, ParagraphCount: 11}, 0, models.StrategyContentBased},
		{"short text", models.TextAnalysis{ComplexityScore: 10, ParagraphCount: 3}, 120, models.StrategyNaturalBreaks},
		{"boundary values", models.TextAnalysis{ComplexityScore: 70, ParagraphCount: 10}, 300, models.StrategyNaturalBreaks},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SuggestStrategy(tt.analysis, tt.target))
		})
	}
}

// TestSplitParagraphsNormalizes 测试段落切分和 NFC 规范化
func TestSplitParagraphsNormalizes(t *testing.T) {
	decomposed := norm.NFD.String("한편 그는 떠났다.")
	assert.NotEqual(t, "한편 그는 떠났다.", decomposed)

	got := SplitParagraphs("  \r\n" + decomposed + "\r\n \r\n\n두번째 단락\n같은 단락\n\n   \n")
	assert.Equal(t, []string{"한편 그는 떠났다.", "두번째 단락\n같은 단락"}, got)
}

// TestSplitSentencesKeepsTerminators 测试句子切分保留结束符
func TestSplitSentencesKeepsTerminators(t *testing.T) {
	assert.Equal(t, []string{"One.", "Two!", "세 번째？", "tail"}, splitSentences("One. Two! 세 번째？ tail"))
	assert.Empty(t, splitSentences("   "))
}
