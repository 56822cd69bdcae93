package splitter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/unicode/norm"

	"github.com/Corphon/SceneSplitter/internal/models"
)

var sampleParagraphs = []string{
	"The hero wakes up in a quiet room.",
	"Meanwhile, the villain plots.",
	"HERO: Who is there?",
	"She starts to run down the hall.",
	"The end of the night.",
}

// TestFindBreakpoints 测试各策略的断点
func TestFindBreakpoints(t *testing.T) {
	lex := DefaultLexicon().normalized()

	tests := []struct {
		name     string
		strategy models.SplitStrategy
		target   int
		want     []int
	}{
		{"natural", models.StrategyNaturalBreaks, 5, []int{2}},
		{"content", models.StrategyContentBased, 5, []int{2, 4}},
		{"hybrid", models.StrategyHybrid, 5, []int{2, 4}},
		{"ai guided uses hybrid", models.StrategyAIGuided, 5, []int{2, 4}},
		{"duration target 2", models.StrategyDurationBased, 2, []int{3}},
		{"duration target 5", models.StrategyDurationBased, 5, []int{1, 2, 3, 4}},
		{"duration target above paragraphs", models.StrategyDurationBased, 10, []int{1, 2, 3, 4}},
		{"duration target 1", models.StrategyDurationBased, 1, []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindBreakpoints(tt.strategy, sampleParagraphs, tt.target, lex)
			assert.Equal(t, tt.want, append([]int{}, got...))
		})
	}
}

// TestDurationBasedSegmentCount 测试按时长切分得到目标数量的片段
func TestDurationBasedSegmentCount(t *testing.T) {
	paragraphs := make([]string, 12)
	for i := range paragraphs {
		paragraphs[i] = "p"
	}
	bounds := DurationBasedSplits(paragraphs, 4)
	assert.Len(t, segmentsOf(paragraphs, bounds), 4)
}

// TestBoundariesNeverAtEdges 测试断点不会落在 0 或末尾
func TestBoundariesNeverAtEdges(t *testing.T) {
	lex := DefaultLexicon().normalized()

	assert.Empty(t, ContentBasedSplits([]string{"A: hi"}, lex))
	assert.Empty(t, NaturalBreaks([]string{"first", "CUT TO:"}, lex))
	assert.Empty(t, DurationBasedSplits(nil, 3))
	assert.Empty(t, DurationBasedSplits([]string{"a", "b"}, 0))
}

// TestNormalizeBoundaries 测试断点排序去重
func TestNormalizeBoundaries(t *testing.T) {
	assert.Equal(t, []int{1, 3, 4}, normalizeBoundaries([]int{4, 1, 3, 1, 0, 5, -2, 4}, 5))
}

// TestNaturalBreaksDecomposedHangul 测试分解形式的韩文也能匹配关键词
func TestNaturalBreaksDecomposedHangul(t *testing.T) {
	lex := DefaultLexicon().normalized()
	text := norm.NFD.String("그는 집을 나섰다.\n\n다음날 아침이 밝았다.\n\n그녀가 기다렸다.")

	assert.Equal(t, []int{2}, NaturalBreaks(SplitParagraphs(text), lex))
}

// TestPreserveDialogueRuns 测试连续对白不被拆开
func TestPreserveDialogueRuns(t *testing.T) {
	lex := DefaultLexicon().normalized()
	paragraphs := []string{"A: hi", "B: hello", "The door moves.", "Silence."}

	bounds := ContentBasedSplits(paragraphs, lex)
	assert.Equal(t, []int{1, 3}, bounds)
	assert.Equal(t, []int{3}, preserveDialogueRuns(bounds, paragraphs, lex))
}

// TestSegmentsOf 测试按断点切分段落
func TestSegmentsOf(t *testing.T) {
	segments := segmentsOf([]string{"a", "b", "c", "d", "e"}, []int{2, 4})
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, segments)
	assert.Nil(t, segmentsOf(nil, nil))
}
