package splitter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseLexiconFillsDefaults 测试未提供的关键词列表使用默认值
func TestParseLexiconFillsDefaults(t *testing.T) {
	lex, err := ParseLexicon([]byte(`
transition_words:
  - "  Später "
  - später
narrator_name: Erzähler
`))
	require.NoError(t, err)

	assert.Equal(t, []string{"später"}, lex.TransitionWords)
	assert.Equal(t, "Erzähler", lex.NarratorName)
	assert.Equal(t, DefaultLexicon().normalized().ActionVerbs, lex.ActionVerbs)
	assert.True(t, lex.IsTransition("SPÄTER am Abend"))
	assert.False(t, lex.IsTransition("meanwhile"))
	// scene-change markers still come from the defaults
	assert.True(t, lex.IsTransition("CUT TO:"))
}

// TestLoadLexiconFromFile 测试从文件加载关键词
func TestLoadLexiconFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexicon.yaml")
	require.NoError(t, os.WriteFile(path, []byte("action_verbs: [sprint]\n"), 0644))

	lex, err := LoadLexicon(path)
	require.NoError(t, err)
	assert.True(t, lex.IsAction("They SPRINT away"))
	assert.False(t, lex.IsAction("They run away"))
}

// TestLoadLexiconErrors 测试文件缺失和格式错误
func TestLoadLexiconErrors(t *testing.T) {
	_, err := LoadLexicon(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = ParseLexicon([]byte("transition_words: [unclosed"))
	assert.Error(t, err)
}

// TestEngineUsesInjectedLexicon 测试引擎使用注入的关键词
func TestEngineUsesInjectedLexicon(t *testing.T) {
	e := NewEngine(WithLexicon(Lexicon{TransitionWords: []string{"SPÄTER"}}))

	assert.Equal(t, []string{"später"}, e.Lexicon().TransitionWords)
	assert.Equal(t, []int{1}, NaturalBreaks([]string{"Später.", "Danach."}, e.Lexicon()))
}
