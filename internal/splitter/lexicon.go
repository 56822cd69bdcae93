// internal/splitter/lexicon.go
package splitter

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Corphon/SceneSplitter/internal/models"
)

// Lexicon 是断点查找和类型推断使用的关键词集合。
// 所有匹配都在小写、NFC 规范化后的文本上按子串进行。
type Lexicon struct {
	TransitionWords    []string `yaml:"transition_words" json:"transition_words"`
	SceneChangeMarkers []string `yaml:"scene_change_markers" json:"scene_change_markers"`
	DialogueMarkers    []string `yaml:"dialogue_markers" json:"dialogue_markers"`
	ActionVerbs        []string `yaml:"action_verbs" json:"action_verbs"`
	MontageMarkers     []string `yaml:"montage_markers" json:"montage_markers"`
	VoiceoverMarkers   []string `yaml:"voiceover_markers" json:"voiceover_markers"`
	LocationMarkers    []string `yaml:"location_markers" json:"location_markers"`
	NarratorName       string   `yaml:"narrator_name" json:"narrator_name"`
}

// DefaultLexicon 返回内置的韩/英关键词集合
func DefaultLexicon() Lexicon {
	return Lexicon{
		TransitionWords: []string{
			"meanwhile", "later that", "the next day", "next morning", "hours later", "days later",
			"다음날", "다음 날", "한편", "그 후", "잠시 후", "그날 밤", "며칠 후",
		},
		SceneChangeMarkers: []string{
			"cut to", "fade in", "fade out", "dissolve to", "smash cut",
			"컷", "페이드", "장면 전환",
		},
		DialogueMarkers: []string{
			":", "：", "대사", "“", "「",
		},
		ActionVerbs: []string{
			"run", "jump", "move", "fight", "chase", "punch", "escape", "rush",
			"달리", "달려", "뛰", "움직", "싸우", "쫓", "도망",
		},
		MontageMarkers: []string{
			"montage", "몽타주",
		},
		VoiceoverMarkers: []string{
			"v.o.", "voiceover", "voice-over", "내레이션", "나레이션",
		},
		LocationMarkers: []string{
			"int.", "ext.", "장소:", "location:",
		},
		NarratorName: "나레이터",
	}
}

// LoadLexicon 从 YAML 文件加载关键词，未给出的列表沿用默认值
func LoadLexicon(path string) (Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Lexicon{}, fmt.Errorf("读取关键词文件失败: %w", err)
	}
	return ParseLexicon(data)
}

// ParseLexicon 解析 YAML 关键词数据
func ParseLexicon(data []byte) (Lexicon, error) {
	var parsed Lexicon
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return Lexicon{}, fmt.Errorf("解析关键词文件失败: %w", err)
	}
	return parsed.withDefaults().normalized(), nil
}

// withDefaults 用默认值补齐空列表
func (l Lexicon) withDefaults() Lexicon {
	def := DefaultLexicon()
	if len(l.TransitionWords) == 0 {
		l.TransitionWords = def.TransitionWords
	}
	if len(l.SceneChangeMarkers) == 0 {
		l.SceneChangeMarkers = def.SceneChangeMarkers
	}
	if len(l.DialogueMarkers) == 0 {
		l.DialogueMarkers = def.DialogueMarkers
	}
	if len(l.ActionVerbs) == 0 {
		l.ActionVerbs = def.ActionVerbs
	}
	if len(l.MontageMarkers) == 0 {
		l.MontageMarkers = def.MontageMarkers
	}
	if len(l.VoiceoverMarkers) == 0 {
		l.VoiceoverMarkers = def.VoiceoverMarkers
	}
	if len(l.LocationMarkers) == 0 {
		l.LocationMarkers = def.LocationMarkers
	}
	if strings.TrimSpace(l.NarratorName) == "" {
		l.NarratorName = def.NarratorName
	}
	return l
}

// normalized 返回小写、去重、去空白后的副本
func (l Lexicon) normalized() Lexicon {
	l.TransitionWords = normalizeKeywords(l.TransitionWords)
	l.SceneChangeMarkers = normalizeKeywords(l.SceneChangeMarkers)
	l.DialogueMarkers = normalizeKeywords(l.DialogueMarkers)
	l.ActionVerbs = normalizeKeywords(l.ActionVerbs)
	l.MontageMarkers = normalizeKeywords(l.MontageMarkers)
	l.VoiceoverMarkers = normalizeKeywords(l.VoiceoverMarkers)
	l.LocationMarkers = normalizeKeywords(l.LocationMarkers)
	l.NarratorName = strings.TrimSpace(l.NarratorName)
	return l
}

func normalizeKeywords(words []string) []string {
	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(strings.ToLower(normalizeText(w)))
		if w == "" {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// containsAny 判断小写文本是否包含任一关键词
func containsAny(lower string, words []string) bool {
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// IsTransition 段落是否含有过渡词或场景切换标记
func (l Lexicon) IsTransition(paragraph string) bool {
	lower := strings.ToLower(paragraph)
	return containsAny(lower, l.TransitionWords) || containsAny(lower, l.SceneChangeMarkers)
}

// IsDialogue 段落是否含有对白标记
func (l Lexicon) IsDialogue(paragraph string) bool {
	return containsAny(strings.ToLower(paragraph), l.DialogueMarkers)
}

// IsAction 段落是否含有动作动词
func (l Lexicon) IsAction(paragraph string) bool {
	return containsAny(strings.ToLower(paragraph), l.ActionVerbs)
}

// InferType 按 对白 → 动作 → 过渡 → 蒙太奇 → 画外音 的优先级推断类型，默认对白
func (l Lexicon) InferType(text string) models.SceneType {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, l.DialogueMarkers):
		return models.SceneTypeDialogue
	case containsAny(lower, l.ActionVerbs):
		return models.SceneTypeAction
	case containsAny(lower, l.TransitionWords), containsAny(lower, l.SceneChangeMarkers):
		return models.SceneTypeTransition
	case containsAny(lower, l.MontageMarkers):
		return models.SceneTypeMontage
	case containsAny(lower, l.VoiceoverMarkers):
		return models.SceneTypeVoiceover
	default:
		return models.SceneTypeDialogue
	}
}
