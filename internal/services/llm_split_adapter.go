// internal/services/llm_split_adapter.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Corphon/SceneSplitter/internal/models"
	"github.com/Corphon/SceneSplitter/internal/splitter"
)

const maxPromptStoryRunes = 8000

// ErrStoryTooLong 故事超出提示词长度，交由规则分割处理
var ErrStoryTooLong = errors.New("story exceeds AI prompt budget")

// LLMSceneSplitter 通过结构化补全实现 splitter.AISplitter
type LLMSceneSplitter struct {
	llm *LLMService
}

// NewLLMSceneSplitter 创建基于 LLM 的分割器
func NewLLMSceneSplitter(llmService *LLMService) *LLMSceneSplitter {
	return &LLMSceneSplitter{llm: llmService}
}

// aiScene 模型返回的场景，字段均可缺省
type aiScene struct {
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	Type              string   `json:"type"`
	Duration          float64  `json:"duration"`
	Location          string   `json:"location"`
	Characters        []string `json:"characters"`
	Dialogue          string   `json:"dialogue"`
	ActionDescription string   `json:"action_description"`
	VisualElements    []string `json:"visual_elements"`
}

// SplitScenes 实现 splitter.AISplitter
func (a *LLMSceneSplitter) SplitScenes(ctx context.Context, req splitter.AISplitRequest) ([]models.Scene, error) {
	if a.llm == nil || !a.llm.IsReady() {
		return nil, ErrLLMNotReady
	}
	if n := utf8.RuneCountInString(req.StoryText); n > maxPromptStoryRunes {
		return nil, fmt.Errorf("%w: %d runes (limit %d)", ErrStoryTooLong, n, maxPromptStoryRunes)
	}

	prompt, systemPrompt := buildSplitPrompt(req)

	var raw json.RawMessage
	if err := a.llm.CreateStructuredCompletion(ctx, prompt, systemPrompt, &raw); err != nil {
		return nil, err
	}

	parsed, err := decodeAIScenes(raw)
	if err != nil {
		return nil, err
	}

	scenes := make([]models.Scene, 0, len(parsed))
	for _, s := range parsed {
		scenes = append(scenes, models.Scene{
			Type:              models.SceneType(s.Type),
			Title:             s.Title,
			Description:       s.Description,
			Duration:          s.Duration,
			Location:          s.Location,
			Characters:        s.Characters,
			Dialogue:          s.Dialogue,
			ActionDescription: s.ActionDescription,
			VisualElements:    s.VisualElements,
		})
	}
	return scenes, nil
}

// decodeAIScenes 接受 {"scenes": [...]}、裸数组或单个场景对象
func decodeAIScenes(raw json.RawMessage) ([]aiScene, error) {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var scenes []aiScene
		if err := json.Unmarshal(raw, &scenes); err != nil {
			return nil, fmt.Errorf("解析AI场景数组失败: %w", err)
		}
		return scenes, nil
	}

	var wrapped struct {
		Scenes []aiScene `json:"scenes"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("解析AI场景失败: %w", err)
	}
	if wrapped.Scenes != nil {
		return wrapped.Scenes, nil
	}

	var single aiScene
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, fmt.Errorf("解析AI场景失败: %w", err)
	}
	if single.Description == "" && single.Title == "" {
		return []aiScene{}, nil
	}
	return []aiScene{single}, nil
}

const splitSchema = `{
	"scenes": [
		{
			"title": "string",
			"description": "string",
			"type": "dialogue | action | transition | montage | voiceover",
			"duration": 0,
			"location": "string",
			"characters": ["string"],
			"dialogue": "string",
			"action_description": "string",
			"visual_elements": ["string"]
		}
	]
}`

func buildSplitPrompt(req splitter.AISplitRequest) (prompt, systemPrompt string) {
	if isEnglishText(req.StoryText) {
		prompt = fmt.Sprintf(`Split the following story into about %d video scenes in reading order.
Each scene must last at most %.0f seconds. Keep every part of the story in exactly one scene.

Story:
%s`, req.TargetSceneCount, req.MaxSceneDuration, req.StoryText)

		systemPrompt = `You are a professional video storyboard editor. Respond ONLY with valid JSON that matches the following schema:
` + splitSchema + `
Formatting requirements:
1. "duration" is in seconds.
2. Use ASCII double quotes, commas, and colons. Do NOT use Markdown code fences.
3. Provide no commentary outside the JSON object.`
		return prompt, systemPrompt
	}

	prompt = fmt.Sprintf(`다음 이야기를 읽는 순서대로 약 %d개의 영상 씬으로 나누세요.
각 씬은 최대 %.0f초를 넘지 않아야 하며, 이야기의 모든 부분은 정확히 하나의 씬에 포함되어야 합니다.

이야기:
%s`, req.TargetSceneCount, req.MaxSceneDuration, req.StoryText)

	systemPrompt = `당신은 전문 영상 스토리보드 편집자입니다. 다음 구조와 일치하는 JSON만 출력하세요:
` + splitSchema + `
형식 요구사항:
1. "duration"은 초 단위입니다.
2. 반드시 반각 큰따옴표, 쉼표, 콜론을 사용하고 Markdown 코드 블록을 사용하지 마세요.
3. JSON 앞뒤에 설명을 추가하지 마세요.`
	return prompt, systemPrompt
}

// isEnglishText 英文字母占有效字符一半以上时视为英文
func isEnglishText(text string) bool {
	letters, total := 0, 0
	for _, r := range text {
		switch {
		case r <= unicode.MaxASCII && unicode.IsLetter(r):
			letters++
			total++
		case unicode.Is(unicode.Hangul, r), unicode.Is(unicode.Han, r), unicode.IsDigit(r):
			total++
		}
	}
	if total == 0 {
		return false
	}
	return float64(letters)/float64(total) > 0.5
}
