// internal/models/scene.go
package models

import "strings"

// SceneType 场景类型
type SceneType string

const (
	SceneTypeDialogue   SceneType = "dialogue"
	SceneTypeAction     SceneType = "action"
	SceneTypeTransition SceneType = "transition"
	SceneTypeMontage    SceneType = "montage"
	SceneTypeVoiceover  SceneType = "voiceover"
)

// Valid 检查场景类型是否为已知值
func (t SceneType) Valid() bool {
	switch t {
	case SceneTypeDialogue, SceneTypeAction, SceneTypeTransition, SceneTypeMontage, SceneTypeVoiceover:
		return true
	}
	return false
}

// ParseSceneType 解析场景类型，未知值返回 false
func ParseSceneType(s string) (SceneType, bool) {
	t := SceneType(strings.ToLower(strings.TrimSpace(s)))
	return t, t.Valid()
}

// Scene 表示一个分割后的视频场景
type Scene struct {
	ID                string    `json:"id"`
	Order             int       `json:"order"`
	Type              SceneType `json:"type"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	Duration          float64   `json:"duration"` // 秒
	Location          string    `json:"location,omitempty"`
	Characters        []string  `json:"characters"`
	Dialogue          string    `json:"dialogue,omitempty"`
	ActionDescription string    `json:"action_description,omitempty"`
	Notes             string    `json:"notes,omitempty"` // 来源说明：自动分割、合并、拆分
	VisualElements    []string  `json:"visual_elements"`
}

// Clone 返回场景的深拷贝
func (s Scene) Clone() Scene {
	c := s
	if s.Characters != nil {
		c.Characters = append([]string(nil), s.Characters...)
	}
	if s.VisualElements != nil {
		c.VisualElements = append([]string(nil), s.VisualElements...)
	}
	return c
}
