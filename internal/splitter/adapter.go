// internal/splitter/adapter.go
package splitter

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Corphon/SceneSplitter/internal/models"
)

// AISplitRequest is what an AI backend receives.
type AISplitRequest struct {
	StoryText        string  `json:"story_text"`
	TargetSceneCount int     `json:"target_scene_count"`
	MaxSceneDuration float64 `json:"max_scene_duration"`
}

// AISplitter proposes scenes for a story. Returned scenes need no id or order;
// the engine assigns both.
type AISplitter interface {
	SplitScenes(ctx context.Context, req AISplitRequest) ([]models.Scene, error)
}

// AISplitterFunc adapts a function to AISplitter.
type AISplitterFunc func(ctx context.Context, req AISplitRequest) ([]models.Scene, error)

// SplitScenes calls f.
func (f AISplitterFunc) SplitScenes(ctx context.Context, req AISplitRequest) ([]models.Scene, error) {
	return f(ctx, req)
}

// ErrEmptyAIResult is returned when the AI backend answers without usable scenes.
var ErrEmptyAIResult = errors.New("AI returned no usable scenes")

const (
	aiTitleTemplate = "Scene %d"
	noteAISegmented = "AI 분할된 씬"

	// maxAIDurationFactor caps an AI duration at this multiple of max; anything
	// beyond it is re-estimated from the text.
	maxAIDurationFactor = 1000
)

// normalizeAIScenes fills in what an AI backend is allowed to omit: ids,
// order, unknown types, titles and durations. Scenes with neither a
// description nor a title are dropped.
func (e *Engine) normalizeAIScenes(raw []models.Scene, opts models.SceneSplitOptions) ([]models.Scene, error) {
	scenes := make([]models.Scene, 0, len(raw))
	for _, s := range raw {
		s = s.Clone()
		s.Description = strings.TrimSpace(normalizeText(s.Description))
		s.Title = strings.TrimSpace(normalizeText(s.Title))
		if s.Description == "" {
			s.Description = s.Title
		}
		if s.Description == "" {
			continue
		}

		order := len(scenes) + 1
		s.ID = e.ids.NewID()
		s.Order = order
		if !s.Type.Valid() {
			if t, ok := models.ParseSceneType(string(s.Type)); ok {
				s.Type = t
			} else {
				s.Type = e.lexicon.InferType(s.Description)
			}
		}
		if s.Title == "" {
			s.Title = fmt.Sprintf(aiTitleTemplate, order)
		}
		if !usableAIDuration(s.Duration, opts.MaxSceneDuration) {
			s.Duration = EstimateDuration(s.Description, opts.MinSceneDuration, opts.MaxSceneDuration)
		}
		if s.Characters == nil {
			s.Characters = []string{}
		}
		if s.VisualElements == nil {
			s.VisualElements = []string{}
		}
		s.Notes = appendNote(s.Notes, noteAISegmented)
		scenes = append(scenes, s)
	}

	if len(scenes) == 0 {
		return nil, ErrEmptyAIResult
	}
	return scenes, nil
}

// usableAIDuration rejects missing, non-finite and absurdly large durations.
func usableAIDuration(d, max float64) bool {
	if math.IsNaN(d) || math.IsInf(d, 0) || d <= 0 {
		return false
	}
	return max <= 0 || d <= max*maxAIDurationFactor
}
