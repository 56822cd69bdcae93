// internal/splitter/materializer.go
package splitter

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Corphon/SceneSplitter/internal/models"
)

const (
	secondsPerWord        = 2.0
	defaultSceneDuration  = 60.0
	maxTitleRunes         = 50
	maxSpeakerNameRunes   = 20
	noteAutoSegmented     = "자동 분할된 씬"
	noteUnsegmented       = "분할되지 않은 씬"
	fallbackTitleTemplate = "씬 %d"
)

var (
	speakerLine   = regexp.MustCompile(`^([^:：]+)[:：]\s*(.+)$`)
	parenthetical = regexp.MustCompile(`^\(([^()]{2,60})\)$`)
)

// Materializer turns paragraph segments into scenes.
type Materializer struct {
	lex         Lexicon
	ids         IDGenerator
	minDuration float64
	maxDuration float64
}

// NewMaterializer creates a materializer clamping durations to [min, max].
func NewMaterializer(lex Lexicon, ids IDGenerator, min, max float64) *Materializer {
	if ids == nil {
		ids = NewUUIDGenerator()
	}
	return &Materializer{lex: lex, ids: ids, minDuration: min, maxDuration: max}
}

// EstimateDuration applies the 2 seconds/word heuristic clamped to [min, max].
func EstimateDuration(text string, min, max float64) float64 {
	d := float64(countWords(text)) * secondsPerWord
	if d < min {
		d = min
	}
	if d > max {
		d = max
	}
	return d
}

// MaterializeAll materializes every segment, numbering from 1.
func (m *Materializer) MaterializeAll(segments [][]string) []models.Scene {
	scenes := make([]models.Scene, 0, len(segments))
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		scenes = append(scenes, m.Materialize(seg, len(scenes)+1))
	}
	return scenes
}

// Materialize builds one scene from a run of paragraphs.
func (m *Materializer) Materialize(paragraphs []string, order int) models.Scene {
	text := strings.Join(paragraphs, "\n\n")

	scene := models.Scene{
		ID:             m.ids.NewID(),
		Order:          order,
		Type:           m.lex.InferType(text),
		Title:          sceneTitle(text, order),
		Description:    text,
		Duration:       EstimateDuration(text, m.minDuration, m.maxDuration),
		Characters:     []string{},
		VisualElements: []string{},
		Notes:          noteAutoSegmented,
	}

	var dialogue []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		if scene.Location == "" {
			if loc, ok := m.locationOf(line, lower); ok {
				scene.Location = loc
				continue
			}
		}
		// a standalone "(...)" line is a stage direction
		if match := parenthetical.FindStringSubmatch(line); match != nil {
			scene.VisualElements = unionStrings(scene.VisualElements, []string{strings.TrimSpace(match[1])})
			continue
		}
		if name, ok := m.speakerOf(line, lower); ok {
			scene.Characters = unionStrings(scene.Characters, []string{name})
			dialogue = append(dialogue, line)
			continue
		}
		if strings.ContainsAny(line, "“「") {
			dialogue = append(dialogue, line)
		}
	}
	scene.Dialogue = strings.Join(dialogue, "\n")

	if scene.Type == models.SceneTypeAction {
		for _, p := range paragraphs {
			if m.lex.IsAction(p) {
				scene.ActionDescription = p
				break
			}
		}
	}

	return scene
}

// DefaultScene covers the whole input when segmentation yields nothing.
func (m *Materializer) DefaultScene(text string) models.Scene {
	text = strings.TrimSpace(text)
	title := sceneTitle(text, 1)
	return models.Scene{
		ID:             m.ids.NewID(),
		Order:          1,
		Type:           models.SceneTypeVoiceover,
		Title:          title,
		Description:    text,
		Duration:       defaultSceneDuration,
		Characters:     []string{m.lex.NarratorName},
		VisualElements: []string{},
		Notes:          noteUnsegmented,
	}
}

func sceneTitle(text string, order int) string {
	lead := firstSentence(text)
	if lead != "" && utf8.RuneCountInString(lead) < maxTitleRunes {
		return lead
	}
	return fmt.Sprintf(fallbackTitleTemplate, order)
}

func (m *Materializer) locationOf(line, lower string) (string, bool) {
	for _, marker := range m.lex.LocationMarkers {
		if strings.HasPrefix(lower, marker) {
			loc := strings.Trim(strings.TrimSpace(line[len(marker):]), "-:： ")
			if loc == "" {
				return "", false
			}
			return loc, true
		}
	}
	return "", false
}

func (m *Materializer) speakerOf(line, lower string) (string, bool) {
	match := speakerLine.FindStringSubmatch(line)
	if match == nil {
		return "", false
	}
	name := strings.TrimSpace(match[1])
	// "KIM (V.O.)" style extensions belong to the speaker cue, not the name
	if i := strings.IndexByte(name, '('); i > 0 {
		name = strings.TrimSpace(name[:i])
	}
	if name == "" || utf8.RuneCountInString(name) > maxSpeakerNameRunes {
		return "", false
	}
	for _, marker := range m.lex.LocationMarkers {
		if strings.HasPrefix(lower, marker) {
			return "", false
		}
	}
	return name, true
}
