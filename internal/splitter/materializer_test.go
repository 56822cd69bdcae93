package splitter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Corphon/SceneSplitter/internal/models"
)

func newTestMaterializer() *Materializer {
	return NewMaterializer(DefaultLexicon().normalized(), NewCounterGenerator("scene"), 10, 120)
}

// TestMaterializeScreenplaySegment 测试从剧本格式提取地点、角色、对白
func TestMaterializeScreenplaySegment(t *testing.T) {
	m := newTestMaterializer()

	scene := m.Materialize([]string{
		"INT. CAFE - DAY",
		"MINJI: 안녕하세요.\nJUNHO (V.O.): 반가워요.",
		"(비가 내린다)",
	}, 1)

	assert.Equal(t, "scene_1", scene.ID)
	assert.Equal(t, 1, scene.Order)
	assert.Equal(t, models.SceneTypeDialogue, scene.Type)
	assert.Equal(t, "CAFE - DAY", scene.Location)
	assert.Equal(t, []string{"MINJI", "JUNHO"}, scene.Characters)
	assert.Equal(t, "MINJI: 안녕하세요.\nJUNHO (V.O.): 반가워요.", scene.Dialogue)
	assert.Equal(t, []string{"비가 내린다"}, scene.VisualElements)
	assert.Equal(t, 22.0, scene.Duration)
	assert.Equal(t, noteAutoSegmented, scene.Notes)
}

// TestMaterializeTitle 测试标题取首句或回退为编号
func TestMaterializeTitle(t *testing.T) {
	m := newTestMaterializer()

	short := m.Materialize([]string{"그가 문을 연다. 밖은 어둡다."}, 3)
	assert.Equal(t, "그가 문을 연다", short.Title)

	long := m.Materialize([]string{strings.Repeat("아주 긴 문장 ", 10) + "끝."}, 3)
	assert.Equal(t, "씬 3", long.Title)
}

// TestMaterializeTypePrecedence 测试类型推断优先级
func TestMaterializeTypePrecedence(t *testing.T) {
	m := newTestMaterializer()

	tests := []struct {
		name string
		text string
		want models.SceneType
	}{
		{"dialogue beats action", "KIM: Run!", models.SceneTypeDialogue},
		{"action", "He starts to run.", models.SceneTypeAction},
		{"action beats transition", "Meanwhile they fight.", models.SceneTypeAction},
		{"transition", "Meanwhile at the docks.", models.SceneTypeTransition},
		{"korean action", "그는 골목으로 달려 나갔다.", models.SceneTypeAction},
		{"default", "A quiet afternoon.", models.SceneTypeDialogue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Materialize([]string{tt.text}, 1).Type)
		})
	}
}

// TestMaterializeActionDescription 测试动作场景记录动作段落
func TestMaterializeActionDescription(t *testing.T) {
	m := newTestMaterializer()

	scene := m.Materialize([]string{"A quiet street.", "A thief starts to run."}, 1)
	require.Equal(t, models.SceneTypeAction, scene.Type)
	assert.Equal(t, "A thief starts to run.", scene.ActionDescription)
}

// TestEstimateDuration 测试时长估算与钳制
func TestEstimateDuration(t *testing.T) {
	assert.Equal(t, 10.0, EstimateDuration("one", 10, 120))
	assert.Equal(t, 40.0, EstimateDuration(strings.Repeat("w ", 20), 10, 120))
	assert.Equal(t, 120.0, EstimateDuration(strings.Repeat("w ", 100), 10, 120))
}

// TestDefaultScene 测试默认场景
func TestDefaultScene(t *testing.T) {
	m := newTestMaterializer()

	scene := m.DefaultScene("")
	assert.Equal(t, models.SceneTypeVoiceover, scene.Type)
	assert.Equal(t, 60.0, scene.Duration)
	assert.Equal(t, []string{"나레이터"}, scene.Characters)
	assert.Equal(t, noteUnsegmented, scene.Notes)
	assert.Equal(t, "씬 1", scene.Title)
	assert.Equal(t, 1, scene.Order)
}

// TestMaterializeAllSkipsEmptySegments 测试空片段被跳过且编号连续
func TestMaterializeAllSkipsEmptySegments(t *testing.T) {
	m := newTestMaterializer()

	scenes := m.MaterializeAll([][]string{{"a"}, {}, {"b"}})
	require.Len(t, scenes, 2)
	assert.Equal(t, 1, scenes[0].Order)
	assert.Equal(t, 2, scenes[1].Order)
}
