// internal/models/split.go
package models

import "time"

// SplitStrategy 分割策略
type SplitStrategy string

const (
	StrategyNaturalBreaks SplitStrategy = "natural_breaks"
	StrategyDurationBased SplitStrategy = "duration_based"
	StrategyContentBased  SplitStrategy = "content_based"
	StrategyHybrid        SplitStrategy = "hybrid"
	StrategyAIGuided      SplitStrategy = "ai_guided"
)

// Valid 检查策略是否为已知值
func (s SplitStrategy) Valid() bool {
	switch s {
	case StrategyNaturalBreaks, StrategyDurationBased, StrategyContentBased, StrategyHybrid, StrategyAIGuided:
		return true
	}
	return false
}

// SplitMethod 实际产生结果的方式
type SplitMethod string

const (
	SplitMethodAI        SplitMethod = "ai"
	SplitMethodRuleBased SplitMethod = "rule_based"
	SplitMethodHybrid    SplitMethod = "hybrid" // AI 尝试失败后回退到规则
)

// 默认分割参数
const (
	DefaultMinSceneDuration = 10.0
	DefaultMaxSceneDuration = 120.0
	DefaultTargetSceneCount = 5
)

// SceneSplitOptions 调用方提供的分割约束，所有字段均可选
type SceneSplitOptions struct {
	Strategy            SplitStrategy `json:"strategy,omitempty"`
	UseAI               *bool         `json:"use_ai,omitempty"`
	FallbackToRuleBased *bool         `json:"fallback_to_rule_based,omitempty"`
	PreserveDialogue    bool          `json:"preserve_dialogue,omitempty"`
	MinSceneDuration    float64       `json:"min_scene_duration,omitempty"`
	MaxSceneDuration    float64       `json:"max_scene_duration,omitempty"`
	TargetSceneCount    int           `json:"target_scene_count,omitempty"`
	TargetDuration      float64       `json:"target_duration,omitempty"` // 仅用于策略建议
}

// WithDefaults 返回填充了默认值的副本
func (o SceneSplitOptions) WithDefaults() SceneSplitOptions {
	if o.Strategy == "" {
		o.Strategy = StrategyHybrid
	}
	if o.UseAI == nil {
		o.UseAI = Bool(true)
	}
	if o.FallbackToRuleBased == nil {
		o.FallbackToRuleBased = Bool(true)
	}
	if o.MinSceneDuration == 0 {
		o.MinSceneDuration = DefaultMinSceneDuration
	}
	if o.MaxSceneDuration == 0 {
		o.MaxSceneDuration = DefaultMaxSceneDuration
	}
	if o.TargetSceneCount == 0 {
		o.TargetSceneCount = DefaultTargetSceneCount
	}
	return o
}

// AIEnabled 是否尝试 AI 分割
func (o SceneSplitOptions) AIEnabled() bool {
	return o.UseAI == nil || *o.UseAI
}

// FallbackEnabled AI 失败时是否回退到规则分割
func (o SceneSplitOptions) FallbackEnabled() bool {
	return o.FallbackToRuleBased == nil || *o.FallbackToRuleBased
}

// Bool 返回布尔指针
func Bool(v bool) *bool {
	return &v
}

// TextAnalysis 文本统计
type TextAnalysis struct {
	SentenceCount           int     `json:"sentence_count"`
	WordCount               int     `json:"word_count"`
	ParagraphCount          int     `json:"paragraph_count"`
	AverageWordsPerSentence float64 `json:"average_words_per_sentence"`
	ComplexityScore         float64 `json:"complexity_score"`
	RecommendedSceneCount   int     `json:"recommended_scene_count"`
}

// RebalanceStats 重平衡各阶段的统计
type RebalanceStats struct {
	ShortMerges  int `json:"short_merges"`
	LongSplits   int `json:"long_splits"`
	ExcessMerges int `json:"excess_merges"`
}

// SplitMetadata 分割结果元数据
type SplitMetadata struct {
	OriginalText      string         `json:"original_text"`
	TargetSceneCount  int            `json:"target_scene_count"`
	ActualSceneCount  int            `json:"actual_scene_count"`
	AverageDuration   float64        `json:"average_duration"`
	TotalDuration     float64        `json:"total_duration"`
	SplitMethod       SplitMethod    `json:"split_method"`
	SuggestedStrategy SplitStrategy  `json:"suggested_strategy,omitempty"`
	Analysis          *TextAnalysis  `json:"analysis,omitempty"`
	Stats             RebalanceStats `json:"stats"`
}

// SceneSplitResult 分割结果
type SceneSplitResult struct {
	Success       bool          `json:"success"`
	Scenes        []Scene       `json:"scenes"`
	SplitStrategy SplitStrategy `json:"split_strategy"`
	Metadata      SplitMetadata `json:"metadata"`
	Warnings      []string      `json:"warnings"`
	Error         string        `json:"error,omitempty"`

	// Err 保留原始错误，便于 errors.As 判断类型
	Err error `json:"-"`
}

// Scenario 由外部实体层拥有的剧本聚合
type Scenario struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	Scenes        []Scene       `json:"scenes"`
	SourceText    string        `json:"source_text,omitempty"`
	SplitStrategy SplitStrategy `json:"split_strategy,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// ScenarioMetadata 用于列表展示
type ScenarioMetadata struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	SceneCount int       `json:"scene_count"`
	UpdatedAt  time.Time `json:"updated_at"`
}
