// internal/services/split_service.go
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Corphon/SceneSplitter/internal/config"
	apperrors "github.com/Corphon/SceneSplitter/internal/errors"
	"github.com/Corphon/SceneSplitter/internal/models"
	"github.com/Corphon/SceneSplitter/internal/splitter"
	"github.com/Corphon/SceneSplitter/internal/utils"
)

// MaxBatchSize 单次批量分割的最大文本数
const MaxBatchSize = 50

// SplitService 持有分割引擎，负责默认参数、超时、指标和批量分割
type SplitService struct {
	mu      sync.RWMutex
	engine  *splitter.Engine
	lexicon splitter.Lexicon

	llm        *LLMService
	aiOverride splitter.AISplitter
	ids        splitter.IDGenerator

	metrics *utils.SplitMetrics
	logger  *utils.Logger
}

// SplitServiceOption 分割服务选项
type SplitServiceOption func(*SplitService)

// WithSplitLexicon 使用指定词典
func WithSplitLexicon(lex splitter.Lexicon) SplitServiceOption {
	return func(s *SplitService) {
		s.lexicon = lex
	}
}

// WithSplitAISplitter 使用指定的 AI 分割器代替 LLM 服务
func WithSplitAISplitter(ai splitter.AISplitter) SplitServiceOption {
	return func(s *SplitService) {
		s.aiOverride = ai
	}
}

// WithSplitIDGenerator 使用指定的场景 ID 生成器
func WithSplitIDGenerator(ids splitter.IDGenerator) SplitServiceOption {
	return func(s *SplitService) {
		s.ids = ids
	}
}

// AnalyzeResult 文本分析结果
type AnalyzeResult struct {
	Analysis          models.TextAnalysis  `json:"analysis"`
	SuggestedStrategy models.SplitStrategy `json:"suggested_strategy"`
}

// NewSplitService 创建分割服务
func NewSplitService(llmService *LLMService, metrics *utils.SplitMetrics, opts ...SplitServiceOption) *SplitService {
	s := &SplitService{
		lexicon: splitter.DefaultLexicon(),
		llm:     llmService,
		ids:     splitter.NewUUIDGenerator(),
		metrics: metrics,
		logger:  utils.GetLogger(),
	}
	if s.metrics == nil {
		s.metrics = utils.NewSplitMetrics(nil)
	}
	for _, opt := range opts {
		opt(s)
	}
	s.rebuildEngine()
	return s
}

// rebuildEngine 词典或 LLM 配置变化后重建引擎
func (s *SplitService) rebuildEngine() {
	s.mu.Lock()
	defer s.mu.Unlock()

	opts := []splitter.Option{
		splitter.WithLexicon(s.lexicon),
		splitter.WithIDGenerator(s.ids),
	}
	switch {
	case s.aiOverride != nil:
		opts = append(opts, splitter.WithAISplitter(s.aiOverride))
	case s.llm != nil && s.llm.IsReady():
		opts = append(opts, splitter.WithAISplitter(NewLLMSceneSplitter(s.llm)))
	}
	s.engine = splitter.NewEngine(opts...)
}

// Engine 当前使用的引擎
func (s *SplitService) Engine() *splitter.Engine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// Lexicon 当前词典（已规范化）
func (s *SplitService) Lexicon() splitter.Lexicon {
	return s.Engine().Lexicon()
}

// SetLexicon 替换词典并重建引擎
func (s *SplitService) SetLexicon(lex splitter.Lexicon) {
	s.mu.Lock()
	s.lexicon = lex
	s.mu.Unlock()

	s.rebuildEngine()
	s.logger.Info("分割词典已更新", map[string]interface{}{
		"transition_words": len(lex.TransitionWords),
		"dialogue_markers": len(lex.DialogueMarkers),
	})
}

// UpdateLLMProvider 切换 LLM 提供者，保存配置并重建引擎
func (s *SplitService) UpdateLLMProvider(provider string, llmConfig map[string]string) error {
	if s.llm == nil {
		return apperrors.NewProcessingError("LLM服务未初始化", nil)
	}
	if err := s.llm.UpdateProvider(provider, llmConfig); err != nil {
		s.rebuildEngine()
		return apperrors.NewValidationError("LLM提供者配置失败", err)
	}
	if err := config.UpdateLLMConfig(provider, llmConfig); err != nil {
		s.logger.Warn("保存LLM配置失败", map[string]interface{}{"err": err.Error()})
	}
	s.rebuildEngine()
	return nil
}

// HasAI 引擎是否配置了 AI 分割器
func (s *SplitService) HasAI() bool {
	return s.Engine().HasAISplitter()
}

// ResolveOptions 用服务端默认参数补齐请求选项
func (s *SplitService) ResolveOptions(opts models.SceneSplitOptions) models.SceneSplitOptions {
	return config.GetCurrentConfig().Split.Apply(opts)
}

// SplitStory 分割故事文本
func (s *SplitService) SplitStory(ctx context.Context, text string, opts models.SceneSplitOptions) *models.SceneSplitResult {
	return s.SplitStoryWithProgress(ctx, text, opts, nil)
}

// SplitStoryWithProgress 分割故事文本并回报进度
func (s *SplitService) SplitStoryWithProgress(ctx context.Context, text string, opts models.SceneSplitOptions, progress splitter.ProgressFunc) *models.SceneSplitResult {
	opts = s.ResolveOptions(opts)
	ctx, cancel := s.withAITimeout(ctx, opts)
	defer cancel()

	start := time.Now()
	result := s.Engine().SplitStoryWithProgress(ctx, text, opts, progress)
	s.record(result, time.Since(start))
	return result
}

// Resplit 按新的目标数量重新分割剧本，失败时结果中保留原场景
func (s *SplitService) Resplit(ctx context.Context, scenario *models.Scenario, newTargetCount int, opts models.SceneSplitOptions) *models.SceneSplitResult {
	opts = s.ResolveOptions(opts)
	ctx, cancel := s.withAITimeout(ctx, opts)
	defer cancel()

	start := time.Now()
	result := s.Engine().ResplitScenario(ctx, scenario, newTargetCount, opts)
	s.record(result, time.Since(start))
	return result
}

// Analyze 文本统计与策略建议
func (s *SplitService) Analyze(text string, targetDuration float64) AnalyzeResult {
	analysis := splitter.Analyze(text)
	return AnalyzeResult{
		Analysis:          analysis,
		SuggestedStrategy: splitter.SuggestStrategy(analysis, targetDuration),
	}
}

// SplitBatch 并发分割多段文本，结果顺序与输入一致
func (s *SplitService) SplitBatch(ctx context.Context, texts []string, opts models.SceneSplitOptions) ([]*models.SceneSplitResult, error) {
	if len(texts) == 0 {
		return nil, apperrors.NewValidationError("批量分割需要至少一段文本", nil)
	}
	if len(texts) > MaxBatchSize {
		return nil, apperrors.NewValidationError(fmt.Sprintf("批量分割最多支持 %d 段文本", MaxBatchSize), nil)
	}

	concurrency := config.GetCurrentConfig().Split.BatchConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	results := make([]*models.SceneSplitResult, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, text := range texts {
		i, text := i, text
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.SplitStory(gctx, text, opts)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, apperrors.WrapError(err, "批量分割被取消", apperrors.ErrorTypeTimeout)
	}
	return results, nil
}

// GetMetrics 返回分割指标快照
func (s *SplitService) GetMetrics() map[string]interface{} {
	return s.metrics.Collector().GetMetrics()
}

func (s *SplitService) withAITimeout(ctx context.Context, opts models.SceneSplitOptions) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	seconds := config.GetCurrentConfig().Split.AITimeoutSeconds
	if !opts.AIEnabled() || seconds <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(seconds)*time.Second)
}

func (s *SplitService) record(result *models.SceneSplitResult, elapsed time.Duration) {
	method := string(result.Metadata.SplitMethod)
	s.metrics.RecordSplit(string(result.SplitStrategy), method, result.Success, len(result.Scenes), elapsed)
	if result.Metadata.SplitMethod == models.SplitMethodHybrid {
		s.metrics.RecordAIFallback()
	}

	if !result.Success {
		s.logger.Warn("场景分割失败", map[string]interface{}{
			"strategy": string(result.SplitStrategy),
			"code":     apperrors.CodeOf(result.Err),
			"err":      result.Error,
		})
		return
	}
	s.logger.Info("场景分割完成", map[string]interface{}{
		"strategy":    string(result.SplitStrategy),
		"method":      method,
		"scenes":      len(result.Scenes),
		"warnings":    len(result.Warnings),
		"duration_ms": elapsed.Milliseconds(),
	})
}
