// internal/api/handlers.go
package api

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Corphon/SceneSplitter/internal/config"
	apperrors "github.com/Corphon/SceneSplitter/internal/errors"
	"github.com/Corphon/SceneSplitter/internal/llm"
	"github.com/Corphon/SceneSplitter/internal/models"
	"github.com/Corphon/SceneSplitter/internal/services"
)

// Handler 处理API请求
type Handler struct {
	split     *services.SplitService
	scenarios *services.ScenarioService
	llm       *services.LLMService
	watcher   *services.LexiconWatcher
	response  *ResponseHelper
}

// NewHandler 创建API处理器，watcher 可以为 nil
func NewHandler(split *services.SplitService, scenarios *services.ScenarioService, llmService *services.LLMService, watcher *services.LexiconWatcher) *Handler {
	return &Handler{
		split:     split,
		scenarios: scenarios,
		llm:       llmService,
		watcher:   watcher,
		response:  NewResponseHelper(),
	}
}

// SplitRequest 分割请求
type SplitRequest struct {
	Text    string                   `json:"text"`
	Options models.SceneSplitOptions `json:"options"`
}

// BatchSplitRequest 批量分割请求
type BatchSplitRequest struct {
	Texts   []string                 `json:"texts" binding:"required"`
	Options models.SceneSplitOptions `json:"options"`
}

// BatchSplitResponse 批量分割结果
type BatchSplitResponse struct {
	Results   []*models.SceneSplitResult `json:"results"`
	Succeeded int                        `json:"succeeded"`
	Failed    int                        `json:"failed"`
}

// AnalyzeRequest 文本分析请求
type AnalyzeRequest struct {
	Text           string  `json:"text"`
	TargetDuration float64 `json:"target_duration"`
}

// CreateScenarioRequest 从文本创建剧本
type CreateScenarioRequest struct {
	Title   string                   `json:"title"`
	Text    string                   `json:"text"`
	Options models.SceneSplitOptions `json:"options"`
}

// ResplitRequest 重新分割请求
type ResplitRequest struct {
	TargetSceneCount int                      `json:"target_scene_count" binding:"required"`
	Options          models.SceneSplitOptions `json:"options"`
}

// UpdateLLMConfigRequest 更新LLM配置
type UpdateLLMConfigRequest struct {
	Provider string            `json:"provider" binding:"required"`
	Config   map[string]string `json:"config"`
}

// splitFailure 分割失败时的错误响应
func (h *Handler) splitFailure(c *gin.Context, result *models.SceneSplitResult) {
	err := result.Err
	if err == nil {
		err = apperrors.NewPipelineError(result.Error, nil)
	}
	h.response.FromError(c, err, "场景分割失败")
}

// HealthCheck 健康检查
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"ai_ready": h.split.HasAI(),
		"time":     time.Now().Format(time.RFC3339),
	})
}

// SplitStory 分割故事文本
func (h *Handler) SplitStory(c *gin.Context) {
	var req SplitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.response.BadRequest(c, "无效的请求参数", err.Error())
		return
	}

	result := h.split.SplitStory(c.Request.Context(), req.Text, req.Options)
	if !result.Success {
		h.splitFailure(c, result)
		return
	}
	h.response.WithWarnings(c, http.StatusOK, result, result.Warnings)
}

// SplitBatch 批量分割
func (h *Handler) SplitBatch(c *gin.Context) {
	var req BatchSplitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.response.BadRequest(c, "无效的请求参数", err.Error())
		return
	}
	if len(req.Texts) > services.MaxBatchSize {
		h.response.Error(c, http.StatusRequestEntityTooLarge, ErrorBatchTooLarge, "批量分割的文本过多")
		return
	}

	results, err := h.split.SplitBatch(c.Request.Context(), req.Texts, req.Options)
	if err != nil {
		h.response.FromError(c, err, "批量分割失败")
		return
	}

	resp := BatchSplitResponse{Results: results}
	for _, r := range results {
		if r.Success {
			resp.Succeeded++
		} else {
			resp.Failed++
		}
	}
	h.response.Success(c, resp)
}

// AnalyzeText 文本统计与策略建议
func (h *Handler) AnalyzeText(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.response.BadRequest(c, "无效的请求参数", err.Error())
		return
	}
	h.response.Success(c, h.split.Analyze(req.Text, req.TargetDuration))
}

// GetSplitDefaults 获取默认分割参数
func (h *Handler) GetSplitDefaults(c *gin.Context) {
	h.response.Success(c, config.GetCurrentConfig().Split)
}

// UpdateSplitDefaults 更新默认分割参数
func (h *Handler) UpdateSplitDefaults(c *gin.Context) {
	defaults := config.GetCurrentConfig().Split
	if err := c.ShouldBindJSON(&defaults); err != nil {
		h.response.BadRequest(c, "无效的请求参数", err.Error())
		return
	}
	if err := config.UpdateSplitDefaults(defaults); err != nil {
		h.response.Error(c, http.StatusBadRequest, ErrorInvalidSplitOptions, "默认分割参数无效", err.Error())
		return
	}
	h.response.Success(c, defaults, "默认分割参数已更新")
}

// ListScenarios 剧本列表
func (h *Handler) ListScenarios(c *gin.Context) {
	list, err := h.scenarios.ListScenarios()
	if err != nil {
		h.response.FromError(c, err, "获取剧本列表失败")
		return
	}
	h.response.Success(c, list)
}

// CreateScenario 分割文本并保存为剧本
func (h *Handler) CreateScenario(c *gin.Context) {
	var req CreateScenarioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.response.BadRequest(c, "无效的请求参数", err.Error())
		return
	}

	scenario, result, err := h.scenarios.CreateFromText(c.Request.Context(), req.Title, req.Text, req.Options)
	if err != nil {
		h.response.FromError(c, err, "创建剧本失败")
		return
	}
	c.JSON(http.StatusCreated, &APIResponse{
		Success:   true,
		Data:      scenario,
		Message:   "剧本创建成功",
		Warnings:  result.Warnings,
		Timestamp: time.Now(),
		RequestID: c.GetString(requestIDKey),
	})
}

// GetScenario 获取剧本
func (h *Handler) GetScenario(c *gin.Context) {
	scenario, err := h.scenarios.GetScenario(c.Param("id"))
	if err != nil {
		h.response.FromError(c, err, "获取剧本失败")
		return
	}
	h.response.Success(c, scenario)
}

// DeleteScenario 删除剧本
func (h *Handler) DeleteScenario(c *gin.Context) {
	if err := h.scenarios.DeleteScenario(c.Param("id")); err != nil {
		h.response.FromError(c, err, "删除剧本失败")
		return
	}
	h.response.Success(c, nil, "剧本已删除")
}

// ResplitScenario 按新的目标数量重新分割剧本
func (h *Handler) ResplitScenario(c *gin.Context) {
	var req ResplitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.response.BadRequest(c, "无效的请求参数", err.Error())
		return
	}

	scenario, result, err := h.scenarios.ResplitScenario(c.Request.Context(), c.Param("id"), req.TargetSceneCount, req.Options)
	if err != nil {
		h.response.FromError(c, err, "重新分割失败")
		return
	}
	h.response.WithWarnings(c, http.StatusOK, scenario, result.Warnings)
}

// GetLexicon 当前生效的关键词词典
func (h *Handler) GetLexicon(c *gin.Context) {
	data := gin.H{
		"lexicon": h.split.Lexicon(),
		"file":    config.GetCurrentConfig().LexiconFile,
	}
	if h.watcher != nil {
		data["reloads"] = h.watcher.Reloads()
	}
	h.response.Success(c, data)
}

// GetLLMStatus LLM 服务状态
func (h *Handler) GetLLMStatus(c *gin.Context) {
	ready, state := h.llm.GetProviderStatus()
	h.response.Success(c, gin.H{
		"ready":         ready,
		"state":         state,
		"provider":      h.llm.GetProviderName(),
		"default_model": h.llm.GetDefaultModel(),
		"providers":     llm.ListProviders(),
		"ai_splitter":   h.split.HasAI(),
	})
}

// GetLLMModels 指定提供者支持的模型
func (h *Handler) GetLLMModels(c *gin.Context) {
	provider := c.Query("provider")
	if provider == "" {
		provider = h.llm.GetProviderName()
	}
	if provider == "" {
		h.response.BadRequest(c, "缺少 provider 参数")
		return
	}

	if !slices.Contains(llm.ListProviders(), provider) {
		h.response.NotFound(c, "未知的AI提供者")
		return
	}
	h.response.Success(c, gin.H{
		"provider": provider,
		"models":   llm.GetSupportedModelsForProvider(provider),
	})
}

// UpdateLLMConfig 切换 LLM 提供者
func (h *Handler) UpdateLLMConfig(c *gin.Context) {
	var req UpdateLLMConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.response.BadRequest(c, "无效的请求参数", err.Error())
		return
	}

	if err := h.split.UpdateLLMProvider(req.Provider, req.Config); err != nil {
		h.response.Error(c, http.StatusBadRequest, ErrorLLMConfigInvalid, "LLM 配置无效", err.Error())
		return
	}

	ready, state := h.llm.GetProviderStatus()
	h.response.Success(c, gin.H{
		"provider": req.Provider,
		"ready":    ready,
		"state":    state,
	}, "LLM 配置已更新")
}

// GetMetrics 分割与 LLM 指标
func (h *Handler) GetMetrics(c *gin.Context) {
	h.response.Success(c, h.split.GetMetrics())
}
