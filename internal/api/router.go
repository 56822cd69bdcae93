// internal/api/router.go
package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Corphon/SceneSplitter/internal/config"
	"github.com/Corphon/SceneSplitter/internal/di"
	"github.com/Corphon/SceneSplitter/internal/services"
)

// Router 持有路由及需要在关闭时释放的中间件状态
type Router struct {
	*gin.Engine
	limiter   *RateLimiter
	websocket *WebSocketManager
}

// Close 停止限流清理协程并断开所有 WebSocket 连接
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Stop()
	}
	r.websocket.Shutdown()
}

// WebSocketManager 返回连接管理器
func (r *Router) WebSocketManager() *WebSocketManager {
	return r.websocket
}

// SetupRouter 从容器中获取服务并注册全部路由
func SetupRouter(container *di.Container) (*Router, error) {
	splitService, err := di.Resolve[*services.SplitService](container, di.ServiceSplit)
	if err != nil {
		return nil, fmt.Errorf("获取分割服务失败: %w", err)
	}
	scenarioService, err := di.Resolve[*services.ScenarioService](container, di.ServiceScenario)
	if err != nil {
		return nil, fmt.Errorf("获取剧本服务失败: %w", err)
	}
	llmService, err := di.Resolve[*services.LLMService](container, di.ServiceLLM)
	if err != nil {
		return nil, fmt.Errorf("获取LLM服务失败: %w", err)
	}
	// 未配置词典文件时没有监视器
	watcher, _ := di.Resolve[*services.LexiconWatcher](container, di.ServiceLexiconWatcher)

	cfg := config.GetCurrentConfig()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestIDMiddleware())
	r.Use(loggingMiddleware())
	r.Use(corsMiddleware())

	router := &Router{
		Engine:    r,
		websocket: NewWebSocketManager(),
	}
	if cfg.RateLimitPerMinute > 0 {
		router.limiter = NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
		r.Use(router.limiter.Middleware())
	}

	handler := NewHandler(splitService, scenarioService, llmService, watcher)
	wsHandler := NewWebSocketHandler(splitService, router.websocket)

	r.GET("/health", handler.HealthCheck)
	r.GET("/ws/split", wsHandler.SplitWebSocket)

	api := r.Group("/api")
	{
		// ===============================
		// 分割
		// ===============================
		splitGroup := api.Group("/split")
		{
			splitGroup.POST("", handler.SplitStory)
			splitGroup.POST("/batch", handler.SplitBatch)
			splitGroup.GET("/defaults", handler.GetSplitDefaults)
			splitGroup.PUT("/defaults", handler.UpdateSplitDefaults)
		}
		api.POST("/analyze", handler.AnalyzeText)
		api.GET("/lexicon", handler.GetLexicon)

		// ===============================
		// 剧本
		// ===============================
		scenarios := api.Group("/scenarios")
		{
			scenarios.GET("", handler.ListScenarios)
			scenarios.POST("", handler.CreateScenario)
			scenarios.GET("/:id", handler.GetScenario)
			scenarios.DELETE("/:id", handler.DeleteScenario)
			scenarios.POST("/:id/resplit", handler.ResplitScenario)
		}

		// ===============================
		// LLM配置
		// ===============================
		llmGroup := api.Group("/llm")
		{
			llmGroup.GET("/status", handler.GetLLMStatus)
			llmGroup.GET("/models", handler.GetLLMModels)
			llmGroup.PUT("/config", handler.UpdateLLMConfig)
		}

		api.GET("/metrics", handler.GetMetrics)
		api.GET("/ws/status", func(c *gin.Context) {
			handler.response.Success(c, router.websocket.GetStatus())
		})
	}

	return router, nil
}
