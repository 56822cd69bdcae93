// internal/app/app.go
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Corphon/SceneSplitter/internal/config"
	"github.com/Corphon/SceneSplitter/internal/di"
	"github.com/Corphon/SceneSplitter/internal/services"
	"github.com/Corphon/SceneSplitter/internal/splitter"
	"github.com/Corphon/SceneSplitter/internal/storage"
	"github.com/Corphon/SceneSplitter/internal/utils"

	// 注册内置的 LLM 提供者
	_ "github.com/Corphon/SceneSplitter/internal/llm/providers/anthropic"
	_ "github.com/Corphon/SceneSplitter/internal/llm/providers/openrouter"
)

// metricsReportInterval 周期性指标日志间隔
const metricsReportInterval = 5 * time.Minute

// App 持有已初始化的服务及其生命周期
type App struct {
	container *di.Container
	config    *config.AppConfig
	logger    *utils.Logger

	stopMetrics context.CancelFunc
	closeOnce   sync.Once
}

// InitServices 按依赖顺序创建并注册所有服务
func InitServices(container *di.Container) (*App, error) {
	if container == nil {
		container = di.GetContainer()
	}
	cfg := config.GetCurrentConfig()
	logger := utils.GetLogger()

	a := &App{
		container: container,
		config:    cfg,
		logger:    logger,
	}

	// 1. 指标
	metrics := utils.NewSplitMetrics(utils.NewMetricsCollector())
	container.Register(di.ServiceMetrics, metrics)

	// 2. LLM 服务（未配置时处于未就绪状态）
	llmService := services.NewLLMService(metrics)
	container.Register(di.ServiceLLM, llmService)
	if ready, state := llmService.GetProviderStatus(); !ready {
		logger.Warn("LLM 服务未就绪，将使用规则分割", map[string]interface{}{"state": state})
	}

	// 3. 分割服务
	var splitOpts []services.SplitServiceOption
	if cfg.LexiconFile != "" {
		lex, err := splitter.LoadLexicon(cfg.LexiconFile)
		if err != nil {
			return nil, fmt.Errorf("加载词典失败: %w", err)
		}
		splitOpts = append(splitOpts, services.WithSplitLexicon(lex))
	}
	splitService := services.NewSplitService(llmService, metrics, splitOpts...)
	container.Register(di.ServiceSplit, splitService)

	// 4. 存储与锁
	store, err := storage.NewFileStorage(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("创建存储失败: %w", err)
	}
	container.Register(di.ServiceStorage, store)

	locks := services.NewLockManager()
	container.Register(di.ServiceLocks, locks)

	// 5. 剧本服务
	container.Register(di.ServiceScenario, services.NewScenarioService(store, splitService, locks))

	// 6. 词典热加载
	if cfg.LexiconFile != "" {
		watcher, err := services.NewLexiconWatcher(cfg.LexiconFile, splitService.SetLexicon)
		if err != nil {
			a.Shutdown()
			return nil, fmt.Errorf("创建词典监视器失败: %w", err)
		}
		if err := watcher.Start(); err != nil {
			a.Shutdown()
			return nil, fmt.Errorf("启动词典监视器失败: %w", err)
		}
		container.Register(di.ServiceLexiconWatcher, watcher)
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.stopMetrics = cancel
	metrics.StartMetricsReport(ctx, metricsReportInterval)

	logger.Info("服务初始化完成", map[string]interface{}{
		"services": container.RegistrationOrder(),
		"ai_ready": splitService.HasAI(),
	})
	return a, nil
}

// Container 返回服务容器
func (a *App) Container() *di.Container {
	return a.container
}

// Config 返回初始化时的配置快照
func (a *App) Config() *config.AppConfig {
	return a.config
}

// IsDebugMode 是否调试模式
func (a *App) IsDebugMode() bool {
	return a.config != nil && a.config.DebugMode
}

// Shutdown 逆序释放持有后台协程或文件句柄的服务
func (a *App) Shutdown() {
	a.closeOnce.Do(func() {
		if a.stopMetrics != nil {
			a.stopMetrics()
		}

		order := a.container.RegistrationOrder()
		for i := len(order) - 1; i >= 0; i-- {
			switch svc := a.container.Get(order[i]).(type) {
			case *services.LexiconWatcher:
				svc.Stop()
			case *services.LockManager:
				svc.Close()
			case *storage.FileStorage:
				svc.Close()
			}
		}

		if err := a.logger.Sync(); err != nil {
			// stdout 在部分平台上不支持 Sync
			a.logger.Debug("日志同步失败", map[string]interface{}{"err": err.Error()})
		}
		a.logger.Info("服务已关闭", nil)
	})
}
