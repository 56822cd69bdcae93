// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Corphon/SceneSplitter/internal/api"
	"github.com/Corphon/SceneSplitter/internal/app"
	"github.com/Corphon/SceneSplitter/internal/config"
	"github.com/Corphon/SceneSplitter/internal/di"
	"github.com/Corphon/SceneSplitter/internal/utils"
)

func main() {
	log.Println("🚀 启动 SceneSplitter 服务器...")

	// 1. 首先加载基础配置
	baseConfig, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	log.Printf("✅ 基础配置加载完成，端口: %s", baseConfig.Port)

	// 2. 创建必要的目录
	if err := createDirectories(baseConfig); err != nil {
		log.Fatalf("创建目录失败: %v", err)
	}

	// 3. 初始化日志
	if err := utils.InitLogger(filepath.Join(baseConfig.LogDir, "server.log"), baseConfig.DebugMode); err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	if !baseConfig.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	// 4. 初始化配置系统
	if err := config.InitConfig(baseConfig.DataDir); err != nil {
		log.Fatalf("初始化配置系统失败: %v", err)
	}
	log.Println("✅ 配置系统初始化完成")

	// 5. 初始化所有服务（按依赖顺序）
	container := di.GetContainer()
	application, err := app.InitServices(container)
	if err != nil {
		log.Fatalf("初始化服务失败: %v", err)
	}
	defer application.Shutdown()

	if err := performHealthCheck(container); err != nil {
		log.Printf("⚠️ 服务健康检查警告: %v", err)
	}

	// 6. 设置路由
	router, err := api.SetupRouter(container)
	if err != nil {
		log.Fatalf("❌ 设置路由失败: %v", err)
	}
	defer router.Close()
	log.Println("✅ 路由设置完成")

	log.Printf("🌐 服务器启动在端口 %s", baseConfig.Port)
	if err := serveUntilSignal(router, baseConfig.Port); err != nil {
		log.Printf("❌ 服务器异常退出: %v", err)
	}
}

// performHealthCheck 检查关键服务是否已注册
func performHealthCheck(container *di.Container) error {
	for _, name := range []string{di.ServiceLLM, di.ServiceSplit, di.ServiceScenario, di.ServiceStorage} {
		if !container.Has(name) {
			return fmt.Errorf("关键服务未注册: %s", name)
		}
	}
	log.Println("✅ 服务健康检查通过")
	return nil
}

// serveUntilSignal 启动服务器，收到 SIGINT/SIGTERM 后优雅关闭
func serveUntilSignal(router *api.Router, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serveErr:
		return err
	case <-quit:
	}
	log.Println("🛑 正在关闭服务器...")

	// WebSocket 连接被劫持，Shutdown 不会等待它们
	router.WebSocketManager().Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("服务器强制关闭: %w", err)
	}
	log.Println("✅ 服务器优雅关闭完成")
	return nil
}

// createDirectories 创建应用所需的目录结构
func createDirectories(cfg *config.Config) error {
	for _, dir := range []string{cfg.DataDir, filepath.Join(cfg.DataDir, "scenarios"), cfg.LogDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%s: %w", dir, err)
		}
	}
	return nil
}
