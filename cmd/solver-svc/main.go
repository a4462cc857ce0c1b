// Package main 试卷解答服务入口
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"qp-solver-api/internal/application/solve"
	"qp-solver-api/internal/config"
	"qp-solver-api/internal/infrastructure/gemini"
	"qp-solver-api/internal/infrastructure/storage"
	"qp-solver-api/internal/interfaces/http/handler"
	"qp-solver-api/internal/interfaces/http/router"
	"qp-solver-api/pkg/logger"
	"qp-solver-api/pkg/tracer"

	"github.com/joho/godotenv"
)

// Version 版本信息，构建时注入
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件（如果存在）
	_ = godotenv.Load()

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger.Init(
		cfg.Observability.Logging.Level,
		cfg.Observability.Logging.Format,
	)

	ctx := context.Background()
	log := logger.FromContext(ctx)
	log.Info("starting solver-svc",
		"version", Version,
		"build_time", BuildTime,
		"env", cfg.App.Env,
	)

	// 初始化追踪
	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: cfg.App.Name,
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		log.Error("failed to init tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdown(ctx); err != nil {
			log.Error("failed to shutdown tracer", "error", err)
		}
	}()

	// 初始化暂存目录
	spool, err := storage.NewSpool(cfg.Solver.SpoolDir)
	if err != nil {
		logger.Fatal(ctx, "failed to init spool dir", err)
	}

	// 初始化 Gemini 客户端
	model, err := gemini.NewClient(ctx, cfg.LLM.Gemini)
	if err != nil {
		logger.Fatal(ctx, "failed to init gemini client", err)
	}
	defer func() {
		if err := model.Close(); err != nil {
			log.Warn("failed to close gemini client", "error", err)
		}
	}()

	// 加载解题提示词
	prompt, err := solve.LoadPrompt(cfg.Solver.PromptPath)
	if err != nil {
		logger.Fatal(ctx, "failed to load prompt", err)
	}

	// 组装解题工作流
	workflow := solve.NewWorkflow(cfg.LLM.Gemini.APIKey, model, spool, prompt, solve.Options{
		StreamDefault:    cfg.Solver.StreamDefault,
		DeleteRemoteFile: cfg.Solver.DeleteRemoteFile,
	})

	// 组装处理器与路由
	pageHandler, err := handler.NewPageHandler()
	if err != nil {
		logger.Fatal(ctx, "failed to load index page", err)
	}
	solveHandler := handler.NewSolveHandler(cfg, workflow)
	healthHandler := handler.NewHealthHandler(spool, cfg.LLM.Gemini.APIKey != "")

	r := router.New(cfg, pageHandler, solveHandler, healthHandler)

	// 创建 HTTP 服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.HTTP.Host, cfg.Server.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.HTTP.ReadTimeout,
		WriteTimeout: cfg.Server.HTTP.WriteTimeout,
		IdleTimeout:  cfg.Server.HTTP.IdleTimeout,
	}

	// 启动服务器
	go func() {
		log.Info("http server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// 优雅关闭
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	log.Info("server exited")
}
