// Package router 提供 HTTP 路由配置
package router

import (
	"qp-solver-api/internal/config"
	"qp-solver-api/internal/interfaces/http/handler"
	"qp-solver-api/internal/interfaces/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router HTTP 路由器
type Router struct {
	engine *gin.Engine
	cfg    *config.Config

	page   *handler.PageHandler
	solve  *handler.SolveHandler
	health *handler.HealthHandler
}

// New 创建新的路由器
func New(cfg *config.Config, page *handler.PageHandler, solve *handler.SolveHandler, health *handler.HealthHandler) *Router {
	// 设置 Gin 模式
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.MaxMultipartMemory = cfg.Solver.MaxUploadBytes

	r := &Router{
		engine: engine,
		cfg:    cfg,
		page:   page,
		solve:  solve,
		health: health,
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// setupMiddleware 配置中间件
func (r *Router) setupMiddleware() {
	// 基础中间件
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())

	// CORS 中间件
	r.engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: r.cfg.Security.CORS.AllowedOrigins,
		AllowedMethods: r.cfg.Security.CORS.AllowedMethods,
		AllowedHeaders: r.cfg.Security.CORS.AllowedHeaders,
	}))

	// 追踪中间件
	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name))
		r.engine.Use(middleware.TraceContext())
	}

	// 指标中间件
	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics())
	}
}

// setupRoutes 配置路由
func (r *Router) setupRoutes() {
	// 上传页面
	r.engine.GET("/", r.page.Index)

	// 系统端点
	r.engine.GET("/health", r.health.Health)
	r.engine.GET("/ready", r.health.Ready)
	r.engine.GET("/live", r.health.Live)

	// Prometheus 指标端点
	if r.cfg.Observability.Metrics.Enabled {
		r.engine.GET(r.cfg.Observability.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	// API v1 路由组
	v1 := r.engine.Group("/v1")
	{
		// 解题接口：限流 + 单提交串行
		v1.POST("/solve",
			middleware.RateLimit(middleware.RateLimitConfig{
				Enabled:           r.cfg.Security.RateLimit.Enabled,
				RequestsPerSecond: r.cfg.Security.RateLimit.RequestsPerSecond,
				Burst:             r.cfg.Security.RateLimit.Burst,
			}),
			middleware.SingleFlight(),
			r.solve.Solve,
		)
	}
}
