// Package handler 提供 HTTP 请求处理器
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"qp-solver-api/internal/infrastructure/storage"
)

// HealthHandler 健康检查处理器
type HealthHandler struct {
	spool         *storage.Spool
	credentialSet bool
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(spool *storage.Spool, credentialSet bool) *HealthHandler {
	return &HealthHandler{
		spool:         spool,
		credentialSet: credentialSet,
	}
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type readinessCheck struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
}

type readinessResponse struct {
	Status string                     `json:"status"`
	Checks map[string]*readinessCheck `json:"checks,omitempty"`
}

// Health 健康检查接口
// @Summary 健康检查
// @Description 检查服务健康状态
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "ok",
	})
}

// Ready 就绪检查接口
// @Summary 就绪检查
// @Description 检查暂存目录可写且凭证已配置
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	checks := map[string]*readinessCheck{
		"spool":      {Status: "unknown"},
		"credential": {Status: "unknown"},
	}

	ready := true

	// 暂存目录（必需）
	if h == nil || h.spool == nil {
		checks["spool"].Status = "missing"
		checks["spool"].Error = "spool not configured"
		ready = false
	} else {
		start := time.Now()
		err := h.spool.HealthCheck()
		checks["spool"].LatencyMs = time.Since(start).Milliseconds()
		if err != nil {
			checks["spool"].Status = "error"
			checks["spool"].Error = err.Error()
			ready = false
		} else {
			checks["spool"].Status = "ok"
		}
	}

	// 凭证（必需，缺失时所有提交都会快速失败）
	if h != nil && h.credentialSet {
		checks["credential"].Status = "ok"
	} else {
		checks["credential"].Status = "missing"
		checks["credential"].Error = "api credential not configured"
		ready = false
	}

	resp := readinessResponse{
		Status: "ok",
		Checks: checks,
	}
	if !ready {
		resp.Status = "not_ready"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Live 存活检查接口
// @Summary 存活检查
// @Description 检查服务是否存活
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "ok",
	})
}
