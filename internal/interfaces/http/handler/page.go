// Package handler 提供 HTTP 请求处理器
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"qp-solver-api/internal/interfaces/http/web"
)

// PageHandler 上传页面处理器
type PageHandler struct {
	page []byte
}

// NewPageHandler 创建上传页面处理器
func NewPageHandler() (*PageHandler, error) {
	page, err := web.IndexPage()
	if err != nil {
		return nil, err
	}
	return &PageHandler{page: page}, nil
}

// Index 返回单页上传表单
// @Summary 上传页面
// @Description 返回试卷上传表单页面
// @Tags Page
// @Produce html
// @Success 200 {string} string "HTML"
// @Router / [get]
func (h *PageHandler) Index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", h.page)
}
