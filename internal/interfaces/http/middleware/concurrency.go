// Package middleware 提供 HTTP 中间件
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"
)

// SingleFlight 串行化提交处理
// 解题流程同一时刻只处理一条提交，后到请求直接拒绝而非排队，
// 避免慢速生成调用堆积
func SingleFlight() gin.HandlerFunc {
	sem := semaphore.NewWeighted(1)

	return func(c *gin.Context) {
		if !sem.TryAcquire(1) {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"code":     http.StatusConflict,
				"message":  "another submission is being processed",
				"trace_id": c.GetString("trace_id"),
			})
			return
		}
		defer sem.Release(1)

		c.Next()
	}
}
