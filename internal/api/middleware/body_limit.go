package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"weekly-planner/pkg/response"
)

// BodyLimit 全局请求体大小限制中间件
// 一份完整周计划最多 63 个时间格，默认 1MB 足够
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			response.PayloadTooLarge(c)
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		c.Next()
	}
}
