package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/daysage/daysage/pkg/logger"
)

// RequestLogger 写入结构化请求日志并注入 request_id
// 认证中间件在其后执行，响应阶段补记用户名，便于按用户检索请求轨迹
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := uuid.NewString()
		c.Set("request_id", reqID)
		c.Writer.Header().Set("X-Request-ID", reqID)

		c.Next()

		attrs := []any{
			"rid", reqID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
			"bytes", c.Writer.Size(),
		}
		if user, ok := c.Get(ContextUserKey); ok {
			attrs = append(attrs, "user", user)
		}
		logger.L().Info("http_request", attrs...)
	}
}
