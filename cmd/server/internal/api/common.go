package api

import (
	"github.com/gin-gonic/gin"

	"github.com/daysage/daysage/cmd/server/internal/constants"
	"github.com/daysage/daysage/cmd/server/internal/middleware"
)

// currentUser 获取当前用户
// 认证中间件会注入用户名；缺失时回退 X-User 头或 system 占位符
func currentUser(c *gin.Context) string {
	if user, exists := c.Get(middleware.ContextUserKey); exists {
		if username, ok := user.(string); ok && username != "" {
			return username
		}
	}

	if u := c.GetHeader("X-User"); u != "" {
		return u
	}

	return "system"
}

// errorResponse 返回错误响应
func errorResponse(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"error": message,
		"code":  code,
	})
}

// errorResponseWithDetail 返回带详情的错误响应
func errorResponseWithDetail(c *gin.Context, status int, code, message string, detail interface{}) {
	c.JSON(status, gin.H{
		"error":  message,
		"code":   code,
		"detail": detail,
	})
}

// successResponse 返回成功响应
func successResponse(c *gin.Context, data interface{}) {
	c.JSON(200, data)
}

// badRequestResponse 返回 400 响应
func badRequestResponse(c *gin.Context, message string) {
	errorResponse(c, 400, constants.ErrCodeInvalidRequest, message)
}

// unauthorizedResponse 返回 401 响应
func unauthorizedResponse(c *gin.Context, message string) {
	if message == "" {
		message = "unauthorized"
	}
	errorResponse(c, 401, constants.ErrCodeUnauthorized, message)
}

// internalErrorResponse 返回 500 响应
func internalErrorResponse(c *gin.Context, err error) {
	errorResponseWithDetail(c, 500, constants.ErrCodeInternal, "internal server error", err.Error())
}
