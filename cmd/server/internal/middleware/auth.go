package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/daysage/daysage/cmd/server/internal/constants"
	"github.com/daysage/daysage/cmd/server/internal/users"
)

const (
	// ContextUserKey 认证中间件注入的用户名键
	ContextUserKey = "user"
	// ContextScopesKey 认证中间件注入的权限列表键
	ContextScopesKey = "scopes"
)

// Auth 校验 Bearer JWT 并注入用户信息
func Auth(manager *users.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing authorization header",
				"code":  constants.ErrCodeUnauthorized,
			})
			return
		}

		tokenStr := strings.TrimPrefix(header, "Bearer ")
		if tokenStr == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authorization header must use Bearer scheme",
				"code":  constants.ErrCodeUnauthorized,
			})
			return
		}

		claims, err := manager.ParseToken(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid or expired token",
				"code":  constants.ErrCodeUnauthorized,
			})
			return
		}

		c.Set(ContextUserKey, claims.Username)
		c.Set(ContextScopesKey, claims.Scopes)
		c.Next()
	}
}

// RequireScope 要求当前用户持有指定 scope，需在 Auth 之后挂载
func RequireScope(required string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, exists := c.Get(ContextScopesKey)
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "no user context",
				"code":  constants.ErrCodeUnauthorized,
			})
			return
		}
		scopes, ok := raw.([]string)
		if !ok || !users.HasScope(scopes, required) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "insufficient scope: " + required,
				"code":  constants.ErrCodeForbidden,
			})
			return
		}
		c.Next()
	}
}
