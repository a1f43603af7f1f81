package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/daysage/daysage/cmd/server/internal/audit"
	"github.com/daysage/daysage/cmd/server/internal/users"
)

// HandleLogin POST /api/v1/auth/login
// 用户名密码换取 JWT，无需认证
func HandleLogin(userManager *users.Manager, auditor audit.Logger, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequestDTO
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequestResponse(c, "invalid request body")
			return
		}
		if req.Username == "" || req.Password == "" {
			badRequestResponse(c, "username and password are required")
			return
		}

		user, err := userManager.Authenticate(req.Username, req.Password)
		if err != nil {
			if errors.Is(err, users.ErrInvalidCredentials) {
				unauthorizedResponse(c, "invalid username or password")
				return
			}
			internalErrorResponse(c, err)
			return
		}

		token, err := userManager.GenerateToken(user.Username)
		if err != nil {
			logger.Error("token generation failed", "username", user.Username, "error", err)
			internalErrorResponse(c, err)
			return
		}

		if err := auditor.Log(user.Username, audit.ActionLogin, user.Username, nil, nil, c.ClientIP()); err != nil {
			logger.Warn("audit write failed", "username", user.Username, "error", err)
		}

		c.JSON(http.StatusOK, gin.H{
			"token":    token,
			"username": user.Username,
			"scopes":   user.Scopes,
		})
	}
}

// HandleCreateUser POST /api/v1/users
// 创建新用户
// Required Scopes: users.ScopeUserManage
func HandleCreateUser(userManager *users.Manager, auditor audit.Logger, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Username string   `json:"username"`
			Password string   `json:"password"`
			Scopes   []string `json:"scopes"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequestResponse(c, "invalid request body")
			return
		}

		user, err := userManager.CreateUser(req.Username, req.Password, req.Scopes)
		if err != nil {
			if errors.Is(err, users.ErrUserExists) {
				errorResponse(c, http.StatusConflict, "USER_EXISTS", "user already exists")
				return
			}
			badRequestResponse(c, err.Error())
			return
		}

		if err := auditor.Log(currentUser(c), audit.ActionCreateUser, user.Username, nil, nil, ""); err != nil {
			logger.Warn("audit write failed", "username", user.Username, "error", err)
		}

		user.Password = ""
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    user,
		})
	}
}
