package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daysage/daysage/cmd/server/internal/users"
)

func newAuthedRouter(t *testing.T) (*gin.Engine, *users.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	manager, err := users.NewManager(t.TempDir(), []byte("test-secret"), time.Hour)
	require.NoError(t, err)

	r := gin.New()
	protected := r.Group("/api", Auth(manager))
	protected.GET("/whoami", func(c *gin.Context) {
		user, _ := c.Get(ContextUserKey)
		c.JSON(http.StatusOK, gin.H{"user": user})
	})
	protected.GET("/admin", RequireScope(users.ScopeUserManage), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r, manager
}

func get(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRejectsMissingHeader(t *testing.T) {
	r, _ := newAuthedRouter(t)
	w := get(r, "/api/whoami", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRejectsNonBearerScheme(t *testing.T) {
	r, _ := newAuthedRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/whoami", nil)
	req.Header.Set("Authorization", "Basic abc123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRejectsGarbageToken(t *testing.T) {
	r, _ := newAuthedRouter(t)
	w := get(r, "/api/whoami", "not.a.token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthAcceptsValidToken(t *testing.T) {
	r, manager := newAuthedRouter(t)

	_, err := manager.CreateUser("alice", "pw", nil)
	require.NoError(t, err)
	token, err := manager.GenerateToken("alice")
	require.NoError(t, err)

	w := get(r, "/api/whoami", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alice")
}

func TestRequireScopeForbidsMissingScope(t *testing.T) {
	r, manager := newAuthedRouter(t)

	// 默认用户只有 plan.read/plan.write
	_, err := manager.CreateUser("alice", "pw", nil)
	require.NoError(t, err)
	token, err := manager.GenerateToken("alice")
	require.NoError(t, err)

	w := get(r, "/api/admin", token)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireScopeAllowsGrantedScope(t *testing.T) {
	r, manager := newAuthedRouter(t)

	_, err := manager.CreateUser("root", "pw", []string{users.ScopeUserManage})
	require.NoError(t, err)
	token, err := manager.GenerateToken("root")
	require.NoError(t, err)

	w := get(r, "/api/admin", token)
	assert.Equal(t, http.StatusOK, w.Code)
}
