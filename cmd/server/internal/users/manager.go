package users

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Scope definitions
const (
	// 排程权限
	ScopePlanRead  = "plan.read"  // 查看排程与权重
	ScopePlanWrite = "plan.write" // 发起排程、提交反馈

	// 用户管理权限
	ScopeUserManage = "user.manage"
)

var allScopes = []string{ScopePlanRead, ScopePlanWrite, ScopeUserManage}

var (
	ErrUserExists         = errors.New("user exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// User 数据模型
// Password 存储 sha256 十六进制哈希
type User struct {
	Username  string    `json:"username"`
	Password  string    `json:"password_hash"`
	Scopes    []string  `json:"scopes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Claims 自定义 JWT claims
type Claims struct {
	Username string   `json:"username"`
	Scopes   []string `json:"scopes"`
	jwt.RegisteredClaims
}

// Manager 管理用户及 JWT
// 简易文件存储 {storeDir}/users.json
type Manager struct {
	mu        sync.RWMutex
	users     map[string]*User
	secretKey []byte
	storePath string
	tokenTTL  time.Duration
}

// NewManager 创建管理器，secret 用于 JWT 签名，tokenTTL 为零时签发不过期令牌
func NewManager(storeDir string, secret []byte, tokenTTL time.Duration) (*Manager, error) {
	if len(secret) == 0 {
		return nil, errors.New("secret key required")
	}
	m := &Manager{
		users:     map[string]*User{},
		secretKey: secret,
		storePath: filepath.Join(storeDir, "users.json"),
		tokenTTL:  tokenTTL,
	}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

// hashPassword 简单 sha256；生产系统应使用 bcrypt/argon2
func hashPassword(pw string) string {
	s := sha256.Sum256([]byte(pw))
	return hex.EncodeToString(s[:])
}

// load 从文件读取
func (m *Manager) load() error {
	b, err := os.ReadFile(m.storePath)
	if err != nil {
		return nil // first run
	}
	var arr []*User
	if err := json.Unmarshal(b, &arr); err != nil {
		return err
	}
	for _, u := range arr {
		m.users[u.Username] = u
	}
	return nil
}

// save 写入文件（全量）
func (m *Manager) save() error {
	arr := []*User{}
	for _, u := range m.users {
		arr = append(arr, u)
	}
	b, _ := json.MarshalIndent(arr, "", "  ")
	if err := os.MkdirAll(filepath.Dir(m.storePath), 0755); err != nil {
		return err
	}
	return os.WriteFile(m.storePath, b, 0644)
}

// EnsureDefaultAdmin 如果没有任何用户则创建 admin
func (m *Manager) EnsureDefaultAdmin(defaultPassword string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.users) > 0 {
		return nil
	}
	now := time.Now()
	m.users["admin"] = &User{Username: "admin", Password: hashPassword(defaultPassword), Scopes: allScopes, CreatedAt: now, UpdatedAt: now}
	return m.save()
}

// CreateUser 创建用户（用户名唯一），默认授予排程读写权限
func (m *Manager) CreateUser(username, password string, scopes []string) (*User, error) {
	if username == "" {
		return nil, errors.New("username required")
	}
	if password == "" {
		return nil, errors.New("password required")
	}
	if len(scopes) == 0 {
		scopes = []string{ScopePlanRead, ScopePlanWrite}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[username]; exists {
		return nil, ErrUserExists
	}
	now := time.Now()
	u := &User{Username: username, Password: hashPassword(password), Scopes: dedupScopes(scopes), CreatedAt: now, UpdatedAt: now}
	m.users[username] = u
	return u, m.save()
}

// GetUser 获取单个用户（隐藏密码）
func (m *Manager) GetUser(username string) (*User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[username]
	if !ok {
		return nil, false
	}
	cpy := *u
	cpy.Password = ""
	return &cpy, true
}

// Authenticate 验证用户名密码
func (m *Manager) Authenticate(username, password string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[username]
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if u.Password != hashPassword(password) {
		return nil, ErrInvalidCredentials
	}
	cpy := *u
	cpy.Password = ""
	return &cpy, nil
}

// GenerateToken 签发 HS256 令牌；配置了 TTL 时带过期时间
func (m *Manager) GenerateToken(username string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[username]
	if !ok {
		return "", ErrUserNotFound
	}
	claims := Claims{
		Username:         u.Username,
		Scopes:           u.Scopes,
		RegisteredClaims: jwt.RegisteredClaims{IssuedAt: jwt.NewNumericDate(time.Now())},
	}
	if m.tokenTTL > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(m.tokenTTL))
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(m.secretKey)
}

// ParseToken 验证并返回 claims
func (m *Manager) ParseToken(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) { return m.secretKey, nil })
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, errors.New("invalid claims")
	}
	return claims, nil
}

// HasScope 判断权限集合是否包含指定 scope
func HasScope(scopes []string, required string) bool {
	for _, s := range scopes {
		if s == required {
			return true
		}
	}
	return false
}

// dedupScopes 去重并过滤非法 scope
func dedupScopes(in []string) []string {
	valid := map[string]struct{}{}
	for _, s := range allScopes {
		valid[s] = struct{}{}
	}
	seen := map[string]struct{}{}
	out := []string{}
	for _, s := range in {
		if _, ok := valid[s]; !ok {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
