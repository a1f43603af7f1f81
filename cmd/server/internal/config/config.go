package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/daysage/daysage/cmd/server/internal/planner"
)

// Config 统一配置结构
type Config struct {
	Server   ServerConfig
	Data     DataConfig
	Log      LogConfig
	Security SecurityConfig
	Planner  PlannerConfig
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Env  string // dev, staging, production
	Port string
}

// DataConfig 数据目录配置
type DataConfig struct {
	UserDataDir  string // 反馈账本、权重、耗时历史
	UsersDir     string // 用户账号
	AuditLogsDir string // 审计日志
}

// LogConfig 日志配置
type LogConfig struct {
	Level string // debug, info, warn, error
	File  string // 非空时同时写入该文件（自动轮转）
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	JWTSecret            string
	AdminDefaultPassword string
	TokenTTL             time.Duration
}

// PlannerConfig 规划与学习相关的可调参数
// 可被 TUNING_FILE 指向的 YAML 覆盖
type PlannerConfig struct {
	TimeBudget          time.Duration   `yaml:"-"`
	TimeBudgetSeconds   int             `yaml:"time_budget_seconds"`
	MaxConcurrentSolves int64           `yaml:"max_concurrent_solves"`
	TrainingThreshold   int             `yaml:"training_threshold"`
	DefaultWeights      planner.Weights `yaml:"default_weights"`
}

// LoadConfig 从环境变量加载配置，TUNING_FILE 存在时叠加 YAML 调优项
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Env:  getEnv("ENV", "dev"),
			Port: getEnv("PORT", "8000"),
		},
		Data: DataConfig{
			UserDataDir:  getEnv("USER_DATA_DIR", "./user_data"),
			UsersDir:     getEnv("USERS_DIR", "./users"),
			AuditLogsDir: getEnv("AUDIT_LOGS_DIR", "./audit_logs"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
		Security: SecurityConfig{
			JWTSecret:            getEnv("USER_JWT_SECRET", ""),
			AdminDefaultPassword: getEnv("ADMIN_DEFAULT_PASSWORD", ""),
			TokenTTL:             time.Duration(getEnvAsInt("TOKEN_TTL_SECONDS", 86400)) * time.Second,
		},
		Planner: PlannerConfig{
			TimeBudgetSeconds:   getEnvAsInt("SOLVE_TIME_BUDGET_SECONDS", 30),
			MaxConcurrentSolves: int64(getEnvAsInt("MAX_CONCURRENT_SOLVES", 4)),
			TrainingThreshold:   getEnvAsInt("TRAINING_THRESHOLD", 5),
			DefaultWeights:      planner.DefaultWeights(),
		},
	}

	if tuningPath := getEnv("TUNING_FILE", ""); tuningPath != "" {
		if err := applyTuningFile(&cfg.Planner, tuningPath); err != nil {
			return nil, err
		}
	}

	cfg.Planner.TimeBudget = time.Duration(cfg.Planner.TimeBudgetSeconds) * time.Second
	return cfg, nil
}

// applyTuningFile 叠加 YAML 调优文件，未出现的字段保持现值
func applyTuningFile(pc *PlannerConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read tuning file: %w", err)
	}
	if err := yaml.Unmarshal(data, pc); err != nil {
		return fmt.Errorf("failed to parse tuning file: %w", err)
	}
	return nil
}

// ValidateConfig 校验配置合法性
func ValidateConfig(cfg *Config) error {
	env := strings.ToLower(cfg.Server.Env)
	if env != "dev" && env != "staging" && env != "production" {
		return fmt.Errorf("invalid ENV %q (want dev/staging/production)", cfg.Server.Env)
	}
	if cfg.Planner.TimeBudgetSeconds <= 0 {
		return fmt.Errorf("solve time budget must be positive, got %d", cfg.Planner.TimeBudgetSeconds)
	}
	if cfg.Planner.MaxConcurrentSolves <= 0 {
		return fmt.Errorf("max concurrent solves must be positive, got %d", cfg.Planner.MaxConcurrentSolves)
	}
	if cfg.Planner.TrainingThreshold < 1 {
		return fmt.Errorf("training threshold must be at least 1, got %d", cfg.Planner.TrainingThreshold)
	}
	if env != "dev" && cfg.Security.JWTSecret == "" {
		return fmt.Errorf("USER_JWT_SECRET must be set outside dev")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
