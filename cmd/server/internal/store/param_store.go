package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/daysage/daysage/cmd/server/internal/planner"
)

// ParamStore 按用户持久化目标权重
// Get 对未知用户返回默认权重；Put 全量替换该用户的记录
type ParamStore interface {
	Get(userID string) (planner.Weights, error)
	Put(userID string, w planner.Weights) error
}

// FileParamStore 基于 JSON 文件的权重存储，每用户一个文件
type FileParamStore struct {
	baseDir  string
	defaults planner.Weights
	mu       sync.RWMutex
}

// NewFileParamStore 创建权重存储，目录不存在时自动建立
// defaults 为无记录用户的回退权重（通常来自配置），零值回退内置默认
func NewFileParamStore(baseDir string, defaults planner.Weights) (*FileParamStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create param store directory: %w", err)
	}
	if defaults == (planner.Weights{}) {
		defaults = planner.DefaultWeights()
	}
	return &FileParamStore{baseDir: baseDir, defaults: defaults}, nil
}

func (s *FileParamStore) path(userID string) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("user_%s_params.json", sanitizeUserID(userID)))
}

// Get 读取用户权重
// 文件缺失、无法解析或内容为全零时回退默认权重，不让脏记录拖垮求解
func (s *FileParamStore) Get(userID string) (planner.Weights, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path(userID))
	if err != nil {
		return s.defaults, nil
	}

	var w planner.Weights
	if err := json.Unmarshal(data, &w); err != nil {
		return s.defaults, nil
	}
	if w == (planner.Weights{}) {
		return s.defaults, nil
	}
	return w, nil
}

// Put 全量写入用户权重
func (s *FileParamStore) Put(userID string, w planner.Weights) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal weights: %w", err)
	}
	if err := os.WriteFile(s.path(userID), data, 0644); err != nil {
		return fmt.Errorf("failed to write weights file: %w", err)
	}
	return nil
}
