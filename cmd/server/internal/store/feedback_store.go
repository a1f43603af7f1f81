package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/daysage/daysage/cmd/server/internal/learner"
)

// FeedbackRecord 一条用户反馈
// 追加写入后不再修改；Features 为反馈对应排程的特征快照
type FeedbackRecord struct {
	ID              string                `json:"id"`
	Features        learner.FeatureVector `json:"features"`
	MoodScore       int                   `json:"mood_score"`
	EnergyLevel     int                   `json:"energy_level"`
	TaskAdjustments int                   `json:"task_adjustments"`
	CompletionRate  float64               `json:"completion_rate"`
	CompletedTasks  []string              `json:"completed_tasks"`
	AdjustedTasks   []string              `json:"adjusted_tasks"`
	CreatedAt       time.Time             `json:"timestamp"`
}

// FeedbackStore 按用户追加存储反馈历史
type FeedbackStore interface {
	// Append 追加一条反馈记录
	Append(userID string, rec FeedbackRecord) error

	// List 按写入顺序返回用户全部反馈
	List(userID string) ([]FeedbackRecord, error)

	// Count 用户反馈条数
	Count(userID string) (int, error)
}

// FileFeedbackStore 基于 JSONL 文件的反馈存储
// 每用户一个文件，每行一条记录，只追加不改写
type FileFeedbackStore struct {
	baseDir string
	mu      sync.Mutex
}

// NewFileFeedbackStore 创建反馈存储，目录不存在时自动建立
func NewFileFeedbackStore(baseDir string) (*FileFeedbackStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create feedback store directory: %w", err)
	}
	return &FileFeedbackStore{baseDir: baseDir}, nil
}

func (s *FileFeedbackStore) path(userID string) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("user_%s_feedback.jsonl", sanitizeUserID(userID)))
}

// Append 追加写入 JSONL 文件
func (s *FileFeedbackStore) Append(userID string, rec FeedbackRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal feedback record: %w", err)
	}

	file, err := os.OpenFile(s.path(userID), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open feedback file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write feedback record: %w", err)
	}
	return nil
}

// List 逐行解析；无法解析的行跳过，不让单条脏数据毁掉整个账本
func (s *FileFeedbackStore) List(userID string) ([]FeedbackRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(userID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read feedback file: %w", err)
	}

	var records []FeedbackRecord
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var rec FeedbackRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Count 用户反馈条数
func (s *FileFeedbackStore) Count(userID string) (int, error) {
	records, err := s.List(userID)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// sanitizeUserID 过滤用户 ID 中的路径敏感字符
func sanitizeUserID(userID string) string {
	var b strings.Builder
	for _, r := range userID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
