package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// DurationRecord 某类任务一次实际耗时
type DurationRecord struct {
	TaskType  string    `json:"task_type"`
	Minutes   float64   `json:"minutes"`
	CreatedAt time.Time `json:"timestamp"`
}

// DurationStore 按用户记录任务耗时历史，供时长预测使用
type DurationStore interface {
	Append(userID, taskType string, minutes float64) error
	History(userID, taskType string) ([]float64, error)
}

// FileDurationStore 基于 JSONL 文件的耗时历史存储
type FileDurationStore struct {
	baseDir string
	mu      sync.Mutex
}

// NewFileDurationStore 创建耗时历史存储
func NewFileDurationStore(baseDir string) (*FileDurationStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create duration store directory: %w", err)
	}
	return &FileDurationStore{baseDir: baseDir}, nil
}

func (s *FileDurationStore) path(userID string) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("user_%s_durations.jsonl", sanitizeUserID(userID)))
}

// Append 追加一条耗时记录
func (s *FileDurationStore) Append(userID, taskType string, minutes float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := DurationRecord{TaskType: normalizeTaskType(taskType), Minutes: minutes, CreatedAt: time.Now().UTC()}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal duration record: %w", err)
	}

	file, err := os.OpenFile(s.path(userID), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open duration file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write duration record: %w", err)
	}
	return nil
}

// History 返回该类任务的全部历史耗时
func (s *FileDurationStore) History(userID, taskType string) ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(userID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read duration file: %w", err)
	}

	want := normalizeTaskType(taskType)
	var out []float64
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var rec DurationRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}
		if rec.TaskType == want && rec.Minutes > 0 {
			out = append(out, rec.Minutes)
		}
	}
	return out, nil
}

// normalizeTaskType 统一任务类型键：小写、去首尾空白
func normalizeTaskType(taskType string) string {
	return strings.ToLower(strings.TrimSpace(taskType))
}
