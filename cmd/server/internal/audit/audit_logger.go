package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Action 审计操作类型
type Action string

const (
	ActionRecordFeedback Action = "record_feedback"
	ActionUpdateWeights  Action = "update_weights"
	ActionCreateUser     Action = "create_user"
	ActionLogin          Action = "login"
)

// Entry 审计日志条目
type Entry struct {
	Timestamp  time.Time   `json:"timestamp"`
	Operator   string      `json:"operator"`          // 操作者（用户 ID）
	Action     Action      `json:"action"`            // 操作类型
	ResourceID string      `json:"resource_id"`       // 资源标识（反馈记录 ID、用户 ID 等）
	Before     interface{} `json:"before,omitempty"`  // 变更前状态（如旧权重）
	After      interface{} `json:"after,omitempty"`   // 变更后状态（如新权重）
	Details    string      `json:"details,omitempty"` // 额外详情
}

// Logger 审计日志记录器接口
type Logger interface {
	// Log 记录一条审计日志，before/after 可为 nil
	Log(operator string, action Action, resourceID string, before, after interface{}, details string) error
}

// FileLogger 基于文件的审计日志实现
// 按日期分组写入 {baseDir}/{year}/{month}/{day}.jsonl
type FileLogger struct {
	baseDir string
	mu      sync.Mutex
}

// NewFileLogger 创建文件审计日志记录器
func NewFileLogger(baseDir string) (*FileLogger, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit logs directory: %w", err)
	}
	return &FileLogger{baseDir: baseDir}, nil
}

// Log 追加一条审计记录
func (f *FileLogger) Log(operator string, action Action, resourceID string, before, after interface{}, details string) error {
	entry := Entry{
		Timestamp:  time.Now().UTC(),
		Operator:   operator,
		Action:     action,
		ResourceID: resourceID,
		Before:     before,
		After:      after,
		Details:    details,
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	dirPath := filepath.Join(f.baseDir, entry.Timestamp.Format("2006"), entry.Timestamp.Format("01"))
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return fmt.Errorf("failed to create audit log directory: %w", err)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	filePath := filepath.Join(dirPath, entry.Timestamp.Format("02")+".jsonl")
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open audit log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

// List 读取指定日期的全部审计记录（查询辅助）
func (f *FileLogger) List(day time.Time) ([]Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	filePath := filepath.Join(f.baseDir, day.Format("2006"), day.Format("01"), day.Format("02")+".jsonl")
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read audit log file: %w", err)
	}

	var entries []Entry
	for i, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var entry Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal audit entry at line %d: %w", i+1, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
