package services

import (
	"github.com/daysage/daysage/cmd/server/internal/store"
)

// DefaultDurationEstimate 无历史数据时的兜底估计（分钟）
const DefaultDurationEstimate = 30.0

// DurationPrediction 时长预测结果
type DurationPrediction struct {
	TaskType         string  `json:"task_type"`
	PredictedMinutes float64 `json:"predicted_minutes"`
	SampleCount      int     `json:"sample_count"`
	FromHistory      bool    `json:"from_history"`
}

// DurationService 任务时长预测服务接口
type DurationService interface {
	// Predict 预测某类任务的耗时，取该用户历史耗时的均值
	Predict(userID, taskType string) (*DurationPrediction, error)

	// RecordActual 记录一次实际耗时
	RecordActual(userID, taskType string, minutes float64) error
}

// durationService 时长预测服务实现
type durationService struct {
	durations store.DurationStore
}

// NewDurationService 创建时长预测服务实例
func NewDurationService(durations store.DurationStore) DurationService {
	return &durationService{durations: durations}
}

// Predict 历史均值预测；无历史时返回默认估计
func (s *durationService) Predict(userID, taskType string) (*DurationPrediction, error) {
	history, err := s.durations.History(userID, taskType)
	if err != nil {
		return nil, err
	}

	pred := &DurationPrediction{TaskType: taskType, SampleCount: len(history)}
	if len(history) == 0 {
		pred.PredictedMinutes = DefaultDurationEstimate
		return pred, nil
	}

	sum := 0.0
	for _, m := range history {
		sum += m
	}
	pred.PredictedMinutes = sum / float64(len(history))
	pred.FromHistory = true
	return pred, nil
}

// RecordActual 记录实际耗时
func (s *durationService) RecordActual(userID, taskType string, minutes float64) error {
	return s.durations.Append(userID, taskType, minutes)
}
