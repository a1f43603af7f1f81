package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/daysage/daysage/cmd/server/internal/audit"
	"github.com/daysage/daysage/cmd/server/internal/learner"
	"github.com/daysage/daysage/cmd/server/internal/metrics"
	"github.com/daysage/daysage/cmd/server/internal/planner"
	"github.com/daysage/daysage/cmd/server/internal/store"
)

// 错误定义
var (
	ErrInvalidMoodScore   = errors.New("INVALID_MOOD_SCORE")
	ErrInvalidEnergyLevel = errors.New("INVALID_ENERGY_LEVEL")
)

// FeedbackInput 一次反馈提交
// ScheduledTasks 为反馈针对的排程快照，特征从中提取
type FeedbackInput struct {
	ScheduledTasks []planner.ScheduledTask
	Events         []planner.Event
	Constraints    planner.Constraints
	MoodScore      int
	EnergyLevel    int
	CompletedTasks []string
	AdjustedTasks  []string
	// ActualDurations 已完成任务的实际耗时（task_type → 分钟），可为空
	ActualDurations map[string]float64
}

// FeedbackResult 反馈处理结果
type FeedbackResult struct {
	RecordID       string
	SampleCount    int
	WeightsUpdated bool
	Weights        planner.Weights
}

// FeedbackService 反馈采集与参数学习服务接口
type FeedbackService interface {
	// Record 记录反馈；累计样本达到训练阈值后重训模型并更新权重
	Record(ctx context.Context, userID string, in FeedbackInput) (*FeedbackResult, error)
}

// feedbackService 反馈服务实现
// 每用户一把互斥锁，串行化「追加反馈 → 重训 → 写权重」链路，
// 不同用户的反馈互不阻塞
type feedbackService struct {
	feedback  store.FeedbackStore
	params    store.ParamStore
	durations DurationService
	auditor   audit.Logger
	updater   *learner.Updater
	logger    *slog.Logger
	threshold int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewFeedbackService 创建反馈服务实例
// threshold 为触发训练的最少样本数，非正值回退 learner.MinTrainingSamples
func NewFeedbackService(
	feedback store.FeedbackStore,
	params store.ParamStore,
	durations DurationService,
	auditor audit.Logger,
	logger *slog.Logger,
	threshold int,
) FeedbackService {
	if threshold <= 0 {
		threshold = learner.MinTrainingSamples
	}
	return &feedbackService{
		feedback:  feedback,
		params:    params,
		durations: durations,
		auditor:   auditor,
		updater:   learner.NewUpdater(),
		logger:    logger,
		threshold: threshold,
		locks:     map[string]*sync.Mutex{},
	}
}

func (s *feedbackService) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

// Record 处理一次反馈提交
func (s *feedbackService) Record(ctx context.Context, userID string, in FeedbackInput) (*FeedbackResult, error) {
	if in.MoodScore < 1 || in.MoodScore > 5 {
		return nil, ErrInvalidMoodScore
	}
	if in.EnergyLevel < 1 || in.EnergyLevel > 5 {
		return nil, ErrInvalidEnergyLevel
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	weights, err := s.params.Get(userID)
	if err != nil {
		return nil, fmt.Errorf("load weights: %w", err)
	}

	features := learner.ExtractFeatures(in.ScheduledTasks, in.Events, in.Constraints, weights.MaxContinuousWork)

	total := len(in.ScheduledTasks)
	completionRate := 0.0
	if total > 0 {
		completionRate = float64(len(in.CompletedTasks)) / float64(total)
	}

	rec := store.FeedbackRecord{
		ID:              uuid.NewString(),
		Features:        features,
		MoodScore:       in.MoodScore,
		EnergyLevel:     in.EnergyLevel,
		TaskAdjustments: len(in.AdjustedTasks),
		CompletionRate:  completionRate,
		CompletedTasks:  in.CompletedTasks,
		AdjustedTasks:   in.AdjustedTasks,
		CreatedAt:       time.Now().UTC(),
	}

	if err := s.feedback.Append(userID, rec); err != nil {
		return nil, fmt.Errorf("append feedback: %w", err)
	}
	metrics.RecordFeedback()

	if err := s.auditor.Log(userID, audit.ActionRecordFeedback, rec.ID, nil, nil,
		fmt.Sprintf("mood=%d energy=%d completed=%d", in.MoodScore, in.EnergyLevel, len(in.CompletedTasks))); err != nil {
		s.logger.Warn("audit write failed", "user_id", userID, "error", err)
	}

	// 已完成任务的实际耗时进入历史，供时长预测使用
	for taskType, minutes := range in.ActualDurations {
		if minutes <= 0 {
			continue
		}
		if err := s.durations.RecordActual(userID, taskType, minutes); err != nil {
			s.logger.Warn("duration history write failed", "user_id", userID, "task_type", taskType, "error", err)
		}
	}

	result := &FeedbackResult{RecordID: rec.ID, Weights: weights}

	records, err := s.feedback.List(userID)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	result.SampleCount = len(records)

	if len(records) < s.threshold {
		s.logger.Info("feedback recorded, below training threshold",
			"user_id", userID, "samples", len(records), "threshold", s.threshold)
		return result, nil
	}

	newWeights, trained, err := s.retrain(userID, records, weights)
	if err != nil {
		return nil, err
	}
	if trained {
		result.WeightsUpdated = true
		result.Weights = newWeights
	}
	return result, nil
}

// retrain 在全量反馈历史上重训模型并更新权重
// 权重无变化时不落盘不审计；训练数据不足视为正常情况
func (s *feedbackService) retrain(userID string, records []store.FeedbackRecord, current planner.Weights) (planner.Weights, bool, error) {
	features := make([][]float64, len(records))
	moods := make([]float64, len(records))
	for i, r := range records {
		features[i] = r.Features.Values()
		moods[i] = float64(r.MoodScore)
	}

	model, err := learner.Train(features, moods)
	if err != nil {
		if errors.Is(err, learner.ErrInsufficientData) {
			return current, false, nil
		}
		return current, false, fmt.Errorf("train model: %w", err)
	}

	updated := s.updater.Update(current, model)
	if updated == current {
		s.logger.Info("model retrained, weights unchanged", "user_id", userID, "samples", model.Samples())
		return current, false, nil
	}

	if err := s.params.Put(userID, updated); err != nil {
		return current, false, fmt.Errorf("persist weights: %w", err)
	}
	metrics.RecordWeightUpdate()

	if err := s.auditor.Log(userID, audit.ActionUpdateWeights, userID, current, updated,
		fmt.Sprintf("samples=%d", model.Samples())); err != nil {
		s.logger.Warn("audit write failed", "user_id", userID, "error", err)
	}

	s.logger.Info("objective weights updated",
		"user_id", userID,
		"samples", model.Samples(),
		"break_importance", updated.BreakImportance,
		"max_continuous_work", updated.MaxContinuousWork,
	)
	return updated, true, nil
}
