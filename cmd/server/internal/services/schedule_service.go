package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/daysage/daysage/cmd/server/internal/metrics"
	"github.com/daysage/daysage/cmd/server/internal/planner"
	"github.com/daysage/daysage/cmd/server/internal/store"
	"github.com/daysage/daysage/pkg/logger"
)

// ErrTooManySolves 并发求解数超过上限且等待被取消时返回
var ErrTooManySolves = errors.New("SOLVE_CAPACITY_EXHAUSTED")

// ScheduleService 排程服务接口
type ScheduleService interface {
	// Optimize 为用户求解单日排程，权重取该用户当前学得的参数
	Optimize(ctx context.Context, userID string, req planner.Request) (*planner.Result, error)

	// Weights 返回用户当前生效的目标权重
	Weights(userID string) (planner.Weights, error)
}

// scheduleService 排程服务实现
// 求解是 CPU 密集操作，用加权信号量限制并发求解数
type scheduleService struct {
	planner  *planner.Planner
	params   store.ParamStore
	solveSem *semaphore.Weighted
	log      *slog.Logger
}

// NewScheduleService 创建排程服务实例
func NewScheduleService(p *planner.Planner, params store.ParamStore, maxConcurrentSolves int64, log *slog.Logger) ScheduleService {
	if maxConcurrentSolves <= 0 {
		maxConcurrentSolves = 4
	}
	return &scheduleService{
		planner:  p,
		params:   params,
		solveSem: semaphore.NewWeighted(maxConcurrentSolves),
		log:      log,
	}
}

// Optimize 求解单日排程
// 权重在进入求解前快照一次，求解期间的并发权重更新不影响本次结果
func (s *scheduleService) Optimize(ctx context.Context, userID string, req planner.Request) (*planner.Result, error) {
	if req.Weights == (planner.Weights{}) {
		w, err := s.params.Get(userID)
		if err != nil {
			return nil, err
		}
		req.Weights = w
	}

	if err := s.solveSem.Acquire(ctx, 1); err != nil {
		return nil, ErrTooManySolves
	}
	defer s.solveSem.Release(1)

	start := time.Now()
	result, err := s.planner.Schedule(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		var infeasible *planner.InfeasibleError
		outcome := "error"
		if errors.As(err, &infeasible) {
			outcome = "infeasible"
		}
		metrics.RecordSolve(outcome, elapsed.Seconds())
		logger.LogSolve(s.log, outcome, userID, len(req.Tasks), elapsed.Milliseconds(), outcome)
		return nil, err
	}

	metrics.RecordSolve(string(result.Status), elapsed.Seconds())
	logger.LogSolve(s.log, string(result.Status), userID, len(req.Tasks), elapsed.Milliseconds(), "")
	for _, t := range result.Tasks {
		metrics.RecordTaskScheduled(t.Mandatory)
	}
	return result, nil
}

// Weights 返回用户当前权重（未知用户得到默认值）
func (s *scheduleService) Weights(userID string) (planner.Weights, error) {
	return s.params.Get(userID)
}
