package planner

import (
	"context"
	"time"
)

// Config 规划器配置，零值字段使用默认值
type Config struct {
	// TimeBudget 单次求解的墙钟预算，零值 → 30s
	TimeBudget time.Duration `yaml:"time_budget"`
	// Now 当前时间来源，零值 → time.Now；测试用
	Now func() time.Time
}

// Planner 单日任务排程器
// 给定任务、日历事件、硬约束与目标权重，产出满足全部硬约束并
// 近似最大化加权目标的排程
type Planner struct {
	budget time.Duration
	now    func() time.Time
}

// New 创建 Planner，填充默认配置
func New(cfg Config) *Planner {
	p := &Planner{budget: cfg.TimeBudget, now: cfg.Now}
	if p.budget <= 0 {
		p.budget = 30 * time.Second
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// Request 一次排程请求
// TargetDate 为零值时从任务截止日推导，均无截止则取当前 UTC 日期
type Request struct {
	Tasks       []Task
	Events      []Event
	Constraints Constraints
	Weights     Weights
	TargetDate  time.Time
}

// Schedule 求解单日排程
//
// 返回值约定：
//   - 找到最优/可行解 → Result，任务按开始时间升序
//   - 必做任务放不下，或预算耗尽且无可行解 → *InfeasibleError
//   - 输入非法（约束倒置、时长非正）→ 普通 error
func (p *Planner) Schedule(ctx context.Context, req Request) (*Result, error) {
	weights := req.Weights
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}

	targetDate := resolveTargetDate(req.TargetDate, req.Tasks, p.now())

	m, err := buildModel(req.Tasks, req.Events, req.Constraints, weights, targetDate)
	if err != nil {
		return nil, err
	}

	return newSolver(ctx, m, p.budget).solve()
}
