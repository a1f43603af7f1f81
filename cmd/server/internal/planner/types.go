package planner

import (
	"fmt"
	"time"
)

// Priority 任务优先级（High/Medium/Low 三级）
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Value 将优先级映射为数值（High=3, Medium=2, Low=1），未知值按 Low 处理
func (p Priority) Value() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 1
	}
}

// PriorityFromValue 数值转回优先级，越界值按 Medium 处理
func PriorityFromValue(v int) Priority {
	switch v {
	case 3:
		return PriorityHigh
	case 2:
		return PriorityMedium
	case 1:
		return PriorityLow
	default:
		return PriorityMedium
	}
}

// Task 待排程任务
// Due 为空表示无截止时间（视为遥远将来，任务为可选）
type Task struct {
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Priority Priority   `json:"priority"`
	Duration int        `json:"estimated_duration"` // 分钟，必须 > 0
	Due      *time.Time `json:"due,omitempty"`
}

// Event 日历事件，起止时间固定，排程器不会移动它
type Event struct {
	ID    string    `json:"id"`
	Title string    `json:"title"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Constraints 单日排程硬约束
// WorkStart/WorkEnd 为当天零点起的分钟数，要求 WorkStart < WorkEnd
type Constraints struct {
	WorkStart         int `json:"work_start"`
	WorkEnd           int `json:"work_end"`
	MaxContinuousWork int `json:"max_continuous_work_min"`
}

// Validate 校验约束合法性
func (c Constraints) Validate() error {
	if c.WorkStart < 0 || c.WorkEnd > 24*60 {
		return fmt.Errorf("planner: work hours [%d, %d] outside day bounds", c.WorkStart, c.WorkEnd)
	}
	if c.WorkStart >= c.WorkEnd {
		return fmt.Errorf("planner: work start %d must precede work end %d", c.WorkStart, c.WorkEnd)
	}
	return nil
}

// Weights 目标函数权重，由学习器按用户调整
// 各字段的合法范围见 learner 包的钳制逻辑
type Weights struct {
	BreakImportance       float64 `json:"break_importance" yaml:"break_importance"`
	MaxContinuousWork     float64 `json:"max_continuous_work" yaml:"max_continuous_work"`
	ContinuousWorkPenalty float64 `json:"continuous_work_penalty" yaml:"continuous_work_penalty"`
	EveningWorkPenalty    float64 `json:"evening_work_penalty" yaml:"evening_work_penalty"`
	EarlyCompletionBonus  float64 `json:"early_completion_bonus" yaml:"early_completion_bonus"`
}

// DefaultWeights 无历史数据时使用的权重
func DefaultWeights() Weights {
	return Weights{
		BreakImportance:       1.0,
		MaxContinuousWork:     90,
		ContinuousWorkPenalty: 2.0,
		EveningWorkPenalty:    3.0,
		EarlyCompletionBonus:  2.0,
	}
}

// ScheduledTask 排程结果中的单个任务
type ScheduledTask struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Priority  Priority  `json:"priority"`
	Duration  int       `json:"estimated_duration"`
	Mandatory bool      `json:"mandatory"`
}

// Status 求解结果状态
type Status string

const (
	// StatusOptimal 搜索空间耗尽，结果为模型最优解
	StatusOptimal Status = "optimal"
	// StatusFeasible 时间预算内未穷尽搜索，返回当前最好的可行解
	StatusFeasible Status = "feasible"
)

// Result 一次求解的输出，Tasks 按开始时间升序
type Result struct {
	Tasks     []ScheduledTask `json:"scheduled_tasks"`
	Status    Status          `json:"status"`
	Objective float64         `json:"objective"`
}

// Diagnostics 不可行时附带的诊断信息
type Diagnostics struct {
	TotalTasks           int `json:"total_tasks"`
	MandatoryTasks       int `json:"mandatory_tasks"`
	TotalTaskMinutes     int `json:"total_task_minutes"`
	MandatoryTaskMinutes int `json:"mandatory_task_minutes"`
	AvailableMinutes     int `json:"available_minutes"`
	EventMinutes         int `json:"calendar_event_minutes"`
}

// InfeasibleError 必做任务无法全部放入工作时段时返回
// 超时且无任何可行解时同样返回该错误，调用方无法区分两者
type InfeasibleError struct {
	Diagnostics Diagnostics
}

func (e *InfeasibleError) Error() string {
	return "planner: cannot satisfy mandatory constraints"
}
