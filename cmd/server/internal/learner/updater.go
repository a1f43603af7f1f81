package learner

import (
	"github.com/daysage/daysage/cmd/server/internal/planner"
)

// 各权重的钳制范围，防止目标函数某一项失控
const (
	MinBreakImportance = 0.1
	MaxBreakImportance = 5.0

	MinContinuousWork = 30.0
	MaxContinuousWork = 240.0

	MinPenalty = 0.5
	MaxPenalty = 10.0

	MinBonus = 0.5
	MaxBonus = 10.0
)

// 特征下标（与 FeatureNames 对齐）
const (
	idxActualBreak       = 2
	idxExcessWork        = 5
	idxHighPriorityEarly = 8
	idxEveningWork       = 9
	idxLongestStretch    = 10
)

// Updater 按模型输出调整目标权重
// 对每个「特征 ↔ 参数」映射：特征与情绪正相关且重要 → 提高对应奖励权重；
// 负相关且重要 → 提高对应惩罚权重（压低该特征）。步长按重要性缩放。
type Updater struct {
	// ImportanceThreshold 特征重要性低于该值时不动对应参数，零值 → 0.1
	ImportanceThreshold float64
	// CorrelationThreshold 相关性绝对值低于该值视为噪声，零值 → 0.2
	CorrelationThreshold float64
	// Step 基准调整步长，零值 → 0.5
	Step float64
}

// NewUpdater 创建默认配置的 Updater
func NewUpdater() *Updater {
	return &Updater{}
}

func (u *Updater) thresholds() (imp, corr, step float64) {
	imp, corr, step = u.ImportanceThreshold, u.CorrelationThreshold, u.Step
	if imp == 0 {
		imp = 0.1
	}
	if corr == 0 {
		corr = 0.2
	}
	if step == 0 {
		step = 0.5
	}
	return
}

// Update 结合模型的重要性/相关性输出生成新权重
// 返回值完整替换旧记录；所有字段更新后都会被钳制到合法范围
func (u *Updater) Update(current planner.Weights, m *Model) planner.Weights {
	impThreshold, corrThreshold, step := u.thresholds()
	w := current

	// 步长按重要性线性放大：恰好到达阈值时走一个基准步长
	scaled := func(importance float64) float64 {
		return step * importance / impThreshold
	}

	// 休息时间 ↔ break_importance
	if imp := m.Importance(idxActualBreak); imp > impThreshold {
		corr := m.Correlation(idxActualBreak)
		if corr > corrThreshold {
			w.BreakImportance += scaled(imp)
		} else if corr < -corrThreshold {
			w.BreakImportance -= scaled(imp)
		}
	}

	// 超额工作 ↔ continuous_work_penalty
	if imp := m.Importance(idxExcessWork); imp > impThreshold {
		corr := m.Correlation(idxExcessWork)
		if corr < -corrThreshold {
			w.ContinuousWorkPenalty += scaled(imp)
		} else if corr > corrThreshold {
			w.ContinuousWorkPenalty -= scaled(imp)
		}
	}

	// 晚间工作 ↔ evening_work_penalty
	if imp := m.Importance(idxEveningWork); imp > impThreshold {
		corr := m.Correlation(idxEveningWork)
		if corr < -corrThreshold {
			w.EveningWorkPenalty += scaled(imp)
		} else if corr > corrThreshold {
			w.EveningWorkPenalty -= scaled(imp)
		}
	}

	// 高优先级提前完成 ↔ early_completion_bonus
	if imp := m.Importance(idxHighPriorityEarly); imp > impThreshold {
		corr := m.Correlation(idxHighPriorityEarly)
		if corr > corrThreshold {
			w.EarlyCompletionBonus += scaled(imp)
		} else if corr < -corrThreshold {
			w.EarlyCompletionBonus -= scaled(imp)
		}
	}

	// 最长连续时段与情绪强负相关时收紧 max_continuous_work
	if imp := m.Importance(idxLongestStretch); imp > impThreshold {
		corr := m.Correlation(idxLongestStretch)
		if corr < -corrThreshold {
			w.MaxContinuousWork -= 15
		} else if corr > corrThreshold {
			w.MaxContinuousWork += 15
		}
	}

	return Clamp(w)
}

// Clamp 将权重各字段收敛到合法范围
func Clamp(w planner.Weights) planner.Weights {
	w.BreakImportance = clampFloat(w.BreakImportance, MinBreakImportance, MaxBreakImportance)
	w.MaxContinuousWork = clampFloat(w.MaxContinuousWork, MinContinuousWork, MaxContinuousWork)
	w.ContinuousWorkPenalty = clampFloat(w.ContinuousWorkPenalty, MinPenalty, MaxPenalty)
	w.EveningWorkPenalty = clampFloat(w.EveningWorkPenalty, MinPenalty, MaxPenalty)
	w.EarlyCompletionBonus = clampFloat(w.EarlyCompletionBonus, MinBonus, MaxBonus)
	return w
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
