package learner

import (
	"sort"
	"time"

	"github.com/daysage/daysage/cmd/server/internal/planner"
)

// FeatureVector 排程的固定维度数值特征
// 字段顺序与 FeatureNames/Values 保持一致；空排程时全部为零
type FeatureVector struct {
	AvgTaskDuration        float64 `json:"avg_task_duration"`
	TotalWorkMinutes       float64 `json:"total_work_minutes"`
	ActualBreakMinutes     float64 `json:"actual_break_minutes"`
	OptionalTasksScheduled float64 `json:"optional_tasks_scheduled"`
	TotalTasksScheduled    float64 `json:"total_tasks_scheduled"`
	ExcessWork             float64 `json:"excess_work"`
	WorkStartTime          float64 `json:"work_start_time"`
	WorkEndTime            float64 `json:"work_end_time"`
	HighPriorityEarly      float64 `json:"high_priority_early"`
	EveningWork            float64 `json:"evening_work"`
	LongestStretch         float64 `json:"longest_stretch"`
}

// FeatureNames 特征名列表，与 Values 的下标一一对应
var FeatureNames = []string{
	"avg_task_duration",
	"total_work_minutes",
	"actual_break_minutes",
	"optional_tasks_scheduled",
	"total_tasks_scheduled",
	"excess_work",
	"work_start_time",
	"work_end_time",
	"high_priority_early",
	"evening_work",
	"longest_stretch",
}

// Values 按 FeatureNames 顺序导出数值
func (f FeatureVector) Values() []float64 {
	return []float64{
		f.AvgTaskDuration,
		f.TotalWorkMinutes,
		f.ActualBreakMinutes,
		f.OptionalTasksScheduled,
		f.TotalTasksScheduled,
		f.ExcessWork,
		f.WorkStartTime,
		f.WorkEndTime,
		f.HighPriorityEarly,
		f.EveningWork,
		f.LongestStretch,
	}
}

// stretchGapTolerance 两任务间隔小于该分钟数视为连续工作
const stretchGapTolerance = 15

// ExtractFeatures 从排程结果提取特征向量
// 纯函数：不修改输入；空排程返回全零向量，所有比率均有定义
func ExtractFeatures(tasks []planner.ScheduledTask, events []planner.Event, constraints planner.Constraints, maxContinuousWork float64) FeatureVector {
	var f FeatureVector
	if len(tasks) == 0 {
		return f
	}

	sorted := append([]planner.ScheduledTask(nil), tasks...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	workWindow := float64(constraints.WorkEnd - constraints.WorkStart)
	if workWindow < 0 {
		workWindow = 0
	}

	eventMinutes := 0.0
	for _, evt := range events {
		d := evt.End.Sub(evt.Start).Minutes()
		if d > 0 {
			eventMinutes += d
		}
	}
	workable := workWindow - eventMinutes
	if workable < 0 {
		workable = 0
	}

	total := 0.0
	for _, t := range sorted {
		total += t.End.Sub(t.Start).Minutes()
	}

	f.TotalTasksScheduled = float64(len(sorted))
	f.TotalWorkMinutes = total
	f.AvgTaskDuration = total / float64(len(sorted))

	for _, t := range sorted {
		if !t.Mandatory {
			f.OptionalTasksScheduled++
		}
	}

	f.ActualBreakMinutes = workable - total
	if f.ActualBreakMinutes < 0 {
		f.ActualBreakMinutes = 0
	}

	if maxContinuousWork > 0 && total > maxContinuousWork {
		f.ExcessWork = total - maxContinuousWork
	}

	first, last := sorted[0], sorted[len(sorted)-1]
	f.WorkStartTime = minuteOfDay(first.Start)
	f.WorkEndTime = minuteOfDay(last.End)
	for _, t := range sorted {
		if m := minuteOfDay(t.End); m > f.WorkEndTime {
			f.WorkEndTime = m
		}
	}

	// 高优先级任务落在工作窗口前半段的比例
	halfway := float64(constraints.WorkStart) + workWindow/2
	highTotal, highEarly := 0, 0
	for _, t := range sorted {
		if t.Priority != planner.PriorityHigh {
			continue
		}
		highTotal++
		if minuteOfDay(t.Start) < halfway {
			highEarly++
		}
	}
	if highTotal > 0 {
		f.HighPriorityEarly = float64(highEarly) / float64(highTotal)
	}

	// 结束时间落入晚间段（work_end 前一小时之后）的任务比例
	eveningCutoff := float64(constraints.WorkEnd - 60)
	eveningCount := 0
	for _, t := range sorted {
		if minuteOfDay(t.End) > eveningCutoff {
			eveningCount++
		}
	}
	f.EveningWork = float64(eveningCount) / float64(len(sorted))

	f.LongestStretch = longestStretch(sorted)

	return f
}

// longestStretch 将间隔小于 stretchGapTolerance 的相邻任务合并，
// 返回合并后最长连续工作时段的分钟数
func longestStretch(sorted []planner.ScheduledTask) float64 {
	longest, current := 0.0, 0.0
	var lastEnd time.Time

	for i, t := range sorted {
		dur := t.End.Sub(t.Start).Minutes()
		if i == 0 || t.Start.Sub(lastEnd).Minutes() < stretchGapTolerance {
			current += dur
		} else {
			if current > longest {
				longest = current
			}
			current = dur
		}
		if t.End.After(lastEnd) {
			lastEnd = t.End
		}
	}
	if current > longest {
		longest = current
	}
	return longest
}

// minuteOfDay UTC 时刻在当天的分钟偏移
func minuteOfDay(t time.Time) float64 {
	t = t.UTC()
	return float64(t.Hour()*60 + t.Minute())
}
