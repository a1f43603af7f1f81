package planner

import (
	"fmt"
	"sort"
	"time"
)

// taskVar 单个任务的决策变量集合
// mandatory 任务必须被放置；可选任务带 presence 决策（放置或跳过）
type taskVar struct {
	task        Task
	duration    int
	priorityVal int
	mandatory   bool
	score       int64 // 可选任务的入选得分
	endCap      int   // end 上界（截止时间落在工作时段内时生效），否则为 workEnd
}

// block 工作时段内被事件占用的固定区间 [start, end)
type block struct {
	start int
	end   int
}

// model 单日排程模型：任务变量 + 固定事件区间 + 权重
type model struct {
	date          time.Time // 目标日期（UTC 零点）
	workStart     int
	workEnd       int
	tasks         []taskVar
	blocks        []block
	eventMinutes  int
	weights       Weights
	eveningCutoff int
}

// resolveTargetDate 确定排程目标日期：显式指定优先，其次取最早任务截止日，最后退回当前 UTC 日期
func resolveTargetDate(target time.Time, tasks []Task, now time.Time) time.Time {
	if !target.IsZero() {
		return truncateToDay(target.UTC())
	}
	var earliest *time.Time
	for i := range tasks {
		due := tasks[i].Due
		if due == nil {
			continue
		}
		if earliest == nil || due.Before(*earliest) {
			earliest = due
		}
	}
	if earliest != nil {
		return truncateToDay(earliest.UTC())
	}
	return truncateToDay(now.UTC())
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// minutesOfDay 取 UTC 时刻在当天的分钟偏移
func minutesOfDay(t time.Time) int {
	t = t.UTC()
	return t.Hour()*60 + t.Minute()
}

// taskScore 可选任务的入选得分：优先级为主，截止日临近度加成
// 优先级差保证高优先级任务得分严格更高；临近截止再拉开差距
func taskScore(priorityVal, daysToDue int) int64 {
	proximity := 5 - daysToDue
	if proximity < 0 {
		proximity = 0
	}
	score := int64(priorityVal)*100 + int64(proximity)*200
	if score < 100 {
		score = 100
	}
	return score
}

// buildModel 由请求输入构造排程模型
// 必做分类在此一次性完成：截止日期为目标日或更早 ⇒ 必做；缺失截止 ⇒ 可选
func buildModel(tasks []Task, events []Event, constraints Constraints, weights Weights, targetDate time.Time) (*model, error) {
	if err := constraints.Validate(); err != nil {
		return nil, err
	}

	m := &model{
		date:          targetDate,
		workStart:     constraints.WorkStart,
		workEnd:       constraints.WorkEnd,
		weights:       weights,
		eveningCutoff: constraints.WorkEnd - 60,
	}

	for _, t := range tasks {
		if t.Duration <= 0 {
			return nil, fmt.Errorf("planner: task %q has non-positive duration %d", t.ID, t.Duration)
		}
		tv := taskVar{
			task:        t,
			duration:    t.Duration,
			priorityVal: t.Priority.Value(),
			endCap:      m.workEnd,
		}

		if t.Due != nil {
			dueDay := truncateToDay(t.Due.UTC())
			daysToDue := int(dueDay.Sub(targetDate).Hours() / 24)
			tv.mandatory = daysToDue <= 0
			tv.score = taskScore(tv.priorityVal, daysToDue)

			// 截止时刻落在目标日工作时段内时，任务必须在截止前结束。
			// 午夜等落在时段外的截止时刻不收紧上界，避免纯日期型截止导致伪不可行。
			if dueDay.Equal(targetDate) {
				dueMin := minutesOfDay(*t.Due)
				if dueMin >= m.workStart+t.Duration && dueMin < m.workEnd {
					tv.endCap = dueMin
				}
			}
		} else {
			// 无截止 ⇒ 遥远将来 ⇒ 可选
			tv.mandatory = false
			tv.score = taskScore(tv.priorityVal, 10)
		}

		m.tasks = append(m.tasks, tv)
	}

	// 事件裁剪到工作时段；完全落在时段外的事件直接忽略
	for _, evt := range events {
		start := minutesOfDay(evt.Start)
		end := minutesOfDay(evt.End)
		if end <= m.workStart || start >= m.workEnd {
			continue
		}
		if start < m.workStart {
			start = m.workStart
		}
		if end > m.workEnd {
			end = m.workEnd
		}
		if end > start {
			m.blocks = append(m.blocks, block{start: start, end: end})
		}
	}
	sort.Slice(m.blocks, func(i, j int) bool { return m.blocks[i].start < m.blocks[j].start })
	m.blocks = mergeBlocks(m.blocks)
	for _, b := range m.blocks {
		m.eventMinutes += b.end - b.start
	}

	// 搜索顺序：必做在前，其后可选按得分降序。
	// 必做任务按 endCap 升序（EDF）：同一间隙内的时间先后由处理顺序决定，
	// 截止上界紧的任务必须先行，否则可行解会被无谓排除
	sort.SliceStable(m.tasks, func(i, j int) bool {
		a, b := m.tasks[i], m.tasks[j]
		if a.mandatory != b.mandatory {
			return a.mandatory
		}
		if a.mandatory {
			if a.endCap != b.endCap {
				return a.endCap < b.endCap
			}
			if a.priorityVal != b.priorityVal {
				return a.priorityVal > b.priorityVal
			}
			return a.duration > b.duration
		}
		return a.score > b.score
	})

	return m, nil
}

// mergeBlocks 合并重叠的占用区间（输入须已按 start 排序）
func mergeBlocks(blocks []block) []block {
	if len(blocks) == 0 {
		return blocks
	}
	merged := blocks[:1]
	for _, b := range blocks[1:] {
		last := &merged[len(merged)-1]
		if b.start <= last.end {
			if b.end > last.end {
				last.end = b.end
			}
			continue
		}
		merged = append(merged, b)
	}
	return merged
}

// availableWindow 工作时段长度减去事件占用
func (m *model) availableWindow() int {
	return (m.workEnd - m.workStart) - m.eventMinutes
}

// diagnostics 汇总不可行诊断信息
func (m *model) diagnostics() Diagnostics {
	d := Diagnostics{
		TotalTasks:       len(m.tasks),
		AvailableMinutes: m.availableWindow(),
		EventMinutes:     m.eventMinutes,
	}
	for _, tv := range m.tasks {
		d.TotalTaskMinutes += tv.duration
		if tv.mandatory {
			d.MandatoryTasks++
			d.MandatoryTaskMinutes += tv.duration
		}
	}
	return d
}
