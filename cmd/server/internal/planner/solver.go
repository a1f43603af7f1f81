package planner

import (
	"context"
	"sort"
	"time"
)

// placement 已确定的任务放置 [start, end)
type placement struct {
	taskIdx int
	start   int
	end     int
}

// solver 深度优先分支定界求解器
// 搜索空间为任务的放置顺序与可选任务的取舍；每个任务只在空闲间隙的
// 最早位置尝试放置（目标函数对更早的结束时间单调有利）
type solver struct {
	m        *model
	ctx      context.Context
	deadline time.Time

	occupied []block // 当前占用（事件 + 已放置任务），按 start 排序
	current  []placement

	best     []placement
	bestVal  float64
	hasBest  bool
	timedOut bool
	nodes    int

	// optSuffix[i] = 下标 >= i 的可选任务入选奖励之和（定界用）
	optSuffix []float64
}

const nodeCheckInterval = 1024

func newSolver(ctx context.Context, m *model, budget time.Duration) *solver {
	s := &solver{
		m:        m,
		ctx:      ctx,
		deadline: time.Now().Add(budget),
		occupied: append([]block(nil), m.blocks...),
	}
	s.optSuffix = make([]float64, len(m.tasks)+1)
	for i := len(m.tasks) - 1; i >= 0; i-- {
		s.optSuffix[i] = s.optSuffix[i+1]
		if !m.tasks[i].mandatory {
			s.optSuffix[i] += float64(m.tasks[i].score) * 100
		}
	}
	return s
}

// solve 运行搜索，返回最优或预算耗尽时的最好可行解
func (s *solver) solve() (*Result, error) {
	s.dfs(0)

	if !s.hasBest {
		return nil, &InfeasibleError{Diagnostics: s.m.diagnostics()}
	}

	status := StatusOptimal
	if s.timedOut {
		status = StatusFeasible
	}

	tasks := make([]ScheduledTask, 0, len(s.best))
	for _, p := range s.best {
		tv := s.m.tasks[p.taskIdx]
		tasks = append(tasks, ScheduledTask{
			ID:        tv.task.ID,
			Title:     tv.task.Title,
			Start:     s.m.date.Add(time.Duration(p.start) * time.Minute),
			End:       s.m.date.Add(time.Duration(p.end) * time.Minute),
			Priority:  PriorityFromValue(tv.priorityVal),
			Duration:  tv.duration,
			Mandatory: tv.mandatory,
		})
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].Start.Before(tasks[j].Start) })

	return &Result{Tasks: tasks, Status: status, Objective: s.bestVal}, nil
}

// dfs 返回 true 表示搜索被中断（预算耗尽或 ctx 取消）
func (s *solver) dfs(idx int) bool {
	s.nodes++
	if s.nodes%nodeCheckInterval == 0 {
		if time.Now().After(s.deadline) || s.ctx.Err() != nil {
			s.timedOut = true
			return true
		}
	}

	if idx == len(s.m.tasks) {
		val := s.objective(s.current)
		if !s.hasBest || val > s.bestVal {
			s.best = append(s.best[:0], s.current...)
			s.bestVal = val
			s.hasBest = true
		}
		return false
	}

	// 定界：当前部分解的乐观上界不超过已知最优则剪枝
	if s.hasBest {
		ub := s.objective(s.current) + s.optSuffix[idx]
		if ub <= s.bestVal {
			return false
		}
	}

	tv := s.m.tasks[idx]
	starts := s.candidateStarts(tv.duration, tv.endCap)

	for _, start := range starts {
		s.place(placement{taskIdx: idx, start: start, end: start + tv.duration})
		aborted := s.dfs(idx + 1)
		s.unplace()
		if aborted {
			return true
		}
	}

	if !tv.mandatory {
		// 可选任务：跳过分支
		return s.dfs(idx + 1)
	}

	// 必做任务放不下：此分支死路
	return false
}

// candidateStarts 每个可容纳该时长的空闲间隙给出其最早起点
func (s *solver) candidateStarts(duration, endCap int) []int {
	var starts []int
	cursor := s.m.workStart
	for _, b := range s.occupied {
		if b.start-cursor >= duration && cursor+duration <= endCap {
			starts = append(starts, cursor)
		}
		if b.end > cursor {
			cursor = b.end
		}
	}
	if s.m.workEnd-cursor >= duration && cursor+duration <= endCap {
		starts = append(starts, cursor)
	}
	return starts
}

// place 插入占用区间，保持排序
func (s *solver) place(p placement) {
	s.current = append(s.current, p)
	nb := block{start: p.start, end: p.end}
	i := sort.Search(len(s.occupied), func(i int) bool { return s.occupied[i].start >= nb.start })
	s.occupied = append(s.occupied, block{})
	copy(s.occupied[i+1:], s.occupied[i:])
	s.occupied[i] = nb
}

// unplace 撤销最近一次放置
func (s *solver) unplace() {
	p := s.current[len(s.current)-1]
	s.current = s.current[:len(s.current)-1]
	for i, b := range s.occupied {
		if b.start == p.start && b.end == p.end {
			s.occupied = append(s.occupied[:i], s.occupied[i+1:]...)
			break
		}
	}
}

// objective 计算一组放置的目标函数值（未放置的任务视为跳过）
//
// 各项与权重的组合：
//   - 休息奖励:   break_importance × (可用窗口 − 已排分钟)
//   - 入选奖励:   score × 100（仅可选任务）
//   - 早完成奖励: −early_completion_bonus × 结束分钟 × 优先级值
//   - 晚间惩罚:   结束时间晚于 work_end−60 时 −evening_work_penalty × 100
//   - 连续工作:   −continuous_work_penalty × 10 × max(0, 已排分钟 − max_continuous_work)
//
// 连续工作项是对真实连续时段的宽松近似：惩罚的是全天总负荷超阈值，
// 而非不间断时段本身。
func (s *solver) objective(placements []placement) float64 {
	w := s.m.weights
	total := 0
	obj := 0.0

	for _, p := range placements {
		tv := s.m.tasks[p.taskIdx]
		total += tv.duration

		if !tv.mandatory {
			obj += float64(tv.score) * 100
		}
		obj -= w.EarlyCompletionBonus * float64(p.end) * float64(tv.priorityVal)
		if p.end > s.m.eveningCutoff {
			obj -= w.EveningWorkPenalty * 100
		}
	}

	obj += w.BreakImportance * float64(s.m.availableWindow()-total)

	excess := float64(total) - w.MaxContinuousWork
	if excess > 0 {
		obj -= w.ContinuousWorkPenalty * 10 * excess
	}

	return obj
}
