package api

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/daysage/daysage/cmd/server/internal/planner"
)

// flexID 兼容字符串与数字两种 JSON 形态的 ID
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexID(n.String())
		return nil
	}
	return fmt.Errorf("id must be a string or number")
}

// taskDTO 请求中的待排程任务
type taskDTO struct {
	ID                flexID  `json:"id"`
	Title             string  `json:"title"`
	Priority          string  `json:"priority"`
	EstimatedDuration int     `json:"estimated_duration"`
	Due               *string `json:"due,omitempty"`
}

// eventDTO 请求中的日历事件，起止为 ISO 时间串
type eventDTO struct {
	ID    flexID `json:"id"`
	Title string `json:"title"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// workHoursDTO 工作时段，HH:MM 格式
type workHoursDTO struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// constraintsDTO 排程硬约束
type constraintsDTO struct {
	WorkHours            workHoursDTO `json:"work_hours"`
	MaxContinuousWorkMin *int         `json:"max_continuous_work_min,omitempty"`
}

// scheduleRequestDTO POST /api/v1/schedule/optimize 请求体
type scheduleRequestDTO struct {
	Tasks            []taskDTO      `json:"tasks"`
	CalendarEvents   []eventDTO     `json:"calendar_events"`
	Constraints      constraintsDTO `json:"constraints"`
	OptimizationGoal string         `json:"optimization_goal,omitempty"`
	TargetDate       string         `json:"target_date,omitempty"`
}

// scheduledTaskDTO 响应中的已排任务
type scheduledTaskDTO struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	Priority          string `json:"priority"`
	EstimatedDuration int    `json:"estimated_duration"`
	Start             string `json:"start"`
	End               string `json:"end"`
	Mandatory         bool   `json:"mandatory"`
}

// scheduleResponseDTO 排程响应
type scheduleResponseDTO struct {
	Status         string             `json:"status"`
	ScheduledTasks []scheduledTaskDTO `json:"scheduled_tasks"`
	Code           string             `json:"code,omitempty"`
	Message        string             `json:"message,omitempty"`
	Diagnostics    interface{}        `json:"diagnostics,omitempty"`
}

// feedbackItemDTO 用户反馈主体
type feedbackItemDTO struct {
	MoodScore       int                `json:"mood_score"`
	EnergyLevel     *int               `json:"energy_level,omitempty"`
	AdjustedTasks   []adjustedTaskDTO  `json:"adjusted_tasks"`
	CompletedTasks  []flexID           `json:"completed_tasks"`
	ActualDurations map[string]float64 `json:"actual_durations,omitempty"`
}

// adjustedTaskDTO 被用户手工挪动的任务
type adjustedTaskDTO struct {
	ID flexID `json:"id"`
}

// scheduleDataDTO 反馈针对的排程快照
type scheduleDataDTO struct {
	ScheduledTasks []scheduledTaskDTO `json:"scheduled_tasks"`
	CalendarEvents []eventDTO         `json:"calendar_events"`
	Constraints    constraintsDTO     `json:"constraints"`
}

// feedbackRequestDTO POST /api/v1/schedule/feedback 请求体
type feedbackRequestDTO struct {
	ScheduleData scheduleDataDTO `json:"schedule_data"`
	FeedbackData feedbackItemDTO `json:"feedback_data"`
}

// predictDurationRequestDTO POST /api/v1/predict_duration 请求体
type predictDurationRequestDTO struct {
	TaskType string `json:"task_type"`
}

// loginRequestDTO POST /api/v1/auth/login 请求体
type loginRequestDTO struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// parseClockMinutes 解析 HH:MM 为当天零点起的分钟数
func parseClockMinutes(s string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 24 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h*60 + m, nil
}

// parseISOTime 解析 ISO-8601 时间串，兼容尾缀 Z
func parseISOTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05", s)
}

// toPlannerConstraints DTO → planner.Constraints
func toPlannerConstraints(dto constraintsDTO) (planner.Constraints, error) {
	start, err := parseClockMinutes(dto.WorkHours.Start)
	if err != nil {
		return planner.Constraints{}, err
	}
	end, err := parseClockMinutes(dto.WorkHours.End)
	if err != nil {
		return planner.Constraints{}, err
	}
	maxCont := 90
	if dto.MaxContinuousWorkMin != nil {
		maxCont = *dto.MaxContinuousWorkMin
	}
	return planner.Constraints{WorkStart: start, WorkEnd: end, MaxContinuousWork: maxCont}, nil
}

// toPlannerRequest DTO → planner.Request
// 无法解析的 due 按无截止处理（任务变为可选），不报错
func toPlannerRequest(dto scheduleRequestDTO) (planner.Request, error) {
	req := planner.Request{}

	constraints, err := toPlannerConstraints(dto.Constraints)
	if err != nil {
		return req, err
	}
	req.Constraints = constraints

	for _, t := range dto.Tasks {
		task := planner.Task{
			ID:       string(t.ID),
			Title:    t.Title,
			Priority: planner.Priority(t.Priority),
			Duration: t.EstimatedDuration,
		}
		if task.Priority == "" {
			task.Priority = planner.PriorityMedium
		}
		if t.Due != nil && *t.Due != "" {
			if due, err := parseISOTime(*t.Due); err == nil {
				task.Due = &due
			}
		}
		req.Tasks = append(req.Tasks, task)
	}

	for _, e := range dto.CalendarEvents {
		start, err := parseISOTime(e.Start)
		if err != nil {
			return req, fmt.Errorf("event %s: %w", e.ID, err)
		}
		end, err := parseISOTime(e.End)
		if err != nil {
			return req, fmt.Errorf("event %s: %w", e.ID, err)
		}
		req.Events = append(req.Events, planner.Event{ID: string(e.ID), Title: e.Title, Start: start, End: end})
	}

	if dto.TargetDate != "" {
		if target, err := parseISOTime(dto.TargetDate); err == nil {
			req.TargetDate = target
		}
	}

	return req, nil
}

// toScheduledTaskDTOs planner 输出 → 响应 DTO
func toScheduledTaskDTOs(tasks []planner.ScheduledTask) []scheduledTaskDTO {
	out := make([]scheduledTaskDTO, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, scheduledTaskDTO{
			ID:                t.ID,
			Title:             t.Title,
			Priority:          string(t.Priority),
			EstimatedDuration: t.Duration,
			Start:             t.Start.UTC().Format(time.RFC3339),
			End:               t.End.UTC().Format(time.RFC3339),
			Mandatory:         t.Mandatory,
		})
	}
	return out
}

// fromScheduledTaskDTOs 反馈快照 DTO → planner 结构
// 起止无法解析的任务跳过，保证特征提取总能进行
func fromScheduledTaskDTOs(dtos []scheduledTaskDTO) []planner.ScheduledTask {
	out := make([]planner.ScheduledTask, 0, len(dtos))
	for _, d := range dtos {
		start, err1 := parseISOTime(d.Start)
		end, err2 := parseISOTime(d.End)
		if err1 != nil || err2 != nil {
			continue
		}
		priority := planner.Priority(d.Priority)
		if priority == "" {
			priority = planner.PriorityMedium
		}
		out = append(out, planner.ScheduledTask{
			ID:        d.ID,
			Title:     d.Title,
			Priority:  priority,
			Duration:  d.EstimatedDuration,
			Start:     start,
			End:       end,
			Mandatory: d.Mandatory,
		})
	}
	return out
}

// fromEventDTOs 反馈快照中的事件 → planner 结构
func fromEventDTOs(dtos []eventDTO) []planner.Event {
	out := make([]planner.Event, 0, len(dtos))
	for _, d := range dtos {
		start, err1 := parseISOTime(d.Start)
		end, err2 := parseISOTime(d.End)
		if err1 != nil || err2 != nil {
			continue
		}
		out = append(out, planner.Event{ID: string(d.ID), Title: d.Title, Start: start, End: end})
	}
	return out
}
