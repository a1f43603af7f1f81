package learner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/daysage/daysage/cmd/server/internal/planner"
)

var featDay = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func at(hour, min int) time.Time {
	return featDay.Add(time.Duration(hour)*time.Hour + time.Duration(min)*time.Minute)
}

func featConstraints() planner.Constraints {
	return planner.Constraints{WorkStart: 9 * 60, WorkEnd: 17 * 60, MaxContinuousWork: 90}
}

func TestExtractFeaturesEmptySchedule(t *testing.T) {
	f := ExtractFeatures(nil, nil, featConstraints(), 90)
	assert.Equal(t, FeatureVector{}, f)
	assert.Equal(t, len(FeatureNames), len(f.Values()))
}

func TestExtractFeaturesBasicTotals(t *testing.T) {
	tasks := []planner.ScheduledTask{
		{ID: "a", Priority: planner.PriorityHigh, Start: at(9, 0), End: at(10, 0), Mandatory: true},
		{ID: "b", Priority: planner.PriorityLow, Start: at(11, 0), End: at(11, 30)},
	}
	events := []planner.Event{
		{ID: "e", Start: at(14, 0), End: at(15, 0)},
	}

	f := ExtractFeatures(tasks, events, featConstraints(), 90)

	assert.Equal(t, 2.0, f.TotalTasksScheduled)
	assert.Equal(t, 1.0, f.OptionalTasksScheduled)
	assert.Equal(t, 90.0, f.TotalWorkMinutes)
	assert.Equal(t, 45.0, f.AvgTaskDuration)
	// 可用 480-60 事件 = 420，休息 = 420-90
	assert.Equal(t, 330.0, f.ActualBreakMinutes)
	assert.Equal(t, 0.0, f.ExcessWork)
	assert.Equal(t, 540.0, f.WorkStartTime)
	assert.Equal(t, 690.0, f.WorkEndTime)
	// 唯一的高优先级任务开始于上半段
	assert.Equal(t, 1.0, f.HighPriorityEarly)
	assert.Equal(t, 0.0, f.EveningWork)
}

func TestExtractFeaturesExcessWork(t *testing.T) {
	tasks := []planner.ScheduledTask{
		{ID: "a", Priority: planner.PriorityMedium, Start: at(9, 0), End: at(12, 0), Mandatory: true},
	}
	f := ExtractFeatures(tasks, nil, featConstraints(), 90)
	assert.Equal(t, 90.0, f.ExcessWork)
}

func TestExtractFeaturesEveningFraction(t *testing.T) {
	// 晚间界线 = work_end - 60 = 16:00
	tasks := []planner.ScheduledTask{
		{ID: "a", Priority: planner.PriorityMedium, Start: at(9, 0), End: at(10, 0)},
		{ID: "b", Priority: planner.PriorityMedium, Start: at(16, 0), End: at(16, 30)},
	}
	f := ExtractFeatures(tasks, nil, featConstraints(), 90)
	assert.Equal(t, 0.5, f.EveningWork)
}

func TestLongestStretchMergesSmallGaps(t *testing.T) {
	// 间隔 10 分钟 < 容差 15，视为连续；间隔 60 分钟切断
	tasks := []planner.ScheduledTask{
		{ID: "a", Priority: planner.PriorityMedium, Start: at(9, 0), End: at(10, 0)},
		{ID: "b", Priority: planner.PriorityMedium, Start: at(10, 10), End: at(11, 0)},
		{ID: "c", Priority: planner.PriorityMedium, Start: at(12, 0), End: at(12, 30)},
	}
	f := ExtractFeatures(tasks, nil, featConstraints(), 90)
	assert.Equal(t, 110.0, f.LongestStretch)
}

func TestFeatureVectorValuesOrder(t *testing.T) {
	f := FeatureVector{
		AvgTaskDuration:        1,
		TotalWorkMinutes:       2,
		ActualBreakMinutes:     3,
		OptionalTasksScheduled: 4,
		TotalTasksScheduled:    5,
		ExcessWork:             6,
		WorkStartTime:          7,
		WorkEndTime:            8,
		HighPriorityEarly:      9,
		EveningWork:            10,
		LongestStretch:         11,
	}
	vals := f.Values()
	for i, v := range vals {
		assert.Equal(t, float64(i+1), v, "feature %s out of order", FeatureNames[i])
	}
}
