package planner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveTargetDate(t *testing.T) {
	now := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)
	explicit := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	due1 := time.Date(2026, 3, 12, 18, 0, 0, 0, time.UTC)
	due2 := time.Date(2026, 3, 11, 8, 0, 0, 0, time.UTC)

	// 显式目标日期优先
	got := resolveTargetDate(explicit, []Task{{Due: &due1}}, now)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), got)

	// 其次取最早截止日
	got = resolveTargetDate(time.Time{}, []Task{{Due: &due1}, {Due: &due2}}, now)
	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), got)

	// 均无则回退当前 UTC 日期
	got = resolveTargetDate(time.Time{}, []Task{{}}, now)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), got)
}

func TestBuildModelMandatoryClassification(t *testing.T) {
	target := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	today := target.Add(20 * time.Hour)
	yesterday := target.Add(-4 * time.Hour)
	nextWeek := target.AddDate(0, 0, 7)

	m, err := buildModel([]Task{
		{ID: "today", Priority: PriorityLow, Duration: 30, Due: &today},
		{ID: "overdue", Priority: PriorityLow, Duration: 30, Due: &yesterday},
		{ID: "later", Priority: PriorityHigh, Duration: 30, Due: &nextWeek},
		{ID: "never", Priority: PriorityHigh, Duration: 30},
	}, nil, workHours9to17(), DefaultWeights(), target)
	require.NoError(t, err)

	byID := map[string]taskVar{}
	for _, tv := range m.tasks {
		byID[tv.task.ID] = tv
	}
	assert.True(t, byID["today"].mandatory)
	assert.True(t, byID["overdue"].mandatory)
	assert.False(t, byID["later"].mandatory)
	assert.False(t, byID["never"].mandatory)
}

func TestBuildModelEventClipping(t *testing.T) {
	target := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	m, err := buildModel(
		[]Task{{ID: "t", Priority: PriorityLow, Duration: 30}},
		[]Event{
			// 完全在时段外，忽略
			{ID: "before", Start: target.Add(6 * time.Hour), End: target.Add(7 * time.Hour)},
			// 跨过下界，裁剪到 09:00
			{ID: "straddle", Start: target.Add(8 * time.Hour), End: target.Add(10 * time.Hour)},
			// 与上一事件重叠，合并
			{ID: "overlap", Start: target.Add(9*time.Hour + 30*time.Minute), End: target.Add(11 * time.Hour)},
		},
		workHours9to17(), DefaultWeights(), target)
	require.NoError(t, err)

	require.Len(t, m.blocks, 1)
	assert.Equal(t, 9*60, m.blocks[0].start)
	assert.Equal(t, 11*60, m.blocks[0].end)
	assert.Equal(t, 120, m.eventMinutes)
	assert.Equal(t, 480-120, m.availableWindow())
}

func TestBuildModelSearchOrder(t *testing.T) {
	target := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	today := target.Add(12 * time.Hour)
	morning := target.Add(10 * time.Hour)
	soon := target.AddDate(0, 0, 2)
	far := target.AddDate(0, 0, 30)

	m, err := buildModel([]Task{
		{ID: "optFar", Priority: PriorityLow, Duration: 30, Due: &far},
		{ID: "mandLow", Priority: PriorityLow, Duration: 30, Due: &today},
		{ID: "optSoon", Priority: PriorityLow, Duration: 30, Due: &soon},
		{ID: "mandHigh", Priority: PriorityHigh, Duration: 30, Due: &today},
		{ID: "mandTight", Priority: PriorityLow, Duration: 30, Due: &morning},
	}, nil, workHours9to17(), DefaultWeights(), target)
	require.NoError(t, err)

	order := make([]string, len(m.tasks))
	for i, tv := range m.tasks {
		order[i] = tv.task.ID
	}
	// 必做在前（截止上界紧者先，再按优先级），可选按得分降序（临近截止者得分高）
	assert.Equal(t, []string{"mandTight", "mandHigh", "mandLow", "optSoon", "optFar"}, order)
}

func TestTaskScore(t *testing.T) {
	// 今日截止得满临近加成
	assert.Equal(t, int64(3*100+5*200), taskScore(3, 0))
	// 临近度随距离衰减
	assert.Equal(t, int64(2*100+3*200), taskScore(2, 2))
	// 超过 5 天无加成，但有 100 下限
	assert.Equal(t, int64(300), taskScore(3, 10))
	assert.Equal(t, int64(100), taskScore(1, 10))
}

func TestMergeBlocks(t *testing.T) {
	merged := mergeBlocks([]block{
		{start: 540, end: 600},
		{start: 580, end: 660},
		{start: 720, end: 780},
	})
	require.Len(t, merged, 2)
	assert.Equal(t, block{start: 540, end: 660}, merged[0])
	assert.Equal(t, block{start: 720, end: 780}, merged[1])
}

func TestConstraintsValidate(t *testing.T) {
	assert.NoError(t, workHours9to17().Validate())
	assert.Error(t, Constraints{WorkStart: 600, WorkEnd: 540}.Validate())
	assert.Error(t, Constraints{WorkStart: -10, WorkEnd: 540}.Validate())
	assert.Error(t, Constraints{WorkStart: 540, WorkEnd: 25 * 60}.Validate())
}
