package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daysage/daysage/cmd/server/internal/audit"
	"github.com/daysage/daysage/cmd/server/internal/planner"
	"github.com/daysage/daysage/cmd/server/internal/store"
)

var svcDay = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

type feedbackFixture struct {
	svc       FeedbackService
	feedback  *store.FileFeedbackStore
	params    *store.FileParamStore
	durations *store.FileDurationStore
}

func newFeedbackFixture(t *testing.T, threshold int) *feedbackFixture {
	t.Helper()
	dir := t.TempDir()

	feedback, err := store.NewFileFeedbackStore(dir)
	require.NoError(t, err)
	params, err := store.NewFileParamStore(dir, planner.Weights{})
	require.NoError(t, err)
	durations, err := store.NewFileDurationStore(dir)
	require.NoError(t, err)
	auditor, err := audit.NewFileLogger(t.TempDir())
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &feedbackFixture{
		svc:       NewFeedbackService(feedback, params, NewDurationService(durations), auditor, logger, threshold),
		feedback:  feedback,
		params:    params,
		durations: durations,
	}
}

func sampleInput(mood int) FeedbackInput {
	return FeedbackInput{
		ScheduledTasks: []planner.ScheduledTask{
			{ID: "t1", Title: "写周报", Priority: planner.PriorityHigh, Duration: 60,
				Start: svcDay.Add(9 * time.Hour), End: svcDay.Add(10 * time.Hour), Mandatory: true},
			{ID: "t2", Title: "复盘", Priority: planner.PriorityLow, Duration: 30,
				Start: svcDay.Add(11 * time.Hour), End: svcDay.Add(11*time.Hour + 30*time.Minute)},
		},
		Constraints:    planner.Constraints{WorkStart: 9 * 60, WorkEnd: 17 * 60, MaxContinuousWork: 90},
		MoodScore:      mood,
		EnergyLevel:    3,
		CompletedTasks: []string{"t1"},
	}
}

func TestRecordValidatesMoodAndEnergy(t *testing.T) {
	fx := newFeedbackFixture(t, 5)

	in := sampleInput(3)
	in.MoodScore = 0
	_, err := fx.svc.Record(context.Background(), "alice", in)
	assert.ErrorIs(t, err, ErrInvalidMoodScore)

	in = sampleInput(3)
	in.MoodScore = 6
	_, err = fx.svc.Record(context.Background(), "alice", in)
	assert.ErrorIs(t, err, ErrInvalidMoodScore)

	in = sampleInput(3)
	in.EnergyLevel = 0
	_, err = fx.svc.Record(context.Background(), "alice", in)
	assert.ErrorIs(t, err, ErrInvalidEnergyLevel)
}

func TestRecordPersistsFeedbackRecord(t *testing.T) {
	fx := newFeedbackFixture(t, 5)

	result, err := fx.svc.Record(context.Background(), "alice", sampleInput(4))
	require.NoError(t, err)
	assert.NotEmpty(t, result.RecordID)
	assert.Equal(t, 1, result.SampleCount)
	assert.False(t, result.WeightsUpdated)

	records, err := fx.feedback.List("alice")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, result.RecordID, records[0].ID)
	assert.Equal(t, 4, records[0].MoodScore)
	// 2 个任务完成 1 个
	assert.Equal(t, 0.5, records[0].CompletionRate)
	assert.Equal(t, 90.0, records[0].Features.TotalWorkMinutes)
}

func TestRecordBelowThresholdKeepsDefaults(t *testing.T) {
	fx := newFeedbackFixture(t, 5)

	for i := 0; i < 4; i++ {
		result, err := fx.svc.Record(context.Background(), "alice", sampleInput(2+i%3))
		require.NoError(t, err)
		assert.False(t, result.WeightsUpdated)
	}

	w, err := fx.params.Get("alice")
	require.NoError(t, err)
	assert.Equal(t, planner.DefaultWeights(), w)
}

func TestRecordConstantFeaturesLeaveWeightsUnchanged(t *testing.T) {
	fx := newFeedbackFixture(t, 5)

	// 特征完全相同的五条反馈：模型训练后无可分裂特征，权重不动
	var last *FeedbackResult
	for i := 0; i < 5; i++ {
		result, err := fx.svc.Record(context.Background(), "alice", sampleInput(3))
		require.NoError(t, err)
		last = result
	}
	assert.Equal(t, 5, last.SampleCount)
	assert.False(t, last.WeightsUpdated)

	w, err := fx.params.Get("alice")
	require.NoError(t, err)
	assert.Equal(t, planner.DefaultWeights(), w)
}

func TestRecordAppendsActualDurations(t *testing.T) {
	fx := newFeedbackFixture(t, 5)

	in := sampleInput(4)
	in.ActualDurations = map[string]float64{"writing": 55, "ignored": -5}
	_, err := fx.svc.Record(context.Background(), "alice", in)
	require.NoError(t, err)

	history, err := fx.durations.History("alice", "writing")
	require.NoError(t, err)
	assert.Equal(t, []float64{55}, history)

	history, err = fx.durations.History("alice", "ignored")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestRecordEmptyScheduleStillAccepted(t *testing.T) {
	fx := newFeedbackFixture(t, 5)

	in := FeedbackInput{
		Constraints: planner.Constraints{WorkStart: 9 * 60, WorkEnd: 17 * 60, MaxContinuousWork: 90},
		MoodScore:   2,
		EnergyLevel: 2,
	}
	result, err := fx.svc.Record(context.Background(), "alice", in)
	require.NoError(t, err)
	assert.Equal(t, 1, result.SampleCount)

	records, err := fx.feedback.List("alice")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Zero(t, records[0].CompletionRate)
}
