package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daysage/daysage/cmd/server/internal/store"
)

func newDurationFixture(t *testing.T) DurationService {
	t.Helper()
	durations, err := store.NewFileDurationStore(t.TempDir())
	require.NoError(t, err)
	return NewDurationService(durations)
}

func TestPredictFallsBackToDefault(t *testing.T) {
	svc := newDurationFixture(t)

	pred, err := svc.Predict("alice", "writing")
	require.NoError(t, err)
	assert.Equal(t, DefaultDurationEstimate, pred.PredictedMinutes)
	assert.False(t, pred.FromHistory)
	assert.Zero(t, pred.SampleCount)
}

func TestPredictReturnsHistoryMean(t *testing.T) {
	svc := newDurationFixture(t)

	require.NoError(t, svc.RecordActual("alice", "writing", 40))
	require.NoError(t, svc.RecordActual("alice", "writing", 60))
	require.NoError(t, svc.RecordActual("alice", "email", 10))

	pred, err := svc.Predict("alice", "writing")
	require.NoError(t, err)
	assert.Equal(t, 50.0, pred.PredictedMinutes)
	assert.True(t, pred.FromHistory)
	assert.Equal(t, 2, pred.SampleCount)
}
