package runstore

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autonomous-car/internal/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBeginAndFinishRun(t *testing.T) {
	s := openTestStore(t)
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	session, err := s.BeginRun(types.RunInfo{
		StartedAt:       started,
		RunID:           4,
		Mode:            types.ModeCVLaneFollow,
		InitialSpeedKmh: 30,
		LaunchSpeedKmh:  31.2,
		LaunchSteering:  -0.01,
	})
	require.NoError(t, err)
	require.NotEmpty(t, session)

	r, err := s.Get(session)
	require.NoError(t, err)
	assert.Equal(t, 4, r.RunID)
	assert.Equal(t, types.ModeCVLaneFollow, r.Mode)
	assert.True(t, r.StartedAt.Equal(started))
	assert.InDelta(t, 31.2, r.LaunchSpeedKmh, 1e-9)
	assert.False(t, r.Finished)
	assert.False(t, r.HasLapTime)

	require.NoError(t, s.FinishRun(session, types.RunResult{
		Outcome: types.OutcomeSuccess, LapTime: 45.5, HasLapTime: true, Ticks: 910,
	}))

	r, err = s.Get(session)
	require.NoError(t, err)
	assert.True(t, r.Finished)
	assert.Equal(t, types.OutcomeSuccess, r.Outcome)
	assert.True(t, r.HasLapTime)
	assert.InDelta(t, 45.5, r.LapTime, 1e-9)
	assert.Equal(t, 910, r.Ticks)
}

func TestFinishRunWithoutLapTime(t *testing.T) {
	s := openTestStore(t)
	session, err := s.BeginRun(types.RunInfo{RunID: 1, Mode: types.ModeLineFollow})
	require.NoError(t, err)

	require.NoError(t, s.FinishRun(session, types.RunResult{Outcome: types.OutcomeTimeout, Ticks: 2400}))
	r, err := s.Get(session)
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeTimeout, r.Outcome)
	assert.False(t, r.HasLapTime)
}

func TestFinishUnknownRun(t *testing.T) {
	s := openTestStore(t)
	assert.Error(t, s.FinishRun("missing", types.RunResult{}))
}

func TestGetUnknownRun(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get("missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestListByMode(t *testing.T) {
	s := openTestStore(t)
	for _, id := range []int{3, 1, 2} {
		_, err := s.BeginRun(types.RunInfo{RunID: id, Mode: types.ModeHybrid})
		require.NoError(t, err)
	}
	_, err := s.BeginRun(types.RunInfo{RunID: 9, Mode: types.ModeLineFollow})
	require.NoError(t, err)

	runs, err := s.ListByMode(types.ModeHybrid)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{runs[0].RunID, runs[1].RunID, runs[2].RunID})
}

func TestSchemaIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	s, err := Open(path)
	require.NoError(t, err)
	session, err := s.BeginRun(types.RunInfo{RunID: 1, Mode: types.ModeLineFollow})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	_, err = s.Get(session)
	assert.NoError(t, err)
}
