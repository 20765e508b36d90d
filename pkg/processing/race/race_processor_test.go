package race

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/trainrace/pkg/model"
	"github.com/mpapenbr/trainrace/pkg/utils/clock"
	"github.com/mpapenbr/trainrace/testsupport/basedata"
)

const tick = 100 * time.Millisecond

var startTime = time.Date(2024, 4, 28, 11, 10, 12, 0, time.UTC)

func newSampleRace(mock *clock.MockTimeProvider) *RaceProcessor {
	return NewRaceProcessor(
		WithClock(mock),
		WithParams(basedata.SampleParams()),
		WithTrack(basedata.SampleTrack()),
		WithWaypoints(model.TrainRed, basedata.SingleStation()),
	)
}

func trainFrame(t *testing.T, f model.Frame, id model.TrainID) model.TrainFrame {
	t.Helper()
	tf, ok := f.Train(id)
	require.True(t, ok)
	return tf
}

func TestRaceProcessor_Lifecycle(t *testing.T) {
	rp := newSampleRace(clock.NewMockTimeProvider(startTime))
	assert.Equal(t, model.RaceIdle, rp.Status())

	assert.ErrorIs(t, rp.Stop(), ErrInvalidTransition)
	require.NoError(t, rp.Start())
	assert.Equal(t, model.RaceRunning, rp.Status())
	assert.ErrorIs(t, rp.Start(), ErrInvalidTransition)

	require.NoError(t, rp.Stop())
	assert.Equal(t, model.RaceStopped, rp.Status())
	assert.ErrorIs(t, rp.Stop(), ErrInvalidTransition)

	require.NoError(t, rp.Start())
	assert.Equal(t, model.RaceRunning, rp.Status())

	key := rp.Key()
	rp.Reset()
	assert.Equal(t, model.RaceIdle, rp.Status())
	assert.NotEqual(t, key, rp.Key())
	assert.Zero(t, rp.Elapsed())
}

func TestRaceProcessor_FirstTickHasZeroDelta(t *testing.T) {
	mock := clock.NewMockTimeProvider(startTime)
	rp := newSampleRace(mock)
	require.NoError(t, rp.Start())

	mock.Advance(time.Second)
	f := rp.Tick()
	for _, id := range model.Trains {
		tf := trainFrame(t, f, id)
		assert.Zero(t, tf.Position)
		assert.Zero(t, tf.Velocity)
	}
	assert.InDelta(t, 1.0, f.Elapsed, 1e-9)
	assert.Equal(t, uint64(1), f.Seq)
}

func TestRaceProcessor_PauseAndResume(t *testing.T) {
	mock := clock.NewMockTimeProvider(startTime)
	rp := newSampleRace(mock)
	require.NoError(t, rp.Start())
	rp.Tick()
	mock.Advance(tick)
	f := rp.Tick()
	red := trainFrame(t, f, model.TrainRed)
	assert.InDelta(t, 0.5, red.Position, 1e-9)
	assert.InDelta(t, 5.0, red.Velocity, 1e-9)

	require.NoError(t, rp.Stop())
	mock.Advance(5 * time.Second)
	f = rp.Tick()
	assert.Equal(t, "stopped", f.Status)
	assert.InDelta(t, 0.5, trainFrame(t, f, model.TrainRed).Position, 1e-9)

	require.NoError(t, rp.Start())
	f = rp.Tick()
	assert.InDelta(t, 0.5, trainFrame(t, f, model.TrainRed).Position, 1e-9,
		"first tick after resume must not jump")
	assert.InDelta(t, 5.1, f.Elapsed, 1e-9, "race clock includes the pause")

	mock.Advance(tick)
	f = rp.Tick()
	red = trainFrame(t, f, model.TrainRed)
	assert.InDelta(t, 1.5, red.Position, 1e-9)
	assert.InDelta(t, 10.0, red.Velocity, 1e-9)
	assert.InDelta(t, 5.2, red.Elapsed, 1e-9)
}

func TestRaceProcessor_NegativeDeltaIsClamped(t *testing.T) {
	mock := clock.NewMockTimeProvider(startTime)
	rp := newSampleRace(mock)
	require.NoError(t, rp.Start())
	rp.Tick()

	mock.SetTime(startTime.Add(-time.Second))
	f := rp.Tick()
	for _, id := range model.Trains {
		tf := trainFrame(t, f, id)
		assert.Zero(t, tf.Position)
		assert.Zero(t, tf.Velocity)
	}
	assert.Zero(t, f.Elapsed)
}

func TestRaceProcessor_RunToFinish(t *testing.T) {
	mock := clock.NewMockTimeProvider(startTime)
	rp := newSampleRace(mock)
	require.NoError(t, rp.Start())

	seen := map[model.TrainID][]string{}
	f := rp.Tick()
	for i := 0; i < 1000 && rp.Status() == model.RaceRunning; i++ {
		mock.Advance(tick)
		f = rp.Tick()
		for _, tf := range f.Trains {
			seen[tf.Train] = append(seen[tf.Train], tf.Events...)
		}
	}
	require.Equal(t, model.RaceFinished, rp.Status())
	assert.Equal(t, "finished", f.Status)

	assert.Contains(t, seen[model.TrainRed], model.EventArrived)
	assert.Contains(t, seen[model.TrainRed], model.EventDeparted)
	assert.Contains(t, seen[model.TrainRed], model.EventFinished)
	assert.NotContains(t, seen[model.TrainBlue], model.EventArrived)
	assert.Contains(t, seen[model.TrainBlue], model.EventFinished)

	for _, id := range model.Trains {
		tf := trainFrame(t, f, id)
		assert.Equal(t, 1000.0, tf.Position)
		assert.Zero(t, tf.Velocity)
		require.NotNil(t, tf.FinishTime)
		assert.Equal(t, *tf.FinishTime, tf.Elapsed)
	}

	res, ok := rp.Outcome()
	require.True(t, ok)
	assert.False(t, res.Tie)
	assert.Equal(t, model.TrainBlue, res.Winner.Train)
	assert.Greater(t, res.Loser.Time, res.Winner.Time)

	// finished races ignore further ticks and cannot be restarted
	seq := f.Seq
	mock.Advance(tick)
	assert.Equal(t, seq, rp.Tick().Seq)
	assert.ErrorIs(t, rp.Start(), ErrInvalidTransition)

	rp.Reset()
	f = rp.Frame()
	for _, id := range model.Trains {
		tf := trainFrame(t, f, id)
		assert.Zero(t, tf.Position)
		assert.False(t, tf.Finished)
		assert.Nil(t, tf.FinishTime)
	}
	_, ok = rp.Outcome()
	assert.False(t, ok)
}

func TestRaceProcessor_Waypoints(t *testing.T) {
	rp := newSampleRace(clock.NewMockTimeProvider(startTime))
	assert.Equal(t, 1, rp.Train(model.TrainRed).Waypoints().Len())
	assert.Equal(t, 0, rp.Train(model.TrainBlue).Waypoints().Len())

	require.NoError(t, rp.SetWaypoints(model.TrainBlue, basedata.MixedLayout()))
	assert.Equal(t, 5, rp.Train(model.TrainBlue).Waypoints().Len())
	assert.Error(t, rp.SetWaypoints("green", basedata.MixedLayout()))

	require.NoError(t, rp.Start())
	assert.ErrorIs(t, rp.ClearWaypoints(), ErrRaceNotIdle)
	assert.ErrorIs(t, rp.SetWaypoints(model.TrainRed, nil), ErrRaceNotIdle)

	rp.Reset()
	require.NoError(t, rp.ClearWaypoints())
	for _, id := range model.Trains {
		assert.Equal(t, 0, rp.Train(id).Waypoints().Len())
	}
}

func TestRaceProcessor_Simulated(t *testing.T) {
	mock := clock.NewMockTimeProvider(startTime)
	rp := newSampleRace(mock)
	assert.False(t, rp.Simulated())
	require.NoError(t, rp.Start())
	assert.True(t, rp.Simulated())
	rp.Tick()
	mock.Advance(tick)
	rp.Tick()
	require.NoError(t, rp.Stop())
	assert.True(t, rp.Simulated())
	rp.Reset()
	assert.False(t, rp.Simulated())
}

func TestRaceProcessor_ParamsReadEachTick(t *testing.T) {
	mock := clock.NewMockTimeProvider(startTime)
	rp := newSampleRace(mock)
	require.NoError(t, rp.Start())
	rp.Tick()
	mock.Advance(tick)
	rp.Tick()

	params := rp.Params()
	params.Acceleration = 100
	rp.SetParams(params)
	assert.Equal(t, 100.0, rp.Params().Acceleration)

	mock.Advance(tick)
	f := rp.Tick()
	// 5 m/s after the first tick, +10 m/s with the new acceleration
	assert.InDelta(t, 15.0, trainFrame(t, f, model.TrainBlue).Velocity, 1e-9)
}
