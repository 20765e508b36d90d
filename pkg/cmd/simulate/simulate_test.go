package simulate

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/trainrace/pkg/model"
	"github.com/mpapenbr/trainrace/pkg/processing/race"
	"github.com/mpapenbr/trainrace/pkg/utils/clock"
	"github.com/mpapenbr/trainrace/testsupport/basedata"
)

func newRace(mock *clock.MockTimeProvider, params model.Params) *race.RaceProcessor {
	return race.NewRaceProcessor(
		race.WithClock(mock),
		race.WithParams(params),
		race.WithTrack(basedata.SampleTrack()),
		race.WithWaypoints(model.TrainRed, basedata.SingleStation()),
		race.WithWaypoints(model.TrainBlue, basedata.MixedLayout()),
	)
}

func TestSimulate(t *testing.T) {
	mock := clock.NewMockTimeProvider(time.Unix(0, 0))
	rp := newRace(mock, basedata.SampleParams())
	frames := 0
	res, err := Simulate(rp, mock, 0.1, 10000, func(model.Frame) { frames++ })
	require.NoError(t, err)

	assert.Equal(t, "finished", res.Status)
	assert.Equal(t, res.Ticks+1, frames)
	require.NotNil(t, res.Outcome)
	assert.Equal(t, model.TrainRed, res.Outcome.Winner.Train, "fewer stops win")
	for _, tf := range res.Trains {
		assert.Equal(t, 1000.0, tf.Position)
		assert.True(t, tf.Finished)
	}
	assert.True(t, strings.HasPrefix(res.OutcomeText, "red wins by"))
}

func TestSimulate_Deterministic(t *testing.T) {
	run := func() *Result {
		mock := clock.NewMockTimeProvider(time.Unix(0, 0))
		res, err := Simulate(newRace(mock, basedata.SampleParams()), mock, 1.0/60, 100000,
			func(model.Frame) {})
		require.NoError(t, err)
		return res
	}
	a, b := run(), run()
	assert.Equal(t, a.Ticks, b.Ticks)
	assert.Equal(t, a.OutcomeText, b.OutcomeText)
}

func TestSimulate_MaxTicks(t *testing.T) {
	mock := clock.NewMockTimeProvider(time.Unix(0, 0))
	params := basedata.SampleParams()
	params.Acceleration = 0
	res, err := Simulate(newRace(mock, params), mock, 0.1, 50, func(model.Frame) {})
	assert.ErrorIs(t, err, ErrNotFinished)
	assert.Equal(t, 50, res.Ticks)
	assert.Equal(t, "running", res.Status)
	assert.Nil(t, res.Outcome)
}

func TestSimulate_InvalidStep(t *testing.T) {
	mock := clock.NewMockTimeProvider(time.Unix(0, 0))
	_, err := Simulate(newRace(mock, basedata.SampleParams()), mock, 0, 10, func(model.Frame) {})
	assert.Error(t, err)
}

func sampleResult(t *testing.T) *Result {
	t.Helper()
	mock := clock.NewMockTimeProvider(time.Unix(0, 0))
	res, err := Simulate(newRace(mock, basedata.SampleParams()), mock, 0.1, 10000,
		func(model.Frame) {})
	require.NoError(t, err)
	return res
}

func TestWrite(t *testing.T) {
	res := sampleResult(t)
	tests := []struct {
		name    string
		output  string
		query   string
		want    []string
		wantErr bool
	}{
		{name: "text", output: "text", want: []string{"finished after", "red wins by", "✓"}},
		{name: "json", output: "json", want: []string{`"status": "finished"`, `"outcomeText"`}},
		{name: "query", output: "json", query: "$.outcome.winner.train", want: []string{"red\n"}},
		{name: "query number", output: "json", query: "$.trains[1].position", want: []string{"1000"}},
		{name: "bad query", output: "json", query: "$[?(@.x == ", wantErr: true},
		{name: "bad format", output: "yaml", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, query = tt.output, tt.query
			t.Cleanup(func() { output, query = "text", "" })
			var buf bytes.Buffer
			err := write(&buf, res)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			for _, w := range tt.want {
				assert.Contains(t, buf.String(), w)
			}
		})
	}
}
