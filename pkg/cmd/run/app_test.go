package run

import (
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/trainrace/pkg/model"
	"github.com/mpapenbr/trainrace/pkg/processing/outcome"
	"github.com/mpapenbr/trainrace/pkg/processing/race"
	"github.com/mpapenbr/trainrace/pkg/render"
	"github.com/mpapenbr/trainrace/pkg/utils/clock"
	"github.com/mpapenbr/trainrace/testsupport/basedata"
)

var startTime = time.Date(2024, 4, 28, 11, 10, 12, 0, time.UTC)

type fixture struct {
	app       *App
	rp        *race.RaceProcessor
	mock      *clock.MockTimeProvider
	screen    tcell.SimulationScreen
	published []model.Frame
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	t.Cleanup(screen.Fini)
	screen.SetSize(87, 24)

	f := &fixture{mock: clock.NewMockTimeProvider(startTime), screen: screen}
	f.rp = race.NewRaceProcessor(
		race.WithClock(f.mock),
		race.WithParams(basedata.SampleParams()),
		race.WithTrack(basedata.SampleTrack()),
		race.WithWaypoints(model.TrainRed, basedata.SingleStation()),
	)
	f.app = NewApp(f.rp, render.NewRenderer(screen), func(fr model.Frame) {
		f.published = append(f.published, fr)
	})
	return f
}

func (f *fixture) press(r rune) bool {
	return f.app.HandleKey(tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone))
}

func (f *fixture) screenText() string {
	w, h := f.screen.Size()
	var b strings.Builder
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, _, _, _ := f.screen.GetContent(x, y)
			b.WriteRune(r)
		}
		b.WriteRune('\n')
	}
	return b.String()
}

func TestApp_Lifecycle(t *testing.T) {
	f := newFixture(t)

	assert.True(t, f.press('s'))
	assert.Equal(t, model.RaceRunning, f.rp.Status())
	assert.True(t, f.press('p'))
	assert.Equal(t, model.RaceStopped, f.rp.Status())
	assert.True(t, f.press('s'))
	assert.True(t, f.press(' '))
	assert.Equal(t, model.RaceStopped, f.rp.Status())
	assert.True(t, f.press('r'))
	assert.Equal(t, model.RaceIdle, f.rp.Status())
}

func TestApp_Quit(t *testing.T) {
	f := newFixture(t)
	assert.False(t, f.press('q'))
	assert.False(t, f.app.HandleKey(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone)))
	assert.False(t, f.app.HandleKey(tcell.NewEventKey(tcell.KeyCtrlC, 0, tcell.ModCtrl)))
	assert.True(t, f.app.HandleKey(tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone)))
}

func TestApp_InvalidCommandShowsMessage(t *testing.T) {
	f := newFixture(t)
	f.press('p')
	assert.Contains(t, f.app.message, "invalid")

	f.press('s')
	f.press('c')
	assert.Equal(t, "waypoints can only be changed before the race", f.app.message)
	assert.Equal(t, 1, f.rp.Train(model.TrainRed).Waypoints().Len())

	f.press('r')
	assert.Empty(t, f.app.message)
	f.press('c')
	assert.Empty(t, f.app.message)
	assert.Zero(t, f.rp.Train(model.TrainRed).Waypoints().Len())
}

func TestApp_Tuning(t *testing.T) {
	f := newFixture(t)

	f.press('1')
	assert.InDelta(t, 20.0, f.rp.Params().Acceleration, 1e-9)
	f.press('4')
	assert.InDelta(t, 150.0, f.rp.Params().Acceleration, 1e-9)

	base := f.rp.Params().MaxSpeed
	f.press('+')
	assert.InDelta(t, base+model.MaxSpeedStep, f.rp.Params().MaxSpeed, 1e-9)
	for range 20 {
		f.press('+')
	}
	assert.InDelta(t, model.MaxMaxSpeed, f.rp.Params().MaxSpeed, 1e-9)
	for range 20 {
		f.press('-')
	}
	assert.InDelta(t, model.MinMaxSpeed, f.rp.Params().MaxSpeed, 1e-9)
}

func TestApp_TuningLockedWhileSimulated(t *testing.T) {
	f := newFixture(t)
	f.press('2')
	f.press('s')

	f.press('3')
	assert.InDelta(t, 50.0, f.rp.Params().Acceleration, 1e-9)
	assert.NotEmpty(t, f.app.message)

	speed := f.rp.Params().MaxSpeed
	f.press('+')
	assert.InDelta(t, speed, f.rp.Params().MaxSpeed, 1e-9)
}

func TestApp_UpdatePublishesChangedFrames(t *testing.T) {
	f := newFixture(t)

	f.app.Update()
	f.app.Update()
	require.Len(t, f.published, 1)
	assert.Equal(t, model.RaceIdle.String(), f.published[0].Status)

	f.press('s')
	for range 3 {
		f.app.Update()
		f.mock.Advance(100 * time.Millisecond)
	}
	assert.Len(t, f.published, 4)
	assert.Equal(t, model.RaceRunning.String(), f.published[3].Status)
	assert.Contains(t, f.screenText(), "status: running")
}

func TestApp_Preset(t *testing.T) {
	f := newFixture(t)
	f.press('3')
	f.app.Update()
	assert.Contains(t, f.screenText(), "(fast)")
	assert.Equal(t, "custom 42", presetName(42))
}

func TestApp_FinishHandlerCalledOnce(t *testing.T) {
	f := newFixture(t)
	type finish struct {
		key string
		res outcome.Result
	}
	var finishes []finish
	f.app.OnFinish(func(raceKey string, res outcome.Result) {
		finishes = append(finishes, finish{raceKey, res})
	})

	f.press('s')
	for i := 0; i < 2000 && f.rp.Status() != model.RaceFinished; i++ {
		f.app.Update()
		f.mock.Advance(100 * time.Millisecond)
	}
	require.Equal(t, model.RaceFinished, f.rp.Status())
	for range 5 {
		f.app.Update()
	}

	require.Len(t, finishes, 1)
	assert.Equal(t, f.rp.Key(), finishes[0].key)
	assert.Equal(t, model.TrainBlue, finishes[0].res.Winner.Train)
	assert.Equal(t, model.RaceFinished.String(), f.published[len(f.published)-1].Status)
}
