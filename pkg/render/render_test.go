package render

import (
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/trainrace/pkg/model"
	"github.com/mpapenbr/trainrace/testsupport/basedata"
)

func newScreen(t *testing.T) tcell.SimulationScreen {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	t.Cleanup(screen.Fini)
	screen.SetSize(87, 24)
	return screen
}

func row(screen tcell.Screen, y int) string {
	w, _ := screen.Size()
	var b strings.Builder
	for x := 0; x < w; x++ {
		r, _, _, _ := screen.GetContent(x, y)
		b.WriteRune(r)
	}
	return b.String()
}

func cell(screen tcell.Screen, x, y int) rune {
	r, _, _, _ := screen.GetContent(x, y)
	return r
}

func TestColumn(t *testing.T) {
	tests := []struct {
		name   string
		pos    float64
		length float64
		width  int
		want   int
	}{
		{"start", 0, 1000, 80, 0},
		{"end", 1000, 1000, 80, 79},
		{"middle", 500, 1000, 81, 40},
		{"beyond end", 1200, 1000, 80, 79},
		{"negative", -5, 1000, 80, 0},
		{"zero length", 10, 0, 80, 0},
		{"zero width", 10, 1000, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Column(tt.pos, tt.length, tt.width))
		})
	}
}

func TestTimerText(t *testing.T) {
	finish := 4.2
	assert.Equal(t, "1.50s", TimerText(&model.TrainFrame{Elapsed: 1.5}))
	assert.Equal(t, "1.50s (at station)",
		TimerText(&model.TrainFrame{Elapsed: 1.5, AtStation: true}))
	assert.Equal(t, "✓ 4.20s",
		TimerText(&model.TrainFrame{Elapsed: 4.2, FinishTime: &finish, Finished: true}))
}

func TestRenderer_Draw(t *testing.T) {
	screen := newScreen(t)
	r := NewRenderer(screen)
	finish := 7.25
	v := &View{
		Frame: model.Frame{
			Status:      "running",
			Elapsed:     3.5,
			TrackLength: 1000,
			Trains: []model.TrainFrame{
				{Train: model.TrainRed, Position: 500, AtStation: true, Elapsed: 3.5},
				{
					Train: model.TrainBlue, Position: 1000, Finished: true,
					Elapsed: 7.25, FinishTime: &finish,
				},
			},
		},
		Waypoints: map[model.TrainID][]model.Waypoint{
			model.TrainRed:  basedata.MixedLayout().All(),
			model.TrainBlue: basedata.Stations(250).All(),
		},
		Params:  basedata.SampleParams(),
		Preset:  "normal",
		Outcome: "blue wins by 0.70s (16.7% faster)",
	}
	r.Draw(v)

	// track area is 87-7-1 = 79 columns, position p maps to 7+round(p/1000*78)
	assert.Contains(t, row(screen, 0), "status: running")
	assert.Contains(t, row(screen, 0), "elapsed: 3.50s")

	redRow := topRows
	assert.True(t, strings.HasPrefix(row(screen, redRow), "red   │"))
	assert.Equal(t, glyphTrain, cell(screen, 7+39, redRow), "train drawn over station")
	assert.Equal(t, glyphStation, cell(screen, 7+Column(200, 1000, 79), redRow))
	assert.Equal(t, glyphCrossing, cell(screen, 7+Column(300, 1000, 79), redRow))
	assert.Equal(t, glyphStation, cell(screen, 7+Column(800, 1000, 79), redRow))
	assert.Equal(t, glyphEnd, cell(screen, 7+79, redRow))
	assert.Contains(t, row(screen, redRow+1), "3.50s (at station)")

	blueRow := topRows + trainRows
	assert.Equal(t, glyphTrain, cell(screen, 7+78, blueRow))
	assert.Equal(t, glyphStation, cell(screen, 7+Column(250, 1000, 79), blueRow))
	assert.Contains(t, row(screen, blueRow+1), "✓ 7.25s")

	info := topRows + 2*trainRows
	assert.Contains(t, row(screen, info), "max speed: 100")
	assert.Contains(t, row(screen, info), "(normal)")
	assert.Contains(t, row(screen, info+1), "blue wins by 0.70s")
	assert.Contains(t, row(screen, info+3), "q quit")
}
