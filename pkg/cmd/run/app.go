package run

import (
	"errors"
	"fmt"

	"github.com/gdamore/tcell/v2"

	"github.com/mpapenbr/trainrace/log"
	"github.com/mpapenbr/trainrace/pkg/model"
	"github.com/mpapenbr/trainrace/pkg/processing/outcome"
	"github.com/mpapenbr/trainrace/pkg/processing/race"
	"github.com/mpapenbr/trainrace/pkg/render"
)

// presetKeys maps the number keys to the acceleration presets.
var presetKeys = map[rune]string{
	'1': "slow",
	'2': "normal",
	'3': "fast",
	'4': "dangerous",
}

// App connects keyboard input, the race processor and the renderer.
type App struct {
	rp       *race.RaceProcessor
	renderer *render.Renderer
	publish  func(model.Frame)
	onFinish func(raceKey string, res outcome.Result)
	message  string
	last     model.Frame
}

func NewApp(rp *race.RaceProcessor, renderer *render.Renderer, publish func(model.Frame)) *App {
	if publish == nil {
		publish = func(model.Frame) {}
	}
	return &App{
		rp:       rp,
		renderer: renderer,
		publish:  publish,
		onFinish: func(string, outcome.Result) {},
	}
}

// OnFinish registers fn to be called once per race when it finishes.
func (a *App) OnFinish(fn func(raceKey string, res outcome.Result)) {
	a.onFinish = fn
}

// HandleKey applies a key press. It returns false if the app should quit.
func (a *App) HandleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyRune:
	default:
		return true
	}
	a.message = ""
	switch r := ev.Rune(); r {
	case 'q':
		return false
	case 's':
		a.report(a.rp.Start())
	case 'p', ' ':
		a.report(a.rp.Stop())
	case 'r':
		a.rp.Reset()
	case 'c':
		a.report(a.rp.ClearWaypoints())
	case '+', '-':
		a.changeMaxSpeed(r)
	case '1', '2', '3', '4':
		a.selectPreset(presetKeys[r])
	}
	return true
}

func (a *App) changeMaxSpeed(r rune) {
	if a.rp.Simulated() {
		a.message = "reset the race to change the speed"
		return
	}
	params := a.rp.Params()
	step := model.MaxSpeedStep
	if r == '-' {
		step = -step
	}
	params.MaxSpeed = min(max(params.MaxSpeed+step, model.MinMaxSpeed), model.MaxMaxSpeed)
	a.rp.SetParams(params)
}

func (a *App) selectPreset(name string) {
	if a.rp.Simulated() {
		a.message = "reset the race to change the acceleration"
		return
	}
	params := a.rp.Params()
	params.Acceleration = model.AccelerationPresets[name]
	a.rp.SetParams(params)
}

func (a *App) report(err error) {
	switch {
	case err == nil:
	case errors.Is(err, race.ErrRaceNotIdle):
		a.message = "waypoints can only be changed before the race"
	default:
		a.message = err.Error()
	}
	if err != nil {
		log.Debug("command rejected", log.ErrorField(err))
	}
}

// Update advances the race by one tick, publishes changed frames and
// redraws the screen.
func (a *App) Update() {
	f := a.rp.Tick()
	if f.Seq != a.last.Seq || f.Status != a.last.Status || f.RaceKey != a.last.RaceKey {
		a.publish(f)
		if f.Status == model.RaceFinished.String() {
			if res, ok := a.rp.Outcome(); ok {
				a.onFinish(f.RaceKey, res)
			}
		}
	}
	a.last = f
	a.renderer.Draw(a.view(&f))
}

func (a *App) view(f *model.Frame) *render.View {
	v := &render.View{
		Frame:     *f,
		Waypoints: make(map[model.TrainID][]model.Waypoint, len(model.Trains)),
		Params:    a.rp.Params(),
		Message:   a.message,
	}
	v.Preset = presetName(v.Params.Acceleration)
	for _, id := range model.Trains {
		v.Waypoints[id] = a.rp.Train(id).Waypoints().All()
	}
	if res, ok := a.rp.Outcome(); ok {
		v.Outcome = res.String()
	}
	return v
}

func presetName(acceleration float64) string {
	for name, v := range model.AccelerationPresets {
		if v == acceleration {
			return name
		}
	}
	return fmt.Sprintf("custom %g", acceleration)
}
