package render

import (
	"fmt"
	"math"

	"github.com/gdamore/tcell/v2"
	"github.com/samber/lo"

	"github.com/mpapenbr/trainrace/pkg/model"
)

const (
	glyphTrack    = '─'
	glyphStation  = '■'
	glyphCrossing = '╳'
	glyphTrain    = '▶'
	glyphEnd      = '┃'

	labelWidth = 7 // "blue  │"
	topRows    = 2
	trainRows  = 3
)

// View is everything drawn in one frame.
type View struct {
	Frame     model.Frame
	Waypoints map[model.TrainID][]model.Waypoint
	Params    model.Params
	Preset    string
	Outcome   string
	Message   string
}

type styles struct {
	text     tcell.Style
	title    tcell.Style
	track    tcell.Style
	station  tcell.Style
	crossing tcell.Style
	result   tcell.Style
	help     tcell.Style
	trains   map[model.TrainID]tcell.Style
}

type Renderer struct {
	screen tcell.Screen
	styles styles
}

func NewRenderer(screen tcell.Screen) *Renderer {
	return &Renderer{
		screen: screen,
		styles: styles{
			text:     tcell.StyleDefault,
			title:    tcell.StyleDefault.Bold(true),
			track:    tcell.StyleDefault.Foreground(tcell.ColorGray),
			station:  tcell.StyleDefault.Foreground(tcell.ColorYellow),
			crossing: tcell.StyleDefault.Foreground(tcell.ColorPurple),
			result:   tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true),
			help:     tcell.StyleDefault.Foreground(tcell.ColorGray),
			trains: map[model.TrainID]tcell.Style{
				model.TrainRed:  tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true),
				model.TrainBlue: tcell.StyleDefault.Foreground(tcell.ColorBlue).Bold(true),
			},
		},
	}
}

// Draw clears the screen and renders the view.
func (r *Renderer) Draw(v *View) {
	r.screen.Clear()
	width, _ := r.screen.Size()
	f := &v.Frame

	r.text(0, 0, r.styles.title,
		fmt.Sprintf("Train race  status: %-8s elapsed: %s", f.Status, seconds(f.Elapsed)))

	trackWidth := max(width-labelWidth-1, 2)
	for i, id := range model.Trains {
		row := topRows + i*trainRows
		tf, ok := f.Train(id)
		if !ok {
			continue
		}
		r.drawTrack(row, trackWidth, f.TrackLength, id, v.Waypoints[id], &tf)
	}

	row := topRows + len(model.Trains)*trainRows
	r.text(0, row, r.styles.text, fmt.Sprintf(
		"max speed: %.0f  acceleration: %.0f (%s)  stop: %.1fs",
		v.Params.MaxSpeed, v.Params.Acceleration, v.Preset, v.Params.DwellDuration))
	if v.Outcome != "" {
		r.text(0, row+1, r.styles.result, v.Outcome)
	}
	if v.Message != "" {
		r.text(0, row+2, r.styles.text, v.Message)
	}
	r.text(0, row+3, r.styles.help,
		"s start  p stop  r reset  c clear  1-4 acceleration  +/- speed  q quit")
	r.screen.Show()
}

//nolint:whitespace // multiline signature
func (r *Renderer) drawTrack(
	row, trackWidth int,
	length float64,
	id model.TrainID,
	waypoints []model.Waypoint,
	tf *model.TrainFrame,
) {
	style := r.styles.trains[id]
	r.text(0, row, style, fmt.Sprintf("%-6s│", id))
	for x := 0; x < trackWidth; x++ {
		r.screen.SetContent(labelWidth+x, row, glyphTrack, nil, r.styles.track)
	}
	r.screen.SetContent(labelWidth+trackWidth, row, glyphEnd, nil, r.styles.track)

	for _, kind := range []model.WaypointKind{model.KindSpeedZone, model.KindStop} {
		glyph, wpStyle := glyphCrossing, r.styles.crossing
		if kind == model.KindStop {
			glyph, wpStyle = glyphStation, r.styles.station
		}
		for _, w := range model.OfKind(waypoints, kind) {
			x := labelWidth + Column(w.Position, length, trackWidth)
			r.screen.SetContent(x, row, glyph, nil, wpStyle)
		}
	}
	r.screen.SetContent(labelWidth+Column(tf.Position, length, trackWidth), row,
		glyphTrain, nil, style)

	r.text(labelWidth, row+1, r.styles.text,
		fmt.Sprintf("v %6.1f  pos %7.1f  %s", tf.Velocity, tf.Position, TimerText(tf)))
}

func (r *Renderer) text(x, y int, style tcell.Style, s string) {
	for _, c := range s {
		r.screen.SetContent(x, y, c, nil, style)
		x++
	}
}

// Column maps a track position to a column in [0, width).
func Column(pos, length float64, width int) int {
	if width <= 0 {
		return 0
	}
	if length <= 0 {
		return 0
	}
	ratio := lo.Clamp(pos/length, 0, 1)
	return min(int(math.Round(ratio*float64(width-1))), width-1)
}

// TimerText formats the clock of one train.
func TimerText(tf *model.TrainFrame) string {
	switch {
	case tf.FinishTime != nil:
		return fmt.Sprintf("✓ %s", seconds(*tf.FinishTime))
	case tf.AtStation:
		return fmt.Sprintf("%s (at station)", seconds(tf.Elapsed))
	default:
		return seconds(tf.Elapsed)
	}
}

func seconds(s float64) string {
	return fmt.Sprintf("%.2fs", s)
}
