package train

import (
	"github.com/mpapenbr/trainrace/log"
	"github.com/mpapenbr/trainrace/pkg/model"
)

// Events describes the transitions observed during one Advance call.
type Events uint8

const (
	EventArrived Events = 1 << iota
	EventDeparted
	EventZonePassed
	EventFinished
)

func (e Events) Has(other Events) bool {
	return e&other == other && other != 0
}

// Names returns the frame names of the contained events.
func (e Events) Names() []string {
	var ret []string
	for _, d := range []struct {
		ev   Events
		name string
	}{
		{EventArrived, model.EventArrived},
		{EventDeparted, model.EventDeparted},
		{EventZonePassed, model.EventZonePassed},
		{EventFinished, model.EventFinished},
	} {
		if e.Has(d.ev) {
			ret = append(ret, d.name)
		}
	}
	return ret
}

type TrainProcessor struct {
	id        model.TrainID
	state     model.TrainState
	record    model.RaceRecord
	waypoints *model.WaypointSet
	track     model.Track
	l         *log.Logger
}

type Option func(p *TrainProcessor)

func WithWaypoints(ws *model.WaypointSet) Option {
	return func(p *TrainProcessor) {
		p.waypoints = ws
	}
}

func WithTrack(track model.Track) Option {
	return func(p *TrainProcessor) {
		p.track = track
	}
}

func WithLogger(l *log.Logger) Option {
	return func(p *TrainProcessor) {
		p.l = l
	}
}

func NewTrainProcessor(id model.TrainID, opts ...Option) *TrainProcessor {
	ret := &TrainProcessor{
		id:        id,
		state:     model.NewTrainState(),
		waypoints: model.NewWaypointSet(),
		l:         log.Default().Named("train"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	ret.l = ret.l.With(log.String("train", string(id)))
	return ret
}

// Advance moves the train by dt seconds. raceElapsed is the shared race
// clock; it becomes the finish time on the tick the train finishes.
//
//nolint:gocritic // params passed by value on purpose
func (p *TrainProcessor) Advance(dt, raceElapsed float64, params model.Params) Events {
	prev := p.state
	p.state = Step(prev, p.waypoints.All(), p.track, dt, params)

	events := transitions(prev, p.state)
	p.record.AtStation = p.state.Dwelling()
	switch {
	case p.state.Finished && p.record.FinishTime == nil:
		finishTime := raceElapsed
		p.record.FinishTime = &finishTime
		p.record.Elapsed = finishTime
	case !p.state.Finished:
		p.record.Elapsed = raceElapsed
	}

	if events != 0 {
		p.logEvents(events)
	}
	return events
}

// Reset puts the train back to rest at the origin and clears its record.
func (p *TrainProcessor) Reset() {
	p.state = model.NewTrainState()
	p.record = model.RaceRecord{}
}

func (p *TrainProcessor) ID() model.TrainID {
	return p.id
}

func (p *TrainProcessor) State() model.TrainState {
	return p.state.Clone()
}

func (p *TrainProcessor) Record() model.RaceRecord {
	ret := p.record
	if p.record.FinishTime != nil {
		ft := *p.record.FinishTime
		ret.FinishTime = &ft
	}
	return ret
}

func (p *TrainProcessor) Finished() bool {
	return p.state.Finished
}

func (p *TrainProcessor) Waypoints() *model.WaypointSet {
	return p.waypoints
}

func (p *TrainProcessor) SetWaypoints(ws *model.WaypointSet) {
	if ws == nil {
		ws = model.NewWaypointSet()
	}
	p.waypoints = ws
}

func (p *TrainProcessor) Track() model.Track {
	return p.track
}

func (p *TrainProcessor) SetTrack(track model.Track) {
	p.track = track
}

func (p *TrainProcessor) Snapshot() model.TrainFrame {
	rec := p.Record()
	return model.TrainFrame{
		Train:      p.id,
		Position:   p.state.Position,
		Velocity:   p.state.Velocity,
		AtStation:  rec.AtStation,
		Finished:   p.state.Finished,
		Elapsed:    rec.Elapsed,
		FinishTime: rec.FinishTime,
		Phase:      p.state.Phase.Kind.String(),
		Motion:     p.state.Motion.String(),
	}
}

func (p *TrainProcessor) logEvents(events Events) {
	fields := []log.Field{
		log.Float("position", p.state.Position),
		log.Float("elapsed", p.record.Elapsed),
	}
	if events.Has(EventArrived) {
		p.l.Debug("arrived at station", append(fields, log.Int("stop", int(p.state.Phase.StopID)))...)
	}
	if events.Has(EventDeparted) {
		p.l.Debug("departing station", append(fields, log.Int("stop", int(p.state.Phase.StopID)))...)
	}
	if events.Has(EventZonePassed) {
		p.l.Debug("crossing passed", fields...)
	}
	if events.Has(EventFinished) {
		p.l.Debug("finished", fields...)
	}
}

func transitions(prev, next model.TrainState) Events {
	var ret Events
	if !prev.Dwelling() && next.Dwelling() {
		ret |= EventArrived
	}
	if prev.Dwelling() && next.Phase.Kind == model.PhaseDeparted {
		ret |= EventDeparted
	}
	if len(next.PassedZones) > len(prev.PassedZones) {
		ret |= EventZonePassed
	}
	if !prev.Finished && next.Finished {
		ret |= EventFinished
	}
	return ret
}
