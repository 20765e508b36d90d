package race

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mpapenbr/trainrace/log"
	"github.com/mpapenbr/trainrace/pkg/model"
	"github.com/mpapenbr/trainrace/pkg/processing/outcome"
	"github.com/mpapenbr/trainrace/pkg/processing/train"
	"github.com/mpapenbr/trainrace/pkg/utils/clock"
)

var (
	ErrRaceNotIdle       = errors.New("race is not idle")
	ErrInvalidTransition = errors.New("invalid race transition")
)

var meter = otel.Meter("trainrace.race")

type raceMetrics struct {
	ticks      metric.Int64Counter
	finished   metric.Int64Counter
	finishTime metric.Float64Histogram
}

// RaceProcessor drives both trains through a shared race clock.
// Idle -> Running -> (Stopped | Finished), Stopped -> Running,
// any -> Idle via Reset.
type RaceProcessor struct {
	mu        sync.Mutex
	key       string
	status    model.RaceStatus
	trains    [2]*train.TrainProcessor
	params    model.Params
	track     model.Track
	clock     clock.TimeProvider
	startRef  *time.Time
	lastFrame *time.Time
	elapsed   float64
	seq       uint64
	events    [2]train.Events
	initial   [2]*model.WaypointSet
	metrics   raceMetrics
	l         *log.Logger
}

type Option func(rp *RaceProcessor)

func WithClock(c clock.TimeProvider) Option {
	return func(rp *RaceProcessor) {
		rp.clock = c
	}
}

//nolint:gocritic // params passed by value on purpose
func WithParams(params model.Params) Option {
	return func(rp *RaceProcessor) {
		rp.params = params
	}
}

func WithTrack(track model.Track) Option {
	return func(rp *RaceProcessor) {
		rp.track = track
	}
}

// WithWaypoints sets the initial waypoints of the given train.
func WithWaypoints(id model.TrainID, ws *model.WaypointSet) Option {
	return func(rp *RaceProcessor) {
		if i := trainIndex(id); i >= 0 {
			rp.initial[i] = ws
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(rp *RaceProcessor) {
		rp.l = l
	}
}

func NewRaceProcessor(opts ...Option) *RaceProcessor {
	ret := &RaceProcessor{
		key:    uuid.NewString(),
		status: model.RaceIdle,
		params: model.DefaultParams(),
		track:  model.NewTrack(1000),
		clock:  clock.NewMonotonicTimeProvider(),
		l:      log.Default().Named("race"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	for i, id := range model.Trains {
		ret.trains[i] = train.NewTrainProcessor(id,
			train.WithTrack(ret.track),
			train.WithLogger(ret.l.Named("train")),
		)
		ret.trains[i].SetWaypoints(ret.initial[i])
	}
	ret.setupMetrics()
	return ret
}

func (p *RaceProcessor) setupMetrics() {
	var err error
	if p.metrics.ticks, err = meter.Int64Counter("trainrace.race.ticks",
		metric.WithDescription("Number of simulated ticks"),
		metric.WithUnit("{count}")); err != nil {
		p.l.Error("failed to register metric", log.ErrorField(err))
	}
	if p.metrics.finished, err = meter.Int64Counter("trainrace.race.finished",
		metric.WithDescription("Number of trains that reached the track end"),
		metric.WithUnit("{count}")); err != nil {
		p.l.Error("failed to register metric", log.ErrorField(err))
	}
	if p.metrics.finishTime, err = meter.Float64Histogram("trainrace.race.finish_time",
		metric.WithDescription("Finish time of a train"),
		metric.WithUnit("s")); err != nil {
		p.l.Error("failed to register metric", log.ErrorField(err))
	}
}

// Start enters Running from Idle or Stopped. The race start reference is
// captured only when leaving Idle, so paused intervals count towards the
// race clock.
func (p *RaceProcessor) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.status {
	case model.RaceIdle:
		now := p.clock.Now()
		p.startRef = &now
		p.elapsed = 0
		p.l.Info("race started", log.String("raceKey", p.key))
	case model.RaceStopped:
		p.l.Info("race resumed", log.Float("elapsed", p.elapsed))
	case model.RaceRunning, model.RaceFinished:
		return p.invalid("start")
	}
	p.lastFrame = nil
	p.status = model.RaceRunning
	return nil
}

// Stop pauses a running race. Train states are left untouched.
func (p *RaceProcessor) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status != model.RaceRunning {
		return p.invalid("stop")
	}
	p.status = model.RaceStopped
	p.lastFrame = nil
	p.l.Info("race stopped", log.Float("elapsed", p.elapsed))
	return nil
}

// Reset returns to Idle from any state, putting both trains back to the
// origin. A new race key is assigned.
func (p *RaceProcessor) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, tp := range p.trains {
		tp.Reset()
	}
	p.status = model.RaceIdle
	p.startRef = nil
	p.lastFrame = nil
	p.elapsed = 0
	p.seq = 0
	p.events = [2]train.Events{}
	p.key = uuid.NewString()
	p.l.Info("race reset", log.String("raceKey", p.key))
}

// Tick advances both trains by the time passed since the previous tick.
// The first tick after Start or resume uses a zero delta. Outside of
// Running the current frame is returned unchanged.
func (p *RaceProcessor) Tick() model.Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status != model.RaceRunning {
		p.events = [2]train.Events{}
		return p.frame()
	}
	now := p.clock.Now()
	dt := 0.0
	if p.lastFrame != nil {
		dt = max(now.Sub(*p.lastFrame).Seconds(), 0)
	}
	p.lastFrame = &now
	p.elapsed = max(now.Sub(*p.startRef).Seconds(), 0)

	params := p.params
	allFinished := true
	for i, tp := range p.trains {
		p.events[i] = tp.Advance(dt, p.elapsed, params)
		if p.events[i].Has(train.EventFinished) {
			p.recordFinish(tp)
		}
		allFinished = allFinished && tp.Finished()
	}
	p.seq++
	p.metrics.ticks.Add(context.Background(), 1)
	if allFinished {
		p.status = model.RaceFinished
		if res, ok := p.outcome(); ok {
			p.l.Info("race finished", log.String("result", res.String()))
		}
	}
	return p.frame()
}

func (p *RaceProcessor) recordFinish(tp *train.TrainProcessor) {
	rec := tp.Record()
	attrs := metric.WithAttributes(attribute.String("train", string(tp.ID())))
	p.metrics.finished.Add(context.Background(), 1, attrs)
	p.metrics.finishTime.Record(context.Background(), *rec.FinishTime, attrs)
	p.l.Info("train finished",
		log.String("train", string(tp.ID())),
		log.Float("finishTime", *rec.FinishTime))
}

// ClearWaypoints removes all stations and crossings of both trains.
func (p *RaceProcessor) ClearWaypoints() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status != model.RaceIdle {
		return ErrRaceNotIdle
	}
	for _, tp := range p.trains {
		tp.Waypoints().Clear()
	}
	return nil
}

// SetWaypoints replaces the waypoints of one train.
func (p *RaceProcessor) SetWaypoints(id model.TrainID, ws *model.WaypointSet) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status != model.RaceIdle {
		return ErrRaceNotIdle
	}
	tp := p.Train(id)
	if tp == nil {
		return fmt.Errorf("unknown train %q", id)
	}
	tp.SetWaypoints(ws)
	return nil
}

// Simulated reports whether the race left its pristine state. Waypoints
// and tuning should not be edited while this is true.
func (p *RaceProcessor) Simulated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status != model.RaceIdle {
		return true
	}
	for _, tp := range p.trains {
		if !tp.State().AtOrigin() {
			return true
		}
	}
	return false
}

func (p *RaceProcessor) Params() model.Params {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.params
}

// SetParams replaces the tuning parameters. They take effect on the next tick.
//
//nolint:gocritic // params passed by value on purpose
func (p *RaceProcessor) SetParams(params model.Params) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.params = params
}

func (p *RaceProcessor) Status() model.RaceStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *RaceProcessor) Key() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.key
}

func (p *RaceProcessor) Elapsed() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.elapsed
}

func (p *RaceProcessor) Track() model.Track {
	return p.track
}

// Train returns the processor of the given train or nil.
func (p *RaceProcessor) Train(id model.TrainID) *train.TrainProcessor {
	if i := trainIndex(id); i >= 0 {
		return p.trains[i]
	}
	return nil
}

func trainIndex(id model.TrainID) int {
	for i := range model.Trains {
		if model.Trains[i] == id {
			return i
		}
	}
	return -1
}

func (p *RaceProcessor) Frame() model.Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frame()
}

// Outcome returns the comparison of both finish times once both trains
// have finished.
func (p *RaceProcessor) Outcome() (outcome.Result, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outcome()
}

func (p *RaceProcessor) outcome() (outcome.Result, bool) {
	var entries [2]outcome.Entry
	for i, tp := range p.trains {
		rec := tp.Record()
		if !rec.HasFinished() {
			return outcome.Result{}, false
		}
		entries[i] = outcome.Entry{Train: tp.ID(), Time: *rec.FinishTime}
	}
	return outcome.Compare(entries[0], entries[1]), true
}

func (p *RaceProcessor) frame() model.Frame {
	ret := model.Frame{
		RaceKey:     p.key,
		Seq:         p.seq,
		Status:      p.status.String(),
		Elapsed:     p.elapsed,
		TrackLength: p.track.Length,
		Trains:      make([]model.TrainFrame, 0, len(p.trains)),
	}
	for i, tp := range p.trains {
		tf := tp.Snapshot()
		tf.Events = p.events[i].Names()
		ret.Trains = append(ret.Trains, tf)
	}
	return ret
}

func (p *RaceProcessor) invalid(cmd string) error {
	return fmt.Errorf("%s while %s: %w", cmd, p.status, ErrInvalidTransition)
}
