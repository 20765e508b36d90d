package model

import "maps"

type TrainID string

const (
	TrainRed  TrainID = "red"
	TrainBlue TrainID = "blue"
)

// Trains lists the racing trains in display order.
var Trains = [2]TrainID{TrainRed, TrainBlue}

type PhaseKind int

const (
	// PhaseIdle: no stop is ahead, heading for the track end.
	PhaseIdle PhaseKind = iota
	// PhaseApproaching: heading for the stop in Phase.StopID.
	PhaseApproaching
	// PhaseDwelling: halted at Phase.StopID for Phase.Elapsed seconds.
	PhaseDwelling
	// PhaseDeparted: dwell is over. The stop becomes passed on the next
	// moving step.
	PhaseDeparted
)

func (k PhaseKind) String() string {
	switch k {
	case PhaseIdle:
		return "idle"
	case PhaseApproaching:
		return "approaching"
	case PhaseDwelling:
		return "dwelling"
	case PhaseDeparted:
		return "departed"
	default:
		return "unknown"
	}
}

// Phase tracks the stop a train is associated with.
type Phase struct {
	Kind    PhaseKind  `json:"kind"`
	StopID  WaypointID `json:"stopId,omitempty"`
	Elapsed float64    `json:"elapsed,omitempty"`
}

type Motion int

const (
	MotionStill Motion = iota
	MotionAccelerating
	MotionCruising
	MotionBrakingForStop
	MotionBrakingForZone
	MotionDecelerating
	MotionDwelling
	MotionFinished
	MotionBrakingForFinish
)

func (m Motion) String() string {
	switch m {
	case MotionStill:
		return "still"
	case MotionAccelerating:
		return "accelerating"
	case MotionCruising:
		return "cruising"
	case MotionBrakingForStop:
		return "braking for station"
	case MotionBrakingForZone:
		return "braking for crossing"
	case MotionDecelerating:
		return "decelerating"
	case MotionDwelling:
		return "dwelling"
	case MotionFinished:
		return "finished"
	case MotionBrakingForFinish:
		return "braking for finish"
	default:
		return "unknown"
	}
}

// TrainState is the physical state of one train.
type TrainState struct {
	Position    float64                 `json:"position"`
	Velocity    float64                 `json:"velocity"`
	Phase       Phase                   `json:"phase"`
	Motion      Motion                  `json:"motion"`
	PassedStops map[WaypointID]struct{} `json:"-"`
	PassedZones map[WaypointID]struct{} `json:"-"`
	Finished    bool                    `json:"finished"`
}

// NewTrainState returns a train at rest at the origin.
func NewTrainState() TrainState {
	return TrainState{
		PassedStops: make(map[WaypointID]struct{}),
		PassedZones: make(map[WaypointID]struct{}),
	}
}

// Clone returns a copy that shares no mutable data with s.
func (s TrainState) Clone() TrainState {
	ret := s
	ret.PassedStops = maps.Clone(s.PassedStops)
	ret.PassedZones = maps.Clone(s.PassedZones)
	if ret.PassedStops == nil {
		ret.PassedStops = make(map[WaypointID]struct{})
	}
	if ret.PassedZones == nil {
		ret.PassedZones = make(map[WaypointID]struct{})
	}
	return ret
}

func (s TrainState) Dwelling() bool {
	return s.Phase.Kind == PhaseDwelling
}

// CurrentStopID returns the stop the train is dwelling at or has just left.
func (s TrainState) CurrentStopID() (WaypointID, bool) {
	switch s.Phase.Kind {
	case PhaseDwelling, PhaseDeparted:
		return s.Phase.StopID, true
	default:
		return 0, false
	}
}

func (s TrainState) DwellElapsed() float64 {
	if s.Phase.Kind != PhaseDwelling {
		return 0
	}
	return s.Phase.Elapsed
}

func (s TrainState) StopPassed(id WaypointID) bool {
	_, ok := s.PassedStops[id]
	return ok
}

func (s TrainState) ZonePassed(id WaypointID) bool {
	_, ok := s.PassedZones[id]
	return ok
}

// AtOrigin reports whether the train has not moved yet.
func (s TrainState) AtOrigin() bool {
	return s.Position == 0 && s.Velocity == 0 && !s.Finished
}

// RaceRecord is the timing bookkeeping of one train.
type RaceRecord struct {
	Elapsed    float64  `json:"elapsed"`
	FinishTime *float64 `json:"finishTime,omitempty"`
	AtStation  bool     `json:"atStation"`
}

func (r RaceRecord) HasFinished() bool {
	return r.FinishTime != nil
}
