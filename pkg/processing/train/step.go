// Package train advances a single train along its track.
//
// Step is the pure kinematic update. TrainProcessor wraps it with the
// bookkeeping needed across frames (race record, finish time).
package train

import (
	"math"

	"github.com/mpapenbr/trainrace/pkg/kinematics"
	"github.com/mpapenbr/trainrace/pkg/model"
)

// dwellTolerance absorbs the rounding of accumulated frame deltas, so that
// ten steps of 0.1s complete a dwell of 1s.
const dwellTolerance = 1e-9

// Step advances state by dt seconds and returns the new state. The input
// state is not modified. A non-positive dt returns state unchanged.
//
//nolint:gocritic // params passed by value on purpose
func Step(
	state model.TrainState,
	waypoints []model.Waypoint,
	track model.Track,
	dt float64,
	params model.Params,
) model.TrainState {
	return StepWithModel(
		kinematics.NewConstantAcceleration(params.Acceleration),
		state, waypoints, track, dt, params)
}

// StepWithModel is Step using the given motion model instead of constant
// acceleration derived from params.
//
//nolint:funlen,cyclop,gocritic // keeps the decision order in one place
func StepWithModel(
	m kinematics.MotionModel,
	state model.TrainState,
	waypoints []model.Waypoint,
	track model.Track,
	dt float64,
	params model.Params,
) model.TrainState {
	if dt <= 0 || state.Finished {
		return state
	}
	next := state.Clone()

	// a train never moves while dwelling
	if next.Phase.Kind == model.PhaseDwelling {
		next.Velocity = 0
		next.Motion = model.MotionDwelling
		next.Phase.Elapsed += dt
		if next.Phase.Elapsed >= params.DwellDuration-dwellTolerance {
			next.Phase = model.Phase{Kind: model.PhaseDeparted, StopID: next.Phase.StopID}
		}
		return next
	}
	if next.Phase.Kind == model.PhaseDeparted {
		next.PassedStops[next.Phase.StopID] = struct{}{}
	}
	next.Phase = model.Phase{Kind: model.PhaseIdle}

	pos, v := next.Position, next.Velocity
	nextStop, hasStop := upcoming(waypoints, model.KindStop, pos, track.Length, next.PassedStops)
	nextZone, hasZone := upcoming(
		waypoints, model.KindSpeedZone, pos, track.Length, next.PassedZones)

	target := track.Length
	if hasStop {
		target = nextStop.Position
		next.Phase = model.Phase{Kind: model.PhaseApproaching, StopID: nextStop.ID}
	}

	ceiling := params.MaxSpeed
	zoneCapped := false
	if hasZone {
		zoneSpeed := min(params.ZoneSpeed(), params.MaxSpeed)
		brake := m.BrakingDistanceTo(v, zoneSpeed)
		if !math.IsInf(brake, 1) && nextZone.Position-pos <= brake+params.LookaheadMargin {
			ceiling = zoneSpeed
			zoneCapped = true
		}
	}

	stopDist := m.StoppingDistance(v)
	var newV float64
	switch {
	case v > 0 && !math.IsInf(stopDist, 1) && target-pos <= stopDist:
		newV = m.Decelerate(v, 0, dt)
		next.Motion = model.MotionBrakingForFinish
		if hasStop {
			next.Motion = model.MotionBrakingForStop
		}
	case v > ceiling:
		newV = m.Decelerate(v, ceiling, dt)
		next.Motion = model.MotionDecelerating
		if zoneCapped {
			next.Motion = model.MotionBrakingForZone
		}
	case v < ceiling:
		newV = m.Accelerate(v, ceiling, dt)
		next.Motion = model.MotionAccelerating
	default:
		newV = v
		next.Motion = model.MotionCruising
	}
	if newV <= 0 {
		newV = 0
		next.Motion = model.MotionStill
	}
	newPos := pos + newV*dt

	switch {
	case hasStop && newPos >= nextStop.Position:
		newPos = nextStop.Position
		newV = 0
		next.Phase = model.Phase{Kind: model.PhaseDwelling, StopID: nextStop.ID}
		next.Motion = model.MotionDwelling
	case newPos >= track.Length:
		newPos = track.Length
		newV = 0
		next.Finished = true
		next.Phase = model.Phase{Kind: model.PhaseIdle}
		next.Motion = model.MotionFinished
	}

	// checked against the clamped position: a zone behind a stop the train
	// just halted at has not been crossed yet
	if hasZone && newPos >= nextZone.Position {
		next.PassedZones[nextZone.ID] = struct{}{}
	}

	next.Position = newPos
	next.Velocity = newV
	return next
}

// upcoming returns the nearest waypoint of kind strictly ahead of pos and
// strictly before limit which has not been passed yet.
//
//nolint:whitespace // multiline signature
func upcoming(
	waypoints []model.Waypoint,
	kind model.WaypointKind,
	pos, limit float64,
	passed map[model.WaypointID]struct{},
) (model.Waypoint, bool) {
	for _, w := range model.SortWaypoints(model.OfKind(waypoints, kind)) {
		if w.Position <= pos || w.Position >= limit {
			continue
		}
		if _, ok := passed[w.ID]; ok {
			continue
		}
		return w, true
	}
	return model.Waypoint{}, false
}
