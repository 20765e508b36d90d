package basedata

import (
	"github.com/mpapenbr/trainrace/pkg/model"
)

// SampleTrack is the track used by the reference scenario.
func SampleTrack() model.Track {
	return model.NewTrack(1000)
}

// SampleParams: maxSpeed 100, acceleration 50, dwell 1s.
func SampleParams() model.Params {
	return model.Params{
		MaxSpeed:          100,
		Acceleration:      50,
		DwellDuration:     1.0,
		ZoneSpeedFraction: 0.5,
		LookaheadMargin:   50,
	}
}

// SingleStation has one station in the middle of the sample track.
func SingleStation() *model.WaypointSet {
	ws := model.NewWaypointSet()
	ws.Add(model.KindStop, 500, "Central")
	return ws
}

// MixedLayout contains stations and crossings inserted out of order.
func MixedLayout() *model.WaypointSet {
	ws := model.NewWaypointSet()
	ws.Add(model.KindStop, 800, "North")
	ws.Add(model.KindSpeedZone, 300, "Mill lane")
	ws.Add(model.KindStop, 200, "South")
	ws.Add(model.KindSpeedZone, 650, "Church road")
	ws.Add(model.KindStop, 500, "Central")
	return ws
}

// Stations creates a set of stops at the given positions in the given order.
func Stations(positions ...float64) *model.WaypointSet {
	ws := model.NewWaypointSet()
	for _, p := range positions {
		ws.Add(model.KindStop, p, "")
	}
	return ws
}
