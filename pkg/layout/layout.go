package layout

import (
	"time"

	"github.com/samber/lo"

	"github.com/mpapenbr/trainrace/pkg/model"
)

// Layout is a named set of station and crossing positions for both trains.
type Layout struct {
	Name      string                        `json:"name"`
	Trains    map[model.TrainID]TrainLayout `json:"trains"`
	UpdatedAt time.Time                     `json:"updatedAt"`
}

type TrainLayout struct {
	Stations      []float64 `json:"stations"`
	Crossings     []float64 `json:"crossings"`
	StationCount  int       `json:"stationCount"`
	CrossingCount int       `json:"crossingCount"`
}

// FromWaypointSets captures the waypoints of the given trains. Positions are
// stored in track order.
func FromWaypointSets(name string, sets map[model.TrainID]*model.WaypointSet) Layout {
	ret := Layout{Name: name, Trains: make(map[model.TrainID]TrainLayout, len(sets))}
	for id, ws := range sets {
		if ws == nil {
			continue
		}
		ret.Trains[id] = newTrainLayout(
			positions(ws.Stations()),
			positions(ws.Crossings()),
		)
	}
	return ret
}

// WaypointSets rebuilds waypoint sets for all trains. Trains missing in the
// layout get an empty set.
func (l Layout) WaypointSets(opts ...model.WaypointSetOption) map[model.TrainID]*model.WaypointSet {
	ret := make(map[model.TrainID]*model.WaypointSet, len(model.Trains))
	for _, id := range model.Trains {
		ws := model.NewWaypointSet(opts...)
		tl := l.Trains[id]
		for _, p := range tl.Stations {
			ws.Add(model.KindStop, p, "")
		}
		for _, p := range tl.Crossings {
			ws.Add(model.KindSpeedZone, p, "")
		}
		ret[id] = ws
	}
	return ret
}

func newTrainLayout(stations, crossings []float64) TrainLayout {
	return TrainLayout{
		Stations:      stations,
		Crossings:     crossings,
		StationCount:  len(stations),
		CrossingCount: len(crossings),
	}
}

func positions(items []model.Waypoint) []float64 {
	return lo.Map(items, func(w model.Waypoint, _ int) float64 { return w.Position })
}
