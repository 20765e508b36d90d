package model

import "slices"

type RaceStatus int

const (
	RaceIdle RaceStatus = iota
	RaceRunning
	RaceStopped
	RaceFinished
)

func (s RaceStatus) String() string {
	switch s {
	case RaceIdle:
		return "idle"
	case RaceRunning:
		return "running"
	case RaceStopped:
		return "stopped"
	case RaceFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// TrainFrame is the per tick output of one train consumed by renderers
// and publishers.
type TrainFrame struct {
	Train      TrainID  `json:"train"`
	Position   float64  `json:"position"`
	Velocity   float64  `json:"velocity"`
	AtStation  bool     `json:"atStation"`
	Finished   bool     `json:"finished"`
	Elapsed    float64  `json:"elapsed"`
	FinishTime *float64 `json:"finishTime,omitempty"`
	Phase      string   `json:"phase"`
	Motion     string   `json:"motion"`
	// Events lists the transitions of the tick that produced this frame.
	Events []string `json:"events,omitempty"`
}

// names of the transitions reported in TrainFrame.Events
const (
	EventArrived    = "arrived"
	EventDeparted   = "departed"
	EventZonePassed = "crossingPassed"
	EventFinished   = "finished"
)

func (f TrainFrame) HasEvent(name string) bool {
	return slices.Contains(f.Events, name)
}

type Frame struct {
	RaceKey     string       `json:"raceKey"`
	Seq         uint64       `json:"seq"`
	Status      string       `json:"status"`
	Elapsed     float64      `json:"elapsed"`
	TrackLength float64      `json:"trackLength"`
	Trains      []TrainFrame `json:"trains"`
}

// Train returns the frame of the given train.
func (f Frame) Train(id TrainID) (TrainFrame, bool) {
	for i := range f.Trains {
		if f.Trains[i].Train == id {
			return f.Trains[i], true
		}
	}
	return TrainFrame{}, false
}
