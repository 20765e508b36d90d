package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/mpapenbr/trainrace/pkg/model"
)

// this holds the resolved configuration values from CLI
//
//nolint:lll // readablity
var (
	LogLevel           string        // sets the log level (zap log level values)
	LogFormat          string        // text vs json
	LogFile            string        // log destination of the interactive command
	LogFilter          string        // zapfilter rules, e.g. "debug:race.*"
	EnableTelemetry    bool          // enable telemetry
	TelemetryEndpoint  string        // endpoint for telemetry
	TelemetryStdout    bool          // write metrics to stdout instead of the endpoint
	MaxSpeed           float64       // top speed of both trains
	Acceleration       float64       // acceleration and braking rate
	AccelerationPreset string        // named acceleration, overrides Acceleration
	StopDuration       float64       // dwell time at stations in seconds
	ZoneSpeedFraction  float64       // crossing speed as fraction of MaxSpeed
	LookaheadMargin    float64       // extra distance when slowing down for crossings
	TrackLength        float64       // length of both tracks
	RedStations        []float64     // station positions of the red train
	RedCrossings       []float64     // crossing positions of the red train
	BlueStations       []float64     // station positions of the blue train
	BlueCrossings      []float64     // crossing positions of the blue train
	Layout             string        // name of a stored layout to load
	LayoutDB           string        // path of the layout database
	NatsURL            string        // NATS server, empty disables publishing
	NatsSubjectPrefix  string        // prefix of published subjects
	NatsWait           time.Duration // wait for the NATS server to become reachable
)

// EdgeMargin is the distance kept between waypoints and the track ends.
const EdgeMargin = 20.0

// Config holds the configuration values which are used by the application
type Config struct {
	Params      model.Params
	Track       model.Track
	Waypoints   map[model.TrainID]*model.WaypointSet
	LayoutName  string
	NatsURL     string
	NatsSubject string
	NatsWait    time.Duration
}

// Resolve builds the application config from the flag values.
func Resolve() (*Config, error) {
	params, err := ResolveParams()
	if err != nil {
		return nil, err
	}
	track := model.NewTrack(TrackLength)
	return &Config{
		Params: params,
		Track:  track,
		Waypoints: map[model.TrainID]*model.WaypointSet{
			model.TrainRed:  NewWaypointSet(track, RedStations, RedCrossings),
			model.TrainBlue: NewWaypointSet(track, BlueStations, BlueCrossings),
		},
		LayoutName:  Layout,
		NatsURL:     NatsURL,
		NatsSubject: NatsSubjectPrefix,
		NatsWait:    NatsWait,
	}, nil
}

// ResolveParams combines the tuning flags. A non empty acceleration preset
// replaces the acceleration value.
func ResolveParams() (model.Params, error) {
	params := model.Params{
		MaxSpeed:          MaxSpeed,
		Acceleration:      Acceleration,
		DwellDuration:     StopDuration,
		ZoneSpeedFraction: ZoneSpeedFraction,
		LookaheadMargin:   LookaheadMargin,
	}
	if AccelerationPreset != "" {
		v, ok := model.AccelerationPresets[strings.ToLower(AccelerationPreset)]
		if !ok {
			names := lo.Keys(model.AccelerationPresets)
			slices.Sort(names)
			return params, fmt.Errorf("unknown acceleration preset %q (valid: %s)",
				AccelerationPreset, strings.Join(names, ", "))
		}
		params.Acceleration = v
	}
	if params.MaxSpeed < 0 || params.Acceleration < 0 || params.DwellDuration < 0 ||
		params.LookaheadMargin < 0 {
		return params, fmt.Errorf("negative tuning values are not allowed: %+v", params)
	}
	if params.ZoneSpeedFraction <= 0 || params.ZoneSpeedFraction > 1 {
		return params, fmt.Errorf("zone speed fraction %g is not in (0, 1]",
			params.ZoneSpeedFraction)
	}
	return params, nil
}

// NewWaypointSet creates a waypoint set for the given track. Positions are
// kept EdgeMargin away from both track ends.
func NewWaypointSet(track model.Track, stations, crossings []float64) *model.WaypointSet {
	ws := model.NewWaypointSet(model.WithBounds(EdgeMargin, track.Length-EdgeMargin))
	for _, p := range stations {
		ws.Add(model.KindStop, p, "")
	}
	for _, p := range crossings {
		ws.Add(model.KindSpeedZone, p, "")
	}
	return ws
}
