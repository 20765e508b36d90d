package model

// Params is the race wide tuning bundle. It is passed by value into every
// tick so that edits between ticks take effect on the next one.
type Params struct {
	MaxSpeed          float64 `json:"maxSpeed"`
	Acceleration      float64 `json:"acceleration"`
	DwellDuration     float64 `json:"dwellDuration"`
	ZoneSpeedFraction float64 `json:"zoneSpeedFraction"`
	// LookaheadMargin is added to the braking distance when deciding whether
	// an upcoming speed zone already caps the speed.
	LookaheadMargin float64 `json:"lookaheadMargin"`
}

const (
	DefaultMaxSpeed          = 120.0
	DefaultAcceleration      = 50.0
	DefaultDwellDuration     = 0.5
	DefaultZoneSpeedFraction = 0.5
	DefaultLookaheadMargin   = 50.0
)

func DefaultParams() Params {
	return Params{
		MaxSpeed:          DefaultMaxSpeed,
		Acceleration:      DefaultAcceleration,
		DwellDuration:     DefaultDwellDuration,
		ZoneSpeedFraction: DefaultZoneSpeedFraction,
		LookaheadMargin:   DefaultLookaheadMargin,
	}
}

func (p Params) ZoneSpeed() float64 {
	return p.MaxSpeed * p.ZoneSpeedFraction
}

// AccelerationPresets are the named choices offered by the controls.
var AccelerationPresets = map[string]float64{
	"slow":      20,
	"normal":    50,
	"fast":      100,
	"dangerous": 150,
}

// DwellPresets are the stop durations offered by the controls.
var DwellPresets = []float64{0.2, 0.5, 1, 1.5, 2}

const (
	MinMaxSpeed  = 80.0
	MaxMaxSpeed  = 200.0
	MaxSpeedStep = 10.0
)
