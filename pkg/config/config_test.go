package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/trainrace/pkg/model"
)

func setDefaults(t *testing.T) {
	t.Helper()
	MaxSpeed = model.DefaultMaxSpeed
	Acceleration = model.DefaultAcceleration
	AccelerationPreset = ""
	StopDuration = model.DefaultDwellDuration
	ZoneSpeedFraction = model.DefaultZoneSpeedFraction
	LookaheadMargin = model.DefaultLookaheadMargin
	TrackLength = 1000
	RedStations, RedCrossings = nil, nil
	BlueStations, BlueCrossings = nil, nil
	NatsURL, NatsWait = "", 0
}

func TestResolveParams(t *testing.T) {
	tests := []struct {
		name     string
		preset   string
		want     float64
		wantErr  bool
		maxSpeed float64
		tune     func()
	}{
		{name: "no preset", want: 50, maxSpeed: 120},
		{name: "slow", preset: "slow", want: 20, maxSpeed: 120},
		{name: "case insensitive", preset: "Dangerous", want: 150, maxSpeed: 120},
		{name: "unknown preset", preset: "warp", wantErr: true, maxSpeed: 120},
		{name: "negative speed", wantErr: true, maxSpeed: -1},
		{
			name: "zone fraction above one", wantErr: true, maxSpeed: 120,
			tune: func() { ZoneSpeedFraction = 1.5 },
		},
		{
			name: "zero zone fraction", wantErr: true, maxSpeed: 120,
			tune: func() { ZoneSpeedFraction = 0 },
		},
		{
			name: "full zone fraction", want: 50, maxSpeed: 120,
			tune: func() { ZoneSpeedFraction = 1 },
		},
		{
			name: "negative lookahead", wantErr: true, maxSpeed: 120,
			tune: func() { LookaheadMargin = -5 },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setDefaults(t)
			AccelerationPreset = tt.preset
			MaxSpeed = tt.maxSpeed
			if tt.tune != nil {
				tt.tune()
			}
			got, err := ResolveParams()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Acceleration)
			assert.Equal(t, model.DefaultDwellDuration, got.DwellDuration)
		})
	}
}

func TestResolve(t *testing.T) {
	setDefaults(t)
	RedStations = []float64{500, 990}
	BlueCrossings = []float64{5, 400}

	cfg, err := Resolve()
	require.NoError(t, err)
	assert.Equal(t, 1000.0, cfg.Track.Length)

	red := cfg.Waypoints[model.TrainRed].Stations()
	require.Len(t, red, 2)
	assert.Equal(t, 500.0, red[0].Position)
	assert.Equal(t, 980.0, red[1].Position, "clamped to the edge margin")

	blue := cfg.Waypoints[model.TrainBlue].Crossings()
	require.Len(t, blue, 2)
	assert.Equal(t, 20.0, blue[0].Position)
}

func TestResolve_Nats(t *testing.T) {
	setDefaults(t)
	NatsURL = "nats://localhost:4222"
	NatsSubjectPrefix = "race"
	NatsWait = 2 * time.Second

	cfg, err := Resolve()
	require.NoError(t, err)
	assert.Equal(t, "nats://localhost:4222", cfg.NatsURL)
	assert.Equal(t, "race", cfg.NatsSubject)
	assert.Equal(t, 2*time.Second, cfg.NatsWait)
}
