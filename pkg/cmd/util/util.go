package util

import (
	"context"
	"fmt"
	"io"
	"time"

	otlpruntime "go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/mpapenbr/trainrace/log"
	"github.com/mpapenbr/trainrace/pkg/config"
	"github.com/mpapenbr/trainrace/pkg/layout"
	"github.com/mpapenbr/trainrace/pkg/model"
	"github.com/mpapenbr/trainrace/pkg/processing/race"
	"github.com/mpapenbr/trainrace/pkg/publish"
	"github.com/mpapenbr/trainrace/pkg/utils"
	"github.com/mpapenbr/trainrace/pkg/utils/clock"
)

func ParseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

// SetupLogger creates the logger configured by the log flags and installs
// it as default logger.
func SetupLogger(w io.Writer) *log.Logger {
	var logger *log.Logger
	switch config.LogFormat {
	case "json":
		logger = log.New(
			w,
			ParseLogLevel(config.LogLevel, log.InfoLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1),
			log.WithFilter(config.LogFilter))
	default:
		logger = log.DevLogger(
			w,
			ParseLogLevel(config.LogLevel, log.DebugLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1),
			log.WithFilter(config.LogFilter))
	}
	log.ResetDefault(logger)
	return logger
}

// StartTelemetry enables metric export if requested. The returned shutdown
// function is never nil.
func StartTelemetry(ctx context.Context, logger *log.Logger) func() {
	if !config.EnableTelemetry {
		return func() {}
	}
	logger.Info("Enabling telemetry")
	telemetry, err := config.SetupTelemetry(ctx)
	if err != nil {
		logger.Warn("Could not setup telemetry", log.ErrorField(err))
		return func() {}
	}
	err = otlpruntime.Start(otlpruntime.WithMinimumReadMemStatsInterval(time.Second))
	if err != nil {
		logger.Warn("Could not start runtime metrics", log.ErrorField(err))
	}
	return telemetry.Shutdown
}

// ResolveConfig resolves the flags and replaces the waypoints by the stored
// layout if one is requested.
func ResolveConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Resolve()
	if err != nil {
		return nil, err
	}
	if cfg.LayoutName == "" {
		return cfg, nil
	}
	store, err := layout.Open(config.LayoutDB)
	if err != nil {
		return nil, err
	}
	//nolint:errcheck // read only access
	defer store.Close()
	l, err := store.Load(ctx, cfg.LayoutName)
	if err != nil {
		return nil, err
	}
	cfg.Waypoints = l.WaypointSets(
		model.WithBounds(config.EdgeMargin, cfg.Track.Length-config.EdgeMargin))
	log.Info("using stored layout", log.String("layout", l.Name))
	return cfg, nil
}

// NewRace creates a race processor for the resolved config.
func NewRace(cfg *config.Config, tp clock.TimeProvider) *race.RaceProcessor {
	opts := []race.Option{
		race.WithClock(tp),
		race.WithParams(cfg.Params),
		race.WithTrack(cfg.Track),
	}
	for id, ws := range cfg.Waypoints {
		opts = append(opts, race.WithWaypoints(id, ws))
	}
	return race.NewRaceProcessor(opts...)
}

// ConnectPublisher connects to the configured NATS server. If a wait
// duration is configured the server is polled until it accepts connections.
func ConnectPublisher(ctx context.Context, cfg *config.Config) (*publish.Publisher, error) {
	if cfg.NatsWait > 0 {
		addr := utils.ExtractFromNatsURL(cfg.NatsURL)
		if addr == "" {
			return nil, fmt.Errorf("cannot extract address from %q", cfg.NatsURL)
		}
		if err := utils.WaitForTCP(ctx, addr, cfg.NatsWait); err != nil {
			return nil, err
		}
	}
	return publish.Connect(cfg.NatsURL, publish.WithSubjectPrefix(cfg.NatsSubject))
}
