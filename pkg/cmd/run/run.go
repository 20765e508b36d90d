package run

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/mpapenbr/trainrace/log"
	"github.com/mpapenbr/trainrace/pkg/cmd/util"
	"github.com/mpapenbr/trainrace/pkg/config"
	"github.com/mpapenbr/trainrace/pkg/model"
	"github.com/mpapenbr/trainrace/pkg/processing/outcome"
	"github.com/mpapenbr/trainrace/pkg/render"
	"github.com/mpapenbr/trainrace/pkg/sound"
	"github.com/mpapenbr/trainrace/pkg/utils/broadcast"
	"github.com/mpapenbr/trainrace/pkg/utils/clock"
)

var mute bool

func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "starts the interactive race in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRace(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&config.LogFile, "log-file", "trainrace.log",
		"log destination (the terminal is used by the race display)")
	cmd.Flags().BoolVar(&mute, "mute", false,
		"disables the arrival and finish chimes")
	return cmd
}

//nolint:funlen,cyclop // wiring of the optional collaborators
func runRace(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logFile, err := os.OpenFile(config.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	logger := util.SetupLogger(logFile)
	//nolint:errcheck // nothing to do on failure
	defer logger.Sync()

	shutdown := util.StartTelemetry(ctx, logger)
	defer shutdown()

	cfg, err := util.ResolveConfig(ctx)
	if err != nil {
		return err
	}
	rp := util.NewRace(cfg, clock.NewMonotonicTimeProvider())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	frames := make(chan model.Frame, 1)
	bs := broadcast.NewBroadcastServer("frames", frames,
		broadcast.WithTelemetry[model.Frame]("run"))
	defer bs.Close()

	var player sound.Player = sound.NoopPlayer{}
	if !mute {
		if sp, err := sound.NewSpeakerPlayer(); err == nil {
			player = sp
		} else {
			logger.Warn("audio not available", log.ErrorField(err))
		}
	}
	defer player.Close()
	go sound.NewNotifier(player).Run(ctx, bs.Subscribe())

	var onFinish func(string, outcome.Result)
	if cfg.NatsURL != "" {
		pub, err := util.ConnectPublisher(ctx, cfg)
		if err != nil {
			return err
		}
		defer pub.Close()
		go pub.Run(ctx, bs.Subscribe())
		onFinish = func(raceKey string, res outcome.Result) {
			pub.PublishOutcomeOnce(raceKey, res)
		}
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	app := NewApp(rp, render.NewRenderer(screen), func(f model.Frame) {
		select {
		case frames <- f:
		case <-ctx.Done():
		}
	})
	if onFinish != nil {
		app.OnFinish(onFinish)
	}
	loop(ctx, screen, app)
	logger.Info("race display closed")
	return nil
}

func loop(ctx context.Context, screen tcell.Screen, app *App) {
	ticker := time.NewTicker(16 * time.Millisecond) // ~60 FPS
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			eventChan <- ev
		}
	}()

	app.Update()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-eventChan:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if !app.HandleKey(ev) {
					return
				}
			case *tcell.EventResize:
				screen.Sync()
			}
		case <-ticker.C:
			app.Update()
		}
	}
}
