package simulate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"

	"github.com/mpapenbr/trainrace/log"
	"github.com/mpapenbr/trainrace/pkg/cmd/util"
	"github.com/mpapenbr/trainrace/pkg/model"
	"github.com/mpapenbr/trainrace/pkg/processing/outcome"
	"github.com/mpapenbr/trainrace/pkg/processing/race"
	"github.com/mpapenbr/trainrace/pkg/render"
	"github.com/mpapenbr/trainrace/pkg/utils/broadcast"
	"github.com/mpapenbr/trainrace/pkg/utils/clock"
)

var (
	dt       float64
	maxTicks int
	output   string
	query    string
)

var ErrNotFinished = errors.New("race did not finish")

func NewSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "runs a race with a fixed time step and prints the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(cmd.Context(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().Float64Var(&dt, "dt", 1.0/60,
		"simulated seconds per tick")
	cmd.Flags().IntVar(&maxTicks, "max-ticks", 100000,
		"abort after this number of ticks")
	cmd.Flags().StringVar(&output, "output", "text",
		"output format (text, json)")
	cmd.Flags().StringVar(&query, "query", "",
		"JSONPath expression applied to the json result, e.g. $.outcome.winner.train")
	return cmd
}

// Result is the summary of a simulated race.
type Result struct {
	RaceKey     string             `json:"raceKey"`
	Ticks       int                `json:"ticks"`
	Dt          float64            `json:"dt"`
	Status      string             `json:"status"`
	Elapsed     float64            `json:"elapsed"`
	Trains      []model.TrainFrame `json:"trains"`
	Outcome     *outcome.Result    `json:"outcome,omitempty"`
	OutcomeText string             `json:"outcomeText,omitempty"`
}

//nolint:funlen // setup of optional collaborators
func runSimulation(ctx context.Context, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := util.SetupLogger(os.Stderr)
	shutdown := util.StartTelemetry(ctx, logger)
	defer shutdown()

	cfg, err := util.ResolveConfig(ctx)
	if err != nil {
		return err
	}
	mock := clock.NewMockTimeProvider(time.Unix(0, 0))
	rp := util.NewRace(cfg, mock)

	sink := func(model.Frame) {}
	if cfg.NatsURL != "" {
		pub, err := util.ConnectPublisher(ctx, cfg)
		if err != nil {
			return err
		}
		defer pub.Close()
		frames := make(chan model.Frame)
		bs := broadcast.NewBroadcastServer("frames", frames,
			broadcast.WithTelemetry[model.Frame](rp.Key()))
		done := make(chan struct{})
		sub := bs.Subscribe()
		go func() {
			pub.Run(ctx, sub)
			close(done)
		}()
		defer func() {
			bs.Close()
			<-done
		}()
		sink = func(f model.Frame) { frames <- f }
	}

	res, err := Simulate(rp, mock, dt, maxTicks, sink)
	if err != nil && !errors.Is(err, ErrNotFinished) {
		return err
	}
	if err != nil {
		logger.Warn("race aborted", log.Int("ticks", res.Ticks))
	}
	if wErr := write(w, res); wErr != nil {
		return wErr
	}
	return err
}

// Simulate runs the race from start until both trains have finished or
// maxTicks ticks have been simulated. Every frame is passed to sink.
//
//nolint:whitespace // multiline signature
func Simulate(
	rp *race.RaceProcessor,
	mock *clock.MockTimeProvider,
	step float64,
	maxTicks int,
	sink func(model.Frame),
) (*Result, error) {
	if step <= 0 {
		return nil, fmt.Errorf("dt must be positive: %v", step)
	}
	if err := rp.Start(); err != nil {
		return nil, err
	}
	start := mock.Now()
	f := rp.Tick()
	sink(f)
	ticks := 0
	for ticks < maxTicks && rp.Status() == model.RaceRunning {
		ticks++
		// absolute times avoid accumulating rounding of the step
		mock.SetTime(start.Add(clock.FromSeconds(float64(ticks) * step)))
		f = rp.Tick()
		sink(f)
	}
	res := &Result{
		RaceKey: f.RaceKey,
		Ticks:   ticks,
		Dt:      step,
		Status:  f.Status,
		Elapsed: f.Elapsed,
		Trains:  f.Trains,
	}
	if o, ok := rp.Outcome(); ok {
		res.Outcome = &o
		res.OutcomeText = o.String()
	}
	if rp.Status() != model.RaceFinished {
		return res, ErrNotFinished
	}
	return res, nil
}

func write(w io.Writer, res *Result) error {
	switch output {
	case "json":
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		if query == "" {
			_, err = fmt.Fprintln(w, string(data))
			return err
		}
		return writeQuery(w, data, query)
	case "text", "":
		return writeText(w, res)
	default:
		return fmt.Errorf("unknown output format %q", output)
	}
}

// writeQuery prints every value matched by the JSONPath expression.
func writeQuery(w io.Writer, data []byte, expr string) error {
	obj, err := oj.Parse(data)
	if err != nil {
		return err
	}
	path, err := jp.ParseString(expr)
	if err != nil {
		return fmt.Errorf("invalid query %q: %w", expr, err)
	}
	for _, v := range path.Get(obj) {
		if s, ok := v.(string); ok {
			fmt.Fprintln(w, s)
			continue
		}
		fmt.Fprintln(w, oj.JSON(v))
	}
	return nil
}

func writeText(w io.Writer, res *Result) error {
	fmt.Fprintf(w, "race %s: %s after %d ticks (%.2fs)\n",
		res.RaceKey, res.Status, res.Ticks, res.Elapsed)
	for i := range res.Trains {
		tf := &res.Trains[i]
		fmt.Fprintf(w, "  %-5s position %7.1f  %s\n", tf.Train, tf.Position, render.TimerText(tf))
	}
	if res.OutcomeText != "" {
		_, err := fmt.Fprintln(w, res.OutcomeText)
		return err
	}
	return nil
}
