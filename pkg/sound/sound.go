package sound

import (
	"context"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"

	"github.com/mpapenbr/trainrace/log"
	"github.com/mpapenbr/trainrace/pkg/model"
)

const SampleRate = beep.SampleRate(44100)

// Player plays finite streamers.
type Player interface {
	Play(s beep.Streamer)
	Close()
}

// SpeakerPlayer mixes all streamers into the system speaker.
type SpeakerPlayer struct {
	mu          sync.Mutex
	mixer       *beep.Mixer
	initialized bool
}

func NewSpeakerPlayer() (*SpeakerPlayer, error) {
	p := &SpeakerPlayer{mixer: &beep.Mixer{}}
	if err := speaker.Init(SampleRate, SampleRate.N(100*time.Millisecond)); err != nil {
		return nil, err
	}
	speaker.Play(p.mixer)
	p.initialized = true
	return p, nil
}

func (p *SpeakerPlayer) Play(s beep.Streamer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized {
		return
	}
	speaker.Lock()
	p.mixer.Add(s)
	speaker.Unlock()
}

func (p *SpeakerPlayer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized {
		return
	}
	speaker.Clear()
	speaker.Close()
	p.initialized = false
}

type NoopPlayer struct{}

func (NoopPlayer) Play(beep.Streamer) {}
func (NoopPlayer) Close()             {}

// Chime plays the given frequencies one after another.
func Chime(sr beep.SampleRate, note time.Duration, freqs ...float64) beep.Streamer {
	notes := make([]beep.Streamer, 0, len(freqs))
	for _, f := range freqs {
		tone, err := generators.SineTone(sr, f)
		if err != nil {
			// frequency above the Nyquist limit
			tone = generators.Silence(-1)
		}
		n := sr.N(note)
		notes = append(notes, &effects.Volume{
			Streamer: beep.Take(n, newFade(tone, n, sr.N(10*time.Millisecond))),
			Base:     2,
			Volume:   -2,
		})
	}
	return beep.Seq(notes...)
}

func ArrivalChime(sr beep.SampleRate) beep.Streamer {
	return Chime(sr, 120*time.Millisecond, 880, 660)
}

func FinishChime(sr beep.SampleRate) beep.Streamer {
	return Chime(sr, 150*time.Millisecond, 523.25, 659.25, 783.99)
}

// fade applies a linear attack and release to a note of total samples.
type fade struct {
	s     beep.Streamer
	total int
	ramp  int
	pos   int
}

func newFade(s beep.Streamer, total, ramp int) beep.Streamer {
	return &fade{s: s, total: total, ramp: max(ramp, 1)}
}

func (f *fade) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = f.s.Stream(samples)
	for i := 0; i < n; i++ {
		gain := 1.0
		switch {
		case f.pos < f.ramp:
			gain = float64(f.pos) / float64(f.ramp)
		case f.total-f.pos < f.ramp:
			gain = float64(f.total-f.pos) / float64(f.ramp)
		}
		samples[i][0] *= gain
		samples[i][1] *= gain
		f.pos++
	}
	return n, ok
}

func (f *fade) Err() error {
	return f.s.Err()
}

// Notifier plays chimes for arrivals and finishes found in frames.
type Notifier struct {
	player Player
	sr     beep.SampleRate
	l      *log.Logger
}

func NewNotifier(player Player) *Notifier {
	return &Notifier{player: player, sr: SampleRate, l: log.Default().Named("sound")}
}

// Run consumes frames until the channel is closed or ctx is done.
func (n *Notifier) Run(ctx context.Context, frames <-chan model.Frame) {
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-frames:
			if !ok {
				return
			}
			n.Handle(&f)
		}
	}
}

func (n *Notifier) Handle(f *model.Frame) {
	for i := range f.Trains {
		tf := &f.Trains[i]
		switch {
		case tf.HasEvent(model.EventFinished):
			n.l.Debug("finish chime", log.String("train", string(tf.Train)))
			n.player.Play(FinishChime(n.sr))
		case tf.HasEvent(model.EventArrived):
			n.player.Play(ArrivalChime(n.sr))
		}
	}
}
