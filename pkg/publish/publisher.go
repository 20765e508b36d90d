package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/mpapenbr/trainrace/log"
	"github.com/mpapenbr/trainrace/pkg/model"
	"github.com/mpapenbr/trainrace/pkg/processing/outcome"
)

// Conn is the subset of *nats.Conn used for publishing.
type Conn interface {
	Publish(subj string, data []byte) error
	Flush() error
}

type Publisher struct {
	conn      Conn
	prefix    string
	l         *log.Logger
	mu        sync.Mutex
	published map[string]bool // race keys with published outcome
	close     func()
}

type Option func(p *Publisher)

func WithSubjectPrefix(prefix string) Option {
	return func(p *Publisher) {
		p.prefix = prefix
	}
}

func WithLogger(l *log.Logger) Option {
	return func(p *Publisher) {
		p.l = l
	}
}

func NewPublisher(conn Conn, opts ...Option) *Publisher {
	ret := &Publisher{
		conn:      conn,
		prefix:    "trainrace",
		l:         log.Default().Named("publish"),
		published: make(map[string]bool),
		close:     func() {},
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Connect dials the NATS server at url and returns a publisher owning the
// connection.
func Connect(url string, opts ...Option) (*Publisher, error) {
	nc, err := nats.Connect(url, nats.Name("trainrace"))
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	ret := NewPublisher(nc, opts...)
	ret.close = nc.Close
	ret.l.Info("connected to nats", log.String("url", nc.ConnectedUrlRedacted()))
	return ret, nil
}

func (p *Publisher) FrameSubject(raceKey string) string {
	return fmt.Sprintf("%s.frames.%s", p.prefix, raceKey)
}

func (p *Publisher) OutcomeSubject(raceKey string) string {
	return fmt.Sprintf("%s.outcome.%s", p.prefix, raceKey)
}

func (p *Publisher) PublishFrame(f *model.Frame) error {
	return p.publish(p.FrameSubject(f.RaceKey), f)
}

func (p *Publisher) PublishOutcome(raceKey string, r outcome.Result) error {
	return p.publish(p.OutcomeSubject(raceKey), r)
}

// Run publishes frames until the channel is closed or ctx is done. The
// outcome of a race is published once with the first finished frame.
func (p *Publisher) Run(ctx context.Context, frames <-chan model.Frame) {
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-frames:
			if !ok {
				return
			}
			p.handleFrame(&f)
		}
	}
}

func (p *Publisher) handleFrame(f *model.Frame) {
	if err := p.PublishFrame(f); err != nil {
		p.l.Warn("could not publish frame", log.ErrorField(err))
	}
	if f.Status != model.RaceFinished.String() {
		return
	}
	if res, ok := outcome.FromFrame(f); ok {
		p.PublishOutcomeOnce(f.RaceKey, res)
	}
}

// PublishOutcomeOnce publishes the outcome of a race unless it was already
// published for raceKey. It reports whether a message was sent.
func (p *Publisher) PublishOutcomeOnce(raceKey string, r outcome.Result) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.published[raceKey] {
		return false
	}
	if err := p.PublishOutcome(raceKey, r); err != nil {
		p.l.Warn("could not publish outcome", log.ErrorField(err))
		return false
	}
	p.published[raceKey] = true
	if err := p.conn.Flush(); err != nil {
		p.l.Warn("flush failed", log.ErrorField(err))
	}
	return true
}

func (p *Publisher) Close() {
	if err := p.conn.Flush(); err != nil {
		p.l.Debug("flush on close failed", log.ErrorField(err))
	}
	p.close()
}

func (p *Publisher) publish(subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.conn.Publish(subject, data)
}
