package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/roach88/shipbot/internal/decode"
	"github.com/roach88/shipbot/internal/transport"
)

// Polling interval bounds.
const (
	DefaultPollInterval = 500 * time.Millisecond
	MinPollInterval     = 100 * time.Millisecond
	MaxPollInterval     = 10 * time.Second
)

// DefaultStreams is the drain order: invites first so acceptance pokes go
// out before chat traffic is handled.
var DefaultStreams = []transport.Stream{
	transport.InviteUpdates,
	transport.MetadataAll,
	transport.GraphUpdates,
}

// Dispatcher is the single-writer dispatch loop.
//
// Thread-safety model:
//   - Open(), RunCycle(), Run(): must be called from exactly one goroutine
//   - State(): safe from any goroutine
type Dispatcher struct {
	transport transport.Transport
	identity  Identity
	responder Responder
	log       *slog.Logger
	recorder  Recorder
	tokens    CycleTokenGenerator
	clock     *Clock
	interval  time.Duration
	streams   []transport.Stream

	subs  []transport.Subscription // in drain order
	state atomic.Int32

	// Per-cycle arenas, reset when Draining begins.
	intents  []JoinIntent
	outbound []OutboundMessage
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithPollInterval sets the Pacing delay. Values outside
// [MinPollInterval, MaxPollInterval] are clamped.
func WithPollInterval(d time.Duration) Option {
	return func(disp *Dispatcher) {
		disp.interval = d
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.log = l
		}
	}
}

// WithRecorder journals every side effect to r.
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) {
		d.recorder = r
	}
}

// WithTokenGenerator sets the cycle token generator. Default: UUIDv7Generator.
func WithTokenGenerator(g CycleTokenGenerator) Option {
	return func(d *Dispatcher) {
		if g != nil {
			d.tokens = g
		}
	}
}

// WithStreams overrides the subscribed streams and their drain order.
func WithStreams(streams ...transport.Stream) Option {
	return func(d *Dispatcher) {
		d.streams = slices.Clone(streams)
	}
}

// WithClock sets the cycle clock, e.g. to resume numbering.
func WithClock(c *Clock) Option {
	return func(d *Dispatcher) {
		if c != nil {
			d.clock = c
		}
	}
}

// New creates a Dispatcher. A nil responder never replies.
func New(t transport.Transport, identity Identity, responder Responder, opts ...Option) *Dispatcher {
	if responder == nil {
		responder = Silent
	}
	d := &Dispatcher{
		transport: t,
		identity:  identity,
		responder: responder,
		log:       slog.Default(),
		tokens:    UUIDv7Generator{},
		clock:     NewClock(),
		interval:  DefaultPollInterval,
		streams:   slices.Clone(DefaultStreams),
	}

	for _, opt := range opts {
		opt(d)
	}

	switch {
	case d.interval < MinPollInterval:
		d.log.Warn("poll interval below minimum, clamping",
			"interval", d.interval,
			"min", MinPollInterval,
		)
		d.interval = MinPollInterval
	case d.interval > MaxPollInterval:
		d.log.Warn("poll interval above maximum, clamping",
			"interval", d.interval,
			"max", MaxPollInterval,
		)
		d.interval = MaxPollInterval
	}

	return d
}

// Identity returns the bridge identity.
func (d *Dispatcher) Identity() Identity {
	return d.identity
}

// PollInterval returns the effective Pacing delay.
func (d *Dispatcher) PollInterval() time.Duration {
	return d.interval
}

// State returns the current cycle state. Safe from any goroutine.
func (d *Dispatcher) State() State {
	return State(d.state.Load())
}

func (d *Dispatcher) setState(s State) {
	d.state.Store(int32(s))
}

// Streams returns the open streams in drain order.
func (d *Dispatcher) Streams() []transport.Stream {
	out := make([]transport.Stream, len(d.subs))
	for i, sub := range d.subs {
		out[i] = sub.Stream()
	}
	return out
}

// Open subscribes to every configured stream, at most once per stream.
//
// Any failure is a *SetupError and leaves the dispatcher unopened.
func (d *Dispatcher) Open(ctx context.Context) error {
	if len(d.subs) > 0 {
		return &SetupError{Code: ErrCodeAlreadyOpen}
	}
	if len(d.streams) == 0 {
		return &SetupError{Code: ErrCodeNoStreams}
	}

	seen := make(map[transport.Stream]bool, len(d.streams))
	for _, s := range d.streams {
		if seen[s] {
			return &SetupError{
				Code:   ErrCodeDuplicateStream,
				Stream: s,
				Err:    errors.New("at most one subscription per stream"),
			}
		}
		seen[s] = true
	}

	subs := make([]transport.Subscription, 0, len(d.streams))
	for _, s := range d.streams {
		sub, err := d.transport.Subscribe(ctx, s)
		if err != nil {
			return &SetupError{Code: ErrCodeSubscribeFailed, Stream: s, Err: err}
		}
		d.log.Info("subscribed",
			"stream", s.String(),
			"subscription", sub.ID(),
		)
		subs = append(subs, sub)
	}
	d.subs = subs
	return nil
}

// Run opens the subscriptions if needed, then cycles until ctx is done.
//
// Cancellation is honored only at the Pacing boundary: a cycle in progress
// always completes. Returns ctx.Err() on shutdown or a *SetupError if the
// subscriptions cannot be opened.
func (d *Dispatcher) Run(ctx context.Context) error {
	if len(d.subs) == 0 {
		if err := d.Open(ctx); err != nil {
			return err
		}
	}

	d.log.Info("dispatcher starting",
		"ship", d.identity.Ship().String(),
		"poll_interval", d.interval,
		"streams", len(d.subs),
	)

	timer := time.NewTimer(d.interval)
	timer.Stop()
	defer timer.Stop()

	for {
		d.RunCycle(ctx)

		d.setState(StatePacing)
		timer.Reset(d.interval)
		select {
		case <-ctx.Done():
			d.setState(StateIdle)
			d.log.Info("dispatcher stopping: context cancelled",
				"cycles", d.clock.Current(),
			)
			return ctx.Err()
		case <-timer.C:
		}
		d.setState(StateIdle)
	}
}

// cycle is the bookkeeping of one pass.
type cycle struct {
	report CycleReport
}

// RunCycle runs one Draining and Acting pass over the open subscriptions and
// returns its report. It ignores ctx cancellation: cycle work always runs to
// completion.
func (d *Dispatcher) RunCycle(ctx context.Context) CycleReport {
	ctx = context.WithoutCancel(ctx)

	c := &cycle{report: CycleReport{
		Token: d.tokens.Generate(),
		Seq:   d.clock.Next(),
	}}

	d.setState(StateDraining)
	d.intents = d.intents[:0]
	d.outbound = d.outbound[:0]
	for _, sub := range d.subs {
		d.drain(ctx, c, sub)
	}

	d.setState(StateActing)
	d.executeJoins(ctx, c)
	d.postMessages(ctx, c)
	d.setState(StateIdle)

	c.report.JoinIntents = slices.Clone(d.intents)
	c.report.Outbound = slices.Clone(d.outbound)

	r := c.report
	if r.Frames > 0 || r.Failures > 0 {
		d.log.Debug("cycle complete",
			"cycle", r.Token,
			"seq", r.Seq,
			"frames", r.Frames,
			"unrecognized", r.Unrecognized,
			"invites", r.Invites,
			"joins", r.Joins,
			"posts", r.Posts,
			"failures", r.Failures,
		)
	}
	return r
}

// drain pops frames from sub until none remain, handling each as it is
// popped. A poll error ends the drain of this subscription only.
func (d *Dispatcher) drain(ctx context.Context, c *cycle, sub transport.Subscription) {
	for {
		frame, ok, err := d.transport.Poll(ctx, sub)
		if err != nil {
			c.report.Failures++
			d.log.Warn("poll failed",
				"cycle", c.report.Token,
				"stream", sub.Stream().String(),
				"error", err,
			)
			return
		}
		if !ok {
			return
		}
		c.report.Frames++
		if frame.Stream == (transport.Stream{}) {
			frame.Stream = sub.Stream()
		}
		d.route(ctx, c, sub, frame)
	}
}

// route decodes a frame and hands it to its handler.
func (d *Dispatcher) route(ctx context.Context, c *cycle, sub transport.Subscription, frame transport.Frame) {
	switch ev := decode.Decode(frame).(type) {
	case *decode.InviteUpdate:
		d.handleInvite(ctx, c, sub, ev)
	case *decode.MetadataUpdate:
		d.handleMetadata(c, ev)
	case *decode.GraphUpdate:
		d.handleGraph(c, ev)
	case *decode.Unrecognized:
		c.report.Unrecognized++
		level := slog.LevelWarn
		if decode.IsCode(ev.Err, decode.ErrCodeUnsupportedVariant) {
			level = slog.LevelDebug
		}
		d.log.Log(ctx, level, "frame not recognized",
			"cycle", c.report.Token,
			"stream", frame.Stream.String(),
			"frame_id", frame.ID,
			"error", ev.Err,
		)
	}
}
