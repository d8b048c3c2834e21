// Package thermal runs the temperature supervisor: a single worker that pops
// measurement and interrupt events from a bounded channel, samples the
// sensor, reports telemetry and raises over-temperature and safe-again
// alerts with hysteresis.
package thermal

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"gitlab.com/lologarithm/thermgr/sensor"
)

// Default timings.
const (
	DefaultSendWait    = 10 * time.Millisecond
	DefaultPollTimeout = 100 * time.Millisecond
)

// Supervisor owns the event channel and the sensor. Producers call
// HandleInterrupt, Submit or Measure from any goroutine; the sensor is only
// ever touched by the loop goroutine.
type Supervisor struct {
	cfg    *Config
	sensor sensor.Reader
	ch     *Channel

	telemetry Telemetry
	alerts    Alerter
	conds     ConditionLogger
	log       zerolog.Logger

	capacity    int
	sendWait    time.Duration
	pollTimeout time.Duration

	started  atomic.Bool
	done     chan struct{}
	reported uint64 // drops already reported, owned by the loop
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithTelemetry sets the telemetry sink.
func WithTelemetry(t Telemetry) Option {
	return func(s *Supervisor) { s.telemetry = t }
}

// WithAlerter sets the alert sink.
func WithAlerter(a Alerter) Option {
	return func(s *Supervisor) { s.alerts = a }
}

// WithConditionLogger sets the condition sink. The default writes to the logger.
func WithConditionLogger(c ConditionLogger) Option {
	return func(s *Supervisor) { s.conds = c }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Supervisor) { s.log = l }
}

// WithCapacity sets the channel capacity.
func WithCapacity(n int) Option {
	return func(s *Supervisor) { s.capacity = n }
}

// WithSendWait bounds how long Submit waits for room in the channel.
func WithSendWait(d time.Duration) Option {
	return func(s *Supervisor) { s.sendWait = d }
}

// WithPollTimeout sets how long the loop waits on the channel before
// checking for shutdown.
func WithPollTimeout(d time.Duration) Option {
	return func(s *Supervisor) { s.pollTimeout = d }
}

// New builds a supervisor reading r with the thresholds in cfg. cfg is
// copied. A nil or invalid cfg is accepted; each cycle then reports an
// invalid argument without touching the sensor.
func New(cfg *Config, r sensor.Reader, opts ...Option) *Supervisor {
	s := &Supervisor{
		sensor:      r,
		telemetry:   nop{},
		alerts:      nop{},
		log:         zerolog.Nop(),
		capacity:    DefaultCapacity,
		sendWait:    DefaultSendWait,
		pollTimeout: DefaultPollTimeout,
		done:        make(chan struct{}),
	}
	if cfg != nil {
		c := *cfg
		s.cfg = &c
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.conds == nil {
		s.conds = LogConditions(s.log)
	}
	if s.pollTimeout <= 0 {
		s.pollTimeout = DefaultPollTimeout
	}
	s.ch = NewChannel(s.capacity)
	return s
}

// Start runs the loop on its own goroutine until ctx is done.
func (s *Supervisor) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	go s.run(ctx)
	return nil
}

// Run runs the loop on the calling goroutine until ctx is done.
func (s *Supervisor) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	s.run(ctx)
	return nil
}

// Done is closed once the loop has exited.
func (s *Supervisor) Done() <-chan struct{} {
	return s.done
}

// HandleInterrupt is the entry point for the OS pin. It never blocks; when
// the channel is full the notice is dropped and counted, and the loop
// reports the drop later.
func (s *Supervisor) HandleInterrupt() {
	_ = s.ch.TryPush(InterruptNotice)
}

// Submit queues ev, waiting at most the configured send wait.
// It returns ErrChannelFull if the event was dropped.
func (s *Supervisor) Submit(ev Event) error {
	return s.ch.Push(ev, s.sendWait)
}

// Measure queues a measurement.
func (s *Supervisor) Measure() error {
	return s.Submit(MeasureCommand)
}

// Every submits a measurement each interval until ctx is done.
func (s *Supervisor) Every(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Measure(); err != nil {
				s.log.Debug().Err(err).Msg("periodic measurement dropped")
			}
		}
	}
}

// Queue exposes the channel for depth and drop metrics.
func (s *Supervisor) Queue() *Channel {
	return s.ch
}

func (s *Supervisor) run(ctx context.Context) {
	defer close(s.done)
	s.log.Info().Int("capacity", s.ch.Cap()).Dur("poll", s.pollTimeout).Msg("thermal supervisor started")
	for {
		if ctx.Err() != nil {
			s.log.Info().Msg("thermal supervisor stopped")
			return
		}
		ev, ok := s.ch.Pop(ctx, s.pollTimeout)
		if !ok {
			continue // idle tick
		}
		s.reportDrops()
		s.handle(ev)
	}
}

// handle runs one processing cycle and returns the classification it reached.
func (s *Supervisor) handle(ev Event) State {
	switch ev {
	case MeasureCommand, InterruptNotice:
		return s.sample(ev)
	default:
		s.conds.LogCondition(ConditionInvalidState, fmt.Errorf("%w: unknown event %d", ErrInvalidState, byte(ev)))
		return StateNormal
	}
}

func (s *Supervisor) sample(ev Event) State {
	if err := s.cfg.Validate(); err != nil {
		s.conds.LogCondition(ConditionInvalidArgument, err)
		return StateNormal
	}
	if s.sensor == nil {
		s.conds.LogCondition(ConditionInvalidArgument, fmt.Errorf("%w: missing sensor", ErrInvalidArgument))
		return StateNormal
	}

	temp, err := s.sensor.ReadTemperature(s.cfg.Addr)
	if err != nil {
		s.conds.LogCondition(ConditionSensorFailure, fmt.Errorf("%w: read %s: %w", ErrSensorFailure, s.cfg.Addr, err))
		return StateNormal
	}
	s.telemetry.RecordTemperature(temp)

	if ev != InterruptNotice {
		s.log.Debug().Stringer("temp", temp).Msg("measured")
		return StateNormal
	}

	state := Classify(temp, *s.cfg)
	switch state {
	case StateOver:
		s.log.Info().Stringer("temp", temp).Msg("over temperature")
		s.alerts.OverTemperature()
	case StateSafeAgain:
		s.log.Info().Stringer("temp", temp).Msg("safe operating conditions")
		s.alerts.SafeConditions()
	default:
		s.conds.LogCondition(ConditionInvalidState, fmt.Errorf("%w: interrupt at %s inside dead band (%s, %s)",
			ErrInvalidState, temp, s.cfg.Hysteresis, s.cfg.OverTemp))
	}
	return state
}

// reportDrops logs, once, the events producers dropped since the last report.
func (s *Supervisor) reportDrops() {
	dropped := s.ch.Stats().Dropped
	if dropped == s.reported {
		return
	}
	s.conds.LogCondition(ConditionChannelFull, fmt.Errorf("%w: %d events dropped", ErrChannelFull, dropped-s.reported))
	s.reported = dropped
}
