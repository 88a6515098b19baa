package behavior

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/lbogdanov/nixieclock/internal/logging"
	"github.com/lbogdanov/nixieclock/internal/metrics"
)

const (
	// DefaultLoopInterval is the tick period of the control loop
	DefaultLoopInterval = 100 * time.Millisecond

	// DefaultTeardownTimeout bounds waiting for portal handlers to finish
	DefaultTeardownTimeout = 5 * time.Second
)

// Mode is the active behavior.
type Mode int

const (
	ModeConfiguration Mode = iota
	ModeClock
)

func (m Mode) String() string {
	switch m {
	case ModeConfiguration:
		return "configuration"
	case ModeClock:
		return "clock"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Options configures a Supervisor.
type Options struct {
	Config ConfigOptions
	Clock  ClockOptions

	Metrics         *metrics.Recorder
	Timer           clockwork.Clock
	LoopInterval    time.Duration
	TeardownTimeout time.Duration
}

// Supervisor owns exactly one behavior at a time. It starts in
// configuration mode and switches to clock mode once, when the portal has
// been idle long enough.
//
// Supervisor is not safe for concurrent use; Tick and Run belong to the
// control loop.
type Supervisor struct {
	opts Options

	mode   Mode
	config *ConfigMode // set iff mode == ModeConfiguration
	clock  *ClockMode  // set iff mode == ModeClock

	transitions int
	closed      bool
}

// NewSupervisor enters configuration mode.
func NewSupervisor(ctx context.Context, opts Options) *Supervisor {
	if opts.Timer == nil {
		opts.Timer = clockwork.NewRealClock()
	}
	if opts.LoopInterval <= 0 {
		opts.LoopInterval = DefaultLoopInterval
	}
	if opts.TeardownTimeout <= 0 {
		opts.TeardownTimeout = DefaultTeardownTimeout
	}
	opts.Config.Clock = opts.Timer
	opts.Clock.Clock = opts.Timer
	if opts.Clock.Metrics == nil {
		opts.Clock.Metrics = opts.Metrics
	}

	return &Supervisor{
		opts:   opts,
		mode:   ModeConfiguration,
		config: NewConfigMode(ctx, opts.Config),
	}
}

// Mode returns the active behavior.
func (s *Supervisor) Mode() Mode {
	return s.mode
}

// Transitions returns how many mode switches happened. At most one.
func (s *Supervisor) Transitions() int {
	return s.transitions
}

// ConfigMode returns the active configuration behavior, or nil.
func (s *Supervisor) ConfigMode() *ConfigMode {
	return s.config
}

// ClockMode returns the active clock behavior, or nil.
func (s *Supervisor) ClockMode() *ClockMode {
	return s.clock
}

// Tick advances the active behavior by one step. The returned error
// reports an incomplete teardown; the transition still happens.
func (s *Supervisor) Tick(ctx context.Context) error {
	if s.closed {
		return nil
	}
	switch s.mode {
	case ModeConfiguration:
		if s.config.Tick() {
			return s.enterClock(ctx)
		}
	case ModeClock:
		s.clock.Tick(ctx)
	}
	return nil
}

// enterClock tears configuration mode down completely before the clock
// behavior is constructed.
func (s *Supervisor) enterClock(ctx context.Context) error {
	teardownCtx, cancel := context.WithTimeout(ctx, s.opts.TeardownTimeout)
	err := s.config.Close(teardownCtx)
	cancel()
	if err != nil {
		logging.Warn("Configuration teardown incomplete", zap.Error(err))
	}

	s.config = nil
	s.clock = NewClockMode(s.opts.Clock)
	s.mode = ModeClock
	s.transitions++

	logging.LogTransition(ModeConfiguration.String(), ModeClock.String())
	s.opts.Metrics.IncTransition()
	return err
}

// Run ticks every LoopInterval until ctx is done, then closes the active
// behavior.
func (s *Supervisor) Run(ctx context.Context) error {
	ticker := s.opts.Timer.NewTicker(s.opts.LoopInterval)
	defer ticker.Stop()

	logging.Info("Supervisor running",
		zap.String("mode", s.mode.String()),
		zap.Duration("loop_interval", s.opts.LoopInterval),
	)

	for {
		select {
		case <-ctx.Done():
			return s.Close()
		case <-ticker.Chan():
			if err := s.Tick(ctx); err != nil {
				logging.Warn("Tick failed", zap.Error(err))
			}
		}
	}
}

// Close releases the active behavior. It uses a fresh context since the
// loop context is usually already cancelled.
func (s *Supervisor) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.config == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.TeardownTimeout)
	defer cancel()
	return s.config.Close(ctx)
}
