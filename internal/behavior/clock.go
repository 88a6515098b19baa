package behavior

import (
	"context"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/lbogdanov/nixieclock/internal/display"
	"github.com/lbogdanov/nixieclock/internal/logging"
	"github.com/lbogdanov/nixieclock/internal/metrics"
	"github.com/lbogdanov/nixieclock/internal/store"
	"github.com/lbogdanov/nixieclock/internal/timesync"
	"github.com/lbogdanov/nixieclock/internal/wifi"
)

const (
	// DefaultResyncInterval is the resync cadence once the clock runs
	DefaultResyncInterval = 24 * time.Hour

	// DefaultJoinTimeout bounds the station association. The join runs
	// once, inside the first clock tick, and holds the loop for at most
	// this long.
	DefaultJoinTimeout = 30 * time.Second
)

// Loader reads the persisted configuration record.
type Loader interface {
	Load() (store.Record, bool, error)
}

// TimeSource is the part of timesync.Resolver the clock uses.
type TimeSource interface {
	Resync(ctx context.Context, tz string) timesync.SyncResult
	Current() (time.Time, bool)
	Offset() timesync.Offset
	Synced() bool
}

// ClockOptions configures a ClockMode.
type ClockOptions struct {
	Radio   wifi.Radio
	Store   Loader
	Display display.Display
	Metrics *metrics.Recorder
	Clock   clockwork.Clock

	// NewTimeSource builds the resolver once the API key is known.
	NewTimeSource func(apiKey string) TimeSource

	ResyncInterval time.Duration
	JoinTimeout    time.Duration
}

// ClockMode keeps the displayed time in sync. It is terminal for the
// process: once degraded it does nothing further.
type ClockMode struct {
	opts ClockOptions

	initialized bool
	degraded    error
	tz          string
	source      TimeSource
	nextResync  time.Time
	shown       int64
	resyncs     int
}

// NewClockMode creates the clock behavior. Nothing happens until the
// first Tick.
func NewClockMode(opts ClockOptions) *ClockMode {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.ResyncInterval <= 0 {
		opts.ResyncInterval = DefaultResyncInterval
	}
	if opts.JoinTimeout <= 0 {
		opts.JoinTimeout = DefaultJoinTimeout
	}
	return &ClockMode{opts: opts}
}

// Degraded returns the reason the clock gave up, or nil.
func (c *ClockMode) Degraded() error {
	return c.degraded
}

// NextResync returns when the next resync is due. Zero before init.
func (c *ClockMode) NextResync() time.Time {
	return c.nextResync
}

// Resyncs returns how many resync cycles have run.
func (c *ClockMode) Resyncs() int {
	return c.resyncs
}

// Tick runs the one-time init on the first call, then resyncs when due and
// pushes a frame whenever the displayed second changes.
func (c *ClockMode) Tick(ctx context.Context) {
	if !c.initialized {
		c.initialized = true
		c.init(ctx)
	}
	if c.degraded != nil {
		return
	}

	if !c.opts.Clock.Now().Before(c.nextResync) {
		c.resync(ctx)
	}
	c.show()
}

func (c *ClockMode) init(ctx context.Context) {
	rec, ok, err := c.opts.Store.Load()
	switch {
	case err != nil:
		c.degrade(timesync.NewError(timesync.KindConfigAbsent, "configuration unreadable", err))
		return
	case !ok:
		c.degrade(timesync.NewError(timesync.KindConfigAbsent, "no configuration stored", nil))
		return
	case strings.TrimSpace(rec.SSID) == "":
		c.degrade(timesync.NewError(timesync.KindConfigAbsent, "configured SSID is empty", nil))
		return
	case !timesync.ValidTimezone(rec.TZ):
		c.degrade(timesync.NewError(timesync.KindConfigAbsent, "invalid timezone setting "+rec.TZ, nil))
		return
	}

	joinCtx, cancel := context.WithTimeout(ctx, c.opts.JoinTimeout)
	defer cancel()
	if err := c.opts.Radio.Join(joinCtx, rec.SSID, rec.SSIDPSK); err != nil {
		c.degrade(timesync.NewError(timesync.KindNetworkJoin, "cannot join "+rec.SSID, err))
		return
	}
	logging.Info("Joined network", zap.String("ssid", rec.SSID), zap.String("tz", rec.TZ))

	c.tz = rec.TZ
	c.source = c.opts.NewTimeSource(rec.APIKey)
}

func (c *ClockMode) degrade(err error) {
	c.degraded = err
	logging.Warn("Clock degraded", zap.Error(err))
	c.push(display.Frame{Mode: ModeClock.String(), Degraded: true})
}

func (c *ClockMode) resync(ctx context.Context) {
	res := c.source.Resync(ctx, c.tz)
	c.resyncs++
	c.nextResync = c.opts.Clock.Now().Add(c.opts.ResyncInterval)
	c.opts.Metrics.ObserveResync(res.Result(), c.source.Offset().Total(), c.source.Synced())
	logging.Debug("Next resync scheduled", zap.Time("at", c.nextResync))
}

func (c *ClockMode) show() {
	now, ok := c.source.Current()
	if !ok {
		return
	}
	sec := now.Unix()
	if sec == c.shown {
		return
	}
	c.shown = sec
	c.push(display.Frame{
		Epoch:  sec,
		Offset: c.source.Offset().Total(),
		Synced: c.source.Synced(),
		Mode:   ModeClock.String(),
	})
}

func (c *ClockMode) push(f display.Frame) {
	if c.opts.Display != nil {
		c.opts.Display.Show(f)
	}
}
