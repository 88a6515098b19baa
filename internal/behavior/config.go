package behavior

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/lbogdanov/nixieclock/internal/display"
	"github.com/lbogdanov/nixieclock/internal/logging"
	"github.com/lbogdanov/nixieclock/internal/wifi"
)

// DefaultIdleTimeout is how long the portal may sit unused before the
// clock starts.
const DefaultIdleTimeout = 60 * time.Second

// Portal is the configuration web server.
type Portal interface {
	Start() error
	Addr() string
	// Activity returns a counter bumped once per request of any kind.
	Activity() uint64
	// Shutdown returns once in-flight handlers have finished.
	Shutdown(ctx context.Context) error
}

// Advertiser publishes the portal over mDNS.
type Advertiser interface {
	Advertise(instance string, port int) (stop func(), err error)
}

// ConfigOptions configures a ConfigMode.
type ConfigOptions struct {
	Radio      wifi.Radio
	Portal     Portal
	Advertiser Advertiser // optional
	Display    display.Display
	Clock      clockwork.Clock

	SSIDPrefix  string
	PSK         string
	IdleTimeout time.Duration
}

// ConfigMode runs the captive portal until it has been idle long enough.
//
// The idle timer is a deadline checked by Tick. Each tick that observes new
// portal activity moves the deadline to now+IdleTimeout once, however many
// requests arrived since the previous tick.
type ConfigMode struct {
	opts ConfigOptions

	ssid     string
	apUp     bool
	portalUp bool
	stopMDNS func()

	seen     uint64
	deadline time.Time
	rearms   int
	closed   bool
}

// NewConfigMode opens the access point, starts the portal and advertises
// it, then arms the idle deadline.
//
// Start failures are logged, not returned: the deadline is armed regardless
// so the device always moves on to clock mode.
func NewConfigMode(ctx context.Context, opts ConfigOptions) *ConfigMode {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}

	c := &ConfigMode{opts: opts}

	mac, err := opts.Radio.MAC()
	if err != nil {
		logging.Warn("Failed to read radio MAC", zap.Error(err))
	}
	c.ssid = wifi.PortalSSID(opts.SSIDPrefix, mac)

	if err := opts.Radio.StartAP(ctx, wifi.APConfig{SSID: c.ssid, PSK: opts.PSK}); err != nil {
		logging.Error("Failed to start access point", zap.String("ssid", c.ssid), zap.Error(err))
	} else {
		c.apUp = true
	}

	if err := opts.Portal.Start(); err != nil {
		logging.Error("Failed to start portal", zap.Error(err))
	} else {
		c.portalUp = true
		c.advertise()
	}

	c.seen = opts.Portal.Activity()
	c.deadline = opts.Clock.Now().Add(opts.IdleTimeout)

	logging.Info("Configuration mode started",
		zap.String("ssid", c.ssid),
		zap.String("portal", opts.Portal.Addr()),
		zap.Duration("idle_timeout", opts.IdleTimeout),
	)
	if opts.Display != nil {
		opts.Display.Show(display.Frame{Mode: ModeConfiguration.String()})
	}
	return c
}

func (c *ConfigMode) advertise() {
	if c.opts.Advertiser == nil {
		return
	}
	port, err := portOf(c.opts.Portal.Addr())
	if err != nil {
		logging.Warn("Not advertising portal", zap.Error(err))
		return
	}
	stop, err := c.opts.Advertiser.Advertise(c.ssid, port)
	if err != nil {
		logging.Warn("Failed to advertise portal", zap.Error(err))
		return
	}
	c.stopMDNS = stop
}

func portOf(addr string) (int, error) {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, fmt.Errorf("portal address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(p)
	if err != nil || port <= 0 {
		return 0, fmt.Errorf("portal address %q: invalid port", addr)
	}
	return port, nil
}

// SSID returns the access point name.
func (c *ConfigMode) SSID() string {
	return c.ssid
}

// Deadline returns the current idle deadline.
func (c *ConfigMode) Deadline() time.Time {
	return c.deadline
}

// Rearms returns how many times activity moved the deadline.
func (c *ConfigMode) Rearms() int {
	return c.rearms
}

// Tick reports whether the idle deadline has passed with no activity since
// it was armed.
func (c *ConfigMode) Tick() (expired bool) {
	if c.closed {
		return false
	}
	now := c.opts.Clock.Now()

	if a := c.opts.Portal.Activity(); a != c.seen {
		c.seen = a
		c.deadline = now.Add(c.opts.IdleTimeout)
		c.rearms++
		logging.Debug("Idle deadline re-armed", zap.Time("deadline", c.deadline))
		return false
	}
	return !now.Before(c.deadline)
}

// Close tears the mode down: mDNS first, then the portal (waiting for
// in-flight handlers), then the access point. Later calls are no-ops.
func (c *ConfigMode) Close(ctx context.Context) error {
	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	if c.stopMDNS != nil {
		c.stopMDNS()
		c.stopMDNS = nil
	}
	if c.portalUp {
		if err := c.opts.Portal.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
		c.portalUp = false
	}
	if c.apUp {
		if err := c.opts.Radio.StopAP(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop access point: %w", err))
		}
		c.apUp = false
	}

	logging.Info("Configuration mode stopped")
	return errors.Join(errs...)
}
