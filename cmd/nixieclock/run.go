package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lbogdanov/nixieclock/internal/behavior"
	"github.com/lbogdanov/nixieclock/internal/config"
	"github.com/lbogdanov/nixieclock/internal/discovery"
	"github.com/lbogdanov/nixieclock/internal/display"
	"github.com/lbogdanov/nixieclock/internal/geoapi"
	"github.com/lbogdanov/nixieclock/internal/logging"
	"github.com/lbogdanov/nixieclock/internal/metrics"
	"github.com/lbogdanov/nixieclock/internal/portal"
	"github.com/lbogdanov/nixieclock/internal/store"
	"github.com/lbogdanov/nixieclock/internal/timesync"
	"github.com/lbogdanov/nixieclock/internal/ui"
	"github.com/lbogdanov/nixieclock/internal/version"
	"github.com/lbogdanov/nixieclock/internal/wifi"
)

// Run command flags
var (
	logLevel string
	simulate bool
	noFace   bool
	noAdvert bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the clock daemon",
	Long: `Start the clock daemon in configuration mode.

The face is drawn on the terminal when stdout is one, and streamed as JSON
frames on the display feed (display.listen) for 'nixieclock-cfg watch'.
Prometheus metrics are served on the same listener under /metrics.`,
	Example: `  # Run on the device
  nixieclock run --config /etc/nixieclock/config.yaml

  # Run on a workstation without touching the Wi-Fi hardware
  nixieclock run --simulate --log-level debug`,
	RunE: runDaemon,
}

func init() {
	for _, cmd := range []*cobra.Command{rootCmd, runCmd} {
		cmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides log_level")
		cmd.Flags().BoolVar(&simulate, "simulate", false, "Use the simulated radio backend")
		cmd.Flags().BoolVar(&noFace, "no-face", false, "Log frames instead of drawing the face")
		cmd.Flags().BoolVar(&noAdvert, "no-mdns", false, "Do not advertise the portal over mDNS")
	}
}

func runDaemon(cmd *cobra.Command, args []string) error {
	settings, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		settings.LogLevel = logLevel
	}
	if simulate {
		settings.Radio.Backend = config.BackendSimulated
	}

	if err := logging.Initialize(settings.LogLevel); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logging.Sync()

	logging.Info("Starting", zap.String("version", version.Full()), zap.String("radio", settings.Radio.Backend))

	radio, closeRadio, err := openRadio(settings.Radio)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeRadio(); err != nil {
			logging.Warn("Radio close failed", zap.Error(err))
		}
	}()

	var out io.Writer = cmd.OutOrStdout()
	if noFace {
		out = nil
	}

	d := newDaemon(settings, radio, store.New(afero.NewOsFs(), settings.StorePath), out)
	if !noAdvert {
		d.opts.Config.Advertiser = discovery.Responder{}
	}

	if err := d.hub.Start(); err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), behavior.DefaultTeardownTimeout)
		defer cancel()
		if err := d.hub.Shutdown(ctx); err != nil {
			logging.Warn("Display feed shutdown failed", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sup := behavior.NewSupervisor(ctx, d.opts)
	if err := sup.Run(ctx); err != nil {
		return fmt.Errorf("teardown failed: %w", err)
	}
	logging.Info("Stopped", zap.String("mode", sup.Mode().String()))
	return nil
}

// openRadio picks the Wi-Fi backend.
func openRadio(s config.RadioSettings) (wifi.Radio, func() error, error) {
	switch s.Backend {
	case config.BackendSimulated:
		return wifi.NewSimulated(), func() error { return nil }, nil
	default:
		nm, err := wifi.NewNetworkManager(s.Interface)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open radio %s: %w", s.Interface, err)
		}
		return nm, nm.Close, nil
	}
}

// daemon is the wired object graph of one process.
type daemon struct {
	metrics *metrics.Recorder
	hub     *display.Hub
	portal  *portal.Server
	opts    behavior.Options
}

// newDaemon wires settings into supervisor options. Frames go to the feed
// and, when out is non-nil, to a face drawn on out.
func newDaemon(s *config.Settings, radio wifi.Radio, st *store.Store, out io.Writer) *daemon {
	rec := metrics.New(nil)
	hub := display.NewHub(s.Display.Listen, rec)

	var screen display.Display = display.Log{}
	if out != nil {
		screen = display.NewTerminal(out, isTerminal(out))
	}
	frames := display.Multi{hub, screen}

	srv := portal.NewServer(s.Portal.Listen, st, rec)
	clock := clockwork.NewRealClock()

	return &daemon{
		metrics: rec,
		hub:     hub,
		portal:  srv,
		opts: behavior.Options{
			Config: behavior.ConfigOptions{
				Radio:       radio,
				Portal:      srv,
				Display:     frames,
				SSIDPrefix:  s.AccessPoint.SSIDPrefix,
				PSK:         s.AccessPoint.PSK,
				IdleTimeout: s.IdleTimeout,
			},
			Clock: behavior.ClockOptions{
				Radio:          radio,
				Store:          st,
				Display:        frames,
				Metrics:        rec,
				NewTimeSource:  timeSourceFactory(s, radio, clock),
				ResyncInterval: s.ResyncInterval,
			},
			Metrics:      rec,
			Timer:        clock,
			LoopInterval: s.LoopInterval,
		},
	}
}

// timeSourceFactory returns the resolver constructor handed to clock mode.
func timeSourceFactory(s *config.Settings, scanner timesync.Scanner, clock clockwork.Clock) func(apiKey string) behavior.TimeSource {
	return func(apiKey string) behavior.TimeSource {
		client := geoapi.NewClient(apiKey)
		client.GeolocationURL = s.Services.GeolocationURL
		client.TimezoneURL = s.Services.TimezoneURL
		client.SetTimeout(s.HTTPTimeout)
		return timesync.NewResolver(client, scanner, clock)
	}
}

// isTerminal reports whether out is an interactive stdout, where the face
// is redrawn in place.
func isTerminal(out io.Writer) bool {
	return out == io.Writer(os.Stdout) && ui.IsTerminal()
}
