package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/lbogdanov/nixieclock/internal/geoapi"
	"github.com/lbogdanov/nixieclock/internal/store"
	"github.com/lbogdanov/nixieclock/internal/wifi"
)

// CurrentVersion is the only settings file version understood.
const CurrentVersion = 1

// Radio backends
const (
	BackendNetworkManager = "networkmanager"
	BackendSimulated      = "simulated"
)

// Settings is the daemon settings file. It holds how the device runs, not
// what the operator configured through the portal; that lives in the store.
type Settings struct {
	Version        int           `yaml:"version"`
	StorePath      string        `yaml:"store_path"`
	LoopInterval   time.Duration `yaml:"loop_interval"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	ResyncInterval time.Duration `yaml:"resync_interval"`
	HTTPTimeout    time.Duration `yaml:"http_timeout"`
	LogLevel       string        `yaml:"log_level,omitempty"`

	AccessPoint AccessPointSettings `yaml:"access_point"`
	Portal      ListenSettings      `yaml:"portal"`
	Display     ListenSettings      `yaml:"display"`
	Services    ServiceSettings     `yaml:"services"`
	Radio       RadioSettings       `yaml:"radio"`
}

// AccessPointSettings configures the configuration-mode soft AP.
// The SSID is the prefix followed by the first two MAC bytes in hex.
type AccessPointSettings struct {
	SSIDPrefix string `yaml:"ssid_prefix"`
	PSK        string `yaml:"psk"`
}

// ListenSettings is a TCP listen address.
type ListenSettings struct {
	Listen string `yaml:"listen"`
}

// ServiceSettings are the external service endpoints.
type ServiceSettings struct {
	GeolocationURL string `yaml:"geolocation_url"`
	TimezoneURL    string `yaml:"timezone_url"`
}

// RadioSettings selects the Wi-Fi backend.
type RadioSettings struct {
	Backend   string `yaml:"backend"`
	Interface string `yaml:"interface"`
}

// Default returns settings with every field at its default.
func Default() *Settings {
	return &Settings{
		Version:        CurrentVersion,
		StorePath:      store.DefaultPath,
		LoopInterval:   100 * time.Millisecond,
		IdleTimeout:    60 * time.Second,
		ResyncInterval: 24 * time.Hour,
		HTTPTimeout:    geoapi.DefaultTimeout,
		LogLevel:       "info",
		AccessPoint: AccessPointSettings{
			SSIDPrefix: "NixieClock",
			PSK:        "nixieclock",
		},
		Portal:  ListenSettings{Listen: ":80"},
		Display: ListenSettings{Listen: "127.0.0.1:8081"},
		Services: ServiceSettings{
			GeolocationURL: geoapi.DefaultGeolocationURL,
			TimezoneURL:    geoapi.DefaultTimezoneURL,
		},
		Radio: RadioSettings{
			Backend:   BackendNetworkManager,
			Interface: "wlan0",
		},
	}
}

// applyDefaults fills zero fields from Default.
func (s *Settings) applyDefaults() {
	d := Default()
	if s.StorePath == "" {
		s.StorePath = d.StorePath
	}
	if s.LoopInterval == 0 {
		s.LoopInterval = d.LoopInterval
	}
	if s.IdleTimeout == 0 {
		s.IdleTimeout = d.IdleTimeout
	}
	if s.ResyncInterval == 0 {
		s.ResyncInterval = d.ResyncInterval
	}
	if s.HTTPTimeout == 0 {
		s.HTTPTimeout = d.HTTPTimeout
	}
	if s.AccessPoint.SSIDPrefix == "" {
		s.AccessPoint = d.AccessPoint
	}
	if s.Portal.Listen == "" {
		s.Portal = d.Portal
	}
	if s.Display.Listen == "" {
		s.Display = d.Display
	}
	if s.Services.GeolocationURL == "" {
		s.Services.GeolocationURL = d.Services.GeolocationURL
	}
	if s.Services.TimezoneURL == "" {
		s.Services.TimezoneURL = d.Services.TimezoneURL
	}
	if s.Radio.Backend == "" {
		s.Radio.Backend = d.Radio.Backend
	}
	if s.Radio.Interface == "" {
		s.Radio.Interface = d.Radio.Interface
	}
}

// Validate reports every invalid field at once.
func (s *Settings) Validate() error {
	var errs []error

	if s.Version != CurrentVersion {
		errs = append(errs, fmt.Errorf("unsupported settings version: %d (expected %d)", s.Version, CurrentVersion))
	}
	if s.StorePath == "" {
		errs = append(errs, errors.New("store_path is required"))
	}

	for name, d := range map[string]time.Duration{
		"loop_interval":   s.LoopInterval,
		"idle_timeout":    s.IdleTimeout,
		"resync_interval": s.ResyncInterval,
		"http_timeout":    s.HTTPTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	if s.LoopInterval > 0 && s.IdleTimeout > 0 && s.LoopInterval >= s.IdleTimeout {
		errs = append(errs, fmt.Errorf("loop_interval (%s) must be shorter than idle_timeout (%s)", s.LoopInterval, s.IdleTimeout))
	}

	// prefix + " XXXX" must still be a valid SSID
	if err := wifi.ValidateSSID(s.AccessPoint.SSIDPrefix + " 0000"); err != nil {
		errs = append(errs, fmt.Errorf("access_point.ssid_prefix: %w", err))
	}
	if err := wifi.ValidatePSK(s.AccessPoint.PSK); err != nil {
		errs = append(errs, fmt.Errorf("access_point.psk: %w", err))
	}

	for name, addr := range map[string]string{"portal.listen": s.Portal.Listen, "display.listen": s.Display.Listen} {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	for name, raw := range map[string]string{
		"services.geolocation_url": s.Services.GeolocationURL,
		"services.timezone_url":    s.Services.TimezoneURL,
	} {
		u, err := url.Parse(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("%s: must be an absolute http(s) URL, got %q", name, raw))
		}
	}

	switch s.Radio.Backend {
	case BackendNetworkManager, BackendSimulated:
	default:
		errs = append(errs, fmt.Errorf("radio.backend: unknown backend %q", s.Radio.Backend))
	}

	switch s.LogLevel {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level: unknown level %q", s.LogLevel))
	}

	return errors.Join(errs...)
}
