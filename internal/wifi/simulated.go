package wifi

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/lbogdanov/nixieclock/internal/logging"
	"go.uber.org/zap"
)

// Simulated is an in-memory Radio for workstations and tests.
// Join succeeds only for networks listed in Networks with a matching PSK.
type Simulated struct {
	HardwareAddr net.HardwareAddr
	Networks     map[string]string // SSID -> PSK
	Visible      []AccessPoint

	// Set to force failures.
	StartAPErr error
	ScanErr    error

	mu        sync.Mutex
	apActive  bool
	apConfig  APConfig
	joined    string
	scanCount int
	joinCount int
}

// NewSimulated creates a simulated radio with a fixed MAC and a handful of
// neighbouring access points.
func NewSimulated() *Simulated {
	return &Simulated{
		HardwareAddr: net.HardwareAddr{0x5c, 0xcf, 0x7f, 0x12, 0x34, 0x56},
		Networks:     map[string]string{},
		Visible: []AccessPoint{
			{BSSID: mustMAC("00:25:9c:cf:1c:ac"), SSID: "neighbour-1", Channel: 11, SignalStrength: -43},
			{BSSID: mustMAC("00:25:9c:cf:1c:ad"), SSID: "neighbour-2", Channel: 6, SignalStrength: -55},
			{BSSID: mustMAC("00:25:9c:cf:1c:ae"), SSID: "neighbour-3", Channel: 1, SignalStrength: -71},
		},
	}
}

func mustMAC(s string) net.HardwareAddr {
	mac, err := net.ParseMAC(s)
	if err != nil {
		panic(err)
	}
	return mac
}

// MAC implements Radio.
func (s *Simulated) MAC() (net.HardwareAddr, error) {
	return s.HardwareAddr, nil
}

// StartAP implements Radio.
func (s *Simulated) StartAP(_ context.Context, cfg APConfig) error {
	if s.StartAPErr != nil {
		return s.StartAPErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apActive = true
	s.apConfig = cfg
	logging.Info("Simulated access point started", zap.String("ssid", cfg.SSID))
	return nil
}

// StopAP implements Radio.
func (s *Simulated) StopAP(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.apActive {
		logging.Info("Simulated access point stopped", zap.String("ssid", s.apConfig.SSID))
	}
	s.apActive = false
	return nil
}

// Join implements Radio.
func (s *Simulated) Join(_ context.Context, ssid, psk string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.joinCount++

	if s.apActive {
		return fmt.Errorf("cannot join %q while access point is active", ssid)
	}
	want, ok := s.Networks[ssid]
	if !ok || want != psk {
		return fmt.Errorf("join %q: %w", ssid, ErrNotConnected)
	}
	s.joined = ssid
	return nil
}

// Scan implements Radio.
func (s *Simulated) Scan(_ context.Context) ([]AccessPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scanCount++
	if s.ScanErr != nil {
		return nil, s.ScanErr
	}
	out := make([]AccessPoint, len(s.Visible))
	copy(out, s.Visible)
	return out, nil
}

// APActive reports whether the soft AP is up.
func (s *Simulated) APActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apActive
}

// APConfig returns the configuration of the last started soft AP.
func (s *Simulated) APConfig() APConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apConfig
}

// Joined returns the SSID of the joined network, if any.
func (s *Simulated) Joined() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.joined
}

// Scans returns how many scans were requested.
func (s *Simulated) Scans() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanCount
}

// Joins returns how many join attempts were made.
func (s *Simulated) Joins() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.joinCount
}
