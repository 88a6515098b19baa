package wifi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
)

// ErrNotConnected is returned by Join when the association did not complete.
var ErrNotConnected = errors.New("wifi: not connected")

// AccessPoint is a single observation from a Wi-Fi scan.
type AccessPoint struct {
	BSSID          net.HardwareAddr
	SSID           string
	Channel        int
	SignalStrength int // dBm
}

// String returns a compact representation for logs.
func (ap AccessPoint) String() string {
	return fmt.Sprintf("%s ch%d %ddBm", ap.BSSID, ap.Channel, ap.SignalStrength)
}

// APConfig describes the soft access point opened in configuration mode.
type APConfig struct {
	SSID string
	PSK  string
}

// Radio is the Wi-Fi hardware as seen by the behaviors.
// Exactly one behavior owns a Radio at a time.
type Radio interface {
	// MAC returns the hardware address of the station interface.
	MAC() (net.HardwareAddr, error)
	// StartAP opens a soft access point.
	StartAP(ctx context.Context, cfg APConfig) error
	// StopAP closes the soft access point. Stopping a closed AP is a no-op.
	StopAP(ctx context.Context) error
	// Join associates with a network in station mode.
	Join(ctx context.Context, ssid, psk string) error
	// Scan returns the visible access points.
	Scan(ctx context.Context) ([]AccessPoint, error)
}

// SortByStrength orders observations strongest first.
func SortByStrength(aps []AccessPoint) {
	sort.SliceStable(aps, func(i, j int) bool {
		return aps[i].SignalStrength > aps[j].SignalStrength
	})
}

// ChannelFromFrequency converts a center frequency in MHz to a channel number.
// Returns 0 for frequencies outside the 2.4, 5 and 6 GHz bands.
func ChannelFromFrequency(mhz uint32) int {
	switch {
	case mhz == 2484:
		return 14
	case mhz >= 2412 && mhz < 2484:
		return int(mhz-2407) / 5
	case mhz >= 5955 && mhz <= 7115:
		return int(mhz-5950) / 5
	case mhz >= 5000 && mhz < 5925:
		return int(mhz-5000) / 5
	default:
		return 0
	}
}

// DBMFromQuality approximates dBm from a 0-100 signal quality percentage.
func DBMFromQuality(quality uint8) int {
	if quality > 100 {
		quality = 100
	}
	return int(quality)/2 - 100
}

// PortalSSID builds the soft AP name from a prefix and the first two MAC bytes.
func PortalSSID(prefix string, mac net.HardwareAddr) string {
	if len(mac) < 2 {
		return prefix
	}
	return fmt.Sprintf("%s %02X%02X", prefix, mac[0], mac[1])
}
