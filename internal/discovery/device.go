package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Device represents a clock found on the network
type Device struct {
	// Instance is the mDNS instance name (e.g., "NixieClock 5CCF")
	Instance string

	// ID is the hex suffix of the instance name, derived from the AP MAC
	ID string

	// Hostname is the mDNS hostname
	Hostname string

	// IP is the preferred address (IPv4 when available)
	IP string

	// Port is the HTTP port (typically 80)
	Port int

	// Metadata contains the TXT record data ("path=/", "mode=config")
	Metadata map[string]string

	// DiscoveredAt is when the device was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the device
func (d *Device) String() string {
	return fmt.Sprintf("%s (%s) at %s", d.Instance, d.Mode(), net.JoinHostPort(d.IP, strconv.Itoa(d.Port)))
}

// BaseURL returns the HTTP base URL of the portal
func (d *Device) BaseURL() string {
	return "http://" + net.JoinHostPort(d.IP, strconv.Itoa(d.Port))
}

// Mode returns the advertised behavior, "unknown" when not advertised
func (d *Device) Mode() string {
	if m := d.GetMetadata(TXTMode); m != "" {
		return m
	}
	return "unknown"
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (d *Device) GetMetadata(key string) string {
	if d.Metadata == nil {
		return ""
	}
	return d.Metadata[key]
}
