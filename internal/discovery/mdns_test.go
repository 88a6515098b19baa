package discovery

import (
	"net"
	"testing"

	"github.com/grandcat/zeroconf"
)

func entry(instance, host string, port int, ips []net.IP, txt ...string) *zeroconf.ServiceEntry {
	return &zeroconf.ServiceEntry{
		ServiceRecord: zeroconf.ServiceRecord{Instance: instance, Service: ServiceType, Domain: ServiceDomain},
		HostName:      host,
		Port:          port,
		AddrIPv4:      ips,
		Text:          txt,
	}
}

func TestScanner_parseServiceEntry(t *testing.T) {
	scanner := NewScanner()

	tests := []struct {
		name     string
		entry    *zeroconf.ServiceEntry
		wantNil  bool
		wantID   string
		wantIP   string
		wantPort int
		wantMode string
	}{
		{
			name:     "clock in configuration mode",
			entry:    entry("NixieClock 5CCF", "nixieclock.local.", 80, []net.IP{net.ParseIP("192.168.4.1")}, "path=/", "mode=config"),
			wantID:   "5CCF",
			wantIP:   "192.168.4.1",
			wantPort: 80,
			wantMode: "config",
		},
		{
			name:     "escaped instance name",
			entry:    entry(`NixieClock\ 00A1`, "nixieclock.local.", 8080, []net.IP{net.ParseIP("10.0.0.5")}),
			wantID:   "00A1",
			wantIP:   "10.0.0.5",
			wantPort: 8080,
			wantMode: "unknown",
		},
		{
			name:     "decimal escape and default port",
			entry:    entry(`NixieClock\0325CCF`, "", 0, []net.IP{net.ParseIP("172.16.0.1")}),
			wantID:   "5CCF",
			wantIP:   "172.16.0.1",
			wantPort: DefaultPort,
			wantMode: "unknown",
		},
		{
			name:    "other http service",
			entry:   entry("Living Room Printer", "printer.local.", 80, []net.IP{net.ParseIP("192.168.1.9")}),
			wantNil: true,
		},
		{
			name:    "suffix too long",
			entry:   entry("NixieClock 5CCF7F", "", 80, []net.IP{net.ParseIP("192.168.1.9")}),
			wantNil: true,
		},
		{
			name:    "no address",
			entry:   entry("NixieClock 5CCF", "", 80, nil),
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			device := scanner.parseServiceEntry(tt.entry)

			if tt.wantNil {
				if device != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", device)
				}
				return
			}
			if device == nil {
				t.Fatal("parseServiceEntry() returned nil")
			}
			if device.ID != tt.wantID {
				t.Errorf("ID = %v, want %v", device.ID, tt.wantID)
			}
			if device.IP != tt.wantIP {
				t.Errorf("IP = %v, want %v", device.IP, tt.wantIP)
			}
			if device.Port != tt.wantPort {
				t.Errorf("Port = %v, want %v", device.Port, tt.wantPort)
			}
			if device.Mode() != tt.wantMode {
				t.Errorf("Mode() = %v, want %v", device.Mode(), tt.wantMode)
			}
		})
	}
}

func TestScanner_IPv6Fallback(t *testing.T) {
	e := entry("NixieClock 5CCF", "", 80, nil)
	e.AddrIPv6 = []net.IP{net.ParseIP("fe80::1")}

	device := NewScanner().parseServiceEntry(e)
	if device == nil {
		t.Fatal("parseServiceEntry() returned nil")
	}
	if device.BaseURL() != "http://[fe80::1]:80" {
		t.Errorf("BaseURL() = %s, want http://[fe80::1]:80", device.BaseURL())
	}
}

func TestScanner_CustomPrefix(t *testing.T) {
	scanner := NewScanner()
	scanner.Prefix = "Tubes"

	if scanner.parseServiceEntry(entry("Tubes 0102", "", 80, []net.IP{net.ParseIP("10.1.1.1")})) == nil {
		t.Error("custom prefix not matched")
	}
	if scanner.parseServiceEntry(entry("NixieClock 0102", "", 80, []net.IP{net.ParseIP("10.1.1.1")})) != nil {
		t.Error("default prefix matched with a custom prefix set")
	}
}

func TestUnescapeInstance(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"NixieClock 5CCF", "NixieClock 5CCF"},
		{`NixieClock\ 5CCF`, "NixieClock 5CCF"},
		{`NixieClock\0325CCF`, "NixieClock 5CCF"},
		{`a\.b`, "a.b"},
		{`trailing\`, `trailing\`},
	}
	for _, tt := range tests {
		if got := unescapeInstance(tt.in); got != tt.want {
			t.Errorf("unescapeInstance(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
