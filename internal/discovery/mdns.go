package discovery

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/lbogdanov/nixieclock/internal/logging"
)

const (
	// ServiceType is the mDNS service type of the configuration portal
	ServiceType = "_http._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for device discovery
	DefaultScanTimeout = 5 * time.Second

	// DefaultPort is the default HTTP port of the portal
	DefaultPort = 80

	// DefaultPrefix is the instance name prefix of every clock
	DefaultPrefix = "NixieClock"

	// TXT record keys
	TXTPath = "path"
	TXTMode = "mode"

	// ModeConfig is the TXT mode value while the portal is up
	ModeConfig = "config"
)

// Responder advertises the portal over mDNS.
type Responder struct{}

// Advertise registers instance on port with TXT "path=/" and "mode=config".
// The returned stop function withdraws the advertisement; it is safe to
// call more than once.
func (Responder) Advertise(instance string, port int) (stop func(), err error) {
	txt := []string{TXTPath + "=/", TXTMode + "=" + ModeConfig}
	server, err := zeroconf.Register(instance, ServiceType, ServiceDomain, port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service %q: %w", instance, err)
	}
	logging.Info("mDNS advertisement registered",
		zap.String("instance", instance),
		zap.Int("port", port),
	)

	stopped := false
	return func() {
		if stopped {
			return
		}
		stopped = true
		server.Shutdown()
		logging.Info("mDNS advertisement withdrawn", zap.String("instance", instance))
	}, nil
}

// Scanner handles mDNS device discovery
type Scanner struct {
	// Timeout is the maximum time to wait for device discovery
	Timeout time.Duration

	// Prefix is the instance name prefix to look for
	Prefix string
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
		Prefix:  DefaultPrefix,
	}
}

// ScanForDevices discovers clocks until the timeout or ctx expires
func (s *Scanner) ScanForDevices(ctx context.Context) ([]*Device, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	done := make(chan struct{})
	seen := make(map[string]bool)
	devices := make([]*Device, 0)

	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case entry, ok := <-entries:
				if !ok {
					return
				}
				device := s.parseServiceEntry(entry)
				if device == nil || seen[device.Instance] {
					continue
				}
				seen[device.Instance] = true
				devices = append(devices, device)
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()
	<-done
	return devices, nil
}

// parseServiceEntry converts a zeroconf service entry to a Device.
// Returns nil if the entry is not a clock.
func (s *Scanner) parseServiceEntry(entry *zeroconf.ServiceEntry) *Device {
	prefix := s.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}

	instance := unescapeInstance(entry.Instance)
	matches := instancePattern(prefix).FindStringSubmatch(instance)
	if len(matches) < 2 {
		return nil
	}

	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		k, v, _ := strings.Cut(txt, "=")
		metadata[k] = v
	}

	return &Device{
		Instance:     instance,
		ID:           matches[1],
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

func instancePattern(prefix string) *regexp.Regexp {
	return regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + ` ([0-9A-Fa-f]{4})$`)
}

// unescapeInstance undoes DNS presentation escaping ("\ " and "\032").
func unescapeInstance(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			b.WriteByte(s[i])
			continue
		}
		if i+3 < len(s) && isDigit(s[i+1]) && isDigit(s[i+2]) && isDigit(s[i+3]) {
			b.WriteByte((s[i+1]-'0')*100 + (s[i+2]-'0')*10 + (s[i+3] - '0'))
			i += 3
			continue
		}
		b.WriteByte(s[i+1])
		i++
	}
	return b.String()
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// QuickScan performs a fast scan with a 3-second timeout
func QuickScan(ctx context.Context) ([]*Device, error) {
	scanner := NewScanner()
	scanner.Timeout = 3 * time.Second
	return scanner.ScanForDevices(ctx)
}
