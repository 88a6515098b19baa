package wifi

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"

	"github.com/lbogdanov/nixieclock/internal/logging"
)

const (
	nmDest          = "org.freedesktop.NetworkManager"
	nmPath          = dbus.ObjectPath("/org/freedesktop/NetworkManager")
	nmIface         = "org.freedesktop.NetworkManager"
	nmWirelessIface = "org.freedesktop.NetworkManager.Device.Wireless"
	nmAPIface       = "org.freedesktop.NetworkManager.AccessPoint"
	nmActiveIface   = "org.freedesktop.NetworkManager.Connection.Active"
	nmSettingsIface = "org.freedesktop.NetworkManager.Settings.Connection"

	// NMActiveConnectionState values
	nmActiveActivated   = 2
	nmActiveDeactivated = 4

	pollInterval = 250 * time.Millisecond
)

// NetworkManager drives a wireless interface through the NetworkManager
// D-Bus API.
type NetworkManager struct {
	// Interface is the wireless interface name (e.g., "wlan0").
	Interface string

	conn *dbus.Conn

	mu       sync.Mutex
	apActive dbus.ObjectPath // active connection of the soft AP
	apConn   dbus.ObjectPath // settings connection of the soft AP
}

// NewNetworkManager connects to the system bus.
func NewNetworkManager(iface string) (*NetworkManager, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to system bus: %w", err)
	}
	if iface == "" {
		iface = "wlan0"
	}
	return &NetworkManager{Interface: iface, conn: conn}, nil
}

// Close releases the bus connection.
func (nm *NetworkManager) Close() error {
	return nm.conn.Close()
}

func (nm *NetworkManager) device(ctx context.Context) (dbus.BusObject, error) {
	var path dbus.ObjectPath
	err := nm.conn.Object(nmDest, nmPath).
		CallWithContext(ctx, nmIface+".GetDeviceByIpIface", 0, nm.Interface).
		Store(&path)
	if err != nil {
		return nil, fmt.Errorf("no NetworkManager device %q: %w", nm.Interface, err)
	}
	return nm.conn.Object(nmDest, path), nil
}

// MAC implements Radio.
func (nm *NetworkManager) MAC() (net.HardwareAddr, error) {
	dev, err := nm.device(context.Background())
	if err != nil {
		return nil, err
	}
	v, err := dev.GetProperty(nmWirelessIface + ".HwAddress")
	if err != nil {
		return nil, fmt.Errorf("failed to read hardware address: %w", err)
	}
	s, ok := v.Value().(string)
	if !ok {
		return nil, fmt.Errorf("unexpected HwAddress type %T", v.Value())
	}
	return net.ParseMAC(s)
}

// StartAP implements Radio.
func (nm *NetworkManager) StartAP(ctx context.Context, cfg APConfig) error {
	dev, err := nm.device(ctx)
	if err != nil {
		return err
	}

	settingsPath, activePath, err := nm.addAndActivate(ctx, dev.Path(), apSettings(cfg))
	if err != nil {
		return fmt.Errorf("failed to start access point %q: %w", cfg.SSID, err)
	}

	nm.mu.Lock()
	nm.apConn = settingsPath
	nm.apActive = activePath
	nm.mu.Unlock()

	if err := nm.waitActivated(ctx, activePath); err != nil {
		_ = nm.StopAP(context.Background())
		return fmt.Errorf("access point %q did not come up: %w", cfg.SSID, err)
	}

	logging.Info("Access point started",
		zap.String("ssid", cfg.SSID),
		zap.String("interface", nm.Interface),
	)
	return nil
}

// StopAP implements Radio.
func (nm *NetworkManager) StopAP(ctx context.Context) error {
	nm.mu.Lock()
	active, settings := nm.apActive, nm.apConn
	nm.apActive, nm.apConn = "", ""
	nm.mu.Unlock()

	if active == "" {
		return nil
	}

	root := nm.conn.Object(nmDest, nmPath)
	if err := root.CallWithContext(ctx, nmIface+".DeactivateConnection", 0, active).Err; err != nil {
		logging.Warn("Failed to deactivate access point", zap.Error(err))
	}
	if err := nm.conn.Object(nmDest, settings).CallWithContext(ctx, nmSettingsIface+".Delete", 0).Err; err != nil {
		return fmt.Errorf("failed to delete access point connection: %w", err)
	}
	return nil
}

// Join implements Radio.
func (nm *NetworkManager) Join(ctx context.Context, ssid, psk string) error {
	dev, err := nm.device(ctx)
	if err != nil {
		return err
	}

	_, activePath, err := nm.addAndActivate(ctx, dev.Path(), stationSettings(ssid, psk))
	if err != nil {
		return fmt.Errorf("join %q: %w", ssid, err)
	}
	if err := nm.waitActivated(ctx, activePath); err != nil {
		return fmt.Errorf("join %q: %w", ssid, err)
	}
	return nil
}

// Scan implements Radio.
func (nm *NetworkManager) Scan(ctx context.Context) ([]AccessPoint, error) {
	dev, err := nm.device(ctx)
	if err != nil {
		return nil, err
	}

	before := lastScan(dev)
	if err := dev.CallWithContext(ctx, nmWirelessIface+".RequestScan", 0, map[string]dbus.Variant{}).Err; err != nil {
		// NetworkManager refuses back-to-back scans; the cached list is still usable.
		logging.Debug("Scan request rejected, using cached results", zap.Error(err))
	} else {
		nm.waitScan(ctx, dev, before)
	}

	var paths []dbus.ObjectPath
	if err := dev.CallWithContext(ctx, nmWirelessIface+".GetAllAccessPoints", 0).Store(&paths); err != nil {
		return nil, fmt.Errorf("failed to list access points: %w", err)
	}

	aps := make([]AccessPoint, 0, len(paths))
	for _, p := range paths {
		ap, err := nm.readAccessPoint(p)
		if err != nil {
			logging.Debug("Skipping access point", zap.String("path", string(p)), zap.Error(err))
			continue
		}
		aps = append(aps, ap)
	}
	SortByStrength(aps)
	return aps, nil
}

func (nm *NetworkManager) readAccessPoint(path dbus.ObjectPath) (AccessPoint, error) {
	obj := nm.conn.Object(nmDest, path)

	hw, err := obj.GetProperty(nmAPIface + ".HwAddress")
	if err != nil {
		return AccessPoint{}, err
	}
	mac, err := net.ParseMAC(fmt.Sprint(hw.Value()))
	if err != nil {
		return AccessPoint{}, err
	}

	var ap AccessPoint
	ap.BSSID = mac
	if v, err := obj.GetProperty(nmAPIface + ".Frequency"); err == nil {
		if f, ok := v.Value().(uint32); ok {
			ap.Channel = ChannelFromFrequency(f)
		}
	}
	if v, err := obj.GetProperty(nmAPIface + ".Strength"); err == nil {
		if q, ok := v.Value().(byte); ok {
			ap.SignalStrength = DBMFromQuality(q)
		}
	}
	if v, err := obj.GetProperty(nmAPIface + ".Ssid"); err == nil {
		if b, ok := v.Value().([]byte); ok {
			ap.SSID = string(b)
		}
	}
	return ap, nil
}

func (nm *NetworkManager) addAndActivate(ctx context.Context, device dbus.ObjectPath, settings map[string]map[string]dbus.Variant) (dbus.ObjectPath, dbus.ObjectPath, error) {
	var settingsPath, activePath dbus.ObjectPath
	err := nm.conn.Object(nmDest, nmPath).
		CallWithContext(ctx, nmIface+".AddAndActivateConnection", 0, settings, device, dbus.ObjectPath("/")).
		Store(&settingsPath, &activePath)
	if err != nil {
		return "", "", err
	}
	return settingsPath, activePath, nil
}

func (nm *NetworkManager) waitActivated(ctx context.Context, active dbus.ObjectPath) error {
	obj := nm.conn.Object(nmDest, active)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		v, err := obj.GetProperty(nmActiveIface + ".State")
		if err != nil {
			return fmt.Errorf("failed to read connection state: %w", err)
		}
		switch state, _ := v.Value().(uint32); state {
		case nmActiveActivated:
			return nil
		case nmActiveDeactivated:
			return ErrNotConnected
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrNotConnected, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (nm *NetworkManager) waitScan(ctx context.Context, dev dbus.BusObject, before int64) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	deadline := time.After(5 * time.Second)

	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			return
		case <-ticker.C:
			if lastScan(dev) != before {
				return
			}
		}
	}
}

func lastScan(dev dbus.BusObject) int64 {
	v, err := dev.GetProperty(nmWirelessIface + ".LastScan")
	if err != nil {
		return 0
	}
	ts, _ := v.Value().(int64)
	return ts
}

func apSettings(cfg APConfig) map[string]map[string]dbus.Variant {
	s := map[string]map[string]dbus.Variant{
		"connection": {
			"id":          dbus.MakeVariant(cfg.SSID),
			"type":        dbus.MakeVariant("802-11-wireless"),
			"autoconnect": dbus.MakeVariant(false),
		},
		"802-11-wireless": {
			"ssid": dbus.MakeVariant([]byte(cfg.SSID)),
			"mode": dbus.MakeVariant("ap"),
			"band": dbus.MakeVariant("bg"),
		},
		"ipv4": {"method": dbus.MakeVariant("shared")},
		"ipv6": {"method": dbus.MakeVariant("ignore")},
	}
	if cfg.PSK != "" {
		s["802-11-wireless-security"] = map[string]dbus.Variant{
			"key-mgmt": dbus.MakeVariant("wpa-psk"),
			"psk":      dbus.MakeVariant(cfg.PSK),
		}
	}
	return s
}

func stationSettings(ssid, psk string) map[string]map[string]dbus.Variant {
	s := map[string]map[string]dbus.Variant{
		"connection": {
			"id":   dbus.MakeVariant(ssid),
			"type": dbus.MakeVariant("802-11-wireless"),
		},
		"802-11-wireless": {
			"ssid": dbus.MakeVariant([]byte(ssid)),
			"mode": dbus.MakeVariant("infrastructure"),
		},
		"ipv4": {"method": dbus.MakeVariant("auto")},
	}
	if psk != "" {
		s["802-11-wireless-security"] = map[string]dbus.Variant{
			"key-mgmt": dbus.MakeVariant("wpa-psk"),
			"psk":      dbus.MakeVariant(psk),
		}
	}
	return s
}
