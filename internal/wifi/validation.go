package wifi

import (
	"fmt"
)

// ValidateSSID validates a WiFi SSID.
// SSIDs must be non-empty and <= 32 bytes (802.11 limit).
func ValidateSSID(ssid string) error {
	if ssid == "" {
		return fmt.Errorf("WiFi SSID cannot be empty")
	}
	if len(ssid) > 32 {
		return fmt.Errorf("WiFi SSID too long (max 32 bytes): %d bytes", len(ssid))
	}
	return nil
}

// ValidatePSK validates a WPA2 passphrase.
// Empty means an open network; otherwise 8-63 characters.
func ValidatePSK(psk string) error {
	if psk == "" {
		return nil
	}
	if len(psk) < 8 {
		return fmt.Errorf("WPA2 passphrase too short (min 8 chars): %d chars", len(psk))
	}
	if len(psk) > 63 {
		return fmt.Errorf("WPA2 passphrase too long (max 63 chars): %d chars", len(psk))
	}
	return nil
}

// ValidateCredentials validates a station network configuration.
// Returns a slice of validation errors (empty if valid).
func ValidateCredentials(ssid, psk string) []error {
	var errs []error
	if err := ValidateSSID(ssid); err != nil {
		errs = append(errs, err)
	}
	if err := ValidatePSK(psk); err != nil {
		errs = append(errs, err)
	}
	return errs
}
