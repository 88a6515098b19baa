// Package config provides the daemon settings file for NixieClock.
//
// The settings file is YAML and controls how the daemon runs: loop and
// timeout durations, listen addresses, service endpoints and the radio
// backend. It does not hold the operator's Wi-Fi credentials or API key;
// those are entered through the portal and persisted by package store.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/nixieclock/config.yaml or $HOME/.config/nixieclock/config.yaml
//   - macOS: $HOME/.config/nixieclock/config.yaml
//   - Windows: %LOCALAPPDATA%\nixieclock\config.yaml
//
// Daemons usually pass an explicit path with --config.
//
// # Usage Example
//
//	settings, err := config.Load("/etc/nixieclock/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(settings.IdleTimeout) // 1m0s unless overridden
package config
