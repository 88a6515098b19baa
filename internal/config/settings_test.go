package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestGetConfigDir(t *testing.T) {
	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if !strings.Contains(configDir, "nixieclock") {
		t.Errorf("GetConfigDir() = %v, should contain 'nixieclock'", configDir)
	}

	if runtime.GOOS == "linux" && os.Getenv("XDG_CONFIG_HOME") == "" {
		if !strings.Contains(configDir, ".config") {
			t.Errorf("Unix config dir should contain '.config', got: %v", configDir)
		}
	}
}

func TestGetConfigDir_XDG(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_CONFIG_HOME only applies on Linux")
	}
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")

	path, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}
	if path != "/tmp/xdg/nixieclock/config.yaml" {
		t.Errorf("GetConfigPath() = %s, want /tmp/xdg/nixieclock/config.yaml", path)
	}
}

func TestDefault(t *testing.T) {
	s := Default()

	if s.Version != 1 {
		t.Errorf("Version = %d, want 1", s.Version)
	}
	if s.IdleTimeout != 60*time.Second {
		t.Errorf("IdleTimeout = %v, want 60s", s.IdleTimeout)
	}
	if s.ResyncInterval != 24*time.Hour {
		t.Errorf("ResyncInterval = %v, want 24h", s.ResyncInterval)
	}
	if s.LoopInterval != 100*time.Millisecond {
		t.Errorf("LoopInterval = %v, want 100ms", s.LoopInterval)
	}
	if s.HTTPTimeout != 5*time.Second {
		t.Errorf("HTTPTimeout = %v, want 5s", s.HTTPTimeout)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("Default().Validate() error = %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.AccessPoint.SSIDPrefix != "NixieClock" {
		t.Errorf("SSIDPrefix = %s, want NixieClock", s.AccessPoint.SSIDPrefix)
	}
}

func TestLoad_PartialFileGetsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `version: 1
idle_timeout: 90s
radio:
  backend: simulated
`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.IdleTimeout != 90*time.Second {
		t.Errorf("IdleTimeout = %v, want 90s", s.IdleTimeout)
	}
	if s.Radio.Backend != BackendSimulated {
		t.Errorf("Radio.Backend = %s, want simulated", s.Radio.Backend)
	}
	if s.Radio.Interface != "wlan0" {
		t.Errorf("Radio.Interface = %s, want wlan0", s.Radio.Interface)
	}
	if s.Portal.Listen != ":80" {
		t.Errorf("Portal.Listen = %s, want :80", s.Portal.Listen)
	}
	if s.ResyncInterval != 24*time.Hour {
		t.Errorf("ResyncInterval = %v, want 24h", s.ResyncInterval)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"bad version", "version: 2\n", "unsupported settings version"},
		{"bad yaml", "version: [\n", "failed to parse"},
		{"bad backend", "version: 1\nradio:\n  backend: iwd\n", "radio.backend"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.data), 0600); err != nil {
				t.Fatalf("WriteFile() error = %v", err)
			}
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestValidate_ReportsEveryField(t *testing.T) {
	s := Default()
	s.LoopInterval = 0
	s.AccessPoint.PSK = "short"
	s.Portal.Listen = "nope"
	s.Services.TimezoneURL = "/relative"
	s.LogLevel = "loud"

	err := s.Validate()
	if err == nil {
		t.Fatal("Validate() expected error")
	}
	for _, want := range []string{"loop_interval", "access_point.psk", "portal.listen", "services.timezone_url", "log_level"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate() error missing %q: %v", want, err)
		}
	}
}

func TestValidate_LoopShorterThanIdle(t *testing.T) {
	s := Default()
	s.LoopInterval = time.Minute
	s.IdleTimeout = time.Minute

	if err := s.Validate(); err == nil || !strings.Contains(err.Error(), "shorter than idle_timeout") {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	s := Default()
	s.IdleTimeout = 2 * time.Minute
	s.Radio.Backend = BackendSimulated
	if err := s.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.HasPrefix(string(data), "# NixieClock daemon settings") {
		t.Error("saved file is missing the header comment")
	}
	if !strings.Contains(string(data), "idle_timeout: 2m0s") {
		t.Errorf("durations should be saved in Go notation:\n%s", data)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.IdleTimeout != 2*time.Minute {
		t.Errorf("IdleTimeout = %v, want 2m", loaded.IdleTimeout)
	}
	if loaded.Radio.Backend != BackendSimulated {
		t.Errorf("Radio.Backend = %s, want simulated", loaded.Radio.Backend)
	}
}
