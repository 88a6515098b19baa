package portalclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/lbogdanov/nixieclock/internal/portal"
	"github.com/lbogdanov/nixieclock/internal/store"
)

func newPortal(t *testing.T) (*httptest.Server, *portal.Server) {
	t.Helper()
	p := portal.NewServer("127.0.0.1:0", store.New(afero.NewMemMapFs(), "/data/config.txt"), nil)
	srv := httptest.NewServer(p.Handler())
	t.Cleanup(srv.Close)
	return srv, p
}

func fastClient(baseURL string) *Client {
	c := NewClient(baseURL)
	c.SetRetry(2, time.Millisecond)
	return c
}

func TestNewClient(t *testing.T) {
	c := NewClient("http://192.168.4.1/")

	if c.BaseURL != "http://192.168.4.1" {
		t.Errorf("BaseURL = %s, want http://192.168.4.1", c.BaseURL)
	}
	if c.HTTPClient.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", c.HTTPClient.Timeout, DefaultTimeout)
	}
	if c.MaxRetries != DefaultMaxRetries {
		t.Errorf("MaxRetries = %d, want %d", c.MaxRetries, DefaultMaxRetries)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	srv, p := newPortal(t)
	c := fastClient(srv.URL)
	ctx := context.Background()

	if _, ok, err := c.GetSettings(ctx); err != nil || ok {
		t.Fatalf("GetSettings() on empty store = %v, %v, want absent", ok, err)
	}

	want := store.Record{SSID: "HomeNet", SSIDPSK: "correcthorse", APIKey: "AIzaKey", TZ: "+09:30"}
	if err := c.PostSettings(ctx, want); err != nil {
		t.Fatalf("PostSettings() error = %v", err)
	}

	got, ok, err := c.GetSettings(ctx)
	if err != nil || !ok {
		t.Fatalf("GetSettings() = %v, %v", ok, err)
	}
	if got != want {
		t.Errorf("GetSettings() = %+v, want %+v", got, want)
	}

	mismatches, err := c.Mismatches(ctx, want)
	if err != nil {
		t.Fatalf("Mismatches() error = %v", err)
	}
	if len(mismatches) != 0 {
		t.Errorf("Mismatches() = %v, want none", mismatches)
	}

	// Every client request is portal activity.
	if p.Activity() != 4 {
		t.Errorf("Activity() = %d, want 4", p.Activity())
	}
}

func TestMismatches(t *testing.T) {
	srv, _ := newPortal(t)
	c := fastClient(srv.URL)
	ctx := context.Background()

	if err := c.PostSettings(ctx, store.Record{SSID: "HomeNet", TZ: "auto"}); err != nil {
		t.Fatalf("PostSettings() error = %v", err)
	}

	mismatches, err := c.Mismatches(ctx, store.Record{SSID: "Other", TZ: "auto"})
	if err != nil {
		t.Fatalf("Mismatches() error = %v", err)
	}
	if len(mismatches) != 1 {
		t.Errorf("Mismatches() = %v, want one ssid mismatch", mismatches)
	}
}

func TestPostSettings_Rejected(t *testing.T) {
	srv, _ := newPortal(t)
	c := fastClient(srv.URL)

	err := c.PostSettings(context.Background(), store.Record{TZ: "auto"})
	if !IsRejected(err) {
		t.Errorf("PostSettings() error = %v, want rejected", err)
	}

	err = c.PostSettings(context.Background(), store.Record{SSID: "a\nb"})
	if !IsRejected(err) || !errors.Is(err, store.ErrMultiline) {
		t.Errorf("PostSettings() error = %v, want rejected multi-line", err)
	}
}

func TestRetry_ServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"ssid":"HomeNet","ssid-psk":"","api-key":"","tz":"auto"}`))
	}))
	defer srv.Close()

	rec, ok, err := fastClient(srv.URL).GetSettings(context.Background())
	if err != nil || !ok {
		t.Fatalf("GetSettings() = %v, %v", ok, err)
	}
	if rec.SSID != "HomeNet" {
		t.Errorf("SSID = %s, want HomeNet", rec.SSID)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestRetry_GivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "busy", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, _, err := fastClient(srv.URL).GetSettings(context.Background())
	var pe *PortalError
	if !errors.As(err, &pe) || pe.StatusCode != http.StatusInternalServerError {
		t.Fatalf("GetSettings() error = %v, want 500 PortalError", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3 (1 + 2 retries)", calls.Load())
	}
}

func TestRetry_NotForRejections(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "ssid is required", http.StatusBadRequest)
	}))
	defer srv.Close()

	err := fastClient(srv.URL).PostSettings(context.Background(), store.Record{SSID: "x"})
	if !IsRejected(err) {
		t.Errorf("PostSettings() error = %v, want rejected", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestGetSettings_Malformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	}))
	defer srv.Close()

	_, _, err := fastClient(srv.URL).GetSettings(context.Background())
	var pe *PortalError
	if !errors.As(err, &pe) || pe.Type != ErrTypeParse {
		t.Errorf("GetSettings() error = %v, want parse error", err)
	}
}

func TestNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, _, err := fastClient(url).GetSettings(context.Background())
	if !IsRetryable(err) {
		t.Errorf("GetSettings() error = %v, want retryable network error", err)
	}
	if len(Troubleshooting(err)) == 0 {
		t.Error("network failures should come with troubleshooting hints")
	}
}

func TestRetry_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	c.SetRetry(5, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, _, err := c.GetSettings(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("GetSettings() error = %v, want deadline exceeded", err)
	}
}

func TestPortalErrorRetryable(t *testing.T) {
	tests := []struct {
		err  *PortalError
		want bool
	}{
		{&PortalError{Type: ErrTypeTimeout}, true},
		{&PortalError{Type: ErrTypeConnectionRefused}, true},
		{&PortalError{Type: ErrTypeHTTP, StatusCode: 503}, true},
		{&PortalError{Type: ErrTypeHTTP, StatusCode: 404}, false},
		{&PortalError{Type: ErrTypeRejected, StatusCode: 400}, false},
		{&PortalError{Type: ErrTypeParse}, false},
	}

	for _, tt := range tests {
		if got := tt.err.Retryable(); got != tt.want {
			t.Errorf("%s/%d Retryable() = %v, want %v", tt.err.Type, tt.err.StatusCode, got, tt.want)
		}
	}
}
