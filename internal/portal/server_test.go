package portal

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/lbogdanov/nixieclock/internal/store"
)

const storePath = "/data/config.txt"

func newTestPortal(t *testing.T) (*Server, *store.Store, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	st := store.New(fs, storePath)
	return NewServer("127.0.0.1:0", st, nil), st, fs
}

func postForm(t *testing.T, h http.Handler, values url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/settings", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGetSettings_Empty(t *testing.T) {
	s, _, _ := newTestPortal(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/settings", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "{}" {
		t.Errorf("body = %s, want {}", body)
	}
}

func TestPostThenGetSettings(t *testing.T) {
	s, st, fs := newTestPortal(t)
	h := s.Handler()

	rec := postForm(t, h, url.Values{
		"ssid":     {"HomeNet"},
		"ssid-psk": {"correcthorse"},
		"api-key":  {"AIzaKey"},
		"tz":       {"auto"},
	})
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("POST = %d %q, want 200 OK", rec.Code, rec.Body.String())
	}

	data, err := afero.ReadFile(fs, storePath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "HomeNet\ncorrecthorse\nAIzaKey\nauto\n" {
		t.Errorf("stored = %q", data)
	}

	loaded, ok, err := st.Load()
	if err != nil || !ok {
		t.Fatalf("Load() = %v, %v", ok, err)
	}
	if loaded.SSID != "HomeNet" {
		t.Errorf("SSID = %s, want HomeNet", loaded.SSID)
	}

	get := httptest.NewRecorder()
	h.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/settings", nil))
	var fields map[string]string
	if err := json.Unmarshal(get.Body.Bytes(), &fields); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	want := map[string]string{"ssid": "HomeNet", "ssid-psk": "correcthorse", "api-key": "AIzaKey", "tz": "auto"}
	for k, v := range want {
		if fields[k] != v {
			t.Errorf("fields[%s] = %q, want %q", k, fields[k], v)
		}
	}
	if cc := get.Header().Get("Cache-Control"); !strings.Contains(cc, "no-cache") {
		t.Errorf("Cache-Control = %q, want no-cache", cc)
	}
}

func TestPostSettings_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		values url.Values
	}{
		{"missing ssid", url.Values{"ssid-psk": {"x"}, "tz": {"auto"}}},
		{"blank ssid", url.Values{"ssid": {"  "}, "tz": {"auto"}}},
		{"multi-line value", url.Values{"ssid": {"Home"}, "api-key": {"a\nb"}, "tz": {"auto"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, st, _ := newTestPortal(t)
			if err := st.Save(store.Record{SSID: "Prior", TZ: "auto"}); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			rec := postForm(t, s.Handler(), tt.values)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}

			loaded, ok, _ := st.Load()
			if !ok || loaded.SSID != "Prior" {
				t.Errorf("prior record not kept: %+v", loaded)
			}
		})
	}
}

func TestPostSettings_BlankTZDefaultsToUTC(t *testing.T) {
	s, st, _ := newTestPortal(t)

	rec := postForm(t, s.Handler(), url.Values{"ssid": {"HomeNet"}, "api-key": {"key"}, "tz": {""}})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	loaded, ok, err := st.Load()
	if err != nil || !ok {
		t.Fatalf("Load() = %v, %v", ok, err)
	}
	if loaded.TZ != store.TZDefault {
		t.Errorf("tz = %q, want %q", loaded.TZ, store.TZDefault)
	}
}

func TestPostSettings_WriteFailure(t *testing.T) {
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	s := NewServer("127.0.0.1:0", store.New(fs, storePath), nil)

	rec := postForm(t, s.Handler(), url.Values{"ssid": {"HomeNet"}, "tz": {"auto"}})
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestUpdateNotFound(t *testing.T) {
	s, _, _ := newTestPortal(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/update", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestStaticAssets(t *testing.T) {
	s, _, _ := newTestPortal(t)

	for _, path := range []string{"/", "/app.css", "/app.js"} {
		t.Run(path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			if cc := rec.Header().Get("Cache-Control"); cc != "max-age=86400" {
				t.Errorf("Cache-Control = %q, want max-age=86400", cc)
			}
		})
	}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if !strings.Contains(rec.Body.String(), `name="ssid"`) {
		t.Error("index page should contain the settings form")
	}
}

func TestActivityCountsEveryRequest(t *testing.T) {
	s, _, _ := newTestPortal(t)
	h := s.Handler()

	requests := []*http.Request{
		httptest.NewRequest(http.MethodGet, "/", nil),
		httptest.NewRequest(http.MethodGet, "/settings", nil),
		httptest.NewRequest(http.MethodGet, "/update", nil),
		httptest.NewRequest(http.MethodGet, "/generate_204", nil),
		httptest.NewRequest(http.MethodDelete, "/settings", nil),
		httptest.NewRequest(http.MethodHead, "/", nil),
	}
	for _, req := range requests {
		h.ServeHTTP(httptest.NewRecorder(), req)
	}

	if got := s.Activity(); got != uint64(len(requests)) {
		t.Errorf("Activity() = %d, want %d", got, len(requests))
	}
}

func TestStartShutdown(t *testing.T) {
	s, _, _ := newTestPortal(t)

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	resp, err := http.Get("http://" + s.Addr() + "/settings")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if err := s.Shutdown(ctx); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}

	if _, err := http.Get("http://" + s.Addr() + "/settings"); err == nil {
		t.Error("portal still serving after Shutdown()")
	}
}
