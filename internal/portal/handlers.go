package portal

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/lbogdanov/nixieclock/internal/logging"
	"github.com/lbogdanov/nixieclock/internal/store"
)

// handleGetSettings returns the stored record as a JSON object keyed by
// field name. A missing or unreadable store yields {}.
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	fields := map[string]string{}

	rec, ok, err := s.store.Load()
	if err != nil {
		logging.Warn("Failed to read settings", zap.Error(err))
	}
	if ok {
		fields = rec.Fields()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(fields); err != nil {
		logging.Debug("Failed to write settings response", zap.Error(err))
	}
}

// handlePostSettings replaces the stored record with the submitted form.
func (s *Server) handlePostSettings(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)

	if err := r.ParseMultipartForm(maxFormSize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		http.Error(w, "malformed form", http.StatusBadRequest)
		return
	}

	var rec store.Record
	for _, field := range store.Schema {
		rec.Set(field, r.PostForm.Get(field))
	}

	if strings.TrimSpace(rec.SSID) == "" {
		http.Error(w, "ssid is required", http.StatusBadRequest)
		return
	}
	if rec.TZ == "" {
		rec.TZ = store.TZDefault
	}

	if err := s.store.Save(rec); err != nil {
		if errors.Is(err, store.ErrMultiline) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		logging.Error("Failed to save settings", zap.Error(err))
		http.Error(w, "Couldn't write config file", http.StatusInternalServerError)
		return
	}

	logging.Info("Settings saved",
		zap.String("ssid", rec.SSID),
		zap.String("tz", rec.TZ),
		zap.String("api_key", logging.MaskSecret(rec.APIKey)),
	)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("OK"))
}
