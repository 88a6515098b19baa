package display

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lbogdanov/nixieclock/internal/metrics"
)

func dial(t *testing.T, baseURL string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(baseURL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var f Frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	return f
}

func TestHub_StreamsFrames(t *testing.T) {
	hub := NewHub("127.0.0.1:0", nil)
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	hub.Show(Frame{Mode: "clock", Epoch: testEpoch})

	conn := dial(t, srv.URL)

	// The last frame is replayed on connect, after registration.
	if f := readFrame(t, conn); f.Epoch != testEpoch {
		t.Errorf("replayed Epoch = %d, want %d", f.Epoch, testEpoch)
	}

	hub.Show(Frame{Mode: "clock", Epoch: testEpoch + 1, Offset: -18000, Synced: true})
	f := readFrame(t, conn)
	if f.Epoch != testEpoch+1 || f.Offset != -18000 || !f.Synced || f.Mode != "clock" {
		t.Errorf("frame = %+v", f)
	}

	if got := hub.Peers(); got != 1 {
		t.Errorf("Peers() = %d, want 1", got)
	}
}

func TestHub_WireFormat(t *testing.T) {
	hub := NewHub("127.0.0.1:0", nil)
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	hub.Show(Frame{Epoch: 1, Offset: 2, Synced: true, Mode: "clock", Degraded: false})
	conn := dial(t, srv.URL)

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	want := `{"epoch":1,"offset":2,"synced":true,"mode":"clock","degraded":false}`
	if string(data) != want {
		t.Errorf("frame = %s, want %s", data, want)
	}
}

func TestHub_Metrics(t *testing.T) {
	rec := metrics.New(nil)
	rec.IncTransition()
	hub := NewHub("127.0.0.1:0", rec)

	w := httptest.NewRecorder()
	hub.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "nixieclock_mode_transitions_total 1") {
		t.Errorf("metrics missing transition counter:\n%s", w.Body.String())
	}
}

func TestHub_MetricsWithoutRecorder(t *testing.T) {
	hub := NewHub("127.0.0.1:0", nil)

	w := httptest.NewRecorder()
	hub.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestHub_ShutdownClosesPeers(t *testing.T) {
	hub := NewHub("127.0.0.1:0", nil)
	if err := hub.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	hub.Show(Frame{Mode: "clock"})
	conn := dial(t, "http://"+hub.Addr())
	readFrame(t, conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := hub.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("ReadMessage() error = %v, want normal closure", err)
	}
	if got := hub.Peers(); got != 0 {
		t.Errorf("Peers() = %d, want 0", got)
	}
}
