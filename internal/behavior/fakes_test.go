package behavior

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/lbogdanov/nixieclock/internal/display"
	"github.com/lbogdanov/nixieclock/internal/store"
	"github.com/lbogdanov/nixieclock/internal/timesync"
	"github.com/lbogdanov/nixieclock/internal/wifi"
)

// events records the order of side effects across fakes.
type events []string

func (e *events) add(s string) { *e = append(*e, s) }

func (e events) index(s string) int {
	for i, v := range e {
		if v == s {
			return i
		}
	}
	return -1
}

func (e events) count(s string) int {
	n := 0
	for _, v := range e {
		if v == s {
			n++
		}
	}
	return n
}

type fakeRadio struct {
	log      *events
	joinErr  error
	startErr error
	joined   []string
	// time left on the join context, -1 without a deadline
	joinBudget time.Duration
}

func (r *fakeRadio) MAC() (net.HardwareAddr, error) {
	return net.HardwareAddr{0x5c, 0xcf, 0x7f, 0x01, 0x02, 0x03}, nil
}

func (r *fakeRadio) StartAP(_ context.Context, cfg wifi.APConfig) error {
	r.log.add("start-ap " + cfg.SSID)
	return r.startErr
}

func (r *fakeRadio) StopAP(context.Context) error {
	r.log.add("stop-ap")
	return nil
}

func (r *fakeRadio) Join(ctx context.Context, ssid, _ string) error {
	r.log.add("join")
	r.joinBudget = -1
	if d, ok := ctx.Deadline(); ok {
		r.joinBudget = time.Until(d)
	}
	r.joined = append(r.joined, ssid)
	return r.joinErr
}

func (r *fakeRadio) Scan(context.Context) ([]wifi.AccessPoint, error) {
	return nil, nil
}

type fakePortal struct {
	log      *events
	activity atomic.Uint64
	startErr error
}

func (p *fakePortal) Start() error {
	p.log.add("portal-start")
	return p.startErr
}

func (p *fakePortal) Addr() string { return "192.168.4.1:80" }

func (p *fakePortal) Activity() uint64 { return p.activity.Load() }

func (p *fakePortal) Shutdown(context.Context) error {
	p.log.add("portal-shutdown")
	return nil
}

type fakeAdvertiser struct {
	log      *events
	instance string
	port     int
}

func (a *fakeAdvertiser) Advertise(instance string, port int) (func(), error) {
	a.log.add("mdns-register")
	a.instance, a.port = instance, port
	return func() { a.log.add("mdns-stop") }, nil
}

// loggingLoader records when the clock reads the store.
type loggingLoader struct {
	log   *events
	store *store.Store
}

func (l loggingLoader) Load() (store.Record, bool, error) {
	l.log.add("load")
	return l.store.Load()
}

// fakeSource serves a fixed epoch anchored at the last successful resync.
type fakeSource struct {
	clock   clockwork.Clock
	epoch   int64
	takenAt time.Time
	offset  timesync.Offset
	synced  bool
	resyncs int
	tzs     []string
	fail    bool
}

func (s *fakeSource) Resync(_ context.Context, tz string) timesync.SyncResult {
	s.resyncs++
	s.tzs = append(s.tzs, tz)
	if s.fail {
		return timesync.SyncResult{ReferenceErr: timesync.NewError(timesync.KindTimeReference, "no date", errors.New("offline"))}
	}
	s.takenAt = s.clock.Now()
	s.synced = true
	return timesync.SyncResult{Epoch: s.epoch, Offset: s.offset}
}

func (s *fakeSource) Current() (time.Time, bool) {
	if s.takenAt.IsZero() {
		return time.Time{}, false
	}
	return time.Unix(s.epoch, 0).Add(s.clock.Since(s.takenAt)), true
}

func (s *fakeSource) Offset() timesync.Offset { return s.offset }

func (s *fakeSource) Synced() bool { return s.synced }

type recordingDisplay struct {
	frames []display.Frame
}

func (d *recordingDisplay) Show(f display.Frame) { d.frames = append(d.frames, f) }
