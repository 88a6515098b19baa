package timesync

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/lbogdanov/nixieclock/internal/geoapi"
	"github.com/lbogdanov/nixieclock/internal/logging"
	"github.com/lbogdanov/nixieclock/internal/wifi"
)

// TZAuto selects geolocation-based offset resolution.
const TZAuto = "auto"

// Service is the subset of the geoapi client the resolver needs.
type Service interface {
	Geolocate(ctx context.Context, req *geoapi.GeoRequest) (*geoapi.GeoResponse, error)
	ServerDate(ctx context.Context) (string, error)
	Timezone(ctx context.Context, lat, lng float64, timestamp int64) (*geoapi.TimezoneResponse, error)
}

// Scanner lists nearby access points.
type Scanner interface {
	Scan(ctx context.Context) ([]wifi.AccessPoint, error)
}

// Location is a resolved position. The zero value is invalid.
type Location struct {
	Lat   float64
	Lng   float64
	Valid bool
}

// NewLocation returns a Location, valid only for finite in-range coordinates.
func NewLocation(lat, lng float64) Location {
	valid := !math.IsNaN(lat) && !math.IsNaN(lng) &&
		lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
	return Location{Lat: lat, Lng: lng, Valid: valid}
}

func (l Location) String() string {
	if !l.Valid {
		return "invalid"
	}
	return fmt.Sprintf("%.6f,%.6f", l.Lat, l.Lng)
}

// SyncResult reports what one resync cycle achieved.
type SyncResult struct {
	Location Location
	Epoch    int64
	Offset   Offset

	// nil when the stage succeeded or was not attempted
	LocationErr  error
	ReferenceErr error
	TimezoneErr  error
}

// Err returns the most severe stage failure, or nil.
func (r SyncResult) Err() error {
	switch {
	case r.ReferenceErr != nil:
		return r.ReferenceErr
	case r.TimezoneErr != nil:
		return r.TimezoneErr
	default:
		return r.LocationErr
	}
}

// Result is a short label for logs and metrics.
func (r SyncResult) Result() string {
	switch {
	case r.ReferenceErr != nil:
		return "time_reference_failed"
	case r.TimezoneErr != nil:
		return "timezone_failed"
	case r.LocationErr != nil:
		return "geolocation_failed"
	default:
		return "ok"
	}
}

// Resolver derives an offset-corrected wall clock from the network.
//
// The reference epoch is paired with the monotonic instant it was taken at,
// so Current keeps counting without further network calls. The offset is
// zero until the first successful lookup.
type Resolver struct {
	svc     Service
	scanner Scanner
	clock   clockwork.Clock

	mu      sync.RWMutex
	epoch   int64
	takenAt time.Time
	haveRef bool
	offset  Offset
	synced  bool
}

// NewResolver creates a resolver. A nil clock uses the real clock.
func NewResolver(svc Service, scanner Scanner, clock clockwork.Clock) *Resolver {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Resolver{svc: svc, scanner: scanner, clock: clock}
}

// ResolveLocation geolocates from up to MaxAccessPoints of the strongest
// access points. Fewer than two access points skip the call entirely.
func (r *Resolver) ResolveLocation(ctx context.Context, aps []wifi.AccessPoint) Location {
	loc, _ := r.resolveLocation(ctx, aps)
	return loc
}

func (r *Resolver) resolveLocation(ctx context.Context, aps []wifi.AccessPoint) (Location, error) {
	if len(aps) < 2 {
		return Location{}, NewError(KindGeolocation, fmt.Sprintf("%d access points, need at least 2", len(aps)), nil)
	}

	sorted := slices.Clone(aps)
	wifi.SortByStrength(sorted)
	if len(sorted) > geoapi.MaxAccessPoints {
		sorted = sorted[:geoapi.MaxAccessPoints]
	}

	req := &geoapi.GeoRequest{ConsiderIP: true}
	for _, ap := range sorted {
		req.WiFiAccessPoints = append(req.WiFiAccessPoints, geoapi.WiFiAccessPoint{
			MACAddress:     ap.BSSID.String(),
			Channel:        ap.Channel,
			SignalStrength: ap.SignalStrength,
		})
	}

	resp, err := r.svc.Geolocate(ctx, req)
	if err != nil {
		return Location{}, &Error{Kind: KindGeolocation, Message: "geolocation failed", StatusCode: geoapi.StatusCode(err), Err: err}
	}

	loc := NewLocation(resp.Location.Lat, resp.Location.Lng)
	if !loc.Valid {
		return Location{}, NewError(KindGeolocation, fmt.Sprintf("coordinates out of range: %v,%v", resp.Location.Lat, resp.Location.Lng), nil)
	}
	logging.Debug("Location resolved",
		zap.String("location", loc.String()),
		zap.Float64("accuracy", resp.Accuracy),
		zap.Int("access_points", len(req.WiFiAccessPoints)),
	)
	return loc, nil
}

// ResolveTime reads the authoritative time and, for a valid location, the
// offset in effect there. With an invalid location the fallback offset is
// returned unchanged.
//
// A TimeReference error means epoch is meaningless. A TimezoneLookup error
// comes with a usable epoch and the fallback offset.
func (r *Resolver) ResolveTime(ctx context.Context, loc Location, fallback Offset) (int64, Offset, error) {
	date, err := r.svc.ServerDate(ctx)
	if err != nil {
		return 0, fallback, &Error{Kind: KindTimeReference, Message: "no time reference", StatusCode: geoapi.StatusCode(err), Err: err}
	}

	epoch, err := ParseHTTPDate(date)
	if err != nil {
		return 0, fallback, NewError(KindTimeReference, "unparseable time reference", err)
	}

	if !loc.Valid {
		return epoch, fallback, nil
	}

	resp, err := r.svc.Timezone(ctx, loc.Lat, loc.Lng, epoch)
	if err != nil {
		return epoch, fallback, &Error{Kind: KindTimezoneLookup, Message: "timezone lookup failed", StatusCode: geoapi.StatusCode(err), Err: err}
	}
	raw, dst, err := resp.Offsets()
	if err != nil {
		return epoch, fallback, NewError(KindTimezoneLookup, "invalid timezone response", err)
	}
	return epoch, Offset{Raw: raw, DST: dst}, nil
}

// Resync runs one full cycle for the timezone setting tz ("auto" or
// "±HH:MM") and commits whatever it obtained.
func (r *Resolver) Resync(ctx context.Context, tz string) SyncResult {
	var res SyncResult

	fallback := r.Offset()
	manual := tz != TZAuto
	if manual {
		sec, err := ParseManualOffset(tz)
		if err != nil {
			res.ReferenceErr = NewError(KindConfigAbsent, "invalid timezone setting", err)
			logging.LogResync(res.Result(), 0, fallback.Total(), res.ReferenceErr)
			return res
		}
		fallback = Offset{Raw: sec}
	} else {
		res.Location, res.LocationErr = r.locate(ctx)
	}

	epoch, offset, err := r.ResolveTime(ctx, res.Location, fallback)
	res.Epoch, res.Offset = epoch, offset
	if err != nil {
		if IsKind(err, KindTimeReference) {
			res.ReferenceErr = err
			res.Offset = r.Offset()
			logging.LogResync(res.Result(), 0, res.Offset.Total(), err)
			return res
		}
		res.TimezoneErr = err
	}

	// Reference always advances here; the offset only on a lookup or a
	// manual setting.
	offsetKnown := manual || (res.Location.Valid && res.TimezoneErr == nil)
	r.commit(epoch, offset, offsetKnown)

	logging.LogResync(res.Result(), epoch, offset.Total(), res.Err())
	return res
}

func (r *Resolver) locate(ctx context.Context) (Location, error) {
	if r.scanner == nil {
		return Location{}, NewError(KindGeolocation, "no scanner", nil)
	}
	aps, err := r.scanner.Scan(ctx)
	if err != nil {
		return Location{}, NewError(KindGeolocation, "scan failed", err)
	}
	return r.resolveLocation(ctx, aps)
}

func (r *Resolver) commit(epoch int64, offset Offset, offsetKnown bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.epoch = epoch
	r.takenAt = r.clock.Now()
	r.haveRef = true
	if offsetKnown {
		r.offset = offset
		r.synced = true
	}
}

// Offset returns the offset currently applied.
func (r *Resolver) Offset() Offset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.offset
}

// Synced reports whether an offset was ever established.
func (r *Resolver) Synced() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.synced
}

// Current returns the corrected time, in a fixed zone of the applied
// offset. ok is false until a time reference has been obtained.
func (r *Resolver) Current() (t time.Time, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.haveRef {
		return time.Time{}, false
	}
	elapsed := r.clock.Since(r.takenAt)
	return time.Unix(r.epoch, 0).Add(elapsed).In(r.offset.Zone()), true
}

// Now is Current without the ok flag.
func (r *Resolver) Now() time.Time {
	t, _ := r.Current()
	return t
}
