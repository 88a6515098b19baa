package geoapi

import (
	"fmt"
	"math"
)

// MaxAccessPoints is the provider cap on access points per geolocation request.
const MaxAccessPoints = 7

// WiFiAccessPoint describes one access point in a geolocation request.
type WiFiAccessPoint struct {
	MACAddress     string `json:"macAddress"`
	Channel        int    `json:"channel"`
	SignalStrength int    `json:"signalStrength"`
}

// GeoRequest is the body of a geolocation request.
type GeoRequest struct {
	ConsiderIP       bool              `json:"considerIp"`
	WiFiAccessPoints []WiFiAccessPoint `json:"wifiAccessPoints"`
}

// LatLng is a coordinate pair as returned by the geolocation service.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// GeoResponse is the body of a successful geolocation response.
type GeoResponse struct {
	Location *LatLng `json:"location"`
	Accuracy float64 `json:"accuracy"`
}

// TimezoneResponse is the body of a timezone lookup.
// Offsets are pointers so that a missing field can be told apart from zero.
type TimezoneResponse struct {
	RawOffset    *float64 `json:"rawOffset"`
	DSTOffset    *float64 `json:"dstOffset"`
	Status       string   `json:"status"`
	TimeZoneID   string   `json:"timeZoneId"`
	TimeZoneName string   `json:"timeZoneName"`
	ErrorMessage string   `json:"errorMessage"`
}

// Offsets returns the raw and DST offsets as whole seconds.
func (r *TimezoneResponse) Offsets() (raw, dst int32, err error) {
	if r.RawOffset == nil || r.DSTOffset == nil {
		return 0, 0, fmt.Errorf("rawOffset or dstOffset missing")
	}
	raw, err = wholeSeconds("rawOffset", *r.RawOffset)
	if err != nil {
		return 0, 0, err
	}
	dst, err = wholeSeconds("dstOffset", *r.DSTOffset)
	if err != nil {
		return 0, 0, err
	}
	return raw, dst, nil
}

func wholeSeconds(name string, v float64) (int32, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return 0, fmt.Errorf("%s is not an integer: %v", name, v)
	}
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, fmt.Errorf("%s out of range: %v", name, v)
	}
	return int32(v), nil
}
