// Package geoapi is the wire client for the geolocation and timezone
// services used to set the clock.
//
// Three calls are supported:
//
//   - Geolocate posts nearby access points and returns a coordinate pair
//   - ServerDate sends HEAD to the timezone endpoint and returns the raw
//     Date header, used as the authoritative time reference
//   - Timezone returns the raw and DST offsets in effect at a location
//
// Failures are returned as *APIError, classified by ErrorType:
//
//	resp, err := client.Geolocate(ctx, req)
//	if geoapi.IsNetworkError(err) {
//	    // radio up but no route, DNS, timeout...
//	}
package geoapi
