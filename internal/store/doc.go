// Package store persists the configuration record submitted through the
// setup portal.
//
// The record is a flat text file with one field per line in the fixed order
// of Schema: ssid, ssid-psk, api-key, tz. There is no escaping, so values
// must not contain line terminators.
//
//	st := store.NewOS("/var/lib/nixieclock/config.txt")
//	rec, ok, err := st.Load()
//	if err != nil || !ok {
//	    // no usable configuration
//	}
package store
