package store

import (
	"errors"
	"fmt"
	"strings"
)

// Field names of the persisted record, in storage order.
const (
	FieldSSID    = "ssid"
	FieldSSIDPSK = "ssid-psk"
	FieldAPIKey  = "api-key"
	FieldTZ      = "tz"
)

// TZAuto selects geolocation-based timezone resolution.
const TZAuto = "auto"

// TZDefault is the manual offset stored when no timezone is submitted.
const TZDefault = "+00:00"

// Schema is the ordered field list shared by the reader, the writer and the
// portal form. Field count and order are defined here only.
var Schema = []string{FieldSSID, FieldSSIDPSK, FieldAPIKey, FieldTZ}

// ErrMultiline is returned when a field value contains a line terminator.
var ErrMultiline = errors.New("field value contains a line terminator")

// Record is the configuration submitted through the portal.
type Record struct {
	SSID    string
	SSIDPSK string
	APIKey  string
	TZ      string
}

// Get returns the value of a schema field.
func (r *Record) Get(field string) string {
	switch field {
	case FieldSSID:
		return r.SSID
	case FieldSSIDPSK:
		return r.SSIDPSK
	case FieldAPIKey:
		return r.APIKey
	case FieldTZ:
		return r.TZ
	}
	return ""
}

// Set assigns a schema field. Unknown fields are ignored.
func (r *Record) Set(field, value string) {
	switch field {
	case FieldSSID:
		r.SSID = value
	case FieldSSIDPSK:
		r.SSIDPSK = value
	case FieldAPIKey:
		r.APIKey = value
	case FieldTZ:
		r.TZ = value
	}
}

// Fields returns the record as a schema-keyed map.
func (r *Record) Fields() map[string]string {
	m := make(map[string]string, len(Schema))
	for _, f := range Schema {
		m[f] = r.Get(f)
	}
	return m
}

// AutoTZ reports whether the timezone should be resolved by geolocation.
func (r *Record) AutoTZ() bool {
	return r.TZ == TZAuto
}

// Validate checks that every value fits on a single line.
func (r *Record) Validate() error {
	for _, f := range Schema {
		if strings.ContainsAny(r.Get(f), "\r\n") {
			return fmt.Errorf("%s: %w", f, ErrMultiline)
		}
	}
	return nil
}

// Encode renders the record in storage layout, one field per line.
func (r *Record) Encode() ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	var b strings.Builder
	for _, f := range Schema {
		b.WriteString(r.Get(f))
		b.WriteByte('\n')
	}
	return []byte(b.String()), nil
}

// Decode parses storage layout. A record with fewer lines than the schema
// yields ok=false; it is never partially applied. Both LF and CRLF
// terminators are accepted. Field values are kept byte for byte, since an
// SSID or passphrase may end in a space.
func Decode(data []byte) (rec Record, ok bool) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	lines := strings.Split(text, "\n")

	// A final terminator produces an empty trailing element that is not a field.
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	if len(lines) < len(Schema) {
		return Record{}, false
	}

	for i, f := range Schema {
		rec.Set(f, lines[i])
	}
	return rec, true
}
