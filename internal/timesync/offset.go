package timesync

import (
	"fmt"
	"time"
)

// MaxOffsetHours bounds a manual offset; the widest zone in use is UTC+14.
const MaxOffsetHours = 14

// Offset is the correction added to the UTC reference, in seconds.
type Offset struct {
	Raw int32
	DST int32
}

// Total returns the sum of the raw and DST offsets.
func (o Offset) Total() int32 {
	return o.Raw + o.DST
}

// Zone returns a fixed zone named after the total offset, e.g. "UTC-05:00".
func (o Offset) Zone() *time.Location {
	return time.FixedZone(FormatOffset(o.Total()), int(o.Total()))
}

// ParseManualOffset parses "±HH:MM" into signed seconds.
// The sign is mandatory, HH is at most 14 and MM below 60.
func ParseManualOffset(s string) (int32, error) {
	if len(s) != 6 || s[3] != ':' {
		return 0, fmt.Errorf("invalid offset %q: want ±HH:MM", s)
	}

	var sign int32
	switch s[0] {
	case '+':
		sign = 1
	case '-':
		sign = -1
	default:
		return 0, fmt.Errorf("invalid offset %q: missing sign", s)
	}

	hh, ok1 := twoDigits(s[1:3])
	mm, ok2 := twoDigits(s[4:6])
	if !ok1 || !ok2 {
		return 0, fmt.Errorf("invalid offset %q: want ±HH:MM", s)
	}
	if hh > MaxOffsetHours {
		return 0, fmt.Errorf("invalid offset %q: hours out of range", s)
	}
	if mm >= 60 {
		return 0, fmt.Errorf("invalid offset %q: minutes out of range", s)
	}
	return sign * (hh*3600 + mm*60), nil
}

// ValidTimezone reports whether tz is "auto" or a well-formed manual offset.
func ValidTimezone(tz string) bool {
	if tz == TZAuto {
		return true
	}
	_, err := ParseManualOffset(tz)
	return err == nil
}

// FormatOffset renders seconds as "UTC±HH:MM".
func FormatOffset(sec int32) string {
	sign := '+'
	if sec < 0 {
		sign = '-'
		sec = -sec
	}
	return fmt.Sprintf("UTC%c%02d:%02d", sign, sec/3600, (sec%3600)/60)
}

func twoDigits(s string) (int32, bool) {
	if s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' {
		return 0, false
	}
	return int32(s[0]-'0')*10 + int32(s[1]-'0'), true
}
