package timesync

import (
	"fmt"
	"net/http"
	"slices"
	"time"
)

var (
	weekdays = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}
	months   = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}
)

// ParseHTTPDate parses a Date header of the exact form
// "Tue, 15 Nov 1994 08:12:31 GMT" into Unix epoch seconds.
//
// Obsolete RFC 850 and asctime forms, single-digit fields, fractional
// seconds and zones other than GMT are all rejected.
func ParseHTTPDate(s string) (int64, error) {
	if len(s) != len(http.TimeFormat) {
		return 0, fmt.Errorf("invalid date %q: length %d, want %d", s, len(s), len(http.TimeFormat))
	}

	// layout positions of "Mon, 02 Jan 2006 15:04:05 GMT"
	for _, i := range []int{5, 6, 12, 13, 14, 15, 17, 18, 20, 21, 23, 24} {
		if s[i] < '0' || s[i] > '9' {
			return 0, fmt.Errorf("invalid date %q: expected digit at %d", s, i)
		}
	}
	for i, c := range map[int]byte{3: ',', 4: ' ', 7: ' ', 11: ' ', 16: ' ', 19: ':', 22: ':', 25: ' '} {
		if s[i] != c {
			return 0, fmt.Errorf("invalid date %q: expected %q at %d", s, c, i)
		}
	}
	if s[26:] != "GMT" {
		return 0, fmt.Errorf("invalid date %q: zone must be GMT", s)
	}

	// time.Parse matches names case-insensitively
	if !slices.Contains(weekdays, s[0:3]) {
		return 0, fmt.Errorf("invalid date %q: unknown weekday %q", s, s[0:3])
	}
	if !slices.Contains(months, s[8:11]) {
		return 0, fmt.Errorf("invalid date %q: unknown month %q", s, s[8:11])
	}

	// ranges and weekday/date agreement
	t, err := time.Parse(http.TimeFormat, s)
	if err != nil {
		return 0, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t.Unix(), nil
}
