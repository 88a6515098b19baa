package timesync

import "testing"

func TestParseManualOffset(t *testing.T) {
	tests := []struct {
		in      string
		want    int32
		wantErr bool
	}{
		{in: "-05:00", want: -18000},
		{in: "+09:30", want: 34200},
		{in: "+00:00", want: 0},
		{in: "-00:30", want: -1800},
		{in: "+14:00", want: 50400},
		{in: "-12:00", want: -43200},
		{in: "+05:45", want: 20700},

		{in: "05:00", wantErr: true},
		{in: "+5:00", wantErr: true},
		{in: "+15:00", wantErr: true},
		{in: "+09:60", wantErr: true},
		{in: "+0930", wantErr: true},
		{in: "+09:3a", wantErr: true},
		{in: "auto", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseManualOffset(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseManualOffset(%q) = %d, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseManualOffset(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseManualOffset(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidTimezone(t *testing.T) {
	for _, tz := range []string{"auto", "+01:00", "-10:30"} {
		if !ValidTimezone(tz) {
			t.Errorf("ValidTimezone(%q) = false, want true", tz)
		}
	}
	for _, tz := range []string{"", "AUTO", "UTC", "Europe/Paris", "1:00"} {
		if ValidTimezone(tz) {
			t.Errorf("ValidTimezone(%q) = true, want false", tz)
		}
	}
}

func TestFormatOffset(t *testing.T) {
	tests := []struct {
		sec  int32
		want string
	}{
		{0, "UTC+00:00"},
		{-18000, "UTC-05:00"},
		{34200, "UTC+09:30"},
		{20700, "UTC+05:45"},
	}
	for _, tt := range tests {
		if got := FormatOffset(tt.sec); got != tt.want {
			t.Errorf("FormatOffset(%d) = %q, want %q", tt.sec, got, tt.want)
		}
	}

	o := Offset{Raw: 3600, DST: 3600}
	if o.Total() != 7200 {
		t.Errorf("Total() = %d, want 7200", o.Total())
	}
	if name := o.Zone().String(); name != "UTC+02:00" {
		t.Errorf("Zone() = %s, want UTC+02:00", name)
	}
}
