package store

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
)

const testPath = "/data/config.txt"

func TestSaveThenLoad(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
	}{
		{
			name: "auto timezone",
			rec:  Record{SSID: "HomeNet", SSIDPSK: "secret123", APIKey: "AIzaKey", TZ: "auto"},
		},
		{
			name: "manual offset",
			rec:  Record{SSID: "Office", SSIDPSK: "pw", APIKey: "k", TZ: "-05:00"},
		},
		{
			name: "empty trailing fields",
			rec:  Record{SSID: "Open", SSIDPSK: "", APIKey: "", TZ: ""},
		},
		{
			name: "values with inner spaces",
			rec:  Record{SSID: "My Home WiFi", SSIDPSK: "pass word", APIKey: "k e y", TZ: "+09:30"},
		},
		{
			name: "trailing spaces kept",
			rec:  Record{SSID: "Cafe ", SSIDPSK: "pass phrase ", APIKey: "k", TZ: "auto"},
		},
		{
			name: "leading space and tab",
			rec:  Record{SSID: " Lab", SSIDPSK: "tab\tend\t", APIKey: "k", TZ: "auto"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := New(afero.NewMemMapFs(), testPath)

			if err := st.Save(tt.rec); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			got, ok, err := st.Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if !ok {
				t.Fatal("Load() ok = false, want true")
			}
			if got != tt.rec {
				t.Errorf("Load() = %+v, want %+v", got, tt.rec)
			}
		})
	}
}

func TestSave_Layout(t *testing.T) {
	fs := afero.NewMemMapFs()
	st := New(fs, testPath)

	rec := Record{SSID: "a", SSIDPSK: "b", APIKey: "c", TZ: "auto"}
	if err := st.Save(rec); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := afero.ReadFile(fs, testPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "a\nb\nc\nauto\n" {
		t.Errorf("file content = %q, want %q", data, "a\nb\nc\nauto\n")
	}

	if exists, _ := afero.Exists(fs, testPath+".tmp"); exists {
		t.Error("temporary file should not remain after Save()")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	st := New(afero.NewMemMapFs(), testPath)

	rec, ok, err := st.Load()
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}
	if ok {
		t.Errorf("Load() ok = true for missing file, record %+v", rec)
	}
}

func TestLoad_ShortRecordIsAbsent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty file", ""},
		{"one field", "HomeNet\n"},
		{"two fields", "HomeNet\nsecret\n"},
		{"three fields", "HomeNet\nsecret\nkey\n"},
		{"three fields crlf", "HomeNet\r\nsecret\r\nkey\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			if err := afero.WriteFile(fs, testPath, []byte(tt.content), 0o600); err != nil {
				t.Fatal(err)
			}

			rec, ok, err := New(fs, testPath).Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if ok {
				t.Errorf("Load() ok = true, want false")
			}
			if rec != (Record{}) {
				t.Errorf("Load() record = %+v, want zero record", rec)
			}
		})
	}
}

func TestLoad_CRLF(t *testing.T) {
	fs := afero.NewMemMapFs()
	content := "HomeNet\r\nsecret\r\nkey\r\n+01:00\r\n"
	if err := afero.WriteFile(fs, testPath, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	rec, ok, err := New(fs, testPath).Load()
	if err != nil || !ok {
		t.Fatalf("Load() = ok %v, err %v", ok, err)
	}

	want := Record{SSID: "HomeNet", SSIDPSK: "secret", APIKey: "key", TZ: "+01:00"}
	if rec != want {
		t.Errorf("Load() = %+v, want %+v", rec, want)
	}
}

func TestLoad_CRLFKeepsTrailingSpaces(t *testing.T) {
	fs := afero.NewMemMapFs()
	content := "Cafe \r\npass phrase \r\nkey\r\nauto\r\n"
	if err := afero.WriteFile(fs, testPath, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	rec, ok, err := New(fs, testPath).Load()
	if err != nil || !ok {
		t.Fatalf("Load() = ok %v, err %v", ok, err)
	}

	want := Record{SSID: "Cafe ", SSIDPSK: "pass phrase ", APIKey: "key", TZ: "auto"}
	if rec != want {
		t.Errorf("Load() = %q, want %q", rec, want)
	}
}

func TestSave_RejectsMultiline(t *testing.T) {
	fs := afero.NewMemMapFs()
	st := New(fs, testPath)

	prior := Record{SSID: "Prior", SSIDPSK: "p", APIKey: "k", TZ: "auto"}
	if err := st.Save(prior); err != nil {
		t.Fatal(err)
	}

	err := st.Save(Record{SSID: "evil\nssid", TZ: "auto"})
	if !errors.Is(err, ErrMultiline) {
		t.Fatalf("Save() error = %v, want ErrMultiline", err)
	}

	got, ok, _ := st.Load()
	if !ok || got != prior {
		t.Errorf("Load() after rejected save = %+v (ok %v), want %+v", got, ok, prior)
	}
}

func TestSave_FailureKeepsPriorRecord(t *testing.T) {
	base := afero.NewMemMapFs()
	prior := Record{SSID: "Prior", SSIDPSK: "p", APIKey: "k", TZ: "auto"}
	if err := New(base, testPath).Save(prior); err != nil {
		t.Fatal(err)
	}

	readOnly := New(afero.NewReadOnlyFs(base), testPath)
	if err := readOnly.Save(Record{SSID: "New", TZ: "auto"}); err == nil {
		t.Fatal("Save() on read-only filesystem should fail")
	}

	got, ok, err := New(base, testPath).Load()
	if err != nil || !ok {
		t.Fatalf("Load() = ok %v, err %v", ok, err)
	}
	if got != prior {
		t.Errorf("Load() = %+v, want prior record %+v", got, prior)
	}
}

func TestRecordFields(t *testing.T) {
	rec := Record{SSID: "s", SSIDPSK: "p", APIKey: "k", TZ: "auto"}
	fields := rec.Fields()

	if len(fields) != len(Schema) {
		t.Fatalf("Fields() len = %d, want %d", len(fields), len(Schema))
	}
	for _, f := range Schema {
		if fields[f] != rec.Get(f) {
			t.Errorf("Fields()[%q] = %q, want %q", f, fields[f], rec.Get(f))
		}
	}
	if !rec.AutoTZ() {
		t.Error("AutoTZ() = false for tz=auto")
	}
}

func TestRecordSetIgnoresUnknownField(t *testing.T) {
	var rec Record
	rec.Set("server-url", "http://example.invalid")
	if rec != (Record{}) {
		t.Errorf("Set() with unknown field changed record: %+v", rec)
	}
}
