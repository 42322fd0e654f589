package ui

import "testing"

func TestParsePathArgs(t *testing.T) {
	cases := []struct {
		name    string
		value   string
		allowed string
		path    string
		flags   string
		wantErr bool
	}{
		{"plain", "/data/photos", "rf", "/data/photos", "", false},
		{"switches", "/data/photos -r -f", "rf", "/data/photos", "rf", false},
		{"leading switch", "-r /data/photos", "rf", "/data/photos", "r", false},
		{"spaces in path", "/data/my photos -r", "rf", "/data/my photos", "r", false},
		{"unknown switch is path", "/data -x", "rf", "/data -x", "", false},
		{"only switches", "-r", "rf", "", "", true},
		{"empty", "   ", "r", "", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parsePathArgs(tc.value, tc.allowed)
			if (err != nil) != tc.wantErr {
				t.Fatalf("parsePathArgs err = %v, wantErr %v", err, tc.wantErr)
			}
			if tc.wantErr {
				return
			}
			if got.path != tc.path {
				t.Fatalf("path = %q, want %q", got.path, tc.path)
			}
			if len(got.flags) != len(tc.flags) {
				t.Fatalf("flags = %v, want %q", got.flags, tc.flags)
			}
			for _, r := range tc.flags {
				if !got.flags[r] {
					t.Fatalf("flag %c not set", r)
				}
			}
		})
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("0123456789abcdef"); got != "01234567" {
		t.Fatalf("shortID = %q", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Fatalf("shortID = %q", got)
	}
}
