package ui

import "testing"

func TestTruncate(t *testing.T) {
	cases := []struct {
		in    string
		limit int
		want  string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"abcdef", 3, "abc"},
		{"  padded  ", 0, "padded"},
	}
	for _, tc := range cases {
		if got := truncate(tc.in, tc.limit); got != tc.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tc.in, tc.limit, got, tc.want)
		}
	}
}

func TestTruncateMiddleKeepsExtension(t *testing.T) {
	got := truncateMiddle("/photos/holidays/2024/very-long-file-name.jpg", 24)
	if len([]rune(got)) != 24 {
		t.Fatalf("truncateMiddle length = %d, want 24 (%q)", len([]rune(got)), got)
	}
	if got[len(got)-4:] != ".jpg" {
		t.Fatalf("truncateMiddle(%q) lost the extension", got)
	}
	if got := truncateMiddle("abcdefghij", 5); got != "ab…ij" {
		t.Fatalf("truncateMiddle = %q, want ab…ij", got)
	}
}

func TestFit(t *testing.T) {
	if got := fit("ab", 4); got != "ab  " {
		t.Fatalf("fit pad = %q", got)
	}
	if got := fit("abcdefgh", 6); got != "abc..." {
		t.Fatalf("fit truncate = %q", got)
	}
}
