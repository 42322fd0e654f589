package ui

import "testing"

func TestThemeNames(t *testing.T) {
	names := ThemeNames()
	if len(names) != 3 {
		t.Fatalf("ThemeNames() returned %d names, want 3", len(names))
	}
	if names[0] != DefaultThemeName {
		t.Fatalf("ThemeNames()[0] = %q, want %q", names[0], DefaultThemeName)
	}
}

func TestNextTheme(t *testing.T) {
	if got := NextTheme("Nightfox"); got != "Kanagawa" {
		t.Fatalf("NextTheme(Nightfox) = %q, want Kanagawa", got)
	}
	if got := NextTheme("Slate"); got != "Nightfox" {
		t.Fatalf("NextTheme(Slate) = %q, want Nightfox", got)
	}
	if got := NextTheme("Unknown"); got != "Nightfox" {
		t.Fatalf("NextTheme(Unknown) = %q, want Nightfox", got)
	}
}

func TestGetTheme(t *testing.T) {
	if got := GetTheme("Slate").Name; got != "Slate" {
		t.Fatalf("GetTheme(Slate).Name = %q, want Slate", got)
	}
	if got := GetTheme("Dracula").Name; got != DefaultThemeName {
		t.Fatalf("GetTheme(unknown).Name = %q, want %s (fallback)", got, DefaultThemeName)
	}
}

func TestThemesCoverStatuses(t *testing.T) {
	statuses := []string{"queued", "processing", "completed", "failed", "running", "warned", "expired"}
	for _, name := range ThemeNames() {
		th := GetTheme(name)
		for _, status := range statuses {
			if th.StatusColors[status] == "" {
				t.Fatalf("theme %s has no color for %q", name, status)
			}
		}
	}
}
