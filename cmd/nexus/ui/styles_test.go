package ui

import (
	"strings"
	"testing"
)

func TestDetectTheme(t *testing.T) {
	t.Setenv("NEXUS_DARK_MODE", "1")
	dark := DetectTheme()
	if !dark.IsDark {
		t.Fatalf("expected dark theme when NEXUS_DARK_MODE=1")
	}

	t.Setenv("NEXUS_DARK_MODE", "")
	light := DetectTheme()
	if light.IsDark {
		t.Fatalf("expected light theme when NEXUS_DARK_MODE is unset")
	}
}

func TestRenderDivider(t *testing.T) {
	s := DefaultStyles()
	div := s.RenderDivider(10)
	if !strings.Contains(div, strings.Repeat("─", 10)) {
		t.Fatalf("expected 10-rune divider, got %q", div)
	}
	if s.RenderDivider(0) == div {
		t.Fatalf("expected width to change the divider")
	}
}
