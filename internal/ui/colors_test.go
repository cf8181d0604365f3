package ui

import (
	"strings"
	"testing"

	"github.com/desertthunder/ytdash/internal/dashboard"
)

func TestPaletteStatus(t *testing.T) {
	tests := []struct {
		name  string
		level level
		want  string
	}{
		{"ok", levelOK, "✓ saved"},
		{"warn", levelWarn, "! saved"},
		{"error", levelErr, "✗ saved"},
		{"info has no glyph", levelInfo, "saved"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := styles.status(tt.level, "saved")
			if !strings.Contains(got, tt.want) {
				t.Errorf("expected %q in %q", tt.want, got)
			}
			if tt.level == levelInfo && strings.ContainsAny(got, "✓!✗") {
				t.Errorf("info status must not carry a glyph, got %q", got)
			}
		})
	}
}

func TestSignedOutPanel(t *testing.T) {
	m := newTestModel(&fakeDashboard{})
	m.apply(dashboard.State{SignedOut: true, Redirect: "/login"})

	view := m.View()
	if !strings.Contains(view, "╭") {
		t.Errorf("expected signed out message in a bordered panel, got:\n%s", view)
	}
}
