package color

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestInitialize(t *testing.T) {
	tests := []struct {
		name       string
		isDarkMode bool
		expected   bool
	}{
		{"set dark mode", true, true},
		{"set light mode", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Initialize(tt.isDarkMode)
			if lipgloss.HasDarkBackground() != tt.expected {
				t.Errorf("lipgloss.HasDarkBackground() got %v, want %v after Initialize(%v)", lipgloss.HasDarkBackground(), tt.expected, tt.isDarkMode)
			}
		})
	}
}

func TestInitFromEnv(t *testing.T) {
	tests := []struct {
		value   string
		applied bool
		dark    bool
	}{
		{"dark", true, true},
		{"LIGHT", true, false},
		{"", false, false},
		{"sepia", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			Initialize(false)
			t.Setenv(ThemeEnv, tt.value)

			if got := InitFromEnv(); got != tt.applied {
				t.Errorf("InitFromEnv() = %v, want %v", got, tt.applied)
			}
			if lipgloss.HasDarkBackground() != tt.dark {
				t.Errorf("lipgloss.HasDarkBackground() = %v, want %v", lipgloss.HasDarkBackground(), tt.dark)
			}
		})
	}
}

func TestStylesKeepText(t *testing.T) {
	for name, style := range map[string]lipgloss.Style{"pass": Pass, "fail": Fail, "warn": Warn, "muted": Muted, "emphasis": Emphasis} {
		if got := style.Render("text"); len(got) < len("text") {
			t.Errorf("%s style dropped text: %q", name, got)
		}
	}
}
