package color

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ThemeEnv names the variable that forces a theme, "dark" or "light".
const ThemeEnv = "RLTEST_THEME"

var (
	// Pass marks successful outcomes
	Pass = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "28", Dark: "10"})
	// Fail marks failed outcomes and errors
	Fail = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "160", Dark: "9"}).Bold(true)
	// Warn marks skipped cases
	Warn = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "136", Dark: "11"})
	// Muted is for call sites, durations and other secondary details
	Muted = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "244", Dark: "8"})
	// Emphasis is for headings and labels
	Emphasis = lipgloss.NewStyle().Bold(true)
)

// Initialize sets whether the terminal has a dark background.
func Initialize(isDarkMode bool) {
	lipgloss.SetHasDarkBackground(isDarkMode)
}

// InitFromEnv applies ThemeEnv when it is set to a known theme and
// reports whether it did.
func InitFromEnv() bool {
	switch strings.ToLower(os.Getenv(ThemeEnv)) {
	case "dark":
		Initialize(true)
		return true
	case "light":
		Initialize(false)
		return true
	}
	return false
}
