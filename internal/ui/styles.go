package ui

import "github.com/charmbracelet/lipgloss"

// Semantic colors, as ANSI codes for terminal compatibility.
const (
	ColorOK       lipgloss.Color = "2" // Green
	ColorWarning  lipgloss.Color = "3" // Yellow
	ColorCritical lipgloss.Color = "1" // Red
	ColorMuted    lipgloss.Color = "8" // Gray
)

// Level is the color class of a percentage or temperature.
type Level int

const (
	LevelOK Level = iota
	LevelWarning
	LevelCritical
)

func (l Level) String() string {
	switch l {
	case LevelOK:
		return "ok"
	case LevelWarning:
		return "warning"
	case LevelCritical:
		return "critical"
	}
	return "unknown"
}

// Classify buckets a percentage or a Celsius value: below 60 is ok, below 80
// a warning, anything else critical.
func Classify(v float64) Level {
	switch {
	case v < 60:
		return LevelOK
	case v < 80:
		return LevelWarning
	}
	return LevelCritical
}

// Color returns the display color of a level.
func (l Level) Color() lipgloss.Color {
	switch l {
	case LevelWarning:
		return ColorWarning
	case LevelCritical:
		return ColorCritical
	}
	return ColorOK
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("45"))
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Bold(true)
	naStyle     = lipgloss.NewStyle().Foreground(ColorMuted).Italic(true)
	gaugeFill   = "█"
	gaugeEmpty  = "░"
	cardStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("60")).
			Padding(0, 1).
			MarginRight(1)
)

// levelText colors text by the level of v.
func levelText(v float64, text string) string {
	return lipgloss.NewStyle().Foreground(Classify(v).Color()).Render(text)
}

func na(reason string) string {
	if reason == "" {
		return naStyle.Render(NA)
	}
	return naStyle.Render(NA + " (" + reason + ")")
}
