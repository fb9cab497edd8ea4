package log

import (
	"os"

	"github.com/charmbracelet/lipgloss"
)

// renderer is a lipgloss renderer bound to stderr, since that's where
// log output goes.
var renderer = lipgloss.NewRenderer(os.Stderr)

func newStyle() lipgloss.Style {
	return renderer.NewStyle()
}

// Style defines the output styling for the logger.
type Style struct {
	Key lipgloss.Style

	KeyValueDelimiter lipgloss.Style          // required
	LevelLabels       ByLevel[lipgloss.Style] // required
	MultilinePrefix   lipgloss.Style          // required
	PrefixDelimiter   lipgloss.Style          // required

	Messages ByLevel[lipgloss.Style]
	Values   map[string]lipgloss.Style
}

// DefaultStyle returns the default style for the logger.
func DefaultStyle() *Style {
	return &Style{
		Key:               newStyle().Faint(true),
		KeyValueDelimiter: newStyle().SetString("=").Faint(true),
		MultilinePrefix:   newStyle().SetString("| ").Faint(true),
		PrefixDelimiter:   newStyle().SetString(": "),
		LevelLabels: ByLevel[lipgloss.Style]{
			Trace: newStyle().SetString("TRC").Foreground(lipgloss.Color("8")),  // gray
			Debug: newStyle().SetString("DBG"),                                  // default
			Info:  newStyle().SetString("INF").Foreground(lipgloss.Color("10")), // green
			Warn:  newStyle().SetString("WRN").Foreground(lipgloss.Color("11")), // yellow
			Error: newStyle().SetString("ERR").Foreground(lipgloss.Color("9")),  // red
			Fatal: newStyle().SetString("FTL").Foreground(lipgloss.Color("9")),  // red
		},
		Messages: ByLevel[lipgloss.Style]{
			Trace: newStyle().Foreground(lipgloss.Color("8")), // gray
			Debug: newStyle().Faint(true),
			Info:  newStyle().Bold(true),
			Warn:  newStyle().Bold(true),
			Error: newStyle().Bold(true),
			Fatal: newStyle().Bold(true),
		},
		Values: map[string]lipgloss.Style{
			"error": newStyle().Foreground(lipgloss.Color("9")), // red
		},
	}
}

// PlainStyle returns a style for the logger without any colors.
func PlainStyle() *Style {
	return &Style{
		KeyValueDelimiter: newStyle().SetString("="),
		MultilinePrefix:   newStyle().SetString("  | "),
		PrefixDelimiter:   newStyle().SetString(": "),
		LevelLabels: ByLevel[lipgloss.Style]{
			Trace: newStyle().SetString("TRC"),
			Debug: newStyle().SetString("DBG"),
			Info:  newStyle().SetString("INF"),
			Warn:  newStyle().SetString("WRN"),
			Error: newStyle().SetString("ERR"),
			Fatal: newStyle().SetString("FTL"),
		},
	}
}
