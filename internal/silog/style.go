package silog

import "github.com/charmbracelet/lipgloss"

// Style configures the colors and delimiters a [Logger] renders with.
// Use [DefaultStyle] for a colored, TTY-appropriate style or
// [PlainStyle] for an unstyled one; both are safe to mutate fields on
// before passing to [New] via [Options.Style].
type Style struct {
	// LevelLabels holds the short, per-level label rendered before
	// each message (e.g. "DBG", "INF").
	LevelLabels ByLevel[lipgloss.Style]

	// Messages holds the per-level style applied to the message text
	// itself.
	Messages ByLevel[lipgloss.Style]

	// Key styles an attribute's key (and group prefix, if any).
	Key lipgloss.Style

	// KeyValueDelimiter separates an attribute's key from its value,
	// normally "=".
	KeyValueDelimiter lipgloss.Style

	// PrefixDelimiter separates a logger's prefix (see
	// [Logger.WithPrefix]) from the message, normally ": ".
	PrefixDelimiter lipgloss.Style

	// MultilinePrefix styles the continuation marker written before
	// each line of a multi-line attribute value.
	MultilinePrefix lipgloss.Style

	// Values holds per-attribute-key styles, applied to that
	// attribute's value wherever it's logged. Keys absent from this
	// map are rendered unstyled.
	Values map[string]lipgloss.Style
}

// DefaultStyle returns the colored style used when the logger's
// output is a terminal.
func DefaultStyle() *Style {
	return &Style{
		LevelLabels: ByLevel[lipgloss.Style]{
			Debug: lipgloss.NewStyle().SetString("DBG").Foreground(lipgloss.Color("243")),
			Info:  lipgloss.NewStyle().SetString("INF").Foreground(lipgloss.Color("39")),
			Warn:  lipgloss.NewStyle().SetString("WRN").Foreground(lipgloss.Color("220")).Bold(true),
			Error: lipgloss.NewStyle().SetString("ERR").Foreground(lipgloss.Color("203")).Bold(true),
			Fatal: lipgloss.NewStyle().SetString("FTL").Foreground(lipgloss.Color("198")).Bold(true),
		},
		Messages: ByLevel[lipgloss.Style]{
			Debug: lipgloss.NewStyle().Foreground(lipgloss.Color("243")),
			Info:  lipgloss.NewStyle(),
			Warn:  lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
			Error: lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
			Fatal: lipgloss.NewStyle().Foreground(lipgloss.Color("198")),
		},
		Key:               lipgloss.NewStyle().Foreground(lipgloss.Color("109")),
		KeyValueDelimiter: lipgloss.NewStyle().SetString("="),
		PrefixDelimiter:   lipgloss.NewStyle().SetString(": ").Foreground(lipgloss.Color("243")),
		MultilinePrefix:   lipgloss.NewStyle().SetString("| "),
		Values:            make(map[string]lipgloss.Style),
	}
}

// PlainStyle returns an unstyled style, used when the logger's output
// is not a terminal (or color is otherwise disabled).
func PlainStyle() *Style {
	return &Style{
		LevelLabels: ByLevel[lipgloss.Style]{
			Debug: lipgloss.NewStyle().SetString("DBG"),
			Info:  lipgloss.NewStyle().SetString("INF"),
			Warn:  lipgloss.NewStyle().SetString("WRN"),
			Error: lipgloss.NewStyle().SetString("ERR"),
			Fatal: lipgloss.NewStyle().SetString("FTL"),
		},
		Messages: ByLevel[lipgloss.Style]{
			Debug: lipgloss.NewStyle(),
			Info:  lipgloss.NewStyle(),
			Warn:  lipgloss.NewStyle(),
			Error: lipgloss.NewStyle(),
			Fatal: lipgloss.NewStyle(),
		},
		Key:               lipgloss.NewStyle(),
		KeyValueDelimiter: lipgloss.NewStyle().SetString("="),
		PrefixDelimiter:   lipgloss.NewStyle().SetString(": "),
		MultilinePrefix:   lipgloss.NewStyle().SetString("| "),
		Values:            make(map[string]lipgloss.Style),
	}
}
