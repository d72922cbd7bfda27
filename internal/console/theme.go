package console

import "github.com/charmbracelet/lipgloss"

// Theme defines the styles used for operator-facing output.
// Colors use lipgloss format: color names, hex, or 256-color numbers.
type Theme struct {
	Name string

	Title   lipgloss.Style // program banner
	Heading lipgloss.Style // report headings
	Note    lipgloss.Style // secondary headings and hints

	ErrorLabel   lipgloss.Style
	ErrorText    lipgloss.Style
	WarningLabel lipgloss.Style
	WarningText  lipgloss.Style
	DebugLabel   lipgloss.Style
	DebugText    lipgloss.Style
	Info         lipgloss.Style

	Good  lipgloss.Style // favourable setting values
	Bad   lipgloss.Style // settings that cost size or speed
	Value lipgloss.Style // counts and timestamps
}

// DefaultTheme returns the colored theme bound to renderer r.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	return Theme{
		Name:         "default",
		Title:        r.NewStyle().Foreground(lipgloss.Color("135")).Bold(true), // purple
		Heading:      r.NewStyle().Foreground(lipgloss.Color("37")),             // cyan
		Note:         r.NewStyle().Foreground(lipgloss.Color("87")),             // light cyan
		ErrorLabel:   r.NewStyle().Foreground(lipgloss.Color("196")),            // red
		ErrorText:    r.NewStyle().Foreground(lipgloss.Color("203")),            // light red
		WarningLabel: r.NewStyle().Foreground(lipgloss.Color("220")),            // yellow
		WarningText:  r.NewStyle().Foreground(lipgloss.Color("250")),            // light gray
		DebugLabel:   r.NewStyle().Foreground(lipgloss.Color("135")),
		DebugText:    r.NewStyle().Foreground(lipgloss.Color("242")), // dark gray
		Info:         r.NewStyle().Foreground(lipgloss.Color("34")),  // green
		Good:         r.NewStyle().Foreground(lipgloss.Color("34")),
		Bad:          r.NewStyle().Foreground(lipgloss.Color("196")),
		Value:        r.NewStyle().Foreground(lipgloss.Color("220")),
	}
}

// MonoTheme returns a theme without colors.
func MonoTheme(r *lipgloss.Renderer) Theme {
	plain := r.NewStyle()
	return Theme{
		Name:         "mono",
		Title:        r.NewStyle().Bold(true),
		Heading:      plain,
		Note:         plain,
		ErrorLabel:   plain,
		ErrorText:    plain,
		WarningLabel: plain,
		WarningText:  plain,
		DebugLabel:   plain,
		DebugText:    plain,
		Info:         plain,
		Good:         plain,
		Bad:          plain,
		Value:        plain,
	}
}
