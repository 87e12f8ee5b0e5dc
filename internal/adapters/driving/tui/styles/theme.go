// Package styles holds the lipgloss styles of the chat TUI.
package styles

import "github.com/charmbracelet/lipgloss"

// Palette is the set of colours the chat screen is drawn with.
type Palette struct {
	Accent   lipgloss.Color // title and prompt
	Question lipgloss.Color
	Text     lipgloss.Color
	Dim      lipgloss.Color // sources, help, status
	Good     lipgloss.Color
	Bad      lipgloss.Color
	Frame    lipgloss.Color
	Bar      lipgloss.Color // status bar background
}

// DarkPalette is the default palette.
func DarkPalette() Palette {
	return Palette{
		Accent:   lipgloss.Color("#7C3AED"),
		Question: lipgloss.Color("#06B6D4"),
		Text:     lipgloss.Color("#CDD6F4"),
		Dim:      lipgloss.Color("#6C7086"),
		Good:     lipgloss.Color("#A6E3A1"),
		Bad:      lipgloss.Color("#F38BA8"),
		Frame:    lipgloss.Color("#45475A"),
		Bar:      lipgloss.Color("#181825"),
	}
}

// Styles are the rendered roles of the chat screen.
type Styles struct {
	palette Palette

	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Normal   lipgloss.Style
	Muted    lipgloss.Style

	// Transcript roles.
	Question lipgloss.Style
	Answer   lipgloss.Style
	Source   lipgloss.Style

	Error   lipgloss.Style
	Success lipgloss.Style

	InputField lipgloss.Style
	StatusBar  lipgloss.Style
	Help       lipgloss.Style
	Border     lipgloss.Style
}

// NewStyles builds the styles for p.
func NewStyles(p Palette) *Styles {
	fg := func(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }
	framed := lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(p.Frame)

	return &Styles{
		palette:    p,
		Title:      fg(p.Accent).Bold(true),
		Subtitle:   fg(p.Question).Bold(true),
		Normal:     fg(p.Text),
		Muted:      fg(p.Dim),
		Question:   fg(p.Question).Bold(true),
		Answer:     fg(p.Text).PaddingLeft(2),
		Source:     fg(p.Dim).Italic(true).PaddingLeft(2),
		Error:      fg(p.Bad),
		Success:    fg(p.Good),
		InputField: framed.Padding(0, 1),
		StatusBar:  fg(p.Dim).Background(p.Bar).Padding(0, 1),
		Help:       fg(p.Dim),
		Border:     framed,
	}
}

// DefaultStyles returns the styles of the dark palette.
func DefaultStyles() *Styles {
	return NewStyles(DarkPalette())
}

// Palette returns the colours s was built from.
func (s *Styles) Palette() Palette {
	return s.palette
}
