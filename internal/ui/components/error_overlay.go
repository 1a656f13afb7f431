package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/rebelice/lazyfilter/internal/ui/theme"
)

// ErrorOverlay shows an error on top of the main view
type ErrorOverlay struct {
	Title   string
	Message string
	Width   int
	Theme   theme.Theme
}

// NewErrorOverlay creates an error overlay
func NewErrorOverlay(th theme.Theme) *ErrorOverlay {
	return &ErrorOverlay{Width: 60, Theme: th}
}

// SetError replaces the displayed error
func (e *ErrorOverlay) SetError(title, message string) {
	e.Title = title
	e.Message = message
}

// View renders the overlay
func (e *ErrorOverlay) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(e.Theme.Error)
	msgStyle := lipgloss.NewStyle().
		Foreground(e.Theme.Foreground).
		Width(e.Width - 4)
	hintStyle := lipgloss.NewStyle().
		Foreground(e.Theme.Muted).
		Italic(true)

	content := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(e.Title),
		"",
		msgStyle.Render(e.Message),
		"",
		hintStyle.Render("Press Esc or Enter to dismiss"),
	)

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(e.Theme.Error).
		Padding(1).
		Width(e.Width).
		Render(content)
}
