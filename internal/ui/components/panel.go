package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/rebelice/lazyfilter/internal/ui/theme"
)

// Panel is a bordered, titled box
type Panel struct {
	Title   string
	Status  string
	Content string
	Width   int
	Height  int
	Focused bool
	Theme   theme.Theme
}

// View renders the panel
func (p *Panel) View() string {
	if p.Width <= 0 || p.Height <= 0 {
		return ""
	}

	border := p.Theme.Border
	if p.Focused {
		border = p.Theme.BorderFocused
	}
	style := lipgloss.NewStyle().
		Width(p.Width).
		Height(p.Height).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border)

	content := p.Content
	if p.Title != "" {
		title := lipgloss.NewStyle().Bold(true).Padding(0, 1).Render(p.Title)
		if p.Status != "" {
			title += lipgloss.NewStyle().Foreground(p.Theme.Muted).Render(p.Status)
		}
		content = title + "\n" + content
	}

	return style.Render(content)
}
