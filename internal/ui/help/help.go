package help

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rebelice/lazyfilter/internal/ui/theme"
)

// KeyBinding represents a keyboard shortcut
type KeyBinding struct {
	Key         string
	Description string
}

// Section is a titled group of key bindings
type Section struct {
	Title string
	Keys  []KeyBinding
}

// GetGlobalKeys returns global key bindings
func GetGlobalKeys() []KeyBinding {
	return []KeyBinding{
		{"?", "Toggle help"},
		{"q, Ctrl+C", "Quit application"},
		{"Esc/Enter", "Dismiss error"},
		{"Tab", "Switch between filter bar and table"},
		{"/", "Focus the filter bar"},
		{"r, F5", "Reload rows"},
	}
}

// GetChooserKeys returns filter bar key bindings
func GetChooserKeys() []KeyBinding {
	return []KeyBinding{
		{"↑/↓", "Move through suggestions"},
		{"Enter", "Apply suggestion"},
		{"Backspace", "Remove last tag (on empty input)"},
		{"Ctrl+S", "Toggle current filter as favorite"},
		{"Ctrl+O", "Open favorites"},
		{"Ctrl+Y", "Copy filter as JSON"},
		{"Esc", "Back to table"},
	}
}

// GetTableKeys returns table key bindings
func GetTableKeys() []KeyBinding {
	return []KeyBinding{
		{"↑/k ↓/j", "Move row"},
		{"←/h →/l", "Move column"},
		{"Ctrl+U/D", "Page up/down"},
		{"=", "Filter column by cell value"},
		{"x", "Clear column filters"},
		{"Shift+X", "Clear all filters"},
	}
}

// GetFavoritesKeys returns favorites dialog key bindings
func GetFavoritesKeys() []KeyBinding {
	return []KeyBinding{
		{"Enter", "Apply favorite"},
		{"d, x", "Remove favorite"},
		{"e / Shift+E", "Export as JSON / CSV"},
		{"i", "Import from JSON"},
	}
}

// Sections returns every help section, in display order
func Sections() []Section {
	return []Section{
		{"Global", GetGlobalKeys()},
		{"Filter Bar", GetChooserKeys()},
		{"Table", GetTableKeys()},
		{"Favorites", GetFavoritesKeys()},
	}
}

// Render creates the help view. introText, when set, is shown under the title.
func Render(width, height int, th theme.Theme, introText string) string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(th.BorderFocused).
		Padding(1, 0)

	sectionStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(th.Info).
		Padding(0, 0, 0, 2)

	keyStyle := lipgloss.NewStyle().
		Foreground(th.Warning).
		Width(20)

	descStyle := lipgloss.NewStyle().
		Foreground(th.Foreground)

	var b strings.Builder

	b.WriteString(titleStyle.Render("lazyfilter - Keyboard Shortcuts"))
	b.WriteString("\n")
	if introText != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(th.Muted).Width(width - 10).Render(introText))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	for _, s := range Sections() {
		b.WriteString(sectionStyle.Render(s.Title))
		b.WriteString("\n")
		for _, kb := range s.Keys {
			b.WriteString("  ")
			b.WriteString(keyStyle.Render(kb.Key))
			b.WriteString(descStyle.Render(kb.Description))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(lipgloss.NewStyle().Faint(true).Render("Press '?' or Esc to close help"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(th.BorderFocused).
		Padding(1, 2).
		Width(max(width-4, 0)).
		Height(max(height-4, 0))

	return boxStyle.Render(b.String())
}
