package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rebelice/lazyfilter/internal/chooser"
	"github.com/rebelice/lazyfilter/internal/query"
	"github.com/rebelice/lazyfilter/internal/ui/theme"
)

// ChooserQueryMsg is sent when the typed text changed and suggestions should
// be reloaded
type ChooserQueryMsg struct {
	Text string
}

// ApplySuggestionMsg is sent when a suggestion is picked
type ApplySuggestionMsg struct {
	Suggestion query.Suggestion
	Text       string
}

// RemoveLastTagMsg is sent on backspace over an empty input
type RemoveLastTagMsg struct{}

// BlurChooserMsg is sent when the bar gives focus back
type BlurChooserMsg struct{}

// ChooserBar renders the chooser tags, its text input and the suggestion list
type ChooserBar struct {
	Input textinput.Model
	Theme theme.Theme
	Width int

	// MaxVisible bounds the suggestion dropdown
	MaxVisible int

	tags        []chooser.Option
	unsupported bool
	favorite    bool
	pending     bool

	suggestions []query.Suggestion
	selected    int
}

// NewChooserBar creates a focused chooser bar
func NewChooserBar(th theme.Theme) *ChooserBar {
	ti := textinput.New()
	ti.Placeholder = "Filter..."
	ti.Prompt = ""
	ti.CharLimit = 256
	ti.Width = 40
	ti.Cursor.SetMode(cursor.CursorStatic)
	ti.Focus()

	return &ChooserBar{
		Input:      ti,
		Theme:      th,
		MaxVisible: 8,
	}
}

// SetTags replaces the rendered tags
func (c *ChooserBar) SetTags(tags []chooser.Option, unsupported, favorite bool) {
	c.tags = tags
	c.unsupported = unsupported
	c.favorite = favorite
}

// SetPending marks a filter write as in progress
func (c *ChooserBar) SetPending(pending bool) { c.pending = pending }

// SetSuggestions shows suggestions loaded for text. Results for text that is
// no longer in the input are dropped.
func (c *ChooserBar) SetSuggestions(text string, suggestions []query.Suggestion) bool {
	if text != c.Input.Value() {
		return false
	}
	c.suggestions = suggestions
	c.selected = 0
	return true
}

// Suggestions returns the suggestions on display
func (c *ChooserBar) Suggestions() []query.Suggestion { return c.suggestions }

// Selected returns the highlighted suggestion
func (c *ChooserBar) Selected() (query.Suggestion, bool) {
	if c.selected < 0 || c.selected >= len(c.suggestions) {
		return query.Suggestion{}, false
	}
	return c.suggestions[c.selected], true
}

// Value returns the typed text
func (c *ChooserBar) Value() string { return c.Input.Value() }

// SetValue replaces the typed text and moves the cursor to its end
func (c *ChooserBar) SetValue(s string) {
	c.Input.SetValue(s)
	c.Input.CursorEnd()
}

// Focus gives the bar keyboard focus
func (c *ChooserBar) Focus() tea.Cmd { return c.Input.Focus() }

// Blur removes keyboard focus and hides the suggestions
func (c *ChooserBar) Blur() {
	c.Input.Blur()
	c.suggestions = nil
}

// Focused reports whether the bar has keyboard focus
func (c *ChooserBar) Focused() bool { return c.Input.Focused() }

// Update handles messages
func (c *ChooserBar) Update(msg tea.Msg) (*ChooserBar, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "ctrl+p":
			if c.selected > 0 {
				c.selected--
			}
			return c, nil
		case "down", "ctrl+n":
			if c.selected < len(c.suggestions)-1 {
				c.selected++
			}
			return c, nil
		case "enter":
			s, ok := c.Selected()
			if !ok {
				return c, nil
			}
			text := c.Input.Value()
			return c, func() tea.Msg {
				return ApplySuggestionMsg{Suggestion: s, Text: text}
			}
		case "backspace":
			if c.Input.Value() == "" {
				return c, func() tea.Msg { return RemoveLastTagMsg{} }
			}
		case "esc":
			c.suggestions = nil
			return c, func() tea.Msg { return BlurChooserMsg{} }
		}
	}

	before := c.Input.Value()
	var cmd tea.Cmd
	c.Input, cmd = c.Input.Update(msg)
	if after := c.Input.Value(); after != before {
		c.selected = 0
		cmd = tea.Batch(cmd, func() tea.Msg { return ChooserQueryMsg{Text: after} })
	}
	return c, cmd
}

func (c *ChooserBar) renderTag(opt chooser.Option) string {
	bg := c.Theme.TagField
	if opt.Type == chooser.CompoundOption {
		bg = c.Theme.TagCompound
	}
	return lipgloss.NewStyle().
		Foreground(c.Theme.TagText).
		Background(bg).
		Padding(0, 1).
		Render(opt.Label)
}

// View renders the bar
func (c *ChooserBar) View() string {
	var parts []string
	if c.favorite {
		parts = append(parts, lipgloss.NewStyle().Foreground(c.Theme.Favorite).Render("★"))
	}
	for _, opt := range c.tags {
		parts = append(parts, c.renderTag(opt))
	}
	if c.unsupported {
		parts = append(parts, lipgloss.NewStyle().
			Foreground(c.Theme.Warning).
			Bold(true).
			Render("Unsupported filter"))
	}
	if c.pending {
		parts = append(parts, lipgloss.NewStyle().Foreground(c.Theme.Muted).Render("…"))
	}

	inputWidth := c.Width - lipgloss.Width(strings.Join(parts, " ")) - 8
	if inputWidth < 20 {
		inputWidth = 20
	}
	c.Input.Width = inputWidth
	parts = append(parts, c.Input.View())

	border := c.Theme.Border
	if c.Input.Focused() {
		border = c.Theme.BorderFocused
	}
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1).
		Width(max(c.Width-2, 0)).
		Render(strings.Join(parts, " "))

	if !c.Input.Focused() || len(c.suggestions) == 0 {
		return box
	}
	return lipgloss.JoinVertical(lipgloss.Left, box, c.renderSuggestions())
}

func (c *ChooserBar) renderSuggestions() string {
	start := 0
	if c.selected >= c.MaxVisible {
		start = c.selected - c.MaxVisible + 1
	}
	end := min(start+c.MaxVisible, len(c.suggestions))

	var lines []string
	for i := start; i < end; i++ {
		s := c.suggestions[i]
		style := lipgloss.NewStyle().Padding(0, 1)
		if s.Kind == query.FieldSuggestion {
			style = style.Foreground(c.Theme.Info)
		} else {
			style = style.Foreground(c.Theme.Foreground)
		}
		if i == c.selected {
			style = style.Background(c.Theme.Selection).Bold(true)
		}
		lines = append(lines, style.Render(s.Label))
	}
	if len(c.suggestions) > end {
		lines = append(lines, lipgloss.NewStyle().
			Foreground(c.Theme.Muted).
			Italic(true).
			Padding(0, 1).
			Render("…"))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(c.Theme.Border).
		Render(strings.Join(lines, "\n"))
}
