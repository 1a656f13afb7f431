package components

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rebelice/lazyfilter/internal/chooser"
	"github.com/rebelice/lazyfilter/internal/models"
	"github.com/rebelice/lazyfilter/internal/ui/theme"
)

// ApplyFavoriteMsg is sent when a favorite should become the chooser value
type ApplyFavoriteMsg struct {
	Filter models.Filter
}

// RemoveFavoriteMsg is sent when a favorite should be deleted
type RemoveFavoriteMsg struct {
	Filter models.Filter
}

// ExportFavoritesMsg is sent when favorites should be written to a file
type ExportFavoritesMsg struct {
	Format string // "json" or "csv"
}

// ImportFavoritesMsg is sent when favorites should be read from a file
type ImportFavoritesMsg struct{}

// CloseFavoritesDialogMsg is sent when dialog should close
type CloseFavoritesDialogMsg struct{}

// FavoritesDialog lists saved filters
type FavoritesDialog struct {
	Width  int
	Height int
	Theme  theme.Theme

	favorites []chooser.FavoriteOption
	current   models.Filter
	selected  int
	offset    int
}

// NewFavoritesDialog creates a new favorites dialog
func NewFavoritesDialog(th theme.Theme) *FavoritesDialog {
	return &FavoritesDialog{
		Width:  80,
		Height: 20,
		Theme:  th,
	}
}

// SetFavorites updates the favorites list. current is marked in the list.
func (fd *FavoritesDialog) SetFavorites(favorites []chooser.FavoriteOption, current models.Filter) {
	fd.favorites = favorites
	fd.current = current
	if fd.selected >= len(favorites) {
		fd.selected = max(len(favorites)-1, 0)
	}
	if fd.offset > fd.selected {
		fd.offset = fd.selected
	}
}

// Selected returns the highlighted favorite
func (fd *FavoritesDialog) Selected() (chooser.FavoriteOption, bool) {
	if fd.selected < 0 || fd.selected >= len(fd.favorites) {
		return chooser.FavoriteOption{}, false
	}
	return fd.favorites[fd.selected], true
}

func (fd *FavoritesDialog) visibleHeight() int {
	return max(fd.Height-6, 1)
}

// Update handles keyboard input
func (fd *FavoritesDialog) Update(msg tea.KeyMsg) (*FavoritesDialog, tea.Cmd) {
	switch msg.String() {
	case "esc", "q", "ctrl+o":
		return fd, func() tea.Msg {
			return CloseFavoritesDialogMsg{}
		}
	case "up", "k":
		if fd.selected > 0 {
			fd.selected--
			if fd.selected < fd.offset {
				fd.offset = fd.selected
			}
		}
	case "down", "j":
		if fd.selected < len(fd.favorites)-1 {
			fd.selected++
			if fd.selected >= fd.offset+fd.visibleHeight() {
				fd.offset = fd.selected - fd.visibleHeight() + 1
			}
		}
	case "enter":
		if fav, ok := fd.Selected(); ok {
			return fd, func() tea.Msg {
				return ApplyFavoriteMsg{Filter: fav.Filter}
			}
		}
	case "d", "x":
		if fav, ok := fd.Selected(); ok {
			return fd, func() tea.Msg {
				return RemoveFavoriteMsg{Filter: fav.Filter}
			}
		}
	case "e":
		return fd, func() tea.Msg { return ExportFavoritesMsg{Format: "json"} }
	case "E":
		return fd, func() tea.Msg { return ExportFavoritesMsg{Format: "csv"} }
	case "i":
		return fd, func() tea.Msg { return ImportFavoritesMsg{} }
	}
	return fd, nil
}

// View renders the dialog
func (fd *FavoritesDialog) View() string {
	var sections []string

	titleStyle := lipgloss.NewStyle().
		Foreground(fd.Theme.Foreground).
		Background(fd.Theme.Info).
		Padding(0, 1).
		Bold(true)
	sections = append(sections, titleStyle.Render("Favorite Filters"))

	instrStyle := lipgloss.NewStyle().
		Foreground(fd.Theme.Muted).
		Padding(0, 1)
	sections = append(sections, instrStyle.Render("↑↓: Navigate  Enter: Apply  d: Delete  e/E: Export  i: Import  Esc: Close"))

	if len(fd.favorites) == 0 {
		sections = append(sections, "\nNo favorites yet. Press Ctrl+S in the filter bar to add one.")
	} else {
		sections = append(sections, "")
		end := min(fd.offset+fd.visibleHeight(), len(fd.favorites))
		for i := fd.offset; i < end; i++ {
			fav := fd.favorites[i]

			label := fav.Label
			if maxLen := fd.Width - 8; maxLen > 3 && len(label) > maxLen {
				label = label[:maxLen-3] + "..."
			}
			marker := "  "
			if models.Equal(fav.Filter, fd.current) {
				marker = lipgloss.NewStyle().Foreground(fd.Theme.Favorite).Render("★ ")
			}

			style := lipgloss.NewStyle().Padding(0, 1)
			if i == fd.selected {
				style = style.Background(fd.Theme.Selection).Foreground(fd.Theme.Foreground)
			}
			sections = append(sections, style.Render(marker+label))
		}
	}

	containerStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(fd.Theme.BorderFocused).
		Width(fd.Width).
		Height(fd.Height).
		Padding(1)

	return containerStyle.Render(strings.Join(sections, "\n"))
}
