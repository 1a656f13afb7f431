package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/rebelice/lazyfilter/internal/chooser"
	"github.com/rebelice/lazyfilter/internal/config"
	"github.com/rebelice/lazyfilter/internal/export"
	"github.com/rebelice/lazyfilter/internal/filter"
	"github.com/rebelice/lazyfilter/internal/gridfilter"
	"github.com/rebelice/lazyfilter/internal/models"
	"github.com/rebelice/lazyfilter/internal/query"
	"github.com/rebelice/lazyfilter/internal/source"
	"github.com/rebelice/lazyfilter/internal/tick"
	"github.com/rebelice/lazyfilter/internal/ui/components"
	"github.com/rebelice/lazyfilter/internal/ui/help"
	"github.com/rebelice/lazyfilter/internal/ui/theme"
)

// Options configures the application
type Options struct {
	Config  *config.Config
	Source  source.RowSource
	Chooser *chooser.Model
	Grid    *gridfilter.Model

	// Loop must be the loop Chooser and Grid schedule on
	Loop *tick.Loop

	Context context.Context
	Logger  log.Logger

	// ExportDir receives exported favorites
	ExportDir string

	// Copy writes text to the clipboard; defaults to the system clipboard
	Copy func(string) error
}

// App is the main application model
type App struct {
	state  models.AppState
	config *config.Config
	theme  theme.Theme

	source  source.RowSource
	chooser *chooser.Model
	grid    *gridfilter.Model
	loop    *tick.Loop
	ctx     context.Context
	logger  log.Logger

	chooserBar      *components.ChooserBar
	tableView       *components.TableView
	tablePanel      components.Panel
	favoritesDialog *components.FavoritesDialog

	// Error overlay
	showError    bool
	errorOverlay *components.ErrorOverlay
	shownErrs    map[*tick.Observer]error

	exportDir string
	copy      func(string) error
	status    string

	rowsDirty   bool
	unsubscribe []func()
}

// ErrorMsg is sent when an error occurs
type ErrorMsg struct {
	Title   string
	Message string
}

// RowsLoadedMsg carries the rows of the bound source
type RowsLoadedMsg struct {
	Rows []models.Record
	Err  error
}

// SuggestionsMsg carries suggestions loaded for Text
type SuggestionsMsg struct {
	Text        string
	Suggestions []query.Suggestion
	Err         error
}

// New creates a new App instance
func New(opts Options) (*App, error) {
	if opts.Source == nil || opts.Chooser == nil || opts.Grid == nil || opts.Loop == nil {
		return nil, errors.New("app requires a source, a chooser, a grid filter and a loop")
	}
	if opts.Config == nil {
		opts.Config = config.GetDefaults()
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNopLogger()
	}
	if opts.Copy == nil {
		opts.Copy = clipboard.WriteAll
	}

	th := theme.GetTheme(opts.Config.UI.Theme)

	a := &App{
		state:           models.NewAppState(),
		config:          opts.Config,
		theme:           th,
		source:          opts.Source,
		chooser:         opts.Chooser,
		grid:            opts.Grid,
		loop:            opts.Loop,
		ctx:             opts.Context,
		logger:          log.With(opts.Logger, "component", "app"),
		chooserBar:      components.NewChooserBar(th),
		tableView:       components.NewTableView(th),
		favoritesDialog: components.NewFavoritesDialog(th),
		errorOverlay:    components.NewErrorOverlay(th),
		shownErrs:       map[*tick.Observer]error{},
		exportDir:       opts.ExportDir,
		copy:            opts.Copy,
		tablePanel: components.Panel{
			Title: opts.Config.Source.Table,
			Theme: th,
		},
	}

	a.unsubscribe = append(a.unsubscribe,
		a.source.Subscribe(func(models.Filter) { a.rowsDirty = true }),
		a.chooser.Subscribe(a.syncChooser),
	)
	a.syncChooser()
	return a, nil
}

// Close releases subscriptions
func (a *App) Close() {
	for _, fn := range a.unsubscribe {
		fn()
	}
	a.unsubscribe = nil
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.loadRows(), a.querySuggestions(""))
}

// Update implements tea.Model. Work scheduled by the chooser and the grid
// filter runs before the view is refreshed.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := a.update(msg)
	a.loop.Flush()
	return a, tea.Batch(cmd, a.afterFlush())
}

func (a *App) afterFlush() tea.Cmd {
	a.syncChooser()
	a.chooserBar.SetPending(a.chooser.FilterTask().IsPending() || a.grid.FilterTask().IsPending())

	for _, obs := range []*tick.Observer{a.chooser.FilterTask(), a.grid.FilterTask()} {
		if err := obs.LastError(); err != nil && err != a.shownErrs[obs] {
			a.shownErrs[obs] = err
			a.ShowError("Filter Error", err.Error())
		}
	}

	if !a.rowsDirty {
		return nil
	}
	a.rowsDirty = false
	a.chooser.InvalidateValues()
	return a.loadRows()
}

func (a *App) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case ErrorMsg:
		a.ShowError(msg.Title, msg.Message)
		return nil

	case tea.WindowSizeMsg:
		a.state.Width = msg.Width
		a.state.Height = msg.Height
		return nil

	case RowsLoadedMsg:
		if msg.Err != nil {
			a.ShowError("Source Error", fmt.Sprintf("Failed to load rows:\n\n%v", msg.Err))
			return nil
		}
		a.tableView.SetData(a.source.FieldNames(), msg.Rows, a.config.Source.RowLimit)
		a.syncFilteredColumns()
		return nil

	case SuggestionsMsg:
		if msg.Err != nil {
			level.Warn(a.logger).Log("msg", "suggestions incomplete", "err", msg.Err)
		}
		a.chooserBar.SetSuggestions(msg.Text, msg.Suggestions)
		return nil

	case components.ChooserQueryMsg:
		a.chooser.SetInputValue(msg.Text)
		return a.querySuggestions(msg.Text)

	case components.ApplySuggestionMsg:
		return a.applySuggestion(msg)

	case components.RemoveLastTagMsg:
		if keys := a.chooser.SelectValue(); len(keys) > 0 {
			a.chooser.SetSelectValue(keys[:len(keys)-1])
		}
		return nil

	case components.BlurChooserMsg:
		a.focus(models.TablePanel)
		return nil

	case components.ApplyFavoriteMsg:
		a.chooser.SetValue(msg.Filter)
		a.state.ViewMode = models.NormalMode
		return nil

	case components.RemoveFavoriteMsg:
		a.chooser.RemoveFavorite(msg.Filter)
		a.favoritesDialog.SetFavorites(a.chooser.FavoritesOptions(), a.chooser.Value())
		return nil

	case components.ExportFavoritesMsg:
		a.exportFavorites(msg.Format)
		return nil

	case components.ImportFavoritesMsg:
		a.importFavorites()
		return nil

	case components.CloseFavoritesDialogMsg:
		a.state.ViewMode = models.NormalMode
		return nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}
	return nil
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	key := msg.String()

	if a.showError {
		switch key {
		case "esc", "enter":
			a.DismissError()
		case "ctrl+c":
			return tea.Quit
		}
		return nil
	}

	switch a.state.ViewMode {
	case models.HelpMode:
		switch key {
		case "?", "esc", "q":
			a.state.ViewMode = models.NormalMode
		case "ctrl+c":
			return tea.Quit
		}
		return nil
	case models.FavoritesMode:
		if key == "ctrl+c" {
			return tea.Quit
		}
		var cmd tea.Cmd
		a.favoritesDialog, cmd = a.favoritesDialog.Update(msg)
		return cmd
	}

	switch key {
	case "ctrl+c":
		return tea.Quit
	case "ctrl+s":
		a.chooser.ToggleFavorite()
		return nil
	case "ctrl+o":
		a.favoritesDialog.SetFavorites(a.chooser.FavoritesOptions(), a.chooser.Value())
		a.state.ViewMode = models.FavoritesMode
		return nil
	case "ctrl+y":
		a.copyFilter()
		return nil
	case "tab":
		if a.state.FocusedPanel == models.ChooserPanel {
			a.focus(models.TablePanel)
			return nil
		}
		return a.focus(models.ChooserPanel)
	}

	if a.state.FocusedPanel == models.ChooserPanel {
		var cmd tea.Cmd
		a.chooserBar, cmd = a.chooserBar.Update(msg)
		return cmd
	}
	return a.handleTableKey(key)
}

func (a *App) handleTableKey(key string) tea.Cmd {
	switch key {
	case "q":
		return tea.Quit
	case "?":
		a.state.ViewMode = models.HelpMode
	case "/":
		return a.focus(models.ChooserPanel)
	case "r", "f5":
		a.chooser.InvalidateValues()
		return a.loadRows()
	case "up", "k":
		a.tableView.MoveSelection(-1)
	case "down", "j":
		a.tableView.MoveSelection(1)
	case "left", "h":
		a.tableView.MoveColumn(-1)
	case "right", "l":
		a.tableView.MoveColumn(1)
	case "ctrl+u":
		a.tableView.PageUp()
	case "ctrl+d":
		a.tableView.PageDown()
	case "=":
		a.filterByCell()
	case "x":
		if col, ok := a.tableView.SelectedColumn(); ok {
			a.applyGridEdit(a.grid.SetColumnFilters(col, nil))
		}
	case "X":
		a.grid.Clear()
	}
	return nil
}

func (a *App) focus(panel models.PanelType) tea.Cmd {
	a.state.FocusedPanel = panel
	if panel == models.ChooserPanel {
		cmd := a.chooserBar.Focus()
		return tea.Batch(cmd, a.querySuggestions(a.chooserBar.Value()))
	}
	a.chooserBar.Blur()
	return nil
}

// filterByCell adds the selected cell's value to its column's filter
func (a *App) filterByCell() {
	col, v, ok := a.tableView.SelectedCell()
	if !ok {
		return
	}
	spec := a.grid.FieldSpec(col)
	if spec == nil {
		a.ShowError("Filter Error", fmt.Sprintf("Column %s cannot be filtered", col))
		return
	}
	v = a.grid.FromDisplayValue(v)

	if slices.Contains(spec.Ops, models.OpIn) {
		f, err := models.NewFieldFilter(col, models.OpIn, []any{v})
		if err == nil {
			err = a.grid.MergeColumnFilters(col, f)
		}
		a.applyGridEdit(err)
		return
	}
	f, err := models.NewFieldFilter(col, models.OpEqual, v)
	if err == nil {
		err = a.grid.SetColumnFilters(col, f)
	}
	a.applyGridEdit(err)
}

func (a *App) applyGridEdit(err error) {
	if err != nil {
		level.Warn(a.logger).Log("msg", "column filter rejected", "err", err)
		a.ShowError("Filter Error", err.Error())
	}
}

func (a *App) applySuggestion(msg components.ApplySuggestionMsg) tea.Cmd {
	key, err := msg.Suggestion.Key()
	if err != nil {
		a.ShowError("Filter Error", err.Error())
		return nil
	}

	a.chooser.SetInputValue(msg.Text)
	a.chooser.SetSelectValue(append(a.chooser.SelectValue(), key))

	text := ""
	if msg.Suggestion.Kind == query.FieldSuggestion {
		text = a.chooser.InputValue() + " "
	}
	a.chooser.SetInputValue(text)
	a.chooserBar.SetValue(text)
	return a.querySuggestions(text)
}

func (a *App) querySuggestions(text string) tea.Cmd {
	ctx := a.ctx
	return func() tea.Msg {
		suggestions, err := a.chooser.Query(ctx, text)
		return SuggestionsMsg{Text: text, Suggestions: suggestions, Err: err}
	}
}

func (a *App) loadRows() tea.Cmd {
	ctx, limit := a.ctx, a.config.Source.RowLimit
	return func() tea.Msg {
		rows, err := a.source.Rows(ctx, limit)
		return RowsLoadedMsg{Rows: rows, Err: err}
	}
}

func (a *App) syncChooser() {
	a.chooserBar.SetTags(a.chooser.SelectOptions(), a.chooser.UnsupportedFilter(), a.chooser.IsFavorite(a.chooser.Value()))
	a.syncFilteredColumns()
}

func (a *App) syncFilteredColumns() {
	f := a.source.Filter()
	filtered := make(map[string]bool, len(a.tableView.Columns))
	for _, col := range a.tableView.Columns {
		filtered[col] = len(filter.FieldFilters(f, col)) > 0
	}
	a.tableView.Filtered = filtered
}

func (a *App) copyFilter() {
	key, err := models.FilterKey(a.chooser.Value())
	if err == nil {
		err = a.copy(key)
	}
	if err != nil {
		a.ShowError("Clipboard Error", err.Error())
		return
	}
	a.status = "Copied filter"
}

func (a *App) exportFavorites(format string) {
	var favorites []export.Favorite
	for _, opt := range a.chooser.FavoritesOptions() {
		fav, err := export.NewFavorite(opt.Label, opt.Filter)
		if err != nil {
			level.Warn(a.logger).Log("msg", "skipping favorite", "err", err)
			continue
		}
		favorites = append(favorites, fav)
	}

	path := filepath.Join(a.exportDir, "favorites."+format)
	var err error
	if format == "csv" {
		err = export.ExportToCSV(favorites, path)
	} else {
		err = export.ExportToJSON(favorites, path)
	}
	if err != nil {
		a.ShowError("Export Failed", err.Error())
		return
	}
	a.status = fmt.Sprintf("Exported %d favorites to %s", len(favorites), path)
}

func (a *App) importFavorites() {
	path := filepath.Join(a.exportDir, "favorites.json")
	filters, err := export.ImportFromJSON(path)
	if err != nil {
		a.ShowError("Import Failed", err.Error())
		return
	}
	for _, f := range filters {
		a.chooser.AddFavorite(f)
	}
	a.favoritesDialog.SetFavorites(a.chooser.FavoritesOptions(), a.chooser.Value())
	a.status = fmt.Sprintf("Imported %d favorites from %s", len(filters), path)
}

// View implements tea.Model
func (a *App) View() string {
	if a.showError {
		return lipgloss.Place(
			a.state.Width, a.state.Height,
			lipgloss.Center, lipgloss.Center,
			a.errorOverlay.View(),
		)
	}

	switch a.state.ViewMode {
	case models.HelpMode:
		return help.Render(a.state.Width, a.state.Height, a.theme, a.chooser.IntroHelpText())
	case models.FavoritesMode:
		a.favoritesDialog.Width = min(a.state.Width-4, 90)
		a.favoritesDialog.Height = min(a.state.Height-4, 24)
		return lipgloss.Place(
			a.state.Width, a.state.Height,
			lipgloss.Center, lipgloss.Center,
			a.favoritesDialog.View(),
		)
	}

	return a.renderNormalView()
}

func (a *App) renderNormalView() string {
	right := a.status
	if right == "" {
		right = "[?] Help"
	}
	topBar := lipgloss.NewStyle().
		Width(a.state.Width).
		Background(a.theme.BorderFocused).
		Foreground(a.theme.TagText).
		Padding(0, 2).
		Render(a.formatStatusBar("lazyfilter", right))

	bottomBar := lipgloss.NewStyle().
		Width(a.state.Width).
		Background(a.theme.Selection).
		Foreground(a.theme.Foreground).
		Padding(0, 2).
		Render(a.formatStatusBar("[tab] Switch focus | [=] Filter by cell | [ctrl+o] Favorites", "[q] Quit"))

	a.chooserBar.Width = a.state.Width
	bar := a.chooserBar.View()

	// top bar, bottom bar and the panel border
	contentHeight := max(a.state.Height-2-lipgloss.Height(bar)-2, 3)
	a.tablePanel.Width = max(a.state.Width-2, 10)
	a.tablePanel.Height = contentHeight
	a.tablePanel.Focused = a.state.FocusedPanel == models.TablePanel
	a.tablePanel.Status = fmt.Sprintf(" %d rows", len(a.tableView.Records))

	a.tableView.Width = a.tablePanel.Width
	a.tableView.Height = contentHeight - 1
	a.tablePanel.Content = a.tableView.View()

	return lipgloss.JoinVertical(
		lipgloss.Left,
		topBar,
		bar,
		a.tablePanel.View(),
		bottomBar,
	)
}

// formatStatusBar formats a status bar with left and right aligned content
func (a *App) formatStatusBar(left, right string) string {
	availableWidth := max(a.state.Width-4, 0)

	leftLen := lipgloss.Width(left)
	rightLen := lipgloss.Width(right)

	if leftLen+rightLen > availableWidth {
		if availableWidth > rightLen {
			return truncate(left, availableWidth-rightLen) + right
		}
		return truncate(left, availableWidth)
	}

	spacing := availableWidth - leftLen - rightLen
	return left + lipgloss.NewStyle().Width(spacing).Render("") + right
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) > width {
		r = r[:width]
	}
	return string(r)
}

// ShowError displays an error overlay with the given title and message
func (a *App) ShowError(title, message string) {
	a.errorOverlay.SetError(title, message)
	a.showError = true
}

// DismissError hides the error overlay
func (a *App) DismissError() {
	a.showError = false
}
