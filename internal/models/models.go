package models

// AppState holds the application state
type AppState struct {
	Width        int
	Height       int
	FocusedPanel PanelType
	ViewMode     ViewMode
}

// PanelType identifies which panel is focused
type PanelType int

const (
	ChooserPanel PanelType = iota
	TablePanel
)

// ViewMode identifies the current view
type ViewMode int

const (
	NormalMode ViewMode = iota
	HelpMode
	FavoritesMode
)

// NewAppState creates a new AppState with defaults
func NewAppState() AppState {
	return AppState{
		Width:        80,
		Height:       24,
		FocusedPanel: ChooserPanel,
		ViewMode:     NormalMode,
	}
}
