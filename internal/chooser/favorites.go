package chooser

import (
	"github.com/go-kit/log/level"

	"github.com/rebelice/lazyfilter/internal/filter"
	"github.com/rebelice/lazyfilter/internal/models"
)

// SetFavorites replaces the favorites. Nil, invalid and duplicate filters are
// dropped.
func (m *Model) SetFavorites(favorites []models.Filter) {
	var out []models.Filter
	for _, f := range favorites {
		if f == nil || !filter.Validate(f, m.registry) || containsFilter(out, f) {
			continue
		}
		out = append(out, f)
	}
	m.favorites = out
	m.changed()
}

// AddFavorite appends f unless it is nil, invalid or already a favorite
func (m *Model) AddFavorite(f models.Filter) {
	if f == nil || m.IsFavorite(f) {
		return
	}
	if err := filter.Check(f, m.registry); err != nil {
		level.Warn(m.logger).Log("msg", "ignoring invalid favorite", "err", err)
		return
	}
	m.favorites = append(m.favorites, f)
	m.changed()
}

// RemoveFavorite removes every favorite equal to f
func (m *Model) RemoveFavorite(f models.Filter) {
	var out []models.Filter
	for _, fav := range m.favorites {
		if !models.Equal(fav, f) {
			out = append(out, fav)
		}
	}
	if len(out) == len(m.favorites) {
		return
	}
	m.favorites = out
	m.changed()
}

// IsFavorite reports whether a favorite equals f
func (m *Model) IsFavorite(f models.Filter) bool {
	return f != nil && containsFilter(m.favorites, f)
}

// ToggleFavorite adds the current value as a favorite, or removes it if it
// already is one
func (m *Model) ToggleFavorite() {
	if m.value == nil {
		return
	}
	if m.IsFavorite(m.value) {
		m.RemoveFavorite(m.value)
		return
	}
	m.AddFavorite(m.value)
}

// FavoritesOptions returns each favorite with the tags it renders as
func (m *Model) FavoritesOptions() []FavoriteOption {
	out := make([]FavoriteOption, 0, len(m.favorites))
	for _, fav := range m.favorites {
		display, err := filter.ToDisplayFilters(fav)
		if err != nil {
			level.Warn(m.logger).Log("msg", "cannot render favorite", "err", err)
			continue
		}
		fo := FavoriteOption{Filter: fav, Label: m.filterLabel(fav)}
		for _, d := range display {
			opt, err := m.createOption(d)
			if err != nil {
				level.Warn(m.logger).Log("msg", "cannot render favorite", "err", err)
				continue
			}
			fo.Options = append(fo.Options, opt)
		}
		out = append(out, fo)
	}
	return out
}

func containsFilter(list []models.Filter, f models.Filter) bool {
	for _, x := range list {
		if models.Equal(x, f) {
			return true
		}
	}
	return false
}
