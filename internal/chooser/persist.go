package chooser

import (
	"encoding/json"
	"fmt"

	"github.com/go-kit/log/level"

	"github.com/rebelice/lazyfilter/internal/filter"
	"github.com/rebelice/lazyfilter/internal/models"
	"github.com/rebelice/lazyfilter/internal/persist"
)

type restoredState struct {
	value     models.Filter
	favorites []models.Filter
}

// readState loads and parses the persisted subset. Any failure is returned so
// the caller can disable persistence.
func (m *Model) readState() (*restoredState, error) {
	state, err := m.provider.Read()
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, nil
	}

	out := &restoredState{}
	if m.persistValue && state.Value != nil {
		if out.value, err = filter.Parse(state.Value); err != nil {
			return nil, fmt.Errorf("invalid persisted value: %w", err)
		}
	}
	if m.persistFavorites && state.Favorites != nil {
		out.favorites = make([]models.Filter, 0, len(state.Favorites))
		for _, d := range state.Favorites {
			f, err := filter.Parse(d)
			if err != nil {
				return nil, fmt.Errorf("invalid persisted favorite: %w", err)
			}
			out.favorites = append(out.favorites, f)
		}
	}
	return out, nil
}

func (m *Model) persistState() (persist.State, error) {
	var state persist.State
	if m.persistValue {
		d, err := models.ToData(m.value)
		if err != nil {
			return state, err
		}
		state.Value = d
	}
	if m.persistFavorites {
		state.Favorites = make([]models.FilterData, 0, len(m.favorites))
		for _, f := range m.favorites {
			d, err := models.ToData(f)
			if err != nil {
				return state, err
			}
			state.Favorites = append(state.Favorites, *d)
		}
	}
	return state, nil
}

// persistKey identifies a snapshot so unchanged state is not rewritten
func (m *Model) persistKey() (string, error) {
	if m.provider == nil {
		return "", nil
	}
	state, err := m.persistState()
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(state)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (m *Model) writeState() {
	if m.provider == nil {
		return
	}
	key, err := m.persistKey()
	if err != nil {
		level.Error(m.logger).Log("msg", "failed to snapshot chooser state", "err", err)
		return
	}
	if key == m.lastPersisted {
		return
	}

	state, _ := m.persistState()
	if err := m.provider.Write(state); err != nil {
		level.Error(m.logger).Log("msg", "failed to persist chooser state", "err", err)
		return
	}
	m.lastPersisted = key
}
