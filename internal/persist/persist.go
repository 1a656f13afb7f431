// Package persist stores the chooser's value and favorites between sessions.
package persist

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rebelice/lazyfilter/internal/models"
)

// DefaultKey is the key the chooser state is stored under
const DefaultKey = "filterChooser"

// State is the persisted subset of a chooser
type State struct {
	Value     *models.FilterData  `json:"value,omitempty" yaml:"value,omitempty" msgpack:"value,omitempty"`
	Favorites []models.FilterData `json:"favorites" yaml:"favorites" msgpack:"favorites"`
}

// Provider reads and writes one State
type Provider interface {
	// Read returns the stored state, or nil when nothing was stored yet
	Read() (*State, error)
	Write(State) error
	Close() error
}

// Backend names a provider implementation
type Backend string

const (
	BackendFile   Backend = "file"
	BackendSQLite Backend = "sqlite"
	BackendBolt   Backend = "bolt"
	BackendMemory Backend = "memory"
	BackendNone   Backend = "none"
)

// Config selects and configures a provider
type Config struct {
	Backend Backend
	Path    string // file or database path; defaults under Dir
	Dir     string // directory used when Path is empty
	Key     string
}

var defaultFiles = map[Backend]string{
	BackendFile:   "state.yaml",
	BackendSQLite: "state.db",
	BackendBolt:   "state.bolt",
}

// Open creates the provider named by cfg. BackendNone yields a nil provider.
func Open(cfg Config) (Provider, error) {
	backend := Backend(strings.ToLower(string(cfg.Backend)))
	if backend == "" {
		backend = BackendFile
	}
	key := cfg.Key
	if key == "" {
		key = DefaultKey
	}

	path := cfg.Path
	if path == "" {
		if name, ok := defaultFiles[backend]; ok {
			if cfg.Dir == "" {
				return nil, fmt.Errorf("persist backend %s needs a path", backend)
			}
			path = filepath.Join(cfg.Dir, name)
		}
	}

	switch backend {
	case BackendNone:
		return nil, nil
	case BackendMemory:
		return NewMemoryProvider(), nil
	case BackendFile:
		return NewFileProvider(path, key), nil
	case BackendSQLite:
		p, err := NewSQLiteProvider(path, key)
		if err != nil {
			return nil, err
		}
		return p, nil
	case BackendBolt:
		p, err := NewBoltProvider(path, key)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, fmt.Errorf("unknown persist backend %q", cfg.Backend)
}
