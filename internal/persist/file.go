package persist

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// FileProvider keeps states in one YAML file, keyed by provider key.
// Other keys in the file are preserved on write.
type FileProvider struct {
	path string
	key  string
	mu   sync.Mutex
}

// NewFileProvider creates a provider over the YAML file at path
func NewFileProvider(path, key string) *FileProvider {
	return &FileProvider{path: path, key: key}
}

// Path returns the file location
func (p *FileProvider) Path() string {
	return p.path
}

func (p *FileProvider) load() (map[string]State, error) {
	states := map[string]State{}

	data, err := os.ReadFile(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		return states, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	if err := yaml.Unmarshal(data, &states); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}
	if states == nil {
		states = map[string]State{}
	}
	return states, nil
}

// Read loads the state stored under the provider key
func (p *FileProvider) Read() (*State, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	states, err := p.load()
	if err != nil {
		return nil, err
	}
	s, ok := states[p.key]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

// Write stores s under the provider key
func (p *FileProvider) Write(s State) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	states, err := p.load()
	if err != nil {
		return err
	}
	states[p.key] = s

	data, err := yaml.Marshal(states)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(p.path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return writeFileAtomic(p.path, data)
}

// writeFileAtomic writes data to a temp file next to path and renames it
// over path, so readers never see a partial file
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

func (p *FileProvider) Close() error { return nil }
