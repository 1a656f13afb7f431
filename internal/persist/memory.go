package persist

import (
	"sync"

	"github.com/rebelice/lazyfilter/internal/models"
)

// MemoryProvider keeps a state in memory. ReadErr and WriteErr, when set,
// are returned by Read and Write.
type MemoryProvider struct {
	mu       sync.Mutex
	state    *State
	writes   int
	ReadErr  error
	WriteErr error
}

// NewMemoryProvider creates an empty provider
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{}
}

// Read returns a copy of the stored state
func (p *MemoryProvider) Read() (*State, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ReadErr != nil {
		return nil, p.ReadErr
	}
	if p.state == nil {
		return nil, nil
	}
	s := copyState(*p.state)
	return &s, nil
}

// Write stores a copy of s
func (p *MemoryProvider) Write(s State) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.WriteErr != nil {
		return p.WriteErr
	}
	c := copyState(s)
	p.state = &c
	p.writes++
	return nil
}

// Writes returns the number of successful writes
func (p *MemoryProvider) Writes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writes
}

func (p *MemoryProvider) Close() error { return nil }

func copyState(s State) State {
	out := State{Favorites: append([]models.FilterData(nil), s.Favorites...)}
	if s.Value != nil {
		v := *s.Value
		out.Value = &v
	}
	return out
}
