package variant

import "sync"

// Size is a pre-registered named size: dimensions plus the options that
// ride along when a call site requests the size by name.
type Size struct {
	Width   int
	Height  int
	Options Options
}

// Sizes is the named-size lookup table. It is populated once at startup
// (every aspect ratio crossed with every column fraction) and read on every
// request, so it is guarded for concurrent use.
type Sizes struct {
	mu     sync.RWMutex
	byName map[string]Size
	names  []string
}

func NewSizes() *Sizes {
	return &Sizes{byName: make(map[string]Size)}
}

// Register adds or replaces a named size.
func (s *Sizes) Register(name string, size Size) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, seen := s.byName[name]; !seen {
		s.names = append(s.names, name)
	}
	s.byName[name] = size
}

// Lookup fetches a named size.
func (s *Sizes) Lookup(name string) (Size, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	size, ok := s.byName[name]
	return size, ok
}

// Names returns the registered size names in registration order.
func (s *Sizes) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Len reports how many sizes are registered.
func (s *Sizes) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byName)
}
