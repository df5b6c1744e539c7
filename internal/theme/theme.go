// Package theme holds the light/dark display preference for a session.
package theme

import "sync"

const (
	Light = "light"
	Dark  = "dark"
)

// Store holds one flag: true means dark mode. The zero value is light.
type Store struct {
	mu   sync.RWMutex
	dark bool
}

func New(dark bool) *Store {
	return &Store{dark: dark}
}

// Toggle flips the flag and returns the new value.
func (s *Store) Toggle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dark = !s.dark
	return s.dark
}

// Current reports whether dark mode is on.
func (s *Store) Current() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dark
}

// Variant names the current visual variant for templates.
func (s *Store) Variant() string {
	if s.Current() {
		return Dark
	}
	return Light
}
