package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Store persists connection profiles and the session layout as a JSON file.
type Store struct {
	path string

	Connections    []Connection `json:"connections"`
	LastOpenedTabs []string     `json:"last_opened_tabs"`
}

// DefaultPath returns the per-user profile file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "mqttscope", "config.json"), nil
}

// Load reads the store at path. A missing file yields an empty store bound
// to that path.
func Load(path string) (*Store, error) {
	store := &Store{path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return store, nil
		}
		return nil, fmt.Errorf("read profiles %s: %w", path, err)
	}
	if err := json.Unmarshal(data, store); err != nil {
		return nil, fmt.Errorf("parse profiles %s: %w", path, err)
	}
	return store, nil
}

// Save writes the store back to its path, creating directories as needed.
func (s *Store) Save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create profile dir: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode profiles: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write profiles %s: %w", s.path, err)
	}
	return nil
}

// Add appends a new profile.
func (s *Store) Add(c Connection) {
	s.Connections = append(s.Connections, c)
}

// Update replaces the profile with the same id, if present.
func (s *Store) Update(c Connection) {
	for i := range s.Connections {
		if s.Connections[i].ID == c.ID {
			s.Connections[i] = c
			return
		}
	}
}

// Remove drops the profile and any tab reference to it.
func (s *Store) Remove(id string) {
	kept := s.Connections[:0]
	for _, c := range s.Connections {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	s.Connections = kept

	tabs := s.LastOpenedTabs[:0]
	for _, tab := range s.LastOpenedTabs {
		if tab != id {
			tabs = append(tabs, tab)
		}
	}
	s.LastOpenedTabs = tabs
}

// Get looks a profile up by id.
func (s *Store) Get(id string) (Connection, bool) {
	for _, c := range s.Connections {
		if c.ID == id {
			return c, true
		}
	}
	return Connection{}, false
}
