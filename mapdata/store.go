package mapdata

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Store is a read-only, name-keyed lookup of parsed map Definitions,
// loaded once at startup by globbing a directory of YAML files
// (spec.md §6 "the loader is an external collaborator"). One map is
// designated active, the one a LOGIN without an explicit map name binds
// its game to, mirroring the original server's Map.active flag
// (original_source/server/entity/map.py).
type Store struct {
	mu     sync.RWMutex
	byName map[string]*Definition
	active string
}

// NewStore builds an empty Store. Use Load to populate it.
func NewStore() *Store {
	return &Store{byName: make(map[string]*Definition)}
}

// Load globs pattern (e.g. "maps/*.yaml"), parses every match as a
// Definition, and validates it. With an empty activeName the first map
// loaded (in glob order) becomes active; a non-empty activeName must name
// a loaded map, which becomes active, and Load returns an error otherwise.
func (s *Store) Load(pattern, activeName string) error {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return fmt.Errorf("mapdata: bad discovery glob %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return fmt.Errorf("mapdata: no map files matched %q", pattern)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, path := range matches {
		def, err := loadFile(path)
		if err != nil {
			return err
		}
		if err := def.Validate(); err != nil {
			return err
		}
		s.byName[def.Name] = def
		if s.active == "" {
			s.active = def.Name
		}
	}
	if activeName != "" {
		if _, ok := s.byName[activeName]; !ok {
			return fmt.Errorf("mapdata: configured active map %q not found among loaded maps", activeName)
		}
		s.active = activeName
	}
	return nil
}

func loadFile(path string) (*Definition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("mapdata: reading %s: %w", path, err)
	}
	var def Definition
	if err := yaml.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("mapdata: parsing %s: %w", path, err)
	}
	if def.Name == "" {
		def.Name = stemName(path)
	}
	return &def, nil
}

func stemName(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}

// ByName looks up a map by name.
func (s *Store) ByName(name string) (*Definition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.byName[name]
	return d, ok
}

// Active returns the store's designated active map.
func (s *Store) Active() (*Definition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active == "" {
		return nil, false
	}
	d, ok := s.byName[s.active]
	return d, ok
}
