// Package aliases holds manually configured search titles per identifier.
//
// The alias file is YAML:
//
//	aliases:
//	  tt2560140:
//	    - Shingeki no Kyojin
//	    - SnK
package aliases

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type file struct {
	Aliases map[string][]string `yaml:"aliases"`
}

// Store is a concurrency-safe alias map keyed by lowercase identifier.
type Store struct {
	path   string
	logger zerolog.Logger

	mu      sync.RWMutex
	aliases map[string][]string
}

// NewStore creates an empty store. Path may be empty.
func NewStore(path string, logger zerolog.Logger) *Store {
	return &Store{
		path:    path,
		logger:  logger.With().Str("component", "aliases").Logger(),
		aliases: make(map[string][]string),
	}
}

// Path returns the alias file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the alias file, replacing the current aliases. A missing
// path leaves the store empty.
func (s *Store) Load() error {
	if s.path == "" {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read alias file: %w", err)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse alias file %s: %w", s.path, err)
	}

	s.Replace(f.Aliases)
	s.logger.Info().Str("path", s.path).Int("identifiers", len(f.Aliases)).Msg("Loaded aliases")
	return nil
}

// Replace swaps in a new alias map. Blank and duplicate titles are dropped.
func (s *Store) Replace(m map[string][]string) {
	next := make(map[string][]string, len(m))
	for id, titles := range m {
		key := normalizeID(id)
		if key == "" {
			continue
		}
		for _, t := range titles {
			t = strings.TrimSpace(t)
			if t == "" || slices.ContainsFunc(next[key], func(x string) bool { return strings.EqualFold(x, t) }) {
				continue
			}
			next[key] = append(next[key], t)
		}
	}

	s.mu.Lock()
	s.aliases = next
	s.mu.Unlock()
}

// Lookup returns a copy of the aliases for id.
func (s *Store) Lookup(id string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.aliases[normalizeID(id)])
}

// Len returns the number of identifiers with aliases.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.aliases)
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
