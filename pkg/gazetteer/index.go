// Package gazetteer holds the reference data the standardizer resolves
// against: a word index (normalized token -> candidate place ids) and a place
// index (id -> Place).
//
// Indexes are built once and are read-only afterwards, so one index can
// serve any number of concurrent lookups without locking.
package gazetteer

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// ErrPlaceNotFound is returned when an id does not resolve in the place index.
var ErrPlaceNotFound = errors.New("gazetteer: place not found")

// Index is the lookup surface the standardizer needs. Implementations are
// in-memory (MemoryIndex), SQL-backed (SQLIndex) or cached (CachedIndex).
type Index interface {
	// LookupWord returns the candidate ids for a normalized token, or nil if
	// the token is not indexed.
	LookupWord(ctx context.Context, token string) ([]int, error)
	// Place returns the place with the given id, or an error wrapping
	// ErrPlaceNotFound.
	Place(ctx context.Context, id int) (*Place, error)
}

// MemoryIndex keeps both indexes in maps. The maps must not be modified once
// the index is handed to a standardizer.
type MemoryIndex struct {
	Words  map[string][]int
	Places map[int]*Place
}

// NewMemoryIndex wraps prebuilt maps. Nil maps are replaced by empty ones.
func NewMemoryIndex(words map[string][]int, places map[int]*Place) *MemoryIndex {
	if words == nil {
		words = make(map[string][]int)
	}
	if places == nil {
		places = make(map[int]*Place)
	}
	return &MemoryIndex{Words: words, Places: places}
}

// LookupWord implements Index.
func (m *MemoryIndex) LookupWord(_ context.Context, token string) ([]int, error) {
	return m.Words[token], nil
}

// Place implements Index.
func (m *MemoryIndex) Place(_ context.Context, id int) (*Place, error) {
	p, ok := m.Places[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrPlaceNotFound, id)
	}
	return p, nil
}

// Validate checks that every parent id and every word-index id resolves in
// the place index.
func (m *MemoryIndex) Validate() error {
	for _, id := range m.sortedIDs() {
		for _, parent := range m.Places[id].Parents() {
			if _, ok := m.Places[parent]; !ok {
				return fmt.Errorf("place %d: parent %w: %d", id, ErrPlaceNotFound, parent)
			}
		}
	}
	for token, ids := range m.Words {
		for _, id := range ids {
			if _, ok := m.Places[id]; !ok {
				return fmt.Errorf("word %q: %w: %d", token, ErrPlaceNotFound, id)
			}
		}
	}
	return nil
}

// Stats reports the number of indexed tokens and places.
func (m *MemoryIndex) Stats() (words, places int) {
	return len(m.Words), len(m.Places)
}

func (m *MemoryIndex) sortedIDs() []int {
	ids := make([]int, 0, len(m.Places))
	for id := range m.Places {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (m *MemoryIndex) sortedTokens() []string {
	tokens := make([]string, 0, len(m.Words))
	for t := range m.Words {
		tokens = append(tokens, t)
	}
	sort.Strings(tokens)
	return tokens
}
