// Package statusreg implements the Status Registry (C2): the fixed set
// of statuses seeded at initialization.
package statusreg

import (
	"fmt"
	"strings"
	"sync"

	"github.com/shirokuma-kb/shirokuma/internal/database"
)

// Registry serves status lookups from an in-memory cache, since statuses
// are read-mostly and mutate only through the isClosable migration.
type Registry struct {
	db *database.Database

	mu         sync.RWMutex
	generation uint64
	byID       map[int64]database.Status
	byName     map[string]database.Status
	cacheGen   uint64
}

// New constructs a Registry over db.
func New(db *database.Database) *Registry {
	return &Registry{db: db}
}

// Invalidate drops the cache, forcing the next read to reload from the
// backend. Callers run this after applying the isClosable migration.
func (r *Registry) Invalidate() {
	r.mu.Lock()
	r.generation++
	r.byID = nil
	r.byName = nil
	r.mu.Unlock()
}

func (r *Registry) load() (map[int64]database.Status, map[string]database.Status, error) {
	r.mu.RLock()
	if r.byID != nil && r.cacheGen == r.generation {
		byID, byName := r.byID, r.byName
		r.mu.RUnlock()
		return byID, byName, nil
	}
	r.mu.RUnlock()

	statuses, err := database.ListStatuses(r.db)
	if err != nil {
		return nil, nil, err
	}

	byID := make(map[int64]database.Status, len(statuses))
	byName := make(map[string]database.Status, len(statuses))
	for _, s := range statuses {
		byID[s.ID] = s
		byName[strings.ToLower(s.Name)] = s
	}

	r.mu.Lock()
	r.byID = byID
	r.byName = byName
	r.cacheGen = r.generation
	r.mu.Unlock()

	return byID, byName, nil
}

// List returns every status ordered by sort_order.
func (r *Registry) List() ([]database.Status, error) {
	return database.ListStatuses(r.db)
}

// GetByName looks up a status case-insensitively.
func (r *Registry) GetByName(name string) (database.Status, error) {
	_, byName, err := r.load()
	if err != nil {
		return database.Status{}, err
	}
	s, ok := byName[strings.ToLower(name)]
	if !ok {
		return database.Status{}, fmt.Errorf("status %q not found", name)
	}
	return s, nil
}

// GetByID looks up a status by id.
func (r *Registry) GetByID(id int64) (database.Status, error) {
	byID, _, err := r.load()
	if err != nil {
		return database.Status{}, err
	}
	s, ok := byID[id]
	if !ok {
		return database.Status{}, fmt.Errorf("status id %d not found", id)
	}
	return s, nil
}

// ClosableIDs returns the ids of every closable status.
func (r *Registry) ClosableIDs() ([]int64, error) {
	return database.ClosableStatusIDs(r.db)
}

// DefaultID returns the id of the status new items get when none is
// specified ("Open").
func (r *Registry) DefaultID() (int64, error) {
	return database.DefaultStatusID(r.db)
}
