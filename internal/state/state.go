// Package state implements the Current-State Singleton (C8): a single
// row describing the consuming agent's "where are we" document.
package state

import (
	"fmt"

	"github.com/shirokuma-kb/shirokuma/internal/database"
	"github.com/shirokuma-kb/shirokuma/internal/logging"
)

var log = logging.GetLogger("state")

// Service reads and writes the singleton current-state row.
type Service struct {
	db *database.Database
}

// NewService constructs a Service over db.
func NewService(db *database.Database) *Service {
	return &Service{db: db}
}

// Get returns the current state, materializing a default empty one on
// first call.
func (s *Service) Get(now int64) (*database.CurrentState, error) {
	return database.GetCurrentState(s.db, now)
}

// Update overwrites content, tags, and related item ids, validating that
// every related id actually exists.
func (s *Service) Update(content string, tags []string, related []int64, updatedBy string, now int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning current-state update transaction: %w", err)
	}
	defer tx.Rollback()

	for _, id := range related {
		if _, err := database.GetItem(tx, id); err != nil {
			return fmt.Errorf("related item %d does not exist", id)
		}
	}

	if err := database.UpdateCurrentState(tx, content, tags, related, updatedBy, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing current-state update: %w", err)
	}
	log.Debug("updated current state", "updated_by", updatedBy)
	return nil
}
