// Package tagstore implements the Tag Store (C3): get-or-create tag
// resolution backed by a normalized tags/item_tags link table.
package tagstore

import (
	"fmt"

	"github.com/shirokuma-kb/shirokuma/internal/database"
	"github.com/shirokuma-kb/shirokuma/internal/logging"
)

var log = logging.GetLogger("tagstore")

// Store resolves, lists, and removes tags.
type Store struct {
	db *database.Database
}

// New constructs a Store over db.
func New(db *database.Database) *Store {
	return &Store{db: db}
}

// ResolveOrCreate lowercases and trims each name, inserting any missing
// tag rows, and returns ids preserving input order.
func (s *Store) ResolveOrCreate(names []string) ([]int64, error) {
	return database.ResolveOrCreateTags(s.db, names)
}

// List returns every tag, alphabetically.
func (s *Store) List() ([]database.Tag, error) {
	return database.ListTags(s.db)
}

// SearchByPattern returns tags whose name contains substr, case
// insensitively.
func (s *Store) SearchByPattern(substr string) ([]database.Tag, error) {
	return database.SearchTagsByPattern(s.db, substr)
}

// ErrInUse indicates removal was blocked because items still carry this
// tag.
type ErrInUse struct {
	Name  string
	Count int
}

func (e ErrInUse) Error() string {
	return fmt.Sprintf("tag %q is in use by %d item(s)", e.Name, e.Count)
}

// Remove deletes a tag by name. Fails with ErrInUse if any item still
// carries it.
func (s *Store) Remove(name string) error {
	tag, err := database.GetTagByName(s.db, name)
	if err != nil {
		return fmt.Errorf("tag %q not found: %w", name, err)
	}
	count, err := database.TagInUseCount(s.db, tag.ID)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrInUse{Name: name, Count: count}
	}
	if err := database.DeleteTag(s.db, tag.ID); err != nil {
		return err
	}
	log.Info("removed tag", "name", name)
	return nil
}
