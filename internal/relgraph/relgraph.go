// Package relgraph implements the Relation Graph (C7): a directed,
// always-bidirectional adjacency list over items.
package relgraph

import (
	"fmt"

	"github.com/shirokuma-kb/shirokuma/internal/database"
	"github.com/shirokuma-kb/shirokuma/internal/logging"
)

var log = logging.GetLogger("relgraph")

// Service exposes the relation graph operations over a database handle:
// AddRelations, RemoveRelations, RelationsOf and MapGraph, over an untyped,
// mandatory-mirror relation model — there is no RelationshipType or
// Strength here, only "related" edges.
type Service struct {
	db *database.Database
}

// NewService constructs a Service over db.
func NewService(db *database.Database) *Service {
	return &Service{db: db}
}

// ErrInvalidRelation indicates a self-edge or a dangling target was
// rejected.
type ErrInvalidRelation struct {
	Reason string
}

func (e ErrInvalidRelation) Error() string {
	return fmt.Sprintf("invalid relation: %s", e.Reason)
}

// AddRelations adds a mirrored edge between id and each of targetIDs,
// atomically in one transaction.
func (s *Service) AddRelations(id int64, targetIDs []int64, now int64) error {
	if len(targetIDs) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning add-relations transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := database.GetItem(tx, id); err != nil {
		return ErrInvalidRelation{Reason: fmt.Sprintf("source item %d does not exist", id)}
	}

	for _, target := range targetIDs {
		if target == id {
			return ErrInvalidRelation{Reason: "self-edge not allowed"}
		}
		if _, err := database.GetItem(tx, target); err != nil {
			return ErrInvalidRelation{Reason: fmt.Sprintf("target item %d does not exist", target)}
		}
		if err := database.AddRelationPair(tx, id, target, now); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing add-relations: %w", err)
	}
	log.Debug("added relations", "item_id", id, "targets", targetIDs)
	return nil
}

// RemoveRelations removes the mirrored edge between id and each of
// targetIDs, atomically in one transaction.
func (s *Service) RemoveRelations(id int64, targetIDs []int64) error {
	if len(targetIDs) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning remove-relations transaction: %w", err)
	}
	defer tx.Rollback()

	for _, target := range targetIDs {
		if err := database.RemoveRelationPair(tx, id, target); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing remove-relations: %w", err)
	}
	log.Debug("removed relations", "item_id", id, "targets", targetIDs)
	return nil
}

// RelationsOf returns the ids directly related to id.
func (s *Service) RelationsOf(id int64) ([]int64, error) {
	return database.RelationsOf(s.db, id)
}

// MapGraphOptions configures a bounded-depth graph walk: just a root and
// a depth, since SHIROKUMA's untyped edges carry no type/strength filter
// to configure.
type MapGraphOptions struct {
	RootID int64
	Depth  int
}

// MapGraph performs a breadth-first walk from opts.RootID, capped at
// depth 5 (default 2).
func (s *Service) MapGraph(opts MapGraphOptions) (*database.GraphResult, error) {
	if opts.RootID == 0 {
		return nil, fmt.Errorf("root_id is required")
	}
	if _, err := database.GetItem(s.db, opts.RootID); err != nil {
		return nil, fmt.Errorf("root item %d does not exist: %w", opts.RootID, err)
	}
	return database.MapGraph(s.db, opts.RootID, opts.Depth)
}
