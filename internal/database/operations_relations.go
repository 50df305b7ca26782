package database

import (
	"fmt"
)

// AddRelationPair inserts both directions of a relation edge atomically
// with respect to the caller's transaction. No-op (not an error) if the
// pair already exists.
func AddRelationPair(ex Execer, a, b int64, createdAt int64) error {
	if a == b {
		return fmt.Errorf("self-edge not allowed: %d", a)
	}
	if _, err := ex.Exec(
		"INSERT OR IGNORE INTO item_relations (source_id, target_id, created_at) VALUES (?, ?, ?)",
		a, b, createdAt,
	); err != nil {
		return fmt.Errorf("inserting relation %d->%d: %w", a, b, err)
	}
	if _, err := ex.Exec(
		"INSERT OR IGNORE INTO item_relations (source_id, target_id, created_at) VALUES (?, ?, ?)",
		b, a, createdAt,
	); err != nil {
		return fmt.Errorf("inserting relation %d->%d: %w", b, a, err)
	}
	return nil
}

// RemoveRelationPair deletes both directions of a relation edge.
func RemoveRelationPair(ex Execer, a, b int64) error {
	if _, err := ex.Exec("DELETE FROM item_relations WHERE source_id = ? AND target_id = ?", a, b); err != nil {
		return fmt.Errorf("removing relation %d->%d: %w", a, b, err)
	}
	if _, err := ex.Exec("DELETE FROM item_relations WHERE source_id = ? AND target_id = ?", b, a); err != nil {
		return fmt.Errorf("removing relation %d->%d: %w", b, a, err)
	}
	return nil
}

// RelationsOf returns the ids directly related to id, ascending.
func RelationsOf(ex Execer, id int64) ([]int64, error) {
	rows, err := ex.Query(
		"SELECT target_id FROM item_relations WHERE source_id = ? ORDER BY target_id",
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("listing relations of %d: %w", id, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var target int64
		if err := rows.Scan(&target); err != nil {
			return nil, err
		}
		ids = append(ids, target)
	}
	return ids, rows.Err()
}

// ReplaceRelations diffs the current relation set of id against want and
// applies the minimal set of adds/removes, each as a mirrored pair.
func ReplaceRelations(ex Execer, id int64, want []int64, now int64) error {
	current, err := RelationsOf(ex, id)
	if err != nil {
		return err
	}
	currentSet := make(map[int64]bool, len(current))
	for _, t := range current {
		currentSet[t] = true
	}
	wantSet := make(map[int64]bool, len(want))
	for _, t := range want {
		wantSet[t] = true
	}

	for target := range wantSet {
		if !currentSet[target] {
			if err := AddRelationPair(ex, id, target, now); err != nil {
				return err
			}
		}
	}
	for target := range currentSet {
		if !wantSet[target] {
			if err := RemoveRelationPair(ex, id, target); err != nil {
				return err
			}
		}
	}
	return nil
}

// OnItemDelete removes every relation edge touching id, and prunes id
// out of the current-state singleton's related list if it's pinned
// there. Called from DeleteItem's transaction before the item row
// itself is removed, though the item_relations foreign keys would
// cascade the edge removal regardless; kept explicit so the graph's
// invariant doesn't depend on cascade ordering. Relations are cleared,
// not vetoed: deleting an item that's still referenced elsewhere always
// succeeds.
func OnItemDelete(ex Execer, id int64) error {
	if _, err := ex.Exec("DELETE FROM item_relations WHERE source_id = ? OR target_id = ?", id, id); err != nil {
		return fmt.Errorf("clearing relations for item %d: %w", id, err)
	}
	if err := PruneCurrentStateRelated(ex, id); err != nil {
		return fmt.Errorf("pruning current state for item %d: %w", id, err)
	}
	return nil
}

// GraphEdge is one edge discovered during a BFS walk.
type GraphEdge struct {
	Source int64
	Target int64
}

// GraphResult is the outcome of a bounded-depth BFS from a root item.
type GraphResult struct {
	RootID     int64
	TotalNodes int
	MaxDepth   int
	Edges      []GraphEdge
}

// MapGraph performs a breadth-first walk from rootID up to maxDepth hops
// (default 2, capped at 5), returning the visited node count and the edge
// list discovered.
func MapGraph(ex Execer, rootID int64, maxDepth int) (*GraphResult, error) {
	if maxDepth <= 0 {
		maxDepth = 2
	}
	if maxDepth > 5 {
		maxDepth = 5
	}

	visited := map[int64]bool{rootID: true}
	frontier := []int64{rootID}
	var edges []GraphEdge
	edgeSeen := map[[2]int64]bool{}

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []int64
		for _, id := range frontier {
			neighbors, err := RelationsOf(ex, id)
			if err != nil {
				return nil, err
			}
			for _, n := range neighbors {
				key := [2]int64{id, n}
				if !edgeSeen[key] {
					edgeSeen[key] = true
					edges = append(edges, GraphEdge{Source: id, Target: n})
				}
				if !visited[n] {
					visited[n] = true
					next = append(next, n)
				}
			}
		}
		frontier = next
	}

	return &GraphResult{
		RootID:     rootID,
		TotalNodes: len(visited),
		MaxDepth:   maxDepth,
		Edges:      edges,
	}, nil
}
