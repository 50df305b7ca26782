package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// GetCurrentState returns the singleton row, materializing a default empty
// one on first call.
func GetCurrentState(ex Execer, now int64) (*CurrentState, error) {
	var content, tagsJSON, relatedJSON, updatedBy string
	var updatedAt int64

	err := ex.QueryRow(
		"SELECT content, tags, related, updated_at, updated_by FROM current_state WHERE id = 1",
	).Scan(&content, &tagsJSON, &relatedJSON, &updatedAt, &updatedBy)

	if err == sql.ErrNoRows {
		if _, err := ex.Exec(
			"INSERT INTO current_state (id, content, tags, related, updated_at, updated_by) VALUES (1, '', '[]', '[]', ?, '')",
			now,
		); err != nil {
			return nil, fmt.Errorf("materializing default current state: %w", err)
		}
		return &CurrentState{UpdatedAt: now}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading current state: %w", err)
	}

	state := &CurrentState{Content: content, UpdatedAt: updatedAt, UpdatedBy: updatedBy}
	if err := json.Unmarshal([]byte(tagsJSON), &state.Tags); err != nil {
		return nil, fmt.Errorf("decoding current state tags: %w", err)
	}
	if err := json.Unmarshal([]byte(relatedJSON), &state.Related); err != nil {
		return nil, fmt.Errorf("decoding current state related ids: %w", err)
	}
	return state, nil
}

// PruneCurrentStateRelated removes id from the current_state singleton's
// related list, if present, leaving content/tags/updated_at/updated_by
// untouched. No-op if the singleton row doesn't exist yet or doesn't
// reference id.
func PruneCurrentStateRelated(ex Execer, id int64) error {
	var relatedJSON string
	err := ex.QueryRow("SELECT related FROM current_state WHERE id = 1").Scan(&relatedJSON)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading current state related ids: %w", err)
	}

	var related []int64
	if err := json.Unmarshal([]byte(relatedJSON), &related); err != nil {
		return fmt.Errorf("decoding current state related ids: %w", err)
	}

	found := false
	pruned := related[:0]
	for _, r := range related {
		if r == id {
			found = true
			continue
		}
		pruned = append(pruned, r)
	}
	if !found {
		return nil
	}
	if pruned == nil {
		pruned = []int64{}
	}
	newJSON, err := json.Marshal(pruned)
	if err != nil {
		return fmt.Errorf("encoding current state related ids: %w", err)
	}
	if _, err := ex.Exec("UPDATE current_state SET related = ? WHERE id = 1", string(newJSON)); err != nil {
		return fmt.Errorf("pruning current state related ids: %w", err)
	}
	return nil
}

// UpdateCurrentState overwrites the singleton row. content/tags/related are
// always replaced wholesale; no history is kept.
func UpdateCurrentState(ex Execer, content string, tags []string, related []int64, updatedBy string, now int64) error {
	if tags == nil {
		tags = []string{}
	}
	if related == nil {
		related = []int64{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("encoding current state tags: %w", err)
	}
	relatedJSON, err := json.Marshal(related)
	if err != nil {
		return fmt.Errorf("encoding current state related ids: %w", err)
	}

	_, err = ex.Exec(`
		INSERT INTO current_state (id, content, tags, related, updated_at, updated_by)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			tags = excluded.tags,
			related = excluded.related,
			updated_at = excluded.updated_at,
			updated_by = excluded.updated_by
	`, content, string(tagsJSON), string(relatedJSON), now, updatedBy)
	if err != nil {
		return fmt.Errorf("updating current state: %w", err)
	}
	return nil
}
