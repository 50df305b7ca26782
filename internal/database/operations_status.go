package database

import (
	"database/sql"
	"fmt"
)

// ListStatuses returns every status, ordered by sort_order.
func ListStatuses(ex Execer) ([]Status, error) {
	rows, err := ex.Query("SELECT id, name, sort_order, is_closable FROM statuses ORDER BY sort_order")
	if err != nil {
		return nil, fmt.Errorf("listing statuses: %w", err)
	}
	defer rows.Close()

	var statuses []Status
	for rows.Next() {
		var s Status
		if err := rows.Scan(&s.ID, &s.Name, &s.SortOrder, &s.IsClosable); err != nil {
			return nil, err
		}
		statuses = append(statuses, s)
	}
	return statuses, rows.Err()
}

// GetStatusByName looks up a status case-insensitively. Returns
// sql.ErrNoRows if absent.
func GetStatusByName(ex Execer, name string) (*Status, error) {
	var s Status
	err := ex.QueryRow(
		"SELECT id, name, sort_order, is_closable FROM statuses WHERE name = ? COLLATE NOCASE",
		name,
	).Scan(&s.ID, &s.Name, &s.SortOrder, &s.IsClosable)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetStatusByID looks up a status by id.
func GetStatusByID(ex Execer, id int64) (*Status, error) {
	var s Status
	err := ex.QueryRow(
		"SELECT id, name, sort_order, is_closable FROM statuses WHERE id = ?",
		id,
	).Scan(&s.ID, &s.Name, &s.SortOrder, &s.IsClosable)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ClosableStatusIDs returns the ids of every closable status.
func ClosableStatusIDs(ex Execer) ([]int64, error) {
	rows, err := ex.Query("SELECT id FROM statuses WHERE is_closable = 1")
	if err != nil {
		return nil, fmt.Errorf("listing closable statuses: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DefaultStatusID returns the id of the "Open" seeded status.
func DefaultStatusID(ex Execer) (int64, error) {
	s, err := GetStatusByName(ex, "Open")
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, fmt.Errorf("default status %q is not seeded", "Open")
		}
		return 0, err
	}
	return s.ID, nil
}
