package database

import (
	"database/sql"
	"fmt"
)

// GetStats aggregates per-type and per-status item counts plus total tag
// count and the most recent updatedAt across all items, for get_stats.
func GetStats(ex Execer) (*Stats, error) {
	stats := &Stats{
		ItemsByType:   make(map[string]int),
		ItemsByStatus: make(map[string]int),
	}

	typeRows, err := ex.Query("SELECT type, COUNT(*) FROM items GROUP BY type")
	if err != nil {
		return nil, fmt.Errorf("counting items by type: %w", err)
	}
	defer typeRows.Close()
	for typeRows.Next() {
		var t string
		var count int
		if err := typeRows.Scan(&t, &count); err != nil {
			return nil, err
		}
		stats.ItemsByType[t] = count
	}
	if err := typeRows.Err(); err != nil {
		return nil, err
	}

	statusRows, err := ex.Query(`
		SELECT s.name, COUNT(*) FROM items i
		JOIN statuses s ON s.id = i.status_id
		GROUP BY s.name
	`)
	if err != nil {
		return nil, fmt.Errorf("counting items by status: %w", err)
	}
	defer statusRows.Close()
	for statusRows.Next() {
		var name string
		var count int
		if err := statusRows.Scan(&name, &count); err != nil {
			return nil, err
		}
		stats.ItemsByStatus[name] = count
	}
	if err := statusRows.Err(); err != nil {
		return nil, err
	}

	if err := ex.QueryRow("SELECT COUNT(*) FROM tags").Scan(&stats.TotalTags); err != nil {
		return nil, fmt.Errorf("counting tags: %w", err)
	}

	var lastUpdated sql.NullInt64
	if err := ex.QueryRow("SELECT MAX(updated_at) FROM items").Scan(&lastUpdated); err != nil {
		return nil, fmt.Errorf("reading last update time: %w", err)
	}
	if lastUpdated.Valid {
		stats.LastUpdatedAt = lastUpdated.Int64
	}

	return stats, nil
}
