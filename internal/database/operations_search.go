package database

import (
	"database/sql"
	"fmt"
	"strings"
)

// FTSSearchFilters narrows a full-text query before ranking. Status
// visibility is a single two-way switch: OnlyClosedStatuses true means
// is:closed (is_closable = 1), false means the default open-only view,
// which is also what is:open asks for explicitly.
type FTSSearchFilters struct {
	Types              []string
	Statuses           []string
	Priority           string
	OnlyClosedStatuses bool
	Limit              int
	Offset             int
}

// FTSResult pairs an item id with a bm25-derived relevance in [0,1].
type FTSResult struct {
	ItemID    int64
	Relevance float64
}

// SearchFTS runs a keyword match against items_fts and applies the
// remaining structured filters as a join against items/statuses. Relevance
// is bm25, normalized into [0,1] (bm25 returns negative-is-better scores in
// SQLite; more negative means more relevant).
func SearchFTS(ex Execer, keywords []string, f FTSSearchFilters) ([]FTSResult, error) {
	if len(keywords) == 0 {
		return nil, nil
	}
	matchQuery := escapeFTS5Query(keywords)

	query := `
		SELECT i.id, bm25(items_fts) AS rank
		FROM items_fts
		JOIN items i ON i.id = items_fts.id
		JOIN statuses s ON s.id = i.status_id
		WHERE items_fts MATCH ?
	`
	args := []interface{}{matchQuery}

	if len(f.Types) > 0 {
		placeholders := make([]string, len(f.Types))
		for i, t := range f.Types {
			placeholders[i] = "?"
			args = append(args, t)
		}
		query += " AND i.type IN (" + strings.Join(placeholders, ",") + ")"
	}
	if len(f.Statuses) > 0 {
		placeholders := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			placeholders[i] = "?"
			args = append(args, s)
		}
		query += " AND s.name IN (" + strings.Join(placeholders, ",") + ") COLLATE NOCASE"
	}
	if f.Priority != "" {
		query += " AND i.priority = ?"
		args = append(args, f.Priority)
	}
	if f.OnlyClosedStatuses {
		query += " AND s.is_closable = 1"
	} else {
		query += " AND s.is_closable = 0"
	}

	query += " ORDER BY rank"

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	query += " LIMIT ?"
	args = append(args, limit)
	if f.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, f.Offset)
	}

	rows, err := ex.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("running FTS search: %w", err)
	}
	defer rows.Close()

	var results []FTSResult
	for rows.Next() {
		var id int64
		var rank float64
		if err := rows.Scan(&id, &rank); err != nil {
			return nil, err
		}
		// bm25 is unbounded and more negative is more relevant; fold into
		// [0,1) so that a more negative rank gives a higher relevance.
		relevance := -rank / (1.0 - rank)
		if relevance > 1.0 {
			relevance = 1.0
		}
		if relevance < 0.0 {
			relevance = 0.0
		}
		results = append(results, FTSResult{ItemID: id, Relevance: relevance})
	}
	return results, rows.Err()
}

// escapeFTS5Query builds a safe AND-combined MATCH expression from
// tokenized keywords.
func escapeFTS5Query(keywords []string) string {
	parts := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		escaped := strings.ReplaceAll(kw, `"`, `""`)
		parts = append(parts, `"`+escaped+`"`)
	}
	return strings.Join(parts, " AND ")
}

// SuggestTitles returns up to limit item titles whose title begins with
// prefix (case-insensitive), optionally restricted by type.
func SuggestTitles(ex Execer, prefix string, types []string, limit int) ([]ItemSummary, error) {
	query := `
		SELECT i.id, i.type, i.title, i.description, s.name, i.priority, i.updated_at
		FROM items i
		JOIN statuses s ON s.id = i.status_id
		WHERE i.title LIKE ? ESCAPE '\'
	`
	escaped := strings.NewReplacer("\\", "\\\\", "%", "\\%", "_", "\\_").Replace(prefix)
	args := []interface{}{escaped + "%"}

	if len(types) > 0 {
		placeholders := make([]string, len(types))
		for i, t := range types {
			placeholders[i] = "?"
			args = append(args, t)
		}
		query += " AND i.type IN (" + strings.Join(placeholders, ",") + ")"
	}

	query += " ORDER BY i.title COLLATE NOCASE LIMIT ?"
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit)

	rows, err := ex.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("suggesting titles: %w", err)
	}
	defer rows.Close()

	var results []ItemSummary
	for rows.Next() {
		var s ItemSummary
		var description sql.NullString
		if err := rows.Scan(&s.ID, &s.Type, &s.Title, &description, &s.StatusName, &s.Priority, &s.UpdatedAt); err != nil {
			return nil, err
		}
		s.Description = description.String
		results = append(results, s)
	}
	return results, rows.Err()
}

// LegacySubstringSearch is the fallback path when the structured query
// parser finds no recognized tokens: a plain substring match over
// title/description/content.
func LegacySubstringSearch(ex Execer, substr string, f FTSSearchFilters) ([]int64, error) {
	query := `
		SELECT i.id FROM items i
		JOIN statuses s ON s.id = i.status_id
		WHERE (i.title LIKE ? OR i.description LIKE ? OR i.content LIKE ?)
	`
	like := "%" + substr + "%"
	args := []interface{}{like, like, like}

	if len(f.Types) > 0 {
		placeholders := make([]string, len(f.Types))
		for i, t := range f.Types {
			placeholders[i] = "?"
			args = append(args, t)
		}
		query += " AND i.type IN (" + strings.Join(placeholders, ",") + ")"
	}
	if f.OnlyClosedStatuses {
		query += " AND s.is_closable = 1"
	} else {
		query += " AND s.is_closable = 0"
	}
	query += " ORDER BY i.updated_at DESC"

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	query += " LIMIT ?"
	args = append(args, limit)

	rows, err := ex.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("running legacy substring search: %w", err)
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
