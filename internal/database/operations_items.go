package database

import (
	"database/sql"
	"fmt"
	"strings"
)

// Execer is satisfied by both *sql.DB and *sql.Tx, letting every operation
// function run either standalone or as part of the engine's per-operation
// transaction.
type Execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// CreateItem inserts a new item row and returns its allocated id.
func CreateItem(ex Execer, item *Item) (int64, error) {
	res, err := ex.Exec(`
		INSERT INTO items (
			type, title, description, content, ai_summary, status_id, priority,
			category, start_date, end_date, version, search_index, embedding,
			enricher_version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		item.Type, item.Title, nullString(item.Description), nullString(item.Content),
		nullString(item.AISummary), item.StatusID, item.Priority, nullString(item.Category),
		nullString(item.StartDate), nullString(item.EndDate), nullString(item.Version),
		nullString(item.SearchIndex), item.Embedding, nullString(item.EnricherVersion),
		item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading inserted item id: %w", err)
	}
	return id, nil
}

// GetItem fetches a single item row by id. Returns sql.ErrNoRows if absent.
func GetItem(ex Execer, id int64) (*Item, error) {
	row := ex.QueryRow(`
		SELECT id, type, title, description, content, ai_summary, status_id, priority,
			category, start_date, end_date, version, search_index, embedding,
			enricher_version, created_at, updated_at
		FROM items WHERE id = ?
	`, id)
	return scanItem(row)
}

func scanItem(row *sql.Row) (*Item, error) {
	var item Item
	var description, content, aiSummary, category, startDate, endDate, version, searchIndex, enricherVersion sql.NullString
	var embedding []byte

	err := row.Scan(
		&item.ID, &item.Type, &item.Title, &description, &content, &aiSummary,
		&item.StatusID, &item.Priority, &category, &startDate, &endDate, &version,
		&searchIndex, &embedding, &enricherVersion, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.Description = description.String
	item.Content = content.String
	item.AISummary = aiSummary.String
	item.Category = category.String
	item.StartDate = startDate.String
	item.EndDate = endDate.String
	item.Version = version.String
	item.SearchIndex = searchIndex.String
	item.EnricherVersion = enricherVersion.String
	item.Embedding = embedding

	return &item, nil
}

// ItemUpdate carries a partial field mask for UpdateItem. Nil fields are
// left untouched.
type ItemUpdate struct {
	Type            *string
	Title           *string
	Description     *string
	Content         *string
	AISummary       *string
	StatusID        *int64
	Priority        *string
	Category        *string
	StartDate       *string
	EndDate         *string
	Version         *string
	SearchIndex     *string
	Embedding       []byte
	EmbeddingSet    bool
	EnricherVersion *string
	UpdatedAt       int64
}

// UpdateItem applies a partial update built from ItemUpdate's non-nil
// fields.
func UpdateItem(ex Execer, id int64, u *ItemUpdate) error {
	sets := []string{}
	args := []interface{}{}

	add := func(col string, val interface{}) {
		sets = append(sets, col+" = ?")
		args = append(args, val)
	}

	if u.Type != nil {
		add("type", *u.Type)
	}
	if u.Title != nil {
		add("title", *u.Title)
	}
	if u.Description != nil {
		add("description", *u.Description)
	}
	if u.Content != nil {
		add("content", *u.Content)
	}
	if u.AISummary != nil {
		add("ai_summary", *u.AISummary)
	}
	if u.StatusID != nil {
		add("status_id", *u.StatusID)
	}
	if u.Priority != nil {
		add("priority", *u.Priority)
	}
	if u.Category != nil {
		add("category", *u.Category)
	}
	if u.StartDate != nil {
		add("start_date", *u.StartDate)
	}
	if u.EndDate != nil {
		add("end_date", *u.EndDate)
	}
	if u.Version != nil {
		add("version", *u.Version)
	}
	if u.SearchIndex != nil {
		add("search_index", *u.SearchIndex)
	}
	if u.EmbeddingSet {
		add("embedding", u.Embedding)
	}
	if u.EnricherVersion != nil {
		add("enricher_version", *u.EnricherVersion)
	}

	add("updated_at", u.UpdatedAt)

	if len(sets) == 0 {
		return nil
	}

	query := fmt.Sprintf("UPDATE items SET %s WHERE id = ?", strings.Join(sets, ", "))
	args = append(args, id)

	if _, err := ex.Exec(query, args...); err != nil {
		return fmt.Errorf("updating item %d: %w", id, err)
	}
	return nil
}

// DeleteItem removes the item row. Side tables (item_tags, item_keywords,
// item_concepts, item_relations) cascade via foreign keys.
func DeleteItem(ex Execer, id int64) error {
	res, err := ex.Exec("DELETE FROM items WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting item %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListItems returns the lightweight projection used by list_items, filtered
// and ordered by updated_at DESC.
func ListItems(ex Execer, f ItemFilters) ([]ItemSummary, error) {
	query := `
		SELECT i.id, i.type, i.title, i.description, s.name, i.priority, i.updated_at
		FROM items i
		JOIN statuses s ON s.id = i.status_id
		WHERE 1=1
	`
	args := []interface{}{}

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
	if !f.IncludeClosedStatuses {
		query += " AND s.is_closable = 0"
	}
	if f.StartDate != "" {
		query += " AND (i.start_date IS NULL OR i.start_date >= ?)"
		args = append(args, f.StartDate)
	}
	if f.EndDate != "" {
		query += " AND (i.end_date IS NULL OR i.end_date <= ?)"
		args = append(args, f.EndDate)
	}
	for _, tag := range f.Tags {
		query += ` AND EXISTS (
			SELECT 1 FROM item_tags it JOIN tags t ON t.id = it.tag_id
			WHERE it.item_id = i.id AND t.name = ?
		)`
		args = append(args, tag)
	}

	query += " ORDER BY i.updated_at DESC"

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
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var results []ItemSummary
	for rows.Next() {
		var s ItemSummary
		var description sql.NullString
		if err := rows.Scan(&s.ID, &s.Type, &s.Title, &description, &s.StatusName, &s.Priority, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning item summary: %w", err)
		}
		s.Description = description.String
		tags, err := TagsForItem(ex, s.ID)
		if err != nil {
			return nil, err
		}
		s.Tags = tags
		results = append(results, s)
	}
	return results, rows.Err()
}

// ItemSummariesByIDs fetches the lightweight projection for a set of item
// ids, keyed by id. Ids with no matching row are simply absent from the
// result; callers preserve whatever ordering (e.g. relevance rank) they
// already have.
func ItemSummariesByIDs(ex Execer, ids []int64) (map[int64]ItemSummary, error) {
	out := make(map[int64]ItemSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := `
		SELECT i.id, i.type, i.title, i.description, s.name, i.priority, i.updated_at
		FROM items i
		JOIN statuses s ON s.id = i.status_id
		WHERE i.id IN (` + strings.Join(placeholders, ",") + `)
	`
	rows, err := ex.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetching item summaries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s ItemSummary
		var description sql.NullString
		if err := rows.Scan(&s.ID, &s.Type, &s.Title, &description, &s.StatusName, &s.Priority, &s.UpdatedAt); err != nil {
			return nil, err
		}
		s.Description = description.String
		tags, err := TagsForItem(ex, s.ID)
		if err != nil {
			return nil, err
		}
		s.Tags = tags
		out[s.ID] = s
	}
	return out, rows.Err()
}

// IDsWithStaleEnricherVersion returns every item id whose enricher_version
// doesn't match current, for the reindex CLI subcommand.
func IDsWithStaleEnricherVersion(ex Execer, current string) ([]int64, error) {
	rows, err := ex.Query(`
		SELECT id FROM items
		WHERE enricher_version IS NULL OR enricher_version != ?
		ORDER BY id
	`, current)
	if err != nil {
		return nil, fmt.Errorf("listing stale-enrichment items: %w", err)
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

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
