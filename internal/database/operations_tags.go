package database

import (
	"database/sql"
	"fmt"
	"strings"
)

// ResolveOrCreateTags lowercases and trims each name, inserts any missing
// tag rows, and returns ids in the same order as the input names. Names that
// are equal after normalization yield one id, at their first position.
func ResolveOrCreateTags(ex Execer, names []string) ([]int64, error) {
	ids := make([]int64, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		id, err := resolveOrCreateTag(ex, name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func resolveOrCreateTag(ex Execer, name string) (int64, error) {
	var id int64
	err := ex.QueryRow("SELECT id FROM tags WHERE name = ?", name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("looking up tag %q: %w", name, err)
	}

	res, err := ex.Exec("INSERT INTO tags (name) VALUES (?)", name)
	if err != nil {
		return 0, fmt.Errorf("creating tag %q: %w", name, err)
	}
	return res.LastInsertId()
}

// SetItemTags replaces the full set of tags attached to an item.
func SetItemTags(ex Execer, itemID int64, tagIDs []int64) error {
	if _, err := ex.Exec("DELETE FROM item_tags WHERE item_id = ?", itemID); err != nil {
		return fmt.Errorf("clearing tags for item %d: %w", itemID, err)
	}
	for _, tagID := range tagIDs {
		if _, err := ex.Exec(
			"INSERT OR IGNORE INTO item_tags (item_id, tag_id) VALUES (?, ?)",
			itemID, tagID,
		); err != nil {
			return fmt.Errorf("attaching tag %d to item %d: %w", tagID, itemID, err)
		}
	}
	return nil
}

// TagsForItem returns the tag names attached to an item, alphabetically.
func TagsForItem(ex Execer, itemID int64) ([]string, error) {
	rows, err := ex.Query(`
		SELECT t.name FROM tags t
		JOIN item_tags it ON it.tag_id = t.id
		WHERE it.item_id = ?
		ORDER BY t.name
	`, itemID)
	if err != nil {
		return nil, fmt.Errorf("listing tags for item %d: %w", itemID, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ListTags returns every tag.
func ListTags(ex Execer) ([]Tag, error) {
	rows, err := ex.Query("SELECT id, name FROM tags ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// SearchTagsByPattern returns tags whose name contains substr, case
// insensitively.
func SearchTagsByPattern(ex Execer, substr string) ([]Tag, error) {
	rows, err := ex.Query(
		"SELECT id, name FROM tags WHERE name LIKE ? ORDER BY name",
		"%"+strings.ToLower(substr)+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("searching tags: %w", err)
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// TagInUseCount returns the number of items carrying this tag.
func TagInUseCount(ex Execer, tagID int64) (int, error) {
	var count int
	err := ex.QueryRow("SELECT COUNT(*) FROM item_tags WHERE tag_id = ?", tagID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting tag usage: %w", err)
	}
	return count, nil
}

// GetTagByName looks up a tag by its normalized name.
func GetTagByName(ex Execer, name string) (*Tag, error) {
	var t Tag
	err := ex.QueryRow("SELECT id, name FROM tags WHERE name = ?", strings.ToLower(strings.TrimSpace(name))).Scan(&t.ID, &t.Name)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// DeleteTag removes a tag row. Fails if still in use; callers should check
// TagInUseCount first to surface a typed InUse error.
func DeleteTag(ex Execer, tagID int64) error {
	_, err := ex.Exec("DELETE FROM tags WHERE id = ?", tagID)
	return err
}
