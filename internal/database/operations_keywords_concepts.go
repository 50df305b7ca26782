package database

import (
	"database/sql"
	"fmt"
)

// ReplaceItemKeywords clears and rewrites the weighted keyword rows for an
// item, get-or-creating keyword rows as needed.
func ReplaceItemKeywords(ex Execer, itemID int64, terms []WeightedTerm) error {
	if _, err := ex.Exec("DELETE FROM item_keywords WHERE item_id = ?", itemID); err != nil {
		return fmt.Errorf("clearing keywords for item %d: %w", itemID, err)
	}
	for _, term := range terms {
		keywordID, err := resolveOrCreateNamed(ex, "keywords", "word", term.Term)
		if err != nil {
			return err
		}
		if _, err := ex.Exec(
			"INSERT INTO item_keywords (item_id, keyword_id, weight) VALUES (?, ?, ?)",
			itemID, keywordID, term.Weight,
		); err != nil {
			return fmt.Errorf("attaching keyword %q to item %d: %w", term.Term, itemID, err)
		}
	}
	return nil
}

// KeywordsForItem returns the weighted keywords of an item, highest weight
// first.
func KeywordsForItem(ex Execer, itemID int64) ([]WeightedTerm, error) {
	return weightedTermsFor(ex, itemID, "keywords", "item_keywords", "keyword_id", "word")
}

// ReplaceItemConcepts clears and rewrites the weighted concept rows for an
// item.
func ReplaceItemConcepts(ex Execer, itemID int64, terms []WeightedTerm) error {
	if _, err := ex.Exec("DELETE FROM item_concepts WHERE item_id = ?", itemID); err != nil {
		return fmt.Errorf("clearing concepts for item %d: %w", itemID, err)
	}
	for _, term := range terms {
		conceptID, err := resolveOrCreateNamed(ex, "concepts", "name", term.Term)
		if err != nil {
			return err
		}
		if _, err := ex.Exec(
			"INSERT INTO item_concepts (item_id, concept_id, weight) VALUES (?, ?, ?)",
			itemID, conceptID, term.Weight,
		); err != nil {
			return fmt.Errorf("attaching concept %q to item %d: %w", term.Term, itemID, err)
		}
	}
	return nil
}

// ConceptsForItem returns the weighted concepts of an item, highest weight
// first.
func ConceptsForItem(ex Execer, itemID int64) ([]WeightedTerm, error) {
	return weightedTermsFor(ex, itemID, "concepts", "item_concepts", "concept_id", "name")
}

func weightedTermsFor(ex Execer, itemID int64, lookupTable, joinTable, fkColumn, nameColumn string) ([]WeightedTerm, error) {
	query := fmt.Sprintf(`
		SELECT l.%s, j.weight
		FROM %s l
		JOIN %s j ON j.%s = l.id
		WHERE j.item_id = ?
		ORDER BY j.weight DESC
	`, nameColumn, lookupTable, joinTable, fkColumn)

	rows, err := ex.Query(query, itemID)
	if err != nil {
		return nil, fmt.Errorf("listing %s for item %d: %w", lookupTable, itemID, err)
	}
	defer rows.Close()

	var terms []WeightedTerm
	for rows.Next() {
		var t WeightedTerm
		if err := rows.Scan(&t.Term, &t.Weight); err != nil {
			return nil, err
		}
		terms = append(terms, t)
	}
	return terms, rows.Err()
}

func resolveOrCreateNamed(ex Execer, table, column, value string) (int64, error) {
	query := fmt.Sprintf("SELECT id FROM %s WHERE %s = ?", table, column)
	var id int64
	err := ex.QueryRow(query, value).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("looking up %s %q: %w", table, value, err)
	}

	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (?)", table, column)
	res, err := ex.Exec(insert, value)
	if err != nil {
		return 0, fmt.Errorf("creating %s %q: %w", table, value, err)
	}
	return res.LastInsertId()
}

// ItemsSharingKeywords returns candidate item ids that share at least one
// keyword with anchorID, with the sum of shared weights, excluding the
// anchor itself. Used by the "keywords" get_related_items strategy.
func ItemsSharingKeywords(ex Execer, anchorID int64, limit int) ([]ScoredItem, error) {
	return scoredNeighbors(ex, anchorID, "item_keywords", "keyword_id", limit)
}

// ItemsSharingConcepts returns candidate item ids that share at least one
// concept with anchorID, with the sum of shared weights, excluding the
// anchor itself. Used by the "concepts" get_related_items strategy.
func ItemsSharingConcepts(ex Execer, anchorID int64, limit int) ([]ScoredItem, error) {
	return scoredNeighbors(ex, anchorID, "item_concepts", "concept_id", limit)
}

// ScoredItem pairs an item id with a relevance score in an unspecified but
// consistent scale (callers normalize as needed).
type ScoredItem struct {
	ItemID int64
	Score  float64
}

func scoredNeighbors(ex Execer, anchorID int64, joinTable, fkColumn string, limit int) ([]ScoredItem, error) {
	query := fmt.Sprintf(`
		SELECT b.item_id, SUM(MIN(a.weight, b.weight)) AS score
		FROM %s a
		JOIN %s b ON b.%s = a.%s AND b.item_id != a.item_id
		WHERE a.item_id = ?
		GROUP BY b.item_id
		ORDER BY score DESC
		LIMIT ?
	`, joinTable, joinTable, fkColumn, fkColumn)

	rows, err := ex.Query(query, anchorID, limit)
	if err != nil {
		return nil, fmt.Errorf("scoring neighbors of item %d: %w", anchorID, err)
	}
	defer rows.Close()

	var results []ScoredItem
	for rows.Next() {
		var s ScoredItem
		if err := rows.Scan(&s.ItemID, &s.Score); err != nil {
			return nil, err
		}
		results = append(results, s)
	}
	return results, rows.Err()
}
