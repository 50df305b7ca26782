package database

import (
	"fmt"
	"strings"
)

// ItemEmbedding returns the raw quantized embedding blob for an item, or nil
// if enrichment never produced one. Returns sql.ErrNoRows if the item
// itself doesn't exist.
func ItemEmbedding(ex Execer, id int64) ([]byte, error) {
	var emb []byte
	err := ex.QueryRow("SELECT embedding FROM items WHERE id = ?", id).Scan(&emb)
	if err != nil {
		return nil, err
	}
	return emb, nil
}

// ItemEmbeddings fetches embedding blobs for a set of candidate ids,
// skipping rows with no embedding.
func ItemEmbeddings(ex Execer, ids []int64) (map[int64][]byte, error) {
	if len(ids) == 0 {
		return map[int64][]byte{}, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(
		"SELECT id, embedding FROM items WHERE id IN (%s) AND embedding IS NOT NULL",
		strings.Join(placeholders, ","),
	)
	rows, err := ex.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetching candidate embeddings: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]byte, len(ids))
	for rows.Next() {
		var id int64
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, err
		}
		out[id] = blob
	}
	return out, rows.Err()
}

// CandidatesByTagOverlap returns ids (excluding anchorID) of items that share
// at least one tag with anchorID, most-shared-tags first.
func CandidatesByTagOverlap(ex Execer, anchorID int64, limit int) ([]int64, error) {
	query := `
		SELECT it2.item_id, COUNT(*) AS shared
		FROM item_tags it1
		JOIN item_tags it2 ON it2.tag_id = it1.tag_id AND it2.item_id != it1.item_id
		WHERE it1.item_id = ?
		GROUP BY it2.item_id
		ORDER BY shared DESC
		LIMIT ?
	`
	if limit <= 0 {
		limit = 200
	}
	rows, err := ex.Query(query, anchorID, limit)
	if err != nil {
		return nil, fmt.Errorf("finding tag-overlap candidates for item %d: %w", anchorID, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		var shared int
		if err := rows.Scan(&id, &shared); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CandidatesByTopConcepts returns ids (excluding anchorID) of items sharing
// any of anchorID's topN highest-weighted concepts.
func CandidatesByTopConcepts(ex Execer, anchorID int64, topN, limit int) ([]int64, error) {
	concepts, err := ConceptsForItem(ex, anchorID)
	if err != nil {
		return nil, err
	}
	if len(concepts) > topN {
		concepts = concepts[:topN]
	}
	if len(concepts) == 0 {
		return nil, nil
	}

	names := make([]string, len(concepts))
	for i, c := range concepts {
		names[i] = c.Term
	}
	placeholders := make([]string, len(names))
	args := make([]interface{}, 0, len(names)+2)
	for i, n := range names {
		placeholders[i] = "?"
		args = append(args, n)
	}
	args = append(args, anchorID)

	query := fmt.Sprintf(`
		SELECT DISTINCT ic.item_id
		FROM item_concepts ic
		JOIN concepts c ON c.id = ic.concept_id
		WHERE c.name IN (%s) AND ic.item_id != ?
		LIMIT ?
	`, strings.Join(placeholders, ","))
	if limit <= 0 {
		limit = 200
	}
	args = append(args, limit)

	rows, err := ex.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("finding concept-overlap candidates for item %d: %w", anchorID, err)
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

// AllItemIDsWithEmbedding returns up to ceiling item ids (excluding
// excludeID) that carry a non-null embedding, for the embedding strategy's
// full-scan fallback when no tag/concept prefilter yields candidates.
func AllItemIDsWithEmbedding(ex Execer, excludeID int64, ceiling int) ([]int64, error) {
	rows, err := ex.Query(
		"SELECT id FROM items WHERE id != ? AND embedding IS NOT NULL LIMIT ?",
		excludeID, ceiling,
	)
	if err != nil {
		return nil, fmt.Errorf("scanning items with embeddings: %w", err)
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
