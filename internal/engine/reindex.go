package engine

import "github.com/shirokuma-kb/shirokuma/internal/database"

// Reindex re-runs the enricher over every item whose enricher_version
// doesn't match the current one, per the cmd/shirokuma reindex subcommand
// (SPEC_FULL.md §9 — a version bump does not trigger this automatically).
// Each item is re-enriched and committed independently so one Busy/timeout
// doesn't abort the whole run; the caller gets back the count actually
// updated. Per-item failures are skipped rather than propagated, since a
// partial reindex is always safe to re-run.
func (e *Engine) Reindex() (int, error) {
	ids, err := database.IDsWithStaleEnricherVersion(e.db, e.enricher.Version())
	if err != nil {
		return 0, internalError("reindex", err)
	}

	updated := 0
	for _, id := range ids {
		item, err := database.GetItem(e.db, id)
		if err != nil {
			continue
		}
		tags, err := database.TagsForItem(e.db, id)
		if err != nil {
			continue
		}

		result, enrichErr := e.runEnricher(item.Title, item.Content, tags)
		if enrichErr != nil {
			continue
		}

		tx, txErr := e.db.Begin()
		if txErr != nil {
			continue
		}
		version := e.enricher.Version()
		updateErr := database.UpdateItem(tx, id, &database.ItemUpdate{
			AISummary:       &result.AISummary,
			SearchIndex:     &result.SearchIndex,
			Embedding:       result.Embedding,
			EmbeddingSet:    true,
			EnricherVersion: &version,
			UpdatedAt:       nowMillis(),
		})
		if updateErr == nil {
			updateErr = database.ReplaceItemKeywords(tx, id, toWeightedTerms(result.Keywords))
		}
		if updateErr == nil {
			updateErr = database.ReplaceItemConcepts(tx, id, toWeightedTerms(result.Concepts))
		}
		if updateErr != nil {
			tx.Rollback()
			continue
		}
		if commitErr := tx.Commit(); commitErr != nil {
			continue
		}
		updated++
	}

	log.Info("reindex complete", "updated", updated, "candidates", len(ids))
	return updated, nil
}
