package engine

import (
	"github.com/shirokuma-kb/shirokuma/internal/database"
	"github.com/shirokuma-kb/shirokuma/internal/relgraph"
)

// addRelationsTx validates and inserts mirrored edges from id to each of
// targetIDs directly against tx. Used by CreateItem/UpdateItem, which
// already hold the engine's own transaction — relgraph.Service's
// AddRelations opens its own tx and would deadlock against the database's
// single connection if called here.
func (e *Engine) addRelationsTx(tx database.Execer, id int64, targetIDs []int64, now int64) *Error {
	for _, target := range targetIDs {
		if target == id {
			return invalidRelation("self-edge not allowed")
		}
		if _, err := database.GetItem(tx, target); err != nil {
			return invalidRelation("target item does not exist")
		}
		if err := database.AddRelationPair(tx, id, target, now); err != nil {
			return internalError("add_relations", err)
		}
	}
	return nil
}

// replaceRelationsTx diffs id's current relation set against want and
// applies the minimal adds/removes, directly against tx.
func (e *Engine) replaceRelationsTx(tx database.Execer, id int64, want []int64, now int64) *Error {
	for _, target := range want {
		if target == id {
			return invalidRelation("self-edge not allowed")
		}
		if _, err := database.GetItem(tx, target); err != nil {
			return invalidRelation("target item does not exist")
		}
	}
	if err := database.ReplaceRelations(tx, id, want, now); err != nil {
		return internalError("update_item", err)
	}
	return nil
}

// AddRelations is the standalone add_relations operation: a mirrored
// edge between id and each of targetIDs, in its own transaction via
// relgraph.Service.
func (e *Engine) AddRelations(id int64, targetIDs []int64) (*database.ItemView, error) {
	if err := e.relations.AddRelations(id, targetIDs, nowMillis()); err != nil {
		return nil, translate("add_relations", "item", err)
	}
	log.Info("added relations", "id", id, "targets", targetIDs)
	return e.GetItem(id)
}

// RemoveRelations is the standalone remove_relations operation.
func (e *Engine) RemoveRelations(id int64, targetIDs []int64) (*database.ItemView, error) {
	if err := e.relations.RemoveRelations(id, targetIDs); err != nil {
		return nil, translate("remove_relations", "item", err)
	}
	log.Info("removed relations", "id", id, "targets", targetIDs)
	return e.GetItem(id)
}

// MapGraph walks the relation graph from rootID up to depth hops.
func (e *Engine) MapGraph(rootID int64, depth int) (*database.GraphResult, error) {
	result, err := e.relations.MapGraph(relgraph.MapGraphOptions{RootID: rootID, Depth: depth})
	if err != nil {
		return nil, translate("map_graph", "item", err)
	}
	return result, nil
}

// ChangeItemType reassigns an item's type, provided the new type shares
// the current type's base type. Existing field values are re-validated
// against the new type's schema; any field no
// longer permitted is dropped only if strip is true, otherwise the call
// fails with ValidationError. Relations are untouched. The enricher
// re-runs against the item's unchanged title/content/tags: since none of
// those changed, this mainly refreshes enricher_version so the row
// doesn't show up as stale on the next reindex.
func (e *Engine) ChangeItemType(id int64, newType string, strip bool) (*database.ItemView, error) {
	existing, err := database.GetItem(e.db, id)
	if err != nil {
		return nil, translate("change_item_type", "item", err)
	}
	oldSchema, err := e.types.FieldsFor(existing.Type)
	if err != nil {
		return nil, translate("change_item_type", "type", err)
	}
	newSchema, err := e.types.FieldsFor(newType)
	if err != nil {
		return nil, translate("change_item_type", "type", err)
	}
	if oldSchema.BaseType != newSchema.BaseType {
		return nil, invalidRelation("change_item_type: base type mismatch between " + existing.Type + " and " + newType)
	}

	update := &database.ItemUpdate{Type: &newType, UpdatedAt: nowMillis()}
	var droppedFields []FieldError
	if existing.StartDate != "" && !newSchema.Allows("startDate") {
		droppedFields = append(droppedFields, FieldError{Field: "startDate", Reason: "not permitted on type " + newType})
	}
	if existing.EndDate != "" && !newSchema.Allows("endDate") {
		droppedFields = append(droppedFields, FieldError{Field: "endDate", Reason: "not permitted on type " + newType})
	}
	if len(droppedFields) > 0 {
		if !strip {
			return nil, validationError(droppedFields...)
		}
		empty := ""
		update.StartDate = &empty
		update.EndDate = &empty
	}

	tx, err := e.db.Begin()
	if err != nil {
		return nil, internalError("change_item_type", err)
	}
	defer tx.Rollback()

	tags, err := database.TagsForItem(tx, id)
	if err != nil {
		return nil, internalError("change_item_type", err)
	}
	result, enrichErr := e.runEnricher(existing.Title, existing.Content, tags)
	if enrichErr != nil {
		return nil, enrichErr
	}
	version := e.enricher.Version()
	update.AISummary = &result.AISummary
	update.SearchIndex = &result.SearchIndex
	update.Embedding = result.Embedding
	update.EmbeddingSet = true
	update.EnricherVersion = &version

	if err := database.UpdateItem(tx, id, update); err != nil {
		return nil, internalError("change_item_type", err)
	}
	if err := database.ReplaceItemKeywords(tx, id, toWeightedTerms(result.Keywords)); err != nil {
		return nil, internalError("change_item_type", err)
	}
	if err := database.ReplaceItemConcepts(tx, id, toWeightedTerms(result.Concepts)); err != nil {
		return nil, internalError("change_item_type", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, internalError("change_item_type", err)
	}

	log.Info("changed item type", "id", id, "from", existing.Type, "to", newType)
	return e.GetItem(id)
}
