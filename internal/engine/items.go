package engine

import (
	"database/sql"
	"fmt"

	"github.com/shirokuma-kb/shirokuma/internal/database"
)

// CreateItemParams is the create_item parameter set.
type CreateItemParams struct {
	Type        string
	Title       string
	Description string
	Content     string
	Priority    string
	Status      string
	Category    string
	StartDate   string
	EndDate     string
	Version     string
	Tags        []string
	Related     []int64
}

// CreateItem validates params against the type's field schema, resolves
// status and tags, then allocates an id, runs the enricher synchronously,
// and registers any requested outbound relations inside one transaction.
// Missing tag rows are created before that transaction opens.
func (e *Engine) CreateItem(params CreateItemParams) (*database.ItemView, error) {
	schema, err := e.types.FieldsFor(params.Type)
	if err != nil {
		return nil, translate("create_item", "type", err)
	}

	var fieldErrs []FieldError
	if fe := validateTitle(params.Title); fe != nil {
		fieldErrs = append(fieldErrs, *fe)
	}
	if fe := fieldPermitted(schema, "startDate", params.StartDate, params.Type); fe != nil {
		fieldErrs = append(fieldErrs, *fe)
	} else if fe := validateDateFormat("startDate", params.StartDate); fe != nil {
		fieldErrs = append(fieldErrs, *fe)
	}
	if fe := fieldPermitted(schema, "endDate", params.EndDate, params.Type); fe != nil {
		fieldErrs = append(fieldErrs, *fe)
	} else if fe := validateDateFormat("endDate", params.EndDate); fe != nil {
		fieldErrs = append(fieldErrs, *fe)
	}
	if fe := validateDateOrder(params.StartDate, params.EndDate); fe != nil {
		fieldErrs = append(fieldErrs, *fe)
	}

	priority := params.Priority
	if priority == "" {
		priority = "MEDIUM"
	}
	if fe := validatePriority(priority); fe != nil {
		fieldErrs = append(fieldErrs, *fe)
	}
	if len(fieldErrs) > 0 {
		return nil, validationError(fieldErrs...)
	}

	statusID, statusErr := e.resolveStatus(params.Status)
	if statusErr != nil {
		return nil, statusErr
	}

	tagIDs, err := e.tags.ResolveOrCreate(params.Tags)
	if err != nil {
		return nil, translate("create_item", "tag", err)
	}

	now := nowMillis()
	tx, err := e.db.Begin()
	if err != nil {
		return nil, internalError("create_item", err)
	}
	defer tx.Rollback()

	item := &database.Item{
		Type:        params.Type,
		Title:       params.Title,
		Description: params.Description,
		Content:     params.Content,
		StatusID:    statusID,
		Priority:    priority,
		Category:    params.Category,
		StartDate:   params.StartDate,
		EndDate:     params.EndDate,
		Version:     params.Version,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	id, err := database.CreateItem(tx, item)
	if err != nil {
		return nil, internalError("create_item", err)
	}
	item.ID = id

	if err := database.SetItemTags(tx, id, tagIDs); err != nil {
		return nil, internalError("create_item", err)
	}

	result, enrichErr := e.runEnricher(item.Title, item.Content, params.Tags)
	if enrichErr != nil {
		return nil, enrichErr
	}
	version := e.enricher.Version()
	if err := database.UpdateItem(tx, id, &database.ItemUpdate{
		AISummary:       &result.AISummary,
		SearchIndex:     &result.SearchIndex,
		Embedding:       result.Embedding,
		EmbeddingSet:    true,
		EnricherVersion: &version,
		UpdatedAt:       now,
	}); err != nil {
		return nil, internalError("create_item", err)
	}
	if err := database.ReplaceItemKeywords(tx, id, toWeightedTerms(result.Keywords)); err != nil {
		return nil, internalError("create_item", err)
	}
	if err := database.ReplaceItemConcepts(tx, id, toWeightedTerms(result.Concepts)); err != nil {
		return nil, internalError("create_item", err)
	}

	if relErr := e.addRelationsTx(tx, id, params.Related, now); relErr != nil {
		return nil, relErr
	}

	if err := tx.Commit(); err != nil {
		return nil, internalError("create_item", err)
	}

	log.Info("created item", "id", id, "type", params.Type)
	return e.GetItem(id)
}

// GetItem returns the full read projection for id.
func (e *Engine) GetItem(id int64) (*database.ItemView, error) {
	item, err := database.GetItem(e.db, id)
	if err != nil {
		return nil, translate("get_item", "item", err)
	}
	view, err := buildItemView(e.db, item)
	if err != nil {
		return nil, internalError("get_item", err)
	}
	return view, nil
}

// UpdateItemParams is the update_item partial field mask. Nil fields are
// left untouched; TagsSet/RelatedSet distinguish "clear the list" from
// "field omitted", mirroring database.ItemUpdate.EmbeddingSet.
type UpdateItemParams struct {
	Title       *string
	Description *string
	Content     *string
	Priority    *string
	Status      *string
	Category    *string
	StartDate   *string
	EndDate     *string
	Version     *string
	Tags        []string
	TagsSet     bool
	Related     []int64
	RelatedSet  bool
}

// UpdateItem applies a partial update, re-running the enricher if title,
// content, or tags changed, and diffing relations if Related was supplied.
func (e *Engine) UpdateItem(id int64, params UpdateItemParams) (*database.ItemView, error) {
	existing, err := database.GetItem(e.db, id)
	if err != nil {
		return nil, translate("update_item", "item", err)
	}

	schema, err := e.types.FieldsFor(existing.Type)
	if err != nil {
		return nil, translate("update_item", "type", err)
	}

	var fieldErrs []FieldError
	if params.Title != nil {
		if fe := validateTitle(*params.Title); fe != nil {
			fieldErrs = append(fieldErrs, *fe)
		}
	}
	if params.Priority != nil {
		if fe := validatePriority(*params.Priority); fe != nil {
			fieldErrs = append(fieldErrs, *fe)
		}
	}
	startDate, endDate := existing.StartDate, existing.EndDate
	if params.StartDate != nil {
		startDate = *params.StartDate
		if fe := fieldPermitted(schema, "startDate", startDate, existing.Type); fe != nil {
			fieldErrs = append(fieldErrs, *fe)
		} else if fe := validateDateFormat("startDate", startDate); fe != nil {
			fieldErrs = append(fieldErrs, *fe)
		}
	}
	if params.EndDate != nil {
		endDate = *params.EndDate
		if fe := fieldPermitted(schema, "endDate", endDate, existing.Type); fe != nil {
			fieldErrs = append(fieldErrs, *fe)
		} else if fe := validateDateFormat("endDate", endDate); fe != nil {
			fieldErrs = append(fieldErrs, *fe)
		}
	}
	if params.StartDate != nil || params.EndDate != nil {
		if fe := validateDateOrder(startDate, endDate); fe != nil {
			fieldErrs = append(fieldErrs, *fe)
		}
	}
	if len(fieldErrs) > 0 {
		return nil, validationError(fieldErrs...)
	}

	var statusID *int64
	if params.Status != nil {
		sid, statusErr := e.resolveStatus(*params.Status)
		if statusErr != nil {
			return nil, statusErr
		}
		statusID = &sid
	}

	now := nowMillis()
	tx, err := e.db.Begin()
	if err != nil {
		return nil, internalError("update_item", err)
	}
	defer tx.Rollback()

	update := &database.ItemUpdate{UpdatedAt: now}
	if params.Title != nil {
		update.Title = params.Title
	}
	if params.Description != nil {
		update.Description = params.Description
	}
	if params.Content != nil {
		update.Content = params.Content
	}
	if params.Priority != nil {
		update.Priority = params.Priority
	}
	if params.Category != nil {
		update.Category = params.Category
	}
	if params.StartDate != nil {
		update.StartDate = params.StartDate
	}
	if params.EndDate != nil {
		update.EndDate = params.EndDate
	}
	if params.Version != nil {
		update.Version = params.Version
	}
	update.StatusID = statusID

	var tagNames []string
	if params.TagsSet {
		tagIDs, err := database.ResolveOrCreateTags(tx, params.Tags)
		if err != nil {
			return nil, translate("update_item", "tag", err)
		}
		if err := database.SetItemTags(tx, id, tagIDs); err != nil {
			return nil, internalError("update_item", err)
		}
		tagNames = params.Tags
	}

	if params.Title != nil || params.Content != nil || params.TagsSet {
		title := existing.Title
		if update.Title != nil {
			title = *update.Title
		}
		content := existing.Content
		if update.Content != nil {
			content = *update.Content
		}
		tags := tagNames
		if !params.TagsSet {
			tags, err = database.TagsForItem(tx, id)
			if err != nil {
				return nil, internalError("update_item", err)
			}
		}

		result, enrichErr := e.runEnricher(title, content, tags)
		if enrichErr != nil {
			return nil, enrichErr
		}
		version := e.enricher.Version()
		update.AISummary = &result.AISummary
		update.SearchIndex = &result.SearchIndex
		update.Embedding = result.Embedding
		update.EmbeddingSet = true
		update.EnricherVersion = &version

		if err := database.ReplaceItemKeywords(tx, id, toWeightedTerms(result.Keywords)); err != nil {
			return nil, internalError("update_item", err)
		}
		if err := database.ReplaceItemConcepts(tx, id, toWeightedTerms(result.Concepts)); err != nil {
			return nil, internalError("update_item", err)
		}
	}

	if err := database.UpdateItem(tx, id, update); err != nil {
		return nil, internalError("update_item", err)
	}

	if params.RelatedSet {
		if relErr := e.replaceRelationsTx(tx, id, params.Related, now); relErr != nil {
			return nil, relErr
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, internalError("update_item", err)
	}

	log.Info("updated item", "id", id)
	return e.GetItem(id)
}

// DeleteItem removes the item, its cascading side rows, and every relation
// edge touching it.
func (e *Engine) DeleteItem(id int64) error {
	tx, err := e.db.Begin()
	if err != nil {
		return internalError("delete_item", err)
	}
	defer tx.Rollback()

	if _, err := database.GetItem(tx, id); err != nil {
		return translate("delete_item", "item", err)
	}
	if err := database.OnItemDelete(tx, id); err != nil {
		return internalError("delete_item", err)
	}
	if err := database.DeleteItem(tx, id); err != nil {
		if err == sql.ErrNoRows {
			return notFound("item", fmt.Sprintf("%d", id))
		}
		return internalError("delete_item", err)
	}

	if err := tx.Commit(); err != nil {
		return internalError("delete_item", err)
	}
	log.Info("deleted item", "id", id)
	return nil
}

// ListItems returns the lightweight item projection, clamping the page
// size to the configured default/max.
func (e *Engine) ListItems(filters database.ItemFilters) ([]database.ItemSummary, error) {
	if filters.Limit <= 0 {
		filters.Limit = e.cfg.Search.DefaultListLimit
	}
	if filters.Limit > e.cfg.Search.MaxListLimit {
		filters.Limit = e.cfg.Search.MaxListLimit
	}
	items, err := database.ListItems(e.db, filters)
	if err != nil {
		return nil, internalError("list_items", err)
	}
	return items, nil
}
