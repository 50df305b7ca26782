package engine

import (
	"github.com/shirokuma-kb/shirokuma/internal/database"
)

// GetStatuses lists every registered status, the resolution surface
// behind statusId exposed directly as a read op.
func (e *Engine) GetStatuses() ([]database.Status, error) {
	statuses, err := e.statuses.List()
	if err != nil {
		return nil, internalError("get_statuses", err)
	}
	return statuses, nil
}

// GetTags lists every tag, alphabetically.
func (e *Engine) GetTags() ([]database.Tag, error) {
	tags, err := e.tags.List()
	if err != nil {
		return nil, internalError("get_tags", err)
	}
	return tags, nil
}

// SearchTags returns tags whose name contains substr.
func (e *Engine) SearchTags(substr string) ([]database.Tag, error) {
	tags, err := e.tags.SearchByPattern(substr)
	if err != nil {
		return nil, internalError("search_tags", err)
	}
	return tags, nil
}

// CreateTag explicitly registers a tag name, failing with AlreadyExists
// if it's already present — unlike ResolveOrCreate's silent get-or-create
// used internally by create_item/update_item, create_tag is the tool
// surface's explicit, idempotency-checked entry point.
func (e *Engine) CreateTag(name string) (database.Tag, error) {
	if _, err := database.GetTagByName(e.db, name); err == nil {
		return database.Tag{}, alreadyExists("tag", name)
	}
	if _, err := e.tags.ResolveOrCreate([]string{name}); err != nil {
		return database.Tag{}, internalError("create_tag", err)
	}
	tag, err := database.GetTagByName(e.db, name)
	if err != nil {
		return database.Tag{}, internalError("create_tag", err)
	}
	return *tag, nil
}

// DeleteTag removes a tag by name, failing with InUse if any item still
// carries it.
func (e *Engine) DeleteTag(name string) error {
	if err := e.tags.Remove(name); err != nil {
		return translate("delete_tag", "tag", err)
	}
	log.Info("deleted tag", "name", name)
	return nil
}

// GetTypes lists every registered item type, optionally filtered by base
// type.
func (e *Engine) GetTypes(baseType string) ([]database.TypeDefinition, error) {
	types, err := e.types.List(baseType)
	if err != nil {
		return nil, internalError("get_types", err)
	}
	return types, nil
}

// CreateType registers a new item type.
func (e *Engine) CreateType(name, baseType, description string) (database.TypeDefinition, error) {
	def, err := e.types.Register(name, baseType, description)
	if err != nil {
		return database.TypeDefinition{}, translate("create_type", "type", err)
	}
	return def, nil
}

// UpdateType changes a type's description.
func (e *Engine) UpdateType(name, description string) (database.TypeDefinition, error) {
	def, err := e.types.UpdateDescription(name, description)
	if err != nil {
		return database.TypeDefinition{}, translate("update_type", "type", err)
	}
	return def, nil
}

// DeleteType removes a type definition, failing with InUse if any item
// still carries it, or rejecting the reserved seed types.
func (e *Engine) DeleteType(name string) error {
	if err := e.types.Remove(name); err != nil {
		return translate("delete_type", "type", err)
	}
	log.Info("deleted type", "name", name)
	return nil
}
