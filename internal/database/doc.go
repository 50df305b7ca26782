// Package database provides the SQLite persistence layer for the item
// store, including the FTS5 full-text index kept in sync via triggers.
//
// It implements the full schema (items, statuses, tags, keywords,
// concepts, item_relations, type_definitions, current_state) along with
// CRUD operations, structured search, and relation graph traversal.
package database
