// Package search implements the C6 Search Engine: the structured
// key:value query parser, FTS5-backed keyword search, title suggest, and
// the keywords/concepts/embedding/hybrid get_related_items strategies.
package search
