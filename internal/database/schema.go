package database

// SchemaVersion is the current schema version.
const SchemaVersion = 2

// CoreSchema contains the main table definitions for the item store.
const CoreSchema = `
PRAGMA foreign_keys = ON;

-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY,
	applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- =============================================================================
-- TYPE DEFINITIONS TABLE
-- C1 Type Registry: registered item types and the base type they inherit
-- their field schema from.
-- =============================================================================
CREATE TABLE IF NOT EXISTS type_definitions (
	name TEXT PRIMARY KEY,
	base_type TEXT NOT NULL CHECK (base_type IN ('tasks', 'documents')),
	description TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- =============================================================================
-- STATUSES TABLE
-- C2 Status Registry: the fixed, seeded workflow.
-- =============================================================================
CREATE TABLE IF NOT EXISTS statuses (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	sort_order INTEGER NOT NULL,
	is_closable BOOLEAN NOT NULL DEFAULT 0
);

-- =============================================================================
-- ITEMS TABLE
-- C4 Item Store: the universal record.
-- =============================================================================
CREATE TABLE IF NOT EXISTS items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	type TEXT NOT NULL REFERENCES type_definitions(name),
	title TEXT NOT NULL,
	description TEXT,
	content TEXT,
	ai_summary TEXT,
	status_id INTEGER NOT NULL REFERENCES statuses(id),
	priority TEXT NOT NULL DEFAULT 'MEDIUM' CHECK (priority IN ('CRITICAL', 'HIGH', 'MEDIUM', 'LOW', 'MINIMAL')),
	category TEXT,
	start_date TEXT,
	end_date TEXT,
	version TEXT,
	search_index TEXT,
	embedding BLOB,
	enricher_version TEXT,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_items_type ON items(type);
CREATE INDEX IF NOT EXISTS idx_items_status ON items(status_id);
CREATE INDEX IF NOT EXISTS idx_items_priority ON items(priority);
CREATE INDEX IF NOT EXISTS idx_items_updated_at ON items(updated_at);
CREATE INDEX IF NOT EXISTS idx_items_created_at ON items(created_at);

-- =============================================================================
-- TAGS TABLE
-- C3 Tag Store: normalized, cross-cutting tags.
-- =============================================================================
CREATE TABLE IF NOT EXISTS tags (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS item_tags (
	item_id INTEGER NOT NULL,
	tag_id INTEGER NOT NULL,
	PRIMARY KEY (item_id, tag_id),
	FOREIGN KEY (item_id) REFERENCES items(id) ON DELETE CASCADE,
	FOREIGN KEY (tag_id) REFERENCES tags(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_item_tags_tag ON item_tags(tag_id);

-- =============================================================================
-- KEYWORDS TABLE
-- Enricher-derived per-item keyword weights.
-- =============================================================================
CREATE TABLE IF NOT EXISTS keywords (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	word TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS item_keywords (
	item_id INTEGER NOT NULL,
	keyword_id INTEGER NOT NULL,
	weight REAL NOT NULL CHECK (weight >= 0.0 AND weight <= 1.0),
	PRIMARY KEY (item_id, keyword_id),
	FOREIGN KEY (item_id) REFERENCES items(id) ON DELETE CASCADE,
	FOREIGN KEY (keyword_id) REFERENCES keywords(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_item_keywords_keyword ON item_keywords(keyword_id);
CREATE INDEX IF NOT EXISTS idx_item_keywords_weight ON item_keywords(weight);

-- =============================================================================
-- CONCEPTS TABLE
-- Enricher-derived per-item concept weights (closed vocabulary).
-- =============================================================================
CREATE TABLE IF NOT EXISTS concepts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS item_concepts (
	item_id INTEGER NOT NULL,
	concept_id INTEGER NOT NULL,
	weight REAL NOT NULL CHECK (weight >= 0.0 AND weight <= 1.0),
	PRIMARY KEY (item_id, concept_id),
	FOREIGN KEY (item_id) REFERENCES items(id) ON DELETE CASCADE,
	FOREIGN KEY (concept_id) REFERENCES concepts(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_item_concepts_concept ON item_concepts(concept_id);
CREATE INDEX IF NOT EXISTS idx_item_concepts_weight ON item_concepts(weight);

-- =============================================================================
-- ITEM RELATIONS TABLE
-- C7 Relation Graph: directed edges, always written in mirrored pairs.
-- =============================================================================
CREATE TABLE IF NOT EXISTS item_relations (
	source_id INTEGER NOT NULL,
	target_id INTEGER NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (source_id, target_id),
	FOREIGN KEY (source_id) REFERENCES items(id) ON DELETE CASCADE,
	FOREIGN KEY (target_id) REFERENCES items(id) ON DELETE CASCADE,
	CHECK (source_id != target_id)
);

CREATE INDEX IF NOT EXISTS idx_item_relations_target ON item_relations(target_id);

-- =============================================================================
-- CURRENT STATE TABLE
-- C8 Current-State Singleton: exactly one row, id fixed to 1.
-- =============================================================================
CREATE TABLE IF NOT EXISTS current_state (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	content TEXT NOT NULL DEFAULT '',
	tags TEXT NOT NULL DEFAULT '[]',
	related TEXT NOT NULL DEFAULT '[]',
	updated_at INTEGER NOT NULL,
	updated_by TEXT NOT NULL DEFAULT ''
);

-- =============================================================================
-- MIGRATION LOG TABLE
-- =============================================================================
CREATE TABLE IF NOT EXISTS migration_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	migration_name TEXT NOT NULL UNIQUE,
	applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	success BOOLEAN NOT NULL DEFAULT 0,
	detail TEXT
);
`

// FTS5Schema contains the full-text search configuration kept in sync with
// the items table via triggers.
const FTS5Schema = `
CREATE VIRTUAL TABLE IF NOT EXISTS items_fts USING fts5(
	id UNINDEXED,
	title,
	description,
	content,
	tags
);

CREATE TRIGGER IF NOT EXISTS items_fts_insert AFTER INSERT ON items BEGIN
	INSERT INTO items_fts(id, title, description, content, tags)
	VALUES (new.id, new.title, new.description, new.content, '');
END;

CREATE TRIGGER IF NOT EXISTS items_fts_delete AFTER DELETE ON items BEGIN
	DELETE FROM items_fts WHERE id = old.id;
END;

CREATE TRIGGER IF NOT EXISTS items_fts_update AFTER UPDATE ON items BEGIN
	UPDATE items_fts SET
		title = new.title,
		description = new.description,
		content = new.content
	WHERE id = old.id;
END;
`

// BaseTypes contains the two built-in base types that fix an item type's
// field schema.
var BaseTypes = []string{"tasks", "documents"}

// IsValidBaseType reports whether t is a recognized base type.
func IsValidBaseType(t string) bool {
	for _, bt := range BaseTypes {
		if bt == t {
			return true
		}
	}
	return false
}

// Priorities contains the 5 valid item priority levels, highest first.
var Priorities = []string{"CRITICAL", "HIGH", "MEDIUM", "LOW", "MINIMAL"}

// IsValidPriority reports whether p is a recognized priority level.
func IsValidPriority(p string) bool {
	for _, valid := range Priorities {
		if valid == p {
			return true
		}
	}
	return false
}

// StatusSeed describes one row of the fixed, seeded status workflow.
type StatusSeed struct {
	Name       string
	SortOrder  int
	IsClosable bool
}

// StatusSeeds is the seeded 12-status workflow. The last four are closable.
var StatusSeeds = []StatusSeed{
	{"Open", 0, false},
	{"Specification", 1, false},
	{"Waiting", 2, false},
	{"Ready", 3, false},
	{"In Progress", 4, false},
	{"Review", 5, false},
	{"Testing", 6, false},
	{"Pending", 7, false},
	{"Completed", 8, true},
	{"Closed", 9, true},
	{"Canceled", 10, true},
	{"Rejected", 11, true},
}
