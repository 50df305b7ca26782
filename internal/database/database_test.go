package database

import (
	"database/sql"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.InitSchema(); err != nil {
		t.Fatalf("InitSchema: %v", err)
	}
	return db
}

func TestOpenAndInitSchema(t *testing.T) {
	db := openTestDB(t)

	ok, err := db.TableExists("items")
	if err != nil {
		t.Fatalf("TableExists: %v", err)
	}
	if !ok {
		t.Fatal("expected items table to exist after InitSchema")
	}

	version, err := db.GetSchemaVersion()
	if err != nil {
		t.Fatalf("GetSchemaVersion: %v", err)
	}
	if version != SchemaVersion {
		t.Errorf("GetSchemaVersion() = %d, want %d", version, SchemaVersion)
	}
}

func TestInitSchemaIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if err := db.InitSchema(); err != nil {
		t.Fatalf("first InitSchema: %v", err)
	}
	if err := db.InitSchema(); err != nil {
		t.Fatalf("second InitSchema: %v", err)
	}

	statuses, err := ListStatuses(db)
	if err != nil {
		t.Fatalf("ListStatuses: %v", err)
	}
	if len(statuses) != len(StatusSeeds) {
		t.Errorf("got %d statuses after double init, want %d (seeds must not duplicate)", len(statuses), len(StatusSeeds))
	}
}

func TestSeededStatuses(t *testing.T) {
	db := openTestDB(t)

	statuses, err := ListStatuses(db)
	if err != nil {
		t.Fatalf("ListStatuses: %v", err)
	}
	if len(statuses) != len(StatusSeeds) {
		t.Fatalf("got %d statuses, want %d", len(statuses), len(StatusSeeds))
	}

	closable := map[string]bool{"Completed": true, "Closed": true, "Canceled": true, "Rejected": true}
	for _, s := range statuses {
		if s.IsClosable != closable[s.Name] {
			t.Errorf("status %q: IsClosable = %v, want %v", s.Name, s.IsClosable, closable[s.Name])
		}
	}

	open, err := GetStatusByName(db, "open")
	if err != nil {
		t.Fatalf("GetStatusByName (case-insensitive): %v", err)
	}
	if open.Name != "Open" {
		t.Errorf("GetStatusByName(%q) = %q, want Open", "open", open.Name)
	}

	ids, err := ClosableStatusIDs(db)
	if err != nil {
		t.Fatalf("ClosableStatusIDs: %v", err)
	}
	if len(ids) != 4 {
		t.Errorf("ClosableStatusIDs() returned %d ids, want 4", len(ids))
	}
}

func TestMigrationFixIsClosable(t *testing.T) {
	db := openTestDB(t)

	// Simulate historically bad data: flip every status's is_closable the
	// wrong way, then rerun migrations and confirm they're corrected back.
	if _, err := db.Exec("UPDATE statuses SET is_closable = NOT is_closable"); err != nil {
		t.Fatalf("corrupting is_closable: %v", err)
	}
	if _, err := db.Exec("DELETE FROM migration_log WHERE migration_name = 'fix_isclosable_flags'"); err != nil {
		t.Fatalf("clearing migration log: %v", err)
	}

	if err := RunMigrations(db); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}

	closed, err := GetStatusByName(db, "Closed")
	if err != nil {
		t.Fatalf("GetStatusByName: %v", err)
	}
	if !closed.IsClosable {
		t.Error("migration did not restore is_closable=true for Closed")
	}
	open, err := GetStatusByName(db, "Open")
	if err != nil {
		t.Fatalf("GetStatusByName: %v", err)
	}
	if open.IsClosable {
		t.Error("migration did not restore is_closable=false for Open")
	}
}

func TestCreateGetUpdateDeleteItem(t *testing.T) {
	db := openTestDB(t)

	openID, err := DefaultStatusID(db)
	if err != nil {
		t.Fatalf("DefaultStatusID: %v", err)
	}

	item := &Item{
		Type:      "issues",
		Title:     "Fix the flaky build",
		StatusID:  openID,
		Priority:  "HIGH",
		CreatedAt: 1000,
		UpdatedAt: 1000,
	}
	id, err := CreateItem(db, item)
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if id <= 0 {
		t.Fatalf("CreateItem returned id %d", id)
	}

	got, err := GetItem(db, id)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if got.Title != item.Title || got.Priority != "HIGH" {
		t.Errorf("GetItem() = %+v, want title %q priority HIGH", got, item.Title)
	}

	newTitle := "Fix the flaky build (resolved)"
	if err := UpdateItem(db, id, &ItemUpdate{Title: &newTitle, UpdatedAt: 2000}); err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	got, err = GetItem(db, id)
	if err != nil {
		t.Fatalf("GetItem after update: %v", err)
	}
	if got.Title != newTitle || got.UpdatedAt != 2000 {
		t.Errorf("GetItem() after update = %+v", got)
	}

	if err := DeleteItem(db, id); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	if _, err := GetItem(db, id); err != sql.ErrNoRows {
		t.Errorf("GetItem after delete: err = %v, want sql.ErrNoRows", err)
	}
	if err := DeleteItem(db, id); err != sql.ErrNoRows {
		t.Errorf("DeleteItem on already-deleted item: err = %v, want sql.ErrNoRows", err)
	}
}

func TestListItemsFiltersClosedByDefault(t *testing.T) {
	db := openTestDB(t)
	openID, _ := DefaultStatusID(db)
	closed, err := GetStatusByName(db, "Closed")
	if err != nil {
		t.Fatalf("GetStatusByName: %v", err)
	}

	mustCreate := func(title string, statusID int64) int64 {
		id, err := CreateItem(db, &Item{Type: "issues", Title: title, StatusID: statusID, Priority: "MEDIUM", CreatedAt: 1, UpdatedAt: 1})
		if err != nil {
			t.Fatalf("CreateItem(%q): %v", title, err)
		}
		return id
	}
	mustCreate("open one", openID)
	mustCreate("closed one", closed.ID)

	items, err := ListItems(db, ItemFilters{})
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(items) != 1 || items[0].Title != "open one" {
		t.Errorf("ListItems() (default) = %+v, want only the open item", items)
	}

	items, err = ListItems(db, ItemFilters{IncludeClosedStatuses: true})
	if err != nil {
		t.Fatalf("ListItems (include closed): %v", err)
	}
	if len(items) != 2 {
		t.Errorf("ListItems(include closed) returned %d items, want 2", len(items))
	}
}

func TestTagResolveAndAttach(t *testing.T) {
	db := openTestDB(t)
	openID, _ := DefaultStatusID(db)
	id, err := CreateItem(db, &Item{Type: "docs", Title: "notes", StatusID: openID, Priority: "LOW", CreatedAt: 1, UpdatedAt: 1})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	tagIDs, err := ResolveOrCreateTags(db, []string{"Go", " go ", "backend"})
	if err != nil {
		t.Fatalf("ResolveOrCreateTags: %v", err)
	}
	if len(tagIDs) != 2 {
		t.Fatalf("ResolveOrCreateTags returned %d ids, want 2 (deduped case+whitespace)", len(tagIDs))
	}

	if err := SetItemTags(db, id, tagIDs); err != nil {
		t.Fatalf("SetItemTags: %v", err)
	}
	tags, err := TagsForItem(db, id)
	if err != nil {
		t.Fatalf("TagsForItem: %v", err)
	}
	if len(tags) != 2 || tags[0] != "backend" || tags[1] != "go" {
		t.Errorf("TagsForItem() = %v, want [backend go]", tags)
	}

	if count, err := TagInUseCount(db, tagIDs[0]); err != nil || count != 1 {
		t.Errorf("TagInUseCount() = %d, %v, want 1, nil", count, err)
	}
}

func TestRelationPairsAreMirrored(t *testing.T) {
	db := openTestDB(t)
	openID, _ := DefaultStatusID(db)
	mk := func(title string) int64 {
		id, err := CreateItem(db, &Item{Type: "issues", Title: title, StatusID: openID, Priority: "MEDIUM", CreatedAt: 1, UpdatedAt: 1})
		if err != nil {
			t.Fatalf("CreateItem: %v", err)
		}
		return id
	}
	a, b := mk("a"), mk("b")

	if err := AddRelationPair(db, a, b, 100); err != nil {
		t.Fatalf("AddRelationPair: %v", err)
	}
	if err := AddRelationPair(db, a, a, 100); err == nil {
		t.Error("AddRelationPair(a, a) should reject self-edges")
	}

	relOfA, err := RelationsOf(db, a)
	if err != nil {
		t.Fatalf("RelationsOf(a): %v", err)
	}
	relOfB, err := RelationsOf(db, b)
	if err != nil {
		t.Fatalf("RelationsOf(b): %v", err)
	}
	if len(relOfA) != 1 || relOfA[0] != b || len(relOfB) != 1 || relOfB[0] != a {
		t.Errorf("relations not mirrored: a->%v b->%v", relOfA, relOfB)
	}

	if err := RemoveRelationPair(db, a, b); err != nil {
		t.Fatalf("RemoveRelationPair: %v", err)
	}
	relOfA, _ = RelationsOf(db, a)
	relOfB, _ = RelationsOf(db, b)
	if len(relOfA) != 0 || len(relOfB) != 0 {
		t.Errorf("relations not cleared on both sides: a->%v b->%v", relOfA, relOfB)
	}
}

func TestOnItemDeletePrunesCurrentStateRelated(t *testing.T) {
	db := openTestDB(t)
	openID, _ := DefaultStatusID(db)
	a, err := CreateItem(db, &Item{Type: "issues", Title: "a", StatusID: openID, Priority: "MEDIUM", CreatedAt: 1, UpdatedAt: 1})
	if err != nil {
		t.Fatalf("CreateItem(a): %v", err)
	}
	b, err := CreateItem(db, &Item{Type: "issues", Title: "b", StatusID: openID, Priority: "MEDIUM", CreatedAt: 1, UpdatedAt: 1})
	if err != nil {
		t.Fatalf("CreateItem(b): %v", err)
	}

	if err := UpdateCurrentState(db, "working", nil, []int64{a, b}, "agent-1", 100); err != nil {
		t.Fatalf("UpdateCurrentState: %v", err)
	}

	if err := OnItemDelete(db, a); err != nil {
		t.Fatalf("OnItemDelete: %v", err)
	}
	if _, err := db.Exec("DELETE FROM items WHERE id = ?", a); err != nil {
		t.Fatalf("deleting item row: %v", err)
	}

	state, err := GetCurrentState(db, 200)
	if err != nil {
		t.Fatalf("GetCurrentState: %v", err)
	}
	if len(state.Related) != 1 || state.Related[0] != b {
		t.Errorf("current_state.related = %v, want [%d]", state.Related, b)
	}
	if state.Content != "working" {
		t.Errorf("current_state.content = %q, want unchanged %q", state.Content, "working")
	}
}

func TestMapGraphRespectsDepthCap(t *testing.T) {
	db := openTestDB(t)
	openID, _ := DefaultStatusID(db)
	var ids []int64
	for i := 0; i < 6; i++ {
		id, err := CreateItem(db, &Item{Type: "issues", Title: "n", StatusID: openID, Priority: "MEDIUM", CreatedAt: 1, UpdatedAt: 1})
		if err != nil {
			t.Fatalf("CreateItem: %v", err)
		}
		ids = append(ids, id)
	}
	// Chain: 0-1-2-3-4-5
	for i := 0; i < len(ids)-1; i++ {
		if err := AddRelationPair(db, ids[i], ids[i+1], int64(i)); err != nil {
			t.Fatalf("AddRelationPair: %v", err)
		}
	}

	result, err := MapGraph(db, ids[0], 0)
	if err != nil {
		t.Fatalf("MapGraph (default depth): %v", err)
	}
	if result.MaxDepth != 2 {
		t.Errorf("MapGraph default depth = %d, want 2", result.MaxDepth)
	}
	if result.TotalNodes != 3 {
		t.Errorf("MapGraph(depth 2) visited %d nodes, want 3 (root+2 hops)", result.TotalNodes)
	}

	result, err = MapGraph(db, ids[0], 10)
	if err != nil {
		t.Fatalf("MapGraph (over cap): %v", err)
	}
	if result.MaxDepth != 5 {
		t.Errorf("MapGraph depth cap = %d, want 5", result.MaxDepth)
	}
}

func TestCurrentStateSingleton(t *testing.T) {
	db := openTestDB(t)

	state, err := GetCurrentState(db, 1000)
	if err != nil {
		t.Fatalf("GetCurrentState (materialize default): %v", err)
	}
	if state.Content != "" || len(state.Tags) != 0 {
		t.Errorf("default current state = %+v, want empty", state)
	}

	if err := UpdateCurrentState(db, "working on the release", []string{"release"}, []int64{1, 2}, "agent-1", 2000); err != nil {
		t.Fatalf("UpdateCurrentState: %v", err)
	}
	state, err = GetCurrentState(db, 3000)
	if err != nil {
		t.Fatalf("GetCurrentState after update: %v", err)
	}
	if state.Content != "working on the release" || state.UpdatedBy != "agent-1" || state.UpdatedAt != 2000 {
		t.Errorf("GetCurrentState() = %+v", state)
	}

	var rowCount int
	if err := db.QueryRow("SELECT COUNT(*) FROM current_state").Scan(&rowCount); err != nil {
		t.Fatalf("counting current_state rows: %v", err)
	}
	if rowCount != 1 {
		t.Errorf("current_state has %d rows, want exactly 1 (singleton invariant)", rowCount)
	}
}

func TestFTSSearchTracksItemMutations(t *testing.T) {
	db := openTestDB(t)
	openID, _ := DefaultStatusID(db)

	id, err := CreateItem(db, &Item{
		Type: "issues", Title: "Investigate memory leak", Description: "suspect the cache layer",
		StatusID: openID, Priority: "HIGH", CreatedAt: 1, UpdatedAt: 1,
	})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	results, err := SearchFTS(db, []string{"memory"}, FTSSearchFilters{})
	if err != nil {
		t.Fatalf("SearchFTS: %v", err)
	}
	if len(results) != 1 || results[0].ItemID != id {
		t.Fatalf("SearchFTS(memory) = %+v, want match on created item", results)
	}

	newTitle := "Investigate disk usage"
	if err := UpdateItem(db, id, &ItemUpdate{Title: &newTitle, UpdatedAt: 2}); err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	results, err = SearchFTS(db, []string{"memory"}, FTSSearchFilters{})
	if err != nil {
		t.Fatalf("SearchFTS after rename: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("SearchFTS(memory) after rename = %+v, want no matches (FTS trigger should have updated)", results)
	}

	if err := DeleteItem(db, id); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	results, err = SearchFTS(db, []string{"disk"}, FTSSearchFilters{})
	if err != nil {
		t.Fatalf("SearchFTS after delete: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("SearchFTS(disk) after delete = %+v, want no matches (FTS delete trigger)", results)
	}
}

func TestGetDBStats(t *testing.T) {
	db := openTestDB(t)
	openID, _ := DefaultStatusID(db)
	if _, err := CreateItem(db, &Item{Type: "issues", Title: "x", StatusID: openID, Priority: "LOW", CreatedAt: 1, UpdatedAt: 1}); err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	stats, err := db.GetDBStats()
	if err != nil {
		t.Fatalf("GetDBStats: %v", err)
	}
	if stats.ItemCount != 1 {
		t.Errorf("GetDBStats().ItemCount = %d, want 1", stats.ItemCount)
	}
	if stats.SchemaVersion != SchemaVersion {
		t.Errorf("GetDBStats().SchemaVersion = %d, want %d", stats.SchemaVersion, SchemaVersion)
	}
}
