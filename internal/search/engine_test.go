package search

import (
	"path/filepath"
	"testing"

	"github.com/shirokuma-kb/shirokuma/internal/database"
	"github.com/shirokuma-kb/shirokuma/internal/enrich"
	"github.com/shirokuma-kb/shirokuma/pkg/config"
)

func newTestDB(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.InitSchema(); err != nil {
		t.Fatalf("InitSchema: %v", err)
	}
	return db
}

func mustCreate(t *testing.T, db *database.Database, typ, title, content string) int64 {
	t.Helper()
	openID, err := database.DefaultStatusID(db)
	if err != nil {
		t.Fatalf("DefaultStatusID: %v", err)
	}
	id, err := database.CreateItem(db, &database.Item{
		Type: typ, Title: title, Content: content, StatusID: openID, Priority: "MEDIUM",
		CreatedAt: 1, UpdatedAt: 1,
	})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	return id
}

func TestSearchBareKeywordUsesFTS(t *testing.T) {
	db := newTestDB(t)
	id := mustCreate(t, db, "issues", "Login broken", "POST /login returns 500")

	e := NewEngine(&config.SearchConfig{})
	hits, err := e.Search(db, "login", nil, 20, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].ItemID != id {
		t.Errorf("Search(%q) = %v, want [%d]", "login", hits, id)
	}
}

func TestSearchEmptyQueryUsesLegacyFallback(t *testing.T) {
	db := newTestDB(t)
	mustCreate(t, db, "issues", "Login broken", "POST /login returns 500")

	e := NewEngine(&config.SearchConfig{})
	pq, err := ParseQuery("   ")
	if err != nil {
		t.Fatalf("ParseQuery: %v", err)
	}
	if pq.Matched {
		t.Fatal("whitespace-only query should not match any token, exercising the legacy fallback")
	}
	hits, err := e.Search(db, "   ", nil, 20, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 {
		t.Errorf("legacy fallback on empty query = %v, want 1 hit (substring matches everything)", hits)
	}
}

func TestSearchStructuredFiltersByStatusAndType(t *testing.T) {
	db := newTestDB(t)
	issueID := mustCreate(t, db, "issues", "auth bug", "login flow broken")
	mustCreate(t, db, "docs", "API guide", "auth flow")

	e := NewEngine(&config.SearchConfig{})
	hits, err := e.Search(db, "status:Open type:issues bug", nil, 20, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].ItemID != issueID {
		t.Errorf("Search structured query = %v, want [%d]", hits, issueID)
	}
}

func TestSearchIsClosedReturnsNoneThenOneAfterClose(t *testing.T) {
	db := newTestDB(t)
	id := mustCreate(t, db, "issues", "Login broken", "POST /login returns 500")

	e := NewEngine(&config.SearchConfig{})
	hits, err := e.Search(db, "is:closed", nil, 20, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("Search(is:closed) before close = %v, want []", hits)
	}

	closedStatus, err := database.GetStatusByName(db, "Closed")
	if err != nil {
		t.Fatalf("GetStatusByName: %v", err)
	}
	if err := database.UpdateItem(db, id, &database.ItemUpdate{StatusID: &closedStatus.ID, UpdatedAt: 2}); err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}

	hits, err = e.Search(db, "is:closed", nil, 20, 0)
	if err != nil {
		t.Fatalf("Search after close: %v", err)
	}
	if len(hits) != 1 || hits[0].ItemID != id {
		t.Errorf("Search(is:closed) after close = %v, want [%d]", hits, id)
	}
}

func TestSearchIsOpenExcludesClosedItems(t *testing.T) {
	db := newTestDB(t)
	openID := mustCreate(t, db, "issues", "Login broken", "POST /login returns 500")
	closedID := mustCreate(t, db, "issues", "Old bug", "already fixed")

	closedStatus, err := database.GetStatusByName(db, "Closed")
	if err != nil {
		t.Fatalf("GetStatusByName: %v", err)
	}
	if err := database.UpdateItem(db, closedID, &database.ItemUpdate{StatusID: &closedStatus.ID, UpdatedAt: 2}); err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}

	e := NewEngine(&config.SearchConfig{})
	hits, err := e.Search(db, "is:open", nil, 20, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].ItemID != openID {
		t.Errorf("Search(is:open) = %v, want [%d]", hits, openID)
	}
}

func TestFindRelatedByKeywords(t *testing.T) {
	db := newTestDB(t)
	a := mustCreate(t, db, "issues", "A", "")
	b := mustCreate(t, db, "issues", "B", "")

	if err := database.ReplaceItemKeywords(db, a, []database.WeightedTerm{{Term: "auth", Weight: 1.0}}); err != nil {
		t.Fatalf("ReplaceItemKeywords(a): %v", err)
	}
	if err := database.ReplaceItemKeywords(db, b, []database.WeightedTerm{{Term: "auth", Weight: 0.5}}); err != nil {
		t.Fatalf("ReplaceItemKeywords(b): %v", err)
	}

	e := NewEngine(&config.SearchConfig{})
	hits, err := e.FindRelated(db, a, StrategyKeywords, HybridWeights{}, 10)
	if err != nil {
		t.Fatalf("FindRelated: %v", err)
	}
	if len(hits) != 1 || hits[0].ItemID != b {
		t.Errorf("FindRelated(keywords) = %v, want [%d]", hits, b)
	}
}

func TestFindRelatedByEmbeddingPrefersCloserVector(t *testing.T) {
	db := newTestDB(t)
	a := mustCreate(t, db, "issues", "A", "")
	near := mustCreate(t, db, "issues", "Near", "")
	far := mustCreate(t, db, "issues", "Far", "")

	var va, vNear, vFar [enrich.EmbeddingDim]float64
	va[0] = 1.0
	vNear[0] = 0.95
	vNear[1] = 0.05
	vFar[10] = 1.0

	setEmbedding := func(id int64, v [enrich.EmbeddingDim]float64) {
		blob := enrich.Quantize(v)
		set := true
		if err := database.UpdateItem(db, id, &database.ItemUpdate{Embedding: blob, EmbeddingSet: set, UpdatedAt: 2}); err != nil {
			t.Fatalf("UpdateItem embedding: %v", err)
		}
	}
	setEmbedding(a, va)
	setEmbedding(near, vNear)
	setEmbedding(far, vFar)

	tagIDs, err := database.ResolveOrCreateTags(db, []string{"shared"})
	if err != nil {
		t.Fatalf("ResolveOrCreateTags: %v", err)
	}
	for _, id := range []int64{a, near, far} {
		if err := database.SetItemTags(db, id, tagIDs); err != nil {
			t.Fatalf("SetItemTags: %v", err)
		}
	}

	e := NewEngine(&config.SearchConfig{})
	hits, err := e.FindRelated(db, a, StrategyEmbedding, HybridWeights{}, 10)
	if err != nil {
		t.Fatalf("FindRelated(embedding): %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("FindRelated(embedding) = %v, want 2 hits", hits)
	}
	if hits[0].ItemID != near {
		t.Errorf("closest embedding neighbor = %d, want %d (near)", hits[0].ItemID, near)
	}
}

func TestFindRelatedHybridCombinesWeights(t *testing.T) {
	db := newTestDB(t)
	a := mustCreate(t, db, "issues", "A", "")
	b := mustCreate(t, db, "issues", "B", "")

	if err := database.ReplaceItemKeywords(db, a, []database.WeightedTerm{{Term: "auth", Weight: 1.0}}); err != nil {
		t.Fatalf("ReplaceItemKeywords(a): %v", err)
	}
	if err := database.ReplaceItemKeywords(db, b, []database.WeightedTerm{{Term: "auth", Weight: 1.0}}); err != nil {
		t.Fatalf("ReplaceItemKeywords(b): %v", err)
	}

	e := NewEngine(&config.SearchConfig{})
	hits, err := e.FindRelated(db, a, StrategyHybrid, HybridWeights{Keywords: 0.4, Embedding: 0.6}, 10)
	if err != nil {
		t.Fatalf("FindRelated(hybrid): %v", err)
	}
	if len(hits) != 1 || hits[0].ItemID != b {
		t.Errorf("FindRelated(hybrid) = %v, want [%d]", hits, b)
	}
}
