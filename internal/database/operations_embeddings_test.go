package database

import "testing"

func TestCandidatesByTagOverlap(t *testing.T) {
	db := openTestDB(t)
	openID, err := DefaultStatusID(db)
	if err != nil {
		t.Fatalf("DefaultStatusID: %v", err)
	}

	a, _ := CreateItem(db, &Item{Type: "issues", Title: "A", StatusID: openID, Priority: "LOW", CreatedAt: 1, UpdatedAt: 1})
	b, _ := CreateItem(db, &Item{Type: "issues", Title: "B", StatusID: openID, Priority: "LOW", CreatedAt: 1, UpdatedAt: 1})
	c, _ := CreateItem(db, &Item{Type: "issues", Title: "C", StatusID: openID, Priority: "LOW", CreatedAt: 1, UpdatedAt: 1})

	tagIDs, err := ResolveOrCreateTags(db, []string{"shared"})
	if err != nil {
		t.Fatalf("ResolveOrCreateTags: %v", err)
	}
	if err := SetItemTags(db, a, tagIDs); err != nil {
		t.Fatalf("SetItemTags(a): %v", err)
	}
	if err := SetItemTags(db, b, tagIDs); err != nil {
		t.Fatalf("SetItemTags(b): %v", err)
	}

	ids, err := CandidatesByTagOverlap(db, a, 10)
	if err != nil {
		t.Fatalf("CandidatesByTagOverlap: %v", err)
	}
	if len(ids) != 1 || ids[0] != b {
		t.Errorf("CandidatesByTagOverlap(a) = %v, want [b]", ids)
	}
	_ = c
}

func TestItemEmbeddingsSkipsMissing(t *testing.T) {
	db := openTestDB(t)
	openID, err := DefaultStatusID(db)
	if err != nil {
		t.Fatalf("DefaultStatusID: %v", err)
	}

	withEmb, _ := CreateItem(db, &Item{Type: "issues", Title: "A", StatusID: openID, Priority: "LOW", Embedding: []byte{1, 2, 3}, CreatedAt: 1, UpdatedAt: 1})
	withoutEmb, _ := CreateItem(db, &Item{Type: "issues", Title: "B", StatusID: openID, Priority: "LOW", CreatedAt: 1, UpdatedAt: 1})

	blobs, err := ItemEmbeddings(db, []int64{withEmb, withoutEmb})
	if err != nil {
		t.Fatalf("ItemEmbeddings: %v", err)
	}
	if _, ok := blobs[withEmb]; !ok {
		t.Error("expected embedding for item with a blob")
	}
	if _, ok := blobs[withoutEmb]; ok {
		t.Error("expected no entry for item without an embedding")
	}
}

func TestAllItemIDsWithEmbeddingExcludesAnchorAndRespectsCeiling(t *testing.T) {
	db := openTestDB(t)
	openID, err := DefaultStatusID(db)
	if err != nil {
		t.Fatalf("DefaultStatusID: %v", err)
	}

	var ids []int64
	for i := 0; i < 5; i++ {
		id, err := CreateItem(db, &Item{Type: "issues", Title: "X", StatusID: openID, Priority: "LOW", Embedding: []byte{1}, CreatedAt: 1, UpdatedAt: 1})
		if err != nil {
			t.Fatalf("CreateItem: %v", err)
		}
		ids = append(ids, id)
	}

	got, err := AllItemIDsWithEmbedding(db, ids[0], 2)
	if err != nil {
		t.Fatalf("AllItemIDsWithEmbedding: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("AllItemIDsWithEmbedding ceiling not respected: got %d ids", len(got))
	}
	for _, id := range got {
		if id == ids[0] {
			t.Error("AllItemIDsWithEmbedding should exclude the anchor")
		}
	}
}
