package tagstore

import (
	"path/filepath"
	"testing"

	"github.com/shirokuma-kb/shirokuma/internal/database"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.InitSchema(); err != nil {
		t.Fatalf("InitSchema: %v", err)
	}
	return New(db)
}

func TestResolveOrCreateNormalizesAndDedupes(t *testing.T) {
	s := newTestStore(t)
	ids, err := s.ResolveOrCreate([]string{"Bug", " bug ", "Auth"})
	if err != nil {
		t.Fatalf("ResolveOrCreate: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("ResolveOrCreate returned %d ids, want 2", len(ids))
	}

	tags, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(tags) != 2 {
		t.Errorf("List() = %d tags, want 2", len(tags))
	}
}

func TestSearchByPattern(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.ResolveOrCreate([]string{"backend", "frontend", "database"}); err != nil {
		t.Fatalf("ResolveOrCreate: %v", err)
	}
	matches, err := s.SearchByPattern("end")
	if err != nil {
		t.Fatalf("SearchByPattern: %v", err)
	}
	if len(matches) != 2 {
		t.Errorf("SearchByPattern(end) = %d matches, want 2", len(matches))
	}
}

func TestRemoveRejectsInUse(t *testing.T) {
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()
	if err := db.InitSchema(); err != nil {
		t.Fatalf("InitSchema: %v", err)
	}
	s := New(db)

	ids, err := s.ResolveOrCreate([]string{"bug"})
	if err != nil {
		t.Fatalf("ResolveOrCreate: %v", err)
	}

	openID, err := database.DefaultStatusID(db)
	if err != nil {
		t.Fatalf("DefaultStatusID: %v", err)
	}
	itemID, err := database.CreateItem(db, &database.Item{Type: "issues", Title: "x", StatusID: openID, Priority: "LOW", CreatedAt: 1, UpdatedAt: 1})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if err := database.SetItemTags(db, itemID, ids); err != nil {
		t.Fatalf("SetItemTags: %v", err)
	}

	if err := s.Remove("bug"); err == nil {
		t.Error("Remove of an in-use tag should fail")
	} else if _, ok := err.(ErrInUse); !ok {
		t.Errorf("err = %T, want ErrInUse", err)
	}

	if err := database.SetItemTags(db, itemID, nil); err != nil {
		t.Fatalf("SetItemTags (clear): %v", err)
	}
	if err := s.Remove("bug"); err != nil {
		t.Errorf("Remove of an unused tag should succeed: %v", err)
	}
}
