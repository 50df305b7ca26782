package relgraph

import (
	"path/filepath"
	"testing"

	"github.com/shirokuma-kb/shirokuma/internal/database"
)

func newTestService(t *testing.T) (*Service, *database.Database) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.InitSchema(); err != nil {
		t.Fatalf("InitSchema: %v", err)
	}
	return NewService(db), db
}

func mustCreateItem(t *testing.T, db *database.Database, title string) int64 {
	t.Helper()
	openID, err := database.DefaultStatusID(db)
	if err != nil {
		t.Fatalf("DefaultStatusID: %v", err)
	}
	id, err := database.CreateItem(db, &database.Item{Type: "issues", Title: title, StatusID: openID, Priority: "MEDIUM", CreatedAt: 1, UpdatedAt: 1})
	if err != nil {
		t.Fatalf("CreateItem(%q): %v", title, err)
	}
	return id
}

func TestAddRelationsIsBidirectional(t *testing.T) {
	svc, db := newTestService(t)
	a := mustCreateItem(t, db, "A")
	b := mustCreateItem(t, db, "B")
	c := mustCreateItem(t, db, "C")

	if err := svc.AddRelations(a, []int64{b, c}, 100); err != nil {
		t.Fatalf("AddRelations: %v", err)
	}

	relB, err := svc.RelationsOf(b)
	if err != nil {
		t.Fatalf("RelationsOf(b): %v", err)
	}
	if len(relB) != 1 || relB[0] != a {
		t.Errorf("RelationsOf(b) = %v, want [a]", relB)
	}
}

func TestAddRelationsRejectsSelfAndDangling(t *testing.T) {
	svc, db := newTestService(t)
	a := mustCreateItem(t, db, "A")

	if err := svc.AddRelations(a, []int64{a}, 100); err == nil {
		t.Error("AddRelations with a self target should fail")
	}
	if err := svc.AddRelations(a, []int64{99999}, 100); err == nil {
		t.Error("AddRelations with a dangling target should fail")
	}
}

func TestRemoveRelations(t *testing.T) {
	svc, db := newTestService(t)
	a := mustCreateItem(t, db, "A")
	b := mustCreateItem(t, db, "B")

	if err := svc.AddRelations(a, []int64{b}, 100); err != nil {
		t.Fatalf("AddRelations: %v", err)
	}
	if err := svc.RemoveRelations(a, []int64{b}); err != nil {
		t.Fatalf("RemoveRelations: %v", err)
	}

	relA, _ := svc.RelationsOf(a)
	relB, _ := svc.RelationsOf(b)
	if len(relA) != 0 || len(relB) != 0 {
		t.Errorf("relations not cleared: a->%v b->%v", relA, relB)
	}
}

func TestMapGraphDepthDefaultAndCap(t *testing.T) {
	svc, db := newTestService(t)
	a := mustCreateItem(t, db, "A")
	b := mustCreateItem(t, db, "B")
	c := mustCreateItem(t, db, "C")

	if err := svc.AddRelations(a, []int64{b}, 1); err != nil {
		t.Fatalf("AddRelations: %v", err)
	}
	if err := svc.AddRelations(b, []int64{c}, 2); err != nil {
		t.Fatalf("AddRelations: %v", err)
	}

	result, err := svc.MapGraph(MapGraphOptions{RootID: a})
	if err != nil {
		t.Fatalf("MapGraph: %v", err)
	}
	if result.MaxDepth != 2 {
		t.Errorf("MapGraph default depth = %d, want 2", result.MaxDepth)
	}
	if result.TotalNodes != 3 {
		t.Errorf("MapGraph() visited %d nodes, want 3", result.TotalNodes)
	}

	if _, err := svc.MapGraph(MapGraphOptions{RootID: 0}); err == nil {
		t.Error("MapGraph with RootID 0 should fail")
	}
	if _, err := svc.MapGraph(MapGraphOptions{RootID: 99999}); err == nil {
		t.Error("MapGraph with nonexistent root should fail")
	}
}
