package statusreg

import (
	"path/filepath"
	"testing"

	"github.com/shirokuma-kb/shirokuma/internal/database"
)

func newTestRegistry(t *testing.T) *Registry {
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

func TestListReturnsSeeds(t *testing.T) {
	r := newTestRegistry(t)
	statuses, err := r.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(statuses) != len(database.StatusSeeds) {
		t.Errorf("List() returned %d, want %d", len(statuses), len(database.StatusSeeds))
	}
}

func TestGetByNameCaseInsensitive(t *testing.T) {
	r := newTestRegistry(t)
	for _, name := range []string{"Closed", "closed", "CLOSED"} {
		s, err := r.GetByName(name)
		if err != nil {
			t.Fatalf("GetByName(%q): %v", name, err)
		}
		if s.Name != "Closed" {
			t.Errorf("GetByName(%q).Name = %q, want Closed", name, s.Name)
		}
	}
}

func TestGetByID(t *testing.T) {
	r := newTestRegistry(t)
	want, err := r.GetByName("Open")
	if err != nil {
		t.Fatalf("GetByName: %v", err)
	}
	got, err := r.GetByID(want.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "Open" {
		t.Errorf("GetByID(%d).Name = %q, want Open", want.ID, got.Name)
	}
}

func TestClosableIDsMatchSeeds(t *testing.T) {
	r := newTestRegistry(t)
	ids, err := r.ClosableIDs()
	if err != nil {
		t.Fatalf("ClosableIDs: %v", err)
	}
	want := 0
	for _, s := range database.StatusSeeds {
		if s.IsClosable {
			want++
		}
	}
	if len(ids) != want {
		t.Errorf("ClosableIDs() returned %d, want %d", len(ids), want)
	}
}

func TestDefaultIDResolvesToOpen(t *testing.T) {
	r := newTestRegistry(t)
	id, err := r.DefaultID()
	if err != nil {
		t.Fatalf("DefaultID: %v", err)
	}
	s, err := r.GetByID(id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if s.Name != "Open" {
		t.Errorf("DefaultID() resolves to %q, want Open", s.Name)
	}
}

func TestInvalidateForcesReload(t *testing.T) {
	r := newTestRegistry(t)
	if _, err := r.GetByName("Open"); err != nil {
		t.Fatalf("GetByName (warm cache): %v", err)
	}
	r.Invalidate()
	s, err := r.GetByName("Open")
	if err != nil {
		t.Fatalf("GetByName (after invalidate): %v", err)
	}
	if s.Name != "Open" {
		t.Errorf("GetByName() after Invalidate = %q, want Open", s.Name)
	}
}
