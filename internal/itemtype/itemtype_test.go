package itemtype

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

func TestRegisterAndGet(t *testing.T) {
	r := newTestRegistry(t)

	def, err := r.Register("bugs", "tasks", "tracked defects")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if def.BaseType != "tasks" {
		t.Errorf("Register() base type = %q, want tasks", def.BaseType)
	}

	got, err := r.Get("bugs")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Description != "tracked defects" {
		t.Errorf("Get().Description = %q", got.Description)
	}
}

func TestRegisterRejectsBadNames(t *testing.T) {
	r := newTestRegistry(t)

	cases := []string{"Bugs", "1bugs", "bu gs", "", "bu-gs"}
	for _, name := range cases {
		if _, err := r.Register(name, "tasks", ""); err == nil {
			t.Errorf("Register(%q) succeeded, want ErrInvalidName", name)
		} else if _, ok := err.(ErrInvalidName); !ok {
			t.Errorf("Register(%q) err = %T, want ErrInvalidName", name, err)
		}
	}
}

func TestRegisterRejectsUnknownBaseType(t *testing.T) {
	r := newTestRegistry(t)
	if _, err := r.Register("widgets", "gadgets", ""); err == nil {
		t.Error("Register with unknown base type should fail")
	} else if _, ok := err.(ErrInvalidBaseType); !ok {
		t.Errorf("err = %T, want ErrInvalidBaseType", err)
	}
}

func TestRegisterRejectsDuplicate(t *testing.T) {
	r := newTestRegistry(t)
	if _, err := r.Register("bugs", "tasks", ""); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := r.Register("bugs", "tasks", ""); err == nil {
		t.Error("second Register with same name should fail")
	} else if _, ok := err.(ErrAlreadyExists); !ok {
		t.Errorf("err = %T, want ErrAlreadyExists", err)
	}
}

func TestSeededTypesArePresent(t *testing.T) {
	r := newTestRegistry(t)
	defs, err := r.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(defs) != 6 {
		t.Errorf("List() returned %d seeded types, want 6", len(defs))
	}

	tasks, err := r.List("tasks")
	if err != nil {
		t.Fatalf("List(tasks): %v", err)
	}
	for _, d := range tasks {
		if d.BaseType != "tasks" {
			t.Errorf("List(tasks) returned %q with base type %q", d.Name, d.BaseType)
		}
	}
}

func TestRemoveRejectsInUseAndReserved(t *testing.T) {
	r := newTestRegistry(t)

	if err := r.Remove("issues"); err == nil {
		t.Error("Remove of a reserved seed type should fail")
	}

	if _, err := r.Register("bugs", "tasks", ""); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Remove("bugs"); err != nil {
		t.Errorf("Remove of unused custom type should succeed: %v", err)
	}
	if _, err := r.Get("bugs"); err == nil {
		t.Error("Get after Remove should fail")
	}
}

func TestFieldsForTasksAndDocuments(t *testing.T) {
	r := newTestRegistry(t)

	taskFields, err := r.FieldsFor("issues")
	if err != nil {
		t.Fatalf("FieldsFor(issues): %v", err)
	}
	for _, f := range []string{"id", "title", "content", "priority", "statusId", "startDate", "endDate"} {
		if !taskFields.Allows(f) {
			t.Errorf("task FieldSchema missing field %q", f)
		}
	}

	docFields, err := r.FieldsFor("docs")
	if err != nil {
		t.Fatalf("FieldsFor(docs): %v", err)
	}
	if docFields.Allows("startDate") {
		t.Error("document FieldSchema should not allow startDate")
	}
	if !docFields.Allows("content") {
		t.Error("document FieldSchema should allow content")
	}
}

func TestCacheInvalidatesOnWrite(t *testing.T) {
	r := newTestRegistry(t)

	if _, err := r.List(""); err != nil {
		t.Fatalf("List (warm cache): %v", err)
	}
	if _, err := r.Register("bugs", "tasks", ""); err != nil {
		t.Fatalf("Register: %v", err)
	}
	defs, err := r.List("")
	if err != nil {
		t.Fatalf("List (after register): %v", err)
	}
	if len(defs) != 7 {
		t.Errorf("List() after Register = %d types, want 7 (cache should have invalidated)", len(defs))
	}
}
