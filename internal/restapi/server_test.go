package restapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/shirokuma-kb/shirokuma/internal/database"
	"github.com/shirokuma-kb/shirokuma/internal/engine"
	"github.com/shirokuma-kb/shirokuma/pkg/config"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.InitSchema(); err != nil {
		t.Fatalf("InitSchema: %v", err)
	}
	return NewServer(db, config.DefaultConfig())
}

func doGet(t *testing.T, s *Server, path string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	var body Response
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response body: %v", err)
	}
	return rec, body
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec, body := doGet(t, s, "/api/v1/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !body.Success {
		t.Fatalf("Success = false, want true")
	}
}

func TestStatsEmptyDatabase(t *testing.T) {
	s := newTestServer(t)
	rec, body := doGet(t, s, "/api/v1/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !body.Success {
		t.Fatalf("Success = false, want true")
	}
}

func TestGetItemNotFound(t *testing.T) {
	s := newTestServer(t)
	rec, body := doGet(t, s, "/api/v1/items/999")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if body.Success {
		t.Fatalf("Success = true, want false for a missing item")
	}
}

func TestGetItemBadID(t *testing.T) {
	s := newTestServer(t)
	rec, _ := doGet(t, s, "/api/v1/items/not-a-number")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestListItemsAndGetItem(t *testing.T) {
	s := newTestServer(t)

	created, err := s.eng.CreateItem(engine.CreateItemParams{
		Type:  "issues",
		Title: "Login broken",
	})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	rec, body := doGet(t, s, "/api/v1/items")
	if rec.Code != http.StatusOK || !body.Success {
		t.Fatalf("list items: status=%d success=%v", rec.Code, body.Success)
	}

	rec, body = doGet(t, s, "/api/v1/items/"+strconv.FormatInt(created.ID, 10))
	if rec.Code != http.StatusOK {
		t.Fatalf("get item: status=%d", rec.Code)
	}
	if !body.Success {
		t.Fatalf("get item: Success = false")
	}
}

func TestListTools(t *testing.T) {
	s := newTestServer(t)
	rec, body := doGet(t, s, "/api/v1/tools")
	if rec.Code != http.StatusOK || !body.Success {
		t.Fatalf("list tools: status=%d success=%v", rec.Code, body.Success)
	}
}
