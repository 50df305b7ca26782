package restapi

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/shirokuma-kb/shirokuma/internal/database"
	"github.com/shirokuma-kb/shirokuma/internal/mcp"
)

func (s *Server) health(c *gin.Context) {
	ok(c, gin.H{"status": "ok"})
}

func (s *Server) stats(c *gin.Context) {
	stats, err := s.eng.GetStats()
	if err != nil {
		engineError(c, err)
		return
	}
	ok(c, stats)
}

func splitCSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (s *Server) listItems(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))

	items, err := s.eng.ListItems(database.ItemFilters{
		Types:                 splitCSV(c.Query("type")),
		Statuses:              splitCSV(c.Query("status")),
		Priority:              c.Query("priority"),
		Tags:                  splitCSV(c.Query("tag")),
		IncludeClosedStatuses: c.Query("include_closed") == "true",
		Limit:                 limit,
		Offset:                offset,
	})
	if err != nil {
		engineError(c, err)
		return
	}
	ok(c, items)
}

func (s *Server) getItem(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "id must be an integer")
		return
	}
	item, err := s.eng.GetItem(id)
	if err != nil {
		engineError(c, err)
		return
	}
	ok(c, item)
}

func (s *Server) currentState(c *gin.Context) {
	state, err := s.eng.GetCurrentState()
	if err != nil {
		engineError(c, err)
		return
	}
	ok(c, state)
}

func (s *Server) listTags(c *gin.Context) {
	tags, err := s.eng.GetTags()
	if err != nil {
		engineError(c, err)
		return
	}
	ok(c, tags)
}

func (s *Server) listStatuses(c *gin.Context) {
	statuses, err := s.eng.GetStatuses()
	if err != nil {
		engineError(c, err)
		return
	}
	ok(c, statuses)
}

func (s *Server) listTypes(c *gin.Context) {
	types, err := s.eng.GetTypes(c.Query("base_type"))
	if err != nil {
		engineError(c, err)
		return
	}
	ok(c, types)
}

func (s *Server) search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		badRequest(c, "q is required")
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))

	results, err := s.eng.SearchItems(query, splitCSV(c.Query("type")), limit, offset)
	if err != nil {
		engineError(c, err)
		return
	}
	ok(c, results)
}

func (s *Server) listTools(c *gin.Context) {
	tools := mcp.ToolDefinitions()
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name
	}
	ok(c, names)
}
