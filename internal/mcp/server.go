package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shirokuma-kb/shirokuma/internal/database"
	"github.com/shirokuma-kb/shirokuma/internal/engine"
	"github.com/shirokuma-kb/shirokuma/internal/enrich"
	"github.com/shirokuma-kb/shirokuma/internal/logging"
	"github.com/shirokuma-kb/shirokuma/internal/ratelimit"
	"github.com/shirokuma-kb/shirokuma/internal/search"
	"github.com/shirokuma-kb/shirokuma/pkg/config"
)

const (
	ProtocolVersion = "2024-11-05"
	ServerName      = "shirokuma"
	ServerVersion   = "1.0.0"
)

// Server implements the MCP server, exposing 24 tools over JSON-RPC 2.0
// on stdio.
type Server struct {
	db          *database.Database
	cfg         *config.Config
	eng         *engine.Engine
	rateLimiter *ratelimit.Limiter
	formatter   *Formatter
	log         *logging.Logger

	// sessionID identifies this server process as a current-state writer
	// when a tool call omits updatedBy.
	sessionID string

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	mu          sync.Mutex
	initialized bool
}

// NewServer creates a new MCP server instance, wiring an Engine over db/cfg
// with the deterministic enricher (internal/enrich).
func NewServer(db *database.Database, cfg *config.Config) *Server {
	log := logging.GetLogger("mcp")
	log.Info("initializing MCP server", "version", ServerVersion, "protocol", ProtocolVersion)

	var rateLimiterInstance *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		rateLimiterInstance = ratelimit.NewLimiter(ratelimit.DefaultConfig())
		log.Info("rate limiting enabled")
	}

	return &Server{
		db:          db,
		cfg:         cfg,
		eng:         engine.New(db, cfg, enrich.NewDefaultEnricher()),
		rateLimiter: rateLimiterInstance,
		formatter:   NewFormatter(),
		log:         log,
		sessionID:   "mcp-" + uuid.NewString(),
		stdin:       os.Stdin,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
	}
}

// Run starts the MCP server main loop
func (s *Server) Run(ctx context.Context) error {
	s.log.Info("starting MCP server main loop")
	scanner := bufio.NewScanner(s.stdin)
	// Increase buffer size for large requests
	scanner.Buffer(make([]byte, 1024*1024), 10*1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			s.log.Info("context cancelled, shutting down")
			return ctx.Err()
		default:
		}

		line := scanner.Text()
		if line == "" {
			continue
		}

		response := s.handleRequest(ctx, line)
		if response != nil {
			s.sendResponse(response)
		}
	}

	if err := scanner.Err(); err != nil {
		s.log.Error("scanner error", "error", err)
		return fmt.Errorf("scanner error: %w", err)
	}

	s.log.Info("MCP server shutdown complete")
	return nil
}

// handleRequest processes a single JSON-RPC request
func (s *Server) handleRequest(ctx context.Context, line string) *Response {
	var req Request
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		s.log.Error("failed to parse request", "error", err)
		return &Response{
			JSONRPC: "2.0",
			Error: &RPCError{
				Code:    ParseError,
				Message: "Parse error",
				Data:    err.Error(),
			},
		}
	}

	s.log.Debug("received request", "method", req.Method, "id", req.ID)

	if req.JSONRPC != "2.0" {
		s.log.Warn("invalid jsonrpc version", "version", req.JSONRPC)
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &RPCError{
				Code:    InvalidRequest,
				Message: "Invalid Request",
				Data:    "jsonrpc must be '2.0'",
			},
		}
	}

	switch req.Method {
	case "initialize":
		s.log.Info("handling initialize request")
		return s.handleInitialize(req)
	case "initialized":
		s.log.Debug("received initialized notification")
		return nil
	case "tools/list":
		s.log.Debug("handling tools/list request")
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	case "ping":
		s.log.Debug("handling ping request")
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		s.log.Warn("method not found", "method", req.Method)
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &RPCError{
				Code:    MethodNotFound,
				Message: "Method not found",
				Data:    req.Method,
			},
		}
	}
}

// handleInitialize handles the initialize request
func (s *Server) handleInitialize(req Request) *Response {
	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()

	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: InitializeResult{
			ProtocolVersion: ProtocolVersion,
			Capabilities: ServerCapabilities{
				Tools: &ToolsCapability{
					ListChanged: false,
				},
			},
			ServerInfo: ServerInfo{
				Name:        ServerName,
				Version:     ServerVersion,
				Description: "Structured knowledge base with typed items, tags, relations, and search",
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req Request) *Response {
	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: ToolsListResult{
			Tools: s.getToolDefinitions(),
		},
	}
}

// handleToolsCall handles tool invocation
func (s *Server) handleToolsCall(ctx context.Context, req Request) *Response {
	var params CallToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.log.Error("failed to parse tool params", "error", err)
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &RPCError{
				Code:    InvalidParams,
				Message: "Invalid params",
				Data:    err.Error(),
			},
		}
	}

	s.log.LogRequest("tools/call", "tool", params.Name)

	if s.rateLimiter != nil {
		result := s.rateLimiter.Allow(params.Name)
		if !result.Allowed {
			s.log.Warn("rate limit exceeded", "tool", params.Name, "limit_type", result.LimitType, "retry_after_ms", result.RetryAfter.Milliseconds())
			return &Response{
				JSONRPC: "2.0",
				ID:      req.ID,
				Error: &RPCError{
					Code:    RateLimitExceeded,
					Message: "Rate limit exceeded",
					Data: RateLimitErrorData{
						RetryAfterMs: result.RetryAfter.Milliseconds(),
						LimitType:    result.LimitType,
						Message:      fmt.Sprintf("Rate limit exceeded for %s. Retry after %v.", result.LimitType, result.RetryAfter),
					},
				},
			}
		}
	}

	startTime := time.Now()

	result, err := s.callTool(ctx, params.Name, params.Arguments)
	if err != nil {
		duration := time.Since(startTime).Seconds() * 1000
		s.log.LogError("tool_call", err, "tool", params.Name, "duration_ms", duration)
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result: CallToolResult{
				Content: []ContentBlock{
					{Type: "text", Text: fmt.Sprintf("❌ **Error**\n\n```\n%v\n```", err)},
				},
				IsError: true,
			},
		}
	}

	duration := time.Since(startTime)
	durationMs := duration.Seconds() * 1000
	s.log.LogResponse("tools/call", durationMs, "tool", params.Name)

	formattedOutput := s.formatter.FormatToolResponse(params.Name, result, duration)

	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: CallToolResult{
			Content: []ContentBlock{
				{Type: "text", Text: formattedOutput},
			},
		},
	}
}

// callTool dispatches to the appropriate Engine method, one case per
// tool name.
func (s *Server) callTool(ctx context.Context, name string, args map[string]interface{}) (interface{}, error) {
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal arguments: %w", err)
	}

	switch name {
	case "create_item":
		var p CreateItemParams
		if err := json.Unmarshal(argsJSON, &p); err != nil {
			return nil, err
		}
		return s.eng.CreateItem(engine.CreateItemParams{
			Type: p.Type, Title: p.Title, Description: p.Description, Content: p.Content,
			Priority: p.Priority, Status: p.Status, Category: p.Category,
			StartDate: p.StartDate, EndDate: p.EndDate, Version: p.Version,
			Tags: p.Tags, Related: p.Related,
		})

	case "get_item":
		var p ItemIDParams
		if err := json.Unmarshal(argsJSON, &p); err != nil {
			return nil, err
		}
		return s.eng.GetItem(p.ID)

	case "update_item":
		var p UpdateItemParams
		if err := json.Unmarshal(argsJSON, &p); err != nil {
			return nil, err
		}
		_, tagsSet := args["tags"]
		_, relatedSet := args["related"]
		return s.eng.UpdateItem(p.ID, engine.UpdateItemParams{
			Title: p.Title, Description: p.Description, Content: p.Content,
			Priority: p.Priority, Status: p.Status, Category: p.Category,
			StartDate: p.StartDate, EndDate: p.EndDate, Version: p.Version,
			Tags: p.Tags, TagsSet: tagsSet, Related: p.Related, RelatedSet: relatedSet,
		})

	case "delete_item":
		var p ItemIDParams
		if err := json.Unmarshal(argsJSON, &p); err != nil {
			return nil, err
		}
		if err := s.eng.DeleteItem(p.ID); err != nil {
			return nil, err
		}
		return map[string]interface{}{"id": p.ID, "deleted": true}, nil

	case "list_items":
		var p ListItemsParams
		if err := json.Unmarshal(argsJSON, &p); err != nil {
			return nil, err
		}
		types := p.Types
		if p.Type != "" {
			types = append(types, p.Type)
		}
		var statuses []string
		if p.Status != "" {
			statuses = []string{p.Status}
		}
		return s.eng.ListItems(database.ItemFilters{
			Types: types, Statuses: statuses, Priority: p.Priority, Tags: p.Tags,
			StartDate: p.StartDate, EndDate: p.EndDate,
			IncludeClosedStatuses: p.IncludeClosedStatuses, Limit: p.Limit, Offset: p.Offset,
		})

	case "search_items":
		var p SearchItemsParams
		if err := json.Unmarshal(argsJSON, &p); err != nil {
			return nil, err
		}
		return s.eng.SearchItems(p.Query, p.Types, p.Limit, p.Offset)

	case "search_items_by_tag":
		var p SearchItemsByTagParams
		if err := json.Unmarshal(argsJSON, &p); err != nil {
			return nil, err
		}
		return s.eng.SearchItemsByTag(p.Tag, p.Types)

	case "search_suggest":
		var p SearchSuggestParams
		if err := json.Unmarshal(argsJSON, &p); err != nil {
			return nil, err
		}
		return s.eng.SearchSuggest(p.Prefix, p.Types, p.Limit)

	case "get_related_items":
		var p GetRelatedItemsParams
		if err := json.Unmarshal(argsJSON, &p); err != nil {
			return nil, err
		}
		strategy := search.RelatedStrategy(p.Strategy)
		if strategy == "" {
			strategy = search.StrategyHybrid
		}
		return s.eng.GetRelatedItems(p.ID, strategy, search.HybridWeights{
			Keywords: p.KeywordWeight, Concepts: p.ConceptWeight, Embedding: p.EmbeddingWeight,
		}, p.Limit)

	case "add_relations":
		var p RelationsParams
		if err := json.Unmarshal(argsJSON, &p); err != nil {
			return nil, err
		}
		return s.eng.AddRelations(p.ID, p.TargetIDs)

	case "remove_relations":
		var p RelationsParams
		if err := json.Unmarshal(argsJSON, &p); err != nil {
			return nil, err
		}
		return s.eng.RemoveRelations(p.ID, p.TargetIDs)

	case "change_item_type":
		var p ChangeItemTypeParams
		if err := json.Unmarshal(argsJSON, &p); err != nil {
			return nil, err
		}
		return s.eng.ChangeItemType(p.ID, p.ToType, p.Strip)

	case "get_current_state":
		return s.eng.GetCurrentState()

	case "update_current_state":
		var p UpdateCurrentStateParams
		if err := json.Unmarshal(argsJSON, &p); err != nil {
			return nil, err
		}
		if p.UpdatedBy == "" {
			p.UpdatedBy = s.sessionID
		}
		return s.eng.UpdateCurrentState(p.Content, p.Tags, p.Related, p.UpdatedBy)

	case "get_stats":
		return s.eng.GetStats()

	case "get_statuses":
		return s.eng.GetStatuses()

	case "get_tags":
		return s.eng.GetTags()

	case "create_tag":
		var p NameParams
		if err := json.Unmarshal(argsJSON, &p); err != nil {
			return nil, err
		}
		return s.eng.CreateTag(p.Name)

	case "delete_tag":
		var p NameParams
		if err := json.Unmarshal(argsJSON, &p); err != nil {
			return nil, err
		}
		if err := s.eng.DeleteTag(p.Name); err != nil {
			return nil, err
		}
		return map[string]interface{}{"name": p.Name, "deleted": true}, nil

	case "search_tags":
		var p SearchTagsParams
		if err := json.Unmarshal(argsJSON, &p); err != nil {
			return nil, err
		}
		return s.eng.SearchTags(p.Substring)

	case "get_types":
		var p GetTypesParams
		if err := json.Unmarshal(argsJSON, &p); err != nil {
			return nil, err
		}
		return s.eng.GetTypes(p.BaseType)

	case "create_type":
		var p CreateTypeParams
		if err := json.Unmarshal(argsJSON, &p); err != nil {
			return nil, err
		}
		return s.eng.CreateType(p.Name, p.BaseType, p.Description)

	case "update_type":
		var p UpdateTypeParams
		if err := json.Unmarshal(argsJSON, &p); err != nil {
			return nil, err
		}
		return s.eng.UpdateType(p.Name, p.Description)

	case "delete_type":
		var p NameParams
		if err := json.Unmarshal(argsJSON, &p); err != nil {
			return nil, err
		}
		if err := s.eng.DeleteType(p.Name); err != nil {
			return nil, err
		}
		return map[string]interface{}{"name": p.Name, "deleted": true}, nil

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// sendResponse sends a JSON-RPC response to stdout
func (s *Server) sendResponse(resp *Response) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(resp)
	if err != nil {
		s.log.Error("failed to marshal response", "error", err)
		return
	}

	fmt.Fprintln(s.stdout, string(data))
}

// getToolDefinitions returns all 24 tool definitions.
func (s *Server) getToolDefinitions() []Tool {
	return ToolDefinitions()
}

// ToolDefinitions returns the full JSON-RPC tool surface, independent of
// any running Server. Exposed so other front-ends (e.g. internal/restapi)
// can list the tool contract without spinning up a stdio server.
func ToolDefinitions() []Tool {
	min0 := float64(0)
	max1 := float64(1)
	strArray := &Property{Type: "string"}
	intArray := &Property{Type: "integer"}

	return []Tool{
		{
			Name:        "create_item",
			Description: "Create a new item of the given type",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"type":        {Type: "string", Description: "Registered item type name"},
					"title":       {Type: "string", Description: "Item title"},
					"description": {Type: "string", Description: "Short description"},
					"content":     {Type: "string", Description: "Body content"},
					"priority":    {Type: "string", Description: "CRITICAL, HIGH, MEDIUM, LOW, or MINIMAL", Default: "MEDIUM"},
					"status":      {Type: "string", Description: "Status name, defaults to the open seed status"},
					"category":    {Type: "string", Description: "Free-text category"},
					"startDate":   {Type: "string", Description: "YYYY-MM-DD, only for types that allow it"},
					"endDate":     {Type: "string", Description: "YYYY-MM-DD, only for types that allow it"},
					"version":     {Type: "string", Description: "Free-text version label"},
					"tags":        {Type: "array", Description: "Tag names, created if new", Items: strArray},
					"related":     {Type: "array", Description: "Item ids to relate to on creation", Items: intArray},
				},
				Required: []string{"type", "title"},
			},
		},
		{
			Name:        "get_item",
			Description: "Retrieve a single item by id",
			InputSchema: InputSchema{
				Type:       "object",
				Properties: map[string]Property{"id": {Type: "integer", Description: "Item id"}},
				Required:   []string{"id"},
			},
		},
		{
			Name:        "update_item",
			Description: "Partially update an item; only supplied fields change",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"id":          {Type: "integer", Description: "Item id"},
					"title":       {Type: "string"},
					"description": {Type: "string"},
					"content":     {Type: "string"},
					"priority":    {Type: "string"},
					"status":      {Type: "string"},
					"category":    {Type: "string"},
					"startDate":   {Type: "string"},
					"endDate":     {Type: "string"},
					"version":     {Type: "string"},
					"tags":        {Type: "array", Description: "Replaces the full tag set", Items: strArray},
					"related":     {Type: "array", Description: "Replaces the full related-id set", Items: intArray},
				},
				Required: []string{"id"},
			},
		},
		{
			Name:        "delete_item",
			Description: "Delete an item and its relation edges",
			InputSchema: InputSchema{
				Type:       "object",
				Properties: map[string]Property{"id": {Type: "integer"}},
				Required:   []string{"id"},
			},
		},
		{
			Name:        "list_items",
			Description: "List items by filter, excluding closed statuses by default",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"type":                  {Type: "string"},
					"types":                 {Type: "array", Items: strArray},
					"status":                {Type: "string"},
					"priority":              {Type: "string"},
					"tags":                  {Type: "array", Items: strArray},
					"startDate":             {Type: "string"},
					"endDate":               {Type: "string"},
					"includeClosedStatuses": {Type: "boolean", Default: false},
					"limit":                 {Type: "integer"},
					"offset":                {Type: "integer"},
				},
			},
		},
		{
			Name:        "search_items",
			Description: "Structured-query keyword search across items",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"query":  {Type: "string", Description: "key:value terms plus free text"},
					"types":  {Type: "array", Items: strArray},
					"limit":  {Type: "integer"},
					"offset": {Type: "integer"},
				},
				Required: []string{"query"},
			},
		},
		{
			Name:        "search_items_by_tag",
			Description: "Return items carrying a tag, grouped by type",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"tag":   {Type: "string"},
					"types": {Type: "array", Items: strArray},
				},
				Required: []string{"tag"},
			},
		},
		{
			Name:        "search_suggest",
			Description: "Title-prefix autocomplete suggestions",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"prefix": {Type: "string"},
					"types":  {Type: "array", Items: strArray},
					"limit":  {Type: "integer"},
				},
				Required: []string{"prefix"},
			},
		},
		{
			Name:        "get_related_items",
			Description: "Rank items related to an anchor by keywords, concepts, embedding, or a weighted hybrid",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"id":              {Type: "integer"},
					"strategy":        {Type: "string", Enum: []string{"keywords", "concepts", "embedding", "hybrid"}, Default: "hybrid"},
					"keywordWeight":   {Type: "number", Minimum: &min0, Maximum: &max1},
					"conceptWeight":   {Type: "number", Minimum: &min0, Maximum: &max1},
					"embeddingWeight": {Type: "number", Minimum: &min0, Maximum: &max1},
					"limit":           {Type: "integer"},
				},
				Required: []string{"id"},
			},
		},
		{
			Name:        "add_relations",
			Description: "Add mirrored relation edges between an item and a set of targets",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"id":        {Type: "integer"},
					"targetIds": {Type: "array", Items: intArray},
				},
				Required: []string{"id", "targetIds"},
			},
		},
		{
			Name:        "remove_relations",
			Description: "Remove relation edges between an item and a set of targets",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"id":        {Type: "integer"},
					"targetIds": {Type: "array", Items: intArray},
				},
				Required: []string{"id", "targetIds"},
			},
		},
		{
			Name:        "change_item_type",
			Description: "Change an item's type, provided both share the same base type",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"id":     {Type: "integer"},
					"toType": {Type: "string"},
					"strip":  {Type: "boolean", Description: "Allow dropping fields the new type no longer permits", Default: false},
				},
				Required: []string{"id", "toType"},
			},
		},
		{
			Name:        "get_current_state",
			Description: "Read the project current-state singleton",
			InputSchema: InputSchema{Type: "object"},
		},
		{
			Name:        "update_current_state",
			Description: "Overwrite the project current-state singleton",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"content":   {Type: "string"},
					"tags":      {Type: "array", Items: strArray},
					"related":   {Type: "array", Items: intArray},
					"updatedBy": {Type: "string"},
				},
				Required: []string{"content"},
			},
		},
		{
			Name:        "get_stats",
			Description: "Aggregate item counts by type and status",
			InputSchema: InputSchema{Type: "object"},
		},
		{
			Name:        "get_statuses",
			Description: "List every registered status",
			InputSchema: InputSchema{Type: "object"},
		},
		{
			Name:        "get_tags",
			Description: "List every tag alphabetically",
			InputSchema: InputSchema{Type: "object"},
		},
		{
			Name:        "create_tag",
			Description: "Register a new tag, failing if it already exists",
			InputSchema: InputSchema{
				Type:       "object",
				Properties: map[string]Property{"name": {Type: "string"}},
				Required:   []string{"name"},
			},
		},
		{
			Name:        "delete_tag",
			Description: "Remove a tag, failing if any item still carries it",
			InputSchema: InputSchema{
				Type:       "object",
				Properties: map[string]Property{"name": {Type: "string"}},
				Required:   []string{"name"},
			},
		},
		{
			Name:        "search_tags",
			Description: "Find tags whose name contains a substring",
			InputSchema: InputSchema{
				Type:       "object",
				Properties: map[string]Property{"substring": {Type: "string"}},
				Required:   []string{"substring"},
			},
		},
		{
			Name:        "get_types",
			Description: "List registered item types, optionally filtered by base type",
			InputSchema: InputSchema{
				Type:       "object",
				Properties: map[string]Property{"baseType": {Type: "string"}},
			},
		},
		{
			Name:        "create_type",
			Description: "Register a new item type under a base type",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"name":        {Type: "string"},
					"baseType":    {Type: "string"},
					"description": {Type: "string"},
				},
				Required: []string{"name", "baseType"},
			},
		},
		{
			Name:        "update_type",
			Description: "Change a type's description",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"name":        {Type: "string"},
					"description": {Type: "string"},
				},
				Required: []string{"name", "description"},
			},
		},
		{
			Name:        "delete_type",
			Description: "Remove a type definition, failing if any item still carries it",
			InputSchema: InputSchema{
				Type:       "object",
				Properties: map[string]Property{"name": {Type: "string"}},
				Required:   []string{"name"},
			},
		},
	}
}
