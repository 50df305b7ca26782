// Package restapi provides a thin, read-only HTTP status surface over the
// Engine Facade. It exists for dashboards and health checks, not as a
// second write contract: the JSON-RPC/MCP tool surface (internal/mcp) is
// the one stable interface agents mutate state through.
package restapi
