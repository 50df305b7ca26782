// Package mcp provides Model Context Protocol server implementation.
//
// Implements JSON-RPC 2.0 protocol over stdio for AI agent integration,
// exposing 24 tools over the Engine Facade: item CRUD, search, relation
// graph maintenance, current-state, and the tag/status/type registries.
package mcp
