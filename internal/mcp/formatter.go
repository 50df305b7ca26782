package mcp

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shirokuma-kb/shirokuma/internal/database"
	"github.com/shirokuma-kb/shirokuma/internal/engine"
)

// Formatter handles UX-friendly output formatting for MCP responses
type Formatter struct{}

// NewFormatter creates a new formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

// FormatToolResponse formats a tool response with rich UX elements
func (f *Formatter) FormatToolResponse(toolName string, result interface{}, duration time.Duration) string {
	var sb strings.Builder

	icon := f.getToolIcon(toolName)
	sb.WriteString(fmt.Sprintf("\n%s **%s**\n", icon, f.formatToolName(toolName)))
	sb.WriteString(f.getToolTagline(toolName))
	sb.WriteString("\n")
	sb.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	switch toolName {
	case "create_item", "get_item", "update_item", "change_item_type", "add_relations", "remove_relations":
		sb.WriteString(f.formatItemView(result))
	case "list_items", "search_suggest":
		sb.WriteString(f.formatItemSummaries(result))
	case "search_items", "get_related_items":
		sb.WriteString(f.formatSearchResults(result))
	case "search_items_by_tag":
		sb.WriteString(f.formatGroupedSummaries(result))
	case "get_current_state", "update_current_state":
		sb.WriteString(f.formatCurrentState(result))
	case "get_stats":
		sb.WriteString(f.formatStats(result))
	case "get_statuses":
		sb.WriteString(f.formatStatuses(result))
	case "get_tags", "search_tags":
		sb.WriteString(f.formatTags(result))
	case "create_tag":
		sb.WriteString(f.formatTag(result))
	case "get_types":
		sb.WriteString(f.formatTypes(result))
	case "create_type", "update_type":
		sb.WriteString(f.formatType(result))
	default:
		sb.WriteString(f.fallbackJSON(result))
	}

	sb.WriteString("\n\n")
	sb.WriteString(f.formatPerformance(duration))

	suggestions := f.getSuggestions(toolName)
	if len(suggestions) > 0 {
		sb.WriteString("\n\n")
		sb.WriteString("💡 **Next Steps**\n")
		for _, s := range suggestions {
			sb.WriteString(fmt.Sprintf("   → %s\n", s))
		}
	}

	sb.WriteString("\n\n")
	sb.WriteString("<details>\n<summary>📋 Raw JSON Response</summary>\n\n```json\n")
	jsonBytes, _ := json.MarshalIndent(result, "", "  ")
	sb.WriteString(string(jsonBytes))
	sb.WriteString("\n```\n</details>")

	return sb.String()
}

func (f *Formatter) getToolIcon(toolName string) string {
	icons := map[string]string{
		"create_item":          "✨",
		"get_item":             "📖",
		"update_item":          "✏️",
		"delete_item":          "🗑️",
		"list_items":           "📋",
		"search_items":         "🔍",
		"search_items_by_tag":  "🏷️",
		"search_suggest":       "💡",
		"get_related_items":    "🔗",
		"add_relations":        "🕸️",
		"remove_relations":     "✂️",
		"change_item_type":     "🔄",
		"get_current_state":    "📌",
		"update_current_state": "📌",
		"get_stats":            "📈",
		"get_statuses":         "🚦",
		"get_tags":             "🏷️",
		"create_tag":           "🏷️",
		"delete_tag":           "🗑️",
		"search_tags":          "🏷️",
		"get_types":            "📐",
		"create_type":          "📐",
		"update_type":          "📐",
		"delete_type":          "🗑️",
	}
	if icon, ok := icons[toolName]; ok {
		return icon
	}
	return "⚡"
}

func (f *Formatter) formatToolName(name string) string {
	parts := strings.Split(name, "_")
	for i, p := range parts {
		parts[i] = strings.Title(p)
	}
	return strings.Join(parts, " ")
}

func (f *Formatter) getToolTagline(toolName string) string {
	taglines := map[string]string{
		"create_item":          "Adding a new item to the knowledge base",
		"get_item":             "Retrieving a single item",
		"update_item":          "Applying a partial update",
		"list_items":           "Listing items by filter",
		"search_items":         "Running a structured query across items",
		"search_items_by_tag":  "Grouping items that carry a tag",
		"search_suggest":       "Title-prefix autocomplete",
		"get_related_items":    "Ranking related items",
		"add_relations":        "Linking items together",
		"remove_relations":     "Unlinking items",
		"change_item_type":     "Reassigning an item's type",
		"get_current_state":    "Reading the project current-state",
		"update_current_state": "Overwriting the project current-state",
		"get_stats":            "Aggregating item counts",
		"get_statuses":         "Listing the status workflow",
		"get_tags":             "Listing every tag",
		"create_tag":           "Registering a new tag",
		"search_tags":          "Searching tag names",
		"get_types":            "Listing registered item types",
		"create_type":          "Registering a new item type",
		"update_type":          "Updating a type's description",
	}
	if tagline, ok := taglines[toolName]; ok {
		return fmt.Sprintf("*%s*", tagline)
	}
	return ""
}

func (f *Formatter) formatItemView(result interface{}) string {
	item, ok := result.(*database.ItemView)
	if !ok {
		return f.fallbackJSON(result)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("**#%d — %s**\n\n", item.ID, item.Title))
	if item.Description != "" {
		sb.WriteString(fmt.Sprintf("> %s\n\n", item.Description))
	}
	sb.WriteString("```yaml\n")
	sb.WriteString(fmt.Sprintf("type: %s\n", item.Type))
	sb.WriteString(fmt.Sprintf("status: %s\n", item.StatusName))
	sb.WriteString(fmt.Sprintf("priority: %s\n", item.Priority))
	if len(item.Tags) > 0 {
		sb.WriteString(fmt.Sprintf("tags: [%s]\n", strings.Join(item.Tags, ", ")))
	}
	if len(item.Related) > 0 {
		sb.WriteString(fmt.Sprintf("related: %v\n", item.Related))
	}
	sb.WriteString(fmt.Sprintf("updated_at: %s\n", f.formatMillis(item.UpdatedAt)))
	sb.WriteString("```")
	return sb.String()
}

func (f *Formatter) formatItemSummaries(result interface{}) string {
	items, ok := result.([]database.ItemSummary)
	if !ok {
		return f.fallbackJSON(result)
	}
	if len(items) == 0 {
		return "```\nNo items match.\n```"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found **%d** item(s):\n\n", len(items)))
	for _, item := range items {
		sb.WriteString(fmt.Sprintf("- `#%d` **%s** [%s/%s]", item.ID, item.Title, item.Type, item.StatusName))
		if len(item.Tags) > 0 {
			sb.WriteString(fmt.Sprintf(" — %s", strings.Join(item.Tags, ", ")))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (f *Formatter) formatGroupedSummaries(result interface{}) string {
	grouped, ok := result.(map[string][]database.ItemSummary)
	if !ok {
		return f.fallbackJSON(result)
	}
	if len(grouped) == 0 {
		return "```\nNo items carry that tag.\n```"
	}

	var sb strings.Builder
	for typ, items := range grouped {
		sb.WriteString(fmt.Sprintf("### %s (%d)\n", typ, len(items)))
		for _, item := range items {
			sb.WriteString(fmt.Sprintf("  - `#%d` %s\n", item.ID, item.Title))
		}
	}
	return sb.String()
}

func (f *Formatter) formatSearchResults(result interface{}) string {
	results, ok := result.([]engine.SearchResult)
	if !ok {
		return f.fallbackJSON(result)
	}
	if len(results) == 0 {
		return "```\nNo matching items.\n```\n\n💡 Try broadening the query."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found **%d** result(s):\n\n", len(results)))
	for i, r := range results {
		bar := f.makeProgressBar(r.Relevance, 10)
		sb.WriteString(fmt.Sprintf("%d. `#%d` **%s** %s %.0f%%\n", i+1, r.Item.ID, r.Item.Title, bar, r.Relevance*100))
	}
	return sb.String()
}

func (f *Formatter) formatCurrentState(result interface{}) string {
	state, ok := result.(*database.CurrentState)
	if !ok {
		return f.fallbackJSON(result)
	}

	var sb strings.Builder
	sb.WriteString("```\n")
	sb.WriteString(state.Content)
	sb.WriteString("\n```\n\n")
	if len(state.Tags) > 0 {
		sb.WriteString(fmt.Sprintf("tags: %s\n", strings.Join(state.Tags, ", ")))
	}
	if len(state.Related) > 0 {
		sb.WriteString(fmt.Sprintf("related: %v\n", state.Related))
	}
	sb.WriteString(fmt.Sprintf("updated by %s at %s", state.UpdatedBy, f.formatMillis(state.UpdatedAt)))
	return sb.String()
}

func (f *Formatter) formatStats(result interface{}) string {
	stats, ok := result.(*database.Stats)
	if !ok {
		return f.fallbackJSON(result)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📦 **%d** tags in use, last updated %s\n\n", stats.TotalTags, f.formatMillis(stats.LastUpdatedAt)))
	sb.WriteString("**By type:**\n")
	for typ, count := range stats.ItemsByType {
		sb.WriteString(fmt.Sprintf("  - %s: %d\n", typ, count))
	}
	sb.WriteString("\n**By status:**\n")
	for status, count := range stats.ItemsByStatus {
		sb.WriteString(fmt.Sprintf("  - %s: %d\n", status, count))
	}
	return sb.String()
}

func (f *Formatter) formatStatuses(result interface{}) string {
	statuses, ok := result.([]database.Status)
	if !ok {
		return f.fallbackJSON(result)
	}
	var sb strings.Builder
	for _, s := range statuses {
		closable := ""
		if s.IsClosable {
			closable = " (closable)"
		}
		sb.WriteString(fmt.Sprintf("%d. %s%s\n", s.SortOrder, s.Name, closable))
	}
	return sb.String()
}

func (f *Formatter) formatTags(result interface{}) string {
	tags, ok := result.([]database.Tag)
	if !ok {
		return f.fallbackJSON(result)
	}
	if len(tags) == 0 {
		return "```\nNo tags found.\n```"
	}
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.Name
	}
	return strings.Join(names, ", ")
}

func (f *Formatter) formatTag(result interface{}) string {
	tag, ok := result.(database.Tag)
	if !ok {
		return f.fallbackJSON(result)
	}
	return fmt.Sprintf("✅ Tag **%s** created (id %d)", tag.Name, tag.ID)
}

func (f *Formatter) formatTypes(result interface{}) string {
	types, ok := result.([]database.TypeDefinition)
	if !ok {
		return f.fallbackJSON(result)
	}
	var sb strings.Builder
	for _, t := range types {
		sb.WriteString(fmt.Sprintf("- **%s** (base: %s)", t.Name, t.BaseType))
		if t.Description != "" {
			sb.WriteString(fmt.Sprintf(" — %s", t.Description))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (f *Formatter) formatType(result interface{}) string {
	def, ok := result.(database.TypeDefinition)
	if !ok {
		return f.fallbackJSON(result)
	}
	return fmt.Sprintf("✅ Type **%s** (base: %s) — %s", def.Name, def.BaseType, def.Description)
}

func (f *Formatter) formatPerformance(duration time.Duration) string {
	ms := duration.Milliseconds()
	var speedIcon string
	switch {
	case ms < 100:
		speedIcon = "⚡"
	case ms < 500:
		speedIcon = "🚀"
	case ms < 1000:
		speedIcon = "✓"
	default:
		speedIcon = "🐢"
	}
	return fmt.Sprintf("%s *Completed in %dms*", speedIcon, ms)
}

func (f *Formatter) getSuggestions(toolName string) []string {
	suggestions := map[string][]string{
		"create_item": {
			"Use `search_items` to confirm it's indexed",
			"Use `add_relations` to link it to related work",
		},
		"search_items": {
			"Use `get_item` for full details on a result",
			"Use `get_related_items` to explore connections",
		},
		"get_related_items": {
			"Use `add_relations` to make a strong match permanent",
		},
		"list_items": {
			"Narrow with `type`, `status`, or `tags` filters",
		},
	}
	if s, ok := suggestions[toolName]; ok {
		return s
	}
	return nil
}

func (f *Formatter) makeProgressBar(value float64, width int) string {
	if value < 0 {
		value = 0
	}
	if value > 1 {
		value = 1
	}
	filled := int(value * float64(width))
	empty := width - filled
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", empty) + "]"
}

func (f *Formatter) formatMillis(ms int64) string {
	if ms == 0 {
		return "—"
	}
	return time.UnixMilli(ms).Format("Jan 02, 2006 15:04")
}

func (f *Formatter) fallbackJSON(result interface{}) string {
	jsonBytes, _ := json.MarshalIndent(result, "", "  ")
	return string(jsonBytes)
}
