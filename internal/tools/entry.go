package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/HendryAvila/deepframe/internal/workspace"
	"github.com/mark3labs/mcp-go/mcp"
)

// ─── EntryCreateTool ────────────────────────────────────────────────────────

// EntryCreateTool handles the deepframe_entry_create MCP tool.
type EntryCreateTool struct {
	ws *workspace.Workspace
}

// NewEntryCreateTool creates an EntryCreateTool.
func NewEntryCreateTool(ws *workspace.Workspace) *EntryCreateTool {
	return &EntryCreateTool{ws: ws}
}

// Definition returns the MCP tool definition for deepframe_entry_create.
func (t *EntryCreateTool) Definition() mcp.Tool {
	return mcp.NewTool("deepframe_entry_create",
		mcp.WithDescription(
			"Start an empty entry (a tagged excerpt) against a framework. "+
				"Fill it in with deepframe_attribute_set.",
		),
		mcp.WithString("framework_id",
			mcp.Required(),
			mcp.Description("Framework ID"),
		),
		mcp.WithString("title",
			mcp.Description("Short label for the entry, e.g. the excerpt being tagged"),
		),
	)
}

// Handle processes the deepframe_entry_create tool call.
func (t *EntryCreateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := required(req, "framework_id"); res != nil {
		return res, nil
	}
	e, err := t.ws.CreateEntry(req.GetString("framework_id", ""), req.GetString("title", ""))
	if err != nil {
		return domainError("creating entry", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Created entry %s for framework %s", e.ID, e.FrameworkID)), nil
}

// ─── EntryListTool ──────────────────────────────────────────────────────────

// EntryListTool handles the deepframe_entry_list MCP tool.
type EntryListTool struct {
	ws *workspace.Workspace
}

// NewEntryListTool creates an EntryListTool.
func NewEntryListTool(ws *workspace.Workspace) *EntryListTool {
	return &EntryListTool{ws: ws}
}

// Definition returns the MCP tool definition for deepframe_entry_list.
func (t *EntryListTool) Definition() mcp.Tool {
	return mcp.NewTool("deepframe_entry_list",
		mcp.WithDescription("List the entries tagged against a framework."),
		mcp.WithString("framework_id",
			mcp.Required(),
			mcp.Description("Framework ID"),
		),
	)
}

// Handle processes the deepframe_entry_list tool call.
func (t *EntryListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := required(req, "framework_id"); res != nil {
		return res, nil
	}
	entries, err := t.ws.Entries(req.GetString("framework_id", ""))
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	if len(entries) == 0 {
		return mcp.NewToolResultText("No entries yet. Create one with `deepframe_entry_create`."), nil
	}
	var b strings.Builder
	b.WriteString("| ID | Title | Answers | Updated |\n")
	b.WriteString("|----|-------|---------|---------|\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "| %s | %s | %d | %s |\n", e.ID, e.Title, len(e.Attributes), e.UpdatedAt)
	}
	return mcp.NewToolResultText(b.String()), nil
}

// ─── EntryShowTool ──────────────────────────────────────────────────────────

// EntryShowTool handles the deepframe_entry_show MCP tool.
type EntryShowTool struct {
	ws *workspace.Workspace
}

// NewEntryShowTool creates an EntryShowTool.
func NewEntryShowTool(ws *workspace.Workspace) *EntryShowTool {
	return &EntryShowTool{ws: ws}
}

// Definition returns the MCP tool definition for deepframe_entry_show.
func (t *EntryShowTool) Definition() mcp.Tool {
	return mcp.NewTool("deepframe_entry_show",
		mcp.WithDescription(
			"Show an entry against its framework: every widget in document order with its "+
				"answer and whether its condition currently makes it visible.",
		),
		mcp.WithString("entry_id",
			mcp.Required(),
			mcp.Description("Entry ID"),
		),
		mcp.WithString("format",
			mcp.Description("table (default) or json"),
		),
	)
}

// Handle processes the deepframe_entry_show tool call.
func (t *EntryShowTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := required(req, "entry_id"); res != nil {
		return res, nil
	}
	view, err := t.ws.ShowEntry(req.GetString("entry_id", ""))
	if err != nil {
		return domainError("loading entry", err), nil
	}
	if req.GetString("format", "table") == "json" {
		return jsonResult(view)
	}

	var b strings.Builder
	title := view.Entry.Title
	if title == "" {
		title = view.Entry.ID
	}
	fmt.Fprintf(&b, "# Entry %s\n\nframework: %s\n\n", title, view.Entry.FrameworkID)
	b.WriteString("| Widget | Type | Visible | Answer |\n")
	b.WriteString("|--------|------|---------|--------|\n")
	for _, a := range view.Answers {
		visible := "yes"
		if !a.Visible {
			visible = "no"
		}
		answer := "-"
		if a.Answered {
			answer = a.Compact
		}
		fmt.Fprintf(&b, "| %s (`%s`) | %s | %s | %s |\n", a.Title, a.WidgetID, a.Type, visible, answer)
	}
	return mcp.NewToolResultText(b.String()), nil
}

// ─── AttributeSetTool ───────────────────────────────────────────────────────

// AttributeSetTool handles the deepframe_attribute_set MCP tool.
type AttributeSetTool struct {
	ws *workspace.Workspace
}

// NewAttributeSetTool creates an AttributeSetTool.
func NewAttributeSetTool(ws *workspace.Workspace) *AttributeSetTool {
	return &AttributeSetTool{ws: ws}
}

// Definition returns the MCP tool definition for deepframe_attribute_set.
func (t *AttributeSetTool) Definition() mcp.Tool {
	return mcp.NewTool("deepframe_attribute_set",
		mcp.WithDescription(
			"Answer a widget on an entry. The value shape depends on the widget type: "+
				"a string for TEXT/SELECT, a number for NUMBER/SCALE, a list of option keys for "+
				"MULTISELECT, {\"startDate\",\"endDate\"} for DATE_RANGE, and so on. "+
				"Answers to widgets nested under a CONDITIONAL are stored inside the parent's answer.",
		),
		mcp.WithString("entry_id",
			mcp.Required(),
			mcp.Description("Entry ID"),
		),
		mcp.WithString("widget_id",
			mcp.Required(),
			mcp.Description("Widget clientId"),
		),
		mcp.WithString("value",
			mcp.Required(),
			mcp.Description("The answer as JSON, e.g. \"high\", 42, [\"a\",\"b\"]"),
		),
	)
}

// Handle processes the deepframe_attribute_set tool call.
func (t *AttributeSetTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := required(req, "entry_id", "widget_id"); res != nil {
		return res, nil
	}
	value, err := valueArg(req, "value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := json.Marshal(map[string]json.RawMessage{"value": value})
	if err != nil {
		return nil, fmt.Errorf("wrapping value: %w", err)
	}

	widgetID := req.GetString("widget_id", "")
	a, err := t.ws.SetAttribute(req.GetString("entry_id", ""), widgetID, raw)
	if err != nil {
		return domainError("setting attribute", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Set %s (%s) on entry %s", widgetID, a.Type, req.GetString("entry_id", ""))), nil
}

// valueArg reads a required JSON value. A plain string that is not JSON is
// taken as a JSON string, so "high" and "\"high\"" both work.
func valueArg(req mcp.CallToolRequest, key string) (json.RawMessage, error) {
	v, ok := req.GetArguments()[key]
	if !ok || v == nil {
		return nil, fmt.Errorf("'%s' is required", key)
	}
	if s, ok := v.(string); ok && !json.Valid([]byte(s)) {
		return json.Marshal(s)
	}
	return jsonArg(req, key)
}

// ─── AttributeClearTool ─────────────────────────────────────────────────────

// AttributeClearTool handles the deepframe_attribute_clear MCP tool.
type AttributeClearTool struct {
	ws *workspace.Workspace
}

// NewAttributeClearTool creates an AttributeClearTool.
func NewAttributeClearTool(ws *workspace.Workspace) *AttributeClearTool {
	return &AttributeClearTool{ws: ws}
}

// Definition returns the MCP tool definition for deepframe_attribute_clear.
func (t *AttributeClearTool) Definition() mcp.Tool {
	return mcp.NewTool("deepframe_attribute_clear",
		mcp.WithDescription("Remove the answer to a widget on an entry."),
		mcp.WithString("entry_id",
			mcp.Required(),
			mcp.Description("Entry ID"),
		),
		mcp.WithString("widget_id",
			mcp.Required(),
			mcp.Description("Widget clientId"),
		),
	)
}

// Handle processes the deepframe_attribute_clear tool call.
func (t *AttributeClearTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := required(req, "entry_id", "widget_id"); res != nil {
		return res, nil
	}
	entryID := req.GetString("entry_id", "")
	widgetID := req.GetString("widget_id", "")
	if err := t.ws.ClearAttribute(entryID, widgetID); err != nil {
		return domainError("clearing attribute", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Cleared %s on entry %s", widgetID, entryID)), nil
}
