package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/deepframe/internal/widget"
	"github.com/HendryAvila/deepframe/internal/workspace"
	"github.com/mark3labs/mcp-go/mcp"
)

// ─── WidgetAddTool ──────────────────────────────────────────────────────────

// WidgetAddTool handles the deepframe_widget_add MCP tool.
type WidgetAddTool struct {
	ws *workspace.Workspace
}

// NewWidgetAddTool creates a WidgetAddTool.
func NewWidgetAddTool(ws *workspace.Workspace) *WidgetAddTool {
	return &WidgetAddTool{ws: ws}
}

// Definition returns the MCP tool definition for deepframe_widget_add.
func (t *WidgetAddTool) Definition() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(
			"Add a widget to a section, to the secondary-tagging list (no section_id), or under a " +
				"CONDITIONAL widget (parent_id). It is appended after its siblings. The whole edit " +
				"is rejected if the widget or its condition is invalid.",
		),
		mcp.WithString("framework_id",
			mcp.Required(),
			mcp.Description("Framework ID"),
		),
		mcp.WithString("type",
			mcp.Required(),
			mcp.Description("Widget type: "+strings.Join(widget.TypeValues(), ", ")),
		),
		mcp.WithString("section_id",
			mcp.Description("Section clientId. Omit for secondary tagging."),
		),
		mcp.WithString("parent_id",
			mcp.Description("clientId of a CONDITIONAL widget to nest under"),
		),
		mcp.WithString("client_id",
			mcp.Description("Widget clientId (generated when omitted)"),
		),
	}
	opts = append(opts, widgetParams()...)
	return mcp.NewTool("deepframe_widget_add", opts...)
}

// Handle processes the deepframe_widget_add tool call.
func (t *WidgetAddTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := required(req, "framework_id", "type", "title"); res != nil {
		return res, nil
	}
	typ := widget.Type(strings.ToUpper(req.GetString("type", "")))
	if err := widget.ValidateType(typ); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := draftArgs(req, typ)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d.Type = typ

	w, err := t.ws.AddWidget(
		req.GetString("framework_id", ""),
		req.GetString("section_id", ""),
		req.GetString("parent_id", ""),
		d,
	)
	if err != nil {
		return domainError("adding widget", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Added %s widget %q (clientId: %s, order %d)", w.Type, w.Title, w.ClientID, w.Order)), nil
}

// ─── WidgetUpdateTool ───────────────────────────────────────────────────────

// WidgetUpdateTool handles the deepframe_widget_update MCP tool.
type WidgetUpdateTool struct {
	ws *workspace.Workspace
}

// NewWidgetUpdateTool creates a WidgetUpdateTool.
func NewWidgetUpdateTool(ws *workspace.Workspace) *WidgetUpdateTool {
	return &WidgetUpdateTool{ws: ws}
}

// Definition returns the MCP tool definition for deepframe_widget_update.
func (t *WidgetUpdateTool) Definition() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(
			"Edit a widget's title, key, width, properties or condition. Only provided fields change; " +
				"the type cannot change. Properties replace the old ones whole.",
		),
		mcp.WithString("framework_id",
			mcp.Required(),
			mcp.Description("Framework ID"),
		),
		mcp.WithString("widget_id",
			mcp.Required(),
			mcp.Description("Widget clientId"),
		),
		mcp.WithBoolean("drop_conditional",
			mcp.Description("Remove the widget's condition so it is always visible"),
		),
	}
	opts = append(opts, widgetParams()...)
	return mcp.NewTool("deepframe_widget_update", opts...)
}

// Handle processes the deepframe_widget_update tool call.
func (t *WidgetUpdateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := required(req, "framework_id", "widget_id"); res != nil {
		return res, nil
	}
	frameworkID := req.GetString("framework_id", "")
	widgetID := req.GetString("widget_id", "")

	f, err := t.ws.Framework(frameworkID)
	if err != nil {
		return domainError("loading framework", err), nil
	}
	p, ok := f.Find(widgetID)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("widget %q not found in framework %s", widgetID, frameworkID)), nil
	}
	d, err := draftArgs(req, p.Widget.Type)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d.ClientID = ""

	w, err := t.ws.UpdateWidget(frameworkID, widgetID, d)
	if err != nil {
		return domainError("updating widget", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Updated widget %q (clientId: %s)", w.Title, w.ClientID)), nil
}

// ─── WidgetDeleteTool ───────────────────────────────────────────────────────

// WidgetDeleteTool handles the deepframe_widget_delete MCP tool.
type WidgetDeleteTool struct {
	ws *workspace.Workspace
}

// NewWidgetDeleteTool creates a WidgetDeleteTool.
func NewWidgetDeleteTool(ws *workspace.Workspace) *WidgetDeleteTool {
	return &WidgetDeleteTool{ws: ws}
}

// Definition returns the MCP tool definition for deepframe_widget_delete.
func (t *WidgetDeleteTool) Definition() mcp.Tool {
	return mcp.NewTool("deepframe_widget_delete",
		mcp.WithDescription(
			"Delete a widget (with nested widgets of a CONDITIONAL). Condition leaves that "+
				"referenced it are pruned; stored answers to it are discarded.",
		),
		mcp.WithString("framework_id",
			mcp.Required(),
			mcp.Description("Framework ID"),
		),
		mcp.WithString("widget_id",
			mcp.Required(),
			mcp.Description("Widget clientId"),
		),
	)
}

// Handle processes the deepframe_widget_delete tool call.
func (t *WidgetDeleteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := required(req, "framework_id", "widget_id"); res != nil {
		return res, nil
	}
	widgetID := req.GetString("widget_id", "")
	removal, err := t.ws.DeleteWidget(req.GetString("framework_id", ""), widgetID)
	if err != nil {
		return domainError("deleting widget", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Deleted widget %s.\n%s", widgetID, describeRemoval(removal))), nil
}

// ─── WidgetReorderTool ──────────────────────────────────────────────────────

// WidgetReorderTool handles the deepframe_widget_reorder MCP tool.
type WidgetReorderTool struct {
	ws *workspace.Workspace
}

// NewWidgetReorderTool creates a WidgetReorderTool.
func NewWidgetReorderTool(ws *workspace.Workspace) *WidgetReorderTool {
	return &WidgetReorderTool{ws: ws}
}

// Definition returns the MCP tool definition for deepframe_widget_reorder.
func (t *WidgetReorderTool) Definition() mcp.Tool {
	return mcp.NewTool("deepframe_widget_reorder",
		mcp.WithDescription(
			"Move a widget to a new order among its siblings. Later siblings are renumbered. "+
				"Rejected if a condition would end up referencing a widget that comes after it.",
		),
		mcp.WithString("framework_id",
			mcp.Required(),
			mcp.Description("Framework ID"),
		),
		mcp.WithString("widget_id",
			mcp.Required(),
			mcp.Description("Widget clientId"),
		),
		mcp.WithNumber("order",
			mcp.Required(),
			mcp.Description("New order (0 or greater)"),
		),
	)
}

// Handle processes the deepframe_widget_reorder tool call.
func (t *WidgetReorderTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := required(req, "framework_id", "widget_id"); res != nil {
		return res, nil
	}
	if !hasArg(req, "order") {
		return mcp.NewToolResultError("'order' is required"), nil
	}
	widgetID := req.GetString("widget_id", "")
	order, err := intArg(req, "order", -1)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := t.ws.ReorderWidget(req.GetString("framework_id", ""), widgetID, order); err != nil {
		return domainError("reordering widget", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Moved widget %s to order %d", widgetID, order)), nil
}
