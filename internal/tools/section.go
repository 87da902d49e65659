package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/deepframe/internal/widget"
	"github.com/HendryAvila/deepframe/internal/workspace"
	"github.com/mark3labs/mcp-go/mcp"
)

// ─── SectionAddTool ─────────────────────────────────────────────────────────

// SectionAddTool handles the deepframe_section_add MCP tool.
type SectionAddTool struct {
	ws *workspace.Workspace
}

// NewSectionAddTool creates a SectionAddTool.
func NewSectionAddTool(ws *workspace.Workspace) *SectionAddTool {
	return &SectionAddTool{ws: ws}
}

// Definition returns the MCP tool definition for deepframe_section_add.
func (t *SectionAddTool) Definition() mcp.Tool {
	return mcp.NewTool("deepframe_section_add",
		mcp.WithDescription("Append a primary-tagging section to a framework."),
		mcp.WithString("framework_id",
			mcp.Required(),
			mcp.Description("Framework ID"),
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Section title"),
		),
		mcp.WithString("client_id",
			mcp.Description("Section clientId (generated when omitted)"),
		),
		mcp.WithString("tooltip",
			mcp.Description("Optional help text"),
		),
	)
}

// Handle processes the deepframe_section_add tool call.
func (t *SectionAddTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := required(req, "framework_id", "title"); res != nil {
		return res, nil
	}
	s, err := t.ws.AddSection(req.GetString("framework_id", ""), widget.SectionDraft{
		ClientID: req.GetString("client_id", ""),
		Title:    optString(req, "title"),
		Tooltip:  optString(req, "tooltip"),
	})
	if err != nil {
		return domainError("adding section", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Added section %q (clientId: %s, order %d)", s.Title, s.ClientID, s.Order)), nil
}

// ─── SectionDeleteTool ──────────────────────────────────────────────────────

// SectionDeleteTool handles the deepframe_section_delete MCP tool.
type SectionDeleteTool struct {
	ws *workspace.Workspace
}

// NewSectionDeleteTool creates a SectionDeleteTool.
func NewSectionDeleteTool(ws *workspace.Workspace) *SectionDeleteTool {
	return &SectionDeleteTool{ws: ws}
}

// Definition returns the MCP tool definition for deepframe_section_delete.
func (t *SectionDeleteTool) Definition() mcp.Tool {
	return mcp.NewTool("deepframe_section_delete",
		mcp.WithDescription(
			"Delete a section with all of its widgets. Conditions elsewhere that referenced "+
				"those widgets lose the affected leaves, and stored answers to them are discarded.",
		),
		mcp.WithString("framework_id",
			mcp.Required(),
			mcp.Description("Framework ID"),
		),
		mcp.WithString("section_id",
			mcp.Required(),
			mcp.Description("Section clientId"),
		),
	)
}

// Handle processes the deepframe_section_delete tool call.
func (t *SectionDeleteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := required(req, "framework_id", "section_id"); res != nil {
		return res, nil
	}
	sectionID := req.GetString("section_id", "")
	removal, err := t.ws.DeleteSection(req.GetString("framework_id", ""), sectionID)
	if err != nil {
		return domainError("deleting section", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Deleted section %s.\n%s", sectionID, describeRemoval(removal))), nil
}

// describeRemoval summarises what a delete took with it.
func describeRemoval(r *workspace.Removal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- widgets removed: %d", len(r.Removed))
	if len(r.Removed) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(r.Removed, ", "))
	}
	b.WriteString("\n")
	if len(r.Pruned) > 0 {
		fmt.Fprintf(&b, "- conditions pruned on: %s\n", strings.Join(r.Pruned, ", "))
	}
	fmt.Fprintf(&b, "- stored answers discarded: %d\n", r.Attributes)
	return b.String()
}

// ─── SectionReorderTool ─────────────────────────────────────────────────────

// SectionReorderTool handles the deepframe_section_reorder MCP tool.
type SectionReorderTool struct {
	ws *workspace.Workspace
}

// NewSectionReorderTool creates a SectionReorderTool.
func NewSectionReorderTool(ws *workspace.Workspace) *SectionReorderTool {
	return &SectionReorderTool{ws: ws}
}

// Definition returns the MCP tool definition for deepframe_section_reorder.
func (t *SectionReorderTool) Definition() mcp.Tool {
	return mcp.NewTool("deepframe_section_reorder",
		mcp.WithDescription(
			"Move a section to a new order. Later sections are renumbered so orders stay unique. "+
				"Rejected if it would put a condition before a widget it references.",
		),
		mcp.WithString("framework_id",
			mcp.Required(),
			mcp.Description("Framework ID"),
		),
		mcp.WithString("section_id",
			mcp.Required(),
			mcp.Description("Section clientId"),
		),
		mcp.WithNumber("order",
			mcp.Required(),
			mcp.Description("New order (0 or greater)"),
		),
	)
}

// Handle processes the deepframe_section_reorder tool call.
func (t *SectionReorderTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := required(req, "framework_id", "section_id"); res != nil {
		return res, nil
	}
	if !hasArg(req, "order") {
		return mcp.NewToolResultError("'order' is required"), nil
	}
	sectionID := req.GetString("section_id", "")
	order, err := intArg(req, "order", -1)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := t.ws.ReorderSection(req.GetString("framework_id", ""), sectionID, order); err != nil {
		return domainError("reordering section", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Moved section %s to order %d", sectionID, order)), nil
}
