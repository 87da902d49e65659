package tools

import (
	"context"
	"fmt"

	"github.com/HendryAvila/deepframe/internal/document"
	"github.com/HendryAvila/deepframe/internal/widget"
	"github.com/HendryAvila/deepframe/internal/workspace"
	"github.com/mark3labs/mcp-go/mcp"
)

// ─── FrameworkImportTool ────────────────────────────────────────────────────

// FrameworkImportTool handles the deepframe_framework_import MCP tool.
type FrameworkImportTool struct {
	ws *workspace.Workspace
}

// NewFrameworkImportTool creates a FrameworkImportTool.
func NewFrameworkImportTool(ws *workspace.Workspace) *FrameworkImportTool {
	return &FrameworkImportTool{ws: ws}
}

// Definition returns the MCP tool definition for deepframe_framework_import.
func (t *FrameworkImportTool) Definition() mcp.Tool {
	return mcp.NewTool("deepframe_framework_import",
		mcp.WithDescription(
			"Import a complete framework document from a file path or inline content. "+
				"The document must pass validation; an existing framework with the same id is replaced.",
		),
		mcp.WithString("path",
			mcp.Description("Path to a .json, .yaml or .yml document"),
		),
		mcp.WithString("content",
			mcp.Description("Inline document, used when no path is given"),
		),
		mcp.WithString("format",
			mcp.Description("Format of inline content: json (default) or yaml"),
		),
	)
}

// Handle processes the deepframe_framework_import tool call.
func (t *FrameworkImportTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var (
		f   *widget.Framework
		err error
	)
	if path := req.GetString("path", ""); path != "" {
		f, err = document.Load(path)
	} else if content := req.GetString("content", ""); content != "" {
		format, ferr := document.ParseFormat(req.GetString("format", "json"))
		if ferr != nil {
			return mcp.NewToolResultError(ferr.Error()), nil
		}
		f, err = document.Decode([]byte(content), format)
	} else {
		return mcp.NewToolResultError("either 'path' or 'content' is required"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	saved, err := t.ws.Import(f)
	if err != nil {
		return domainError("importing framework", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Imported framework %q (id: %s, %d sections, %d widgets)",
		saved.Title, saved.ID, len(saved.Sections), len(saved.DocumentOrder()))), nil
}

// ─── FrameworkExportTool ────────────────────────────────────────────────────

// FrameworkExportTool handles the deepframe_framework_export MCP tool.
type FrameworkExportTool struct {
	ws *workspace.Workspace
}

// NewFrameworkExportTool creates a FrameworkExportTool.
func NewFrameworkExportTool(ws *workspace.Workspace) *FrameworkExportTool {
	return &FrameworkExportTool{ws: ws}
}

// Definition returns the MCP tool definition for deepframe_framework_export.
func (t *FrameworkExportTool) Definition() mcp.Tool {
	return mcp.NewTool("deepframe_framework_export",
		mcp.WithDescription(
			"Export a framework document. With 'path' it is written to disk (format from the "+
				"extension); otherwise it is returned inline.",
		),
		mcp.WithString("framework_id",
			mcp.Required(),
			mcp.Description("Framework ID"),
		),
		mcp.WithString("format",
			mcp.Description("json (default) or yaml, for inline output"),
		),
		mcp.WithString("path",
			mcp.Description("Optional file to write"),
		),
	)
}

// Handle processes the deepframe_framework_export tool call.
func (t *FrameworkExportTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := required(req, "framework_id"); res != nil {
		return res, nil
	}
	id := req.GetString("framework_id", "")

	if path := req.GetString("path", ""); path != "" {
		f, err := t.ws.Framework(id)
		if err != nil {
			return domainError("loading framework", err), nil
		}
		if err := document.Write(path, f); err != nil {
			return nil, fmt.Errorf("exporting framework %s: %w", id, err)
		}
		return mcp.NewToolResultText(fmt.Sprintf("Wrote framework %s to %s", id, path)), nil
	}

	format, err := document.ParseFormat(req.GetString("format", "json"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := t.ws.Export(id, format)
	if err != nil {
		return domainError("exporting framework", err), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ─── FrameworkDeleteTool ────────────────────────────────────────────────────

// FrameworkDeleteTool handles the deepframe_framework_delete MCP tool.
type FrameworkDeleteTool struct {
	ws *workspace.Workspace
}

// NewFrameworkDeleteTool creates a FrameworkDeleteTool.
func NewFrameworkDeleteTool(ws *workspace.Workspace) *FrameworkDeleteTool {
	return &FrameworkDeleteTool{ws: ws}
}

// Definition returns the MCP tool definition for deepframe_framework_delete.
func (t *FrameworkDeleteTool) Definition() mcp.Tool {
	return mcp.NewTool("deepframe_framework_delete",
		mcp.WithDescription("Delete a framework together with every entry tagged against it."),
		mcp.WithString("framework_id",
			mcp.Required(),
			mcp.Description("Framework ID"),
		),
		mcp.WithBoolean("confirm",
			mcp.Required(),
			mcp.Description("Must be true"),
		),
	)
}

// Handle processes the deepframe_framework_delete tool call.
func (t *FrameworkDeleteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := required(req, "framework_id"); res != nil {
		return res, nil
	}
	if !boolArg(req, "confirm", false) {
		return mcp.NewToolResultError("refusing to delete without confirm=true"), nil
	}
	id := req.GetString("framework_id", "")
	if err := t.ws.DeleteFramework(id); err != nil {
		return domainError("deleting framework", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Deleted framework %s and its entries", id)), nil
}
