package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/deepframe/internal/widget"
	"github.com/HendryAvila/deepframe/internal/workspace"
	"github.com/mark3labs/mcp-go/mcp"
)

// EvaluateTool handles the deepframe_condition_evaluate MCP tool.
//
// Without a conditions argument it reports the visibility of every widget
// for the entry. With one it evaluates that tree alone, which is how a
// designer tries a rule before attaching it to a widget.
type EvaluateTool struct {
	ws *workspace.Workspace
}

// NewEvaluateTool creates an EvaluateTool.
func NewEvaluateTool(ws *workspace.Workspace) *EvaluateTool {
	return &EvaluateTool{ws: ws}
}

// Definition returns the MCP tool definition for deepframe_condition_evaluate.
func (t *EvaluateTool) Definition() mcp.Tool {
	return mcp.NewTool("deepframe_condition_evaluate",
		mcp.WithDescription(
			"Evaluate conditions against an entry's answers. Omit 'conditions' to get the "+
				"visibility of every widget; pass a condition tree to test it on its own. "+
				"Widgets that are unanswered make their leaves false.",
		),
		mcp.WithString("entry_id",
			mcp.Required(),
			mcp.Description("Entry ID"),
		),
		mcp.WithString("conditions",
			mcp.Description("Optional condition tree as JSON (same shape as a widget's 'conditional')"),
		),
	)
}

// Handle processes the deepframe_condition_evaluate tool call.
func (t *EvaluateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := required(req, "entry_id"); res != nil {
		return res, nil
	}
	entryID := req.GetString("entry_id", "")

	raw, err := jsonArg(req, "conditions")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if raw == nil {
		eval, err := t.ws.Visibility(entryID)
		if err != nil {
			return domainError("evaluating visibility", err), nil
		}
		if len(eval.Hidden) == 0 {
			return mcp.NewToolResultText(fmt.Sprintf("All %d widgets are visible for entry %s.", len(eval.Visible), entryID)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("%d of %d widgets are hidden for entry %s: %s",
			len(eval.Hidden), len(eval.Visible), entryID, strings.Join(eval.Hidden, ", "))), nil
	}

	c, err := widget.ParseConditional(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	eval, err := t.ws.EvaluateTree(entryID, c.Tree)
	if err != nil {
		return domainError("evaluating conditions", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s → %t", describe(c.Tree), *eval.Result)), nil
}
