// Package prompts implements MCP prompt handlers for framework design and
// tagging.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/deepframe/internal/widget"
	"github.com/mark3labs/mcp-go/mcp"
)

// DesignPrompt handles the deepframe-design MCP prompt.
// It guides the AI through building a framework section by section.
type DesignPrompt struct{}

// NewDesignPrompt creates a DesignPrompt.
func NewDesignPrompt() *DesignPrompt {
	return &DesignPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *DesignPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("deepframe-design",
		mcp.WithPromptDescription(
			"Design an analysis framework: sections, widgets and the conditions "+
				"that show or hide widgets based on earlier answers.",
		),
		mcp.WithArgument("title",
			mcp.ArgumentDescription("Framework title"),
		),
		mcp.WithArgument("framework_id",
			mcp.ArgumentDescription("Existing framework to extend instead of creating a new one"),
		),
	)
}

// Handle processes the deepframe-design prompt request.
func (p *DesignPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	title := "New framework"
	frameworkID := ""
	if args := req.Params.Arguments; args != nil {
		if v, ok := args["title"]; ok && v != "" {
			title = v
		}
		frameworkID = args["framework_id"]
	}

	start := fmt.Sprintf("1. Run `deepframe_framework_create` with title='%s'\n", title)
	if frameworkID != "" {
		start = fmt.Sprintf("1. Run `deepframe_framework_show` with framework_id='%s' to see what exists\n", frameworkID)
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Design framework: %s", title),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"I want to design an analysis framework for tagging excerpts.\n\n" +
						"Please:\n" +
						start +
						"2. Ask me which themes the analysis covers and add one section per theme with `deepframe_section_add`\n" +
						"3. For each section, propose widgets and add them with `deepframe_widget_add`. " +
						"Available types: " + strings.Join(widget.TypeValues(), ", ") + "\n" +
						"4. Where a widget only makes sense after a given answer, attach a `conditional` that references an earlier widget. " +
						"Read `deepframe://widget-types` for the operators each type supports\n" +
						"5. Run `deepframe_framework_validate` and fix anything it reports\n" +
						"6. Show me the final outline with `deepframe_framework_show`",
				),
			},
		},
	}, nil
}
