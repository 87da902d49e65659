package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// TagPrompt handles the deepframe-tag MCP prompt.
// It instructs the AI to tag one excerpt against a framework, following
// the framework's visibility rules.
type TagPrompt struct{}

// NewTagPrompt creates a TagPrompt.
func NewTagPrompt() *TagPrompt {
	return &TagPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *TagPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("deepframe-tag",
		mcp.WithPromptDescription(
			"Tag an excerpt against a framework, answering only the widgets "+
				"that are visible given the answers so far.",
		),
		mcp.WithArgument("framework_id",
			mcp.ArgumentDescription("Framework to tag against"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("excerpt",
			mcp.ArgumentDescription("The text to tag"),
		),
	)
}

// Handle processes the deepframe-tag prompt request.
func (p *TagPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	frameworkID := req.Params.Arguments["framework_id"]
	if frameworkID == "" {
		return nil, fmt.Errorf("framework_id is required")
	}
	excerpt := req.Params.Arguments["excerpt"]
	if excerpt == "" {
		excerpt = "(ask me for the excerpt)"
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Tag excerpt against %s", frameworkID),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"Tag this excerpt against framework %s:\n\n> %s\n\n"+
						"Please:\n"+
						"1. Run `deepframe_framework_show` to read the widgets in order\n"+
						"2. Run `deepframe_entry_create` for the excerpt\n"+
						"3. Walk the widgets in order. Before each one, run `deepframe_condition_evaluate` "+
						"and skip widgets that are hidden\n"+
						"4. Answer visible widgets with `deepframe_attribute_set`\n"+
						"5. Finish with `deepframe_entry_show` and summarise the tags",
					frameworkID, excerpt,
				)),
			},
		},
	}, nil
}
